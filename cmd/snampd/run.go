package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/snamp-platform/snamp-go/pkg/config"
	"github.com/snamp-platform/snamp-go/pkg/connector"
	"github.com/snamp-platform/snamp-go/pkg/connector/mda"
	"github.com/snamp-platform/snamp-go/pkg/connector/memory"
	"github.com/snamp-platform/snamp-go/pkg/connector/modbus"
	"github.com/snamp-platform/snamp-go/pkg/connector/rshell"
	"github.com/snamp-platform/snamp-go/pkg/discovery"
	"github.com/snamp-platform/snamp-go/pkg/gateway/rest"
	"github.com/snamp-platform/snamp-go/pkg/gateway/snmp"
	"github.com/snamp-platform/snamp-go/pkg/gateway/syslog"
	"github.com/snamp-platform/snamp-go/pkg/log"
	"github.com/snamp-platform/snamp-go/pkg/metrics"
	"github.com/snamp-platform/snamp-go/pkg/registry"
	"github.com/snamp-platform/snamp-go/pkg/subscription"
)

func runCmd() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Attach the configured resources and serve the gateways",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "path to the YAML configuration",
				Sources:  cli.EnvVars("SNAMP_CONFIG"),
				Required: true,
			},
			&cli.StringFlag{
				Name:  "trace-file",
				Usage: "write access and delivery events to this CBOR trace file",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Value: true,
				Usage: "reload the configuration when the file changes",
			},
			&cli.DurationFlag{
				Name:  "shutdown-timeout",
				Value: 10 * time.Second,
				Usage: "bound on graceful shutdown",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			logger := newLogger(os.Stderr, cmd.String("log-level"))
			slog.SetDefault(logger)

			cfg, err := config.Load(cmd.String("config"))
			if err != nil {
				return err
			}
			d, err := newDaemon(ctx, cfg, cmd.String("trace-file"), logger)
			if err != nil {
				return err
			}
			defer d.close(cmd.Duration("shutdown-timeout"))
			return d.run(ctx, cfg, cmd.String("config"), cmd.Bool("watch"))
		},
	}
}

// connectors returns the registry of built-in connector types.
func connectors(logger *slog.Logger) *connector.Registry {
	reg := connector.NewRegistry(logger)
	for typ, f := range map[string]connector.Factory{
		memory.Type: memory.Open,
		modbus.Type: modbus.Open,
		mda.Type:    mda.Open,
		rshell.Type: rshell.Open,
	} {
		// Types are distinct, registration cannot fail.
		_ = reg.Register(typ, f)
	}
	return reg
}

// daemon owns every long-lived component of a run.
type daemon struct {
	logger  *slog.Logger
	trace   *log.FileLogger
	metrics *metrics.Metrics

	registry   *registry.Registry
	dispatcher *subscription.Dispatcher
	applier    *config.Applier
	release    func()

	advertiser *discovery.Advertiser
	rest       *rest.Server
	traps      *snmp.TrapForwarder
	syslog     *syslog.Forwarder
	forwards   []*forwarding
}

func newDaemon(ctx context.Context, cfg *config.Config, traceFile string, logger *slog.Logger) (*daemon, error) {
	d := &daemon{logger: logger, metrics: metrics.New()}

	var trace log.Logger
	if traceFile != "" {
		fl, err := log.NewFileLogger(traceFile)
		if err != nil {
			return nil, fmt.Errorf("trace file: %w", err)
		}
		d.trace = fl
		trace = fl
	}

	counter, release, err := newCounter(ctx, cfg.Sequence, logger)
	if err != nil {
		d.closeTrace()
		return nil, err
	}
	d.release = release

	d.registry = registry.New(logger, trace)
	d.dispatcher = subscription.NewDispatcher(subscription.Config{
		Logger:   logger,
		Trace:    trace,
		Observer: d.metrics,
	})
	d.applier = &config.Applier{
		Connectors: connectors(logger),
		Registry:   d.registry,
		Invokers:   d.dispatcher,
		Counter:    counter,
		Observer:   d.metrics,
		Logger:     logger,
		Trace:      trace,
	}

	if err := d.startGateways(cfg.Gateways); err != nil {
		d.close(time.Second)
		return nil, err
	}
	return d, nil
}

func (d *daemon) startGateways(gw config.GatewaysConfig) error {
	if r := gw.REST; r != nil {
		rc := rest.DefaultConfig()
		rc.Address = r.Address
		if r.Port != 0 {
			rc.Port = r.Port
		}
		if r.Name != "" {
			rc.Name = r.Name
		}
		if r.RateLimit > 0 {
			rc.RateLimit = rate.Limit(r.RateLimit)
		}
		if r.Burst > 0 {
			rc.RateLimitBurst = r.Burst
		}
		if r.JWTSecret != "" {
			rc.JWTSecret = []byte(r.JWTSecret)
			rc.JWTIssuer = r.JWTIssuer
		}
		if r.AccessTimeout != 0 {
			rc.AccessTimeout = r.AccessTimeout
		}
		rc.Logger = d.logger.With("gateway", "rest")
		rc.Metrics = d.metrics

		var opts []rest.Option
		if r.Announce {
			d.advertiser = discovery.NewAdvertiser(discovery.AdvertiserConfig{Logger: d.logger})
			opts = append(opts, rest.WithAnnouncer(d.advertiser))
		}
		d.rest = rest.New(rc, d.registry, d.dispatcher, opts...)
	}

	if s := gw.SNMP; s != nil {
		logger := d.logger.With("gateway", "snmp")
		if len(s.Traps) > 0 {
			targets := make([]snmp.TrapTarget, len(s.Traps))
			for i, t := range s.Traps {
				targets[i] = snmp.TrapTarget{Address: t.Address, Port: t.Port, Community: t.Community}
			}
			traps, err := snmp.NewTrapForwarder(d.registry, d.dispatcher, snmp.TrapConfig{
				Targets:    targets,
				Enterprise: s.Enterprise,
				Retries:    s.Retries,
				Logger:     logger,
			})
			if err != nil {
				return fmt.Errorf("snmp traps: %w", err)
			}
			d.traps = traps
			d.forwards = append(d.forwards, newForwarding("snmp", traps, s.Forward, logger))
		}
	}

	if s := gw.Syslog; s != nil {
		sc := syslog.DefaultConfig()
		if s.Network != "" {
			sc.Network = s.Network
		}
		if s.Address != "" {
			sc.Address = s.Address
		}
		if s.Tag != "" {
			sc.Tag = s.Tag
		}
		if s.Facility != "" {
			sc.Facility = s.Facility
		}
		if s.Format != "" {
			sc.Format = s.Format
		}
		if s.RateLimit > 0 {
			sc.RateLimit = rate.Limit(s.RateLimit)
		}
		if s.Burst > 0 {
			sc.Burst = s.Burst
		}
		sc.Logger = d.logger.With("gateway", "syslog")
		fw, err := syslog.New(d.registry, d.dispatcher, sc)
		if err != nil {
			return fmt.Errorf("syslog: %w", err)
		}
		d.syslog = fw
		d.forwards = append(d.forwards, newForwarding("syslog", fw, s.Forward, sc.Logger))
	}
	return nil
}

// apply applies cfg and updates the forwarding subscriptions.
func (d *daemon) apply(ctx context.Context, cfg *config.Config) {
	res, err := d.applier.Apply(ctx, cfg)
	if err != nil {
		d.logger.Error("configuration partially applied", "failed", res.Failed, "error", err)
	}
	names := cfg.ResourceNames()
	for _, f := range d.forwards {
		f.sync(names)
	}
}

func (d *daemon) run(ctx context.Context, cfg *config.Config, path string, watch bool) error {
	d.apply(ctx, cfg)

	var w *config.Watcher
	if watch {
		var err error
		w, err = config.NewWatcher(path, 0, func(c *config.Config) { d.apply(ctx, c) }, d.logger)
		if err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	if d.rest != nil {
		g.Go(func() error { return d.rest.Start(ctx) })
	}
	if w != nil {
		g.Go(func() error { return w.Run(ctx) })
	}
	g.Go(func() error {
		<-ctx.Done()
		return nil
	})

	d.logger.Info("snampd started", "resources", len(cfg.Resources), "watch", watch)
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	d.logger.Info("snampd stopping")
	return err
}

// close releases everything in reverse dependency order.
func (d *daemon) close(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if d.rest != nil {
		_ = d.rest.Shutdown(ctx)
	}
	for _, f := range d.forwards {
		f.close()
	}
	if d.traps != nil {
		_ = d.traps.Close()
	}
	if d.syslog != nil {
		_ = d.syslog.Close()
	}
	if d.advertiser != nil {
		_ = d.advertiser.Close()
	}
	if d.applier != nil {
		d.applier.DetachAll()
	}
	if d.dispatcher != nil {
		_ = d.dispatcher.Close()
	}
	if d.registry != nil {
		_ = d.registry.Close()
	}
	if d.release != nil {
		d.release()
	}
	d.closeTrace()
}

func (d *daemon) closeTrace() {
	if d.trace == nil {
		return
	}
	if err := d.trace.Close(); err != nil {
		d.logger.Warn("closing trace file", "error", err)
	}
}
