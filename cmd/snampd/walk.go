package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/gosnmp/gosnmp"
	"github.com/urfave/cli/v3"

	"github.com/snamp-platform/snamp-go/pkg/config"
	"github.com/snamp-platform/snamp-go/pkg/gateway/snmp"
	"github.com/snamp-platform/snamp-go/pkg/registry"
	"github.com/snamp-platform/snamp-go/pkg/subscription"
)

func walkCmd() *cli.Command {
	return &cli.Command{
		Name:  "walk",
		Usage: "Print the SNMP view of the configured resources",
		Description: `Attaches the resources of the configuration, reads every attribute that
carries an "oid" option and prints the resulting varbinds, one per line.
The root defaults to the SNMP enterprise OID of the configuration.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "path to the YAML configuration",
				Sources:  cli.EnvVars("SNAMP_CONFIG"),
				Required: true,
			},
			&cli.StringFlag{
				Name:  "root",
				Usage: "only instances under this OID",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			logger := newLogger(os.Stderr, cmd.String("log-level"))
			cfg, err := config.Load(cmd.String("config"))
			if err != nil {
				return err
			}

			reg := registry.New(logger, nil)
			defer reg.Close()
			d := subscription.NewDispatcher(subscription.Config{Logger: logger})
			defer d.Close()

			ac := snmp.AgentConfig{Logger: logger}
			root := ".1"
			if s := cfg.Gateways.SNMP; s != nil {
				ac.AccessTimeout = s.AccessTimeout
				if s.Enterprise != "" {
					root = s.Enterprise
				}
			}
			if r := cmd.String("root"); r != "" {
				root = r
			}
			agent := snmp.NewAgent(reg, ac)

			applier := &config.Applier{
				Connectors: connectors(logger),
				Registry:   reg,
				Invokers:   d,
				Logger:     logger,
			}
			if _, err := applier.Apply(ctx, cfg); err != nil {
				logger.Warn("configuration partially applied", "error", err)
			}

			pdus, err := agent.Walk(ctx, root)
			if werr := writeVarbinds(cmd.Root().Writer, pdus); werr != nil {
				return werr
			}
			if err != nil {
				logger.Warn("some attributes could not be read", "error", err)
			}
			return nil
		},
	}
}

func writeVarbinds(w io.Writer, pdus []gosnmp.SnmpPDU) error {
	for _, p := range pdus {
		v := p.Value
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		if _, err := fmt.Fprintf(w, "%s = %s: %v\n", p.Name, p.Type, v); err != nil {
			return err
		}
	}
	return nil
}
