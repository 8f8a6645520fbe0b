package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/snamp-platform/snamp-go/pkg/config"
	"github.com/snamp-platform/snamp-go/pkg/discovery"
	"github.com/snamp-platform/snamp-go/pkg/model"
)

func discoverCmd() *cli.Command {
	return &cli.Command{
		Name:  "discover",
		Usage: "List the features of a resource as configuration",
		Description: `Opens a discovery provider for the given connector type and prints the
attributes and events it reports as a resource configuration block.
The "mdns" type browses MDA endpoints announced on the local network;
every connector type that can list its features is available as well.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "type",
				Aliases:  []string{"t"},
				Usage:    "connector or provider type",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "connection-string",
				Usage: "connection string of the resource",
			},
			&cli.StringSliceFlag{
				Name:    "option",
				Aliases: []string{"o"},
				Usage:   "resource option as key=value (repeatable)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			logger := newLogger(os.Stderr, cmd.String("log-level"))
			opts, err := parseOptions(cmd.StringSlice("option"))
			if err != nil {
				return err
			}

			svc := discovery.NewService(logger, nil)
			if err := svc.Register(discovery.ProviderType, discovery.OpenMDNS); err != nil {
				return err
			}
			svc.RegisterConnectors(connectors(logger))

			typ := cmd.String("type")
			cs := cmd.String("connection-string")
			res := svc.DiscoverBatch(ctx, typ, cs, opts, model.FeatureAttribute, model.FeatureNotification)
			if res.Err != nil {
				logger.Warn("discovery incomplete", "type", typ, "error", res.Err)
			}
			return writeResource(cmd.Root().Writer, typ, cs, opts, res)
		},
	}
}

func parseOptions(kvs []string) (model.Options, error) {
	opts := make(model.Options, len(kvs))
	for _, kv := range kvs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid option %q, want key=value", kv)
		}
		opts[k] = v
	}
	return opts, nil
}

// toResourceConfig renders discovered features in configuration form.
func toResourceConfig(typ, cs string, opts model.Options, res discovery.Result) config.ResourceConfig {
	rc := config.ResourceConfig{
		Type:             typ,
		ConnectionString: cs,
		Attributes:       make(map[string]config.AttributeConfig),
		Events:           make(map[string]config.EventConfig),
	}
	if len(opts) > 0 {
		rc.Options = opts.Clone()
	}
	for _, f := range res.Get(model.FeatureAttribute) {
		a := f.Attribute
		ac := config.AttributeConfig{
			Type:        a.Type.String(),
			Access:      shortAccess(a.Access),
			ReadTimeout: a.ReadTimeout,
		}
		if len(a.Options) > 0 {
			ac.Options = a.Options.Clone()
		}
		id := a.ID
		if id == "" {
			id = a.Name
		} else if a.Name != id {
			ac.Name = a.Name
		}
		rc.Attributes[id] = ac
	}
	for _, f := range res.Get(model.FeatureNotification) {
		n := f.Notification
		ec := config.EventConfig{Type: n.NotifType}
		if n.Severity != model.SeverityUnknown {
			ec.Severity = n.Severity.String()
		}
		if n.AttachmentType != nil {
			ec.Attachment = n.AttachmentType.String()
		}
		if len(n.Options) > 0 {
			ec.Options = n.Options.Clone()
		}
		rc.Events[n.Category] = ec
	}
	return rc
}

func shortAccess(a model.Access) string {
	switch a {
	case model.AccessReadOnly:
		return "ro"
	case model.AccessWriteOnly:
		return "wo"
	default:
		return "rw"
	}
}

func writeResource(w io.Writer, typ, cs string, opts model.Options, res discovery.Result) error {
	rc := toResourceConfig(typ, cs, opts, res)
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(map[string]any{"resources": map[string]config.ResourceConfig{"discovered": rc}}); err != nil {
		return err
	}
	return enc.Close()
}
