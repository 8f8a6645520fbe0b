// Command snampd runs the SNAMP integration daemon.
//
// The daemon attaches the resources listed in a YAML configuration and
// re-exposes their attributes and notifications through the configured
// gateways (REST/WebSocket, SNMP traps, syslog). The SNMP OID table is not
// served over UDP; walk prints it from the command line.
//
// Usage:
//
//	snampd [--log-level LEVEL] run --config FILE [--trace-file FILE]
//	snampd discover --type TYPE [--connection-string S] [--option k=v]...
//	snampd trace view|stats|export FILE
//	snampd walk --config FILE [--root OID]
//	snampd version
//
// Examples:
//
//	# Run with hot reload of the configuration file
//	snampd run --config /etc/snamp/snamp.yaml
//
//	# Print the registers declared on a modbus device as configuration
//	snampd discover --type modbus --connection-string tcp://plc1 \
//	    --option register.temp="holding:0|int16|ro"
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/snamp-platform/snamp-go/pkg/version"
)

const name = "snampd"

func rootCmd() *cli.Command {
	return &cli.Command{
		Name:                  name,
		Usage:                 "SNAMP monitoring and management integration daemon",
		Version:               version.Info().String(),
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "log level (debug, info, warn, error)",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Commands: []*cli.Command{
			runCmd(),
			discoverCmd(),
			traceCmd(),
			walkCmd(),
			versionCmd(),
		},
	}
}

func versionCmd() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print build information",
		Action: func(_ context.Context, cmd *cli.Command) error {
			_, err := fmt.Fprintln(cmd.Root().Writer, version.Info().String())
			return err
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
