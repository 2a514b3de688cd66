package main

import (
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	host       string
	port       int
	transport  string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "simctl",
		Short:        "Session and execution control for a remote simulation server",
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to YAML configuration")
	flags.StringVar(&opts.host, "host", "", "server host (overrides config)")
	flags.IntVar(&opts.port, "port", 0, "server port (overrides config)")
	flags.StringVar(&opts.transport, "transport", "", "transport: websocket or quic (overrides config)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")

	cmd.AddCommand(newRunCmd(opts))
	cmd.AddCommand(newPingCmd(opts))

	return cmd
}
