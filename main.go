package main

import (
	"os"

	"github.com/go-i2p/go-envelope/lib/config"
	"github.com/go-i2p/go-envelope/lib/transport"
	"github.com/go-i2p/logger"
	"github.com/spf13/cobra"
)

var log = logger.GetGoI2PLogger()

// cfg is loaded by the root command before any subcommand runs.
var cfg *config.EnvelopeConfig

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "go-envelope",
		Short:         "Inspect, send and serve framed IPC message envelopes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.InitConfig()
			cfg = config.NewEnvelopeConfigFromViper()
			return transport.Configure(cfg.Transport)
		},
	}
	root.PersistentFlags().StringVar(&config.CfgFile, "config", "", "config file (default $HOME/.go-envelope/config.yaml)")

	root.AddCommand(newInspectCmd(), newSendCmd(), newServeCmd(), newConfigCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.WithError(err).Error("command failed")
		os.Exit(1)
	}
}
