package main

import (
	"github.com/go-i2p/go-envelope/lib/config"
	"github.com/go-i2p/go-envelope/lib/server"
	"github.com/go-i2p/go-envelope/lib/transport"
	"github.com/go-i2p/go-envelope/lib/util"
	"github.com/go-i2p/go-envelope/lib/util/signals"
	"github.com/go-i2p/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newServeCmd() *cobra.Command {
	var socket string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run an echo server on a unix socket",
		RunE: func(cmd *cobra.Command, args []string) error {
			if socket != "" {
				cfg.Serve.Socket = socket
			}
			s := server.New(cfg, server.Echo{})
			util.RegisterCloser(s)

			signals.RegisterReloadHandler(reloadTransportLimits)
			signals.RegisterInterruptHandler(func() {
				if err := util.CloseAll(); err != nil {
					log.WithError(err).Warn("shutdown was not clean")
				}
			})
			go signals.Handle()
			defer signals.StopHandle()

			log.WithFields(logger.Fields{
				"at":     "serve",
				"socket": cfg.Serve.Socket,
			}).Info("starting echo server")
			return s.ListenAndServe()
		},
	}
	cmd.Flags().StringVar(&socket, "socket", "", "unix socket to listen on (default serve.socket from config)")
	return cmd
}

// reloadTransportLimits re-reads the config file and applies new transport
// limits. Stream and serve settings only take effect on restart.
func reloadTransportLimits() {
	if err := viper.ReadInConfig(); err != nil {
		log.WithError(err).Warn("config reload failed, keeping current limits")
		return
	}
	reloaded := config.NewEnvelopeConfigFromViper()
	if err := transport.Configure(reloaded.Transport); err != nil {
		log.WithError(err).Warn("reloaded transport limits rejected")
	}
}
