package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/netchat/netchat-server/internal/app"
	"github.com/netchat/netchat-server/internal/config"
	"github.com/netchat/netchat-server/internal/log"
)

func main() {
	var (
		cfgPath    string
		overrides  config.Config
		maxClients int
	)

	root := &cobra.Command{
		Use:           "netchat-server",
		Short:         "Multi-room text chat server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bootstrap := log.New("info")
			cfg, path, err := config.Load(bootstrap, cfgPath)
			if err != nil {
				return err
			}
			overrides.MaxClients = maxClients
			cfg.UpdateFrom(overrides)

			logger := log.New(cfg.LogLevel)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(cfg, logger)
			if err != nil {
				return err
			}

			logger.Info().Str("config", path).Msg("starting netchat server")
			if err := application.Run(ctx); err != nil {
				return err
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file")
	root.Flags().StringVar(&overrides.ListenAddr, "listen-addr", "", "TCP chat listen address")
	root.Flags().StringVar(&overrides.HTTPAddr, "http-addr", "", "HTTP API listen address")
	root.Flags().IntVar(&maxClients, "max-clients", 0, "maximum concurrent sessions")
	root.Flags().StringVar(&overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error)")

	if err := root.Execute(); err != nil {
		log.New("error").Error().Err(err).Msg("server exited with error")
		os.Exit(1)
	}
}
