package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/parleychat/parley-server/internal/app"
	"github.com/parleychat/parley-server/internal/config"
	"github.com/parleychat/parley-server/internal/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	overrides := config.Default()

	cmd := &cobra.Command{
		Use:           "parley-server",
		Short:         "Real-time group and direct messaging hub",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bootLog := log.New("info")

			cfg, path, err := config.Load(bootLog, configPath)
			if err != nil {
				return err
			}

			// Flags set on the command line win over file and env values.
			if cmd.Flags().Changed("addr") {
				cfg.Addr = overrides.Addr
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = overrides.LogLevel
			}
			if cmd.Flags().Changed("static-dir") {
				cfg.StaticDir = overrides.StaticDir
			}

			logger := log.New(cfg.LogLevel)
			logger.Info().Str("config", path).Str("addr", cfg.Addr).Msg("starting parley server")

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application := app.New(cfg, logger)
			if err := application.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("server exited with error")
				return err
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to config file")
	cmd.Flags().StringVar(&overrides.Addr, "addr", overrides.Addr, "HTTP listen address")
	cmd.Flags().StringVar(&overrides.LogLevel, "log-level", overrides.LogLevel, "log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&overrides.StaticDir, "static-dir", overrides.StaticDir, "directory with the web client, empty to disable")

	return cmd
}
