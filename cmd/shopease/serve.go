package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"shopease/internal/config"
	"shopease/internal/server"
	"shopease/pkg/log"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "serve <service>",
		Short:     "Run one service (product, user, order, payment, notification)",
		Args:      cobra.ExactArgs(1),
		ValidArgs: config.Services,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			return serve(cmd.Context(), path, args[0])
		},
	}
}

func serve(ctx context.Context, path, service string) error {
	loader := config.NewLoader(path, service)
	cfg, err := loader.Load()
	if err != nil {
		return err
	}
	if err := log.Init(cfg.Log, service); err != nil {
		return err
	}

	switch cfg.Server.Mode {
	case gin.ReleaseMode, gin.TestMode:
		gin.SetMode(cfg.Server.Mode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	// only the log level is safe to change without a restart
	loader.Watch(func(next *config.Config) {
		log.SetLevel(next.Log.Level)
	})

	app, err := server.New(cfg, server.Deps{})
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.WithError(err).Warn("Shutdown finished with errors")
		}
	}()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return app.Run(ctx)
}
