package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/hyperjump/kensaku/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServerCommand(a *app) *cobra.Command {
	var host string
	var port int
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if host != "" {
				a.cfg.Server.Host = host
			}
			if port != 0 {
				a.cfg.Server.Port = port
			}
			return runServer(cmd.Context(), a)
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "listen host (overrides config)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides config)")
	return cmd
}

func runServer(ctx context.Context, a *app) error {
	logger := a.logger
	logger.Info("config loaded",
		zap.String("config_path", a.resolvedPath),
		zap.Bool("debug", a.cfg.Debug || a.debug))

	components, err := NewComponents(a.cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize components", zap.Error(err))
		return err
	}
	defer components.Close()

	srv := server.NewServer(components.Collections, components.Indexer, components.Engine, a.cfg, logger)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", zap.Error(err))
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}
