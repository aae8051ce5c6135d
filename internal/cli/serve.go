package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"workflow/internal/server"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var addr, staticDir string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, cfg, logger, err := opts.open(cmd.Context(), os.Stdout, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if cfg.Auth.JWTSecret == "" {
				return errors.New("auth.jwt_secret must be set to serve the API")
			}
			if addr == "" {
				addr = cfg.Addr
			}
			if staticDir == "" {
				staticDir = cfg.StaticDir
			}

			srv := server.New(a.Services, logger, staticDir)
			httpServer := &http.Server{
				Addr:              addr,
				Handler:           srv.Engine(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			go func() {
				logger.Info("starting server", slog.String("addr", httpServer.Addr), slog.String("storage", cfg.Storage.Driver))
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server stopped unexpectedly", slog.String("error", err.Error()))
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := httpServer.Shutdown(ctx); err != nil {
				logger.Error("failed to shutdown server", slog.String("error", err.Error()))
			}
			logger.Info("server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (overrides config)")
	cmd.Flags().StringVar(&staticDir, "static", "", "directory with the built frontend (overrides config)")
	return cmd
}
