package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"securityapi/app"
	"securityapi/internal/config"
	"securityapi/internal/db"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	serve := newServeCmd()

	root := &cobra.Command{
		Use:          "securityapi",
		Short:        "Posting API with token authentication and login throttling",
		SilenceUsage: true,
		RunE:         serve.RunE,
	}
	root.AddCommand(serve, newMigrateCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load(config.Options{LoadDotEnv: true})
			if err != nil {
				return err
			}

			runtime, err := app.Build(ctx, cfg)
			if err != nil {
				return err
			}
			defer runtime.Close()

			server := &http.Server{
				Addr:              fmt.Sprintf(":%s", cfg.Port),
				Handler:           runtime.Handler,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				runtime.Logger.Info("server_start", map[string]any{"addr": server.Addr})
				errCh <- server.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					runtime.Logger.Error("server_failed", map[string]any{"error": err.Error()})
					return err
				}
				return nil
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			runtime.Logger.Info("server_stop", nil)
			return server.Shutdown(shutdownCtx)
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(config.Options{LoadDotEnv: true})
			if err != nil {
				return err
			}

			database, err := app.OpenDatabase(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer database.Close()

			return db.RunMigrations(cmd.Context(), database)
		},
	}
}
