package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/crapthings/storyboard/internal/database"
	"github.com/crapthings/storyboard/internal/fal"
	"github.com/crapthings/storyboard/internal/handlers"
	"github.com/crapthings/storyboard/internal/logger"
	"github.com/crapthings/storyboard/internal/scheduler"
	"github.com/crapthings/storyboard/internal/server"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var rateLimit int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.config()
			if err != nil {
				return err
			}

			logger.Banner()
			handlers.AppVersion = version
			if cfg.Path != "" {
				logger.Info("Loaded config from %s", cfg.Path)
			}

			if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
				return fmt.Errorf("create data dir: %w", err)
			}
			lock := flock.New(filepath.Join(cfg.DataDir, "storyboard.lock"))
			ok, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire lock: %w", err)
			}
			if !ok {
				return errors.New("another storyboard server is already using " + cfg.DataDir)
			}
			defer lock.Unlock()

			db, err := database.New(cfg.DataDir)
			if err != nil {
				return fmt.Errorf("initialize database: %w", err)
			}
			defer db.Close()

			falClient := fal.NewClient(cfg.FalKey,
				fal.WithPollInterval(cfg.FalPollInterval()),
				fal.WithPublicURL(cfg.PublicURL),
			)
			if !falClient.IsConfigured() {
				logger.Warn("FAL_KEY is not set; generation requests will be rejected")
			}

			srv := server.New(server.Config{
				DB:             db,
				Provider:       falClient,
				KeySource:      cfg.FalKeySource,
				AllowedOrigins: cfg.Origins(),
				DataDir:        cfg.DataDir,
				Port:           cfg.Port,
				TaskRateLimit:  rateLimit,
				TrustProxy:     cfg.TrustProxy,
			})
			go srv.WSHub.Run()
			defer srv.WSHub.Stop()

			sched := scheduler.New(db, srv.WSHub, cfg.StaleAfter())
			// Assets left in flight by a previous run can never finish.
			if n, err := sched.SweepNow(cmd.Context()); err != nil {
				logger.Error("Startup sweep failed: %v", err)
			} else if n > 0 {
				logger.Info("Failed %d asset(s) left over from the last run", n)
			}
			if err := sched.Start(); err != nil {
				return fmt.Errorf("start scheduler: %w", err)
			}
			defer sched.Stop()

			addr := cfg.Addr()
			if cfg.BindAddress != "127.0.0.1" && cfg.BindAddress != "localhost" {
				logger.Warn("Binding to %s; the API is reachable from the network", cfg.BindAddress)
			}
			httpServer := &http.Server{
				Addr:        addr,
				Handler:     srv.Router,
				ReadTimeout: 15 * time.Second,
				// Generation requests hold the connection until the provider finishes.
				WriteTimeout: 0,
				IdleTimeout:  60 * time.Second,
			}

			done := make(chan os.Signal, 1)
			signal.Notify(done, os.Interrupt, syscall.SIGTERM)
			errCh := make(chan error, 1)

			go func() {
				logger.Listen(addr, cfg.PublicURL, cfg.Port)
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			select {
			case <-done:
			case err := <-errCh:
				return fmt.Errorf("server error: %w", err)
			}
			logger.Shutdown("Shutting down server...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown: %w", err)
			}

			logger.Bye()
			return nil
		},
	}

	cmd.Flags().IntVar(&rateLimit, "task-rate-limit", 30, "Max generation requests per client per minute (0 disables)")
	return cmd
}
