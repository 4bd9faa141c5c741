package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"trade-memory/internal/api"
	"trade-memory/internal/pipeline"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and run the reflection schedule",
	Long: `Serve the HTTP API. When api.schedule_interval is set, the reflection
cycle (daily report, weekly and monthly closes, discovery, adjustment
proposals) also runs in the background.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		var sched *pipeline.Scheduler
		if a.cfg.API.ScheduleInterval > 0 {
			sched = pipeline.NewScheduler(a.svc, a.cfg.API.ScheduleInterval, a.logger.Named("scheduler"))
		}

		server, err := api.NewServer(a.svc, a.logger.Named("http"), a.metrics, sched, a.cfg.API.Addr)
		if err != nil {
			return err
		}

		errCh := make(chan error, 2)
		go func() {
			if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
		if sched != nil {
			go func() {
				if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					errCh <- err
				}
			}()
		}

		select {
		case <-ctx.Done():
			a.logger.Info("shutdown signal received")
		case err = <-errCh:
			a.logger.Error("server stopped", zap.Error(err))
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if serr := server.Shutdown(shutdownCtx); serr != nil && err == nil {
			err = serr
		}
		return err
	},
}
