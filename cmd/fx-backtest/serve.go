package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourusername/fx-backtest/internal/health"
	"github.com/yourusername/fx-backtest/internal/metrics"
	"github.com/yourusername/fx-backtest/internal/scheduler"
)

const shutdownTimeout = 60 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the job orchestrator with health checks and scheduled backtests",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	cfg := deps.cfg
	log := deps.logger

	orchestrator, err := deps.newOrchestrator()
	if err != nil {
		return err
	}

	healthCfg := health.Config{
		ServiceName: cfg.App.Name,
		Version:     Version,
		Port:        cfg.Health.Port,
		Logger:      log,
		Store:       deps.repos.Jobs,
	}
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		healthCfg.MetricsPath = cfg.Metrics.Path
		healthCfg.MetricsHandler = metrics.Handler()
	}
	healthServer := health.NewServer(healthCfg)
	healthServer.Start(ctx)

	sched := scheduler.NewScheduler(orchestrator, log)
	for _, sc := range cfg.Schedules {
		if err := sched.ScheduleBacktest(sc); err != nil {
			return fmt.Errorf("failed to register schedule: %w", err)
		}
	}
	if len(cfg.Schedules) > 0 {
		if err := sched.Start(); err != nil {
			return err
		}
	}

	healthServer.SetReady(true)
	log.WithField("schedules", len(cfg.Schedules)).Info("fx-backtest service started")

	<-ctx.Done()
	log.Info("Shutdown signal received")
	healthServer.SetReady(false)
	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := orchestrator.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("In-flight backtests were cancelled")
	}
	return nil
}
