package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/yourusername/fx-backtest/internal/backtest"
	"github.com/yourusername/fx-backtest/internal/jobs"
	"github.com/yourusername/fx-backtest/internal/models"
)

func newRunCmd() *cobra.Command {
	var (
		startDate   string
		endDate     string
		capital     float64
		modelType   string
		modelConfig map[string]string
		exportPath  string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single backtest and print its report",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := time.Parse(time.DateOnly, startDate)
			if err != nil {
				return fmt.Errorf("invalid start date: %w", err)
			}
			end, err := time.Parse(time.DateOnly, endDate)
			if err != nil {
				return fmt.Errorf("invalid end date: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runBacktest(ctx, jobs.SubmitRequest{
				StartDate:      start,
				EndDate:        end,
				InitialCapital: decimal.NewFromFloat(capital),
				ModelType:      modelType,
				ModelConfig:    parseModelConfig(modelConfig),
			}, exportPath)
		},
	}

	cmd.Flags().StringVar(&startDate, "start", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&endDate, "end", "", "End date (YYYY-MM-DD)")
	cmd.Flags().Float64Var(&capital, "capital", 1_000_000, "Initial capital")
	cmd.Flags().StringVar(&modelType, "model", "ensemble", "Signal model identifier")
	cmd.Flags().StringToStringVar(&modelConfig, "model-config", nil, "Model overrides, e.g. short_window=10,long_window=30")
	cmd.Flags().StringVar(&exportPath, "export", "", "Write the trade log to this parquet file")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")

	return cmd
}

func runBacktest(ctx context.Context, req jobs.SubmitRequest, exportPath string) error {
	orchestrator, err := deps.newOrchestrator()
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = orchestrator.Shutdown(shutdownCtx)
	}()

	handle, err := orchestrator.Submit(ctx, req)
	if err != nil {
		return err
	}
	deps.logger.WithField("estimated_seconds", handle.EstimatedCompletionSeconds).Info("Backtest submitted")

	if task, ok := orchestrator.Task(handle.JobID); ok {
		select {
		case <-task.Done():
		case <-ctx.Done():
			_ = orchestrator.Cancel(handle.JobID)
			<-task.Done()
		}
	}

	job, err := orchestrator.GetResults(context.Background(), handle.JobID)
	if err != nil {
		return err
	}
	fmt.Print(backtest.GenerateConsoleReport(job))

	if job.Status != models.JobStatusCompleted {
		return fmt.Errorf("backtest %s did not complete", job.ID)
	}

	if exportPath != "" {
		log, err := deps.repos.Jobs.GetTradeLog(context.Background(), job.ID)
		if err != nil {
			return err
		}
		if err := backtest.ExportTradesParquet(job.ID, log.Trades, exportPath); err != nil {
			return err
		}
		deps.logger.WithField("path", exportPath).Info("Trade log exported")
	}
	return nil
}

// parseModelConfig converts flag values to numbers where they parse as such
func parseModelConfig(raw map[string]string) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]any, len(raw))
	for key, value := range raw {
		if f, err := cast.ToFloat64E(value); err == nil {
			out[key] = f
			continue
		}
		out[key] = value
	}
	return out
}
