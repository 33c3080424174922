// Package main provides the fx-backtest command line tool.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/fx-backtest/internal/backtest"
	"github.com/yourusername/fx-backtest/internal/config"
	"github.com/yourusername/fx-backtest/internal/database"
	"github.com/yourusername/fx-backtest/internal/datasource"
	"github.com/yourusername/fx-backtest/internal/jobs"
	"github.com/yourusername/fx-backtest/internal/logger"
	"github.com/yourusername/fx-backtest/internal/repository"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
)

var configFile string

// app holds the dependencies shared by all subcommands
type app struct {
	cfg      *config.Config
	logger   *logrus.Logger
	db       *database.DB
	repos    *repository.Repositories
	provider datasource.PriceProvider
}

var deps = &app{}

var rootCmd = &cobra.Command{
	Use:   "fx-backtest",
	Short: "Backtest FX trading signals against historical candles",
	Long:  `Runs moving-average signal backtests over daily FX candles and reports return, risk and trade statistics.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := deps.loadConfig(cmd.Context()); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := deps.setup(cmd.Context()); err != nil {
			return fmt.Errorf("failed to setup dependencies: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		deps.close()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.Version = fmt.Sprintf("%s (%s)", Version, GitCommit)
	rootCmd.AddCommand(newRunCmd(), newServeCmd(), newSyncCmd())
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func (a *app) loadConfig(ctx context.Context) error {
	cfg, err := config.LoadWithDefaults(configFile)
	if err != nil {
		return err
	}

	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			return fmt.Errorf("AWS_REGION and AWS_SECRET_NAME environment variables must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(ctx, cfg, region, secretName); err != nil {
			return fmt.Errorf("failed to load secrets: %w", err)
		}
	}

	if err := config.Validate(cfg); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

func (a *app) setup(ctx context.Context) error {
	a.logger = logger.NewLogger(a.cfg.App.LogLevel, a.cfg.App.Environment)

	if a.cfg.UsesPostgres() {
		if err := a.connectDatabase(ctx); err != nil {
			return err
		}
	}

	repos, err := repository.NewRepositories(ctx, a.cfg, a.db)
	if err != nil {
		return fmt.Errorf("failed to initialize repositories: %w", err)
	}
	a.repos = repos

	provider, err := datasource.NewPriceProvider(a.cfg.PriceSource, repos.Candles, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create price provider: %w", err)
	}
	a.provider = provider

	a.logger.WithFields(logrus.Fields{
		"store":    a.cfg.Store.Driver,
		"provider": provider.Name(),
		"version":  Version,
	}).Debug("Dependencies initialized")
	return nil
}

func (a *app) connectDatabase(ctx context.Context) error {
	if a.db != nil {
		return nil
	}
	db, err := database.Initialize(ctx, a.cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	a.db = db
	return nil
}

func (a *app) newOrchestrator() (*jobs.Orchestrator, error) {
	return jobs.NewOrchestrator(a.repos.Jobs, a.provider, backtest.FromConfig(&a.cfg.Backtest), jobs.Options{
		MaxConcurrent: a.cfg.Jobs.MaxConcurrent,
		Timeout:       a.cfg.JobTimeout(),
	}, a.logger)
}

func (a *app) close() {
	if a.repos != nil {
		a.repos.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
