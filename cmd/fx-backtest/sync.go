package main

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/fx-backtest/internal/datasource"
	"github.com/yourusername/fx-backtest/internal/repository"
)

func newSyncCmd() *cobra.Command {
	var (
		pair       string
		startDate  string
		endDate    string
		target     string
		parquetDir string
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Copy candles from the configured price source into parquet files or postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := time.Parse(time.DateOnly, startDate)
			if err != nil {
				return fmt.Errorf("invalid start date: %w", err)
			}
			end, err := time.Parse(time.DateOnly, endDate)
			if err != nil {
				return fmt.Errorf("invalid end date: %w", err)
			}
			if pair == "" {
				pair = deps.cfg.Backtest.Pair
			}

			candles, err := deps.provider.GetCandles(cmd.Context(), pair, start, end)
			if err != nil {
				return fmt.Errorf("failed to read candles: %w", err)
			}

			switch target {
			case "parquet":
				if parquetDir == "" {
					parquetDir = deps.cfg.PriceSource.ParquetDir
				}
				err = datasource.NewParquetPriceProvider(parquetDir).WriteCandles(pair, candles)
			case "postgres":
				if err := deps.connectDatabase(cmd.Context()); err != nil {
					return err
				}
				err = repository.NewPostgresCandleRepository(deps.db).UpsertBatch(cmd.Context(), candles)
			default:
				return fmt.Errorf("unsupported target %q", target)
			}
			if err != nil {
				return fmt.Errorf("failed to write candles: %w", err)
			}

			deps.logger.WithFields(logrus.Fields{
				"pair":    pair,
				"candles": len(candles),
				"source":  deps.provider.Name(),
				"target":  target,
			}).Info("Candles synchronized")
			return nil
		},
	}

	cmd.Flags().StringVar(&pair, "pair", "", "Currency pair (defaults to backtest.pair)")
	cmd.Flags().StringVar(&startDate, "start", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&endDate, "end", "", "End date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&target, "target", "parquet", "Destination: parquet or postgres")
	cmd.Flags().StringVar(&parquetDir, "parquet-dir", "", "Parquet directory (defaults to price_source.parquet_dir)")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")

	return cmd
}
