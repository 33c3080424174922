package repository

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yourusername/fx-backtest/internal/database"
	"github.com/yourusername/fx-backtest/internal/models"
)

const candlesTable = "fx_candles"

// PostgresCandleRepository implements CandleRepository for PostgreSQL
type PostgresCandleRepository struct {
	db *database.DB
}

// NewPostgresCandleRepository creates a new candle repository
func NewPostgresCandleRepository(db *database.DB) *PostgresCandleRepository {
	return &PostgresCandleRepository{db: db}
}

// GetByDateRange returns candles for pair between start and end inclusive, ordered by date
func (r *PostgresCandleRepository) GetByDateRange(ctx context.Context, pair string, start, end time.Time) ([]models.Candle, error) {
	query, args, err := pgBuilder.
		Select("pair", "date", "open", "high", "low", "close", "volume").
		From(candlesTable).
		Where(sq.Eq{"pair": pair}).
		Where(sq.GtOrEq{"date": start}).
		Where(sq.LtOrEq{"date": end}).
		OrderBy("date ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select: %w", err)
	}

	rows, err := r.db.GetPool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query candles: %w", err)
	}
	defer rows.Close()

	var candles []models.Candle
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Pair, &c.Date, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan candle: %w", err)
		}
		candles = append(candles, c)
	}
	return candles, rows.Err()
}

// CountByDateRange counts the candles available for pair between start and end inclusive
func (r *PostgresCandleRepository) CountByDateRange(ctx context.Context, pair string, start, end time.Time) (int, error) {
	query, args, err := pgBuilder.Select("COUNT(*)").
		From(candlesTable).
		Where(sq.Eq{"pair": pair}).
		Where(sq.GtOrEq{"date": start}).
		Where(sq.LtOrEq{"date": end}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count: %w", err)
	}

	var count int
	if err := r.db.GetPool().QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count candles: %w", err)
	}
	return count, nil
}

// UpsertBatch inserts candles, replacing existing rows for the same pair and date
func (r *PostgresCandleRepository) UpsertBatch(ctx context.Context, candles []models.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, c := range candles {
			query, args, err := pgBuilder.Insert(candlesTable).
				Columns("pair", "date", "open", "high", "low", "close", "volume").
				Values(c.Pair, c.Date, c.Open, c.High, c.Low, c.Close, c.Volume).
				Suffix("ON CONFLICT (pair, date) DO UPDATE SET open = EXCLUDED.open, high = EXCLUDED.high, " +
					"low = EXCLUDED.low, close = EXCLUDED.close, volume = EXCLUDED.volume").
				ToSql()
			if err != nil {
				return fmt.Errorf("failed to build upsert: %w", err)
			}
			batch.Queue(query, args...)
		}

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to upsert candles: %w", err)
		}
		return nil
	})
}
