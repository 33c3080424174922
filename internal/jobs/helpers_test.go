package jobs

import (
	"context"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/fx-backtest/internal/backtest"
	"github.com/yourusername/fx-backtest/internal/models"
	"github.com/yourusername/fx-backtest/internal/repository"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time {
	return fixedNow
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// weekdayCandles returns a wavy weekday series covering [start, end]
func weekdayCandles(start, end time.Time) []models.Candle {
	var candles []models.Candle
	i := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		px := decimal.NewFromFloat(108 + 4*math.Sin(float64(i)/9) + 0.02*float64(i)).Round(3)
		candles = append(candles, models.Candle{Pair: "USD/JPY", Date: d, Open: px, High: px, Low: px, Close: px})
		i++
	}
	return candles
}

type fakeProvider struct {
	candles []models.Candle
	err     error
}

func (f *fakeProvider) GetCandles(_ context.Context, _ string, start, end time.Time) ([]models.Candle, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Candle
	for _, c := range f.candles {
		if !c.Date.Before(start) && !c.Date.After(end) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeProvider) CountCandles(ctx context.Context, pair string, start, end time.Time) (int, error) {
	var n int
	for _, c := range f.candles {
		if !c.Date.Before(start) && !c.Date.After(end) {
			n++
		}
	}
	return n, nil
}

func (f *fakeProvider) Name() string {
	return "fake"
}

// blockingProvider holds GetCandles until release is closed or ctx ends
type blockingProvider struct {
	fakeProvider
	release chan struct{}
}

func (b *blockingProvider) GetCandles(ctx context.Context, pair string, start, end time.Time) ([]models.Candle, error) {
	select {
	case <-b.release:
		return b.fakeProvider.GetCandles(ctx, pair, start, end)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type panickingProvider struct {
	fakeProvider
}

func (p *panickingProvider) GetCandles(context.Context, string, time.Time, time.Time) ([]models.Candle, error) {
	panic("corrupt candle stream")
}

// countingRepository records how many jobs were created
type countingRepository struct {
	repository.JobRepository
	creates atomic.Int32
}

func (r *countingRepository) Create(ctx context.Context, job *models.Job) error {
	r.creates.Add(1)
	return r.JobRepository.Create(ctx, job)
}

func newTestOrchestrator(t *testing.T, provider interface {
	GetCandles(context.Context, string, time.Time, time.Time) ([]models.Candle, error)
	CountCandles(context.Context, string, time.Time, time.Time) (int, error)
	Name() string
}, opts Options) (*Orchestrator, *countingRepository) {
	t.Helper()
	repo := &countingRepository{JobRepository: repository.NewMemoryJobRepository()}
	if opts.Clock == nil {
		opts.Clock = fixedClock
	}
	if opts.MaxConcurrent == 0 {
		opts.MaxConcurrent = 2
	}
	o, err := NewOrchestrator(repo, provider, backtest.DefaultParams(), opts, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = o.Shutdown(ctx)
	})
	return o, repo
}

func request2020() SubmitRequest {
	return SubmitRequest{
		StartDate:      day(2020, 1, 1),
		EndDate:        day(2020, 12, 31),
		InitialCapital: decimal.NewFromInt(1_000_000),
		ModelType:      "ensemble",
	}
}

func waitForTerminal(t *testing.T, o *Orchestrator, id string) *models.Job {
	t.Helper()
	var job *models.Job
	require.Eventually(t, func() bool {
		var err error
		job, err = o.GetResults(context.Background(), id)
		require.NoError(t, err)
		return job.Status.IsTerminal()
	}, 10*time.Second, 5*time.Millisecond)
	return job
}
