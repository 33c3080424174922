package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/fx-backtest/internal/models"
)

func TestSubmitFullYearScenario(t *testing.T) {
	provider := &fakeProvider{candles: weekdayCandles(day(2019, 1, 1), day(2021, 12, 31))}
	o, _ := newTestOrchestrator(t, provider, Options{})

	handle, err := o.Submit(context.Background(), request2020())
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusPending, handle.Status)
	assert.Equal(t, day(2020, 1, 1), handle.StartDate)
	assert.Equal(t, day(2020, 12, 31), handle.EndDate)
	assert.Equal(t, fixedNow, handle.CreatedAt)
	assert.Equal(t, 60, handle.EstimatedCompletionSeconds)
	_, err = uuid.Parse(handle.JobID)
	require.NoError(t, err)

	job := waitForTerminal(t, o, handle.JobID)
	require.Equal(t, models.JobStatusCompleted, job.Status, "error: %v", job.ErrorMessage)
	require.NotNil(t, job.Metrics)
	require.NotNil(t, job.CompletedAt)

	m, err := o.GetMetrics(context.Background(), handle.JobID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, m.TotalTrades, 0)
	assert.GreaterOrEqual(t, m.TotalReturn, -1.0)
	assert.LessOrEqual(t, m.TotalReturn, 5.0)
	assert.LessOrEqual(t, m.WinningTrades+m.LosingTrades, m.TotalTrades)
	assert.LessOrEqual(t, m.MaxDrawdown, 0.0)
	assert.Equal(t, m.MaxDrawdown == 0, m.CalmarRatio == nil)

	page, err := o.GetTrades(context.Background(), handle.JobID, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, handle.JobID, page.JobID)
	assert.LessOrEqual(t, len(page.Trades), 100)
	assert.Equal(t, m.TotalTrades, page.TotalTrades)
}

func TestSubmitRejectsInvalidRequests(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SubmitRequest)
		reason string
	}{
		{
			name:   "end before start",
			mutate: func(r *SubmitRequest) { r.EndDate = day(2019, 12, 1) },
			reason: ReasonDateRange,
		},
		{
			name:   "end equals start",
			mutate: func(r *SubmitRequest) { r.EndDate = r.StartDate },
			reason: ReasonDateRange,
		},
		{
			name:   "start before 1990",
			mutate: func(r *SubmitRequest) { r.StartDate = day(1989, 12, 31) },
			reason: ReasonDateRange,
		},
		{
			name:   "end in the future",
			mutate: func(r *SubmitRequest) { r.EndDate = fixedNow.AddDate(0, 0, 1) },
			reason: ReasonDateRange,
		},
		{
			name: "insufficient candles",
			mutate: func(r *SubmitRequest) {
				r.StartDate = day(2018, 1, 1)
			},
			reason: ReasonDataAvailability,
		},
		{
			name:   "zero capital",
			mutate: func(r *SubmitRequest) { r.InitialCapital = decimal.Zero },
			reason: ReasonInvalidRequest,
		},
		{
			name:   "missing model type",
			mutate: func(r *SubmitRequest) { r.ModelType = "" },
			reason: ReasonInvalidRequest,
		},
		{
			name:   "bad model config",
			mutate: func(r *SubmitRequest) { r.ModelConfig = map[string]any{"short_window": "fast"} },
			reason: ReasonInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &fakeProvider{candles: weekdayCandles(day(2019, 6, 1), day(2021, 12, 31))}
			o, repo := newTestOrchestrator(t, provider, Options{})

			req := request2020()
			tt.mutate(&req)

			handle, err := o.Submit(context.Background(), req)
			require.Error(t, err)
			assert.Nil(t, handle)
			assert.True(t, errors.Is(err, ErrValidation))

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.reason, vErr.Reason)
			assert.Zero(t, repo.creates.Load())
		})
	}
}

func TestSubmitProviderFailureIsNotValidation(t *testing.T) {
	o, repo := newTestOrchestrator(t, &failingCountProvider{}, Options{})

	_, err := o.Submit(context.Background(), request2020())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrValidation))
	assert.Zero(t, repo.creates.Load())
}

type failingCountProvider struct {
	fakeProvider
}

func (f *failingCountProvider) CountCandles(context.Context, string, time.Time, time.Time) (int, error) {
	return 0, errors.New("database unavailable")
}

func TestJobIDsAreUnique(t *testing.T) {
	provider := &fakeProvider{candles: weekdayCandles(day(2019, 1, 1), day(2021, 12, 31))}
	o, _ := newTestOrchestrator(t, provider, Options{MaxConcurrent: 4})

	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		handle, err := o.Submit(context.Background(), request2020())
		require.NoError(t, err)
		assert.False(t, seen[handle.JobID])
		seen[handle.JobID] = true
	}
	for id := range seen {
		assert.Equal(t, models.JobStatusCompleted, waitForTerminal(t, o, id).Status)
	}
}

func TestStatusTransitions(t *testing.T) {
	provider := &blockingProvider{
		fakeProvider: fakeProvider{candles: weekdayCandles(day(2019, 1, 1), day(2021, 12, 31))},
		release:      make(chan struct{}),
	}
	o, _ := newTestOrchestrator(t, provider, Options{})

	handle, err := o.Submit(context.Background(), request2020())
	require.NoError(t, err)

	task, ok := o.Task(handle.JobID)
	require.True(t, ok)

	require.Eventually(t, func() bool {
		job, err := o.GetResults(context.Background(), handle.JobID)
		return err == nil && job.Status == models.JobStatusRunning
	}, 5*time.Second, 5*time.Millisecond)

	_, err = o.GetMetrics(context.Background(), handle.JobID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = o.GetTrades(context.Background(), handle.JobID, 1, 10)
	assert.ErrorIs(t, err, models.ErrNotFound)

	close(provider.release)
	<-task.Done()
	require.NoError(t, task.Err())

	var statuses []models.JobStatus
	for status := range task.Status() {
		statuses = append(statuses, status)
	}
	assert.Equal(t, []models.JobStatus{models.JobStatusRunning, models.JobStatusCompleted}, statuses)

	_, ok = o.Task(handle.JobID)
	assert.False(t, ok)
}

func TestReadersNeverSeePartialResults(t *testing.T) {
	provider := &blockingProvider{
		fakeProvider: fakeProvider{candles: weekdayCandles(day(2019, 1, 1), day(2021, 12, 31))},
		release:      make(chan struct{}),
	}
	o, _ := newTestOrchestrator(t, provider, Options{})

	handle, err := o.Submit(context.Background(), request2020())
	require.NoError(t, err)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				job, err := o.GetResults(context.Background(), handle.JobID)
				if err != nil {
					t.Errorf("unexpected error: %v", err)
					return
				}
				if (job.Status == models.JobStatusCompleted) != (job.Metrics != nil) {
					t.Errorf("status %s with metrics %v", job.Status, job.Metrics != nil)
					return
				}
			}
		}()
	}

	close(provider.release)
	waitForTerminal(t, o, handle.JobID)
	close(stop)
	wg.Wait()
}

func TestPipelineFailures(t *testing.T) {
	candles := weekdayCandles(day(2019, 1, 1), day(2021, 12, 31))

	tests := []struct {
		name     string
		provider interface {
			GetCandles(context.Context, string, time.Time, time.Time) ([]models.Candle, error)
			CountCandles(context.Context, string, time.Time, time.Time) (int, error)
			Name() string
		}
		wantMsg string
	}{
		{
			name:     "provider error",
			provider: &fakeProvider{candles: candles, err: errors.New("upstream 503")},
			wantMsg:  "upstream 503",
		},
		{
			name:     "panic in pipeline",
			provider: &panickingProvider{fakeProvider: fakeProvider{candles: candles}},
			wantMsg:  "corrupt candle stream",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, _ := newTestOrchestrator(t, tt.provider, Options{})

			handle, err := o.Submit(context.Background(), request2020())
			require.NoError(t, err)

			job := waitForTerminal(t, o, handle.JobID)
			assert.Equal(t, models.JobStatusFailed, job.Status)
			require.NotNil(t, job.ErrorMessage)
			assert.Contains(t, *job.ErrorMessage, tt.wantMsg)
			assert.Nil(t, job.Metrics)

			_, err = o.GetMetrics(context.Background(), handle.JobID)
			assert.ErrorIs(t, err, models.ErrNotFound)
		})
	}
}

func TestCancelAndTimeout(t *testing.T) {
	newBlocking := func() *blockingProvider {
		return &blockingProvider{
			fakeProvider: fakeProvider{candles: weekdayCandles(day(2019, 1, 1), day(2021, 12, 31))},
			release:      make(chan struct{}),
		}
	}

	t.Run("cancel", func(t *testing.T) {
		o, _ := newTestOrchestrator(t, newBlocking(), Options{})
		handle, err := o.Submit(context.Background(), request2020())
		require.NoError(t, err)

		require.NoError(t, o.Cancel(handle.JobID))

		job := waitForTerminal(t, o, handle.JobID)
		assert.Equal(t, models.JobStatusFailed, job.Status)
		require.NotNil(t, job.ErrorMessage)
		assert.Contains(t, *job.ErrorMessage, "job cancelled")

		assert.Eventually(t, func() bool {
			return errors.Is(o.Cancel(handle.JobID), models.ErrNotFound)
		}, 5*time.Second, 5*time.Millisecond)
	})

	t.Run("timeout", func(t *testing.T) {
		o, _ := newTestOrchestrator(t, newBlocking(), Options{Timeout: 20 * time.Millisecond})
		handle, err := o.Submit(context.Background(), request2020())
		require.NoError(t, err)

		job := waitForTerminal(t, o, handle.JobID)
		assert.Equal(t, models.JobStatusFailed, job.Status)
		require.NotNil(t, job.ErrorMessage)
		assert.Contains(t, *job.ErrorMessage, "timed out")
	})
}

func TestShutdownWaitsForRunningJobs(t *testing.T) {
	provider := &blockingProvider{
		fakeProvider: fakeProvider{candles: weekdayCandles(day(2019, 1, 1), day(2021, 12, 31))},
		release:      make(chan struct{}),
	}
	o, _ := newTestOrchestrator(t, provider, Options{})

	handle, err := o.Submit(context.Background(), request2020())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- o.Shutdown(context.Background())
	}()

	select {
	case <-done:
		t.Fatal("shutdown returned before the job finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(provider.release)
	require.NoError(t, <-done)

	job, err := o.GetResults(context.Background(), handle.JobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, job.Status)

	_, err = o.Submit(context.Background(), request2020())
	assert.ErrorIs(t, err, ErrWorkerClosed)
}

func TestQueriesForUnknownJobs(t *testing.T) {
	o, repo := newTestOrchestrator(t, &fakeProvider{}, Options{})
	ctx := context.Background()

	for _, id := range []string{uuid.NewString(), "not-a-uuid"} {
		_, err := o.GetResults(ctx, id)
		assert.ErrorIs(t, err, models.ErrNotFound)
		_, err = o.GetMetrics(ctx, id)
		assert.ErrorIs(t, err, models.ErrNotFound)
		_, err = o.GetTrades(ctx, id, 1, 100)
		assert.ErrorIs(t, err, models.ErrNotFound)
	}
	assert.Zero(t, repo.creates.Load())
}

func TestGetTradesValidatesPaging(t *testing.T) {
	o, _ := newTestOrchestrator(t, &fakeProvider{}, Options{})

	for _, tc := range []struct{ page, size int }{{0, 100}, {1, 0}, {1, 1001}, {-1, 10}} {
		_, err := o.GetTrades(context.Background(), uuid.NewString(), tc.page, tc.size)
		assert.ErrorIs(t, err, ErrValidation, "page=%d size=%d", tc.page, tc.size)
	}
}

func TestGetTradesPaginationRoundTrip(t *testing.T) {
	provider := &fakeProvider{candles: weekdayCandles(day(2019, 1, 1), day(2021, 12, 31))}
	o, repo := newTestOrchestrator(t, provider, Options{})

	handle, err := o.Submit(context.Background(), request2020())
	require.NoError(t, err)
	require.Equal(t, models.JobStatusCompleted, waitForTerminal(t, o, handle.JobID).Status)

	log, err := repo.GetTradeLog(context.Background(), handle.JobID)
	require.NoError(t, err)
	require.NotEmpty(t, log.Trades)

	const pageSize = 7
	first, err := o.GetTrades(context.Background(), handle.JobID, 1, pageSize)
	require.NoError(t, err)
	assert.Equal(t, (len(log.Trades)+pageSize-1)/pageSize, first.TotalPages)

	var all []models.Trade
	for page := 1; page <= first.TotalPages; page++ {
		p, err := o.GetTrades(context.Background(), handle.JobID, page, pageSize)
		require.NoError(t, err)
		all = append(all, p.Trades...)
	}
	assert.Equal(t, log.Trades, all)

	beyond, err := o.GetTrades(context.Background(), handle.JobID, first.TotalPages+1, pageSize)
	require.NoError(t, err)
	assert.Empty(t, beyond.Trades)
}

func TestEstimateCompletionSeconds(t *testing.T) {
	assert.Equal(t, 60, EstimateCompletionSeconds(day(2020, 1, 1), day(2020, 2, 1)))
	assert.Equal(t, 60, EstimateCompletionSeconds(day(2020, 1, 1), day(2020, 12, 31)))
	assert.Equal(t, 300, EstimateCompletionSeconds(day(2015, 1, 1), day(2020, 1, 2)))
}
