package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/fx-backtest/internal/models"
	"golang.org/x/sync/semaphore"
)

// ErrWorkerClosed is returned once Shutdown has been called
var ErrWorkerClosed = errors.New("worker is shut down")

// TaskFunc is the unit of work run by a Worker. It is always invoked, with an
// already cancelled context when the task was cancelled while waiting for a slot.
type TaskFunc func(ctx context.Context, task *Task) error

// Task is the handle of one background unit of work
type Task struct {
	ID string

	cancel   context.CancelFunc
	done     chan struct{}
	statuses chan models.JobStatus

	mu  sync.Mutex
	err error
}

// Done is closed when the task function has returned
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Status delivers every status the task reported, closed after Done
func (t *Task) Status() <-chan models.JobStatus {
	return t.statuses
}

// Err returns the task error once Done is closed
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Cancel cancels the task context
func (t *Task) Cancel() {
	t.cancel()
}

// Report publishes a status transition to Status listeners without blocking
func (t *Task) Report(status models.JobStatus) {
	select {
	case t.statuses <- status:
	default:
	}
}

// Worker runs tasks in the background with bounded concurrency
type Worker struct {
	sem     *semaphore.Weighted
	timeout time.Duration
	logger  *logrus.Logger

	base     context.Context
	stop     context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.Mutex
	shutdown bool
}

// NewWorker creates a worker running at most maxConcurrent tasks at once.
// timeout bounds each task from the moment it holds a slot, when positive.
func NewWorker(maxConcurrent int, timeout time.Duration, logger *logrus.Logger) *Worker {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if logger == nil {
		logger = logrus.New()
	}
	base, stop := context.WithCancel(context.Background())
	return &Worker{
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		timeout: timeout,
		logger:  logger,
		base:    base,
		stop:    stop,
	}
}

// Go schedules fn and returns immediately
func (w *Worker) Go(id string, fn TaskFunc) (*Task, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.shutdown {
		return nil, ErrWorkerClosed
	}

	ctx, cancel := context.WithCancel(w.base)

	task := &Task{
		ID:       id,
		cancel:   cancel,
		done:     make(chan struct{}),
		statuses: make(chan models.JobStatus, 4),
	}

	w.wg.Add(1)
	go w.run(ctx, task, fn)
	return task, nil
}

func (w *Worker) run(ctx context.Context, task *Task, fn TaskFunc) {
	defer w.wg.Done()
	defer task.cancel()
	defer close(task.statuses)
	defer close(task.done)

	if w.sem.Acquire(ctx, 1) == nil {
		defer w.sem.Release(1)
	}

	// the timeout covers run time only, not time spent queued for a slot
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	err := w.call(ctx, task, fn)

	task.mu.Lock()
	task.err = err
	task.mu.Unlock()
}

func (w *Worker) call(ctx context.Context, task *Task, fn TaskFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.WithFields(logrus.Fields{
				"task_id": task.ID,
				"panic":   r,
			}).Error("Recovered panic in background task")
			err = fmt.Errorf("panic in task %s: %v", task.ID, r)
		}
	}()
	return fn(ctx, task)
}

// Closed reports whether Shutdown has been called
func (w *Worker) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.shutdown
}

// Shutdown stops accepting tasks and waits for running ones.
// When ctx expires first, remaining tasks are cancelled and ctx.Err is returned.
func (w *Worker) Shutdown(ctx context.Context) error {
	w.mu.Lock()
	w.shutdown = true
	w.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		w.stop()
		return nil
	case <-ctx.Done():
		w.stop()
		<-finished
		return ctx.Err()
	}
}
