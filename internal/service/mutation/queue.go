// Package mutation applies writes optimistically: the local change is visible
// at once and the remote write runs on a background worker, rolled back when
// it fails.
package mutation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrQueueFull is returned when the pending buffer is exhausted.
	ErrQueueFull = errors.New("mutation queue is full")

	// ErrQueueClosed is returned after Close.
	ErrQueueClosed = errors.New("mutation queue is closed")
)

const (
	defaultBuffer  = 64
	defaultTimeout = 30 * time.Second
)

// Command is one optimistic mutation. Apply and Rollback may be nil.
type Command struct {
	Name     string
	Apply    func()
	Remote   func(ctx context.Context) error
	Rollback func()
}

type job struct {
	ctx    context.Context
	cmd    Command
	result chan error
}

// Queue runs the remote half of commands one at a time, in submit order.
type Queue struct {
	jobs    chan job
	timeout time.Duration
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// Option configures a Queue.
type Option func(*Queue)

// WithBuffer sets how many commands may wait for the worker.
func WithBuffer(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.jobs = make(chan job, n)
		}
	}
}

// WithTimeout bounds each remote call.
func WithTimeout(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// NewQueue starts a queue and its worker.
func NewQueue(logger *zap.Logger, opts ...Option) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}

	q := &Queue{
		jobs:    make(chan job, defaultBuffer),
		timeout: defaultTimeout,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(q)
	}

	q.wg.Add(1)
	go q.worker()
	return q
}

// Submit applies cmd locally and schedules its remote call. The returned
// channel receives the remote outcome (nil on success) and is then closed.
// The remote call outlives ctx cancellation but keeps its values.
func (q *Queue) Submit(ctx context.Context, cmd Command) <-chan error {
	result := make(chan error, 1)

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		result <- fmt.Errorf("%s: %w", cmd.Name, ErrQueueClosed)
		close(result)
		return result
	}

	if cmd.Apply != nil {
		cmd.Apply()
	}

	select {
	case q.jobs <- job{ctx: context.WithoutCancel(ctx), cmd: cmd, result: result}:
	default:
		q.rollback(cmd)
		result <- fmt.Errorf("%s: %w", cmd.Name, ErrQueueFull)
		close(result)
	}
	return result
}

// Do submits cmd and waits for the remote outcome.
func (q *Queue) Do(ctx context.Context, cmd Command) error {
	select {
	case err := <-q.Submit(ctx, cmd):
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting commands and waits for pending ones to finish.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	q.wg.Wait()
}

func (q *Queue) worker() {
	defer q.wg.Done()

	for j := range q.jobs {
		j.result <- q.run(j)
		close(j.result)
	}
}

func (q *Queue) run(j job) error {
	if j.cmd.Remote == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(j.ctx, q.timeout)
	defer cancel()

	start := time.Now()
	err := j.cmd.Remote(ctx)
	if err == nil {
		q.logger.Debug("mutation applied",
			zap.String("command", j.cmd.Name),
			zap.Duration("took", time.Since(start)),
		)
		return nil
	}

	q.rollback(j.cmd)
	q.logger.Warn("mutation failed, rolled back",
		zap.String("command", j.cmd.Name),
		zap.Error(err),
	)
	return fmt.Errorf("%s: %w", j.cmd.Name, err)
}

func (q *Queue) rollback(cmd Command) {
	if cmd.Rollback != nil {
		cmd.Rollback()
	}
}
