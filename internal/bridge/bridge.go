package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/sentinelid/backend/internal/logging"
)

// ErrTimeout is returned when a submitted task does not complete within
// the call timeout. The task itself is not cancelled.
var ErrTimeout = errors.New("bridge: call timed out")

// Task is a unit of work executed on the engine worker. The context is
// the worker's context, not the submitter's: a submitter giving up does
// not cancel the task.
type Task func(ctx context.Context) (interface{}, error)

type job struct {
	label  string
	fn     Task
	result chan outcome
}

type outcome struct {
	value interface{}
	err   error
}

// Bridge owns the engine worker and its task queue.
type Bridge struct {
	timeout time.Duration
	jobs    chan *job
	log     *logging.Logger
	running atomic.Bool
}

// New creates a bridge with the given call timeout.
func New(timeout time.Duration, log *logging.Logger) *Bridge {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Bridge{
		timeout: timeout,
		jobs:    make(chan *job, 64),
		log:     log.Named("bridge"),
	}
}

// Start launches the worker goroutine. It must be called exactly once
// before any Submit; the worker runs until ctx is cancelled.
func (b *Bridge) Start(ctx context.Context) {
	if !b.running.CompareAndSwap(false, true) {
		panic("bridge: started twice")
	}
	go b.work(ctx)
}

// Submit enqueues a task and blocks until it completes, the call timeout
// elapses, or the caller's context is done. On timeout the task is left
// running and its eventual result is discarded.
func (b *Bridge) Submit(ctx context.Context, label string, fn Task) (interface{}, error) {
	if !b.running.Load() {
		// Worker availability is a startup precondition, not a
		// per-call recoverable error.
		panic("bridge: Submit before Start")
	}

	j := &job{
		label:  label,
		fn:     fn,
		result: make(chan outcome, 1),
	}

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case b.jobs <- j:
	case <-timer.C:
		b.log.Warn("task queue full past deadline", zap.String("task", label))
		return nil, fmt.Errorf("%w: %s", ErrTimeout, label)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case out := <-j.result:
		return out.value, out.err
	case <-timer.C:
		b.log.Warn("task exceeded call timeout, outcome unknown",
			zap.String("task", label),
			zap.Duration("timeout", b.timeout))
		return nil, fmt.Errorf("%w: %s", ErrTimeout, label)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *Bridge) work(ctx context.Context) {
	b.log.Info("engine worker started")
	for {
		select {
		case <-ctx.Done():
			b.log.Info("engine worker stopped")
			return
		case j := <-b.jobs:
			value, err := b.run(ctx, j)
			// Buffered channel: a timed-out submitter is gone and
			// the result is simply dropped.
			j.result <- outcome{value: value, err: err}
		}
	}
}

// run executes one task, converting panics into errors so a broken task
// cannot take down the shared worker.
func (b *Bridge) run(ctx context.Context, j *job) (value interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("task panicked",
				zap.String("task", j.label),
				zap.Any("panic", r))
			err = fmt.Errorf("bridge: task %s panicked: %v", j.label, r)
		}
	}()
	return j.fn(ctx)
}
