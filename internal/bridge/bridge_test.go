package bridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinelid/backend/internal/logging"
)

func newStarted(t *testing.T, timeout time.Duration) *Bridge {
	t.Helper()
	b := New(timeout, logging.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	b.Start(ctx)
	return b
}

func TestSubmitReturnsResult(t *testing.T) {
	b := newStarted(t, time.Second)

	got, err := b.Submit(context.Background(), "echo", func(ctx context.Context) (interface{}, error) {
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestSubmitPropagatesTaskError(t *testing.T) {
	b := newStarted(t, time.Second)
	boom := errors.New("boom")

	_, err := b.Submit(context.Background(), "fail", func(ctx context.Context) (interface{}, error) {
		return nil, boom
	})

	assert.ErrorIs(t, err, boom)
}

func TestSubmitTimesOutWithoutCancellingTask(t *testing.T) {
	b := newStarted(t, 50*time.Millisecond)
	done := make(chan struct{})

	_, err := b.Submit(context.Background(), "slow", func(ctx context.Context) (interface{}, error) {
		time.Sleep(200 * time.Millisecond)
		close(done)
		return "late", nil
	})

	assert.ErrorIs(t, err, ErrTimeout)

	// The task keeps running and completes after the caller gave up.
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task was cancelled by the timeout")
	}
}

func TestPanicDoesNotKillWorker(t *testing.T) {
	b := newStarted(t, time.Second)

	_, err := b.Submit(context.Background(), "panics", func(ctx context.Context) (interface{}, error) {
		panic("engine exploded")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")

	// Worker survives and serves the next task.
	got, err := b.Submit(context.Background(), "after", func(ctx context.Context) (interface{}, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestTasksRunSerialized(t *testing.T) {
	b := newStarted(t, time.Second)

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		_, err := b.Submit(context.Background(), "ordered", func(ctx context.Context) (interface{}, error) {
			order = append(order, i)
			return nil, nil
		})
		require.NoError(t, err)
	}

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestSubmitHonorsCallerContext(t *testing.T) {
	b := newStarted(t, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := b.Submit(ctx, "blocked", func(ctx context.Context) (interface{}, error) {
		time.Sleep(500 * time.Millisecond)
		return nil, nil
	})

	assert.ErrorIs(t, err, context.Canceled)
}
