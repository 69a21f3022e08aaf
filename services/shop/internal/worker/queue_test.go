package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/jewelry-shop/pkg/logger"
)

func TestQueue_RunsTasksAndReportsErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := NewQueue(Config{Concurrency: 2, QueueSize: 8, TaskTimeout: time.Second}, zerolog.Nop())
	q.Start(ctx)

	var done atomic.Int32
	boom := errors.New("boom")

	_, err := q.Enqueue(context.Background(), "ok", func(ctx context.Context) error {
		done.Add(1)
		return nil
	})
	require.NoError(t, err)

	id, err := q.Enqueue(context.Background(), "fail", func(ctx context.Context) error {
		return boom
	})
	require.NoError(t, err)

	select {
	case taskErr := <-q.Errors():
		assert.Equal(t, id, taskErr.TaskID)
		assert.Equal(t, "fail", taskErr.Name)
		assert.ErrorIs(t, taskErr, boom)
	case <-time.After(2 * time.Second):
		t.Fatal("ошибка задачи не пришла в канал")
	}

	cancel()
	q.Wait()
	assert.Equal(t, int32(1), done.Load())
}

func TestQueue_RecoversPanic(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewQueue(Config{Concurrency: 1}, zerolog.Nop())
	q.Start(ctx)

	_, err := q.Enqueue(context.Background(), "panic", func(ctx context.Context) error {
		panic("неожиданно")
	})
	require.NoError(t, err)

	select {
	case taskErr := <-q.Errors():
		assert.Contains(t, taskErr.Error(), "паника в задаче: неожиданно")
	case <-time.After(2 * time.Second):
		t.Fatal("паника не превратилась в ошибку")
	}
}

func TestQueue_Full(t *testing.T) {
	q := NewQueue(Config{Concurrency: 1, QueueSize: 1}, zerolog.Nop())

	noop := func(ctx context.Context) error { return nil }

	_, err := q.Enqueue(context.Background(), "first", noop)
	require.NoError(t, err)

	_, err = q.Enqueue(context.Background(), "second", noop)
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestQueue_TaskTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewQueue(Config{Concurrency: 1, TaskTimeout: 20 * time.Millisecond}, zerolog.Nop())
	q.Start(ctx)

	_, err := q.Enqueue(context.Background(), "slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)

	select {
	case taskErr := <-q.Errors():
		assert.ErrorIs(t, taskErr, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("задача не прервана по таймауту")
	}
}

func TestQueue_DrainsOnShutdownAndRejectsAfter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := NewQueue(Config{Concurrency: 1, QueueSize: 4}, zerolog.Nop())

	var done atomic.Int32
	for i := 0; i < 3; i++ {
		_, err := q.Enqueue(context.Background(), "task", func(ctx context.Context) error {
			done.Add(1)
			return nil
		})
		require.NoError(t, err)
	}

	q.Start(ctx)
	cancel()
	q.Wait()

	assert.Equal(t, int32(3), done.Load())

	_, err := q.Enqueue(context.Background(), "late", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestQueue_PropagatesRequestIDs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewQueue(Config{Concurrency: 1}, zerolog.Nop())
	q.Start(ctx)

	reqCtx, reqCancel := context.WithCancel(logger.NewContextWithIDs(context.Background(), "trace-1", "corr-1"))
	got := make(chan [2]string, 1)

	_, err := q.Enqueue(reqCtx, "ids", func(ctx context.Context) error {
		got <- [2]string{logger.TraceIDFromContext(ctx), logger.CorrelationIDFromContext(ctx)}
		return nil
	})
	require.NoError(t, err)
	reqCancel()

	select {
	case ids := <-got:
		assert.Equal(t, [2]string{"trace-1", "corr-1"}, ids)
	case <-time.After(2 * time.Second):
		t.Fatal("задача не выполнена")
	}
}
