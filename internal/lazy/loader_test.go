package lazy_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/salarysys/payrun/internal/lazy"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestLoader_LoadsOnce(t *testing.T) {
	var calls int32
	l := lazy.New(func(context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "pool", nil
	})
	assert.Equal(t, lazy.NotStarted, l.State())

	v, err := l.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "pool", v)
	assert.Equal(t, lazy.Ready, l.State())

	v, err = l.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "pool", v)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	peeked, ok := l.Peek()
	assert.True(t, ok)
	assert.Equal(t, "pool", peeked)
}

func TestLoader_ConcurrentCallersShareLoad(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	l := lazy.New(func(context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return 42, nil
	})

	const waiters = 16
	var wg sync.WaitGroup
	results := make([]int, waiters)
	for i := range waiters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := l.Get(context.Background())
			assert.NoError(t, err)
			results[i] = v
		}()
	}

	require.Eventually(t, func() bool { return l.State() == lazy.Loading }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, v := range results {
		assert.Equal(t, 42, v)
	}
}

func TestLoader_FailureIsRemembered(t *testing.T) {
	boom := errors.New("connection refused")
	var calls int32
	l := lazy.New(func(context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 0, boom
	})

	_, err := l.Get(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, lazy.Failed, l.State())

	_, err = l.Get(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	_, ok := l.Peek()
	assert.False(t, ok)

	assert.True(t, l.Reset())
	assert.Equal(t, lazy.NotStarted, l.State())
	_, err = l.Get(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestLoader_WaiterCanAbandon(t *testing.T) {
	release := make(chan struct{})
	l := lazy.New(func(ctx context.Context) (string, error) {
		<-release
		return "late", ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := l.Get(ctx)
	require.ErrorIs(t, err, context.Canceled)

	// The load itself is not cancelled and completes for later callers.
	assert.False(t, l.Reset())
	close(release)

	v, err := l.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "late", v)
}

func TestLoader_NilLoadFunc(t *testing.T) {
	l := lazy.New[int](nil)
	_, err := l.Get(context.Background())
	assert.ErrorIs(t, err, lazy.ErrNilLoadFunc)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "not_started", lazy.NotStarted.String())
	assert.Equal(t, "loading", lazy.Loading.String())
	assert.Equal(t, "ready", lazy.Ready.String())
	assert.Equal(t, "failed", lazy.Failed.String())
	assert.Equal(t, "state(9)", lazy.State(9).String())
}
