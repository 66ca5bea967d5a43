package chainlock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker_SerializesScope(t *testing.T) {
	l := NewLocalLocker()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		current int
		peak    int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(context.Background(), "corr-1")
			require.NoError(t, err)
			defer release()

			mu.Lock()
			current++
			if current > peak {
				peak = current
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			current--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, peak, "at most one holder per scope")
}

func TestLocalLocker_IndependentScopes(t *testing.T) {
	l := NewLocalLocker()

	r1, err := l.Acquire(context.Background(), "corr-1")
	require.NoError(t, err)
	defer r1()

	done := make(chan struct{})
	go func() {
		r2, err := l.Acquire(context.Background(), "corr-2")
		assert.NoError(t, err)
		r2()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("different scopes must not block each other")
	}
}

func newRedisLocker(t *testing.T, cfg Config) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisLocker(client, cfg), mr
}

func TestRedisLocker_AcquireRelease(t *testing.T) {
	l, mr := newRedisLocker(t, Config{})

	release, err := l.Acquire(context.Background(), "corr-1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("chainlock:corr-1"))

	release()
	assert.False(t, mr.Exists("chainlock:corr-1"))
}

func TestRedisLocker_ContendedAcquireWaits(t *testing.T) {
	l, _ := newRedisLocker(t, Config{RetryDelay: 5 * time.Millisecond, MaxWait: time.Second})

	release, err := l.Acquire(context.Background(), "corr-1")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		r2, err := l.Acquire(context.Background(), "corr-1")
		assert.NoError(t, err)
		r2()
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire must wait for the first holder")
	case <-time.After(30 * time.Millisecond):
	}

	release()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second acquire should proceed after release")
	}
}

func TestRedisLocker_TimesOut(t *testing.T) {
	l, _ := newRedisLocker(t, Config{RetryDelay: 5 * time.Millisecond, MaxWait: 30 * time.Millisecond})

	release, err := l.Acquire(context.Background(), "corr-1")
	require.NoError(t, err)
	defer release()

	_, err = l.Acquire(context.Background(), "corr-1")
	assert.ErrorIs(t, err, ErrLockTimeout)
}

func TestRedisLocker_ExpiredLockNotReleasedByOldHolder(t *testing.T) {
	l, mr := newRedisLocker(t, Config{TTL: 50 * time.Millisecond, RetryDelay: 5 * time.Millisecond, MaxWait: time.Second})

	oldRelease, err := l.Acquire(context.Background(), "corr-1")
	require.NoError(t, err)

	// Simulate the holder stalling past its TTL
	mr.FastForward(100 * time.Millisecond)

	newRelease, err := l.Acquire(context.Background(), "corr-1")
	require.NoError(t, err)

	// Stale holder releasing must not free the new holder's lock
	oldRelease()
	assert.True(t, mr.Exists("chainlock:corr-1"))

	newRelease()
	assert.False(t, mr.Exists("chainlock:corr-1"))
}
