// Package chainlock serializes appends per chain scope. Appending reads the
// tail hash and inserts the next link; two concurrent appenders on the same
// scope would both chain off the same tail, so appends take a scope lock.
package chainlock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrLockTimeout is returned when a scope lock could not be acquired within
// the configured wait.
var ErrLockTimeout = errors.New("timed out acquiring chain lock")

// Locker acquires an exclusive per-scope lock. The returned release function
// must be called exactly once.
type Locker interface {
	Acquire(ctx context.Context, scope string) (release func(), err error)
}

// LocalLocker serializes scopes within one process. Suitable for single-node
// deployments and tests; multi-node deployments use the Redis locker.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLocalLocker creates a process-local locker
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *LocalLocker) Acquire(_ context.Context, scope string) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[scope]
	if !ok {
		m = &sync.Mutex{}
		l.locks[scope] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock, nil
}

// Config tunes distributed lock behavior.
type Config struct {
	TTL        time.Duration
	RetryDelay time.Duration
	MaxWait    time.Duration
}

// DefaultConfig returns lock defaults
func DefaultConfig() Config {
	return Config{
		TTL:        5 * time.Second,
		RetryDelay: 25 * time.Millisecond,
		MaxWait:    3 * time.Second,
	}
}
