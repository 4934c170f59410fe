package cron

import (
	"context"
	"fmt"
	"time"

	redispkg "github.com/courtside-app/courtside-backend/pkg/redis"
)

const lockScope = "cron:lock"

// Lock is a best-effort distributed lock so only one worker replica runs a
// given job per tick. The TTL bounds how long a crashed holder blocks the
// job.
type Lock struct {
	store redispkg.IdempotencyStore
	ttl   time.Duration
}

// NewLock builds a job lock on top of the shared Redis client.
func NewLock(store redispkg.IdempotencyStore, ttl time.Duration) *Lock {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Lock{store: store, ttl: ttl}
}

// Acquire claims the named job for this tick.
func (l *Lock) Acquire(ctx context.Context, job string) (bool, error) {
	key := l.store.IdempotencyKey(lockScope, job)
	ok, err := l.store.SetNX(ctx, key, time.Now().Unix(), l.ttl)
	if err != nil {
		return false, fmt.Errorf("acquiring job lock: %w", err)
	}
	return ok, nil
}

// Release frees the named job before the TTL expires.
func (l *Lock) Release(ctx context.Context, job string) error {
	return l.store.Del(ctx, l.store.IdempotencyKey(lockScope, job))
}
