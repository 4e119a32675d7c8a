package infra

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/AndresDiezT/alto-vivo-sub000/internal/apierror"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Locker hands out Redis locks for work that must run on a single instance
// at a time (scheduled batches).
type Locker struct {
	client *redislock.Client
}

func NewLocker(rdb *redis.Client) *Locker {
	return &Locker{client: redislock.New(rdb)}
}

// Obtain takes key for ttl without waiting and keeps refreshing it until the
// returned release runs. A lock held elsewhere is reported as
// ConcurrencyConflict so callers can retry later.
func (l *Locker) Obtain(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	lock, err := l.client.Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, apierror.ConcurrencyConflict(fmt.Sprintf("el proceso %q ya se está ejecutando", key))
	}
	if err != nil {
		return nil, fmt.Errorf("redislock %s: %w", key, err)
	}

	return mantener(key, lock, ttl), nil
}

// lockTomado is the part of *redislock.Lock the keep-alive uses.
type lockTomado interface {
	Refresh(ctx context.Context, ttl time.Duration, opt *redislock.Options) error
	Release(ctx context.Context) error
}

// mantener refreshes the lock every ttl/2 until the returned release is
// called, so a batch that outlives ttl keeps it. A failed refresh means the
// lock is gone; it is logged and not retried.
func mantener(key string, lock lockTomado, ttl time.Duration) func() {
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		t := time.NewTicker(ttl / 2)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				if err := lock.Refresh(context.Background(), ttl, nil); err != nil {
					log.Warn().Err(err).Str("key", key).Msg("redislock: refresh failed, lock lost")
					return
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			// Background: the caller's ctx may already be cancelled at this point.
			if err := lock.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				log.Warn().Err(err).Str("key", key).Msg("redislock: release failed")
			}
		})
	}
}
