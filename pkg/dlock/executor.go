package dlock

import (
	"context"
	"time"

	"github.com/nsrs/shardgate/pkg/config"
	"github.com/nsrs/shardgate/pkg/sglog"
)

// WithLock runs work while holding key. The bool result reports whether the
// lock was acquired; work runs only if it was. The lock is released when
// work returns, fails or panics, using a context that ignores ctx
// cancellation.
func WithLock[T any](ctx context.Context, l Locker, key string, acquireTimeout, leaseTime time.Duration, work func(context.Context) (T, error)) (T, bool, error) {
	var zero T

	token := NewToken()
	if !l.Acquire(ctx, key, token, acquireTimeout, leaseTime) {
		sglog.Zero.Warn().Str("key", key).Msg("dlock: failed to acquire lock, work skipped")
		return zero, false, nil
	}
	defer func() {
		if !l.Unlock(context.WithoutCancel(ctx), key, token) {
			sglog.Zero.Warn().Str("key", key).Msg("dlock: failed to release lock")
		}
	}()

	res, err := work(ctx)
	if err != nil {
		sglog.Zero.Error().Err(err).Str("key", key).Msg("dlock: work under lock failed")
	}
	return res, true, err
}

// WithLockOrFallback makes one attempt with the default lease and runs
// fallback only when the lock was not acquired.
func WithLockOrFallback[T any](ctx context.Context, l Locker, key string, work, fallback func(context.Context) (T, error)) (T, error) {
	res, acquired, err := WithLock(ctx, l, key, 0, 0, work)
	if acquired {
		return res, err
	}
	sglog.Zero.Info().Str("key", key).Msg("dlock: lock not acquired, running fallback")
	return fallback(ctx)
}

// Executor binds the lock helpers to the configured acquire timeout and
// lease for callers that need no result value.
type Executor struct {
	locker         Locker
	acquireTimeout time.Duration
	leaseTime      time.Duration
}

func NewExecutor(l Locker, cfg *config.Lock) *Executor {
	c := cfg.WithDefaults()
	return &Executor{
		locker:         l,
		acquireTimeout: c.DefaultAcquireTimeout,
		leaseTime:      c.DefaultLeaseTime,
	}
}

// Execute runs work under key and reports whether it ran.
func (e *Executor) Execute(ctx context.Context, key string, work func(context.Context) error) (bool, error) {
	_, ran, err := WithLock(ctx, e.locker, key, e.acquireTimeout, e.leaseTime, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, work(ctx)
	})
	return ran, err
}

// ExecuteOrFallback runs work under key, or fallback when key is taken.
func (e *Executor) ExecuteOrFallback(ctx context.Context, key string, work, fallback func(context.Context) error) error {
	ran, err := e.Execute(ctx, key, work)
	if ran {
		return err
	}
	sglog.Zero.Info().Str("key", key).Msg("dlock: lock not acquired, running fallback")
	return fallback(ctx)
}
