// Package dlock provides cross-process mutual exclusion on top of a lock
// store. Every lock carries a finite lease, so a crashed owner cannot block
// a key forever. Store failures are logged and reported as "not acquired".
package dlock

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/nsrs/shardgate/pkg/config"
	"github.com/nsrs/shardgate/pkg/sglog"
	"github.com/nsrs/shardgate/qdb"
	"github.com/nsrs/shardgate/router/statistics"
)

// Seconds reported by ExpireTime for keys without a lease and for absent keys.
const (
	ExpireNever  int64 = -1
	ExpireAbsent int64 = -2
)

var errContended = errors.New("lock is held by another owner")

// Locker is the part of Lock the executors need.
type Locker interface {
	Acquire(ctx context.Context, key string, token Token, acquireTimeout, leaseTime time.Duration) bool
	Unlock(ctx context.Context, key string, token Token) bool
}

type Lock struct {
	store qdb.QDB
	cfg   config.Lock
}

var _ Locker = &Lock{}

func New(store qdb.QDB, cfg *config.Lock) *Lock {
	return &Lock{
		store: store,
		cfg:   cfg.WithDefaults(),
	}
}

func (l *Lock) storeKey(key string) string {
	return l.cfg.Prefix + key
}

// TryLock makes one attempt with the default lease.
func (l *Lock) TryLock(ctx context.Context, key string) (Token, bool) {
	return l.TryLockTimeout(ctx, key, 0, 0)
}

// TryLockTimeout retries every retry_interval until the lock is taken,
// acquireTimeout passes or ctx is done. A zero timeout means one attempt;
// a non-positive lease means the default lease.
func (l *Lock) TryLockTimeout(ctx context.Context, key string, acquireTimeout, leaseTime time.Duration) (Token, bool) {
	token := NewToken()
	if !l.Acquire(ctx, key, token, acquireTimeout, leaseTime) {
		return "", false
	}
	return token, true
}

// Acquire is TryLockTimeout with a caller-supplied token. Acquiring a key
// already held by the same token renews its lease.
func (l *Lock) Acquire(ctx context.Context, key string, token Token, acquireTimeout, leaseTime time.Duration) bool {
	lease := l.cfg.ClampLease(leaseTime)
	timeout := l.cfg.ClampAcquireTimeout(acquireTimeout)
	k := l.storeKey(key)
	start := time.Now()

	attempt := func(ctx context.Context) error {
		ok, err := l.store.AcquireLock(ctx, k, string(token), lease)
		if err != nil {
			return err
		}
		if !ok {
			return retry.RetryableError(errContended)
		}
		return nil
	}

	var err error
	if timeout == 0 {
		err = attempt(ctx)
	} else {
		err = retry.Do(ctx, retry.WithMaxDuration(timeout, retry.NewConstant(l.cfg.RetryInterval)), attempt)
	}

	switch {
	case err == nil:
		sglog.Zero.Debug().
			Str("key", k).
			Dur("lease", lease).
			Dur("waited", time.Since(start)).
			Msg("dlock: lock acquired")
		statistics.RecordLock(statistics.LockAcquired)
		statistics.RecordLockWait(time.Since(start))
		return true
	case errors.Is(err, errContended), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		sglog.Zero.Debug().
			Err(err).
			Str("key", k).
			Dur("timeout", timeout).
			Msg("dlock: lock not acquired")
		statistics.RecordLock(statistics.LockContended)
		return false
	default:
		sglog.Zero.Error().
			Err(err).
			Str("key", k).
			Msg("dlock: lock store failure on acquire")
		statistics.RecordLock(statistics.LockStoreError)
		return false
	}
}

// Unlock releases key if token still owns it. Releasing an expired, foreign
// or already released lock returns false and is harmless.
func (l *Lock) Unlock(ctx context.Context, key string, token Token) bool {
	k := l.storeKey(key)
	ok, err := l.store.ReleaseLock(ctx, k, string(token))
	if err != nil {
		sglog.Zero.Error().
			Err(err).
			Str("key", k).
			Msg("dlock: lock store failure on release")
		statistics.RecordLock(statistics.LockStoreError)
		return false
	}
	if !ok {
		sglog.Zero.Warn().
			Str("key", k).
			Msg("dlock: lock was not held by this token")
		statistics.RecordLock(statistics.LockNotHeld)
		return false
	}

	sglog.Zero.Debug().Str("key", k).Msg("dlock: lock released")
	statistics.RecordLock(statistics.LockReleased)
	return true
}

func (l *Lock) IsLocked(ctx context.Context, key string) bool {
	rec, err := l.store.GetLock(ctx, l.storeKey(key))
	if err != nil {
		sglog.Zero.Error().
			Err(err).
			Str("key", l.storeKey(key)).
			Msg("dlock: lock store failure on lookup")
		return false
	}
	return rec != nil
}

// ExpireTime returns the remaining lease in whole seconds, ExpireNever for a
// key without a lease, and ExpireAbsent for a missing key or a store failure.
func (l *Lock) ExpireTime(ctx context.Context, key string) int64 {
	rec, err := l.store.GetLock(ctx, l.storeKey(key))
	if err != nil {
		sglog.Zero.Error().
			Err(err).
			Str("key", l.storeKey(key)).
			Msg("dlock: lock store failure on lookup")
		return ExpireAbsent
	}
	if rec == nil {
		return ExpireAbsent
	}
	if rec.TTL == qdb.NoExpiry {
		return ExpireNever
	}
	return int64(rec.TTL / time.Second)
}

// Locks lists the live locks under the configured prefix.
func (l *Lock) Locks(ctx context.Context) ([]*qdb.LockRecord, error) {
	return l.store.ListLocks(ctx, l.cfg.Prefix)
}
