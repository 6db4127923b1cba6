package qdb

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/nsrs/shardgate/pkg/config"
	"github.com/nsrs/shardgate/pkg/models/sgerror"
)

//go:generate mockgen -source=./qdb.go -destination=./mock/qdb_mock.go -package=mock

// NoExpiry is the TTL of a lock record without a lease.
const NoExpiry = time.Duration(-1)

// LockRecord is a live lock as seen by the store.
type LockRecord struct {
	Key   string        `json:"key"`
	Owner string        `json:"owner"`
	TTL   time.Duration `json:"ttl"`
}

// QDB is the external lock store: an atomic set-if-absent with TTL and a
// compare-and-delete, both keyed by owner token.
type QDB interface {
	// AcquireLock creates key owned by owner for ttl. If owner already holds
	// key the lease is renewed. Returns false when another owner holds it.
	AcquireLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	// ReleaseLock deletes key only if owner holds it.
	ReleaseLock(ctx context.Context, key, owner string) (bool, error)
	// GetLock returns the live record of key, or nil.
	GetLock(ctx context.Context, key string) (*LockRecord, error)
	// ListLocks returns the live records whose key starts with prefix.
	ListLocks(ctx context.Context, prefix string) ([]*LockRecord, error)
	Close() error
}

func NewQDB(cfg *config.Qdb) (QDB, error) {
	switch cfg.Type {
	case config.EtcdQdb:
		db, err := NewEtcdQDB(cfg.Addr, cfg.DialTimeout)
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.MemoryQdb:
		db, err := RestoreQDB(cfg.BackupPath, clockwork.NewRealClock())
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, sgerror.Newf(sgerror.SG_CONFIG_ERROR, "qdb implementation %s is invalid", cfg.Type)
	}
}

func validateLease(ttl time.Duration) error {
	if ttl <= 0 {
		return sgerror.Newf(sgerror.SG_LOCK_STORE, "lock lease must be positive, got %s", ttl)
	}
	return nil
}
