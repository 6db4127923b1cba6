package qdb

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/nsrs/shardgate/pkg/sglog"
)

type memLock struct {
	Owner     string    `json:"owner"`
	ExpiresAt time.Time `json:"expires_at"`
}

// MemQDB is a single-process lock store. Leases are measured on its clock;
// expired records are dropped lazily on access. With a backup path every
// change is written to a JSON file and restored by RestoreQDB.
type MemQDB struct {
	mu sync.Mutex

	Locks map[string]*memLock `json:"locks"`

	clock      clockwork.Clock
	backupPath string
}

var _ QDB = &MemQDB{}

func NewMemQDB(backupPath string, clock clockwork.Clock) *MemQDB {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemQDB{
		Locks:      map[string]*memLock{},
		clock:      clock,
		backupPath: backupPath,
	}
}

func RestoreQDB(backupPath string, clock clockwork.Clock) (*MemQDB, error) {
	qdb := NewMemQDB(backupPath, clock)
	if backupPath == "" {
		return qdb, nil
	}
	if _, err := os.Stat(backupPath); err != nil {
		sglog.Zero.Info().Err(err).Msg("memqdb: backup file not exists. Creating new one.")
		f, err := os.Create(backupPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return qdb, nil
	}
	data, err := os.ReadFile(backupPath)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return qdb, nil
	}
	if err := json.Unmarshal(data, qdb); err != nil {
		return nil, err
	}
	if qdb.Locks == nil {
		qdb.Locks = map[string]*memLock{}
	}
	return qdb, nil
}

// DumpState writes the state to the backup file through a temporary file
// and a rename.
func (q *MemQDB) DumpState() error {
	if q.backupPath == "" {
		return nil
	}
	tmpPath := q.backupPath + ".tmp"

	state, err := json.MarshalIndent(q, "", "	")
	if err != nil {
		return err
	}
	if err := os.WriteFile(tmpPath, state, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, q.backupPath)
}

func (l *memLock) expired(now time.Time) bool {
	return !l.ExpiresAt.IsZero() && !now.Before(l.ExpiresAt)
}

// live returns the unexpired record of key. Must be called with q.mu held.
func (q *MemQDB) live(key string) (*memLock, error) {
	l, ok := q.Locks[key]
	if !ok {
		return nil, nil
	}
	if l.expired(q.clock.Now()) {
		sglog.Zero.Debug().Str("key", key).Msg("memqdb: lock lease expired")
		if err := ExecuteCommands(q.DumpState, NewDeleteCommand(q.Locks, key)); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return l, nil
}

func (q *MemQDB) AcquireLock(_ context.Context, key, owner string, ttl time.Duration) (bool, error) {
	sglog.Zero.Debug().
		Str("key", key).
		Str("owner", owner).
		Dur("ttl", ttl).
		Msg("memqdb: acquire lock")
	if err := validateLease(ttl); err != nil {
		return false, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	l, err := q.live(key)
	if err != nil {
		return false, err
	}
	if l != nil && l.Owner != owner {
		return false, nil
	}

	rec := &memLock{Owner: owner, ExpiresAt: q.clock.Now().Add(ttl)}
	if err := ExecuteCommands(q.DumpState, NewUpdateCommand(q.Locks, key, rec)); err != nil {
		return false, err
	}
	return true, nil
}

func (q *MemQDB) ReleaseLock(_ context.Context, key, owner string) (bool, error) {
	sglog.Zero.Debug().
		Str("key", key).
		Str("owner", owner).
		Msg("memqdb: release lock")

	q.mu.Lock()
	defer q.mu.Unlock()

	l, err := q.live(key)
	if err != nil {
		return false, err
	}
	if l == nil || l.Owner != owner {
		return false, nil
	}
	if err := ExecuteCommands(q.DumpState, NewDeleteCommand(q.Locks, key)); err != nil {
		return false, err
	}
	return true, nil
}

func (q *MemQDB) record(key string, l *memLock) *LockRecord {
	ttl := NoExpiry
	if !l.ExpiresAt.IsZero() {
		ttl = l.ExpiresAt.Sub(q.clock.Now())
	}
	return &LockRecord{Key: key, Owner: l.Owner, TTL: ttl}
}

func (q *MemQDB) GetLock(_ context.Context, key string) (*LockRecord, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	l, err := q.live(key)
	if err != nil || l == nil {
		return nil, err
	}
	return q.record(key, l), nil
}

func (q *MemQDB) ListLocks(_ context.Context, prefix string) ([]*LockRecord, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var ret []*LockRecord
	for key := range q.Locks {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		l, err := q.live(key)
		if err != nil {
			return nil, err
		}
		if l != nil {
			ret = append(ret, q.record(key, l))
		}
	}

	sort.Slice(ret, func(i, j int) bool {
		return ret[i].Key < ret[j].Key
	})
	return ret, nil
}

func (q *MemQDB) Close() error {
	return nil
}
