package qdb

import (
	"context"
	"sort"
	"strings"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/clientv3util"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/nsrs/shardgate/pkg/models/sgerror"
	"github.com/nsrs/shardgate/pkg/sglog"
)

// EtcdQDB keeps every lock as a key bound to its own lease, so etcd drops
// the key when the lease runs out.
type EtcdQDB struct {
	cli *clientv3.Client
}

var _ QDB = &EtcdQDB{}

// NewEtcdQDB connects to a comma-separated list of endpoints.
func NewEtcdQDB(addr string, dialTimeout time.Duration) (*EtcdQDB, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   strings.Split(addr, ","),
		DialTimeout: dialTimeout,
		DialOptions: []grpc.DialOption{
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		},
	})
	if err != nil {
		return nil, sgerror.Newf(sgerror.SG_LOCK_STORE, "connect to etcd %s: %s", addr, err)
	}

	sglog.Zero.Debug().
		Str("address", addr).
		Msg("etcdqdb: NewEtcdQDB")

	return &EtcdQDB{
		cli: cli,
	}, nil
}

// etcd leases have whole-second granularity; shorter leases round up.
func leaseSeconds(ttl time.Duration) int64 {
	s := int64((ttl + time.Second - 1) / time.Second)
	return max(s, 1)
}

func (q *EtcdQDB) AcquireLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	sglog.Zero.Debug().
		Str("key", key).
		Str("owner", owner).
		Dur("ttl", ttl).
		Msg("etcdqdb: acquire lock")
	if err := validateLease(ttl); err != nil {
		return false, err
	}

	lease, err := q.cli.Grant(ctx, leaseSeconds(ttl))
	if err != nil {
		sglog.Zero.Error().Err(err).Msg("etcdqdb: lease grant failed")
		return false, err
	}

	put := clientv3.OpPut(key, owner, clientv3.WithLease(lease.ID))
	// same owner: move the key onto the fresh lease
	renew := clientv3.OpTxn(
		[]clientv3.Cmp{clientv3.Compare(clientv3.Value(key), "=", owner)},
		[]clientv3.Op{clientv3.OpPut(key, owner, clientv3.WithLease(lease.ID), clientv3.WithPrevKV())},
		nil,
	)

	resp, err := q.cli.Txn(ctx).If(clientv3util.KeyMissing(key)).Then(put).Else(renew).Commit()
	if err != nil {
		sglog.Zero.Error().Err(err).Str("key", key).Msg("etcdqdb: failed to commit lock")
		q.revoke(lease.ID)
		return false, err
	}
	if resp.Succeeded {
		return true, nil
	}

	nested := resp.Responses[0].GetResponseTxn()
	if nested != nil && nested.Succeeded {
		if prev := nested.Responses[0].GetResponsePut().GetPrevKv(); prev != nil && prev.Lease != 0 && clientv3.LeaseID(prev.Lease) != lease.ID {
			q.revoke(clientv3.LeaseID(prev.Lease))
		}
		return true, nil
	}

	q.revoke(lease.ID)
	return false, nil
}

func (q *EtcdQDB) ReleaseLock(ctx context.Context, key, owner string) (bool, error) {
	sglog.Zero.Debug().
		Str("key", key).
		Str("owner", owner).
		Msg("etcdqdb: release lock")

	resp, err := q.cli.Txn(ctx).
		If(clientv3.Compare(clientv3.Value(key), "=", owner)).
		Then(clientv3.OpDelete(key, clientv3.WithPrevKV())).
		Commit()
	if err != nil {
		sglog.Zero.Error().Err(err).Str("key", key).Msg("etcdqdb: failed to commit unlock")
		return false, err
	}
	if !resp.Succeeded {
		return false, nil
	}

	for _, kv := range resp.Responses[0].GetResponseDeleteRange().GetPrevKvs() {
		if kv.Lease != 0 {
			q.revoke(clientv3.LeaseID(kv.Lease))
		}
	}
	return true, nil
}

// revoke drops a lease that no key uses any more. Failure only delays the
// lease expiry, so it is logged and ignored.
func (q *EtcdQDB) revoke(id clientv3.LeaseID) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := q.cli.Revoke(ctx, id); err != nil {
		sglog.Zero.Debug().Err(err).Int64("lease-id", int64(id)).Msg("etcdqdb: lease revoke failed")
	}
}

func (q *EtcdQDB) ttl(ctx context.Context, lease int64) (time.Duration, error) {
	if lease == 0 {
		return NoExpiry, nil
	}
	resp, err := q.cli.TimeToLive(ctx, clientv3.LeaseID(lease))
	if err != nil {
		return 0, err
	}
	return time.Duration(resp.TTL) * time.Second, nil
}

func (q *EtcdQDB) GetLock(ctx context.Context, key string) (*LockRecord, error) {
	sglog.Zero.Debug().
		Str("key", key).
		Msg("etcdqdb: get lock")

	resp, err := q.cli.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(resp.Kvs) == 0 {
		return nil, nil
	}

	kv := resp.Kvs[0]
	ttl, err := q.ttl(ctx, kv.Lease)
	if err != nil {
		return nil, err
	}
	if ttl != NoExpiry && ttl <= 0 {
		return nil, nil
	}
	return &LockRecord{Key: key, Owner: string(kv.Value), TTL: ttl}, nil
}

func (q *EtcdQDB) ListLocks(ctx context.Context, prefix string) ([]*LockRecord, error) {
	sglog.Zero.Debug().
		Str("prefix", prefix).
		Msg("etcdqdb: list locks")

	resp, err := q.cli.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}

	ret := make([]*LockRecord, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		ttl, err := q.ttl(ctx, kv.Lease)
		if err != nil {
			return nil, err
		}
		if ttl != NoExpiry && ttl <= 0 {
			continue
		}
		ret = append(ret, &LockRecord{Key: string(kv.Key), Owner: string(kv.Value), TTL: ttl})
	}

	sort.Slice(ret, func(i, j int) bool {
		return ret[i].Key < ret[j].Key
	})
	return ret, nil
}

func (q *EtcdQDB) Close() error {
	return q.cli.Close()
}
