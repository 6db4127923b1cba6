package config

import (
	"time"

	"github.com/nsrs/shardgate/pkg/models/sgerror"
)

type QdbType string

const (
	EtcdQdb   = QdbType("etcd")
	MemoryQdb = QdbType("mem")
)

type Qdb struct {
	Type        QdbType       `json:"type" toml:"type" yaml:"type" env:"SHARDGATE_QDB_TYPE, overwrite"`
	Addr        string        `json:"addr" toml:"addr" yaml:"addr" env:"SHARDGATE_QDB_ADDR, overwrite"`
	BackupPath  string        `json:"backup_path" toml:"backup_path" yaml:"backup_path" env:"SHARDGATE_QDB_BACKUP_PATH, overwrite"`
	DialTimeout time.Duration `json:"dial_timeout" toml:"dial_timeout" yaml:"dial_timeout" env:"SHARDGATE_QDB_DIAL_TIMEOUT, overwrite"`
}

func (q *Qdb) applyDefaults() {
	if q.Type == "" {
		q.Type = MemoryQdb
	}
	if q.Type == EtcdQdb && q.Addr == "" {
		q.Addr = "localhost:2379"
	}
	if q.DialTimeout <= 0 {
		q.DialTimeout = 5 * time.Second
	}
}

func (q *Qdb) Validate() error {
	switch q.Type {
	case EtcdQdb, MemoryQdb:
		return nil
	default:
		return sgerror.Newf(sgerror.SG_CONFIG_ERROR, "unknown qdb type %q", q.Type)
	}
}
