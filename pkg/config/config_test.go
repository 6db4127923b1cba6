package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nsrs/shardgate/pkg/models/sgerror"
	"github.com/stretchr/testify/assert"
)

func writeCfg(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadConfigDefaults(t *testing.T) {
	assert := assert.New(t)

	cfg, rendered, err := LoadConfig(context.Background(), "")
	assert.NoError(err)
	assert.NotEmpty(rendered)

	assert.Equal("info", cfg.LogLevel)
	assert.Len(cfg.Sharding.Tables, 4)
	assert.Equal(DefaultMaxSampledTables, cfg.Sharding.MaxSampledTables)

	sim, ok := cfg.Sharding.Table("sim_card")
	assert.True(ok)
	assert.Equal(StrategyHashMod, sim.Strategy)
	assert.Equal(3, sim.SuffixLength)
	assert.Equal(10, sim.Modulus)
	assert.Equal("sim_card_0", sim.DefaultTable)

	imsi, ok := cfg.Sharding.Table("imsi_resource")
	assert.True(ok)
	assert.Equal(2, imsi.SuffixLength)

	num, ok := cfg.Sharding.Table("number_resource")
	assert.True(ok)
	assert.Equal(StrategyPrefix, num.Strategy)
	assert.Equal(3, num.PrefixLength)

	assert.Equal("lock:", cfg.Lock.Prefix)
	assert.Equal(30*time.Second, cfg.Lock.DefaultLeaseTime)
	assert.Equal(50*time.Millisecond, cfg.Lock.RetryInterval)
	assert.Equal(MemoryQdb, cfg.QDB.Type)
	assert.Equal(4, cfg.Jobs.MaxParallel)
}

func TestLoadConfigFormats(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
	}{
		{
			name: "yaml",
			file: "shardgate.yaml",
			body: `
log_level: debug
sharding:
  tables:
    - base_table: number_resource
      strategy: prefix
      actual_data_nodes: "ds0.number_resource_${['139','177']}"
      default_table: number_resource_139
lock:
  prefix: "nsrs:lock:"
  default_lease_time: 10s
qdb:
  type: etcd
`,
		},
		{
			name: "toml",
			file: "shardgate.toml",
			body: `
log_level = "debug"

[[sharding.tables]]
base_table = "number_resource"
strategy = "prefix"
actual_data_nodes = "ds0.number_resource_${['139','177']}"
default_table = "number_resource_139"

[lock]
prefix = "nsrs:lock:"
default_lease_time = "10s"

[qdb]
type = "etcd"
`,
		},
		{
			name: "json",
			file: "shardgate.json",
			body: `{
  "log_level": "debug",
  "sharding": {"tables": [{
    "base_table": "number_resource",
    "strategy": "prefix",
    "actual_data_nodes": "ds0.number_resource_${['139','177']}",
    "default_table": "number_resource_139"
  }]},
  "lock": {"prefix": "nsrs:lock:", "default_lease_time": 10000000000},
  "qdb": {"type": "etcd"}
}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)

			cfg, _, err := LoadConfig(context.Background(), writeCfg(t, tt.file, tt.body))
			assert.NoError(err)

			assert.Equal("debug", cfg.LogLevel)
			assert.Len(cfg.Sharding.Tables, 1)
			assert.Equal(3, cfg.Sharding.Tables[0].PrefixLength)
			assert.Equal("nsrs:lock:", cfg.Lock.Prefix)
			assert.Equal(10*time.Second, cfg.Lock.DefaultLeaseTime)
			assert.Equal(EtcdQdb, cfg.QDB.Type)
			assert.Equal("localhost:2379", cfg.QDB.Addr)
		})
	}
}

func TestLoadConfigUnknownSuffix(t *testing.T) {
	_, _, err := LoadConfig(context.Background(), writeCfg(t, "shardgate.ini", "log_level=debug"))
	assert.Error(t, err)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	assert := assert.New(t)

	t.Setenv("SHARDGATE_LOG_LEVEL", "warn")
	t.Setenv("SHARDGATE_LOCK_PREFIX", "env:lock:")
	t.Setenv("SHARDGATE_LOCK_RETRY_INTERVAL", "20ms")

	cfg, _, err := LoadConfig(context.Background(), writeCfg(t, "shardgate.yaml", "log_level: debug\n"))
	assert.NoError(err)
	assert.Equal("warn", cfg.LogLevel)
	assert.Equal("env:lock:", cfg.Lock.Prefix)
	assert.Equal(20*time.Millisecond, cfg.Lock.RetryInterval)
}

func TestValidateSharding(t *testing.T) {
	tests := []struct {
		name    string
		tables  []TableCfg
		wantErr bool
	}{
		{
			name:   "defaults",
			tables: DefaultTables(),
		},
		{
			name:    "missing base table",
			tables:  []TableCfg{{Strategy: StrategyPrefix}},
			wantErr: true,
		},
		{
			name: "duplicate base table",
			tables: []TableCfg{
				{BaseTable: "sim_card", Strategy: StrategyHashMod},
				{BaseTable: "sim_card", Strategy: StrategyHashMod},
			},
			wantErr: true,
		},
		{
			name:    "unknown strategy",
			tables:  []TableCfg{{BaseTable: "sim_card", Strategy: "range"}},
			wantErr: true,
		},
		{
			name:    "unknown hash function",
			tables:  []TableCfg{{BaseTable: "sim_card", Strategy: StrategyHashMod, HashFunction: "md5"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Sharding{Tables: tt.tables}
			err := s.Validate()
			if tt.wantErr {
				assert.True(t, sgerror.HasCode(err, sgerror.SG_CONFIG_ERROR))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestClampLease(t *testing.T) {
	assert := assert.New(t)

	l := Lock{}
	l.applyDefaults()

	assert.Equal(DefaultLeaseTime, l.ClampLease(0))
	assert.Equal(DefaultLeaseTime, l.ClampLease(-time.Second))
	assert.Equal(5*time.Second, l.ClampLease(5*time.Second))
	assert.Equal(time.Hour, l.ClampLease(48*time.Hour))

	assert.Equal(time.Duration(0), l.ClampAcquireTimeout(-time.Second))
	assert.Equal(time.Second, l.ClampAcquireTimeout(time.Second))
	assert.Equal(5*time.Minute, l.ClampAcquireTimeout(time.Hour))
}

func TestStringMasksDSN(t *testing.T) {
	cfg := Default()
	cfg.Catalog.DSN = "postgres://nsrs:secret@db/nsrs"
	assert.NotContains(t, cfg.String(), "secret")
}
