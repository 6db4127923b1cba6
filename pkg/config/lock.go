package config

import (
	"time"

	"github.com/nsrs/shardgate/pkg/models/sgerror"
)

const (
	DefaultLockPrefix     = "lock:"
	DefaultLeaseTime      = 30 * time.Second
	DefaultRetryInterval  = 50 * time.Millisecond
	DefaultMaxLeaseTime   = time.Hour
	DefaultMaxAcquireTime = 5 * time.Minute
)

type Lock struct {
	Prefix string `json:"prefix" toml:"prefix" yaml:"prefix" env:"SHARDGATE_LOCK_PREFIX, overwrite"`

	DefaultLeaseTime      time.Duration `json:"default_lease_time" toml:"default_lease_time" yaml:"default_lease_time" env:"SHARDGATE_LOCK_DEFAULT_LEASE_TIME, overwrite"`
	DefaultAcquireTimeout time.Duration `json:"default_acquire_timeout" toml:"default_acquire_timeout" yaml:"default_acquire_timeout" env:"SHARDGATE_LOCK_DEFAULT_ACQUIRE_TIMEOUT, overwrite"`
	RetryInterval         time.Duration `json:"retry_interval" toml:"retry_interval" yaml:"retry_interval" env:"SHARDGATE_LOCK_RETRY_INTERVAL, overwrite"`
	MaxLeaseTime          time.Duration `json:"max_lease_time" toml:"max_lease_time" yaml:"max_lease_time" env:"SHARDGATE_LOCK_MAX_LEASE_TIME, overwrite"`
	MaxAcquireTimeout     time.Duration `json:"max_acquire_timeout" toml:"max_acquire_timeout" yaml:"max_acquire_timeout" env:"SHARDGATE_LOCK_MAX_ACQUIRE_TIMEOUT, overwrite"`
}

func (l *Lock) applyDefaults() {
	if l.Prefix == "" {
		l.Prefix = DefaultLockPrefix
	}
	if l.DefaultLeaseTime <= 0 {
		l.DefaultLeaseTime = DefaultLeaseTime
	}
	if l.DefaultAcquireTimeout < 0 {
		l.DefaultAcquireTimeout = 0
	}
	if l.RetryInterval <= 0 {
		l.RetryInterval = DefaultRetryInterval
	}
	if l.MaxLeaseTime <= 0 {
		l.MaxLeaseTime = DefaultMaxLeaseTime
	}
	if l.MaxAcquireTimeout <= 0 {
		l.MaxAcquireTimeout = DefaultMaxAcquireTime
	}
}

func (l *Lock) Validate() error {
	if l.DefaultLeaseTime > l.MaxLeaseTime {
		return sgerror.Newf(sgerror.SG_CONFIG_ERROR, "lock default_lease_time %s exceeds max_lease_time %s", l.DefaultLeaseTime, l.MaxLeaseTime)
	}
	if l.DefaultAcquireTimeout > l.MaxAcquireTimeout {
		return sgerror.Newf(sgerror.SG_CONFIG_ERROR, "lock default_acquire_timeout %s exceeds max_acquire_timeout %s", l.DefaultAcquireTimeout, l.MaxAcquireTimeout)
	}
	return nil
}

// ClampLease maps a requested lease onto (0, MaxLeaseTime]. Non-positive
// requests get the default lease.
func (l *Lock) ClampLease(d time.Duration) time.Duration {
	if d <= 0 {
		return l.DefaultLeaseTime
	}
	if d > l.MaxLeaseTime {
		return l.MaxLeaseTime
	}
	return d
}

// ClampAcquireTimeout maps a requested acquire timeout onto [0, MaxAcquireTimeout].
func (l *Lock) ClampAcquireTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	if d > l.MaxAcquireTimeout {
		return l.MaxAcquireTimeout
	}
	return d
}

// WithDefaults returns a copy with unset fields filled in.
func (l Lock) WithDefaults() Lock {
	l.applyDefaults()
	return l
}
