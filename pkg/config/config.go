package config

import (
	"context"
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	LogLevel    string `json:"log_level" toml:"log_level" yaml:"log_level" env:"SHARDGATE_LOG_LEVEL, overwrite"`
	LogFile     string `json:"log_file" toml:"log_file" yaml:"log_file" env:"SHARDGATE_LOG_FILE, overwrite"`
	MetricsAddr string `json:"metrics_addr" toml:"metrics_addr" yaml:"metrics_addr" env:"SHARDGATE_METRICS_ADDR, overwrite"`

	Sharding Sharding `json:"sharding" toml:"sharding" yaml:"sharding"`
	Lock     Lock     `json:"lock" toml:"lock" yaml:"lock"`
	QDB      Qdb      `json:"qdb" toml:"qdb" yaml:"qdb"`
	Catalog  Catalog  `json:"catalog" toml:"catalog" yaml:"catalog"`
	Jobs     Jobs     `json:"jobs" toml:"jobs" yaml:"jobs"`
}

type Catalog struct {
	Driver string `json:"driver" toml:"driver" yaml:"driver" env:"SHARDGATE_CATALOG_DRIVER, overwrite"`
	DSN    string `json:"dsn" toml:"dsn" yaml:"dsn" env:"SHARDGATE_CATALOG_DSN, overwrite"`
}

type Jobs struct {
	MaxParallel int `json:"max_parallel" toml:"max_parallel" yaml:"max_parallel" env:"SHARDGATE_JOBS_MAX_PARALLEL, overwrite"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig reads the configuration file (.toml, .yaml or .json), fills in
// defaults and applies SHARDGATE_* environment overrides. An empty path
// yields the defaults plus environment overrides. The second return value is
// the rendered running config.
func LoadConfig(ctx context.Context, cfgPath string) (*Config, string, error) {
	cfg := &Config{}

	if cfgPath != "" {
		file, err := os.Open(cfgPath)
		if err != nil {
			return nil, "", errors.Wrapf(err, "open config %s", cfgPath)
		}
		defer file.Close()

		if err := initConfig(file, cfg); err != nil {
			return nil, "", errors.Wrapf(err, "decode config %s", cfgPath)
		}
	}

	if err := envconfig.Process(ctx, cfg); err != nil {
		return nil, "", errors.Wrap(err, "apply environment overrides")
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, cfg.String(), nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	c.Sharding.applyDefaults()
	c.Lock.applyDefaults()
	c.QDB.applyDefaults()
	if c.Catalog.Driver == "" {
		c.Catalog.Driver = "postgres"
	}
	if c.Jobs.MaxParallel <= 0 {
		c.Jobs.MaxParallel = 4
	}
}

func (c *Config) Validate() error {
	if err := c.Sharding.Validate(); err != nil {
		return err
	}
	if err := c.Lock.Validate(); err != nil {
		return err
	}
	return c.QDB.Validate()
}

// String renders the running configuration as indented JSON, with the
// catalog DSN masked.
func (c *Config) String() string {
	cp := *c
	if cp.Catalog.DSN != "" {
		cp.Catalog.DSN = "******"
	}
	configBytes, err := json.MarshalIndent(&cp, "", "  ")
	if err != nil {
		return ""
	}
	return string(configBytes)
}
