package config

import (
	"errors"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if POKERDOTS_CONFIG is set
//  3. env (prefix POKERDOTS_)
func Load() (*Config, error) {
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("POKERDOTS_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// Environment variables: POKERDOTS_ADDR, POKERDOTS_POSTGRES_DSN, ...
	// Map env keys like POKERDOTS_POSTGRES_DSN -> postgres_dsn (flat keys).
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("POKERDOTS_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "pokerdots_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	// Basic validation
	if cfg.Addr == "" {
		return nil, errors.New("addr must not be empty")
	}
	if !cfg.UseMemory && (cfg.PostgresDSN == "" || cfg.ClickHouseDSN == "") {
		return nil, errors.New("postgres_dsn and clickhouse_dsn must be set unless use_memory is enabled")
	}
	if cfg.IngestBatchSize <= 0 {
		return nil, errors.New("ingest_batch_size must be positive")
	}
	if cfg.SchedulerEnabled && cfg.SchedulerBaseAmount <= 0 {
		return nil, errors.New("scheduler_base_amount must be positive when the scheduler is enabled")
	}
	return &cfg, nil
}
