// Package config defines environment configuration structs and loaders.
package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type AppConfig struct {
	DHTEnvConfig
	CoordinatorEnvConfig
	RedisEnvConfig
	ServerEnvConfig
	CacheEnvConfig
	Environment  string        `env:"ENVIRONMENT" envDefault:"dev"`
	PollInterval time.Duration `env:"POLL_INTERVAL"`
}

func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DHTEnvConfig selects and configures the DHT backend.
type DHTEnvConfig struct {
	DHTBackend    string        `env:"DHT_BACKEND" envDefault:"gateway"`
	DHTGatewayURL string        `env:"DHT_GATEWAY_URL" envDefault:"http://127.0.0.1:8765"`
	DHTBeamSize   int           `env:"DHT_BEAM_SIZE" envDefault:"100"`
	DHTTimeout    time.Duration `env:"DHT_TIMEOUT" envDefault:"15s"`
	DHTKeyPrefix  string        `env:"DHT_KEY_PREFIX" envDefault:"dht:"`
}

// CoordinatorEnvConfig points at the swarm coordinator service.
type CoordinatorEnvConfig struct {
	CoordinatorURL      string        `env:"COORDINATOR_URL" envDefault:"http://127.0.0.1:8766"`
	CoordinatorTimeout  time.Duration `env:"COORDINATOR_TIMEOUT" envDefault:"10s"`
	CoordinatorRetryMax int           `env:"COORDINATOR_RETRY_MAX" envDefault:"3"`
}

// RedisEnvConfig configures Redis connection.
type RedisEnvConfig struct {
	RedisHost     string `env:"REDIS_HOST" envDefault:"127.0.0.1"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisUsername string `env:"REDIS_USERNAME"`
}

// ServerEnvConfig configures the read API server.
type ServerEnvConfig struct {
	Address       string `env:"API_HOST" envDefault:"0.0.0.0"`
	Port          int    `env:"API_PORT" envDefault:"8000"`
	BodySizeLimit int    `env:"SERVER_BODY_LIMIT" envDefault:"1048576"`
}

// CacheEnvConfig tunes the snapshot cache.
type CacheEnvConfig struct {
	GossipBudget         time.Duration `env:"GOSSIP_BUDGET" envDefault:"10s"`
	GossipLookbackRounds int           `env:"GOSSIP_LOOKBACK_ROUNDS" envDefault:"3"`
	GossipStageLimit     int           `env:"GOSSIP_STAGE_LIMIT" envDefault:"10"`
	HistoryLimit         int           `env:"HISTORY_LIMIT" envDefault:"100"`
	NameCacheSize        int           `env:"NAME_CACHE_SIZE" envDefault:"4096"`
	HealthMaxStaleness   time.Duration `env:"HEALTH_MAX_STALENESS" envDefault:"5m"`
}

// DefaultCacheConfig mirrors the envDefault values above for callers that
// build a cache without going through LoadConfig.
func DefaultCacheConfig() CacheEnvConfig {
	return CacheEnvConfig{
		GossipBudget:         10 * time.Second,
		GossipLookbackRounds: 3,
		GossipStageLimit:     10,
		HistoryLimit:         100,
		NameCacheSize:        4096,
		HealthMaxStaleness:   5 * time.Minute,
	}
}

type IntervalConfig struct {
	PollInterval time.Duration
}

var (
	DevIntervalConfig = &IntervalConfig{
		PollInterval: 5 * time.Second,
	}
	TestIntervalConfig = &IntervalConfig{
		PollInterval: 10 * time.Second,
	}

	ProdIntervalConfig = &IntervalConfig{
		PollInterval: 10 * time.Second,
	}
)

func NewIntervalConfig(environment string) *IntervalConfig {
	switch strings.ToLower(environment) {
	case "dev":
		return DevIntervalConfig
	case "test":
		return TestIntervalConfig
	case "prod":
		return ProdIntervalConfig
	}

	return DevIntervalConfig
}

// Intervals resolves the interval set for the configured environment,
// honouring an explicit POLL_INTERVAL override.
func (c *AppConfig) Intervals() *IntervalConfig {
	base := NewIntervalConfig(c.Environment)
	if c.PollInterval > 0 {
		return &IntervalConfig{PollInterval: c.PollInterval}
	}
	return base
}
