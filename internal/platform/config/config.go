package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full process configuration, loaded from the environment.
type Config struct {
	Server    Server
	Postgres  PostgresConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Cache     CacheConfig
	Import    ImportConfig
	Scheduler SchedulerConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `env:"PARRAINAGE_ADDR" envDefault:":8080"`
	LogLevel        string        `env:"PARRAINAGE_LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"PARRAINAGE_SHUTDOWN_TIMEOUT" envDefault:"15s"`

	ReadHeaderTimeout time.Duration `env:"PARRAINAGE_READ_HEADER_TIMEOUT" envDefault:"5s"`
	ReadTimeout       time.Duration `env:"PARRAINAGE_READ_TIMEOUT" envDefault:"60s"`
	// WriteTimeout must stay above the handler request timeout or slow
	// imports are cut before they can answer.
	WriteTimeout time.Duration `env:"PARRAINAGE_WRITE_TIMEOUT" envDefault:"60s"`
	IdleTimeout  time.Duration `env:"PARRAINAGE_IDLE_TIMEOUT" envDefault:"120s"`
}

// PostgresConfig configures the ledger store.
type PostgresConfig struct {
	DSN             string        `env:"DATABASE_URL"`
	MaxOpenConns    int           `env:"DATABASE_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"DATABASE_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DATABASE_CONN_MAX_LIFETIME" envDefault:"30m"`
	TxTimeout       time.Duration `env:"DATABASE_TX_TIMEOUT" envDefault:"5s"`
	ApplySchema     bool          `env:"DATABASE_APPLY_SCHEMA" envDefault:"true"`
}

// RedisConfig configures the shared cache store. An empty URL selects the
// in-memory store.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// KafkaConfig configures domain event fan-out. No brokers disables it.
type KafkaConfig struct {
	Brokers       []string      `env:"KAFKA_BROKERS" envSeparator:","`
	Topic         string        `env:"KAFKA_TOPIC" envDefault:"sponsorship-events"`
	ConsumerGroup string        `env:"KAFKA_CONSUMER_GROUP"`
	Partitions    int32         `env:"KAFKA_PARTITIONS" envDefault:"3"`
	RelayInterval time.Duration `env:"OUTBOX_RELAY_INTERVAL" envDefault:"1s"`
	RelayBatch    int           `env:"OUTBOX_RELAY_BATCH" envDefault:"100"`
}

// Enabled reports whether any broker is configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// CacheConfig tunes the statistics cache coordinator.
type CacheConfig struct {
	StatisticsTTL time.Duration `env:"CACHE_STATISTICS_TTL" envDefault:"5m"`
	LockTTL       time.Duration `env:"CACHE_LOCK_TTL" envDefault:"5s"`
	WaitDeadline  time.Duration `env:"CACHE_WAIT_DEADLINE" envDefault:"3s"`
	LocalTTL      time.Duration `env:"CACHE_LOCAL_TTL" envDefault:"2s"`
	Channel       string        `env:"CACHE_INVALIDATION_CHANNEL" envDefault:"cache-invalidation"`
}

// ImportConfig bounds roll uploads.
type ImportConfig struct {
	MaxUploadBytes int64 `env:"IMPORT_MAX_UPLOAD_BYTES" envDefault:"67108864"`

	// PendingTimeout is how long an unfinished upload may block promotion.
	PendingTimeout time.Duration `env:"IMPORT_PENDING_TIMEOUT" envDefault:"1h"`
}

// SchedulerConfig controls the periodic jobs.
type SchedulerConfig struct {
	Enabled       bool          `env:"SCHEDULER_ENABLED" envDefault:"true"`
	ExpirySpec    string        `env:"SCHEDULER_EXPIRY_SPEC" envDefault:"@every 1h"`
	WarmupSpec    string        `env:"SCHEDULER_WARMUP_SPEC" envDefault:"@every 5m"`
	RetentionSpec string        `env:"SCHEDULER_RETENTION_SPEC" envDefault:"@daily"`
	Retention     time.Duration `env:"IMPORT_RETENTION" envDefault:"2160h"`
	WarmupWorkers int           `env:"SCHEDULER_WARMUP_WORKERS" envDefault:"4"`
}

// FromEnv builds the process config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Postgres.DSN == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}
