package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/parrainage")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 60*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 5*time.Second, cfg.Postgres.TxTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Cache.StatisticsTTL)
	assert.Equal(t, 3*time.Second, cfg.Cache.WaitDeadline)
	assert.Equal(t, "cache-invalidation", cfg.Cache.Channel)
	assert.Equal(t, "sponsorship-events", cfg.Kafka.Topic)
	assert.False(t, cfg.Kafka.Enabled())
	assert.Equal(t, 90*24*time.Hour, cfg.Scheduler.Retention)
	assert.Equal(t, time.Hour, cfg.Import.PendingTimeout)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/parrainage")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("CACHE_STATISTICS_TTL", "30s")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.Enabled())
	assert.Equal(t, 30*time.Second, cfg.Cache.StatisticsTTL)
}

func TestFromEnvRequiresDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := FromEnv()
	assert.Error(t, err)
}
