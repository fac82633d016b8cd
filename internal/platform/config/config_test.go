package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, StoreMemory, cfg.Store.Backend)
	assert.Equal(t, SinkLog, cfg.Events.Sink)
	assert.Equal(t, 5*time.Second, cfg.Store.TxTimeout)
	assert.False(t, cfg.DurableStore())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PHARMA_STORE_BACKEND", "sqlite")
	t.Setenv("PHARMA_STORE_SQLITE_PATH", "/tmp/batches.db")
	t.Setenv("PHARMA_EVENTS_RELAY_INTERVAL", "250ms")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, StoreSQLite, cfg.Store.Backend)
	assert.Equal(t, "/tmp/batches.db", cfg.Store.SQLitePath)
	assert.Equal(t, 250*time.Millisecond, cfg.Events.RelayInterval)
	assert.True(t, cfg.DurableStore())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
server:
  addr: ":9090"
events:
  sink: kafka
kafka:
  brokers: ["localhost:9092"]
  topic: custody
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, SinkKafka, cfg.Events.Sink)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "custody", cfg.Kafka.Topic)
	assert.Equal(t, int32(6), cfg.Kafka.Partitions)
}

func TestValidate(t *testing.T) {
	t.Run("postgres requires dsn", func(t *testing.T) {
		cfg := Defaults()
		cfg.Store.Backend = StorePostgres
		assert.ErrorContains(t, cfg.Validate(), "postgres_dsn")
	})

	t.Run("unknown sink", func(t *testing.T) {
		cfg := Defaults()
		cfg.Events.Sink = "carrier-pigeon"
		assert.ErrorContains(t, cfg.Validate(), "events.sink")
	})

	t.Run("redis sink requires url", func(t *testing.T) {
		cfg := Defaults()
		cfg.Events.Sink = SinkRedis
		assert.ErrorContains(t, cfg.Validate(), "redis.url")
	})

	t.Run("defaults are valid", func(t *testing.T) {
		assert.NoError(t, Defaults().Validate())
	})
}
