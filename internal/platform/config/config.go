package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Event sinks.
const (
	SinkMemory = "memory"
	SinkLog    = "log"
	SinkRedis  = "redis"
	SinkKafka  = "kafka"
)

// EnvPrefix namespaces environment overrides, e.g. PHARMA_STORE_BACKEND.
const EnvPrefix = "PHARMA"

// Config is the full service configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Store   StoreConfig   `mapstructure:"store"`
	Events  EventsConfig  `mapstructure:"events"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Kafka   KafkaConfig   `mapstructure:"kafka"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Log     LogConfig     `mapstructure:"log"`
	Tracing TracingConfig `mapstructure:"tracing"`
	Cache   CacheConfig   `mapstructure:"cache"`
}

// ServerConfig captures HTTP server level configuration.
type ServerConfig struct {
	Addr              string        `mapstructure:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig selects and configures the batch record store.
type StoreConfig struct {
	Backend          string        `mapstructure:"backend"`
	PostgresDSN      string        `mapstructure:"postgres_dsn"`
	PostgresMaxConns int32         `mapstructure:"postgres_max_conns"`
	SQLitePath       string        `mapstructure:"sqlite_path"`
	TxTimeout        time.Duration `mapstructure:"tx_timeout"`
}

// EventsConfig selects where batch events are delivered. With a durable
// store, events are first written to the store's outbox and the relay
// forwards them to the sink.
type EventsConfig struct {
	Sink           string        `mapstructure:"sink"`
	RelayInterval  time.Duration `mapstructure:"relay_interval"`
	RelayBatchSize int           `mapstructure:"relay_batch_size"`
}

// RedisConfig configures the Redis stream sink.
type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	Stream       string        `mapstructure:"stream"`
	StreamMaxLen int64         `mapstructure:"stream_max_len"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// KafkaConfig configures the Kafka event publisher.
type KafkaConfig struct {
	Brokers           []string `mapstructure:"brokers"`
	Topic             string   `mapstructure:"topic"`
	ClientID          string   `mapstructure:"client_id"`
	Partitions        int32    `mapstructure:"partitions"`
	ReplicationFactor int16    `mapstructure:"replication_factor"`
}

// AuthConfig configures bearer token validation and issuance.
type AuthConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	Issuer     string        `mapstructure:"issuer"`
	Audience   string        `mapstructure:"audience"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Exporter    string  `mapstructure:"exporter"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	ServiceName string  `mapstructure:"service_name"`
}

// CacheConfig controls the read cache for terminal (immutable) records.
type CacheConfig struct {
	TerminalTTL     time.Duration `mapstructure:"terminal_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// Defaults returns the development configuration.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 5 * time.Second,
			RequestTimeout:    30 * time.Second,
			ShutdownTimeout:   10 * time.Second,
		},
		Store: StoreConfig{
			Backend:          StoreMemory,
			PostgresMaxConns: 10,
			SQLitePath:       "pharmachain.db",
			TxTimeout:        5 * time.Second,
		},
		Events: EventsConfig{
			Sink:           SinkLog,
			RelayInterval:  time.Second,
			RelayBatchSize: 100,
		},
		Redis: RedisConfig{
			Stream:       "batch-events",
			StreamMaxLen: 100_000,
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Topic:             "batch-events",
			ClientID:          "pharmachain",
			Partitions:        6,
			ReplicationFactor: 1,
		},
		Auth: AuthConfig{
			SigningKey: "dev-signing-key-change-in-production",
			Issuer:     "pharmachain",
			Audience:   "batch-registry",
			TokenTTL:   time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Exporter:    "stdout",
			SampleRate:  1.0,
			ServiceName: "pharmachain",
		},
		Cache: CacheConfig{
			TerminalTTL:     10 * time.Minute,
			CleanupInterval: 30 * time.Minute,
		},
	}
}

// Load resolves configuration from defaults, an optional YAML file, and
// PHARMA_* environment variables, in increasing precedence.
func Load(v *viper.Viper, file string) (Config, error) {
	setDefaults(v, Defaults())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.read_header_timeout", d.Server.ReadHeaderTimeout)
	v.SetDefault("server.request_timeout", d.Server.RequestTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	v.SetDefault("store.backend", d.Store.Backend)
	v.SetDefault("store.postgres_dsn", d.Store.PostgresDSN)
	v.SetDefault("store.postgres_max_conns", d.Store.PostgresMaxConns)
	v.SetDefault("store.sqlite_path", d.Store.SQLitePath)
	v.SetDefault("store.tx_timeout", d.Store.TxTimeout)

	v.SetDefault("events.sink", d.Events.Sink)
	v.SetDefault("events.relay_interval", d.Events.RelayInterval)
	v.SetDefault("events.relay_batch_size", d.Events.RelayBatchSize)

	v.SetDefault("redis.url", d.Redis.URL)
	v.SetDefault("redis.stream", d.Redis.Stream)
	v.SetDefault("redis.stream_max_len", d.Redis.StreamMaxLen)
	v.SetDefault("redis.pool_size", d.Redis.PoolSize)
	v.SetDefault("redis.min_idle_conns", d.Redis.MinIdleConns)
	v.SetDefault("redis.dial_timeout", d.Redis.DialTimeout)
	v.SetDefault("redis.read_timeout", d.Redis.ReadTimeout)
	v.SetDefault("redis.write_timeout", d.Redis.WriteTimeout)

	v.SetDefault("kafka.brokers", d.Kafka.Brokers)
	v.SetDefault("kafka.topic", d.Kafka.Topic)
	v.SetDefault("kafka.client_id", d.Kafka.ClientID)
	v.SetDefault("kafka.partitions", d.Kafka.Partitions)
	v.SetDefault("kafka.replication_factor", d.Kafka.ReplicationFactor)

	v.SetDefault("auth.signing_key", d.Auth.SigningKey)
	v.SetDefault("auth.issuer", d.Auth.Issuer)
	v.SetDefault("auth.audience", d.Auth.Audience)
	v.SetDefault("auth.token_ttl", d.Auth.TokenTTL)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)

	v.SetDefault("cache.terminal_ttl", d.Cache.TerminalTTL)
	v.SetDefault("cache.cleanup_interval", d.Cache.CleanupInterval)
}

// Validate rejects combinations the server cannot start with.
func (c Config) Validate() error {
	var errs []error
	switch c.Store.Backend {
	case StoreMemory:
	case StorePostgres:
		if c.Store.PostgresDSN == "" {
			errs = append(errs, errors.New("store.postgres_dsn is required for the postgres backend"))
		}
	case StoreSQLite:
		if c.Store.SQLitePath == "" {
			errs = append(errs, errors.New("store.sqlite_path is required for the sqlite backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store.backend %q", c.Store.Backend))
	}

	switch c.Events.Sink {
	case SinkMemory, SinkLog:
	case SinkRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("redis.url is required for the redis sink"))
		}
	case SinkKafka:
		if len(c.Kafka.Brokers) == 0 {
			errs = append(errs, errors.New("kafka.brokers is required for the kafka sink"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown events.sink %q", c.Events.Sink))
	}

	if c.Auth.SigningKey == "" {
		errs = append(errs, errors.New("auth.signing_key is required"))
	}
	if c.Events.RelayBatchSize <= 0 {
		errs = append(errs, errors.New("events.relay_batch_size must be positive"))
	}
	return errors.Join(errs...)
}

// DurableStore reports whether events go through an outbox and relay.
func (c Config) DurableStore() bool {
	return c.Store.Backend == StorePostgres || c.Store.Backend == StoreSQLite
}
