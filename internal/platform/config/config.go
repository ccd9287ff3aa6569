// Package config builds runtime configuration from the environment so main
// stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	platformstrings "credentry/pkg/platform/strings"
)

// Server captures process level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
	LogLevel        string

	// GenesisAdminAddress seeds the registry's first super admin. The
	// process refuses to start without it on an empty registry.
	GenesisAdminAddress string
	GenesisAdminName    string

	JWTSigningKey string

	// DatabaseURL selects the postgres-backed stores when set; the
	// in-memory stores serve otherwise.
	DatabaseURL string

	Redis RedisConfig
	Kafka KafkaConfig
}

// RedisConfig captures verification cache settings. An empty URL disables
// the cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	VerifyTTL    time.Duration
}

// KafkaConfig captures event streaming settings. No brokers means events
// stay in the local event store only.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	cfg := Server{
		Addr:            envOr("CREDENTRY_ADDR", ":8080"),
		ShutdownTimeout: envDuration("CREDENTRY_SHUTDOWN_TIMEOUT", 15*time.Second),
		LogLevel:        envOr("CREDENTRY_LOG_LEVEL", "info"),

		GenesisAdminAddress: os.Getenv("CREDENTRY_GENESIS_ADMIN"),
		GenesisAdminName:    envOr("CREDENTRY_GENESIS_ADMIN_NAME", "Registry Operator"),

		JWTSigningKey: os.Getenv("CREDENTRY_JWT_SIGNING_KEY"),
		DatabaseURL:   os.Getenv("CREDENTRY_DATABASE_URL"),

		Redis: RedisConfig{
			URL:          os.Getenv("CREDENTRY_REDIS_URL"),
			PoolSize:     envInt("CREDENTRY_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("CREDENTRY_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("CREDENTRY_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("CREDENTRY_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("CREDENTRY_REDIS_WRITE_TIMEOUT", 3*time.Second),
			VerifyTTL:    envDuration("CREDENTRY_VERIFY_CACHE_TTL", 5*time.Minute),
		},
		Kafka: KafkaConfig{
			Topic: envOr("CREDENTRY_KAFKA_TOPIC", "credentry.registry-events"),
		},
	}
	if brokers := os.Getenv("CREDENTRY_KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = platformstrings.DedupeAndTrim(strings.Split(brokers, ","))
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
