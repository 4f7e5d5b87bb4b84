package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	strutil "domainhub/pkg/platform/strings"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
}

// Database captures PostgreSQL configuration. An empty URL selects the
// in-memory stores (dev mode).
type Database struct {
	URL string
}

// RedisConfig captures Redis connection settings. An empty URL disables Redis
// and token storage falls back to memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka captures the audit event sink. Empty brokers disable publishing.
type Kafka struct {
	Brokers []string
	Topic   string
}

// Sync captures reconciliation scheduling knobs.
type Sync struct {
	// Schedule is a five-field cron spec for the bulk pass.
	Schedule string
	// InterAccountDelay is the pause between accounts in a bulk run.
	InterAccountDelay time.Duration
}

// Config is the full application configuration.
type Config struct {
	Server   Server
	Database Database
	Redis    RedisConfig
	Kafka    Kafka
	Sync     Sync
	// VaultKey is the 32-byte secretbox key for credential encryption.
	VaultKey []byte
}

// FromEnv builds the configuration from environment variables so main stays
// lean. Only the vault key is validated here; everything else fails at the
// point of use.
func FromEnv() (Config, error) {
	cfg := Config{
		Server: Server{
			Addr:          envOr("DOMAINHUB_ADDR", ":8080"),
			JWTSigningKey: envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		},
		Database: Database{
			URL: os.Getenv("DATABASE_URL"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers: strutil.DedupeAndTrim(strings.Split(os.Getenv("KAFKA_BROKERS"), ",")),
			Topic:   envOr("KAFKA_AUDIT_TOPIC", "domainhub.audit"),
		},
		Sync: Sync{
			Schedule:          envOr("SYNC_SCHEDULE", "0 * * * *"),
			InterAccountDelay: envDuration("SYNC_INTER_ACCOUNT_DELAY", time.Second),
		},
	}

	keyHex := os.Getenv("VAULT_KEY")
	if keyHex == "" {
		// Dev-only default; production must set a real key.
		keyHex = "0000000000000000000000000000000000000000000000000000000000000000"
	}
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return Config{}, fmt.Errorf("VAULT_KEY must be hex: %w", err)
	}
	if len(key) != 32 {
		return Config{}, fmt.Errorf("VAULT_KEY must decode to 32 bytes, got %d", len(key))
	}
	cfg.VaultKey = key
	return cfg, nil
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

