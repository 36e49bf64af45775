package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures process-level configuration. Built from environment
// variables so main stays lean.
type Config struct {
	Addr string
	// BaseURL is the public URL embedded in confirmation emails.
	BaseURL string

	PostgresDSN string
	Redis       RedisConfig
	SMTP        SMTPConfig

	// JWTSigningKey signs token values minted by the token vault.
	JWTSigningKey string
	// TokenTTL is the sliding lifetime applied on each token upsert.
	TokenTTL time.Duration

	// KafkaBrokers enables the audit Kafka sink when non-empty.
	KafkaBrokers []string
	AuditTopic   string
}

// RedisConfig configures the optional Redis-backed token store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// SMTPConfig configures the email dispatcher.
type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// FromEnv builds a Config from environment variables with development
// defaults.
func FromEnv() Config {
	cfg := Config{
		Addr:          envOr("LABORX_ADDR", ":8080"),
		BaseURL:       envOr("LABORX_BASE_URL", "http://localhost:8080"),
		PostgresDSN:   os.Getenv("LABORX_POSTGRES_DSN"),
		JWTSigningKey: envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		TokenTTL:      envDuration("LABORX_TOKEN_TTL", 24*time.Hour),
		AuditTopic:    envOr("LABORX_AUDIT_TOPIC", "verification.audit"),
	}

	if brokers := os.Getenv("LABORX_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	cfg.Redis = RedisConfig{
		URL:          os.Getenv("LABORX_REDIS_URL"),
		PoolSize:     envInt("LABORX_REDIS_POOL_SIZE", 10),
		MinIdleConns: envInt("LABORX_REDIS_MIN_IDLE", 2),
		DialTimeout:  envDuration("LABORX_REDIS_DIAL_TIMEOUT", 5*time.Second),
		ReadTimeout:  envDuration("LABORX_REDIS_READ_TIMEOUT", 3*time.Second),
		WriteTimeout: envDuration("LABORX_REDIS_WRITE_TIMEOUT", 3*time.Second),
	}

	cfg.SMTP = SMTPConfig{
		Host: envOr("LABORX_SMTP_HOST", "localhost"),
		Port: envInt("LABORX_SMTP_PORT", 587),
		User: os.Getenv("LABORX_SMTP_USER"),
		Pass: os.Getenv("LABORX_SMTP_PASS"),
		From: envOr("LABORX_SMTP_FROM", "no-reply@laborx.io"),
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
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return fallback
}
