// Package config builds runtime configuration from the environment so main
// stays lean. Postgres, Redis, and Kafka are optional; when their settings
// are empty the server falls back to in-memory implementations, which keeps
// local development dependency-free.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Server struct {
	Addr            string
	JWTSigningKey   string
	JWTIssuer       string
	PostgresDSN     string
	Redis           RedisConfig
	KafkaBrokers    []string
	AuditTopic      string
	ShutdownTimeout time.Duration
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv reads STILLTRUE_* variables with development defaults.
func FromEnv() Server {
	addr := os.Getenv("STILLTRUE_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtKey := os.Getenv("STILLTRUE_JWT_SIGNING_KEY")
	if jwtKey == "" {
		// Development default - must be overridden in production.
		jwtKey = "dev-secret-key-change-in-production"
	}

	issuer := os.Getenv("STILLTRUE_JWT_ISSUER")
	if issuer == "" {
		issuer = "stilltrue"
	}

	topic := os.Getenv("STILLTRUE_AUDIT_TOPIC")
	if topic == "" {
		topic = "stilltrue.audit"
	}

	var brokers []string
	if v := os.Getenv("STILLTRUE_KAFKA_BROKERS"); v != "" {
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}

	return Server{
		Addr:            addr,
		JWTSigningKey:   jwtKey,
		JWTIssuer:       issuer,
		PostgresDSN:     os.Getenv("STILLTRUE_POSTGRES_DSN"),
		Redis:           redisFromEnv(),
		KafkaBrokers:    brokers,
		AuditTopic:      topic,
		ShutdownTimeout: durationEnv("STILLTRUE_SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func redisFromEnv() RedisConfig {
	return RedisConfig{
		URL:          os.Getenv("STILLTRUE_REDIS_URL"),
		PoolSize:     intEnv("STILLTRUE_REDIS_POOL_SIZE", 10),
		MinIdleConns: intEnv("STILLTRUE_REDIS_MIN_IDLE_CONNS", 2),
		DialTimeout:  durationEnv("STILLTRUE_REDIS_DIAL_TIMEOUT", 5*time.Second),
		ReadTimeout:  durationEnv("STILLTRUE_REDIS_READ_TIMEOUT", 3*time.Second),
		WriteTimeout: durationEnv("STILLTRUE_REDIS_WRITE_TIMEOUT", 3*time.Second),
	}
}

func intEnv(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
