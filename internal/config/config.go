package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	HTTPAddr string

	RedisAddr string
	RedisPass string

	KafkaBrokers []string
	KafkaTopic   string

	// Reconciler: PENDING transactions older than StaleAfter are swept to
	// FAILED every SweepInterval.
	SweepInterval time.Duration
	StaleAfter    time.Duration
}

func Load() AppConfig {
	return AppConfig{
		HTTPAddr:      getEnv("HTTP_ADDR", ":8080"),
		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPass:     getEnv("REDIS_PASS", ""),
		KafkaBrokers:  getEnvSlice("KAFKA_BROKERS", []string{"kafka:9092"}),
		KafkaTopic:    getEnv("KAFKA_NOTIFY_TOPIC", "ledger.notifications"),
		SweepInterval: getEnvDuration("RECONCILE_INTERVAL", time.Minute),
		StaleAfter:    getEnvDuration("RECONCILE_STALE_AFTER", 15*time.Minute),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		return strings.Split(v, ",")
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(v); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return fallback
}
