// Package config loads daemon configuration from the environment so main
// stays lean.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Server is the partition server daemon configuration.
type Server struct {
	// RingGroupName selects the cluster scope this host belongs to.
	RingGroupName string

	// NumConcurrentGets sizes the lookup worker pool and bounds peak
	// in-flight reads.
	NumConcurrentGets int

	// Host and Port form this host's identity in cluster metadata. They
	// must match the coordinator's host record exactly.
	Host string
	Port int

	// DataAddr is the data API listen address; OpsAddr serves metrics and
	// health.
	DataAddr string
	OpsAddr  string

	// CoordinatorBackend selects where cluster metadata is loaded from:
	// "postgres" or "redis".
	CoordinatorBackend string
	PostgresURL        string
	Redis              RedisConfig

	// Kafka event publishing is optional; empty brokers disable it.
	KafkaBrokers []string
	KafkaTopic   string
}

// RedisConfig configures the redis client.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables.
func FromEnv() (Server, error) {
	host := os.Getenv("RINGKV_HOST")
	if host == "" {
		h, err := os.Hostname()
		if err != nil {
			return Server{}, fmt.Errorf("resolve hostname: %w", err)
		}
		host = h
	}

	port, err := envInt("RINGKV_PORT", 9090)
	if err != nil {
		return Server{}, err
	}
	numConcurrentGets, err := envInt("RINGKV_NUM_CONCURRENT_GETS", 32)
	if err != nil {
		return Server{}, err
	}
	if numConcurrentGets <= 0 {
		return Server{}, fmt.Errorf("RINGKV_NUM_CONCURRENT_GETS must be positive, got %d", numConcurrentGets)
	}

	cfg := Server{
		RingGroupName:      envOr("RINGKV_RING_GROUP", "default"),
		NumConcurrentGets:  numConcurrentGets,
		Host:               host,
		Port:               port,
		DataAddr:           envOr("RINGKV_DATA_ADDR", ":9090"),
		OpsAddr:            envOr("RINGKV_OPS_ADDR", ":9091"),
		CoordinatorBackend: os.Getenv("RINGKV_COORDINATOR_BACKEND"),
		PostgresURL:        os.Getenv("RINGKV_POSTGRES_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("RINGKV_REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		KafkaTopic: envOr("RINGKV_KAFKA_TOPIC", "ringkv.serving.events"),
	}
	if brokers := os.Getenv("RINGKV_KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}
	return cfg, nil
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func envInt(name string, fallback int) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return n, nil
}
