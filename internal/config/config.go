package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/docker/go-units"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Worker settings for the statistics reduction.
	Workers          int
	ThreadsPerWorker int
	WorkerMemory     int64
	BlockShape       [2]int

	ReportCacheSize int
	// SanitizedSuffix, when set, writes each sanitized dataset next to its
	// input with this suffix inserted before the extension.
	SanitizedSuffix string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	workers, err := parsePositiveInt("N_WORKERS", 4)
	if err != nil {
		return nil, err
	}
	threads, err := parsePositiveInt("THREADS_PER_WORKER", 2)
	if err != nil {
		return nil, err
	}

	memory, err := units.RAMInBytes(sharedcfg.EnvOrDefault("WORKER_MEMORY", "8GB"))
	if err != nil || memory <= 0 {
		return nil, errors.New("invalid WORKER_MEMORY")
	}

	blockShape, err := parseBlockShape(sharedcfg.EnvOrDefault("BLOCK_SHAPE", "128,128"))
	if err != nil {
		return nil, err
	}

	cacheSize, err := parsePositiveInt("REPORT_CACHE_SIZE", 256)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "tropo-input-ready"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "tropo-validation-reports"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "tropo-validator"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		Workers:          workers,
		ThreadsPerWorker: threads,
		WorkerMemory:     memory,
		BlockShape:       blockShape,

		ReportCacheSize: cacheSize,
		SanitizedSuffix: os.Getenv("SANITIZED_SUFFIX"),
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}

	return cfg, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

// parseBlockShape reads "rows,cols".
func parseBlockShape(s string) ([2]int, error) {
	var shape [2]int
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return shape, fmt.Errorf("invalid BLOCK_SHAPE %q: want rows,cols", s)
	}
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n <= 0 {
			return shape, fmt.Errorf("invalid BLOCK_SHAPE %q: want positive rows,cols", s)
		}
		shape[i] = n
	}
	return shape, nil
}
