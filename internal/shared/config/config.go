package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds worker configuration sourced from the environment.
type Config struct {
	Env                 string
	DatabaseURL         string
	PollIntervalSeconds int
	BatchSize           int
	WorkerConcurrency   int
	ObjectStoreType     string
	LocalStoreDir       string
	AWSRegion           string
	S3Bucket            string
	S3Prefix            string
	SigningProvider     string
	DocusealAPIKey      string
	DocusealBaseURL     string
	EventsQueueURL      string
	HealthPort          string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	return Config{
		Env:                 normalizeEnv(getEnv("ENV", "dev")),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		PollIntervalSeconds: getEnvInt("POLL_INTERVAL_SECONDS", 5),
		BatchSize:           getEnvInt("BATCH_SIZE", 10),
		WorkerConcurrency:   getEnvInt("WORKER_CONCURRENCY", 1),
		ObjectStoreType:     normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:       getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:           getEnv("AWS_REGION", ""),
		S3Bucket:            getEnv("S3_BUCKET", ""),
		S3Prefix:            getEnv("S3_PREFIX", ""),
		SigningProvider:     strings.ToLower(strings.TrimSpace(getEnv("SIGNING_PROVIDER", "docuseal"))),
		DocusealAPIKey:      getEnv("DOCUSEAL_API_KEY", ""),
		DocusealBaseURL:     getEnv("DOCUSEAL_BASE_URL", ""),
		EventsQueueURL:      getEnv("EVENTS_QUEUE_URL", ""),
		HealthPort:          getEnv("HEALTH_PORT", ""),
	}
}

// Validate reports configuration errors that must stop startup.
func (c Config) Validate() error {
	if c.PollIntervalSeconds < 1 {
		return fmt.Errorf("POLL_INTERVAL_SECONDS must be >= 1, got %d", c.PollIntervalSeconds)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("BATCH_SIZE must be >= 1, got %d", c.BatchSize)
	}
	if c.WorkerConcurrency < 1 {
		return fmt.Errorf("WORKER_CONCURRENCY must be >= 1, got %d", c.WorkerConcurrency)
	}
	if c.ObjectStoreType == "s3" && strings.TrimSpace(c.S3Bucket) == "" {
		return fmt.Errorf("S3_BUCKET is required when OBJECT_STORE=s3")
	}
	return nil
}

// PollInterval returns the poll interval as a duration.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return val
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}
