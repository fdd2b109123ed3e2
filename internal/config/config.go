package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/lnhm/plant-sensor-pipeline/internal/plants"
)

// AppConfig carries everything the pipeline service and the archiver read
// from the environment.
type AppConfig struct {
	// PlantAPIURL is the base endpoint; individual records live at
	// <url><integer-id>.
	PlantAPIURL string

	// BatchSize is the number of concurrent requests per extraction batch.
	BatchSize int

	// FetchInterval controls how often the pipeline runs.
	FetchInterval time.Duration

	// HTTPTimeout bounds each outbound request.
	HTTPTimeout time.Duration

	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string

	Port string

	// Archival settings.
	S3Bucket         string
	S3Prefix         string
	ArchiveRetention time.Duration
}

// Load reads configuration from environment with sensible defaults and
// validates the values the pipeline depends on.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{}

	cfg.PlantAPIURL = getenvDefault("PLANT_API_URL", plants.DefaultEndpoint)

	cfg.BatchSize = getenvInt("BATCH_SIZE", 20)
	if cfg.BatchSize < 1 {
		return nil, fmt.Errorf("BATCH_SIZE must be at least 1, got %d", cfg.BatchSize)
	}

	interval, err := time.ParseDuration(getenvDefault("FETCH_INTERVAL", "1m"))
	if err != nil {
		return nil, fmt.Errorf("invalid FETCH_INTERVAL: %w", err)
	}
	cfg.FetchInterval = interval

	timeout, err := time.ParseDuration(getenvDefault("HTTP_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	cfg.DBHost = getenvDefault("DB_HOST", "localhost")
	cfg.DBPort = getenvDefault("DB_PORT", "5432")
	cfg.DBName = os.Getenv("DB_NAME")
	cfg.DBUser = os.Getenv("DB_USERNAME")
	cfg.DBPassword = os.Getenv("DB_PASSWORD")
	if cfg.DBName == "" || cfg.DBUser == "" {
		return nil, fmt.Errorf("DB_NAME and DB_USERNAME are required")
	}

	cfg.Port = getenvDefault("PORT", "8080")

	cfg.S3Bucket = os.Getenv("S3_BUCKET")
	cfg.S3Prefix = getenvDefault("S3_PREFIX", "archive/")

	retention, err := time.ParseDuration(getenvDefault("ARCHIVE_RETENTION", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid ARCHIVE_RETENTION: %w", err)
	}
	cfg.ArchiveRetention = retention

	return cfg, nil
}

// DatabaseURL builds the Postgres connection string.
func (c *AppConfig) DatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     c.DBHost + ":" + c.DBPort,
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
