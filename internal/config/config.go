package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultWhere is the filter sent as $where when none is configured
	DefaultWhere = "time > '2022-07-03' and airline = 'United'"
	// DefaultLimit is the row cap sent as $limit
	DefaultLimit = 1500
	// DefaultBucket and DefaultKey name the export destination. Every run overwrites it.
	DefaultBucket = "sfo-flights"
	DefaultKey    = "experimental/flights_test.csv"

	// ConfigPathEnv overrides the config file search path
	ConfigPathEnv = "SFO_FLIGHTS_CONFIG_PATH"
)

// Config holds all configuration for one export run
type Config struct {
	API      APIConfig
	Storage  StorageConfig
	Retry    RetryConfig
	Schedule ScheduleConfig
	Log      LogConfig
}

// APIConfig describes the open-data endpoint the flights are fetched from
type APIConfig struct {
	URL     string
	Key     string
	Where   string
	Limit   int
	Timeout time.Duration
}

// StorageConfig describes where the CSV export is written
type StorageConfig struct {
	Backend         string // "s3" or "sqlite"
	Bucket          string
	Key             string
	Region          string
	Endpoint        string // optional, for S3-compatible stores
	PathStyle       bool
	AccessKeyID     string
	SecretAccessKey string
	SQLitePath      string
}

// RetryConfig holds the bounded retry policy applied to the fetch and upload steps
type RetryConfig struct {
	FetchAttempts  int
	UploadAttempts int
	Delay          time.Duration
	Exponential    bool
}

// ScheduleConfig is only used by the long-running schedule mode
type ScheduleConfig struct {
	Interval time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
}

// Load loads configuration from config file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("api.url", "")
	v.SetDefault("api.key", "")
	v.SetDefault("api.where", DefaultWhere)
	v.SetDefault("api.limit", DefaultLimit)
	v.SetDefault("api.timeout", "30s")
	v.SetDefault("storage.backend", "s3")
	v.SetDefault("storage.bucket", DefaultBucket)
	v.SetDefault("storage.key", DefaultKey)
	v.SetDefault("storage.region", "us-west-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.path_style", false)
	v.SetDefault("storage.access_key_id", "")
	v.SetDefault("storage.secret_access_key", "")
	v.SetDefault("storage.sqlite_path", "sfo_flights.db")
	v.SetDefault("retry.fetch_attempts", 3)
	v.SetDefault("retry.upload_attempts", 2)
	v.SetDefault("retry.delay", "0s")
	v.SetDefault("retry.exponential", false)
	v.SetDefault("schedule.interval", "1h")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/sfo_flights")
	v.AddConfigPath(".")

	if configPath := os.Getenv(ConfigPathEnv); configPath != "" {
		v.SetConfigFile(configPath)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file: defaults + env vars
	}

	v.SetEnvPrefix("SFO_FLIGHTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		API: APIConfig{
			URL:     v.GetString("api.url"),
			Key:     v.GetString("api.key"),
			Where:   v.GetString("api.where"),
			Limit:   v.GetInt("api.limit"),
			Timeout: v.GetDuration("api.timeout"),
		},
		Storage: StorageConfig{
			Backend:         strings.ToLower(v.GetString("storage.backend")),
			Bucket:          v.GetString("storage.bucket"),
			Key:             v.GetString("storage.key"),
			Region:          v.GetString("storage.region"),
			Endpoint:        v.GetString("storage.endpoint"),
			PathStyle:       v.GetBool("storage.path_style"),
			AccessKeyID:     v.GetString("storage.access_key_id"),
			SecretAccessKey: v.GetString("storage.secret_access_key"),
			SQLitePath:      v.GetString("storage.sqlite_path"),
		},
		Retry: RetryConfig{
			FetchAttempts:  v.GetInt("retry.fetch_attempts"),
			UploadAttempts: v.GetInt("retry.upload_attempts"),
			Delay:          v.GetDuration("retry.delay"),
			Exponential:    v.GetBool("retry.exponential"),
		},
		Schedule: ScheduleConfig{
			Interval: v.GetDuration("schedule.interval"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// validate validates the configuration values
func validate(cfg *Config) error {
	if cfg.API.URL == "" {
		return fmt.Errorf("api.url is required")
	}

	if cfg.API.Limit <= 0 {
		return fmt.Errorf("api.limit must be greater than 0")
	}

	if cfg.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be greater than 0")
	}

	switch cfg.Storage.Backend {
	case "s3":
	case "sqlite":
		if cfg.Storage.SQLitePath == "" {
			return fmt.Errorf("storage.sqlite_path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("invalid storage backend: %s (must be s3 or sqlite)", cfg.Storage.Backend)
	}

	if cfg.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required")
	}

	if cfg.Storage.Key == "" {
		return fmt.Errorf("storage.key is required")
	}

	if cfg.Retry.FetchAttempts <= 0 || cfg.Retry.UploadAttempts <= 0 {
		return fmt.Errorf("retry attempts must be greater than 0")
	}

	if cfg.Retry.Delay < 0 {
		return fmt.Errorf("retry.delay must not be negative")
	}

	if cfg.Schedule.Interval <= 0 {
		return fmt.Errorf("schedule.interval must be greater than 0")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(cfg.Log.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", cfg.Log.Level)
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[strings.ToLower(cfg.Log.Format)] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", cfg.Log.Format)
	}

	return nil
}
