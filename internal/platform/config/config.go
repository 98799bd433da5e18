package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	EnvironmentDevelopment = "development"
	EnvironmentProduction  = "production"
)

// Config captures process level configuration.
type Config struct {
	Server  Server
	AWS     AWSConfig
	OCR     OCRConfig
	Usage   UsageConfig
	Redis   RedisConfig
	Logging LoggingConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	Environment   string
	JWTSigningKey string
}

// AWSConfig selects the region and, optionally, static credentials. When
// either key is missing the SDK default credential chain is used.
type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// OCRConfig drives strategy selection and async polling.
type OCRConfig struct {
	Bucket         string
	MaxSyncBytes   int64
	PollInterval   time.Duration
	PollAttempts   int
	MaxUploadBytes int64
}

// UsageConfig is the per-caller analysis quota.
type UsageConfig struct {
	Limit  int
	Window time.Duration
}

// RedisConfig configures the optional durable usage store. An empty URL
// keeps counters in memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

// Defaults
const (
	DefaultMaxSyncBytes   = 5 * 1024 * 1024
	DefaultPollInterval   = 1500 * time.Millisecond
	DefaultPollAttempts   = 20
	DefaultMaxUploadBytes = 20 * 1024 * 1024
	DefaultUsageLimit     = 5
	DefaultUsageWindow    = time.Hour
	DefaultRegion         = "us-east-1"
)

// FromEnv builds a Config from environment variables so main stays lean.
// Malformed numbers and durations are reported rather than silently replaced.
func FromEnv() (Config, error) {
	var errs []error
	intVar := func(key string, def int) int {
		v, err := envInt(key, def)
		errs = append(errs, err)
		return v
	}
	int64Var := func(key string, def int64) int64 {
		v, err := envInt64(key, def)
		errs = append(errs, err)
		return v
	}
	durVar := func(key string, def time.Duration) time.Duration {
		v, err := envDuration(key, def)
		errs = append(errs, err)
		return v
	}

	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = envOr("AWS_DEFAULT_REGION", DefaultRegion)
	}

	cfg := Config{
		Server: Server{
			Addr:          envOr("PAYTHRU_ADDR", ":8080"),
			Environment:   strings.ToLower(envOr("ENVIRONMENT", EnvironmentProduction)),
			JWTSigningKey: os.Getenv("JWT_SIGNING_KEY"),
		},
		AWS: AWSConfig{
			Region:          region,
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		},
		OCR: OCRConfig{
			Bucket:         os.Getenv("AWS_TEXTRACT_BUCKET"),
			MaxSyncBytes:   int64Var("AWS_MAX_SYNC_BYTES", DefaultMaxSyncBytes),
			PollInterval:   durVar("OCR_POLL_INTERVAL", DefaultPollInterval),
			PollAttempts:   intVar("OCR_POLL_ATTEMPTS", DefaultPollAttempts),
			MaxUploadBytes: int64Var("OCR_MAX_UPLOAD_BYTES", DefaultMaxUploadBytes),
		},
		Usage: UsageConfig{
			Limit:  intVar("OCR_USAGE_LIMIT", DefaultUsageLimit),
			Window: durVar("OCR_USAGE_WINDOW", DefaultUsageWindow),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     intVar("REDIS_POOL_SIZE", 10),
			MinIdleConns: intVar("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  durVar("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  durVar("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: durVar("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Logging: LoggingConfig{
			Level:  strings.ToLower(envOr("LOG_LEVEL", "info")),
			Format: strings.ToLower(envOr("LOG_FORMAT", "json")),
		},
	}
	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// IsDevelopment reports whether the usage limiter should be bypassed.
func (c Config) IsDevelopment() bool {
	return c.Server.Environment == EnvironmentDevelopment
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.OCR.MaxSyncBytes <= 0 {
		errs = append(errs, errors.New("AWS_MAX_SYNC_BYTES must be positive"))
	}
	if c.OCR.PollInterval <= 0 {
		errs = append(errs, errors.New("OCR_POLL_INTERVAL must be positive"))
	}
	if c.OCR.PollAttempts <= 0 {
		errs = append(errs, errors.New("OCR_POLL_ATTEMPTS must be positive"))
	}
	if c.OCR.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("OCR_MAX_UPLOAD_BYTES must be positive"))
	}
	if c.Usage.Limit <= 0 {
		errs = append(errs, errors.New("OCR_USAGE_LIMIT must be positive"))
	}
	if c.Usage.Window <= 0 {
		errs = append(errs, errors.New("OCR_USAGE_WINDOW must be positive"))
	}
	if c.AWS.Region == "" {
		errs = append(errs, errors.New("AWS region is required"))
	}
	return errors.Join(errs...)
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func envInt64(key string, def int64) (int64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}
