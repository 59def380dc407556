package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/anime-shed/blur-effect-go/internal/analyzer"
	"github.com/anime-shed/blur-effect-go/internal/storage"
	"github.com/anime-shed/blur-effect-go/internal/strategy"

	"github.com/joho/godotenv"
)

type Config struct {
	Host               string
	Port               string
	RequestTimeout     time.Duration
	ImageFetchTimeout  time.Duration
	AnalysisTimeout    time.Duration
	MaxRequestBodySize int64

	// MaxImagePixels bounds width*height before any image is decoded
	MaxImagePixels int64

	// Blur estimation defaults applied when a request leaves them unset
	BlurWindowSize int
	BlurAggregate  string
	BlurThreshold  float64

	// DatabasePath of the SQLite analysis history; empty disables persistence
	DatabasePath string

	AzureStorageAccount string
	AzureStorageKey     string

	// LocalImageRoot enables file:// URLs confined to this directory
	LocalImageRoot string

	LogLevel  string
	LogFormat string
}

func (c *Config) ServerAddress() string {
	// Trim any whitespace from host and port
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// AzureEnabled reports whether blob credentials were configured
func (c *Config) AzureEnabled() bool {
	return c.AzureStorageAccount != "" && c.AzureStorageKey != ""
}

// Load reads the given dotenv files, or .env when none are given, and then
// the environment. Missing files are ignored and existing variables win.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}
	return LoadFromEnv()
}

func LoadFromEnv() (*Config, error) {
	// Set defaults
	cfg := &Config{
		Host:               getEnvOrDefault("HOST", "0.0.0.0"),
		Port:               getEnvOrDefault("PORT", "8080"),
		RequestTimeout:     parseDurationOrDefault("REQUEST_TIMEOUT", 30*time.Second),
		ImageFetchTimeout:  parseDurationOrDefault("IMAGE_FETCH_TIMEOUT", 15*time.Second),
		AnalysisTimeout:    parseDurationOrDefault("ANALYSIS_TIMEOUT", 20*time.Second),
		MaxRequestBodySize: parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 10*1024*1024), // 10MB
		MaxImagePixels:     parseIntOrDefault("MAX_IMAGE_PIXELS", storage.DefaultMaxImagePixels),

		BlurWindowSize: int(parseIntOrDefault("BLUR_WINDOW_SIZE", analyzer.DefaultWindowSize)),
		BlurAggregate:  strings.ToLower(strings.TrimSpace(getEnvOrDefault("BLUR_AGGREGATE", strategy.DefaultStrategy))),
		BlurThreshold:  parseFloatOrDefault("BLUR_THRESHOLD", analyzer.DefaultBlurThreshold),

		DatabasePath: strings.TrimSpace(os.Getenv("DATABASE_PATH")),

		AzureStorageAccount: strings.TrimSpace(os.Getenv("AZURE_STORAGE_ACCOUNT")),
		AzureStorageKey:     strings.TrimSpace(os.Getenv("AZURE_STORAGE_KEY")),

		LocalImageRoot: strings.TrimSpace(os.Getenv("LOCAL_IMAGE_ROOT")),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "json"),
	}

	// Validate port is numeric and in range
	p, err := strconv.Atoi(strings.TrimSpace(cfg.Port))
	if err != nil || p < 1 || p > 65535 {
		return nil, fmt.Errorf("invalid PORT: %q", cfg.Port)
	}
	if cfg.MaxRequestBodySize <= 0 {
		return nil, fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", cfg.MaxRequestBodySize)
	}
	if cfg.MaxImagePixels <= 0 {
		return nil, fmt.Errorf("MAX_IMAGE_PIXELS must be > 0 (got %d)", cfg.MaxImagePixels)
	}
	if cfg.RequestTimeout <= 0 || cfg.ImageFetchTimeout <= 0 || cfg.AnalysisTimeout <= 0 {
		return nil, fmt.Errorf("timeouts must be > 0 (got request=%s, fetch=%s, analysis=%s)",
			cfg.RequestTimeout, cfg.ImageFetchTimeout, cfg.AnalysisTimeout)
	}
	if cfg.BlurWindowSize < 1 {
		return nil, fmt.Errorf("BLUR_WINDOW_SIZE must be >= 1 (got %d)", cfg.BlurWindowSize)
	}
	if _, err := strategy.Lookup(cfg.BlurAggregate); err != nil {
		return nil, fmt.Errorf("invalid BLUR_AGGREGATE: %w", err)
	}
	if cfg.BlurThreshold <= 0 || cfg.BlurThreshold > 1 {
		return nil, fmt.Errorf("BLUR_THRESHOLD must be in (0, 1] (got %g)", cfg.BlurThreshold)
	}
	if (cfg.AzureStorageAccount == "") != (cfg.AzureStorageKey == "") {
		return nil, fmt.Errorf("AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY must be set together")
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return f
		}
	}
	return defaultValue
}
