package ferry

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gobeaver/beaver-kit/config"
)

type Config struct {
	// Profile store location. Empty means ~/.ferry/connections.json
	StorePath string `env:"FERRY_STORE_PATH"`

	// Batch upload worker limit and per-file retries
	Concurrency int    `env:"FERRY_CONCURRENCY,default:5"`
	Retries     int    `env:"FERRY_RETRIES,default:3"`
	RetryDelay  string `env:"FERRY_RETRY_DELAY,default:0s"`

	// Connect deadline for every session
	ConnectTimeout string `env:"FERRY_CONNECT_TIMEOUT,default:30s"`

	// Project ignore file consulted by sync, before .gitignore
	IgnoreFile string `env:"FERRY_IGNORE_FILE,default:.ferryignore"`

	// SSH host key verification
	KnownHostsFile        string `env:"FERRY_KNOWN_HOSTS"`
	InsecureIgnoreHostKey bool   `env:"FERRY_INSECURE_HOST_KEY,default:false"`

	// FTPS certificate verification
	InsecureSkipVerify bool `env:"FERRY_INSECURE_SKIP_VERIFY,default:false"`

	// Sync watch mode event coalescing window
	WatchDebounce string `env:"FERRY_WATCH_DEBOUNCE,default:500ms"`

	// debug, info, warn or error
	LogLevel string `env:"FERRY_LOG_LEVEL,default:info"`
}

// GetConfig returns config loaded from environment
func GetConfig() (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfig returns the configuration used when nothing is set in the
// environment.
func DefaultConfig() *Config {
	return &Config{
		Concurrency:    5,
		Retries:        3,
		RetryDelay:     "0s",
		ConnectTimeout: "30s",
		IgnoreFile:     ".ferryignore",
		WatchDebounce:  "500ms",
		LogLevel:       "info",
	}
}

// settings is the parsed form of Config.
type settings struct {
	storePath      string
	concurrency    int
	retry          RetryConfig
	connectTimeout time.Duration
	ignoreFile     string
	debounce       time.Duration
	logLevel       slog.Level
}

// validateConfig checks configuration validity and parses durations
func validateConfig(cfg *Config) (*settings, error) {
	if cfg.Concurrency < 1 {
		return nil, fmt.Errorf("concurrency must be at least 1 (got %d)", cfg.Concurrency)
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must not be negative (got %d)", cfg.Retries)
	}

	retryDelay, err := parseDuration("retry delay", cfg.RetryDelay, 0)
	if err != nil {
		return nil, err
	}
	connectTimeout, err := parseDuration("connect timeout", cfg.ConnectTimeout, DefaultConnectTimeout)
	if err != nil {
		return nil, err
	}
	debounce, err := parseDuration("watch debounce", cfg.WatchDebounce, defaultDebounce)
	if err != nil {
		return nil, err
	}
	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	storePath := cfg.StorePath
	if storePath == "" {
		storePath = DefaultStorePath()
	}

	return &settings{
		storePath:      ExpandPath(storePath),
		concurrency:    cfg.Concurrency,
		retry:          RetryConfig{MaxRetries: cfg.Retries, Delay: retryDelay},
		connectTimeout: connectTimeout,
		ignoreFile:     cfg.IgnoreFile,
		debounce:       debounce,
		logLevel:       level,
	}, nil
}

func parseDuration(name, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s %q: must not be negative", name, value)
	}
	return d, nil
}

func parseLevel(value string) (slog.Level, error) {
	switch strings.ToLower(value) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", value)
	}
}
