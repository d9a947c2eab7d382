package goSession

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/api"
	"github.com/MrEthical07/goSession/guard"
	"github.com/MrEthical07/goSession/transport"
)

// Config is the full client configuration. The zero value is not valid; start
// from [DefaultConfig].
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Refresh RefreshConfig `yaml:"refresh"`
	Guard   GuardConfig   `yaml:"guard"`
	Audit   AuditConfig   `yaml:"audit"`
	Metrics MetricsConfig `yaml:"metrics"`
	Storage StorageConfig `yaml:"storage"`
}

/*
====================================
HTTP CONFIG
====================================
*/

// HTTPConfig addresses the backend.
type HTTPConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig controls token renewal.
type RefreshConfig struct {
	// Path is the backend refresh endpoint, relative to BaseURL. The session
	// posts refreshes to it and the interceptor treats a 401 from it as final.
	Path string `yaml:"path"`
	// Leeway refreshes ahead of a 401 when the access token expires within
	// this window. Zero waits for the 401.
	Leeway time.Duration `yaml:"leeway"`
	// AllowPartial lets InitAuth accept an access token without a refresh
	// token.
	AllowPartial bool `yaml:"allow_partial"`
}

/*
====================================
GUARD CONFIG
====================================
*/

type GuardConfig struct {
	LoginPath   string `yaml:"login_path"`
	LandingPath string `yaml:"landing_path"`
	AppTitle    string `yaml:"app_title"`
	MaxHops     int    `yaml:"max_hops"`
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"latency_histograms"`
}

/*
====================================
STORAGE CONFIG
====================================
*/

// StorageBackend selects where credentials persist when no store is supplied
// to the builder.
type StorageBackend string

const (
	StorageMemory StorageBackend = "memory"
	StorageFile   StorageBackend = "file"
	StorageRedis  StorageBackend = "redis"
)

type StorageConfig struct {
	Backend StorageBackend `yaml:"backend"`
	// FilePath is required for the file backend.
	FilePath string `yaml:"file_path"`
	// RedisPrefix namespaces keys for the redis backend.
	RedisPrefix string `yaml:"redis_prefix"`
	// RefreshTTL expires the stored refresh token in redis. Zero keeps it.
	RefreshTTL time.Duration `yaml:"refresh_ttl"`
}

// DefaultBaseURL is the development backend. transport.DefaultBaseURL is the
// relative prefix the backend is mounted under.
const DefaultBaseURL = "http://localhost:8000" + transport.DefaultBaseURL

// DefaultConfig returns the console defaults: the development backend, the
// built-in route paths, and audit and metrics enabled with a dropping buffer.
func DefaultConfig() Config {
	g := guard.DefaultConfig()
	return Config{
		HTTP: HTTPConfig{
			BaseURL: DefaultBaseURL,
			Timeout: transport.DefaultTimeout,
		},
		Refresh: RefreshConfig{
			Path: api.PathRefresh,
		},
		Guard: GuardConfig{
			LoginPath:   g.LoginPath,
			LandingPath: g.LandingPath,
			AppTitle:    g.AppTitle,
			MaxHops:     g.MaxHops,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
		Storage: StorageConfig{
			Backend:     StorageMemory,
			RedisPrefix: "gosession",
		},
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting, wrapped in [ErrInvalidConfig].
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func (c *Config) validate() error {
	// HTTP
	if c.HTTP.BaseURL == "" {
		return errors.New("HTTP BaseURL must be set")
	}
	if !strings.HasPrefix(c.HTTP.BaseURL, "http://") && !strings.HasPrefix(c.HTTP.BaseURL, "https://") {
		return errors.New("HTTP BaseURL must be an http or https URL")
	}
	if c.HTTP.Timeout <= 0 {
		return errors.New("HTTP Timeout must be > 0")
	}

	// Refresh
	if !strings.HasPrefix(c.Refresh.Path, "/") {
		return errors.New("Refresh Path must start with /")
	}
	if c.Refresh.Leeway < 0 {
		return errors.New("Refresh Leeway must be >= 0")
	}

	// Guard
	if !strings.HasPrefix(c.Guard.LoginPath, "/") || !strings.HasPrefix(c.Guard.LandingPath, "/") {
		return errors.New("Guard LoginPath and LandingPath must start with /")
	}
	if c.Guard.LoginPath == c.Guard.LandingPath {
		return errors.New("Guard LoginPath and LandingPath must differ")
	}
	if c.Guard.MaxHops <= 0 {
		return errors.New("Guard MaxHops must be > 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Enabled")
	}

	// Storage
	switch c.Storage.Backend {
	case StorageMemory, StorageRedis:
	case StorageFile:
		if c.Storage.FilePath == "" {
			return errors.New("Storage FilePath is required for the file backend")
		}
	default:
		return fmt.Errorf("unsupported Storage Backend %q", c.Storage.Backend)
	}
	if c.Storage.RefreshTTL < 0 {
		return errors.New("Storage RefreshTTL must be >= 0")
	}
	return nil
}
