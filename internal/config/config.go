package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the shelfrec configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Datasets  DatasetsConfig  `yaml:"datasets"`
	Search    SearchConfig    `yaml:"search"`
	Images    ImagesConfig    `yaml:"images"`
	Session   SessionConfig   `yaml:"session"`
	Refresh   RefreshConfig   `yaml:"refresh"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
	MaxUploadMB     int `yaml:"max_upload_mb"`
}

// DatasetsConfig points each domain at its CSV file. An empty path leaves the
// domain unavailable until a dataset is uploaded.
type DatasetsConfig struct {
	Dir     string `yaml:"dir"`
	Books   string `yaml:"books"`
	Courses string `yaml:"courses"`
	Movies  string `yaml:"movies"`
	// MaxMB caps a dataset file read from disk. Uploads are capped by http.max_upload_mb first.
	MaxMB int `yaml:"max_mb"`
}

// SearchConfig holds result size limits.
type SearchConfig struct {
	MaxTopN     int            `yaml:"max_top_n"`
	DefaultTopN map[string]int `yaml:"default_top_n"` // by domain
}

// ImagesConfig holds artwork resolution settings.
type ImagesConfig struct {
	FetchTimeoutSec int           `yaml:"fetch_timeout_sec"`
	MaxBytes        int64         `yaml:"max_bytes"`
	UserAgent       string        `yaml:"user_agent"`
	Parallelism     int           `yaml:"parallelism"`
	Breaker         BreakerConfig `yaml:"breaker"`
	Cache           CacheConfig   `yaml:"cache"`
}

// BreakerConfig holds per-host circuit breaker settings.
type BreakerConfig struct {
	ConsecutiveFailures uint32 `yaml:"consecutive_failures"`
	OpenSec             int    `yaml:"open_sec"`
}

// CacheConfig holds the image byte cache settings.
type CacheConfig struct {
	Driver           string   `yaml:"driver"` // none, memory, valkey (default: memory)
	TTLSec           int      `yaml:"ttl_sec"`
	MaxEntries       int      `yaml:"max_entries"` // memory driver only
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// SessionConfig holds last-result session settings.
type SessionConfig struct {
	TTLSec int `yaml:"ttl_sec"`
}

// RefreshConfig bounds the auto-refresh interval.
type RefreshConfig struct {
	MinSec     int `yaml:"min_sec"`
	MaxSec     int `yaml:"max_sec"`
	DefaultSec int `yaml:"default_sec"`
}

// RateLimitConfig holds per-client request limits. Zero disables limiting.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

// Cache drivers.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheValkey = "valkey"
)

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// Default returns a configuration with every default applied, for callers
// running without a config file.
func Default() Config {
	cfg := Config{HTTP: HTTPConfig{Port: 8080}}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxUploadMB <= 0 {
		c.HTTP.MaxUploadMB = 32
	}
	if c.Datasets.Dir == "" {
		c.Datasets.Dir = "."
	}
	if c.Datasets.MaxMB <= 0 {
		c.Datasets.MaxMB = 256
	}
	if c.Search.MaxTopN <= 0 {
		c.Search.MaxTopN = 20
	}
	if c.Search.DefaultTopN == nil {
		c.Search.DefaultTopN = make(map[string]int)
	}
	for domain, n := range map[string]int{"books": 5, "courses": 5, "movies": 8} {
		if c.Search.DefaultTopN[domain] <= 0 {
			c.Search.DefaultTopN[domain] = n
		}
	}
	if c.Images.FetchTimeoutSec <= 0 {
		c.Images.FetchTimeoutSec = 4
	}
	if c.Images.MaxBytes <= 0 {
		c.Images.MaxBytes = 5 << 20
	}
	if c.Images.UserAgent == "" {
		c.Images.UserAgent = "shelfrec/1.0"
	}
	if c.Images.Parallelism <= 0 {
		c.Images.Parallelism = 4
	}
	if c.Images.Breaker.ConsecutiveFailures == 0 {
		c.Images.Breaker.ConsecutiveFailures = 5
	}
	if c.Images.Breaker.OpenSec <= 0 {
		c.Images.Breaker.OpenSec = 30
	}
	if c.Images.Cache.Driver == "" {
		c.Images.Cache.Driver = CacheMemory
	}
	if c.Images.Cache.TTLSec <= 0 {
		c.Images.Cache.TTLSec = 3600
	}
	if c.Images.Cache.MaxEntries <= 0 {
		c.Images.Cache.MaxEntries = 512
	}
	if c.Images.Cache.ReadinessTimeout <= 0 {
		c.Images.Cache.ReadinessTimeout = 10
	}
	if c.Session.TTLSec <= 0 {
		c.Session.TTLSec = 1800
	}
	if c.Refresh.MinSec <= 0 {
		c.Refresh.MinSec = 1
	}
	if c.Refresh.MaxSec <= 0 {
		c.Refresh.MaxSec = 30
	}
	if c.Refresh.DefaultSec <= 0 {
		c.Refresh.DefaultSec = 5
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	for domain, n := range c.Search.DefaultTopN {
		switch domain {
		case "books", "courses", "movies":
		default:
			return fmt.Errorf("search.default_top_n: unknown domain %q", domain)
		}
		if n > c.Search.MaxTopN {
			return fmt.Errorf("search.default_top_n.%s (%d) exceeds search.max_top_n (%d)", domain, n, c.Search.MaxTopN)
		}
	}
	switch c.Images.Cache.Driver {
	case CacheNone, CacheMemory:
	case CacheValkey:
		if len(c.Images.Cache.Addrs) == 0 {
			return fmt.Errorf("images.cache.addrs is required for the valkey driver")
		}
	default:
		return fmt.Errorf("images.cache.driver must be none, memory or valkey, got %q", c.Images.Cache.Driver)
	}
	if c.Refresh.MinSec > c.Refresh.MaxSec {
		return fmt.Errorf("refresh.min_sec (%d) exceeds refresh.max_sec (%d)", c.Refresh.MinSec, c.Refresh.MaxSec)
	}
	if c.Refresh.DefaultSec < c.Refresh.MinSec || c.Refresh.DefaultSec > c.Refresh.MaxSec {
		return fmt.Errorf("refresh.default_sec must be within [%d, %d], got %d",
			c.Refresh.MinSec, c.Refresh.MaxSec, c.Refresh.DefaultSec)
	}
	if c.RateLimit.RequestsPerMinute < 0 {
		return fmt.Errorf("rate_limit.requests_per_minute must not be negative")
	}
	return nil
}

// DatasetPath resolves the dataset file of a domain against Datasets.Dir.
// Returns "" when the domain has no dataset configured.
func (c *Config) DatasetPath(domain string) string {
	var p string
	switch domain {
	case "books":
		p = c.Datasets.Books
	case "courses":
		p = c.Datasets.Courses
	case "movies":
		p = c.Datasets.Movies
	}
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Datasets.Dir, p)
}

// Seconds converts a config value in seconds to a Duration.
func Seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
