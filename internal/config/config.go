package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `json:"server" yaml:"server"`
	Provider  ProviderConfig  `json:"provider" yaml:"provider"`
	Cache     CacheConfig     `json:"cache" yaml:"cache"`
	RateLimit RateLimitConfig `json:"rate_limit" yaml:"rate_limit"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging"`
}

// ServerConfig represents the HTTP server configuration
type ServerConfig struct {
	Host         string `json:"host" yaml:"host"`
	Port         int    `json:"port" yaml:"port"`
	ReadTimeout  int    `json:"read_timeout_seconds" yaml:"read_timeout_seconds"`
	WriteTimeout int    `json:"write_timeout_seconds" yaml:"write_timeout_seconds"`
}

// ProviderConfig represents the upstream metrics provider configuration
type ProviderConfig struct {
	BaseURL        string `json:"base_url" yaml:"base_url"`
	RequestTimeout int    `json:"request_timeout_seconds" yaml:"request_timeout_seconds"`
	RetryAttempts  int    `json:"retry_attempts" yaml:"retry_attempts"`
	UserAgent      string `json:"user_agent" yaml:"user_agent"`
}

// CacheConfig represents the metric cache configuration
type CacheConfig struct {
	DefaultTTLMinutes    int `json:"default_ttl_minutes" yaml:"default_ttl_minutes"`
	SweepIntervalMinutes int `json:"sweep_interval_minutes" yaml:"sweep_interval_minutes"`
}

// RateLimitConfig represents outbound request rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool   `json:"enabled" yaml:"enabled"`
	RequestsPerMinute int    `json:"requests_per_minute" yaml:"requests_per_minute"`
	RedisAddr         string `json:"redis_addr,omitempty" yaml:"redis_addr"`
	RedisPassword     string `json:"-" yaml:"redis_password"` // Never serialize credentials
	RedisDB           int    `json:"redis_db" yaml:"redis_db"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "localhost",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Provider: ProviderConfig{
			BaseURL:        "https://oss.open-digger.cn",
			RequestTimeout: 30,
			RetryAttempts:  3,
			UserAgent:      "oss-insights-mcp/1.0",
		},
		Cache: CacheConfig{
			DefaultTTLMinutes:    60,
			SweepIntervalMinutes: 5,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 60,
			RedisDB:           0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfig loads configuration from defaults, an optional YAML file named
// by MCP_METRICS_CONFIG_FILE, and environment variables, in that order.
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := DefaultConfig()

	if path := os.Getenv("MCP_METRICS_CONFIG_FILE"); path != "" {
		if err := loadFromFile(config, path); err != nil {
			return nil, err
		}
	}

	loadFromEnv(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// loadFromFile overlays settings from a YAML file onto the config.
func loadFromFile(config *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("error parsing config file %s: %w", path, err)
	}
	return nil
}

// loadFromEnv loads configuration from environment variables
func loadFromEnv(config *Config) {
	loadServerConfig(config)
	loadProviderConfig(config)
	loadCacheConfig(config)
	loadRateLimitConfig(config)
	loadLoggingConfig(config)
}

func loadServerConfig(config *Config) {
	if host := os.Getenv("MCP_METRICS_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("MCP_METRICS_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if readTimeout := os.Getenv("MCP_METRICS_READ_TIMEOUT_SECONDS"); readTimeout != "" {
		if rt, err := strconv.Atoi(readTimeout); err == nil {
			config.Server.ReadTimeout = rt
		}
	}
	if writeTimeout := os.Getenv("MCP_METRICS_WRITE_TIMEOUT_SECONDS"); writeTimeout != "" {
		if wt, err := strconv.Atoi(writeTimeout); err == nil {
			config.Server.WriteTimeout = wt
		}
	}
}

func loadProviderConfig(config *Config) {
	if baseURL := os.Getenv("MCP_METRICS_PROVIDER_BASE_URL"); baseURL != "" {
		config.Provider.BaseURL = baseURL
	}
	if timeout := os.Getenv("MCP_METRICS_PROVIDER_TIMEOUT_SECONDS"); timeout != "" {
		if t, err := strconv.Atoi(timeout); err == nil {
			config.Provider.RequestTimeout = t
		}
	}
	if retries := os.Getenv("MCP_METRICS_PROVIDER_RETRY_ATTEMPTS"); retries != "" {
		if r, err := strconv.Atoi(retries); err == nil {
			config.Provider.RetryAttempts = r
		}
	}
	if userAgent := os.Getenv("MCP_METRICS_PROVIDER_USER_AGENT"); userAgent != "" {
		config.Provider.UserAgent = userAgent
	}
}

func loadCacheConfig(config *Config) {
	if ttl := os.Getenv("MCP_METRICS_CACHE_TTL_MINUTES"); ttl != "" {
		if t, err := strconv.Atoi(ttl); err == nil {
			config.Cache.DefaultTTLMinutes = t
		}
	}
	if interval := os.Getenv("MCP_METRICS_CACHE_SWEEP_INTERVAL_MINUTES"); interval != "" {
		if i, err := strconv.Atoi(interval); err == nil {
			config.Cache.SweepIntervalMinutes = i
		}
	}
}

func loadRateLimitConfig(config *Config) {
	if enabled := os.Getenv("MCP_METRICS_RATE_LIMIT_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.RateLimit.Enabled = e
		}
	}
	if rpm := os.Getenv("MCP_METRICS_RATE_LIMIT_RPM"); rpm != "" {
		if r, err := strconv.Atoi(rpm); err == nil {
			config.RateLimit.RequestsPerMinute = r
		}
	}
	if addr := os.Getenv("MCP_METRICS_REDIS_ADDR"); addr != "" {
		config.RateLimit.RedisAddr = addr
	} else if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		config.RateLimit.RedisAddr = addr
	}
	if password := os.Getenv("MCP_METRICS_REDIS_PASSWORD"); password != "" {
		config.RateLimit.RedisPassword = password
	}
	if db := os.Getenv("MCP_METRICS_REDIS_DB"); db != "" {
		if d, err := strconv.Atoi(db); err == nil {
			config.RateLimit.RedisDB = d
		}
	}
}

func loadLoggingConfig(config *Config) {
	if level := os.Getenv("MCP_METRICS_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("MCP_METRICS_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Provider.BaseURL == "" {
		return fmt.Errorf("provider base URL is required")
	}
	if c.Provider.RequestTimeout <= 0 {
		return fmt.Errorf("provider request timeout must be positive: %d", c.Provider.RequestTimeout)
	}
	if c.Provider.RetryAttempts < 0 {
		return fmt.Errorf("provider retry attempts cannot be negative: %d", c.Provider.RetryAttempts)
	}
	if c.Cache.DefaultTTLMinutes <= 0 {
		return fmt.Errorf("cache TTL must be positive: %d", c.Cache.DefaultTTLMinutes)
	}
	if c.Cache.SweepIntervalMinutes <= 0 {
		return fmt.Errorf("cache sweep interval must be positive: %d", c.Cache.SweepIntervalMinutes)
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("rate limit requests per minute must be positive: %d", c.RateLimit.RequestsPerMinute)
	}
	return nil
}

// DefaultTTL returns the cache TTL as a duration.
func (c *CacheConfig) DefaultTTL() time.Duration {
	return time.Duration(c.DefaultTTLMinutes) * time.Minute
}

// SweepInterval returns the janitor sweep interval as a duration.
func (c *CacheConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalMinutes) * time.Minute
}

// Timeout returns the provider request timeout as a duration.
func (c *ProviderConfig) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}
