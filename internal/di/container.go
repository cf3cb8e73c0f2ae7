// Package di provides the dependency injection container for the server.
package di

import (
	"context"
	"fmt"
	"time"

	"oss-insights-mcp/internal/cache"
	"oss-insights-mcp/internal/config"
	"oss-insights-mcp/internal/logging"
	"oss-insights-mcp/internal/provider"
	"oss-insights-mcp/internal/ratelimit"
)

// Container holds all application dependencies
type Container struct {
	Config   *config.Config
	Logger   logging.Logger
	Cache    *cache.Cache
	Limiter  ratelimit.Limiter
	Provider *provider.Client

	redisLimiter *ratelimit.RedisLimiter
}

// NewContainer wires up all dependencies in order.
func NewContainer(cfg *config.Config) (*Container, error) {
	container := &Container{Config: cfg}

	container.Logger = logging.New(logging.ParseLevel(cfg.Logging.Level))

	container.Cache = cache.New(&cache.Config{
		DefaultTTL:    cfg.Cache.DefaultTTL(),
		SweepInterval: cfg.Cache.SweepInterval(),
	})

	if err := container.initializeLimiter(); err != nil {
		container.Cache.Close()
		return nil, fmt.Errorf("failed to initialize rate limiter: %w", err)
	}

	container.Provider = provider.NewClient(&cfg.Provider, container.Limiter, container.Logger)

	return container, nil
}

func (c *Container) initializeLimiter() error {
	if !c.Config.RateLimit.Enabled {
		c.Limiter = ratelimit.NoopLimiter{}
		return nil
	}

	window := time.Minute
	if addr := c.Config.RateLimit.RedisAddr; addr != "" {
		limiter, err := ratelimit.NewRedisLimiter(
			addr,
			c.Config.RateLimit.RedisPassword,
			c.Config.RateLimit.RedisDB,
			c.Config.RateLimit.RequestsPerMinute,
			window,
		)
		if err != nil {
			return err
		}
		c.redisLimiter = limiter
		c.Limiter = limiter
		c.Logger.Info("using Redis rate limiter", "addr", addr)
		return nil
	}

	c.Limiter = ratelimit.NewLocalLimiter(c.Config.RateLimit.RequestsPerMinute, window)
	return nil
}

// HealthCheck verifies the external dependencies the server relies on.
func (c *Container) HealthCheck(ctx context.Context) error {
	if c.redisLimiter != nil {
		if err := c.redisLimiter.Ping(ctx); err != nil {
			return fmt.Errorf("redis health check failed: %w", err)
		}
	}
	return nil
}

// Shutdown gracefully shuts down all services.
func (c *Container) Shutdown() error {
	if c.Cache != nil {
		c.Cache.Close()
	}
	if c.Limiter != nil {
		if err := c.Limiter.Close(); err != nil {
			return fmt.Errorf("failed to close rate limiter: %w", err)
		}
	}
	return nil
}

// GetCache returns the metric cache instance
func (c *Container) GetCache() *cache.Cache {
	return c.Cache
}

// GetProvider returns the provider client instance
func (c *Container) GetProvider() *provider.Client {
	return c.Provider
}

// GetLogger returns the application logger
func (c *Container) GetLogger() logging.Logger {
	return c.Logger
}
