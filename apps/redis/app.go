package redis

import (
	"time"

	"github.com/getevo/evo/v2/lib/application"
	"github.com/getevo/evo/v2/lib/log"
	"github.com/getevo/evo/v2/lib/settings"
)

// App represents the Redis application module
type App struct{}

// Register initializes the Redis module
func (App) Register() error {
	return nil
}

// Router registers HTTP routes (none for Redis)
func (App) Router() error {
	return nil
}

// WhenReady connects to Redis after application is fully initialized
func (App) WhenReady() error {
	if err := Initialize(); err != nil {
		log.Error("Failed to connect to Redis: %v", err)
		return err
	}

	// Per-company dispatch throttle, configurable via config.yml
	window, _ := settings.Get("DISPATCH.RATE_WINDOW", "1m").Duration()
	if window <= 0 {
		window = time.Minute
	}
	SetRateLimitConfig("dispatch", RateLimitConfig{
		MaxRequests: int(settings.Get("DISPATCH.RATE_LIMIT", 60).Int64()),
		Window:      window,
		Enabled:     settings.Get("DISPATCH.RATE_LIMIT_ENABLED", true).Bool(),
	})

	return nil
}

// Name returns the app name
func (App) Name() string {
	return "redis"
}

// Shutdown gracefully closes the Redis connection
func (App) Shutdown() error {
	return Close()
}

var _ application.Application = (*App)(nil)
