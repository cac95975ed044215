package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/flowzap/flowzap-backend/lib/response"
	"github.com/getevo/evo/v2"
	"github.com/getevo/evo/v2/lib/log"
)

// RateLimitConfig holds the configuration for a rate limit rule
type RateLimitConfig struct {
	MaxRequests int
	Window      time.Duration
	Enabled     bool
}

// DefaultRateLimitConfig returns a default rate limit configuration
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxRequests: 60,              // 60 requests
		Window:      1 * time.Minute, // per minute
		Enabled:     true,
	}
}

// rateLimitCache stores rate limit configurations in memory
var rateLimitCache sync.Map

// SetRateLimitConfig sets a rate limit configuration for a key
func SetRateLimitConfig(key string, config RateLimitConfig) {
	rateLimitCache.Store(key, config)
}

// GetRateLimitConfig gets a rate limit configuration for a key
func GetRateLimitConfig(key string) RateLimitConfig {
	if cached, ok := rateLimitCache.Load(key); ok {
		return cached.(RateLimitConfig)
	}
	return DefaultRateLimitConfig()
}

// CompanyRateLimitMiddleware limits requests per company for a named
// endpoint group. Dispatch endpoints use it so one tenant flooding the
// gateway cannot starve the others. Falls back to the client IP when the
// company header is absent; the controller rejects such requests anyway.
func CompanyRateLimitMiddleware(key string) func(*evo.Request) error {
	return func(req *evo.Request) error {
		// Skip if Redis is not available
		if !IsAvailable() {
			return req.Next()
		}

		config := GetRateLimitConfig(key)
		if !config.Enabled {
			return req.Next()
		}

		identity := req.Header("X-Company-ID")
		if identity == "" {
			identity = req.IP()
		}

		redisKey := fmt.Sprintf("rate_limit:%s:%s", key, identity)

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		count, err := Client.Incr(ctx, redisKey).Result()
		if err != nil {
			log.Warning("Redis rate limit error: %v", err)
			return req.Next() // Allow request on Redis error
		}

		// Set expiry on first request
		if count == 1 {
			Client.Expire(ctx, redisKey, config.Window)
		}

		if int(count) > config.MaxRequests {
			return response.NewError(response.ErrorCodeTooManyRequests, "Too many requests. Please try again later.", 429)
		}

		return req.Next()
	}
}
