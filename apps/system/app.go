package system

import (
	"strings"
	"time"

	"github.com/getevo/evo/v2"
	"github.com/getevo/evo/v2/lib/log"
	"github.com/getevo/evo/v2/lib/settings"
	"github.com/getevo/restify"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

// Request size limits
const (
	MaxBodySize       = 1 * 1024 * 1024 // 1MB for regular requests
	RateLimitRequests = 100             // requests per minute
)

var StartupTime = time.Now()
var BasePath = ""

type App struct {
}

func (a App) Register() error {
	var logLevel = settings.Get("APP.LOG_LEVEL", "info").String()
	switch strings.ToLower(logLevel) {
	case "debug", "dev", "development":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warn", "warning":
		log.SetLevel(log.WarningLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	case "critical", "crit":
		log.SetLevel(log.CriticalLevel)
	default:
		log.SetLevel(log.WarningLevel)
	}

	var app = evo.GetFiber()

	// Enable request logging if configured
	if settings.Get("APP.LOG_REQUESTS").Bool() {
		app.Use(logger.New())
	}

	// Add rate limiting middleware (100 requests per minute per IP)
	if settings.Get("APP.RATE_LIMIT", true).Bool() {
		app.Use(limiter.New(limiter.Config{
			Max:        RateLimitRequests,
			Expiration: 1 * time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(429).JSON(fiber.Map{
					"error": "Too many requests. Please try again later.",
				})
			},
		}))
		log.Info("Rate limiting enabled: %d requests per minute", RateLimitRequests)
	}

	// NOTE: CORS is handled by nginx reverse proxy, not here.
	// Adding CORS headers in both nginx and Go causes duplicate headers which browsers reject.

	restify.SetPrefix("/api/restify")

	return nil
}

func (a App) Router() error {
	var controller Controller
	evo.Get("/health", controller.HealthHandler)
	evo.Get("/uptime", controller.UptimeHandler)
	evo.Get("/api/system/status", controller.StatusHandler)

	BasePath = settings.Get("APP.BASE_PATH", "http://localhost:8000").String()

	return nil
}

func (a App) WhenReady() error {
	return nil
}

func (a App) Name() string {
	return "system"
}
