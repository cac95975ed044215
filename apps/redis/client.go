package redis

import (
	"context"
	"strings"
	"time"

	"github.com/getevo/evo/v2/lib/log"
	"github.com/getevo/evo/v2/lib/settings"
	"github.com/redis/go-redis/v9"
)

var (
	// Client is the universal Redis client that works with both single nodes and clusters
	Client redis.UniversalClient
)

// RedisConfig holds the Redis configuration
type RedisConfig struct {
	Addresses    []string      `json:"addresses"`
	Password     string        `json:"password"`
	DB           int           `json:"db"`
	MaxRetries   int           `json:"max_retries"`
	DialTimeout  time.Duration `json:"dial_timeout"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	PoolSize     int           `json:"pool_size"`
	MinIdleConns int           `json:"min_idle_conns"`
}

// Initialize creates a new Redis universal client connection.
// Supports single node and cluster configurations via config.yml:
//
//	REDIS:
//	  ADDRESS: "localhost:6379"       # single node
//	  ADDRESSES: "r1:6379,r2:6379"    # cluster
//	  PASSWORD: ""
//	  DB: 0
func Initialize() error {
	config := loadConfig()

	// Skip initialization if no addresses configured
	if len(config.Addresses) == 0 {
		log.Notice("Redis not configured. Dispatch rate limiting will be disabled.")
		return nil
	}

	opts := &redis.UniversalOptions{
		Addrs:        config.Addresses,
		Password:     config.Password,
		DB:           config.DB,
		MaxRetries:   config.MaxRetries,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
	}

	Client = redis.NewUniversalClient(opts)

	// Test connection
	testCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := Client.Ping(testCtx).Err(); err != nil {
		log.Warning("Redis connection failed: %v. Dispatch rate limiting will be disabled.", err)
		Client = nil
		return nil // Don't fail startup if Redis is unavailable
	}

	if len(config.Addresses) == 1 {
		log.Info("Redis connected (single node: %s)", config.Addresses[0])
	} else {
		log.Info("Redis Cluster connected (%d nodes)", len(config.Addresses))
	}

	return nil
}

// loadConfig reads Redis configuration from settings
func loadConfig() RedisConfig {
	config := RedisConfig{
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	}

	addrStr := settings.Get("REDIS.ADDRESSES").String()
	if addrStr == "" {
		addrStr = settings.Get("REDIS.ADDRESS").String()
	}
	for _, addr := range strings.Split(addrStr, ",") {
		addr = strings.TrimSpace(addr)
		if addr != "" {
			config.Addresses = append(config.Addresses, addr)
		}
	}

	config.Password = settings.Get("REDIS.PASSWORD").String()
	config.DB = settings.Get("REDIS.DB").Int()

	if poolSize := settings.Get("REDIS.POOL_SIZE").Int(); poolSize > 0 {
		config.PoolSize = poolSize
	}
	if minIdle := settings.Get("REDIS.MIN_IDLE_CONNS").Int(); minIdle > 0 {
		config.MinIdleConns = minIdle
	}
	if maxRetries := settings.Get("REDIS.MAX_RETRIES").Int(); maxRetries > 0 {
		config.MaxRetries = maxRetries
	}

	return config
}

// IsAvailable reports whether the Redis client is ready for use
func IsAvailable() bool {
	return Client != nil
}

// Close closes the Redis connection
func Close() error {
	if Client == nil {
		return nil
	}
	return Client.Close()
}
