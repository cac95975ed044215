package nats

import (
	"fmt"
	"sync"
	"time"

	"github.com/getevo/evo/v2/lib/log"
	"github.com/nats-io/nats.go"
)

var (
	NC *nats.Conn
	mu sync.RWMutex
)

// NATSConfig holds NATS connection configuration
type NATSConfig struct {
	URL            string        `yaml:"URL"`
	MaxReconnects  int           `yaml:"MAX_RECONNECTS"`
	ReconnectWait  time.Duration `yaml:"RECONNECT_WAIT"`
	PingInterval   time.Duration `yaml:"PING_INTERVAL"`
	MaxPingsOut    int           `yaml:"MAX_PINGS_OUT"`
	AllowReconnect bool          `yaml:"ALLOW_RECONNECT"`
	DrainTimeout   time.Duration `yaml:"DRAIN_TIMEOUT"`
}

// Connect establishes a fault-tolerant connection to NATS
func Connect(config NATSConfig) error {
	var err error

	opts := []nats.Option{
		nats.Name("flowzap-backend"),
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.PingInterval(config.PingInterval),
		nats.MaxPingsOutstanding(config.MaxPingsOut),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Warning("NATS disconnected: %v", err)
			} else {
				log.Warning("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			if nc.LastError() != nil {
				log.Error("NATS connection closed: %v", nc.LastError())
			} else {
				log.Info("NATS connection closed")
			}
		}),
	}

	if !config.AllowReconnect {
		opts = append(opts, nats.NoReconnect())
	}

	mu.Lock()
	NC, err = nats.Connect(config.URL, opts...)
	mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", config.URL, err)
	}

	log.Info("Connected to NATS at %s", NC.ConnectedUrl())
	return nil
}

func getConnection() *nats.Conn {
	mu.RLock()
	defer mu.RUnlock()
	return NC
}

// IsConnected checks if NATS is connected
func IsConnected() bool {
	mu.RLock()
	defer mu.RUnlock()
	return NC != nil && NC.IsConnected()
}

// Close gracefully closes the NATS connection with drain
func Close(drainTimeout time.Duration) error {
	mu.Lock()
	defer mu.Unlock()

	if NC == nil {
		return nil
	}

	if err := NC.Drain(); err != nil {
		log.Warning("Error draining NATS connection: %v", err)
		NC.Close()
		return err
	}

	select {
	case <-time.After(drainTimeout):
		log.Warning("Drain timeout exceeded, forcing close")
		NC.Close()
	case <-time.After(100 * time.Millisecond):
	}

	log.Info("NATS connection closed gracefully")
	return nil
}

// Publish publishes a message to a subject. Event publication is advisory;
// callers treat a failed publish as a logged warning, never a hard error.
func Publish(subject string, data []byte) error {
	conn := getConnection()
	if conn == nil || !conn.IsConnected() {
		return fmt.Errorf("NATS not connected")
	}

	return conn.Publish(subject, data)
}
