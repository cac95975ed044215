package system

import (
	"time"

	"github.com/flowzap/flowzap-backend/apps/nats"
	"github.com/flowzap/flowzap-backend/apps/redis"
	"github.com/flowzap/flowzap-backend/apps/storage"
	"github.com/flowzap/flowzap-backend/lib/response"
	"github.com/getevo/evo/v2"
)

type Controller struct {
}

func (c Controller) HealthHandler(request *evo.Request) any {
	return response.OK("ok")
}

func (c Controller) UptimeHandler(request *evo.Request) any {
	uptimeData := map[string]any{
		"uptime": int64(time.Now().Sub(StartupTime).Seconds()),
	}
	return response.OK(uptimeData)
}

// StatusHandler reports the availability of optional backing services.
func (c Controller) StatusHandler(request *evo.Request) any {
	return response.OK(map[string]any{
		"uptime":  int64(time.Now().Sub(StartupTime).Seconds()),
		"nats":    nats.IsConnected(),
		"redis":   redis.IsAvailable(),
		"storage": storage.IsEnabled(),
	})
}
