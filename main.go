package main

import (
	"github.com/flowzap/flowzap-backend/apps/attachments"
	"github.com/flowzap/flowzap-backend/apps/credits"
	"github.com/flowzap/flowzap-backend/apps/dispatch"
	"github.com/flowzap/flowzap-backend/apps/models"
	"github.com/flowzap/flowzap-backend/apps/nats"
	"github.com/flowzap/flowzap-backend/apps/redis"
	"github.com/flowzap/flowzap-backend/apps/storage"
	"github.com/flowzap/flowzap-backend/apps/system"
	"github.com/getevo/evo/v2"
	"github.com/getevo/evo/v2/lib/application"
)

func main() {
	evo.Setup()

	var apps = application.GetInstance()
	apps.Register(system.App{}, models.App{}, nats.App{}, redis.App{}, storage.App{}, attachments.App{}, credits.App{}, dispatch.App{})

	evo.Run()
}
