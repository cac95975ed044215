package dispatch

import (
	"github.com/flowzap/flowzap-backend/apps/credits"
	"github.com/flowzap/flowzap-backend/apps/redis"
	"github.com/getevo/evo/v2"
	"github.com/getevo/evo/v2/lib/settings"
)

// App implements the outbound dispatch application
type App struct{}

var service *Service

// Register registers the dispatch app
func (a App) Register() error {
	return nil
}

// Router registers dispatch and webhook routes
func (a App) Router() error {
	var controller Controller

	evo.Use("/api/conversations", redis.CompanyRateLimitMiddleware("dispatch"))
	evo.Post("/api/conversations/:conversation_id/messages/text", controller.SendText)
	evo.Post("/api/conversations/:conversation_id/messages/attachment", controller.SendAttachment)
	evo.Get("/api/conversations/:conversation_id/messages", controller.History)

	evo.Post("/api/webhooks/whatsapp/:instance", controller.WebhookHandler)
	return nil
}

// WhenReady wires the orchestrator once the database is available
func (a App) WhenReady() error {
	service = NewService(evo.GetDBO(), NewWhatsAppProvider(), credits.NewService(evo.GetDBO()))
	service.sendCost = settings.Get("DISPATCH.SEND_COST", 1).Int64()
	return nil
}

// Name returns the app name
func (a App) Name() string {
	return "dispatch"
}
