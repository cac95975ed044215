package attachments

import (
	"github.com/flowzap/flowzap-backend/apps/storage"
	"github.com/getevo/evo/v2"
)

type App struct{}

var service *Service

func (a App) Register() error {
	return nil
}

func (a App) Router() error {
	var controller = Controller{}

	evo.Post("/api/attachments", controller.Ingest)
	evo.Get("/api/attachments", controller.List)
	evo.Delete("/api/attachments/:id", controller.Delete)

	return nil
}

func (a App) WhenReady() error {
	var store storage.ObjectStore
	if storage.IsEnabled() {
		store = storage.Default()
	}
	service = NewService(evo.GetDBO(), store)
	return nil
}

func (a App) Name() string {
	return "attachments"
}
