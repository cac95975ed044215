package credits

import (
	"github.com/getevo/evo/v2"
)

// App implements the credit ledger application
type App struct{}

var service *Service

// Register registers the credits app
func (a App) Register() error {
	return nil
}

// Router registers credit ledger routes
func (a App) Router() error {
	var controller Controller
	evo.Get("/api/credits/balance", controller.Balance)
	evo.Post("/api/credits/consume", controller.Consume)
	evo.Post("/api/credits/add", controller.Add)
	evo.Get("/api/credits/stats", controller.Stats)
	evo.Get("/api/credits/transactions", controller.Transactions)
	return nil
}

// WhenReady wires the ledger service once the database is available
func (a App) WhenReady() error {
	service = NewService(evo.GetDBO())
	return nil
}

// Name returns the app name
func (a App) Name() string {
	return "credits"
}
