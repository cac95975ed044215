package models

import (
	"github.com/getevo/evo/v2/lib/args"
	"github.com/getevo/evo/v2/lib/db"
)

type App struct{}

func (a App) Register() error {
	// Register all models with GORM
	db.UseModel(Company{})
	db.UseModel(Lead{})
	db.UseModel(ChannelInstance{})
	db.UseModel(Conversation{})
	db.UseModel(Message{})
	db.UseModel(Attachment{})
	db.UseModel(CreditAccount{})
	db.UseModel(CreditTransaction{})

	return nil
}

func (a App) Router() error {
	return nil
}

func (a App) WhenReady() error {
	if args.Exists("--migration-do") {
		err := db.DoMigration()
		if err != nil {
			return err
		}
	}
	return nil
}

func (a App) Name() string {
	return "models"
}
