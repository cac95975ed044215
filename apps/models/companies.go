package models

import (
	"time"

	"github.com/getevo/restify"
)

// Company is the tenant root. Every scoped table carries its id and every
// query in the core filters on it.
type Company struct {
	ID        uint      `gorm:"column:id;primaryKey" json:"id"`
	Name      string    `gorm:"column:name;size:255;not null" json:"name"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	restify.API
}

// Lead is a contact the company talks to. CRUD is plain data access and is
// exposed through restify; the dispatch core only reads it.
type Lead struct {
	ID        uint      `gorm:"column:id;primaryKey" json:"id"`
	CompanyID uint      `gorm:"column:company_id;not null;index;fk:companies" json:"company_id"`
	Name      string    `gorm:"column:name;size:255;not null" json:"name"`
	Phone     string    `gorm:"column:phone;size:32;index" json:"phone"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	// Relationships
	Company Company `gorm:"foreignKey:CompanyID;references:ID" json:"company,omitempty"`

	restify.API
}
