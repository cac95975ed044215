package models

import (
	"time"

	"github.com/getevo/restify"
)

// Channel instance status constants
const (
	InstanceStatusConnected    = "connected"
	InstanceStatusDisconnected = "disconnected"
)

// Channel provider constants
const (
	ProviderWhatsApp = "whatsapp"
)

// ChannelInstance is a configured connection to an external messaging
// gateway. The dispatch core treats it as read-only; provisioning and
// pairing are handled elsewhere.
type ChannelInstance struct {
	ID        uint      `gorm:"column:id;primaryKey" json:"id"`
	CompanyID uint      `gorm:"column:company_id;not null;index;fk:companies" json:"company_id"`
	Name      string    `gorm:"column:name;size:100;not null;uniqueIndex" json:"name"`
	Provider  string    `gorm:"column:provider;size:50;not null;default:whatsapp" json:"provider"`
	Status    string    `gorm:"column:status;size:50;not null;check:status IN ('connected','disconnected')" json:"status"`
	BaseURL   string    `gorm:"column:base_url;size:500;not null" json:"base_url"`
	APIKey    string    `gorm:"column:api_key;size:255;not null" json:"-"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	// Relationships
	Company Company `gorm:"foreignKey:CompanyID;references:ID" json:"company,omitempty"`

	restify.API
}

func (ChannelInstance) TableName() string {
	return "channel_instances"
}
