package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/flowzap/flowzap-backend/apps/nats"
	"github.com/getevo/evo/v2/lib/log"
	"github.com/getevo/restify"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Conversation status constants
const (
	ConversationStatusActive = "active"
	ConversationStatusClosed = "closed"
)

// Message direction constants
const (
	MessageDirectionInbound  = "inbound"
	MessageDirectionOutbound = "outbound"
)

// Message type constants
const (
	MessageTypeText       = "text"
	MessageTypeAttachment = "attachment"
)

// Message delivery status constants
const (
	MessageStatusPending = "pending"
	MessageStatusSent    = "sent"
	MessageStatusFailed  = "failed"
)

// Conversation is a persistent thread between a company and a lead over one
// channel instance. The dispatch core only bumps LastMessageAt; the rest of
// the record is owned by CRUD collaborators.
type Conversation struct {
	ID                uint       `gorm:"column:id;primaryKey" json:"id"`
	CompanyID         uint       `gorm:"column:company_id;not null;index;fk:companies" json:"company_id"`
	LeadID            uint       `gorm:"column:lead_id;not null;index;fk:leads" json:"lead_id"`
	ChannelInstanceID uint       `gorm:"column:channel_instance_id;not null;index;fk:channel_instances" json:"channel_instance_id"`
	RemoteJID         string     `gorm:"column:remote_jid;size:255;not null;index" json:"remote_jid"`
	Status            string     `gorm:"column:status;size:50;not null;check:status IN ('active','closed')" json:"status"`
	LastMessageAt     *time.Time `gorm:"column:last_message_at" json:"last_message_at"`
	CreatedAt         time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	// Relationships
	Company         Company         `gorm:"foreignKey:CompanyID;references:ID" json:"company,omitempty"`
	Lead            Lead            `gorm:"foreignKey:LeadID;references:ID" json:"lead,omitempty"`
	ChannelInstance ChannelInstance `gorm:"foreignKey:ChannelInstanceID;references:ID" json:"channel_instance,omitempty"`
	Messages        []Message       `gorm:"foreignKey:ConversationID;references:ID" json:"messages,omitempty"`

	restify.API
}

// Message is one immutable row in the conversation history. Failed dispatch
// attempts are recorded too; the only permitted mutation after insert is the
// pending -> sent|failed status transition.
type Message struct {
	ID                uint           `gorm:"column:id;primaryKey" json:"id"`
	ConversationID    uint           `gorm:"column:conversation_id;not null;index;fk:conversations" json:"conversation_id"`
	CompanyID         uint           `gorm:"column:company_id;not null;index;fk:companies" json:"company_id"`
	Direction         string         `gorm:"column:direction;size:20;not null;check:direction IN ('inbound','outbound')" json:"direction"`
	Type              string         `gorm:"column:type;size:20;not null;check:type IN ('text','attachment')" json:"type"`
	Body              string         `gorm:"column:body;type:text" json:"body"`
	AttachmentURL     *string        `gorm:"column:attachment_url;size:1000" json:"attachment_url"`
	FromAutomation    bool           `gorm:"column:from_automation;default:0" json:"from_automation"`
	Status            string         `gorm:"column:status;size:20;not null;check:status IN ('pending','sent','failed')" json:"status"`
	ProviderMessageID *string        `gorm:"column:provider_message_id;size:255;index" json:"provider_message_id"`
	SentAt            *time.Time     `gorm:"column:sent_at" json:"sent_at"`
	Metadata          datatypes.JSON `gorm:"column:metadata;type:json" json:"metadata"`
	CreatedAt         time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`

	// Relationships
	Conversation Conversation `gorm:"foreignKey:ConversationID;references:ID" json:"conversation,omitempty"`
}

// AfterCreate hook - broadcast message creation to NATS so dashboards and
// automations see new history rows in real time.
func (m *Message) AfterCreate(tx *gorm.DB) error {
	payload := map[string]interface{}{
		"event":      "message.created",
		"message_id": m.ID,
		"direction":  m.Direction,
		"type":       m.Type,
		"status":     m.Status,
	}

	go func() {
		subject := fmt.Sprintf("conversation.%d", m.ConversationID)
		data, _ := json.Marshal(payload)
		if err := nats.Publish(subject, data); err != nil {
			log.Error("Failed to publish message.created to NATS: %v", err)
		}
	}()

	return nil
}
