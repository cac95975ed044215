package models

import (
	"time"

	"github.com/getevo/restify"
)

// Attachment category constants
const (
	AttachmentCategoryDocument = "document"
	AttachmentCategoryImage    = "image"
	AttachmentCategoryAudio    = "audio"
	AttachmentCategoryVideo    = "video"
	AttachmentCategoryOther    = "other"
)

// Attachment is the metadata record for an object persisted to content
// storage. Deletion flips the soft flag; the underlying object removal is
// best-effort and never blocks the logical delete.
type Attachment struct {
	ID         uint      `gorm:"column:id;primaryKey" json:"id"`
	CompanyID  uint      `gorm:"column:company_id;not null;index;fk:companies" json:"company_id"`
	LeadID     uint      `gorm:"column:lead_id;not null;index;fk:leads" json:"lead_id"`
	FileName   string    `gorm:"column:file_name;size:255;not null" json:"file_name"`
	MimeType   string    `gorm:"column:mime_type;size:100;not null" json:"mime_type"`
	Size       int64     `gorm:"column:size;not null" json:"size"`
	StorageKey string    `gorm:"column:storage_key;size:500;not null" json:"-"`
	PublicURL  string    `gorm:"column:public_url;size:1000;not null" json:"public_url"`
	Category   string    `gorm:"column:category;size:50;not null;default:other" json:"category"`
	Deleted    bool      `gorm:"column:deleted;default:0;index" json:"-"`
	UploadedBy string    `gorm:"column:uploaded_by;size:100" json:"uploaded_by"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	// Relationships
	Company Company `gorm:"foreignKey:CompanyID;references:ID" json:"company,omitempty"`
	Lead    Lead    `gorm:"foreignKey:LeadID;references:ID" json:"lead,omitempty"`

	restify.API
}
