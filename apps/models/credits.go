package models

import (
	"time"

	"gorm.io/datatypes"
)

// Credit transaction type constants
const (
	CreditTransactionPurchase = "purchase"
	CreditTransactionUsage    = "usage"
	CreditTransactionBonus    = "bonus"
	CreditTransactionRefund   = "refund"
)

// CreditAccount holds a company's prepaid balance, one row per company.
// Balance mutations go through the conditional-update path in the credits
// service; nothing else writes this table.
type CreditAccount struct {
	ID        uint           `gorm:"column:id;primaryKey" json:"id"`
	CompanyID uint           `gorm:"column:company_id;not null;uniqueIndex;fk:companies" json:"company_id"`
	Balance   int64          `gorm:"column:balance;not null;default:0" json:"balance"`
	Details   datatypes.JSON `gorm:"column:details;type:json" json:"details"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	// Relationships
	Company Company `gorm:"foreignKey:CompanyID;references:ID" json:"company,omitempty"`
}

func (CreditAccount) TableName() string {
	return "credit_accounts"
}

// CreditTransaction is the append-only audit trail of balance mutations.
// One row per mutation; current balance is always reconstructible from it.
type CreditTransaction struct {
	ID          uint      `gorm:"column:id;primaryKey" json:"id"`
	CompanyID   uint      `gorm:"column:company_id;not null;index;fk:companies" json:"company_id"`
	Type        string    `gorm:"column:type;size:20;not null;index;check:type IN ('purchase','usage','bonus','refund')" json:"type"`
	Amount      int64     `gorm:"column:amount;not null" json:"amount"`
	ServiceType string    `gorm:"column:service_type;size:100;index" json:"service_type"`
	Description string    `gorm:"column:description;size:500;not null" json:"description"`
	Reference   *string   `gorm:"column:reference;size:255;index" json:"reference"`
	Actor       string    `gorm:"column:actor;size:100" json:"actor"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`

	// Relationships
	Company Company `gorm:"foreignKey:CompanyID;references:ID" json:"company,omitempty"`
}

func (CreditTransaction) TableName() string {
	return "credit_transactions"
}
