package dispatch

import (
	"context"
	"time"

	"github.com/flowzap/flowzap-backend/apps/models"
	"github.com/getevo/evo/v2/lib/log"
	"gorm.io/gorm"
)

// RecordInput describes one message ledger entry.
type RecordInput struct {
	ConversationID    uint
	CompanyID         uint
	Direction         string
	Type              string
	Body              string
	AttachmentURL     *string
	FromAutomation    bool
	Status            string
	ProviderMessageID *string
}

// Ledger persists conversation history. Every dispatch attempt, failed or
// not, becomes exactly one row.
type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// Record inserts an immutable message row. For sent outbound messages it
// stamps SentAt; afterwards it bumps the conversation's last-activity
// timestamp. The bump is best-effort: conversation ordering is a soft
// property and a failure there must not fail the record.
func (l *Ledger) Record(ctx context.Context, input RecordInput) (*models.Message, error) {
	message := models.Message{
		ConversationID:    input.ConversationID,
		CompanyID:         input.CompanyID,
		Direction:         input.Direction,
		Type:              input.Type,
		Body:              input.Body,
		AttachmentURL:     input.AttachmentURL,
		FromAutomation:    input.FromAutomation,
		Status:            input.Status,
		ProviderMessageID: input.ProviderMessageID,
	}
	if input.Status == models.MessageStatusSent {
		now := time.Now()
		message.SentAt = &now
	}

	if err := l.db.WithContext(ctx).Create(&message).Error; err != nil {
		return nil, err
	}

	if err := l.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("id = ?", input.ConversationID).
		Update("last_message_at", message.CreatedAt).Error; err != nil {
		log.Warning("Failed to bump last_message_at for conversation %d: %v", input.ConversationID, err)
	}

	return &message, nil
}

// MarkStatus moves a pending message to sent or failed. Rows already in a
// terminal state are left untouched.
func (l *Ledger) MarkStatus(ctx context.Context, messageID uint, status string, providerMessageID *string) error {
	updates := map[string]any{"status": status}
	if status == models.MessageStatusSent {
		now := time.Now()
		updates["sent_at"] = &now
	}
	if providerMessageID != nil {
		updates["provider_message_id"] = providerMessageID
	}

	return l.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("id = ? AND status = ?", messageID, models.MessageStatusPending).
		Updates(updates).Error
}
