package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/flowzap/flowzap-backend/apps/models"
	"github.com/getevo/evo/v2/lib/log"
	"gorm.io/gorm"
)

// CreditMeter debits the sending company for each delivered message.
// Satisfied by the credits service.
type CreditMeter interface {
	Consume(ctx context.Context, companyID uint, amount int64, serviceType, description string, reference *string, actor string) (int64, error)
}

// DispatchResult reports the outcome of one send.
type DispatchResult struct {
	MessageID         uint    `json:"message_id"`
	ProviderMessageID string  `json:"provider_message_id"`
	Billed            bool    `json:"billed"`
	BillingError      *string `json:"billing_error,omitempty"`
}

// Service orchestrates outbound sends: resolve the endpoint, call the
// gateway, record the attempt, then meter credits.
type Service struct {
	db       *gorm.DB
	resolver *Resolver
	provider Provider
	ledger   *Ledger
	credits  CreditMeter
	sendCost int64
}

func NewService(db *gorm.DB, provider Provider, credits CreditMeter) *Service {
	return &Service{
		db:       db,
		resolver: NewResolver(db),
		provider: provider,
		ledger:   NewLedger(db),
		credits:  credits,
		sendCost: 1,
	}
}

// SendText dispatches a text message to a conversation's remote party.
//
// A resolver failure aborts before any row is written. A provider failure
// still records a failed message for audit and charges nothing. A billing
// failure after a confirmed send does not undo the send; the result carries
// the billing error so the caller can reconcile.
func (s *Service) SendText(ctx context.Context, conversationID, companyID uint, body string, fromAutomation bool, actor string) (*DispatchResult, error) {
	endpoint, err := s.resolver.Resolve(ctx, conversationID, companyID)
	if err != nil {
		return nil, err
	}

	providerID, sendErr := s.provider.SendText(endpoint, body)

	input := RecordInput{
		ConversationID: conversationID,
		CompanyID:      companyID,
		Direction:      models.MessageDirectionOutbound,
		Type:           models.MessageTypeText,
		Body:           body,
		FromAutomation: fromAutomation,
	}
	return s.finishSend(ctx, endpoint, input, providerID, sendErr, actor)
}

// SendAttachment dispatches a previously ingested attachment by its id,
// with an optional caption.
func (s *Service) SendAttachment(ctx context.Context, conversationID, companyID, attachmentID uint, caption string, fromAutomation bool, actor string) (*DispatchResult, error) {
	endpoint, err := s.resolver.Resolve(ctx, conversationID, companyID)
	if err != nil {
		return nil, err
	}

	var attachment models.Attachment
	err = s.db.WithContext(ctx).
		Where("id = ? AND company_id = ? AND deleted = ?", attachmentID, companyID, false).
		First(&attachment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	providerID, sendErr := s.provider.SendMedia(endpoint, attachment.PublicURL, attachment.MimeType, caption)

	input := RecordInput{
		ConversationID: conversationID,
		CompanyID:      companyID,
		Direction:      models.MessageDirectionOutbound,
		Type:           models.MessageTypeAttachment,
		Body:           caption,
		AttachmentURL:  &attachment.PublicURL,
		FromAutomation: fromAutomation,
	}
	return s.finishSend(ctx, endpoint, input, providerID, sendErr, actor)
}

func (s *Service) finishSend(ctx context.Context, endpoint *ResolvedEndpoint, input RecordInput, providerID string, sendErr error, actor string) (*DispatchResult, error) {
	if sendErr != nil {
		input.Status = models.MessageStatusFailed
		if _, recordErr := s.ledger.Record(ctx, input); recordErr != nil {
			log.Error("Failed to record failed dispatch for conversation %d: %v", input.ConversationID, recordErr)
		}
		return nil, sendErr
	}

	input.Status = models.MessageStatusSent
	input.ProviderMessageID = &providerID
	message, err := s.ledger.Record(ctx, input)
	if err != nil {
		return nil, err
	}

	result := &DispatchResult{
		MessageID:         message.ID,
		ProviderMessageID: providerID,
		Billed:            true,
	}

	reference := fmt.Sprintf("conversation:%d", input.ConversationID)
	description := fmt.Sprintf("Message sent to %s", endpoint.Number)
	if _, err := s.credits.Consume(ctx, input.CompanyID, s.sendCost, "whatsapp_send", description, &reference, actor); err != nil {
		// The message is already delivered and cannot be unsent. Surface
		// the billing failure instead of rolling anything back.
		log.Warning("Message %d delivered but unbilled for company %d: %v", message.ID, input.CompanyID, err)
		result.Billed = false
		billingError := err.Error()
		result.BillingError = &billingError
	}

	return result, nil
}
