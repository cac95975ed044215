package dispatch

import (
	"context"
	"errors"
	"strings"

	"github.com/flowzap/flowzap-backend/apps/models"
	"github.com/flowzap/flowzap-backend/lib/response"
	"github.com/getevo/evo/v2"
	"github.com/getevo/evo/v2/lib/log"
	"gorm.io/gorm"
)

// WebhookEvent is the payload posted by the gateway on inbound activity.
type WebhookEvent struct {
	Event    string `json:"event"`
	Instance string `json:"instance"`
	Data     struct {
		Key struct {
			RemoteJID string `json:"remoteJid"`
			FromMe    bool   `json:"fromMe"`
			ID        string `json:"id"`
		} `json:"key"`
		PushName string `json:"pushName"`
		Message  struct {
			Conversation        string `json:"conversation"`
			ExtendedTextMessage struct {
				Text string `json:"text"`
			} `json:"extendedTextMessage"`
		} `json:"message"`
	} `json:"data"`
}

// WebhookHandler handles POST /api/webhooks/whatsapp/:instance. The gateway
// posts every account event here; only inbound message upserts are recorded.
func (c Controller) WebhookHandler(request *evo.Request) any {
	instanceName := request.Param("instance").String()
	if instanceName == "" {
		return response.Error(response.ErrInvalidInput)
	}

	var event WebhookEvent
	if err := request.BodyParser(&event); err != nil {
		return response.Error(response.ErrInvalidInput)
	}

	if event.Event != "messages.upsert" || event.Data.Key.FromMe {
		return response.Message("ignored")
	}

	if err := service.RecordInbound(context.Background(), instanceName, event); err != nil {
		if errors.Is(err, ErrNotFound) {
			return response.NotFound("Unknown channel instance")
		}
		log.Error("Failed to record inbound message for instance %s: %v", instanceName, err)
		return response.Error(response.ErrDatabaseError)
	}

	return response.Message("recorded")
}

// RecordInbound upserts the lead and conversation behind an inbound message
// and appends it to the ledger.
func (s *Service) RecordInbound(ctx context.Context, instanceName string, event WebhookEvent) error {
	var instance models.ChannelInstance
	err := s.db.WithContext(ctx).Where("name = ?", instanceName).First(&instance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	remoteJID := event.Data.Key.RemoteJID
	phone := remoteJID
	if idx := strings.Index(phone, "@"); idx >= 0 {
		phone = phone[:idx]
	}

	name := event.Data.PushName
	if name == "" {
		name = phone
	}

	var lead models.Lead
	err = s.db.WithContext(ctx).
		Where(models.Lead{CompanyID: instance.CompanyID, Phone: phone}).
		Attrs(models.Lead{Name: name}).
		FirstOrCreate(&lead).Error
	if err != nil {
		return err
	}

	var conversation models.Conversation
	err = s.db.WithContext(ctx).
		Where(models.Conversation{
			CompanyID:         instance.CompanyID,
			ChannelInstanceID: instance.ID,
			RemoteJID:         remoteJID,
		}).
		Attrs(models.Conversation{
			LeadID: lead.ID,
			Status: models.ConversationStatusActive,
		}).
		FirstOrCreate(&conversation).Error
	if err != nil {
		return err
	}

	body := event.Data.Message.Conversation
	if body == "" {
		body = event.Data.Message.ExtendedTextMessage.Text
	}

	input := RecordInput{
		ConversationID: conversation.ID,
		CompanyID:      instance.CompanyID,
		Direction:      models.MessageDirectionInbound,
		Type:           models.MessageTypeText,
		Body:           body,
		Status:         models.MessageStatusSent,
	}
	if event.Data.Key.ID != "" {
		providerID := event.Data.Key.ID
		input.ProviderMessageID = &providerID
	}

	_, err = s.ledger.Record(ctx, input)
	return err
}
