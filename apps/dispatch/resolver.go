package dispatch

import (
	"context"
	"errors"
	"strings"

	"github.com/flowzap/flowzap-backend/apps/models"
	"gorm.io/gorm"
)

// ResolvedEndpoint carries everything the provider client needs to address
// one conversation's remote party.
type ResolvedEndpoint struct {
	Conversation *models.Conversation
	Instance     *models.ChannelInstance

	// Number is the bare remote address with any routing-domain suffix
	// (e.g. "@s.whatsapp.net") stripped.
	Number string
}

// Resolver loads a conversation's channel endpoint and validates it is
// usable for dispatch.
type Resolver struct {
	db *gorm.DB
}

func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// Resolve loads the conversation with its lead and channel instance, scoped
// by company. It has no side effects.
func (r *Resolver) Resolve(ctx context.Context, conversationID, companyID uint) (*ResolvedEndpoint, error) {
	var conversation models.Conversation
	err := r.db.WithContext(ctx).
		Preload("Lead").
		Preload("ChannelInstance").
		Where("id = ? AND company_id = ?", conversationID, companyID).
		First(&conversation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if conversation.ChannelInstance.ID == 0 {
		return nil, ErrEndpointUnavailable
	}
	if conversation.ChannelInstance.Status != models.InstanceStatusConnected {
		return nil, ErrEndpointUnavailable
	}

	number := conversation.RemoteJID
	if idx := strings.Index(number, "@"); idx >= 0 {
		number = number[:idx]
	}

	return &ResolvedEndpoint{
		Conversation: &conversation,
		Instance:     &conversation.ChannelInstance,
		Number:       number,
	}, nil
}
