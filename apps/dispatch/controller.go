package dispatch

import (
	"context"
	"errors"
	"net/http"

	"github.com/flowzap/flowzap-backend/apps/models"
	"github.com/flowzap/flowzap-backend/lib/response"
	"github.com/flowzap/flowzap-backend/lib/tenant"
	"github.com/getevo/evo/v2"
	"github.com/getevo/evo/v2/lib/db"
	"github.com/getevo/evo/v2/lib/log"
	"github.com/getevo/pagination"
	"github.com/go-playground/validator/v10"
)

// Controller handles outbound dispatch endpoints
type Controller struct{}

var validate = validator.New()

// SendTextRequest represents an outbound text message
type SendTextRequest struct {
	Body           string `json:"body" validate:"required,max=4096"`
	FromAutomation bool   `json:"from_automation"`
}

// SendText handles POST /api/conversations/:conversation_id/messages/text
func (c Controller) SendText(request *evo.Request) any {
	companyID, err := tenant.FromRequest(request)
	if err != nil {
		return response.Error(response.ErrInvalidCompany)
	}

	conversationID := request.Param("conversation_id").Uint()
	if conversationID == 0 {
		return response.Error(response.ErrInvalidInput)
	}

	var req SendTextRequest
	if err := request.BodyParser(&req); err != nil {
		return response.Error(response.ErrInvalidInput)
	}
	if err := validate.Struct(req); err != nil {
		return response.Error(response.NewErrorWithDetails(response.ErrorCodeInvalidInput, "Invalid send request", http.StatusBadRequest, err.Error()))
	}

	result, err := service.SendText(context.Background(), conversationID, companyID, req.Body, req.FromAutomation, tenant.ActorFromRequest(request))
	if err != nil {
		return dispatchErrorResponse(err)
	}

	return response.OK(result)
}

// SendAttachmentRequest represents an outbound attachment message
type SendAttachmentRequest struct {
	AttachmentID   uint   `json:"attachment_id" validate:"required"`
	Caption        string `json:"caption" validate:"omitempty,max=1024"`
	FromAutomation bool   `json:"from_automation"`
}

// SendAttachment handles POST /api/conversations/:conversation_id/messages/attachment
func (c Controller) SendAttachment(request *evo.Request) any {
	companyID, err := tenant.FromRequest(request)
	if err != nil {
		return response.Error(response.ErrInvalidCompany)
	}

	conversationID := request.Param("conversation_id").Uint()
	if conversationID == 0 {
		return response.Error(response.ErrInvalidInput)
	}

	var req SendAttachmentRequest
	if err := request.BodyParser(&req); err != nil {
		return response.Error(response.ErrInvalidInput)
	}
	if err := validate.Struct(req); err != nil {
		return response.Error(response.NewErrorWithDetails(response.ErrorCodeInvalidInput, "Invalid send request", http.StatusBadRequest, err.Error()))
	}

	result, err := service.SendAttachment(context.Background(), conversationID, companyID, req.AttachmentID, req.Caption, req.FromAutomation, tenant.ActorFromRequest(request))
	if err != nil {
		return dispatchErrorResponse(err)
	}

	return response.OK(result)
}

// History handles GET /api/conversations/:conversation_id/messages
func (c Controller) History(request *evo.Request) any {
	companyID, err := tenant.FromRequest(request)
	if err != nil {
		return response.Error(response.ErrInvalidCompany)
	}

	conversationID := request.Param("conversation_id").Uint()
	if conversationID == 0 {
		return response.Error(response.ErrInvalidInput)
	}

	var conversation models.Conversation
	err = db.Where("id = ? AND company_id = ?", conversationID, companyID).First(&conversation).Error
	if resp := response.HandleDBError(err, "Conversation not found", "Failed to load conversation"); resp != nil {
		return resp
	}

	query := db.Model(&models.Message{}).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC, id DESC")

	var messages []models.Message
	p, err := pagination.New(query, request, &messages, pagination.Options{MaxSize: 100})
	if err != nil {
		log.Error("Failed to list messages for conversation %d: %v", conversationID, err)
		return response.Error(response.ErrInternalError)
	}

	return response.OKWithMeta(messages, &response.Meta{
		Page:       p.CurrentPage,
		Limit:      p.Size,
		Total:      int64(p.Records),
		TotalPages: p.Pages,
	})
}

func dispatchErrorResponse(err error) any {
	var rejected *ProviderRejectedError
	var unreachable *ProviderUnreachableError
	switch {
	case errors.Is(err, ErrNotFound):
		return response.NotFound("Conversation not found")
	case errors.Is(err, ErrEndpointUnavailable):
		return response.Error(response.ErrEndpointUnavailable)
	case errors.As(err, &rejected):
		return response.Error(response.NewErrorWithDetails(response.ErrorCodeProviderRejected, "Provider rejected the message", http.StatusUnprocessableEntity, rejected.Message))
	case errors.As(err, &unreachable):
		return response.Error(response.NewError(response.ErrorCodeProviderUnreachable, "Provider is unreachable, retry later", http.StatusBadGateway))
	default:
		log.Error("Dispatch failed: %v", err)
		return response.Error(response.ErrInternalError)
	}
}
