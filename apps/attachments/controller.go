package attachments

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/flowzap/flowzap-backend/apps/storage"
	"github.com/flowzap/flowzap-backend/lib/response"
	"github.com/flowzap/flowzap-backend/lib/tenant"
	"github.com/getevo/evo/v2"
	"github.com/getevo/evo/v2/lib/log"
	"github.com/go-playground/validator/v10"
)

// Controller handles attachment endpoints
type Controller struct{}

var validate = validator.New()

// IngestRequest represents an attachment upload
type IngestRequest struct {
	LeadID   uint   `json:"lead_id" validate:"required"`
	Payload  string `json:"payload" validate:"required"`
	FileName string `json:"file_name" validate:"required,max=255"`
	MimeType string `json:"mime_type" validate:"omitempty,max=100"`
	Category string `json:"category" validate:"omitempty,max=50"`
}

// Ingest handles POST /api/attachments
func (c Controller) Ingest(request *evo.Request) any {
	companyID, err := tenant.FromRequest(request)
	if err != nil {
		return response.Error(response.ErrInvalidCompany)
	}

	if !storage.IsEnabled() {
		return response.Error(response.NewError(response.ErrorCodeStorageError, "Content storage is not configured", http.StatusServiceUnavailable))
	}

	var req IngestRequest
	if err := request.BodyParser(&req); err != nil {
		return response.Error(response.ErrInvalidInput)
	}
	if err := validate.Struct(req); err != nil {
		return response.Error(response.NewErrorWithDetails(response.ErrorCodeInvalidInput, "Invalid attachment payload", http.StatusBadRequest, err.Error()))
	}

	attachment, err := service.Ingest(context.Background(), IngestInput{
		CompanyID:  companyID,
		LeadID:     req.LeadID,
		Payload:    req.Payload,
		FileName:   req.FileName,
		MimeType:   req.MimeType,
		Category:   req.Category,
		UploadedBy: tenant.ActorFromRequest(request),
	})
	if err != nil {
		return ingestErrorResponse(err)
	}

	return response.Created(attachment)
}

// List handles GET /api/attachments
func (c Controller) List(request *evo.Request) any {
	companyID, err := tenant.FromRequest(request)
	if err != nil {
		return response.Error(response.ErrInvalidCompany)
	}

	leadID := request.Query("lead_id").Uint()

	items, err := service.List(context.Background(), companyID, leadID)
	if err != nil {
		log.Error("Failed to list attachments: %v", err)
		return response.Error(response.ErrDatabaseError)
	}

	return response.List(items, len(items))
}

// Delete handles DELETE /api/attachments/:id
func (c Controller) Delete(request *evo.Request) any {
	companyID, err := tenant.FromRequest(request)
	if err != nil {
		return response.Error(response.ErrInvalidCompany)
	}

	attachmentID := request.Param("id").Uint()
	if attachmentID == 0 {
		return response.BadRequest("Invalid attachment ID")
	}

	if err := service.Delete(context.Background(), companyID, attachmentID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return response.NotFound("Attachment not found")
		}
		log.Error("Failed to delete attachment %d: %v", attachmentID, err)
		return response.Error(response.ErrDatabaseError)
	}

	return response.Message("Attachment deleted")
}

func ingestErrorResponse(err error) any {
	var tooLarge *PayloadTooLargeError
	switch {
	case errors.Is(err, ErrInvalidEncoding):
		return response.Error(response.NewError(response.ErrorCodeInvalidEncoding, "Payload is not valid base64", http.StatusBadRequest))
	case errors.As(err, &tooLarge):
		return response.Error(response.NewErrorWithDetails(
			response.ErrorCodePayloadTooLarge,
			"Payload exceeds the attachment size limit",
			http.StatusRequestEntityTooLarge,
			fmt.Sprintf("received %d bytes, limit is %d bytes", tooLarge.Size, tooLarge.Limit),
		))
	case errors.Is(err, ErrNotFound):
		return response.NotFound("Lead not found")
	case errors.Is(err, ErrStorage):
		log.Error("Attachment storage write failed: %v", err)
		return response.Error(response.NewError(response.ErrorCodeStorageError, "Failed to store attachment", http.StatusBadGateway))
	default:
		log.Error("Attachment ingestion failed: %v", err)
		return response.Error(response.ErrInternalError)
	}
}
