package attachments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/flowzap/flowzap-backend/apps/models"
	"github.com/flowzap/flowzap-backend/apps/storage"
	"github.com/flowzap/flowzap-backend/lib/imageutil"
	"github.com/getevo/evo/v2/lib/log"
	"gorm.io/gorm"
)

// MaxPayloadSize is the ingestion ceiling for a single attachment (50 MiB)
const MaxPayloadSize = 50 * 1024 * 1024

// IngestInput carries one attachment upload
type IngestInput struct {
	CompanyID  uint
	LeadID     uint
	Payload    string // base64, raw or data-URI form
	FileName   string
	MimeType   string
	Category   string
	UploadedBy string
}

// Service implements the attachment ingestion pipeline
type Service struct {
	db    *gorm.DB
	store storage.ObjectStore
}

// NewService creates an attachment service with its dependencies injected
func NewService(db *gorm.DB, store storage.ObjectStore) *Service {
	return &Service{db: db, store: store}
}

// Ingest decodes, validates and persists one attachment: bytes go to the
// content store, metadata to the database. The two writes cannot be atomic,
// so a metadata failure triggers a best-effort removal of the orphaned
// object.
func (s *Service) Ingest(ctx context.Context, in IngestInput) (*models.Attachment, error) {
	data, err := imageutil.DecodeBase64(in.Payload)
	if err != nil {
		return nil, ErrInvalidEncoding
	}

	if int64(len(data)) > MaxPayloadSize {
		return nil, &PayloadTooLargeError{Size: int64(len(data)), Limit: MaxPayloadSize}
	}

	// The owning lead must exist and belong to the company
	var lead models.Lead
	err = s.db.WithContext(ctx).
		Where("id = ? AND company_id = ?", in.LeadID, in.CompanyID).
		First(&lead).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load lead: %w", err)
	}

	mimeType := in.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	key := storage.GenerateKey(in.CompanyID, in.LeadID, in.FileName)
	if err := s.store.Put(ctx, key, data, mimeType); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	// Image previews are a convenience, never a reason to fail the upload
	if strings.HasPrefix(mimeType, "image/") {
		if thumb, err := imageutil.Thumbnail(data); err == nil {
			if err := s.store.Put(ctx, key+"_thumb.jpg", thumb, "image/jpeg"); err != nil {
				log.Warning("Failed to store thumbnail for %s: %v", key, err)
			}
		}
	}

	attachment := models.Attachment{
		CompanyID:  in.CompanyID,
		LeadID:     in.LeadID,
		FileName:   in.FileName,
		MimeType:   mimeType,
		Size:       int64(len(data)),
		StorageKey: key,
		PublicURL:  s.store.PublicURL(key),
		Category:   normalizeCategory(in.Category, mimeType),
		UploadedBy: in.UploadedBy,
	}

	if err := s.db.WithContext(ctx).Create(&attachment).Error; err != nil {
		// Compensate the non-atomic pair of writes: drop the orphan object
		s.removeObjectDetached(key)
		return nil, fmt.Errorf("failed to persist attachment metadata: %w", err)
	}

	return &attachment, nil
}

// List returns the company's live attachments, newest first, optionally
// narrowed to one lead
func (s *Service) List(ctx context.Context, companyID uint, leadID uint) ([]models.Attachment, error) {
	query := s.db.WithContext(ctx).
		Where("company_id = ? AND deleted = ?", companyID, false).
		Order("created_at DESC")
	if leadID > 0 {
		query = query.Where("lead_id = ?", leadID)
	}

	var items []models.Attachment
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Delete flips the soft-delete flag and schedules the object removal. The
// logical delete succeeds regardless of the storage outcome.
func (s *Service) Delete(ctx context.Context, companyID uint, attachmentID uint) error {
	var attachment models.Attachment
	err := s.db.WithContext(ctx).
		Where("id = ? AND company_id = ? AND deleted = ?", attachmentID, companyID, false).
		First(&attachment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	err = s.db.WithContext(ctx).
		Model(&models.Attachment{}).
		Where("id = ?", attachment.ID).
		Update("deleted", true).Error
	if err != nil {
		return err
	}

	s.removeObjectDetached(attachment.StorageKey)
	if strings.HasPrefix(attachment.MimeType, "image/") {
		s.removeObjectDetached(attachment.StorageKey + "_thumb.jpg")
	}

	return nil
}

func normalizeCategory(category, mimeType string) string {
	switch category {
	case models.AttachmentCategoryDocument,
		models.AttachmentCategoryImage,
		models.AttachmentCategoryAudio,
		models.AttachmentCategoryVideo,
		models.AttachmentCategoryOther:
		return category
	}

	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return models.AttachmentCategoryImage
	case strings.HasPrefix(mimeType, "audio/"):
		return models.AttachmentCategoryAudio
	case strings.HasPrefix(mimeType, "video/"):
		return models.AttachmentCategoryVideo
	case strings.HasPrefix(mimeType, "text/"), strings.HasPrefix(mimeType, "application/"):
		return models.AttachmentCategoryDocument
	}
	return models.AttachmentCategoryOther
}
