package attachments

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/flowzap/flowzap-backend/apps/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, conn.AutoMigrate(
		&models.Company{},
		&models.Lead{},
		&models.Attachment{},
	))
	return conn
}

// memoryStore is an in-memory ObjectStore used in place of S3
type memoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: map[string][]byte{}}
}

func (m *memoryStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memoryStore) Remove(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memoryStore) PublicURL(key string) string {
	return "http://files.local/" + key
}

func (m *memoryStore) get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	return data, ok
}

func (m *memoryStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

func seedLead(t *testing.T, conn *gorm.DB) (uint, uint) {
	t.Helper()
	company := models.Company{Name: "Acme"}
	require.NoError(t, conn.Create(&company).Error)
	lead := models.Lead{CompanyID: company.ID, Name: "Lead One", Phone: "5511999000111"}
	require.NoError(t, conn.Create(&lead).Error)
	return company.ID, lead.ID
}

func TestIngestAndRetrieve(t *testing.T) {
	conn := newTestDB(t)
	store := newMemoryStore()
	service := NewService(conn, store)
	companyID, leadID := seedLead(t, conn)

	payload := make([]byte, 10*1024)
	for i := range payload {
		payload[i] = byte(i % 251)
	}

	attachment, err := service.Ingest(context.Background(), IngestInput{
		CompanyID:  companyID,
		LeadID:     leadID,
		Payload:    base64.StdEncoding.EncodeToString(payload),
		FileName:   "contract.pdf",
		MimeType:   "application/pdf",
		UploadedBy: "test",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), attachment.Size)
	assert.Equal(t, models.AttachmentCategoryDocument, attachment.Category)
	assert.Equal(t, "http://files.local/"+attachment.StorageKey, attachment.PublicURL)

	stored, ok := store.get(attachment.StorageKey)
	require.True(t, ok)
	assert.Equal(t, payload, stored)
}

func TestIngestRejectsOversizedPayload(t *testing.T) {
	conn := newTestDB(t)
	store := newMemoryStore()
	service := NewService(conn, store)
	companyID, leadID := seedLead(t, conn)

	payload := base64.StdEncoding.EncodeToString(make([]byte, MaxPayloadSize+1))

	_, err := service.Ingest(context.Background(), IngestInput{
		CompanyID: companyID,
		LeadID:    leadID,
		Payload:   payload,
		FileName:  "huge.bin",
		MimeType:  "application/octet-stream",
	})
	var tooLarge *PayloadTooLargeError
	require.ErrorAs(t, err, &tooLarge)
	assert.Equal(t, int64(MaxPayloadSize+1), tooLarge.Size)

	// nothing reached the store
	assert.Equal(t, 0, store.count())
}

func TestIngestRejectsInvalidEncoding(t *testing.T) {
	conn := newTestDB(t)
	store := newMemoryStore()
	service := NewService(conn, store)
	companyID, leadID := seedLead(t, conn)

	_, err := service.Ingest(context.Background(), IngestInput{
		CompanyID: companyID,
		LeadID:    leadID,
		Payload:   "this is !!! not base64",
		FileName:  "bad.bin",
	})
	assert.ErrorIs(t, err, ErrInvalidEncoding)
	assert.Equal(t, 0, store.count())
}

func TestIngestScopedToCompany(t *testing.T) {
	conn := newTestDB(t)
	store := newMemoryStore()
	service := NewService(conn, store)
	_, leadID := seedLead(t, conn)

	_, err := service.Ingest(context.Background(), IngestInput{
		CompanyID: 999,
		LeadID:    leadID,
		Payload:   base64.StdEncoding.EncodeToString([]byte("hello")),
		FileName:  "note.txt",
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, store.count())
}

func TestSoftDelete(t *testing.T) {
	conn := newTestDB(t)
	store := newMemoryStore()
	service := NewService(conn, store)
	companyID, leadID := seedLead(t, conn)
	ctx := context.Background()

	attachment, err := service.Ingest(ctx, IngestInput{
		CompanyID: companyID,
		LeadID:    leadID,
		Payload:   base64.StdEncoding.EncodeToString([]byte("hello world")),
		FileName:  "note.txt",
		MimeType:  "text/plain",
	})
	require.NoError(t, err)

	items, err := service.List(ctx, companyID, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)

	require.NoError(t, service.Delete(ctx, companyID, attachment.ID))

	items, err = service.List(ctx, companyID, 0)
	require.NoError(t, err)
	assert.Empty(t, items)

	// the object removal is detached but should land shortly
	assert.Eventually(t, func() bool {
		_, ok := store.get(attachment.StorageKey)
		return !ok
	}, 2*time.Second, 10*time.Millisecond)

	// deleting twice is NotFound, the logical delete already happened
	assert.ErrorIs(t, service.Delete(ctx, companyID, attachment.ID), ErrNotFound)
	// foreign company cannot delete
	assert.ErrorIs(t, service.Delete(ctx, 999, attachment.ID), ErrNotFound)
}

func TestDeleteWithStorageDisabled(t *testing.T) {
	conn := newTestDB(t)
	service := NewService(conn, nil)
	companyID, leadID := seedLead(t, conn)
	ctx := context.Background()

	attachment := models.Attachment{
		CompanyID:  companyID,
		LeadID:     leadID,
		FileName:   "photo.png",
		MimeType:   "image/png",
		Category:   models.AttachmentCategoryImage,
		StorageKey: "attachments/1/photo.png",
	}
	require.NoError(t, conn.Create(&attachment).Error)

	// the logical delete must still land; object removal is skipped
	require.NoError(t, service.Delete(ctx, companyID, attachment.ID))

	items, err := service.List(ctx, companyID, 0)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestNormalizeCategory(t *testing.T) {
	cases := []struct {
		category string
		mimeType string
		want     string
	}{
		{models.AttachmentCategoryVideo, "application/pdf", models.AttachmentCategoryVideo},
		{"", "image/png", models.AttachmentCategoryImage},
		{"", "audio/ogg", models.AttachmentCategoryAudio},
		{"", "video/mp4", models.AttachmentCategoryVideo},
		{"", "application/pdf", models.AttachmentCategoryDocument},
		{"", "text/plain", models.AttachmentCategoryDocument},
		{"bogus", "application/vnd.ms-excel", models.AttachmentCategoryDocument},
		{"", "", models.AttachmentCategoryOther},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, normalizeCategory(c.category, c.mimeType), "category=%q mime=%q", c.category, c.mimeType)
	}
}

func TestListFiltersByLead(t *testing.T) {
	conn := newTestDB(t)
	store := newMemoryStore()
	service := NewService(conn, store)
	companyID, leadID := seedLead(t, conn)
	ctx := context.Background()

	otherLead := models.Lead{CompanyID: companyID, Name: "Lead Two", Phone: "5511888000222"}
	require.NoError(t, conn.Create(&otherLead).Error)

	for _, in := range []IngestInput{
		{CompanyID: companyID, LeadID: leadID, Payload: base64.StdEncoding.EncodeToString([]byte("a")), FileName: "a.txt", MimeType: "text/plain"},
		{CompanyID: companyID, LeadID: otherLead.ID, Payload: base64.StdEncoding.EncodeToString([]byte("b")), FileName: "b.txt", MimeType: "text/plain"},
	} {
		_, err := service.Ingest(ctx, in)
		require.NoError(t, err)
	}

	items, err := service.List(ctx, companyID, leadID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "a.txt", items[0].FileName)

	items, err = service.List(ctx, companyID, 0)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}
