package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/flowzap/flowzap-backend/apps/credits"
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
		&models.ChannelInstance{},
		&models.Conversation{},
		&models.Message{},
		&models.Attachment{},
		&models.CreditAccount{},
		&models.CreditTransaction{},
	))
	return conn
}

type fixture struct {
	company      models.Company
	lead         models.Lead
	instance     models.ChannelInstance
	conversation models.Conversation
}

func seed(t *testing.T, conn *gorm.DB, instanceStatus, baseURL string) *fixture {
	t.Helper()

	f := &fixture{}
	f.company = models.Company{Name: "Acme"}
	require.NoError(t, conn.Create(&f.company).Error)

	f.lead = models.Lead{CompanyID: f.company.ID, Name: "Lead One", Phone: "5511999000111"}
	require.NoError(t, conn.Create(&f.lead).Error)

	f.instance = models.ChannelInstance{
		CompanyID: f.company.ID,
		Name:      "inst-" + uuid.NewString(),
		Provider:  models.ProviderWhatsApp,
		Status:    instanceStatus,
		BaseURL:   baseURL,
		APIKey:    "gateway-secret",
	}
	require.NoError(t, conn.Create(&f.instance).Error)

	f.conversation = models.Conversation{
		CompanyID:         f.company.ID,
		LeadID:            f.lead.ID,
		ChannelInstanceID: f.instance.ID,
		RemoteJID:         "5511999000111@s.whatsapp.net",
		Status:            models.ConversationStatusActive,
	}
	require.NoError(t, conn.Create(&f.conversation).Error)
	return f
}

// gateway is a fake provider endpoint recording what it receives.
type gateway struct {
	mu       sync.Mutex
	requests []gatewayRequest
	status   int
	response string
}

type gatewayRequest struct {
	Path   string
	APIKey string
	Body   map[string]any
}

func newGateway(status int, response string) (*gateway, *httptest.Server) {
	g := &gateway{status: status, response: response}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		g.mu.Lock()
		g.requests = append(g.requests, gatewayRequest{
			Path:   r.URL.Path,
			APIKey: r.Header.Get("apikey"),
			Body:   body,
		})
		g.mu.Unlock()
		w.WriteHeader(g.status)
		_, _ = w.Write([]byte(g.response))
	}))
	return g, srv
}

func (g *gateway) last() gatewayRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.requests[len(g.requests)-1]
}

func newTestService(conn *gorm.DB) (*Service, *credits.Service) {
	meter := credits.NewService(conn)
	provider := &WhatsAppProvider{client: &http.Client{}}
	return NewService(conn, provider, meter), meter
}

func messageCount(t *testing.T, conn *gorm.DB, conversationID uint) int64 {
	t.Helper()
	var count int64
	require.NoError(t, conn.Model(&models.Message{}).Where("conversation_id = ?", conversationID).Count(&count).Error)
	return count
}

func TestResolveScopedByCompany(t *testing.T) {
	conn := newTestDB(t)
	f := seed(t, conn, models.InstanceStatusConnected, "http://gateway.local")
	resolver := NewResolver(conn)
	ctx := context.Background()

	endpoint, err := resolver.Resolve(ctx, f.conversation.ID, f.company.ID)
	require.NoError(t, err)
	assert.Equal(t, "5511999000111", endpoint.Number)
	assert.Equal(t, f.instance.ID, endpoint.Instance.ID)

	_, err = resolver.Resolve(ctx, f.conversation.ID, f.company.ID+1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = resolver.Resolve(ctx, f.conversation.ID+99, f.company.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveDisconnectedInstance(t *testing.T) {
	conn := newTestDB(t)
	f := seed(t, conn, models.InstanceStatusDisconnected, "http://gateway.local")
	service, _ := newTestService(conn)

	_, err := service.SendText(context.Background(), f.conversation.ID, f.company.ID, "hello", false, "test")
	assert.ErrorIs(t, err, ErrEndpointUnavailable)

	// resolver failures abort before any ledger write
	assert.Equal(t, int64(0), messageCount(t, conn, f.conversation.ID))
}

func TestSendTextSuccess(t *testing.T) {
	conn := newTestDB(t)
	g, srv := newGateway(http.StatusCreated, `{"key":{"id":"WAMID-1"}}`)
	defer srv.Close()

	f := seed(t, conn, models.InstanceStatusConnected, srv.URL)
	service, meter := newTestService(conn)
	ctx := context.Background()

	_, err := meter.Add(ctx, f.company.ID, 10, models.CreditTransactionPurchase, "top-up", nil, "test")
	require.NoError(t, err)

	result, err := service.SendText(ctx, f.conversation.ID, f.company.ID, "hello there", false, "test")
	require.NoError(t, err)
	assert.Equal(t, "WAMID-1", result.ProviderMessageID)
	assert.True(t, result.Billed)
	assert.Nil(t, result.BillingError)

	req := g.last()
	assert.Equal(t, "/message/sendText/"+f.instance.Name, req.Path)
	assert.Equal(t, "gateway-secret", req.APIKey)
	assert.Equal(t, "5511999000111", req.Body["number"])
	assert.Equal(t, "hello there", req.Body["text"])

	var message models.Message
	require.NoError(t, conn.First(&message, result.MessageID).Error)
	assert.Equal(t, models.MessageStatusSent, message.Status)
	assert.Equal(t, models.MessageDirectionOutbound, message.Direction)
	require.NotNil(t, message.ProviderMessageID)
	assert.Equal(t, "WAMID-1", *message.ProviderMessageID)
	assert.NotNil(t, message.SentAt)

	var conversation models.Conversation
	require.NoError(t, conn.First(&conversation, f.conversation.ID).Error)
	assert.NotNil(t, conversation.LastMessageAt)

	balance, err := meter.Balance(ctx, f.company.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(9), balance)

	rows, err := meter.ListTransactions(ctx, f.company.ID, 50, 0, models.CreditTransactionUsage)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].Reference)
	assert.Equal(t, fmt.Sprintf("conversation:%d", f.conversation.ID), *rows[0].Reference)
}

func TestSendTextProviderRejected(t *testing.T) {
	conn := newTestDB(t)
	_, srv := newGateway(http.StatusBadRequest, `{"message":"number is not on whatsapp"}`)
	defer srv.Close()

	f := seed(t, conn, models.InstanceStatusConnected, srv.URL)
	service, meter := newTestService(conn)
	ctx := context.Background()

	_, err := meter.Add(ctx, f.company.ID, 10, models.CreditTransactionPurchase, "top-up", nil, "test")
	require.NoError(t, err)

	_, err = service.SendText(ctx, f.conversation.ID, f.company.ID, "hello", false, "test")
	var rejected *ProviderRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, http.StatusBadRequest, rejected.StatusCode)
	assert.Contains(t, rejected.Message, "not on whatsapp")

	// failed attempt is still one ledger row
	var message models.Message
	require.NoError(t, conn.Where("conversation_id = ?", f.conversation.ID).First(&message).Error)
	assert.Equal(t, models.MessageStatusFailed, message.Status)
	assert.Equal(t, int64(1), messageCount(t, conn, f.conversation.ID))

	// no credit charged for a failed send
	balance, err := meter.Balance(ctx, f.company.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), balance)

	rows, err := meter.ListTransactions(ctx, f.company.ID, 50, 0, models.CreditTransactionUsage)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSendTextProviderUnreachable(t *testing.T) {
	conn := newTestDB(t)
	_, srv := newGateway(http.StatusCreated, `{}`)
	srv.Close() // connection refused from here on

	f := seed(t, conn, models.InstanceStatusConnected, srv.URL)
	service, _ := newTestService(conn)

	_, err := service.SendText(context.Background(), f.conversation.ID, f.company.ID, "hello", false, "test")
	var unreachable *ProviderUnreachableError
	require.ErrorAs(t, err, &unreachable)

	var message models.Message
	require.NoError(t, conn.Where("conversation_id = ?", f.conversation.ID).First(&message).Error)
	assert.Equal(t, models.MessageStatusFailed, message.Status)
}

func TestSendTextDeliveredButUnbilled(t *testing.T) {
	conn := newTestDB(t)
	_, srv := newGateway(http.StatusCreated, `{"key":{"id":"WAMID-2"}}`)
	defer srv.Close()

	f := seed(t, conn, models.InstanceStatusConnected, srv.URL)
	service, _ := newTestService(conn)

	// zero balance: the send still goes through, billing is surfaced
	result, err := service.SendText(context.Background(), f.conversation.ID, f.company.ID, "hello", false, "test")
	require.NoError(t, err)
	assert.False(t, result.Billed)
	require.NotNil(t, result.BillingError)
	assert.Contains(t, *result.BillingError, "insufficient")

	var message models.Message
	require.NoError(t, conn.First(&message, result.MessageID).Error)
	assert.Equal(t, models.MessageStatusSent, message.Status)
}

func TestSendAttachment(t *testing.T) {
	conn := newTestDB(t)
	g, srv := newGateway(http.StatusCreated, `{"key":{"id":"WAMID-3"}}`)
	defer srv.Close()

	f := seed(t, conn, models.InstanceStatusConnected, srv.URL)
	service, meter := newTestService(conn)
	ctx := context.Background()

	_, err := meter.Add(ctx, f.company.ID, 10, models.CreditTransactionPurchase, "top-up", nil, "test")
	require.NoError(t, err)

	attachment := models.Attachment{
		CompanyID: f.company.ID,
		LeadID:    f.lead.ID,
		FileName:  "invoice.pdf",
		MimeType:  "application/pdf",
		Size:      1024,
		StorageKey: "attachments/1/1/invoice.pdf",
		PublicURL:  "http://files.local/attachments/1/1/invoice.pdf",
		Category:   models.AttachmentCategoryDocument,
	}
	require.NoError(t, conn.Create(&attachment).Error)

	result, err := service.SendAttachment(ctx, f.conversation.ID, f.company.ID, attachment.ID, "your invoice", false, "test")
	require.NoError(t, err)
	assert.Equal(t, "WAMID-3", result.ProviderMessageID)

	req := g.last()
	assert.Equal(t, "/message/sendMedia/"+f.instance.Name, req.Path)
	assert.Equal(t, "document", req.Body["mediatype"])
	assert.Equal(t, attachment.PublicURL, req.Body["media"])
	assert.Equal(t, "your invoice", req.Body["caption"])

	var message models.Message
	require.NoError(t, conn.First(&message, result.MessageID).Error)
	assert.Equal(t, models.MessageTypeAttachment, message.Type)
	require.NotNil(t, message.AttachmentURL)
	assert.Equal(t, attachment.PublicURL, *message.AttachmentURL)

	// unknown or foreign attachment ids resolve to NotFound
	_, err = service.SendAttachment(ctx, f.conversation.ID, f.company.ID, attachment.ID+99, "", false, "test")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordInbound(t *testing.T) {
	conn := newTestDB(t)
	f := seed(t, conn, models.InstanceStatusConnected, "http://gateway.local")
	service, _ := newTestService(conn)
	ctx := context.Background()

	event := WebhookEvent{Event: "messages.upsert", Instance: f.instance.Name}
	event.Data.Key.RemoteJID = "5511888000222@s.whatsapp.net"
	event.Data.Key.ID = "WAMID-IN-1"
	event.Data.PushName = "New Contact"
	event.Data.Message.Conversation = "hi, I have a question"

	require.NoError(t, service.RecordInbound(ctx, f.instance.Name, event))

	var lead models.Lead
	require.NoError(t, conn.Where("company_id = ? AND phone = ?", f.company.ID, "5511888000222").First(&lead).Error)
	assert.Equal(t, "New Contact", lead.Name)

	var conversation models.Conversation
	require.NoError(t, conn.Where("remote_jid = ?", "5511888000222@s.whatsapp.net").First(&conversation).Error)
	assert.Equal(t, models.ConversationStatusActive, conversation.Status)
	assert.Equal(t, lead.ID, conversation.LeadID)

	var message models.Message
	require.NoError(t, conn.Where("conversation_id = ?", conversation.ID).First(&message).Error)
	assert.Equal(t, models.MessageDirectionInbound, message.Direction)
	assert.Equal(t, "hi, I have a question", message.Body)
	require.NotNil(t, message.ProviderMessageID)
	assert.Equal(t, "WAMID-IN-1", *message.ProviderMessageID)

	// repeated upserts reuse the lead and conversation
	require.NoError(t, service.RecordInbound(ctx, f.instance.Name, event))
	var count int64
	require.NoError(t, conn.Model(&models.Conversation{}).Where("remote_jid = ?", "5511888000222@s.whatsapp.net").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	assert.ErrorIs(t, service.RecordInbound(ctx, "no-such-instance", event), ErrNotFound)
}
