package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/getevo/evo/v2/lib/settings"
)

// Provider sends messages through an external channel gateway and reports
// the gateway's assigned message identifier on success.
type Provider interface {
	SendText(endpoint *ResolvedEndpoint, text string) (string, error)
	SendMedia(endpoint *ResolvedEndpoint, mediaURL, mimeType, caption string) (string, error)
}

// WhatsAppProvider talks to an Evolution-API compatible WhatsApp gateway.
type WhatsAppProvider struct {
	client *http.Client
}

func NewWhatsAppProvider() *WhatsAppProvider {
	timeout, _ := settings.Get("WHATSAPP.SEND_TIMEOUT", "15s").Duration()
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &WhatsAppProvider{
		client: &http.Client{Timeout: timeout},
	}
}

type sendTextRequest struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

type sendMediaRequest struct {
	Number    string `json:"number"`
	MediaType string `json:"mediatype"`
	MimeType  string `json:"mimetype,omitempty"`
	Media     string `json:"media"`
	Caption   string `json:"caption,omitempty"`
}

type sendResponse struct {
	Key struct {
		ID string `json:"id"`
	} `json:"key"`
	Message string          `json:"message"`
	Error   json.RawMessage `json:"error"`
	Response struct {
		Message json.RawMessage `json:"message"`
	} `json:"response"`
}

// SendText dispatches a plain text message.
func (p *WhatsAppProvider) SendText(endpoint *ResolvedEndpoint, text string) (string, error) {
	url := fmt.Sprintf("%s/message/sendText/%s", endpoint.Instance.BaseURL, endpoint.Instance.Name)
	return p.post(endpoint, url, sendTextRequest{
		Number: endpoint.Number,
		Text:   text,
	})
}

// SendMedia dispatches an attachment by public URL with an optional caption.
func (p *WhatsAppProvider) SendMedia(endpoint *ResolvedEndpoint, mediaURL, mimeType, caption string) (string, error) {
	url := fmt.Sprintf("%s/message/sendMedia/%s", endpoint.Instance.BaseURL, endpoint.Instance.Name)
	return p.post(endpoint, url, sendMediaRequest{
		Number:    endpoint.Number,
		MediaType: mediaTypeFromMime(mimeType),
		MimeType:  mimeType,
		Media:     mediaURL,
		Caption:   caption,
	})
}

func (p *WhatsAppProvider) post(endpoint *ResolvedEndpoint, url string, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	// An abandoned caller must not interrupt an in-flight send: the gateway
	// may already have delivered the message, and cancelling mid-request
	// leaves the provider-side state ambiguous. The client timeout bounds
	// the call instead of the caller's context.
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", endpoint.Instance.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", &ProviderUnreachableError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &ProviderUnreachableError{Err: err}
	}

	var parsed sendResponse
	_ = json.Unmarshal(raw, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &ProviderRejectedError{
			StatusCode: resp.StatusCode,
			Message:    providerErrorMessage(parsed, raw),
		}
	}

	if parsed.Key.ID == "" {
		return "", &ProviderRejectedError{
			StatusCode: resp.StatusCode,
			Message:    "gateway response is missing a message id",
		}
	}

	return parsed.Key.ID, nil
}

func providerErrorMessage(parsed sendResponse, raw []byte) string {
	if parsed.Message != "" {
		return parsed.Message
	}
	if len(parsed.Response.Message) > 0 {
		return string(parsed.Response.Message)
	}
	if len(parsed.Error) > 0 {
		return string(parsed.Error)
	}
	if len(raw) > 0 && len(raw) <= 500 {
		return string(raw)
	}
	return ""
}

func mediaTypeFromMime(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return "image"
	case strings.HasPrefix(mimeType, "video/"):
		return "video"
	case strings.HasPrefix(mimeType, "audio/"):
		return "audio"
	default:
		return "document"
	}
}

var _ Provider = (*WhatsAppProvider)(nil)
