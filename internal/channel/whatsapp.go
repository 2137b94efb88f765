package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/serhatipek/choreline/internal/domain"
)

const defaultSendTimeout = 10 * time.Second

// WhatsAppConfig carries the cloud messaging API credentials. Any empty field
// leaves the adapter unconfigured rather than erroring.
type WhatsAppConfig struct {
	BaseURL     string
	AccessToken string
	PhoneID     string
}

type whatsAppRequest struct {
	To   string `json:"to"`
	Type string `json:"type"`
	Text struct {
		Body string `json:"body"`
	} `json:"text"`
}

type whatsAppResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// WhatsAppAdapter sends chat messages through a WhatsApp-style cloud API.
type WhatsAppAdapter struct {
	client *resty.Client
	cfg    WhatsAppConfig
}

func NewWhatsAppAdapter(cfg WhatsAppConfig) *WhatsAppAdapter {
	client := resty.New()
	client.SetTimeout(defaultSendTimeout)
	client.SetRetryCount(0)

	return NewWhatsAppAdapterWithClient(cfg, client)
}

func NewWhatsAppAdapterWithClient(cfg WhatsAppConfig, client *resty.Client) *WhatsAppAdapter {
	if client == nil {
		client = resty.New()
	}
	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultSendTimeout)
	}
	client.SetRetryCount(0)

	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.AccessToken = strings.TrimSpace(cfg.AccessToken)
	cfg.PhoneID = strings.TrimSpace(cfg.PhoneID)

	return &WhatsAppAdapter{client: client, cfg: cfg}
}

func (a *WhatsAppAdapter) Channel() domain.Channel { return domain.ChannelWhatsApp }

func (a *WhatsAppAdapter) IsConfigured() bool {
	return a != nil && a.cfg.BaseURL != "" && a.cfg.AccessToken != "" && a.cfg.PhoneID != ""
}

func (a *WhatsAppAdapter) Send(ctx context.Context, to string, msg Message) (*SendResponse, error) {
	if !a.IsConfigured() {
		return nil, &ProviderError{Message: "whatsapp adapter is not configured"}
	}

	reqBody := whatsAppRequest{To: to, Type: "text"}
	reqBody.Text.Body = msg.Body

	endpoint := fmt.Sprintf("%s/%s/messages", a.cfg.BaseURL, a.cfg.PhoneID)
	response, err := a.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(a.cfg.AccessToken).
		SetBody(reqBody).
		Post(endpoint)
	if err != nil {
		return nil, &ProviderError{
			Message:   "whatsapp request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}

	statusCode := response.StatusCode()
	body := strings.TrimSpace(response.String())

	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		return nil, &ProviderError{
			StatusCode: statusCode,
			Message:    providerErrorMessage(statusCode, body),
			Transient:  isTransientHTTPStatus(statusCode),
		}
	}

	var parsed whatsAppResponse
	messageID := ""
	if err := json.Unmarshal(response.Body(), &parsed); err == nil && len(parsed.Messages) > 0 {
		messageID = parsed.Messages[0].ID
	}

	return &SendResponse{ProviderMessageID: messageID}, nil
}
