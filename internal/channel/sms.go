package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/serhatipek/choreline/internal/domain"
)

// SMSConfig carries Twilio-compatible REST credentials.
type SMSConfig struct {
	BaseURL    string
	AccountSID string
	AuthToken  string
	FromNumber string
}

type smsResponse struct {
	SID string `json:"sid"`
}

// SMSAdapter sends short text messages through a Twilio-compatible API.
type SMSAdapter struct {
	client *resty.Client
	cfg    SMSConfig
}

func NewSMSAdapter(cfg SMSConfig) *SMSAdapter {
	client := resty.New()
	client.SetTimeout(defaultSendTimeout)
	client.SetRetryCount(0)

	return NewSMSAdapterWithClient(cfg, client)
}

func NewSMSAdapterWithClient(cfg SMSConfig, client *resty.Client) *SMSAdapter {
	if client == nil {
		client = resty.New()
	}
	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultSendTimeout)
	}
	client.SetRetryCount(0)

	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.AccountSID = strings.TrimSpace(cfg.AccountSID)
	cfg.AuthToken = strings.TrimSpace(cfg.AuthToken)
	cfg.FromNumber = strings.TrimSpace(cfg.FromNumber)

	return &SMSAdapter{client: client, cfg: cfg}
}

func (a *SMSAdapter) Channel() domain.Channel { return domain.ChannelSMS }

func (a *SMSAdapter) IsConfigured() bool {
	return a != nil &&
		a.cfg.BaseURL != "" &&
		a.cfg.AccountSID != "" &&
		a.cfg.AuthToken != "" &&
		a.cfg.FromNumber != ""
}

func (a *SMSAdapter) Send(ctx context.Context, to string, msg Message) (*SendResponse, error) {
	if !a.IsConfigured() {
		return nil, &ProviderError{Message: "sms adapter is not configured"}
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", a.cfg.BaseURL, a.cfg.AccountSID)
	response, err := a.client.R().
		SetContext(ctx).
		SetBasicAuth(a.cfg.AccountSID, a.cfg.AuthToken).
		SetFormData(map[string]string{
			"To":   to,
			"From": a.cfg.FromNumber,
			"Body": msg.Body,
		}).
		Post(endpoint)
	if err != nil {
		return nil, &ProviderError{
			Message:   "sms request failed",
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

	var parsed smsResponse
	_ = json.Unmarshal(response.Body(), &parsed)

	return &SendResponse{ProviderMessageID: parsed.SID}, nil
}
