package cloudapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/smallbiznis/glazeops/internal/config"
	"github.com/smallbiznis/glazeops/internal/observability/metrics"
	"github.com/smallbiznis/glazeops/internal/observability/tracing"
	"github.com/smallbiznis/glazeops/internal/whatsapp/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	gatewayName    = "whatsapp"
	defaultTimeout = 15 * time.Second
)

type Params struct {
	fx.In

	Cfg     config.Config
	Log     *zap.Logger
	Metrics *metrics.Metrics `optional:"true"`
}

// Client sends messages through the WhatsApp Business Cloud API.
type Client struct {
	http          *http.Client
	baseURL       string
	accessToken   string
	phoneNumberID string
	log           *zap.Logger
	metrics       *metrics.Metrics
}

func New(p Params) *Client {
	timeout := p.Cfg.Gateways.HTTPTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		http:          tracing.WrapHTTPClient(&http.Client{Timeout: timeout}),
		baseURL:       strings.TrimRight(p.Cfg.Gateways.WhatsAppGraphURL, "/"),
		accessToken:   p.Cfg.WhatsApp.AccessToken,
		phoneNumberID: p.Cfg.WhatsApp.PhoneNumberID,
		log:           p.Log.Named("whatsapp.cloudapi"),
		metrics:       p.Metrics,
	}
}

func NewSender(c *Client) domain.Sender { return c }

type textMessage struct {
	MessagingProduct string `json:"messaging_product"`
	RecipientType    string `json:"recipient_type"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		PreviewURL bool   `json:"preview_url"`
		Body       string `json:"body"`
	} `json:"text"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// SendText sends a plain text message. to may carry a leading plus sign.
func (c *Client) SendText(ctx context.Context, to, body string) (id string, err error) {
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		c.metrics.RecordGatewayCall(ctx, gatewayName, "send_message", outcome)
	}()

	if c.accessToken == "" || c.phoneNumberID == "" || c.baseURL == "" {
		return "", domain.ErrSenderNotConfigured
	}
	recipient := strings.TrimPrefix(strings.TrimSpace(to), "+")
	if recipient == "" {
		return "", domain.ErrInvalidPhone
	}

	msg := textMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               recipient,
		Type:             "text",
	}
	msg.Text.Body = body
	payload, err := json.Marshal(msg)
	if err != nil {
		return "", err
	}

	endpoint := c.baseURL + "/" + url.PathEscape(c.phoneNumberID) + "/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrSendFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		var apiErr errorResponse
		_ = json.Unmarshal(detail, &apiErr)
		c.log.Warn("whatsapp send failed",
			zap.Int("status", resp.StatusCode),
			zap.Int("code", apiErr.Error.Code),
			zap.String("message", apiErr.Error.Message),
		)
		if apiErr.Error.Message != "" {
			return "", fmt.Errorf("%w: %s", domain.ErrSendFailed, apiErr.Error.Message)
		}
		return "", fmt.Errorf("%w: status %d", domain.ErrSendFailed, resp.StatusCode)
	}

	var out sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrSendFailed, err)
	}
	if len(out.Messages) == 0 || out.Messages[0].ID == "" {
		return "", fmt.Errorf("%w: empty message id", domain.ErrSendFailed)
	}
	return out.Messages[0].ID, nil
}
