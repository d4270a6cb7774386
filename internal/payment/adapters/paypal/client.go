package paypal

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

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/glazeops/internal/cache"
	"github.com/smallbiznis/glazeops/internal/config"
	"github.com/smallbiznis/glazeops/internal/observability/metrics"
	"github.com/smallbiznis/glazeops/internal/observability/tracing"
	paymentdomain "github.com/smallbiznis/glazeops/internal/payment/domain"
	settingsdomain "github.com/smallbiznis/glazeops/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	StatusCompleted = "COMPLETED"

	defaultTimeout = 15 * time.Second
	// Tokens are refreshed a minute before PayPal expires them.
	tokenSkew = time.Minute
)

type Params struct {
	fx.In

	Settings settingsdomain.Accessor
	Cfg      config.Config
	Log      *zap.Logger
	Metrics  *metrics.Metrics `optional:"true"`
}

// Client talks to the PayPal Orders v2 API with the credentials currently
// stored in settings.
type Client struct {
	settings settingsdomain.Accessor
	http     *http.Client
	tokens   cache.Cache[string, string]
	log      *zap.Logger
	metrics  *metrics.Metrics
}

func New(p Params) *Client {
	timeout := p.Cfg.Gateways.HTTPTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		settings: p.Settings,
		http:     tracing.WrapHTTPClient(&http.Client{Timeout: timeout}),
		tokens:   cache.NewTTLCache[string, string](),
		log:      p.Log.Named("paypal.client"),
		metrics:  p.Metrics,
	}
}

type OrderRequest struct {
	ReferenceID string
	CustomID    string
	Description string
	Currency    string
	Amount      decimal.Decimal
}

type Order struct {
	ID     string               `json:"id"`
	Status string               `json:"status"`
	Links  []paymentdomain.Link `json:"links"`
}

type Capture struct {
	OrderID   string
	Status    string
	CaptureID string
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type orderBody struct {
	Intent        string         `json:"intent"`
	PurchaseUnits []purchaseUnit `json:"purchase_units"`
}

type purchaseUnit struct {
	ReferenceID string       `json:"reference_id,omitempty"`
	CustomID    string       `json:"custom_id,omitempty"`
	Description string       `json:"description,omitempty"`
	Amount      *unitAmount  `json:"amount,omitempty"`
	Payments    *unitPayment `json:"payments,omitempty"`
}

type unitAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type unitPayment struct {
	Captures []struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"captures"`
}

type captureBody struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	PurchaseUnits []purchaseUnit `json:"purchase_units"`
}

func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (Order, error) {
	if !req.Amount.IsPositive() {
		return Order{}, paymentdomain.ErrInvalidAmount
	}
	body := orderBody{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnit{{
			ReferenceID: req.ReferenceID,
			CustomID:    req.CustomID,
			Description: req.Description,
			Amount: &unitAmount{
				CurrencyCode: strings.ToUpper(strings.TrimSpace(req.Currency)),
				Value:        req.Amount.StringFixed(2),
			},
		}},
	}

	var order Order
	if err := c.call(ctx, "create_order", http.MethodPost, "/v2/checkout/orders", body, &order); err != nil {
		return Order{}, err
	}
	return order, nil
}

func (c *Client) CaptureOrder(ctx context.Context, orderID string) (Capture, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Capture{}, paymentdomain.ErrInvalidID
	}

	var resp captureBody
	path := "/v2/checkout/orders/" + url.PathEscape(orderID) + "/capture"
	if err := c.call(ctx, "capture_order", http.MethodPost, path, struct{}{}, &resp); err != nil {
		return Capture{}, err
	}

	capture := Capture{OrderID: resp.ID, Status: resp.Status}
	for _, unit := range resp.PurchaseUnits {
		if unit.Payments == nil {
			continue
		}
		for _, item := range unit.Payments.Captures {
			if item.ID != "" {
				capture.CaptureID = item.ID
			}
		}
	}
	if capture.OrderID == "" {
		capture.OrderID = orderID
	}
	return capture, nil
}

func (c *Client) call(ctx context.Context, operation, method, path string, in, out any) (err error) {
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		c.metrics.RecordGatewayCall(ctx, paymentdomain.GatewayPayPal, operation, outcome)
	}()

	creds, err := c.settings.PayPal(ctx)
	if err != nil {
		return err
	}
	token, err := c.accessToken(ctx, creds)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, creds.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: paypal %s: %v", paymentdomain.ErrUpstream, operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.tokens.Delete(tokenKey(creds))
	}
	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		c.log.Warn("paypal request failed",
			zap.String("operation", operation),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("detail", detail),
		)
		return fmt.Errorf("%w: paypal %s status %d", paymentdomain.ErrUpstream, operation, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: paypal %s: %v", paymentdomain.ErrUpstream, operation, err)
	}
	return nil
}

func (c *Client) accessToken(ctx context.Context, creds settingsdomain.PayPalCredentials) (string, error) {
	if token, ok := c.tokens.Get(tokenKey(creds)); ok {
		return token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, creds.BaseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(creds.ClientID, creds.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: paypal token: %v", paymentdomain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("%w: paypal token status %d", paymentdomain.ErrUpstream, resp.StatusCode)
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("%w: paypal token: %v", paymentdomain.ErrUpstream, err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("%w: paypal token empty", paymentdomain.ErrUpstream)
	}

	ttl := time.Duration(token.ExpiresIn)*time.Second - tokenSkew
	if ttl > 0 {
		c.tokens.Set(tokenKey(creds), token.AccessToken, ttl)
	}
	return token.AccessToken, nil
}

// tokenKey scopes cached tokens to the environment as well as the client,
// so a sandbox token is never sent to live.
func tokenKey(creds settingsdomain.PayPalCredentials) string {
	return creds.BaseURL + "|" + creds.ClientID
}
