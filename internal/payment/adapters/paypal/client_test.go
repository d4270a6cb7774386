package paypal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/glazeops/internal/config"
	paymentdomain "github.com/smallbiznis/glazeops/internal/payment/domain"
	settingsdomain "github.com/smallbiznis/glazeops/internal/settings/domain"
	"github.com/smallbiznis/glazeops/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSettings struct {
	settingsdomain.Accessor
	creds settingsdomain.PayPalCredentials
	err   error
}

func (s stubSettings) PayPal(context.Context) (settingsdomain.PayPalCredentials, error) {
	return s.creds, s.err
}

type fakePayPal struct {
	tokenCalls  atomic.Int32
	lastOrder   orderBody
	captureBody string
	status      int
}

func (f *fakePayPal) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client", user)
		assert.Equal(t, "secret", pass)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
	})
	mux.HandleFunc("/v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&f.lastOrder))
		if f.status != 0 {
			w.WriteHeader(f.status)
			_, _ = w.Write([]byte(`{"name":"UNPROCESSABLE_ENTITY"}`))
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"ORDER-1","status":"CREATED","links":[{"href":"https://paypal.test/approve","rel":"approve","method":"GET"}]}`))
	})
	mux.HandleFunc("/v2/checkout/orders/ORDER-1/capture", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(f.captureBody))
	})
	return mux
}

func newClient(t *testing.T, fake *fakePayPal) *Client {
	t.Helper()
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)
	return New(Params{
		Settings: stubSettings{creds: settingsdomain.PayPalCredentials{
			ClientID:     "client",
			ClientSecret: "secret",
			BaseURL:      srv.URL,
		}},
		Cfg: config.Config{},
		Log: testutil.Logger(),
	})
}

func TestCreateOrder(t *testing.T) {
	fake := &fakePayPal{}
	client := newClient(t, fake)

	order, err := client.CreateOrder(context.Background(), OrderRequest{
		ReferenceID: "sv-1",
		Currency:    "usd",
		Amount:      decimal.RequireFromString("40.5"),
	})
	require.NoError(t, err)
	assert.Equal(t, "ORDER-1", order.ID)
	assert.Equal(t, "CREATED", order.Status)
	require.Len(t, order.Links, 1)
	assert.Equal(t, "approve", order.Links[0].Rel)

	assert.Equal(t, "CAPTURE", fake.lastOrder.Intent)
	require.Len(t, fake.lastOrder.PurchaseUnits, 1)
	assert.Equal(t, "USD", fake.lastOrder.PurchaseUnits[0].Amount.CurrencyCode)
	assert.Equal(t, "40.50", fake.lastOrder.PurchaseUnits[0].Amount.Value)

	_, err = client.CreateOrder(context.Background(), OrderRequest{Currency: "USD", Amount: decimal.NewFromInt(1)})
	require.NoError(t, err)
	assert.Equal(t, int32(1), fake.tokenCalls.Load())
}

func TestCreateOrderUpstreamError(t *testing.T) {
	fake := &fakePayPal{status: http.StatusUnprocessableEntity}
	client := newClient(t, fake)

	_, err := client.CreateOrder(context.Background(), OrderRequest{Currency: "USD", Amount: decimal.NewFromInt(10)})
	assert.ErrorIs(t, err, paymentdomain.ErrUpstream)

	_, err = client.CreateOrder(context.Background(), OrderRequest{Currency: "USD"})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidAmount)
}

func TestCaptureOrder(t *testing.T) {
	fake := &fakePayPal{captureBody: `{"id":"ORDER-1","status":"COMPLETED","purchase_units":[{"payments":{"captures":[{"id":"CAP-9","status":"COMPLETED"}]}}]}`}
	client := newClient(t, fake)

	capture, err := client.CaptureOrder(context.Background(), "ORDER-1")
	require.NoError(t, err)
	assert.Equal(t, "ORDER-1", capture.OrderID)
	assert.Equal(t, StatusCompleted, capture.Status)
	assert.Equal(t, "CAP-9", capture.CaptureID)

	_, err = client.CaptureOrder(context.Background(), " ")
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidID)
}

func TestSettingsErrorsPropagate(t *testing.T) {
	client := New(Params{
		Settings: stubSettings{err: settingsdomain.ErrGatewayDisabled},
		Log:      testutil.Logger(),
	})
	_, err := client.CreateOrder(context.Background(), OrderRequest{Currency: "USD", Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, settingsdomain.ErrGatewayDisabled)
}

type mutableSettings struct {
	settingsdomain.Accessor
	creds settingsdomain.PayPalCredentials
}

func (s *mutableSettings) PayPal(context.Context) (settingsdomain.PayPalCredentials, error) {
	return s.creds, nil
}

func TestTokenCacheIsScopedToEnvironment(t *testing.T) {
	sandbox, live := &fakePayPal{}, &fakePayPal{}
	sandboxSrv := httptest.NewServer(sandbox.handler(t))
	t.Cleanup(sandboxSrv.Close)
	liveSrv := httptest.NewServer(live.handler(t))
	t.Cleanup(liveSrv.Close)

	settings := &mutableSettings{creds: settingsdomain.PayPalCredentials{
		ClientID:     "client",
		ClientSecret: "secret",
		BaseURL:      sandboxSrv.URL,
	}}
	client := New(Params{Settings: settings, Log: testutil.Logger()})
	ctx := context.Background()

	_, err := client.CreateOrder(ctx, OrderRequest{Currency: "USD", Amount: decimal.NewFromInt(1)})
	require.NoError(t, err)

	settings.creds.BaseURL = liveSrv.URL
	_, err = client.CreateOrder(ctx, OrderRequest{Currency: "USD", Amount: decimal.NewFromInt(1)})
	require.NoError(t, err)

	assert.Equal(t, int32(1), sandbox.tokenCalls.Load())
	assert.Equal(t, int32(1), live.tokenCalls.Load())
}
