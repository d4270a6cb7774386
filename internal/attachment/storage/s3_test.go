package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/smallbiznis/glazeops/internal/attachment/domain"
	"github.com/smallbiznis/glazeops/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordedRequest struct {
	method string
	path   string
	body   []byte
}

func newFakeS3(t *testing.T) (*httptest.Server, func() []recordedRequest) {
	t.Helper()
	var (
		mu       sync.Mutex
		requests []recordedRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		requests = append(requests, recordedRequest{method: r.Method, path: r.URL.Path, body: body})
		mu.Unlock()
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedRequest(nil), requests...)
	}
}

func newStore(t *testing.T, endpoint string) domain.ObjectStore {
	t.Helper()
	store, err := NewS3Store(config.Config{Storage: config.StorageConfig{
		Bucket:          "proofs",
		Region:          "me-central-1",
		Endpoint:        endpoint,
		AccessKeyID:     "test-key",
		SecretAccessKey: "test-secret",
		UsePathStyle:    true,
	}}, zap.NewNop())
	require.NoError(t, err)
	return store
}

func TestS3StorePutAndDelete(t *testing.T) {
	srv, requests := newFakeS3(t)
	store := newStore(t, srv.URL)
	ctx := context.Background()

	content := []byte("%PDF-1.4 proof")
	require.NoError(t, store.Put(ctx, "payment/1/abc-proof.pdf", bytes.NewReader(content), int64(len(content)), "application/pdf"))
	require.NoError(t, store.Delete(ctx, "payment/1/abc-proof.pdf"))

	got := requests()
	require.Len(t, got, 2)
	assert.Equal(t, http.MethodPut, got[0].method)
	assert.Equal(t, "/proofs/payment/1/abc-proof.pdf", got[0].path)
	assert.Contains(t, string(got[0].body), "%PDF-1.4 proof")
	assert.Equal(t, http.MethodDelete, got[1].method)
}

func TestS3StorePresignGet(t *testing.T) {
	store := newStore(t, "http://127.0.0.1:9000")

	url, err := store.PresignGet(context.Background(), "payment/1/abc-proof.pdf", 15*time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://127.0.0.1:9000/proofs/payment/1/abc-proof.pdf?"), url)
	assert.Contains(t, url, "X-Amz-Expires=900")
	assert.Contains(t, url, "X-Amz-Signature=")
}

func TestUnconfiguredStore(t *testing.T) {
	store, err := NewS3Store(config.Config{}, zap.NewNop())
	require.NoError(t, err)

	assert.ErrorIs(t, store.Put(context.Background(), "k", bytes.NewReader(nil), 0, "text/plain"), domain.ErrStorageNotConfigured)
	_, err = store.PresignGet(context.Background(), "k", time.Minute)
	assert.ErrorIs(t, err, domain.ErrStorageNotConfigured)
}
