package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/smallbiznis/glazeops/internal/attachment/domain"
	"github.com/smallbiznis/glazeops/internal/attachment/repository"
	"github.com/smallbiznis/glazeops/internal/clock"
	"github.com/smallbiznis/glazeops/internal/config"
	"github.com/smallbiznis/glazeops/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func newTestService(t *testing.T, maxBytes int64) (domain.Service, *testutil.MemoryStore) {
	t.Helper()
	store := testutil.NewMemoryStore()
	svc := New(Params{
		DB:    testutil.SetupTestDB(t),
		Log:   testutil.Logger(),
		GenID: testutil.NewNode(t),
		Clock: clock.NewFakeClock(time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
		Store: store,
		Cfg:   config.Config{Storage: config.StorageConfig{MaxUploadBytes: maxBytes}},
	})
	return svc, store
}

func TestUploadStoresObjectAndRecord(t *testing.T) {
	svc, store := newTestService(t, 0)
	ctx := context.Background()

	att, err := svc.Upload(ctx, domain.UploadRequest{
		OwnerType: domain.OwnerPayment,
		OwnerID:   42,
		FileName:  "Bank Slip March.PDF",
		Content:   []byte("%PDF-1.4\n%âãÏÓ\n1 0 obj\n"),
	})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", att.ContentType)
	assert.True(t, strings.HasPrefix(att.ObjectKey, "payment/42/"), att.ObjectKey)
	assert.True(t, strings.HasSuffix(att.ObjectKey, "-bank-slip-march.pdf"), att.ObjectKey)
	assert.Equal(t, 1, store.Len())

	list, err := svc.ListByOwner(ctx, domain.OwnerPayment, 42)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, att.ID, list[0].ID)

	signed, err := svc.SignedURL(ctx, att.ID)
	require.NoError(t, err)
	assert.Contains(t, signed.URL, att.ObjectKey)
	assert.Equal(t, time.Date(2026, 7, 1, 12, 15, 0, 0, time.UTC), signed.ExpiresAt)

	require.NoError(t, svc.Delete(ctx, att.ID))
	assert.Zero(t, store.Len())
	_, err = svc.Get(ctx, att.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUploadValidation(t *testing.T) {
	svc, store := newTestService(t, 64)
	ctx := context.Background()

	_, err := svc.Upload(ctx, domain.UploadRequest{OwnerType: "invoice", OwnerID: 1, Content: pngHeader})
	assert.ErrorIs(t, err, domain.ErrInvalidOwner)

	_, err = svc.Upload(ctx, domain.UploadRequest{OwnerType: domain.OwnerCustomer, OwnerID: 1})
	assert.ErrorIs(t, err, domain.ErrEmptyFile)

	_, err = svc.Upload(ctx, domain.UploadRequest{OwnerType: domain.OwnerCustomer, OwnerID: 1, Content: bytes.Repeat([]byte("a"), 65)})
	assert.ErrorIs(t, err, domain.ErrFileTooLarge)

	_, err = svc.Upload(ctx, domain.UploadRequest{OwnerType: domain.OwnerCustomer, OwnerID: 1, FileName: "x.exe", Content: []byte("MZ\x90\x00plain text")})
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)

	att, err := svc.Upload(ctx, domain.UploadRequest{OwnerType: domain.OwnerCustomer, OwnerID: 1, Content: pngHeader})
	require.NoError(t, err)
	assert.Equal(t, "image/png", att.ContentType)
	assert.Equal(t, "file.png", att.FileName)
	assert.Equal(t, 1, store.Len())
}

func TestUploadStoreFailureWritesNothing(t *testing.T) {
	svc, store := newTestService(t, 0)
	store.PutErr = errors.New("bucket unavailable")

	_, err := svc.Upload(context.Background(), domain.UploadRequest{OwnerType: domain.OwnerCustomer, OwnerID: 1, Content: pngHeader})
	require.Error(t, err)

	list, err := svc.ListByOwner(context.Background(), domain.OwnerCustomer, 1)
	require.NoError(t, err)
	assert.Empty(t, list)
}
