package domain

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/bwmarrin/snowflake"
)

// ObjectStore is the blob backend behind attachments.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string, expires time.Duration) (string, error)
}

type UploadRequest struct {
	OwnerType  string
	OwnerID    snowflake.ID
	FileName   string
	Content    []byte
	UploadedBy *snowflake.ID
}

type SignedURL struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Service interface {
	Upload(ctx context.Context, req UploadRequest) (Attachment, error)
	Get(ctx context.Context, id snowflake.ID) (Attachment, error)
	ListByOwner(ctx context.Context, ownerType string, ownerID snowflake.ID) ([]Attachment, error)
	SignedURL(ctx context.Context, id snowflake.ID) (SignedURL, error)
	Delete(ctx context.Context, id snowflake.ID) error
}

var (
	ErrInvalidOwner         = errors.New("invalid_owner")
	ErrEmptyFile            = errors.New("empty_file")
	ErrFileTooLarge         = errors.New("file_too_large")
	ErrUnsupportedType      = errors.New("unsupported_file_type")
	ErrNotFound             = errors.New("attachment_not_found")
	ErrStorageNotConfigured = errors.New("storage_not_configured")
)
