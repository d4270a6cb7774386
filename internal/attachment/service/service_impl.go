package service

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/glazeops/internal/attachment/domain"
	"github.com/smallbiznis/glazeops/internal/clock"
	"github.com/smallbiznis/glazeops/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultMaxBytes = 10 << 20
	signedURLTTL    = 15 * time.Minute
)

var allowedTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"image/heic":      ".heic",
	"application/pdf": ".pdf",
}

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
	Store domain.ObjectStore
	Cfg   config.Config
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	store    domain.ObjectStore
	maxBytes int64
}

func New(p Params) domain.Service {
	maxBytes := p.Cfg.Storage.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("attachment.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		store:    p.Store,
		maxBytes: maxBytes,
	}
}

// Upload validates and stores the object before recording it. If the record
// cannot be written the object is removed again.
func (s *Service) Upload(ctx context.Context, req domain.UploadRequest) (domain.Attachment, error) {
	ownerType := strings.TrimSpace(req.OwnerType)
	if !domain.ValidOwnerType(ownerType) || req.OwnerID == 0 {
		return domain.Attachment{}, domain.ErrInvalidOwner
	}
	size := int64(len(req.Content))
	if size == 0 {
		return domain.Attachment{}, domain.ErrEmptyFile
	}
	if size > s.maxBytes {
		return domain.Attachment{}, domain.ErrFileTooLarge
	}

	detected := mimetype.Detect(req.Content)
	contentType := detected.String()
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	ext, ok := allowedTypes[contentType]
	if !ok {
		return domain.Attachment{}, domain.ErrUnsupportedType
	}

	fileName := strings.TrimSpace(filepath.Base(req.FileName))
	if fileName == "" || fileName == "." || fileName == string(filepath.Separator) {
		fileName = "file" + ext
	}
	key := objectKey(ownerType, req.OwnerID, fileName, ext)

	if err := s.store.Put(ctx, key, bytes.NewReader(req.Content), size, contentType); err != nil {
		s.log.Error("failed to store attachment", zap.String("owner_type", ownerType), zap.Error(err))
		return domain.Attachment{}, err
	}

	attachment := domain.Attachment{
		ID:          s.genID.Generate(),
		OwnerType:   ownerType,
		OwnerID:     req.OwnerID,
		ObjectKey:   key,
		FileName:    fileName,
		ContentType: contentType,
		SizeBytes:   size,
		UploadedBy:  req.UploadedBy,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, s.db, &attachment); err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			s.log.Warn("failed to remove orphaned attachment object", zap.String("key", key), zap.Error(delErr))
		}
		return domain.Attachment{}, err
	}
	return attachment, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (domain.Attachment, error) {
	attachment, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Attachment{}, err
	}
	if attachment == nil {
		return domain.Attachment{}, domain.ErrNotFound
	}
	return *attachment, nil
}

func (s *Service) ListByOwner(ctx context.Context, ownerType string, ownerID snowflake.ID) ([]domain.Attachment, error) {
	ownerType = strings.TrimSpace(ownerType)
	if !domain.ValidOwnerType(ownerType) || ownerID == 0 {
		return nil, domain.ErrInvalidOwner
	}
	items, err := s.repo.ListByOwner(ctx, s.db, ownerType, ownerID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Attachment, 0, len(items))
	for _, item := range items {
		out = append(out, *item)
	}
	return out, nil
}

func (s *Service) SignedURL(ctx context.Context, id snowflake.ID) (domain.SignedURL, error) {
	attachment, err := s.Get(ctx, id)
	if err != nil {
		return domain.SignedURL{}, err
	}
	url, err := s.store.PresignGet(ctx, attachment.ObjectKey, signedURLTTL)
	if err != nil {
		return domain.SignedURL{}, err
	}
	return domain.SignedURL{URL: url, ExpiresAt: s.clock.Now().Add(signedURLTTL)}, nil
}

func (s *Service) Delete(ctx context.Context, id snowflake.ID) error {
	attachment, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, attachment.ObjectKey); err != nil {
		return err
	}
	return s.repo.Delete(ctx, s.db, id)
}

func objectKey(ownerType string, ownerID snowflake.ID, fileName, ext string) string {
	base := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	name := slug.Make(base)
	if name == "" {
		name = "file"
	}
	return ownerType + "/" + ownerID.String() + "/" + uuid.NewString() + "-" + name + ext
}
