package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/glazeops/internal/attachment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, attachment *domain.Attachment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO attachments (
			id, owner_type, owner_id, object_key, file_name, content_type,
			size_bytes, uploaded_by, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		attachment.ID,
		attachment.OwnerType,
		attachment.OwnerID,
		attachment.ObjectKey,
		attachment.FileName,
		attachment.ContentType,
		attachment.SizeBytes,
		attachment.UploadedBy,
		attachment.CreatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Attachment, error) {
	var item domain.Attachment
	err := db.WithContext(ctx).Raw(
		`SELECT id, owner_type, owner_id, object_key, file_name, content_type,
			size_bytes, uploaded_by, created_at
		 FROM attachments WHERE id = ?`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) ListByOwner(ctx context.Context, db *gorm.DB, ownerType string, ownerID snowflake.ID) ([]*domain.Attachment, error) {
	var items []*domain.Attachment
	err := db.WithContext(ctx).Raw(
		`SELECT id, owner_type, owner_id, object_key, file_name, content_type,
			size_bytes, uploaded_by, created_at
		 FROM attachments
		 WHERE owner_type = ? AND owner_id = ?
		 ORDER BY created_at DESC, id DESC`,
		ownerType,
		ownerID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM attachments WHERE id = ?`, id).Error
}
