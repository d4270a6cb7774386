package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, attachment *Attachment) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Attachment, error)
	ListByOwner(ctx context.Context, db *gorm.DB, ownerType string, ownerID snowflake.ID) ([]*Attachment, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
