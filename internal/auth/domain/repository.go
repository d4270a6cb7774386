package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, user *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id snowflake.ID) (*User, error)
	List(ctx context.Context) ([]User, error)
	UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error
	TouchLogin(ctx context.Context, id snowflake.ID, at time.Time) error
}
