package authorization

import (
	"context"
	"errors"
)

var (
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
	ErrForbidden     = errors.New("forbidden")
)

// Actor is the caller being authorized.
type Actor struct {
	UserID string
	Role   string
}

type Service interface {
	Authorize(ctx context.Context, actor Actor, object string, action string) error
}
