package repository

import (
	"context"

	"swapmart/internal/domain/entity"
)

// UserRepository resolves display data for user ids. Identity management is an
// external subsystem; this is a read-only view of it.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
}
