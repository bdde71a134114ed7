package interfaces

import (
	"context"

	"yatube/internal/model"
)

// UserRepository returns nil, nil for lookups that match no row.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id int) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
}
