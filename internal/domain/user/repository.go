package user

import (
	"context"
)

// UserRepository is the read side of the employee directory.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (User, error)
	GetByIDs(ctx context.Context, ids []string) ([]User, error)
}
