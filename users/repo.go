package users

import "context"

// UserRepo stores user records. Lookups for unknown users return an error
// wrapping errors.ErrUserNotFound; any other error means the backing store
// failed.
type UserRepo interface {
	Upsert(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
}
