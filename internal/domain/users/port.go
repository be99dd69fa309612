package users

import "context"

// Repository port for user profiles. FindByEmail returns (nil, nil) when absent.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, u *User) error
}
