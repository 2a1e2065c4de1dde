package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("not found")
)

type Store interface {
	GetUser(ctx context.Context, id int64) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	CreateUser(ctx context.Context, r CreateUserRequest) (User, error)
	UpdateUser(ctx context.Context, r UpdateUserRequest) (User, error)
	WithTx(ctx context.Context, fn func(tx Store) error) error
}

type CreateUserRequest struct {
	Email         string
	Name          string
	ImageURL      string
	EmailVerified bool
	Provider      string
	ProviderID    string
}

type UpdateUserRequest struct {
	ID       int64
	Name     string
	ImageURL string
}
