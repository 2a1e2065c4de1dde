package store

import "time"

type Model struct {
	CreatedAt time.Time
	UpdatedAt time.Time
}

type User struct {
	Model
	ID            int64
	Email         string
	Name          string
	ImageURL      string
	EmailVerified bool
	Provider      string
	ProviderID    string
	Password      string
}
