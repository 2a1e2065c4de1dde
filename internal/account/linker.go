package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/skillshare/auth-go/internal/oauth"
	"github.com/skillshare/auth-go/internal/store"
)

const (
	ProviderLocal    = "local"
	ProviderGoogle   = "google"
	ProviderFacebook = "facebook"
	ProviderGitHub   = "github"
)

var (
	// ErrUnsupportedProvider marks a provider tag outside the known set.
	// This is a configuration failure, not an authentication one.
	ErrUnsupportedProvider = errors.New("provider is not supported")

	// ErrEmailMissing is returned when the provider gave no usable email.
	ErrEmailMissing = errors.New("email not found from oauth2 provider")

	// ErrProviderMismatch is returned when the email is already registered
	// through a different identity provider.
	ErrProviderMismatch = errors.New("email registered via different provider")
)

var supported = map[string]struct{}{
	ProviderLocal:    {},
	ProviderGoogle:   {},
	ProviderFacebook: {},
	ProviderGitHub:   {},
}

// Linker resolves a provider identity to a local account, keyed by email.
// First login creates the account; later logins through the same provider
// refresh the mutable profile fields; logins through a different provider
// are rejected so an email stays bound to one provider.
type Linker struct {
	store store.Store
}

func NewLinker(s store.Store) *Linker {
	return &Linker{store: s}
}

func (l *Linker) Link(ctx context.Context, provider string, usr oauth.User) (store.User, error) {
	if _, ok := supported[provider]; !ok {
		return store.User{}, fmt.Errorf("login with %s is not supported: %w", provider, ErrUnsupportedProvider)
	}

	email := usr.VerifiedEmail()
	if email == "" {
		return store.User{}, ErrEmailMissing
	}

	existing, err := l.store.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return store.User{}, fmt.Errorf("get user by email: %w", err)
		}

		return l.create(ctx, provider, email, usr)
	}

	if existing.Provider != provider {
		return store.User{}, fmt.Errorf("signed up via %s: %w", existing.Provider, ErrProviderMismatch)
	}

	updated, err := l.store.UpdateUser(ctx, store.UpdateUserRequest{
		ID:       existing.ID,
		Name:     usr.Name,
		ImageURL: usr.Picture,
	})
	if err != nil {
		return store.User{}, fmt.Errorf("update user: %w", err)
	}

	return updated, nil
}

func (l *Linker) create(ctx context.Context, provider, email string, usr oauth.User) (store.User, error) {
	var created store.User
	err := l.store.WithTx(ctx, func(tx store.Store) error {
		var err error
		created, err = tx.CreateUser(ctx, store.CreateUserRequest{
			Email:         email,
			Name:          usr.Name,
			ImageURL:      usr.Picture,
			EmailVerified: usr.EmailVerified,
			Provider:      provider,
			ProviderID:    usr.ID,
		})
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}

		return nil
	})
	if err != nil {
		return store.User{}, fmt.Errorf("with tx: %w", err)
	}

	return created, nil
}
