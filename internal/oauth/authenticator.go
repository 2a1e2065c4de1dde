package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
)

var (
	ErrProviderConflict = errors.New("provider already exists")
	ErrProviderNotFound = errors.New("provider not found")
	ErrAuthFailed       = errors.New("auth failed")
)

// User holds the normalized identity attributes returned by a provider.
type User struct {
	ID            string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

// VerifiedEmail returns the email only when the provider vouched for it.
func (u *User) VerifiedEmail() string {
	if u.EmailVerified {
		return u.Email
	}
	return ""
}

// AuthRequest captures everything about an in-flight authorization request.
// It travels to the browser and back inside a relay cookie, so callbacks can
// be validated without server-side state.
type AuthRequest struct {
	Provider    string   `json:"provider"`
	ClientID    string   `json:"client_id"`
	URL         string   `json:"url"`
	RedirectURL string   `json:"redirect_url"`
	State       string   `json:"state"`
	Scopes      []string `json:"scopes,omitempty"`
}

type identityProvider interface {
	AuthRequest(state string) AuthRequest
	Exchange(ctx context.Context, code string) (User, error)
}

// Authenticator routes login flows to registered identity providers.
type Authenticator struct {
	providers map[string]identityProvider
	mu        sync.RWMutex
}

func NewAuthenticator() *Authenticator {
	return &Authenticator{
		providers: make(map[string]identityProvider),
	}
}

func (a *Authenticator) Use(name string, p identityProvider) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.providers[name]; ok {
		return ErrProviderConflict
	}

	a.providers[name] = p
	return nil
}

// AuthRequest builds an authorization request for the named provider carrying
// the given anti-forgery state.
func (a *Authenticator) AuthRequest(provider, state string) (AuthRequest, error) {
	p, err := a.getProvider(provider)
	if err != nil {
		return AuthRequest{}, fmt.Errorf("get provider: %w", err)
	}

	return p.AuthRequest(state), nil
}

// Exchange swaps the authorization code for the provider's view of the user.
// Token endpoint rejections surface as ErrAuthFailed.
func (a *Authenticator) Exchange(ctx context.Context, provider, code string) (User, error) {
	p, err := a.getProvider(provider)
	if err != nil {
		return User{}, fmt.Errorf("get provider: %w", err)
	}

	usr, err := p.Exchange(ctx, code)
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) && rerr.Response != nil {
			if rerr.Response.StatusCode == http.StatusBadRequest || rerr.Response.StatusCode == http.StatusUnauthorized {
				return User{}, ErrAuthFailed
			}
		}

		return User{}, fmt.Errorf("exchange: %w", err)
	}

	return usr, nil
}

func (a *Authenticator) getProvider(name string) (identityProvider, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	p, ok := a.providers[name]
	if !ok {
		return nil, ErrProviderNotFound
	}

	return p, nil
}
