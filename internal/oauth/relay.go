package oauth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/skillshare/auth-go/internal/cookie"
)

const (
	authRequestCookie = "oauth2_auth_request"
	redirectCookie    = "redirect_uri"
)

// ErrNoAuthRequest is returned when the relay cookie is absent, meaning no
// authorization flow is in flight for this browser.
var ErrNoAuthRequest = errors.New("no authorization request")

// Relay persists an in-flight authorization request and the caller's desired
// post-login redirect target across the provider round trip. Both values live
// in short-TTL httpOnly cookies scoped to the callback path, keeping the
// server stateless.
type Relay struct {
	ttl  time.Duration
	path string
}

func NewRelay(path string, ttl time.Duration) *Relay {
	return &Relay{
		ttl:  ttl,
		path: path,
	}
}

// Save stores the authorization request and redirect target. A nil request
// clears both cookies instead. An empty redirect target writes no redirect
// cookie.
func (rl *Relay) Save(w http.ResponseWriter, r *http.Request, req *AuthRequest, redirectURI string) error {
	if req == nil {
		rl.Clear(w, r)
		return nil
	}

	val, err := cookie.Serialize(req)
	if err != nil {
		return fmt.Errorf("serialize auth request: %w", err)
	}

	cookie.Set(w, authRequestCookie, val, rl.ttl, rl.path)
	if redirectURI != "" {
		cookie.Set(w, redirectCookie, redirectURI, rl.ttl, rl.path)
	}

	return nil
}

// Load returns the in-flight authorization request, ErrNoAuthRequest when
// none exists, or a deserialization error for a corrupt cookie.
func (rl *Relay) Load(r *http.Request) (AuthRequest, error) {
	c, err := r.Cookie(authRequestCookie)
	if err != nil {
		return AuthRequest{}, ErrNoAuthRequest
	}

	var req AuthRequest
	if err := cookie.Deserialize(c.Value, &req); err != nil {
		return AuthRequest{}, fmt.Errorf("load auth request: %w", err)
	}

	return req, nil
}

// RedirectTarget returns the redirect target saved alongside the
// authorization request, or empty when none was given.
func (rl *Relay) RedirectTarget(r *http.Request) string {
	c, err := r.Cookie(redirectCookie)
	if err != nil {
		return ""
	}

	return c.Value
}

// Consume loads the authorization request and clears both relay cookies.
// The cookies are cleared whether or not the load succeeded, so calling it
// again yields ErrNoAuthRequest.
func (rl *Relay) Consume(w http.ResponseWriter, r *http.Request) (AuthRequest, error) {
	req, err := rl.Load(r)
	rl.Clear(w, r)
	return req, err
}

// Clear expires the relay cookies present on the request.
func (rl *Relay) Clear(w http.ResponseWriter, r *http.Request) {
	cookie.Clear(w, r, authRequestCookie, rl.path)
	cookie.Clear(w, r, redirectCookie, rl.path)
}
