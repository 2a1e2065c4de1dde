package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/skillshare/auth-go/internal/account"
	"github.com/skillshare/auth-go/internal/oauth"
	"github.com/skillshare/auth-go/internal/serr"
	"github.com/skillshare/auth-go/internal/store"
)

// authenticator defines the interface for building authorization requests and
// exchanging callback codes
type authenticator interface {
	AuthRequest(provider, state string) (oauth.AuthRequest, error)
	Exchange(ctx context.Context, provider, code string) (oauth.User, error)
}

// stateRelay carries the in-flight authorization request and redirect target
// through the browser
type stateRelay interface {
	Save(w http.ResponseWriter, r *http.Request, req *oauth.AuthRequest, redirectURI string) error
	RedirectTarget(r *http.Request) string
	Consume(w http.ResponseWriter, r *http.Request) (oauth.AuthRequest, error)
}

// accountLinker resolves provider identities to local accounts
type accountLinker interface {
	Link(ctx context.Context, provider string, usr oauth.User) (store.User, error)
}

// tokenIssuer mints session tokens
type tokenIssuer interface {
	Issue(userID int64) (string, error)
}

// Auth orchestrates the OAuth login flow: it hands browsers to providers,
// completes callbacks and decides where (and with what) to redirect.
type Auth struct {
	auth             authenticator
	relay            stateRelay
	linker           accountLinker
	tokens           tokenIssuer
	allowedRedirects []string
	defaultRedirect  string
}

// AuthOption defines a functional option for configuring the Auth service
type AuthOption func(*Auth) *Auth

func WithAuthenticator(a authenticator) AuthOption {
	return func(s *Auth) *Auth {
		s.auth = a
		return s
	}
}

func WithRelay(rl stateRelay) AuthOption {
	return func(s *Auth) *Auth {
		s.relay = rl
		return s
	}
}

func WithLinker(l accountLinker) AuthOption {
	return func(s *Auth) *Auth {
		s.linker = l
		return s
	}
}

func WithTokens(iss tokenIssuer) AuthOption {
	return func(s *Auth) *Auth {
		s.tokens = iss
		return s
	}
}

func WithAuthorizedRedirects(uris []string) AuthOption {
	return func(s *Auth) *Auth {
		s.allowedRedirects = uris
		return s
	}
}

func WithDefaultRedirect(uri string) AuthOption {
	return func(s *Auth) *Auth {
		s.defaultRedirect = uri
		return s
	}
}

// NewAuth creates a new Auth service with the provided options
func NewAuth(opts ...AuthOption) *Auth {
	s := &Auth{
		defaultRedirect: "/",
	}
	for _, opt := range opts {
		s = opt(s)
	}

	if s.auth == nil {
		panic("authenticator is required")
	}

	if s.relay == nil {
		panic("state relay is required")
	}

	if s.linker == nil {
		panic("account linker is required")
	}

	if s.tokens == nil {
		panic("token issuer is required")
	}

	return s
}

type LoginRequest struct {
	Provider    string
	RedirectURL string
}

// Login starts the authorization flow: it saves the authorization request and
// redirect target in the relay and returns the provider's authorization URL.
func (s *Auth) Login(w http.ResponseWriter, r *http.Request, req LoginRequest) (string, error) {
	state := randString(32)

	authReq, err := s.auth.AuthRequest(req.Provider, state)
	if err != nil {
		if errors.Is(err, oauth.ErrProviderNotFound) {
			sErr := serr.NewServiceError(err, http.StatusNotFound, "oauth provider not found")
			sErr.Env["provider"] = req.Provider
			return "", sErr
		}

		return "", fmt.Errorf("auth request: %w", err)
	}

	if err := s.relay.Save(w, r, &authReq, req.RedirectURL); err != nil {
		return "", fmt.Errorf("save auth request: %w", err)
	}

	return authReq.URL, nil
}

type CallbackRequest struct {
	Provider   string
	Code       string
	State      string
	ErrorParam string
}

// Callback completes the flow and returns the URL the browser should be sent
// to. Authentication failures of any kind resolve to a failure redirect with
// an error query parameter; only infrastructure problems and unauthorized
// redirect targets surface as errors. The relay cookies are cleared no matter
// what.
func (s *Auth) Callback(ctx context.Context, w http.ResponseWriter, r *http.Request, req CallbackRequest) (string, error) {
	target := s.relay.RedirectTarget(r)
	authReq, relayErr := s.relay.Consume(w, r)

	if req.ErrorParam != "" {
		return s.failureURL(target, errors.New(req.ErrorParam))
	}

	if relayErr != nil {
		return s.failureURL(target, errors.New("authorization request not found"))
	}

	if authReq.Provider != req.Provider || authReq.State == "" || authReq.State != req.State {
		return s.failureURL(target, errors.New("authentication failed"))
	}

	usr, err := s.auth.Exchange(ctx, req.Provider, req.Code)
	if err != nil {
		if errors.Is(err, oauth.ErrProviderNotFound) || errors.Is(err, oauth.ErrAuthFailed) {
			return s.failureURL(target, errors.New("authentication failed"))
		}

		return "", fmt.Errorf("exchange: %w", err)
	}

	acct, err := s.linker.Link(ctx, req.Provider, usr)
	if err != nil {
		if isAuthFailure(err) {
			return s.failureURL(target, err)
		}

		return "", fmt.Errorf("link account: %w", err)
	}

	return s.successURL(target, acct)
}

// successURL validates the redirect target against the allow list, mints a
// session token and appends it as a query parameter.
func (s *Auth) successURL(target string, usr store.User) (string, error) {
	if target != "" && !s.redirectAllowed(target) {
		sErr := serr.NewServiceError(errors.New("redirect target not authorized"), http.StatusBadRequest, "unauthorized redirect uri")
		sErr.Env["redirect_uri"] = target
		return "", sErr
	}

	if target == "" {
		target = s.defaultRedirect
	}

	tok, err := s.tokens.Issue(usr.ID)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}

	u, err := appendQuery(target, "token", tok)
	if err != nil {
		return "", fmt.Errorf("build success url: %w", err)
	}

	return u, nil
}

// failureURL appends the failure cause to the redirect target, falling back
// to root when no target was relayed.
func (s *Auth) failureURL(target string, cause error) (string, error) {
	if target == "" {
		target = "/"
	}

	u, err := appendQuery(target, "error", cause.Error())
	if err != nil {
		return "", fmt.Errorf("build failure url: %w", err)
	}

	return u, nil
}

// redirectAllowed compares the target's authority (scheme, host, port)
// against the configured allow list; paths are not considered.
func (s *Auth) redirectAllowed(target string) bool {
	t, err := url.Parse(target)
	if err != nil {
		return false
	}

	for _, allowed := range s.allowedRedirects {
		a, err := url.Parse(allowed)
		if err != nil {
			continue
		}

		if strings.EqualFold(t.Scheme, a.Scheme) &&
			strings.EqualFold(t.Hostname(), a.Hostname()) &&
			t.Port() == a.Port() {
			return true
		}
	}

	return false
}

func isAuthFailure(err error) bool {
	return errors.Is(err, account.ErrEmailMissing) ||
		errors.Is(err, account.ErrProviderMismatch) ||
		errors.Is(err, account.ErrUnsupportedProvider)
}

func appendQuery(target, key, val string) (string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", target, err)
	}

	q := u.Query()
	q.Set(key, val)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// randString generates a random state string of the specified size
func randString(size int) string {
	b := make([]byte, size)

	// rand.Read never returns an error
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
