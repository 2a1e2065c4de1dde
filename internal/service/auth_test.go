package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/skillshare/auth-go/internal/account"
	"github.com/skillshare/auth-go/internal/oauth"
	"github.com/skillshare/auth-go/internal/serr"
	"github.com/skillshare/auth-go/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockAuthenticator struct {
	authRequestFunc func(provider, state string) (oauth.AuthRequest, error)
	exchangeFunc    func(ctx context.Context, provider, code string) (oauth.User, error)
}

func (m *mockAuthenticator) AuthRequest(provider, state string) (oauth.AuthRequest, error) {
	return m.authRequestFunc(provider, state)
}

func (m *mockAuthenticator) Exchange(ctx context.Context, provider, code string) (oauth.User, error) {
	return m.exchangeFunc(ctx, provider, code)
}

type mockRelay struct {
	saveFunc    func(w http.ResponseWriter, r *http.Request, req *oauth.AuthRequest, redirectURI string) error
	targetFunc  func(r *http.Request) string
	consumeFunc func(w http.ResponseWriter, r *http.Request) (oauth.AuthRequest, error)
	cleared     int
}

func (m *mockRelay) Save(w http.ResponseWriter, r *http.Request, req *oauth.AuthRequest, redirectURI string) error {
	return m.saveFunc(w, r, req, redirectURI)
}

func (m *mockRelay) RedirectTarget(r *http.Request) string {
	return m.targetFunc(r)
}

func (m *mockRelay) Consume(w http.ResponseWriter, r *http.Request) (oauth.AuthRequest, error) {
	m.cleared++
	return m.consumeFunc(w, r)
}

type mockLinker struct {
	linkFunc func(ctx context.Context, provider string, usr oauth.User) (store.User, error)
}

func (m *mockLinker) Link(ctx context.Context, provider string, usr oauth.User) (store.User, error) {
	return m.linkFunc(ctx, provider, usr)
}

type mockTokens struct {
	issueFunc func(userID int64) (string, error)
}

func (m *mockTokens) Issue(userID int64) (string, error) {
	return m.issueFunc(userID)
}

func happyRelay(target string) *mockRelay {
	return &mockRelay{
		saveFunc: func(w http.ResponseWriter, r *http.Request, req *oauth.AuthRequest, redirectURI string) error {
			return nil
		},
		targetFunc: func(r *http.Request) string {
			return target
		},
		consumeFunc: func(w http.ResponseWriter, r *http.Request) (oauth.AuthRequest, error) {
			return oauth.AuthRequest{Provider: "google", State: "state-123"}, nil
		},
	}
}

func happyAuthenticator() *mockAuthenticator {
	return &mockAuthenticator{
		authRequestFunc: func(provider, state string) (oauth.AuthRequest, error) {
			return oauth.AuthRequest{
				Provider: provider,
				State:    state,
				URL:      fmt.Sprintf("https://provider.example.com/auth?state=%s", state),
			}, nil
		},
		exchangeFunc: func(ctx context.Context, provider, code string) (oauth.User, error) {
			return oauth.User{
				ID:            "sub-123",
				Email:         "test@example.com",
				EmailVerified: true,
				Name:          "Test User",
			}, nil
		},
	}
}

func happyLinker() *mockLinker {
	return &mockLinker{
		linkFunc: func(ctx context.Context, provider string, usr oauth.User) (store.User, error) {
			return store.User{ID: 7, Email: usr.Email}, nil
		},
	}
}

func happyTokens() *mockTokens {
	return &mockTokens{
		issueFunc: func(userID int64) (string, error) {
			return fmt.Sprintf("token-for-%d", userID), nil
		},
	}
}

func newTestAuth(opts ...AuthOption) *Auth {
	base := []AuthOption{
		WithAuthenticator(happyAuthenticator()),
		WithRelay(happyRelay("http://localhost:3000/oauth2/redirect")),
		WithLinker(happyLinker()),
		WithTokens(happyTokens()),
		WithAuthorizedRedirects([]string{"http://localhost:3000/oauth2/redirect"}),
	}

	return NewAuth(append(base, opts...)...)
}

func callbackArgs() (http.ResponseWriter, *http.Request) {
	return httptest.NewRecorder(), httptest.NewRequest("GET", "/google/callback", nil)
}

func TestLogin(t *testing.T) {
	var savedReq *oauth.AuthRequest
	var savedRedirect string
	rl := happyRelay("")
	rl.saveFunc = func(w http.ResponseWriter, r *http.Request, req *oauth.AuthRequest, redirectURI string) error {
		savedReq = req
		savedRedirect = redirectURI
		return nil
	}

	srv := newTestAuth(WithRelay(rl))

	w, r := callbackArgs()
	loginURL, err := srv.Login(w, r, LoginRequest{
		Provider:    "google",
		RedirectURL: "http://localhost:3000/oauth2/redirect",
	})
	require.NoError(t, err)

	require.NotNil(t, savedReq)
	assert.Equal(t, "google", savedReq.Provider)
	assert.NotEmpty(t, savedReq.State)
	assert.Contains(t, loginURL, savedReq.State)
	assert.Equal(t, "http://localhost:3000/oauth2/redirect", savedRedirect)
}

func TestLogin_ProviderNotFound(t *testing.T) {
	srv := newTestAuth(WithAuthenticator(&mockAuthenticator{
		authRequestFunc: func(provider, state string) (oauth.AuthRequest, error) {
			return oauth.AuthRequest{}, oauth.ErrProviderNotFound
		},
	}))

	w, r := callbackArgs()
	_, err := srv.Login(w, r, LoginRequest{Provider: "unknown_provider"})
	require.Error(t, err)

	var sErr *serr.ServiceError
	require.ErrorAs(t, err, &sErr)
	assert.Equal(t, 404, sErr.StatusCode)
	assert.Equal(t, "unknown_provider", sErr.Env["provider"])
}

func TestCallback_Success(t *testing.T) {
	srv := newTestAuth()

	w, r := callbackArgs()
	redirect, err := srv.Callback(context.Background(), w, r, CallbackRequest{
		Provider: "google",
		Code:     "auth_code",
		State:    "state-123",
	})
	require.NoError(t, err)

	u, err := url.Parse(redirect)
	require.NoError(t, err)
	assert.Equal(t, "localhost:3000", u.Host)
	assert.Equal(t, "/oauth2/redirect", u.Path)
	assert.Equal(t, "token-for-7", u.Query().Get("token"))
}

func TestCallback_Success_NoTarget(t *testing.T) {
	srv := newTestAuth(
		WithRelay(happyRelay("")),
		WithDefaultRedirect("http://localhost:3000/home"),
	)

	w, r := callbackArgs()
	redirect, err := srv.Callback(context.Background(), w, r, CallbackRequest{
		Provider: "google",
		Code:     "auth_code",
		State:    "state-123",
	})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000/home?token=token-for-7", redirect)
}

func TestCallback_UnauthorizedRedirect(t *testing.T) {
	issued := 0
	tokens := &mockTokens{
		issueFunc: func(userID int64) (string, error) {
			issued++
			return "token", nil
		},
	}

	rl := happyRelay("http://evil.example.com/steal")
	srv := newTestAuth(WithRelay(rl), WithTokens(tokens))

	w, r := callbackArgs()
	_, err := srv.Callback(context.Background(), w, r, CallbackRequest{
		Provider: "google",
		Code:     "auth_code",
		State:    "state-123",
	})
	require.Error(t, err)

	var sErr *serr.ServiceError
	require.ErrorAs(t, err, &sErr)
	assert.Equal(t, http.StatusBadRequest, sErr.StatusCode)
	assert.Equal(t, "http://evil.example.com/steal", sErr.Env["redirect_uri"])
	assert.Zero(t, issued)
	assert.Equal(t, 1, rl.cleared)
}

func TestCallback_RedirectAuthorityVariants(t *testing.T) {
	tbl := []struct {
		name    string
		target  string
		allowed bool
	}{
		{"exact match", "http://localhost:3000/oauth2/redirect", true},
		{"different path", "http://localhost:3000/other/path", true},
		{"different port", "http://localhost:4000/oauth2/redirect", false},
		{"different host", "http://otherhost:3000/oauth2/redirect", false},
		{"different scheme", "https://localhost:3000/oauth2/redirect", false},
		{"uppercase host", "http://LOCALHOST:3000/oauth2/redirect", true},
	}

	for _, c := range tbl {
		t.Run(c.name, func(t *testing.T) {
			srv := newTestAuth(WithRelay(happyRelay(c.target)))

			w, r := callbackArgs()
			redirect, err := srv.Callback(context.Background(), w, r, CallbackRequest{
				Provider: "google",
				Code:     "auth_code",
				State:    "state-123",
			})

			if c.allowed {
				require.NoError(t, err)
				assert.Contains(t, redirect, "token=")
			} else {
				var sErr *serr.ServiceError
				require.ErrorAs(t, err, &sErr)
				assert.Equal(t, http.StatusBadRequest, sErr.StatusCode)
			}
		})
	}
}

func TestCallback_StateMismatch(t *testing.T) {
	srv := newTestAuth()

	w, r := callbackArgs()
	redirect, err := srv.Callback(context.Background(), w, r, CallbackRequest{
		Provider: "google",
		Code:     "auth_code",
		State:    "tampered-state",
	})
	require.NoError(t, err)

	u, err := url.Parse(redirect)
	require.NoError(t, err)
	assert.Equal(t, "authentication failed", u.Query().Get("error"))
	assert.Contains(t, redirect, "error=authentication+failed")
}

func TestCallback_MissingAuthRequest(t *testing.T) {
	rl := happyRelay("")
	rl.consumeFunc = func(w http.ResponseWriter, r *http.Request) (oauth.AuthRequest, error) {
		return oauth.AuthRequest{}, oauth.ErrNoAuthRequest
	}

	srv := newTestAuth(WithRelay(rl))

	w, r := callbackArgs()
	redirect, err := srv.Callback(context.Background(), w, r, CallbackRequest{
		Provider: "google",
		Code:     "auth_code",
		State:    "state-123",
	})
	require.NoError(t, err)
	assert.Contains(t, redirect, "/?error=")
}

func TestCallback_ProviderErrorParam(t *testing.T) {
	srv := newTestAuth()

	w, r := callbackArgs()
	redirect, err := srv.Callback(context.Background(), w, r, CallbackRequest{
		Provider:   "google",
		ErrorParam: "access_denied",
	})
	require.NoError(t, err)

	u, err := url.Parse(redirect)
	require.NoError(t, err)
	assert.Equal(t, "access_denied", u.Query().Get("error"))
}

func TestCallback_ExchangeAuthFailed(t *testing.T) {
	auth := happyAuthenticator()
	auth.exchangeFunc = func(ctx context.Context, provider, code string) (oauth.User, error) {
		return oauth.User{}, oauth.ErrAuthFailed
	}

	srv := newTestAuth(WithAuthenticator(auth))

	w, r := callbackArgs()
	redirect, err := srv.Callback(context.Background(), w, r, CallbackRequest{
		Provider: "google",
		Code:     "bad_code",
		State:    "state-123",
	})
	require.NoError(t, err)
	assert.Contains(t, redirect, "error=authentication+failed")
}

func TestCallback_ExchangeInfraError(t *testing.T) {
	auth := happyAuthenticator()
	auth.exchangeFunc = func(ctx context.Context, provider, code string) (oauth.User, error) {
		return oauth.User{}, errors.New("network down")
	}

	srv := newTestAuth(WithAuthenticator(auth))

	w, r := callbackArgs()
	_, err := srv.Callback(context.Background(), w, r, CallbackRequest{
		Provider: "google",
		Code:     "auth_code",
		State:    "state-123",
	})
	require.Error(t, err)

	var sErr *serr.ServiceError
	assert.False(t, errors.As(err, &sErr))
}

func TestCallback_LinkFailures(t *testing.T) {
	tbl := []struct {
		name    string
		linkErr error
		errPart string
	}{
		{"provider mismatch", fmt.Errorf("signed up via facebook: %w", account.ErrProviderMismatch), "facebook"},
		{"email missing", account.ErrEmailMissing, "email+not+found"},
		{"unsupported provider", fmt.Errorf("login with myspace is not supported: %w", account.ErrUnsupportedProvider), "myspace"},
	}

	for _, c := range tbl {
		t.Run(c.name, func(t *testing.T) {
			srv := newTestAuth(WithLinker(&mockLinker{
				linkFunc: func(ctx context.Context, provider string, usr oauth.User) (store.User, error) {
					return store.User{}, c.linkErr
				},
			}))

			w, r := callbackArgs()
			redirect, err := srv.Callback(context.Background(), w, r, CallbackRequest{
				Provider: "google",
				Code:     "auth_code",
				State:    "state-123",
			})
			require.NoError(t, err)
			assert.Contains(t, redirect, "error=")
			assert.Contains(t, redirect, c.errPart)
		})
	}
}

func TestCallback_AlwaysConsumesRelay(t *testing.T) {
	rl := happyRelay("http://localhost:3000/oauth2/redirect")
	srv := newTestAuth(WithRelay(rl))

	w, r := callbackArgs()
	_, err := srv.Callback(context.Background(), w, r, CallbackRequest{
		Provider: "google",
		Code:     "auth_code",
		State:    "state-123",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, rl.cleared)

	w, r = callbackArgs()
	_, err = srv.Callback(context.Background(), w, r, CallbackRequest{
		Provider:   "google",
		ErrorParam: "access_denied",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, rl.cleared)
}
