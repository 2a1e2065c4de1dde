package provider

import (
	"context"
	"crypto/sha1"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/skillshare/auth-go/internal/oauth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const (
	googleScopeEmail   string = "email"
	googleScopeProfile string = "profile"
)

// Google implements the identityProvider interface via Google's OIDC endpoint
type Google struct {
	cfg      *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

// GoogleConfig holds the configuration for the Google OAuth provider
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type googleClaims struct {
	Sub      string `json:"sub,omitempty"`
	Email    string `json:"email,omitempty"`
	Verified bool   `json:"email_verified,omitempty"`
	Name     string `json:"name,omitempty"`
	Picture  string `json:"picture,omitempty"`
}

// NewGoogle creates a new Google OAuth provider with the given configuration
func NewGoogle(ctx context.Context, google GoogleConfig) (*Google, error) {
	p, err := oidc.NewProvider(ctx, "https://accounts.google.com")
	if err != nil {
		return nil, fmt.Errorf("new oidc provider: %w", err)
	}

	return &Google{
		cfg: &oauth2.Config{
			ClientID:     google.ClientID,
			ClientSecret: google.ClientSecret,
			RedirectURL:  google.RedirectURL,
			Scopes:       []string{oidc.ScopeOpenID, googleScopeProfile, googleScopeEmail},
			Endpoint:     endpoints.Google,
		},
		verifier: p.Verifier(&oidc.Config{ClientID: google.ClientID}),
	}, nil
}

// AuthRequest builds the authorization request carried through the relay
func (g *Google) AuthRequest(state string) oauth.AuthRequest {
	return oauth.AuthRequest{
		Provider:    "google",
		ClientID:    g.cfg.ClientID,
		URL:         g.cfg.AuthCodeURL(state),
		RedirectURL: g.cfg.RedirectURL,
		State:       state,
		Scopes:      g.cfg.Scopes,
	}
}

// Exchange exchanges the authorization code for a verified OAuth user
func (g *Google) Exchange(ctx context.Context, code string) (oauth.User, error) {
	tok, err := g.cfg.Exchange(ctx, code)
	if err != nil {
		return oauth.User{}, err
	}

	raw, ok := tok.Extra("id_token").(string)
	if !ok {
		return oauth.User{}, fmt.Errorf("token response carries no id_token")
	}

	idTok, err := g.verifier.Verify(ctx, raw)
	if err != nil {
		return oauth.User{}, fmt.Errorf("verify id token: %w", err)
	}

	var usr googleClaims
	if err := idTok.Claims(&usr); err != nil {
		return oauth.User{}, fmt.Errorf("read claims: %w", err)
	}

	return oauth.User{
		ID:            usr.Sub,
		Email:         usr.Email,
		EmailVerified: usr.Verified,
		Picture:       usr.Picture,
		Name:          nameOrDefault(usr.Name, defaultName("google", usr.Sub)),
	}, nil
}

// nameOrDefault returns the user's name if it's not empty; otherwise, it returns the default name
func nameOrDefault(name, def string) string {
	if name != "" {
		return name
	}
	return def
}

// defaultName generates a default handle based on the provider's subject identifier
func defaultName(provider, sub string) string {
	sum := sha1.Sum([]byte(sub))
	return fmt.Sprintf("%s_%x", provider, sum[:8])
}
