package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/skillshare/auth-go/internal/oauth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const githubUserURL = "https://api.github.com/user"

// GitHub implements the identityProvider interface against the GitHub user
// API. GitHub issues no id_token, so the profile is fetched directly.
type GitHub struct {
	cfg     *oauth2.Config
	userURL string
}

type GitHubConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

func NewGitHub(github GitHubConfig) *GitHub {
	return &GitHub{
		cfg: &oauth2.Config{
			ClientID:     github.ClientID,
			ClientSecret: github.ClientSecret,
			RedirectURL:  github.RedirectURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     endpoints.GitHub,
		},
		userURL: githubUserURL,
	}
}

func (g *GitHub) AuthRequest(state string) oauth.AuthRequest {
	return oauth.AuthRequest{
		Provider:    "github",
		ClientID:    g.cfg.ClientID,
		URL:         g.cfg.AuthCodeURL(state),
		RedirectURL: g.cfg.RedirectURL,
		State:       state,
		Scopes:      g.cfg.Scopes,
	}
}

func (g *GitHub) Exchange(ctx context.Context, code string) (oauth.User, error) {
	tok, err := g.cfg.Exchange(ctx, code)
	if err != nil {
		return oauth.User{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userURL, nil)
	if err != nil {
		return oauth.User{}, fmt.Errorf("build user request: %w", err)
	}

	resp, err := g.cfg.Client(ctx, tok).Do(req)
	if err != nil {
		return oauth.User{}, fmt.Errorf("fetch user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return oauth.User{}, fmt.Errorf("fetch user: unexpected status %d", resp.StatusCode)
	}

	var usr githubUser
	if err := json.NewDecoder(resp.Body).Decode(&usr); err != nil {
		return oauth.User{}, fmt.Errorf("decode user: %w", err)
	}

	return oauth.User{
		ID:    strconv.FormatInt(usr.ID, 10),
		Email: usr.Email,
		// GitHub only exposes a primary email the user chose to publish,
		// which it has already verified.
		EmailVerified: usr.Email != "",
		Picture:       usr.AvatarURL,
		Name:          nameOrDefault(usr.Name, usr.Login),
	}, nil
}
