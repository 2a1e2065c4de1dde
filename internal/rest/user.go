package rest

import (
	"net/http"

	"github.com/skillshare/auth-go/internal/httpx"
	"github.com/skillshare/auth-go/internal/middleware"
)

// UserAPI serves the current-user endpoints. It expects the identity
// middleware to have resolved the bearer token already.
type UserAPI struct {
	mux *http.ServeMux
}

func NewUserAPI() *UserAPI {
	api := &UserAPI{
		mux: http.NewServeMux(),
	}
	api.mount()
	return api
}

func (a *UserAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

func (a *UserAPI) mount() {
	a.mux.HandleFunc("GET /me", a.handleMe)
}

type userResponse struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	ImageURL string `json:"image_url,omitempty"`
	Provider string `json:"provider"`
}

func (a *UserAPI) handleMe(w http.ResponseWriter, r *http.Request) {
	usr, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	err := httpx.WriteJSON(w, http.StatusOK, userResponse{
		ID:       usr.ID,
		Email:    usr.Email,
		Name:     usr.Name,
		ImageURL: usr.ImageURL,
		Provider: usr.Provider,
	})
	if err != nil {
		httpx.HandleErr(w, r, err)
	}
}
