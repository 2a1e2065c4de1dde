package rest

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/skillshare/auth-go/internal/httpx"
	"github.com/skillshare/auth-go/internal/service"
)

type authService interface {
	Login(w http.ResponseWriter, r *http.Request, req service.LoginRequest) (string, error)
	Callback(ctx context.Context, w http.ResponseWriter, r *http.Request, req service.CallbackRequest) (string, error)
}

type API struct {
	srv authService
	mux *http.ServeMux
}

func NewAPI(srv authService) *API {
	api := &API{
		srv: srv,
		mux: http.NewServeMux(),
	}
	api.mount()
	return api
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

func (a *API) mount() {
	a.mux.HandleFunc("/{provider}/login", a.handleLogin)
	a.mux.HandleFunc("/{provider}/callback", a.handleCallback)
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	p := r.PathValue("provider")
	url, err := a.srv.Login(w, r, service.LoginRequest{
		Provider:    p,
		RedirectURL: r.URL.Query().Get("redirect_uri"),
	})
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	http.Redirect(w, r, url, http.StatusFound)
}

func (a *API) handleCallback(w http.ResponseWriter, r *http.Request) {
	sw := httpx.NewStatusWriter(w)
	q := r.URL.Query()

	redirect, err := a.srv.Callback(r.Context(), sw, r, service.CallbackRequest{
		Provider:   r.PathValue("provider"),
		Code:       q.Get("code"),
		State:      q.Get("state"),
		ErrorParam: q.Get("error"),
	})
	if err != nil {
		httpx.HandleErr(sw, r, err)
		return
	}

	if httpx.Committed(sw) {
		slog.Warn("response already committed, skipping redirect",
			"url", r.URL.String(),
			"redirect", redirect,
		)
		return
	}

	http.Redirect(sw, r, redirect, http.StatusFound)
}
