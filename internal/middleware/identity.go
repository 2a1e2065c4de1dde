package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/skillshare/auth-go/internal/router"
	"github.com/skillshare/auth-go/internal/store"
)

type ctxKey struct{}

var userKey ctxKey

const bearerPrefix = "Bearer "

type tokenCodec interface {
	Validate(token string) bool
	Subject(token string) (int64, error)
}

type userSource interface {
	GetUser(ctx context.Context, id int64) (store.User, error)
}

// Identity resolves the bearer token into a user and attaches it to the
// request context. It never rejects: missing headers, malformed or expired
// tokens and lookup failures all leave the request unauthenticated and pass
// it on. Route guards decide what an absent identity means.
func Identity(codec tokenCodec, users userSource) router.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			usr, ok := resolve(r, codec, users)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, usr)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolve(r *http.Request, codec tokenCodec, users userSource) (store.User, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		return store.User{}, false
	}

	tokenStr := header[len(bearerPrefix):]
	if tokenStr == "" || !codec.Validate(tokenStr) {
		return store.User{}, false
	}

	id, err := codec.Subject(tokenStr)
	if err != nil {
		slog.Debug("could not read token subject", "error", err)
		return store.User{}, false
	}

	usr, err := users.GetUser(r.Context(), id)
	if err != nil {
		slog.Debug("could not load token user", "error", err, "user_id", id)
		return store.User{}, false
	}

	return usr, true
}

// UserFromContext returns the user attached by Identity, if any.
func UserFromContext(ctx context.Context) (store.User, bool) {
	usr, ok := ctx.Value(userKey).(store.User)
	return usr, ok
}

// RequireUser rejects requests that carry no resolved identity.
func RequireUser() router.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := UserFromContext(r.Context()); !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
