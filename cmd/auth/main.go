package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/skillshare/auth-go/internal/account"
	"github.com/skillshare/auth-go/internal/config"
	"github.com/skillshare/auth-go/internal/middleware"
	"github.com/skillshare/auth-go/internal/oauth"
	"github.com/skillshare/auth-go/internal/provider"
	"github.com/skillshare/auth-go/internal/rest"
	"github.com/skillshare/auth-go/internal/router"
	"github.com/skillshare/auth-go/internal/service"
	"github.com/skillshare/auth-go/internal/store"
	"github.com/skillshare/auth-go/internal/token"
)

// relay cookies are scoped to the auth routes so browsers only send them on
// the provider round trip
const authMount = "/api/v1/auth"

func run(ctx context.Context) error {
	slog.Info("starting auth service")

	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := store.NewPostgresDB(store.PostgresConfig{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		DB:       cfg.DB.Name,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to db: %w", err)
	}
	defer db.Close()

	pgs := store.NewPostgresStore(db)

	auth := oauth.NewAuthenticator()
	if err := registerProviders(ctx, auth, cfg); err != nil {
		return fmt.Errorf("failed to register oauth providers: %w", err)
	}

	issuer := token.NewJwtIssuer(token.JwtConfig{
		Secret: token.NewSecretString(cfg.Auth.TokenSecret),
		Issuer: cfg.Auth.TokenIssuer,
		TTL:    cfg.Auth.TokenTTL,
	})

	srv := service.NewAuth(
		service.WithAuthenticator(auth),
		service.WithRelay(oauth.NewRelay(authMount, cfg.Auth.StateTTL)),
		service.WithLinker(account.NewLinker(pgs)),
		service.WithTokens(issuer),
		service.WithAuthorizedRedirects(cfg.Auth.AuthorizedRedirects),
		service.WithDefaultRedirect(cfg.Auth.DefaultRedirect),
	)

	rt := router.New()
	rt.Use(middleware.Log(), middleware.Recover())

	rt.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rt.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	api := rt.SubRouter("/api/v1")

	authAPI := api.SubRouter("/auth")
	authAPI.Handle("/", rest.NewAPI(srv))

	usersAPI := api.SubRouter("/users")
	usersAPI.Use(middleware.Identity(issuer, pgs), middleware.RequireUser())
	usersAPI.Handle("/", rest.NewUserAPI())

	httpSrv := &http.Server{
		Addr:         cfg.HTTP.ListenAddr,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		Handler:      rt,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func registerProviders(ctx context.Context, auth *oauth.Authenticator, cfg config.Config) error {
	if cfg.OAuth.Google.Enabled() {
		prvGoogle, err := provider.NewGoogle(ctx, provider.GoogleConfig{
			ClientID:     cfg.OAuth.Google.ClientID,
			ClientSecret: cfg.OAuth.Google.ClientSecret,
			RedirectURL:  cfg.OAuth.Google.RedirectURL,
		})
		if err != nil {
			return fmt.Errorf("failed to create google oauth provider: %w", err)
		}

		if err := auth.Use(account.ProviderGoogle, prvGoogle); err != nil {
			return err
		}
	}

	if cfg.OAuth.GitHub.Enabled() {
		prvGitHub := provider.NewGitHub(provider.GitHubConfig{
			ClientID:     cfg.OAuth.GitHub.ClientID,
			ClientSecret: cfg.OAuth.GitHub.ClientSecret,
			RedirectURL:  cfg.OAuth.GitHub.RedirectURL,
		})

		if err := auth.Use(account.ProviderGitHub, prvGitHub); err != nil {
			return err
		}
	}

	return nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		slog.Error("auth service terminated with error", "error", err)
		os.Exit(1)
	}
}
