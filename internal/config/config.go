package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTP  HTTPConfig  `envPrefix:"HTTP_"`
	DB    DBConfig    `envPrefix:"DB_"`
	Auth  AuthConfig  `envPrefix:"AUTH_"`
	OAuth OAuthConfig `envPrefix:"OAUTH_"`
}

type HTTPConfig struct {
	ListenAddr      string        `env:"LISTEN_ADDR" envDefault:":8080"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout     time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

type DBConfig struct {
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     string `env:"PORT" envDefault:"5432"`
	User     string `env:"USER,required"`
	Password string `env:"PASSWORD,required"`
	Name     string `env:"NAME,required"`
}

type AuthConfig struct {
	TokenSecret string        `env:"TOKEN_SECRET,required"`
	TokenIssuer string        `env:"TOKEN_ISSUER" envDefault:"skillshare-auth"`
	TokenTTL    time.Duration `env:"TOKEN_TTL" envDefault:"240h"`
	StateTTL    time.Duration `env:"STATE_TTL" envDefault:"3m"`

	AuthorizedRedirects []string `env:"AUTHORIZED_REDIRECTS" envSeparator:","`
	DefaultRedirect     string   `env:"DEFAULT_REDIRECT" envDefault:"/"`
}

type OAuthConfig struct {
	Google ProviderConfig `envPrefix:"GOOGLE_"`
	GitHub ProviderConfig `envPrefix:"GITHUB_"`
}

type ProviderConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"`
}

// Enabled reports whether the provider has credentials configured.
func (p ProviderConfig) Enabled() bool {
	return p.ClientID != ""
}

func FromEnv() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}
