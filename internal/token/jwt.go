package token

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JwtIssuer mints and verifies self-contained HS256 session tokens. The
// subject claim holds the user id; no other state lives server-side.
type JwtIssuer struct {
	secret secretProvider
	issuer string
	ttl    time.Duration
}

type JwtConfig struct {
	Secret secretProvider
	Issuer string
	TTL    time.Duration
}

func NewJwtIssuer(cfg JwtConfig) *JwtIssuer {
	return &JwtIssuer{
		secret: cfg.Secret,
		issuer: cfg.Issuer,
		ttl:    cfg.TTL,
	}
}

// Issue creates a token for the given user id. A zero TTL produces tokens
// that are already expired.
func (ti *JwtIssuer) Issue(userID int64) (string, error) {
	now := time.Now()
	tk, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		Issuer:    ti.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
	}).SignedString(ti.secret.Get())

	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return tk, nil
}

// Validate reports whether the token is well formed, carries a valid
// signature and has not expired. It never panics and never returns an error.
func (ti *JwtIssuer) Validate(tokenStr string) bool {
	_, err := ti.parse(tokenStr)
	if err != nil {
		slog.Debug("token rejected", "error", err)
		return false
	}

	return true
}

// Subject returns the user id carried by a valid token.
func (ti *JwtIssuer) Subject(tokenStr string) (int64, error) {
	tk, err := ti.parse(tokenStr)
	if err != nil {
		return 0, fmt.Errorf("parse token: %w", err)
	}

	sub, err := tk.Claims.GetSubject()
	if err != nil {
		return 0, fmt.Errorf("read subject: %w", err)
	}

	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse subject %q: %w", sub, err)
	}

	return id, nil
}

func (ti *JwtIssuer) parse(tokenStr string) (*jwt.Token, error) {
	return jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		return ti.secret.Get(), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
}
