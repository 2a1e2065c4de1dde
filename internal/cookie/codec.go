package cookie

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Serialize encodes a value as JSON wrapped in URL-safe base64 so it can
// travel in a cookie. The result is readable by anyone holding the cookie
// and carries no integrity protection.
func Serialize(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal cookie value: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Deserialize decodes a value produced by Serialize.
func Deserialize(s string, out any) error {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return fmt.Errorf("decode cookie value: %w", err)
	}

	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("unmarshal cookie value: %w", err)
	}

	return nil
}

// Set writes an httpOnly cookie scoped to path.
func Set(w http.ResponseWriter, name, value string, maxAge time.Duration, path string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
	})
}

// Clear expires the named cookie, but only when the request actually carries
// it. Clearing an absent cookie is a no-op. The path must match the one the
// cookie was set with or browsers will keep the original.
func Clear(w http.ResponseWriter, r *http.Request, name, path string) {
	if _, err := r.Cookie(name); err != nil {
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		MaxAge:   -1,
		HttpOnly: true,
	})
}
