package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/skillshare/auth-go/internal/httpx"
	"github.com/skillshare/auth-go/internal/router"
)

func Log() router.Middleware {
	return LogWith(slog.Default())
}

func LogWith(l *slog.Logger) router.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			statusWriter := httpx.NewStatusWriter(w)
			t := time.Now()

			next.ServeHTTP(statusWriter, r)
			l.Info("request received",
				"time", t,
				"method", r.Method,
				"url", r.URL.String(),
				"ip", r.RemoteAddr,
				"status", statusWriter.Status(),
				"agent", r.UserAgent())
		})
	}
}
