package middleware

import (
	"log/slog"
	"net/http"

	"filippo.io/csrf/gorilla"
)

// CSRF protects form posts using Fetch metadata with a keyed token
// fallback for older browsers. In development, localhost origins are
// trusted so plain-HTTP testing works.
func CSRF(authKey []byte, isDev bool) func(http.Handler) http.Handler {
	opts := []csrf.Option{
		csrf.ErrorHandler(http.HandlerFunc(csrfFailed)),
	}
	if isDev {
		opts = append(opts, csrf.TrustedOrigins([]string{
			"localhost:8080",
			"127.0.0.1:8080",
		}))
	}
	return csrf.Protect(authKey, opts...)
}

func csrfFailed(w http.ResponseWriter, r *http.Request) {
	reason := "unknown"
	if err := csrf.FailureReason(r); err != nil {
		reason = err.Error()
	}
	slog.Warn("CSRF validation failed",
		"reason", reason,
		"method", r.Method,
		"path", r.URL.Path,
		"origin", r.Header.Get("Origin"),
	)
	http.Error(w, "Forbidden", http.StatusForbidden)
}
