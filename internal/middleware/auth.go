package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dukerupert/dandy/internal/auth"
)

type resolver interface {
	Resolve(r *http.Request) (*auth.Identity, error)
}

// Identify resolves the request identity into the context when there is one
// and always calls next.
func Identify(res resolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := res.Resolve(r)
			if err != nil {
				logger.Error("resolve identity", "path", r.URL.Path, "error", err)
			}
			if id != nil {
				r = r.WithContext(auth.WithIdentity(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireIdentity answers 401 JSON unless the request resolves to an identity.
func RequireIdentity(res resolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := res.Resolve(r)
			if err != nil {
				logger.Error("resolve identity", "path", r.URL.Path, "error", err)
				writeError(w, http.StatusInternalServerError, "Failed to resolve session")
				return
			}
			if id == nil {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
