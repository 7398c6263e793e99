package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/iarunsaragadam/isobox/auth"
)

type contextKey string

const authResultKey contextKey = "auth_result"

// publicPaths do not require authentication
var publicPaths = []string{
	"/health",
	"/metrics",
	"/auth/status",
}

// Auth creates a middleware that authenticates every non-public request with
// the given service and stores the result in the request context.
func Auth(service *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			result, err := service.Authenticate(r)
			if err != nil {
				status := http.StatusUnauthorized
				if errors.Is(err, auth.ErrConfiguration) {
					status = http.StatusInternalServerError
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(status)
				json.NewEncoder(w).Encode(map[string]string{
					"error":   "authentication failed",
					"message": err.Error(),
				})
				return
			}

			ctx := context.WithValue(r.Context(), authResultKey, result)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// isPublicPath checks if a path is public (doesn't require authentication)
func isPublicPath(path string) bool {
	for _, publicPath := range publicPaths {
		if path == publicPath || strings.HasPrefix(path, publicPath+"/") {
			return true
		}
	}
	return false
}

// ResultFromContext gets the authentication result from the request context
func ResultFromContext(ctx context.Context) (*auth.Result, bool) {
	result, ok := ctx.Value(authResultKey).(*auth.Result)
	return result, ok
}
