package http

import (
	"context"
	"net/http"
	"strings"

	"streamrent/internal/logger"
	"streamrent/internal/security"
)

type contextKey string

const callerContextKey contextKey = "caller"

// CallerFromContext returns the authenticated caller's claims, or nil on an
// unauthenticated request.
func CallerFromContext(ctx context.Context) *security.CallerClaims {
	claims, _ := ctx.Value(callerContextKey).(*security.CallerClaims)
	return claims
}

// AuthMiddleware validates bearer tokens and attaches the caller's claims to
// the request context.
type AuthMiddleware struct {
	tokens security.TokenManager
}

func NewAuthMiddleware(tokens security.TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

func (m *AuthMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Code: "UNAUTHENTICATED", Message: "missing bearer token"})
			return
		}

		claims, err := m.tokens.ValidateToken(token)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Code: "UNAUTHENTICATED", Message: err.Error()})
			return
		}

		ctx := context.WithValue(r.Context(), callerContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Logging emits one line per request after it completes.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("http request", "method", r.Method, "path", r.URL.Path, "status", rec.status)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
