package auth

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
)

type contextKey string

const tokenSourceKey contextKey = "token_source"

// Where an accepted admin token was found.
const (
	SourceBearer = "bearer"
	SourceHeader = "header"
	SourcePath   = "path"
	SourceQuery  = "query"
)

// HeaderName is the dedicated admin token header.
const HeaderName = "X-Admin-Token"

// WithTokenSource stores where the admin token came from in the context.
func WithTokenSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, tokenSourceKey, source)
}

// TokenSourceFromContext returns the token source set by RequireToken.
func TokenSourceFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(tokenSourceKey).(string)
	return v, ok
}

// TokenFromRequest extracts the admin token. Header forms win over the path
// segment, which wins over the query string.
func TokenFromRequest(r *http.Request) (token, source string) {
	if h := r.Header.Get("Authorization"); h != "" {
		if t, ok := strings.CutPrefix(h, "Bearer "); ok && strings.TrimSpace(t) != "" {
			return strings.TrimSpace(t), SourceBearer
		}
	}
	if t := strings.TrimSpace(r.Header.Get(HeaderName)); t != "" {
		return t, SourceHeader
	}
	if t := r.PathValue("token"); t != "" {
		return t, SourcePath
	}
	if t := r.URL.Query().Get("token"); t != "" {
		return t, SourceQuery
	}
	return "", ""
}

// Equal compares two tokens in constant time.
func Equal(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// RequireToken guards admin routes with a shared secret. An empty secret
// disables the routes entirely (503) instead of letting everyone in.
func RequireToken(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				writeError(w, http.StatusServiceUnavailable, "admin_disabled")
				return
			}

			token, source := TokenFromRequest(r)
			if token == "" || !Equal(token, secret) {
				writeError(w, http.StatusUnauthorized, "Token de administrador inválido")
				return
			}

			ctx := WithTokenSource(r.Context(), source)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": msg})
}
