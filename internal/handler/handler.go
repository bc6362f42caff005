package handler

import (
	"net/http"
	"strings"

	"github.com/artarona/Administrador/internal/repository"
	"github.com/artarona/Administrador/internal/service"
)

type Handler struct {
	db             repository.DB
	contacts       service.ContactService
	version        string
	allowedOrigins map[string]bool
	anyOrigin      bool
}

func New(db repository.DB, contacts service.ContactService, version string, allowedOrigins []string) *Handler {
	h := &Handler{
		db:             db,
		contacts:       contacts,
		version:        version,
		allowedOrigins: make(map[string]bool, len(allowedOrigins)),
	}
	for _, o := range allowedOrigins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			h.anyOrigin = true
			continue
		}
		if o != "" {
			h.allowedOrigins[o] = true
		}
	}
	return h
}

// CORS echoes the request Origin back only when it is in the allow list.
func (h *Handler) CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (h.anyOrigin || h.allowedOrigins[origin]) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Admin-Token")
		}
		w.Header().Add("Vary", "Origin")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
