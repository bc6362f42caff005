package handler

import (
	"net/http"

	"github.com/artarona/Administrador/pkg/auth"
)

// RouterConfig collects everything NewRouter wires together.
type RouterConfig struct {
	Handler     *Handler
	Contacts    *ContactHandler
	AdminToken  string
	RateLimiter *RateLimiter
	Metrics     *Metrics
	StaticDir   string
}

type route struct {
	pattern string
	handler http.HandlerFunc
}

func adminRoutes(ch *ContactHandler) []route {
	return []route{
		{"GET /admin/data", ch.Data},
		{"POST /admin/add", ch.Add},
		{"PUT /admin/update", ch.Update},
		{"DELETE /admin/delete", ch.Delete},
		{"DELETE /admin/clear", ch.Clear},
		{"GET /admin/stats", ch.Stats},
		{"GET /admin/export", ch.Export},
	}
}

// NewRouter builds the full middleware chain around the route table. Every
// admin route is also reachable as <route>/{token} for older frontends.
func NewRouter(cfg RouterConfig) http.Handler {
	requireToken := auth.RequireToken(cfg.AdminToken)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", cfg.Handler.Health)

	for _, rt := range adminRoutes(cfg.Contacts) {
		guarded := requireToken(rt.handler)
		mux.Handle(rt.pattern, guarded)
		mux.Handle(rt.pattern+"/{token}", guarded)
	}

	var submit http.Handler = http.HandlerFunc(cfg.Contacts.Submit)
	if cfg.RateLimiter != nil {
		submit = cfg.RateLimiter.Middleware(submit)
	}
	mux.Handle("POST /api/contacto", submit)

	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics.Handler())
	}
	if cfg.StaticDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(cfg.StaticDir)))
	}

	var h http.Handler = mux
	if cfg.Metrics != nil {
		h = cfg.Metrics.Middleware(h)
	}
	return SecurityHeaders(cfg.Handler.CORS(RequestLogger(h)))
}
