package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/artarona/Administrador/internal/model"
)

func TestMetrics_ContactCreated(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.ContactCreated(model.OriginPublic)
	m.ContactCreated(model.OriginPublic)
	m.ContactCreated(model.OriginAdmin)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	if !strings.Contains(body, `contacts_created_total{origin="public"} 2`) {
		t.Errorf("public counter missing:\n%s", body)
	}
	if !strings.Contains(body, `contacts_created_total{origin="admin"} 1`) {
		t.Errorf("admin counter missing:\n%s", body)
	}
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	m.ContactCreated(model.OriginAdmin)
}

func TestMetrics_UnmatchedRoute(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {})

	rec := httptest.NewRecorder()
	m.Middleware(mux).ServeHTTP(rec, httptest.NewRequest("GET", "/nope", nil))

	rec = httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `route="unmatched"`) {
		t.Errorf("expected unmatched route label:\n%s", rec.Body.String())
	}
}
