package handler

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/artarona/Administrador/internal/model"
	"github.com/artarona/Administrador/internal/service"
	"github.com/artarona/Administrador/pkg/auth"
)

// ContactHandler serves the admin contact endpoints and the public form.
type ContactHandler struct {
	contactService service.ContactService
	metrics        *Metrics
}

// NewContactHandler creates a ContactHandler. m may be nil.
func NewContactHandler(contactService service.ContactService, m *Metrics) *ContactHandler {
	return &ContactHandler{contactService: contactService, metrics: m}
}

type listResponse struct {
	Success bool             `json:"success"`
	Data    []*model.Contact `json:"data"`
	Count   int              `json:"count"`
}

// Data handles GET /admin/data.
func (h *ContactHandler) Data(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.contactService.List(r.Context())
	if err != nil {
		writeServiceError(w, "list contacts", err)
		return
	}
	if contacts == nil {
		contacts = []*model.Contact{}
	}
	writeJSON(w, http.StatusOK, listResponse{Success: true, Data: contacts, Count: len(contacts)})
}

// addRequest is the JSON body for POST /admin/add.
type addRequest struct {
	Name    string `json:"nombre"`
	Email   string `json:"email"`
	Phone   string `json:"telefono"`
	Message string `json:"mensaje"`
}

// Add handles POST /admin/add.
func (h *ContactHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	c, err := h.contactService.Create(r.Context(), model.ContactInput{
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Message:   req.Message,
		Origin:    model.OriginAdmin,
		IPAddress: clientIP(r, defaultTrustedProxies),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		writeServiceError(w, "add contact", err)
		return
	}
	h.metrics.ContactCreated(model.OriginAdmin)
	slog.Info("contact added", "id", c.ID, "token_source", tokenSource(r))

	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "id": c.ID, "email": c.Email})
}

// updateRequest is the JSON body for PUT /admin/update. A missing nombre
// keeps the stored name.
type updateRequest struct {
	Email   string  `json:"email"`
	Name    *string `json:"nombre"`
	Phone   string  `json:"telefono"`
	Message string  `json:"mensaje"`
}

// Update handles PUT /admin/update.
func (h *ContactHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	c, err := h.contactService.Update(r.Context(), model.UpdateInput{
		Email:   req.Email,
		Name:    req.Name,
		Phone:   req.Phone,
		Message: req.Message,
	})
	if err != nil {
		writeServiceError(w, "update contact", err)
		return
	}
	slog.Info("contact updated", "id", c.ID)

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

type deleteRequest struct {
	Email string `json:"email"`
}

// Delete handles DELETE /admin/delete. The email comes from the JSON body,
// or from ?email= when the body is empty.
func (h *ContactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if r.ContentLength == 0 && r.URL.Query().Get("email") != "" {
		req.Email = r.URL.Query().Get("email")
	} else if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	if err := h.contactService.Delete(r.Context(), req.Email); err != nil {
		writeServiceError(w, "delete contact", err)
		return
	}
	slog.Info("contact deleted", "token_source", tokenSource(r))

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// Clear handles DELETE /admin/clear.
func (h *ContactHandler) Clear(w http.ResponseWriter, r *http.Request) {
	n, err := h.contactService.Clear(r.Context())
	if err != nil {
		writeServiceError(w, "clear contacts", err)
		return
	}
	slog.Warn("contacts cleared", "count", n, "token_source", tokenSource(r))

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "count_deleted": n})
}

type statsResponse struct {
	Success bool `json:"success"`
	*model.ContactStats
}

// Stats handles GET /admin/stats.
func (h *ContactHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.contactService.Stats(r.Context())
	if err != nil {
		writeServiceError(w, "contact stats", err)
		return
	}
	if stats.ByStatus == nil {
		stats.ByStatus = map[string]int64{}
	}
	writeJSON(w, http.StatusOK, statsResponse{Success: true, ContactStats: stats})
}

// Export handles GET /admin/export. The CSV is built in memory first so a
// storage failure can still be reported as JSON.
func (h *ContactHandler) Export(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.contactService.Export(r.Context(), &buf); err != nil {
		writeServiceError(w, "export contacts", err)
		return
	}

	filename := fmt.Sprintf("contactos_%s.csv", time.Now().UTC().Format("20060102_150405"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("export contacts: write failed", "error", err)
	}
}

// submitRequest is the JSON body for POST /api/contacto.
type submitRequest struct {
	Name    string `json:"nombre"`
	Email   string `json:"email"`
	Phone   string `json:"telefono"`
	Message string `json:"mensaje"`
}

// Submit handles POST /api/contacto, the public contact form.
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	c, err := h.contactService.Create(r.Context(), model.ContactInput{
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Message:   req.Message,
		Origin:    model.OriginPublic,
		IPAddress: clientIP(r, defaultTrustedProxies),
		UserAgent: strings.TrimSpace(r.UserAgent()),
	})
	if err != nil {
		writeServiceError(w, "submit contact", err)
		return
	}
	h.metrics.ContactCreated(model.OriginPublic)

	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "id": c.ID})
}

func tokenSource(r *http.Request) string {
	s, _ := auth.TokenSourceFromContext(r.Context())
	return s
}
