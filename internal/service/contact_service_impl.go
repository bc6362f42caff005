package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/artarona/Administrador/internal/model"
	"github.com/artarona/Administrador/internal/repository"
)

// Placeholder stored when the request carries no address or user agent.
const unknownOrigin = "unknown"

// createFields is the normalized create payload checked by the validator.
type createFields struct {
	Name    string `json:"nombre" validate:"required,max=200"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Phone   string `json:"telefono" validate:"max=50"`
	Message string `json:"mensaje" validate:"max=5000"`
	Origin  string `json:"origen" validate:"oneof=admin public"`
}

// updateFields is the normalized update payload checked by the validator.
// The lookup email is only required to be non-empty so legacy rows stay reachable.
type updateFields struct {
	Email   string `json:"email" validate:"required,max=254"`
	Phone   string `json:"telefono" validate:"max=50"`
	Message string `json:"mensaje" validate:"max=5000"`
}

// contactServiceImpl is the production implementation of ContactService.
type contactServiceImpl struct {
	repo repository.ContactRepository
	now  func() time.Time
}

// NewContactService creates a ContactService backed by the given repository.
func NewContactService(repo repository.ContactRepository) ContactService {
	return &contactServiceImpl{repo: repo, now: time.Now}
}

// NormalizeEmail trims surrounding whitespace and lower-cases the address.
// Every lookup and insert goes through it.
func NormalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

// timestamp returns the current time at PostgreSQL precision so that a
// stored value compares equal to the one handed back to the caller.
func (s *contactServiceImpl) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// List returns all contacts. A storage outage is retried once and then
// degrades to an empty list.
func (s *contactServiceImpl) List(ctx context.Context) ([]*model.Contact, error) {
	contacts, err := s.repo.List(ctx)
	if errors.Is(err, repository.ErrStorageUnavailable) {
		slog.Warn("list contacts: storage unavailable, retrying", "error", err)
		contacts, err = s.repo.List(ctx)
		if errors.Is(err, repository.ErrStorageUnavailable) {
			slog.Warn("list contacts: storage still unavailable, returning empty list", "error", err)
			return []*model.Contact{}, nil
		}
	}
	if err != nil {
		return nil, err
	}
	if contacts == nil {
		contacts = []*model.Contact{}
	}
	return contacts, nil
}

// Create validates in, applies the status for its origin and stamps both
// timestamps with the same instant before inserting.
func (s *contactServiceImpl) Create(ctx context.Context, in model.ContactInput) (*model.Contact, error) {
	f := createFields{
		Name:    strings.TrimSpace(in.Name),
		Email:   NormalizeEmail(in.Email),
		Phone:   strings.TrimSpace(in.Phone),
		Message: strings.TrimSpace(in.Message),
		Origin:  string(in.Origin),
	}
	if err := validateStruct(f); err != nil {
		return nil, err
	}
	if in.Origin == model.OriginPublic && f.Message == "" {
		return nil, &ValidationError{Field: "mensaje", Reason: "es requerido"}
	}

	status := model.StatusActive
	if in.Origin == model.OriginPublic {
		status = model.StatusPending
	}
	now := s.timestamp()
	c := &model.Contact{
		Name:      f.Name,
		Email:     f.Email,
		Phone:     f.Phone,
		Message:   f.Message,
		Status:    status,
		IPAddress: orPlaceholder(in.IPAddress),
		UserAgent: orPlaceholder(in.UserAgent),
		CreatedAt: now,
		UpdatedAt: now,
	}

	// The pre-check only saves a round trip; the unique index decides.
	exists, err := s.repo.ExistsByEmail(ctx, c.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("create contact: %w", repository.ErrDuplicateEmail)
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func orPlaceholder(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return unknownOrigin
	}
	return s
}

// Update replaces the mutable fields of the contact with in.Email.
func (s *contactServiceImpl) Update(ctx context.Context, in model.UpdateInput) (*model.Contact, error) {
	f := updateFields{
		Email:   NormalizeEmail(in.Email),
		Phone:   strings.TrimSpace(in.Phone),
		Message: strings.TrimSpace(in.Message),
	}
	if err := validateStruct(f); err != nil {
		return nil, err
	}

	var name *string
	if in.Name != nil {
		n := strings.TrimSpace(*in.Name)
		if n == "" {
			return nil, &ValidationError{Field: "nombre", Reason: "es requerido"}
		}
		if len([]rune(n)) > 200 {
			return nil, &ValidationError{Field: "nombre", Reason: "supera los 200 caracteres"}
		}
		name = &n
	}

	return s.repo.Update(ctx, f.Email, name, f.Phone, f.Message, s.timestamp())
}

// Delete removes the contact with the given email.
func (s *contactServiceImpl) Delete(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return &ValidationError{Field: "email", Reason: "es requerido"}
	}
	return s.repo.Delete(ctx, email)
}

// Clear removes every contact. Zero is a valid count.
func (s *contactServiceImpl) Clear(ctx context.Context) (int64, error) {
	return s.repo.Clear(ctx)
}

// Count returns the number of stored contacts.
func (s *contactServiceImpl) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

// Stats returns the total and the per-status breakdown.
func (s *contactServiceImpl) Stats(ctx context.Context) (*model.ContactStats, error) {
	byStatus, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	stats := &model.ContactStats{ByStatus: byStatus}
	for _, n := range byStatus {
		stats.Total += n
	}
	return stats, nil
}

var exportHeader = []string{
	"id", "nombre", "email", "telefono", "mensaje", "estado",
	"ip_address", "user_agent", "fecha_creacion", "fecha_actualizacion",
}

// Export writes every contact to w as CSV. Unlike List it does not degrade
// on a storage outage.
func (s *contactServiceImpl) Export(ctx context.Context, w io.Writer) error {
	contacts, err := s.repo.List(ctx)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for _, c := range contacts {
		record := []string{
			strconv.FormatInt(c.ID, 10),
			c.Name,
			c.Email,
			c.Phone,
			c.Message,
			c.Status,
			c.IPAddress,
			c.UserAgent,
			formatTime(c.CreatedAt),
			formatTime(c.UpdatedAt),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
