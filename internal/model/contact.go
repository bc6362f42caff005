package model

import (
	"encoding/json"
	"time"
)

// Contact status values.
const (
	StatusActive  = "activo"
	StatusPending = "pendiente"
)

// Origin identifies which surface created a contact.
type Origin string

const (
	OriginAdmin  Origin = "admin"
	OriginPublic Origin = "public"
)

// Contact is a row of the contactos table.
type Contact struct {
	ID        int64     `json:"id"`
	Name      string    `json:"nombre"`
	Email     string    `json:"email"`
	Phone     string    `json:"telefono"`
	Message   string    `json:"mensaje"`
	Status    string    `json:"estado"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `json:"fecha_creacion"`
	UpdatedAt time.Time `json:"fecha_actualizacion"`
}

// MarshalJSON writes timestamps as RFC 3339 strings and a zero time as "",
// which is what existing admin clients expect instead of null.
func (c Contact) MarshalJSON() ([]byte, error) {
	type alias Contact
	return json.Marshal(struct {
		alias
		CreatedAt string `json:"fecha_creacion"`
		UpdatedAt string `json:"fecha_actualizacion"`
	}{
		alias:     alias(c),
		CreatedAt: formatTimestamp(c.CreatedAt),
		UpdatedAt: formatTimestamp(c.UpdatedAt),
	})
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// ContactInput carries the fields accepted when creating a contact.
// IPAddress and UserAgent are captured from the request, best-effort.
type ContactInput struct {
	Name      string
	Email     string
	Phone     string
	Message   string
	Origin    Origin
	IPAddress string
	UserAgent string
}

// UpdateInput replaces the mutable fields of the contact identified by Email.
// A nil Name keeps the stored name.
type UpdateInput struct {
	Email   string
	Name    *string
	Phone   string
	Message string
}

// ContactStats summarizes the table for the admin panel.
type ContactStats struct {
	Total    int64            `json:"total"`
	ByStatus map[string]int64 `json:"por_estado"`
}
