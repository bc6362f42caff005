package service

import (
	"context"
	"io"

	"github.com/artarona/Administrador/internal/model"
)

// ContactService defines the business logic for the contact list.
type ContactService interface {
	// List returns every contact, newest first. When the store stays
	// unreachable after one retry it returns an empty list and no error.
	List(ctx context.Context) ([]*model.Contact, error)

	// Create validates and stores a new contact. Status and timestamps are
	// set by the implementation.
	Create(ctx context.Context, in model.ContactInput) (*model.Contact, error)

	// Update replaces name, phone and message of the contact with in.Email.
	Update(ctx context.Context, in model.UpdateInput) (*model.Contact, error)

	// Delete removes the contact with the given email.
	Delete(ctx context.Context, email string) error

	// Clear removes every contact and returns how many were removed.
	Clear(ctx context.Context) (int64, error)

	Count(ctx context.Context) (int64, error)
	Stats(ctx context.Context) (*model.ContactStats, error)

	// Export writes all contacts as CSV, newest first.
	Export(ctx context.Context, w io.Writer) error
}
