package repository

import (
	"context"
	"time"

	"github.com/artarona/Administrador/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB reports whether the database is reachable.
type DB interface {
	Ping(ctx context.Context) error
}

// Querier is the subset of *pgxpool.Pool the repository uses. Each call
// checks a connection out of the pool and returns it when the statement
// (or the returned rows) completes.
type Querier interface {
	DB
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ContactRepository defines the persistence interface for contacts.
// It is defined here (in repository) to avoid an import cycle with service.
type ContactRepository interface {
	List(ctx context.Context) ([]*model.Contact, error)
	Create(ctx context.Context, c *model.Contact) error
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Update(ctx context.Context, email string, name *string, phone, message string, now time.Time) (*model.Contact, error)
	Delete(ctx context.Context, email string) error
	Clear(ctx context.Context) (int64, error)
	Count(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)
}
