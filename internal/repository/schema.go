package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/sync/singleflight"
)

const contactTable = "contactos"

const tableExistsSQL = `SELECT EXISTS (
	SELECT 1 FROM information_schema.tables
	WHERE table_schema = current_schema() AND table_name = $1
)`

const columnsSQL = `SELECT column_name FROM information_schema.columns
	WHERE table_schema = current_schema() AND table_name = $1`

const createTableSQL = `CREATE TABLE IF NOT EXISTS contactos (
	id                  SERIAL PRIMARY KEY,
	nombre              TEXT NOT NULL,
	email               TEXT NOT NULL,
	telefono            TEXT NOT NULL DEFAULT '',
	mensaje             TEXT NOT NULL DEFAULT '',
	estado              TEXT NOT NULL DEFAULT 'activo',
	ip_address          TEXT NOT NULL DEFAULT '',
	user_agent          TEXT NOT NULL DEFAULT '',
	fecha_creacion      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	fecha_actualizacion TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// Columns a legacy table may lack, in the order they are added.
// fecha_creacion precedes fecha_actualizacion so backfilled rows keep
// fecha_actualizacion >= fecha_creacion.
var migratedColumns = []struct {
	name string
	ddl  string
}{
	{"telefono", "TEXT NOT NULL DEFAULT ''"},
	{"mensaje", "TEXT NOT NULL DEFAULT ''"},
	{"fecha_creacion", "TIMESTAMPTZ NOT NULL DEFAULT NOW()"},
	{"fecha_actualizacion", "TIMESTAMPTZ NOT NULL DEFAULT NOW()"},
	{"estado", "TEXT NOT NULL DEFAULT 'activo'"},
	{"ip_address", "TEXT NOT NULL DEFAULT ''"},
	{"user_agent", "TEXT NOT NULL DEFAULT ''"},
}

var indexSQL = []string{
	`CREATE INDEX IF NOT EXISTS idx_contactos_fecha_creacion ON contactos (fecha_creacion DESC)`,
}

// Legacy tables had no uniqueness on email, so this one can fail on
// existing data. It is created after the plain indexes.
const uniqueEmailIndexSQL = `CREATE UNIQUE INDEX IF NOT EXISTS idx_contactos_email_lower ON contactos (lower(email))`

const duplicateEmailsSQL = `SELECT lower(email) FROM contactos
	GROUP BY 1 HAVING COUNT(*) > 1 ORDER BY 1 LIMIT 20`

// How long Ready keeps answering with the last failure before it checks again.
const schemaRetryBackoff = 30 * time.Second

// SchemaManager guarantees the contactos table exists with the expected
// columns and indexes. It only ever adds; nothing is dropped or renamed.
type SchemaManager struct {
	db      Querier
	flight  singleflight.Group
	backoff time.Duration
	now     func() time.Time

	mu          sync.Mutex
	ready       bool
	lastErr     error
	lastAttempt time.Time
	emailUnique bool
}

// NewSchemaManager creates a SchemaManager over db.
func NewSchemaManager(db Querier) *SchemaManager {
	return &SchemaManager{db: db, backoff: schemaRetryBackoff, now: time.Now}
}

// EnsureSchema creates the table when absent, otherwise adds any missing
// column, then makes sure the indexes exist. It is idempotent.
// Every failure wraps ErrSchemaUnavailable.
func (m *SchemaManager) EnsureSchema(ctx context.Context) error {
	var exists bool
	if err := m.db.QueryRow(ctx, tableExistsSQL, contactTable).Scan(&exists); err != nil {
		return fmt.Errorf("%w: check table: %v", ErrSchemaUnavailable, err)
	}

	if !exists {
		if _, err := m.db.Exec(ctx, createTableSQL); err != nil {
			return fmt.Errorf("%w: create table: %v", ErrSchemaUnavailable, err)
		}
		slog.Info("contact table created", "table", contactTable)
	} else {
		present, err := m.columns(ctx)
		if err != nil {
			return fmt.Errorf("%w: list columns: %v", ErrSchemaUnavailable, err)
		}
		for _, col := range migratedColumns {
			if present[col.name] {
				continue
			}
			stmt := fmt.Sprintf(`ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s`, contactTable, col.name, col.ddl)
			if _, err := m.db.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("%w: add column %s: %v", ErrSchemaUnavailable, col.name, err)
			}
			slog.Info("contact column added", "table", contactTable, "column", col.name)
		}
	}

	for _, stmt := range indexSQL {
		if _, err := m.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%w: create index: %v", ErrSchemaUnavailable, err)
		}
	}
	return m.ensureUniqueEmail(ctx)
}

// ensureUniqueEmail creates the case-insensitive unique index on email.
// When existing rows already share an address the index cannot be built;
// that is logged as an error naming the addresses and the schema is still
// considered usable, with duplicates caught only by the service pre-check.
func (m *SchemaManager) ensureUniqueEmail(ctx context.Context) error {
	_, err := m.db.Exec(ctx, uniqueEmailIndexSQL)
	var pgErr *pgconn.PgError
	switch {
	case err == nil:
		m.setEmailUnique(true)
		return nil
	case !errors.As(err, &pgErr) || pgErr.Code != codeUniqueViolation:
		return fmt.Errorf("%w: create unique email index: %v", ErrSchemaUnavailable, err)
	}

	m.setEmailUnique(false)
	dups, lookupErr := m.duplicateEmails(ctx)
	args := []any{"index", "idx_contactos_email_lower", "duplicates", dups}
	if lookupErr != nil {
		args = append(args, "lookup_error", lookupErr)
	}
	slog.Error("email uniqueness not enforced: stored contacts share an address; merge or delete them and run migrate", args...)
	return nil
}

func (m *SchemaManager) duplicateEmails(ctx context.Context) ([]string, error) {
	rows, err := m.db.Query(ctx, duplicateEmailsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return emails, err
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}

func (m *SchemaManager) setEmailUnique(v bool) {
	m.mu.Lock()
	m.emailUnique = v
	m.mu.Unlock()
}

// EmailUnique reports whether the last schema check left the unique email
// index in place.
func (m *SchemaManager) EmailUnique() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.emailUnique
}

// Missing reports what EnsureSchema would change without changing anything:
// whether the table is absent, and otherwise which columns are missing.
func (m *SchemaManager) Missing(ctx context.Context) (tableMissing bool, columns []string, err error) {
	var exists bool
	if err := m.db.QueryRow(ctx, tableExistsSQL, contactTable).Scan(&exists); err != nil {
		return false, nil, fmt.Errorf("%w: check table: %v", ErrSchemaUnavailable, err)
	}
	if !exists {
		return true, nil, nil
	}
	present, err := m.columns(ctx)
	if err != nil {
		return false, nil, fmt.Errorf("%w: list columns: %v", ErrSchemaUnavailable, err)
	}
	for _, col := range migratedColumns {
		if !present[col.name] {
			columns = append(columns, col.name)
		}
	}
	return false, columns, nil
}

func (m *SchemaManager) columns(ctx context.Context) (map[string]bool, error) {
	rows, err := m.db.Query(ctx, columnsSQL, contactTable)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	present := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		present[name] = true
	}
	return present, rows.Err()
}

// Ready runs EnsureSchema until it first succeeds. A failure is logged and
// returned; callers on the request path proceed anyway and let the
// statement that needs the missing piece fail on its own.
//
// Concurrent callers share one in-flight check. After a failure, calls
// within the backoff window return that failure without touching the
// database.
func (m *SchemaManager) Ready(ctx context.Context) error {
	m.mu.Lock()
	if m.ready {
		m.mu.Unlock()
		return nil
	}
	if m.lastErr != nil && m.now().Sub(m.lastAttempt) < m.backoff {
		err := m.lastErr
		m.mu.Unlock()
		return err
	}
	m.mu.Unlock()

	_, err, _ := m.flight.Do("ensure", func() (any, error) {
		err := m.EnsureSchema(ctx)
		m.mu.Lock()
		m.lastAttempt = m.now()
		m.lastErr = err
		m.ready = err == nil
		m.mu.Unlock()
		if err != nil {
			slog.Warn("schema check failed; continuing", "error", err, "retry_in", m.backoff)
		}
		return nil, err
	})
	return err
}

// Invalidate forces the next Ready call to re-run EnsureSchema, even inside
// a backoff window.
func (m *SchemaManager) Invalidate() {
	m.mu.Lock()
	m.ready = false
	m.lastErr = nil
	m.mu.Unlock()
}

// IsReady reports whether the schema has been verified since the last Invalidate.
func (m *SchemaManager) IsReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready
}
