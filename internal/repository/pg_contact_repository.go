package repository

import (
	"context"
	"errors"
	"time"

	"github.com/artarona/Administrador/internal/model"
	"github.com/jackc/pgx/v5"
)

// Legacy rows may hold NULL in the optional text columns.
const contactColumns = `id, nombre, email, COALESCE(telefono, ''), COALESCE(mensaje, ''),
	COALESCE(estado, ''), COALESCE(ip_address, ''), COALESCE(user_agent, ''),
	fecha_creacion, fecha_actualizacion`

// PgContactRepository is the PostgreSQL implementation of ContactRepository.
type PgContactRepository struct {
	db     Querier
	schema *SchemaManager
}

// NewPgContactRepository creates a PgContactRepository backed by db, which is
// normally a *pgxpool.Pool. The schema is verified lazily on first use.
func NewPgContactRepository(db Querier) *PgContactRepository {
	return &PgContactRepository{db: db, schema: NewSchemaManager(db)}
}

// Ensure PgContactRepository implements ContactRepository at compile time.
var _ ContactRepository = (*PgContactRepository)(nil)

// Schema returns the manager guarding this repository's table.
func (r *PgContactRepository) Schema() *SchemaManager {
	return r.schema
}

// prepare ensures the schema before a statement. Failures were already
// logged by Ready and are deliberately not returned.
func (r *PgContactRepository) prepare(ctx context.Context) {
	_ = r.schema.Ready(ctx)
}

// fail classifies err and schedules a schema re-check when it reports drift.
func (r *PgContactRepository) fail(op string, err error) error {
	err = classify(op, err)
	if errors.Is(err, ErrSchemaUnavailable) {
		r.schema.Invalidate()
	}
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContact(row rowScanner) (*model.Contact, error) {
	var c model.Contact
	var created, updated *time.Time
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Message,
		&c.Status, &c.IPAddress, &c.UserAgent, &created, &updated); err != nil {
		return nil, err
	}
	if created != nil {
		c.CreatedAt = *created
	}
	if updated != nil {
		c.UpdatedAt = *updated
	}
	return &c, nil
}

// List returns every contact, newest first.
func (r *PgContactRepository) List(ctx context.Context) ([]*model.Contact, error) {
	r.prepare(ctx)
	rows, err := r.db.Query(ctx,
		`SELECT `+contactColumns+` FROM contactos ORDER BY fecha_creacion DESC NULLS LAST, id DESC`)
	if err != nil {
		return nil, r.fail("list contacts", err)
	}
	defer rows.Close()

	var contacts []*model.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, r.fail("scan contact", err)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, r.fail("list contacts", err)
	}
	return contacts, nil
}

// Create inserts c and populates c.ID from the RETURNING clause.
// The unique index on lower(email) is the authority on duplicates.
func (r *PgContactRepository) Create(ctx context.Context, c *model.Contact) error {
	r.prepare(ctx)
	err := r.db.QueryRow(ctx,
		`INSERT INTO contactos (nombre, email, telefono, mensaje, estado, ip_address, user_agent, fecha_creacion, fecha_actualizacion)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		c.Name, c.Email, c.Phone, c.Message, c.Status, c.IPAddress, c.UserAgent, c.CreatedAt, c.UpdatedAt,
	).Scan(&c.ID)
	if err != nil {
		return r.fail("create contact", err)
	}
	return nil
}

// ExistsByEmail reports whether a contact with the normalized email exists.
func (r *PgContactRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	r.prepare(ctx)
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM contactos WHERE lower(email) = $1)`, email,
	).Scan(&exists)
	if err != nil {
		return false, r.fail("check email", err)
	}
	return exists, nil
}

// Update replaces nombre (unless name is nil), telefono and mensaje of the
// contact with the given email and refreshes fecha_actualizacion.
// fecha_actualizacion is kept strictly after fecha_creacion.
func (r *PgContactRepository) Update(ctx context.Context, email string, name *string, phone, message string, now time.Time) (*model.Contact, error) {
	r.prepare(ctx)
	row := r.db.QueryRow(ctx,
		`UPDATE contactos
		 SET nombre = COALESCE($2, nombre),
		     telefono = $3,
		     mensaje = $4,
		     fecha_actualizacion = GREATEST($5::timestamptz, fecha_creacion + INTERVAL '1 microsecond')
		 WHERE lower(email) = $1
		 RETURNING `+contactColumns,
		email, name, phone, message, now,
	)
	c, err := scanContact(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, r.fail("update contact", err)
	}
	return c, nil
}

// Delete removes the contact with the given email.
func (r *PgContactRepository) Delete(ctx context.Context, email string) error {
	r.prepare(ctx)
	tag, err := r.db.Exec(ctx, `DELETE FROM contactos WHERE lower(email) = $1`, email)
	if err != nil {
		return r.fail("delete contact", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Clear removes every contact and returns how many rows the statement deleted.
func (r *PgContactRepository) Clear(ctx context.Context) (int64, error) {
	r.prepare(ctx)
	tag, err := r.db.Exec(ctx, `DELETE FROM contactos`)
	if err != nil {
		return 0, r.fail("clear contacts", err)
	}
	return tag.RowsAffected(), nil
}

// Count returns the number of stored contacts.
func (r *PgContactRepository) Count(ctx context.Context) (int64, error) {
	r.prepare(ctx)
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM contactos`).Scan(&n); err != nil {
		return 0, r.fail("count contacts", err)
	}
	return n, nil
}

// CountByStatus returns the number of contacts per estado.
func (r *PgContactRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	r.prepare(ctx)
	rows, err := r.db.Query(ctx,
		`SELECT COALESCE(estado, ''), COUNT(*) FROM contactos GROUP BY 1 ORDER BY 1`)
	if err != nil {
		return nil, r.fail("count by status", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, r.fail("count by status", err)
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, r.fail("count by status", err)
	}
	return counts, nil
}
