package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/artarona/Administrador/internal/model"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
)

var contactCols = []string{
	"id", "nombre", "email", "telefono", "mensaje",
	"estado", "ip_address", "user_agent", "fecha_creacion", "fecha_actualizacion",
}

// newReadyRepo returns a repository whose schema is already verified so the
// mock only sees the statement under test.
func newReadyRepo(t *testing.T) (*PgContactRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock := newMock(t)
	repo := NewPgContactRepository(mock)
	repo.schema.ready = true
	return repo, mock
}

// ---------------------------------------------------------------------------
// List
// ---------------------------------------------------------------------------

func TestPgContactRepository_List_ScansRows(t *testing.T) {
	repo, mock := newReadyRepo(t)
	newer := time.Date(2025, 5, 2, 12, 0, 0, 0, time.UTC)
	older := newer.Add(-time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("FROM contactos ORDER BY fecha_creacion DESC")).
		WillReturnRows(pgxmock.NewRows(contactCols).
			AddRow(int64(2), "Ana", "ana@x.com", "555", "hi", "activo", "10.0.0.1", "curl", &newer, &newer).
			AddRow(int64(1), "Luis", "luis@x.com", "", "", "pendiente", "", "", &older, &older))

	got, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 contacts, got %d", len(got))
	}
	if got[0].ID != 2 || got[0].Name != "Ana" || got[0].Phone != "555" || !got[0].CreatedAt.Equal(newer) {
		t.Errorf("unexpected first contact: %+v", got[0])
	}
	if got[1].Status != model.StatusPending {
		t.Errorf("expected pendiente, got %q", got[1].Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPgContactRepository_List_NullTimestampsAreZero(t *testing.T) {
	repo, mock := newReadyRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM contactos ORDER BY")).
		WillReturnRows(pgxmock.NewRows(contactCols).
			AddRow(int64(1), "Old", "old@x.com", "", "", "", "", "", nil, nil))

	got, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !got[0].CreatedAt.IsZero() || !got[0].UpdatedAt.IsZero() {
		t.Errorf("expected zero timestamps, got %v / %v", got[0].CreatedAt, got[0].UpdatedAt)
	}
}

func TestPgContactRepository_List_ConnectionError(t *testing.T) {
	repo, mock := newReadyRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM contactos")).
		WillReturnError(context.DeadlineExceeded)

	_, err := repo.List(context.Background())
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}

func TestPgContactRepository_List_UndefinedColumnInvalidatesSchema(t *testing.T) {
	repo, mock := newReadyRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM contactos")).
		WillReturnError(&pgconn.PgError{Code: "42703", Message: `column "estado" does not exist`})

	_, err := repo.List(context.Background())
	if !errors.Is(err, ErrSchemaUnavailable) {
		t.Fatalf("expected ErrSchemaUnavailable, got %v", err)
	}
	if repo.Schema().IsReady() {
		t.Error("expected schema to be invalidated after drift")
	}
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestPgContactRepository_Create_SetsID(t *testing.T) {
	repo, mock := newReadyRepo(t)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := &model.Contact{
		Name: "Ana", Email: "ana@x.com", Phone: "555", Message: "hi",
		Status: model.StatusActive, IPAddress: "1.2.3.4", UserAgent: "test",
		CreatedAt: now, UpdatedAt: now,
	}

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO contactos")).
		WithArgs("Ana", "ana@x.com", "555", "hi", "activo", "1.2.3.4", "test", now, now).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))

	if err := repo.Create(context.Background(), c); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.ID != 42 {
		t.Errorf("expected ID=42, got %d", c.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPgContactRepository_Create_UniqueViolation(t *testing.T) {
	repo, mock := newReadyRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO contactos")).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err := repo.Create(context.Background(), &model.Contact{Name: "A", Email: "a@x.com"})
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestPgContactRepository_Create_RunsSchemaFirst(t *testing.T) {
	mock := newMock(t)
	repo := NewPgContactRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.tables")).
		WithArgs("contactos").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS contactos")).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	expectIndexes(mock)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO contactos")).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(1)))

	if err := repo.Create(context.Background(), &model.Contact{Name: "A", Email: "a@x.com"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPgContactRepository_Create_ProceedsWhenSchemaCheckFails(t *testing.T) {
	mock := newMock(t)
	repo := NewPgContactRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.tables")).
		WillReturnError(errors.New("permission denied"))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO contactos")).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(9)))

	c := &model.Contact{Name: "A", Email: "a@x.com"}
	if err := repo.Create(context.Background(), c); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.ID != 9 {
		t.Errorf("expected ID=9, got %d", c.ID)
	}
}

// ---------------------------------------------------------------------------
// ExistsByEmail
// ---------------------------------------------------------------------------

func TestPgContactRepository_ExistsByEmail(t *testing.T) {
	repo, mock := newReadyRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE lower(email) = $1")).
		WithArgs("ana@x.com").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.ExistsByEmail(context.Background(), "ana@x.com")
	if err != nil {
		t.Fatalf("ExistsByEmail: %v", err)
	}
	if !ok {
		t.Error("expected true")
	}
}

// ---------------------------------------------------------------------------
// Update
// ---------------------------------------------------------------------------

func TestPgContactRepository_Update_ReturnsRow(t *testing.T) {
	repo, mock := newReadyRepo(t)
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	updated := created.Add(time.Minute)
	name := "Ana B"

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE contactos")).
		WithArgs("ana@x.com", pgxmock.AnyArg(), "556", "bye", updated).
		WillReturnRows(pgxmock.NewRows(contactCols).
			AddRow(int64(1), "Ana B", "ana@x.com", "556", "bye", "activo", "", "", &created, &updated))

	c, err := repo.Update(context.Background(), "ana@x.com", &name, "556", "bye", updated)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if c.Name != "Ana B" || c.Email != "ana@x.com" || !c.UpdatedAt.After(c.CreatedAt) {
		t.Errorf("unexpected contact: %+v", c)
	}
}

func TestPgContactRepository_Update_NotFound(t *testing.T) {
	repo, mock := newReadyRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE contactos")).
		WillReturnRows(pgxmock.NewRows(contactCols))

	_, err := repo.Update(context.Background(), "nobody@x.com", nil, "", "", time.Now())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Delete / Clear
// ---------------------------------------------------------------------------

func TestPgContactRepository_Delete(t *testing.T) {
	repo, mock := newReadyRepo(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM contactos WHERE lower(email) = $1")).
		WithArgs("ana@x.com").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM contactos WHERE lower(email) = $1")).
		WithArgs("ana@x.com").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	ctx := context.Background()
	if err := repo.Delete(ctx, "ana@x.com"); err != nil {
		t.Fatalf("first Delete: %v", err)
	}
	if err := repo.Delete(ctx, "ana@x.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second Delete: expected ErrNotFound, got %v", err)
	}
}

func TestPgContactRepository_Clear_ReturnsRowsAffected(t *testing.T) {
	repo, mock := newReadyRepo(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM contactos")).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	n, err := repo.Clear(context.Background())
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3, got %d", n)
	}
}

func TestPgContactRepository_Clear_EmptyTable(t *testing.T) {
	repo, mock := newReadyRepo(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM contactos")).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	n, err := repo.Clear(context.Background())
	if err != nil {
		t.Fatalf("Clear on empty table should succeed, got %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0, got %d", n)
	}
}

// ---------------------------------------------------------------------------
// Count / CountByStatus
// ---------------------------------------------------------------------------

func TestPgContactRepository_Counts(t *testing.T) {
	repo, mock := newReadyRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM contactos")).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(5)))
	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY 1")).
		WillReturnRows(pgxmock.NewRows([]string{"estado", "count"}).
			AddRow("activo", int64(3)).
			AddRow("pendiente", int64(2)))

	ctx := context.Background()
	n, err := repo.Count(ctx)
	if err != nil || n != 5 {
		t.Fatalf("Count = %d, %v", n, err)
	}
	byStatus, err := repo.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if byStatus["activo"] != 3 || byStatus["pendiente"] != 2 {
		t.Errorf("unexpected counts: %v", byStatus)
	}
}
