package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Unavailable is the Querier wired in when no database is configured.
// Every call fails with ErrStorageUnavailable, so the service runs degraded:
// health reports the store as disconnected, lists come back empty and
// writes fail.
type Unavailable struct{}

var _ Querier = Unavailable{}

func (Unavailable) Ping(context.Context) error {
	return ErrStorageUnavailable
}

func (Unavailable) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, ErrStorageUnavailable
}

func (Unavailable) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, ErrStorageUnavailable
}

func (Unavailable) QueryRow(context.Context, string, ...any) pgx.Row {
	return errRow{err: ErrStorageUnavailable}
}

type errRow struct {
	err error
}

func (r errRow) Scan(...any) error {
	return r.err
}
