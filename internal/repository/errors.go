package repository

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a requested record does not exist in the database.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEmail is returned when the email is already stored.
	ErrDuplicateEmail = errors.New("duplicate email")

	// ErrStorageUnavailable is returned when no usable connection could be obtained.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrSchemaUnavailable is returned when the table or a column is missing
	// or the schema check itself failed.
	ErrSchemaUnavailable = errors.New("schema unavailable")

	// ErrInternal wraps any other storage failure.
	ErrInternal = errors.New("internal storage error")
)

// SQLSTATE codes the repository distinguishes.
const (
	codeUniqueViolation  = "23505"
	codeUndefinedTable   = "42P01"
	codeUndefinedColumn  = "42703"
	codeQueryCanceled    = "57014"
	codeTooManyConns     = "53300"
	classConnectionError = "08"
	classOperatorAbort   = "57P"
)

// classify maps a driver error onto the repository error taxonomy.
// The result wraps exactly one of the sentinels above.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == codeUniqueViolation:
			return fmt.Errorf("%s: %w", op, ErrDuplicateEmail)
		case pgErr.Code == codeUndefinedTable, pgErr.Code == codeUndefinedColumn:
			return fmt.Errorf("%s: %w: %s", op, ErrSchemaUnavailable, pgErr.Message)
		case pgErr.Code == codeQueryCanceled, pgErr.Code == codeTooManyConns,
			strings.HasPrefix(pgErr.Code, classConnectionError),
			strings.HasPrefix(pgErr.Code, classOperatorAbort):
			return fmt.Errorf("%s: %w: %s", op, ErrStorageUnavailable, pgErr.Message)
		}
		return fmt.Errorf("%s: %w: %s (%s)", op, ErrInternal, pgErr.Message, pgErr.Code)
	}
	if isConnectionError(err) {
		return fmt.Errorf("%s: %w: %v", op, ErrStorageUnavailable, err)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrInternal, err)
}

func isConnectionError(err error) bool {
	if errors.Is(err, ErrStorageUnavailable) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	if pgconn.Timeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
