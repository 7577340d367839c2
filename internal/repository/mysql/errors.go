// Package mysql implements the repository interfaces on MySQL through
// database/sql.
package mysql

import (
	"context"
	"database/sql"
	"errors"

	driver "github.com/go-sql-driver/mysql"

	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

var (
	ErrNotFound         = repository.ErrNotFound
	ErrDuplicate        = repository.ErrDuplicate
	ErrConflict         = repository.ErrConflict
	ErrMissingReference = repository.ErrMissingReference
)

const (
	mysqlDuplicateEntry  = 1062
	mysqlRowIsReferenced = 1451
	mysqlNoReferencedRow = 1452
)

// translate maps driver errors onto the repository sentinels.  Unknown
// errors are returned unchanged.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var me *driver.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlDuplicateEntry:
			return ErrDuplicate
		case mysqlRowIsReferenced:
			return ErrConflict
		case mysqlNoReferencedRow:
			return ErrMissingReference
		}
	}
	return err
}

// DBTX is satisfied by both *sql.DB and *sql.Tx so queries can run inside
// or outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
