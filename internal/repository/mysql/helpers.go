package mysql

import (
	"context"
	"database/sql"
)

// requireRow turns a zero-row UPDATE into ErrNotFound.  MySQL reports
// zero affected rows both for a missing row and for an update that
// changes nothing, so existence is re-checked with probe.
func requireRow(ctx context.Context, db DBTX, res sql.Result, probe string, id uint64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var one int
	return translate(db.QueryRowContext(ctx, probe, id).Scan(&one))
}

func deleteByID(ctx context.Context, db DBTX, q string, id uint64) error {
	res, err := db.ExecContext(ctx, q, id)
	if err != nil {
		return translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
