package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
)

//go:embed schema.sql
var schema string

// Statements splits the embedded schema into individual statements.  The
// driver is not opened with multiStatements, so each one is sent alone.
func Statements() []string {
	var out []string
	for _, stmt := range strings.Split(schema, ";") {
		if s := strings.TrimSpace(stmt); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Migrate creates any missing tables.  Every statement is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range Statements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
