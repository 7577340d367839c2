package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/cinema-ticketing/internal/config"
)

// DSN builds the MySQL DSN for cfg.  parseTime maps DATETIME columns to
// time.Time and loc=UTC keeps timestamps consistent across hosts.
func DSN(cfg config.Config) string {
	mc := mysql.NewConfig()
	mc.User = cfg.DBUser
	mc.Passwd = cfg.DBPass
	mc.Net = "tcp"
	mc.Addr = cfg.DBHost + ":" + cfg.DBPort
	mc.DBName = cfg.DBName
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}

// Open connects to MySQL and verifies the connection.
func Open(cfg config.Config) (*sql.DB, error) {
	db, err := sql.Open("mysql", DSN(cfg))
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// WithTx runs fn inside a transaction.  The transaction is committed when
// fn returns nil and rolled back otherwise, including on panic.  opts may
// be nil for the driver defaults.
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
