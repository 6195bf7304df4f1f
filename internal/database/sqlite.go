package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"
)

// NewSQLiteDB opens a SQLite database and applies migrations. A single
// connection is used so writers are serialized by database/sql instead of
// failing with SQLITE_BUSY.
func NewSQLiteDB(ctx context.Context, dsn string, logger *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite3 database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error pinging sqlite3 database: %w", err)
	}

	if err := MigrateSQLite(db); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("sqlite database opened", "dsn", dsn)

	return db, nil
}
