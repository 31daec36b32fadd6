// Package repository persists the structured quote data the pipeline and
// the CSV importer produce. It speaks plain database/sql so the same code
// runs against Postgres (pgx) in production and embedded SQLite everywhere
// else, including tests.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Open connects to the database identified by dsn. DSNs starting with
// postgres:// or postgresql:// use the pgx driver; anything else is treated
// as a SQLite path (use ":memory:" for an ephemeral database).
func Open(dsn string) (*sql.DB, error) {
	driver := "sqlite"
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		driver = "pgx"
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	if driver == "pgx" {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	} else {
		// modernc.org/sqlite serializes writes internally; a single
		// connection avoids SQLITE_BUSY under concurrent inserts.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the three quote tables when they do not exist yet.
// The DDL stays dialect-neutral so both backends accept it.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS clients (
	id TEXT PRIMARY KEY,
	first_name TEXT NOT NULL,
	last_name TEXT NOT NULL,
	company_name TEXT,
	email TEXT NOT NULL UNIQUE,
	phone TEXT,
	address TEXT,
	city TEXT,
	state TEXT,
	zip TEXT,
	country TEXT,
	last_changed TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS quotes (
	id TEXT PRIMARY KEY,
	quote_number INTEGER NOT NULL UNIQUE,
	quote_title TEXT NOT NULL,
	from_name TEXT NOT NULL,
	for_name TEXT NOT NULL,
	email TEXT NOT NULL,
	total_value TEXT NOT NULL,
	currency TEXT NOT NULL,
	quote_status TEXT NOT NULL,
	expiry_date TEXT
);

CREATE TABLE IF NOT EXISTS line_items (
	id TEXT PRIMARY KEY,
	quote_number INTEGER NOT NULL,
	item_code INTEGER NOT NULL,
	item_title TEXT NOT NULL,
	unit_price TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	discount TEXT NOT NULL DEFAULT '0.00',
	item_total TEXT NOT NULL,
	sales_category TEXT
);

CREATE INDEX IF NOT EXISTS idx_quotes_email ON quotes(email);
CREATE INDEX IF NOT EXISTS idx_line_items_quote_number ON line_items(quote_number);
`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}
	return nil
}
