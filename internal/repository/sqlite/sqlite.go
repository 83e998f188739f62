// Package sqlite stores the raw social tables in a SQLite database and loads
// them back for the pipeline. Only raw rows live here; the integrated table
// is rebuilt on every load and never written back.
//
// Each source table keeps the export's column names verbatim (quoted, since
// they contain spaces) and stores every value as TEXT. Row order is the
// implicit rowid, i.e. insertion order. The pipeline numbers users, posts and
// reactions by that order, so it must survive the round trip.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"

	"github.com/sakif/social-analytics/internal/dataset"
)

// DB wraps a sql.DB connection pool.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) a SQLite database and ensures the source tables
// exist.
//
// dbPath examples:
//   - "data/social.db"  → file-based database (persistent)
//   - ":memory:"        → in-memory database (tests)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every connection to ":memory:" sees its own empty database.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets an external importer write while the server reads.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates one TEXT-only table per source dataset.
// CREATE TABLE IF NOT EXISTS keeps it safe to run on every start.
func (db *DB) migrate() error {
	for _, name := range dataset.TableNames {
		cols := dataset.Schemas[name]
		defs := make([]string, len(cols))
		for i, c := range cols {
			defs[i] = quoteIdent(c) + " TEXT"
		}
		stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
			quoteIdent(name), strings.Join(defs, ", "))
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("creating %s table: %w", name, err)
		}
	}
	return nil
}

// quoteIdent quotes an SQL identifier. Column names come from the schema
// constants, never from request input.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
