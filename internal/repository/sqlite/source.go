package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sakif/social-analytics/internal/dataset"
	"github.com/sakif/social-analytics/internal/repository"
)

var _ repository.SourceRepository = (*DB)(nil)

// Load reads the four source tables in rowid order.
//
// The header comes from the database, not from the schema constants: a table
// altered by an external tool to drop a column then surfaces as a SchemaError
// in the cleaner rather than as an SQL error here.
func (db *DB) Load(ctx context.Context) (dataset.Raw, error) {
	tables := make(map[string]*dataset.Table, len(dataset.TableNames))
	for _, name := range dataset.TableNames {
		t, err := db.loadTable(ctx, name)
		if err != nil {
			return dataset.Raw{}, err
		}
		tables[name] = t
	}
	return dataset.Raw{
		Users:       tables[dataset.Users],
		Friendships: tables[dataset.Friendships],
		Posts:       tables[dataset.Posts],
		Reactions:   tables[dataset.Reactions],
	}, nil
}

func (db *DB) loadTable(ctx context.Context, name string) (*dataset.Table, error) {
	rows, err := db.conn.QueryContext(ctx,
		fmt.Sprintf("SELECT * FROM %s ORDER BY rowid", quoteIdent(name)))
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading %s: %w", name, err)
	}
	defer rows.Close()

	header, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading %s columns: %w", name, err)
	}

	t := dataset.New(name, header, nil)
	cells := make([]sql.NullString, len(header))
	dest := make([]any, len(header))
	for i := range cells {
		dest[i] = &cells[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("sqlite: scanning %s: %w", name, err)
		}
		row := make([]string, len(cells))
		for i, c := range cells {
			// NULL becomes an empty, i.e. missing, cell.
			row[i] = c.String
		}
		t.Append(row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating %s: %w", name, err)
	}
	return t, nil
}

// Import replaces the contents of the source tables with raw, in one
// transaction. Only schema columns are copied; missing cells are stored as
// NULL. A table lacking a schema column is rejected with a SchemaError before
// anything is written.
func (db *DB) Import(ctx context.Context, raw dataset.Raw) error {
	for _, t := range raw.Tables() {
		if _, err := t.Require(dataset.Schemas[t.Name]...); err != nil {
			return err
		}
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: starting import: %w", err)
	}
	defer tx.Rollback()

	for _, t := range raw.Tables() {
		if err := importTable(ctx, tx, t); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing import: %w", err)
	}
	return nil
}

func importTable(ctx context.Context, tx *sql.Tx, t *dataset.Table) error {
	cols := dataset.Schemas[t.Name]
	idx, _ := t.Require(cols...)

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+quoteIdent(t.Name)); err != nil {
		return fmt.Errorf("sqlite: clearing %s: %w", t.Name, err)
	}

	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
		marks[i] = "?"
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(t.Name), strings.Join(quoted, ", "), strings.Join(marks, ", ")))
	if err != nil {
		return fmt.Errorf("sqlite: preparing %s insert: %w", t.Name, err)
	}
	defer stmt.Close()

	args := make([]any, len(cols))
	for r := range t.Rows {
		for i, c := range cols {
			if v, ok := t.Cell(r, idx[c]); ok {
				args[i] = v
			} else {
				args[i] = nil
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("sqlite: inserting %s row %d: %w", t.Name, r, err)
		}
	}
	return nil
}
