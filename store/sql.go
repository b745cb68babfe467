package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
)

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// sqlBackend stores documents as rows of a single table.
//
// Table:
//
//	<name>(path TEXT PRIMARY KEY, data TEXT)
//
// Every operation is one statement; nothing spans documents.
type sqlBackend struct {
	db        *sql.DB
	selectSQL string
	upsertSQL string
	deleteSQL string
}

func newSQLBackend(c SQLConfig) (*sqlBackend, error) {
	q, err := queriesFor(c.Name, c.Dialect)
	if err != nil {
		return nil, err
	}
	return &sqlBackend{
		db:        c.DB,
		selectSQL: q.selectSQL,
		upsertSQL: q.upsertSQL,
		deleteSQL: q.deleteSQL,
	}, nil
}

type queries struct {
	createSQL string
	selectSQL string
	upsertSQL string
	deleteSQL string
}

func queriesFor(table string, dialect Dialect) (queries, error) {
	if !identifierRe.MatchString(table) {
		return queries{}, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}
	var p1, p2 string
	switch dialect {
	case DialectSQLite, "":
		p1, p2 = "?", "?"
	case DialectPostgres:
		p1, p2 = "$1", "$2"
	default:
		return queries{}, fmt.Errorf("unknown sql dialect: %q (supported: sqlite, postgres)", dialect)
	}
	return queries{
		createSQL: fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		path TEXT PRIMARY KEY,
		data TEXT
	)`, table),
		selectSQL: fmt.Sprintf("SELECT data FROM %s WHERE path = %s", table, p1),
		upsertSQL: fmt.Sprintf(
			`INSERT INTO %s (path, data) VALUES (%s, %s)
		 ON CONFLICT(path) DO UPDATE SET data = excluded.data`,
			table, p1, p2,
		),
		deleteSQL: fmt.Sprintf("DELETE FROM %s WHERE path = %s", table, p1),
	}, nil
}

// EnsureTable creates the document table for c if it does not exist.
func EnsureTable(ctx context.Context, c SQLConfig) error {
	if c.DB == nil {
		return errors.New("sql store requires a database handle")
	}
	q, err := queriesFor(c.Name, c.Dialect)
	if err != nil {
		return err
	}
	if _, err := c.DB.ExecContext(ctx, q.createSQL); err != nil {
		return fmt.Errorf("failed to create table %s: %w", c.Name, err)
	}
	return nil
}

func (b *sqlBackend) read(ctx context.Context, path string) ([]byte, error) {
	var raw sql.NullString
	err := b.db.QueryRowContext(ctx, b.selectSQL, path).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(err)
	}
	if err != nil {
		return nil, err
	}
	if !raw.Valid {
		return nil, ErrNoData
	}
	return []byte(raw.String), nil
}

func (b *sqlBackend) write(ctx context.Context, path string, data []byte) error {
	_, err := b.db.ExecContext(ctx, b.upsertSQL, path, string(data))
	return err
}

func (b *sqlBackend) remove(ctx context.Context, path string) error {
	_, err := b.db.ExecContext(ctx, b.deleteSQL, path)
	return err
}
