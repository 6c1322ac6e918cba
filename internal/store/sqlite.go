package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/bertel/migration-tool/internal/db"
)

// SQLiteBackend implements Backend using modernc.org/sqlite.
type SQLiteBackend struct {
	*sqlBackend
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn, region string) (*SQLiteBackend, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteBackend{
		sqlBackend: newSQLBackend("sqlite", db.SQLite, sqliteRunner{db: conn}, region),
		db:         conn,
	}, nil
}

func (s *SQLiteBackend) Close() error {
	return s.db.Close()
}

type sqliteRunner struct {
	db *sql.DB
}

func (r sqliteRunner) exec(ctx context.Context, query string, args ...any) error {
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

func (r sqliteRunner) queryRow(ctx context.Context, query string, args ...any) rowScanner {
	return r.db.QueryRowContext(ctx, query, args...)
}

func (r sqliteRunner) query(ctx context.Context, query string, scan func(rowScanner) error, args ...any) error {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (sqliteRunner) noRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
