package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/bertel/migration-tool/internal/db"
)

// PostgresBackend implements Backend using pgxpool.
type PostgresBackend struct {
	*sqlBackend
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresBackend with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig, region string) (*PostgresBackend, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	b := NewPostgresWithPool(pool, region)
	b.closeFn = pool.Close
	return b, nil
}

// NewPostgresWithPool wraps an existing pool. The caller keeps ownership
// of the pool unless Close is called.
func NewPostgresWithPool(pool db.Pool, region string) *PostgresBackend {
	return &PostgresBackend{
		sqlBackend: newSQLBackend("postgres", db.Postgres, pgRunner{pool: pool}, region),
		pool:       pool,
		closeFn:    pool.Close,
	}
}

// Pool returns the underlying database pool.
func (s *PostgresBackend) Pool() db.Pool {
	return s.pool
}

func (s *PostgresBackend) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

type pgRunner struct {
	pool db.Pool
}

func (r pgRunner) exec(ctx context.Context, query string, args ...any) error {
	_, err := r.pool.Exec(ctx, query, args...)
	return err
}

func (r pgRunner) queryRow(ctx context.Context, query string, args ...any) rowScanner {
	return r.pool.QueryRow(ctx, query, args...)
}

func (r pgRunner) query(ctx context.Context, query string, scan func(rowScanner) error, args ...any) error {
	rows, err := r.pool.Query(ctx, query, args...)
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

func (pgRunner) noRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
