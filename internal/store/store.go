// Package store persists domain rows into the destination database. The
// Postgres and SQLite backends share one SQL implementation; a disabled
// backend answers every call with a skipped result.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bertel/migration-tool/internal/config"
	"github.com/bertel/migration-tool/internal/model"
	"github.com/bertel/migration-tool/internal/resilience"
)

// ErrUnknownTable is returned for writes to a table outside the schema.
var ErrUnknownTable = eris.New("store: unknown table")

// CodeOptions are optional attributes of a created reference code.
type CodeOptions struct {
	Name        string         `json:"name,omitempty"`
	Description string         `json:"description,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// ProviderQuery holds the keys an existing provider can be found by. They
// are tried in field order.
type ProviderQuery struct {
	Email     string   `json:"email,omitempty"`
	Phone     string   `json:"phone,omitempty"`
	LegacyIDs []string `json:"legacy_ids,omitempty"`
}

// Backend is the destination storage collaborator.
type Backend interface {
	// Upsert writes rows into table. conflict is a comma-separated list of
	// columns; empty means a plain insert.
	Upsert(ctx context.Context, table string, rows []map[string]any, conflict string) (*model.UpsertResult, error)
	// Lookup returns the id of the row in table whose code matches, or "".
	Lookup(ctx context.Context, table, code string) (string, error)

	// Reference codes
	EnsureCode(ctx context.Context, domain, code string, opts CodeOptions) (string, error)
	EnsureAmenity(ctx context.Context, code, name, familyCode string) (string, error)
	EnsureLanguage(ctx context.Context, code, name string) (string, error)

	// Identity
	FindExistingObject(ctx context.Context, q ObjectQuery) (*ObjectCandidate, error)
	RecordExternalIDs(ctx context.Context, objectID, organizationID string, externalIDs []string) ([]map[string]any, error)
	FindProvider(ctx context.Context, q ProviderQuery) (string, error)

	// Enabled is false when writes are skipped.
	Enabled() bool

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open builds the configured backend wrapped with timeouts, retries, and a
// circuit breaker. A missing database URL yields the disabled backend.
func Open(ctx context.Context, cfg *config.Config) (Backend, error) {
	var backend Backend
	switch cfg.Store.Driver {
	case "postgres":
		if cfg.Store.DatabaseURL == "" {
			zap.L().Warn("store: no database url configured, writes will be skipped")
			return NewDisabled("no credentials"), nil
		}
		pg, err := NewPostgres(ctx, cfg.Store.DatabaseURL, &PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		}, cfg.Store.RegionCode)
		if err != nil {
			return nil, err
		}
		backend = pg
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "migration.db"
		}
		lite, err := NewSQLite(dsn, cfg.Store.RegionCode)
		if err != nil {
			return nil, err
		}
		backend = lite
	case "none", "":
		return NewDisabled("no credentials"), nil
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Store.Driver)
	}

	policy := resilience.NewPolicy("store", cfg.Resilience, time.Duration(cfg.Coordinator.CallTimeoutSecs)*time.Second)
	return NewResilient(backend, policy), nil
}

func skipped(table, reason string) *model.UpsertResult {
	return &model.UpsertResult{Status: model.UpsertSkipped, Table: table, Reason: reason}
}
