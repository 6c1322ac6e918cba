package store

import (
	"context"

	"github.com/bertel/migration-tool/internal/model"
)

// DisabledBackend answers every call without touching a database. Writes
// report a skipped result carrying the reason.
type DisabledBackend struct {
	reason string
}

// NewDisabled returns a backend that skips every write with reason.
func NewDisabled(reason string) *DisabledBackend {
	return &DisabledBackend{reason: reason}
}

func (d *DisabledBackend) Enabled() bool { return false }

func (d *DisabledBackend) Upsert(_ context.Context, table string, _ []map[string]any, _ string) (*model.UpsertResult, error) {
	return skipped(table, d.reason), nil
}

func (d *DisabledBackend) Lookup(context.Context, string, string) (string, error) {
	return "", nil
}

func (d *DisabledBackend) EnsureCode(context.Context, string, string, CodeOptions) (string, error) {
	return "", nil
}

func (d *DisabledBackend) EnsureAmenity(context.Context, string, string, string) (string, error) {
	return "", nil
}

func (d *DisabledBackend) EnsureLanguage(context.Context, string, string) (string, error) {
	return "", nil
}

func (d *DisabledBackend) FindExistingObject(context.Context, ObjectQuery) (*ObjectCandidate, error) {
	return nil, nil
}

func (d *DisabledBackend) RecordExternalIDs(context.Context, string, string, []string) ([]map[string]any, error) {
	return nil, nil
}

func (d *DisabledBackend) FindProvider(context.Context, ProviderQuery) (string, error) {
	return "", nil
}

func (d *DisabledBackend) Migrate(context.Context) error { return nil }

func (d *DisabledBackend) Close() error { return nil }
