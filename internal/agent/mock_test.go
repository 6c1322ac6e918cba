package agent

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/bertel/migration-tool/internal/model"
	"github.com/bertel/migration-tool/internal/store"
)

// --- Backend Mock ---

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) Upsert(ctx context.Context, table string, rows []map[string]any, conflict string) (*model.UpsertResult, error) {
	args := m.Called(ctx, table, rows, conflict)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UpsertResult), args.Error(1)
}

func (m *mockBackend) Lookup(ctx context.Context, table, code string) (string, error) {
	args := m.Called(ctx, table, code)
	return args.String(0), args.Error(1)
}

func (m *mockBackend) EnsureCode(ctx context.Context, domain, code string, opts store.CodeOptions) (string, error) {
	args := m.Called(ctx, domain, code, opts)
	return args.String(0), args.Error(1)
}

func (m *mockBackend) EnsureAmenity(ctx context.Context, code, name, familyCode string) (string, error) {
	args := m.Called(ctx, code, name, familyCode)
	return args.String(0), args.Error(1)
}

func (m *mockBackend) EnsureLanguage(ctx context.Context, code, name string) (string, error) {
	args := m.Called(ctx, code, name)
	return args.String(0), args.Error(1)
}

func (m *mockBackend) FindExistingObject(ctx context.Context, q store.ObjectQuery) (*store.ObjectCandidate, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.ObjectCandidate), args.Error(1)
}

func (m *mockBackend) RecordExternalIDs(ctx context.Context, objectID, organizationID string, externalIDs []string) ([]map[string]any, error) {
	args := m.Called(ctx, objectID, organizationID, externalIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]map[string]any), args.Error(1)
}

func (m *mockBackend) FindProvider(ctx context.Context, q store.ProviderQuery) (string, error) {
	args := m.Called(ctx, q)
	return args.String(0), args.Error(1)
}

func (m *mockBackend) Enabled() bool { return true }

func (m *mockBackend) Migrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockBackend) Close() error { return nil }

func okResult(table string, id string) *model.UpsertResult {
	res := &model.UpsertResult{Status: model.UpsertOK, Table: table}
	if id != "" {
		res.Data = []map[string]any{{"id": id}}
	}
	return res
}
