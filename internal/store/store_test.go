package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bertel/migration-tool/internal/config"
	"github.com/bertel/migration-tool/internal/db"
	"github.com/bertel/migration-tool/internal/model"
	"github.com/bertel/migration-tool/internal/resilience"
)

func ptr(f float64) *float64 { return &f }

func TestNewObjectID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewObjectID("HOT", "RUN")
		assert.True(t, ValidObjectID(id), id)
		assert.True(t, strings.HasPrefix(id, "HOTRUN"), id)
		assert.False(t, seen[id])
		seen[id] = true
	}

	id := NewObjectID("h1", "")
	assert.True(t, ValidObjectID(id), id)
	assert.True(t, strings.HasPrefix(id, "HXXRUN"), id)
}

func TestValidObjectID(t *testing.T) {
	assert.True(t, ValidObjectID("RESRUN0000000001"))
	assert.True(t, ValidObjectID("hotRUNabcdefghij"))
	assert.False(t, ValidObjectID("R3SRUN0000000001"))
	assert.False(t, ValidObjectID("RESRUN000000001"))
	assert.False(t, ValidObjectID("RESRUN00000-0001"))
	assert.False(t, ValidObjectID(""))
}

func TestScheduleIDIsDeterministic(t *testing.T) {
	a := ScheduleID("RESRUN0000000001", []string{"monday"}, "08:00", "12:00", "", "", "H-1")
	b := ScheduleID("RESRUN0000000001", []string{"monday"}, "08:00", "12:00", "", "", "H-1")
	c := ScheduleID("RESRUN0000000001", []string{"tuesday"}, "08:00", "12:00", "", "", "H-1")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestMatchCandidates(t *testing.T) {
	coords := []ObjectCandidate{
		{ID: "A", Name: "Other", Category: "restaurant"},
		{ID: "B", Name: "Other", Category: "hotel"},
	}
	names := []ObjectCandidate{{ID: "C", Name: "Le Relais", Category: "hotel"}}

	m := MatchCandidates(ObjectQuery{Name: "Le Relais", Category: "HOTEL"}, coords, names)
	require.NotNil(t, m)
	assert.Equal(t, "B", m.ID)
	assert.Equal(t, "coordinates", m.MatchedBy)

	m = MatchCandidates(ObjectQuery{Name: "Le Relais", Category: "hotel"}, nil, names)
	require.NotNil(t, m)
	assert.Equal(t, "C", m.ID)
	assert.Equal(t, "name", m.MatchedBy)

	// Absent category on either side is compatible.
	m = MatchCandidates(ObjectQuery{Name: "x"}, coords, nil)
	require.NotNil(t, m)
	assert.Equal(t, "A", m.ID)

	assert.Nil(t, MatchCandidates(ObjectQuery{Name: "x", Subcategory: "gite"},
		[]ObjectCandidate{{ID: "D", Subcategory: "chambre"}}, nil))
	assert.Nil(t, MatchCandidates(ObjectQuery{}, nil, names))
}

func TestDisabledBackend(t *testing.T) {
	ctx := context.Background()
	b := NewDisabled("no credentials")
	assert.False(t, b.Enabled())

	res, err := b.Upsert(ctx, "object", []map[string]any{{"name": "x"}}, "id")
	require.NoError(t, err)
	assert.Equal(t, model.UpsertSkipped, res.Status)
	assert.Equal(t, "no credentials", res.Reason)
	assert.Equal(t, "object", res.Table)

	id, err := b.EnsureCode(ctx, "contact_kind", "phone", CodeOptions{})
	require.NoError(t, err)
	assert.Empty(t, id)

	cand, err := b.FindExistingObject(ctx, ObjectQuery{Name: "x"})
	require.NoError(t, err)
	assert.Nil(t, cand)
}

func TestOpenDefaultsToDisabled(t *testing.T) {
	cfg := &config.Config{}
	b, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	assert.False(t, b.Enabled())

	cfg.Store.Driver = "postgres"
	b, err = Open(context.Background(), cfg)
	require.NoError(t, err)
	assert.False(t, b.Enabled())

	cfg.Store.Driver = "mongo"
	_, err = Open(context.Background(), cfg)
	assert.Error(t, err)
}

type flakyBackend struct {
	*DisabledBackend
	failures int
	calls    int
}

func (f *flakyBackend) Upsert(_ context.Context, table string, _ []map[string]any, _ string) (*model.UpsertResult, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, resilience.NewTransientError(errors.New("connection reset by peer"), 0)
	}
	return &model.UpsertResult{Status: model.UpsertOK, Table: table}, nil
}

func (f *flakyBackend) Lookup(context.Context, string, string) (string, error) {
	f.calls++
	return "", errors.New("permission denied")
}

func testPolicy() resilience.Policy {
	return resilience.Policy{
		Service: "store",
		Retry: resilience.RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     2 * time.Millisecond,
		},
	}
}

func TestResilientRetriesTransient(t *testing.T) {
	flaky := &flakyBackend{DisabledBackend: NewDisabled("x"), failures: 2}
	r := NewResilient(flaky, testPolicy())

	res, err := r.Upsert(context.Background(), "object", nil, "")
	require.NoError(t, err)
	assert.Equal(t, model.UpsertOK, res.Status)
	assert.Equal(t, 3, flaky.calls)
}

func TestResilientDoesNotRetryPermanent(t *testing.T) {
	flaky := &flakyBackend{DisabledBackend: NewDisabled("x")}
	r := NewResilient(flaky, testPolicy())

	_, err := r.Lookup(context.Background(), "ref_code_contact_kind", "phone")
	require.Error(t, err)
	assert.Equal(t, 1, flaky.calls)
}

func TestMigrationSQLCoversSchema(t *testing.T) {
	stmts := strings.Join(migrationSQL(db.Postgres), "\n")
	for _, table := range Tables() {
		assert.Contains(t, stmts, "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
	assert.Contains(t, stmts, "UNIQUE (object_id, kind_id, value)")
	assert.Contains(t, stmts, "legacy_ids JSONB")
}
