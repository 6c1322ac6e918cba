package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bertel/migration-tool/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteBackend {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"), "RUN")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLiteMigrateIsIdempotent(t *testing.T) {
	s := newTestSQLite(t)
	require.NoError(t, s.Migrate(context.Background()))
}

func TestSQLiteUpsertObject(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	res, err := s.Upsert(ctx, "object", []map[string]any{{
		"object_type":   "HOT",
		"name":          "Hôtel des Neiges",
		"category_code": "hotel",
		"legacy_ids":    []string{"A1"},
		"not_a_column":  "dropped",
	}}, "id")
	require.NoError(t, err)
	assert.Equal(t, model.UpsertOK, res.Status)
	require.Len(t, res.Data, 1)
	id := res.FirstID()
	assert.True(t, ValidObjectID(id), id)
	assert.True(t, strings.HasPrefix(id, "HOTRUN"))
	assert.NotContains(t, res.Data[0], "not_a_column")

	// Update in place when the id is forced.
	res, err = s.Upsert(ctx, "object", []map[string]any{{"id": id, "name": "Hôtel des Neiges", "summary": "Vue volcan"}}, "id")
	require.NoError(t, err)
	assert.Equal(t, id, res.FirstID())

	var summary string
	require.NoError(t, s.db.QueryRow(`SELECT summary FROM object WHERE id = ?`, id).Scan(&summary))
	assert.Equal(t, "Vue volcan", summary)
}

func TestSQLiteUnknownTable(t *testing.T) {
	s := newTestSQLite(t)
	_, err := s.Upsert(context.Background(), "users", []map[string]any{{"a": 1}}, "")
	assert.ErrorIs(t, err, ErrUnknownTable)

	_, err = s.Upsert(context.Background(), "object", []map[string]any{{"name": "x"}}, "nope")
	assert.Error(t, err)
}

func TestSQLiteEnsureCodeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	first, err := s.EnsureCode(ctx, "contact_kind", "phone", CodeOptions{Name: "Phone"})
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := s.EnsureCode(ctx, "contact_kind", "phone", CodeOptions{Name: "Téléphone"})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	looked, err := s.Lookup(ctx, CodeTable("contact_kind"), "phone")
	require.NoError(t, err)
	assert.Equal(t, first, looked)

	missing, err := s.Lookup(ctx, CodeTable("contact_kind"), "fax")
	require.NoError(t, err)
	assert.Empty(t, missing)

	_, err = s.EnsureCode(ctx, "weather", "sunny", CodeOptions{})
	assert.ErrorIs(t, err, ErrUnknownTable)

	amenity, err := s.EnsureAmenity(ctx, "wifi", "Wi-Fi", "")
	require.NoError(t, err)
	again, err := s.EnsureAmenity(ctx, "wifi", "", "")
	require.NoError(t, err)
	assert.Equal(t, amenity, again)

	lang, err := s.EnsureLanguage(ctx, "fr", "Français")
	require.NoError(t, err)
	assert.NotEmpty(t, lang)
}

func seedObject(t *testing.T, s *SQLiteBackend, name, category string, lat, lon float64) string {
	t.Helper()
	ctx := context.Background()
	res, err := s.Upsert(ctx, "object", []map[string]any{{"object_type": "RES", "name": name, "category_code": category}}, "id")
	require.NoError(t, err)
	id := res.FirstID()
	_, err = s.Upsert(ctx, "object_location", []map[string]any{{"object_id": id, "latitude": lat, "longitude": lon}}, "object_id")
	require.NoError(t, err)
	return id
}

func TestSQLiteFindExistingObjectPrefersCoordinates(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	byName := seedObject(t, s, "Le Relais", "restaurant", -20.0, 55.0)
	byCoords := seedObject(t, s, "Relais des Hauts", "restaurant", -21.204197, 55.577417)

	m, err := s.FindExistingObject(ctx, ObjectQuery{
		Name:      "le relais",
		Latitude:  ptr(-21.204197),
		Longitude: ptr(55.577417),
		Category:  "Restaurant",
	})
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, byCoords, m.ID)
	assert.Equal(t, "coordinates", m.MatchedBy)

	m, err = s.FindExistingObject(ctx, ObjectQuery{Name: "LE RELAIS", Latitude: ptr(1), Longitude: ptr(1)})
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, byName, m.ID)
	assert.Equal(t, "name", m.MatchedBy)

	m, err = s.FindExistingObject(ctx, ObjectQuery{Name: "Le Relais", Category: "hotel"})
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestSQLiteFindProviderPriority(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	_, err := s.Upsert(ctx, "provider", []map[string]any{
		{"id": "P-1", "first_name": "Marie", "last_name": "Payet", "email": "marie@example.org"},
		{"id": "P-2", "first_name": "Paul", "last_name": "Hoarau", "phone": "0692000000"},
	}, "id")
	require.NoError(t, err)

	id, err := s.FindProvider(ctx, ProviderQuery{Email: "MARIE@example.org", Phone: "0692000000"})
	require.NoError(t, err)
	assert.Equal(t, "P-1", id)

	id, err = s.FindProvider(ctx, ProviderQuery{Email: "nobody@example.org", Phone: "0692000000"})
	require.NoError(t, err)
	assert.Equal(t, "P-2", id)

	id, err = s.FindProvider(ctx, ProviderQuery{LegacyIDs: []string{"P-9", "P-1"}})
	require.NoError(t, err)
	assert.Equal(t, "P-1", id)

	id, err = s.FindProvider(ctx, ProviderQuery{})
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestSQLiteRecordExternalIDs(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)
	obj := seedObject(t, s, "Musée", "", 0, 0)

	rows, err := s.RecordExternalIDs(ctx, obj, "ORG-974", []string{"A1", "A2"})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	again, err := s.RecordExternalIDs(ctx, obj, "ORG-974", []string{"A1"})
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, rows[0]["id"], again[0]["id"])

	none, err := s.RecordExternalIDs(ctx, obj, "", []string{"A1"})
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestSQLiteLinkAndChannelUpserts(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)
	obj := seedObject(t, s, "Plage", "", 0, 0)
	kind, err := s.EnsureCode(ctx, "contact_kind", "phone", CodeOptions{})
	require.NoError(t, err)

	row := map[string]any{"object_id": obj, "kind_id": kind, "value": "0262275287", "is_primary": true, "position": 0}
	first, err := s.Upsert(ctx, "contact_channel", []map[string]any{row}, "object_id,kind_id,value")
	require.NoError(t, err)
	second, err := s.Upsert(ctx, "contact_channel", []map[string]any{row}, "object_id,kind_id,value")
	require.NoError(t, err)
	assert.Equal(t, first.FirstID(), second.FirstID())

	amenity, err := s.EnsureAmenity(ctx, "parking", "", "")
	require.NoError(t, err)
	link := map[string]any{"object_id": obj, "amenity_id": amenity}
	for i := 0; i < 2; i++ {
		res, err := s.Upsert(ctx, "object_amenity", []map[string]any{link}, "object_id,amenity_id")
		require.NoError(t, err)
		assert.Equal(t, []map[string]any{link}, res.Data)
	}

	var n int
	require.NoError(t, s.db.QueryRow(`SELECT count(*) FROM object_amenity`).Scan(&n))
	assert.Equal(t, 1, n)

	sched := ScheduleID(obj, []string{"monday"}, "08:00", "", "", "", "")
	_, err = s.Upsert(ctx, "object_schedule", []map[string]any{{
		"id": sched, "object_id": obj, "days": []string{"monday"}, "am_start": "08:00",
	}}, "id")
	require.NoError(t, err)
	var days string
	require.NoError(t, s.db.QueryRow(`SELECT days FROM object_schedule WHERE id = ?`, sched).Scan(&days))
	assert.JSONEq(t, `["monday"]`, days)
}
