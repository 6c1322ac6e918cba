package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertResult_FirstID(t *testing.T) {
	t.Parallel()

	var nilResult *UpsertResult
	assert.Equal(t, "", nilResult.FirstID())
	assert.Equal(t, "", (&UpsertResult{Status: UpsertSkipped}).FirstID())
	assert.Equal(t, "HOTRUN0000000001", (&UpsertResult{Data: []map[string]any{{"id": "HOTRUN0000000001"}}}).FirstID())
}

func TestAgentOutcome_SkipAndSummary(t *testing.T) {
	t.Parallel()

	o := NewOutcome(AgentContact, "contact_channel")
	o.Skip(SkipMissingObjectID, map[string]any{"value": "0262275287"})
	o.Persisted("record", &UpsertResult{Status: UpsertOK})

	assert.Equal(t, OutcomeOK, o.Status)
	assert.Equal(t, []string{SkipMissingObjectID}, o.SkipReasons())

	summary := o.Summary()
	require.Contains(t, summary, "records")
	require.Contains(t, summary, "responses")
	require.Contains(t, summary, "skipped")
	assert.Len(t, summary["skipped"], 1)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	err := Validate(&ProviderRecord{FirstName: "Marie"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ProviderRecord")
	assert.Contains(t, err.Error(), "last_name failed required")

	err = Validate(&ProviderRecord{FirstName: "Marie", LastName: "Hoarau", Email: "not-an-email"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email failed email")

	assert.NoError(t, Validate(&ProviderRecord{FirstName: "Marie", LastName: "Hoarau", Email: "marie@example.re"}))

	lat := 123.0
	err = Validate(&LocationRecord{Latitude: &lat})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "latitude")
}

func TestRecordRows(t *testing.T) {
	t.Parallel()

	lat, lon := -21.204197, 55.577417
	loc := &LocationRecord{ObjectID: "RESRUN0000000001", City: "Saint-Pierre", Latitude: &lat, Longitude: &lon}
	assert.Equal(t, map[string]any{
		"object_id": "RESRUN0000000001",
		"city":      "Saint-Pierre",
		"latitude":  lat,
		"longitude": lon,
	}, loc.Row())
	assert.True(t, loc.HasData())
	assert.False(t, (&LocationRecord{ObjectID: "x"}).HasData())

	ident := &IdentityRecord{Name: "Le Bistrot", CategoryCode: "restaurant"}
	row := ident.Row()
	assert.NotContains(t, row, "id")
	assert.Equal(t, "restaurant", row["category_code"])

	accepted := false
	pet := &PetPolicyRecord{ObjectID: "o1", Accepted: &accepted}
	assert.Equal(t, map[string]any{"object_id": "o1", "accepted": false}, pet.Row())
}
