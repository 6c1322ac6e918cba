package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripAccents(t *testing.T) {
	assert.Equal(t, "Telephone", StripAccents("Téléphone"))
	assert.Equal(t, "Coordonnees GPS", StripAccents("Coordonnées GPS"))
	assert.Equal(t, "", StripAccents(""))
}

func TestNormalizeCodeIsIdempotent(t *testing.T) {
	for _, in := range []string{
		"Carte Bancaire",
		"  Espèces ",
		"Chèques-Vacances (ANCV)",
		"___déjà__normalisé___",
		"WI-FI gratuit!",
		"",
		"ÉTÉ 2024 / Hiver",
	} {
		once := NormalizeCode(in)
		assert.Equal(t, once, NormalizeCode(once), in)
	}
	assert.Equal(t, "carte_bancaire", NormalizeCode("Carte Bancaire"))
	assert.Equal(t, "cheques_vacances_ancv", NormalizeCode("Chèques-Vacances (ANCV)"))
}

func TestParseCoordinates(t *testing.T) {
	lat, lon, ok := ParseCoordinates("-21.204197, 55.577417")
	assert.True(t, ok)
	assert.InDelta(t, -21.204197, lat, 1e-3)
	assert.InDelta(t, 55.577417, lon, 1e-3)

	lat, lon, ok = ParseCoordinates("lat -21.3 lon 55.5 (approx)")
	assert.True(t, ok)
	assert.InDelta(t, -21.3, lat, 1e-3)
	assert.InDelta(t, 55.5, lon, 1e-3)

	_, _, ok = ParseCoordinates("-21.2")
	assert.False(t, ok)
	_, _, ok = ParseCoordinates("120, 55")
	assert.False(t, ok)
}

func TestCoordinatePair(t *testing.T) {
	lat, lon, ok := CoordinatePair([]any{-21.2, "55,5"})
	assert.True(t, ok)
	assert.InDelta(t, -21.2, lat, 1e-6)
	assert.InDelta(t, 55.5, lon, 1e-6)

	lat, lon, ok = CoordinatePair(map[string]any{"Latitude": "-21.2", "lng": 55.5})
	assert.True(t, ok)
	assert.InDelta(t, -21.2, lat, 1e-6)
	assert.InDelta(t, 55.5, lon, 1e-6)

	_, _, ok = CoordinatePair([]any{1.0})
	assert.False(t, ok)
	_, _, ok = CoordinatePair(42.0)
	assert.False(t, ok)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"CB", "Espèces", "Chèques"}, SplitList("CB, Espèces; Chèques,CB"))
	assert.Equal(t, []string{"a", "b"}, SplitList([]any{"a", "", "b", "a"}))
	assert.Equal(t, []string{"97418"}, SplitList(97418.0))
	assert.Nil(t, SplitList(nil))
	assert.Nil(t, SplitList(" , ;"))
}

func TestCoerceFloat(t *testing.T) {
	f, ok := CoerceFloat("55,577")
	assert.True(t, ok)
	assert.InDelta(t, 55.577, f, 1e-9)

	_, ok = CoerceFloat("")
	assert.False(t, ok)
	_, ok = CoerceFloat("abc")
	assert.False(t, ok)
	_, ok = CoerceFloat(true)
	assert.False(t, ok)
}

func TestCoerceBool(t *testing.T) {
	for in, want := range map[any]bool{"oui": true, "Non": false, "Acceptés": true, "interdits": false, true: true, 0.0: false} {
		got, ok := CoerceBool(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := CoerceBool("peut-être")
	assert.False(t, ok)
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "97418", Stringify(97418.0))
	assert.Equal(t, "55.5", Stringify(55.5))
	assert.Equal(t, "x", Stringify("  x "))
	assert.Equal(t, "", Stringify(nil))
	assert.Equal(t, `{"a":1}`, Stringify(map[string]any{"a": 1}))
}
