package normalize

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// accentChains pools NFD -> drop combining marks -> NFC chains; a
// transform.Transformer is not safe for concurrent use.
var accentChains = sync.Pool{
	New: func() any {
		return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	},
}

var (
	nonAlnum   = regexp.MustCompile(`[^a-z0-9]+`)
	numberLike = regexp.MustCompile(`[-+]?\d+(?:\.\d+)?`)
	listSplit  = regexp.MustCompile(`[,;/]`)
)

// StripAccents removes diacritics: "Téléphone" -> "Telephone".
func StripAccents(s string) string {
	if s == "" {
		return s
	}
	t := accentChains.Get().(transform.Transformer)
	out, _, err := transform.String(t, s)
	t.Reset()
	accentChains.Put(t)
	if err != nil {
		return s
	}
	return out
}

// NormalizeCode turns a free-text label into a reference code: accents
// stripped, lower-cased, runs of anything else collapsed to "_", trimmed.
// NormalizeCode(NormalizeCode(x)) == NormalizeCode(x).
func NormalizeCode(s string) string {
	s = strings.ToLower(StripAccents(strings.TrimSpace(s)))
	s = nonAlnum.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// NormalizeKey normalizes a source field name for alias matching.
func NormalizeKey(s string) string {
	return NormalizeCode(s)
}

// SplitList turns a delimited string or a list into trimmed, de-duplicated
// values, preserving first-seen order.
func SplitList(v any) []string {
	var parts []string
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		parts = listSplit.Split(t, -1)
	case []string:
		parts = t
	case []any:
		for _, item := range t {
			if s := Stringify(item); s != "" {
				parts = append(parts, s)
			}
		}
	default:
		parts = []string{Stringify(t)}
	}

	seen := make(map[string]bool, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ParseCoordinates extracts a latitude/longitude pair from free text such as
// "-21.204197, 55.577417" using the first two numeric substrings.
func ParseCoordinates(text string) (lat, lon float64, ok bool) {
	nums := numberLike.FindAllString(text, 2)
	if len(nums) < 2 {
		return 0, 0, false
	}
	lat, err1 := strconv.ParseFloat(nums[0], 64)
	lon, err2 := strconv.ParseFloat(nums[1], 64)
	if err1 != nil || err2 != nil || !validLatLon(lat, lon) {
		return 0, 0, false
	}
	return lat, lon, true
}

// CoordinatePair reads a coordinate pair from a string, a two-element list,
// or a {lat, lon} mapping.
func CoordinatePair(v any) (lat, lon float64, ok bool) {
	switch t := v.(type) {
	case string:
		return ParseCoordinates(t)
	case []any:
		if len(t) < 2 {
			return 0, 0, false
		}
		lat, ok1 := CoerceFloat(t[0])
		lon, ok2 := CoerceFloat(t[1])
		if ok1 && ok2 && validLatLon(lat, lon) {
			return lat, lon, true
		}
	case map[string]any:
		var latOK, lonOK bool
		for k, val := range t {
			switch NormalizeKey(k) {
			case "lat", "latitude":
				lat, latOK = CoerceFloat(val)
			case "lon", "lng", "long", "longitude":
				lon, lonOK = CoerceFloat(val)
			}
		}
		if latOK && lonOK && validLatLon(lat, lon) {
			return lat, lon, true
		}
	}
	return 0, 0, false
}

func validLatLon(lat, lon float64) bool {
	return !math.IsNaN(lat) && !math.IsNaN(lon) && lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// CoerceFloat reads a number from JSON numbers or numeric strings
// (decimal commas accepted).
func CoerceFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		if !strings.Contains(s, ".") {
			s = strings.Replace(s, ",", ".", 1)
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return 0, false
}

var (
	truthy = map[string]bool{"true": true, "oui": true, "yes": true, "y": true, "o": true, "1": true, "x": true, "vrai": true, "accepte": true, "acceptes": true, "autorise": true, "autorises": true}
	falsy  = map[string]bool{"false": true, "non": true, "no": true, "n": true, "0": true, "faux": true, "refuse": true, "refuses": true, "interdit": true, "interdits": true}
)

// CoerceBool reads a yes/no flag in English or French. ok is false when the
// value is not recognizably boolean.
func CoerceBool(v any) (value bool, ok bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case float64:
		return t != 0, true
	case int:
		return t != 0, true
	case string:
		code := NormalizeCode(t)
		if truthy[code] {
			return true, true
		}
		if falsy[code] {
			return false, true
		}
	}
	return false, false
}

// Stringify renders a scalar as text. Whole floats print without a decimal
// part so numeric postal codes stay "97418".
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
