// Package normalize turns raw establishment envelopes from legacy sources
// into one model.CanonicalRecord.
package normalize

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Kind is the shape of a raw envelope.
type Kind int

const (
	// KindText is an unparsed string payload (JSON, XML, or key: value text).
	KindText Kind = iota
	// KindList is a list of records; the first is primary.
	KindList
	// KindMapping is a single record.
	KindMapping
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindList:
		return "list"
	case KindMapping:
		return "mapping"
	default:
		return "unknown"
	}
}

// Envelope is a raw payload as received.
type Envelope struct {
	Kind    Kind
	Text    string
	List    []any
	Mapping map[string]any

	// FallbackName is used when no name can be derived from the payload.
	FallbackName string
}

// TextEnvelope wraps a string payload.
func TextEnvelope(text string) Envelope {
	return Envelope{Kind: KindText, Text: text}
}

// ListEnvelope wraps a list payload.
func ListEnvelope(items []any) Envelope {
	return Envelope{Kind: KindList, List: items}
}

// MappingEnvelope wraps a single-record payload.
func MappingEnvelope(m map[string]any) Envelope {
	return Envelope{Kind: KindMapping, Mapping: m}
}

// DecodeEnvelope classifies a request body: a JSON array or object becomes a
// list or mapping envelope, anything else is kept as text.
func DecodeEnvelope(body []byte) Envelope {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{' || trimmed[0] == '"') {
		var v any
		if err := json.Unmarshal(trimmed, &v); err == nil {
			return FromValue(v)
		}
	}
	return TextEnvelope(string(body))
}

// FromValue wraps an already-decoded value.
func FromValue(v any) Envelope {
	switch t := v.(type) {
	case map[string]any:
		return MappingEnvelope(t)
	case []any:
		return ListEnvelope(t)
	case string:
		return TextEnvelope(t)
	case nil:
		return TextEnvelope("")
	default:
		return TextEnvelope(Stringify(t))
	}
}

// parseKeyValue reads "key: value" / "key=value" lines, splitting on the
// earliest separator. Lines without a separator continue the previous value.
func parseKeyValue(text string) (map[string]any, bool) {
	out := make(map[string]any)
	var lastKey string
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		idx := strings.IndexAny(line, ":=")
		if idx <= 0 {
			if lastKey == "" {
				return nil, false
			}
			out[lastKey] = strings.TrimSpace(Stringify(out[lastKey]) + "\n" + line)
			continue
		}
		key := strings.TrimSpace(line[:idx])
		if key == "" {
			continue
		}
		out[key] = strings.TrimSpace(line[idx+1:])
		lastKey = key
	}
	return out, len(out) > 0
}
