// Package model defines the canonical record, routing, and per-domain
// destination record types shared by the normalizer, classifier, agents,
// and coordinator.
package model

import "sort"

// CanonicalRecord is the normalized form of one ingested establishment.
type CanonicalRecord struct {
	Name                 string         `json:"name"`
	Category             string         `json:"category,omitempty"`
	Subcategory          string         `json:"subcategory,omitempty"`
	SourceOrganizationID string         `json:"source_organization_id,omitempty"`
	LegacyIDs            []string       `json:"legacy_ids,omitempty"`
	Auxiliary            map[string]any `json:"data,omitempty"`
}

// NewCanonicalRecord returns an empty record with an initialized auxiliary bag.
func NewCanonicalRecord() *CanonicalRecord {
	return &CanonicalRecord{Auxiliary: make(map[string]any)}
}

// AddLegacyID appends id unless it is empty or already present.
func (r *CanonicalRecord) AddLegacyID(id string) bool {
	if id == "" {
		return false
	}
	for _, existing := range r.LegacyIDs {
		if existing == id {
			return false
		}
	}
	r.LegacyIDs = append(r.LegacyIDs, id)
	return true
}

// Set writes a non-empty value into the auxiliary bag. Empty values never
// overwrite existing ones.
func (r *CanonicalRecord) Set(key string, value any) {
	if IsEmpty(value) {
		return
	}
	if r.Auxiliary == nil {
		r.Auxiliary = make(map[string]any)
	}
	r.Auxiliary[key] = value
}

// Fields flattens the top-level identity fields and the auxiliary bag into
// the key/value set handed to the classifier.
func (r *CanonicalRecord) Fields() map[string]any {
	out := make(map[string]any, len(r.Auxiliary)+5)
	for k, v := range r.Auxiliary {
		out[k] = v
	}
	if r.Name != "" {
		out["name"] = r.Name
	}
	if r.Category != "" {
		out["category"] = r.Category
	}
	if r.Subcategory != "" {
		out["subcategory"] = r.Subcategory
	}
	if r.SourceOrganizationID != "" {
		out["source_organization_id"] = r.SourceOrganizationID
	}
	if len(r.LegacyIDs) > 0 {
		out["legacy_ids"] = append([]string(nil), r.LegacyIDs...)
	}
	return out
}

// IsEmpty reports whether v carries no information: nil, blank strings, and
// empty slices or maps.
func IsEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return len(t) == 0 || isBlank(t)
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	case []map[string]any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}

// SortedKeys returns the keys of m in lexical order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
