package store

import "strings"

// ObjectQuery carries the features used to find an existing object.
type ObjectQuery struct {
	Name        string   `json:"name,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	Category    string   `json:"category,omitempty"`
	Subcategory string   `json:"subcategory,omitempty"`
}

// HasCoordinates reports whether both coordinates are present.
func (q ObjectQuery) HasCoordinates() bool {
	return q.Latitude != nil && q.Longitude != nil
}

// ObjectCandidate is an existing object row considered for deduplication.
type ObjectCandidate struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category_code,omitempty"`
	Subcategory string `json:"subcategory_code,omitempty"`
	// MatchedBy is "coordinates" or "name".
	MatchedBy string `json:"matched_by,omitempty"`
}

// compatible is true when either side is absent or both are equal ignoring
// case.
func compatible(want, have string) bool {
	if want == "" || have == "" {
		return true
	}
	return strings.EqualFold(want, have)
}

// MatchCandidates applies the dedup policy: coordinate hits are preferred
// over name hits, both filtered by category and subcategory. The first
// compatible candidate wins.
func MatchCandidates(q ObjectQuery, byCoordinates, byName []ObjectCandidate) *ObjectCandidate {
	pick := func(cands []ObjectCandidate, how string) *ObjectCandidate {
		for _, c := range cands {
			if compatible(q.Category, c.Category) && compatible(q.Subcategory, c.Subcategory) {
				c.MatchedBy = how
				return &c
			}
		}
		return nil
	}
	if m := pick(byCoordinates, "coordinates"); m != nil {
		return m
	}
	if q.Name == "" {
		return nil
	}
	return pick(byName, "name")
}
