package coordinator

import (
	"github.com/bertel/migration-tool/internal/agent"
	"github.com/bertel/migration-tool/internal/model"
)

// Result is the full record of one ingestion run.
type Result struct {
	RunID       string                 `json:"run_id"`
	EntityName  string                 `json:"entity_name"`
	ObjectID    string                 `json:"object_id,omitempty"`
	DuplicateOf string                 `json:"duplicate_of,omitempty"`
	Fragments   []model.RoutedFragment `json:"routed_fragments"`
	Leftovers   map[string]any         `json:"unresolved_fragments"`
	Review      *agent.Review          `json:"review,omitempty"`
	Events      []agent.Event          `json:"events,omitempty"`
}

// Response is the public ingestion response.
func (r *Result) Response() model.IngestionResponse {
	fragments := r.Fragments
	if fragments == nil {
		fragments = []model.RoutedFragment{}
	}
	leftovers := r.Leftovers
	if leftovers == nil {
		leftovers = map[string]any{}
	}
	return model.IngestionResponse{
		EntityName:          r.EntityName,
		RoutedFragments:     fragments,
		UnresolvedFragments: leftovers,
	}
}

// Errors returns the agents whose dispatch failed.
func (r *Result) Errors() []string {
	var out []string
	for _, f := range r.Fragments {
		if f.Status == model.FragmentError {
			out = append(out, f.Agent)
		}
	}
	return out
}
