package model

// Agent names, in dispatch registration order.
const (
	AgentIdentity    = "identity"
	AgentLocation    = "location"
	AgentContact     = "contact"
	AgentAmenities   = "amenities"
	AgentLanguages   = "languages"
	AgentPayments    = "payments"
	AgentEnvironment = "environment"
	AgentPetPolicy   = "pet_policy"
	AgentMedia       = "media"
	AgentProviders   = "providers"
	AgentSchedule    = "schedule"
)

// AgentDescriptor is the static description the classifier routes against.
type AgentDescriptor struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	AcceptedFields []string `json:"accepted_fields"`
}

// Accepts reports whether field is in the agent's accepted set.
func (d AgentDescriptor) Accepts(field string) bool {
	for _, f := range d.AcceptedFields {
		if f == field {
			return true
		}
	}
	return false
}

// FieldAssignment routes one source field to one agent attribute.
type FieldAssignment struct {
	Field     string `json:"field"`
	Agent     string `json:"agent"`
	Attribute string `json:"attribute"`
	Rationale string `json:"rationale,omitempty"`
}

// RoutingDecision is the output of field classification.
type RoutingDecision struct {
	Assignments []FieldAssignment         `json:"assignments"`
	Sections    map[string]map[string]any `json:"sections"`
	Leftovers   map[string]any            `json:"leftovers"`
}

// NewRoutingDecision returns a decision with initialized maps.
func NewRoutingDecision() *RoutingDecision {
	return &RoutingDecision{
		Sections:  make(map[string]map[string]any),
		Leftovers: make(map[string]any),
	}
}

// Assign records an assignment and places value in the agent's section.
func (d *RoutingDecision) Assign(a FieldAssignment, value any) {
	d.Assignments = append(d.Assignments, a)
	section, ok := d.Sections[a.Agent]
	if !ok {
		section = make(map[string]any)
		d.Sections[a.Agent] = section
	}
	section[a.Attribute] = value
	delete(d.Leftovers, a.Field)
}

// AssignedTo returns the agent a field was assigned to, or "".
func (d *RoutingDecision) AssignedTo(field string) string {
	for _, a := range d.Assignments {
		if a.Field == field {
			return a.Agent
		}
	}
	return ""
}

// Fragment statuses.
const (
	FragmentProcessed = "processed"
	FragmentError     = "error"
)

// RoutedFragment is the per-agent entry of an ingestion response.
type RoutedFragment struct {
	Agent   string         `json:"agent"`
	Status  string         `json:"status"`
	Message string         `json:"message,omitempty"`
	Payload map[string]any `json:"payload"`
	Outcome *AgentOutcome  `json:"outcome,omitempty"`
}

// IngestionResponse is returned for every ingested envelope.
type IngestionResponse struct {
	EntityName          string           `json:"entity_name"`
	RoutedFragments     []RoutedFragment `json:"routed_fragments"`
	UnresolvedFragments map[string]any   `json:"unresolved_fragments"`
}
