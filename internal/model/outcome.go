package model

// Outcome statuses.
const (
	OutcomeOK      = "ok"
	OutcomeNoData  = "no_data"
	OutcomeSkipped = "skipped"
)

// Skip reasons.
const (
	SkipMissingObjectID       = "missing_object_id"
	SkipMissingValue          = "missing_value"
	SkipMissingURL            = "missing_url"
	SkipMissingLanguageCode   = "missing_language_code"
	SkipInvalidRecord         = "invalid_record"
	SkipSocialChannelExcluded = "social_channel_excluded"
	SkipNoRecognizedDays      = "no_recognized_days"
	SkipUnresolvedAmenity     = "unresolved_amenity"
	SkipUnresolvedLanguage    = "unresolved_language"
	SkipUnresolvedMediaType   = "unresolved_media_type"
	SkipUnresolvedContactKind = "unresolved_contact_kind"
	SkipUnresolvedPayment     = "unresolved_payment_method"
	SkipUnresolvedEnvironment = "unresolved_environment_tag"
	SkipUnresolvedProvider    = "unresolved_provider"
)

// Skip records one record that was deliberately not persisted.
type Skip struct {
	Reason string `json:"reason"`
	Record any    `json:"record,omitempty"`
}

// UpsertResult is the storage backend's answer to a write.
type UpsertResult struct {
	Status string           `json:"status"`
	Table  string           `json:"table,omitempty"`
	Data   []map[string]any `json:"data,omitempty"`
	Reason string           `json:"reason,omitempty"`
}

// Upsert result statuses.
const (
	UpsertOK      = "ok"
	UpsertSkipped = "skipped"
)

// FirstID returns the id of the first returned row, or "".
func (r *UpsertResult) FirstID() string {
	if r == nil || len(r.Data) == 0 {
		return ""
	}
	id, _ := r.Data[0]["id"].(string)
	return id
}

// AgentOutcome is what an agent reports back for one fragment.
type AgentOutcome struct {
	Agent     string          `json:"agent"`
	Status    string          `json:"status"`
	Table     string          `json:"table,omitempty"`
	Records   []any           `json:"records,omitempty"`
	Responses []*UpsertResult `json:"responses,omitempty"`
	Skipped   []Skip          `json:"skipped,omitempty"`

	// Identity results.
	ObjectID    string   `json:"object_id,omitempty"`
	DuplicateOf string   `json:"duplicate_of,omitempty"`
	ExternalIDs []string `json:"external_ids,omitempty"`
}

// NewOutcome returns an ok outcome for agent writing to table.
func NewOutcome(agent, table string) *AgentOutcome {
	return &AgentOutcome{Agent: agent, Status: OutcomeOK, Table: table}
}

// Skip appends a skip entry.
func (o *AgentOutcome) Skip(reason string, record any) {
	o.Skipped = append(o.Skipped, Skip{Reason: reason, Record: record})
}

// Persisted appends a written record and its backend response.
func (o *AgentOutcome) Persisted(record any, resp *UpsertResult) {
	o.Records = append(o.Records, record)
	o.Responses = append(o.Responses, resp)
}

// SkipReasons lists the reasons of every skip, in order.
func (o *AgentOutcome) SkipReasons() []string {
	out := make([]string, len(o.Skipped))
	for i, s := range o.Skipped {
		out[i] = s.Reason
	}
	return out
}

// Summary is the shape shared into the run context for downstream agents.
func (o *AgentOutcome) Summary() map[string]any {
	return map[string]any{
		"records":   o.Records,
		"responses": o.Responses,
		"skipped":   o.Skipped,
	}
}
