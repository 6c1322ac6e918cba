package agent

import (
	"sort"
	"sync"
	"time"

	"github.com/bertel/migration-tool/internal/model"
)

// Event is one entry of a run's event log.
type Event struct {
	Time    time.Time      `json:"time"`
	Agent   string         `json:"agent"`
	Kind    string         `json:"kind"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// Context is the state shared by every agent of one ingestion run. All
// methods are safe for concurrent use.
type Context struct {
	RunID                string
	SourcePayload        map[string]any
	SourceOrganizationID string

	resolver *Resolver

	mu          sync.RWMutex
	objectID    string
	duplicateOf string
	shared      map[string]map[string]any
	providers   map[string]string
	events      []Event
}

// NewContext starts the shared state of run runID.
func NewContext(runID string, payload map[string]any, orgID string, resolver *Resolver) *Context {
	return &Context{
		RunID:                runID,
		SourcePayload:        payload,
		SourceOrganizationID: orgID,
		resolver:             resolver,
		shared:               make(map[string]map[string]any),
		providers:            make(map[string]string),
	}
}

// Resolver returns the run's reference code resolver.
func (c *Context) Resolver() *Resolver { return c.resolver }

func (c *Context) ObjectID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.objectID
}

func (c *Context) SetObjectID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.objectID = id
}

func (c *Context) DuplicateOf() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.duplicateOf
}

func (c *Context) SetDuplicateOf(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.duplicateOf = id
}

// Share publishes an agent's summary for downstream agents.
func (c *Context) Share(agent string, state map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shared[agent] = state
}

// Shared returns what agent published, if anything.
func (c *Context) Shared(agent string) (map[string]any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.shared[agent]
	return s, ok
}

// Provider registry key prefixes.
const (
	ProviderKeyEmail  = "email:"
	ProviderKeyPhone  = "phone:"
	ProviderKeyLegacy = "legacy:"
)

// RegisterProvider records id under every non-empty key. Existing keys are
// kept so the first resolution wins.
func (c *Context) RegisterProvider(id string, keys ...string) {
	if id == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, exists := c.providers[k]; !exists {
			c.providers[k] = id
		}
	}
}

// LookupProvider returns the provider id registered under any of keys, in
// order.
func (c *Context) LookupProvider(keys ...string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, k := range keys {
		if id, ok := c.providers[k]; ok && k != "" {
			return id, true
		}
	}
	return "", false
}

// Record appends an event to the run log.
func (c *Context) Record(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

// Events returns a copy of the run log.
func (c *Context) Events() []Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Event(nil), c.events...)
}

// Snapshot is the JSON-friendly view handed to the classification service.
func (c *Context) Snapshot() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	agents := make([]string, 0, len(c.shared))
	for a := range c.shared {
		agents = append(agents, a)
	}
	sort.Strings(agents)
	snap := map[string]any{
		"run_id":           c.RunID,
		"completed_agents": agents,
	}
	if c.objectID != "" {
		snap["object_id"] = c.objectID
	}
	if c.duplicateOf != "" {
		snap["duplicate_of"] = c.duplicateOf
	}
	if c.SourceOrganizationID != "" {
		snap["source_organization_id"] = c.SourceOrganizationID
	}
	return snap
}

// outcomeEvent records an agent outcome in the run log.
func (c *Context) outcomeEvent(o *model.AgentOutcome) {
	c.Record(Event{
		Agent: o.Agent,
		Kind:  "outcome",
		Data: map[string]any{
			"status":  o.Status,
			"records": len(o.Records),
			"skipped": o.SkipReasons(),
		},
	})
}
