// Package agent holds the specialised ingestion agents. Each agent owns one
// slice of the destination schema: it extracts its records from a routed
// fragment, resolves reference codes, and upserts rows.
package agent

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/bertel/migration-tool/internal/classify"
	"github.com/bertel/migration-tool/internal/model"
	"github.com/bertel/migration-tool/internal/normalize"
	"github.com/bertel/migration-tool/internal/store"
)

// Agent handles one routed fragment within a run.
type Agent interface {
	Descriptor() model.AgentDescriptor
	Handle(ctx context.Context, fragment map[string]any, c *Context) (*model.AgentOutcome, error)
}

// Deps are the collaborators shared by every agent.
type Deps struct {
	Backend store.Backend
	Service classify.Service
}

// Registry keeps agents in registration order.
type Registry struct {
	order  []string
	agents map[string]Agent
}

// NewRegistry registers the eleven agents in dispatch order.
func NewRegistry(deps Deps) *Registry {
	return NewRegistryOf(
		NewIdentity(deps),
		NewLocation(deps),
		NewContact(deps),
		NewAmenities(deps),
		NewLanguages(deps),
		NewPayments(deps),
		NewEnvironment(deps),
		NewPetPolicy(deps),
		NewMedia(deps),
		NewProviders(deps),
		NewSchedule(deps),
	)
}

// NewRegistryOf registers agents in the given order.
func NewRegistryOf(agents ...Agent) *Registry {
	r := &Registry{agents: make(map[string]Agent)}
	for _, a := range agents {
		r.Register(a)
	}
	return r
}

// Register adds or replaces the agent with the same name in place.
func (r *Registry) Register(a Agent) {
	name := a.Descriptor().Name
	if _, exists := r.agents[name]; !exists {
		r.order = append(r.order, name)
	}
	r.agents[name] = a
}

// Get returns the agent registered under name.
func (r *Registry) Get(name string) (Agent, bool) {
	a, ok := r.agents[name]
	return a, ok
}

// Names lists agent names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Descriptors lists agent descriptors in registration order.
func (r *Registry) Descriptors() []model.AgentDescriptor {
	out := make([]model.AgentDescriptor, len(r.order))
	for i, name := range r.order {
		out[i] = r.agents[name].Descriptor()
	}
	return out
}

// base carries what every agent needs.
type base struct {
	descriptor model.AgentDescriptor
	table      string
	backend    store.Backend
	service    classify.Service
}

func newBase(deps Deps, table string, d model.AgentDescriptor) base {
	return base{descriptor: d, table: table, backend: deps.Backend, service: deps.Service}
}

func (b *base) Descriptor() model.AgentDescriptor { return b.descriptor }

func (b *base) name() string { return b.descriptor.Name }

func (b *base) transform(ctx context.Context, fragment map[string]any, out any, c *Context) error {
	if err := b.service.TransformFragment(ctx, b.name(), fragment, out, c.Snapshot()); err != nil {
		return eris.Wrapf(err, "%s: transform fragment", b.name())
	}
	return nil
}

func (b *base) upsert(ctx context.Context, table string, row map[string]any, conflict string) (*model.UpsertResult, error) {
	resp, err := b.backend.Upsert(ctx, table, []map[string]any{row}, conflict)
	if err != nil {
		return nil, eris.Wrapf(err, "%s: upsert %s", b.name(), table)
	}
	return resp, nil
}

// finish settles the outcome status, shares its summary and logs it in the
// run. An outcome with nothing written is no_data, or skipped when records
// were turned away.
func (b *base) finish(c *Context, out *model.AgentOutcome) *model.AgentOutcome {
	if len(out.Records) == 0 {
		out.Status = model.OutcomeNoData
		if len(out.Skipped) > 0 {
			out.Status = model.OutcomeSkipped
		}
	}
	c.Share(out.Agent, out.Summary())
	c.outcomeEvent(out)
	return out
}

// own defaults a record's owner from the run. It reports whether the
// record has an owner afterwards.
func own(rec model.Owned, c *Context) bool {
	if rec.Owner() == "" {
		rec.SetOwner(c.ObjectID())
	}
	return rec.Owner() != ""
}

func code(s string) string { return normalize.NormalizeCode(s) }

func descriptor(name, description string, fields ...string) model.AgentDescriptor {
	return model.AgentDescriptor{Name: name, Description: description, AcceptedFields: fields}
}
