// Package coordinator runs one ingestion: it normalizes the envelope,
// routes fields to agents, resolves identity first, then dispatches the
// remaining agents concurrently and reviews the outcome.
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bertel/migration-tool/internal/agent"
	"github.com/bertel/migration-tool/internal/classify"
	"github.com/bertel/migration-tool/internal/model"
	"github.com/bertel/migration-tool/internal/normalize"
	"github.com/bertel/migration-tool/internal/notify"
	"github.com/bertel/migration-tool/internal/store"
	"github.com/bertel/migration-tool/internal/telemetry"
)

// Defaults applied when Options leave them unset.
const (
	DefaultMaxConcurrentAgents = 4
	DefaultCallTimeout         = 30 * time.Second
)

// Options configure a Coordinator. Backend, Service and Registry are
// required; the rest default to no-ops.
type Options struct {
	Backend  store.Backend
	Service  classify.Service
	Registry *agent.Registry
	Notifier notify.Notifier
	Guidance *classify.Guidance
	Events   *telemetry.EventLog
	Metrics  *telemetry.Metrics

	MaxConcurrentAgents   int
	CallTimeout           time.Duration
	VerificationThreshold int
}

// Coordinator orchestrates ingestion runs. It is safe for concurrent use;
// each run gets its own context and resolver.
type Coordinator struct {
	backend  store.Backend
	service  classify.Service
	registry *agent.Registry
	notifier notify.Notifier
	guidance *classify.Guidance
	verifier *agent.Verification
	events   *telemetry.EventLog
	metrics  *telemetry.Metrics

	maxConcurrent int
	callTimeout   time.Duration

	pending sync.WaitGroup
}

// New returns a coordinator.
func New(opts Options) *Coordinator {
	if opts.Notifier == nil {
		opts.Notifier = notify.Noop{}
	}
	if opts.Guidance == nil {
		opts.Guidance = classify.NewGuidance()
	}
	if opts.Events == nil {
		opts.Events = telemetry.NewEventLog(telemetry.DefaultRetention)
	}
	if opts.MaxConcurrentAgents <= 0 {
		opts.MaxConcurrentAgents = DefaultMaxConcurrentAgents
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	return &Coordinator{
		backend:       opts.Backend,
		service:       opts.Service,
		registry:      opts.Registry,
		notifier:      opts.Notifier,
		guidance:      opts.Guidance,
		verifier:      agent.NewVerification(opts.Guidance, opts.VerificationThreshold),
		events:        opts.Events,
		metrics:       opts.Metrics,
		maxConcurrent: opts.MaxConcurrentAgents,
		callTimeout:   opts.CallTimeout,
	}
}

// Descriptors lists the registered agents.
func (co *Coordinator) Descriptors() []model.AgentDescriptor {
	return co.registry.Descriptors()
}

// Events returns the event log.
func (co *Coordinator) Events() *telemetry.EventLog { return co.events }

// Guidance returns the per-agent guidance tracker.
func (co *Coordinator) Guidance() *classify.Guidance { return co.guidance }

// Wait blocks until every pending notification has been delivered.
func (co *Coordinator) Wait() { co.pending.Wait() }

// Handle ingests one envelope. Agent failures are reported as error
// fragments; only normalization and classification failures are returned.
func (co *Coordinator) Handle(ctx context.Context, env normalize.Envelope) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := zap.L().With(zap.String("run_id", runID))

	rec, err := normalize.Normalize(env)
	if err != nil {
		co.metrics.ObserveRun("error", time.Since(start))
		return nil, eris.Wrap(err, "coordinator: normalize")
	}
	log = log.With(zap.String("entity", rec.Name))
	log.Info("coordinator: received", zap.String("kind", env.Kind.String()))

	fields := rec.Fields()
	descriptors := co.registry.Descriptors()
	decision, err := classify.Route(ctx, co.service, fields, descriptors)
	if err != nil {
		co.metrics.ObserveRun("error", time.Since(start))
		return nil, eris.Wrap(err, "coordinator: classify")
	}
	mergePartition(decision, fields, descriptors)
	co.events.Record("coordinator.received", map[string]any{
		"run_id":   runID,
		"entity":   rec.Name,
		"decision": decision,
	})

	c := agent.NewContext(runID, fields, rec.SourceOrganizationID, agent.NewResolver(co.backend))
	result := &Result{RunID: runID, EntityName: rec.Name, Leftovers: decision.Leftovers}

	// Identity first.
	if fragment := identityFragment(decision.Sections[model.AgentIdentity], rec); fragment != nil {
		if candidate := candidateID(fragment, rec); candidate != "" {
			c.SetObjectID(candidate)
		}
		if a, ok := co.registry.Get(model.AgentIdentity); ok {
			result.Fragments = append(result.Fragments, co.dispatch(ctx, a, fragment, c))
		}
	} else {
		log.Warn("coordinator: no establishment name, identity skipped")
	}

	// Remaining agents, concurrently, in registration order.
	objectID := c.ObjectID()
	var names []string
	var fragments []map[string]any
	for _, name := range co.registry.Names() {
		if name == model.AgentIdentity {
			continue
		}
		section := decision.Sections[name]
		if len(section) == 0 {
			continue
		}
		fragment := make(map[string]any, len(section)+1)
		for k, v := range section {
			fragment[k] = v
		}
		if objectID != "" {
			a, _ := co.registry.Get(name)
			injectOwner(fragment, a.Descriptor(), objectID)
		}
		names = append(names, name)
		fragments = append(fragments, fragment)
	}

	dispatched := make([]model.RoutedFragment, len(names))
	var g errgroup.Group
	g.SetLimit(co.maxConcurrent)
	for i, name := range names {
		a, _ := co.registry.Get(name)
		g.Go(func() error {
			dispatched[i] = co.dispatch(ctx, a, fragments[i], c)
			return nil
		})
	}
	_ = g.Wait()
	result.Fragments = append(result.Fragments, dispatched...)

	if len(result.Leftovers) > 0 {
		co.metrics.AddLeftovers(len(result.Leftovers))
		co.notifyLeftovers(ctx, runID, rec.Name, result.Leftovers)
	}

	review := co.verifier.Review(ctx, result.Fragments, result.Leftovers, c)
	result.Review = &review
	result.ObjectID = c.ObjectID()
	result.DuplicateOf = c.DuplicateOf()
	result.Events = c.Events()

	co.events.Record("coordinator.completed", map[string]any{
		"run_id":    runID,
		"object_id": result.ObjectID,
		"fragments": len(result.Fragments),
		"leftovers": len(result.Leftovers),
	})
	co.metrics.ObserveRun("ok", time.Since(start))
	log.Info("coordinator: complete",
		zap.String("object_id", result.ObjectID),
		zap.Int("fragments", len(result.Fragments)),
		zap.Int("leftovers", len(result.Leftovers)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

// dispatch runs one agent under its own timeout. Errors and panics become
// an error fragment.
func (co *Coordinator) dispatch(ctx context.Context, a agent.Agent, fragment map[string]any, c *agent.Context) (frag model.RoutedFragment) {
	name := a.Descriptor().Name
	start := time.Now()
	frag = model.RoutedFragment{Agent: name, Payload: fragment}

	defer func() {
		if r := recover(); r != nil {
			frag.Status = model.FragmentError
			frag.Message = fmt.Sprintf("agent panicked: %v", r)
			frag.Outcome = nil
		}
		co.settle(&frag, c, time.Since(start))
	}()

	dctx, cancel := context.WithTimeout(ctx, co.callTimeout)
	defer cancel()

	outcome, err := a.Handle(dctx, fragment, c)
	if err != nil {
		frag.Status = model.FragmentError
		frag.Message = err.Error()
		return frag
	}
	frag.Status = model.FragmentProcessed
	frag.Outcome = outcome
	return frag
}

func (co *Coordinator) settle(frag *model.RoutedFragment, c *agent.Context, elapsed time.Duration) {
	co.metrics.ObserveFragment(frag.Agent, frag.Status, elapsed)
	if frag.Status == model.FragmentError {
		co.guidance.RecordError(frag.Agent, frag.Message)
		c.Record(agent.Event{Agent: frag.Agent, Kind: "error", Message: frag.Message})
		co.events.Record("coordinator.agent_error."+frag.Agent, map[string]any{
			"run_id":  c.RunID,
			"payload": frag.Payload,
			"error":   frag.Message,
		})
		zap.L().Warn("coordinator: agent failed",
			zap.String("run_id", c.RunID),
			zap.String("agent", frag.Agent),
			zap.String("error", frag.Message),
		)
		return
	}
	if frag.Outcome != nil {
		for _, reason := range frag.Outcome.SkipReasons() {
			co.metrics.IncrementSkip(frag.Agent, reason)
		}
	}
	co.events.Record("coordinator.agent."+frag.Agent, map[string]any{
		"run_id":  c.RunID,
		"payload": frag.Payload,
		"outcome": frag.Outcome,
	})
}

// notifyLeftovers delivers the unresolved fields without blocking the run.
func (co *Coordinator) notifyLeftovers(ctx context.Context, runID, entity string, leftovers map[string]any) {
	payload := map[string]any{
		"run_id":      runID,
		"entity_name": entity,
		"unresolved":  leftovers,
	}
	detached := context.WithoutCancel(ctx)
	co.pending.Add(1)
	go func() {
		defer co.pending.Done()
		co.notifier.Notify(detached, payload)
	}()
}

// identityFragment merges the classifier's identity section with the
// envelope defaults. It returns nil when no name is available.
func identityFragment(section map[string]any, rec *model.CanonicalRecord) map[string]any {
	fragment := make(map[string]any, len(section)+4)
	for k, v := range section {
		fragment[k] = v
	}
	setDefault(fragment, "name", rec.Name)
	setDefault(fragment, "category", rec.Category)
	setDefault(fragment, "subcategory", rec.Subcategory)

	var legacy []string
	seen := make(map[string]bool)
	for _, id := range append(normalize.SplitList(fragment["legacy_ids"]), rec.LegacyIDs...) {
		if !seen[id] {
			seen[id] = true
			legacy = append(legacy, id)
		}
	}
	if len(legacy) > 0 {
		fragment["legacy_ids"] = legacy
	} else {
		delete(fragment, "legacy_ids")
	}

	if normalize.Stringify(fragment["name"]) == "" {
		return nil
	}
	return fragment
}

// injectOwner sets the resolved entity id under each owner key the agent
// accepts, unless the fragment already carries one.
func injectOwner(fragment map[string]any, d model.AgentDescriptor, objectID string) {
	for _, key := range []string{ownerAttribute, "establishment_id"} {
		if !d.Accepts(key) {
			continue
		}
		if model.IsEmpty(fragment[key]) {
			fragment[key] = objectID
		}
	}
}

func setDefault(m map[string]any, key, value string) {
	if value == "" {
		return
	}
	if model.IsEmpty(m[key]) {
		m[key] = value
	}
}

// candidateID is the best-guess object id before identity runs: an explicit
// id, else the first legacy id.
func candidateID(fragment map[string]any, rec *model.CanonicalRecord) string {
	if id := normalize.Stringify(fragment["object_id"]); id != "" {
		return id
	}
	if len(rec.LegacyIDs) > 0 {
		return rec.LegacyIDs[0]
	}
	return ""
}
