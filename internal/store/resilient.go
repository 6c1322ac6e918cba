package store

import (
	"context"

	"github.com/bertel/migration-tool/internal/model"
	"github.com/bertel/migration-tool/internal/resilience"
)

// Resilient runs every call of the wrapped backend under a policy: a
// per-call timeout, retries on transient failures, and a circuit breaker.
type Resilient struct {
	next   Backend
	policy resilience.Policy
}

// NewResilient wraps next with policy.
func NewResilient(next Backend, policy resilience.Policy) *Resilient {
	return &Resilient{next: next, policy: policy}
}

func (r *Resilient) Enabled() bool { return r.next.Enabled() }

func (r *Resilient) Upsert(ctx context.Context, table string, rows []map[string]any, conflict string) (*model.UpsertResult, error) {
	return resilience.Call(ctx, r.policy, "upsert "+table, func(ctx context.Context) (*model.UpsertResult, error) {
		return r.next.Upsert(ctx, table, rows, conflict)
	})
}

func (r *Resilient) Lookup(ctx context.Context, table, code string) (string, error) {
	return resilience.Call(ctx, r.policy, "lookup "+table, func(ctx context.Context) (string, error) {
		return r.next.Lookup(ctx, table, code)
	})
}

func (r *Resilient) EnsureCode(ctx context.Context, domain, code string, opts CodeOptions) (string, error) {
	return resilience.Call(ctx, r.policy, "ensure "+domain, func(ctx context.Context) (string, error) {
		return r.next.EnsureCode(ctx, domain, code, opts)
	})
}

func (r *Resilient) EnsureAmenity(ctx context.Context, code, name, familyCode string) (string, error) {
	return resilience.Call(ctx, r.policy, "ensure amenity", func(ctx context.Context) (string, error) {
		return r.next.EnsureAmenity(ctx, code, name, familyCode)
	})
}

func (r *Resilient) EnsureLanguage(ctx context.Context, code, name string) (string, error) {
	return resilience.Call(ctx, r.policy, "ensure language", func(ctx context.Context) (string, error) {
		return r.next.EnsureLanguage(ctx, code, name)
	})
}

func (r *Resilient) FindExistingObject(ctx context.Context, q ObjectQuery) (*ObjectCandidate, error) {
	return resilience.Call(ctx, r.policy, "find existing object", func(ctx context.Context) (*ObjectCandidate, error) {
		return r.next.FindExistingObject(ctx, q)
	})
}

func (r *Resilient) RecordExternalIDs(ctx context.Context, objectID, organizationID string, externalIDs []string) ([]map[string]any, error) {
	return resilience.Call(ctx, r.policy, "record external ids", func(ctx context.Context) ([]map[string]any, error) {
		return r.next.RecordExternalIDs(ctx, objectID, organizationID, externalIDs)
	})
}

func (r *Resilient) FindProvider(ctx context.Context, q ProviderQuery) (string, error) {
	return resilience.Call(ctx, r.policy, "find provider", func(ctx context.Context) (string, error) {
		return r.next.FindProvider(ctx, q)
	})
}

func (r *Resilient) Migrate(ctx context.Context) error {
	return r.next.Migrate(ctx)
}

func (r *Resilient) Close() error {
	return r.next.Close()
}
