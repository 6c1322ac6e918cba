package classify

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/bertel/migration-tool/internal/model"
)

// Route classifies fields with svc and rebuilds the decision so that every
// field ends up in exactly one of the assignments or the leftovers.
// Assignments naming unknown fields or agents, and repeat assignments of a
// field, are discarded.
func Route(ctx context.Context, svc Service, fields map[string]any, descriptors []model.AgentDescriptor) (*model.RoutingDecision, error) {
	raw, err := svc.ClassifyFields(ctx, fields, descriptors)
	if err != nil {
		return nil, eris.Wrap(err, "classify: route fields")
	}

	known := make(map[string]bool, len(descriptors))
	for _, d := range descriptors {
		known[d.Name] = true
	}

	decision := model.NewRoutingDecision()
	assigned := make(map[string]bool, len(fields))
	for _, a := range raw.Assignments {
		value, ok := fields[a.Field]
		if !ok || !known[a.Agent] || assigned[a.Field] {
			continue
		}
		assigned[a.Field] = true
		if a.Attribute == "" {
			a.Attribute = TargetAttribute(a.Agent, a.Field)
		}
		if value == nil {
			decision.Assignments = append(decision.Assignments, a)
			continue
		}
		decision.Assign(a, value)
	}

	for _, field := range model.SortedKeys(fields) {
		if !assigned[field] {
			decision.Leftovers[field] = fields[field]
		}
	}
	return decision, nil
}
