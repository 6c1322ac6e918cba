package agent

import (
	"context"

	"github.com/bertel/migration-tool/internal/model"
)

// PetPolicy writes the single pet policy of the object. A fragment without
// pet information yields a no_data outcome rather than a skip.
type PetPolicy struct {
	base
}

func NewPetPolicy(deps Deps) *PetPolicy {
	return &PetPolicy{base: newBase(deps, "object_pet_policy", descriptor(model.AgentPetPolicy,
		"Records whether pets are accepted and under which conditions.",
		"object_id", "pets_allowed", "pets", "pet_policy", "animaux", "pet_conditions",
	))}
}

func (a *PetPolicy) Handle(ctx context.Context, fragment map[string]any, c *Context) (*model.AgentOutcome, error) {
	var t model.PetPolicyTransformation
	if err := a.transform(ctx, fragment, &t, c); err != nil {
		return nil, err
	}

	out := model.NewOutcome(a.name(), a.table)
	rec := t.PetPolicy
	if rec == nil || (rec.Accepted == nil && rec.Conditions == "") {
		return a.finish(c, out), nil
	}
	if !own(rec, c) {
		out.Skip(model.SkipMissingObjectID, *rec)
		return a.finish(c, out), nil
	}
	resp, err := a.upsert(ctx, a.table, rec.Row(), "object_id")
	if err != nil {
		return nil, err
	}
	out.Persisted(*rec, resp)
	return a.finish(c, out), nil
}
