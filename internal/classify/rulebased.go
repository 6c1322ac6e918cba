package classify

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/bertel/migration-tool/internal/model"
	"github.com/bertel/migration-tool/internal/normalize"
)

// RuleBased is the deterministic keyword/shape classifier and extractor.
type RuleBased struct{}

// NewRuleBased returns the rule-based service.
func NewRuleBased() *RuleBased { return &RuleBased{} }

func (r *RuleBased) Name() string { return "rule-based" }

// ClassifyFields assigns fields by keyword in fixed agent priority, then by
// value shape. Fields are visited in sorted order.
func (r *RuleBased) ClassifyFields(_ context.Context, fields map[string]any, descriptors []model.AgentDescriptor) (*model.RoutingDecision, error) {
	available := make(map[string]bool, len(descriptors))
	for _, d := range descriptors {
		available[d.Name] = true
	}

	decision := model.NewRoutingDecision()
	for _, field := range model.SortedKeys(fields) {
		value := fields[field]
		agent, rationale := guessAgent(field, value, available)
		if agent == "" {
			decision.Leftovers[field] = value
			continue
		}
		decision.Assign(model.FieldAssignment{
			Field:     field,
			Agent:     agent,
			Attribute: TargetAttribute(agent, field),
			Rationale: rationale,
		}, value)
	}
	return decision, nil
}

func guessAgent(field string, value any, available map[string]bool) (agent, rationale string) {
	lowered := strings.ToLower(normalize.StripAccents(field))
	for _, ks := range fieldKeywords {
		if !available[ks.agent] {
			continue
		}
		for _, kw := range ks.keywords {
			if strings.Contains(lowered, kw) {
				return ks.agent, "matched keyword " + kw
			}
		}
	}

	switch t := value.(type) {
	case map[string]any:
		if available[model.AgentContact] {
			return model.AgentContact, "mapping value"
		}
	case []any:
		if len(t) > 0 {
			if _, ok := t[0].(map[string]any); ok {
				if available[model.AgentMedia] {
					return model.AgentMedia, "list of mappings"
				}
				if available[model.AgentAmenities] {
					return model.AgentAmenities, "list of mappings"
				}
			}
		}
	}
	return "", ""
}

// TransformFragment extracts the agent's records with fixed parsing rules.
func (r *RuleBased) TransformFragment(_ context.Context, agent string, payload map[string]any, out any, _ map[string]any) error {
	var ok bool
	switch agent {
	case model.AgentIdentity:
		var t *model.IdentityTransformation
		if t, ok = out.(*model.IdentityTransformation); ok {
			*t = model.IdentityTransformation{Identity: ExtractIdentity(payload)}
		}
	case model.AgentLocation:
		var t *model.LocationTransformation
		if t, ok = out.(*model.LocationTransformation); ok {
			*t = model.LocationTransformation{Locations: ExtractLocations(payload)}
		}
	case model.AgentContact:
		var t *model.ContactTransformation
		if t, ok = out.(*model.ContactTransformation); ok {
			*t = model.ContactTransformation{Channels: ExtractContacts(payload)}
		}
	case model.AgentAmenities:
		var t *model.AmenityTransformation
		if t, ok = out.(*model.AmenityTransformation); ok {
			*t = model.AmenityTransformation{Amenities: ExtractAmenities(payload)}
		}
	case model.AgentMedia:
		var t *model.MediaTransformation
		if t, ok = out.(*model.MediaTransformation); ok {
			*t = model.MediaTransformation{Media: ExtractMedia(payload)}
		}
	case model.AgentLanguages:
		var t *model.LanguageTransformation
		if t, ok = out.(*model.LanguageTransformation); ok {
			*t = model.LanguageTransformation{Languages: ExtractLanguages(payload)}
		}
	case model.AgentPayments:
		var t *model.PaymentMethodTransformation
		if t, ok = out.(*model.PaymentMethodTransformation); ok {
			*t = model.PaymentMethodTransformation{PaymentMethods: ExtractPaymentMethods(payload)}
		}
	case model.AgentEnvironment:
		var t *model.EnvironmentTagTransformation
		if t, ok = out.(*model.EnvironmentTagTransformation); ok {
			*t = model.EnvironmentTagTransformation{EnvironmentTags: ExtractEnvironmentTags(payload)}
		}
	case model.AgentPetPolicy:
		var t *model.PetPolicyTransformation
		if t, ok = out.(*model.PetPolicyTransformation); ok {
			*t = model.PetPolicyTransformation{PetPolicy: ExtractPetPolicy(payload)}
		}
	case model.AgentProviders:
		var t *model.ProviderTransformation
		if t, ok = out.(*model.ProviderTransformation); ok {
			*t = model.ProviderTransformation{Providers: ExtractProviders(payload)}
		}
	case model.AgentSchedule:
		var t *model.ScheduleTransformation
		if t, ok = out.(*model.ScheduleTransformation); ok {
			*t = model.ScheduleTransformation{Schedules: ExtractSchedules(payload)}
		}
	default:
		return eris.Errorf("classify: unknown agent %q for rule-based transformation", agent)
	}
	if !ok {
		return eris.Wrapf(ErrUnsupportedShape, "agent %s: %T", agent, out)
	}
	return nil
}
