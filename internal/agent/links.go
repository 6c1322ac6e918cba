package agent

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/bertel/migration-tool/internal/model"
	"github.com/bertel/migration-tool/internal/store"
)

// linkRow is the many-to-many row linking an object to a reference id.
func linkRow(objectID, refColumn, refID string) map[string]any {
	return map[string]any{"object_id": objectID, refColumn: refID}
}

// Amenities links the object to amenities and nearby services.
type Amenities struct {
	base
}

func NewAmenities(deps Deps) *Amenities {
	return &Amenities{base: newBase(deps, "object_amenity", descriptor(model.AgentAmenities,
		"Links equipment, services and facilities.",
		"object_id", "amenities", "nearby_services", "equipment", "services", "facilities",
	))}
}

func (a *Amenities) Handle(ctx context.Context, fragment map[string]any, c *Context) (*model.AgentOutcome, error) {
	var t model.AmenityTransformation
	if err := a.transform(ctx, fragment, &t, c); err != nil {
		return nil, err
	}

	out := model.NewOutcome(a.name(), a.table)
	for i := range t.Amenities {
		rec := t.Amenities[i]
		if !own(&rec, c) {
			out.Skip(model.SkipMissingObjectID, rec)
			continue
		}
		amenityID, err := c.Resolver().EnsureAmenity(ctx, rec.AmenityCode, rec.AmenityName, code(rec.FamilyCode))
		if err != nil {
			return nil, eris.Wrapf(err, "amenities: resolve amenity %q", rec.AmenityCode)
		}
		if amenityID == "" {
			out.Skip(model.SkipUnresolvedAmenity, rec)
			continue
		}
		resp, err := a.upsert(ctx, a.table, linkRow(rec.ObjectID, "amenity_id", amenityID), "object_id,amenity_id")
		if err != nil {
			return nil, err
		}
		out.Persisted(rec, resp)
	}
	return a.finish(c, out), nil
}

// Languages links the object to the languages spoken on site.
type Languages struct {
	base
}

func NewLanguages(deps Deps) *Languages {
	return &Languages{base: newBase(deps, "object_language", descriptor(model.AgentLanguages,
		"Links spoken languages and their proficiency level.",
		"object_id", "languages", "spoken_languages",
	))}
}

func (a *Languages) Handle(ctx context.Context, fragment map[string]any, c *Context) (*model.AgentOutcome, error) {
	var t model.LanguageTransformation
	if err := a.transform(ctx, fragment, &t, c); err != nil {
		return nil, err
	}

	out := model.NewOutcome(a.name(), a.table)
	for i := range t.Languages {
		rec := t.Languages[i]
		if code(rec.LanguageCode) == "" {
			out.Skip(model.SkipMissingLanguageCode, rec)
			continue
		}
		if !own(&rec, c) {
			out.Skip(model.SkipMissingObjectID, rec)
			continue
		}
		languageID, err := a.ensureLanguage(ctx, rec, c)
		if err != nil {
			return nil, eris.Wrapf(err, "languages: resolve language %q", rec.LanguageCode)
		}
		if languageID == "" {
			out.Skip(model.SkipUnresolvedLanguage, rec)
			continue
		}
		row := linkRow(rec.ObjectID, "language_id", languageID)
		if rec.Proficiency != "" {
			levelID, err := c.Resolver().Ensure(ctx, "language_level", rec.Proficiency, store.CodeOptions{})
			if err != nil {
				return nil, eris.Wrapf(err, "languages: resolve level %q", rec.Proficiency)
			}
			if levelID != "" {
				row["level_id"] = levelID
			}
		}
		resp, err := a.upsert(ctx, a.table, row, "object_id,language_id")
		if err != nil {
			return nil, err
		}
		out.Persisted(rec, resp)
	}
	return a.finish(c, out), nil
}

// ensureLanguage resolves against the language table, then the generic
// language code domain.
func (a *Languages) ensureLanguage(ctx context.Context, rec model.LanguageLinkRecord, c *Context) (string, error) {
	id, err := c.Resolver().EnsureLanguage(ctx, rec.LanguageCode, rec.LanguageName)
	if err != nil || id != "" {
		return id, err
	}
	return c.Resolver().Ensure(ctx, "language", rec.LanguageCode, store.CodeOptions{Name: rec.LanguageName})
}

// Payments links the object to accepted payment methods.
type Payments struct {
	base
}

func NewPayments(deps Deps) *Payments {
	return &Payments{base: newBase(deps, "object_payment_method", descriptor(model.AgentPayments,
		"Links accepted payment methods.",
		"object_id", "payment_methods", "payment", "modes_de_paiement",
	))}
}

func (a *Payments) Handle(ctx context.Context, fragment map[string]any, c *Context) (*model.AgentOutcome, error) {
	var t model.PaymentMethodTransformation
	if err := a.transform(ctx, fragment, &t, c); err != nil {
		return nil, err
	}

	out := model.NewOutcome(a.name(), a.table)
	for i := range t.PaymentMethods {
		rec := t.PaymentMethods[i]
		if !own(&rec, c) {
			out.Skip(model.SkipMissingObjectID, rec)
			continue
		}
		methodID, err := c.Resolver().Ensure(ctx, "payment_method", rec.Code, store.CodeOptions{Name: rec.Name})
		if err != nil {
			return nil, eris.Wrapf(err, "payments: resolve method %q", rec.Code)
		}
		if methodID == "" {
			out.Skip(model.SkipUnresolvedPayment, rec)
			continue
		}
		resp, err := a.upsert(ctx, a.table, linkRow(rec.ObjectID, "payment_method_id", methodID), "object_id,payment_method_id")
		if err != nil {
			return nil, err
		}
		out.Persisted(rec, resp)
	}
	return a.finish(c, out), nil
}

// Environment links the object to surroundings tags.
type Environment struct {
	base
}

func NewEnvironment(deps Deps) *Environment {
	return &Environment{base: newBase(deps, "object_environment_tag", descriptor(model.AgentEnvironment,
		"Links surroundings tags such as sea, mountain or town centre.",
		"object_id", "environment_tags", "environment", "environnement", "localisation",
	))}
}

func (a *Environment) Handle(ctx context.Context, fragment map[string]any, c *Context) (*model.AgentOutcome, error) {
	var t model.EnvironmentTagTransformation
	if err := a.transform(ctx, fragment, &t, c); err != nil {
		return nil, err
	}

	out := model.NewOutcome(a.name(), a.table)
	for i := range t.EnvironmentTags {
		rec := t.EnvironmentTags[i]
		if !own(&rec, c) {
			out.Skip(model.SkipMissingObjectID, rec)
			continue
		}
		tagID, err := c.Resolver().Ensure(ctx, "environment_tag", rec.Code, store.CodeOptions{Name: rec.Name})
		if err != nil {
			return nil, eris.Wrapf(err, "environment: resolve tag %q", rec.Code)
		}
		if tagID == "" {
			out.Skip(model.SkipUnresolvedEnvironment, rec)
			continue
		}
		resp, err := a.upsert(ctx, a.table, linkRow(rec.ObjectID, "environment_tag_id", tagID), "object_id,environment_tag_id")
		if err != nil {
			return nil, err
		}
		out.Persisted(rec, resp)
	}
	return a.finish(c, out), nil
}
