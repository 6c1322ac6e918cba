package agent

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bertel/migration-tool/internal/model"
	"github.com/bertel/migration-tool/internal/store"
)

// Providers resolves the people operating the establishment and links them
// to the object. Each provider is looked up in the run registry, then in
// the backend, before a new row is created.
type Providers struct {
	base
}

func NewProviders(deps Deps) *Providers {
	return &Providers{base: newBase(deps, "object_provider", descriptor(model.AgentProviders,
		"Resolves and links establishment providers.",
		"object_id", "providers", "prestataires", "provider",
	))}
}

func (a *Providers) Handle(ctx context.Context, fragment map[string]any, c *Context) (*model.AgentOutcome, error) {
	var t model.ProviderTransformation
	if err := a.transform(ctx, fragment, &t, c); err != nil {
		return nil, err
	}

	out := model.NewOutcome(a.name(), a.table)
	for i := range t.Providers {
		rec := t.Providers[i]
		if !own(&rec, c) {
			out.Skip(model.SkipMissingObjectID, rec)
			continue
		}
		if err := model.Validate(&rec); err != nil {
			out.Skip(model.SkipInvalidRecord, rec)
			continue
		}

		providerID, err := a.resolve(ctx, &rec, c)
		if err != nil {
			return nil, err
		}
		if providerID == "" {
			out.Skip(model.SkipUnresolvedProvider, rec)
			continue
		}
		rec.ProviderID = providerID

		resp, err := a.upsert(ctx, a.table, linkRow(rec.ObjectID, "provider_id", providerID), "object_id,provider_id")
		if err != nil {
			return nil, err
		}
		out.Persisted(rec, resp)
	}
	return a.finish(c, out), nil
}

func providerKeys(rec *model.ProviderRecord) []string {
	var keys []string
	if email := strings.ToLower(strings.TrimSpace(rec.Email)); email != "" {
		keys = append(keys, ProviderKeyEmail+email)
	}
	if phone := strings.TrimSpace(rec.Phone); phone != "" {
		keys = append(keys, ProviderKeyPhone+phone)
	}
	for _, id := range legacyIDs(rec) {
		keys = append(keys, ProviderKeyLegacy+id)
	}
	return keys
}

func legacyIDs(rec *model.ProviderRecord) []string {
	var ids []string
	if rec.ProviderID != "" {
		ids = append(ids, rec.ProviderID)
	}
	for _, id := range rec.LegacyIDs {
		if id != "" && id != rec.ProviderID {
			ids = append(ids, id)
		}
	}
	return ids
}

// resolve returns the provider id for rec and registers it under every key.
func (a *Providers) resolve(ctx context.Context, rec *model.ProviderRecord, c *Context) (string, error) {
	keys := providerKeys(rec)
	if id, ok := c.LookupProvider(keys...); ok {
		c.RegisterProvider(id, keys...)
		return id, nil
	}

	id, err := a.backend.FindProvider(ctx, store.ProviderQuery{
		Email:     strings.ToLower(strings.TrimSpace(rec.Email)),
		Phone:     strings.TrimSpace(rec.Phone),
		LegacyIDs: legacyIDs(rec),
	})
	if err != nil {
		return "", eris.Wrap(err, "providers: find provider")
	}

	if id == "" {
		id, err = a.create(ctx, rec, c)
		if err != nil {
			return "", err
		}
	}
	c.RegisterProvider(id, keys...)
	return id, nil
}

func (a *Providers) create(ctx context.Context, rec *model.ProviderRecord, c *Context) (string, error) {
	row := rec.Row()
	id := rec.ProviderID
	if id == "" {
		id = uuid.NewString()
	}
	row["id"] = id
	resp, err := a.upsert(ctx, "provider", row, "id")
	if err != nil {
		return "", err
	}
	if created := resp.FirstID(); created != "" {
		id = created
	}
	zap.L().Debug("providers: created provider",
		zap.String("run_id", c.RunID),
		zap.String("provider_id", id),
		zap.String("status", resp.Status),
	)
	return id, nil
}
