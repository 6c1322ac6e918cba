package agent

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/bertel/migration-tool/internal/classify"
	"github.com/bertel/migration-tool/internal/model"
	"github.com/bertel/migration-tool/internal/store"
)

// Contact writes phone, email, website and booking channels. Social network
// channels are not contact channels and are skipped.
type Contact struct {
	base
}

func NewContact(deps Deps) *Contact {
	return &Contact{base: newBase(deps, "contact_channel", descriptor(model.AgentContact,
		"Formats contact information (phone, mail, website, booking links).",
		"object_id", "phone", "email", "website", "booking_url", "socials", "contact",
	))}
}

func (a *Contact) Handle(ctx context.Context, fragment map[string]any, c *Context) (*model.AgentOutcome, error) {
	var t model.ContactTransformation
	if err := a.transform(ctx, fragment, &t, c); err != nil {
		return nil, err
	}

	out := model.NewOutcome(a.name(), a.table)
	for i := range t.Channels {
		rec := t.Channels[i]
		rec.Value = strings.TrimSpace(rec.Value)
		kind := rec.Kind
		if kind == "" {
			kind = classify.ContactKindFor("", rec.Value)
		}
		if classify.IsSocialKind(kind) {
			out.Skip(model.SkipSocialChannelExcluded, rec)
			continue
		}
		if rec.Value == "" {
			out.Skip(model.SkipMissingValue, rec)
			continue
		}
		if !own(&rec, c) {
			out.Skip(model.SkipMissingObjectID, rec)
			continue
		}
		kindID, err := c.Resolver().Ensure(ctx, "contact_kind", kind, store.CodeOptions{})
		if err != nil {
			return nil, eris.Wrapf(err, "contact: resolve kind %q", kind)
		}
		if kindID == "" {
			out.Skip(model.SkipUnresolvedContactKind, rec)
			continue
		}
		row := rec.Row()
		row["kind_id"] = kindID
		resp, err := a.upsert(ctx, a.table, row, "object_id,kind_id,value")
		if err != nil {
			return nil, err
		}
		out.Persisted(rec, resp)
	}
	return a.finish(c, out), nil
}
