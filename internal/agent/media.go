package agent

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/bertel/migration-tool/internal/classify"
	"github.com/bertel/migration-tool/internal/model"
	"github.com/bertel/migration-tool/internal/store"
)

// Media attaches images, videos and documents to the object.
type Media struct {
	base
}

func NewMedia(deps Deps) *Media {
	return &Media{base: newBase(deps, "media", descriptor(model.AgentMedia,
		"Attaches photos, videos and documents.",
		"object_id", "media", "photos", "images", "videos", "logo",
	))}
}

func (a *Media) Handle(ctx context.Context, fragment map[string]any, c *Context) (*model.AgentOutcome, error) {
	var t model.MediaTransformation
	if err := a.transform(ctx, fragment, &t, c); err != nil {
		return nil, err
	}

	out := model.NewOutcome(a.name(), a.table)
	for i := range t.Media {
		rec := t.Media[i]
		rec.URL = strings.TrimSpace(rec.URL)
		if rec.URL == "" {
			out.Skip(model.SkipMissingURL, rec)
			continue
		}
		if !own(&rec, c) {
			out.Skip(model.SkipMissingObjectID, rec)
			continue
		}
		rec.MediaType = classify.MediaTypeFor(rec.MediaType, rec.URL)
		typeID, err := c.Resolver().Ensure(ctx, "media_type", rec.MediaType, store.CodeOptions{})
		if err != nil {
			return nil, eris.Wrapf(err, "media: resolve type %q", rec.MediaType)
		}
		if typeID == "" {
			out.Skip(model.SkipUnresolvedMediaType, rec)
			continue
		}
		row := rec.Row()
		row["media_type_id"] = typeID
		resp, err := a.upsert(ctx, a.table, row, "object_id,url")
		if err != nil {
			return nil, err
		}
		out.Persisted(rec, resp)
	}
	return a.finish(c, out), nil
}
