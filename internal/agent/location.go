package agent

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/bertel/migration-tool/internal/geo"
	"github.com/bertel/migration-tool/internal/model"
)

// Location writes the one-to-one address and coordinates of the object.
type Location struct {
	base
}

func NewLocation(deps Deps) *Location {
	return &Location{base: newBase(deps, "object_location", descriptor(model.AgentLocation,
		"Normalises addressing and coordinate data.",
		"object_id", "address1", "address2", "postcode", "city", "country",
		"code_insee", "latitude", "longitude", "coordinates", "gps", "accessible",
	))}
}

func (a *Location) Handle(ctx context.Context, fragment map[string]any, c *Context) (*model.AgentOutcome, error) {
	var t model.LocationTransformation
	if err := a.transform(ctx, fragment, &t, c); err != nil {
		return nil, err
	}

	out := model.NewOutcome(a.name(), a.table)
	for i := range t.Locations {
		rec := t.Locations[i]
		if !own(&rec, c) {
			out.Skip(model.SkipMissingObjectID, rec)
			continue
		}
		if err := model.Validate(&rec); err != nil {
			out.Skip(model.SkipInvalidRecord, rec)
			continue
		}
		row := rec.Row()
		if rec.Latitude != nil && rec.Longitude != nil {
			point, err := geo.PointEWKB(*rec.Latitude, *rec.Longitude)
			if err != nil {
				return nil, eris.Wrap(err, "location: encode point")
			}
			row["geom"] = point
		}
		resp, err := a.upsert(ctx, a.table, row, "object_id")
		if err != nil {
			return nil, err
		}
		out.Persisted(rec, resp)
	}
	return a.finish(c, out), nil
}
