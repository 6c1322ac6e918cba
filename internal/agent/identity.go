package agent

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bertel/migration-tool/internal/model"
	"github.com/bertel/migration-tool/internal/normalize"
	"github.com/bertel/migration-tool/internal/store"
)

// ErrMissingName is returned when an identity fragment carries no name.
var ErrMissingName = eris.New("identity: establishment name is required")

// Identity resolves the canonical object every other agent links to.
type Identity struct {
	base
}

// NewIdentity returns the identity agent.
func NewIdentity(deps Deps) *Identity {
	return &Identity{base: newBase(deps, "object", descriptor(model.AgentIdentity,
		"Creates or updates the canonical establishment entry.",
		"object_id", "name", "category", "subcategory", "description", "summary",
		"status", "source_status", "legacy_ids",
	))}
}

// Handle validates the candidate id, deduplicates against existing objects,
// upserts the object row and links the source organization's external ids.
func (a *Identity) Handle(ctx context.Context, fragment map[string]any, c *Context) (*model.AgentOutcome, error) {
	var t model.IdentityTransformation
	if err := a.transform(ctx, fragment, &t, c); err != nil {
		return nil, err
	}
	rec := t.Identity
	rec.Name = strings.TrimSpace(rec.Name)
	if rec.Name == "" {
		return nil, ErrMissingName
	}
	if err := model.Validate(&rec); err != nil {
		return nil, eris.Wrap(err, "identity: invalid record")
	}

	candidate := rec.ObjectID
	if candidate == "" {
		candidate = c.ObjectID()
	}
	if candidate != "" && !store.ValidObjectID(candidate) {
		zap.L().Debug("identity: discarding malformed object id",
			zap.String("run_id", c.RunID),
			zap.String("object_id", candidate),
		)
		candidate = ""
		c.SetObjectID("")
	}
	rec.ObjectID = candidate

	var duplicateOf string
	if rec.ObjectID == "" {
		if match := a.findExisting(ctx, &rec, c); match != nil {
			rec.ObjectID = match.ID
			duplicateOf = match.ID
		}
	}

	resp, err := a.upsert(ctx, a.table, rec.Row(), "id")
	if err != nil {
		return nil, err
	}
	objectID := resp.FirstID()
	if objectID == "" {
		objectID = rec.ObjectID
	}
	if objectID != "" {
		c.SetObjectID(objectID)
	}
	c.SetDuplicateOf(duplicateOf)

	out := model.NewOutcome(a.name(), a.table)
	out.Persisted(rec, resp)
	out.ObjectID = objectID
	out.DuplicateOf = duplicateOf

	orgID := c.SourceOrganizationID
	if orgID == "" {
		orgID = scanOrganization(c.SourcePayload)
	}
	if objectID != "" && orgID != "" && len(rec.LegacyIDs) > 0 {
		links, err := a.backend.RecordExternalIDs(ctx, objectID, orgID, rec.LegacyIDs)
		if err != nil {
			return nil, eris.Wrap(err, "identity: record external ids")
		}
		for _, link := range links {
			if id, ok := link["external_id"].(string); ok && id != "" {
				out.ExternalIDs = append(out.ExternalIDs, id)
			}
		}
	}

	return a.finish(c, out), nil
}

// findExisting looks for an object this record duplicates. Lookup failures
// degrade to creating a new object.
func (a *Identity) findExisting(ctx context.Context, rec *model.IdentityRecord, c *Context) *store.ObjectCandidate {
	q := store.ObjectQuery{
		Name:        rec.Name,
		Category:    rec.CategoryCode,
		Subcategory: rec.SubcategoryCode,
	}
	if lat, lon, ok := scanCoordinates(c.SourcePayload); ok {
		q.Latitude, q.Longitude = &lat, &lon
	}
	match, err := a.backend.FindExistingObject(ctx, q)
	if err != nil {
		zap.L().Warn("identity: duplicate lookup failed",
			zap.String("run_id", c.RunID),
			zap.Error(err),
		)
		return nil
	}
	if match != nil {
		c.Record(Event{Agent: a.name(), Kind: "duplicate", Message: match.MatchedBy, Data: map[string]any{"object_id": match.ID}})
	}
	return match
}

// scanCoordinates walks the payload tree in sorted key order and returns
// the first latitude/longitude pair it can read.
func scanCoordinates(payload map[string]any) (lat, lon float64, ok bool) {
	var latRaw, lonRaw any
	var found bool
	walk(payload, func(key string, value any) bool {
		switch coordinateHint(key) {
		case "pair":
			if lat, lon, found = normalize.CoordinatePair(value); found {
				return true
			}
		case "lat":
			if latRaw == nil {
				latRaw = value
			}
		case "lon":
			if lonRaw == nil {
				lonRaw = value
			}
		}
		if latRaw != nil && lonRaw != nil {
			la, ok1 := normalize.CoerceFloat(latRaw)
			lo, ok2 := normalize.CoerceFloat(lonRaw)
			if ok1 && ok2 && la >= -90 && la <= 90 && lo >= -180 && lo <= 180 {
				lat, lon, found = la, lo, true
				return true
			}
		}
		return false
	})
	return lat, lon, found
}

func coordinateHint(key string) string {
	for _, tok := range strings.Split(normalize.NormalizeKey(key), "_") {
		switch {
		case tok == "lat" || strings.HasPrefix(tok, "latitude"):
			return "lat"
		case tok == "lon" || tok == "lng" || strings.HasPrefix(tok, "longitude"):
			return "lon"
		case strings.HasPrefix(tok, "coord") || tok == "gps" || tok == "geo":
			return "pair"
		}
	}
	return ""
}

// scanOrganization returns the first organization id found depth first.
func scanOrganization(payload map[string]any) string {
	var org string
	walk(payload, func(key string, value any) bool {
		nk := normalize.NormalizeKey(key)
		if !strings.Contains(nk, "organization") && !strings.Contains(nk, "organisation") &&
			!strings.HasSuffix(nk, "org") && !strings.Contains(nk, "org_") {
			return false
		}
		switch value.(type) {
		case map[string]any, []any:
			return false
		}
		org = normalize.Stringify(value)
		return org != ""
	})
	return org
}

// walk visits every key of a nested payload depth first, in sorted order,
// until visit returns true.
func walk(v any, visit func(key string, value any) bool) bool {
	switch t := v.(type) {
	case map[string]any:
		for _, k := range model.SortedKeys(t) {
			if visit(k, t[k]) || walk(t[k], visit) {
				return true
			}
		}
	case []any:
		for _, item := range t {
			if walk(item, visit) {
				return true
			}
		}
	}
	return false
}
