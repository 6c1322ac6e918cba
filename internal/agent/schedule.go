package agent

import (
	"context"

	"github.com/bertel/migration-tool/internal/classify"
	"github.com/bertel/migration-tool/internal/model"
	"github.com/bertel/migration-tool/internal/store"
)

// Schedule writes opening-hours periods. Row ids are derived from the
// period so re-ingesting the same hours updates in place.
type Schedule struct {
	base
}

func NewSchedule(deps Deps) *Schedule {
	return &Schedule{base: newBase(deps, "object_schedule", descriptor(model.AgentSchedule,
		"Parses opening days and hours.",
		"object_id", "schedule", "horaires", "jours", "opening_hours",
		"am_start", "am_finish", "pm_start", "pm_finish",
	))}
}

func (a *Schedule) Handle(ctx context.Context, fragment map[string]any, c *Context) (*model.AgentOutcome, error) {
	var t model.ScheduleTransformation
	if err := a.transform(ctx, fragment, &t, c); err != nil {
		return nil, err
	}

	out := model.NewOutcome(a.name(), a.table)
	for i := range t.Schedules {
		rec := t.Schedules[i]
		rec.Days = classify.ParseDays(rec.Days)
		if len(rec.Days) == 0 {
			out.Skip(model.SkipNoRecognizedDays, rec)
			continue
		}
		if !own(&rec, c) {
			out.Skip(model.SkipMissingObjectID, rec)
			continue
		}
		row := rec.Row()
		row["id"] = store.ScheduleID(rec.ObjectID, rec.Days, rec.AMStart, rec.AMFinish, rec.PMStart, rec.PMFinish, rec.LegacyID)
		resp, err := a.upsert(ctx, a.table, row, "id")
		if err != nil {
			return nil, err
		}
		out.Persisted(rec, resp)
	}
	return a.finish(c, out), nil
}
