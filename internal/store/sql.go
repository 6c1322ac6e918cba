package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/bertel/migration-tool/internal/db"
	"github.com/bertel/migration-tool/internal/model"
)

type rowScanner interface {
	Scan(dest ...any) error
}

// runner adapts a driver to the statements sqlBackend issues.
type runner interface {
	exec(ctx context.Context, query string, args ...any) error
	queryRow(ctx context.Context, query string, args ...any) rowScanner
	query(ctx context.Context, query string, scan func(rowScanner) error, args ...any) error
	noRows(err error) bool
}

// sqlBackend implements Backend over any runner. Statements are written
// with $N placeholders and rebound for the dialect.
type sqlBackend struct {
	name    string
	dialect db.Dialect
	run     runner
	region  string
}

func newSQLBackend(name string, dialect db.Dialect, run runner, region string) *sqlBackend {
	if region == "" {
		region = "RUN"
	}
	return &sqlBackend{name: name, dialect: dialect, run: run, region: region}
}

func (b *sqlBackend) Enabled() bool { return true }

func (b *sqlBackend) Migrate(ctx context.Context) error {
	for _, stmt := range migrationSQL(b.dialect) {
		if err := b.run.exec(ctx, stmt); err != nil {
			return eris.Wrapf(err, "%s: migrate", b.name)
		}
	}
	return nil
}

func (b *sqlBackend) Upsert(ctx context.Context, table string, rows []map[string]any, conflict string) (*model.UpsertResult, error) {
	spec, ok := schema[table]
	if !ok {
		return nil, eris.Wrapf(ErrUnknownTable, "%s: upsert %q", b.name, table)
	}
	keys := db.ParseConflictKey(conflict)
	for _, k := range keys {
		if !spec.has(k) {
			return nil, eris.Errorf("%s: upsert %s: unknown conflict column %q", b.name, table, k)
		}
	}

	result := &model.UpsertResult{Status: model.UpsertOK, Table: table}
	for _, row := range rows {
		clean := b.prepare(spec, row)
		if len(clean) == 0 {
			continue
		}
		cols := make([]string, 0, len(clean))
		for c := range clean {
			cols = append(cols, c)
		}
		sort.Strings(cols)

		args := make([]any, len(cols))
		for i, c := range cols {
			v, err := encodeValue(spec.typeOf(c), clean[c])
			if err != nil {
				return nil, eris.Wrapf(err, "%s: upsert %s: encode %s", b.name, table, c)
			}
			args[i] = v
		}

		cfg := db.UpsertConfig{Table: table, Columns: cols, ConflictKeys: keys}
		if spec.has("id") {
			cfg.Returning = "id"
		}
		query, err := db.UpsertSQL(b.dialect, cfg)
		if err != nil {
			return nil, eris.Wrapf(err, "%s: upsert %s", b.name, table)
		}

		if cfg.Returning != "" {
			var id string
			if err := b.run.queryRow(ctx, query, args...).Scan(&id); err != nil {
				return nil, eris.Wrapf(err, "%s: upsert %s", b.name, table)
			}
			clean["id"] = id
		} else if err := b.run.exec(ctx, query, args...); err != nil {
			return nil, eris.Wrapf(err, "%s: upsert %s", b.name, table)
		}
		result.Data = append(result.Data, clean)
	}
	return result, nil
}

// prepare drops unknown columns and nil values and fills a missing id.
func (b *sqlBackend) prepare(spec tableSpec, row map[string]any) map[string]any {
	clean := make(map[string]any, len(row)+1)
	for k, v := range row {
		if v == nil || !spec.has(k) {
			continue
		}
		clean[k] = v
	}
	if len(clean) == 0 {
		return nil
	}
	if id, _ := clean["id"].(string); id == "" {
		switch spec.idKind {
		case "object":
			objectType, _ := clean["object_type"].(string)
			clean["id"] = NewObjectID(objectType, b.region)
		case "uuid":
			clean["id"] = uuid.NewString()
		}
	}
	return clean
}

func encodeValue(t colType, v any) (any, error) {
	if t != colJSON {
		return v, nil
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (b *sqlBackend) Lookup(ctx context.Context, table, code string) (string, error) {
	spec, ok := schema[table]
	if !ok || !spec.has("code") {
		return "", eris.Wrapf(ErrUnknownTable, "%s: lookup %q", b.name, table)
	}
	if code == "" {
		return "", nil
	}
	return b.firstID(ctx, fmt.Sprintf("SELECT id FROM %s WHERE code = $1", table), code)
}

func (b *sqlBackend) firstID(ctx context.Context, query string, arg any) (string, error) {
	var id string
	err := b.run.queryRow(ctx, b.dialect.Rebind(query), arg).Scan(&id)
	if err != nil {
		if b.run.noRows(err) {
			return "", nil
		}
		return "", eris.Wrapf(err, "%s: query", b.name)
	}
	return id, nil
}

// ensureRef inserts a reference row or returns the id of the existing one.
func (b *sqlBackend) ensureRef(ctx context.Context, table string, row map[string]any) (string, error) {
	spec := schema[table]
	clean := b.prepare(spec, row)
	cols := make([]string, 0, len(clean))
	for c := range clean {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	args := make([]any, len(cols))
	for i, c := range cols {
		v, err := encodeValue(spec.typeOf(c), clean[c])
		if err != nil {
			return "", eris.Wrapf(err, "%s: ensure %s", b.name, table)
		}
		args[i] = v
	}

	query, err := db.UpsertSQL(b.dialect, db.UpsertConfig{
		Table:        table,
		Columns:      cols,
		ConflictKeys: []string{"code"},
		UpdateCols:   []string{},
		Returning:    "id",
	})
	if err != nil {
		return "", eris.Wrapf(err, "%s: ensure %s", b.name, table)
	}
	var id string
	if err := b.run.queryRow(ctx, query, args...).Scan(&id); err != nil {
		return "", eris.Wrapf(err, "%s: ensure %s %q", b.name, table, row["code"])
	}
	return id, nil
}

func (b *sqlBackend) EnsureCode(ctx context.Context, domain, code string, opts CodeOptions) (string, error) {
	table := CodeTable(domain)
	if _, ok := schema[table]; !ok {
		return "", eris.Wrapf(ErrUnknownTable, "%s: ensure code domain %q", b.name, domain)
	}
	if code == "" {
		return "", nil
	}
	row := map[string]any{"code": code, "name": code}
	if opts.Name != "" {
		row["name"] = opts.Name
	}
	if opts.Description != "" {
		row["description"] = opts.Description
	}
	if len(opts.Metadata) > 0 {
		row["metadata"] = opts.Metadata
	}
	return b.ensureRef(ctx, table, row)
}

func (b *sqlBackend) EnsureAmenity(ctx context.Context, code, name, familyCode string) (string, error) {
	if code == "" {
		return "", nil
	}
	row := map[string]any{"code": code, "name": code}
	if name != "" {
		row["name"] = name
	}
	if familyCode != "" {
		row["family_code"] = familyCode
	}
	return b.ensureRef(ctx, "ref_amenity", row)
}

func (b *sqlBackend) EnsureLanguage(ctx context.Context, code, name string) (string, error) {
	if code == "" {
		return "", nil
	}
	row := map[string]any{"code": code, "name": code}
	if name != "" {
		row["name"] = name
	}
	return b.ensureRef(ctx, "ref_language", row)
}

const candidateColumns = `SELECT o.id, o.name, COALESCE(o.category_code, ''), COALESCE(o.subcategory_code, '') FROM object o`

const (
	candidatesByCoordinates = candidateColumns +
		` JOIN object_location l ON l.object_id = o.id WHERE l.latitude = $1 AND l.longitude = $2 ORDER BY o.created_at, o.id LIMIT 50`
	candidatesByName = candidateColumns +
		` WHERE lower(o.name) = lower($1) ORDER BY o.created_at, o.id LIMIT 50`
)

func (b *sqlBackend) FindExistingObject(ctx context.Context, q ObjectQuery) (*ObjectCandidate, error) {
	var byCoords, byName []ObjectCandidate
	var err error
	if q.HasCoordinates() {
		byCoords, err = b.candidates(ctx, candidatesByCoordinates, *q.Latitude, *q.Longitude)
		if err != nil {
			return nil, err
		}
		if m := MatchCandidates(q, byCoords, nil); m != nil {
			return m, nil
		}
	}
	if q.Name != "" {
		byName, err = b.candidates(ctx, candidatesByName, q.Name)
		if err != nil {
			return nil, err
		}
	}
	return MatchCandidates(q, byCoords, byName), nil
}

func (b *sqlBackend) candidates(ctx context.Context, query string, args ...any) ([]ObjectCandidate, error) {
	var out []ObjectCandidate
	err := b.run.query(ctx, b.dialect.Rebind(query), func(row rowScanner) error {
		var c ObjectCandidate
		if err := row.Scan(&c.ID, &c.Name, &c.Category, &c.Subcategory); err != nil {
			return err
		}
		out = append(out, c)
		return nil
	}, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "%s: find existing object", b.name)
	}
	return out, nil
}

func (b *sqlBackend) RecordExternalIDs(ctx context.Context, objectID, organizationID string, externalIDs []string) ([]map[string]any, error) {
	if objectID == "" || organizationID == "" || len(externalIDs) == 0 {
		return nil, nil
	}
	rows := make([]map[string]any, 0, len(externalIDs))
	for _, ext := range externalIDs {
		rows = append(rows, map[string]any{
			"object_id":       objectID,
			"organization_id": organizationID,
			"external_id":     ext,
		})
	}
	res, err := b.Upsert(ctx, "object_external_id", rows, "organization_id,external_id")
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}

func (b *sqlBackend) FindProvider(ctx context.Context, q ProviderQuery) (string, error) {
	if q.Email != "" {
		id, err := b.firstID(ctx, "SELECT id FROM provider WHERE lower(email) = lower($1) ORDER BY created_at, id LIMIT 1", q.Email)
		if err != nil || id != "" {
			return id, err
		}
	}
	if q.Phone != "" {
		id, err := b.firstID(ctx, "SELECT id FROM provider WHERE phone = $1 ORDER BY created_at, id LIMIT 1", q.Phone)
		if err != nil || id != "" {
			return id, err
		}
	}
	for _, legacy := range q.LegacyIDs {
		if legacy == "" {
			continue
		}
		id, err := b.firstID(ctx, "SELECT id FROM provider WHERE id = $1", legacy)
		if err != nil || id != "" {
			return id, err
		}
	}
	return "", nil
}
