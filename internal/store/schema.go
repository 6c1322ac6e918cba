package store

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bertel/migration-tool/internal/db"
)

type colType int

const (
	colText colType = iota
	colBool
	colInt
	colFloat
	colJSON
	colBytes
)

type column struct {
	name string
	typ  colType
}

// tableSpec describes one destination table. Rows are filtered against
// columns before every write.
type tableSpec struct {
	name    string
	columns []column
	// idKind selects how a missing "id" is filled: "object", "uuid", or ""
	// for tables without an id column.
	idKind string
	unique [][]string
}

func (t tableSpec) has(col string) bool {
	for _, c := range t.columns {
		if c.name == col {
			return true
		}
	}
	return false
}

func (t tableSpec) typeOf(col string) colType {
	for _, c := range t.columns {
		if c.name == col {
			return c.typ
		}
	}
	return colText
}

func codeTable(name string) tableSpec {
	return tableSpec{
		name: name,
		columns: []column{
			{"id", colText}, {"code", colText}, {"name", colText},
			{"description", colText}, {"metadata", colJSON},
		},
		idKind: "uuid",
		unique: [][]string{{"code"}},
	}
}

// codeDomains are the coded vocabularies served by EnsureCode.
var codeDomains = []string{
	"contact_kind",
	"media_type",
	"payment_method",
	"environment_tag",
	"language_level",
	"language",
}

// CodeTable returns the reference table for a code domain.
func CodeTable(domain string) string {
	return "ref_code_" + domain
}

var schema = buildSchema()

func buildSchema() map[string]tableSpec {
	tables := []tableSpec{
		{
			name: "object",
			columns: []column{
				{"id", colText}, {"object_type", colText}, {"name", colText},
				{"description", colText}, {"summary", colText},
				{"category_code", colText}, {"subcategory_code", colText},
				{"status", colText}, {"legacy_ids", colJSON},
			},
			idKind: "object",
		},
		{
			name: "object_location",
			columns: []column{
				{"object_id", colText}, {"address1", colText}, {"address2", colText},
				{"postcode", colText}, {"city", colText}, {"country", colText},
				{"code_insee", colText}, {"latitude", colFloat}, {"longitude", colFloat},
				{"accessible", colBool}, {"geom", colBytes},
			},
			unique: [][]string{{"object_id"}},
		},
		{
			name: "object_external_id",
			columns: []column{
				{"id", colText}, {"object_id", colText},
				{"organization_id", colText}, {"external_id", colText},
			},
			idKind: "uuid",
			unique: [][]string{{"organization_id", "external_id"}},
		},
		{
			name: "ref_amenity",
			columns: []column{
				{"id", colText}, {"code", colText}, {"name", colText}, {"family_code", colText},
			},
			idKind: "uuid",
			unique: [][]string{{"code"}},
		},
		{
			name:    "ref_language",
			columns: []column{{"id", colText}, {"code", colText}, {"name", colText}},
			idKind:  "uuid",
			unique:  [][]string{{"code"}},
		},
		{
			name: "contact_channel",
			columns: []column{
				{"id", colText}, {"object_id", colText}, {"kind_id", colText},
				{"value", colText}, {"is_primary", colBool}, {"position", colInt},
			},
			idKind: "uuid",
			unique: [][]string{{"object_id", "kind_id", "value"}},
		},
		{
			name:    "object_amenity",
			columns: []column{{"object_id", colText}, {"amenity_id", colText}},
			unique:  [][]string{{"object_id", "amenity_id"}},
		},
		{
			name: "object_language",
			columns: []column{
				{"object_id", colText}, {"language_id", colText}, {"level_id", colText},
			},
			unique: [][]string{{"object_id", "language_id"}},
		},
		{
			name:    "object_payment_method",
			columns: []column{{"object_id", colText}, {"payment_method_id", colText}},
			unique:  [][]string{{"object_id", "payment_method_id"}},
		},
		{
			name:    "object_environment_tag",
			columns: []column{{"object_id", colText}, {"environment_tag_id", colText}},
			unique:  [][]string{{"object_id", "environment_tag_id"}},
		},
		{
			name: "media",
			columns: []column{
				{"id", colText}, {"object_id", colText}, {"media_type_id", colText},
				{"url", colText}, {"title", colText}, {"description", colText},
				{"credit", colText}, {"is_main", colBool}, {"position", colInt},
				{"metadata", colJSON},
			},
			idKind: "uuid",
			unique: [][]string{{"object_id", "url"}},
		},
		{
			name: "object_pet_policy",
			columns: []column{
				{"object_id", colText}, {"accepted", colBool}, {"conditions", colText},
			},
			unique: [][]string{{"object_id"}},
		},
		{
			name: "provider",
			columns: []column{
				{"id", colText}, {"first_name", colText}, {"last_name", colText},
				{"gender", colText}, {"email", colText}, {"phone", colText},
				{"function", colText}, {"newsletter", colBool}, {"address1", colText},
				{"postcode", colText}, {"city", colText}, {"lieu_dit", colText},
				{"date_of_birth", colText}, {"revenue", colText}, {"legacy_ids", colJSON},
			},
			idKind: "uuid",
		},
		{
			name:    "object_provider",
			columns: []column{{"object_id", colText}, {"provider_id", colText}},
			unique:  [][]string{{"object_id", "provider_id"}},
		},
		{
			name: "object_schedule",
			columns: []column{
				{"id", colText}, {"object_id", colText}, {"days", colJSON},
				{"am_start", colText}, {"am_finish", colText},
				{"pm_start", colText}, {"pm_finish", colText},
				{"reservation_required", colBool}, {"legacy_id", colText},
			},
			idKind: "uuid",
		},
	}
	for _, d := range codeDomains {
		tables = append(tables, codeTable(CodeTable(d)))
	}

	out := make(map[string]tableSpec, len(tables))
	for _, t := range tables {
		out[t.name] = t
	}
	return out
}

// Tables lists every known destination table, sorted.
func Tables() []string {
	out := make([]string, 0, len(schema))
	for name := range schema {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func sqlType(d db.Dialect, t colType) string {
	switch t {
	case colBool:
		return "BOOLEAN"
	case colInt:
		return "INTEGER"
	case colFloat:
		if d == db.SQLite {
			return "REAL"
		}
		return "DOUBLE PRECISION"
	case colJSON:
		if d == db.SQLite {
			return "TEXT"
		}
		return "JSONB"
	case colBytes:
		if d == db.SQLite {
			return "BLOB"
		}
		return "BYTEA"
	default:
		return "TEXT"
	}
}

// migrationSQL renders the destination schema for the dialect. Tables are
// created in dependency order; statements are idempotent.
func migrationSQL(d db.Dialect) []string {
	var stmts []string
	for _, name := range migrationOrder() {
		t := schema[name]
		var defs []string
		for _, c := range t.columns {
			def := fmt.Sprintf("\t%s %s", c.name, sqlType(d, c.typ))
			switch {
			case c.name == "id":
				def += " PRIMARY KEY"
			case c.name == "name" && t.name == "object":
				def += " NOT NULL"
			case c.name == "code":
				def += " NOT NULL"
			}
			defs = append(defs, def)
		}
		defs = append(defs, fmt.Sprintf("\tcreated_at %s", timestampType(d)))
		for _, u := range t.unique {
			defs = append(defs, fmt.Sprintf("\tUNIQUE (%s)", strings.Join(u, ", ")))
		}
		stmts = append(stmts, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n%s\n)", t.name, strings.Join(defs, ",\n")))
	}
	stmts = append(stmts,
		"CREATE INDEX IF NOT EXISTS idx_object_location_coords ON object_location(latitude, longitude)",
		"CREATE INDEX IF NOT EXISTS idx_object_name_lower ON object(lower(name))",
		"CREATE INDEX IF NOT EXISTS idx_provider_email ON provider(email)",
		"CREATE INDEX IF NOT EXISTS idx_provider_phone ON provider(phone)",
	)
	return stmts
}

func timestampType(d db.Dialect) string {
	if d == db.SQLite {
		return "DATETIME NOT NULL DEFAULT (datetime('now'))"
	}
	return "TIMESTAMPTZ NOT NULL DEFAULT now()"
}

// migrationOrder puts reference and parent tables before the link tables
// that point at them.
func migrationOrder() []string {
	first := []string{"object", "provider", "ref_amenity", "ref_language"}
	for _, d := range codeDomains {
		first = append(first, CodeTable(d))
	}
	seen := make(map[string]bool, len(first))
	for _, n := range first {
		seen[n] = true
	}
	for _, n := range Tables() {
		if !seen[n] {
			first = append(first, n)
		}
	}
	return first
}
