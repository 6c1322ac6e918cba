package db

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Dialect selects placeholder syntax for generated statements.
type Dialect int

const (
	// Postgres uses $1, $2, ... placeholders.
	Postgres Dialect = iota
	// SQLite uses ? placeholders.
	SQLite
)

func (d Dialect) String() string {
	if d == SQLite {
		return "sqlite"
	}
	return "postgres"
}

// UpsertConfig defines one INSERT ... ON CONFLICT statement.
type UpsertConfig struct {
	Table        string   // target table, optionally schema-qualified
	Columns      []string // columns being inserted, in argument order
	ConflictKeys []string // columns forming the unique constraint; empty = plain insert
	// UpdateCols are overwritten on conflict. nil means every non-conflict
	// column except "id"; an empty non-nil slice keeps the existing row
	// untouched (a no-op update so RETURNING still yields its id).
	UpdateCols []string
	Returning  string // column to return; empty = none
}

// UpsertSQL builds a single-row upsert statement for the dialect.
func UpsertSQL(d Dialect, cfg UpsertConfig) (string, error) {
	if cfg.Table == "" {
		return "", eris.New("db: upsert: no table specified")
	}
	if len(cfg.Columns) == 0 {
		return "", eris.New("db: upsert: no columns specified")
	}

	placeholders := make([]string, len(cfg.Columns))
	for i := range cfg.Columns {
		placeholders[i] = d.Placeholder(i + 1)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES (%s)",
		sanitizeTable(cfg.Table), quoteAndJoin(cfg.Columns), strings.Join(placeholders, ", "))

	if len(cfg.ConflictKeys) > 0 {
		updateCols := cfg.UpdateCols
		if updateCols == nil {
			updateCols = defaultUpdateCols(cfg.Columns, cfg.ConflictKeys)
		}
		if len(updateCols) == 0 {
			// Touch a key column so the conflicting row is still returned.
			updateCols = cfg.ConflictKeys[:1]
		}
		setClauses := make([]string, len(updateCols))
		for i, col := range updateCols {
			q := pgx.Identifier{col}.Sanitize()
			setClauses[i] = fmt.Sprintf("%s = EXCLUDED.%s", q, q)
		}
		fmt.Fprintf(&b, " ON CONFLICT (%s) DO UPDATE SET %s",
			quoteAndJoin(cfg.ConflictKeys), strings.Join(setClauses, ", "))
	}

	if cfg.Returning != "" {
		fmt.Fprintf(&b, " RETURNING %s", pgx.Identifier{cfg.Returning}.Sanitize())
	}
	return b.String(), nil
}

// ParseConflictKey splits a comma-separated conflict key ("object_id,amenity_id").
func ParseConflictKey(key string) []string {
	var out []string
	for _, part := range strings.Split(key, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Placeholder returns the n-th (1-based) bind parameter.
func (d Dialect) Placeholder(n int) string {
	if d == SQLite {
		return "?"
	}
	return "$" + strconv.Itoa(n)
}

// Rebind rewrites $N placeholders for the dialect. Queries must reference
// each parameter once, in order.
func (d Dialect) Rebind(query string) string {
	if d != SQLite {
		return query
	}
	var b strings.Builder
	for i := 0; i < len(query); i++ {
		if query[i] == '$' && i+1 < len(query) && query[i+1] >= '0' && query[i+1] <= '9' {
			b.WriteByte('?')
			for i+1 < len(query) && query[i+1] >= '0' && query[i+1] <= '9' {
				i++
			}
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func defaultUpdateCols(columns, conflictKeys []string) []string {
	skip := make(map[string]bool, len(conflictKeys)+1)
	skip["id"] = true
	for _, k := range conflictKeys {
		skip[k] = true
	}
	var out []string
	for _, c := range columns {
		if !skip[c] {
			out = append(out, c)
		}
	}
	return out
}

// sanitizeTable handles schema-qualified table names like "public.object".
func sanitizeTable(table string) string {
	parts := strings.SplitN(table, ".", 2)
	if len(parts) == 2 {
		return pgx.Identifier{parts[0], parts[1]}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

// quoteAndJoin quotes each column name and joins with commas.
func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
