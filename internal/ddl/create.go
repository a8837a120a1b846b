// Package ddl defines a small, backend-agnostic model for SQL DDL and renders
// CREATE TABLE statements from it. Backends supply a Dialect for identifier
// quoting and the "create only if missing" wrapper, and a type mapping for
// the logical column kinds.
package ddl

import (
	"fmt"
	"strings"
)

// Dialect captures what differs between SQL backends when creating a table.
type Dialect struct {
	// Name prefixes error messages, e.g. "postgres ddl".
	Name string
	// QuoteIdent quotes one identifier segment.
	QuoteIdent func(id string) string
	// Create wraps the quoted table name and the rendered column list into
	// the final statement. When nil, CREATE TABLE IF NOT EXISTS is used.
	Create func(quotedFQN, body string) string
}

// QuoteFQN quotes every non-empty segment of a dotted name.
func (d Dialect) QuoteFQN(fqn string) string {
	parts := strings.Split(fqn, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, d.QuoteIdent(p))
	}
	return strings.Join(out, ".")
}

// BuildCreateTableSQL renders t for dialect d.
//
// Rules:
//   - t.FQN must be non-empty and t must have at least one column.
//   - Each column needs a non-empty Name and SQLType.
//   - A column renders as: <name> <type> [NOT NULL] [DEFAULT <expr>].
//     Primary-key columns are always NOT NULL.
//   - PRIMARY KEY and UNIQUE constraints follow the columns, in column order.
func BuildCreateTableSQL(t TableDef, d Dialect) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("%s: table FQN must not be empty", d.Name)
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("%s: at least one column is required", d.Name)
	}

	cols := make([]string, 0, len(t.Columns)+2)
	var pks, uniques []string

	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("%s: column with empty name in table %s", d.Name, fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("%s: column %s missing SQLType", d.Name, name)
		}

		var sb strings.Builder
		sb.WriteString(d.QuoteIdent(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if !c.Nullable || c.PrimaryKey {
			sb.WriteString(" NOT NULL")
		}
		if def := strings.TrimSpace(c.Default); def != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(def)
		}
		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, d.QuoteIdent(name))
		}
		if c.Unique {
			uniques = append(uniques, d.QuoteIdent(name))
		}
	}

	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}
	for _, u := range uniques {
		cols = append(cols, fmt.Sprintf("UNIQUE (%s)", u))
	}

	create := d.Create
	if create == nil {
		create = createIfNotExists
	}
	return create(d.QuoteFQN(fqn), strings.Join(cols, ",\n  ")), nil
}

func createIfNotExists(quotedFQN, body string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n);", quotedFQN, body)
}

// DoubleQuote quotes an identifier the ANSI way: "name", with embedded
// double quotes doubled.
func DoubleQuote(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
