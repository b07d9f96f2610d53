// Package ddl defines a small, backend-agnostic model for SQL DDL and helpers
// to render CREATE TABLE statements from that model.
//
// The generic renderer does not add dialect clauses such as IF NOT EXISTS.
// Dialect packages pass their identifier quoting and wrap the column list in
// whatever guard their SQL needs.
package ddl

import (
	"fmt"
	"strings"
)

// Quoter quotes a single identifier segment.
type Quoter func(string) string

// NoQuote emits identifiers verbatim.
func NoQuote(s string) string { return s }

// QuoteFQN quotes each dotted segment of name, skipping empty segments.
//
//	"dbo.Users" -> [dbo].[Users]   (with a bracket quoter)
func QuoteFQN(name string, q Quoter) string {
	parts := strings.Split(name, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, q(p))
	}
	return strings.Join(out, ".")
}

// ColumnClauses validates t and renders one clause per column, in order,
// followed by a PRIMARY KEY clause when any column is part of the key:
//
//	<Name> <SQLType> [NOT NULL] [DEFAULT <Default>]
func ColumnClauses(t TableDef, q Quoter) ([]string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return nil, fmt.Errorf("ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return nil, fmt.Errorf("ddl: at least one column is required")
	}
	if q == nil {
		q = NoQuote
	}

	cols := make([]string, 0, len(t.Columns)+1)
	pks := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, fmt.Errorf("ddl: column with empty name in table %s", fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return nil, fmt.Errorf("ddl: column %s missing SQLType", name)
		}

		var sb strings.Builder
		sb.WriteString(q(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
		if def := strings.TrimSpace(c.Default); def != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(def)
		}
		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, q(name))
		}
	}
	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}
	return cols, nil
}

// BuildCreateTableSQL renders a plain CREATE TABLE statement:
//
//	CREATE TABLE <FQN> (
//	  <col1-def>,
//	  ...
//	);
func BuildCreateTableSQL(t TableDef, q Quoter) (string, error) {
	cols, err := ColumnClauses(t, q)
	if err != nil {
		return "", err
	}
	if q == nil {
		q = NoQuote
	}
	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n);", QuoteFQN(t.FQN, q), strings.Join(cols, ",\n  ")), nil
}
