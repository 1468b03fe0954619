package core

import (
	"fmt"
	"strings"
)

// Dialect identifies the grammar a statement was accepted under. It also
// selects the constraint-naming convention.
type Dialect string

const (
	DialectMySQL      Dialect = "mysql"
	DialectPostgreSQL Dialect = "postgresql"
	DialectGeneric    Dialect = "generic"
)

// SupportedDialects returns every dialect known to the interpreter, in
// default probing order followed by the fallback.
func SupportedDialects() []Dialect {
	return []Dialect{DialectMySQL, DialectPostgreSQL, DialectGeneric}
}

// ParseDialect resolves a user supplied dialect name. Common aliases such as
// "postgres" and "pg" are accepted.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mysql", "mariadb", "tidb":
		return DialectMySQL, nil
	case "postgresql", "postgres", "pg":
		return DialectPostgreSQL, nil
	case "generic", "":
		return DialectGeneric, nil
	default:
		return "", fmt.Errorf("unsupported dialect %q", name)
	}
}

// ConstraintKind distinguishes the constraints that receive generated names.
type ConstraintKind int

const (
	KindPrimaryKey ConstraintKind = iota
	KindForeignKey
)

type namingRule struct {
	primaryKey func(table string, columns []string) string
	foreignKey func(table string, columns []string, seq int) string
}

var namingRules = map[Dialect]namingRule{
	DialectMySQL: {
		primaryKey: func(string, []string) string { return "PRIMARY" },
		foreignKey: func(table string, _ []string, seq int) string {
			return fmt.Sprintf("%s_ibfk_%d", table, seq)
		},
	},
	DialectPostgreSQL: {
		primaryKey: func(table string, _ []string) string { return table + "_pkey" },
		foreignKey: func(table string, columns []string, _ int) string {
			return table + "_" + strings.Join(columns, "_") + "_fkey"
		},
	},
}

// ConstraintName generates the name of a constraint that was declared
// without one. seq is the 1-based ordinal of the foreign key within its table
// and only matters for dialects that number their foreign keys. Names are
// lower case apart from the fixed MySQL "PRIMARY". The generic dialect
// follows the PostgreSQL convention.
func ConstraintName(d Dialect, kind ConstraintKind, table string, columns []string, seq int) string {
	rule, ok := namingRules[d]
	if !ok {
		rule = namingRules[DialectPostgreSQL]
	}
	table = strings.ToLower(table)
	lowered := make([]string, len(columns))
	for i, c := range columns {
		lowered[i] = strings.ToLower(c)
	}
	if kind == KindPrimaryKey {
		return rule.primaryKey(table, lowered)
	}
	return rule.foreignKey(table, lowered, seq)
}

// NumbersForeignKeys reports whether the dialect names foreign keys with a
// per-table sequence.
func NumbersForeignKeys(d Dialect) bool {
	return d == DialectMySQL
}
