package parser

import (
	"regexp"
	"strings"

	tidb "github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/mysql"

	"sqlerd/internal/core"
)

// Grammar is one SQL dialect the prober can try: a TiDB parser configured
// with an SQL mode, preceded by a source rewrite that maps dialect-only
// spellings onto ones the parser understands.
type Grammar struct {
	Dialect core.Dialect
	Mode    mysql.SQLMode
	Rewrite func(sql string) string
}

var registry = map[core.Dialect]func() Grammar{}

// Register creates a new registry entry for the specified dialect.
func Register(d core.Dialect, ctor func() Grammar) {
	registry[d] = ctor
}

// LookupGrammar returns the grammar registered for the dialect.
func LookupGrammar(d core.Dialect) (Grammar, bool) {
	ctor, ok := registry[d]
	if !ok {
		return Grammar{}, false
	}
	return ctor(), true
}

func init() {
	Register(core.DialectMySQL, func() Grammar {
		return Grammar{Dialect: core.DialectMySQL}
	})
	Register(core.DialectPostgreSQL, func() Grammar {
		return Grammar{Dialect: core.DialectPostgreSQL, Mode: mysql.ModeANSIQuotes, Rewrite: rewritePostgres}
	})
	Register(core.DialectGeneric, func() Grammar {
		return Grammar{Dialect: core.DialectGeneric, Mode: mysql.ModeANSIQuotes, Rewrite: rewriteGeneric}
	})
}

func (g Grammar) newParser() *tidb.Parser {
	p := tidb.New()
	if g.Mode != 0 {
		p.SetSQLMode(g.Mode)
	}
	return p
}

// prepare canonicalizes the serial types for every grammar, then applies
// the grammar's own rewrite. MySQL reads SERIAL as BIGINT UNSIGNED, which
// would break the type match of plain integer foreign keys.
func (g Grammar) prepare(sql string) string {
	sql = canonicalizeSerial(sql)
	if g.Rewrite == nil {
		return sql
	}
	return g.Rewrite(sql)
}

// typeTail matches what may legally follow a column type: the end of the
// definition or the start of a column option. It keeps a column called
// "uuid" from being mistaken for its type.
const typeTail = `(\s*(?:[,)\[]|$|(?:NOT|NULL|PRIMARY|REFERENCES|DEFAULT|UNIQUE|CHECK|CONSTRAINT|GENERATED|COLLATE|USING|WITH|WITHOUT)\b))`

// typeHead matches what precedes a column type: a column name and
// whitespace, or a chunk that starts right after a quoted name. Names in key
// lists follow "(" or "," and are never taken for types.
const typeHead = `(^\s+|\w\s+)`

type typeRewrite struct {
	re   *regexp.Regexp
	repl string
}

func typeRule(from, to string) typeRewrite {
	return typeRewrite{
		re:   regexp.MustCompile(`(?i)` + typeHead + from + typeTail),
		repl: "${1}" + to + "${2}",
	}
}

var postgresTypes = []typeRewrite{
	typeRule(`BIGSERIAL`, "BIGINT"),
	typeRule(`SMALLSERIAL`, "SMALLINT"),
	typeRule(`SERIAL8`, "BIGINT"),
	typeRule(`SERIAL4`, "INT"),
	typeRule(`SERIAL`, "INT"),
	typeRule(`INT8`, "BIGINT"),
	typeRule(`INT4`, "INT"),
	typeRule(`INT2`, "SMALLINT"),
	typeRule(`FLOAT8`, "DOUBLE"),
	typeRule(`FLOAT4`, "FLOAT"),
	typeRule(`UUID`, "CHAR(36)"),
	typeRule(`TIMESTAMPTZ`, "TIMESTAMP"),
	typeRule(`TIMETZ`, "TIME"),
	typeRule(`BYTEA`, "BLOB"),
	typeRule(`JSONB`, "JSON"),
	typeRule(`CITEXT`, "TEXT"),
	typeRule(`INET`, "VARCHAR(45)"),
}

// serialTail is typeTail without DEFAULT, so MySQL's "SERIAL DEFAULT VALUE"
// column attribute is left alone.
const serialTail = `(\s*(?:[,)\[]|$|(?:NOT|NULL|PRIMARY|REFERENCES|UNIQUE|CHECK|CONSTRAINT|GENERATED|COLLATE)\b))`

var serialTypes = []typeRewrite{
	serialRule(`BIGSERIAL`, "BIGINT"),
	serialRule(`SMALLSERIAL`, "SMALLINT"),
	serialRule(`SERIAL8`, "BIGINT"),
	serialRule(`SERIAL4`, "INT"),
	serialRule(`SERIAL`, "INT"),
}

func serialRule(from, to string) typeRewrite {
	return typeRewrite{
		re:   regexp.MustCompile(`(?i)` + typeHead + from + serialTail),
		repl: "${1}" + to + "${2}",
	}
}

func canonicalizeSerial(sql string) string {
	return mapUnquoted(sql, func(chunk string) string {
		for _, r := range serialTypes {
			chunk = r.re.ReplaceAllString(chunk, r.repl)
		}
		return chunk
	})
}

var postgresPhrases = []typeRewrite{
	{re: regexp.MustCompile(`(?i)\bCHARACTER\s+VARYING\b`), repl: "VARCHAR"},
	{re: regexp.MustCompile(`(?i)\s+WITH(?:OUT)?\s+TIME\s+ZONE\b`), repl: ""},
	{re: regexp.MustCompile(`(\w|\))\s*\[\s*\d*\s*\]`), repl: "${1}"},
	{re: regexp.MustCompile(`(?i)::\s*[a-z_][\w]*(?:\s+varying)?(?:\s*\(\s*\d+(?:\s*,\s*\d+)?\s*\))?(?:\[\])?`), repl: ""},
	{re: regexp.MustCompile(`(?i)\bALTER\s+TABLE\s+(?:IF\s+EXISTS\s+)?ONLY\b`), repl: "ALTER TABLE"},
}

// rewritePostgres canonicalizes PostgreSQL-only spellings outside quoted
// runs. Double quotes are identifiers under ANSI_QUOTES and are left as is.
func rewritePostgres(sql string) string {
	return mapUnquoted(sql, func(chunk string) string {
		for _, r := range postgresPhrases {
			chunk = r.re.ReplaceAllString(chunk, r.repl)
		}
		for _, r := range postgresTypes {
			chunk = r.re.ReplaceAllString(chunk, r.repl)
		}
		return chunk
	})
}

var createTableHead = regexp.MustCompile(`(?i)^\s*CREATE\s+(?:TEMPORARY\s+|TEMP\s+|UNLOGGED\s+)?TABLE\b`)

// rewriteGeneric is the most permissive grammar: the PostgreSQL rewrite,
// DEFAULT clauses removed and anything after the column list of a CREATE
// TABLE dropped.
func rewriteGeneric(sql string) string {
	sql = rewritePostgres(sql)
	sql = stripDefaults(sql)
	if createTableHead.MatchString(sql) {
		sql = truncateAfterColumnList(sql)
	}
	return sql
}

// mapUnquoted applies fn to every maximal run of text outside single quotes,
// double quotes and backquotes.
func mapUnquoted(sql string, fn func(string) string) string {
	var (
		sb    strings.Builder
		start int
	)
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		if c != '\'' && c != '"' && c != '`' {
			continue
		}
		sb.WriteString(fn(sql[start:i]))
		end := strings.IndexByte(sql[i+1:], c)
		if end < 0 {
			sb.WriteString(sql[i:])
			return sb.String()
		}
		sb.WriteString(sql[i : i+end+2])
		i += end + 1
		start = i + 1
	}
	sb.WriteString(fn(sql[start:]))
	return sb.String()
}

var optionKeywords = map[string]bool{
	"NOT": true, "NULL": true, "PRIMARY": true, "REFERENCES": true, "UNIQUE": true,
	"CHECK": true, "CONSTRAINT": true, "GENERATED": true, "COLLATE": true, "COMMENT": true,
	"AUTO_INCREMENT": true, "KEY": true,
}

// stripDefaults removes every DEFAULT clause: the keyword and its
// expression, up to the next top-level comma or closing parenthesis or the
// next column option keyword.
func stripDefaults(sql string) string {
	var sb strings.Builder
	i := 0
	for i < len(sql) {
		c := sql[i]
		if c == '\'' || c == '"' || c == '`' {
			j := skipQuoted(sql, i)
			sb.WriteString(sql[i:j])
			i = j
			continue
		}
		if isWordStart(sql, i) && hasWordAt(sql, i, "DEFAULT") {
			i = skipDefaultExpr(sql, i+len("DEFAULT"))
			sb.WriteByte(' ')
			continue
		}
		sb.WriteByte(c)
		i++
	}
	return sb.String()
}

func skipDefaultExpr(sql string, i int) int {
	depth := 0
	consumed := false
	for i < len(sql) {
		c := sql[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			i = skipQuoted(sql, i)
			consumed = true
			continue
		case c == '(':
			depth++
		case c == ')':
			if depth == 0 {
				return i
			}
			depth--
		case c == ',' && depth == 0:
			return i
		case isWordStart(sql, i) && depth == 0 && consumed:
			if optionKeywords[strings.ToUpper(wordAt(sql, i))] {
				return i
			}
		}
		if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
			consumed = true
		}
		i++
	}
	return i
}

// truncateAfterColumnList cuts everything after the parenthesis closing the
// first top-level parenthesized list.
func truncateAfterColumnList(sql string) string {
	depth := 0
	for i := 0; i < len(sql); i++ {
		switch c := sql[i]; c {
		case '\'', '"', '`':
			i = skipQuoted(sql, i) - 1
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return sql[:i+1]
			}
		}
	}
	return sql
}

func skipQuoted(sql string, i int) int {
	end := strings.IndexByte(sql[i+1:], sql[i])
	if end < 0 {
		return len(sql)
	}
	return i + end + 2
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isWordStart(sql string, i int) bool {
	return isIdentByte(sql[i]) && (i == 0 || !isIdentByte(sql[i-1]))
}

func wordAt(sql string, i int) string {
	j := i
	for j < len(sql) && isIdentByte(sql[j]) {
		j++
	}
	return sql[i:j]
}

func hasWordAt(sql string, i int, word string) bool {
	return strings.EqualFold(wordAt(sql, i), word)
}
