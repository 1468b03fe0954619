// Package builder interprets DDL statements against an accumulating schema
// model. It owns the referential-integrity and constraint-naming rules: every
// rejected construct is skipped and reported as a Diagnostic, so the model
// never holds a dangling reference and a malformed clause never aborts the
// build.
package builder

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"sqlerd/internal/core"
	"sqlerd/internal/parser"
)

// Builder applies statements to one schema model. It is not safe for
// concurrent use; each build owns its own Builder.
type Builder struct {
	schema      *core.Schema
	logger      *zap.Logger
	diagnostics []Diagnostic

	// fkSeq numbers generated foreign key names per table, keyed by lower
	// case table name.
	fkSeq map[string]int

	stmt    int
	dialect core.Dialect
}

// New returns a builder over an empty schema.
func New(logger *zap.Logger) *Builder {
	return NewWithSchema(core.NewSchema(), logger)
}

// NewWithSchema returns a builder that mutates an existing schema in place.
func NewWithSchema(schema *core.Schema, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Builder{
		schema: schema,
		logger: logger,
		fkSeq:  make(map[string]int),
	}
	for _, t := range schema.Tables {
		b.fkSeq[strings.ToLower(t.Name)] = len(t.ForeignKeys)
	}
	return b
}

// Schema returns the model built so far.
func (b *Builder) Schema() *core.Schema {
	return b.schema
}

// Diagnostics returns every diagnostic reported so far, in order.
func (b *Builder) Diagnostics() []Diagnostic {
	return b.diagnostics
}

// ApplyAll interprets probed statements in order. Statements that failed to
// parse become parse diagnostics.
func (b *Builder) ApplyAll(results []parser.Result) {
	for i, r := range results {
		if r.Err != nil {
			b.stmt = i
			b.report(SeverityWarning, KindParse, "", "%v", r.Err)
			continue
		}
		b.Apply(i, r.Parsed)
	}
}

// Apply interprets one probed statement. index is its position in the input
// and is carried by any diagnostic it produces.
func (b *Builder) Apply(index int, parsed parser.Parsed) {
	b.stmt = index
	b.dialect = parsed.Dialect
	for _, stmt := range parsed.Statements {
		b.apply(stmt)
	}
}

func (b *Builder) apply(stmt parser.Statement) {
	switch s := stmt.(type) {
	case parser.CreateTable:
		b.createTable(s)
	case parser.AlterTable:
		b.alterTable(s)
	case parser.DropTable:
		b.dropTables(s)
	case parser.RenameTables:
		for _, r := range s.Renames {
			b.renameTable(r.From, r.To)
		}
	case parser.Ignored:
		b.report(SeverityDebug, KindIgnored, "", "%s statement does not affect the schema", s.Kind)
	}
}

func (b *Builder) report(sev Severity, kind Kind, table, format string, args ...any) {
	d := Diagnostic{
		Kind:      kind,
		Severity:  sev,
		Statement: b.stmt,
		Table:     table,
		Message:   fmt.Sprintf(format, args...),
	}
	b.diagnostics = append(b.diagnostics, d)

	fields := []zap.Field{
		zap.Int("statement", b.stmt),
		zap.String("table", table),
		zap.String("kind", string(kind)),
	}
	if sev == SeverityDebug {
		b.logger.Debug(d.Message, fields...)
		return
	}
	b.logger.Warn(d.Message, fields...)
}

func (b *Builder) createTable(s parser.CreateTable) {
	if existing := b.schema.FindTable(s.Table); existing != nil {
		if s.IfNotExists {
			b.report(SeverityDebug, KindDuplicateTable, existing.Name, "table already exists, IF NOT EXISTS given")
			return
		}
		b.report(SeverityWarning, KindDuplicateTable, existing.Name, "table already exists")
		return
	}

	if s.Like != "" {
		b.createTableLike(s.Table, s.Like)
		return
	}

	table := core.NewTable(s.Table)
	var defs []parser.ColumnDef
	for _, def := range s.Columns {
		if table.FindColumn(def.Name) != nil {
			b.report(SeverityWarning, KindDuplicateColumn, table.Name, "column %q defined twice, keeping the first", def.Name)
			continue
		}
		_ = table.AddColumn(newColumn(def))
		defs = append(defs, def)
	}

	// Inline constraints are resolved once every column exists, so the table
	// can reference itself.
	for _, def := range defs {
		b.applyInlineConstraints(table, def)
	}
	for _, c := range s.Constraints {
		b.applyConstraint(table, c)
	}

	// the name was checked above
	_ = b.schema.AddTable(table)
	b.logger.Debug("table created", zap.String("table", table.Name), zap.Int("columns", len(table.Columns)))
}

func (b *Builder) createTableLike(name, source string) {
	src := b.schema.FindTable(source)
	if src == nil {
		b.report(SeverityWarning, KindMissingTable, name, "LIKE source table %q does not exist", source)
		return
	}
	table := src.Clone()
	table.Name = name
	table.ForeignKeys = []*core.ForeignKey{}
	if pk := table.PrimaryKey(); pk != nil {
		pk.ConstraintName = core.ConstraintName(b.dialect, core.KindPrimaryKey, name, pk.Columns, 0)
	}
	_ = b.schema.AddTable(table)
}

func newColumn(def parser.ColumnDef) *core.Column {
	constraints := def.Constraints
	if constraints == nil {
		constraints = []string{}
	}
	return &core.Column{Name: def.Name, Type: def.Type, Constraints: constraints}
}

func (b *Builder) applyInlineConstraints(table *core.Table, def parser.ColumnDef) {
	if def.PrimaryKey {
		b.addPrimaryKey(table, "", []string{def.Name})
	}
	if def.Reference != nil {
		b.addForeignKey(table, "", []string{def.Name}, def.Reference)
	}
}

func (b *Builder) applyConstraint(table *core.Table, c parser.ConstraintDef) {
	switch c.Type {
	case parser.ConstraintPrimaryKey:
		b.addPrimaryKey(table, c.Name, c.Columns)
	case parser.ConstraintForeignKey:
		b.addForeignKey(table, c.Name, c.Columns, c.Reference)
	}
}

func (b *Builder) addPrimaryKey(table *core.Table, name string, columns []string) {
	if pk := table.PrimaryKey(); pk != nil {
		b.report(SeverityWarning, KindDuplicatePK, table.Name,
			"table already has primary key %q, ignoring PRIMARY KEY (%s)", pk.ConstraintName, strings.Join(columns, ", "))
		return
	}
	if len(columns) == 0 {
		b.report(SeverityWarning, KindInvalidConstraint, table.Name, "primary key without columns")
		return
	}
	if missing := table.MissingColumns(columns); len(missing) > 0 {
		b.report(SeverityWarning, KindMissingColumn, table.Name,
			"primary key column(s) %s do not exist", strings.Join(missing, ", "))
		return
	}
	if name == "" {
		name = core.ConstraintName(b.dialect, core.KindPrimaryKey, table.Name, columns, 0)
	}
	table.PrimaryKeys = append(table.PrimaryKeys, &core.PrimaryKey{
		Columns:        canonicalColumns(table, columns),
		ConstraintName: name,
	})
}

// addForeignKey validates and appends a foreign key. table may not be in the
// schema yet when called from CREATE TABLE.
func (b *Builder) addForeignKey(table *core.Table, name string, columns []string, ref *parser.ReferenceDef) {
	if ref == nil || len(columns) == 0 {
		b.report(SeverityWarning, KindInvalidConstraint, table.Name, "foreign key without columns or reference")
		return
	}
	if missing := table.MissingColumns(columns); len(missing) > 0 {
		b.report(SeverityWarning, KindMissingColumn, table.Name,
			"foreign key column(s) %s do not exist", strings.Join(missing, ", "))
		return
	}

	target := b.schema.FindTable(ref.Table)
	if target == nil && core.SameName(ref.Table, table.Name) {
		target = table
	}
	if target == nil {
		b.report(SeverityWarning, KindMissingTable, table.Name,
			"foreign key references missing table %q", ref.Table)
		return
	}

	refColumns := ref.Columns
	if len(refColumns) == 0 {
		pk := target.PrimaryKey()
		if pk == nil {
			b.report(SeverityWarning, KindInvalidConstraint, table.Name,
				"foreign key references %q without columns and it has no primary key", target.Name)
			return
		}
		refColumns = pk.Columns
	}
	if len(refColumns) != len(columns) {
		b.report(SeverityWarning, KindInvalidConstraint, table.Name,
			"foreign key has %d columns but references %d", len(columns), len(refColumns))
		return
	}
	if missing := target.MissingColumns(refColumns); len(missing) > 0 {
		b.report(SeverityWarning, KindMissingColumn, table.Name,
			"foreign key references missing column(s) %s.%s", target.Name, strings.Join(missing, ", "))
		return
	}
	for i, local := range columns {
		lc, rc := table.FindColumn(local), target.FindColumn(refColumns[i])
		if lc.Type != rc.Type {
			b.report(SeverityWarning, KindTypeMismatch, table.Name,
				"foreign key column %s (%s) does not match %s.%s (%s)", lc.Name, lc.Type, target.Name, rc.Name, rc.Type)
			return
		}
	}

	if name != "" && table.FindForeignKey(name) != nil {
		b.report(SeverityWarning, KindDuplicateName, table.Name, "foreign key %q already exists", name)
		return
	}
	if name == "" {
		name = b.foreignKeyName(table.Name, columns)
	}

	table.ForeignKeys = append(table.ForeignKeys, &core.ForeignKey{
		Columns: canonicalColumns(table, columns),
		References: core.Reference{
			Table:   target.Name,
			Columns: canonicalColumns(target, refColumns),
		},
		ConstraintName: name,
		Cascade:        ref.Cascade,
	})
}

func (b *Builder) foreignKeyName(table string, columns []string) string {
	seq := 0
	if core.NumbersForeignKeys(b.dialect) {
		k := strings.ToLower(table)
		b.fkSeq[k]++
		seq = b.fkSeq[k]
	}
	return core.ConstraintName(b.dialect, core.KindForeignKey, table, columns, seq)
}

// canonicalColumns returns the declared spelling of each column name.
func canonicalColumns(table *core.Table, names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = n
		if c := table.FindColumn(n); c != nil {
			out[i] = c.Name
		}
	}
	return out
}

func (b *Builder) dropTables(s parser.DropTable) {
	for _, name := range s.Tables {
		b.dropTable(name, s.IfExists)
	}
}

func (b *Builder) dropTable(name string, ifExists bool) {
	table := b.schema.FindTable(name)
	if table == nil {
		if ifExists {
			b.report(SeverityDebug, KindMissingTable, name, "table does not exist, IF EXISTS given")
			return
		}
		b.report(SeverityWarning, KindMissingTable, name, "cannot drop missing table")
		return
	}

	var refs []core.ForeignKeyRef
	for _, ref := range b.schema.ReferencesTo(table.Name) {
		if ref.Table == table {
			continue
		}
		if !ref.ForeignKey.Cascade {
			b.report(SeverityWarning, KindCascadeForbidden, table.Name,
				"referenced by %s.%s without ON DELETE CASCADE", ref.Table.Name, ref.ForeignKey.ConstraintName)
			return
		}
		refs = append(refs, ref)
	}

	for _, ref := range refs {
		removeForeignKeys(ref.Table, func(fk *core.ForeignKey) bool { return fk == ref.ForeignKey })
	}
	b.schema.RemoveTable(table.Name)
	delete(b.fkSeq, strings.ToLower(table.Name))
	b.logger.Debug("table dropped", zap.String("table", table.Name), zap.Int("cascaded", len(refs)))
}

func (b *Builder) renameTable(from, to string) {
	table := b.schema.FindTable(from)
	if table == nil {
		b.report(SeverityWarning, KindMissingTable, from, "cannot rename missing table")
		return
	}
	if other := b.schema.FindTable(to); other != nil && other != table {
		b.report(SeverityWarning, KindDuplicateTable, from, "cannot rename to %q: table already exists", to)
		return
	}

	oldName := table.Name
	_ = b.schema.RenameTable(oldName, to)
	for _, ref := range b.schema.ReferencesTo(oldName) {
		ref.ForeignKey.References.Table = to
	}
	if seq, ok := b.fkSeq[strings.ToLower(oldName)]; ok {
		delete(b.fkSeq, strings.ToLower(oldName))
		b.fkSeq[strings.ToLower(to)] = seq
	}
}

func removeForeignKeys(table *core.Table, drop func(*core.ForeignKey) bool) int {
	kept := make([]*core.ForeignKey, 0, len(table.ForeignKeys))
	for _, fk := range table.ForeignKeys {
		if !drop(fk) {
			kept = append(kept, fk)
		}
	}
	removed := len(table.ForeignKeys) - len(kept)
	table.ForeignKeys = kept
	return removed
}
