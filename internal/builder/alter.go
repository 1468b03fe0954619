package builder

import (
	"slices"

	"go.uber.org/zap"

	"sqlerd/internal/core"
	"sqlerd/internal/parser"
)

func (b *Builder) alterTable(s parser.AlterTable) {
	table := b.schema.FindTable(s.Table)
	if table == nil {
		b.report(SeverityWarning, KindMissingTable, s.Table, "cannot alter missing table")
		return
	}
	for _, action := range s.Actions {
		b.alter(table, action)
	}
}

func (b *Builder) alter(table *core.Table, action parser.AlterAction) {
	switch a := action.(type) {
	case parser.AddColumn:
		b.addColumn(table, a.Column)
	case parser.AddConstraint:
		b.applyConstraint(table, a.Constraint)
	case parser.DropColumn:
		b.dropColumn(table, a.Name)
	case parser.DropConstraint:
		b.dropConstraint(table, a.Name)
	case parser.DropPrimaryKey:
		if table.PrimaryKey() == nil {
			b.report(SeverityWarning, KindMissingConstraint, table.Name, "table has no primary key to drop")
			return
		}
		table.PrimaryKeys = []*core.PrimaryKey{}
	case parser.DropForeignKey:
		if removeForeignKeys(table, func(fk *core.ForeignKey) bool { return core.SameName(fk.ConstraintName, a.Name) }) == 0 {
			b.report(SeverityWarning, KindMissingConstraint, table.Name, "foreign key %q does not exist", a.Name)
		}
	case parser.RenameColumn:
		b.renameColumn(table, a.From, a.To)
	case parser.RenameTable:
		b.renameTable(table.Name, a.To)
	case parser.ModifyColumn:
		b.modifyColumn(table, a.From, a.Column)
	}
}

func (b *Builder) addColumn(table *core.Table, def parser.ColumnDef) {
	if table.FindColumn(def.Name) != nil {
		b.report(SeverityWarning, KindDuplicateColumn, table.Name, "column %q already exists", def.Name)
		return
	}
	_ = table.AddColumn(newColumn(def))
	b.applyInlineConstraints(table, def)
}

func (b *Builder) dropColumn(table *core.Table, name string) {
	col := table.FindColumn(name)
	if col == nil {
		b.report(SeverityWarning, KindMissingColumn, table.Name, "cannot drop missing column %q", name)
		return
	}

	if table.InPrimaryKey(col.Name) {
		table.PrimaryKeys = []*core.PrimaryKey{}
		b.logger.Debug("primary key dropped with column", zap.String("table", table.Name), zap.String("column", col.Name))
	}
	removeForeignKeys(table, func(fk *core.ForeignKey) bool { return fk.Uses(col.Name) })
	for _, other := range b.schema.Tables {
		n := removeForeignKeys(other, func(fk *core.ForeignKey) bool { return fk.ReferencesColumn(table.Name, col.Name) })
		if n > 0 {
			b.logger.Debug("foreign keys dropped with referenced column",
				zap.String("table", other.Name), zap.String("column", col.Name), zap.Int("count", n))
		}
	}
	table.RemoveColumn(col.Name)
}

func (b *Builder) dropConstraint(table *core.Table, name string) {
	if pk := table.PrimaryKey(); pk != nil && core.SameName(pk.ConstraintName, name) {
		table.PrimaryKeys = []*core.PrimaryKey{}
		return
	}
	if removeForeignKeys(table, func(fk *core.ForeignKey) bool { return core.SameName(fk.ConstraintName, name) }) > 0 {
		return
	}
	b.report(SeverityWarning, KindMissingConstraint, table.Name, "constraint %q does not exist", name)
}

func (b *Builder) renameColumn(table *core.Table, from, to string) {
	col := table.FindColumn(from)
	if col == nil {
		b.report(SeverityWarning, KindMissingColumn, table.Name, "cannot rename missing column %q", from)
		return
	}
	if other := table.FindColumn(to); other != nil && other != col {
		b.report(SeverityWarning, KindDuplicateColumn, table.Name, "cannot rename %q to %q: column already exists", from, to)
		return
	}
	b.propagateColumnRename(table, col.Name, to)
	_ = table.RenameColumn(col.Name, to)
}

// propagateColumnRename rewrites every key that names table.oldName. It must
// run before the column itself is renamed.
func (b *Builder) propagateColumnRename(table *core.Table, oldName, newName string) {
	for _, pk := range table.PrimaryKeys {
		core.RenameName(pk.Columns, oldName, newName)
	}
	for _, fk := range table.ForeignKeys {
		core.RenameName(fk.Columns, oldName, newName)
	}
	for _, ref := range b.schema.ReferencesTo(table.Name) {
		core.RenameName(ref.ForeignKey.References.Columns, oldName, newName)
	}
}

// modifyColumn replaces a column definition, renaming it when from differs
// from the new name. A type change that would break the type match of any
// foreign key touching the column is rejected.
func (b *Builder) modifyColumn(table *core.Table, from string, def parser.ColumnDef) {
	col := table.FindColumn(from)
	if col == nil {
		b.report(SeverityWarning, KindMissingColumn, table.Name, "cannot modify missing column %q", from)
		return
	}
	if other := table.FindColumn(def.Name); other != nil && other != col {
		b.report(SeverityWarning, KindDuplicateColumn, table.Name, "cannot rename %q to %q: column already exists", from, def.Name)
		return
	}
	if col.Type != def.Type {
		if conflict := b.typeConflict(table, col, def.Type); conflict != "" {
			b.report(SeverityWarning, KindTypeMismatch, table.Name,
				"changing %s to %s breaks foreign key %s", col.Name, def.Type, conflict)
			return
		}
	}

	if col.Name != def.Name {
		b.propagateColumnRename(table, col.Name, def.Name)
		_ = table.RenameColumn(col.Name, def.Name)
	}
	col.Type = def.Type
	col.Constraints = newColumn(def).Constraints

	if def.PrimaryKey && table.InPrimaryKey(col.Name) {
		def.PrimaryKey = false
	}
	if def.Reference != nil {
		if fk := table.FindForeignKeyOn([]string{col.Name}); fk != nil {
			b.replaceForeignKey(table, fk, def.Reference)
			def.Reference = nil
		}
	}
	b.applyInlineConstraints(table, def)
}

// replaceForeignKey swaps fk for a key built from ref, keeping its name and
// position. fk stays when the new reference is rejected.
func (b *Builder) replaceForeignKey(table *core.Table, fk *core.ForeignKey, ref *parser.ReferenceDef) {
	at := slices.Index(table.ForeignKeys, fk)
	table.ForeignKeys = slices.Delete(table.ForeignKeys, at, at+1)

	n := len(table.ForeignKeys)
	b.addForeignKey(table, fk.ConstraintName, fk.Columns, ref)
	if len(table.ForeignKeys) == n {
		table.ForeignKeys = slices.Insert(table.ForeignKeys, at, fk)
		return
	}
	added := table.ForeignKeys[n]
	table.ForeignKeys = slices.Insert(table.ForeignKeys[:n], at, added)
}

// typeConflict returns the name of the first foreign key whose column pair
// would stop matching if col took newType, or "".
func (b *Builder) typeConflict(table *core.Table, col *core.Column, newType string) string {
	typeOf := func(t *core.Table, name string) string {
		if t == table && core.SameName(name, col.Name) {
			return newType
		}
		if c := t.FindColumn(name); c != nil {
			return c.Type
		}
		return ""
	}
	check := func(owner *core.Table, fk *core.ForeignKey) bool {
		target := b.schema.FindTable(fk.References.Table)
		if target == nil {
			return false
		}
		for i, local := range fk.Columns {
			if typeOf(owner, local) != typeOf(target, fk.References.Columns[i]) {
				return true
			}
		}
		return false
	}

	for _, fk := range table.ForeignKeys {
		if fk.Uses(col.Name) && check(table, fk) {
			return fk.ConstraintName
		}
	}
	for _, ref := range b.schema.ReferencesTo(table.Name) {
		if ref.ForeignKey.ReferencesColumn(table.Name, col.Name) && check(ref.Table, ref.ForeignKey) {
			return ref.ForeignKey.ConstraintName
		}
	}
	return ""
}
