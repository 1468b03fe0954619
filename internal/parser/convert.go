package parser

import (
	"fmt"
	"strings"

	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/pingcap/tidb/pkg/parser/format"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"
)

const restoreFlags = format.RestoreStringSingleQuotes | format.RestoreKeyWordUppercase

func convert(node ast.StmtNode) Statement {
	switch stmt := node.(type) {
	case *ast.CreateTableStmt:
		return convertCreateTable(stmt)
	case *ast.AlterTableStmt:
		return convertAlterTable(stmt)
	case *ast.DropTableStmt:
		if stmt.IsView {
			return Ignored{Kind: "DROP VIEW"}
		}
		drop := DropTable{IfExists: stmt.IfExists}
		for _, t := range stmt.Tables {
			drop.Tables = append(drop.Tables, t.Name.O)
		}
		return drop
	case *ast.RenameTableStmt:
		rename := RenameTables{}
		for _, pair := range stmt.TableToTables {
			rename.Renames = append(rename.Renames, TableRename{
				From: pair.OldTable.Name.O,
				To:   pair.NewTable.Name.O,
			})
		}
		return rename
	default:
		return Ignored{Kind: statementKind(node)}
	}
}

func statementKind(node ast.StmtNode) string {
	kind := fmt.Sprintf("%T", node)
	kind = strings.TrimPrefix(kind, "*ast.")
	return strings.TrimSuffix(kind, "Stmt")
}

func convertCreateTable(stmt *ast.CreateTableStmt) CreateTable {
	create := CreateTable{
		Table:       stmt.Table.Name.O,
		IfNotExists: stmt.IfNotExists,
	}
	if stmt.ReferTable != nil {
		create.Like = stmt.ReferTable.Name.O
	}
	for _, colDef := range stmt.Cols {
		create.Columns = append(create.Columns, convertColumn(colDef))
	}
	for _, c := range stmt.Constraints {
		if def, ok := convertConstraint(c); ok {
			create.Constraints = append(create.Constraints, def)
		}
	}
	return create
}

func convertAlterTable(stmt *ast.AlterTableStmt) AlterTable {
	alter := AlterTable{Table: stmt.Table.Name.O}
	for _, spec := range stmt.Specs {
		alter.Actions = append(alter.Actions, convertAlterSpec(spec)...)
	}
	return alter
}

func convertAlterSpec(spec *ast.AlterTableSpec) []AlterAction {
	switch spec.Tp {
	case ast.AlterTableAddColumns:
		var actions []AlterAction
		for _, colDef := range spec.NewColumns {
			actions = append(actions, AddColumn{Column: convertColumn(colDef)})
		}
		for _, c := range spec.NewConstraints {
			if def, ok := convertConstraint(c); ok {
				actions = append(actions, AddConstraint{Constraint: def})
			}
		}
		return actions
	case ast.AlterTableAddConstraint:
		if def, ok := convertConstraint(spec.Constraint); ok {
			return []AlterAction{AddConstraint{Constraint: def}}
		}
	case ast.AlterTableDropColumn:
		return []AlterAction{DropColumn{Name: spec.OldColumnName.Name.O}}
	case ast.AlterTableDropPrimaryKey:
		return []AlterAction{DropPrimaryKey{}}
	case ast.AlterTableDropForeignKey:
		return []AlterAction{DropForeignKey{Name: spec.Name}}
	case ast.AlterTableDropCheck:
		if spec.Constraint != nil {
			return []AlterAction{DropConstraint{Name: spec.Constraint.Name}}
		}
	case ast.AlterTableRenameColumn:
		return []AlterAction{RenameColumn{From: spec.OldColumnName.Name.O, To: spec.NewColumnName.Name.O}}
	case ast.AlterTableRenameTable:
		return []AlterAction{RenameTable{To: spec.NewTable.Name.O}}
	case ast.AlterTableModifyColumn:
		if len(spec.NewColumns) > 0 {
			col := convertColumn(spec.NewColumns[0])
			return []AlterAction{ModifyColumn{From: col.Name, Column: col}}
		}
	case ast.AlterTableChangeColumn:
		if len(spec.NewColumns) > 0 && spec.OldColumnName != nil {
			return []AlterAction{ModifyColumn{From: spec.OldColumnName.Name.O, Column: convertColumn(spec.NewColumns[0])}}
		}
	}
	return nil
}

func convertColumn(colDef *ast.ColumnDef) ColumnDef {
	col := ColumnDef{
		Name:        colDef.Name.Name.O,
		Type:        columnType(colDef),
		Constraints: []string{},
	}
	for _, opt := range colDef.Options {
		applyColumnOption(&col, opt)
	}
	return col
}

func columnType(colDef *ast.ColumnDef) string {
	if colDef.Tp == nil {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(colDef.Tp.String()))
}

func applyColumnOption(col *ColumnDef, opt *ast.ColumnOption) {
	if opt == nil {
		return
	}
	if text := restore(opt); text != "" {
		col.Constraints = append(col.Constraints, text)
	}

	switch opt.Tp {
	case ast.ColumnOptionPrimaryKey:
		col.PrimaryKey = true
	case ast.ColumnOptionReference:
		if col.Reference == nil {
			col.Reference = convertReference(opt.Refer)
		}
	}
}

func convertConstraint(c *ast.Constraint) (ConstraintDef, bool) {
	if c == nil {
		return ConstraintDef{}, false
	}
	switch c.Tp {
	case ast.ConstraintPrimaryKey:
		return ConstraintDef{
			Type:    ConstraintPrimaryKey,
			Name:    c.Name,
			Columns: keyColumns(c.Keys),
		}, true
	case ast.ConstraintForeignKey:
		return ConstraintDef{
			Type:      ConstraintForeignKey,
			Name:      c.Name,
			Columns:   keyColumns(c.Keys),
			Reference: convertReference(c.Refer),
		}, true
	default:
		return ConstraintDef{}, false
	}
}

func convertReference(refer *ast.ReferenceDef) *ReferenceDef {
	if refer == nil || refer.Table == nil {
		return nil
	}
	ref := &ReferenceDef{
		Table:   refer.Table.Name.O,
		Columns: keyColumns(refer.IndexPartSpecifications),
	}
	if refer.OnDelete != nil {
		ref.Cascade = strings.EqualFold(refer.OnDelete.ReferOpt.String(), "CASCADE")
	}
	return ref
}

func keyColumns(keys []*ast.IndexPartSpecification) []string {
	columns := make([]string, 0, len(keys))
	for _, key := range keys {
		if key.Column != nil {
			columns = append(columns, key.Column.Name.O)
		}
	}
	return columns
}

func restore(node ast.Node) string {
	var sb strings.Builder
	if err := node.Restore(format.NewRestoreCtx(restoreFlags, &sb)); err != nil {
		return ""
	}
	return strings.TrimSpace(sb.String())
}
