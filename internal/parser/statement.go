package parser

// Statement is one interpreted DDL statement. The set of variants is closed:
// CreateTable, AlterTable, DropTable, RenameTables and Ignored.
type Statement interface {
	statement()
}

// ReferenceDef is the target of a REFERENCES clause.
type ReferenceDef struct {
	Table   string
	Columns []string
	Cascade bool
}

// ColumnDef is a column definition together with its inline constraints.
type ColumnDef struct {
	Name string
	Type string
	// Constraints holds the restored text of every inline option, in order.
	Constraints []string
	PrimaryKey  bool
	Reference   *ReferenceDef
}

// ConstraintType distinguishes table-level constraints that affect the model.
type ConstraintType int

const (
	ConstraintPrimaryKey ConstraintType = iota
	ConstraintForeignKey
)

func (c ConstraintType) String() string {
	if c == ConstraintPrimaryKey {
		return "PRIMARY KEY"
	}
	return "FOREIGN KEY"
}

// ConstraintDef is a table-level PRIMARY KEY or FOREIGN KEY.
type ConstraintDef struct {
	Type      ConstraintType
	Name      string
	Columns   []string
	Reference *ReferenceDef
}

// CreateTable is CREATE TABLE, optionally in its LIKE form.
type CreateTable struct {
	Table       string
	IfNotExists bool
	Like        string
	Columns     []ColumnDef
	Constraints []ConstraintDef
}

// AlterTable carries the ordered actions of one ALTER TABLE statement.
type AlterTable struct {
	Table   string
	Actions []AlterAction
}

// AlterAction is one clause of ALTER TABLE.
type AlterAction interface {
	alterAction()
}

type (
	AddColumn struct {
		Column ColumnDef
	}
	AddConstraint struct {
		Constraint ConstraintDef
	}
	DropColumn struct {
		Name string
	}
	// DropConstraint drops a constraint of any kind by name.
	DropConstraint struct {
		Name string
	}
	DropPrimaryKey struct{}
	DropForeignKey struct {
		Name string
	}
	RenameColumn struct {
		From, To string
	}
	RenameTable struct {
		To string
	}
	// ModifyColumn redefines a column. For CHANGE COLUMN, From differs from
	// Column.Name.
	ModifyColumn struct {
		From   string
		Column ColumnDef
	}
)

// DropTable drops tables left to right.
type DropTable struct {
	Tables   []string
	IfExists bool
}

// TableRename is one pair of RENAME TABLE.
type TableRename struct {
	From, To string
}

// RenameTables is RENAME TABLE a TO b[, c TO d].
type RenameTables struct {
	Renames []TableRename
}

// Ignored is any statement that does not affect the schema model.
type Ignored struct {
	Kind string
}

func (CreateTable) statement()  {}
func (AlterTable) statement()   {}
func (DropTable) statement()    {}
func (RenameTables) statement() {}
func (Ignored) statement()      {}

func (AddColumn) alterAction()      {}
func (AddConstraint) alterAction()  {}
func (DropColumn) alterAction()     {}
func (DropConstraint) alterAction() {}
func (DropPrimaryKey) alterAction() {}
func (DropForeignKey) alterAction() {}
func (RenameColumn) alterAction()   {}
func (RenameTable) alterAction()    {}
func (ModifyColumn) alterAction()   {}
