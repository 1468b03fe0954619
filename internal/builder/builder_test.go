package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"sqlerd/internal/core"
	"sqlerd/internal/parser"
)

const scenarioA = `CREATE TABLE a(id INT PRIMARY KEY);
CREATE TABLE b(id INT PRIMARY KEY, a_id INT REFERENCES a(id));`

func build(t *testing.T, sql string) *Builder {
	t.Helper()
	b := New(zaptest.NewLogger(t))
	apply(t, b, sql)
	return b
}

func apply(t *testing.T, b *Builder, sql string) {
	t.Helper()
	p, err := parser.NewProber(parser.DefaultOptions())
	require.NoError(t, err)
	b.ApplyAll(p.ParseAll(sql))
	require.NoError(t, b.Schema().Validate(), "referential invariant")
}

func warningKinds(b *Builder) []Kind {
	var kinds []Kind
	for _, d := range Warnings(b.Diagnostics()) {
		kinds = append(kinds, d.Kind)
	}
	return kinds
}

func TestScenarioA(t *testing.T) {
	b := build(t, scenarioA)
	s := b.Schema()

	require.Equal(t, 2, s.Len())
	assert.Empty(t, b.Diagnostics())

	tb := s.FindTable("b")
	require.Len(t, tb.ForeignKeys, 1)
	fk := tb.ForeignKeys[0]
	assert.Equal(t, []string{"a_id"}, fk.Columns)
	assert.Equal(t, core.Reference{Table: "a", Columns: []string{"id"}}, fk.References)
	assert.Equal(t, "b_ibfk_1", fk.ConstraintName)
	assert.False(t, fk.Cascade)
	assert.False(t, tb.InPrimaryKey("a_id"))

	require.NotNil(t, tb.PrimaryKey())
	assert.Equal(t, "PRIMARY", tb.PrimaryKey().ConstraintName)
	assert.Equal(t, []string{"PRIMARY KEY"}, tb.FindColumn("id").Constraints)
}

func TestScenarioBDropRejectedWithoutCascade(t *testing.T) {
	b := build(t, scenarioA)
	before := b.Schema().Clone()

	apply(t, b, "DROP TABLE a;")

	assert.Equal(t, []Kind{KindCascadeForbidden}, warningKinds(b))
	assert.Equal(t, before, b.Schema())
}

func TestScenarioCDropWithCascade(t *testing.T) {
	b := build(t, `CREATE TABLE a(id INT PRIMARY KEY);
		CREATE TABLE b(id INT PRIMARY KEY, a_id INT REFERENCES a(id) ON DELETE CASCADE);
		DROP TABLE a;`)

	s := b.Schema()
	require.Equal(t, 1, s.Len())
	assert.Equal(t, "b", s.Tables[0].Name)
	assert.Empty(t, s.Tables[0].ForeignKeys)
	assert.Empty(t, s.ReferencesTo("a"))
	assert.Empty(t, warningKinds(b))
}

func TestScenarioDRenameColumn(t *testing.T) {
	b := build(t, scenarioA+"ALTER TABLE b RENAME COLUMN a_id TO owner_id;")

	tb := b.Schema().FindTable("b")
	assert.NotNil(t, tb.FindColumn("owner_id"))
	assert.Nil(t, tb.FindColumn("a_id"))
	assert.Equal(t, []string{"owner_id"}, tb.ForeignKeys[0].Columns)
	assert.Equal(t, []string{"id"}, b.Schema().FindTable("a").PrimaryKey().Columns)
}

func TestRenameReferencedColumnPropagates(t *testing.T) {
	b := build(t, scenarioA+"ALTER TABLE a RENAME COLUMN id TO a_key;")

	assert.Equal(t, []string{"a_key"}, b.Schema().FindTable("a").PrimaryKey().Columns)
	assert.Equal(t, []string{"a_key"}, b.Schema().FindTable("b").ForeignKeys[0].References.Columns)
}

func TestDropCascadeInvariant(t *testing.T) {
	tests := []struct {
		name     string
		cascades []bool
		dropped  bool
	}{
		{name: "no references", cascades: nil, dropped: true},
		{name: "all cascade", cascades: []bool{true, true}, dropped: true},
		{name: "one without cascade", cascades: []bool{true, false}, dropped: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(nil)
			b.Apply(0, parsedOf(core.DialectMySQL, createTable("p", "id")))
			for i, cascade := range tt.cascades {
				child := createTable(string(rune('c'+i)), "id")
				child.Columns = append(child.Columns, parser.ColumnDef{
					Name: "p_id", Type: "INT",
					Reference: &parser.ReferenceDef{Table: "p", Columns: []string{"id"}, Cascade: cascade},
				})
				b.Apply(i+1, parsedOf(core.DialectMySQL, child))
			}
			b.Apply(9, parsedOf(core.DialectMySQL, parser.DropTable{Tables: []string{"p"}}))

			require.NoError(t, b.Schema().Validate())
			assert.Equal(t, !tt.dropped, b.Schema().FindTable("p") != nil)
			if tt.dropped {
				assert.Empty(t, b.Schema().ReferencesTo("p"))
			} else {
				assert.Len(t, b.Schema().ReferencesTo("p"), len(tt.cascades))
			}
		})
	}
}

func TestConstraintNamingPostgres(t *testing.T) {
	b := build(t, `CREATE TABLE "Users" ("id" SERIAL PRIMARY KEY);
		CREATE TABLE "Orders" ("id" SERIAL, "user_id" INTEGER REFERENCES "Users"("id"), PRIMARY KEY ("id"));`)

	orders := b.Schema().FindTable("orders")
	require.NotNil(t, orders)
	assert.Equal(t, "orders_pkey", orders.PrimaryKey().ConstraintName)
	require.Len(t, orders.ForeignKeys, 1)
	assert.Equal(t, "orders_user_id_fkey", orders.ForeignKeys[0].ConstraintName)
	assert.Equal(t, "Users", orders.ForeignKeys[0].References.Table)
	assert.Equal(t, "users_pkey", b.Schema().FindTable("users").PrimaryKey().ConstraintName)
}

func TestConstraintNamingMySQLSequencePerTable(t *testing.T) {
	b := build(t, `CREATE TABLE a (id INT PRIMARY KEY);
		CREATE TABLE b (id INT, x INT, y INT,
			FOREIGN KEY (x) REFERENCES a (id),
			CONSTRAINT named FOREIGN KEY (y) REFERENCES a (id),
			FOREIGN KEY (id) REFERENCES a (id));
		CREATE TABLE c (id INT, FOREIGN KEY (id) REFERENCES a (id));`)

	var names []string
	for _, fk := range b.Schema().FindTable("b").ForeignKeys {
		names = append(names, fk.ConstraintName)
	}
	assert.Equal(t, []string{"b_ibfk_1", "named", "b_ibfk_2"}, names)
	assert.Equal(t, "c_ibfk_1", b.Schema().FindTable("c").ForeignKeys[0].ConstraintName)
}

func TestForeignKeyRejections(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		kind Kind
	}{
		{
			name: "type mismatch",
			sql:  "CREATE TABLE b (id INT, a_id VARCHAR(10) REFERENCES a (id))",
			kind: KindTypeMismatch,
		},
		{
			name: "missing referenced table",
			sql:  "CREATE TABLE b (id INT, x_id INT REFERENCES x (id))",
			kind: KindMissingTable,
		},
		{
			name: "missing referenced column",
			sql:  "CREATE TABLE b (id INT, a_id INT REFERENCES a (nope))",
			kind: KindMissingColumn,
		},
		{
			name: "missing local column",
			sql:  "CREATE TABLE b (id INT, FOREIGN KEY (nope) REFERENCES a (id))",
			kind: KindMissingColumn,
		},
		{
			name: "arity mismatch",
			sql:  "CREATE TABLE b (id INT, FOREIGN KEY (id) REFERENCES a (id, name))",
			kind: KindInvalidConstraint,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := build(t, "CREATE TABLE a (id INT PRIMARY KEY, name TEXT);"+tt.sql)

			tb := b.Schema().FindTable("b")
			require.NotNil(t, tb, "the statement's other effects still apply")
			assert.Empty(t, tb.ForeignKeys)
			assert.Equal(t, []Kind{tt.kind}, warningKinds(b))
			assert.Equal(t, 1, b.Diagnostics()[0].Statement)
			assert.Equal(t, "b", b.Diagnostics()[0].Table)
		})
	}
}

func TestCreateTableDuplicates(t *testing.T) {
	b := build(t, `CREATE TABLE a (id INT PRIMARY KEY, id TEXT, x INT, PRIMARY KEY (x));
		CREATE TABLE a (z INT);
		CREATE TABLE IF NOT EXISTS a (z INT);`)

	a := b.Schema().FindTable("a")
	require.Len(t, a.Columns, 2)
	assert.Equal(t, "INT", a.Columns[0].Type)
	assert.Equal(t, []string{"id"}, a.PrimaryKey().Columns)
	assert.Len(t, a.PrimaryKeys, 1)
	assert.Equal(t, []Kind{KindDuplicateColumn, KindDuplicatePK, KindDuplicateTable}, warningKinds(b))

	last := b.Diagnostics()[len(b.Diagnostics())-1]
	assert.Equal(t, SeverityDebug, last.Severity)
	assert.Equal(t, 2, last.Statement)
}

func TestSelfReference(t *testing.T) {
	b := build(t, "CREATE TABLE emp (id INT PRIMARY KEY, boss_id INT REFERENCES emp (id));")

	emp := b.Schema().FindTable("emp")
	require.Len(t, emp.ForeignKeys, 1)
	assert.Equal(t, "emp", emp.ForeignKeys[0].References.Table)

	apply(t, b, "DROP TABLE emp;")
	assert.Equal(t, 0, b.Schema().Len())
}

func TestCreateTableLike(t *testing.T) {
	b := build(t, scenarioA+"CREATE TABLE b2 LIKE b; CREATE TABLE z LIKE missing;")

	b2 := b.Schema().FindTable("b2")
	require.NotNil(t, b2)
	assert.Len(t, b2.Columns, 2)
	assert.Equal(t, []string{"id"}, b2.PrimaryKey().Columns)
	assert.Empty(t, b2.ForeignKeys)
	assert.Nil(t, b.Schema().FindTable("z"))
	assert.Equal(t, []Kind{KindMissingTable}, warningKinds(b))
}

func TestDropTableVariants(t *testing.T) {
	b := build(t, `CREATE TABLE a (id INT); CREATE TABLE b (id INT);
		DROP TABLE IF EXISTS a, nope, b;
		DROP TABLE gone;`)

	assert.Equal(t, 0, b.Schema().Len())
	assert.Equal(t, []Kind{KindMissingTable}, warningKinds(b))
	assert.Len(t, b.Diagnostics(), 2)
}

func TestRenameTable(t *testing.T) {
	b := build(t, scenarioA+"RENAME TABLE a TO parent; ALTER TABLE b RENAME TO child;")

	s := b.Schema()
	assert.Nil(t, s.FindTable("a"))
	child := s.FindTable("child")
	require.NotNil(t, child)
	assert.Equal(t, "parent", child.ForeignKeys[0].References.Table)
	assert.Equal(t, 1, s.IndexOf("child"))

	apply(t, b, "RENAME TABLE parent TO child;")
	assert.Equal(t, []Kind{KindDuplicateTable}, warningKinds(b))
}

func TestRenameTableKeepsForeignKeySequence(t *testing.T) {
	b := build(t, scenarioA+"ALTER TABLE b RENAME TO c; ALTER TABLE c ADD FOREIGN KEY (id) REFERENCES a (id);")
	var names []string
	for _, fk := range b.Schema().FindTable("c").ForeignKeys {
		names = append(names, fk.ConstraintName)
	}
	assert.Equal(t, []string{"b_ibfk_1", "c_ibfk_2"}, names)
}

func TestAlterAddConstraints(t *testing.T) {
	b := build(t, `CREATE TABLE a (id INT);
		CREATE TABLE b (id INT, a_id INT);
		ALTER TABLE a ADD CONSTRAINT a_pk PRIMARY KEY (id);
		ALTER TABLE a ADD PRIMARY KEY (id);
		ALTER TABLE b ADD PRIMARY KEY (nope);
		ALTER TABLE b ADD CONSTRAINT fk_a FOREIGN KEY (a_id) REFERENCES a (id) ON DELETE CASCADE;
		ALTER TABLE b ADD COLUMN c_id INT REFERENCES a (id), ADD COLUMN a_id TEXT;
		ALTER TABLE nope ADD COLUMN x INT;`)

	a := b.Schema().FindTable("a")
	assert.Equal(t, "a_pk", a.PrimaryKey().ConstraintName)

	tb := b.Schema().FindTable("b")
	assert.Nil(t, tb.PrimaryKey())
	require.Len(t, tb.ForeignKeys, 2)
	assert.Equal(t, "fk_a", tb.ForeignKeys[0].ConstraintName)
	assert.True(t, tb.ForeignKeys[0].Cascade)
	assert.Equal(t, []string{"c_id"}, tb.ForeignKeys[1].Columns)
	assert.Len(t, tb.Columns, 3)

	assert.Equal(t, []Kind{KindDuplicatePK, KindMissingColumn, KindDuplicateColumn, KindMissingTable}, warningKinds(b))
}

func TestAlterDropColumnCascades(t *testing.T) {
	b := build(t, scenarioA+`CREATE TABLE c (id INT, a_id INT, b_id INT,
			FOREIGN KEY (a_id) REFERENCES a (id), FOREIGN KEY (b_id) REFERENCES b (id));
		ALTER TABLE a DROP COLUMN id;`)

	s := b.Schema()
	assert.Nil(t, s.FindTable("a").PrimaryKey())
	assert.Empty(t, s.FindTable("b").ForeignKeys)
	c := s.FindTable("c")
	require.Len(t, c.ForeignKeys, 1)
	assert.Equal(t, "b", c.ForeignKeys[0].References.Table)

	apply(t, b, "ALTER TABLE c DROP COLUMN b_id; ALTER TABLE c DROP COLUMN nope;")
	assert.Empty(t, c.ForeignKeys)
	assert.Equal(t, []Kind{KindMissingColumn}, warningKinds(b))
}

func TestAlterDropConstraints(t *testing.T) {
	b := build(t, scenarioA+`ALTER TABLE b DROP FOREIGN KEY b_ibfk_1;
		ALTER TABLE b DROP FOREIGN KEY b_ibfk_1;
		ALTER TABLE a DROP PRIMARY KEY;
		ALTER TABLE a DROP PRIMARY KEY;`)

	assert.Empty(t, b.Schema().FindTable("b").ForeignKeys)
	assert.Nil(t, b.Schema().FindTable("a").PrimaryKey())
	assert.Equal(t, []Kind{KindMissingConstraint, KindMissingConstraint}, warningKinds(b))
}

func TestAlterDropConstraintByName(t *testing.T) {
	b := New(nil)
	b.Apply(0, parsedOf(core.DialectPostgreSQL, createTable("a", "id")))
	child := createTable("b", "id")
	child.Columns = append(child.Columns, parser.ColumnDef{
		Name: "a_id", Type: "INT", Reference: &parser.ReferenceDef{Table: "a", Columns: []string{"id"}},
	})
	b.Apply(1, parsedOf(core.DialectPostgreSQL, child))
	require.Equal(t, "b_a_id_fkey", b.Schema().FindTable("b").ForeignKeys[0].ConstraintName)

	b.Apply(2, parsedOf(core.DialectPostgreSQL, parser.AlterTable{Table: "b", Actions: []parser.AlterAction{
		parser.DropConstraint{Name: "B_A_ID_FKEY"},
		parser.DropConstraint{Name: "b_pkey"},
		parser.DropConstraint{Name: "nope"},
	}}))

	tb := b.Schema().FindTable("b")
	assert.Empty(t, tb.ForeignKeys)
	assert.Nil(t, tb.PrimaryKey())
	assert.Equal(t, []Kind{KindMissingConstraint}, warningKinds(b))
}

func TestReferenceWithoutColumnsUsesPrimaryKey(t *testing.T) {
	b := New(nil)
	b.Apply(0, parsedOf(core.DialectPostgreSQL, createTable("a", "id")))
	child := createTable("b", "id")
	child.Columns = append(child.Columns, parser.ColumnDef{
		Name: "a_id", Type: "INT", Reference: &parser.ReferenceDef{Table: "a"},
	})
	b.Apply(1, parsedOf(core.DialectPostgreSQL, child))

	fk := b.Schema().FindTable("b").ForeignKeys[0]
	assert.Equal(t, []string{"id"}, fk.References.Columns)
}

func TestAlterModifyColumn(t *testing.T) {
	b := build(t, scenarioA+`ALTER TABLE b MODIFY COLUMN a_id BIGINT;
		ALTER TABLE b MODIFY COLUMN a_id INT NOT NULL;
		ALTER TABLE a CHANGE id id BIGINT;
		ALTER TABLE b CHANGE a_id parent_id INT;`)

	tb := b.Schema().FindTable("b")
	col := tb.FindColumn("parent_id")
	require.NotNil(t, col)
	assert.Equal(t, "INT", col.Type)
	assert.Empty(t, col.Constraints)
	assert.Equal(t, []string{"parent_id"}, tb.ForeignKeys[0].Columns)
	assert.Equal(t, "INT", b.Schema().FindTable("a").FindColumn("id").Type)
	assert.Equal(t, []Kind{KindTypeMismatch, KindTypeMismatch}, warningKinds(b))
}

func TestAlterModifyColumnRestatesReference(t *testing.T) {
	b := build(t, `CREATE TABLE a(id INT PRIMARY KEY);
		CREATE TABLE b(a_id INT PRIMARY KEY REFERENCES a(id));
		ALTER TABLE b MODIFY a_id INT REFERENCES a(id) ON DELETE CASCADE;`)

	tb := b.Schema().FindTable("b")
	require.Len(t, tb.ForeignKeys, 1)
	fk := tb.ForeignKeys[0]
	assert.Equal(t, "b_ibfk_1", fk.ConstraintName)
	assert.Equal(t, core.Reference{Table: "a", Columns: []string{"id"}}, fk.References)
	assert.True(t, fk.Cascade)
	assert.Empty(t, warningKinds(b))
}

func TestAlterModifyColumnRetargetsReference(t *testing.T) {
	b := build(t, `CREATE TABLE a(id INT PRIMARY KEY);
		CREATE TABLE c(id INT PRIMARY KEY);
		CREATE TABLE b(id INT PRIMARY KEY, x INT, a_id INT, FOREIGN KEY (x) REFERENCES c(id), FOREIGN KEY (a_id) REFERENCES a(id));
		ALTER TABLE b CHANGE a_id owner_id INT REFERENCES c(id);
		ALTER TABLE b MODIFY x INT REFERENCES missing(id);`)

	tb := b.Schema().FindTable("b")
	require.Len(t, tb.ForeignKeys, 2)
	assert.Equal(t, []string{"x"}, tb.ForeignKeys[0].Columns)
	assert.Equal(t, "c", tb.ForeignKeys[0].References.Table)
	assert.Equal(t, "b_ibfk_2", tb.ForeignKeys[1].ConstraintName)
	assert.Equal(t, []string{"owner_id"}, tb.ForeignKeys[1].Columns)
	assert.Equal(t, "c", tb.ForeignKeys[1].References.Table)
	assert.Equal(t, []Kind{KindMissingTable}, warningKinds(b))
}

func TestParseErrorsAndIgnoredStatements(t *testing.T) {
	b := build(t, `CREATE TABLE a (id INT); this is not sql; INSERT INTO a VALUES (1); CREATE TABLE b (id INT);`)

	assert.Equal(t, 2, b.Schema().Len())
	diags := b.Diagnostics()
	require.Len(t, diags, 2)
	assert.Equal(t, KindParse, diags[0].Kind)
	assert.Equal(t, 1, diags[0].Statement)
	assert.Equal(t, KindIgnored, diags[1].Kind)
	assert.Equal(t, SeverityDebug, diags[1].Severity)
}

func TestNewWithSchemaContinuesSequence(t *testing.T) {
	s := build(t, scenarioA).Schema()
	b := NewWithSchema(s, nil)
	apply(t, b, "ALTER TABLE b ADD FOREIGN KEY (id) REFERENCES a (id);")
	assert.Equal(t, "b_ibfk_2", s.FindTable("b").ForeignKeys[1].ConstraintName)
}

func TestDiagnosticString(t *testing.T) {
	d := Diagnostic{Kind: KindMissingTable, Statement: 2, Table: "b", Message: "gone"}
	assert.Equal(t, "statement 3: missing_table: table b: gone", d.String())
	d.Table = ""
	assert.Equal(t, "statement 3: missing_table: gone", d.String())
}

func parsedOf(d core.Dialect, stmts ...parser.Statement) parser.Parsed {
	return parser.Parsed{Dialect: d, Statements: stmts}
}

func createTable(name, pk string) parser.CreateTable {
	return parser.CreateTable{
		Table:   name,
		Columns: []parser.ColumnDef{{Name: pk, Type: "INT", PrimaryKey: true}},
	}
}
