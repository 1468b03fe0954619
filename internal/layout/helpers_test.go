package layout

import (
	"testing"

	"github.com/stretchr/testify/require"

	"sqlerd/internal/core"
)

type fkSpec struct {
	name    string
	columns []string
	table   string
	refs    []string
}

type tableSpec struct {
	name    string
	columns []string
	pk      []string
	fks     []fkSpec
}

func schemaOf(t *testing.T, specs ...tableSpec) *core.Schema {
	t.Helper()
	s := core.NewSchema()
	for _, spec := range specs {
		table := core.NewTable(spec.name)
		for _, c := range spec.columns {
			require.NoError(t, table.AddColumn(&core.Column{Name: c, Type: "INT"}))
		}
		if len(spec.pk) > 0 {
			table.PrimaryKeys = append(table.PrimaryKeys, &core.PrimaryKey{Columns: spec.pk, ConstraintName: spec.name + "_pkey"})
		}
		for _, fk := range spec.fks {
			table.ForeignKeys = append(table.ForeignKeys, &core.ForeignKey{
				Columns:        fk.columns,
				References:     core.Reference{Table: fk.table, Columns: fk.refs},
				ConstraintName: fk.name,
			})
		}
		require.NoError(t, s.AddTable(table))
	}
	return s
}

// starSchema has a hub referenced by n leaves.
func starSchema(t *testing.T, leaves int) *core.Schema {
	t.Helper()
	specs := []tableSpec{{name: "hub", columns: []string{"id"}, pk: []string{"id"}}}
	for i := 0; i < leaves; i++ {
		name := string(rune('a' + i))
		specs = append(specs, tableSpec{
			name:    name,
			columns: []string{"id", "hub_id"},
			pk:      []string{"id"},
			fks:     []fkSpec{{name: name + "_hub_fk", columns: []string{"hub_id"}, table: "hub", refs: []string{"id"}}},
		})
	}
	return schemaOf(t, specs...)
}
