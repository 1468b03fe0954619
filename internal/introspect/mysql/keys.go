package mysql

import (
	"strings"

	"sqlerd/internal/introspect"
)

func introspectPrimaryKey(ic *introspectCtx, t *introspect.TableInfo) error {
	rows, err := ic.db.QueryContext(ic.ctx, `
		SELECT k.column_name
		FROM information_schema.key_column_usage k
		WHERE k.table_schema = DATABASE() AND k.table_name = ? AND k.constraint_name = 'PRIMARY'
		ORDER BY k.ordinal_position
	`, t.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return err
		}
		t.PrimaryKey = append(t.PrimaryKey, col)
	}

	return rows.Err()
}

// introspectForeignKeys reads one row per foreign key column, ordered so the
// columns of one constraint are adjacent.
func introspectForeignKeys(ic *introspectCtx, t *introspect.TableInfo) error {
	rows, err := ic.db.QueryContext(ic.ctx, `
		SELECT
			k.constraint_name,
			k.column_name,
			k.referenced_table_name,
			k.referenced_column_name,
			r.delete_rule
		FROM information_schema.key_column_usage k
		JOIN information_schema.referential_constraints r
			ON r.constraint_schema = k.constraint_schema
			AND r.constraint_name = k.constraint_name
			AND r.table_name = k.table_name
		WHERE k.table_schema = DATABASE() AND k.table_name = ? AND k.referenced_table_name IS NOT NULL
		ORDER BY k.constraint_name, k.ordinal_position
	`, t.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name, col, refTable, refCol, deleteRule string
		if err := rows.Scan(&name, &col, &refTable, &refCol, &deleteRule); err != nil {
			return err
		}

		n := len(t.ForeignKeys)
		if n == 0 || t.ForeignKeys[n-1].Name != name {
			t.ForeignKeys = append(t.ForeignKeys, introspect.ForeignKeyInfo{
				Name:     name,
				RefTable: refTable,
				Cascade:  strings.EqualFold(deleteRule, "CASCADE"),
			})
			n++
		}
		fk := &t.ForeignKeys[n-1]
		fk.Columns = append(fk.Columns, col)
		fk.RefColumns = append(fk.RefColumns, refCol)
	}

	return rows.Err()
}
