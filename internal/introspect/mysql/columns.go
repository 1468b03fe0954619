package mysql

import "sqlerd/internal/introspect"

func introspectColumns(ic *introspectCtx, t *introspect.TableInfo) error {
	rows, err := ic.db.QueryContext(ic.ctx, `
		SELECT
			c.column_name,
			c.column_type,
			c.is_nullable
		FROM information_schema.columns c
		WHERE c.table_schema = DATABASE() AND c.table_name = ?
		ORDER BY c.ordinal_position
	`, t.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name, colType, nullable string
		if err := rows.Scan(&name, &colType, &nullable); err != nil {
			return err
		}
		t.Columns = append(t.Columns, introspect.ColumnInfo{
			Name:     name,
			Type:     colType,
			Nullable: nullable == "YES",
		})
	}

	return rows.Err()
}
