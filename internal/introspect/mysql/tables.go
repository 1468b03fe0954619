package mysql

import "sqlerd/internal/introspect"

func introspectTables(ic *introspectCtx, c *introspect.Catalog) error {
	rows, err := ic.db.QueryContext(ic.ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`)
	if err != nil {
		return err
	}

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return err
		}
		names = append(names, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, name := range names {
		t := introspect.TableInfo{Name: name}

		if err := introspectColumns(ic, &t); err != nil {
			return err
		}

		if err := introspectPrimaryKey(ic, &t); err != nil {
			return err
		}

		if err := introspectForeignKeys(ic, &t); err != nil {
			return err
		}

		c.Tables = append(c.Tables, t)
	}
	return nil
}
