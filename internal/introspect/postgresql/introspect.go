// Package postgresql introspects the current schema of a PostgreSQL database
// through the pgx database/sql driver.
package postgresql

import (
	"context"
	"database/sql"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"sqlerd/internal/core"
	"sqlerd/internal/introspect"
)

func init() {
	introspect.Register(introspect.DriverPostgres, New)
}

type postgresqlIntrospecter struct{}

func New() introspect.Introspecter {
	return &postgresqlIntrospecter{}
}

func (i *postgresqlIntrospecter) SQLDriver() string { return "pgx" }

func (i *postgresqlIntrospecter) Introspect(ctx context.Context, db *sql.DB) (*introspect.Catalog, error) {
	c := &introspect.Catalog{Dialect: core.DialectPostgreSQL}

	var version string
	if err := db.QueryRowContext(ctx, "SHOW server_version").Scan(&version); err != nil {
		return nil, err
	}
	c.Server = "PostgreSQL " + strings.Fields(version)[0]

	names, err := tableNames(ctx, db)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		t := introspect.TableInfo{Name: name}
		if err := introspectColumns(ctx, db, &t); err != nil {
			return nil, err
		}
		if err := introspectConstraints(ctx, db, &t); err != nil {
			return nil, err
		}
		c.Tables = append(c.Tables, t)
	}
	return c, nil
}

func tableNames(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func introspectColumns(ctx context.Context, db *sql.DB, t *introspect.TableInfo) error {
	rows, err := db.QueryContext(ctx, `
		SELECT a.attname, format_type(a.atttypid, a.atttypmod), NOT a.attnotnull
		FROM pg_attribute a
		JOIN pg_class c ON c.oid = a.attrelid
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = current_schema() AND c.relname = $1
			AND a.attnum > 0 AND NOT a.attisdropped
		ORDER BY a.attnum
	`, t.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var col introspect.ColumnInfo
		if err := rows.Scan(&col.Name, &col.Type, &col.Nullable); err != nil {
			return err
		}
		t.Columns = append(t.Columns, col)
	}
	return rows.Err()
}

// introspectConstraints reads the primary key and the foreign keys. Column
// lists come back comma-joined in key order.
func introspectConstraints(ctx context.Context, db *sql.DB, t *introspect.TableInfo) error {
	rows, err := db.QueryContext(ctx, `
		SELECT
			con.conname,
			con.contype::text,
			array_to_string(ARRAY(
				SELECT a.attname
				FROM unnest(con.conkey) WITH ORDINALITY AS k(attnum, ord)
				JOIN pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = k.attnum
				ORDER BY k.ord), ','),
			COALESCE(ref.relname, ''),
			array_to_string(ARRAY(
				SELECT a.attname
				FROM unnest(con.confkey) WITH ORDINALITY AS k(attnum, ord)
				JOIN pg_attribute a ON a.attrelid = con.confrelid AND a.attnum = k.attnum
				ORDER BY k.ord), ','),
			con.confdeltype::text
		FROM pg_constraint con
		JOIN pg_class c ON c.oid = con.conrelid
		JOIN pg_namespace n ON n.oid = c.relnamespace
		LEFT JOIN pg_class ref ON ref.oid = con.confrelid
		WHERE n.nspname = current_schema() AND c.relname = $1 AND con.contype IN ('p', 'f')
		ORDER BY con.contype DESC, con.conname
	`, t.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name, kind, cols, refTable, refCols, onDelete string
		if err := rows.Scan(&name, &kind, &cols, &refTable, &refCols, &onDelete); err != nil {
			return err
		}
		switch kind {
		case "p":
			t.PrimaryKey = splitNames(cols)
		case "f":
			t.ForeignKeys = append(t.ForeignKeys, introspect.ForeignKeyInfo{
				Name:       name,
				Columns:    splitNames(cols),
				RefTable:   refTable,
				RefColumns: splitNames(refCols),
				Cascade:    onDelete == "c",
			})
		}
	}
	return rows.Err()
}

func splitNames(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
