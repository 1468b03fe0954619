// Package sqlite introspects a SQLite database through the pure Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"strings"

	_ "modernc.org/sqlite"

	"sqlerd/internal/core"
	"sqlerd/internal/introspect"
)

func init() {
	introspect.Register(introspect.DriverSQLite, New)
}

type sqliteIntrospecter struct{}

func New() introspect.Introspecter {
	return &sqliteIntrospecter{}
}

func (i *sqliteIntrospecter) SQLDriver() string { return "sqlite" }

func (i *sqliteIntrospecter) Introspect(ctx context.Context, db *sql.DB) (*introspect.Catalog, error) {
	c := &introspect.Catalog{Dialect: core.DialectGeneric}

	var version string
	if err := db.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&version); err != nil {
		return nil, err
	}
	c.Server = "SQLite " + version

	names, err := tableNames(ctx, db)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		t := introspect.TableInfo{Name: name}
		if err := introspectColumns(ctx, db, &t); err != nil {
			return nil, err
		}
		if err := introspectForeignKeys(ctx, db, &t); err != nil {
			return nil, err
		}
		c.Tables = append(c.Tables, t)
	}
	return c, nil
}

func tableNames(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
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

// introspectColumns reads table_info; its pk column is the 1-based position
// of the column in the primary key, 0 when not part of it.
func introspectColumns(ctx context.Context, db *sql.DB, t *introspect.TableInfo) error {
	rows, err := db.QueryContext(ctx, `SELECT name, type, "notnull", pk FROM pragma_table_info(?) ORDER BY cid`, t.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	var pk []string
	var pkPos []int
	for rows.Next() {
		var name, colType string
		var notNull bool
		var pos int
		if err := rows.Scan(&name, &colType, &notNull, &pos); err != nil {
			return err
		}
		if colType == "" {
			// columns declared without a type have BLOB affinity
			colType = "BLOB"
		}
		t.Columns = append(t.Columns, introspect.ColumnInfo{Name: name, Type: colType, Nullable: !notNull && pos == 0})
		if pos > 0 {
			pk = append(pk, name)
			pkPos = append(pkPos, pos)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	t.PrimaryKey = make([]string, len(pk))
	for i, name := range pk {
		t.PrimaryKey[pkPos[i]-1] = name
	}
	if len(t.PrimaryKey) == 0 {
		t.PrimaryKey = nil
	}
	return nil
}

// introspectForeignKeys groups foreign_key_list rows by id. SQLite keeps no
// constraint names; a NULL target column means the parent's primary key.
func introspectForeignKeys(ctx context.Context, db *sql.DB, t *introspect.TableInfo) error {
	rows, err := db.QueryContext(ctx,
		`SELECT id, "table", "from", "to", on_delete FROM pragma_foreign_key_list(?) ORDER BY id, seq`, t.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	lastID := -1
	implicit := false
	for rows.Next() {
		var id int
		var refTable, from, onDelete string
		var to sql.NullString
		if err := rows.Scan(&id, &refTable, &from, &to, &onDelete); err != nil {
			return err
		}
		if id != lastID {
			if implicit {
				t.ForeignKeys[len(t.ForeignKeys)-1].RefColumns = nil
			}
			t.ForeignKeys = append(t.ForeignKeys, introspect.ForeignKeyInfo{
				RefTable: refTable,
				Cascade:  strings.EqualFold(onDelete, "CASCADE"),
			})
			lastID, implicit = id, false
		}
		fk := &t.ForeignKeys[len(t.ForeignKeys)-1]
		fk.Columns = append(fk.Columns, from)
		fk.RefColumns = append(fk.RefColumns, to.String)
		implicit = implicit || !to.Valid || to.String == ""
	}
	if implicit {
		t.ForeignKeys[len(t.ForeignKeys)-1].RefColumns = nil
	}
	return rows.Err()
}
