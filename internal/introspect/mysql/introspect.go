// Package mysql contains introspect implementation for MySQL, MariaDB and TiDB,
// since they share the wire protocol and information_schema. It detects which
// server it is talking to and reads tables, columns and keys of the current
// database.
package mysql

import (
	"context"
	"database/sql"

	_ "github.com/go-sql-driver/mysql"

	"sqlerd/internal/core"
	"sqlerd/internal/introspect"
)

func init() {
	introspect.Register(introspect.DriverMySQL, New)
}

type introspecter struct{}

type introspectCtx struct {
	db  *sql.DB
	ctx context.Context
}

func New() introspect.Introspecter {
	return &introspecter{}
}

func (i *introspecter) SQLDriver() string { return "mysql" }

func (i *introspecter) Introspect(ctx context.Context, db *sql.DB) (*introspect.Catalog, error) {
	server, err := detectServer(ctx, db)
	if err != nil {
		return nil, err
	}

	c := &introspect.Catalog{Dialect: core.DialectMySQL, Server: server}
	ic := &introspectCtx{db: db, ctx: ctx}
	if err := introspectTables(ic, c); err != nil {
		return nil, err
	}
	return c, nil
}
