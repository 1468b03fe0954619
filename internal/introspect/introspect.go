// Package introspect reads table definitions from a live database and renders
// them as DDL text for the interpreter. Each driver lives in its own
// subpackage and registers itself on import.
package introspect

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"

	"sqlerd/internal/core"
)

// Driver names a database family.
type Driver string

const (
	DriverMySQL    Driver = "mysql"
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

// ParseDriver resolves a user supplied driver name.
func ParseDriver(name string) (Driver, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mysql", "mariadb", "tidb":
		return DriverMySQL, nil
	case "postgres", "postgresql", "pg", "pgx":
		return DriverPostgres, nil
	case "sqlite", "sqlite3":
		return DriverSQLite, nil
	default:
		return "", fmt.Errorf("unsupported driver %q; use 'mysql', 'postgres', or 'sqlite'", name)
	}
}

// Introspecter reads the catalog of the database db is connected to.
type Introspecter interface {
	// SQLDriver is the database/sql driver name to open connections with.
	SQLDriver() string
	Introspect(ctx context.Context, db *sql.DB) (*Catalog, error)
}

var (
	registry = make(map[Driver]func() Introspecter)
	mu       sync.RWMutex
)

func Register(driver Driver, fn func() Introspecter) {
	mu.Lock()
	defer mu.Unlock()
	registry[driver] = fn
}

func NewIntrospecter(driver Driver) (Introspecter, error) {
	mu.RLock()
	fn, ok := registry[driver]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unsupported driver %v", driver)
	}

	return fn(), nil
}

// Open connects to dsn with the driver's database/sql driver and pings it.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	i, err := NewIntrospecter(driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(i.SQLDriver(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}
	return db, nil
}

// DDL introspects db and renders its tables as CREATE TABLE statements.
func DDL(ctx context.Context, driver Driver, db *sql.DB) (string, error) {
	i, err := NewIntrospecter(driver)
	if err != nil {
		return "", err
	}
	c, err := i.Introspect(ctx, db)
	if err != nil {
		return "", fmt.Errorf("failed to introspect %s database: %w", driver, err)
	}
	return c.DDL(), nil
}

// Catalog is the raw table list read from a database.
type Catalog struct {
	Dialect core.Dialect
	// Server describes the database product and version, when known.
	Server string
	Tables []TableInfo
}

type TableInfo struct {
	Name        string
	Columns     []ColumnInfo
	PrimaryKey  []string
	ForeignKeys []ForeignKeyInfo
}

type ColumnInfo struct {
	Name     string
	Type     string
	Nullable bool
}

type ForeignKeyInfo struct {
	Name       string
	Columns    []string
	RefTable   string
	RefColumns []string
	Cascade    bool
}

// Ordered returns the tables parents first: a table comes after every table
// it references, ties broken by name. Tables caught in a reference cycle
// follow in name order.
func (c *Catalog) Ordered() []TableInfo {
	tables := make([]TableInfo, len(c.Tables))
	copy(tables, c.Tables)
	sort.SliceStable(tables, func(i, j int) bool { return tables[i].Name < tables[j].Name })

	emitted := make(map[string]bool, len(tables))
	out := make([]TableInfo, 0, len(tables))
	for len(out) < len(tables) {
		progress := false
		for _, t := range tables {
			if emitted[t.Name] || !parentsEmitted(t, emitted) {
				continue
			}
			emitted[t.Name] = true
			out = append(out, t)
			progress = true
			break
		}
		if progress {
			continue
		}
		for _, t := range tables {
			if !emitted[t.Name] {
				emitted[t.Name] = true
				out = append(out, t)
				break
			}
		}
	}
	return out
}

func parentsEmitted(t TableInfo, emitted map[string]bool) bool {
	for _, fk := range t.ForeignKeys {
		if fk.RefTable != t.Name && !emitted[fk.RefTable] {
			return false
		}
	}
	return true
}

// DDL renders the catalog in dependency order. Foreign keys that point at a
// table not created yet (reference cycles) are added by trailing ALTER TABLE
// statements.
func (c *Catalog) DDL() string {
	q := quoter(c.Dialect)
	var sb strings.Builder
	if c.Server != "" {
		fmt.Fprintf(&sb, "-- introspected from %s\n", c.Server)
	}

	created := make(map[string]bool, len(c.Tables))
	var deferred []string
	for _, t := range c.Ordered() {
		var lines []string
		for _, col := range t.Columns {
			line := "  " + q(col.Name) + " " + col.Type
			if !col.Nullable {
				line += " NOT NULL"
			}
			lines = append(lines, line)
		}
		if len(t.PrimaryKey) > 0 {
			lines = append(lines, "  PRIMARY KEY ("+quoteAll(q, t.PrimaryKey)+")")
		}
		for _, fk := range t.ForeignKeys {
			clause := foreignKeyClause(q, fk)
			if fk.RefTable == t.Name || created[fk.RefTable] {
				lines = append(lines, "  "+clause)
				continue
			}
			deferred = append(deferred, "ALTER TABLE "+q(t.Name)+" ADD "+clause+";\n")
		}
		created[t.Name] = true

		fmt.Fprintf(&sb, "CREATE TABLE %s (\n%s\n);\n", q(t.Name), strings.Join(lines, ",\n"))
	}
	for _, stmt := range deferred {
		sb.WriteString(stmt)
	}
	return sb.String()
}

func foreignKeyClause(q func(string) string, fk ForeignKeyInfo) string {
	var sb strings.Builder
	if fk.Name != "" {
		sb.WriteString("CONSTRAINT " + q(fk.Name) + " ")
	}
	sb.WriteString("FOREIGN KEY (" + quoteAll(q, fk.Columns) + ") REFERENCES " + q(fk.RefTable))
	if len(fk.RefColumns) > 0 {
		sb.WriteString(" (" + quoteAll(q, fk.RefColumns) + ")")
	}
	if fk.Cascade {
		sb.WriteString(" ON DELETE CASCADE")
	}
	return sb.String()
}

func quoter(d core.Dialect) func(string) string {
	if d == core.DialectMySQL {
		return func(name string) string { return "`" + strings.ReplaceAll(name, "`", "``") + "`" }
	}
	return func(name string) string { return `"` + strings.ReplaceAll(name, `"`, `""`) + `"` }
}

func quoteAll(q func(string) string, names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = q(n)
	}
	return strings.Join(quoted, ", ")
}
