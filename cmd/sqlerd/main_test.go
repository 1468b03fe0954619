package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const shopSQL = `
CREATE TABLE customers (id INT PRIMARY KEY, name VARCHAR(64));
CREATE TABLE orders (
	id INT PRIMARY KEY,
	customer_id INT,
	FOREIGN KEY (customer_id) REFERENCES customers(id)
);
`

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSchemaCommand(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := writeFile(t, dir, "shop.sql", shopSQL)

	stdout, _, err := run(t, "", "schema", path)
	require.NoError(t, err)

	var payload struct {
		Format string `json:"format"`
		Tables []struct {
			Name string `json:"name"`
		} `json:"tables"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &payload))
	assert.Equal(t, "json", payload.Format)
	require.Len(t, payload.Tables, 2)
	assert.Equal(t, "customers", payload.Tables[0].Name)
	assert.Equal(t, "orders", payload.Tables[1].Name)
}

func TestSchemaCommandStdin(t *testing.T) {
	t.Chdir(t.TempDir())
	stdout, _, err := run(t, shopSQL, "schema", "-", "--format", "summary")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Schema Summary")
	assert.Contains(t, stdout, "customers")
}

func TestSchemaCommandStrict(t *testing.T) {
	t.Chdir(t.TempDir())
	text := shopSQL + "ALTER TABLE missing ADD COLUMN x INT;"

	_, _, err := run(t, text, "schema", "-")
	require.NoError(t, err)

	_, _, err = run(t, text, "schema", "-", "--strict")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 statement(s) rejected")
}

func TestRenderCommand(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := writeFile(t, dir, "shop.sql", shopSQL)

	stdout, _, err := run(t, "", "render", path, "--format", "mermaid")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "erDiagram"))
	assert.Contains(t, stdout, "customers ||..o{ orders")

	out := filepath.Join(dir, "shop.drawio")
	_, stderr, err := run(t, "", "render", path, "-o", out)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Output saved to "+out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<mxfile")
	assert.Contains(t, string(data), `value="customers"`)
}

func TestRenderCommandUsesConfig(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := writeFile(t, dir, "shop.sql", shopSQL)
	writeFile(t, dir, "sqlerd.toml", "[diagram]\nformat = \"mermaid\"\nrelation_label = \"places\"\n")

	stdout, _, err := run(t, "", "render", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, `: "places"`)
}

func TestRenderWatchNeedsOutput(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := writeFile(t, dir, "shop.sql", shopSQL)

	_, _, err := run(t, "", "render", path, "--watch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--watch")
}

func TestInvalidFlags(t *testing.T) {
	t.Chdir(t.TempDir())
	tests := []struct {
		name string
		args []string
	}{
		{name: "format", args: []string{"schema", "-", "--format", "svg"}},
		{name: "dialect", args: []string{"schema", "-", "--dialect", "oracle"}},
		{name: "config", args: []string{"schema", "-", "--config", "missing.toml"}},
		{name: "missing file", args: []string{"schema", "missing.sql"}},
		{name: "introspect without dsn", args: []string{"introspect"}},
		{name: "introspect driver", args: []string{"introspect", "--driver", "oracle", "--dsn", "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, shopSQL, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestTranslationsCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	stdout, _, err := run(t, shopSQL, "translations", "-")
	require.NoError(t, err)

	var catalog struct {
		Tables map[string]struct {
			Columns   map[string]string `yaml:"columns"`
			Relations map[string]string `yaml:"relations"`
		} `yaml:"tables"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &catalog))
	require.Contains(t, catalog.Tables, "orders")
	assert.Contains(t, catalog.Tables["orders"].Columns, "customer_id")
	assert.Len(t, catalog.Tables["orders"].Relations, 1)
}

func TestIntrospectSQLite(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	dbPath := filepath.Join(dir, "shop.db")

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	for _, stmt := range strings.Split(strings.TrimSpace(shopSQL), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())

	stdout, _, err := run(t, "", "introspect", "--driver", "sqlite", "--dsn", dbPath, "--ddl")
	require.NoError(t, err)
	assert.Contains(t, stdout, `CREATE TABLE "customers"`)
	assert.Less(t, strings.Index(stdout, `"customers"`), strings.Index(stdout, `"orders"`))

	stdout, _, err = run(t, "", "introspect", "--driver", "sqlite", "--dsn", dbPath, "--format", "mermaid")
	require.NoError(t, err)
	assert.Contains(t, stdout, "customers ||..o{ orders")
}
