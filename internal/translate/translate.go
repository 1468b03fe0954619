// Package translate supplies localized display names for tables, columns and
// relations before entities are built. Anything without a translation keeps
// its original name.
package translate

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"sqlerd/internal/core"
)

// Translator maps schema names to display names.
type Translator interface {
	TableName(table string) string
	ColumnName(table, column string) string
	// RelationLabel returns the edge label of a foreign key owned by table.
	RelationLabel(table string, fk *core.ForeignKey) string
}

// Identity keeps every name and labels every relation with Label.
type Identity struct {
	Label string
}

func (Identity) TableName(table string) string { return table }

func (Identity) ColumnName(_, column string) string { return column }

func (i Identity) RelationLabel(string, *core.ForeignKey) string { return i.Label }

// Catalog is the YAML form of a translation file:
//
//	default_label: includes
//	tables:
//	  users:
//	    name: Пользователи
//	    columns:
//	      id: Идентификатор
//	    relations:
//	      orders_user_id_fkey: оформляет
//
// Relation keys may be a constraint name or a referenced table name.
type Catalog struct {
	DefaultLabel string                `yaml:"default_label,omitempty"`
	Tables       map[string]TableEntry `yaml:"tables"`
}

// TableEntry holds the translations of one table.
type TableEntry struct {
	Name      string            `yaml:"name"`
	Columns   map[string]string `yaml:"columns,omitempty"`
	Relations map[string]string `yaml:"relations,omitempty"`
}

// FileTranslator is a Translator backed by a Catalog. Lookups ignore case.
type FileTranslator struct {
	defaultLabel string
	tables       map[string]TableEntry
}

// NewFileTranslator indexes a catalog. fallbackLabel is used for relations
// the catalog does not label when it has no default_label of its own.
func NewFileTranslator(c *Catalog, fallbackLabel string) *FileTranslator {
	ft := &FileTranslator{
		defaultLabel: c.DefaultLabel,
		tables:       make(map[string]TableEntry, len(c.Tables)),
	}
	if ft.defaultLabel == "" {
		ft.defaultLabel = fallbackLabel
	}
	for name, entry := range c.Tables {
		ft.tables[strings.ToLower(name)] = TableEntry{
			Name:      entry.Name,
			Columns:   lowerKeys(entry.Columns),
			Relations: lowerKeys(entry.Relations),
		}
	}
	return ft
}

// Parse decodes a YAML catalog.
func Parse(r io.Reader) (*Catalog, error) {
	var c Catalog
	if err := yaml.NewDecoder(r).Decode(&c); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode translation catalog: %w", err)
	}
	return &c, nil
}

// LoadFile reads a YAML catalog from disk.
func LoadFile(path, fallbackLabel string) (*FileTranslator, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open translation file: %w", err)
	}
	defer f.Close()

	c, err := Parse(f)
	if err != nil {
		return nil, err
	}
	return NewFileTranslator(c, fallbackLabel), nil
}

func (ft *FileTranslator) TableName(table string) string {
	if e, ok := ft.tables[strings.ToLower(table)]; ok && e.Name != "" {
		return e.Name
	}
	return table
}

func (ft *FileTranslator) ColumnName(table, column string) string {
	if e, ok := ft.tables[strings.ToLower(table)]; ok {
		if name := e.Columns[strings.ToLower(column)]; name != "" {
			return name
		}
	}
	return column
}

func (ft *FileTranslator) RelationLabel(table string, fk *core.ForeignKey) string {
	if e, ok := ft.tables[strings.ToLower(table)]; ok {
		if label := e.Relations[strings.ToLower(fk.ConstraintName)]; label != "" {
			return label
		}
		if label := e.Relations[strings.ToLower(fk.References.Table)]; label != "" {
			return label
		}
	}
	return ft.defaultLabel
}

// Skeleton returns a catalog listing every table, column and relation of the
// schema with empty translations, ready to be filled in.
func Skeleton(s *core.Schema) *Catalog {
	c := &Catalog{Tables: make(map[string]TableEntry, s.Len())}
	for _, t := range s.Tables {
		entry := TableEntry{Columns: make(map[string]string, len(t.Columns))}
		for _, col := range t.Columns {
			entry.Columns[col.Name] = ""
		}
		if len(t.ForeignKeys) > 0 {
			entry.Relations = make(map[string]string, len(t.ForeignKeys))
			for _, fk := range t.ForeignKeys {
				entry.Relations[fk.ConstraintName] = ""
			}
		}
		c.Tables[t.Name] = entry
	}
	return c
}

// Write encodes the catalog as YAML.
func (c *Catalog) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to encode translation catalog: %w", err)
	}
	return enc.Close()
}

func lowerKeys(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[strings.ToLower(k)] = v
	}
	return out
}
