// Package core contains the single source of truth for an interpreted schema.
// It provides a structured representation of tables, columns, primary keys and
// foreign keys, shared by the DDL interpreter that builds it and the layout
// engine that draws it.
package core

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Schema is an ordered list of tables. Insertion order is significant: the
// layout engine uses it as a deterministic tie-break.
type Schema struct {
	Tables []*Table

	byName map[string]*Table
}

// Table represents a table in the schema.
type Table struct {
	Name        string        `json:"name"`
	Columns     []*Column     `json:"columns"`
	PrimaryKeys []*PrimaryKey `json:"primary_keys"`
	ForeignKeys []*ForeignKey `json:"foreign_keys"`

	byName map[string]*Column
}

// Column represents a single column inside a table. Type is an opaque token
// compared only for equality.
type Column struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Constraints []string `json:"constraints"`
}

// PrimaryKey lists the columns of the table's primary key. A table owns at
// most one; the JSON form keeps it in a list for compatibility with
// consumers of the table-list format.
type PrimaryKey struct {
	Columns        []string `json:"columns"`
	ConstraintName string   `json:"constraint_name"`
}

// ForeignKey is owned by the referencing table.
type ForeignKey struct {
	Columns        []string  `json:"columns"`
	References     Reference `json:"references"`
	ConstraintName string    `json:"constraint_name"`
	Cascade        bool      `json:"cascade"`
}

// Reference names the referenced table and its columns.
type Reference struct {
	Table   string   `json:"table"`
	Columns []string `json:"columns"`
}

// ForeignKeyRef locates a foreign key together with the table that owns it.
type ForeignKeyRef struct {
	Table      *Table
	ForeignKey *ForeignKey
}

func key(name string) string {
	return strings.ToLower(name)
}

// SameName reports whether two identifiers name the same object.
func SameName(a, b string) bool {
	return strings.EqualFold(a, b)
}

// NewSchema returns an empty schema.
func NewSchema() *Schema {
	return &Schema{byName: make(map[string]*Table)}
}

// NewSchemaFromTables builds a schema from an ordered table list, e.g. one
// decoded from JSON. Duplicate table or column names are rejected.
func NewSchemaFromTables(tables []*Table) (*Schema, error) {
	s := NewSchema()
	for _, t := range tables {
		if t == nil {
			continue
		}
		t.normalize()
		if err := t.reindex(); err != nil {
			return nil, err
		}
		if err := s.AddTable(t); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// NewTable returns an empty table ready to receive columns.
func NewTable(name string) *Table {
	return &Table{
		Name:        name,
		Columns:     []*Column{},
		PrimaryKeys: []*PrimaryKey{},
		ForeignKeys: []*ForeignKey{},
		byName:      make(map[string]*Column),
	}
}

// Len returns the number of tables.
func (s *Schema) Len() int {
	return len(s.Tables)
}

// FindTable looks for a table by name.
func (s *Schema) FindTable(name string) *Table {
	if s.byName == nil {
		return nil
	}
	return s.byName[key(name)]
}

// IndexOf returns the insertion index of the named table, or -1.
func (s *Schema) IndexOf(name string) int {
	return slices.IndexFunc(s.Tables, func(t *Table) bool { return SameName(t.Name, name) })
}

// AddTable appends a table. It fails if the name is already taken.
func (s *Schema) AddTable(t *Table) error {
	if s.byName == nil {
		s.byName = make(map[string]*Table)
	}
	if _, ok := s.byName[key(t.Name)]; ok {
		return fmt.Errorf("table %q already exists", t.Name)
	}
	if t.byName == nil {
		if err := t.reindex(); err != nil {
			return err
		}
	}
	s.Tables = append(s.Tables, t)
	s.byName[key(t.Name)] = t
	return nil
}

// RemoveTable deletes the named table and returns it, or nil if absent.
// Foreign keys elsewhere are left untouched.
func (s *Schema) RemoveTable(name string) *Table {
	t := s.FindTable(name)
	if t == nil {
		return nil
	}
	delete(s.byName, key(name))
	s.Tables = slices.DeleteFunc(s.Tables, func(other *Table) bool { return other == t })
	return t
}

// RenameTable renames a table in place, keeping its position.
func (s *Schema) RenameTable(oldName, newName string) error {
	t := s.FindTable(oldName)
	if t == nil {
		return fmt.Errorf("table %q does not exist", oldName)
	}
	if other := s.FindTable(newName); other != nil && other != t {
		return fmt.Errorf("table %q already exists", newName)
	}
	delete(s.byName, key(oldName))
	t.Name = newName
	s.byName[key(newName)] = t
	return nil
}

// ReferencesTo returns every foreign key in the schema whose reference
// targets the named table, in table order. Self references are included.
func (s *Schema) ReferencesTo(table string) []ForeignKeyRef {
	var refs []ForeignKeyRef
	for _, t := range s.Tables {
		for _, fk := range t.ForeignKeys {
			if SameName(fk.References.Table, table) {
				refs = append(refs, ForeignKeyRef{Table: t, ForeignKey: fk})
			}
		}
	}
	return refs
}

// Clone returns a deep copy of the schema.
func (s *Schema) Clone() *Schema {
	out := NewSchema()
	for _, t := range s.Tables {
		// names are unique in s, so AddTable cannot fail
		_ = out.AddTable(t.Clone())
	}
	return out
}

// MarshalJSON encodes the schema as its ordered table list.
func (s *Schema) MarshalJSON() ([]byte, error) {
	tables := s.Tables
	if tables == nil {
		tables = []*Table{}
	}
	return json.Marshal(tables)
}

// UnmarshalJSON decodes an ordered table list and rebuilds the name indexes.
func (s *Schema) UnmarshalJSON(data []byte) error {
	var tables []*Table
	if err := json.Unmarshal(data, &tables); err != nil {
		return err
	}
	decoded, err := NewSchemaFromTables(tables)
	if err != nil {
		return err
	}
	*s = *decoded
	return nil
}

func (t *Table) normalize() {
	if t.Columns == nil {
		t.Columns = []*Column{}
	}
	if t.PrimaryKeys == nil {
		t.PrimaryKeys = []*PrimaryKey{}
	}
	if t.ForeignKeys == nil {
		t.ForeignKeys = []*ForeignKey{}
	}
	for _, c := range t.Columns {
		if c.Constraints == nil {
			c.Constraints = []string{}
		}
	}
}

func (t *Table) reindex() error {
	t.byName = make(map[string]*Column, len(t.Columns))
	for _, c := range t.Columns {
		if _, ok := t.byName[key(c.Name)]; ok {
			return fmt.Errorf("table %q: duplicate column %q", t.Name, c.Name)
		}
		t.byName[key(c.Name)] = c
	}
	return nil
}

// FindColumn looks for a column by name inside a table.
func (t *Table) FindColumn(name string) *Column {
	if t.byName == nil {
		return nil
	}
	return t.byName[key(name)]
}

// AddColumn appends a column. It fails if the name is already taken.
func (t *Table) AddColumn(c *Column) error {
	if t.byName == nil {
		t.byName = make(map[string]*Column)
	}
	if _, ok := t.byName[key(c.Name)]; ok {
		return fmt.Errorf("column %q already exists in table %q", c.Name, t.Name)
	}
	if c.Constraints == nil {
		c.Constraints = []string{}
	}
	t.Columns = append(t.Columns, c)
	t.byName[key(c.Name)] = c
	return nil
}

// RemoveColumn deletes the named column and returns it, or nil if absent.
func (t *Table) RemoveColumn(name string) *Column {
	c := t.FindColumn(name)
	if c == nil {
		return nil
	}
	delete(t.byName, key(name))
	t.Columns = slices.DeleteFunc(t.Columns, func(other *Column) bool { return other == c })
	return c
}

// RenameColumn renames a column in place, keeping its position.
func (t *Table) RenameColumn(oldName, newName string) error {
	c := t.FindColumn(oldName)
	if c == nil {
		return fmt.Errorf("column %q does not exist in table %q", oldName, t.Name)
	}
	if other := t.FindColumn(newName); other != nil && other != c {
		return fmt.Errorf("column %q already exists in table %q", newName, t.Name)
	}
	delete(t.byName, key(oldName))
	c.Name = newName
	t.byName[key(newName)] = c
	return nil
}

// MissingColumns returns the names that do not exist in the table, in order.
func (t *Table) MissingColumns(names []string) []string {
	var missing []string
	for _, n := range names {
		if t.FindColumn(n) == nil {
			missing = append(missing, n)
		}
	}
	return missing
}

// PrimaryKey returns the primary key of the table, or nil.
func (t *Table) PrimaryKey() *PrimaryKey {
	if len(t.PrimaryKeys) == 0 {
		return nil
	}
	return t.PrimaryKeys[0]
}

// InPrimaryKey reports whether the column is part of the primary key.
func (t *Table) InPrimaryKey(column string) bool {
	pk := t.PrimaryKey()
	return pk != nil && containsName(pk.Columns, column)
}

// InForeignKey reports whether the column participates in any foreign key.
func (t *Table) InForeignKey(column string) bool {
	for _, fk := range t.ForeignKeys {
		if containsName(fk.Columns, column) {
			return true
		}
	}
	return false
}

// IsDependent reports whether the table owns at least one foreign key.
func (t *Table) IsDependent() bool {
	return len(t.ForeignKeys) > 0
}

// FindForeignKey looks for a foreign key by constraint name.
func (t *Table) FindForeignKey(name string) *ForeignKey {
	for _, fk := range t.ForeignKeys {
		if SameName(fk.ConstraintName, name) {
			return fk
		}
	}
	return nil
}

// FindForeignKeyOn returns the foreign key declared over exactly these local
// columns, or nil.
func (t *Table) FindForeignKeyOn(columns []string) *ForeignKey {
	for _, fk := range t.ForeignKeys {
		if sameNames(fk.Columns, columns) {
			return fk
		}
	}
	return nil
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := NewTable(t.Name)
	for _, c := range t.Columns {
		// names are unique in t
		_ = out.AddColumn(&Column{
			Name:        c.Name,
			Type:        c.Type,
			Constraints: slices.Clone(c.Constraints),
		})
	}
	for _, pk := range t.PrimaryKeys {
		out.PrimaryKeys = append(out.PrimaryKeys, &PrimaryKey{
			Columns:        slices.Clone(pk.Columns),
			ConstraintName: pk.ConstraintName,
		})
	}
	for _, fk := range t.ForeignKeys {
		out.ForeignKeys = append(out.ForeignKeys, fk.Clone())
	}
	return out
}

// String returns a short description of a table.
func (t *Table) String() string {
	return fmt.Sprintf("Table: %s (%d cols, %d fks)", t.Name, len(t.Columns), len(t.ForeignKeys))
}

// Clone returns a deep copy of the foreign key.
func (fk *ForeignKey) Clone() *ForeignKey {
	return &ForeignKey{
		Columns: slices.Clone(fk.Columns),
		References: Reference{
			Table:   fk.References.Table,
			Columns: slices.Clone(fk.References.Columns),
		},
		ConstraintName: fk.ConstraintName,
		Cascade:        fk.Cascade,
	}
}

// Uses reports whether the local column list contains the column.
func (fk *ForeignKey) Uses(column string) bool {
	return containsName(fk.Columns, column)
}

// ReferencesColumn reports whether the foreign key targets table.column.
func (fk *ForeignKey) ReferencesColumn(table, column string) bool {
	return SameName(fk.References.Table, table) && containsName(fk.References.Columns, column)
}

// RenameName replaces every occurrence of oldName in names with newName.
func RenameName(names []string, oldName, newName string) {
	for i, n := range names {
		if SameName(n, oldName) {
			names[i] = newName
		}
	}
}

func containsName(names []string, name string) bool {
	return slices.ContainsFunc(names, func(n string) bool { return SameName(n, name) })
}

func sameNames(a, b []string) bool {
	return slices.EqualFunc(a, b, SameName)
}
