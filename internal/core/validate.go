package core

import (
	"errors"
	"fmt"
)

// Validate checks the referential invariant: every primary and foreign key
// names existing columns, every referenced table and column exists, and no
// table owns more than one primary key. All problems are joined.
func (s *Schema) Validate() error {
	var errs []error
	for _, t := range s.Tables {
		errs = append(errs, t.validate(s)...)
	}
	return errors.Join(errs...)
}

func (t *Table) validate(s *Schema) []error {
	var errs []error
	if t.Name == "" {
		errs = append(errs, errors.New("table with empty name"))
	}
	if len(t.PrimaryKeys) > 1 {
		errs = append(errs, fmt.Errorf("table %q: %d primary keys", t.Name, len(t.PrimaryKeys)))
	}
	for _, pk := range t.PrimaryKeys {
		if len(pk.Columns) == 0 {
			errs = append(errs, fmt.Errorf("table %q: empty primary key", t.Name))
		}
		for _, c := range t.MissingColumns(pk.Columns) {
			errs = append(errs, fmt.Errorf("table %q: primary key column %q does not exist", t.Name, c))
		}
	}
	for _, fk := range t.ForeignKeys {
		errs = append(errs, t.validateForeignKey(s, fk)...)
	}
	return errs
}

func (t *Table) validateForeignKey(s *Schema, fk *ForeignKey) []error {
	var errs []error
	if len(fk.Columns) == 0 || len(fk.Columns) != len(fk.References.Columns) {
		errs = append(errs, fmt.Errorf("table %q: foreign key %q has %d local and %d referenced columns",
			t.Name, fk.ConstraintName, len(fk.Columns), len(fk.References.Columns)))
	}
	for _, c := range t.MissingColumns(fk.Columns) {
		errs = append(errs, fmt.Errorf("table %q: foreign key %q column %q does not exist", t.Name, fk.ConstraintName, c))
	}
	ref := s.FindTable(fk.References.Table)
	if ref == nil {
		return append(errs, fmt.Errorf("table %q: foreign key %q references missing table %q",
			t.Name, fk.ConstraintName, fk.References.Table))
	}
	for _, c := range ref.MissingColumns(fk.References.Columns) {
		errs = append(errs, fmt.Errorf("table %q: foreign key %q references missing column %s.%s",
			t.Name, fk.ConstraintName, ref.Name, c))
	}
	return errs
}
