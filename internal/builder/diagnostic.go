package builder

import (
	"encoding/json"
	"fmt"
)

// Kind classifies a diagnostic.
type Kind string

const (
	KindParse             Kind = "parse_error"
	KindIgnored           Kind = "ignored_statement"
	KindDuplicateTable    Kind = "duplicate_table"
	KindDuplicateColumn   Kind = "duplicate_column"
	KindDuplicatePK       Kind = "duplicate_primary_key"
	KindDuplicateName     Kind = "duplicate_constraint"
	KindMissingTable      Kind = "missing_table"
	KindMissingColumn     Kind = "missing_column"
	KindMissingConstraint Kind = "missing_constraint"
	KindTypeMismatch      Kind = "type_mismatch"
	KindInvalidConstraint Kind = "invalid_constraint"
	KindCascadeForbidden  Kind = "cascade_forbidden"
)

// Severity tells how loudly a diagnostic is reported.
type Severity int

const (
	// SeverityDebug marks statements that were skipped on purpose, such as
	// CREATE TABLE IF NOT EXISTS on an existing table.
	SeverityDebug Severity = iota
	// SeverityWarning marks rejected constructs.
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityDebug {
		return "debug"
	}
	return "warning"
}

func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Diagnostic describes one skipped or rejected construct. Diagnostics are
// values, not errors: the builder keeps going after each one.
type Diagnostic struct {
	Kind     Kind     `json:"kind"`
	Severity Severity `json:"severity"`
	// Statement is the 0-based position of the statement in the input.
	Statement int    `json:"statement"`
	Table     string `json:"table,omitempty"`
	Message   string `json:"message"`
}

func (d Diagnostic) String() string {
	if d.Table == "" {
		return fmt.Sprintf("statement %d: %s: %s", d.Statement+1, d.Kind, d.Message)
	}
	return fmt.Sprintf("statement %d: %s: table %s: %s", d.Statement+1, d.Kind, d.Table, d.Message)
}

// Warnings returns only the diagnostics of warning severity.
func Warnings(diags []Diagnostic) []Diagnostic {
	var out []Diagnostic
	for _, d := range diags {
		if d.Severity == SeverityWarning {
			out = append(out, d)
		}
	}
	return out
}
