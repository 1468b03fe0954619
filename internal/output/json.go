package output

import (
	"encoding/json"

	"sqlerd/internal/builder"
	"sqlerd/internal/core"
	"sqlerd/internal/layout"
)

type jsonFormatter struct{}

type schemaSummary struct {
	Tables      int `json:"tables"`
	Columns     int `json:"columns"`
	ForeignKeys int `json:"foreignKeys"`
	Statements  int `json:"statements"`
	Warnings    int `json:"warnings"`
}

type schemaPayload struct {
	Format      string               `json:"format"`
	Summary     schemaSummary        `json:"summary"`
	Tables      []*core.Table        `json:"tables"`
	Diagnostics []builder.Diagnostic `json:"diagnostics,omitempty"`
	Layout      *layout.Layout       `json:"layout,omitempty"`
}

// Format writes the table list with its diagnostics, plus the layout when the
// report was rendered.
func (jsonFormatter) Format(r *Report) (string, error) {
	payload := schemaPayload{Format: string(FormatJSON), Tables: []*core.Table{}}
	if r != nil && r.Result != nil {
		res := r.Result
		payload.Tables = res.Schema.Tables
		payload.Diagnostics = res.Diagnostics
		payload.Summary = summarize(res.Schema)
		payload.Summary.Statements = res.Statements
		payload.Summary.Warnings = len(res.Warnings())
	}
	if r != nil && r.Rendering != nil {
		payload.Layout = r.Rendering.Layout
	}
	return marshalJSON(payload)
}

func summarize(s *core.Schema) schemaSummary {
	sum := schemaSummary{Tables: s.Len()}
	for _, t := range s.Tables {
		sum.Columns += len(t.Columns)
		sum.ForeignKeys += len(t.ForeignKeys)
	}
	return sum
}

func marshalJSON(payload any) (string, error) {
	b, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}
