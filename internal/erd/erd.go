// Package erd is the linear pipeline from SQL text to a diagram: split and
// probe the statements, build the schema model, lay it out and emit the
// document. Each call owns its own model, so concurrent calls share nothing.
package erd

import (
	"fmt"

	"go.uber.org/zap"

	"sqlerd/internal/builder"
	"sqlerd/internal/core"
	"sqlerd/internal/diagram"
	"sqlerd/internal/layout"
	"sqlerd/internal/parser"
)

// Options configures every stage of the pipeline.
type Options struct {
	Parser  parser.Options
	Layout  layout.Options
	Diagram diagram.Options
	Logger  *zap.Logger
}

// DefaultOptions returns the defaults of every stage and a no-op logger.
func DefaultOptions() Options {
	return Options{
		Parser: parser.DefaultOptions(),
		Layout: layout.DefaultOptions(),
		Logger: zap.NewNop(),
	}
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// Result is the interpreted schema with the diagnostics of every skipped or
// rejected construct.
type Result struct {
	Schema      *core.Schema         `json:"tables"`
	Diagnostics []builder.Diagnostic `json:"diagnostics"`
	Statements  int                  `json:"statements"`
}

// Warnings returns the warning-level diagnostics.
func (r *Result) Warnings() []builder.Diagnostic {
	return builder.Warnings(r.Diagnostics)
}

// Rendering is a laid out schema and its draw.io document.
type Rendering struct {
	Layout   *layout.Layout
	Document *diagram.Document
}

// Interpret builds a schema model from SQL text. Malformed SQL never fails
// the call: it shows up as diagnostics. The error is reserved for unusable
// parser options.
func Interpret(text string, opts Options) (*Result, error) {
	return InterpretOnto(core.NewSchema(), text, opts)
}

// InterpretOnto applies SQL text to an existing schema, which is modified in
// place.
func InterpretOnto(schema *core.Schema, text string, opts Options) (*Result, error) {
	prober, err := parser.NewProber(opts.Parser)
	if err != nil {
		return nil, fmt.Errorf("failed to configure parser: %w", err)
	}
	log := opts.logger()

	results := prober.ParseAll(text)
	b := builder.NewWithSchema(schema, log)
	b.ApplyAll(results)

	res := &Result{
		Schema:      b.Schema(),
		Diagnostics: b.Diagnostics(),
		Statements:  len(results),
	}
	log.Debug("schema interpreted",
		zap.Int("statements", res.Statements),
		zap.Int("tables", res.Schema.Len()),
		zap.Int("warnings", len(res.Warnings())))
	return res, nil
}

// Render lays out a schema and emits its document. It fails only when the
// schema breaks the referential invariant, which cannot happen for a model
// produced by Interpret.
func Render(schema *core.Schema, opts Options) (*Rendering, error) {
	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("schema is inconsistent: %w", err)
	}
	l, err := layout.Build(schema, opts.Layout)
	if err != nil {
		return nil, fmt.Errorf("failed to lay out schema: %w", err)
	}
	doc := diagram.Emit(l, opts.Diagram)

	opts.logger().Debug("diagram rendered",
		zap.Int("entities", len(l.Entities)),
		zap.Int("relations", len(l.Relations)),
		zap.Int("grid_size", l.GridSize))
	return &Rendering{Layout: l, Document: doc}, nil
}

// Run interprets text and renders the resulting schema.
func Run(text string, opts Options) (*Result, *Rendering, error) {
	res, err := Interpret(text, opts)
	if err != nil {
		return nil, nil, err
	}
	r, err := Render(res.Schema, opts)
	if err != nil {
		return res, nil, err
	}
	return res, r, nil
}
