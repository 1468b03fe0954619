// Package parser turns raw SQL text into interpreted DDL statements. It splits
// the text into statements, probes a priority list of dialect grammars for
// each one and converts the accepted TiDB syntax tree into the closed set of
// statement variants the schema builder understands.
package parser

import (
	"errors"
	"fmt"

	tidb "github.com/pingcap/tidb/pkg/parser"

	"sqlerd/internal/core"
)

// ErrNoStatement is returned when a grammar accepts the text but it holds no
// statement.
var ErrNoStatement = errors.New("no statement")

// Parsed is one statement accepted by a grammar.
type Parsed struct {
	Text       string
	Dialect    core.Dialect
	Statements []Statement
}

// ParseError reports a statement that no grammar, not even the fallback,
// could parse. Err is the fallback grammar's error.
type ParseError struct {
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unparseable statement: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Options configures the dialect prober.
type Options struct {
	// Dialects is the priority list tried in order.
	Dialects []core.Dialect
	// Fallback is used when no dialect in the list parses cleanly.
	Fallback core.Dialect
}

// DefaultOptions returns the default priority list mysql, postgresql with the
// generic grammar as fallback.
func DefaultOptions() Options {
	return Options{
		Dialects: []core.Dialect{core.DialectMySQL, core.DialectPostgreSQL},
		Fallback: core.DialectGeneric,
	}
}

type candidate struct {
	grammar Grammar
	parser  *tidb.Parser
}

// Prober tries each configured grammar in turn. A Prober owns its TiDB parser
// instances and must not be shared between goroutines.
type Prober struct {
	candidates []candidate
	fallback   candidate
}

// NewProber builds a prober for the given options.
func NewProber(opts Options) (*Prober, error) {
	if len(opts.Dialects) == 0 && opts.Fallback == "" {
		opts = DefaultOptions()
	}
	p := &Prober{}
	for _, d := range opts.Dialects {
		g, ok := LookupGrammar(d)
		if !ok {
			return nil, fmt.Errorf("no grammar registered for dialect %q", d)
		}
		p.candidates = append(p.candidates, candidate{grammar: g, parser: g.newParser()})
	}
	fallback := opts.Fallback
	if fallback == "" {
		fallback = core.DialectGeneric
	}
	g, ok := LookupGrammar(fallback)
	if !ok {
		return nil, fmt.Errorf("no grammar registered for fallback dialect %q", fallback)
	}
	p.fallback = candidate{grammar: g, parser: g.newParser()}
	return p, nil
}

// Probe parses one statement with the first grammar that accepts it. When
// none does, the fallback grammar gets a best-effort attempt; its failure is
// reported as a *ParseError.
func (p *Prober) Probe(text string) (Parsed, error) {
	for _, c := range p.candidates {
		if parsed, err := c.parse(text); err == nil {
			return parsed, nil
		}
	}
	parsed, err := p.fallback.parse(text)
	if err != nil {
		return Parsed{Text: text, Dialect: p.fallback.grammar.Dialect}, &ParseError{Text: text, Err: err}
	}
	return parsed, nil
}

func (c candidate) parse(text string) (Parsed, error) {
	nodes, _, err := c.parser.Parse(c.grammar.prepare(text), "", "")
	if err != nil {
		return Parsed{}, err
	}
	if len(nodes) == 0 {
		return Parsed{}, ErrNoStatement
	}
	parsed := Parsed{Text: text, Dialect: c.grammar.Dialect}
	for _, node := range nodes {
		parsed.Statements = append(parsed.Statements, convert(node))
	}
	return parsed, nil
}

// ParseAll splits text and probes every statement. Statements that fail to
// parse are returned with a non-nil error in the same position so callers can
// report them and carry on.
func (p *Prober) ParseAll(text string) []Result {
	stmts := Split(text)
	results := make([]Result, 0, len(stmts))
	for _, s := range stmts {
		parsed, err := p.Probe(s)
		results = append(results, Result{Parsed: parsed, Err: err})
	}
	return results
}

// Result pairs a probed statement with its parse error, if any.
type Result struct {
	Parsed
	Err error
}
