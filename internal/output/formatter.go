// Package output renders pipeline results for people and programs. Formats:
// JSON, a styled summary, draw.io XML and Mermaid.
package output

import (
	"errors"
	"fmt"
	"strings"

	"sqlerd/internal/erd"
)

// Format is an enum type representing the available output formats.
type Format string

const (
	FormatJSON    Format = "json"
	FormatSummary Format = "summary"
	FormatDrawio  Format = "drawio"
	FormatMermaid Format = "mermaid"
)

// ErrNoRendering is returned by diagram formats given a report without a
// rendering.
var ErrNoRendering = errors.New("report has no rendered diagram")

// Report is what a formatter prints: the interpreted schema and, when the
// schema was rendered, its layout and document.
type Report struct {
	Result    *erd.Result
	Rendering *erd.Rendering
}

// Formatter turns a report into text.
type Formatter interface {
	Format(*Report) (string, error)
}

// ParseFormat normalizes a format name. An empty name is JSON.
func ParseFormat(name string) (Format, error) {
	format := Format(strings.ToLower(strings.TrimSpace(name)))
	switch format {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatSummary, FormatDrawio, FormatMermaid:
		return format, nil
	default:
		return "", fmt.Errorf("unsupported format: %s; use 'json', 'summary', 'drawio', or 'mermaid'", name)
	}
}

// NeedsRendering reports whether the format prints a diagram.
func (f Format) NeedsRendering() bool {
	return f == FormatDrawio || f == FormatMermaid
}

// NewFormatter creates a new Formatter instance based on the given name.
// If no format is specified, defaults to JSON format.
func NewFormatter(name string) (Formatter, error) {
	format, err := ParseFormat(name)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatSummary:
		return summaryFormatter{}, nil
	case FormatDrawio:
		return drawioFormatter{}, nil
	case FormatMermaid:
		return mermaidFormatter{}, nil
	default:
		return jsonFormatter{}, nil
	}
}

// Formats lists the supported format names.
func Formats() []string {
	return []string{string(FormatJSON), string(FormatSummary), string(FormatDrawio), string(FormatMermaid)}
}
