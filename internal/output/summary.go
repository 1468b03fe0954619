package output

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"sqlerd/internal/builder"
	"sqlerd/internal/core"
)

var (
	colorPrimary = lipgloss.Color("#7C3AED")
	colorWarning = lipgloss.Color("#F59E0B")
	colorInfo    = lipgloss.Color("#3B82F6")
	colorMuted   = lipgloss.Color("#6B7280")

	headingStyle = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	tableStyle   = lipgloss.NewStyle().Foreground(colorInfo).Bold(true)
	keyStyle     = lipgloss.NewStyle().Foreground(colorPrimary)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
)

type summaryFormatter struct{}

// Format writes a compact human listing.
// Example output:
//
//	Schema Summary
//	==============
//
//	Tables:       2
//	Columns:      3
//	Foreign keys: 1
//	Warnings:     0
//
//	a
//	  id INT PK
//	b
//	  a_id INT FK -> a(id)
func (summaryFormatter) Format(r *Report) (string, error) {
	if r == nil || r.Result == nil {
		return "No schema.\n", nil
	}
	res := r.Result
	sum := summarize(res.Schema)
	warnings := res.Warnings()

	var sb strings.Builder
	sb.WriteString(headingStyle.Render("Schema Summary") + "\n")
	sb.WriteString(mutedStyle.Render("==============") + "\n\n")

	fmt.Fprintf(&sb, "Tables:       %d\n", sum.Tables)
	fmt.Fprintf(&sb, "Columns:      %d\n", sum.Columns)
	fmt.Fprintf(&sb, "Foreign keys: %d\n", sum.ForeignKeys)
	fmt.Fprintf(&sb, "Warnings:     %d\n", len(warnings))

	if r.Rendering != nil {
		l := r.Rendering.Layout
		degraded := 0
		for _, rel := range l.Relations {
			if rel.Degraded {
				degraded++
			}
		}
		fmt.Fprintf(&sb, "Grid:         %dx%d\n", l.GridSize, l.GridSize)
		fmt.Fprintf(&sb, "Relations:    %d", len(l.Relations))
		if degraded > 0 {
			sb.WriteString(warningStyle.Render(fmt.Sprintf(" (%d without free connection points)", degraded)))
		}
		sb.WriteString("\n")
	}

	if res.Schema.Len() > 0 {
		sb.WriteString("\n")
	}
	for _, t := range res.Schema.Tables {
		writeTable(&sb, t)
	}

	if len(warnings) > 0 {
		sb.WriteString("\n" + headingStyle.Render("Warnings") + "\n")
		writeDiagnostics(&sb, warnings)
	}
	return sb.String(), nil
}

func writeTable(sb *strings.Builder, t *core.Table) {
	sb.WriteString(tableStyle.Render(t.Name) + "\n")
	for _, c := range t.Columns {
		fmt.Fprintf(sb, "  %s %s", c.Name, mutedStyle.Render(c.Type))
		if t.InPrimaryKey(c.Name) {
			sb.WriteString(" " + keyStyle.Render("PK"))
		}
		for _, fk := range t.ForeignKeys {
			if !fk.Uses(c.Name) {
				continue
			}
			target := fk.References.Table + "(" + strings.Join(fk.References.Columns, ", ") + ")"
			sb.WriteString(" " + keyStyle.Render("FK") + " -> " + target)
			if fk.Cascade {
				sb.WriteString(mutedStyle.Render(" on delete cascade"))
			}
		}
		sb.WriteString("\n")
	}
}

func writeDiagnostics(sb *strings.Builder, diags []builder.Diagnostic) {
	for _, d := range diags {
		sb.WriteString("  " + warningStyle.Render("!") + " " + d.String() + "\n")
	}
}
