package diagram

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"sqlerd/internal/layout"
)

// Mermaid writes the layout as a Mermaid erDiagram. Entities appear in
// visiting order; identifying relations are solid lines, the rest dotted.
// Translated names are kept as entity aliases and attribute comments.
func Mermaid(w io.Writer, l *layout.Layout) error {
	var b strings.Builder
	b.WriteString("erDiagram\n")

	for _, ent := range l.InOrder() {
		fmt.Fprintf(&b, "    %s", mermaidIdent(ent.Table))
		if ent.Name != ent.Table {
			fmt.Fprintf(&b, "[%q]", ent.Name)
		}
		b.WriteString(" {\n")
		for _, a := range ent.Attributes {
			fmt.Fprintf(&b, "        %s %s", mermaidType(a.Type), mermaidIdent(a.Column))
			var keys []string
			if a.Primary {
				keys = append(keys, "PK")
			}
			if a.Foreign {
				keys = append(keys, "FK")
			}
			if len(keys) > 0 {
				b.WriteString(" " + strings.Join(keys, ", "))
			}
			if a.Name != a.Column {
				fmt.Fprintf(&b, " %q", a.Name)
			}
			b.WriteString("\n")
		}
		b.WriteString("    }\n")
	}

	for _, r := range l.Relations {
		line := "||..o{"
		if r.Identifying {
			line = "||--o{"
		}
		label := r.Label
		if label == "" {
			label = r.Constraint
		}
		fmt.Fprintf(&b, "    %s %s %s : %q\n",
			mermaidIdent(l.Entities[r.Parent].Table), line, mermaidIdent(l.Entities[r.Child].Table), label)
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("failed to write mermaid diagram: %w", err)
	}
	return nil
}

// mermaidIdent keeps letters, digits, '_' and '-'; anything else becomes '_'.
func mermaidIdent(name string) string {
	ident := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' {
			return r
		}
		return '_'
	}, name)
	if ident == "" {
		return "_"
	}
	return ident
}

// mermaidType reduces a column type to one lowercase word: the arguments are
// dropped and spaces joined, so VARCHAR(255) becomes varchar and
// INT UNSIGNED becomes int_unsigned.
func mermaidType(t string) string {
	if i := strings.IndexByte(t, '('); i >= 0 {
		rest := ""
		if j := strings.IndexByte(t[i:], ')'); j >= 0 {
			rest = t[i+j+1:]
		}
		t = t[:i] + rest
	}
	return strings.ToLower(mermaidIdent(strings.Join(strings.Fields(t), "_")))
}
