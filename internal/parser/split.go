package parser

import "strings"

// Split slices raw SQL text into statements. Line comments (--) and block
// comments are removed first; a semicolon terminates a statement only outside
// a single- or double-quoted run. An unterminated quote swallows the rest of
// the input, which is then emitted as the final statement. Terminators are
// not included and empty statements are dropped.
func Split(text string) []string {
	text = stripComments(text)

	var (
		stmts   []string
		current strings.Builder
		quote   rune
	)
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			stmts = append(stmts, s)
		}
		current.Reset()
	}

	for _, r := range text {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == ';':
			flush()
			continue
		}
		current.WriteRune(r)
	}
	flush()
	return stmts
}

func stripComments(text string) string {
	var (
		sb    strings.Builder
		quote byte
	)
	sb.Grow(len(text))
	for i := 0; i < len(text); i++ {
		c := text[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			sb.WriteByte(c)
			continue
		}
		switch {
		case c == '\'' || c == '"':
			quote = c
		case c == '-' && i+1 < len(text) && text[i+1] == '-':
			end := strings.IndexByte(text[i:], '\n')
			if end < 0 {
				return sb.String()
			}
			i += end
			c = '\n'
		case c == '/' && i+1 < len(text) && text[i+1] == '*':
			end := strings.Index(text[i+2:], "*/")
			if end < 0 {
				return sb.String()
			}
			i += end + 3
			c = ' '
		}
		sb.WriteByte(c)
	}
	return sb.String()
}
