package layout

import "golang.org/x/text/width"

// displayWidth counts terminal-style cells: East Asian wide and fullwidth
// runes take two.
func displayWidth(s string) int {
	n := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			n += 2
		default:
			n++
		}
	}
	return n
}
