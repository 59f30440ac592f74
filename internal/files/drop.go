package files

import "strings"

// SplitDropList splits a drag-and-drop payload into paths. Paths are separated
// by whitespace; a path containing spaces arrives wrapped in braces, e.g.
// "{/tmp/my scan.png} /tmp/b.jpg".
func SplitDropList(data string) []string {
	var (
		out     []string
		cur     strings.Builder
		inBrace bool
	)
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, r := range data {
		switch {
		case r == '{' && !inBrace && cur.Len() == 0:
			inBrace = true
		case r == '}' && inBrace:
			inBrace = false
			flush()
		case !inBrace && (r == ' ' || r == '\t' || r == '\n' || r == '\r'):
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}
