package tabletalk

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// StripControl removes ANSI escape sequences and control characters from
// tool output before it is displayed or fed back to the model. Tabs and
// newlines are preserved; CRLF normalizes to LF; any other byte <= 0x1F is
// dropped.
func StripControl(s string) string {
	s = ansi.Strip(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")

	if !strings.ContainsFunc(s, isControl) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if !isControl(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isControl(r rune) bool {
	return r <= 0x1F && r != '\t' && r != '\n'
}
