package ocr

import (
	"regexp"
	"strings"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reHorizSpace = regexp.MustCompile(`[ \t\f\v\x{00A0}]+`)
)

// Normalize collapses noisy whitespace into a canonical line-oriented form.
// Runs of horizontal whitespace become one space, every line is trimmed and
// the whole string is trimmed. Case and punctuation are untouched.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reHorizSpace.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
