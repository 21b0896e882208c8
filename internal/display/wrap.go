package display

import (
	"regexp"
	"strings"

	"github.com/muesli/reflow/wordwrap"
)

const DefaultWidth = 80

// colorTag matches crawl's inline colour markup, e.g. <lightred> and
// </lightred>. Literal angle brackets come through doubled as "<<".
var colorTag = regexp.MustCompile(`<[a-z_/]+>`)

// Wrap word-wraps text to DefaultWidth.
func Wrap(text string) string {
	return wordwrap.String(text, DefaultWidth)
}

// StripTags removes colour markup and unescapes doubled angle brackets,
// leaving plain text.
func StripTags(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	const sentinel = "\x00"
	s = strings.ReplaceAll(s, "<<", sentinel)
	s = colorTag.ReplaceAllString(s, "")
	return strings.ReplaceAll(s, sentinel, "<")
}

// Capitalize returns s with its first character uppercased.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
