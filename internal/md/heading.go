// Package md holds the markdown line conventions shared by the page
// assembler (which writes headings) and the segmenter (which reads them
// back). Keeping both sides on one classifier avoids drift between the
// heading levels the extractor emits and the ones the splitter recognizes.
package md

import (
	"regexp"
	"strings"
)

// Level classifies a markdown line.
type Level int

const (
	None Level = iota
	H1
	H2
	H3
)

// Marker returns the heading prefix for a level, including the trailing space.
func (l Level) Marker() string {
	switch l {
	case H1:
		return "# "
	case H2:
		return "## "
	case H3:
		return "### "
	default:
		return ""
	}
}

// ParseHeading tests a line against the heading markers in priority order
// (one hash first, then two, then three; first match wins) and returns the
// level plus the text after the marker. The text keeps any trailing newline;
// callers that need a clean title pass it through SanitizeTitle.
func ParseHeading(line string) (Level, string) {
	switch {
	case strings.HasPrefix(line, "# "):
		return H1, line[2:]
	case strings.HasPrefix(line, "## "):
		return H2, line[3:]
	case strings.HasPrefix(line, "### "):
		return H3, line[4:]
	}
	return None, ""
}

// Heading renders text as a markdown heading line of the given level.
func Heading(text string, level Level) string {
	return level.Marker() + text
}

// Image renders a markdown image reference.
func Image(alt, url string) string {
	return "![" + alt + "](" + url + ")"
}

var titleStripRe = regexp.MustCompile(`[\s\\/]+`)

// SanitizeTitle strips whitespace, backslashes and slashes from a heading so
// it is safe to use as a storage key segment.
func SanitizeTitle(s string) string {
	return titleStripRe.ReplaceAllString(s, "")
}
