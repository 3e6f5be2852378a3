// Package segment splits an assembled markdown document into titled chunks
// at heading boundaries. Each chunk becomes one stored text object and one
// vector index record.
package segment

import (
	"fmt"
	"strings"

	"github.com/tlhuang/manualrag/internal/md"
)

// minContentLen is the length a line must exceed (trailing newline included)
// to count as substantive content. A chunk is only emitted once it has
// accumulated at least one such line since the previous emission, so runs of
// headings with nothing under them are dropped.
const minContentLen = 5

// Chunk is one heading-delimited segment of a document. Order starts at 1.
// Title is the sanitized most recent heading, or the document's own name for
// content before the first heading.
type Chunk struct {
	Order int
	Title string
	Body  string
}

// Key returns the storage key for the chunk's text object.
func (c Chunk) Key() string {
	return fmt.Sprintf("%d_%s.txt", c.Order, c.Title)
}

// Split scans the document line by line and returns its chunks in order.
// docName seeds the title for content that precedes the first heading. A
// document that never accumulates substantive content yields no chunks.
func Split(docName, content string) []Chunk {
	var chunks []Chunk

	order := 1
	title := md.SanitizeTitle(docName)
	var body strings.Builder
	haveContent := false

	flush := func() {
		chunks = append(chunks, Chunk{Order: order, Title: title, Body: body.String()})
		order++
		body.Reset()
	}

	for _, line := range splitLines(content) {
		if level, text := md.ParseHeading(line); level != md.None {
			if haveContent {
				flush()
			}
			title = md.SanitizeTitle(text)
			body.WriteString(line)
			haveContent = false
			continue
		}

		if len(line) > minContentLen {
			haveContent = true
		}
		body.WriteString(line)
	}

	if haveContent {
		flush()
	}
	return chunks
}

// splitLines splits on newlines keeping the terminator with each line, so
// line lengths and reassembled bodies match the source exactly.
func splitLines(content string) []string {
	lines := strings.SplitAfter(content, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}
