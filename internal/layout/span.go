// Package layout reconstructs a readable markdown document from the raw
// positioned content of PDF pages: classified word runs, tables and images.
//
// The input is a PageInput per page (word boxes with glyph coordinates,
// extracted tables, embedded images); the output is a flat span sequence in
// canonical reading order, which the Assembler serializes into one markdown
// document for the whole file.
package layout

import "sort"

// Kind is the semantic class of a span. Word-sized spans are classified into
// title bands by glyph height; tables and images carry fixed kinds.
type Kind int

const (
	// kindNone is the assembler's initial state. No real span has it, so
	// the first span of a document always starts a fresh run.
	kindNone Kind = iota
	KindTitle
	KindSubtitle
	KindSubsubtitle
	KindContent
	KindTable
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindTitle:
		return "title"
	case KindSubtitle:
		return "subtitle"
	case KindSubsubtitle:
		return "subsubtitle"
	case KindContent:
		return "content"
	case KindTable:
		return "table"
	case KindImage:
		return "image"
	default:
		return "none"
	}
}

// Span is one classified, positioned fragment of page content. Text holds
// the word run, the serialized table rows, or the image locator depending on
// Kind. Size is the glyph height and is only meaningful for word spans.
type Span struct {
	Kind Kind
	Text string
	Left float64
	Top  float64
	Size float64
}

// SortSpans orders spans by (Top, Left) ascending: top-to-bottom, then
// left-to-right. This is the page's canonical reading order; the assembler's
// run merging assumes monotonically non-decreasing Top.
func SortSpans(spans []Span) {
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].Top != spans[j].Top {
			return spans[i].Top < spans[j].Top
		}
		return spans[i].Left < spans[j].Left
	})
}
