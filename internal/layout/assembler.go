package layout

import (
	"math"
	"strings"

	"github.com/tlhuang/manualrag/internal/md"
)

// Assembler serializes sorted spans into a single markdown document,
// merging adjacent same-kind spans on the same line into one run. State
// carries across pages: the output is one buffer for the whole file with no
// page delimiters.
type Assembler struct {
	buf  strings.Builder
	kind Kind
	top  float64
	tol  float64
}

// NewAssembler returns an assembler with the given run-merge tolerance.
func NewAssembler(tolerance float64) *Assembler {
	return &Assembler{kind: kindNone, tol: tolerance}
}

// AddPage feeds one page's sorted spans into the document.
func (a *Assembler) AddPage(spans []Span) {
	for _, s := range spans {
		a.add(s)
	}
}

func (a *Assembler) add(s Span) {
	// A span joins the current run iff it has the same kind and sits on the
	// same line; merged text is concatenated with no separator.
	if s.Kind == a.kind && math.Abs(s.Top-a.top) < a.tol {
		a.buf.WriteString(s.Text)
		return
	}

	a.kind = s.Kind
	a.top = s.Top
	a.buf.WriteString("\n")

	switch s.Kind {
	case KindTitle:
		a.buf.WriteString(md.Heading(s.Text, md.H1))
	case KindSubtitle:
		a.buf.WriteString(md.Heading(s.Text, md.H2))
	case KindSubsubtitle:
		a.buf.WriteString(md.Heading(s.Text, md.H3))
	case KindImage:
		a.buf.WriteString(md.Image("", s.Text))
	default:
		// Content and tables are emitted as-is.
		a.buf.WriteString(s.Text)
	}
}

// Markdown returns the assembled document.
func (a *Assembler) Markdown() string {
	return a.buf.String()
}
