package pdfreader

import (
	"math"
	"sort"
	"strings"

	"github.com/tlhuang/manualrag/internal/layout"
)

const (
	// Fragments whose baselines differ by no more than this sit on the
	// same line.
	rowTolerance = 2.0
	// A horizontal gap wider than this between fragments starts a new
	// word even without an explicit space.
	wordGap = 1.5
)

// fragment is one text run from the PDF content stream, in the bottom-up
// page coordinates the parser reports.
type fragment struct {
	X, Y, W  float64
	FontSize float64
	Text     string
}

// word is an assembled word box, already converted to top-down coordinates.
type word struct {
	text        string
	x0, x1      float64
	top, bottom float64
}

func (w word) layoutWord() layout.Word {
	return layout.Word{Text: w.text, X0: w.x0, Top: w.top, Bottom: w.bottom}
}

// groupWords assembles raw text fragments into word boxes. Fragments are
// ordered into lines by baseline, then split into words on whitespace
// fragments and horizontal gaps.
func groupWords(frags []fragment, pageHeight float64) []word {
	if len(frags) == 0 {
		return nil
	}
	sorted := append([]fragment(nil), frags...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if math.Abs(sorted[i].Y-sorted[j].Y) > rowTolerance {
			return sorted[i].Y > sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})

	var (
		words []word
		text  strings.Builder
		x0, y float64
		size  float64
		endX  float64
		open  bool
	)
	flush := func() {
		if !open {
			return
		}
		words = append(words, word{
			text:   text.String(),
			x0:     x0,
			x1:     endX,
			top:    pageHeight - (y + size),
			bottom: pageHeight - y,
		})
		text.Reset()
		open = false
	}

	for _, f := range sorted {
		blank := strings.TrimSpace(f.Text) == ""
		if open && (math.Abs(f.Y-y) > rowTolerance || blank || f.X-endX > wordGap) {
			flush()
		}
		if blank {
			continue
		}
		if !open {
			x0, y, size = f.X, f.Y, f.FontSize
			open = true
		}
		if f.FontSize > size {
			size = f.FontSize
		}
		text.WriteString(f.Text)
		endX = f.X + f.W
	}
	flush()
	return words
}
