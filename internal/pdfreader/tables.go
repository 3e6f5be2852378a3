package pdfreader

import (
	"math"
	"strings"

	"github.com/tlhuang/manualrag/internal/layout"
)

const (
	// A horizontal gap this wide splits a line into table cells.
	cellGap = 18.0
	// Fewer consecutive multi-cell lines than this is columnar text, not
	// a table.
	minTableRows = 2
)

// detectTables lifts runs of consecutive multi-cell lines out of the word
// stream as tables. Words that became table cells are removed so their text
// is not rendered twice.
func detectTables(words []word) ([]layout.Table, []word) {
	lines := groupLines(words)

	var (
		tables  []layout.Table
		kept    []word
		pending [][]string // cell rows of the run in progress
		held    []word     // words of the run, in case it is too short
	)
	flush := func() {
		if len(pending) >= minTableRows {
			tables = append(tables, layout.Table{Rows: pending})
		} else {
			kept = append(kept, held...)
		}
		pending = nil
		held = nil
	}

	for _, line := range lines {
		cells := splitCells(line)
		if len(cells) < 2 {
			flush()
			kept = append(kept, line...)
			continue
		}
		pending = append(pending, cells)
		held = append(held, line...)
	}
	flush()
	return tables, kept
}

// groupLines batches words by baseline, preserving reading order.
func groupLines(words []word) [][]word {
	var lines [][]word
	for _, w := range words {
		n := len(lines)
		if n > 0 {
			last := lines[n-1]
			if math.Abs(w.top-last[len(last)-1].top) <= rowTolerance {
				lines[n-1] = append(last, w)
				continue
			}
		}
		lines = append(lines, []word{w})
	}
	return lines
}

// splitCells breaks one line into cell texts wherever a wide gap separates
// adjacent words.
func splitCells(line []word) []string {
	var (
		cells []string
		parts []string
		endX  float64
	)
	for i, w := range line {
		if i > 0 && w.x0-endX > cellGap {
			cells = append(cells, strings.Join(parts, " "))
			parts = parts[:0]
		}
		parts = append(parts, w.text)
		endX = w.x1
	}
	if len(parts) > 0 {
		cells = append(cells, strings.Join(parts, " "))
	}
	return cells
}
