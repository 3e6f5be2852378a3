package layout

import (
	"context"
	"fmt"
	"strings"
)

// Word is one extracted word box. Coordinates are top-down page units: Top
// grows toward the bottom of the page, X0 is the left edge of the first
// glyph. Bottom-Top is the glyph height used for classification.
type Word struct {
	Text   string
	X0     float64
	Top    float64
	Bottom float64
}

// Table is one extracted table as rows of cell text.
type Table struct {
	Rows [][]string
}

// Image is one embedded image with its placement box (top-down coordinates)
// and its rasterized bytes.
type Image struct {
	X0, Y0, X1, Y1 float64
	Data           []byte
}

// PageInput is everything the extractor needs from one rendered PDF page.
type PageInput struct {
	Number int // 1-indexed
	Words  []Word
	Tables []Table
	Images []Image
}

// ImageSink persists a qualifying image and returns the locator embedded in
// the markdown image reference.
type ImageSink interface {
	SaveImage(ctx context.Context, page, index int, data []byte) (string, error)
}

// Config holds the extraction thresholds. Glyph heights above TitleSize,
// SubtitleSize and SubsubtitleSize map to heading levels 1-3; everything
// else is body content.
type Config struct {
	TitleSize       float64
	SubtitleSize    float64
	SubsubtitleSize float64
	LineTolerance   float64
	MinImageWidth   float64
	MinImageHeight  float64
	MergeTolerance  float64
}

// DefaultConfig returns the thresholds tuned for the product manuals this
// pipeline was built against.
func DefaultConfig() Config {
	return Config{
		TitleSize:       19.5,
		SubtitleSize:    15,
		SubsubtitleSize: 14,
		LineTolerance:   5,
		MinImageWidth:   25,
		MinImageHeight:  25,
		MergeTolerance:  5,
	}
}

func (c Config) classify(size float64) Kind {
	switch {
	case size > c.TitleSize:
		return KindTitle
	case size > c.SubtitleSize:
		return KindSubtitle
	case size > c.SubsubtitleSize:
		return KindSubsubtitle
	default:
		return KindContent
	}
}

// ExtractPage turns one page into its sorted span sequence. Qualifying
// images are persisted through the sink as a side effect; their spans carry
// the returned locator as text.
func ExtractPage(ctx context.Context, page PageInput, sink ImageSink, cfg Config) ([]Span, error) {
	var spans []Span

	// Words. Track the last line top: a word whose top drops more than the
	// tolerance below it starts a new line. x0Now/topNow together are the
	// last seen word coordinate, which also anchors table spans below.
	var x0Now, topNow float64
	for _, w := range page.Words {
		if w.Top-topNow > cfg.LineTolerance {
			topNow = w.Top
		}
		x0Now = w.X0

		size := w.Bottom - w.Top
		text := strings.ReplaceAll(w.Text, "●", "- ")
		spans = append(spans, Span{
			Kind: cfg.classify(size),
			Text: text,
			Left: x0Now,
			Top:  topNow,
			Size: size,
		})
	}

	// Tables: cells joined with a space within a row, rows joined with a
	// newline. The span sits at the last seen word coordinate rather than
	// the table's own geometry; an accepted approximation carried over from
	// the deployed extractor.
	for _, table := range page.Tables {
		var sb strings.Builder
		for _, row := range table.Rows {
			for _, cell := range row {
				if cell != "" {
					sb.WriteString(cell)
					sb.WriteString(" ")
				}
			}
			sb.WriteString("\n")
		}
		spans = append(spans, Span{
			Kind: KindTable,
			Text: sb.String(),
			Left: x0Now,
			Top:  topNow,
		})
	}

	// Images: drop anything at or below the minimum dimensions, which
	// filters decorative glyphs and icons. The image index counts every
	// embedded image on the page, filtered ones included, so locators stay
	// stable when thresholds change.
	for i, img := range page.Images {
		width := img.X1 - img.X0
		height := img.Y1 - img.Y0
		if width <= cfg.MinImageWidth || height <= cfg.MinImageHeight {
			continue
		}
		locator, err := sink.SaveImage(ctx, page.Number, i+1, img.Data)
		if err != nil {
			return nil, fmt.Errorf("save image page %d #%d: %w", page.Number, i+1, err)
		}
		spans = append(spans, Span{
			Kind: KindImage,
			Text: locator,
			Left: img.X1,
			Top:  img.Y0,
		})
	}

	SortSpans(spans)
	return spans, nil
}
