// Package pdfreader turns raw PDF bytes into per-page layout input:
// positioned word boxes, detected tables and embedded image placements.
//
// The text layer is read with ledongthuc/pdf; image regions are located by
// scanning the content stream and cropped out of a go-fitz raster render.
package pdfreader

import (
	"bytes"
	"fmt"

	"github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"

	"github.com/tlhuang/manualrag/internal/layout"
)

// Pages without a resolvable MediaBox fall back to US Letter height.
const defaultPageHeight = 792

// Read parses a PDF and returns one PageInput per page, in order.
func Read(data []byte) ([]layout.PageInput, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("open pdf renderer: %w", err)
	}
	defer doc.Close()

	var pages []layout.PageInput
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		height := mediaBoxHeight(page.V)

		words := groupWords(fragments(page), height)
		tables, words := detectTables(words)

		images, err := extractImages(doc, page, i-1, height)
		if err != nil {
			return nil, fmt.Errorf("page %d images: %w", i, err)
		}

		input := layout.PageInput{Number: i, Tables: tables, Images: images}
		for _, w := range words {
			input.Words = append(input.Words, w.layoutWord())
		}
		pages = append(pages, input)
	}
	return pages, nil
}

func fragments(page pdf.Page) []fragment {
	content := page.Content()
	frags := make([]fragment, 0, len(content.Text))
	for _, t := range content.Text {
		frags = append(frags, fragment{X: t.X, Y: t.Y, W: t.W, FontSize: t.FontSize, Text: t.S})
	}
	return frags
}

// mediaBoxHeight resolves the page height, walking up to inherited page
// tree attributes when the page node has no MediaBox of its own.
func mediaBoxHeight(v pdf.Value) float64 {
	for !v.IsNull() {
		if box := v.Key("MediaBox"); box.Kind() == pdf.Array && box.Len() == 4 {
			return box.Index(3).Float64() - box.Index(1).Float64()
		}
		v = v.Key("Parent")
	}
	return defaultPageHeight
}
