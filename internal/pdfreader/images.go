package pdfreader

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"math"

	"github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"

	"github.com/tlhuang/manualrag/internal/layout"
)

const (
	renderDPI   = 144
	jpegQuality = 85
)

// placement is one image draw operation in top-down page coordinates.
type placement struct {
	x0, y0, x1, y1 float64
}

// extractImages finds where the page draws image XObjects and crops those
// regions out of a raster render of the page. pageIndex is zero-based for
// the renderer.
func extractImages(doc *fitz.Document, page pdf.Page, pageIndex int, pageHeight float64) ([]layout.Image, error) {
	names := imageXObjects(page.Resources())
	if len(names) == 0 {
		return nil, nil
	}
	content, err := contentBytes(page.V.Key("Contents"))
	if err != nil {
		return nil, err
	}
	placements := scanPlacements(content, names, pageHeight)
	if len(placements) == 0 {
		return nil, nil
	}

	render, err := doc.ImageDPI(pageIndex, renderDPI)
	if err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}
	scale := float64(renderDPI) / 72

	var out []layout.Image
	for _, p := range placements {
		rect := image.Rect(
			int(p.x0*scale), int(p.y0*scale),
			int(p.x1*scale+0.5), int(p.y1*scale+0.5),
		).Intersect(render.Bounds())
		if rect.Empty() {
			continue
		}
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, render.SubImage(rect), &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, fmt.Errorf("encode image: %w", err)
		}
		out = append(out, layout.Image{X0: p.x0, Y0: p.y0, X1: p.x1, Y1: p.y1, Data: buf.Bytes()})
	}
	return out, nil
}

// imageXObjects returns the resource names bound to image XObjects.
func imageXObjects(resources pdf.Value) map[string]bool {
	names := make(map[string]bool)
	xobjects := resources.Key("XObject")
	for _, key := range xobjects.Keys() {
		if xobjects.Key(key).Key("Subtype").Name() == "Image" {
			names[key] = true
		}
	}
	return names
}

// contentBytes concatenates the page content streams.
func contentBytes(contents pdf.Value) ([]byte, error) {
	switch contents.Kind() {
	case pdf.Stream:
		b, err := io.ReadAll(contents.Reader())
		if err != nil {
			return nil, fmt.Errorf("read content stream: %w", err)
		}
		return b, nil
	case pdf.Array:
		var buf bytes.Buffer
		for i := 0; i < contents.Len(); i++ {
			b, err := io.ReadAll(contents.Index(i).Reader())
			if err != nil {
				return nil, fmt.Errorf("read content stream %d: %w", i, err)
			}
			buf.Write(b)
			buf.WriteByte('\n')
		}
		return buf.Bytes(), nil
	}
	return nil, nil
}

// matrix is a PDF transformation matrix [a b c d e f], row-vector
// convention: (x, y) maps to (a*x+c*y+e, b*x+d*y+f).
type matrix [6]float64

var identity = matrix{1, 0, 0, 1, 0, 0}

func (m matrix) mul(n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

// scanPlacements walks the content stream operators tracking the current
// transformation matrix and records the bounding box of every Do that names
// an image XObject.
func scanPlacements(content []byte, images map[string]bool, pageHeight float64) []placement {
	var (
		ctm   = identity
		stack []matrix
		nums  []float64
		name  string
		out   []placement
	)
	tok := newTokenizer(content)
	for {
		t, ok := tok.next()
		if !ok {
			break
		}
		switch t.kind {
		case tokNumber:
			nums = append(nums, t.num)
			continue
		case tokName:
			name = t.text
			continue
		}
		switch t.text {
		case "q":
			stack = append(stack, ctm)
		case "Q":
			if n := len(stack); n > 0 {
				ctm = stack[n-1]
				stack = stack[:n-1]
			}
		case "cm":
			if len(nums) >= 6 {
				n := nums[len(nums)-6:]
				ctm = matrix{n[0], n[1], n[2], n[3], n[4], n[5]}.mul(ctm)
			}
		case "Do":
			if images[name] {
				out = append(out, placementFor(ctm, pageHeight))
			}
		case "BI":
			tok.skipInlineImage()
		}
		nums = nums[:0]
		name = ""
	}
	return out
}

// placementFor maps the image unit square through the CTM and converts the
// bounding box to top-down coordinates.
func placementFor(ctm matrix, pageHeight float64) placement {
	corners := [4][2]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range corners {
		x := ctm[0]*c[0] + ctm[2]*c[1] + ctm[4]
		y := ctm[1]*c[0] + ctm[3]*c[1] + ctm[5]
		minX = math.Min(minX, x)
		maxX = math.Max(maxX, x)
		minY = math.Min(minY, y)
		maxY = math.Max(maxY, y)
	}
	return placement{x0: minX, y0: pageHeight - maxY, x1: maxX, y1: pageHeight - minY}
}
