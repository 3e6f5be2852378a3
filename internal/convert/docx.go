// Package convert renders non-PDF manual formats to the pipeline's
// markdown dialect: hash headings capped at three levels, blank-line
// separated paragraphs and dash bullets.
package convert

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/tlhuang/manualrag/internal/md"
)

// DOCX converts a Word document to markdown. Heading styles map to hash
// headings; levels deeper than three collapse to three.
func DOCX(data []byte) (string, error) {
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parse docx: %w", err)
	}

	var out strings.Builder
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := paragraphText(para)
		if text == "" {
			continue
		}
		if out.Len() > 0 {
			out.WriteString("\n")
		}
		if level := headingLevel(para); level != md.None {
			out.WriteString(md.Heading(text, level))
		} else {
			out.WriteString(text)
		}
		out.WriteString("\n")
	}
	return out.String(), nil
}

func headingLevel(para *docx.Paragraph) md.Level {
	if para.Properties == nil || para.Properties.Style == nil {
		return md.None
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	if !strings.HasPrefix(style, "heading") {
		return md.None
	}
	switch style {
	case "heading1":
		return md.H1
	case "heading2":
		return md.H2
	default:
		return md.H3
	}
}

func paragraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
