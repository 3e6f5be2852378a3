package convert

import (
	"testing"

	"github.com/fumiama/go-docx"

	"github.com/tlhuang/manualrag/internal/md"
)

func styledPara(style string) *docx.Paragraph {
	return &docx.Paragraph{
		Properties: &docx.ParagraphProperties{Style: &docx.Style{Val: style}},
	}
}

func TestHeadingLevel(t *testing.T) {
	tests := []struct {
		style string
		want  md.Level
	}{
		{"Heading1", md.H1},
		{"heading 1", md.H1},
		{"Heading2", md.H2},
		{"Heading3", md.H3},
		{"Heading5", md.H3},
		{"Normal", md.None},
		{"", md.None},
	}
	for _, tt := range tests {
		if got := headingLevel(styledPara(tt.style)); got != tt.want {
			t.Errorf("headingLevel(%q) = %v, want %v", tt.style, got, tt.want)
		}
	}
	if got := headingLevel(&docx.Paragraph{}); got != md.None {
		t.Errorf("headingLevel(no properties) = %v, want None", got)
	}
}

func TestParagraphText(t *testing.T) {
	para := &docx.Paragraph{
		Children: []interface{}{
			&docx.Run{Children: []interface{}{
				&docx.Text{Text: "  Charge the "},
				&docx.Text{Text: "battery"},
			}},
		},
	}
	if got := paragraphText(para); got != "Charge the battery" {
		t.Errorf("paragraphText = %q", got)
	}
}
