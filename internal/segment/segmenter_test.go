package segment

import "testing"

func TestSplit_HeadingOnlyDocumentYieldsNoChunks(t *testing.T) {
	chunks := Split("manual", "# A\n## B\n### C\n")
	if len(chunks) != 0 {
		t.Fatalf("got %d chunks, want 0", len(chunks))
	}
}

func TestSplit_TwoChunks(t *testing.T) {
	input := "# Intro\nHello world this is content\n## Details\nmore than five chars here\n"
	chunks := Split("manual", input)

	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}

	if chunks[0].Order != 1 || chunks[0].Title != "Intro" {
		t.Errorf("chunk 1 = order %d title %q, want 1 %q", chunks[0].Order, chunks[0].Title, "Intro")
	}
	wantBody := "# Intro\nHello world this is content\n"
	if chunks[0].Body != wantBody {
		t.Errorf("chunk 1 body = %q, want %q", chunks[0].Body, wantBody)
	}

	if chunks[1].Order != 2 || chunks[1].Title != "Details" {
		t.Errorf("chunk 2 = order %d title %q, want 2 %q", chunks[1].Order, chunks[1].Title, "Details")
	}
	wantBody = "## Details\nmore than five chars here\n"
	if chunks[1].Body != wantBody {
		t.Errorf("chunk 2 body = %q, want %q", chunks[1].Body, wantBody)
	}
}

func TestSplit_TitleSanitization(t *testing.T) {
	input := "## Battery / Range\\Info\nthis section has real content\n"
	chunks := Split("manual", input)
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0].Title != "BatteryRangeInfo" {
		t.Errorf("title = %q, want BatteryRangeInfo", chunks[0].Title)
	}
}

func TestSplit_NoHeadingsUsesDocumentName(t *testing.T) {
	chunks := Split("owners manual", "just one plain paragraph of text\n")
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0].Title != "ownersmanual" {
		t.Errorf("title = %q, want ownersmanual", chunks[0].Title)
	}
	if chunks[0].Order != 1 {
		t.Errorf("order = %d, want 1", chunks[0].Order)
	}
}

func TestSplit_ShortLinesAreNotSubstantive(t *testing.T) {
	// Every body line here is five characters or fewer including the
	// newline, so nothing qualifies and no chunk is emitted.
	chunks := Split("manual", "# A\nab\ncd\n\n")
	if len(chunks) != 0 {
		t.Fatalf("got %d chunks, want 0", len(chunks))
	}
}

func TestSplit_HeadingResetsContentFlag(t *testing.T) {
	// Content under Intro qualifies; the trailing heading accumulates into
	// a final chunk that never gains content and is dropped.
	input := "# Intro\nplenty of content lives here\n## Trailing\n"
	chunks := Split("manual", input)
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0].Title != "Intro" {
		t.Errorf("title = %q, want Intro", chunks[0].Title)
	}
}

func TestSplit_FinalChunkWithoutTrailingNewline(t *testing.T) {
	input := "# End\nlast line has no newline"
	chunks := Split("manual", input)
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0].Body != input {
		t.Errorf("body = %q, want %q", chunks[0].Body, input)
	}
}

func TestChunk_Key(t *testing.T) {
	c := Chunk{Order: 3, Title: "Charging"}
	if got := c.Key(); got != "3_Charging.txt" {
		t.Errorf("Key = %q, want 3_Charging.txt", got)
	}
}
