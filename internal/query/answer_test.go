package query

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/tlhuang/manualrag/internal/history"
	"github.com/tlhuang/manualrag/internal/llm"
	"github.com/tlhuang/manualrag/internal/search"
)

type fakeSearcher struct {
	hits        []search.Hit
	ensured     bool
	searchCalls int
}

func (f *fakeSearcher) EnsureIndex(ctx context.Context, name string, dimension int, recreate bool) error {
	f.ensured = true
	return nil
}

func (f *fakeSearcher) Search(ctx context.Context, index string, vector []float32, k int) ([]search.Hit, error) {
	f.searchCalls++
	return f.hits, nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}

type fakeCompleter struct {
	answer string
	prompt string
	calls  int
}

func (f *fakeCompleter) Complete(ctx context.Context, system string, messages []llm.Message) (string, error) {
	f.calls++
	if len(messages) > 0 {
		f.prompt = messages[len(messages)-1].Content
	}
	return f.answer, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newAnswerer(s *fakeSearcher, c *fakeCompleter, h history.Store) *Answerer {
	return NewAnswerer(s, fakeEmbedder{}, c, h, "manuals", 1536, 3, 0.58, discard())
}

func TestAnswer_ThresholdFiltersHits(t *testing.T) {
	searcher := &fakeSearcher{hits: []search.Hit{
		{ID: 1, Score: 0.7, Chapter: "Battery", Document: "charge it overnight"},
		{ID: 2, Score: 0.4, Chapter: "Tires", Document: "check the pressure"},
	}}
	completer := &fakeCompleter{answer: "Charge overnight."}
	a := newAnswerer(searcher, completer, history.NewMemStore())

	resp, err := a.Answer(context.Background(), Request{Question: "how do I charge?", SessionID: "s"})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if resp.SourcesCount != 1 {
		t.Fatalf("sources = %d, want 1 (0.4 is below 0.58)", resp.SourcesCount)
	}
	if resp.Sources[0].Order != 1 || resp.Sources[0].Chapter != "Battery" {
		t.Errorf("source = %+v", resp.Sources[0])
	}
	if resp.SimilarityScore != 0.7 {
		t.Errorf("similarity sum = %v, want 0.7", resp.SimilarityScore)
	}
	if resp.Answer != "Charge overnight." {
		t.Errorf("answer = %q", resp.Answer)
	}
	if !strings.Contains(completer.prompt, "charge it overnight") {
		t.Errorf("prompt missing retrieved context: %q", completer.prompt)
	}
	if strings.Contains(completer.prompt, "check the pressure") {
		t.Errorf("prompt should not contain filtered hit: %q", completer.prompt)
	}
}

func TestAnswer_NoRelevantHitsSkipsModel(t *testing.T) {
	searcher := &fakeSearcher{hits: []search.Hit{{ID: 1, Score: 0.2, Document: "irrelevant"}}}
	completer := &fakeCompleter{answer: "should not be used"}
	hist := history.NewMemStore()
	a := newAnswerer(searcher, completer, hist)

	resp, err := a.Answer(context.Background(), Request{Question: "what?", SessionID: "s"})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if resp.Answer != DontKnowAnswer {
		t.Errorf("answer = %q, want canned answer", resp.Answer)
	}
	if completer.calls != 0 {
		t.Errorf("completion called %d times, want 0", completer.calls)
	}
	if resp.SourcesCount != 0 || resp.SimilarityScore != 0 {
		t.Errorf("response = %+v", resp)
	}

	// History is still written on the don't-know path.
	turns, _ := hist.Read(context.Background(), "s")
	if len(turns) != 2 || turns[1].Content != DontKnowAnswer {
		t.Errorf("history = %+v", turns)
	}
}

func TestAnswer_WritesHistoryAfterAnswering(t *testing.T) {
	searcher := &fakeSearcher{hits: []search.Hit{{ID: 1, Score: 0.9, Document: "context text here"}}}
	hist := history.NewMemStore()
	a := newAnswerer(searcher, &fakeCompleter{answer: "done"}, hist)

	if _, err := a.Answer(context.Background(), Request{Question: "q1", SessionID: "s9"}); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	turns, _ := hist.Read(context.Background(), "s9")
	if len(turns) != 2 {
		t.Fatalf("turns = %d, want 2", len(turns))
	}
	if turns[0].Role != history.RoleHuman || turns[0].Content != "q1" {
		t.Errorf("turn 0 = %+v", turns[0])
	}
	if turns[1].Role != history.RoleAI || turns[1].Content != "done" {
		t.Errorf("turn 1 = %+v", turns[1])
	}
}

func TestAnswer_PriorHistoryInPrompt(t *testing.T) {
	searcher := &fakeSearcher{hits: []search.Hit{{ID: 1, Score: 0.9, Document: "ctx"}}}
	completer := &fakeCompleter{answer: "a2"}
	hist := history.NewMemStore()
	hist.Append(context.Background(), "s", []history.Turn{
		{Role: history.RoleHuman, Content: "earlier question"},
		{Role: history.RoleAI, Content: "earlier answer"},
	})
	a := newAnswerer(searcher, completer, hist)

	if _, err := a.Answer(context.Background(), Request{Question: "followup", SessionID: "s"}); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if !strings.Contains(completer.prompt, "earlier answer") {
		t.Errorf("prompt missing prior history: %q", completer.prompt)
	}
}

func TestAnswer_GeneratesSessionID(t *testing.T) {
	searcher := &fakeSearcher{}
	a := newAnswerer(searcher, &fakeCompleter{}, history.NewMemStore())

	if _, err := a.Answer(context.Background(), Request{Question: "q"}); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if !searcher.ensured {
		t.Error("EnsureIndex not called")
	}
}

func TestAnswer_DefaultIndex(t *testing.T) {
	searcher := &fakeSearcher{}
	a := newAnswerer(searcher, &fakeCompleter{}, history.NewMemStore())

	if _, err := a.Answer(context.Background(), Request{Question: "q", SessionID: "s"}); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if searcher.searchCalls != 1 {
		t.Errorf("search calls = %d, want 1", searcher.searchCalls)
	}
}
