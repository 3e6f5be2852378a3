// Package query answers user questions against the vector index: embed the
// question, retrieve chunks above the relevance threshold, and ask the chat
// model with the retrieved text and the session's history as context.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/tlhuang/manualrag/internal/history"
	"github.com/tlhuang/manualrag/internal/llm"
	"github.com/tlhuang/manualrag/internal/search"
)

// DontKnowAnswer is returned without calling the model when no retrieved
// chunk clears the relevance threshold.
const DontKnowAnswer = "I don't know"

const promptTemplate = `If the context is not relevant, please answer the question by using your own knowledge about the topic. If you don't know the answer, just say that you don't know, don't try to make up an answer. don't include harmful content
Chat History: %s

%s

Question: %s
Answer:`

// Searcher is the slice of the search client the answerer needs.
type Searcher interface {
	EnsureIndex(ctx context.Context, name string, dimension int, recreate bool) error
	Search(ctx context.Context, index string, vector []float32, k int) ([]search.Hit, error)
}

// Embedder turns the question into a query vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Completer generates the final answer.
type Completer interface {
	Complete(ctx context.Context, system string, messages []llm.Message) (string, error)
}

// Request is one question against one index within one chat session.
type Request struct {
	Question  string `json:"question"`
	Index     string `json:"index"`
	SessionID string `json:"session_id"`
}

// Source is one retrieved chunk that contributed to the answer.
type Source struct {
	Order           int     `json:"order"`
	Chapter         string  `json:"chapter"`
	Document        string  `json:"document"`
	SimilarityScore float64 `json:"similarity_score"`
}

// Response carries the answer plus the retrieval evidence.
// SimilarityScore is the sum over the retained sources.
type Response struct {
	Answer          string   `json:"answer"`
	Sources         []Source `json:"sources"`
	SourcesCount    int      `json:"sources_count"`
	SimilarityScore float64  `json:"similarity_score"`
}

// Answerer wires the query-time collaborators together.
type Answerer struct {
	searcher  Searcher
	embedder  Embedder
	completer Completer
	history   history.Store
	log       *slog.Logger

	defaultIndex string
	dimension    int
	topK         int
	threshold    float64
}

func NewAnswerer(searcher Searcher, embedder Embedder, completer Completer, hist history.Store, defaultIndex string, dimension, topK int, threshold float64, log *slog.Logger) *Answerer {
	return &Answerer{
		searcher:     searcher,
		embedder:     embedder,
		completer:    completer,
		history:      hist,
		log:          log,
		defaultIndex: defaultIndex,
		dimension:    dimension,
		topK:         topK,
		threshold:    threshold,
	}
}

// Answer runs the retrieval-augmented answer flow for one request. Service
// errors propagate to the caller; an empty retrieval is not an error and
// yields the canned answer.
func (a *Answerer) Answer(ctx context.Context, req Request) (Response, error) {
	index := req.Index
	if index == "" {
		index = a.defaultIndex
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
		a.log.Info("generated session id", "session_id", sessionID)
	}

	if err := a.searcher.EnsureIndex(ctx, index, a.dimension, false); err != nil {
		return Response{}, fmt.Errorf("ensure index %s: %w", index, err)
	}

	turns, err := a.history.Read(ctx, sessionID)
	if err != nil {
		return Response{}, fmt.Errorf("read history: %w", err)
	}

	vector, err := a.embedder.Embed(ctx, req.Question)
	if err != nil {
		return Response{}, fmt.Errorf("embed question: %w", err)
	}

	hits, err := a.searcher.Search(ctx, index, vector, a.topK)
	if err != nil {
		return Response{}, fmt.Errorf("search %s: %w", index, err)
	}

	var sources []Source
	var scoreSum float64
	for _, h := range hits {
		if h.Score < a.threshold {
			continue
		}
		sources = append(sources, Source{
			Order:           h.ID,
			Chapter:         h.Chapter,
			Document:        h.Document,
			SimilarityScore: h.Score,
		})
		scoreSum += h.Score
	}
	a.log.Info("retrieved chunks", "index", index, "hits", len(hits), "relevant", len(sources))

	var answer string
	if len(sources) == 0 {
		answer = DontKnowAnswer
	} else {
		prompt := fmt.Sprintf(promptTemplate, renderHistory(turns), renderContext(sources), req.Question)
		answer, err = a.completer.Complete(ctx, "", []llm.Message{{Role: "user", Content: prompt}})
		if err != nil {
			return Response{}, fmt.Errorf("complete: %w", err)
		}
	}

	if err := a.history.Append(ctx, sessionID, []history.Turn{
		{Role: history.RoleHuman, Content: req.Question},
		{Role: history.RoleAI, Content: answer},
	}); err != nil {
		return Response{}, fmt.Errorf("append history: %w", err)
	}

	return Response{
		Answer:          answer,
		Sources:         sources,
		SourcesCount:    len(sources),
		SimilarityScore: scoreSum,
	}, nil
}

func renderHistory(turns []history.Turn) string {
	if len(turns) == 0 {
		return "(none)"
	}
	var sb strings.Builder
	for _, t := range turns {
		sb.WriteString(t.Role)
		sb.WriteString(": ")
		sb.WriteString(t.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}

func renderContext(sources []Source) string {
	var sb strings.Builder
	for _, s := range sources {
		if s.Document == "" {
			continue
		}
		sb.WriteString(s.Document)
		sb.WriteString("\n\n")
	}
	return strings.TrimSpace(sb.String())
}
