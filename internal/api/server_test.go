package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tlhuang/manualrag/internal/config"
	"github.com/tlhuang/manualrag/internal/history"
	"github.com/tlhuang/manualrag/internal/llm"
	"github.com/tlhuang/manualrag/internal/pipeline"
	"github.com/tlhuang/manualrag/internal/query"
	"github.com/tlhuang/manualrag/internal/search"
	"github.com/tlhuang/manualrag/internal/storage"
)

type staticSearcher struct{ hits []search.Hit }

func (s *staticSearcher) EnsureIndex(ctx context.Context, name string, dimension int, recreate bool) error {
	return nil
}

func (s *staticSearcher) Search(ctx context.Context, index string, vector []float32, k int) ([]search.Hit, error) {
	return s.hits, nil
}

type staticEmbedder struct{}

func (staticEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.5}, nil
}

type staticCompleter struct{ answer string }

func (s *staticCompleter) Complete(ctx context.Context, system string, messages []llm.Message) (string, error) {
	return s.answer, nil
}

func testConfig() config.Config {
	return config.Config{
		APIKey:          "secret",
		DefaultIndex:    "manuals",
		MarkdownBucket:  "markdown",
		CaptionedBucket: "captioned",
		ImageBucket:     "images",
		ChunkBucket:     "chunks",
		MaxUploadBytes:  1 << 20,
		MaxQueueSize:    4,
		JobTTL:          time.Hour,
	}
}

// newTestServer wires a server whose pipeline workers are never started, so
// submitted jobs stay queued. That is all the handler tests need.
func newTestServer(t *testing.T, store storage.Store, hits []search.Hit) *Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := testConfig()
	orch := pipeline.NewOrchestrator(cfg, store, nil, nil, nil, log)
	answerer := query.NewAnswerer(&staticSearcher{hits: hits}, staticEmbedder{},
		&staticCompleter{answer: "use the charger"}, history.NewMemStore(),
		cfg.DefaultIndex, 1536, 3, 0.58, log)
	return NewServer(orch, answerer, store, log, cfg)
}

func authed(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer secret")
	return req
}

func multipartUpload(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	io.WriteString(fw, content)
	mw.Close()
	return &body, mw.FormDataContentType()
}

func TestHealthIsPublic(t *testing.T) {
	s := newTestServer(t, storage.NewMemStore(), nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t, storage.NewMemStore(), nil)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader("{}")))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("no token: Content-Type = %q, want application/json", ct)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader("{}"))
	req.Header.Set("Authorization", "Bearer wrong")
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token: status = %d, want 401", rec.Code)
	}
}

func TestIngestAcceptsAndTracksJob(t *testing.T) {
	s := newTestServer(t, storage.NewMemStore(), nil)
	body, contentType := multipartUpload(t, "file", "scooter manual.md", "# Manual\nSome content here.\n")

	req := authed(httptest.NewRequest(http.MethodPost, "/api/ingest", body))
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var resp struct {
		JobID    string `json:"job_id"`
		Document string `json:"document"`
		Index    string `json:"index"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Document != "scootermanual" {
		t.Errorf("document = %q", resp.Document)
	}
	if resp.Index != "manuals" {
		t.Errorf("index = %q", resp.Index)
	}

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodGet, "/api/ingest/"+resp.JobID+"/status", nil)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status endpoint = %d", rec.Code)
	}
	var status struct {
		Status string `json:"status"`
	}
	json.Unmarshal(rec.Body.Bytes(), &status)
	if status.Status != string(pipeline.StatusQueued) {
		t.Errorf("job status = %q, want queued", status.Status)
	}
}

func TestIngestRejectsUnsupportedType(t *testing.T) {
	s := newTestServer(t, storage.NewMemStore(), nil)
	body, contentType := multipartUpload(t, "file", "sheet.xlsx", "data")

	req := authed(httptest.NewRequest(http.MethodPost, "/api/ingest", body))
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestIngestStatusUnknownJob(t *testing.T) {
	s := newTestServer(t, storage.NewMemStore(), nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodGet, "/api/ingest/nope/status", nil)))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestQueryEndpoint(t *testing.T) {
	hits := []search.Hit{{ID: 1, Score: 0.9, Chapter: "Charging", Document: "plug it in"}}
	s := newTestServer(t, storage.NewMemStore(), hits)

	body := `{"question":"how do I charge?","session_id":"s1"}`
	req := authed(httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(body)))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var resp query.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Answer != "use the charger" || resp.SourcesCount != 1 {
		t.Errorf("response = %+v", resp)
	}
}

func TestQueryRequiresQuestion(t *testing.T) {
	s := newTestServer(t, storage.NewMemStore(), nil)
	req := authed(httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{"question":"  "}`)))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestPreviewRendersHTML(t *testing.T) {
	store := storage.NewMemStore()
	store.Put(context.Background(), "captioned", "manual.md", []byte("# Manual\n\nBody text.\n"))
	s := newTestServer(t, store, nil)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodGet, "/api/documents/manual/preview", nil)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "<h1>Manual</h1>") {
		t.Errorf("body = %s", rec.Body)
	}
}

func TestMarkdownFallsBackToUncaptioned(t *testing.T) {
	store := storage.NewMemStore()
	store.Put(context.Background(), "markdown", "manual.md", []byte("# Raw\n"))
	s := newTestServer(t, store, nil)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodGet, "/api/documents/manual/markdown", nil)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Body.String(); got != "# Raw\n" {
		t.Errorf("body = %q", got)
	}

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodGet, "/api/documents/missing/markdown", nil)))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing doc status = %d, want 404", rec.Code)
	}
}

func TestImageServing(t *testing.T) {
	store := storage.NewMemStore()
	store.Put(context.Background(), "images", "manual/page1_img1.jpg", []byte{0xff, 0xd8, 0xff})
	s := newTestServer(t, store, nil)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/images/manual/page1_img1.jpg", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("content type = %q", ct)
	}
}
