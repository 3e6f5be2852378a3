// Package search talks to the OpenSearch cluster that stores chunk vectors:
// index lifecycle, bulk upserts and knn retrieval.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Record is one indexed chunk: the chunk order as id, its title as chapter,
// its body as document, plus the embedding vector.
type Record struct {
	Index    string    `json:"-"`
	ID       int       `json:"id"`
	Chapter  string    `json:"chapter"`
	Document string    `json:"document"`
	Vector   []float32 `json:"vector_field"`
}

// Hit is one retrieval result with its similarity score and stored fields.
type Hit struct {
	ID       int
	Score    float64
	Chapter  string
	Document string
}

// Client is a REST client for the OpenSearch cluster.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
}

func NewClient(baseURL, username, password string) *Client {
	return &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		username: username,
		password: password,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	return req, nil
}

func mapping(dimension int) map[string]any {
	return map[string]any{
		"properties": map[string]any{
			"vector_field": map[string]any{"type": "knn_vector", "dimension": dimension},
			"id":           map[string]any{"type": "integer"},
			"chapter":      map[string]any{"type": "keyword"},
			"document":     map[string]any{"type": "text"},
		},
	}
}

// IndexExists reports whether the index exists.
func (c *Client) IndexExists(ctx context.Context, name string) (bool, error) {
	req, err := c.newRequest(ctx, http.MethodHead, "/"+name, nil)
	if err != nil {
		return false, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("head index %s: %w", name, err)
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("head index %s: status %d", name, resp.StatusCode)
	}
}

// CreateIndex creates a knn-enabled index with the vector mapping.
func (c *Client) CreateIndex(ctx context.Context, name string, dimension int) error {
	body, err := json.Marshal(map[string]any{
		"settings": map[string]any{"index": map[string]any{"knn": true}},
		"mappings": mapping(dimension),
	})
	if err != nil {
		return fmt.Errorf("marshal index body: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPut, "/"+name, body)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("create index %s: %w", name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("create index %s: status %d: %s", name, resp.StatusCode, string(respBody))
	}
	return nil
}

// PutMapping re-applies the field mapping to an existing index. This is
// non-destructive and safe to repeat.
func (c *Client) PutMapping(ctx context.Context, name string, dimension int) error {
	body, err := json.Marshal(mapping(dimension))
	if err != nil {
		return fmt.Errorf("marshal mapping: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPut, "/"+name+"/_mapping", body)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("put mapping %s: %w", name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("put mapping %s: status %d: %s", name, resp.StatusCode, string(respBody))
	}
	return nil
}

// DeleteIndex deletes the index. A missing index is treated as success.
func (c *Client) DeleteIndex(ctx context.Context, name string) (bool, error) {
	req, err := c.newRequest(ctx, http.MethodDelete, "/"+name, nil)
	if err != nil {
		return false, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("delete index %s: %w", name, err)
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK, http.StatusNotFound:
		return true, nil
	default:
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return false, fmt.Errorf("delete index %s: status %d: %s", name, resp.StatusCode, string(respBody))
	}
}

// EnsureIndex makes the index ready for writes: create it if absent,
// otherwise re-apply the mapping. With recreate set, any existing index is
// deleted first.
func (c *Client) EnsureIndex(ctx context.Context, name string, dimension int, recreate bool) error {
	if recreate {
		if _, err := c.DeleteIndex(ctx, name); err != nil {
			return err
		}
	}
	exists, err := c.IndexExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return c.CreateIndex(ctx, name, dimension)
	}
	return c.PutMapping(ctx, name, dimension)
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		Status int    `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	} `json:"items"`
}

// Bulk upserts a batch of records and returns per-item success and failure
// counts. Item failures are surfaced as counts, not as an error: the caller
// logs and moves on.
func (c *Client) Bulk(ctx context.Context, records []Record) (int, int, error) {
	if len(records) == 0 {
		return 0, 0, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range records {
		action := map[string]any{"index": map[string]any{"_index": r.Index}}
		if err := enc.Encode(action); err != nil {
			return 0, 0, fmt.Errorf("encode bulk action: %w", err)
		}
		if err := enc.Encode(r); err != nil {
			return 0, 0, fmt.Errorf("encode bulk record: %w", err)
		}
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/_bulk", buf.Bytes())
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("Content-Type", "application/x-ndjson")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("bulk: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, 0, fmt.Errorf("bulk: status %d: %s", resp.StatusCode, string(respBody))
	}

	var bulkResp bulkResponse
	if err := json.NewDecoder(resp.Body).Decode(&bulkResp); err != nil {
		return 0, 0, fmt.Errorf("decode bulk response: %w", err)
	}

	success, failed := 0, 0
	for _, item := range bulkResp.Items {
		for _, result := range item {
			if result.Status < 300 {
				success++
			} else {
				failed++
			}
		}
	}
	return success, failed, nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Score  float64 `json:"_score"`
			Fields struct {
				ID       []int    `json:"id"`
				Chapter  []string `json:"chapter"`
				Document []string `json:"document"`
			} `json:"fields"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search runs a knn query and returns the top k hits with their stored
// fields and similarity scores.
func (c *Client) Search(ctx context.Context, index string, vector []float32, k int) ([]Hit, error) {
	body, err := json.Marshal(map[string]any{
		"size": k,
		"query": map[string]any{
			"knn": map[string]any{
				"vector_field": map[string]any{"vector": vector, "k": k},
			},
		},
		"_source": false,
		"fields":  []string{"id", "chapter", "document"},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/"+index+"/_search", body)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", index, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("search %s: status %d: %s", index, resp.StatusCode, string(respBody))
	}

	var searchResp searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	hits := make([]Hit, 0, len(searchResp.Hits.Hits))
	for _, h := range searchResp.Hits.Hits {
		hit := Hit{Score: h.Score}
		if len(h.Fields.ID) > 0 {
			hit.ID = h.Fields.ID[0]
		}
		if len(h.Fields.Chapter) > 0 {
			hit.Chapter = h.Fields.Chapter[0]
		}
		if len(h.Fields.Document) > 0 {
			hit.Document = h.Fields.Document[0]
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Close releases resources.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
