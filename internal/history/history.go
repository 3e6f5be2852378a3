// Package history stores per-session chat turns. Sessions are append-only
// ordered lists keyed by session id; the query path reads before answering
// and writes after.
package history

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

const (
	RoleHuman = "human"
	RoleAI    = "ai"
)

// Turn is one chat message.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Store is the chat-history contract. Implementations must tolerate
// concurrent writers for distinct session ids.
type Store interface {
	Append(ctx context.Context, sessionID string, turns []Turn) error
	Read(ctx context.Context, sessionID string) ([]Turn, error)
}

// Client talks to the session-table HTTP service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type appendRequest struct {
	Turns []Turn `json:"turns"`
}

type readResponse struct {
	Turns []Turn `json:"turns"`
}

// Append adds turns to the end of a session's history.
func (c *Client) Append(ctx context.Context, sessionID string, turns []Turn) error {
	body, err := json.Marshal(appendRequest{Turns: turns})
	if err != nil {
		return fmt.Errorf("marshal turns: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sessions/"+sessionID+"/turns", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("append history %s: status %d: %s", sessionID, resp.StatusCode, string(respBody))
	}
	return nil
}

// Read returns a session's turns in order. An unknown session yields an
// empty history, not an error.
func (c *Client) Read(ctx context.Context, sessionID string) ([]Turn, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/sessions/"+sessionID, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("read history %s: status %d: %s", sessionID, resp.StatusCode, string(respBody))
	}

	var out readResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return out.Turns, nil
}

// Close releases resources.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// MemStore keeps histories in memory. Used in tests and in single-process
// deployments without a history service.
type MemStore struct {
	mu       sync.Mutex
	sessions map[string][]Turn
}

func NewMemStore() *MemStore {
	return &MemStore{sessions: make(map[string][]Turn)}
}

func (s *MemStore) Append(ctx context.Context, sessionID string, turns []Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = append(s.sessions[sessionID], turns...)
	return nil
}

func (s *MemStore) Read(ctx context.Context, sessionID string) ([]Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns := s.sessions[sessionID]
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out, nil
}
