// Package memory is the continuity layer around a semantic-memory service.
// A Service is the raw backend (remote HTTP or local sqlite); Client wraps a
// Service with scoped container tags, per-call timeouts, redaction, and
// degrade-to-empty error handling so callers never block or fail on it.
package memory

import (
	"context"
	"time"
)

// Metadata is the typed metadata attached to a stored memory. This replaces
// an open key/value bag so the known shapes are visible at compile time.
type Metadata struct {
	Type       string    `json:"type"` // learned-pattern, session-state, note
	Category   string    `json:"category,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
	SessionID  string    `json:"session_id,omitempty"`
	Timestamp  time.Time `json:"timestamp,omitempty"`
}

// Result is one ranked search hit.
type Result struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	Type       string    `json:"type"`
	Similarity float64   `json:"similarity"` // in [0, 1], backend-assigned
	CreatedAt  time.Time `json:"created_at,omitempty"`
}

// Record is one stored memory as returned by List.
type Record struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Meta      Metadata  `json:"metadata"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Service is a semantic-memory backend. Implementations return errors freely;
// the Client is responsible for degrading them to empty results.
type Service interface {
	Add(ctx context.Context, content, tag string, meta Metadata) (string, error)
	Search(ctx context.Context, query, tag string, limit int) ([]Result, error)
	List(ctx context.Context, tag string, limit int) ([]Record, error)
	Forget(ctx context.Context, tag, recordID string) (bool, error)
}
