package memory

import (
	"context"
	"log"
	"time"

	"github.com/lazypower/ballast/internal/scrub"
)

const (
	defaultTimeout    = 10 * time.Second
	defaultMaxResults = 20
)

// Client is the memory continuity layer callers actually use. Every
// operation is bounded by its own timeout and degrades to an empty result on
// any failure — a dead or slow memory service must never interrupt the
// conversation flow. A nil or unconfigured Client is a no-op.
type Client struct {
	svc        Service
	userTag    string
	projectTag string
	timeout    time.Duration
	maxResults int
}

// NewClient builds a Client over svc with tags derived from the user
// identity and project path. A nil svc yields a disabled client.
func NewClient(svc Service, identity, projectPath string, timeout time.Duration, maxResults int) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	return &Client{
		svc:        svc,
		userTag:    UserTag(identity),
		projectTag: ProjectTag(projectPath),
		timeout:    timeout,
		maxResults: maxResults,
	}
}

// Enabled reports whether a backend is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.svc != nil
}

// Tag returns the container tag for a scope.
func (c *Client) Tag(scope Scope) string {
	if scope == ScopeUser {
		return c.userTag
	}
	return c.projectTag
}

// Search returns ranked results for the query under the scope's tag, capped
// at the configured maximum. Failures log and return nil.
func (c *Client) Search(ctx context.Context, query string, scope Scope) []Result {
	if !c.Enabled() {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	results, err := c.svc.Search(ctx, query, c.Tag(scope), c.maxResults)
	if err != nil {
		log.Printf("memory: search (%s) failed: %v", scope, err)
		return nil
	}
	if len(results) > c.maxResults {
		results = results[:c.maxResults]
	}
	return results
}

// Add stores content under the scope's tag after redacting private spans.
// Returns the record id, or "" if the write was skipped or failed. Content
// that is empty or nearly empty after redaction is skipped by design.
func (c *Client) Add(ctx context.Context, content string, scope Scope, meta Metadata) string {
	if !c.Enabled() {
		return ""
	}

	content = scrub.Redact(content)
	if scrub.TooShort(content) {
		log.Printf("memory: skipping add (%s) — content too short after redaction", scope)
		return ""
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	id, err := c.svc.Add(ctx, content, c.Tag(scope), meta)
	if err != nil {
		log.Printf("memory: add (%s) failed: %v", scope, err)
		return ""
	}
	return id
}

// List returns the most recent records under the scope's tag, newest first.
// Failures log and return nil.
func (c *Client) List(ctx context.Context, scope Scope, limit int) []Record {
	if !c.Enabled() {
		return nil
	}
	if limit <= 0 || limit > c.maxResults {
		limit = c.maxResults
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	records, err := c.svc.List(ctx, c.Tag(scope), limit)
	if err != nil {
		log.Printf("memory: list (%s) failed: %v", scope, err)
		return nil
	}
	return records
}

// Forget removes one record (or the whole scope when recordID is empty).
// Failures log and return false.
func (c *Client) Forget(ctx context.Context, scope Scope, recordID string) bool {
	if !c.Enabled() {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ok, err := c.svc.Forget(ctx, c.Tag(scope), recordID)
	if err != nil {
		log.Printf("memory: forget (%s) failed: %v", scope, err)
		return false
	}
	return ok
}
