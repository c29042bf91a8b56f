// Package host is the client for the conversation engine's local control
// API. Ballast uses it to dispatch summarize requests and continuation
// prompts back into a session.
package host

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Client talks to the host control API.
type Client struct {
	http    *http.Client
	baseURL string
}

// NewClient creates a control client for the given base URL. Request
// lifetimes are bounded by the caller's context, not a client timeout, since
// a summarize call legitimately takes as long as the model does.
func NewClient(baseURL string) *Client {
	return &Client{
		http:    &http.Client{},
		baseURL: baseURL,
	}
}

type summarizeRequest struct {
	ProviderID string `json:"provider_id"`
	ModelID    string `json:"model_id"`
}

type promptRequest struct {
	Text string `json:"text"`
}

// Summarize asks the host to compact the session. Blocks until the host
// reports the summary is done.
func (c *Client) Summarize(ctx context.Context, sessionID, providerID, modelID string) error {
	path := fmt.Sprintf("/sessions/%s/summarize", sessionID)
	return c.post(ctx, path, summarizeRequest{ProviderID: providerID, ModelID: modelID})
}

// SendPrompt submits a user-style prompt into the session.
func (c *Client) SendPrompt(ctx context.Context, sessionID, text string) error {
	path := fmt.Sprintf("/sessions/%s/prompt", sessionID)
	return c.post(ctx, path, promptRequest{Text: text})
}

// Transcript fetches the session's recent conversation text. Used to
// capture session state before a compaction discards it.
func (c *Client) Transcript(ctx context.Context, sessionID string) (string, error) {
	path := fmt.Sprintf("/sessions/%s/transcript", sessionID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return "", fmt.Errorf("build request %s: %w", path, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, msg)
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode %s: %w", path, err)
	}
	return out.Text, nil
}

func (c *Client) post(ctx context.Context, path string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("POST %s: status %d: %s", path, resp.StatusCode, msg)
	}
	return nil
}
