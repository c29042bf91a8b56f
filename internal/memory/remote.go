package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// RemoteService talks to a semantic-memory REST service. Authentication is
// a bearer API key; search ranking is whatever the service's hybrid search
// returns — ballast only filters and sorts on top of it.
type RemoteService struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewRemoteService creates a client for the memory service at baseURL.
// The http.Client carries no timeout of its own; callers bound each request
// through the context.
func NewRemoteService(baseURL, apiKey string) *RemoteService {
	return &RemoteService{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{},
	}
}

func (s *RemoteService) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response %s: %w", path, err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, data)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response %s: %w", path, err)
		}
	}
	return nil
}

func (s *RemoteService) Add(ctx context.Context, content, tag string, meta Metadata) (string, error) {
	req := struct {
		Content  string   `json:"content"`
		Tag      string   `json:"tag"`
		Metadata Metadata `json:"metadata"`
	}{content, tag, meta}

	var resp struct {
		ID string `json:"id"`
	}
	if err := s.do(ctx, http.MethodPost, "/v1/memories", req, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (s *RemoteService) Search(ctx context.Context, query, tag string, limit int) ([]Result, error) {
	req := struct {
		Query string `json:"query"`
		Tag   string `json:"tag"`
		Limit int    `json:"limit"`
	}{query, tag, limit}

	var resp struct {
		Results []Result `json:"results"`
	}
	if err := s.do(ctx, http.MethodPost, "/v1/search", req, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (s *RemoteService) List(ctx context.Context, tag string, limit int) ([]Record, error) {
	params := url.Values{}
	params.Set("tag", tag)
	params.Set("limit", fmt.Sprintf("%d", limit))

	var resp struct {
		Memories []Record `json:"memories"`
	}
	if err := s.do(ctx, http.MethodGet, "/v1/memories?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Memories, nil
}

func (s *RemoteService) Forget(ctx context.Context, tag, recordID string) (bool, error) {
	params := url.Values{}
	params.Set("tag", tag)

	path := "/v1/memories"
	if recordID != "" {
		path += "/" + url.PathEscape(recordID)
	}

	var resp struct {
		Deleted int `json:"deleted"`
	}
	if err := s.do(ctx, http.MethodDelete, path+"?"+params.Encode(), nil, &resp); err != nil {
		return false, err
	}
	return resp.Deleted > 0, nil
}
