package memory

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// fakeService records calls and returns canned responses.
type fakeService struct {
	added      []string
	addedTags  []string
	addErr     error
	searchHits []Result
	searchErr  error
	delay      time.Duration
}

func (f *fakeService) Add(ctx context.Context, content, tag string, meta Metadata) (string, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.addErr != nil {
		return "", f.addErr
	}
	f.added = append(f.added, content)
	f.addedTags = append(f.addedTags, tag)
	return "rec-1", nil
}

func (f *fakeService) Search(ctx context.Context, query, tag string, limit int) ([]Result, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.searchHits, f.searchErr
}

func (f *fakeService) List(ctx context.Context, tag string, limit int) ([]Record, error) {
	return nil, nil
}

func (f *fakeService) Forget(ctx context.Context, tag, recordID string) (bool, error) {
	return true, nil
}

func testClient(svc Service) *Client {
	return NewClient(svc, "tester", "/home/tester/proj", time.Second, 10)
}

func TestTagsDeterministicAndScoped(t *testing.T) {
	a := testClient(&fakeService{})
	b := testClient(&fakeService{})

	if a.Tag(ScopeUser) != b.Tag(ScopeUser) {
		t.Error("user tags should be deterministic")
	}
	if a.Tag(ScopeUser) == a.Tag(ScopeProject) {
		t.Error("user and project tags must differ")
	}
	if !strings.HasPrefix(a.Tag(ScopeUser), "ballast-user-") {
		t.Errorf("user tag = %q, want ballast-user- prefix", a.Tag(ScopeUser))
	}
	if !strings.HasPrefix(a.Tag(ScopeProject), "ballast-proj-") {
		t.Errorf("project tag = %q, want ballast-proj- prefix", a.Tag(ScopeProject))
	}
	if strings.Contains(a.Tag(ScopeProject), "tester") {
		t.Error("tag leaks the raw path")
	}
}

func TestNilClientDisabled(t *testing.T) {
	var c *Client
	if c.Enabled() {
		t.Error("nil client should be disabled")
	}
	if got := c.Search(context.Background(), "q", ScopeUser); got != nil {
		t.Errorf("nil client search = %v, want nil", got)
	}
}

func TestAddRedactsPrivateSpans(t *testing.T) {
	svc := &fakeService{}
	c := testClient(svc)

	id := c.Add(context.Background(),
		"the fix was to bump the pool size <private>db password is hunter2</private> in config",
		ScopeProject, Metadata{Type: "note"})

	if id == "" {
		t.Fatal("expected successful add")
	}
	if len(svc.added) != 1 {
		t.Fatalf("added %d records, want 1", len(svc.added))
	}
	if strings.Contains(svc.added[0], "hunter2") {
		t.Errorf("private content reached the service: %q", svc.added[0])
	}
	if svc.addedTags[0] != c.Tag(ScopeProject) {
		t.Errorf("tag = %q, want project tag", svc.addedTags[0])
	}
}

func TestAddSkipsFullyRedacted(t *testing.T) {
	svc := &fakeService{}
	c := testClient(svc)

	id := c.Add(context.Background(),
		"<private>all of this is secret</private>", ScopeUser, Metadata{Type: "note"})

	if id != "" {
		t.Errorf("id = %q, want skipped write", id)
	}
	if len(svc.added) != 0 {
		t.Errorf("service received %d adds, want 0", len(svc.added))
	}
}

func TestSearchDegradesOnError(t *testing.T) {
	c := testClient(&fakeService{searchErr: errors.New("boom")})

	if got := c.Search(context.Background(), "query", ScopeUser); got != nil {
		t.Errorf("search = %v, want nil on backend error", got)
	}
}

func TestSearchTimesOut(t *testing.T) {
	svc := &fakeService{delay: 5 * time.Second}
	c := NewClient(svc, "tester", "/p", 20*time.Millisecond, 10)

	start := time.Now()
	got := c.Search(context.Background(), "query", ScopeUser)
	elapsed := time.Since(start)

	if got != nil {
		t.Errorf("search = %v, want nil on timeout", got)
	}
	if elapsed > time.Second {
		t.Errorf("search took %v, should be bounded by the per-call timeout", elapsed)
	}
}

func TestSearchCapsResults(t *testing.T) {
	hits := make([]Result, 30)
	for i := range hits {
		hits[i] = Result{ID: "r", Similarity: 0.5}
	}
	c := testClient(&fakeService{searchHits: hits})

	if got := c.Search(context.Background(), "q", ScopeProject); len(got) != 10 {
		t.Errorf("len = %d, want capped at 10", len(got))
	}
}
