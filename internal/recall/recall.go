// Package recall fetches related prior memories at session start and hands
// them to the context collector for injection.
package recall

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"

	"github.com/lazypower/ballast/internal/collect"
	"github.com/lazypower/ballast/internal/memory"
)

// exploratoryQuery is the fixed query issued at session start. Session start
// has no user intent to search on yet, so we ask for the broad categories
// worth re-surfacing.
const exploratoryQuery = "project decisions, user preferences and corrections, resolved errors, current work in progress"

// Engine runs the session-start recall flow.
type Engine struct {
	mem       *memory.Client
	collector collect.Collector
	limit     int
	minScore  float64
}

// New creates a recall engine. limit caps injected memories; minScore drops
// weak matches.
func New(mem *memory.Client, collector collect.Collector, limit int, minScore float64) *Engine {
	if limit <= 0 {
		limit = 8
	}
	return &Engine{
		mem:       mem,
		collector: collector,
		limit:     limit,
		minScore:  minScore,
	}
}

// OnSessionCreated recalls prior knowledge for a newly created session.
// Only root sessions recall — child/delegated sessions inherit their
// parent's context and re-injecting would duplicate it. Every failure path
// degrades to "no injected block"; session creation never fails here.
func (e *Engine) OnSessionCreated(ctx context.Context, sessionID string, root bool) {
	if !root || !e.mem.Enabled() {
		return
	}

	// Both scopes in parallel; each search is independently timeout-guarded
	// by the client.
	var userHits, projectHits []memory.Result
	var wg conc.WaitGroup
	wg.Go(func() {
		userHits = e.mem.Search(ctx, exploratoryQuery, memory.ScopeUser)
	})
	wg.Go(func() {
		projectHits = e.mem.Search(ctx, exploratoryQuery, memory.ScopeProject)
	})
	wg.Wait()

	merged := e.merge(userHits, projectHits)
	if len(merged) == 0 {
		return
	}

	e.collector.Register(sessionID, collect.Fragment{
		ID:       uuid.NewString(),
		Content:  render(merged),
		Source:   "recall",
		Priority: 10,
	})
	log.Printf("recall: injected %d memories for session %s", len(merged), sessionID)
}

// merge deduplicates by record id (max similarity wins), drops weak hits,
// sorts descending, and caps at the recall limit.
func (e *Engine) merge(lists ...[]memory.Result) []memory.Result {
	seen := make(map[string]memory.Result)
	for _, list := range lists {
		for _, r := range list {
			if r.Similarity < e.minScore {
				continue
			}
			existing, ok := seen[r.ID]
			if !ok || r.Similarity > existing.Similarity {
				seen[r.ID] = r
			}
		}
	}

	merged := make([]memory.Result, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Similarity > merged[j].Similarity
	})
	if len(merged) > e.limit {
		merged = merged[:e.limit]
	}
	return merged
}

// render formats recalled memories as a tagged context block.
func render(results []memory.Result) string {
	var b strings.Builder
	b.WriteString("<recalled-memories>\n")
	b.WriteString("Knowledge carried over from previous sessions:\n")
	for _, r := range results {
		kind := r.Type
		if kind == "" {
			kind = "note"
		}
		b.WriteString(fmt.Sprintf("- [%s] %s\n", kind, r.Content))
	}
	b.WriteString("</recalled-memories>")
	return b.String()
}
