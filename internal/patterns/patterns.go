// Package patterns scans finished-session transcripts for reusable
// knowledge — corrections, explicit remember requests, resolved errors —
// and persists qualifying patterns through the memory client.
package patterns

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/lazypower/ballast/internal/memory"
	"github.com/lazypower/ballast/internal/scrub"
	"github.com/lazypower/ballast/internal/transcript"
)

// Category classifies an extracted pattern.
type Category string

const (
	ErrorResolution    Category = "error_resolution"
	DebuggingTechnique Category = "debugging_technique"
	Workaround         Category = "workaround"
	UserCorrection     Category = "user_correction"
	Preference         Category = "preference"
	Workflow           Category = "workflow"
)

// Pattern is one candidate piece of reusable knowledge.
type Pattern struct {
	Category    Category
	Description string
	Context     string
	Solution    string
	Confidence  float64 // in [0, 1]
	Scope       memory.Scope
}

// Engine runs idle-time pattern extraction.
type Engine struct {
	mem           *memory.Client
	classifier    Classifier
	minMessages   int
	minConfidence float64
	maxChars      int
}

// New creates an extraction engine. A nil classifier gets the default
// marker-based one.
func New(mem *memory.Client, classifier Classifier, minMessages int, minConfidence float64, maxChars int) *Engine {
	if classifier == nil {
		classifier = NewMarkerClassifier()
	}
	if minMessages <= 0 {
		minMessages = 6
	}
	if maxChars <= 0 {
		maxChars = 2000
	}
	return &Engine{
		mem:           mem,
		classifier:    classifier,
		minMessages:   minMessages,
		minConfidence: minConfidence,
		maxChars:      maxChars,
	}
}

// OnSessionIdle scans the transcript and stores qualifying patterns.
// Returns the number stored. Short transcripts yield nothing.
func (e *Engine) OnSessionIdle(ctx context.Context, sessionID string, msgs []transcript.Message) int {
	if len(msgs) < e.minMessages {
		return 0
	}
	if !e.mem.Enabled() {
		return 0
	}

	candidates := e.classifier.Classify(msgs)

	var keep []Pattern
	for _, p := range candidates {
		if p.Confidence < e.minConfidence {
			continue
		}
		keep = append(keep, p)
	}
	keep = dedupe(keep)

	stored := 0
	for _, p := range keep {
		text := scrub.Redact(serialize(p))
		if scrub.TooShort(text) {
			continue
		}
		text = scrub.Truncate(text, e.maxChars)

		id := e.mem.Add(ctx, text, p.Scope, memory.Metadata{
			Type:       "learned-pattern",
			Category:   string(p.Category),
			Confidence: p.Confidence,
			SessionID:  sessionID,
			Timestamp:  time.Now(),
		})
		if id != "" {
			stored++
		}
	}

	if stored > 0 {
		log.Printf("patterns: stored %d patterns from session %s", stored, sessionID)
	}
	return stored
}

// dedupe collapses patterns sharing (category, first 100 chars of solution).
// The first occurrence wins.
func dedupe(pats []Pattern) []Pattern {
	seen := make(map[string]bool)
	var out []Pattern
	for _, p := range pats {
		sol := p.Solution
		if len(sol) > 100 {
			sol = sol[:100]
		}
		key := string(p.Category) + "|" + sol
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}

// serialize renders a pattern as one storable text block.
func serialize(p Pattern) string {
	s := fmt.Sprintf("[%s] %s", p.Category, p.Description)
	if p.Context != "" {
		s += "\nContext: " + p.Context
	}
	if p.Solution != "" && p.Solution != p.Description {
		s += "\nResolution: " + p.Solution
	}
	return s
}
