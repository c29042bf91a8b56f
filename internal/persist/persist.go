// Package persist captures session state around a compaction so the next
// session can pick up where this one left off. The summary produced by the
// host is parsed into coarse buckets and stored as a project-scoped record.
package persist

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/lazypower/ballast/internal/memory"
	"github.com/lazypower/ballast/internal/scrub"
)

// SessionState is the structured form of what a session was doing when its
// context was compacted.
type SessionState struct {
	CurrentWork string
	Decisions   []string
	Blockers    []string
	NextSteps   []string
	Timestamp   time.Time
	SessionID   string
}

// Engine persists pre-compaction session state.
type Engine struct {
	mem      *memory.Client
	maxChars int
}

// New creates a persist engine. maxChars caps the stored record size.
func New(mem *memory.Client, maxChars int) *Engine {
	if maxChars <= 0 {
		maxChars = 2000
	}
	return &Engine{mem: mem, maxChars: maxChars}
}

// OnPreCompaction parses the summary, serializes the resulting state, and
// stores it. Returns the record id, or "" when nothing useful was stored.
// Failures degrade silently; compaction proceeds regardless.
func (e *Engine) OnPreCompaction(ctx context.Context, sessionID, summary string) string {
	if !e.mem.Enabled() {
		return ""
	}

	// Redact and gate before the snapshot header goes on; a blank or fully
	// private summary must not leave a content-free record behind.
	clean := scrub.Redact(summary)
	if scrub.TooShort(clean) {
		return ""
	}

	state := ParseSummary(clean)
	state.SessionID = sessionID
	state.Timestamp = time.Now()

	text := scrub.Truncate(serialize(state), e.maxChars)

	id := e.mem.Add(ctx, text, memory.ScopeProject, memory.Metadata{
		Type:      "session-state",
		SessionID: sessionID,
		Timestamp: state.Timestamp,
	})
	if id != "" {
		log.Printf("persist: stored session state for %s", sessionID)
	}
	return id
}

// Line prefixes that route a summary line into a bucket. Matching is
// case-insensitive against the trimmed line with any leading list marker
// stripped.
var (
	decisionPrefixes = []string{
		"decided", "decision:", "chose", "agreed", "we will use", "going with",
	}
	blockerPrefixes = []string{
		"blocked", "blocker:", "waiting on", "stuck on", "cannot", "can't",
	}
	nextStepPrefixes = []string{
		"next:", "next step", "todo:", "remaining:", "still need", "then ",
		"follow up", "left to do",
	}
)

// ParseSummary splits a free-form summary into state buckets by line. Lines
// that match no bucket accumulate into CurrentWork.
func ParseSummary(summary string) SessionState {
	var state SessionState
	var work []string

	for _, raw := range strings.Split(summary, "\n") {
		line := strings.TrimSpace(raw)
		line = strings.TrimLeft(line, "-*• \t")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		lower := strings.ToLower(line)
		switch {
		case hasAnyPrefix(lower, decisionPrefixes):
			state.Decisions = append(state.Decisions, line)
		case hasAnyPrefix(lower, blockerPrefixes):
			state.Blockers = append(state.Blockers, line)
		case hasAnyPrefix(lower, nextStepPrefixes):
			state.NextSteps = append(state.NextSteps, line)
		default:
			work = append(work, line)
		}
	}

	state.CurrentWork = strings.Join(work, "\n")
	return state
}

func hasAnyPrefix(line string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}

// serialize renders the state as one storable text block.
func serialize(s SessionState) string {
	var b strings.Builder
	b.WriteString("Session state snapshot")
	if !s.Timestamp.IsZero() {
		b.WriteString(fmt.Sprintf(" (%s)", s.Timestamp.Format(time.RFC3339)))
	}
	b.WriteString("\n")

	if s.CurrentWork != "" {
		b.WriteString("Current work:\n" + s.CurrentWork + "\n")
	}
	writeSection(&b, "Decisions", s.Decisions)
	writeSection(&b, "Blockers", s.Blockers)
	writeSection(&b, "Next steps", s.NextSteps)
	return strings.TrimSpace(b.String())
}

func writeSection(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString(title + ":\n")
	for _, it := range items {
		b.WriteString("- " + it + "\n")
	}
}
