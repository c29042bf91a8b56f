// Package monitor watches per-message token usage and decides when to
// compact a session's context. The decision path is synchronous and cheap;
// the compaction itself runs in a background goroutine so the event handler
// returns immediately.
package monitor

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lazypower/ballast/internal/collect"
	"github.com/lazypower/ballast/internal/config"
	"github.com/lazypower/ballast/internal/ledger"
	"github.com/lazypower/ballast/internal/memory"
)

// Summarizer dispatches compaction work to the host. Summarize blocks until
// the host finishes producing the summary (or fails).
type Summarizer interface {
	Summarize(ctx context.Context, sessionID, providerID, modelID string) error
	SendPrompt(ctx context.Context, sessionID, text string) error
}

// Notifier surfaces user-visible notices. Notify carries compaction state
// changes; Milestone carries usage-percentage crossings, which verbose
// implementations may surface and quiet ones drop.
type Notifier interface {
	Notify(sessionID, message string)
	Milestone(sessionID string, pct int)
}

// Usage milestones announced once each per session, in percent.
var milestones = []int{20, 40, 60, 80}

// Monitor owns the compaction trigger pipeline for all sessions.
type Monitor struct {
	cfg        config.CompactionConfig
	ledger     *ledger.Ledger
	summarizer Summarizer
	notifier   Notifier
	mem        *memory.Client
	collector  collect.Collector
	limits     LimitResolver
	hostWait   time.Duration

	// preSummarize runs before the summarize dispatch, while the session
	// content is still intact. The server wires session-state persistence
	// through it.
	preSummarize func(ctx context.Context, sessionID string)

	// onDone is a test hook signalled when a background compaction finishes.
	onDone func(sessionID string)

	mu       sync.Mutex
	lastSeen map[string]MessageEvent
}

// New creates a Monitor. notifier, collector, mem, and limits may be nil;
// the corresponding behaviors are skipped.
func New(cfg config.CompactionConfig, led *ledger.Ledger, summarizer Summarizer, notifier Notifier, mem *memory.Client, collector collect.Collector, limits LimitResolver, hostWait time.Duration) *Monitor {
	if limits == nil {
		limits = StaticLimit
	}
	if hostWait <= 0 {
		hostWait = 2 * time.Minute
	}
	return &Monitor{
		cfg:        cfg,
		ledger:     led,
		summarizer: summarizer,
		notifier:   notifier,
		mem:        mem,
		collector:  collector,
		limits:     limits,
		hostWait:   hostWait,
		lastSeen:   make(map[string]MessageEvent),
	}
}

// SetPreSummarize installs the pre-compaction callback.
func (m *Monitor) SetPreSummarize(fn func(ctx context.Context, sessionID string)) {
	m.preSummarize = fn
}

// HandleMessage evaluates one completed assistant message. Everything on
// this path is synchronous bookkeeping; if the usage crosses the threshold a
// compaction is marked in the ledger and dispatched in the background.
func (m *Monitor) HandleMessage(ev MessageEvent) {
	if ev.IsSummary {
		// The summary message produced by a compaction reports the usage of
		// the old context. Remembering or acting on it would re-trigger
		// immediately.
		return
	}

	m.mu.Lock()
	m.lastSeen[ev.SessionID] = ev
	m.mu.Unlock()

	m.evaluate(ev)
}

// HandleSessionIdle re-evaluates the trigger from the session's last seen
// usage. A session can idle right at the threshold without a further message
// arriving to trip it.
func (m *Monitor) HandleSessionIdle(sessionID string) {
	m.mu.Lock()
	ev, ok := m.lastSeen[sessionID]
	m.mu.Unlock()
	if !ok {
		return
	}
	m.evaluate(ev)
}

func (m *Monitor) evaluate(ev MessageEvent) {
	if !m.cfg.Enabled {
		return
	}
	if !SupportedModel(ev.ModelID) {
		return
	}
	if !m.ledger.Allowed(ev.SessionID) {
		return
	}

	total := ev.Usage.Total()
	if total < m.cfg.MinTokens {
		return
	}

	limit, ok := m.limits(ev.ProviderID, ev.ModelID)
	if !ok || limit <= 0 {
		limit = m.cfg.DefaultLimit
	}
	ratio := float64(total) / float64(limit)

	m.announceMilestones(ev.SessionID, ratio)

	if ratio < m.cfg.Threshold {
		return
	}

	// Atomic check-and-mark: concurrent messages for one session dispatch
	// exactly one compaction.
	if !m.ledger.TryStart(ev.SessionID, "threshold", ratio) {
		return
	}
	log.Printf("monitor: compacting session %s at %.0f%% usage (%d/%d tokens)",
		ev.SessionID, ratio*100, total, limit)
	if m.notifier != nil {
		m.notifier.Notify(ev.SessionID, "Compacting context.")
	}

	go m.runCompaction(ev.SessionID, ev.ProviderID, ev.ModelID)
}

// HandleSessionDeleted drops all tracking state for the session.
func (m *Monitor) HandleSessionDeleted(sessionID string) {
	m.ledger.Cleanup(sessionID)
	m.mu.Lock()
	delete(m.lastSeen, sessionID)
	m.mu.Unlock()
}

// announceMilestones emits each crossed milestone notice once per session.
// Crossing several at once (a large first message) announces only the
// highest.
func (m *Monitor) announceMilestones(sessionID string, ratio float64) {
	if m.notifier == nil {
		return
	}
	pct := int(ratio * 100)

	crossed := -1
	for _, ms := range milestones {
		if pct >= ms {
			crossed = ms
		}
	}
	if crossed < 0 {
		return
	}

	// Mark the lower milestones as seen so they never fire late.
	for _, ms := range milestones {
		if ms > crossed {
			break
		}
		if m.ledger.NotifyThreshold(sessionID, ms) && ms == crossed {
			m.notifier.Milestone(sessionID, ms)
		}
	}
}

// runCompaction performs the background half: persist state, inject recent
// project memories, dispatch the summarize, and optionally auto-continue.
// The ledger entry is always released, including on failure.
func (m *Monitor) runCompaction(sessionID, providerID, modelID string) {
	defer func() {
		if m.onDone != nil {
			m.onDone(sessionID)
		}
	}()
	defer m.finish(sessionID)

	ctx, cancel := context.WithTimeout(context.Background(), m.hostWait)
	defer cancel()

	if m.preSummarize != nil {
		m.preSummarize(ctx, sessionID)
	}

	m.injectMemories(ctx, sessionID)

	if err := m.summarizer.Summarize(ctx, sessionID, providerID, modelID); err != nil {
		log.Printf("monitor: summarize failed for session %s: %v", sessionID, err)
		if m.notifier != nil {
			m.notifier.Notify(sessionID, "Context compaction failed; will retry after cooldown.")
		}
		return
	}

	m.ledger.MarkPendingContinue(sessionID)
	if m.notifier != nil {
		m.notifier.Notify(sessionID, "Context compacted.")
	}

	if m.cfg.AutoContinue {
		text := m.cfg.ContinueText
		if text == "" {
			text = "Continue where you left off."
		}
		if err := m.summarizer.SendPrompt(ctx, sessionID, text); err != nil {
			log.Printf("monitor: continue prompt failed for session %s: %v", sessionID, err)
			return
		}
		m.ledger.ClearPendingContinue(sessionID)
	}
}

// finish releases the ledger entry. If the session was deleted while the
// compaction ran, its cleanup already happened; drop anything the compaction
// itself put back so the deleted id leaves no state behind.
func (m *Monitor) finish(sessionID string) {
	m.ledger.MarkEnd(sessionID, 0)

	m.mu.Lock()
	_, live := m.lastSeen[sessionID]
	m.mu.Unlock()
	if !live {
		m.ledger.Cleanup(sessionID)
		if m.collector != nil {
			m.collector.Cleanup(sessionID)
		}
	}
}

// injectMemories registers the most recent project memories for injection
// into the post-compaction context.
func (m *Monitor) injectMemories(ctx context.Context, sessionID string) {
	if !m.cfg.InjectMemories || m.collector == nil || !m.mem.Enabled() {
		return
	}
	count := m.cfg.InjectCount
	if count <= 0 {
		count = 5
	}

	records := m.mem.List(ctx, memory.ScopeProject, count)
	if len(records) == 0 {
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	content := "<preserved-memories>\nCarried across compaction:\n"
	for _, r := range records {
		content += "- " + r.Content + "\n"
	}
	content += "</preserved-memories>"

	m.collector.Register(sessionID, collect.Fragment{
		ID:       uuid.NewString(),
		Content:  content,
		Source:   "compaction",
		Priority: 5,
	})
}
