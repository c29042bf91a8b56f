package ledger

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// testLedger returns a ledger with a controllable clock.
func testLedger(cooldown time.Duration) (*Ledger, *time.Time) {
	l := New(cooldown)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestAllowedFreshSession(t *testing.T) {
	l, _ := testLedger(0)
	if !l.Allowed("s1") {
		t.Error("fresh session should be allowed")
	}
}

func TestAllowedFalseWhileInProgress(t *testing.T) {
	l, _ := testLedger(0)

	l.MarkStart("s1", "threshold", 0.85)
	if l.Allowed("s1") {
		t.Error("in-progress session should not be allowed")
	}
	if !l.InProgress("s1") {
		t.Error("InProgress should report true after MarkStart")
	}
}

func TestCooldownRunsFromEnd(t *testing.T) {
	l, now := testLedger(120 * time.Second)

	l.MarkStart("s1", "threshold", 0.85)

	// Compaction takes 30s; cooldown should re-arm from completion time.
	*now = now.Add(30 * time.Second)
	l.MarkEnd("s1", 0.30)

	*now = now.Add(100 * time.Second)
	if l.Allowed("s1") {
		t.Error("100s after end with 120s cooldown should not be allowed")
	}

	*now = now.Add(21 * time.Second)
	if !l.Allowed("s1") {
		t.Error("121s after end should be allowed again")
	}
}

func TestTimestampMonotonic(t *testing.T) {
	l, now := testLedger(time.Second)

	l.MarkStart("s1", "threshold", 0.85)
	first, _ := l.LastCompaction("s1")

	// Clock goes backwards — timestamp must not.
	*now = now.Add(-time.Hour)
	l.MarkEnd("s1", 0)

	got, ok := l.LastCompaction("s1")
	if !ok {
		t.Fatal("expected a compaction record")
	}
	if got.Timestamp.Before(first.Timestamp) {
		t.Errorf("timestamp moved backwards: %v -> %v", first.Timestamp, got.Timestamp)
	}
}

func TestMarkEndRecordsAfterRatio(t *testing.T) {
	l, _ := testLedger(0)

	l.MarkStart("s1", "threshold", 0.85)
	l.MarkEnd("s1", 0.25)

	c, ok := l.LastCompaction("s1")
	if !ok {
		t.Fatal("expected compaction record")
	}
	if c.UsageRatioBefore != 0.85 {
		t.Errorf("UsageRatioBefore = %v, want 0.85", c.UsageRatioBefore)
	}
	if c.UsageRatioAfter != 0.25 {
		t.Errorf("UsageRatioAfter = %v, want 0.25", c.UsageRatioAfter)
	}
	if c.Trigger != "threshold" {
		t.Errorf("Trigger = %q, want threshold", c.Trigger)
	}
}

func TestTryStartSingleFlight(t *testing.T) {
	l, _ := testLedger(time.Millisecond)

	// Many handlers racing to start a compaction. Only one may win.
	var starts int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.TryStart("s1", "threshold", 0.9) {
				atomic.AddInt32(&starts, 1)
			}
		}()
	}
	wg.Wait()

	if starts != 1 {
		t.Errorf("starts = %d, want exactly 1", starts)
	}
}

func TestTryStartRespectsCooldown(t *testing.T) {
	l, now := testLedger(120 * time.Second)

	if !l.TryStart("s1", "threshold", 0.85) {
		t.Fatal("fresh session should start")
	}
	l.MarkEnd("s1", 0.3)

	*now = now.Add(60 * time.Second)
	if l.TryStart("s1", "threshold", 0.85) {
		t.Error("start inside the cooldown window should be refused")
	}

	*now = now.Add(61 * time.Second)
	if !l.TryStart("s1", "threshold", 0.85) {
		t.Error("start after the cooldown window should succeed")
	}
}

func TestNotifyThresholdOncePerPct(t *testing.T) {
	l, _ := testLedger(0)

	if !l.NotifyThreshold("s1", 20) {
		t.Error("first crossing of 20 should notify")
	}
	if l.NotifyThreshold("s1", 20) {
		t.Error("second crossing of 20 should not notify")
	}
	if !l.NotifyThreshold("s1", 40) {
		t.Error("first crossing of 40 should notify")
	}

	// Independent per session.
	if !l.NotifyThreshold("s2", 20) {
		t.Error("other session should notify independently")
	}
}

func TestPendingContinue(t *testing.T) {
	l, _ := testLedger(0)

	if l.HasPendingContinue("s1") {
		t.Error("no pending continue expected initially")
	}
	l.MarkStart("s1", "threshold", 0.85)
	l.MarkPendingContinue("s1")
	if !l.HasPendingContinue("s1") {
		t.Error("pending continue should be set")
	}
	l.ClearPendingContinue("s1")
	if l.HasPendingContinue("s1") {
		t.Error("pending continue should be cleared")
	}
}

func TestMarkEndAfterCleanupLeavesNoEntry(t *testing.T) {
	l, _ := testLedger(time.Hour)

	// A background compaction can finish after the session was deleted.
	l.MarkStart("s1", "threshold", 0.9)
	l.Cleanup("s1")
	l.MarkEnd("s1", 0.3)
	l.MarkPendingContinue("s1")

	if _, ok := l.LastCompaction("s1"); ok {
		t.Error("compaction record resurrected after cleanup")
	}
	if l.HasPendingContinue("s1") {
		t.Error("pending continue resurrected after cleanup")
	}
	if !l.Allowed("s1") {
		t.Error("reused session id blocked by a stale cooldown")
	}
}

func TestZeroCooldownAllowsImmediateRestart(t *testing.T) {
	l, _ := testLedger(0)

	l.MarkStart("s1", "threshold", 0.9)
	l.MarkEnd("s1", 0.3)

	if !l.Allowed("s1") {
		t.Error("zero cooldown should allow an immediate restart")
	}
}

func TestCleanupRemovesAllState(t *testing.T) {
	l, _ := testLedger(time.Hour)

	l.MarkStart("s1", "threshold", 0.9)
	l.MarkPendingContinue("s1")
	l.NotifyThreshold("s1", 80)

	l.Cleanup("s1")

	if !l.Allowed("s1") {
		t.Error("cleaned-up session should behave like a fresh one")
	}
	if l.HasPendingContinue("s1") {
		t.Error("cleanup should drop pending continue")
	}
	if !l.NotifyThreshold("s1", 80) {
		t.Error("cleanup should reset notified thresholds")
	}
	if _, ok := l.LastCompaction("s1"); ok {
		t.Error("cleanup should drop compaction history")
	}
}
