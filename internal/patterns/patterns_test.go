package patterns

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/lazypower/ballast/internal/memory"
	"github.com/lazypower/ballast/internal/transcript"
)

// captureService records adds for assertions.
type captureService struct {
	added []struct {
		Content string
		Tag     string
		Meta    memory.Metadata
	}
}

func (c *captureService) Add(ctx context.Context, content, tag string, meta memory.Metadata) (string, error) {
	c.added = append(c.added, struct {
		Content string
		Tag     string
		Meta    memory.Metadata
	}{content, tag, meta})
	return "rec", nil
}

func (c *captureService) Search(ctx context.Context, query, tag string, limit int) ([]memory.Result, error) {
	return nil, nil
}

func (c *captureService) List(ctx context.Context, tag string, limit int) ([]memory.Record, error) {
	return nil, nil
}

func (c *captureService) Forget(ctx context.Context, tag, recordID string) (bool, error) {
	return false, nil
}

func testEngine(svc memory.Service) *Engine {
	client := memory.NewClient(svc, "tester", "/proj", time.Second, 20)
	return New(client, nil, 4, 0.6, 2000)
}

// padded prepends filler messages so transcripts clear the minimum floor.
func padded(msgs ...transcript.Message) []transcript.Message {
	filler := []transcript.Message{
		{Role: "user", Text: "let's work on the session handling today"},
		{Role: "assistant", Text: "sure, starting with the event loop"},
	}
	return append(filler, msgs...)
}

func TestCorrectionPattern(t *testing.T) {
	svc := &captureService{}
	eng := testEngine(svc)

	msgs := padded(
		transcript.Message{Role: "assistant", Text: "use md5 for hashing the passwords"},
		transcript.Message{Role: "user", Text: "no, use bcrypt instead"},
	)

	stored := eng.OnSessionIdle(context.Background(), "s1", msgs)
	if stored != 1 {
		t.Fatalf("stored = %d, want 1", stored)
	}

	got := svc.added[0]
	if got.Meta.Category != string(UserCorrection) {
		t.Errorf("category = %q, want user_correction", got.Meta.Category)
	}
	if got.Meta.Confidence < 0.6 {
		t.Errorf("confidence = %v, want >= 0.6", got.Meta.Confidence)
	}
	if got.Tag != memory.UserTag("tester") {
		t.Errorf("tag = %q, want user scope", got.Tag)
	}
	if !strings.Contains(got.Content, "bcrypt") {
		t.Errorf("content = %q, want correction text", got.Content)
	}
	if !strings.Contains(got.Content, "md5") {
		t.Errorf("content = %q, want preceding context", got.Content)
	}
}

func TestCorrectionConfidenceBoosts(t *testing.T) {
	mc := NewMarkerClassifier()

	msgs := padded(
		transcript.Message{Role: "assistant", Text: "I'll commit straight to main"},
		transcript.Message{Role: "user", Text: "wrong, never commit to main directly, always use a feature branch instead"},
	)

	pats := mc.Classify(msgs)
	if len(pats) != 1 {
		t.Fatalf("patterns = %d, want 1", len(pats))
	}
	// 0.6 base + 0.15 (never/always) + 0.1 (instead) + 0.1 (length) = 0.95 cap.
	if pats[0].Confidence != 0.95 {
		t.Errorf("confidence = %v, want 0.95", pats[0].Confidence)
	}
}

func TestExplicitRemember(t *testing.T) {
	mc := NewMarkerClassifier()

	msgs := padded(
		transcript.Message{Role: "user", Text: "remember this: deploys happen only on tuesdays"},
	)

	pats := mc.Classify(msgs)
	if len(pats) != 1 {
		t.Fatalf("patterns = %d, want 1", len(pats))
	}
	if pats[0].Category != Preference {
		t.Errorf("category = %q, want preference", pats[0].Category)
	}
	if pats[0].Confidence != 0.9 {
		t.Errorf("confidence = %v, want 0.9", pats[0].Confidence)
	}
	if pats[0].Scope != memory.ScopeUser {
		t.Errorf("scope = %v, want user", pats[0].Scope)
	}
}

func TestResolvedError(t *testing.T) {
	mc := NewMarkerClassifier()

	msgs := padded(
		transcript.Message{Role: "assistant", Text: "the build failed with a missing symbol error in the linker step"},
		transcript.Message{Role: "user", Text: "can you sort that out please"},
		transcript.Message{Role: "assistant", Text: "fixed it, the linker needed the static flag and the build is working now"},
	)

	pats := mc.Classify(msgs)
	if len(pats) != 1 {
		t.Fatalf("patterns = %d, want 1: %+v", len(pats), pats)
	}
	if pats[0].Category != ErrorResolution {
		t.Errorf("category = %q, want error_resolution", pats[0].Category)
	}
	if pats[0].Confidence != 0.75 {
		t.Errorf("confidence = %v, want 0.75", pats[0].Confidence)
	}
	if pats[0].Scope != memory.ScopeProject {
		t.Errorf("scope = %v, want project", pats[0].Scope)
	}
	if !strings.Contains(pats[0].Context, "missing symbol") {
		t.Errorf("context = %q, want the original error message", pats[0].Context)
	}
}

func TestResolutionWithoutPriorErrorIgnored(t *testing.T) {
	mc := NewMarkerClassifier()

	msgs := padded(
		transcript.Message{Role: "assistant", Text: "fixed the wording in the README"},
	)

	if pats := mc.Classify(msgs); len(pats) != 0 {
		t.Errorf("patterns = %d, want 0 without a prior error", len(pats))
	}
}

func TestShortTranscriptYieldsNothing(t *testing.T) {
	svc := &captureService{}
	eng := testEngine(svc)

	msgs := []transcript.Message{
		{Role: "assistant", Text: "use md5 for hashing"},
		{Role: "user", Text: "no, use bcrypt instead"},
	}

	if stored := eng.OnSessionIdle(context.Background(), "s1", msgs); stored != 0 {
		t.Errorf("stored = %d, want 0 below the message floor", stored)
	}
	if len(svc.added) != 0 {
		t.Errorf("service received %d adds, want 0", len(svc.added))
	}
}

func TestLowConfidenceDropped(t *testing.T) {
	svc := &captureService{}
	client := memory.NewClient(svc, "tester", "/proj", time.Second, 20)
	eng := New(client, nil, 4, 0.8, 2000) // raised threshold

	msgs := padded(
		transcript.Message{Role: "assistant", Text: "use md5 for hashing"},
		transcript.Message{Role: "user", Text: "no, use bcrypt instead"}, // 0.7
	)

	if stored := eng.OnSessionIdle(context.Background(), "s1", msgs); stored != 0 {
		t.Errorf("stored = %d, want 0 for confidence below threshold", stored)
	}
}

func TestDedupeBySolutionPrefix(t *testing.T) {
	svc := &captureService{}
	eng := testEngine(svc)

	correction := transcript.Message{Role: "user", Text: "no, always run the linter before committing changes"}
	msgs := padded(
		transcript.Message{Role: "assistant", Text: "I'll commit now"},
		correction,
		transcript.Message{Role: "assistant", Text: "committing again"},
		correction,
	)

	if stored := eng.OnSessionIdle(context.Background(), "s1", msgs); stored != 1 {
		t.Errorf("stored = %d, want 1 after dedupe", stored)
	}
}

func TestPrivateSpansNeverStored(t *testing.T) {
	svc := &captureService{}
	eng := testEngine(svc)

	msgs := padded(
		transcript.Message{Role: "assistant", Text: "I'll use the default credentials"},
		transcript.Message{Role: "user", Text: "no, always use the vault credentials <private>token abc123</private> instead"},
	)

	if stored := eng.OnSessionIdle(context.Background(), "s1", msgs); stored != 1 {
		t.Fatalf("stored = %d, want 1", stored)
	}
	if strings.Contains(svc.added[0].Content, "abc123") {
		t.Errorf("private content reached storage: %q", svc.added[0].Content)
	}
}

func TestPatternTruncatedToMaxChars(t *testing.T) {
	svc := &captureService{}
	client := memory.NewClient(svc, "tester", "/proj", time.Second, 20)
	eng := New(client, nil, 4, 0.6, 200)

	long := "no, never restart it that way again. " + strings.Repeat("the deploy script must drain connections first ", 20)
	msgs := padded(
		transcript.Message{Role: "assistant", Text: "restarting the service abruptly"},
		transcript.Message{Role: "user", Text: long},
	)

	if stored := eng.OnSessionIdle(context.Background(), "s1", msgs); stored != 1 {
		t.Fatalf("stored = %d, want 1", stored)
	}
	if len(svc.added[0].Content) > 200 {
		t.Errorf("content len = %d, want <= 200", len(svc.added[0].Content))
	}
}
