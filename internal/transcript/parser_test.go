package transcript

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleTranscript = `{"type":"user","message":{"role":"user","content":"please fix the failing auth test"}}
{"type":"assistant","message":{"role":"assistant","content":[{"type":"text","text":"looking at the token refresh logic now"}]}}
{"type":"system","message":{"role":"system","content":"internal bookkeeping line"}}
{"type":"assistant","message":{"role":"assistant","content":[{"type":"tool_use","text":""}]}}
{"type":"user","message":{"role":"user","content":"thanks <system-reminder>ignore this noise</system-reminder> that worked"}}
not even json
{"type":"user","message":{"role":"user","content":"{\"raw\":\"tool payload\"}"}}`

func TestParseLines(t *testing.T) {
	msgs := ParseLines(sampleTranscript)

	if len(msgs) != 3 {
		t.Fatalf("len = %d, want 3 (system, empty, malformed, json-payload lines skipped)", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[0].Text != "please fix the failing auth test" {
		t.Errorf("msgs[0] = %+v", msgs[0])
	}
	if msgs[1].Role != "assistant" {
		t.Errorf("msgs[1].Role = %q, want assistant", msgs[1].Role)
	}
}

func TestParseStripsSystemReminder(t *testing.T) {
	msgs := ParseLines(sampleTranscript)

	last := msgs[len(msgs)-1]
	if last.Text != "thanks  that worked" && last.Text != "thanks that worked" {
		t.Errorf("reminder not stripped: %q", last.Text)
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcript.jsonl")
	if err := os.WriteFile(path, []byte(sampleTranscript), 0644); err != nil {
		t.Fatal(err)
	}

	msgs, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(msgs) != 3 {
		t.Errorf("len = %d, want 3", len(msgs))
	}
}

func TestParseFileMissing(t *testing.T) {
	if _, err := ParseFile(filepath.Join(t.TempDir(), "nope.jsonl")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestCountMessages(t *testing.T) {
	msgs := ParseLines(sampleTranscript)

	if got := CountMessages(msgs, "user"); got != 2 {
		t.Errorf("user count = %d, want 2", got)
	}
	if got := CountMessages(msgs, ""); got != 3 {
		t.Errorf("total count = %d, want 3", got)
	}
}
