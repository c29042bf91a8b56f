package monitor

import "strings"

// TokenUsage is the per-message usage snapshot reported by the host. Cache
// reads count toward context occupancy the same as fresh input.
type TokenUsage struct {
	Input     int `json:"input"`
	CacheRead int `json:"cache_read"`
	Output    int `json:"output"`
}

// Total returns the tokens occupying the context window after this message.
func (u TokenUsage) Total() int {
	return u.Input + u.CacheRead + u.Output
}

// MessageEvent describes one completed assistant message.
type MessageEvent struct {
	SessionID  string     `json:"session_id"`
	ProviderID string     `json:"provider_id"`
	ModelID    string     `json:"model_id"`
	Usage      TokenUsage `json:"usage"`
	IsSummary  bool       `json:"is_summary"` // message produced by a compaction
}

// LimitResolver maps a provider/model pair to its context window size.
// Returning false means unknown; callers fall back to the configured default.
type LimitResolver func(providerID, modelID string) (int, bool)

// Model families whose usage reporting we trust enough to act on. Matching is
// by name fragment so new point releases keep working without a code change.
var supportedFamilies = []string{
	"claude", "gpt-4", "gpt-5", "gemini", "o1", "o3",
}

// SupportedModel reports whether the model's usage numbers are reliable
// enough to drive compaction decisions.
func SupportedModel(modelID string) bool {
	lower := strings.ToLower(modelID)
	for _, f := range supportedFamilies {
		if strings.Contains(lower, f) {
			return true
		}
	}
	return false
}

// staticLimits covers the common context windows. The host can override via
// a LimitResolver; these are the fallbacks keyed by model name fragment.
var staticLimits = []struct {
	fragment string
	limit    int
}{
	{"claude", 200000},
	{"gpt-5", 272000},
	{"gpt-4.1", 1000000},
	{"gpt-4o", 128000},
	{"gpt-4", 128000},
	{"gemini", 1000000},
	{"o1", 200000},
	{"o3", 200000},
}

// StaticLimit resolves a context limit from the built-in table.
func StaticLimit(providerID, modelID string) (int, bool) {
	lower := strings.ToLower(modelID)
	for _, e := range staticLimits {
		if strings.Contains(lower, e.fragment) {
			return e.limit, true
		}
	}
	return 0, false
}
