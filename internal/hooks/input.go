package hooks

// HookInput is the JSON the host sends on stdin to hook handlers. All fields
// are optional; different events populate different subsets.
type HookInput struct {
	SessionID      string `json:"session_id"`
	TranscriptPath string `json:"transcript_path"`
	CWD            string `json:"cwd"`
	HookEventName  string `json:"hook_event_name"`

	// SessionStart
	Source string `json:"source,omitempty"`
	Root   bool   `json:"root,omitempty"`

	// Message
	ProviderID string `json:"provider_id,omitempty"`
	ModelID    string `json:"model_id,omitempty"`
	IsSummary  bool   `json:"is_summary,omitempty"`
	Usage      struct {
		Input     int `json:"input,omitempty"`
		CacheRead int `json:"cache_read,omitempty"`
		Output    int `json:"output,omitempty"`
	} `json:"usage,omitempty"`

	// SessionEnd
	Reason string `json:"reason,omitempty"`
}
