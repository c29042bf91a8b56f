package hooks

import "encoding/json"

// handleIdle reports that the session went idle. The server re-checks the
// compaction trigger and, when a transcript path is given, extracts patterns
// from it.
func handleIdle(client *Client, input *HookInput) {
	body, _ := json.Marshal(map[string]string{
		"transcript_path": input.TranscriptPath,
	})
	if _, err := client.Post("/api/sessions/"+input.SessionID+"/events/idle", body); err != nil {
		ExitError(err)
	}
}
