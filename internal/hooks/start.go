package hooks

import (
	"encoding/json"
	"strings"
)

// handleStart announces the new session and returns any pending context
// fragments as additional context for the host to inject.
func handleStart(client *Client, input *HookInput) {
	// Resumed and forked sessions keep their inherited context.
	root := input.Root || input.Source == "" || input.Source == "startup"

	body, _ := json.Marshal(map[string]any{"root": root})
	if _, err := client.Post("/api/sessions/"+input.SessionID+"/events/created", body); err != nil {
		WriteSessionStartOutput("")
		return
	}

	data, err := client.Get("/api/sessions/" + input.SessionID + "/context")
	if err != nil {
		// Degrade gracefully — return empty context
		WriteSessionStartOutput("")
		return
	}

	var resp struct {
		Fragments []struct {
			Content string `json:"content"`
		} `json:"fragments"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		WriteSessionStartOutput("")
		return
	}

	parts := make([]string, 0, len(resp.Fragments))
	for _, f := range resp.Fragments {
		parts = append(parts, f.Content)
	}
	WriteSessionStartOutput(strings.Join(parts, "\n\n"))
}
