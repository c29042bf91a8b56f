package hooks

import "encoding/json"

// handleMessage forwards per-message usage to the server. The server decides
// whether to compact; the hook never blocks on that.
func handleMessage(client *Client, input *HookInput) {
	body, err := json.Marshal(map[string]any{
		"provider_id": input.ProviderID,
		"model_id":    input.ModelID,
		"is_summary":  input.IsSummary,
		"usage": map[string]int{
			"input":      input.Usage.Input,
			"cache_read": input.Usage.CacheRead,
			"output":     input.Usage.Output,
		},
	})
	if err != nil {
		ExitError(err)
		return
	}

	if _, err := client.Post("/api/sessions/"+input.SessionID+"/events/message", body); err != nil {
		ExitError(err)
	}
}
