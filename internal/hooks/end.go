package hooks

// handleEnd tells the server the session is gone so tracking state can be
// dropped.
func handleEnd(client *Client, input *HookInput) {
	if _, err := client.Post("/api/sessions/"+input.SessionID+"/events/deleted", nil); err != nil {
		ExitError(err)
	}
}
