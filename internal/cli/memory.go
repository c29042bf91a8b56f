package cli

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lazypower/ballast/internal/hooks"
	"github.com/lazypower/ballast/internal/memory"
)

var (
	searchScope string
	searchLimit int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search stored memories",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := hooks.NewClient()
		if !client.Healthy() {
			return fmt.Errorf("ballast server not running (try: ballast serve)")
		}

		params := url.Values{}
		params.Set("q", strings.Join(args, " "))
		params.Set("scope", searchScope)
		params.Set("limit", fmt.Sprintf("%d", searchLimit))

		data, err := client.Get("/api/search?" + params.Encode())
		if err != nil {
			return err
		}

		var resp struct {
			Count   int             `json:"count"`
			Results []memory.Result `json:"results"`
		}
		if err := json.Unmarshal(data, &resp); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}

		if resp.Count == 0 {
			fmt.Println("no matches")
			return nil
		}
		for _, r := range resp.Results {
			kind := r.Type
			if kind == "" {
				kind = "note"
			}
			fmt.Printf("%.2f  [%s]  %s\n", r.Similarity, kind, firstLine(r.Content))
		}
		return nil
	},
}

var rememberScope string

var rememberCmd = &cobra.Command{
	Use:   "remember <content>",
	Short: "Store a memory",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := hooks.NewClient()
		if !client.Healthy() {
			return fmt.Errorf("ballast server not running (try: ballast serve)")
		}

		body, _ := json.Marshal(map[string]string{
			"content": strings.Join(args, " "),
			"scope":   rememberScope,
		})
		data, err := client.Post("/api/memories", body)
		if err != nil {
			return err
		}

		var resp struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(data, &resp); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		fmt.Printf("stored %s\n", resp.ID)
		return nil
	},
}

var forgetScope string

var forgetCmd = &cobra.Command{
	Use:   "forget [record-id]",
	Short: "Delete one memory, or every memory in a scope",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := hooks.NewClient()
		if !client.Healthy() {
			return fmt.Errorf("ballast server not running (try: ballast serve)")
		}

		params := url.Values{}
		params.Set("scope", forgetScope)
		if len(args) > 0 {
			params.Set("id", args[0])
		}

		data, err := client.Delete("/api/memories?" + params.Encode())
		if err != nil {
			return err
		}

		var resp struct {
			Deleted bool `json:"deleted"`
		}
		if err := json.Unmarshal(data, &resp); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		if resp.Deleted {
			fmt.Println("deleted")
		} else {
			fmt.Println("nothing deleted")
		}
		return nil
	},
}

var statusSession string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server health and session compaction state",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := hooks.NewClient()

		data, err := client.Get("/api/health")
		if err != nil {
			return fmt.Errorf("ballast server not running (try: ballast serve)")
		}

		var health struct {
			Status  string  `json:"status"`
			Version string  `json:"version"`
			Uptime  float64 `json:"uptime"`
			Memory  bool    `json:"memory"`
		}
		if err := json.Unmarshal(data, &health); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		fmt.Printf("server:  %s (%s, up %.0fs)\n", health.Status, health.Version, health.Uptime)
		fmt.Printf("memory:  %v\n", health.Memory)

		if statusSession == "" {
			return nil
		}

		data, err = client.Get("/api/sessions/" + statusSession + "/status")
		if err != nil {
			return err
		}
		var st struct {
			InProgress      bool `json:"in_progress"`
			PendingContinue bool `json:"pending_continue"`
			PendingContext  int  `json:"pending_context"`
			LastCompaction  *struct {
				Timestamp   string  `json:"timestamp"`
				Trigger     string  `json:"trigger"`
				RatioBefore float64 `json:"ratio_before"`
				RatioAfter  float64 `json:"ratio_after"`
			} `json:"last_compaction"`
		}
		if err := json.Unmarshal(data, &st); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}

		fmt.Printf("session: %s\n", statusSession)
		fmt.Printf("  compacting:       %v\n", st.InProgress)
		fmt.Printf("  pending continue: %v\n", st.PendingContinue)
		fmt.Printf("  queued fragments: %d\n", st.PendingContext)
		if st.LastCompaction != nil {
			fmt.Printf("  last compaction:  %s (%s, %.0f%% -> %.0f%%)\n",
				st.LastCompaction.Timestamp, st.LastCompaction.Trigger,
				st.LastCompaction.RatioBefore*100, st.LastCompaction.RatioAfter*100)
		}
		return nil
	},
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}

func init() {
	searchCmd.Flags().StringVarP(&searchScope, "scope", "s", "project", "Scope to search: user or project")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "Maximum number of results")
	rememberCmd.Flags().StringVarP(&rememberScope, "scope", "s", "project", "Scope to store under: user or project")
	forgetCmd.Flags().StringVarP(&forgetScope, "scope", "s", "project", "Scope to delete from: user or project")
	statusCmd.Flags().StringVar(&statusSession, "session", "", "Show compaction state for a session id")
}
