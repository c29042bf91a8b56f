package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/lazypower/ballast/internal/hooks"
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Handle host hook events",
}

var hookStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Handle the session-start hook",
	Run: func(cmd *cobra.Command, args []string) {
		hooks.Handle("start", os.Stdin)
	},
}

var hookMessageCmd = &cobra.Command{
	Use:   "message",
	Short: "Handle the assistant-message hook",
	Run: func(cmd *cobra.Command, args []string) {
		hooks.Handle("message", os.Stdin)
	},
}

var hookIdleCmd = &cobra.Command{
	Use:   "idle",
	Short: "Handle the session-idle hook",
	Run: func(cmd *cobra.Command, args []string) {
		hooks.Handle("idle", os.Stdin)
	},
}

var hookEndCmd = &cobra.Command{
	Use:   "end",
	Short: "Handle the session-end hook",
	Run: func(cmd *cobra.Command, args []string) {
		hooks.Handle("end", os.Stdin)
	},
}

func init() {
	hookCmd.AddCommand(hookStartCmd)
	hookCmd.AddCommand(hookMessageCmd)
	hookCmd.AddCommand(hookIdleCmd)
	hookCmd.AddCommand(hookEndCmd)
}
