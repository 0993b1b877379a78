package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "swapkitd",
		Short: "Scheduler host for server-driven fragment updates",
		Long: `swapkitd hosts interaction-scheduling sessions for a thin
browser client.

Each WebSocket connection gets a server-side DOM mirror and one
event loop running three schedulers:

  • debounced, serialized form-change observation
  • speculative link preloading with mismatch cancellation
  • press/click arbitration into single activation events`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
