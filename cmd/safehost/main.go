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
		Use:   "safehost",
		Short: "SafeFrame host bridge for publisher pages",
		Long: `safehost runs the host side of the SafeFrame messaging protocol
behind a WebSocket bridge.

A thin shim on the publisher page relays creative postMessage traffic
to the bridge, which owns per-slot protocol sessions: channel
handshakes, geometry pushes, and expand/collapse/fluid size
negotiation.`,
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
