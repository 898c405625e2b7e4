// BrainstormX — phase orchestration engine for facilitated workshops.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "brainstormx",
	Short: "BrainstormX — phase orchestration engine for facilitated workshops.",
	Long: `BrainstormX runs facilitated workshop sessions through an ordered plan of
timed phases: framing, warm-up, brainstorming, clustering and voting,
feasibility, prioritization, and action planning. It generates phase content,
keeps an authoritative server-side timer, and broadcasts every transition to
connected participants.`,
	RunE:          runServe, // Default to server mode.
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, versionCmd)
	_ = godotenv.Load()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}
