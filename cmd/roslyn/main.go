package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/emmanuel-ferdman/roslyn/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "roslyn",
	Short: "Stable element handles over versioned syntax trees",
	Long:  `roslyn serves externally-addressable handles to source-code constructs over LSP.`,
}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(inspectCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
