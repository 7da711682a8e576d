// Package main provides the entry point for the essayradar CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "essayradar",
	Short: "Track Hacker News mentions of Paul Graham's essays",
	Long:  "essayradar scrapes the essay index, searches the Hacker News Algolia API for mentions of each essay, checkpoints progress so interrupted runs can resume, and renders the aggregated results into JSON/CSV/HTML/text reports.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
