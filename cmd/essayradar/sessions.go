package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rgoodwin/essayradar/internal/checkpoint"
	"github.com/rgoodwin/essayradar/internal/config"
	"github.com/rgoodwin/essayradar/internal/observability"
)

var sessionsCommand = &cobra.Command{
	Use:   "sessions",
	Short: "List resumable sessions",
	RunE: func(cmd *cobra.Command, _ []string) error {
		dir := sessionsDataDir
		if dir == "" {
			dir = config.DefaultDataDir
		}
		return printSessions(cmd, dir)
	},
}

var sessionsDataDir string

func init() {
	sessionsCommand.Flags().StringVar(&sessionsDataDir, "data-dir", "", "Directory holding checkpoint files")
	rootCmd.AddCommand(sessionsCommand)
}

// printSessions lists every resumable session in the data directory with
// its progress.
func printSessions(cmd *cobra.Command, dataDir string) error {
	store, err := checkpoint.NewStore(dataDir, observability.NopSink{})
	if err != nil {
		return err
	}
	ids, err := store.ListSessions()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No resumable sessions in %s.\n", dataDir)
		return nil
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Resumable sessions in %s:\n", dataDir)
	for _, id := range ids {
		// Each session loads into a throwaway store so listing never
		// disturbs an active one.
		peek, err := checkpoint.NewStore(dataDir, observability.NopSink{})
		if err != nil {
			return err
		}
		peek.Load(id)
		stats := peek.Stats()
		fmt.Fprintf(out, "  %s  %d/%d processed (%s%%)\n", id, stats.Processed, stats.Total, stats.Percentage)
	}
	fmt.Fprintf(out, "Resume with: essayradar run --resume <id>\n")
	return nil
}
