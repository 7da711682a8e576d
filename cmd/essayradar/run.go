package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rgoodwin/essayradar/internal/checkpoint"
	"github.com/rgoodwin/essayradar/internal/config"
	"github.com/rgoodwin/essayradar/internal/db"
	"github.com/rgoodwin/essayradar/internal/match"
	"github.com/rgoodwin/essayradar/internal/observability"
	"github.com/rgoodwin/essayradar/internal/pipeline"
	"github.com/rgoodwin/essayradar/internal/report"
	"github.com/rgoodwin/essayradar/internal/scrape"
	"github.com/rgoodwin/essayradar/internal/search"
	"github.com/rgoodwin/essayradar/internal/types"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Scrape the essay list and search for mentions of every essay",
	Long: `Drives the full mention-tracking run: scrape the essay index, search the
Hacker News Algolia API for each essay in bounded parallel batches, checkpoint
every result to disk, and render reports when all essays are processed.

Interrupted runs resume with --resume; a bare --resume continues the most
recent session. Configuration can be loaded from a JSON file using --config;
command-line flags override config file values.`,
	RunE: runMentionsCmd,
}

var (
	runConfigPath   string
	runResume       string
	runBatchSize    int
	runDelayMs      int
	runDataDir      string
	runReportsDir   string
	runSiteURL      string
	runDBURL        string
	runLimit        int
	runUseBrowser   bool
	runVerbose      bool
	runListSessions bool
)

func init() {
	runCommand.Flags().StringVar(&runConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	runCommand.Flags().StringVar(&runResume, "resume", "", "Resume a session by id; bare --resume continues the most recent one")
	runCommand.Flags().Lookup("resume").NoOptDefVal = "latest"
	runCommand.Flags().IntVar(&runBatchSize, "batch-size", 0, "Number of essays searched in parallel per batch")
	runCommand.Flags().IntVar(&runDelayMs, "delay", 0, "Milliseconds to pause between batches")
	runCommand.Flags().StringVar(&runDataDir, "data-dir", "", "Directory for checkpoint and results files")
	runCommand.Flags().StringVar(&runReportsDir, "reports-dir", "", "Directory for rendered reports")
	runCommand.Flags().StringVar(&runSiteURL, "site-url", "", "Essay index URL to scrape")
	runCommand.Flags().StringVar(&runDBURL, "db-url", "", "PostgreSQL connection URL for the results archive (optional, defaults to DATABASE_URL env var)")
	runCommand.Flags().IntVar(&runLimit, "limit", 0, "Cap the number of essays processed (0 = all)")
	runCommand.Flags().BoolVar(&runUseBrowser, "use-browser", false, "Render the essay index in a headless browser (requires Chrome)")
	runCommand.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print detailed progress information")
	runCommand.Flags().BoolVar(&runListSessions, "list-sessions", false, "List resumable sessions and exit")

	rootCmd.AddCommand(runCommand)
}

// mergedConfig loads the optional config file and applies explicit CLI
// overrides on top.
func mergedConfig(cmd *cobra.Command) (*config.Config, error) {
	var cfg config.Config
	if runConfigPath != "" {
		loaded, err := config.Load(runConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
	}

	// Only override if the flag was explicitly set
	if cmd.Flags().Changed("batch-size") {
		cfg.BatchSize = runBatchSize
	}
	if cmd.Flags().Changed("delay") {
		cfg.BatchDelayMs = runDelayMs
	}
	if cmd.Flags().Changed("data-dir") {
		cfg.DataDir = runDataDir
	}
	if cmd.Flags().Changed("reports-dir") {
		cfg.ReportsDir = runReportsDir
	}
	if cmd.Flags().Changed("site-url") {
		cfg.SiteURL = runSiteURL
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = runDBURL
	}
	if cmd.Flags().Changed("limit") {
		cfg.Limit = runLimit
	}
	if cmd.Flags().Changed("use-browser") {
		cfg.UseBrowser = runUseBrowser
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = runVerbose
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func runMentionsCmd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := mergedConfig(cmd)
	if err != nil {
		return err
	}

	sink := observability.NewConsoleSink(cmd.OutOrStdout(), cfg.Verbose)
	store, err := checkpoint.NewStore(cfg.DataDir, sink)
	if err != nil {
		return err
	}

	if runListSessions {
		return printSessions(cmd, cfg.DataDir)
	}

	// Resolve the session: resume an existing one or start fresh.
	if cmd.Flags().Changed("resume") {
		id := runResume
		if id == "latest" {
			latest, ok := store.Latest()
			if !ok {
				return fmt.Errorf("no resumable sessions found in %s", cfg.DataDir)
			}
			id = latest
		}
		store.Load(id)
	} else {
		store.Create("")
	}
	session := store.Session()

	// A resumed session without a cached essay list is re-seeded from a
	// fresh scrape.
	if len(session.Essays) == 0 {
		fetcher := scrape.HTTPFetcher(nil)
		if cfg.UseBrowser {
			fetcher = scrape.BrowserFetcher()
		}
		essays, err := scrape.Essays(ctx, cfg.SiteURL, fetcher)
		if err != nil {
			return fmt.Errorf("failed to load essay list from %s: %w", cfg.SiteURL, err)
		}
		if cfg.Limit > 0 && len(essays) > cfg.Limit {
			essays = essays[:cfg.Limit]
		}
		store.Seed(essays)
	}

	scorer := match.NewSubstringScorer(cfg.SiteDomain)
	client := search.NewClient(search.Config{
		BaseURL:     cfg.SearchURL,
		Domain:      cfg.SiteDomain,
		HitsPerPage: cfg.HitsPerPage,
		QueryDelay:  time.Duration(cfg.QueryDelayMs) * time.Millisecond,
	}, scorer, sink)

	runner := pipeline.NewRunner(store, client, cfg.BatchSize, time.Duration(cfg.BatchDelayMs)*time.Millisecond, sink)
	results, err := runner.Run(ctx)
	if err != nil {
		return fmt.Errorf("%w (resume with: essayradar run --resume %s)", err, session.ID)
	}

	store.Complete()

	rep := report.Build(session.ID, results, time.Now())
	if err := report.WriteAll(cfg.ReportsDir, rep); err != nil {
		return fmt.Errorf("failed to write reports: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Processed %d essays (%d with mentions, %d mentions total).\n",
		rep.Summary.TotalEssays, rep.Summary.EssaysWithMentions, rep.Summary.TotalMentions)
	fmt.Fprintf(cmd.OutOrStdout(), "Reports written to %s, results kept at %s.\n",
		cfg.ReportsDir, store.ResultsPath(session.ID))

	if cfg.DatabaseURL != "" {
		if err := archiveResults(ctx, cfg.DatabaseURL, session, results); err != nil {
			// The archive is best-effort: the on-disk results file is the
			// durable record.
			fmt.Fprintf(cmd.OutOrStdout(), "Warning: failed to archive results: %v\n", err)
		}
	}

	return nil
}

// archiveResults stores the completed run in the optional Postgres archive.
func archiveResults(ctx context.Context, databaseURL string, session *types.SessionState, results map[string]*types.EssayResult) error {
	archive, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer archive.Close()

	runID, err := archive.CreateRun(ctx, session.ID, session.Total)
	if err != nil {
		return err
	}
	if err := archive.SaveResults(ctx, runID, results); err != nil {
		return err
	}
	return archive.CompleteRun(ctx, runID)
}
