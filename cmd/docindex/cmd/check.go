package cmd

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docindex/internal/embed"
	"github.com/Aman-CERP/docindex/internal/preflight"
	"github.com/Aman-CERP/docindex/internal/store"
)

func newCheckCmd() *cobra.Command {
	var (
		verbose    bool
		jsonOutput bool
	)
	opts := &indexOptions{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify configuration, documents directory and services",
		Long: `Check validates the configuration and credentials, lists the documents
directory, embeds a sample text and pings the store. Nothing is written.

A missing documents directory is only a warning: 'docindex index'
creates it.`,
		Example: `  # Check the configured services
  docindex check

  # Check the offline setup
  docindex check --offline

  # JSON output for scripting
  docindex check --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd, opts, verbose, jsonOutput)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed check info")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "Check the static embedder and the SQLite store")
	cmd.Flags().StringVar(&opts.backend, "backend", "", "Store backend: supabase or sqlite")
	cmd.Flags().StringVar(&opts.sqlitePath, "sqlite-path", "", "SQLite database file for the sqlite backend")

	return cmd
}

func runCheck(cmd *cobra.Command, opts *indexOptions, verbose, jsonOutput bool) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checker := preflight.New(
		preflight.WithVerbose(verbose),
		preflight.WithOutput(cmd.OutOrStdout()),
	)

	results := collectChecks(ctx, cmd, checker, opts)

	if jsonOutput {
		if err := outputJSON(cmd, checker, results); err != nil {
			return err
		}
	} else {
		checker.PrintResults(results)
	}

	if checker.HasCriticalFailures(results) {
		return errReported
	}
	return nil
}

// collectChecks builds the configured services and runs every check
// against them. Construction failures become failed checks.
func collectChecks(ctx context.Context, cmd *cobra.Command, checker *preflight.Checker, opts *indexOptions) []preflight.CheckResult {
	cfg, err := loadConfig()
	if err == nil {
		err = applyIndexOptions(cmd, cfg, opts)
	}
	if err != nil {
		return []preflight.CheckResult{{
			Name:     "config",
			Status:   preflight.StatusFail,
			Message:  err.Error(),
			Required: true,
		}}
	}

	targets := preflight.Targets{Config: cfg}

	if e, err := embed.NewEmbedder(cfg.Embeddings); err == nil {
		defer func() { _ = e.Close() }()
		targets.Embedder = e
	}
	if s, err := store.NewRecordStore(cfg.Store); err == nil {
		defer func() { _ = s.Close() }()
		targets.Store = s
	}

	return checker.RunAll(ctx, targets)
}

// JSONOutput is the structure for JSON output.
type JSONOutput struct {
	Status   string                  `json:"status"`
	Checks   []preflight.CheckResult `json:"checks"`
	Warnings []string                `json:"warnings,omitempty"`
	Errors   []string                `json:"errors,omitempty"`
}

func outputJSON(cmd *cobra.Command, checker *preflight.Checker, results []preflight.CheckResult) error {
	out := JSONOutput{
		Status: checker.SummaryStatus(results),
		Checks: results,
	}

	for _, r := range results {
		switch {
		case r.IsCritical():
			out.Errors = append(out.Errors, r.Name+": "+r.Message)
		case r.Status == preflight.StatusWarn:
			out.Warnings = append(out.Warnings, r.Name+": "+r.Message)
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
