package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docindex/internal/config"
	"github.com/Aman-CERP/docindex/internal/embed"
	"github.com/Aman-CERP/docindex/internal/output"
	"github.com/Aman-CERP/docindex/internal/search"
	"github.com/Aman-CERP/docindex/internal/store"
)

// snippetLength caps the preview printed under each result.
const snippetLength = 160

// searchOptions holds CLI flags for search.
type searchOptions struct {
	store     indexOptions
	threshold float64
	count     int
	format    string // "text", "json", "context"
}

func newSearchCmd() *cobra.Command {
	opts := &searchOptions{}

	cmd := &cobra.Command{
		Use:   "search <question>",
		Short: "Find the indexed documents closest to a question",
		Long: `Search embeds the question with the indexing model and returns the
stored documents whose cosine similarity is above the threshold, most
similar first.

With the supabase backend the store.match_function Postgres function
(default match_documents) ranks the rows. With the sqlite backend every
stored record is compared locally.

--format context prints only the matched contents joined by "---" lines,
ready to be passed to a language model as context.`,
		Example: `  docindex search "¿Cómo se configura el agente?"
  docindex search "vacaciones" --count 5 --threshold 0.3
  docindex search "vacaciones" --offline --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.count, "count", "n", 0, "Maximum number of results (default from config: 3)")
	cmd.Flags().Float64Var(&opts.threshold, "threshold", 0, "Minimum cosine similarity (default from config: 0.5)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json, context")
	cmd.Flags().BoolVar(&opts.store.offline, "offline", false, "Use static embeddings and the local SQLite store")
	cmd.Flags().StringVar(&opts.store.backend, "backend", "", "Store backend: supabase or sqlite")
	cmd.Flags().StringVar(&opts.store.sqlitePath, "sqlite-path", "", "SQLite database file for the sqlite backend")

	return cmd
}

// applySearchOptions layers search flags over the loaded configuration.
func applySearchOptions(cmd *cobra.Command, cfg *config.Config, opts *searchOptions) error {
	switch opts.format {
	case "text", "json", "context":
	default:
		return fmt.Errorf("invalid format %q: must be text, json or context", opts.format)
	}
	if cmd.Flags().Changed("threshold") {
		cfg.Search.Threshold = opts.threshold
	}
	if cmd.Flags().Changed("count") {
		cfg.Search.Count = opts.count
	}
	return applyIndexOptions(cmd, cfg, &opts.store)
}

func runSearch(cmd *cobra.Command, question string, opts *searchOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applySearchOptions(cmd, cfg, opts); err != nil {
		return err
	}
	if err := cfg.RequireCredentials(); err != nil {
		return err
	}

	cleanup := startLogging(cmd, cfg)
	defer cleanup()

	embedder, err := embed.NewEmbedder(cfg.Embeddings)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}
	defer func() { _ = embedder.Close() }()

	recordStore, err := store.NewRecordStore(cfg.Store)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() { _ = recordStore.Close() }()

	searcher, ok := recordStore.(store.Searcher)
	if !ok {
		return fmt.Errorf("store backend %s does not support search", recordStore.Backend())
	}

	engine, err := search.New(embedder, searcher)
	if err != nil {
		return err
	}

	slog.Info("search_started",
		slog.String("provider", cfg.Embeddings.Provider),
		slog.String("backend", cfg.Store.Backend),
		slog.Int("count", cfg.Search.Count))

	matches, err := engine.Search(ctx, question, search.Options{
		Threshold: cfg.Search.Threshold,
		Count:     cfg.Search.Count,
	})
	if err != nil {
		return err
	}

	return formatSearchResults(cmd, question, cfg.Search.Threshold, matches, opts.format)
}

// SearchJSONOutput is the structure for --format json.
type SearchJSONOutput struct {
	Question string        `json:"question"`
	Results  []store.Match `json:"results"`
}

func formatSearchResults(cmd *cobra.Command, question string, threshold float64, matches []store.Match, format string) error {
	switch format {
	case "json":
		if matches == nil {
			matches = []store.Match{}
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(SearchJSONOutput{Question: question, Results: matches})

	case "context":
		if len(matches) > 0 {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), search.Context(matches))
		}
		return nil
	}

	out := output.New(cmd.OutOrStdout())
	if len(matches) == 0 {
		out.Warningf("No documents above similarity %.2f", threshold)
		return nil
	}

	out.Infof("%d document(s) for %q", len(matches), question)
	for i, m := range matches {
		out.Newline()
		out.Statusf(fmt.Sprintf("%d.", i+1), "%s  (%.2f)", m.Title, m.Similarity)
		out.Detail(snippet(m.Content))
	}
	return nil
}

// snippet flattens content to one line and shortens it to snippetLength runes.
func snippet(content string) string {
	flat := strings.Join(strings.Fields(content), " ")
	runes := []rune(flat)
	if len(runes) <= snippetLength {
		return flat
	}
	return string(runes[:snippetLength-3]) + "..."
}
