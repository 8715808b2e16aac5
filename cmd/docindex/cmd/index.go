package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docindex/internal/config"
	"github.com/Aman-CERP/docindex/internal/embed"
	"github.com/Aman-CERP/docindex/internal/index"
	"github.com/Aman-CERP/docindex/internal/store"
	"github.com/Aman-CERP/docindex/internal/ui"
)

// indexOptions holds the flags shared by the root and index commands.
type indexOptions struct {
	dir             string
	continueOnError bool
	offline         bool
	backend         string
	sqlitePath      string
	noTUI           bool
	sort            bool
}

func newIndexCmd() *cobra.Command {
	opts := &indexOptions{}

	cmd := &cobra.Command{
		Use:   "index [dir]",
		Short: "Embed and store every .txt file in a directory",
		Long: `Index reads each .txt file in the documents directory (default
./documentos), normalizes its text, requests an embedding and stores the
record. Subdirectories are not scanned.

A missing documents directory is created and the run stops so files can
be added. By default the run stops at the first file that fails.`,
		Example: `  # Index ./documentos
  docindex index

  # Index another directory and keep going past failures
  docindex index ./notes --continue-on-error

  # Try it without network access or credentials
  docindex index --offline`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				opts.dir = args[0]
			}
			return runIndex(cmd, opts)
		},
	}

	addIndexFlags(cmd, opts)

	return cmd
}

func addIndexFlags(cmd *cobra.Command, opts *indexOptions) {
	cmd.Flags().BoolVar(&opts.continueOnError, "continue-on-error", false, "Keep indexing after a file fails")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "Use static embeddings and the local SQLite store (no credentials needed)")
	cmd.Flags().StringVar(&opts.backend, "backend", "", "Store backend: supabase or sqlite")
	cmd.Flags().StringVar(&opts.sqlitePath, "sqlite-path", "", "SQLite database file for the sqlite backend")
	cmd.Flags().BoolVar(&opts.noTUI, "no-tui", false, "Plain text progress output")
	cmd.Flags().BoolVar(&opts.sort, "sort", false, "Process files in name order")
}

// applyIndexOptions layers command-line flags over the loaded configuration.
func applyIndexOptions(cmd *cobra.Command, cfg *config.Config, opts *indexOptions) error {
	if opts.dir != "" {
		cfg.Documents.Dir = opts.dir
	}
	if cmd.Flags().Changed("sort") {
		cfg.Documents.Sort = opts.sort
	}
	if cmd.Flags().Changed("continue-on-error") {
		cfg.Run.ContinueOnError = opts.continueOnError
	}
	if opts.offline {
		cfg.Embeddings.Provider = config.ProviderStatic
		cfg.Store.Backend = config.BackendSQLite
	}
	if opts.backend != "" {
		cfg.Store.Backend = opts.backend
	}
	if opts.sqlitePath != "" {
		cfg.Store.SQLitePath = opts.sqlitePath
	}
	return cfg.Validate()
}

func runIndex(cmd *cobra.Command, opts *indexOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyIndexOptions(cmd, cfg, opts); err != nil {
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

	return indexWith(ctx, cmd, cfg, opts, embedder, recordStore)
}

// indexWith runs the indexing loop against already constructed services.
func indexWith(ctx context.Context, cmd *cobra.Command, cfg *config.Config, opts *indexOptions,
	embedder embed.Embedder, recordStore store.RecordStore) error {
	renderer := ui.NewRenderer(ui.NewConfig(cmd.OutOrStdout(),
		ui.WithForcePlain(opts.noTUI),
		ui.WithNoColor(ui.DetectNoColor()),
		ui.WithDocumentsDir(cfg.Documents.Dir),
	))
	if err := renderer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start progress display: %w", err)
	}

	runner, err := index.NewRunner(index.RunnerDependencies{
		Renderer: renderer,
		Embedder: embedder,
		Store:    recordStore,
	})
	if err != nil {
		_ = renderer.Stop()
		return err
	}

	policy := index.PolicyFailFast
	if cfg.Run.ContinueOnError {
		policy = index.PolicyContinue
	}

	slog.Info("index_command_started",
		slog.String("dir", cfg.Documents.Dir),
		slog.String("provider", cfg.Embeddings.Provider),
		slog.String("backend", cfg.Store.Backend),
		slog.String("policy", policy.String()))

	summary, runErr := runner.Run(ctx, index.RunnerConfig{
		Dir:             cfg.Documents.Dir,
		Policy:          policy,
		Sort:            cfg.Documents.Sort,
		CreateIfMissing: cfg.Documents.CreateIfMissing,
	})

	// The display owns the terminal until it stops.
	_ = renderer.Stop()

	if summary != nil && summary.Created {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(),
			"Created documents directory %s; add .txt files to it and run again.\n", cfg.Documents.Dir)
		return nil
	}

	// Plain output already printed every failed file.
	if _, plain := renderer.(*ui.PlainRenderer); plain && summary != nil && summary.Failed > 0 {
		return markReported(runErr)
	}
	return runErr
}
