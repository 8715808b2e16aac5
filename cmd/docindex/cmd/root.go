// Package cmd provides the CLI commands for docindex.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docindex/internal/config"
	ierrors "github.com/Aman-CERP/docindex/internal/errors"
	"github.com/Aman-CERP/docindex/internal/logging"
	"github.com/Aman-CERP/docindex/pkg/version"
)

// Global flags
var (
	debugMode  bool
	configFile string
)

// errReported marks a failure whose details were already printed.
var errReported = errors.New("failure already reported")

// reportedError keeps err inspectable while marking it as already printed.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string   { return e.err.Error() }
func (e *reportedError) Unwrap() []error { return []error{e.err, errReported} }

// markReported wraps err so ReportError skips it.
func markReported(err error) error {
	if err == nil {
		return nil
	}
	return &reportedError{err: err}
}

// NewRootCmd creates the root command for the docindex CLI.
func NewRootCmd() *cobra.Command {
	opts := &indexOptions{}

	cmd := &cobra.Command{
		Use:   "docindex",
		Short: "Embed text documents and store them for retrieval",
		Long: `docindex reads every .txt file in a documents directory, turns its
content into a vector with a Hugging Face embedding model and stores
title, content and vector in a Supabase table.

Credentials are read from the environment or a .env file:
  HUGGINGFACE_KEY, SUPABASE_URL, SUPABASE_KEY

Run 'docindex' with no arguments to index ./documentos.`,
		Version:       version.Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndex(cmd, opts)
		},
	}

	cmd.SetVersionTemplate("docindex version {{.Version}}\n")

	addIndexFlags(cmd, opts)

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.docindex/logs/")
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a YAML config file (default: ./.docindex.yaml)")

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newCheckCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// ReportError prints err the way the CLI presents failures. Errors already
// shown by a command print nothing.
func ReportError(w io.Writer, err error) {
	if err == nil || errors.Is(err, errReported) {
		return
	}
	_, _ = fmt.Fprint(w, ierrors.FormatForCLI(err))
}

// loadConfig loads configuration from the working directory and --config.
func loadConfig() (*config.Config, error) {
	return config.Load(config.LoadOptions{ConfigFile: configFile})
}

// startLogging sends slog output to the rotating log file. Logging failures
// never stop a command; they leave the default logger in place.
func startLogging(cmd *cobra.Command, cfg *config.Config) func() {
	logCfg := logging.Config{
		Level:     cfg.Logging.Level,
		FilePath:  cfg.Logging.FilePath,
		MaxSizeMB: cfg.Logging.MaxSizeMB,
		MaxFiles:  cfg.Logging.MaxFiles,
	}
	if debugMode {
		logCfg.Level = "debug"
	}

	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: logging disabled: %v\n", err)
		return func() {}
	}

	previous := slog.Default()
	slog.SetDefault(logger)
	slog.Debug("logging_started",
		slog.String("version", version.Version),
		slog.String("command", cmd.Name()))

	return func() {
		slog.SetDefault(previous)
		cleanup()
	}
}
