// Package index runs the indexing pipeline: discover the text files of a
// directory, embed each one and store the resulting record.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Aman-CERP/docindex/internal/document"
	"github.com/Aman-CERP/docindex/internal/embed"
	ierrors "github.com/Aman-CERP/docindex/internal/errors"
	"github.com/Aman-CERP/docindex/internal/scanner"
	"github.com/Aman-CERP/docindex/internal/store"
	"github.com/Aman-CERP/docindex/internal/ui"
)

// Policy decides what a run does after a file fails.
type Policy int

const (
	// PolicyFailFast stops at the first failed file.
	PolicyFailFast Policy = iota
	// PolicyContinue attempts every file and reports failures at the end.
	PolicyContinue
)

// String returns the policy name.
func (p Policy) String() string {
	switch p {
	case PolicyFailFast:
		return "fail-fast"
	case PolicyContinue:
		return "continue"
	default:
		return "unknown"
	}
}

// FileStatus is the outcome of one file.
type FileStatus string

const (
	StatusIndexed FileStatus = "indexed"
	StatusFailed  FileStatus = "failed"
)

// FileResult records what happened to one discovered file.
type FileResult struct {
	Name       string
	Status     FileStatus
	Err        error
	Dimensions int
	Duration   time.Duration
}

// Summary is the outcome of a run.
type Summary struct {
	// Results holds one entry per attempted file, in processing order.
	Results []FileResult

	Discovered int
	Indexed    int
	Failed     int
	Duration   time.Duration

	// Aborted is true when files were left unattempted.
	Aborted bool

	// Created is true when the documents directory did not exist and was
	// created; nothing else happened.
	Created bool

	Model   string
	Backend string
}

// NotAttempted returns the number of discovered files that were never processed.
func (s *Summary) NotAttempted() int {
	return s.Discovered - len(s.Results)
}

// RunnerConfig configures an indexing run.
type RunnerConfig struct {
	// Dir is the documents directory.
	Dir string

	// Policy decides whether a failed file stops the run.
	Policy Policy

	// Sort processes files in name order instead of listing order.
	Sort bool

	// CreateIfMissing creates a missing Dir and ends the run successfully.
	CreateIfMissing bool

	// LockDir holds the run lock file. Empty means DefaultLockDir.
	LockDir string
}

// RunnerDependencies contains the injected dependencies for Runner.
type RunnerDependencies struct {
	// Renderer for progress display (required).
	Renderer ui.Renderer

	// Embedder turns normalized text into a vector (required).
	Embedder embed.Embedder

	// Store receives one record per file (required).
	Store store.RecordStore
}

// Runner executes indexing runs with progress reporting.
// Files are processed one at a time in discovery order.
type Runner struct {
	renderer ui.Renderer
	embedder embed.Embedder
	store    store.RecordStore
}

// NewRunner creates a Runner with injected dependencies.
func NewRunner(deps RunnerDependencies) (*Runner, error) {
	if deps.Renderer == nil {
		return nil, fmt.Errorf("renderer is required")
	}
	if deps.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}

	return &Runner{
		renderer: deps.Renderer,
		embedder: deps.Embedder,
		store:    deps.Store,
	}, nil
}

// Run indexes every .txt file in cfg.Dir.
//
// The returned Summary is non-nil whenever discovery succeeded, even when an
// error is returned. Under PolicyFailFast the error is the first file's error;
// under PolicyContinue it joins every file error.
func (r *Runner) Run(ctx context.Context, cfg RunnerConfig) (*Summary, error) {
	startTime := time.Now()

	r.renderer.UpdateProgress(ui.ProgressEvent{
		Stage:   ui.StageScanning,
		Message: fmt.Sprintf("Scanning %s...", cfg.Dir),
	})
	slog.Info("index_scan_started", slog.String("path", cfg.Dir))

	discovered, err := scanner.Discover(scanner.Options{
		Dir:             cfg.Dir,
		Sort:            cfg.Sort,
		CreateIfMissing: cfg.CreateIfMissing,
	})
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Discovered: len(discovered.Files),
		Model:      r.embedder.ModelName(),
		Backend:    r.store.Backend(),
	}

	if discovered.Created {
		slog.Info("index_directory_created", slog.String("path", cfg.Dir))
		summary.Created = true
		summary.Duration = time.Since(startTime)
		return summary, nil
	}

	slog.Info("index_scan_complete",
		slog.Int("files", len(discovered.Files)),
		slog.Int("skipped", discovered.Skipped))

	lock := NewRunLock(cfg.LockDir, cfg.Dir)
	if err := lock.Acquire(); err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			slog.Warn("failed to release run lock", slog.String("error", err.Error()))
		}
	}()

	var failures []error
	total := len(discovered.Files)

	for i, file := range discovered.Files {
		if err := ctx.Err(); err != nil {
			summary.Aborted = true
			failures = append(failures, err)
			break
		}

		result := r.indexFile(ctx, i+1, total, file)
		summary.Results = append(summary.Results, result)

		if result.Status == StatusIndexed {
			summary.Indexed++
			continue
		}

		summary.Failed++
		failures = append(failures, result.Err)

		if cfg.Policy == PolicyFailFast {
			summary.Aborted = summary.NotAttempted() > 0
			break
		}
	}

	summary.Duration = time.Since(startTime)

	r.renderer.Complete(ui.CompletionStats{
		Discovered: summary.Discovered,
		Indexed:    summary.Indexed,
		Failed:     summary.Failed,
		Duration:   summary.Duration,
		Aborted:    summary.Aborted,
		Embedder: ui.EmbedderInfo{
			Model:      summary.Model,
			Dimensions: r.embedder.Dimensions(),
		},
		Store: summary.Backend,
	})

	slog.Info("index_complete",
		slog.Int("discovered", summary.Discovered),
		slog.Int("indexed", summary.Indexed),
		slog.Int("failed", summary.Failed),
		slog.Bool("aborted", summary.Aborted),
		slog.String("policy", cfg.Policy.String()),
		slog.String("duration_total", summary.Duration.String()),
		slog.Int64("duration_total_ms", summary.Duration.Milliseconds()),
		slog.String("embedder_model", summary.Model),
		slog.Int("embedder_dimensions", r.embedder.Dimensions()),
		slog.String("store_backend", summary.Backend),
		slog.String("path", cfg.Dir))

	return summary, runError(cfg.Policy, summary, failures)
}

// indexFile loads, embeds and stores one file. pos is 1-based.
func (r *Runner) indexFile(ctx context.Context, pos, total int, file scanner.FileInfo) FileResult {
	start := time.Now()
	result := FileResult{Name: file.Name, Status: StatusFailed}

	fail := func(err error) FileResult {
		result.Err = err
		result.Duration = time.Since(start)
		r.renderer.AddError(ui.ErrorEvent{File: file.Name, Err: err})
		slog.Error("index_file_failed", append([]any{"file", file.Name}, ierrors.FormatForLog(err)...)...)
		return result
	}

	r.renderer.UpdateProgress(ui.ProgressEvent{
		Stage:       ui.StageEmbedding,
		Current:     pos,
		Total:       total,
		CurrentFile: file.Name,
		Message:     fmt.Sprintf("Processing %s...", file.Name),
	})

	content, err := document.Load(file.Path)
	if err != nil {
		return fail(err)
	}

	embedding, err := r.embedder.Embed(ctx, content)
	if err != nil {
		return fail(err)
	}

	r.renderer.UpdateProgress(ui.ProgressEvent{
		Stage:       ui.StageUploading,
		Current:     pos,
		Total:       total,
		CurrentFile: file.Name,
		Message:     fmt.Sprintf("Uploading %s...", file.Name),
	})

	rec := document.Record{
		Title:     file.Name,
		Content:   content,
		Embedding: embedding,
	}
	if err := r.store.Insert(ctx, rec); err != nil {
		return fail(err)
	}

	result.Status = StatusIndexed
	result.Dimensions = len(embedding)
	result.Duration = time.Since(start)

	r.renderer.FileIndexed(ui.FileEvent{
		File:       file.Name,
		Dimensions: result.Dimensions,
		Duration:   result.Duration,
	})
	slog.Debug("index_file_complete",
		slog.String("file", file.Name),
		slog.Int("dimensions", result.Dimensions),
		slog.Int64("duration_ms", result.Duration.Milliseconds()))

	return result
}

// runError builds the error Run returns for the collected failures.
func runError(policy Policy, summary *Summary, failures []error) error {
	if len(failures) == 0 {
		return nil
	}
	if policy == PolicyFailFast || len(failures) == 1 {
		return failures[0]
	}
	return fmt.Errorf("%d of %d files failed: %w",
		summary.Failed, summary.Discovered, errors.Join(failures...))
}
