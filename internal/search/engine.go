// Package search answers questions against indexed documents: the question
// is embedded with the indexing model and matched against stored records.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Aman-CERP/docindex/internal/document"
	"github.com/Aman-CERP/docindex/internal/embed"
	"github.com/Aman-CERP/docindex/internal/store"
)

// ContextSeparator joins matched documents in Context.
const ContextSeparator = "\n---\n"

// ErrEmptyQuestion is returned for a question with no text after normalization.
var ErrEmptyQuestion = errors.New("question is empty")

// Options bounds a search. Zero values select store defaults.
type Options struct {
	Threshold float64
	Count     int
}

// Engine embeds questions and queries a store.
type Engine struct {
	embedder embed.Embedder
	searcher store.Searcher
}

// New creates an Engine.
func New(embedder embed.Embedder, searcher store.Searcher) (*Engine, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if searcher == nil {
		return nil, fmt.Errorf("searcher is required")
	}
	return &Engine{embedder: embedder, searcher: searcher}, nil
}

// Search returns the stored documents most similar to question, most
// similar first. The question is normalized like document text.
func (e *Engine) Search(ctx context.Context, question string, opts Options) ([]store.Match, error) {
	start := time.Now()

	question = document.Normalize(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	vec, err := e.embedder.Embed(ctx, question)
	if err != nil {
		return nil, err
	}

	matches, err := e.searcher.Search(ctx, vec, store.MatchOptions{
		Threshold: opts.Threshold,
		Count:     opts.Count,
	})
	if err != nil {
		return nil, err
	}

	slog.Info("search_complete",
		slog.Int("question_chars", len(question)),
		slog.Int("results", len(matches)),
		slog.Float64("threshold", opts.Threshold),
		slog.String("embedder_model", e.embedder.ModelName()),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))

	return matches, nil
}

// Context joins the content of matches into one prompt context block.
func Context(matches []store.Match) string {
	parts := make([]string, len(matches))
	for i, m := range matches {
		parts[i] = m.Content
	}
	return strings.Join(parts, ContextSeparator)
}
