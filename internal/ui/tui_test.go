package ui

import (
	"bytes"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTUIRenderer_RejectsNonTTY(t *testing.T) {
	// Given: a non-TTY buffer
	cfg := NewConfig(&bytes.Buffer{})

	// When: creating a TUI renderer
	r, err := NewTUIRenderer(cfg)

	// Then: it refuses
	assert.Error(t, err)
	assert.Nil(t, r)
}

func TestIndexingModel_Title(t *testing.T) {
	// Given: a model for ./documentos
	model := newIndexingModel(NewProgressTracker(), "./documentos")

	// When: rendering
	view := model.View()

	// Then: the header names the directory
	assert.Contains(t, view, "docindex • ./documentos")
}

func TestIndexingModel_StageIndicators(t *testing.T) {
	// Given: a model embedding a file
	tracker := NewProgressTracker()
	tracker.Apply(ProgressEvent{Stage: StageEmbedding, Current: 1, Total: 2, CurrentFile: "a.txt"})
	model := newIndexingModel(tracker, "")

	// When: rendering
	view := model.View()

	// Then: all stages are listed and scanning is done
	assert.Contains(t, view, "Scan")
	assert.Contains(t, view, "Embed")
	assert.Contains(t, view, "Upload")
	assert.Contains(t, view, "● Scan")
	assert.Contains(t, view, "○ Upload")
}

func TestIndexingModel_ProgressDisplay(t *testing.T) {
	// Given: a model halfway through two files
	tracker := NewProgressTracker()
	tracker.Apply(ProgressEvent{Stage: StageUploading, Current: 2, Total: 2, CurrentFile: "b.txt"})
	tracker.FileIndexed(FileEvent{File: "a.txt", Dimensions: 384})
	model := newIndexingModel(tracker, "")

	// When: rendering
	view := model.View()

	// Then: counts, current file and recent files are visible
	assert.Contains(t, view, "2 / 2 files")
	assert.Contains(t, view, "50%")
	assert.Contains(t, view, "b.txt")
	assert.Contains(t, view, "a.txt")
	assert.Contains(t, view, "384 dims")
}

func TestIndexingModel_ScanningWithoutTotal(t *testing.T) {
	// Given: a model still scanning
	model := newIndexingModel(NewProgressTracker(), "")

	// When: rendering
	view := model.View()

	// Then: the stage name is shown instead of a bar
	assert.Contains(t, view, "Scanning...")
}

func TestIndexingModel_StatusBar(t *testing.T) {
	// Given: a model with one failure
	tracker := NewProgressTracker()
	tracker.Apply(ProgressEvent{Stage: StageEmbedding, Current: 1, Total: 1})
	tracker.AddError(ErrorEvent{File: "a.txt", Err: errors.New("boom")})
	model := newIndexingModel(tracker, "")

	// When: rendering
	view := model.View()

	// Then: the failure is counted
	assert.Contains(t, view, "1 failed")
	assert.Contains(t, view, "ctrl+c to cancel")
}

func TestIndexingModel_CompletionView(t *testing.T) {
	// Given: a model
	model := newIndexingModel(NewProgressTracker(), "")

	// When: the run completes
	_, cmd := model.Update(completeMsg(CompletionStats{
		Discovered: 3,
		Indexed:    2,
		Failed:     1,
		Duration:   3 * time.Second,
		Embedder:   EmbedderInfo{Model: "static", Dimensions: 384},
		Store:      "sqlite",
	}))

	// Then: the program quits and the summary is shown
	require.NotNil(t, cmd)
	view := model.View()
	assert.Contains(t, view, "2 / 3")
	assert.Contains(t, view, "3s")
	assert.Contains(t, view, "static (384 dims)")
	assert.Contains(t, view, "sqlite")
	assert.Contains(t, view, "1 failed")
}

func TestIndexingModel_WindowResize(t *testing.T) {
	// Given: a model
	model := newIndexingModel(NewProgressTracker(), "")

	// When: the terminal is tiny
	_, _ = model.Update(tea.WindowSizeMsg{Width: 30, Height: 10})

	// Then: the bar keeps a minimum width
	assert.Equal(t, 30, model.width)
	assert.Equal(t, 20, model.progressBar.Width)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{42 * time.Second, "42s"},
		{2 * time.Minute, "2m"},
		{2*time.Minute + 5*time.Second, "2m 5s"},
		{90 * time.Minute, "1h 30m"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatDuration(tt.in))
		})
	}
}

func TestTruncateFilePath(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		maxLen int
		want   string
	}{
		{"short", "a.txt", 20, "a.txt"},
		{"empty", "", 10, ""},
		{"long", "a-very-long-document-name.txt", 12, "...-name.txt"},
		{"tiny limit", "abcdef.txt", 3, "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateFilePath(tt.path, tt.maxLen)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len(got), max(tt.maxLen, 3))
		})
	}
}
