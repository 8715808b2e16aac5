package ui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TUIRenderer provides rich terminal UI using bubbletea.
type TUIRenderer struct {
	mu      sync.Mutex
	cfg     Config
	program *tea.Program
	model   *indexingModel
	tracker *ProgressTracker
	cancel  context.CancelFunc
	started bool
	done    chan struct{}
}

// NewTUIRenderer creates a TUI renderer.
// Returns an error if the output is not a terminal.
func NewTUIRenderer(cfg Config) (*TUIRenderer, error) {
	if !IsTTY(cfg.Output) {
		return nil, fmt.Errorf("output is not a TTY")
	}

	tracker := NewProgressTracker()
	model := newIndexingModel(tracker, cfg.DocumentsDir)

	if cfg.NoColor || DetectNoColor() {
		model.styles = NoColorStyles()
	}

	return &TUIRenderer{
		cfg:     cfg,
		tracker: tracker,
		model:   model,
		done:    make(chan struct{}),
	}, nil
}

// Start implements Renderer.
func (r *TUIRenderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return nil
	}

	ctx, r.cancel = context.WithCancel(ctx)

	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if f, ok := r.cfg.Output.(*os.File); ok {
		opts = append(opts, tea.WithOutput(f))
	}

	r.program = tea.NewProgram(r.model, opts...)
	r.started = true

	go func() {
		defer close(r.done)
		_, _ = r.program.Run()
	}()

	return nil
}

// UpdateProgress implements Renderer.
func (r *TUIRenderer) UpdateProgress(event ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tracker.Apply(event)
	if r.program != nil {
		r.program.Send(refreshMsg{})
	}
}

// FileIndexed implements Renderer.
func (r *TUIRenderer) FileIndexed(event FileEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tracker.FileIndexed(event)
	if r.program != nil {
		r.program.Send(refreshMsg{})
	}
}

// AddError implements Renderer.
func (r *TUIRenderer) AddError(event ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tracker.AddError(event)
	if r.program != nil {
		r.program.Send(refreshMsg{})
	}
}

// Complete implements Renderer.
func (r *TUIRenderer) Complete(stats CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tracker.SetStage(StageComplete)
	if r.program != nil {
		r.program.Send(completeMsg(stats))
	}
}

// Stop implements Renderer. The final view stays on screen.
func (r *TUIRenderer) Stop() error {
	r.mu.Lock()
	program := r.program
	r.mu.Unlock()

	if program == nil {
		return nil
	}

	program.Quit()
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		// TUI didn't respond to quit; don't hang the process.
	}

	if r.cancel != nil {
		r.cancel()
	}
	return nil
}

// Message types for bubbletea
type refreshMsg struct{}
type completeMsg CompletionStats

// indexingModel is the bubbletea model for a run.
type indexingModel struct {
	tracker      *ProgressTracker
	width        int
	complete     bool
	stats        CompletionStats
	spinner      spinner.Model
	progressBar  progress.Model
	styles       Styles
	documentsDir string
}

// newIndexingModel creates a new indexing model.
func newIndexingModel(tracker *ProgressTracker, documentsDir string) *indexingModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLime))

	p := progress.New(
		progress.WithSolidFill(ColorLime),
		progress.WithWidth(50),
		progress.WithoutPercentage(),
	)

	return &indexingModel{
		tracker:      tracker,
		spinner:      s,
		progressBar:  p,
		styles:       DefaultStyles(),
		width:        80,
		documentsDir: documentsDir,
	}
}

// Init implements tea.Model.
func (m *indexingModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m *indexingModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Raw mode swallows SIGINT; forward it so the run context cancels.
		if msg.String() == "ctrl+c" {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progressBar.Width = msg.Width - 20
		if m.progressBar.Width < 20 {
			m.progressBar.Width = 20
		}

	case refreshMsg:
		return m, nil

	case completeMsg:
		m.complete = true
		m.stats = CompletionStats(msg)
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m *indexingModel) View() string {
	if m.complete {
		return m.renderComplete()
	}

	contentWidth := m.width - 4
	if contentWidth < 40 {
		contentWidth = 40
	}

	sections := []string{
		m.renderStages(),
		m.renderDivider(contentWidth),
		m.renderProgress(),
	}

	if stats := m.tracker.Stats(); stats.CurrentFile != "" && stats.Stage != StageComplete {
		sections = append(sections, m.styles.Pending.Render(truncateFilePath(stats.CurrentFile, contentWidth-2)))
	}

	if recent := m.renderRecent(contentWidth); recent != "" {
		sections = append(sections, m.renderDivider(contentWidth), recent)
	}

	title := "docindex"
	if m.documentsDir != "" {
		title = fmt.Sprintf("docindex • %s", m.documentsDir)
	}

	return m.wrapInPanel(title, strings.Join(sections, "\n"), contentWidth) + "\n" + m.renderStatusBar()
}

// renderStages renders the per-file stage indicators.
func (m *indexingModel) renderStages() string {
	currentStage := m.tracker.Stats().Stage

	stages := []struct {
		stage Stage
		name  string
	}{
		{StageScanning, "Scan"},
		{StageEmbedding, "Embed"},
		{StageUploading, "Upload"},
	}

	var parts []string
	for _, s := range stages {
		icon := "○"
		switch {
		case s.stage < currentStage:
			icon = "●"
		case s.stage == currentStage:
			icon = m.spinner.View()
		}

		parts = append(parts, m.styles.ForStage(s.stage, currentStage).Render(icon+" "+s.name))
	}

	return strings.Join(parts, m.styles.Pending.Render(" → "))
}

// renderProgress renders the file progress bar.
func (m *indexingModel) renderProgress() string {
	stats := m.tracker.Stats()

	if stats.Total == 0 {
		return fmt.Sprintf("%s %s...", m.spinner.View(), stats.Stage.String())
	}

	bar := m.progressBar.ViewAs(stats.Progress)
	pct := m.styles.Current.Render(fmt.Sprintf("%3.0f%%", stats.Progress*100))

	count := fmt.Sprintf("%d / %d files", stats.Current, stats.Total)
	if stats.ETA > 0 {
		count += "  •  ETA " + formatDuration(stats.ETA)
	}

	return fmt.Sprintf("%s  %s\n%s", bar, pct, m.styles.Label.Render(count))
}

// renderRecent lists the last stored files.
func (m *indexingModel) renderRecent(width int) string {
	recent := m.tracker.Recent()
	if len(recent) == 0 {
		return ""
	}

	lines := make([]string, 0, len(recent))
	for _, f := range recent {
		name := truncateFilePath(f.File, width-20)
		lines = append(lines, m.styles.Done.Render("✓ ")+name+
			m.styles.Pending.Render(fmt.Sprintf("  %d dims", f.Dimensions)))
	}
	return strings.Join(lines, "\n")
}

// renderDivider renders a horizontal divider line.
func (m *indexingModel) renderDivider(width int) string {
	return m.styles.Divider.Render(strings.Repeat("─", width))
}

// wrapInPanel wraps content in a box border with title.
func (m *indexingModel) wrapInPanel(title, content string, width int) string {
	panel := m.styles.Panel.Width(width)

	return lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Title.Render(title),
		panel.Render(content),
	)
}

// renderStatusBar renders the error count line.
func (m *indexingModel) renderStatusBar() string {
	stats := m.tracker.Stats()
	var parts []string

	if stats.WarnCount > 0 {
		parts = append(parts, m.styles.Warning.Render(fmt.Sprintf("⚠ %d warnings", stats.WarnCount)))
	}
	if stats.ErrorCount > 0 {
		parts = append(parts, m.styles.Failure.Render(fmt.Sprintf("✗ %d failed", stats.ErrorCount)))
	}

	if len(parts) == 0 {
		return m.styles.Pending.Render("ctrl+c to cancel")
	}

	return strings.Join(parts, m.styles.Pending.Render("  │  ")) + m.styles.Pending.Render("  │  ctrl+c to cancel")
}

// renderComplete renders the completion summary.
func (m *indexingModel) renderComplete() string {
	contentWidth := m.width - 4
	if contentWidth < 40 {
		contentWidth = 40
	}

	var lines []string

	header := m.styles.Done.Render("✓ Indexing Complete")
	if m.stats.Failed > 0 {
		header = m.styles.Failure.Render("✗ Indexing finished with errors")
	}
	lines = append(lines, header, "")

	label := func(s string) string { return m.styles.Label.Render(s) }
	value := func(s string) string { return m.styles.Current.Render(s) }

	lines = append(lines,
		fmt.Sprintf("%s  %s", label("Indexed:"), value(fmt.Sprintf("%d / %d", m.stats.Indexed, m.stats.Discovered))),
		fmt.Sprintf("%s %s", label("Duration:"), value(formatDuration(m.stats.Duration))),
	)
	if m.stats.Embedder.Model != "" {
		lines = append(lines, fmt.Sprintf("%s    %s", label("Model:"),
			value(fmt.Sprintf("%s (%d dims)", m.stats.Embedder.Model, m.stats.Embedder.Dimensions))))
	}
	if m.stats.Store != "" {
		lines = append(lines, fmt.Sprintf("%s    %s", label("Store:"), value(m.stats.Store)))
	}

	if m.stats.Failed > 0 {
		lines = append(lines, "", m.styles.Failure.Render(fmt.Sprintf("✗ %d failed", m.stats.Failed)))
	}
	if m.stats.Aborted {
		lines = append(lines, m.styles.Warning.Render("⚠ stopped at the first failure"))
	}

	panel := m.styles.Summary(m.stats.Failed > 0).Width(contentWidth)

	return panel.Render(strings.Join(lines, "\n")) + "\n"
}

// formatDuration formats a duration in a human-friendly way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		if s == 0 {
			return fmt.Sprintf("%dm", m)
		}
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", h, m)
}

// truncateFilePath shortens a name from the left to fit within maxLen.
func truncateFilePath(path string, maxLen int) string {
	if path == "" || len(path) <= maxLen {
		return path
	}
	if maxLen < 4 {
		return "..."
	}
	return "..." + path[len(path)-maxLen+3:]
}

// Ensure TUIRenderer implements Renderer
var _ Renderer = (*TUIRenderer)(nil)
