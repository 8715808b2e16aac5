package ui

import "github.com/charmbracelet/lipgloss"

// Color palette: a single lime accent over grays
const (
	ColorLime     = "154" // accent
	ColorLimeDim  = "106"
	ColorWhite    = "255"
	ColorGray     = "245"
	ColorDarkGray = "238"
	ColorRed      = "196"
	ColorYellow   = "220"
)

// Styles holds the lipgloss styles of the indexing display.
type Styles struct {
	Title   lipgloss.Style // panel title naming the documents directory
	Done    lipgloss.Style // finished stages and stored files
	Current lipgloss.Style // the running stage and headline figures
	Pending lipgloss.Style // stages not reached yet, hints
	Label   lipgloss.Style
	Warning lipgloss.Style
	Failure lipgloss.Style
	Divider lipgloss.Style
	Panel   lipgloss.Style

	// summary is the completion box; its border color follows the outcome.
	summary lipgloss.Style
	colored bool
}

// DefaultStyles returns the colored styles used on a terminal.
func DefaultStyles() Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorLime)),
		Done:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLime)),
		Current: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorWhite)),
		Pending: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Label:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		Failure: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
		Divider: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorLimeDim)).
			Padding(0, 1),
		summary: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(1, 2),
		colored: true,
	}
}

// NoColorStyles keeps the layout (borders, padding) and drops every color.
func NoColorStyles() Styles {
	return Styles{
		Title:   lipgloss.NewStyle(),
		Done:    lipgloss.NewStyle(),
		Current: lipgloss.NewStyle(),
		Pending: lipgloss.NewStyle(),
		Label:   lipgloss.NewStyle(),
		Warning: lipgloss.NewStyle(),
		Failure: lipgloss.NewStyle(),
		Divider: lipgloss.NewStyle(),
		Panel:   lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
		summary: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(1, 2),
	}
}

// GetStyles returns the appropriate styles based on color preference.
func GetStyles(noColor bool) Styles {
	if noColor {
		return NoColorStyles()
	}
	return DefaultStyles()
}

// ForStage returns the style of stage while current is running.
func (s Styles) ForStage(stage, current Stage) lipgloss.Style {
	switch {
	case stage < current:
		return s.Done
	case stage == current:
		return s.Current
	default:
		return s.Pending
	}
}

// Summary returns the completion box style: red bordered when any file
// failed, lime otherwise.
func (s Styles) Summary(failed bool) lipgloss.Style {
	if !s.colored {
		return s.summary
	}
	if failed {
		return s.summary.BorderForeground(lipgloss.Color(ColorRed))
	}
	return s.summary.BorderForeground(lipgloss.Color(ColorLime))
}
