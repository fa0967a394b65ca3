package console

import (
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/melih/dockerbar/internal/core/domain"
)

var (
	colorDim     = lipgloss.Color("#6B7280") // gray for ids and unknown containers
	colorSuccess = lipgloss.Color("#10B981") // green for running
	colorPaused  = lipgloss.Color("#3B82F6") // blue for paused
	colorWarning = lipgloss.Color("#F59E0B") // amber for stopped
	colorError   = lipgloss.Color("#EF4444")
)

// styles is bound to one output so colors are only emitted to terminals.
type styles struct {
	running lipgloss.Style
	paused  lipgloss.Style
	stopped lipgloss.Style
	unknown lipgloss.Style
	dim     lipgloss.Style
	ok      lipgloss.Style
	failed  lipgloss.Style
	title   lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		running: r.NewStyle().Foreground(colorSuccess),
		paused:  r.NewStyle().Foreground(colorPaused),
		stopped: r.NewStyle().Foreground(colorWarning),
		unknown: r.NewStyle().Foreground(colorDim),
		dim:     r.NewStyle().Foreground(colorDim),
		ok:      r.NewStyle().Foreground(colorSuccess).Bold(true),
		failed:  r.NewStyle().Foreground(colorError).Bold(true),
		title:   r.NewStyle().Bold(true),
	}
}

func (s styles) status(st domain.Status) string {
	switch st {
	case domain.StatusRunning:
		return s.running.Render(string(st))
	case domain.StatusPaused:
		return s.paused.Render(string(st))
	case domain.StatusStopped:
		return s.stopped.Render(string(st))
	default:
		return s.unknown.Render(string(st))
	}
}
