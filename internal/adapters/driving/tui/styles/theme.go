// Package styles provides the colour palette and lipgloss styles of the
// record viewer.
package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// Palette holds the colours the styles are built from.
type Palette struct {
	Accent  lipgloss.Color
	Heading lipgloss.Color
	Text    lipgloss.Color
	Dim     lipgloss.Color
	Pending lipgloss.Color
	Synced  lipgloss.Color
	Failed  lipgloss.Color
	Bar     lipgloss.Color
}

// DefaultPalette returns the dark terminal palette.
func DefaultPalette() Palette {
	return Palette{
		Accent:  lipgloss.Color("#0EA5E9"),
		Heading: lipgloss.Color("#A78BFA"),
		Text:    lipgloss.Color("#CDD6F4"),
		Dim:     lipgloss.Color("#6C7086"),
		Pending: lipgloss.Color("#F9E2AF"),
		Synced:  lipgloss.Color("#A6E3A1"),
		Failed:  lipgloss.Color("#F38BA8"),
		Bar:     lipgloss.Color("#181825"),
	}
}

// Styles are the rendered styles used by the viewer components.
type Styles struct {
	palette Palette

	Title    lipgloss.Style
	Heading  lipgloss.Style
	Record   lipgloss.Style
	Selected lipgloss.Style

	// Pending marks records with a local write the exchange has not
	// confirmed yet.
	Pending lipgloss.Style

	Muted  lipgloss.Style
	Synced lipgloss.Style
	Failed lipgloss.Style
	Bar    lipgloss.Style
	Help   lipgloss.Style
}

// New builds styles from p.
func New(p Palette) *Styles {
	return &Styles{
		palette:  p,
		Title:    lipgloss.NewStyle().Bold(true).Foreground(p.Accent),
		Heading:  lipgloss.NewStyle().Bold(true).Foreground(p.Heading),
		Record:   lipgloss.NewStyle().Foreground(p.Text),
		Selected: lipgloss.NewStyle().Bold(true).Foreground(p.Text).Background(p.Accent),
		Pending:  lipgloss.NewStyle().Italic(true).Foreground(p.Pending),
		Muted:    lipgloss.NewStyle().Foreground(p.Dim),
		Synced:   lipgloss.NewStyle().Foreground(p.Synced),
		Failed:   lipgloss.NewStyle().Foreground(p.Failed),
		Bar:      lipgloss.NewStyle().Foreground(p.Dim).Background(p.Bar).Padding(0, 1),
		Help:     lipgloss.NewStyle().Foreground(p.Dim),
	}
}

// Default returns styles for DefaultPalette.
func Default() *Styles {
	return New(DefaultPalette())
}

// Palette returns the colours the styles were built from.
func (s *Styles) Palette() Palette {
	return s.palette
}
