// Package status provides status bar components for the TUI.
package status

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/wirestore/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/wirestore/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/wirestore/internal/core/domain"
)

// State represents the sync state shown in the bar.
type State string

const (
	StateIdle    State = "idle"
	StateSyncing State = "syncing"
	StateSynced  State = "synced"
	StateError   State = "error"
)

// Bar displays sync status, the record count and keybinding hints.
type Bar struct {
	styles      *styles.Styles
	keymap      *keymap.KeyMap
	state       State
	message     string
	lastSuccess time.Time
	recordCount int
	width       int
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.Default()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &Bar{
		styles: s,
		keymap: km,
		state:  StateIdle,
		width:  80,
	}
}

// Init initialises the status bar.
func (s *Bar) Init() tea.Cmd {
	return nil
}

// Update handles status bar messages.
func (s *Bar) Update(_ tea.Msg) (*Bar, tea.Cmd) {
	// Bar is passive, updated via Set methods
	return s, nil
}

// View renders the status bar.
func (s *Bar) View() string {
	left := s.renderLeft()
	right := s.renderRight()

	padding := s.width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		padding = 1
	}

	return s.styles.Bar.Width(s.width).Render(
		left + strings.Repeat(" ", padding) + right,
	)
}

func (s *Bar) renderLeft() string {
	count := s.styles.Record.Render(fmt.Sprintf("%d records", s.recordCount))

	var state string
	switch s.state {
	case StateSyncing:
		state = s.styles.Muted.Render("Syncing...")
	case StateError:
		if s.message != "" {
			state = s.styles.Failed.Render(fmt.Sprintf("Sync failed: %s", s.message))
		} else {
			state = s.styles.Failed.Render("Sync failed")
		}
	case StateSynced:
		state = s.styles.Synced.Render("Synced " + s.lastSuccess.Local().Format("15:04:05"))
	default:
		state = s.styles.Muted.Render("Not synced")
	}
	return count + " | " + state
}

func (s *Bar) renderRight() string {
	bindings := s.keymap.ShortHelp()
	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return s.styles.Muted.Render(strings.Join(hints, " | "))
}

// SetSyncStatus derives the bar state from an engine status snapshot.
func (s *Bar) SetSyncStatus(st domain.SyncStatus) {
	s.lastSuccess = st.LastSuccess
	switch {
	case st.Running:
		s.state = StateSyncing
	case st.LastError != "" && !st.LastErrorAt.Before(st.LastSuccess):
		s.state = StateError
		s.message = st.LastError
	case !st.LastSuccess.IsZero():
		s.state = StateSynced
		s.message = ""
	default:
		s.state = StateIdle
	}
}

// SetState sets the current state.
func (s *Bar) SetState(state State) {
	s.state = state
}

// State returns the current state.
func (s *Bar) State() State {
	return s.state
}

// SetMessage sets a custom message.
func (s *Bar) SetMessage(message string) {
	s.message = message
}

// Message returns the current message.
func (s *Bar) Message() string {
	return s.message
}

// SetRecordCount sets the record count.
func (s *Bar) SetRecordCount(count int) {
	s.recordCount = count
}

// RecordCount returns the current record count.
func (s *Bar) RecordCount() int {
	return s.recordCount
}

// SetWidth sets the status bar width.
func (s *Bar) SetWidth(width int) {
	s.width = width
}
