// Package list provides list display components for the TUI.
package list

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/wirestore/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/wirestore/internal/core/domain"
)

// RecordList displays the live records of one type in a navigable list.
type RecordList struct {
	records  []domain.Record
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewRecordList creates a new record list component.
func NewRecordList(s *styles.Styles) *RecordList {
	if s == nil {
		s = styles.Default()
	}

	return &RecordList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init initialises the record list.
func (r *RecordList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (r *RecordList) Update(msg tea.Msg) (*RecordList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			r.MoveUp()
		case "down", "j":
			r.MoveDown()
		}
	}
	return r, nil
}

// View renders the record list.
func (r *RecordList) View() string {
	if len(r.records) == 0 {
		return r.styles.Muted.Render("No records")
	}

	// One line per record plus the header.
	visible := r.height - 2
	if visible < 1 {
		visible = 1
	}

	start := 0
	if r.selected >= visible {
		start = r.selected - visible + 1
	}
	end := start + visible
	if end > len(r.records) {
		end = len(r.records)
	}

	lines := make([]string, 0, end-start+2)
	lines = append(lines, r.styles.Heading.Render(fmt.Sprintf("Records (%d)", len(r.records))), "")
	for i := start; i < end; i++ {
		lines = append(lines, r.renderRecord(i, &r.records[i]))
	}
	return strings.Join(lines, "\n")
}

func (r *RecordList) renderRecord(index int, rec *domain.Record) string {
	indicator := "  "
	if index == r.selected {
		indicator = "> "
	}

	marker := " "
	if rec.Unsynced {
		marker = "*"
	}

	data := compact(rec.Data)
	maxLen := r.width - len(rec.ID) - 8
	if maxLen < 10 {
		maxLen = 10
	}
	if len(data) > maxLen {
		data = data[:maxLen-3] + "..."
	}

	line := fmt.Sprintf("%s%s %s  %s", indicator, marker, rec.ID, data)
	switch {
	case index == r.selected:
		return r.styles.Selected.Render(line)
	case rec.Unsynced:
		return r.styles.Pending.Render(line)
	default:
		return r.styles.Record.Render(line)
	}
}

// SetRecords replaces the displayed records. The selection follows the
// previously selected id when it is still present.
func (r *RecordList) SetRecords(records []domain.Record) {
	var selectedID string
	if sel := r.SelectedRecord(); sel != nil {
		selectedID = sel.ID
	}

	r.records = records
	r.selected = 0
	for i := range records {
		if records[i].ID == selectedID {
			r.selected = i
			break
		}
	}
}

// Records returns the displayed records.
func (r *RecordList) Records() []domain.Record {
	return r.records
}

// SelectedRecord returns the selected record, or nil when the list is empty.
func (r *RecordList) SelectedRecord() *domain.Record {
	if r.selected < 0 || r.selected >= len(r.records) {
		return nil
	}
	return &r.records[r.selected]
}

// Selected returns the selected index.
func (r *RecordList) Selected() int {
	return r.selected
}

// MoveUp moves the selection up.
func (r *RecordList) MoveUp() {
	if r.selected > 0 {
		r.selected--
	}
}

// MoveDown moves the selection down.
func (r *RecordList) MoveDown() {
	if r.selected < len(r.records)-1 {
		r.selected++
	}
}

// Count returns the number of records.
func (r *RecordList) Count() int {
	return len(r.records)
}

// SetDimensions sets the list dimensions.
func (r *RecordList) SetDimensions(width, height int) {
	r.width = width
	r.height = height
}

func compact(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
