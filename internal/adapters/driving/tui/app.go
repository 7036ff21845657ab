package tui

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/wirestore/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/wirestore/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/wirestore/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/wirestore/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/wirestore/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/wirestore/internal/core/domain"
	"github.com/custodia-labs/wirestore/internal/core/ports/driving"
)

// App is a live view of one record type following the Elm architecture.
// It re-reads the records whenever the change bus reports a new token and
// redraws the status bar whenever the sync engine status changes.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keymap *keymap.KeyMap

	list *list.RecordList
	bar  *status.Bar

	// changes delivers change tokens of the watched type.
	changes <-chan string

	// statusCh is signalled by the engine's status subscription.
	statusCh    chan struct{}
	unsubscribe func()

	showHelp bool
	err      error

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.Default()
	km := keymap.DefaultKeyMap()

	return &App{
		ports:    ports,
		ctx:      context.Background(),
		styles:   s,
		keymap:   km,
		list:     list.NewRecordList(s),
		bar:      status.NewBar(s, km),
		statusCh: make(chan struct{}, 1),
	}, nil
}

// WithContext sets the context for the app. Cancelling it stops the
// change subscription.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init implements tea.Model.
// It subscribes to record and status changes and loads the records.
func (a *App) Init() tea.Cmd {
	a.changes = a.ports.Records.Watch(a.ctx)
	a.unsubscribe = a.ports.Sync.OnStatus(func() {
		select {
		case a.statusCh <- struct{}{}:
		default:
		}
	})
	a.bar.SetSyncStatus(a.ports.Sync.Status())

	return tea.Batch(
		tea.SetWindowTitle("wirestore - "+a.ports.Records.Type()),
		a.loadRecords(),
		a.waitForChange(),
		a.waitForStatus(),
	)
}

// Update implements tea.Model.
// It handles messages and updates the model state.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case messages.RecordsLoaded:
		if msg.Err != nil {
			a.err = msg.Err
			return a, nil
		}
		a.err = nil
		a.list.SetRecords(msg.Records)
		a.bar.SetRecordCount(len(msg.Records))
		return a, nil

	case messages.RecordsChanged:
		return a, tea.Batch(a.loadRecords(), a.waitForChange())

	case messages.SyncStatusChanged:
		a.bar.SetSyncStatus(msg.Status)
		return a, a.waitForStatus()

	case messages.SyncFinished:
		if msg.Err != nil && errors.Is(msg.Err, domain.ErrSyncInProgress) {
			return a, nil
		}
		a.bar.SetSyncStatus(a.ports.Sync.Status())
		return a, nil

	case messages.RecordDeleted:
		if msg.Err != nil {
			a.err = fmt.Errorf("deleting %s: %w", msg.ID, msg.Err)
		}
		return a, nil
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keymap.Quit):
		a.Close()
		return a, tea.Quit
	case key.Matches(msg, a.keymap.Help):
		a.showHelp = !a.showHelp
		return a, nil
	case key.Matches(msg, a.keymap.Sync):
		a.bar.SetState(status.StateSyncing)
		return a, a.syncNow()
	case key.Matches(msg, a.keymap.Delete):
		return a, a.deleteSelected()
	case key.Matches(msg, a.keymap.Reload):
		return a, a.loadRecords()
	}

	var cmd tea.Cmd
	a.list, cmd = a.list.Update(msg)
	return a, cmd
}

// View implements tea.Model.
// It renders the current view as a string.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	sections := []string{
		a.styles.Title.Render("wirestore") + " " + a.styles.Muted.Render(a.ports.Records.Type()),
		"",
		a.list.View(),
	}
	if a.err != nil {
		sections = append(sections, "", a.styles.Failed.Render("Error: "+a.err.Error()))
	}
	if a.showHelp {
		sections = append(sections, "", a.viewHelp())
	}
	sections = append(sections, "", a.bar.View())
	return strings.Join(sections, "\n")
}

func (a *App) viewHelp() string {
	var b strings.Builder
	for _, group := range a.keymap.FullHelp() {
		for _, binding := range group {
			h := binding.Help()
			fmt.Fprintf(&b, "  %-8s %s\n", h.Key, h.Desc)
		}
	}
	return a.styles.Help.Render(strings.TrimRight(b.String(), "\n"))
}

func (a *App) loadRecords() tea.Cmd {
	return func() tea.Msg {
		records, err := a.ports.Records.Records(a.ctx)
		if err != nil {
			return messages.RecordsLoaded{Err: err}
		}
		sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
		return messages.RecordsLoaded{Records: records}
	}
}

func (a *App) waitForChange() tea.Cmd {
	changes := a.changes
	return func() tea.Msg {
		token, ok := <-changes
		if !ok {
			return nil
		}
		return messages.RecordsChanged{Token: token}
	}
}

func (a *App) waitForStatus() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-a.statusCh:
			return messages.SyncStatusChanged{Status: a.ports.Sync.Status()}
		case <-a.ctx.Done():
			return nil
		}
	}
}

func (a *App) syncNow() tea.Cmd {
	return func() tea.Msg {
		return messages.SyncFinished{Err: a.ports.Sync.Sync(a.ctx, driving.ReasonManual)}
	}
}

func (a *App) deleteSelected() tea.Cmd {
	rec := a.list.SelectedRecord()
	if rec == nil {
		return nil
	}
	id := rec.ID
	return func() tea.Msg {
		return messages.RecordDeleted{ID: id, Err: a.ports.Records.Delete(a.ctx, id)}
	}
}

// Close releases the status subscription.
func (a *App) Close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
		a.unsubscribe = nil
	}
}

// Run starts the TUI application.
func (a *App) Run() error {
	defer a.Close()
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && a.ctx.Err() != nil {
		return nil
	}
	return err
}

// Records returns the displayed records.
func (a *App) Records() []domain.Record {
	return a.list.Records()
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.bar.SetWidth(width)
	// Title, blank lines and the status bar take five rows.
	a.list.SetDimensions(width, height-5)
}
