package monitor

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rileyhilliard/statwatch/internal/alert"
	"github.com/rileyhilliard/statwatch/internal/logger"
	"github.com/rileyhilliard/statwatch/internal/store"
	"github.com/rileyhilliard/statwatch/internal/stream"
	"github.com/rileyhilliard/statwatch/internal/telemetry"
)

// DefaultRefresh is the redraw interval when no frames arrive.
const DefaultRefresh = time.Second

// StateSource reports the current connection state. *stream.Manager
// satisfies it.
type StateSource interface {
	State() (stream.State, string)
}

// Exporter writes the buffered history to dir. *export.Writer satisfies it.
type Exporter interface {
	WriteFile(dir string, history []telemetry.Snapshot, now time.Time) (string, error)
}

// Options configures a dashboard Model.
type Options struct {
	Store     *store.Store
	Conn      StateSource
	Exporter  Exporter
	ExportDir string

	// Source names the backend in the header, e.g. the server URL or "local".
	Source string
	// Version is the backend version. Empty hides it.
	Version string

	Refresh time.Duration
	Logger  logger.Logger
}

// Model is the Bubble Tea model for the telemetry dashboard.
type Model struct {
	store     *store.Store
	conn      StateSource
	exporter  Exporter
	exportDir string
	source    string
	version   string
	refresh   time.Duration
	log       logger.Logger
	now       func() time.Time

	frames      <-chan telemetry.Snapshot
	unsubscribe func()
	events      chan connMsg

	state      stream.State
	lastErr    string
	current    telemetry.Snapshot
	history    []telemetry.Snapshot
	lastUpdate time.Time

	notice    string
	noticeErr bool

	width        int
	height       int
	spinnerFrame int
	showHelp     bool
	quitting     bool
	help         help.Model

	// render draws the dashboard body. Swappable so the panic guard can be
	// exercised.
	render func(Model) string
}

// frameMsg signals that the store published a snapshot.
type frameMsg struct{}

// connMsg carries a connection state change.
type connMsg struct {
	state  stream.State
	reason string
}

// tickMsg drives redraws and the connecting spinner.
type tickMsg time.Time

// exportedMsg reports the result of an export.
type exportedMsg struct {
	path string
	err  error
}

// NewModel creates a dashboard subscribed to opts.Store. Call Close when the
// program exits to release the subscription.
func NewModel(opts Options) Model {
	if opts.Refresh <= 0 {
		opts.Refresh = DefaultRefresh
	}
	if opts.Logger == nil {
		opts.Logger = logger.Noop()
	}

	frames, unsubscribe := opts.Store.Subscribe(1)

	m := Model{
		store:       opts.Store,
		conn:        opts.Conn,
		exporter:    opts.Exporter,
		exportDir:   opts.ExportDir,
		source:      opts.Source,
		version:     opts.Version,
		refresh:     opts.Refresh,
		log:         opts.Logger,
		now:         time.Now,
		frames:      frames,
		unsubscribe: unsubscribe,
		events:      make(chan connMsg, 16),
		current:     opts.Store.Current(),
		history:     opts.Store.History(),
		help:        help.New(),
		render:      Model.renderDashboard,
	}
	if m.conn != nil {
		m.state, m.lastErr = m.conn.State()
	}
	return m
}

// ConnectionChanged queues a state change for the dashboard. It never blocks,
// so it can be registered directly with Manager.OnConnectionChange.
func (m Model) ConnectionChanged(state stream.State, reason string) {
	select {
	case m.events <- connMsg{state: state, reason: reason}:
	default:
		// The tick re-reads the state, so a dropped event only delays the header.
	}
}

// Close releases the store subscription.
func (m Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Init starts listening for frames and state changes.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.waitForFrame(),
		m.waitForConn(),
		m.tickCmd(),
	)
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if handled, cmd := m.HandleKeyMsg(msg); handled {
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case frameMsg:
		m.current = m.store.Current()
		m.history = m.store.History()
		m.lastUpdate = m.now()
		return m, m.waitForFrame()

	case connMsg:
		m.state, m.lastErr = msg.state, msg.reason
		return m, m.waitForConn()

	case tickMsg:
		m.spinnerFrame = (m.spinnerFrame + 1) % 10000
		if m.conn != nil {
			m.state, m.lastErr = m.conn.State()
		}
		return m, m.tickCmd()

	case exportedMsg:
		switch {
		case msg.err != nil:
			m.notice, m.noticeErr = msg.err.Error(), true
			m.log.Warn("export failed: %v", msg.err)
		case msg.path == "":
			m.notice, m.noticeErr = "Nothing to export yet", false
		default:
			m.notice, m.noticeErr = "Exported "+msg.path, false
			m.log.Info("exported history to %s", msg.path)
		}
	}

	return m, nil
}

// View renders the dashboard. A panic while rendering is contained and shown
// as an error view so the terminal is left usable.
func (m Model) View() (out string) {
	if m.quitting {
		return ""
	}
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("render panic: %v", r)
			out = m.renderError(r)
		}
	}()
	if m.showHelp {
		return m.renderHelpOverlay()
	}
	return m.render(m)
}

// Alerts returns the active threshold alerts. Nothing fires unless the stream
// is connected and a snapshot has arrived, since the data is stale otherwise.
func (m Model) Alerts() []alert.Alert {
	if m.state != stream.StateConnected || m.current.IsZero() {
		return nil
	}
	return alert.Evaluate(m.current)
}

// State returns the connection state the dashboard last saw.
func (m Model) State() (stream.State, string) {
	return m.state, m.lastErr
}

// SecondsSinceUpdate returns how many seconds have passed since the last frame.
func (m Model) SecondsSinceUpdate() int {
	if m.lastUpdate.IsZero() {
		return 0
	}
	return int(m.now().Sub(m.lastUpdate).Seconds())
}

func (m Model) waitForFrame() tea.Cmd {
	frames := m.frames
	return func() tea.Msg {
		if _, ok := <-frames; !ok {
			return nil
		}
		return frameMsg{}
	}
}

func (m Model) waitForConn() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		return <-events
	}
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) exportCmd() tea.Cmd {
	if m.exporter == nil {
		return nil
	}
	history := m.store.History()
	exporter, dir, now := m.exporter, m.exportDir, m.now()
	return func() tea.Msg {
		path, err := exporter.WriteFile(dir, history, now)
		return exportedMsg{path: path, err: err}
	}
}

func (m Model) renderError(r any) string {
	body := fmt.Sprintf("✗ Dashboard failed to render\n\n  %v\n\n  Press q to quit.", r)
	return ErrorViewStyle.Render(body)
}
