// Package ui provides the Bubble Tea terminal front end for Bastion. It is
// a pure consumer of the session containers: a short tick re-reads their
// snapshots and no daemon state lives here.
package ui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/bastionmc/bastion/internal/busykey"
	"github.com/bastionmc/bastion/internal/logtail"
	"github.com/bastionmc/bastion/internal/prefs"
	"github.com/bastionmc/bastion/internal/progress"
	"github.com/bastionmc/bastion/internal/ringlog"
	"github.com/bastionmc/bastion/internal/session"
)

// logTab selects which ring the log viewport shows.
type logTab int

const (
	tabLauncher logTab = iota
	tabGame
	tabInstance
	tabDiag

	tabCount = 4
)

const (
	defaultUITick = 500 * time.Millisecond
	statusTTL     = 5 * time.Second
)

// Options configures the UI.
type Options struct {
	Context    context.Context
	Session    *session.Session
	InstanceID string
	ThemeName  string
	PrefsPath  string
	LogFile    string
	Tick       time.Duration
}

// snapshot is one tick's worth of session state, copied out of the
// containers so View never touches a lock.
type snapshot struct {
	launcher []ringlog.Line
	game     []ringlog.Line
	instance []ringlog.Line

	diag []string

	progressActive bool
	progress       progress.Snapshot

	busy map[busykey.Key]busykey.Tag

	metricsTarget  string
	metricsRunning bool
	rss            []float64
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx        context.Context
	sess       *session.Session
	instanceID string
	prefsPath  string
	logFile    string
	tick       time.Duration

	theme  Theme
	styles Styles
	keys   keyMap

	tab      logTab
	follow   bool
	width    int
	height   int
	ready    bool
	showHelp bool

	viewport viewport.Model

	snap snapshot

	status     string
	statusKind session.StatusKind
	statusAt   time.Time
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	tick := opts.Tick
	if tick <= 0 {
		tick = defaultUITick
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = ThemeNames()[0]
	}
	theme := GetTheme(themeName)

	return Model{
		ctx:        ctx,
		sess:       opts.Session,
		instanceID: opts.InstanceID,
		prefsPath:  opts.PrefsPath,
		logFile:    opts.LogFile,
		tick:       tick,
		theme:      theme,
		styles:     theme.Styles(),
		keys:       defaultKeyMap(),
		tab:        tabLauncher,
		follow:     true,
	}
}

// Messages

type tickMsg time.Time

type snapshotMsg snapshot

// statusMsg carries a transient status line from the session notifier.
type statusMsg struct {
	Kind session.StatusKind
	Text string
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) fetchSnapshotCmd() tea.Cmd {
	sess := m.sess
	instanceID := m.instanceID
	logFile := m.logFile
	wantDiag := m.tab == tabDiag
	return func() tea.Msg {
		snap := snapshot{
			launcher:       sess.Logs.Launcher(),
			game:           sess.Logs.Game(),
			busy:           sess.Busy.Snapshot(),
			metricsTarget:  sess.Metrics.Target(),
			metricsRunning: sess.Metrics.Running(),
			rss:            sess.Metrics.History(),
		}
		if instanceID != "" {
			snap.instance = sess.Logs.Instance(instanceID)
		}
		if wantDiag && logFile != "" {
			snap.diag, _ = logtail.Tail(logFile, ringlog.LogCapacity)
		}
		snap.progress, snap.progressActive = sess.Progress.Snapshot()
		return snapshotMsg(snap)
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tickCmd(m.tick),
		m.fetchSnapshotCmd(),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width, m.contentHeight())
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = m.contentHeight()
		}
		m.refreshViewport()
		return m, nil

	case tickMsg:
		return m, tea.Batch(tickCmd(m.tick), m.fetchSnapshotCmd())

	case snapshotMsg:
		m.snap = snapshot(msg)
		m.refreshViewport()
		return m, nil

	case statusMsg:
		m.status = msg.Text
		m.statusKind = msg.Kind
		m.statusAt = time.Now()
		return m, nil
	}

	return m, nil
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.styles = m.theme.Styles()
		m.savePrefs()
		return m, nil

	case key.Matches(msg, m.keys.TabLauncher):
		m.tab = tabLauncher
		m.refreshViewport()
		return m, nil

	case key.Matches(msg, m.keys.TabGame):
		m.tab = tabGame
		m.refreshViewport()
		return m, nil

	case key.Matches(msg, m.keys.TabInstance):
		m.tab = tabInstance
		m.refreshViewport()
		return m, nil

	case key.Matches(msg, m.keys.TabDiag):
		m.tab = tabDiag
		m.refreshViewport()
		return m, m.fetchSnapshotCmd()

	case key.Matches(msg, m.keys.NextTab):
		m.tab = (m.tab + 1) % tabCount
		m.refreshViewport()
		return m, m.fetchSnapshotCmd()

	case key.Matches(msg, m.keys.PrevTab):
		m.tab = (m.tab + tabCount - 1) % tabCount
		m.refreshViewport()
		return m, m.fetchSnapshotCmd()

	case key.Matches(msg, m.keys.ToggleFollow):
		m.follow = !m.follow
		if m.follow {
			m.viewport.GotoBottom()
		}
		return m, nil

	case key.Matches(msg, m.keys.ClearLogs):
		m.sess.Logs.ClearLauncherAndGame()
		return m, m.fetchSnapshotCmd()

	case key.Matches(msg, m.keys.Top):
		m.follow = false
		m.viewport.GotoTop()
		return m, nil

	case key.Matches(msg, m.keys.Bottom):
		m.viewport.GotoBottom()
		return m, nil

	case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down),
		key.Matches(msg, m.keys.PageUp), key.Matches(msg, m.keys.PageDown),
		key.Matches(msg, m.keys.HalfPageUp), key.Matches(msg, m.keys.HalfPageDown):
		// Manual scrolling leaves follow mode.
		if key.Matches(msg, m.keys.Up) || key.Matches(msg, m.keys.PageUp) || key.Matches(msg, m.keys.HalfPageUp) {
			m.follow = false
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	p, _ := prefs.Load(m.prefsPath)
	p.Theme = m.theme.Name
	p.LastInstance = m.instanceID
	_ = prefs.Save(m.prefsPath, p)
}

// Run starts the Bubble Tea program and wires the session notifier to it.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen())

	if opts.Session != nil {
		opts.Session.SetNotifier(func(kind session.StatusKind, text string) {
			p.Send(statusMsg{Kind: kind, Text: text})
		})
		defer opts.Session.SetNotifier(nil)
	}

	if opts.Context != nil {
		go func() {
			<-opts.Context.Done()
			p.Send(tea.Quit())
		}()
	}

	_, err := p.Run()
	return err
}
