package ui

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rileyhilliard/hostwatch/internal/monitor"
)

// StatesMsg delivers a completed cycle to the dashboard. Send it from the
// monitor's OnCycle callback through tea.Program.Send.
type StatesMsg struct {
	States []monitor.TargetState
	At     time.Time
}

// clockMsg re-renders relative timestamps.
type clockMsg time.Time

const clockInterval = time.Second

// DashboardOptions wires the dashboard to a running monitor.
type DashboardOptions struct {
	History *monitor.History

	// Interval reports the current effective poll interval for the header.
	Interval func() time.Duration

	// Refresh requests an immediate cycle. It runs off the UI goroutine.
	Refresh func()

	// Initial is shown until the first StatesMsg arrives.
	Initial []monitor.TargetState

	Now func() time.Time
}

// Dashboard is the Bubble Tea model behind `watch --tui`.
type Dashboard struct {
	opts DashboardOptions

	states     []monitor.TargetState
	selected   int
	sortOrder  SortOrder
	viewMode   ViewMode
	showHelp   bool
	quitting   bool
	waiting    bool
	lastUpdate time.Time
	now        time.Time

	width  int
	height int

	keys    keyMap
	help    help.Model
	spinner spinner.Model

	detailViewport viewport.Model
	viewportReady  bool
}

// NewDashboard creates the dashboard model.
func NewDashboard(opts DashboardOptions) Dashboard {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = InfoStyle()

	d := Dashboard{
		opts:    opts,
		waiting: true,
		now:     opts.Now(),
		keys:    defaultKeyMap(),
		help:    help.New(),
		spinner: sp,
	}
	d.states = append(d.states, opts.Initial...)
	d.sortStates()
	return d
}

// Init starts the spinner and the clock.
func (d Dashboard) Init() tea.Cmd {
	return tea.Batch(d.spinner.Tick, clockCmd())
}

// Update handles messages and updates the model state.
func (d Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if handled, cmd := d.HandleKeyMsg(msg); handled {
			return d, cmd
		}
		if d.viewMode == ViewDetail && d.viewportReady {
			var cmd tea.Cmd
			d.detailViewport, cmd = d.detailViewport.Update(msg)
			return d, cmd
		}

	case tea.WindowSizeMsg:
		d.width = msg.Width
		d.height = msg.Height
		d.help.Width = msg.Width

		// Header and footer take three lines each.
		vpHeight := d.height - 6
		if vpHeight < 1 {
			vpHeight = 1
		}
		if !d.viewportReady {
			d.detailViewport = viewport.New(d.width, vpHeight)
			d.viewportReady = true
		} else {
			d.detailViewport.Width = d.width
			d.detailViewport.Height = vpHeight
		}
		d.updateDetailContent()

	case StatesMsg:
		d.waiting = false
		d.lastUpdate = msg.At
		d.now = msg.At
		d.setStates(msg.States)

	case clockMsg:
		d.now = time.Time(msg)
		d.updateDetailContent()
		return d, clockCmd()

	case spinner.TickMsg:
		if !d.waiting {
			return d, nil
		}
		var cmd tea.Cmd
		d.spinner, cmd = d.spinner.Update(msg)
		return d, cmd
	}

	return d, nil
}

// View renders the dashboard.
func (d Dashboard) View() string {
	if d.quitting {
		return ""
	}
	if d.showHelp {
		return d.renderHelpOverlay()
	}
	return d.renderDashboard()
}

// SelectedTarget returns the ID of the highlighted target.
func (d Dashboard) SelectedTarget() string {
	if d.selected >= 0 && d.selected < len(d.states) {
		return d.states[d.selected].Target.ID
	}
	return ""
}

// OnlineCount returns the number of connected targets.
func (d Dashboard) OnlineCount() int {
	n := 0
	for _, st := range d.states {
		if st.Connected {
			n++
		}
	}
	return n
}

// setStates replaces the rows, keeping the selection on the same target.
func (d *Dashboard) setStates(states []monitor.TargetState) {
	selected := d.SelectedTarget()
	d.states = append(d.states[:0:0], states...)
	d.sortStates()
	d.selectID(selected)
	if d.selected >= len(d.states) {
		d.selected = len(d.states) - 1
	}
	if d.selected < 0 && len(d.states) > 0 {
		d.selected = 0
	}
	if d.viewMode == ViewDetail && len(d.states) == 0 {
		d.viewMode = ViewList
	}
	d.updateDetailContent()
}

func (d *Dashboard) selectID(id string) {
	if id == "" {
		return
	}
	for i, st := range d.states {
		if st.Target.ID == id {
			d.selected = i
			return
		}
	}
}

func (d *Dashboard) updateDetailContent() {
	if !d.viewportReady || d.viewMode != ViewDetail {
		return
	}
	if d.selected < 0 || d.selected >= len(d.states) {
		d.detailViewport.SetContent("")
		return
	}
	d.detailViewport.SetContent(RenderTargetDetail(d.states[d.selected], d.opts.History, d.now))
}

func (d Dashboard) refreshCmd() tea.Cmd {
	if d.opts.Refresh == nil {
		return nil
	}
	refresh := d.opts.Refresh
	return func() tea.Msg {
		refresh()
		return nil
	}
}

func clockCmd() tea.Cmd {
	return tea.Tick(clockInterval, func(t time.Time) tea.Msg {
		return clockMsg(t)
	})
}
