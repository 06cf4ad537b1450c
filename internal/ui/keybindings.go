package ui

import (
	"sort"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// SortOrder defines how targets are sorted in the dashboard.
type SortOrder int

const (
	SortByName SortOrder = iota
	SortByCPU
	SortByMemory
	SortByDisk
)

// String returns a human-readable label for the sort order.
func (s SortOrder) String() string {
	switch s {
	case SortByCPU:
		return "CPU"
	case SortByMemory:
		return "memory"
	case SortByDisk:
		return "disk free"
	default:
		return "name"
	}
}

// Next cycles to the next sort order.
func (s SortOrder) Next() SortOrder {
	return SortOrder((int(s) + 1) % 4)
}

// ViewMode defines the current display mode of the dashboard.
type ViewMode int

const (
	ViewList ViewMode = iota
	ViewDetail
)

type keyMap struct {
	Quit     key.Binding
	Refresh  key.Binding
	Sort     key.Binding
	Up       key.Binding
	Down     key.Binding
	First    key.Binding
	Last     key.Binding
	Expand   key.Binding
	Collapse key.Binding
	Help     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Sort:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort")),
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "previous")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "next")),
		First:    key.NewBinding(key.WithKeys("home"), key.WithHelp("home", "first")),
		Last:     key.NewBinding(key.WithKeys("end"), key.WithHelp("end", "last")),
		Expand:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
		Collapse: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	}
}

// ShortHelp feeds the footer.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit, k.Refresh, k.Sort, k.Up, k.Down, k.Expand, k.Help}
}

// FullHelp feeds the help overlay.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Quit, k.Refresh, k.Sort},
		{k.Up, k.Down, k.First, k.Last},
		{k.Expand, k.Collapse, k.Help},
	}
}

// HandleKeyMsg processes keyboard input. It reports whether the key was
// handled.
func (d *Dashboard) HandleKeyMsg(msg tea.KeyMsg) (bool, tea.Cmd) {
	// Help toggle takes priority
	if key.Matches(msg, d.keys.Help) {
		d.showHelp = !d.showHelp
		return true, nil
	}
	if d.showHelp && key.Matches(msg, d.keys.Collapse) {
		d.showHelp = false
		return true, nil
	}

	switch {
	case key.Matches(msg, d.keys.Quit):
		d.quitting = true
		return true, tea.Quit

	case key.Matches(msg, d.keys.Refresh):
		return true, d.refreshCmd()

	case key.Matches(msg, d.keys.Collapse):
		d.viewMode = ViewList
		return true, nil

	case key.Matches(msg, d.keys.Expand):
		if d.viewMode == ViewList && len(d.states) > 0 {
			d.viewMode = ViewDetail
			if d.viewportReady {
				d.detailViewport.GotoTop()
			}
			d.updateDetailContent()
		}
		return true, nil
	}

	// The detail view scrolls with the navigation keys.
	if d.viewMode == ViewDetail {
		return false, nil
	}

	switch {
	case key.Matches(msg, d.keys.Sort):
		d.sortOrder = d.sortOrder.Next()
		id := d.SelectedTarget()
		d.sortStates()
		d.selectID(id)
		return true, nil

	case key.Matches(msg, d.keys.Up):
		if d.selected > 0 {
			d.selected--
		}
		return true, nil

	case key.Matches(msg, d.keys.Down):
		if d.selected < len(d.states)-1 {
			d.selected++
		}
		return true, nil

	case key.Matches(msg, d.keys.First):
		if len(d.states) > 0 {
			d.selected = 0
		}
		return true, nil

	case key.Matches(msg, d.keys.Last):
		d.selected = len(d.states) - 1
		return true, nil
	}

	return false, nil
}

// sortStates orders rows by the current sort order. Targets missing the
// sorted metric go last; ties fall back to the name.
func (d *Dashboard) sortStates() {
	metric := func(i int) (float64, bool) {
		st := d.states[i]
		switch d.sortOrder {
		case SortByCPU:
			if st.CPUPercent != nil {
				return *st.CPUPercent, true
			}
		case SortByMemory:
			if st.Memory != nil {
				return st.Memory.UsedPercent, true
			}
		case SortByDisk:
			// Least free space first.
			if st.Disk != nil {
				return -st.Disk.AvailableGB, true
			}
		}
		return 0, false
	}

	sort.SliceStable(d.states, func(i, j int) bool {
		ni := d.states[i].Target.DisplayName()
		nj := d.states[j].Target.DisplayName()
		if d.sortOrder == SortByName {
			return ni < nj
		}
		vi, oki := metric(i)
		vj, okj := metric(j)
		if oki != okj {
			return oki
		}
		if oki && vi != vj {
			return vi > vj
		}
		return ni < nj
	})
}
