package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/rileyhilliard/hostwatch/internal/monitor"
)

// TableColumn defines a table column with name and width.
type TableColumn struct {
	Title string
	Width int
}

// NewTable creates a Bubbles table with default styling. Cells must be plain
// text; the table truncates by rune width and would cut escape sequences.
func NewTable(columns []TableColumn, rows []table.Row) table.Model {
	cols := make([]table.Column, len(columns))
	for i, c := range columns {
		cols[i] = table.Column{Title: c.Title, Width: c.Width}
	}

	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithFocused(false),
		table.WithHeight(len(rows)+1), // +1 for header
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ColorMuted).
		BorderBottom(true).
		Bold(true).
		Foreground(ColorPrimary)
	s.Cell = s.Cell.Foreground(ColorPrimary)
	// Nothing is focused, so the selected row must look like any other.
	s.Selected = s.Cell

	t.SetStyles(s)
	return t
}

// RenderSimpleTable renders a non-interactive table string.
func RenderSimpleTable(columns []TableColumn, rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}
	tableRows := make([]table.Row, len(rows))
	for i, row := range rows {
		tableRows[i] = table.Row(row)
	}
	return NewTable(columns, tableRows).View()
}

// TableOptions controls RenderTargetTable.
type TableOptions struct {
	// History supplies CPU sparklines; nil hides them.
	History *monitor.History

	// SparkWidth is the number of samples drawn per sparkline.
	SparkWidth int

	// Selected highlights one row; -1 selects nothing.
	Selected int

	// Width truncates the error lines; zero leaves them whole.
	Width int
}

// DefaultSparkWidth is the sparkline length used when none is set.
const DefaultSparkWidth = 10

// Column widths of the target table, in display cells.
const (
	colStatus     = 3
	colName       = 16
	colHost       = 20
	colCPU        = 8
	colMem        = 8
	colDisk       = 10
	colNet        = 24
	colLatency    = 9
	colContainers = 6
)

// TargetRow is the formatted, uncolored content of one table row.
type TargetRow struct {
	ID         string
	Name       string
	Host       string
	Status     string
	CPU        string
	Memory     string
	Disk       string
	Network    string
	Latency    string
	Containers string
	Error      string
}

// NewTargetRow formats a target state for display.
func NewTargetRow(st monitor.TargetState) TargetRow {
	row := TargetRow{
		ID:         st.Target.ID,
		Name:       st.Target.DisplayName(),
		Host:       hostLabel(st),
		Status:     StatusText(st),
		CPU:        FormatPercent(st.CPUPercent),
		Memory:     Placeholder,
		Disk:       Placeholder,
		Network:    Placeholder,
		Latency:    FormatLatency(st.Latency),
		Containers: Placeholder,
		Error:      st.LastError,
	}
	if st.Memory != nil {
		row.Memory = fmt.Sprintf("%.1f%%", st.Memory.UsedPercent)
	}
	if st.Disk != nil {
		row.Disk = FormatGB(st.Disk.AvailableGB)
	}
	if st.Network != nil {
		row.Network = SymbolDown + FormatRate(st.Network.DownloadBps) + " " + SymbolUp + FormatRate(st.Network.UploadBps)
	}
	if st.Connected {
		running := 0
		for _, c := range st.Containers {
			if c.Running() {
				running++
			}
		}
		row.Containers = fmt.Sprintf("%d/%d", running, len(st.Containers))
	}
	return row
}

// StatusText names the state of a target in one word.
func StatusText(st monitor.TargetState) string {
	switch {
	case !st.Target.IsEnabled():
		return "disabled"
	case !st.Polled():
		return "pending"
	case st.Connected:
		return "online"
	default:
		return "offline"
	}
}

// StatusSymbol returns the colored status indicator of a target.
func StatusSymbol(st monitor.TargetState) string {
	switch StatusText(st) {
	case "disabled":
		return MutedStyle().Render(SymbolDisabled)
	case "pending":
		return MutedStyle().Render(SymbolPending)
	case "online":
		return SuccessStyle().Render(SymbolOnline)
	default:
		return ErrorStyle().Render(SymbolFail)
	}
}

// RenderTargetTable renders one row per target plus the last error under
// every offline target.
func RenderTargetTable(states []monitor.TargetState, opts TableOptions) string {
	if len(states) == 0 {
		return MutedStyle().Render("No targets configured")
	}
	if opts.SparkWidth <= 0 {
		opts.SparkWidth = DefaultSparkWidth
	}

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorPrimary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(ColorMuted)

	cpuWidth := colCPU
	if opts.History != nil {
		cpuWidth += opts.SparkWidth + 1
	}

	header := padRight("", colStatus) +
		padRight("NAME", colName) +
		padRight("HOST", colHost) +
		padRight("CPU", cpuWidth) +
		padRight("MEM", colMem) +
		padRight("DISK FREE", colDisk) +
		padRight("NET", colNet) +
		padRight("LATENCY", colLatency) +
		"CTRS"

	var b strings.Builder
	b.WriteString(headerStyle.Render(header))
	b.WriteString("\n")

	selectedStyle := lipgloss.NewStyle().Bold(true)
	for i, st := range states {
		row := NewTargetRow(st)

		name := Truncate(row.Name, colName-1)
		if i == opts.Selected {
			name = selectedStyle.Render(name)
		}

		cpu := usageStyle(st.CPUPercent).Render(row.CPU)
		if opts.History != nil {
			spark := RenderPercentSparkline(opts.History.CPU(st.Target.ID, opts.SparkWidth), opts.SparkWidth)
			cpu = padRight(cpu, colCPU) + padRight(spark, opts.SparkWidth+1)
		}

		var mem *float64
		if st.Memory != nil {
			mem = &st.Memory.UsedPercent
		}

		line := padRight(StatusSymbol(st), colStatus) +
			padRight(name, colName) +
			padRight(MutedStyle().Render(Truncate(row.Host, colHost-1)), colHost) +
			padRight(cpu, cpuWidth) +
			padRight(usageStyle(mem).Render(row.Memory), colMem) +
			padRight(row.Disk, colDisk) +
			padRight(row.Network, colNet) +
			padRight(MutedStyle().Render(row.Latency), colLatency) +
			row.Containers
		b.WriteString(line)
		b.WriteString("\n")

		if st.Polled() && !st.Connected && row.Error != "" {
			msg := row.Error
			if opts.Width > colStatus+2 {
				msg = Truncate(msg, opts.Width-colStatus-2)
			}
			b.WriteString(strings.Repeat(" ", colStatus))
			b.WriteString(ErrorStyle().Render(SymbolFail + " " + msg))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// RenderTargetDetail renders everything known about one target, for the
// detail pane and `check` with a single target.
func RenderTargetDetail(st monitor.TargetState, hist *monitor.History, now time.Time) string {
	row := NewTargetRow(st)
	label := lipgloss.NewStyle().Foreground(ColorMuted).Width(14)

	var lines []string
	add := func(k, v string) {
		lines = append(lines, label.Render(k)+v)
	}

	lines = append(lines, StatusSymbol(st)+" "+BoldStyle().Render(row.Name)+" "+MutedStyle().Render(row.Host))
	lines = append(lines, "")
	add("Status", row.Status)
	add("Last poll", FormatAge(st.LastPoll, now))
	if row.Error != "" {
		add("Error", ErrorStyle().Render(row.Error))
		if st.ErrorCode != "" {
			add("Error code", st.ErrorCode)
		}
	}
	add("Latency", row.Latency)
	if st.RemoteIP != "" {
		add("Remote IP", st.RemoteIP)
	}
	add("CPU", row.CPU)
	if st.Memory != nil {
		add("Memory", fmt.Sprintf("%s of %s", row.Memory, FormatGB(st.Memory.TotalGB)))
	}
	if st.Disk != nil {
		add("Disk", fmt.Sprintf("%s free of %s (%.1f%% used)", row.Disk, FormatGB(st.Disk.TotalGB), st.Disk.UsedPercent))
	}
	if st.Interface != "" {
		add("Interface", st.Interface)
	}
	add("Network", row.Network)

	if hist != nil {
		if series, ok := hist.Get(st.Target.ID, hist.Size()); ok {
			lines = append(lines, "")
			add("CPU history", RenderPercentSparkline(series.CPU, len(series.CPU)))
			add("Mem history", RenderPercentSparkline(series.Memory, len(series.Memory)))
			add("Disk history", RenderPercentSparkline(series.Disk, len(series.Disk)))
			add("Download", RenderRateSparkline(series.Download, len(series.Download)))
			add("Upload", RenderRateSparkline(series.Upload, len(series.Upload)))
		}
	}

	if len(st.Containers) > 0 {
		lines = append(lines, "")
		lines = append(lines, BoldStyle().Render(fmt.Sprintf("Containers (%s running)", row.Containers)))
		for _, c := range st.Containers {
			sym := ErrorStyle().Render(SymbolFail)
			if c.Running() {
				sym = SuccessStyle().Render(SymbolOnline)
			}
			line := "  " + sym + " " + padRight(c.Name, 24) + MutedStyle().Render(c.Status)
			if c.StartedAt != nil {
				line += MutedStyle().Render(" (started " + FormatAge(*c.StartedAt, now) + ")")
			}
			lines = append(lines, line)
		}
	}

	return strings.Join(lines, "\n")
}

func hostLabel(st monitor.TargetState) string {
	host := st.Target.Host
	if p := st.Target.EffectivePort(); p != 22 {
		host = st.Target.Address()
	}
	if st.Target.User != "" {
		host = st.Target.User + "@" + host
	}
	return host
}

func usageStyle(p *float64) lipgloss.Style {
	if p == nil {
		return lipgloss.NewStyle()
	}
	return lipgloss.NewStyle().Foreground(getThresholdColor(*p))
}

// padRight pads a string to the specified width, ignoring ANSI codes.
func padRight(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}
