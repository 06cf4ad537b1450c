package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(ColorMuted).
			PaddingLeft(1)

	titleStyle = lipgloss.NewStyle().
			Foreground(ColorInfo).
			Bold(true)

	footerStyle = lipgloss.NewStyle().
			PaddingLeft(1).
			PaddingTop(1)

	helpBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorInfo).
			Padding(1, 2)

	helpTitleStyle = lipgloss.NewStyle().
			Foreground(ColorInfo).
			Bold(true).
			MarginBottom(1)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true).
			Width(10)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)
)

// renderDashboard renders the complete dashboard view.
func (d Dashboard) renderDashboard() string {
	var b strings.Builder

	b.WriteString(d.renderHeader())
	b.WriteString("\n")

	switch {
	case d.waiting && len(d.states) == 0:
		b.WriteString(" " + d.spinner.View() + " Polling targets...")
	case d.viewMode == ViewDetail && d.viewportReady:
		b.WriteString(d.detailViewport.View())
	case d.viewMode == ViewDetail:
		b.WriteString(RenderTargetDetail(d.states[d.selected], d.opts.History, d.now))
	default:
		b.WriteString(RenderTargetTable(d.states, TableOptions{
			History:    d.opts.History,
			SparkWidth: d.sparkWidth(),
			Selected:   d.selected,
			Width:      d.width,
		}))
	}

	b.WriteString("\n")
	b.WriteString(footerStyle.Render(d.help.ShortHelpView(d.keys.ShortHelp())))
	return b.String()
}

// renderHeader renders the title line with summary stats.
func (d Dashboard) renderHeader() string {
	parts := []string{
		fmt.Sprintf("%d targets", len(d.states)),
		fmt.Sprintf("%d online", d.OnlineCount()),
	}
	if d.opts.Interval != nil {
		parts = append(parts, "every "+d.opts.Interval().String())
	}
	if d.waiting {
		parts = append(parts, "waiting for first poll")
	} else {
		parts = append(parts, "updated "+FormatAge(d.lastUpdate, d.now))
	}
	parts = append(parts, "sort: "+d.sortOrder.String())

	stats := MutedStyle().Render(" | " + strings.Join(parts, " | "))
	return headerStyle.Render(titleStyle.Render("hostwatch") + stats)
}

// sparkWidth shrinks the CPU sparkline on narrow terminals.
func (d Dashboard) sparkWidth() int {
	switch {
	case d.width == 0 || d.width >= 140:
		return 20
	case d.width >= 120:
		return DefaultSparkWidth
	default:
		return 5
	}
}

// renderHelpOverlay renders a centered box with all key bindings.
func (d Dashboard) renderHelpOverlay() string {
	lines := []string{helpTitleStyle.Render("Keyboard Shortcuts")}
	for _, group := range d.keys.FullHelp() {
		for _, binding := range group {
			lines = append(lines, helpLine(binding))
		}
	}
	lines = append(lines, "", MutedStyle().Render("Press ? to close"))

	box := helpBoxStyle.Render(strings.Join(lines, "\n"))
	if d.width == 0 || d.height == 0 {
		return box
	}
	return lipgloss.Place(d.width, d.height, lipgloss.Center, lipgloss.Center, box)
}

func helpLine(b key.Binding) string {
	h := b.Help()
	return helpKeyStyle.Render(h.Key) + helpDescStyle.Render(h.Desc)
}
