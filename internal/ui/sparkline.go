package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Sparkline block characters representing 8 vertical levels (lowest to highest).
const sparklineBlocks = "▁▂▃▄▅▆▇█"

var sparklineBlockRunes = []rune(sparklineBlocks)

// Usage thresholds shared by sparklines and the target table.
const (
	WarnPercent     = 60.0
	CriticalPercent = 80.0
)

// RenderSparkline draws the most recent width values scaled between their
// own minimum and maximum. The color follows the last value as a usage
// percentage: green below 60, yellow below 80, red above.
func RenderSparkline(data []float64, width int) string {
	data = tail(data, width)
	if len(data) == 0 {
		return ""
	}
	lo, hi := bounds(data)
	style := lipgloss.NewStyle().Foreground(getThresholdColor(data[len(data)-1]))
	return style.Render(blocks(data, lo, hi))
}

// RenderPercentSparkline draws usage percentages on a fixed 0-100 scale so
// a flat 5% line doesn't look like a flat 95% one.
func RenderPercentSparkline(data []float64, width int) string {
	data = tail(data, width)
	if len(data) == 0 {
		return ""
	}
	style := lipgloss.NewStyle().Foreground(getThresholdColor(data[len(data)-1]))
	return style.Render(blocks(data, 0, 100))
}

// RenderRateSparkline draws throughput samples scaled to their own range.
// Rates have no threshold, so the line is always drawn in the info color.
func RenderRateSparkline(data []float64, width int) string {
	data = tail(data, width)
	if len(data) == 0 {
		return ""
	}
	lo, hi := bounds(data)
	return InfoStyle().Render(blocks(data, lo, hi))
}

func tail(data []float64, width int) []float64 {
	if len(data) == 0 || width <= 0 {
		return nil
	}
	if len(data) > width {
		return data[len(data)-width:]
	}
	return data
}

func bounds(data []float64) (lo, hi float64) {
	lo, hi = data[0], data[0]
	for _, v := range data {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

func blocks(data []float64, lo, hi float64) string {
	var sb strings.Builder
	sb.Grow(len(data) * 3)

	numLevels := len(sparklineBlockRunes)
	span := hi - lo
	for _, v := range data {
		level := numLevels / 2
		if span > 0 {
			level = int((v - lo) / span * float64(numLevels-1))
			if level < 0 {
				level = 0
			} else if level >= numLevels {
				level = numLevels - 1
			}
		}
		sb.WriteRune(sparklineBlockRunes[level])
	}
	return sb.String()
}

// getThresholdColor maps a usage percentage to green, yellow or red.
func getThresholdColor(percent float64) lipgloss.Color {
	switch {
	case percent >= CriticalPercent:
		return ColorError
	case percent >= WarnPercent:
		return ColorWarning
	default:
		return ColorSuccess
	}
}
