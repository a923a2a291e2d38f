package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/roach88/spotview/internal/record"
)

// Adaptive color definitions for light/dark terminal support
var (
	colorCyan  = lipgloss.AdaptiveColor{Light: "#008b8b", Dark: "#00ffff"}
	colorGray  = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#888888"}
	colorRed   = lipgloss.AdaptiveColor{Light: "#8b0000", Dark: "#ff0000"}
	colorAmber = lipgloss.AdaptiveColor{Light: "#b8860b", Dark: "#ffbf00"}
)

var (
	styleTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan)

	styleSubtle = lipgloss.NewStyle().
			Foreground(colorGray)

	styleError = lipgloss.NewStyle().
			Foreground(colorRed)

	styleFocus = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAmber)

	styleBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorGray).
			Padding(0, 1)

	styleActiveBox = styleBox.
			BorderForeground(colorCyan)
)

func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(colorGray).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#000000")).
		Background(colorAmber).
		Bold(false)
	return s
}

func tableColumns() []table.Column {
	return []table.Column{
		{Title: "ID", Width: 6},
		{Title: "RT", Width: 7},
		{Title: "m/z", Width: 9},
		{Title: "Height", Width: 9},
		{Title: "Peaks", Width: 5},
	}
}

func tableRows(rows []spotRow) []table.Row {
	out := make([]table.Row, len(rows))
	for i, r := range rows {
		out[i] = table.Row{
			fmt.Sprintf("%d", r.ID),
			fmt.Sprintf("%.3f", r.RT),
			fmt.Sprintf("%.4f", r.MZ),
			fmt.Sprintf("%.0f", r.Height),
			fmt.Sprintf("%d", r.Peaks),
		}
	}
	return out
}

// renderPlot draws the spots on a width×height grid, retention time on the
// x axis and m/z on the y axis, highest m/z on top.
func renderPlot(rows []spotRow, focused record.ID, width, height int) string {
	if len(rows) == 0 || width < 2 || height < 2 {
		return styleSubtle.Render("no spots")
	}
	minRT, maxRT := math.Inf(1), math.Inf(-1)
	minMZ, maxMZ := math.Inf(1), math.Inf(-1)
	for _, r := range rows {
		minRT, maxRT = math.Min(minRT, r.RT), math.Max(maxRT, r.RT)
		minMZ, maxMZ = math.Min(minMZ, r.MZ), math.Max(maxMZ, r.MZ)
	}
	cell := func(v, lo, hi float64, n int) int {
		if hi <= lo {
			return 0
		}
		return min(int((v-lo)/(hi-lo)*float64(n-1)+0.5), n-1)
	}

	grid := make([][]rune, height)
	for y := range grid {
		grid[y] = []rune(strings.Repeat(" ", width))
	}
	fx, fy := -1, -1
	for _, r := range rows {
		x := cell(r.RT, minRT, maxRT, width)
		y := height - 1 - cell(r.MZ, minMZ, maxMZ, height)
		grid[y][x] = '·'
		if r.ID == focused {
			fx, fy = x, y
		}
	}

	var b strings.Builder
	for y, line := range grid {
		if y == fy {
			b.WriteString(string(line[:fx]))
			b.WriteString(styleFocus.Render("●"))
			b.WriteString(string(line[fx+1:]))
		} else {
			b.WriteString(string(line))
		}
		if y < len(grid)-1 {
			b.WriteByte('\n')
		}
	}
	b.WriteString("\n")
	b.WriteString(styleSubtle.Render(fmt.Sprintf("RT %.2f–%.2f  m/z %.1f–%.1f", minRT, maxRT, minMZ, maxMZ)))
	return b.String()
}

// renderBars draws points as horizontal bars scaled to the largest y.
func renderBars(points []record.Point, width int, label string) string {
	if len(points) == 0 {
		return styleSubtle.Render("no points")
	}
	maxY := 0.0
	for _, p := range points {
		maxY = math.Max(maxY, p.Y)
	}
	var lines []string
	for _, p := range points {
		n := 0
		if maxY > 0 {
			n = int(p.Y / maxY * float64(width))
		}
		lines = append(lines, fmt.Sprintf("%s %8.3f %s %g", label, p.X, strings.Repeat("█", n), p.Y))
	}
	return strings.Join(lines, "\n")
}

// renderSpectrum shows the focused spot's peaks and its mobility records.
func renderSpectrum(spectra, drift []record.Record, width int) string {
	if len(spectra) == 0 {
		return styleSubtle.Render("no spot focused")
	}
	s := spectra[0]
	var b strings.Builder
	b.WriteString(styleTitle.Render(fmt.Sprintf("spot %d", s.ID)))
	if len(s.Arrays) > 0 {
		b.WriteString("\n")
		b.WriteString(renderBars(s.Arrays[0], width, "m/z"))
	}
	if len(drift) > 0 {
		ids := make([]string, len(drift))
		for i, d := range drift {
			ids[i] = fmt.Sprintf("%d", d.ID)
		}
		b.WriteString("\n")
		b.WriteString(styleSubtle.Render("mobility: " + strings.Join(ids, ", ")))
	}
	return b.String()
}

// renderMobility shows the focused drift master's mobilogram.
func renderMobility(drift []record.Record, width int) string {
	if len(drift) == 0 {
		return styleSubtle.Render("no mobility record focused")
	}
	d := drift[0]
	var b strings.Builder
	b.WriteString(styleTitle.Render(fmt.Sprintf("master %d", d.ID)))
	if len(d.Fields) > 0 {
		b.WriteString(fmt.Sprintf("  mobility %.3f", d.Fields[0]))
	}
	if len(d.Arrays) > 0 {
		b.WriteString("\n")
		b.WriteString(renderBars(d.Arrays[0], width, "1/K0"))
	}
	return b.String()
}
