package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/roach88/spotview/internal/layout"
	"github.com/roach88/spotview/internal/record"
)

const (
	plotWidth  = 48
	plotHeight = 12
	barWidth   = 24
)

// renderedMsg reports a gesture that went through the loop.
type renderedMsg struct {
	echoes int
	err    error
}

// Model is the bubbletea model of the viewer window.
type Model struct {
	ctx    context.Context
	v      *Viewer
	table  table.Model
	onPlot bool // the map has the keyboard, otherwise the table

	width  int
	height int
	echoes int
	err    error
}

// NewModel returns the model for an opened viewer.
func NewModel(ctx context.Context, v *Viewer) *Model {
	t := table.New(
		table.WithColumns(tableColumns()),
		table.WithRows(tableRows(v.rows)),
		table.WithFocused(true),
		table.WithHeight(plotHeight),
	)
	t.SetStyles(tableStyles())
	m := &Model{ctx: ctx, v: v, table: t}
	m.syncCursor()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case renderedMsg:
		m.err = msg.err
		if msg.echoes > m.echoes {
			m.echoes = msg.echoes
		}
		m.syncCursor()
		return m, nil

	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q", "ctrl+c":
		return tea.Quit
	case "tab":
		m.onPlot = !m.onPlot
		if m.onPlot {
			m.table.Blur()
		} else {
			m.table.Focus()
		}
		return nil
	case "[", "]":
		delta := 1
		if msg.String() == "[" {
			delta = -1
		}
		if id, ok := m.v.mobilityStep(delta); ok {
			return m.gesture(&m.v.mobility.panel, id)
		}
		return nil
	}

	if m.onPlot {
		delta := 0
		switch msg.String() {
		case "left", "h":
			delta = -1
		case "right", "l":
			delta = 1
		}
		if delta == 0 {
			return nil
		}
		if id, ok := m.v.plotStep(delta); ok {
			return m.gesture(&m.v.plot.panel, id)
		}
		return nil
	}

	before := m.table.Cursor()
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	after := m.table.Cursor()
	if after == before || after < 0 || after >= len(m.v.rows) {
		return cmd
	}
	return tea.Batch(cmd, m.gesture(&m.v.table.panel, m.v.rows[after].ID))
}

// gesture returns a command that posts the selection to the loop.
func (m *Model) gesture(p *panel, id record.ID) tea.Cmd {
	ctx, v := m.ctx, m.v
	return func() tea.Msg {
		echoes, err := v.gesture(ctx, p, id)
		return renderedMsg{echoes: echoes, err: err}
	}
}

func (m *Model) syncCursor() {
	if row, ok := m.v.table.takeCursor(); ok {
		m.table.SetCursor(row)
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	plotStyle, tableStyle := styleBox, styleActiveBox
	if m.onPlot {
		plotStyle, tableStyle = styleActiveBox, styleBox
	}

	top := lipgloss.JoinHorizontal(lipgloss.Top,
		plotStyle.Render(styleTitle.Render("spots")+"\n"+renderPlot(m.v.rows, m.v.plot.Focused(), plotWidth, plotHeight)),
		tableStyle.Render(m.table.View()),
	)

	var bottom []string
	if m.v.spectrum != nil {
		bottom = append(bottom, styleBox.Render(renderSpectrum(
			m.v.spectrum.Records(layout.SourceSpectra), m.v.spectrum.Records(layout.SourceDrift), barWidth)))
	}
	if m.v.mobility != nil {
		bottom = append(bottom, styleBox.Render(renderMobility(
			m.v.mobility.Records(layout.SourceDrift), barWidth)))
	}

	parts := []string{top}
	if len(bottom) > 0 {
		parts = append(parts, lipgloss.JoinHorizontal(lipgloss.Top, bottom...))
	}
	parts = append(parts, m.statusLine())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *Model) statusLine() string {
	if m.err != nil {
		return styleError.Render("error: " + m.err.Error())
	}
	target := "table"
	if m.onPlot {
		target = "map"
	}
	return styleSubtle.Render(fmt.Sprintf("%s  %s  echoes swallowed: %d  tab switch  [ ] mobility  q quit",
		m.v.result.Owner, target, m.echoes))
}

// Run shows the viewer until the user quits or ctx is cancelled.
func Run(ctx context.Context, v *Viewer, opts ...tea.ProgramOption) error {
	if v.result == nil {
		return fmt.Errorf("viewer has no open sample")
	}
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	_, err := tea.NewProgram(NewModel(ctx, v), opts...).Run()
	return err
}
