// Package tui is an interactive browser for moment-arm scenarios.
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/armcheck/internal/config"
	"github.com/san-kum/armcheck/internal/storage"
	"github.com/san-kum/armcheck/internal/sweep"
	"github.com/san-kum/armcheck/internal/viz"
)

var (
	cursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	dim         = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	busy        = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
)

type view int

const (
	viewMenu view = iota
	viewReport
)

type entry struct {
	scenario config.Scenario
	result   *sweep.Result
	err      error
	running  bool
}

func (e entry) status() string {
	switch {
	case e.running:
		return busy.Render("running")
	case e.err != nil:
		return viz.Fail.Render("ERROR")
	case e.result != nil:
		return viz.Verdict(e.result.Passed())
	default:
		return dim.Render("-")
	}
}

type model struct {
	ctx     context.Context
	runner  *sweep.Runner
	entries []entry
	cursor  int
	view    view
	// awaiting is the entry whose report opens when its run finishes.
	awaiting int

	width  int
	height int
}

type resultMsg struct {
	index  int
	result *sweep.Result
	err    error
}

func newModel(ctx context.Context, runner *sweep.Runner, scenarios []config.Scenario) model {
	entries := make([]entry, len(scenarios))
	for i, sc := range scenarios {
		entries[i] = entry{scenario: sc}
	}
	return model{
		ctx:      ctx,
		runner:   runner,
		entries:  entries,
		awaiting: -1,
		width:    80,
		height:   24,
	}
}

// Run opens the browser on scenarios and blocks until the user quits.
func Run(ctx context.Context, runner *sweep.Runner, scenarios []config.Scenario) error {
	p := tea.NewProgram(newModel(ctx, runner, scenarios), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func (m model) Init() tea.Cmd { return nil }

func (m model) run(i int) tea.Cmd {
	sc := m.entries[i].scenario
	return func() tea.Msg {
		res, err := m.runner.Run(m.ctx, sc)
		return resultMsg{index: i, result: res, err: err}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.view == viewReport {
			return m.reportKey(msg)
		}
		return m.menuKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case resultMsg:
		e := &m.entries[msg.index]
		e.running = false
		e.result = msg.result
		e.err = msg.err
		if m.awaiting == msg.index {
			m.awaiting = -1
			if m.view == viewMenu && m.cursor == msg.index {
				m.view = viewReport
			}
		}
	}
	return m, nil
}

func (m model) start(i int) (model, tea.Cmd) {
	if m.entries[i].running {
		return m, nil
	}
	m.entries[i].running = true
	m.entries[i].result = nil
	m.entries[i].err = nil
	return m, m.run(i)
}

func (m model) menuKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.entries)-1 {
			m.cursor++
		}
	case "enter", " ":
		if len(m.entries) == 0 {
			return m, nil
		}
		e := m.entries[m.cursor]
		if e.result != nil || e.err != nil {
			m.view = viewReport
			return m, nil
		}
		m.awaiting = m.cursor
		return m.start(m.cursor)
	case "a":
		var cmds []tea.Cmd
		for i := range m.entries {
			var cmd tea.Cmd
			m, cmd = m.start(i)
			if cmd != nil {
				cmds = append(cmds, cmd)
			}
		}
		return m, tea.Batch(cmds...)
	}
	return m, nil
}

func (m model) reportKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "q", "esc", "backspace":
		m.view = viewMenu
	case "r":
		m.view = viewMenu
		m.awaiting = m.cursor
		return m.start(m.cursor)
	}
	return m, nil
}

func (m model) View() string {
	if m.view == viewReport {
		return m.reportView()
	}
	return m.menuView()
}

func (m model) menuView() string {
	var b strings.Builder
	b.WriteString(viz.Title.Render("armcheck"))
	b.WriteString(dim.Render("  moment-arm scenarios"))
	b.WriteString("\n\n")

	width := 0
	for _, e := range m.entries {
		width = max(width, len(e.scenario.Name))
	}
	for i, e := range m.entries {
		cursor := "  "
		name := e.scenario.Name
		if i == m.cursor {
			cursor = cursorStyle.Render("> ")
			name = cursorStyle.Render(name)
		}
		pad := strings.Repeat(" ", width-len(e.scenario.Name))
		fmt.Fprintf(&b, "%s%s%s  %-8s %s\n", cursor, name, pad, e.status(), dim.Render(e.scenario.Description))
	}

	sum := m.summary()
	fmt.Fprintf(&b, "\n%s\n", dim.Render(fmt.Sprintf("%d passed, %d failed, %d errors of %d", sum.Passed, sum.Failed, sum.Aborted, sum.Total)))
	b.WriteString(dim.Render("enter run/open  a run all  j/k move  q quit"))
	return b.String()
}

// summary tallies the entries that have finished.
func (m model) summary() sweep.Summary {
	sum := sweep.Summary{Total: len(m.entries)}
	for _, e := range m.entries {
		switch {
		case e.err != nil:
			sum.Aborted++
		case e.result == nil:
		case e.result.Passed():
			sum.Passed++
		default:
			sum.Failed++
		}
	}
	return sum
}

func (m model) reportView() string {
	e := m.entries[m.cursor]
	var b strings.Builder
	switch {
	case e.err != nil:
		b.WriteString(viz.Title.Render(e.scenario.Name))
		b.WriteString("\n\n")
		b.WriteString(viz.Fail.Render("error: ") + e.err.Error())
	case e.result != nil:
		b.WriteString(viz.FromResult(e.result).Render())
		b.WriteString("\n\n")
		rows := storage.Rows(e.result)
		if len(rows) > 1 {
			b.WriteString(viz.PlotMomentArms(rows, "moment arm: analytic, -dL/dq"))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(dim.Render("esc back  r rerun  ctrl+c quit"))
	return b.String()
}
