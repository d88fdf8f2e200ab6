package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/armcheck/internal/config"
	"github.com/san-kum/armcheck/internal/models"
	"github.com/san-kum/armcheck/internal/sweep"
)

func testScenarios(t *testing.T, names ...string) []config.Scenario {
	t.Helper()
	out := make([]config.Scenario, len(names))
	for i, name := range names {
		sc, ok := config.GetScenario(name)
		if !ok {
			t.Fatalf("missing scenario %s", name)
		}
		out[i] = sc
	}
	return out
}

func newTestModel(t *testing.T) model {
	t.Helper()
	runner := sweep.NewRunner(models.NewRegistry(), nil)
	return newModel(context.Background(), runner, testScenarios(t, "pendulum_pulley", "coupled_pair_q1", "sled_q"))
}

func press(m model, key string) (model, tea.Cmd) {
	var msg tea.KeyMsg
	switch key {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		msg = tea.KeyMsg{Type: tea.KeyUp}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	next, cmd := m.Update(msg)
	return next.(model), cmd
}

func TestCursorStaysInBounds(t *testing.T) {
	m := newTestModel(t)
	m, _ = press(m, "up")
	if m.cursor != 0 {
		t.Errorf("cursor = %d after up at top", m.cursor)
	}
	for i := 0; i < 5; i++ {
		m, _ = press(m, "j")
	}
	if m.cursor != 2 {
		t.Errorf("cursor = %d, want 2", m.cursor)
	}
}

func TestRunOpensReport(t *testing.T) {
	m := newTestModel(t)
	m, cmd := press(m, "enter")
	if cmd == nil {
		t.Fatal("expected a run command")
	}
	if !m.entries[0].running || !strings.Contains(m.View(), "running") {
		t.Error("entry not marked running")
	}

	next, _ := m.Update(cmd())
	m = next.(model)
	if m.view != viewReport {
		t.Fatal("report did not open when the run finished")
	}
	if m.entries[0].result == nil || !m.entries[0].result.Passed() {
		t.Fatalf("pendulum_pulley did not pass: %+v", m.entries[0])
	}
	if out := m.View(); !strings.Contains(out, "pendulum_pulley") || !strings.Contains(out, "PASS") {
		t.Errorf("report view missing verdict:\n%s", out)
	}

	m, _ = press(m, "esc")
	if m.view != viewMenu {
		t.Error("esc did not return to the menu")
	}
	m, cmd = press(m, "enter")
	if cmd != nil || m.view != viewReport {
		t.Error("enter on a finished entry should reopen its report without rerunning")
	}
}

func TestRunAll(t *testing.T) {
	m := newTestModel(t)
	m, cmd := press(m, "a")
	if cmd == nil {
		t.Fatal("expected run commands")
	}
	for i := range m.entries {
		if !m.entries[i].running {
			t.Errorf("entry %d not running", i)
		}
	}

	for i := range m.entries {
		next, _ := m.Update(m.run(i)())
		m = next.(model)
	}
	if m.view != viewMenu {
		t.Error("run all should stay on the menu")
	}
	sum := m.summary()
	if sum.Total != 3 || sum.Passed != 3 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestErrorEntry(t *testing.T) {
	m := newTestModel(t)
	next, _ := m.Update(resultMsg{index: 1, err: errors.New("boom")})
	m = next.(model)
	if sum := m.summary(); sum.Aborted != 1 {
		t.Errorf("summary = %+v", sum)
	}
	m, _ = press(m, "down")
	m, _ = press(m, "enter")
	if !strings.Contains(m.View(), "boom") {
		t.Errorf("error not shown:\n%s", m.View())
	}
}

func TestQuit(t *testing.T) {
	m := newTestModel(t)
	_, cmd := press(m, "q")
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}
