package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/workbench/internal/sequencer"
	"github.com/kingrea/workbench/internal/shell"
	"github.com/kingrea/workbench/internal/testlab"
)

type testlabView struct {
	app       *App
	replay    *ticker[testlab.Step]
	selection int
}

func newTestlabView(app *App) *testlabView {
	return &testlabView{
		app:    app,
		replay: newTicker[testlab.Step](seqTest, app.timings.TestTick),
	}
}

// scenarioIDs lists every scenario in feature order.
func (v *testlabView) scenarioIDs() []string {
	var ids []string
	for _, f := range v.app.lab.Features() {
		for _, sc := range f.Scenarios {
			ids = append(ids, sc.ID)
		}
	}
	return ids
}

func (v *testlabView) selected() (testlab.Scenario, bool) {
	ids := v.scenarioIDs()
	if v.selection < 0 || v.selection >= len(ids) {
		return testlab.Scenario{}, false
	}
	return v.app.lab.Scenario(ids[v.selection])
}

func (v *testlabView) activate(p shell.Payload) tea.Cmd {
	if p != nil {
		v.app.logWarn("Test lab ignored %s payload", p.Kind())
	}
	return nil
}

func (v *testlabView) deactivate() {
	if v.replay.active() {
		v.replay.cancel()
		v.app.lab.Abort()
	}
}

func (v *testlabView) capturing() bool { return false }

func (v *testlabView) help() string { return "↑/↓=scenario  enter=replay" }

// replayScenario abandons any replay in flight and plays id.
func (v *testlabView) replayScenario(id string) tea.Cmd {
	v.replay.cancel()
	steps, err := v.app.lab.Begin(id)
	if err != nil {
		v.app.setStatus("Replay failed: %v", err)
		return nil
	}
	v.app.setStatus("Replaying %s", id)
	evt, cmd := v.replay.start(steps)
	v.handleEvent(id, evt)
	return cmd
}

func (v *testlabView) handleEvent(id string, evt sequencer.Event) {
	if evt.Started >= 0 {
		v.app.lab.Reveal(evt.Started)
	}
	if evt.Done {
		status := v.app.lab.Finish()
		v.app.setStatus("Scenario %s %s", id, status)
	}
}

func (v *testlabView) update(msg tea.Msg) tea.Cmd {
	switch m := msg.(type) {
	case tickMsg:
		id := v.app.lab.Running()
		evt, cmd, ok := v.replay.advance(m)
		if !ok {
			return nil
		}
		v.handleEvent(id, evt)
		return cmd
	case tea.KeyMsg:
		switch m.String() {
		case "up", "k":
			if v.selection > 0 {
				v.selection--
			}
		case "down", "j":
			if v.selection < len(v.scenarioIDs())-1 {
				v.selection++
			}
		case "enter", "r":
			if sc, ok := v.selected(); ok {
				return v.replayScenario(sc.ID)
			}
		}
	}
	return nil
}

func (v *testlabView) view(width int) string {
	var tree []string
	idx := 0
	for _, f := range v.app.lab.Features() {
		tree = append(tree, titleStyle.Render(f.Title))
		if len(f.Scenarios) == 0 {
			tree = append(tree, mutedStyle.Render("  no scenarios"))
		}
		for _, sc := range f.Scenarios {
			tree = append(tree, fmt.Sprintf("%s %s %s", cursor(idx == v.selection), statusIcon(string(sc.Status)), sc.Title))
			idx++
		}
	}
	left := lipgloss.NewStyle().Width(max(24, width/3)).Render(strings.Join(tree, "\n"))
	return lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", v.renderScenario(max(20, width-width/3-2)))
}

func (v *testlabView) renderScenario(width int) string {
	sc, ok := v.selected()
	if !ok {
		return mutedStyle.Render("Select a scenario.")
	}
	lines := []string{
		fmt.Sprintf("%s · %s", titleStyle.Render(sc.Title), badge(string(sc.Status))),
	}
	if sc.Description != "" {
		lines = append(lines, mutedStyle.Render(sc.Description))
	}
	if len(sc.Tags) > 0 || sc.PRDRef != "" {
		lines = append(lines, dimStyle.Render(strings.TrimSpace(strings.Join(sc.Tags, " ")+" "+sc.PRDRef)))
	}
	replaying := v.app.lab.Running() == sc.ID
	revealed := v.app.lab.Revealed()
	stepIdx := 0
	for _, ph := range sc.Phases {
		lines = append(lines, "", selectedStyle.Render(string(ph.Type))+" "+ph.Description)
		for _, step := range ph.Steps {
			status := string(step.Status)
			if replaying {
				status = "pending"
				if stepIdx < len(revealed) {
					status = string(revealed[stepIdx])
				}
			}
			line := fmt.Sprintf("  %s %s %s", statusIcon(status), step.Describe(), mutedStyle.Render(step.Duration))
			if status == string(testlab.StatusFailed) && step.Error != "" {
				line += "\n    " + statusStyles["failed"].Render(step.Error)
			}
			lines = append(lines, line)
			stepIdx++
		}
	}
	return lipgloss.NewStyle().Width(width).Render(strings.Join(lines, "\n"))
}
