package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/workbench/internal/plan"
	"github.com/kingrea/workbench/internal/sequencer"
	"github.com/kingrea/workbench/internal/shell"
	"github.com/kingrea/workbench/internal/workflow"
)

var (
	labelStyleDone    = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	labelStyleFailed  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	labelStyleRunning = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true)
	labelStyleKind    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801"))
	labelStyleDefault = lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC"))
	detailTextStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0"))
)

type workflowView struct {
	app       *App
	run       *ticker[workflow.Node]
	selection int
	err       error
}

func newWorkflowView(app *App) *workflowView {
	return &workflowView{
		app: app,
		run: newTicker[workflow.Node](seqWorkflow, app.timings.WorkflowTick),
	}
}

func (v *workflowView) activate(p shell.Payload) tea.Cmd {
	switch p := p.(type) {
	case shell.WorkflowPayload:
		v.selectDefinition(p.WorkflowID)
	case nil:
	default:
		v.app.logWarn("Workflow studio ignored %s payload", p.Kind())
	}
	return nil
}

// deactivate stops a run in flight. Node statuses stay where they were.
func (v *workflowView) deactivate() {
	if v.run.active() {
		v.run.cancel()
		v.app.studio.Abort()
	}
}

func (v *workflowView) capturing() bool { return false }

func (v *workflowView) help() string {
	return "enter=run  ←/→=workflow  ↑/↓=node"
}

func (v *workflowView) selectDefinition(id string) {
	v.deactivate()
	if err := v.app.studio.Select(id); err != nil {
		v.err = err
		v.app.setStatus("Workflow %s unavailable", id)
		return
	}
	v.err = nil
	v.selection = 0
	if def, ok := v.app.studio.Selected(); ok {
		v.app.setStatus("Workflow · %s opened", def.Name)
	}
}

func (v *workflowView) cycleDefinition(delta int) {
	defs := v.app.studio.Definitions()
	if len(defs) == 0 {
		return
	}
	current, _ := v.app.studio.Selected()
	idx := 0
	for i, def := range defs {
		if def.ID == current.ID {
			idx = i
		}
	}
	idx = (idx + delta + len(defs)) % len(defs)
	v.selectDefinition(defs[idx].ID)
}

func (v *workflowView) update(msg tea.Msg) tea.Cmd {
	switch m := msg.(type) {
	case tickMsg:
		evt, cmd, ok := v.run.advance(m)
		if !ok {
			return nil
		}
		v.handleEvent(evt)
		return cmd
	case tea.KeyMsg:
		return v.handleKeyMsg(m)
	}
	return nil
}

func (v *workflowView) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter", "r":
		return v.startRun()
	case "left", "h":
		v.cycleDefinition(-1)
	case "right", "l":
		v.cycleDefinition(1)
	case "up", "k":
		if v.selection > 0 {
			v.selection--
		}
	case "down", "j":
		if v.selection < len(v.app.studio.Order())-1 {
			v.selection++
		}
	}
	return nil
}

// startRun animates the ordered nodes, restarting any run in flight.
func (v *workflowView) startRun() tea.Cmd {
	nodes := v.app.studio.Begin()
	evt, cmd := v.run.start(nodes)
	def, _ := v.app.studio.Selected()
	v.app.setStatus("Workflow · running %s", def.Name)
	v.handleEvent(evt)
	return cmd
}

func (v *workflowView) handleEvent(evt sequencer.Event) {
	if evt.Started >= 0 {
		v.app.studio.Activate(evt.Started)
		v.selection = evt.Started
	}
	if evt.Done {
		v.app.studio.Finish()
		def, _ := v.app.studio.Selected()
		v.app.setStatus("Workflow · %s finished", def.Name)
	}
}

func (v *workflowView) view(width int) string {
	if v.err != nil {
		return fmt.Sprintf("Workflow error: %v", v.err)
	}
	def, ok := v.app.studio.Selected()
	if !ok {
		return "No workflows defined."
	}
	status := "idle"
	if v.app.studio.Running() {
		status = "running"
	}
	lines := []string{
		titleStyle.Render(def.Name),
		fmt.Sprintf("Workflow: %s · Status: %s", def.ID, badge(status)),
	}
	if def.Description != "" {
		lines = append(lines, mutedStyle.Render(def.Description))
	}
	lines = append(lines, "")
	nodes := v.app.studio.Order()
	steps := v.app.studio.Steps()
	for i, node := range nodes {
		var st plan.Status
		if i < len(steps) {
			st = steps[i].Status
		}
		lines = append(lines, v.renderNodeLine(i, node, st))
		if i == v.selection {
			lines = append(lines, v.renderNodeDetails(node))
		}
	}
	return lipgloss.NewStyle().Width(width).Render(strings.Join(lines, "\n"))
}

func (v *workflowView) renderNodeLine(idx int, node workflow.Node, status plan.Status) string {
	indicator := " "
	if idx == v.selection {
		indicator = ">"
	}
	name := node.Label
	if strings.TrimSpace(name) == "" {
		name = node.ID
	}
	labels := []string{
		labelStyleForStatus(status).Render(friendlyLabel(string(status))),
		labelStyleKind.Render(string(node.Kind)),
	}
	return fmt.Sprintf("%s %s · [%s]", indicator, name, strings.Join(labels, ", "))
}

func (v *workflowView) renderNodeDetails(node workflow.Node) string {
	var details []string
	if node.Description != "" {
		details = append(details, node.Description)
	}
	if deps := v.app.studioDependencies(node.ID); len(deps) > 0 {
		details = append(details, fmt.Sprintf("Depends on: %s", strings.Join(deps, ", ")))
	}
	if result, ok := v.app.studio.Result(node.ID); ok && result.Output != "" {
		details = append(details, fmt.Sprintf("Output (%s): %s", result.OutputType, result.Output))
	}
	if len(details) == 0 {
		return detailTextStyle.Render("  no additional details")
	}
	return detailTextStyle.Render("  " + strings.Join(details, "\n  "))
}

func (a *App) studioDependencies(id string) []string {
	def, ok := a.studio.Selected()
	if !ok {
		return nil
	}
	return def.Dependencies(id)
}

func labelStyleForStatus(status plan.Status) lipgloss.Style {
	switch status {
	case plan.StatusCompleted:
		return labelStyleDone
	case plan.StatusRunning:
		return labelStyleRunning
	case plan.StatusFailed:
		return labelStyleFailed
	}
	return labelStyleDefault
}

func friendlyLabel(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "Pending"
	}
	return strings.ToUpper(value[:1]) + value[1:]
}
