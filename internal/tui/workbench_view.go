package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/workbench/internal/onboarding"
	"github.com/kingrea/workbench/internal/plan"
	"github.com/kingrea/workbench/internal/sequencer"
	"github.com/kingrea/workbench/internal/shell"
	"github.com/kingrea/workbench/internal/workbench"
)

type workbenchFocus int

const (
	focusNone workbenchFocus = iota
	focusChat
	focusTerminal
)

const (
	chatLines     = 10
	terminalLines = 8
)

// workbenchView plays the scripted launch and hosts the chat, terminal and
// plan panels. Every sequence below belongs to the view and is cancelled
// when the tab closes.
type workbenchView struct {
	app *App

	clone     *ticker[string]
	plan      *ticker[plan.Step]
	reply     delay
	analyze   delay
	planDelay delay
	chatReply delay
	demo      delay

	pendingAck string
	input      textinput.Model
	focus      workbenchFocus
}

func newWorkbenchView(app *App) *workbenchView {
	t := app.timings.Workbench
	input := textinput.New()
	input.Prompt = "› "
	input.CharLimit = 500
	return &workbenchView{
		app:       app,
		clone:     newTicker[string](seqClone, t.CloneTick),
		plan:      newTicker[plan.Step](seqPlan, t.PlanTick),
		reply:     newDelay(seqReply, t.ReplyDelay),
		analyze:   newDelay(seqAnalyze, t.AnalyzeWait),
		planDelay: newDelay(seqPlanDelay, t.PlanDelay),
		chatReply: newDelay(seqChatReply, t.ReplyDelay),
		demo:      newDelay(seqDemo, t.ReplyDelay),
		input:     input,
	}
}

func (w *workbenchView) session() *workbench.Session { return w.app.session }

func (w *workbenchView) activate(p shell.Payload) tea.Cmd {
	switch p := p.(type) {
	case shell.ScopePayload:
		w.cancelAll()
		msg := w.session().ApplyScope(p.Scope)
		w.app.setStatus("%s", strings.ReplaceAll(msg.Content, "**", ""))
	case shell.LaunchPayload:
		return w.startLaunch(p.Launch)
	case shell.IntentPayload:
		if p.Intent == shell.DemoIntent {
			return w.startDemo()
		}
		return w.send(p.Intent)
	case shell.WorkflowPayload:
		w.app.logWarn("Workbench ignored workflow payload %s", p.WorkflowID)
	case nil:
	}
	return nil
}

func (w *workbenchView) deactivate() {
	w.cancelAll()
	w.blur()
}

func (w *workbenchView) cancelAll() {
	w.clone.cancel()
	w.plan.cancel()
	w.reply.cancel()
	w.analyze.cancel()
	w.planDelay.cancel()
	w.chatReply.cancel()
	w.demo.cancel()
	w.pendingAck = ""
}

func (w *workbenchView) capturing() bool { return w.focus != focusNone }

func (w *workbenchView) help() string {
	if w.focus != focusNone {
		return "enter=submit  esc=cancel"
	}
	return "i=chat  :=terminal  g=generate plan"
}

// startLaunch clears the session and plays the clone log.
func (w *workbenchView) startLaunch(l onboarding.Launch) tea.Cmd {
	w.cancelAll()
	lines := w.session().BeginLaunch(l)
	w.app.setStatus("Cloning %s", l.RepoURL())
	evt, cmd := w.clone.start(lines)
	return tea.Batch(cmd, w.handleClone(evt))
}

func (w *workbenchView) handleClone(evt sequencer.Event) tea.Cmd {
	if evt.Started >= 0 {
		if line, ok := w.clone.step(evt.Started); ok {
			w.session().AppendTerminal(line)
		}
	}
	if !evt.Done {
		return nil
	}
	sc := w.session().MountLaunchScope()
	w.app.shell.MountScope(sc)
	w.app.setStatus("Mounted %s", sc.Label())
	l, _ := w.session().Launch()
	if l.Intent == "" {
		return w.requestPlan()
	}
	return tea.Batch(w.reply.start(), w.analyze.start())
}

// requestPlan marks the plan generating and schedules its creation.
func (w *workbenchView) requestPlan() tea.Cmd {
	w.plan.cancel()
	w.session().RequestPlan()
	return w.planDelay.start()
}

func (w *workbenchView) generatePlan() tea.Cmd {
	steps := w.session().GeneratePlan()
	w.app.setStatus("%s", workbench.PlanGeneratedMessage)
	evt, cmd := w.plan.start(steps)
	w.handlePlan(evt)
	return cmd
}

func (w *workbenchView) handlePlan(evt sequencer.Event) {
	model := w.session().PlanModel()
	if evt.Started >= 0 {
		model.Activate(evt.Started)
	}
	if evt.Done {
		model.Complete()
		w.app.setStatus("Plan complete")
	}
}

func (w *workbenchView) startDemo() tea.Cmd {
	w.cancelAll()
	w.session().BeginDemo()
	w.session().DemoGreeting()
	return w.demo.start()
}

// send posts a chat message and schedules the canned reply.
func (w *workbenchView) send(text string) tea.Cmd {
	if _, ok := w.session().Send(text); !ok {
		return nil
	}
	w.pendingAck = text
	return w.chatReply.start()
}

func (w *workbenchView) update(msg tea.Msg) tea.Cmd {
	switch m := msg.(type) {
	case tickMsg:
		return w.handleTick(m)
	case tea.KeyMsg:
		if w.focus != focusNone {
			return w.handleInputKey(m)
		}
		return w.handleKeyMsg(m)
	}
	if w.focus != focusNone {
		var cmd tea.Cmd
		w.input, cmd = w.input.Update(msg)
		return cmd
	}
	return nil
}

func (w *workbenchView) handleTick(m tickMsg) tea.Cmd {
	if evt, cmd, ok := w.clone.advance(m); ok {
		return tea.Batch(cmd, w.handleClone(evt))
	}
	if evt, cmd, ok := w.plan.advance(m); ok {
		w.handlePlan(evt)
		return cmd
	}
	switch {
	case w.reply.fired(m):
		w.session().PostIntent()
	case w.analyze.fired(m):
		w.session().PostAnalysis()
		return w.requestPlan()
	case w.planDelay.fired(m):
		return w.generatePlan()
	case w.chatReply.fired(m):
		w.session().Acknowledge(w.pendingAck)
		w.pendingAck = ""
	case w.demo.fired(m):
		w.session().DemoReply()
	}
	return nil
}

func (w *workbenchView) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "i":
		return w.focusInput(focusChat, "Ask the assistant...")
	case ":":
		return w.focusInput(focusTerminal, "npm run test")
	case "g":
		if w.session().Generating() {
			return nil
		}
		w.app.setStatus("Regenerating plan")
		return w.requestPlan()
	}
	return nil
}

func (w *workbenchView) focusInput(f workbenchFocus, placeholder string) tea.Cmd {
	w.focus = f
	w.input.Placeholder = placeholder
	w.input.SetValue("")
	return w.input.Focus()
}

func (w *workbenchView) blur() {
	w.focus = focusNone
	w.input.Blur()
	w.input.SetValue("")
}

func (w *workbenchView) handleInputKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		w.blur()
		return nil
	case "enter":
		value := w.input.Value()
		focus := w.focus
		w.blur()
		if focus == focusTerminal {
			w.session().RunCommand(value)
			return nil
		}
		return w.send(value)
	}
	var cmd tea.Cmd
	w.input, cmd = w.input.Update(msg)
	return cmd
}

func (w *workbenchView) view(width int) string {
	left := max(30, width*3/5)
	right := max(20, width-left-2)
	chat := w.renderChat(left)
	side := lipgloss.JoinVertical(lipgloss.Left, w.renderPlan(right), "", w.renderTerminal(right))
	body := lipgloss.JoinHorizontal(lipgloss.Top, chat, "  ", side)
	if w.focus != focusNone {
		label := "Chat"
		if w.focus == focusTerminal {
			label = "Terminal"
		}
		body = lipgloss.JoinVertical(lipgloss.Left, body, "", titleStyle.Render(label)+" "+w.input.View())
	}
	return body
}

func (w *workbenchView) renderChat(width int) string {
	sc := w.session().Scope()
	lines := []string{titleStyle.Render("Chat") + mutedStyle.Render(" · "+sc.Label())}
	msgs := w.session().Messages()
	if len(msgs) > chatLines {
		msgs = msgs[len(msgs)-chatLines:]
	}
	for _, m := range msgs {
		who := selectedStyle.Render("AI")
		if m.Sender == workbench.SenderUser {
			who = brandStyle.Render("You")
		}
		stamp := ""
		if m.Timestamp != "" {
			stamp = mutedStyle.Render(" " + m.Timestamp)
		}
		lines = append(lines, fmt.Sprintf("%s%s  %s", who, stamp, m.Content))
	}
	if w.session().Generating() {
		lines = append(lines, dimStyle.Render("… generating plan"))
	}
	return lipgloss.NewStyle().Width(width).Render(strings.Join(lines, "\n"))
}

func (w *workbenchView) renderPlan(width int) string {
	model := w.session().PlanModel()
	done, total := model.Progress()
	lines := []string{titleStyle.Render(fmt.Sprintf("Plan %d/%d", done, total))}
	for _, step := range model.Snapshot() {
		lines = append(lines, fmt.Sprintf("%s %s", statusIcon(string(step.Status)), step.Title))
	}
	if total == 0 {
		lines = append(lines, mutedStyle.Render("no plan yet"))
	}
	return lipgloss.NewStyle().Width(width).Render(strings.Join(lines, "\n"))
}

func (w *workbenchView) renderTerminal(width int) string {
	term := w.session().Terminal()
	if len(term) > terminalLines {
		term = term[len(term)-terminalLines:]
	}
	lines := []string{titleStyle.Render("Terminal")}
	for _, line := range term {
		lines = append(lines, dimStyle.Render(line))
	}
	return lipgloss.NewStyle().Width(width).Render(strings.Join(lines, "\n"))
}
