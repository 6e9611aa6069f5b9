package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/workbench/internal/deploy"
	"github.com/kingrea/workbench/internal/sequencer"
	"github.com/kingrea/workbench/internal/shell"
)

type deployView struct {
	app    *App
	stream *ticker[string]
	build  string
	logs   viewport.Model
}

func newDeployView(app *App) *deployView {
	return &deployView{
		app:    app,
		stream: newTicker[string](seqDeploy, app.timings.DeployTick),
		logs:   viewport.New(80, 10),
	}
}

func (v *deployView) activate(p shell.Payload) tea.Cmd {
	if p != nil {
		v.app.logWarn("Deploy center ignored %s payload", p.Kind())
	}
	return nil
}

// deactivate stops the log stream. The interrupted build is marked failed.
func (v *deployView) deactivate() {
	if v.stream.active() {
		v.stream.cancel()
		v.app.center.Abort()
		v.app.logWarn("Deployment %s interrupted", v.build)
	}
	v.build = ""
}

func (v *deployView) capturing() bool { return false }

func (v *deployView) help() string { return "p=deploy production  s=deploy staging  ↑/↓=scroll log" }

// trigger starts a build for env. A build already streaming is superseded.
func (v *deployView) trigger(env deploy.Environment) tea.Cmd {
	v.stream.cancel()
	d := v.app.center.Begin(env)
	v.build = d.ID
	v.app.setStatus("Deployment %s to %s started", d.ID, env)
	evt, cmd := v.stream.start(v.app.center.BuildLog())
	v.handleEvent(evt)
	return cmd
}

func (v *deployView) handleEvent(evt sequencer.Event) {
	if evt.Started >= 0 {
		if line, ok := v.stream.step(evt.Started); ok {
			v.app.center.Append(v.build, line)
		}
	}
	if evt.Done {
		if d, ok := v.app.center.Finish(v.build); ok {
			v.app.setStatus("Deployment %s %s in %s", d.ID, d.Status, d.Duration)
		}
		v.build = ""
	}
	v.logs.SetContent(strings.Join(v.app.center.Logs(), "\n"))
	v.logs.GotoBottom()
}

func (v *deployView) update(msg tea.Msg) tea.Cmd {
	switch m := msg.(type) {
	case tickMsg:
		evt, cmd, ok := v.stream.advance(m)
		if !ok {
			return nil
		}
		v.handleEvent(evt)
		return cmd
	case tea.KeyMsg:
		switch m.String() {
		case "p":
			return v.trigger(deploy.Production)
		case "s":
			return v.trigger(deploy.Staging)
		}
	}
	var cmd tea.Cmd
	v.logs, cmd = v.logs.Update(msg)
	return cmd
}

func (v *deployView) historyTable(width int) table.Model {
	columns := []table.Column{
		{Title: "ID", Width: 8},
		{Title: "Status", Width: 9},
		{Title: "Env", Width: 10},
		{Title: "Commit", Width: 8},
		{Title: "Message", Width: max(12, width-68)},
		{Title: "Author", Width: 8},
		{Title: "Time", Width: 10},
	}
	var rows []table.Row
	for _, d := range v.app.center.Deployments() {
		rows = append(rows, table.Row{d.ID, string(d.Status), string(d.Environment), d.Commit, d.Message, d.Author, d.Time})
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithHeight(min(8, len(rows)+1)),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.BorderForeground(colorBorder).BorderBottom(true).Bold(true)
	styles.Selected = lipgloss.NewStyle()
	t.SetStyles(styles)
	return t
}

func (v *deployView) view(width int) string {
	state := "idle"
	if v.app.center.Building() {
		state = "building"
	}
	head := fmt.Sprintf("%s · %s", titleStyle.Render("Deployments"), badge(state))
	v.logs.Width = max(20, width-2)
	logBox := boxStyle.Render(titleStyle.Render("Build log") + "\n" + v.logs.View())
	if len(v.app.center.Logs()) == 0 {
		logBox = boxStyle.Render(titleStyle.Render("Build log") + "\n" + mutedStyle.Render("no build in progress"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, head, v.historyTable(width).View(), "", logBox)
}
