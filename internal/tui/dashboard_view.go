package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/workbench/internal/onboarding"
	"github.com/kingrea/workbench/internal/shell"
)

// dashboardView is mission control: seeded project status plus the
// onboarding entry point.
type dashboardView struct {
	app        *App
	wizard     *onboarding.Wizard
	onboarding *onboardingForm
	connection delay
}

func newDashboardView(app *App) *dashboardView {
	return &dashboardView{
		app:        app,
		wizard:     onboarding.NewWizard(),
		connection: newDelay(seqConnection, app.timings.ConnectionDelay),
	}
}

func (v *dashboardView) activate(p shell.Payload) tea.Cmd {
	if p != nil {
		v.app.logWarn("Dashboard ignored %s payload", p.Kind())
	}
	return nil
}

func (v *dashboardView) deactivate() {
	v.onboarding = nil
	if v.connection.active() {
		v.connection.cancel()
		v.wizard.Connection = onboarding.ConnectionIdle
	}
}

func (v *dashboardView) capturing() bool { return v.onboarding != nil }

func (v *dashboardView) help() string {
	if v.onboarding != nil {
		return "esc=close onboarding"
	}
	return "o=onboarding  d=demo"
}

func (v *dashboardView) openOnboarding() tea.Cmd {
	v.onboarding = newOnboardingForm(v.wizard)
	v.app.logInfo("Onboarding opened")
	return v.onboarding.form.Init()
}

// completeOnboarding applies the answers and starts the connection check.
func (v *dashboardView) completeOnboarding(f *onboardingForm) tea.Cmd {
	v.onboarding = nil
	if err := f.apply(); err != nil {
		v.app.setStatus("Onboarding failed: %v", err)
		return nil
	}
	if err := v.wizard.BeginConnectionTest(); err != nil {
		v.wizard.Connection = onboarding.ConnectionFailed
		v.app.setStatus("Connection test failed: %v", err)
		return nil
	}
	v.app.setStatus("Testing connection to %s...", v.wizard.ActiveProvider().Name)
	return v.connection.start()
}

// finishConnection records the verified provider and launches the project.
func (v *dashboardView) finishConnection() tea.Cmd {
	v.wizard.FinishConnectionTest()
	l, err := v.wizard.Launch()
	if err != nil {
		v.app.setStatus("Launch rejected: %v", err)
		return nil
	}
	if err := v.app.config.SetProvider(v.wizard.Provider, v.wizard.Model, v.wizard.BaseURL); err != nil {
		v.app.logWarn("Provider not saved: %v", err)
	}
	v.app.setStatus("Connected to %s", v.wizard.ActiveProvider().Name)
	return v.app.launch(l)
}

func (v *dashboardView) update(msg tea.Msg) tea.Cmd {
	if m, ok := msg.(tickMsg); ok {
		if v.connection.fired(m) {
			return v.finishConnection()
		}
		return nil
	}
	if v.onboarding != nil {
		return v.updateForm(msg)
	}
	if m, ok := msg.(tea.KeyMsg); ok {
		switch m.String() {
		case "o", "enter":
			return v.openOnboarding()
		case "d":
			return v.app.goTo(shell.TabWorkbench, shell.IntentPayload{Intent: shell.DemoIntent})
		}
	}
	return nil
}

func (v *dashboardView) updateForm(msg tea.Msg) tea.Cmd {
	if m, ok := msg.(tea.KeyMsg); ok && m.String() == "esc" {
		v.onboarding = nil
		return nil
	}
	f := v.onboarding
	model, cmd := f.form.Update(msg)
	if form, ok := model.(*huh.Form); ok {
		f.form = form
		switch form.State {
		case huh.StateCompleted:
			return v.completeOnboarding(f)
		case huh.StateAborted:
			v.onboarding = nil
			return nil
		}
	}
	return cmd
}

func (v *dashboardView) view(width int) string {
	if v.onboarding != nil {
		return lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render("Onboarding"), v.onboarding.form.View())
	}
	half := max(20, width/2-2)
	left := lipgloss.JoinVertical(lipgloss.Left, v.renderContext(half), "", v.renderGit(half))
	right := lipgloss.JoinVertical(lipgloss.Left, v.renderActivity(half), "", v.renderHealth(half))
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right)
	if line := v.renderConnection(); line != "" {
		body = lipgloss.JoinVertical(lipgloss.Left, body, "", line)
	}
	return body
}

func (v *dashboardView) renderConnection() string {
	switch v.wizard.Connection {
	case onboarding.ConnectionTesting:
		return badge("testing") + " " + v.wizard.ActiveProvider().Name
	case onboarding.ConnectionVerified:
		return badge("success") + " " + v.wizard.ActiveProvider().Name + " · " + v.wizard.Model
	case onboarding.ConnectionFailed:
		return badge("error") + " " + v.wizard.ActiveProvider().Name
	}
	return ""
}

func (v *dashboardView) renderContext(width int) string {
	c := v.app.dashboard.Context
	lines := []string{
		titleStyle.Render("Active context"),
		fmt.Sprintf("Project   %s", c.Project),
		fmt.Sprintf("Iteration %s", c.Iteration),
		fmt.Sprintf("Doc       %s", c.Doc),
		fmt.Sprintf("Rules     %d", c.Rules),
		mutedStyle.Render("Scope     " + v.app.shell.Scope().Label()),
	}
	return lipgloss.NewStyle().Width(width).Render(strings.Join(lines, "\n"))
}

func (v *dashboardView) renderGit(width int) string {
	g := v.app.dashboard.Git
	lines := []string{
		titleStyle.Render("Git") + mutedStyle.Render(" · "+g.Branch),
		fmt.Sprintf("%s %s", statusStyles["success"].Render(fmt.Sprintf("+%d", g.Added)), statusStyles["failed"].Render(fmt.Sprintf("-%d", g.Removed))),
	}
	for _, f := range g.Files {
		lines = append(lines, fmt.Sprintf("  %s %s", labelStyleKind.Render(f.Status), f.Name))
	}
	return lipgloss.NewStyle().Width(width).Render(strings.Join(lines, "\n"))
}

func (v *dashboardView) renderActivity(width int) string {
	lines := []string{titleStyle.Render("Agent activity")}
	for _, a := range v.app.dashboard.Activity {
		detail := a.Time
		if a.Status == "running" {
			detail = fmt.Sprintf("%d%%", a.Progress)
		}
		lines = append(lines, fmt.Sprintf("%s %s · %s %s", statusIcon(a.Status), a.Agent, a.Action, mutedStyle.Render(detail)))
	}
	return lipgloss.NewStyle().Width(width).Render(strings.Join(lines, "\n"))
}

func (v *dashboardView) renderHealth(width int) string {
	h := v.app.dashboard.Health
	lines := []string{
		titleStyle.Render("Health"),
		fmt.Sprintf("Tests   %d/%d passed, %d failed", h.TestsPassed, h.TestsTotal, h.TestsFailed),
		fmt.Sprintf("Deploy  %s %s %s", h.DeployEnv, h.DeployVersion, badge(h.DeployStatus)),
		fmt.Sprintf("Uptime  %s", h.Uptime),
		fmt.Sprintf("DB      %s · %d tables", h.DBSize, h.DBTables),
	}
	return lipgloss.NewStyle().Width(width).Render(strings.Join(lines, "\n"))
}
