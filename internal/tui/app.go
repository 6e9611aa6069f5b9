// internal/tui/app.go
//
// This is the main TUI (Terminal User Interface) for the workbench.
// It uses bubbletea, which follows The Elm Architecture:
//
// 1. Model: Your application state
// 2. Update: A function that updates state based on messages
// 3. View: A function that renders state to a string
//
// Every tab is a view owned by the App. Leaving a tab tears its view down,
// which cancels the sequences it started.

package tui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/kingrea/workbench/internal/assets"
	"github.com/kingrea/workbench/internal/catalog"
	"github.com/kingrea/workbench/internal/config"
	"github.com/kingrea/workbench/internal/deploy"
	"github.com/kingrea/workbench/internal/logbook"
	"github.com/kingrea/workbench/internal/onboarding"
	"github.com/kingrea/workbench/internal/scope"
	"github.com/kingrea/workbench/internal/seed"
	"github.com/kingrea/workbench/internal/shell"
	"github.com/kingrea/workbench/internal/testlab"
	"github.com/kingrea/workbench/internal/workbench"
	"github.com/kingrea/workbench/internal/workflow"
)

// JourneyLogName is the logbook file under the logs directory.
const JourneyLogName = "journey.log"

const logPanelLines = 8

// NavigateMsg asks the App to switch tabs, optionally handing the
// destination a payload. The event bridge delivers its commands this way.
type NavigateMsg struct {
	Tab     shell.Tab
	Payload shell.Payload
}

// SeedReloadedMsg replaces the seed backing every view.
type SeedReloadedMsg struct {
	Seed seed.Seed
}

// view is one tab of the shell.
type view interface {
	// activate runs when the tab opens. p is the pending payload, if any.
	activate(p shell.Payload) tea.Cmd
	// deactivate runs when the tab closes and cancels owned sequences.
	deactivate()
	update(msg tea.Msg) tea.Cmd
	view(width int) string
	// capturing reports whether keystrokes belong to an input or form.
	capturing() bool
	help() string
}

// Timings pace every animated sequence of the TUI.
type Timings struct {
	Workbench       workbench.Timings
	DeployTick      time.Duration
	TestTick        time.Duration
	WorkflowTick    time.Duration
	ApplyDelay      time.Duration
	ImportDelay     time.Duration
	InstallDelay    time.Duration
	ConnectionDelay time.Duration
}

// DefaultTimings is the interactive pacing.
func DefaultTimings() Timings {
	return Timings{
		Workbench:       workbench.DefaultTimings(),
		DeployTick:      150 * time.Millisecond,
		TestTick:        400 * time.Millisecond,
		WorkflowTick:    2600 * time.Millisecond,
		ApplyDelay:      800 * time.Millisecond,
		ImportDelay:     1500 * time.Millisecond,
		InstallDelay:    time.Second,
		ConnectionDelay: time.Second,
	}
}

// TimingsFromConfig overlays the configured intervals on the defaults.
func TimingsFromConfig(iv config.Intervals) Timings {
	t := DefaultTimings()
	setDuration(&t.Workbench.CloneTick, iv.CloneTick)
	setDuration(&t.Workbench.ReplyDelay, iv.ReplyDelay)
	setDuration(&t.Workbench.PlanTick, iv.PlanTick)
	setDuration(&t.DeployTick, iv.DeployTick)
	setDuration(&t.TestTick, iv.TestTick)
	return t
}

func setDuration(field *time.Duration, value time.Duration) {
	if value > 0 {
		*field = value
	}
}

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithTimings overrides the sequence pacing.
func WithTimings(t Timings) AppOption {
	return func(a *App) { a.timings = t }
}

// WithLogger attaches the diagnostic logger.
func WithLogger(log *zap.Logger) AppOption {
	return func(a *App) {
		if log != nil {
			a.logger = log
		}
	}
}

// WithClock overrides the time source used for ids and timestamps.
func WithClock(now func() time.Time) AppOption {
	return func(a *App) {
		if now != nil {
			a.now = now
		}
	}
}

// WithShell shares a shell with other components such as the event bridge.
func WithShell(sh *shell.Shell) AppOption {
	return func(a *App) {
		if sh != nil {
			a.shell = sh
		}
	}
}

// App is the main application model. In bubbletea, this holds ALL your state.
type App struct {
	config  *config.Config
	store   *seed.Store
	shell   *shell.Shell
	logbook *logbook.Logbook
	logger  *zap.Logger
	timings Timings

	// journal mirrors the last logPanelLines logbook entries; journalTotal
	// counts every entry in the file.
	journal      []string
	journalTotal int

	now     func() time.Time

	catalog   *catalog.Catalog
	session   *workbench.Session
	center    *deploy.Center
	lab       *testlab.Lab
	library   *assets.Library
	studio    *workflow.Studio
	dashboard seed.Dashboard
	providers []onboarding.Provider

	views   map[shell.Tab]view
	current shell.Tab

	statusMsg     string
	lastLogStatus string
	quitting      bool

	width  int
	height int
}

// NewApp creates a new App instance backed by the seed in store.
func NewApp(cfg *config.Config, store *seed.Store, opts ...AppOption) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("tui: config is required")
	}
	if store == nil {
		s, err := seed.Load(cfg.SeedPath())
		if err != nil {
			return nil, fmt.Errorf("tui: %w", err)
		}
		if store, err = seed.NewStore(s); err != nil {
			return nil, fmt.Errorf("tui: %w", err)
		}
	}
	current, err := store.Current()
	if err != nil {
		return nil, fmt.Errorf("tui: %w", err)
	}
	app := &App{
		config:  cfg,
		store:   store,
		logger:  zap.NewNop(),
		timings: TimingsFromConfig(cfg.Intervals()),
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	if app.shell == nil {
		app.shell = shell.New(cfg.DefaultTab())
	}
	lb, err := logbook.New(filepath.Join(cfg.LogsDir(), JourneyLogName),
		logbook.WithClock(app.now),
		logbook.WithListener(app.recordJourney),
	)
	if err != nil {
		app.logger.Warn("journey log unavailable", zap.Error(err))
	} else {
		app.logbook = lb
		app.journal, app.journalTotal = lb.Tail(logPanelLines)
	}
	app.loadSeed(current)
	app.current = app.shell.ActiveTab()
	app.logInfo("Session opened · %s", app.current.Label())
	return app, nil
}

// Shell exposes the navigation state, e.g. to the event bridge.
func (a *App) Shell() *shell.Shell { return a.shell }

// loadSeed rebuilds every domain model and view from s.
func (a *App) loadSeed(s seed.Seed) {
	a.catalog = catalog.New(s.Resources, catalog.WithClock(a.now))
	a.session = workbench.NewSession(s.Workbench.Fixture(), workbench.WithClock(a.now))
	if sc := a.session.Scope(); !sc.IsZero() && a.shell.Scope().IsZero() {
		a.shell.MountScope(sc)
	}
	a.center = deploy.NewCenter(s.Deployments, s.BuildLog)
	a.lab = testlab.New(s.Features)
	a.library = assets.NewLibrary(s.Assets)
	a.studio = workflow.NewStudio(a.workflowDefinitions(s.Workflows))
	a.dashboard = s.Dashboard
	a.providers = append([]onboarding.Provider(nil), s.Providers...)
	a.views = map[shell.Tab]view{
		shell.TabDashboard: newDashboardView(a),
		shell.TabContext:   newContextView(a),
		shell.TabAssets:    newAssetsView(a),
		shell.TabWorkbench: newWorkbenchView(a),
		shell.TabWorkflow:  newWorkflowView(a),
		shell.TabTest:      newTestlabView(a),
		shell.TabDeploy:    newDeployView(a),
		shell.TabSettings:  newSettingsView(a),
	}
}

// workflowDefinitions appends definitions found in the project's workflows
// directory to the seeded ones. Seeded ids win.
func (a *App) workflowDefinitions(seeded []workflow.Definition) []workflow.Definition {
	defs := append([]workflow.Definition(nil), seeded...)
	extra, err := workflow.LoadDefinitionDir(a.config.WorkflowsDir())
	if err != nil {
		a.logWarn("Workflow definitions unavailable: %v", err)
		return defs
	}
	seen := map[string]struct{}{}
	for _, def := range defs {
		seen[def.ID] = struct{}{}
	}
	for _, def := range extra {
		if _, ok := seen[def.ID]; ok {
			continue
		}
		seen[def.ID] = struct{}{}
		defs = append(defs, def)
	}
	return defs
}

func (a *App) logInfo(format string, args ...any) {
	a.logger.Debug(fmt.Sprintf(format, args...))
	if a.logbook == nil {
		return
	}
	a.logbook.Info(format, args...)
}

func (a *App) logWarn(format string, args ...any) {
	a.logger.Warn(fmt.Sprintf(format, args...))
	if a.logbook == nil {
		return
	}
	a.logbook.Warn(format, args...)
}

func (a *App) logError(format string, args ...any) {
	a.logger.Error(fmt.Sprintf(format, args...))
	if a.logbook == nil {
		return
	}
	a.logbook.Error(format, args...)
}

// logProgress records status once per change.
func (a *App) logProgress(status string) {
	status = strings.TrimSpace(status)
	if status == "" || status == a.lastLogStatus {
		return
	}
	a.lastLogStatus = status
	a.logInfo("%s", status)
}

// setStatus updates the footer and the journey log.
func (a *App) setStatus(format string, args ...any) {
	a.statusMsg = fmt.Sprintf(format, args...)
	a.logProgress(a.statusMsg)
}

func (a *App) activeView() view {
	return a.views[a.current]
}

// open tears down the current view if the tab changed and activates the
// shell's active tab with its pending payload.
func (a *App) open() tea.Cmd {
	target := a.shell.ActiveTab()
	if target != a.current {
		if v := a.activeView(); v != nil {
			v.deactivate()
		}
		a.current = target
	}
	payload, _ := a.shell.Consume(target)
	v := a.activeView()
	if v == nil {
		return nil
	}
	return v.activate(payload)
}

// goTo navigates to tab, handing it payload.
func (a *App) goTo(tab shell.Tab, payload shell.Payload) tea.Cmd {
	if err := a.shell.Navigate(tab, payload); err != nil {
		a.setStatus("Navigation failed: %v", err)
		return nil
	}
	return a.open()
}

// applyScope replaces the active scope and opens the workbench with it.
func (a *App) applyScope(sc scope.Scope) tea.Cmd {
	a.shell.ApplyScope(sc)
	a.logInfo("Scope applied · %s (%d items)", sc.Label(), sc.Len())
	return a.open()
}

// launch opens the workbench with the onboarding result.
func (a *App) launch(l onboarding.Launch) tea.Cmd {
	if err := a.shell.Launch(l); err != nil {
		a.setStatus("Launch rejected: %v", err)
		return nil
	}
	a.logInfo("Launch · %s via %s", onboarding.RepoName(l), l.Provider)
	return a.open()
}

func (a *App) handleNavigate(msg NavigateMsg) tea.Cmd {
	switch p := msg.Payload.(type) {
	case shell.ScopePayload:
		return a.applyScope(p.Scope)
	case shell.LaunchPayload:
		return a.launch(p.Launch)
	default:
		return a.goTo(msg.Tab, msg.Payload)
	}
}

func (a *App) handleSeedReloaded(s seed.Seed) tea.Cmd {
	if v := a.activeView(); v != nil {
		v.deactivate()
	}
	a.loadSeed(s)
	a.setStatus("Seed reloaded")
	return a.activeView().activate(nil)
}

// resetSeed restores the seed the store was initialized with.
func (a *App) resetSeed() tea.Cmd {
	a.store.Reset()
	s, err := a.store.Current()
	if err != nil {
		a.logError("Seed reset failed: %v", err)
		return nil
	}
	return a.handleSeedReloaded(s)
}

func (a *App) quit() tea.Cmd {
	if v := a.activeView(); v != nil {
		v.deactivate()
	}
	a.quitting = true
	a.logInfo("Session closed")
	return tea.Quit
}

func (a *App) cycleTab(delta int) tea.Cmd {
	tabs := shell.Tabs()
	idx := (a.current.Index() + delta + len(tabs)) % len(tabs)
	return a.goTo(tabs[idx], nil)
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	return a.activeView().activate(nil)
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, a.activeView().update(msg)

	case NavigateMsg:
		return a, a.handleNavigate(msg)

	case SeedReloadedMsg:
		return a, a.handleSeedReloaded(msg.Seed)

	case tea.KeyMsg:
		key := msg.String()
		if key == "ctrl+c" {
			return a, a.quit()
		}
		if a.activeView().capturing() {
			return a, a.activeView().update(msg)
		}
		switch key {
		case "q":
			return a, a.quit()
		case "tab":
			return a, a.cycleTab(1)
		case "shift+tab":
			return a, a.cycleTab(-1)
		}
		if len(key) == 1 && key[0] >= '1' && key[0] <= '8' {
			return a, a.goTo(shell.Tabs()[key[0]-'1'], nil)
		}
	}

	return a, a.activeView().update(msg)
}

// View is called to render the UI.
func (a *App) View() string {
	if a.quitting {
		return ""
	}
	width := a.width
	if width <= 0 {
		width = 100
	}
	content := a.activeView().view(max(20, width-4))
	return a.renderStatusBoard(content, width)
}

func (a *App) renderTabBar() string {
	var parts []string
	for i, tab := range shell.Tabs() {
		label := fmt.Sprintf("%d %s", i+1, tab.Label())
		if tab == a.current {
			parts = append(parts, activeTabStyle.Render(label))
			continue
		}
		parts = append(parts, tabStyle.Render(label))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

// recordJourney keeps the log panel in step with the logbook without
// rereading the file on every render.
func (a *App) recordJourney(line string) {
	a.journalTotal++
	a.journal = append(a.journal, line)
	if extra := len(a.journal) - logPanelLines; extra > 0 {
		a.journal = append([]string(nil), a.journal[extra:]...)
	}
}

func (a *App) renderLogPanel() string {
	if a.logbook == nil || len(a.journal) == 0 {
		return ""
	}
	lines, total := a.journal, a.journalTotal
	fileName := filepath.Base(a.logbook.Path())
	if fileName == "." || fileName == "" {
		fileName = "log"
	}
	head := titleStyle.Render(fmt.Sprintf("LOG · %s (%d)", fileName, total))
	body := dimStyle.Render(strings.Join(lines, "\n"))
	return boxStyle.Render(fmt.Sprintf("%s\n%s", head, body))
}

func (a *App) renderStatusBoard(mainContent string, width int) string {
	header := lipgloss.JoinHorizontal(lipgloss.Top,
		brandStyle.Render("⬡ WORKBENCH"),
		"  ",
		mutedStyle.Render(a.shell.Scope().Label()),
	)
	body := boxStyle.Width(max(20, width-2)).Render(mainContent)
	sections := []string{header, a.renderTabBar(), body}
	if logPanel := a.renderLogPanel(); logPanel != "" {
		sections = append(sections, logPanel)
	}
	footer := a.statusMsg
	if help := a.activeView().help(); help != "" {
		if footer != "" {
			footer += " · "
		}
		footer += help
	}
	sections = append(sections, footerStyle.Render(footer))
	return strings.Join(sections, "\n")
}
