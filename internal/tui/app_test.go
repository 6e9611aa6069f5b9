package tui

import (
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/workbench/internal/catalog"
	"github.com/kingrea/workbench/internal/config"
	"github.com/kingrea/workbench/internal/deploy"
	"github.com/kingrea/workbench/internal/onboarding"
	"github.com/kingrea/workbench/internal/plan"
	"github.com/kingrea/workbench/internal/scope"
	"github.com/kingrea/workbench/internal/seed"
	"github.com/kingrea/workbench/internal/shell"
	"github.com/kingrea/workbench/internal/testlab"
	"github.com/kingrea/workbench/internal/workbench"
)

func fastTimings() Timings {
	ms := time.Millisecond
	return Timings{
		Workbench: workbench.Timings{
			CloneTick:   ms,
			ReplyDelay:  ms,
			AnalyzeWait: 2 * ms,
			PlanDelay:   ms,
			PlanTick:    ms,
		},
		DeployTick:      ms,
		TestTick:        ms,
		WorkflowTick:    ms,
		ApplyDelay:      ms,
		ImportDelay:     ms,
		InstallDelay:    ms,
		ConnectionDelay: ms,
	}
}

func gitLaunch(intent string) onboarding.Launch {
	return onboarding.Launch{
		Provider:      "anthropic",
		Source:        onboarding.GitSource{RepoURL: "https://github.com/acme/shop.git"},
		IterationName: "MVP v1.0",
		Intent:        intent,
	}
}

func TestLaunchPlaysCloneThenPlan(t *testing.T) {
	app, _ := newTestApp(t)
	l := gitLaunch("Add login")
	app = runCommands(t, app, app.launch(l))

	if app.current != shell.TabWorkbench {
		t.Fatalf("expected workbench, got %s", app.current)
	}
	if got, want := strings.Join(app.session.Terminal(), "\n"), strings.Join(workbench.CloneScript(l), "\n"); got != want {
		t.Fatalf("terminal mismatch:\n%s\nwant:\n%s", got, want)
	}
	sc := app.shell.Scope()
	if sc.Project() != "shop" || sc.Name() != "MVP v1.0" {
		t.Fatalf("unexpected mounted scope %s", sc.Label())
	}
	msgs := app.session.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected intent and analysis, got %d messages", len(msgs))
	}
	if msgs[0].Sender != workbench.SenderUser || msgs[0].Content != "Add login" {
		t.Fatalf("unexpected first message %+v", msgs[0])
	}
	if msgs[1].Sender != workbench.SenderAI || !strings.Contains(msgs[1].Content, "**shop**") {
		t.Fatalf("unexpected analysis %+v", msgs[1])
	}
	steps := app.session.Plan()
	if len(steps) != 4 {
		t.Fatalf("expected 4 plan steps, got %d", len(steps))
	}
	for _, step := range steps {
		if step.Status != plan.StatusCompleted {
			t.Fatalf("step %s left %s", step.ID, step.Status)
		}
	}
	if app.session.Generating() {
		t.Fatalf("generation flag must clear once the plan exists")
	}
	if view := app.View(); !strings.Contains(view, "Plan 4/4") {
		t.Fatalf("plan panel missing from view")
	}
}

func TestLaunchWithoutIntentSkipsChat(t *testing.T) {
	app, _ := newTestApp(t)
	app = runCommands(t, app, app.launch(gitLaunch("")))
	if n := len(app.session.Messages()); n != 0 {
		t.Fatalf("expected no chat messages, got %d", n)
	}
	if !app.session.PlanModel().Done() {
		t.Fatalf("plan should still be generated and completed")
	}
}

func TestLeavingWorkbenchCancelsLaunch(t *testing.T) {
	app, _ := newTestApp(t)
	cmd := app.launch(gitLaunch("Add login"))
	app.goTo(shell.TabDeploy, nil)
	app = runCommands(t, app, cmd)

	if n := len(app.session.Terminal()); n != 1 {
		t.Fatalf("expected only the first clone line, got %d", n)
	}
	if got := app.shell.Scope().Project(); got == "shop" {
		t.Fatalf("cancelled launch must not mount its scope")
	}
}

func TestApplyScopeOpensWorkbench(t *testing.T) {
	app, _ := newTestApp(t)
	app.goTo(shell.TabContext, nil)
	ctx := app.views[shell.TabContext].(*contextView)
	row, ok := ctx.selectedRow()
	if !ok {
		t.Fatalf("seed should provide iterations")
	}
	app = runCommands(t, app, ctx.applySelected())

	if app.current != shell.TabWorkbench {
		t.Fatalf("expected workbench, got %s", app.current)
	}
	sc := app.shell.Scope()
	if sc.Project() != row.project || sc.Name() != row.iteration {
		t.Fatalf("scope %s does not match %s / %s", sc.Label(), row.project, row.iteration)
	}
	if want := len(app.catalog.IterationResources(row.project, row.iteration)); sc.Len() != want {
		t.Fatalf("expected %d items, got %d", want, sc.Len())
	}
	if !app.session.Scope().Equal(sc) {
		t.Fatalf("session scope must match the shell scope")
	}
	msgs := app.session.Messages()
	if last := msgs[len(msgs)-1]; !strings.HasPrefix(last.Content, "Context switched to") {
		t.Fatalf("unexpected announcement %q", last.Content)
	}
	if _, pending := app.shell.Peek(shell.TabWorkbench); pending {
		t.Fatalf("scope payload must be consumed")
	}
}

func TestImportValidatesThenSyncs(t *testing.T) {
	app, _ := newTestApp(t)
	app.goTo(shell.TabContext, nil)
	ctx := app.views[shell.TabContext].(*contextView)
	row, _ := ctx.selectedRow()

	if cmd := ctx.submitImport(catalog.ImportForm{Kind: scope.KindDoc, Project: row.project, Iteration: row.iteration}); cmd != nil {
		t.Fatalf("incomplete import must not start syncing")
	}
	if app.statusMsg != catalog.MissingFieldsMessage {
		t.Fatalf("unexpected status %q", app.statusMsg)
	}

	before := len(app.catalog.IterationResources(row.project, row.iteration))
	form := catalog.ImportForm{Kind: scope.KindAPI, Name: "Orders API", URL: "https://api.example.com/v2", Project: row.project, Iteration: row.iteration}
	app = runCommands(t, app, ctx.submitImport(form))

	resources := app.catalog.IterationResources(row.project, row.iteration)
	if len(resources) != before+1 {
		t.Fatalf("expected one more resource, got %d", len(resources)-before)
	}
	added := resources[len(resources)-1]
	if added.Title != "Orders API" || added.BaseURL != "https://api.example.com/v2" || added.Source != "Swagger" {
		t.Fatalf("unexpected resource %+v", added)
	}
	if !strings.HasPrefix(app.statusMsg, "Successfully connected Orders API") {
		t.Fatalf("unexpected status %q", app.statusMsg)
	}
}

func TestDeployRetriggerSupersedesBuild(t *testing.T) {
	app, _ := newTestApp(t)
	app.goTo(shell.TabDeploy, nil)
	v := app.views[shell.TabDeploy].(*deployView)
	first := v.trigger(deploy.Production)
	second := v.trigger(deploy.Staging)
	app = runCommands(t, app, tea.Batch(first, second))

	deployments := app.center.Deployments()
	if len(deployments) != 4 {
		t.Fatalf("expected two new deployments on top of the seed, got %d", len(deployments))
	}
	if d := deployments[0]; d.Environment != deploy.Staging || d.Status != deploy.StatusSuccess || d.Duration != deploy.FinishedDuration {
		t.Fatalf("unexpected latest deployment %+v", d)
	}
	if d := deployments[1]; d.Environment != deploy.Production || d.Status != deploy.StatusFailed {
		t.Fatalf("superseded deployment should be failed, got %+v", d)
	}
	if got, want := strings.Join(app.center.Logs(), "\n"), strings.Join(app.center.BuildLog(), "\n"); got != want {
		t.Fatalf("log must match the build log exactly once")
	}
}

func TestLeavingDeployAbortsBuild(t *testing.T) {
	app, _ := newTestApp(t)
	app.goTo(shell.TabDeploy, nil)
	v := app.views[shell.TabDeploy].(*deployView)
	cmd := v.trigger(deploy.Production)
	app.goTo(shell.TabDashboard, nil)
	app = runCommands(t, app, cmd)

	if app.center.Building() {
		t.Fatalf("no build may remain in flight")
	}
	if d := app.center.Deployments()[0]; d.Status != deploy.StatusFailed {
		t.Fatalf("interrupted build should be failed, got %s", d.Status)
	}
}

func TestReplayRevealsRecordedStatuses(t *testing.T) {
	app, _ := newTestApp(t)
	app.goTo(shell.TabTest, nil)
	v := app.views[shell.TabTest].(*testlabView)
	app = runCommands(t, app, v.replayScenario("sc_2"))

	sc, ok := app.lab.Scenario("sc_2")
	if !ok {
		t.Fatalf("seed scenario sc_2 missing")
	}
	if sc.Status != testlab.StatusFailed {
		t.Fatalf("expected failed scenario, got %s", sc.Status)
	}
	if got, want := len(app.lab.Revealed()), len(sc.Steps()); got != want {
		t.Fatalf("expected %d revealed steps, got %d", want, got)
	}
	if app.lab.Running() != "" {
		t.Fatalf("replay should be finished")
	}
}

func TestInstallAssets(t *testing.T) {
	app, _ := newTestApp(t)
	app.goTo(shell.TabAssets, nil)
	v := app.views[shell.TabAssets].(*assetsView)

	selectAsset(t, v, "w2")
	app = runCommands(t, app, v.installSelected())
	if app.current != shell.TabWorkflow {
		t.Fatalf("workflow asset should open the studio, got %s", app.current)
	}
	if def, _ := app.studio.Selected(); def.ID != "w2" {
		t.Fatalf("expected w2 selected, got %s", def.ID)
	}

	app.goTo(shell.TabAssets, nil)
	selectAsset(t, v, "1")
	app = runCommands(t, app, v.installSelected())
	if !app.library.Installed("1") {
		t.Fatalf("asset 1 should be installed")
	}
	if !strings.HasPrefix(app.statusMsg, "Successfully installed") {
		t.Fatalf("unexpected status %q", app.statusMsg)
	}
}

func TestWorkflowRunCompletesInOrder(t *testing.T) {
	app, _ := newTestApp(t)
	app.goTo(shell.TabWorkflow, nil)
	v := app.views[shell.TabWorkflow].(*workflowView)
	app = runCommands(t, app, v.startRun())

	if app.studio.Running() {
		t.Fatalf("run should be finished")
	}
	for _, step := range app.studio.Steps() {
		if step.Status != plan.StatusCompleted {
			t.Fatalf("node %s left %s", step.ID, step.Status)
		}
	}
	for _, node := range app.studio.Order() {
		if _, ok := app.studio.Result(node.ID); !ok {
			t.Fatalf("node %s has no result", node.ID)
		}
	}
}

func TestOnboardingCompletionLaunches(t *testing.T) {
	app, projectDir := newTestApp(t)
	d := app.views[shell.TabDashboard].(*dashboardView)
	f := newOnboardingForm(d.wizard)
	f.provider = "ollama"
	f.projectType = string(onboarding.ProjectGit)
	f.repoURL = "https://github.com/acme/shop.git"
	f.iteration = "Sprint 1"
	f.chips = []string{"Generate Tests"}

	app = runCommands(t, app, d.completeOnboarding(f))

	if d.wizard.Connection != onboarding.ConnectionVerified {
		t.Fatalf("expected verified connection, got %s", d.wizard.Connection)
	}
	if app.current != shell.TabWorkbench {
		t.Fatalf("expected workbench, got %s", app.current)
	}
	l, ok := app.session.Launch()
	if !ok || l.IterationName != "Sprint 1" || !strings.HasPrefix(l.Intent, "Generate Tests:") {
		t.Fatalf("unexpected launch %+v", l)
	}
	cfg, err := config.NewConfig(projectDir)
	if err != nil {
		t.Fatalf("reload config: %v", err)
	}
	if got := cfg.Provider().ID; got != "ollama" {
		t.Fatalf("expected provider persisted, got %s", got)
	}
}

func TestOnboardingRequiresKey(t *testing.T) {
	app, _ := newTestApp(t)
	d := app.views[shell.TabDashboard].(*dashboardView)
	f := newOnboardingForm(d.wizard)
	f.provider = "anthropic"
	f.apiKey = ""

	if cmd := d.completeOnboarding(f); cmd != nil {
		t.Fatalf("missing key must not start the connection test")
	}
	if d.wizard.Connection != onboarding.ConnectionFailed {
		t.Fatalf("expected failed connection, got %s", d.wizard.Connection)
	}
	if !strings.Contains(app.statusMsg, "api key") {
		t.Fatalf("unexpected status %q", app.statusMsg)
	}
	if app.current != shell.TabDashboard {
		t.Fatalf("expected to stay on the dashboard")
	}
}

func TestDemoIntentPlaysGreeting(t *testing.T) {
	app, _ := newTestApp(t)
	app = runCommands(t, app, app.goTo(shell.TabWorkbench, shell.IntentPayload{Intent: shell.DemoIntent}))
	msgs := app.session.Messages()
	if len(msgs) != 2 || msgs[0].Content != "Hello" || msgs[1].Sender != workbench.SenderAI {
		t.Fatalf("unexpected demo exchange %+v", msgs)
	}
}

func TestChatSendIsAcknowledged(t *testing.T) {
	app, _ := newTestApp(t)
	app.goTo(shell.TabWorkbench, nil)
	w := app.views[shell.TabWorkbench].(*workbenchView)
	before := len(app.session.Messages())
	app = runCommands(t, app, w.send("refactor the table"))
	msgs := app.session.Messages()
	if len(msgs) != before+2 {
		t.Fatalf("expected message and reply, got %d new", len(msgs)-before)
	}
	if last := msgs[len(msgs)-1]; last.Sender != workbench.SenderAI || !strings.Contains(last.Content, "refactor the table") {
		t.Fatalf("unexpected reply %+v", last)
	}
}

func TestNavigateMsgRoutesPayloads(t *testing.T) {
	app, _ := newTestApp(t)
	app = runCommands(t, app, updateCmd(t, app, NavigateMsg{Tab: shell.TabWorkflow, Payload: shell.WorkflowPayload{WorkflowID: "w2"}}))
	if app.current != shell.TabWorkflow {
		t.Fatalf("expected workflow studio, got %s", app.current)
	}
	if def, _ := app.studio.Selected(); def.ID != "w2" {
		t.Fatalf("expected w2, got %s", def.ID)
	}

	sc := scope.Restore("scope-bridge", "enterprise-admin", "V2.0", []scope.Item{{Kind: scope.KindDoc, Title: "Bridge PRD"}})
	app = runCommands(t, app, updateCmd(t, app, NavigateMsg{Tab: shell.TabWorkbench, Payload: shell.ScopePayload{Scope: sc}}))
	if app.current != shell.TabWorkbench || !app.shell.Scope().Equal(sc) {
		t.Fatalf("scope payload should open the workbench with the scope applied")
	}
	if !app.session.Scope().Equal(sc) {
		t.Fatalf("session did not consume the scope payload")
	}
}

func TestKeysSwitchTabsAndQuit(t *testing.T) {
	app, _ := newTestApp(t)
	updateCmd(t, app, tea.KeyMsg{Type: tea.KeyTab})
	if app.current != shell.TabContext {
		t.Fatalf("tab should move to context, got %s", app.current)
	}
	updateCmd(t, app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("7")})
	if app.current != shell.TabDeploy {
		t.Fatalf("7 should open deploy, got %s", app.current)
	}
	updateCmd(t, app, tea.KeyMsg{Type: tea.KeyShiftTab})
	if app.current != shell.TabTest {
		t.Fatalf("shift+tab should move back to test, got %s", app.current)
	}
	cmd := updateCmd(t, app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatalf("q should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected quit message")
	}
}

func TestCapturingViewKeepsKeys(t *testing.T) {
	app, _ := newTestApp(t)
	app.goTo(shell.TabAssets, nil)
	v := app.views[shell.TabAssets].(*assetsView)
	updateCmd(t, app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})
	if !v.searching {
		t.Fatalf("slash should focus the search box")
	}
	updateCmd(t, app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if app.quitting {
		t.Fatalf("typing q into the search box must not quit")
	}
	if v.search.Value() != "q" {
		t.Fatalf("expected search text q, got %q", v.search.Value())
	}
}

func TestSeedReloadAndReset(t *testing.T) {
	app, _ := newTestApp(t)
	s := seed.MustDefault()
	s.Deployments = nil
	updateCmd(t, app, SeedReloadedMsg{Seed: s})
	if n := len(app.center.Deployments()); n != 0 {
		t.Fatalf("expected reloaded seed without deployments, got %d", n)
	}
	app.resetSeed()
	if n := len(app.center.Deployments()); n != 2 {
		t.Fatalf("reset should restore the seeded deployments, got %d", n)
	}
}

func TestSeedReloadDropsTicksFromReplacedViews(t *testing.T) {
	app, _ := newTestApp(t)
	app.goTo(shell.TabDeploy, nil)
	old := app.views[shell.TabDeploy].(*deployView)
	stale := old.trigger(deploy.Staging)()

	updateCmd(t, app, SeedReloadedMsg{Seed: seed.MustDefault()})
	v := app.views[shell.TabDeploy].(*deployView)
	if v == old {
		t.Fatalf("reload should rebuild the deploy view")
	}
	v.trigger(deploy.Staging)
	before := v.stream.stepper.Cursor()

	if cmd := updateCmd(t, app, stale); cmd != nil {
		t.Fatalf("stale tick must not schedule another tick")
	}
	if got := v.stream.stepper.Cursor(); got != before {
		t.Fatalf("stale tick advanced the new run: cursor %d -> %d", before, got)
	}
	if n := len(app.center.Logs()); n != 1 {
		t.Fatalf("expected only the first log line of the new build, got %d", n)
	}
}

func TestLogPanelFollowsLogbook(t *testing.T) {
	app, _ := newTestApp(t)
	for i := 0; i < logPanelLines+2; i++ {
		app.logInfo("Entry %d", i)
	}
	fileLines, fileTotal := app.logbook.Tail(logPanelLines)
	if app.journalTotal != fileTotal {
		t.Fatalf("panel counts %d entries, file has %d", app.journalTotal, fileTotal)
	}
	if strings.Join(app.journal, "\n") != strings.Join(fileLines, "\n") {
		t.Fatalf("panel lines diverged from the logbook:\n%v\nwant:\n%v", app.journal, fileLines)
	}
	if !strings.Contains(app.View(), fmt.Sprintf("Entry %d", logPanelLines+1)) {
		t.Fatalf("latest entry missing from the log panel")
	}
}

func TestTimingsFromConfig(t *testing.T) {
	got := TimingsFromConfig(config.Intervals{CloneTick: 10 * time.Millisecond, DeployTick: 5 * time.Millisecond})
	if got.Workbench.CloneTick != 10*time.Millisecond || got.DeployTick != 5*time.Millisecond {
		t.Fatalf("configured intervals not applied: %+v", got)
	}
	if got.Workbench.PlanTick != DefaultTimings().Workbench.PlanTick {
		t.Fatalf("unset intervals should keep defaults")
	}
}

func newTestApp(t *testing.T) (*App, string) {
	t.Helper()
	projectDir := t.TempDir()
	if err := config.InitWorkbenchDir(projectDir); err != nil {
		t.Fatalf("init workbench dir: %v", err)
	}
	cfg, err := config.NewConfig(projectDir)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	store, err := seed.NewStore(seed.MustDefault())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	app, err := NewApp(cfg, store, WithTimings(fastTimings()))
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return app, projectDir
}

func selectAsset(t *testing.T, v *assetsView, id string) {
	t.Helper()
	for i, a := range v.visible() {
		if a.ID == id {
			v.selection = i
			return
		}
	}
	t.Fatalf("asset %s not visible", id)
}

func updateCmd(t *testing.T, app *App, msg tea.Msg) tea.Cmd {
	t.Helper()
	model, cmd := app.Update(msg)
	if model != app {
		t.Fatalf("unexpected model %T", model)
	}
	return cmd
}

// runCommands pumps cmd and every command it produces through Update until
// the chain settles. Batches are expanded in order.
func runCommands(t *testing.T, model tea.Model, cmd tea.Cmd) *App {
	t.Helper()
	app, ok := model.(*App)
	if !ok {
		t.Fatalf("unexpected model type: %T", model)
	}
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 10000 {
			t.Fatalf("command chain did not settle")
		}
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		switch msg := next().(type) {
		case nil:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		default:
			nextModel, nextCmd := app.Update(msg)
			app, ok = nextModel.(*App)
			if !ok {
				t.Fatalf("unexpected model type: %T", nextModel)
			}
			queue = append(queue, nextCmd)
		}
	}
	return app
}
