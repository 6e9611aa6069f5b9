package workbench

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/kingrea/workbench/internal/clock"
	"github.com/kingrea/workbench/internal/onboarding"
	"github.com/kingrea/workbench/internal/plan"
	"github.com/kingrea/workbench/internal/scope"
)

func template() []plan.Step {
	return []plan.Step{
		{ID: "p_new_1", Title: "Analyze Requirements"},
		{ID: "p_new_2", Title: "Scaffold Components"},
		{ID: "p_new_3", Title: "Implement Logic"},
		{ID: "p_new_4", Title: "Verify Changes"},
	}
}

func newSession(clk *clock.Fake) *Session {
	fx := Fixture{
		Scope:        scope.Restore("scope-admin-v1", "enterprise-admin", "V1.0", nil),
		Messages:     []Message{{ID: "1", Sender: SenderUser, Kind: MessageText, Content: "seed"}},
		Plan:         []plan.Step{{ID: "p1", Status: plan.StatusCompleted}, {ID: "p2", Status: plan.StatusRunning}, {ID: "p3"}},
		PlanTemplate: template(),
	}
	return NewSession(fx, WithClock(clk.Now))
}

func gitLaunch(intent string) onboarding.Launch {
	return onboarding.Launch{
		Provider:      "anthropic",
		Source:        onboarding.GitSource{RepoURL: onboarding.DefaultRepoURL},
		IterationName: "MVP v1.0",
		Intent:        intent,
	}
}

func TestNewSessionKeepsSeededStatuses(t *testing.T) {
	s := newSession(clock.NewFake(time.Unix(0, 0)))
	steps := s.Plan()
	assert.Equal(t, plan.StatusCompleted, steps[0].Status)
	assert.Equal(t, plan.StatusRunning, steps[1].Status)
	assert.Equal(t, plan.StatusPending, steps[2].Status)
}

func TestCloneScript(t *testing.T) {
	lines := CloneScript(gitLaunch(""))
	require.Len(t, lines, 10)
	assert.Equal(t, "> git clone "+onboarding.DefaultRepoURL+" .", lines[0])
	assert.Equal(t, "> cd vue-admin-starter", lines[7])
	assert.Equal(t, `> git checkout -b "mvp-v1.0"`, lines[8])
	assert.Equal(t, "Switched to a new branch 'mvp-v1.0'", lines[9])

	tpl := CloneScript(onboarding.Launch{Source: onboarding.TemplateSource{TemplateID: "Next.js Blog"}, IterationName: "v2"})
	assert.Equal(t, "> git clone git@github.com:templates/next.js-blog.git .", tpl[0])
}

func TestApplyScopeAnnouncesSwitch(t *testing.T) {
	s := newSession(clock.NewFake(time.Unix(0, 0)))
	sc := scope.Restore("scope-b", "mobile-app", "Sprint 12", nil)
	msg := s.ApplyScope(sc)
	assert.Equal(t, "Context switched to **mobile-app / Sprint 12**.", msg.Content)
	assert.Equal(t, SenderAI, msg.Sender)
	assert.True(t, s.Scope().Equal(sc))
}

func TestRunnerPlaysLaunchTimeline(t *testing.T) {
	clk := clock.NewFake(time.UnixMilli(1717000000000))
	s := newSession(clk)
	r := NewRunner(s, clk, DefaultTimings())

	var mounted scope.Scope
	var plans [][]plan.Step
	done := 0
	r.Launch(gitLaunch("Add Feature: export"), Hooks{
		OnScope: func(sc scope.Scope) { mounted = sc },
		OnPlan:  func(steps []plan.Step) { plans = append(plans, steps) },
		OnDone:  func() { done++ },
	})
	assert.Empty(t, s.Messages(), "launch clears the chat")
	assert.Empty(t, s.Plan(), "launch clears the plan")
	assert.Len(t, s.Terminal(), 1)

	clk.Advance(3 * time.Second) // ten clone lines at 300ms, then mount
	assert.Len(t, s.Terminal(), 10)
	require.False(t, mounted.IsZero())
	assert.Equal(t, "vue-admin-starter", mounted.Project())
	assert.Equal(t, "MVP v1.0", mounted.Name())
	assert.Equal(t, []scope.Item{{Kind: scope.KindTech, Title: "Repository Context"}}, mounted.Items())

	clk.Advance(500 * time.Millisecond)
	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Add Feature: export", msgs[0].Content)

	clk.Advance(time.Second)
	msgs = s.Messages()
	require.Len(t, msgs, 2)
	assert.True(t, strings.Contains(msgs[1].Content, "**vue-admin-starter**"))
	assert.True(t, s.Generating())

	clk.Advance(1500 * time.Millisecond)
	assert.False(t, s.Generating())
	require.NotEmpty(t, plans)
	steps := s.Plan()
	require.Len(t, steps, 4)
	assert.Equal(t, plan.StatusRunning, steps[0].Status)

	clk.Advance(time.Minute)
	assert.Equal(t, 1, done)
	for _, step := range s.Plan() {
		assert.Equal(t, plan.StatusCompleted, step.Status)
	}
	for _, snapshot := range plans {
		assert.NoError(t, plan.Validate(snapshot))
	}
}

func TestRunnerRelaunchCancelsPrevious(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	s := newSession(clk)
	r := NewRunner(s, clk, DefaultTimings())

	r.Launch(gitLaunch("first"), Hooks{})
	clk.Advance(3500 * time.Millisecond) // clone done, intent posted
	second := gitLaunch("second")
	second.Source = onboarding.GitSource{RepoURL: "https://github.com/acme/api.git"}
	r.Launch(second, Hooks{})
	clk.Advance(time.Minute)

	for _, msg := range s.Messages() {
		assert.NotEqual(t, "first", msg.Content, "no messages from the cancelled launch")
	}
	assert.Equal(t, "api", s.Scope().Project())
	assert.Len(t, s.Terminal(), 10, "terminal shows only the second clone")
}

func TestRunnerCancelStopsEverything(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	s := newSession(clk)
	r := NewRunner(s, clk, DefaultTimings())
	r.Launch(gitLaunch("x"), Hooks{})
	clk.Advance(3200 * time.Millisecond)
	r.Cancel()
	before := len(s.Messages())
	clk.Advance(time.Minute)
	assert.Equal(t, before, len(s.Messages()))
	assert.Zero(t, clk.Pending())
}

func TestDemoAndCommands(t *testing.T) {
	s := newSession(clock.NewFake(time.Unix(0, 0)))
	s.BeginDemo()
	s.DemoGreeting()
	s.DemoReply()
	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, SenderUser, msgs[0].Sender)
	assert.Equal(t, SenderAI, msgs[1].Sender)

	out := s.RunCommand("ls")
	assert.Equal(t, []string{"zsh: command not found: ls"}, out)
	s.RunCommand("npm run test")
	assert.Contains(t, s.Terminal(), "      Tests  8 passed (8)")
	s.RunCommand("clear")
	assert.Empty(t, s.Terminal())
}

func fastTimings() Timings {
	return Timings{
		CloneTick:   time.Millisecond,
		ReplyDelay:  time.Millisecond,
		AnalyzeWait: 2 * time.Millisecond,
		PlanDelay:   time.Millisecond,
		PlanTick:    time.Millisecond,
	}
}

func TestRunnerRealClockPlaysFullLaunch(t *testing.T) {
	s := newSession(clock.NewFake(time.Unix(0, 0)))
	r := NewRunner(s, clock.Real(), fastTimings())
	done := make(chan struct{})
	var lines []string
	r.Launch(gitLaunch("Add login"), Hooks{
		OnTerminal: func(line string) { lines = append(lines, line) },
		OnDone:     func() { close(done) },
	})

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("launch did not finish")
	}
	assert.Equal(t, CloneScript(gitLaunch("")), lines)
	assert.Equal(t, lines, s.Terminal())
	for _, step := range s.Plan() {
		assert.Equal(t, plan.StatusCompleted, step.Status)
	}
}

func TestRunnerRealClockCancelLeavesNoGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t)
	s := newSession(clock.NewFake(time.Unix(0, 0)))
	timings := fastTimings()
	timings.CloneTick = 5 * time.Millisecond
	r := NewRunner(s, clock.Real(), timings)

	var mu sync.Mutex
	seen := 0
	first := make(chan struct{}, 1)
	r.Launch(gitLaunch("x"), Hooks{
		OnTerminal: func(string) {
			mu.Lock()
			seen++
			mu.Unlock()
			select {
			case first <- struct{}{}:
			default:
			}
		},
	})
	<-first
	r.Cancel()
	mu.Lock()
	atCancel := seen
	mu.Unlock()
	time.Sleep(30 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, seen, atCancel+1, "at most the callback already running finishes")
	assert.Less(t, seen, 10)
}
