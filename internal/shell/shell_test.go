package shell

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/workbench/internal/onboarding"
	"github.com/kingrea/workbench/internal/scope"
)

func TestApplyScopeReplacesWholesale(t *testing.T) {
	s := New(TabContext)
	a := scope.Restore("scope-a", "enterprise-admin", "V1.0", []scope.Item{{Kind: scope.KindDoc, Title: "User PRD"}})
	b := scope.Restore("scope-b", "mobile-app", "Sprint 12", []scope.Item{{Kind: scope.KindQA, Title: "Checkout Cases"}, {Kind: scope.KindAPI, Title: "Cart API"}})

	s.ApplyScope(a)
	s.ApplyScope(b)

	assert.True(t, s.Scope().Equal(b), "active scope must equal the last applied scope")
	assert.Equal(t, TabWorkbench, s.ActiveTab())
	p, ok := s.Consume(TabWorkbench)
	require.True(t, ok)
	assert.True(t, p.(ScopePayload).Scope.Equal(b))
}

func TestConsumeDeliversAtMostOnce(t *testing.T) {
	s := New(TabDashboard)
	require.NoError(t, s.Navigate(TabWorkbench, IntentPayload{Intent: DemoIntent}))

	p, ok := s.Consume(TabWorkbench)
	require.True(t, ok)
	assert.Equal(t, KindIntent, p.Kind())

	_, ok = s.Consume(TabWorkbench)
	assert.False(t, ok, "payload must not be redelivered")
}

func TestNavigateWithoutPayloadKeepsPending(t *testing.T) {
	s := New(TabDashboard)
	require.NoError(t, s.Navigate(TabWorkflow, WorkflowPayload{WorkflowID: "w1"}))
	require.NoError(t, s.Navigate(TabDashboard, nil))
	_, waiting := s.Peek(TabWorkflow)
	assert.True(t, waiting)
}

func TestScopeSurvivesTabSwitches(t *testing.T) {
	s := New(TabDashboard)
	sc := scope.Restore("scope-1", "p", "n", nil)
	s.ApplyScope(sc)
	for _, tab := range Tabs() {
		require.NoError(t, s.Navigate(tab, nil))
		assert.True(t, s.Scope().Equal(sc), "tab %s", tab)
	}
}

func TestNavigateRejectsUnknownTab(t *testing.T) {
	s := New(TabDashboard)
	assert.Error(t, s.Navigate(Tab("data"), nil))
	assert.Equal(t, TabDashboard, s.ActiveTab())
}

func TestLaunchValidatesPayload(t *testing.T) {
	s := New(TabDashboard)
	assert.Error(t, s.Launch(onboarding.Launch{}))
	assert.Equal(t, TabDashboard, s.ActiveTab())

	l := onboarding.Launch{Provider: "anthropic", Source: onboarding.GitSource{RepoURL: onboarding.DefaultRepoURL}, IterationName: "MVP v1.0"}
	require.NoError(t, s.Launch(l))
	snap := s.Snapshot()
	assert.Equal(t, TabWorkbench, snap.ActiveTab)
	assert.Equal(t, KindLaunch, snap.Pending[TabWorkbench])
}

func TestSnapshotConcurrentReaders(t *testing.T) {
	s := New(TabDashboard)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = s.Snapshot()
			}
		}()
	}
	for j := 0; j < 100; j++ {
		s.ApplyScope(scope.New("p", "n", nil))
		s.Consume(TabWorkbench)
	}
	wg.Wait()
	assert.NotNil(t, s.Snapshot().Scope)
}

func TestParseTab(t *testing.T) {
	for _, tab := range Tabs() {
		got, err := ParseTab(string(tab))
		require.NoError(t, err)
		assert.Equal(t, tab, got)
	}
	_, err := ParseTab("history")
	assert.Error(t, err)
}
