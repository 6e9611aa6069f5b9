//go:build cucumber

package shell

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/cucumber/godog"

	"github.com/kingrea/workbench/internal/scope"
)

// TestShellFeatures executes the navigation shell scenarios via godog.
func TestShellFeatures(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "shell",
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:    "pretty",
			Paths:     []string{filepath.Join("testdata", "shell.feature")},
			Strict:    true,
			TestingT:  t,
			Randomize: 0,
		},
	}
	if suite.Run() != 0 {
		t.Fatalf("non-zero godog status")
	}
}

// InitializeScenario wires step definitions for the shell feature.
func InitializeScenario(ctx *godog.ScenarioContext) {
	state := &shellState{}
	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		state.reset()
		return ctx, nil
	})

	ctx.Step(`^a shell on the "([^"]+)" tab$`, state.givenShell)
	ctx.Step(`^I apply scope "([^"]+)" for project "([^"]+)"$`, state.applyScope)
	ctx.Step(`^I navigate to "([^"]+)" with intent "([^"]+)"$`, state.navigateWithIntent)
	ctx.Step(`^I navigate to "([^"]+)"$`, state.navigate)
	ctx.Step(`^the "([^"]+)" tab consumes its payload$`, state.consume)
	ctx.Step(`^the active tab is "([^"]+)"$`, state.activeTabIs)
	ctx.Step(`^the active scope is "([^"]+)" for project "([^"]+)"$`, state.activeScopeIs)
	ctx.Step(`^the consumed payload is a "([^"]+)" payload$`, state.consumedKindIs)
	ctx.Step(`^nothing is pending for "([^"]+)"$`, state.nothingPending)
}

type shellState struct {
	shell    *Shell
	consumed Payload
	ok       bool
}

func (s *shellState) reset() {
	s.shell = New(TabDashboard)
	s.consumed = nil
	s.ok = false
}

func (s *shellState) givenShell(tab string) error {
	parsed, err := ParseTab(tab)
	if err != nil {
		return err
	}
	s.shell = New(parsed)
	return nil
}

func (s *shellState) applyScope(name, project string) error {
	s.shell.ApplyScope(scope.New(project, name, []scope.Item{{Kind: scope.KindDoc, Title: name + " PRD"}}))
	return nil
}

func (s *shellState) navigateWithIntent(tab, intent string) error {
	return s.shell.Navigate(Tab(tab), IntentPayload{Intent: intent})
}

func (s *shellState) navigate(tab string) error {
	return s.shell.Navigate(Tab(tab), nil)
}

func (s *shellState) consume(tab string) error {
	s.consumed, s.ok = s.shell.Consume(Tab(tab))
	return nil
}

func (s *shellState) activeTabIs(tab string) error {
	if got := s.shell.ActiveTab(); got != Tab(tab) {
		return fmt.Errorf("active tab %s, want %s", got, tab)
	}
	return nil
}

func (s *shellState) activeScopeIs(name, project string) error {
	sc := s.shell.Scope()
	if sc.Name() != name || sc.Project() != project {
		return fmt.Errorf("active scope %s, want %s / %s", sc.Label(), project, name)
	}
	return nil
}

func (s *shellState) consumedKindIs(kind string) error {
	if !s.ok || s.consumed == nil {
		return fmt.Errorf("no payload was consumed")
	}
	if got := s.consumed.Kind(); got != PayloadKind(kind) {
		return fmt.Errorf("consumed %s payload, want %s", got, kind)
	}
	return nil
}

func (s *shellState) nothingPending(tab string) error {
	if p, ok := s.shell.Peek(Tab(tab)); ok {
		return fmt.Errorf("unexpected pending %s payload", p.Kind())
	}
	return nil
}
