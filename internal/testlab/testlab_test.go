package testlab

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/workbench/internal/clock"
	"github.com/kingrea/workbench/internal/sequencer"
)

func features() []Feature {
	return []Feature{{
		ID:    "feat_sys",
		Title: "User Management",
		Scenarios: []Scenario{
			{ID: "sc_1", Title: "Create New User Success", Status: StatusPassed, Phases: []Phase{
				{ID: "ph_1", Type: Given, Steps: []Step{{ID: "s1", Action: "page.goto", Value: "/system/user", Status: StatusPassed}}},
				{ID: "ph_2", Type: When, Steps: []Step{{ID: "s2", Action: "locator.click", Selector: "button.add-btn", Status: StatusPassed}}},
			}},
			{ID: "sc_2", Title: "Duplicate Username Check", Status: StatusFailed, Phases: []Phase{
				{ID: "ph_2_1", Type: Given, Steps: []Step{{ID: "s_2_1", Action: "page.goto", Status: StatusPassed}}},
				{ID: "ph_2_3", Type: Then, Steps: []Step{{ID: "s_2_6", Action: "expect.toHaveText", Status: StatusFailed, Error: "TimeoutError: Element not visible"}}},
			}},
		},
	}}
}

func TestRunRevealsStepsInOrder(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	seq := sequencer.New[Step](clk)
	lab := New(features())

	var final Status
	require.NoError(t, lab.Run(seq, "sc_2", 100*time.Millisecond, nil, func(s Status) { final = s }))
	sc, _ := lab.Scenario("sc_2")
	assert.Equal(t, StatusRunning, sc.Status)
	assert.Equal(t, []Status{StatusRunning}, lab.Revealed())

	clk.Advance(100 * time.Millisecond)
	assert.Equal(t, []Status{StatusPassed, StatusRunning}, lab.Revealed())

	clk.Advance(100 * time.Millisecond)
	assert.Equal(t, StatusFailed, final)
	assert.Equal(t, []Status{StatusPassed, StatusFailed}, lab.Revealed())
	assert.Empty(t, lab.Running())
}

func TestReplayOfAnotherScenarioAbandonsFirst(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	seq := sequencer.New[Step](clk)
	lab := New(features())

	done := map[string]int{}
	require.NoError(t, lab.Run(seq, "sc_2", 100*time.Millisecond, nil, func(Status) { done["sc_2"]++ }))
	require.NoError(t, lab.Run(seq, "sc_1", 100*time.Millisecond, nil, func(Status) { done["sc_1"]++ }))
	clk.Advance(time.Second)

	assert.Zero(t, done["sc_2"])
	assert.Equal(t, 1, done["sc_1"])
	sc2, _ := lab.Scenario("sc_2")
	assert.Equal(t, StatusFailed, sc2.Status, "abandoned scenario keeps its recorded status")
	sc1, _ := lab.Scenario("sc_1")
	assert.Equal(t, StatusPassed, sc1.Status)
}

func TestRunUnknownScenario(t *testing.T) {
	lab := New(features())
	err := lab.Run(sequencer.New[Step](clock.NewFake(time.Unix(0, 0))), "nope", time.Millisecond, nil, nil)
	assert.ErrorIs(t, err, ErrUnknownScenario)
}

func TestStepDescribe(t *testing.T) {
	s := Step{Action: "locator.fill", Selector: `input[name="userName"]`, Value: "admin"}
	assert.Equal(t, `locator.fill input[name="userName"] "admin"`, s.Describe())
}
