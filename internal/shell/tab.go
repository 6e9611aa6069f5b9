package shell

import (
	"fmt"
	"strings"
)

// Tab identifies a top-level view.
type Tab string

const (
	TabDashboard Tab = "dashboard"
	TabContext   Tab = "context"
	TabAssets    Tab = "assets"
	TabWorkbench Tab = "workbench"
	TabWorkflow  Tab = "workflow"
	TabTest      Tab = "test"
	TabDeploy    Tab = "deploy"
	TabSettings  Tab = "settings"
)

var tabs = []Tab{TabDashboard, TabContext, TabAssets, TabWorkbench, TabWorkflow, TabTest, TabDeploy, TabSettings}

// Tabs returns every tab in display order.
func Tabs() []Tab {
	out := make([]Tab, len(tabs))
	copy(out, tabs)
	return out
}

// ParseTab validates a raw tab identifier.
func ParseTab(value string) (Tab, error) {
	candidate := Tab(strings.ToLower(strings.TrimSpace(value)))
	for _, t := range tabs {
		if t == candidate {
			return t, nil
		}
	}
	return "", fmt.Errorf("shell: unknown tab %q", value)
}

// Label is the title shown in the tab bar.
func (t Tab) Label() string {
	switch t {
	case TabDashboard:
		return "Mission Control"
	case TabContext:
		return "Context"
	case TabAssets:
		return "Assets"
	case TabWorkbench:
		return "Workbench"
	case TabWorkflow:
		return "Workflow Studio"
	case TabTest:
		return "Test Lab"
	case TabDeploy:
		return "Deploy"
	case TabSettings:
		return "Settings"
	}
	return string(t)
}

// Index returns the display position of t, or -1.
func (t Tab) Index() int {
	for i, candidate := range tabs {
		if candidate == t {
			return i
		}
	}
	return -1
}
