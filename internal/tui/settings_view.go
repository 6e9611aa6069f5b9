package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/workbench/internal/onboarding"
	"github.com/kingrea/workbench/internal/shell"
)

// providerItem implements list.Item for a provider entry.
type providerItem struct {
	provider onboarding.Provider
	current  bool
}

func (i providerItem) Title() string {
	title := i.provider.Name
	if i.current {
		title += " ✓"
	}
	return title
}

func (i providerItem) Description() string {
	parts := []string{i.provider.BaseURL}
	if len(i.provider.Models) > 0 {
		parts = append(parts, strings.Join(i.provider.Models, ", "))
	}
	if !i.provider.Enabled {
		parts = append(parts, "disabled")
	}
	return strings.Join(parts, " · ")
}

func (i providerItem) FilterValue() string { return i.provider.ID }

type settingsView struct {
	app  *App
	menu list.Model
}

func newSettingsView(app *App) *settingsView {
	menu := list.New(nil, list.NewDefaultDelegate(), 60, 14)
	menu.Title = "Model providers"
	menu.SetShowStatusBar(false)
	menu.SetFilteringEnabled(false)
	menu.SetShowHelp(false)
	menu.DisableQuitKeybindings()
	v := &settingsView{app: app, menu: menu}
	v.refresh()
	return v
}

func (v *settingsView) refresh() {
	current := v.app.config.Provider().ID
	items := make([]list.Item, 0, len(v.app.providers))
	selected := 0
	for i, p := range v.app.providers {
		items = append(items, providerItem{provider: p, current: p.ID == current})
		if p.ID == current {
			selected = i
		}
	}
	v.menu.SetItems(items)
	if len(items) > 0 {
		v.menu.Select(selected)
	}
}

func (v *settingsView) activate(p shell.Payload) tea.Cmd {
	if p != nil {
		v.app.logWarn("Settings ignored %s payload", p.Kind())
	}
	v.refresh()
	return nil
}

func (v *settingsView) deactivate() {}

func (v *settingsView) capturing() bool { return false }

func (v *settingsView) help() string { return "enter=use provider  r=reset seed" }

// useProvider persists the provider as the project default.
func (v *settingsView) useProvider(p onboarding.Provider) {
	if !p.Enabled {
		v.app.setStatus("%s is disabled", p.Name)
		return
	}
	if err := v.app.config.SetProvider(p.ID, p.DefaultModel(), p.BaseURL); err != nil {
		v.app.logError("Provider update failed: %v", err)
		v.app.setStatus("Provider update failed")
		return
	}
	v.app.setStatus("Default provider · %s", p.Name)
	v.refresh()
}

func (v *settingsView) update(msg tea.Msg) tea.Cmd {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		v.menu.SetSize(max(20, m.Width-8), max(8, m.Height-16))
		return nil
	case tea.KeyMsg:
		switch m.String() {
		case "enter":
			if item, ok := v.menu.SelectedItem().(providerItem); ok {
				v.useProvider(item.provider)
			}
			return nil
		case "r":
			return v.app.resetSeed()
		}
	}
	var cmd tea.Cmd
	v.menu, cmd = v.menu.Update(msg)
	return cmd
}

func (v *settingsView) view(width int) string {
	cfg := v.app.config
	bridge := "disabled"
	if cfg.Project.Bridge.Enabled {
		bridge = fmt.Sprintf("%s:%d", cfg.Project.Bridge.Host, cfg.Project.Bridge.Port)
	}
	seedPath := cfg.SeedPath()
	if seedPath == "" {
		seedPath = "embedded default"
	}
	p := cfg.Provider()
	info := []string{
		titleStyle.Render("Project"),
		fmt.Sprintf("Directory  %s", cfg.ProjectDir),
		fmt.Sprintf("Provider   %s %s", p.ID, mutedStyle.Render(p.Model)),
		fmt.Sprintf("Bridge     %s", bridge),
		fmt.Sprintf("Seed       %s (v%d)", seedPath, v.app.store.Version()),
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Width(width).Render(strings.Join(info, "\n")),
		"",
		v.menu.View(),
	)
}
