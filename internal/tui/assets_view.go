package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/workbench/internal/assets"
	"github.com/kingrea/workbench/internal/shell"
)

type assetsView struct {
	app        *App
	filter     int
	selection  int
	search     textinput.Model
	searching  bool
	install    delay
	installing string
}

func newAssetsView(app *App) *assetsView {
	search := textinput.New()
	search.Prompt = "/ "
	search.Placeholder = assets.FilterAll.SearchPlaceholder()
	return &assetsView{
		app:     app,
		search:  search,
		install: newDelay(seqInstall, app.timings.InstallDelay),
	}
}

func (v *assetsView) activeFilter() assets.Filter {
	return assets.Filters()[v.filter]
}

func (v *assetsView) visible() []assets.Asset {
	return v.app.library.Filter(v.activeFilter(), v.search.Value())
}

func (v *assetsView) activate(p shell.Payload) tea.Cmd {
	if p != nil {
		v.app.logWarn("Asset library ignored %s payload", p.Kind())
	}
	return nil
}

func (v *assetsView) deactivate() {
	v.install.cancel()
	v.installing = ""
	v.searching = false
	v.search.Blur()
}

func (v *assetsView) capturing() bool { return v.searching }

func (v *assetsView) help() string {
	if v.searching {
		return "enter/esc=done"
	}
	return "←/→=type  /=search  enter=install"
}

// installSelected either opens a workflow asset in the studio or plays the
// install delay.
func (v *assetsView) installSelected() tea.Cmd {
	list := v.visible()
	if v.selection >= len(list) {
		return nil
	}
	a, action, err := v.app.library.InstallAction(list[v.selection].ID)
	if err != nil {
		v.app.setStatus("Install failed: %v", err)
		return nil
	}
	switch action {
	case assets.ActionOpenWorkflow:
		return v.app.goTo(shell.TabWorkflow, shell.WorkflowPayload{WorkflowID: a.ID})
	default:
		v.installing = a.ID
		v.app.setStatus("Installing %s...", a.Title)
		return v.install.start()
	}
}

func (v *assetsView) update(msg tea.Msg) tea.Cmd {
	switch m := msg.(type) {
	case tickMsg:
		if v.install.fired(m) {
			text, err := v.app.library.MarkInstalled(v.installing)
			v.installing = ""
			if err != nil {
				v.app.setStatus("Install failed: %v", err)
				return nil
			}
			v.app.setStatus("%s", text)
		}
		return nil
	case tea.KeyMsg:
		if v.searching {
			switch m.String() {
			case "enter", "esc":
				v.searching = false
				v.search.Blur()
				return nil
			}
			var cmd tea.Cmd
			v.search, cmd = v.search.Update(m)
			v.selection = 0
			return cmd
		}
		switch m.String() {
		case "/":
			v.searching = true
			return v.search.Focus()
		case "left", "h":
			v.setFilter(v.filter - 1)
		case "right", "l":
			v.setFilter(v.filter + 1)
		case "up", "k":
			if v.selection > 0 {
				v.selection--
			}
		case "down", "j":
			if v.selection < len(v.visible())-1 {
				v.selection++
			}
		case "enter":
			return v.installSelected()
		}
	}
	return nil
}

func (v *assetsView) setFilter(idx int) {
	n := len(assets.Filters())
	v.filter = (idx + n) % n
	v.selection = 0
	v.search.Placeholder = v.activeFilter().SearchPlaceholder()
}

func (v *assetsView) view(width int) string {
	var tabs []string
	for i, f := range assets.Filters() {
		if i == v.filter {
			tabs = append(tabs, activeTabStyle.Render(f.Label()))
			continue
		}
		tabs = append(tabs, tabStyle.Render(f.Label()))
	}
	lines := []string{lipgloss.JoinHorizontal(lipgloss.Top, tabs...), v.search.View(), ""}
	list := v.visible()
	if len(list) == 0 {
		lines = append(lines, mutedStyle.Render("No assets match."))
	}
	for i, a := range list {
		mark := ""
		switch {
		case v.app.library.Installed(a.ID):
			mark = statusStyles["success"].Render(" installed")
		case v.installing == a.ID:
			mark = statusStyles["running"].Render(" installing")
		}
		lines = append(lines, fmt.Sprintf("%s %s %s%s", cursor(i == v.selection), labelStyleKind.Render(string(a.Type)), a.Title, mark))
		if i == v.selection {
			detail := a.Description
			if len(a.Tags) > 0 {
				detail += " · " + strings.Join(a.Tags, ", ")
			}
			detail += fmt.Sprintf(" · %s · %s", a.Author, a.Updated)
			lines = append(lines, detailTextStyle.Render("  "+detail))
		}
	}
	return lipgloss.NewStyle().Width(width).Render(strings.Join(lines, "\n"))
}
