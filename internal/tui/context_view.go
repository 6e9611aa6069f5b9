package tui

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/workbench/internal/catalog"
	"github.com/kingrea/workbench/internal/scope"
	"github.com/kingrea/workbench/internal/shell"
)

// iterationRow is one selectable project/iteration pair.
type iterationRow struct {
	project   string
	iteration string
}

// importForm binds the import dialog to a catalog.ImportForm.
type importForm struct {
	form *huh.Form
	kind string
	name string
	url  string
	row  iterationRow
}

func newImportForm(row iterationRow) *importForm {
	f := &importForm{kind: string(scope.KindDoc), row: row}
	var options []huh.Option[string]
	for _, k := range scope.Kinds() {
		options = append(options, huh.NewOption(k.Label(), string(k)))
	}
	f.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("kind").
				Title("Resource type").
				Options(options...).
				Value(&f.kind),
			huh.NewInput().
				Key("name").
				Title("Name").
				Value(&f.name),
			huh.NewInput().
				Key("url").
				Title("URL").
				Value(&f.url),
		).Title(fmt.Sprintf("Import into %s / %s", row.project, row.iteration)),
	).WithShowHelp(true)
	return f
}

func (f *importForm) values() catalog.ImportForm {
	return catalog.ImportForm{
		Kind:      scope.Kind(f.kind),
		Name:      f.name,
		URL:       f.url,
		Project:   f.row.project,
		Iteration: f.row.iteration,
	}
}

type contextView struct {
	app       *App
	selection int
	apply     delay
	applying  iterationRow
	sync      delay
	syncing   *catalog.ImportForm
	form      *importForm
}

func newContextView(app *App) *contextView {
	return &contextView{
		app:   app,
		apply: newDelay(seqApply, app.timings.ApplyDelay),
		sync:  newDelay(seqImport, app.timings.ImportDelay),
	}
}

func (v *contextView) rows() []iterationRow {
	var rows []iterationRow
	for _, g := range v.app.catalog.Group() {
		for _, it := range g.Iterations {
			rows = append(rows, iterationRow{project: g.Project, iteration: it.Name})
		}
	}
	return rows
}

func (v *contextView) selectedRow() (iterationRow, bool) {
	rows := v.rows()
	if v.selection < 0 || v.selection >= len(rows) {
		return iterationRow{}, false
	}
	return rows[v.selection], true
}

func (v *contextView) activate(p shell.Payload) tea.Cmd {
	if p != nil {
		v.app.logWarn("Context manager ignored %s payload", p.Kind())
	}
	return nil
}

func (v *contextView) deactivate() {
	v.apply.cancel()
	v.sync.cancel()
	v.syncing = nil
	v.form = nil
}

func (v *contextView) capturing() bool { return v.form != nil }

func (v *contextView) help() string {
	if v.form != nil {
		return "esc=cancel import"
	}
	return "↑/↓=iteration  enter=apply scope  i=import"
}

// applySelected packages the selected iteration after a short delay.
func (v *contextView) applySelected() tea.Cmd {
	row, ok := v.selectedRow()
	if !ok {
		return nil
	}
	v.applying = row
	v.app.setStatus("%s", catalog.PackagingMessage(row.iteration))
	return v.apply.start()
}

func (v *contextView) finishApply() tea.Cmd {
	sc := v.app.catalog.BuildScope(v.applying.project, v.applying.iteration)
	return v.app.applyScope(sc)
}

func (v *contextView) openImport() tea.Cmd {
	row, ok := v.selectedRow()
	if !ok {
		return nil
	}
	v.form = newImportForm(row)
	return v.form.form.Init()
}

// submitImport validates the dialog and plays the syncing delay before the
// resource is stored.
func (v *contextView) submitImport(form catalog.ImportForm) tea.Cmd {
	v.form = nil
	if err := form.Validate(); err != nil {
		if errors.Is(err, catalog.ErrMissingFields) {
			v.app.setStatus("%s", catalog.MissingFieldsMessage)
		} else {
			v.app.setStatus("Import rejected: %v", err)
		}
		return nil
	}
	v.syncing = &form
	v.app.setStatus("Syncing %s...", strings.TrimSpace(form.Name))
	return v.sync.start()
}

func (v *contextView) finishImport() {
	if v.syncing == nil {
		return
	}
	r, err := v.app.catalog.Import(*v.syncing)
	v.syncing = nil
	if err != nil {
		v.app.setStatus("Import rejected: %v", err)
		return
	}
	v.app.setStatus("%s", catalog.ImportMessage(r))
}

func (v *contextView) update(msg tea.Msg) tea.Cmd {
	if m, ok := msg.(tickMsg); ok {
		switch {
		case v.apply.fired(m):
			return v.finishApply()
		case v.sync.fired(m):
			v.finishImport()
		}
		return nil
	}
	if v.form != nil {
		return v.updateForm(msg)
	}
	if m, ok := msg.(tea.KeyMsg); ok {
		switch m.String() {
		case "up", "k":
			if v.selection > 0 {
				v.selection--
			}
		case "down", "j":
			if v.selection < len(v.rows())-1 {
				v.selection++
			}
		case "enter":
			return v.applySelected()
		case "i":
			return v.openImport()
		}
	}
	return nil
}

func (v *contextView) updateForm(msg tea.Msg) tea.Cmd {
	if m, ok := msg.(tea.KeyMsg); ok && m.String() == "esc" {
		v.form = nil
		return nil
	}
	model, cmd := v.form.form.Update(msg)
	if f, ok := model.(*huh.Form); ok {
		v.form.form = f
		switch f.State {
		case huh.StateCompleted:
			return v.submitImport(v.form.values())
		case huh.StateAborted:
			v.form = nil
			return nil
		}
	}
	return cmd
}

func (v *contextView) view(width int) string {
	if v.form != nil {
		return v.form.form.View()
	}
	var tree []string
	idx := 0
	for _, g := range v.app.catalog.Group() {
		tree = append(tree, titleStyle.Render(g.Project))
		for _, it := range g.Iterations {
			label := fmt.Sprintf("%s (%d)", it.Name, len(it.Resources))
			tree = append(tree, fmt.Sprintf("%s %s", cursor(idx == v.selection), label))
			idx++
		}
	}
	leftWidth := max(24, width/3)
	left := lipgloss.NewStyle().Width(leftWidth).Render(strings.Join(tree, "\n"))
	return lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", v.renderResources(max(20, width-leftWidth-2)))
}

func (v *contextView) renderResources(width int) string {
	row, ok := v.selectedRow()
	if !ok {
		return mutedStyle.Render("No resources yet. Press i to import.")
	}
	lines := []string{titleStyle.Render(row.project + " / " + row.iteration)}
	for _, r := range v.app.catalog.IterationResources(row.project, row.iteration) {
		line := fmt.Sprintf("%-10s %s %s", r.Kind.Label(), r.Title, badge(string(r.Status)))
		meta := []string{r.Source, r.Updated}
		if r.RuleLevel != "" {
			meta = append(meta, r.RuleLevel)
		}
		if r.BaseURL != "" {
			meta = append(meta, r.BaseURL)
		}
		lines = append(lines, line, mutedStyle.Render("  "+strings.Join(meta, " · ")))
	}
	if v.syncing != nil && v.syncing.Project == row.project && v.syncing.Iteration == row.iteration {
		lines = append(lines, fmt.Sprintf("%-10s %s %s", v.syncing.Kind.Label(), v.syncing.Name, badge(string(catalog.StatusSyncing))))
	}
	return lipgloss.NewStyle().Width(width).Render(strings.Join(lines, "\n"))
}
