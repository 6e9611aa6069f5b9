package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorAccent = lipgloss.Color("#5B8DEF")
	colorBrand  = lipgloss.Color("#FF6B6B")
	colorMuted  = lipgloss.Color("#888888")
	colorDim    = lipgloss.Color("#AAAAAA")
	colorBorder = lipgloss.Color("#444444")
	colorOK     = lipgloss.Color("#4CAF50")
	colorWarn   = lipgloss.Color("#F7B801")

	brandStyle     = lipgloss.NewStyle().Bold(true).Foreground(colorBrand)
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	mutedStyle     = lipgloss.NewStyle().Foreground(colorMuted)
	dimStyle       = lipgloss.NewStyle().Foreground(colorDim)
	selectedStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	tabStyle       = lipgloss.NewStyle().Padding(0, 1).Foreground(colorMuted)
	activeTabStyle = lipgloss.NewStyle().Padding(0, 1).Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(colorAccent)
	boxStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorBorder).Padding(0, 1)
	footerStyle    = lipgloss.NewStyle().Foreground(colorMuted).MarginTop(1)

	statusStyles = map[string]lipgloss.Style{
		"completed": lipgloss.NewStyle().Foreground(colorOK),
		"success":   lipgloss.NewStyle().Foreground(colorOK),
		"passed":    lipgloss.NewStyle().Foreground(colorOK),
		"synced":    lipgloss.NewStyle().Foreground(colorOK),
		"active":    lipgloss.NewStyle().Foreground(colorOK),
		"running":   lipgloss.NewStyle().Foreground(colorAccent).Bold(true),
		"building":  lipgloss.NewStyle().Foreground(colorAccent).Bold(true),
		"syncing":   lipgloss.NewStyle().Foreground(colorAccent),
		"testing":   lipgloss.NewStyle().Foreground(colorAccent),
		"warning":   lipgloss.NewStyle().Foreground(colorWarn),
		"queued":    lipgloss.NewStyle().Foreground(colorWarn),
		"failed":    lipgloss.NewStyle().Foreground(colorBrand).Bold(true),
		"error":     lipgloss.NewStyle().Foreground(colorBrand).Bold(true),
	}
)

// badge renders a status word in its color.
func badge(status string) string {
	style, ok := statusStyles[status]
	if !ok {
		style = mutedStyle
	}
	return style.Render(status)
}

// statusIcon is the one-character marker used in step lists.
func statusIcon(status string) string {
	switch status {
	case "completed", "passed", "success":
		return statusStyles["completed"].Render("✓")
	case "running", "building":
		return statusStyles["running"].Render("●")
	case "failed", "error":
		return statusStyles["failed"].Render("✗")
	}
	return mutedStyle.Render("○")
}

func cursor(selected bool) string {
	if selected {
		return selectedStyle.Render("›")
	}
	return " "
}
