package monitor

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rileyhilliard/statwatch/internal/alert"
	"github.com/rileyhilliard/statwatch/internal/store"
)

var (
	helpBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorAccent).
			Background(ColorSurfaceBg).
			Padding(1, 2)

	helpTitleStyle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true).
			MarginBottom(1)
)

// renderHelpOverlay renders a centered box listing every binding plus the
// alert thresholds the banner uses.
func (m Model) renderHelpOverlay() string {
	m.help.ShowAll = true

	lines := []string{
		helpTitleStyle.Render("Keyboard Shortcuts"),
		m.help.View(keys),
		"",
		LabelStyle.Render(fmt.Sprintf("Alerts fire above CPU %g%%, RAM %g%%, GPU %g%%",
			alert.CPUThreshold, alert.RAMThreshold, alert.GPUThreshold)),
		LabelStyle.Render(fmt.Sprintf("Export writes the last %d samples to %s", store.Capacity, m.exportDirLabel())),
		"",
		MutedStyle.Render("Press ? to close"),
	}

	box := helpBoxStyle.Render(strings.Join(lines, "\n"))
	if m.width == 0 || m.height == 0 {
		return box
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box,
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(ColorDarkBg))
}

func (m Model) exportDirLabel() string {
	if m.exportDir == "" || m.exportDir == "." {
		return "the current directory"
	}
	return m.exportDir
}
