package monitor

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rileyhilliard/statwatch/internal/stream"
)

const (
	defaultCardWidth = 36
	cardGap          = 3 // border + margin
)

// renderDashboard renders the complete dashboard view.
func (m Model) renderDashboard() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	if banner := m.renderAlerts(); banner != "" {
		b.WriteString(banner)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.current.IsZero() {
		b.WriteString(LabelStyle.Render("  Waiting for telemetry..."))
		b.WriteString("\n")
	} else {
		b.WriteString(m.layoutCards(m.renderCards()))
	}

	if m.notice != "" {
		style := NoticeStyle
		if m.noticeErr {
			style = lipgloss.NewStyle().Foreground(ColorCritical)
		}
		b.WriteString("\n")
		b.WriteString(style.Render(m.notice))
	}

	b.WriteString("\n")
	b.WriteString(FooterStyle.Render(m.help.View(keys)))
	return b.String()
}

// renderHeader shows the source, backend version, connection state with the
// last error, and data age.
func (m Model) renderHeader() string {
	title := lipgloss.NewStyle().Foreground(ColorAccent).Bold(true).Render("statwatch")

	parts := []string{}
	if m.source != "" {
		parts = append(parts, m.source)
	}
	if m.version != "" {
		parts = append(parts, "v"+strings.TrimPrefix(m.version, "v"))
	}

	glyph, glyphStyle := StateIndicator(m.state, m.spinnerFrame)
	state := glyphStyle.Render(glyph) + " " + m.state.String()
	if m.lastErr != "" {
		state += " " + lipgloss.NewStyle().Foreground(ColorCritical).Render("("+m.lastErr+")")
	}
	parts = append(parts, state)

	if !m.current.IsZero() {
		age := "just now"
		if s := m.SecondsSinceUpdate(); s > 0 {
			age = fmt.Sprintf("%ds ago", s)
		}
		if m.state != stream.StateConnected {
			age += ", stale"
		}
		parts = append(parts, "last update "+age)
	}

	stats := LabelStyle.Render(" | " + strings.Join(parts, " | "))
	return HeaderStyle.Render(title + stats)
}

// renderAlerts renders one banner line per active alert.
func (m Model) renderAlerts() string {
	alerts := m.Alerts()
	if len(alerts) == 0 {
		return ""
	}
	lines := make([]string, len(alerts))
	for i, a := range alerts {
		lines[i] = AlertBannerStyle.Render("⚠ " + a.String())
	}
	return strings.Join(lines, "\n")
}

// cardWidth sizes cards to the terminal. Narrow terminals get one full-width
// column.
func (m Model) cardWidth() int {
	if m.width == 0 || m.width >= defaultCardWidth+cardGap+1 {
		return defaultCardWidth
	}
	if w := m.width - cardGap - 1; w > 12 {
		return w
	}
	return 12
}

// layoutCards arranges cards in rows based on terminal width.
func (m Model) layoutCards(cards []string) string {
	if len(cards) == 0 {
		return ""
	}

	perRow := len(cards)
	if m.width > 0 {
		perRow = m.width / (m.cardWidth() + cardGap)
		if perRow < 1 {
			perRow = 1
		}
	}

	var rows []string
	for i := 0; i < len(cards); i += perRow {
		end := i + perRow
		if end > len(cards) {
			end = len(cards)
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards[i:end]...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}
