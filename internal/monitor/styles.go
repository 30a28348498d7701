package monitor

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rileyhilliard/statwatch/internal/stream"
)

// Dashboard palette
const (
	ColorDarkBg    = lipgloss.Color("#0A0A0F")
	ColorSurfaceBg = lipgloss.Color("#12121A")
	ColorBorder    = lipgloss.Color("#2A2A4A")

	ColorHealthy  = lipgloss.Color("#39FF14")
	ColorWarning  = lipgloss.Color("#FFAA00")
	ColorCritical = lipgloss.Color("#FF0055")

	ColorTextPrimary   = lipgloss.Color("#FFFFFF")
	ColorTextSecondary = lipgloss.Color("#B4B4D0")
	ColorTextMuted     = lipgloss.Color("#6B6B8D")

	ColorAccent = lipgloss.Color("#FF2E97")
	ColorGraph  = lipgloss.Color("#00FFFF")
)

// WarningPercent is where a gauge turns amber. Red is driven by the alert
// threshold of the resource so the colour agrees with the banner.
const WarningPercent = 70.0

var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary).
			Background(ColorSurfaceBg).
			Bold(true).
			Padding(0, 1)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			Padding(0, 1)

	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1).
			MarginRight(1).
			MarginBottom(1)

	CardTitleStyle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorTextSecondary)

	ValueStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary)

	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	AlertBannerStyle = lipgloss.NewStyle().
				Foreground(ColorTextPrimary).
				Background(ColorCritical).
				Bold(true).
				Padding(0, 1)

	NoticeStyle = lipgloss.NewStyle().
			Foreground(ColorGraph)

	ErrorViewStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorCritical).
			Foreground(ColorTextPrimary).
			Padding(1, 2)
)

// Connection indicators
const (
	IndicatorConnected    = "◉"
	IndicatorConnecting   = "◐"
	IndicatorDisconnected = "◌"
	IndicatorIdle         = "○"
)

// ConnectingSpinnerFrames rotate through half-circle positions.
var ConnectingSpinnerFrames = []string{"◐", "◓", "◑", "◒"}

// StateIndicator returns the glyph and style for a connection state. The
// connecting glyph animates with frame.
func StateIndicator(state stream.State, frame int) (string, lipgloss.Style) {
	switch state {
	case stream.StateConnected:
		return IndicatorConnected, lipgloss.NewStyle().Foreground(ColorHealthy)
	case stream.StateConnecting:
		return ConnectingSpinnerFrames[frame%len(ConnectingSpinnerFrames)], lipgloss.NewStyle().Foreground(ColorWarning)
	case stream.StateDisconnected:
		return IndicatorDisconnected, lipgloss.NewStyle().Foreground(ColorCritical)
	default:
		return IndicatorIdle, MutedStyle
	}
}

// MetricColor colours a percentage: green below WarningPercent, amber up to
// the critical threshold, red above it.
func MetricColor(percent, critical float64) lipgloss.Color {
	switch {
	case percent > critical:
		return ColorCritical
	case percent >= WarningPercent:
		return ColorWarning
	default:
		return ColorHealthy
	}
}

// MetricStyle returns a foreground style for the metric.
func MetricStyle(percent, critical float64) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(MetricColor(percent, critical))
}

// ProgressBar renders a bracketless bar of width cells.
func ProgressBar(width int, percent, critical float64) string {
	if width < 1 {
		width = 1
	}
	filled := int(clampPercent(percent) / 100 * float64(width))
	if filled > width {
		filled = width
	}
	bar := strings.Repeat("▰", filled) + strings.Repeat("▱", width-filled)
	return MetricStyle(percent, critical).Render(bar)
}

func clampPercent(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
