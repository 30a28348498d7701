package monitor

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/rileyhilliard/statwatch/internal/alert"
	"github.com/rileyhilliard/statwatch/internal/telemetry"
)

const (
	cardGraphHeight = 2
	// deviceLabelLen bounds GPU names so cards keep their width.
	deviceLabelLen = 18
	// noAlert colours a gauge that has no alert threshold.
	noAlert = 100.0
)

// renderCards builds one card per resource, one per GPU.
func (m Model) renderCards() []string {
	s := m.current
	width := m.cardWidth()

	cards := []string{
		m.cpuCard(s, width),
		m.memoryCard(s, width),
	}
	labels := telemetry.DeviceLabels(s.Devices, deviceLabelLen)
	for i, d := range s.Devices {
		cards = append(cards, m.deviceCard(i, labels[i], d, width))
	}
	cards = append(cards, m.diskCard(s, width), m.networkCard(s, width))
	return cards
}

func (m Model) cpuCard(s telemetry.Snapshot, width int) string {
	inner := width - 4
	pct := s.CPU.UsagePercent

	lines := []string{headerLine("CPU", MetricStyle(pct, alert.CPUThreshold).Render(fmt.Sprintf("%5.1f%%", pct)), inner)}
	lines = append(lines, m.graph(func(s telemetry.Snapshot) float64 { return s.CPU.UsagePercent }, inner, 100, alert.CPUThreshold)...)

	var details []string
	if s.CPU.Name != "" {
		details = append(details, truncateWithEllipsis(s.CPU.Name, inner))
	}
	info := fmt.Sprintf("%d threads", s.CPU.LogicalProcessorCount)
	if s.CPU.HasTemperature() {
		info += fmt.Sprintf("  %.0f°C", s.CPU.TemperatureCelsius)
	}
	details = append(details, info)
	lines = append(lines, detailLines(details)...)

	return CardStyle.Width(width).Render(strings.Join(lines, "\n"))
}

func (m Model) memoryCard(s telemetry.Snapshot, width int) string {
	inner := width - 4
	pct := s.Memory.UsagePercent

	lines := []string{headerLine("RAM", MetricStyle(pct, alert.RAMThreshold).Render(fmt.Sprintf("%5.1f%%", pct)), inner)}
	lines = append(lines, m.graph(func(s telemetry.Snapshot) float64 { return s.Memory.UsagePercent }, inner, 100, alert.RAMThreshold)...)
	lines = append(lines, detailLines([]string{
		fmt.Sprintf("%s / %s", formatBytes(s.Memory.UsedBytes), formatBytes(s.Memory.TotalBytes)),
		fmt.Sprintf("%s available", formatBytes(s.Memory.AvailableBytes)),
	})...)

	return CardStyle.Width(width).Render(strings.Join(lines, "\n"))
}

// deviceCard renders GPU i. Only the primary device drives the alert banner,
// but every device is coloured against the same threshold.
func (m Model) deviceCard(i int, label string, d telemetry.Device, width int) string {
	inner := width - 4
	pct := d.UsagePercent

	lines := []string{headerLine(label, MetricStyle(pct, alert.GPUThreshold).Render(fmt.Sprintf("%5.1f%%", pct)), inner)}
	lines = append(lines, m.graph(func(s telemetry.Snapshot) float64 {
		if i < len(s.Devices) {
			return s.Devices[i].UsagePercent
		}
		return 0
	}, inner, 100, alert.GPUThreshold)...)

	info := fmt.Sprintf("VRAM %s / %s", formatBytes(d.VRAMUsedBytes), formatBytes(d.VRAMTotalBytes))
	if d.HasTemperature() {
		info += fmt.Sprintf("  %.0f°C", d.TemperatureCelsius)
	}
	lines = append(lines, detailLines([]string{info})...)

	return CardStyle.Width(width).Render(strings.Join(lines, "\n"))
}

func (m Model) diskCard(s telemetry.Snapshot, width int) string {
	inner := width - 4
	pct := s.Disk.UsagePercent

	lines := []string{headerLine("DISK", MetricStyle(pct, noAlert).Render(fmt.Sprintf("%5.1f%%", pct)), inner)}
	lines = append(lines, m.graph(func(s telemetry.Snapshot) float64 {
		return float64(s.Disk.ReadBytesPerSecond + s.Disk.WriteBytesPerSecond)
	}, inner, 0, noAlert)...)
	lines = append(lines, detailLines([]string{
		fmt.Sprintf("R %s  W %s", FormatRate(s.Disk.ReadBytesPerSecond), FormatRate(s.Disk.WriteBytesPerSecond)),
		fmt.Sprintf("%s / %s", formatBytes(s.Disk.UsedBytes), formatBytes(s.Disk.TotalBytes)),
	})...)

	return CardStyle.Width(width).Render(strings.Join(lines, "\n"))
}

func (m Model) networkCard(s telemetry.Snapshot, width int) string {
	inner := width - 4
	arrow := lipgloss.NewStyle().Foreground(ColorAccent)
	rates := arrow.Render("↓") + ValueStyle.Render(FormatRate(s.Network.DownloadBytesPerSecond)) + " " +
		arrow.Render("↑") + ValueStyle.Render(FormatRate(s.Network.UploadBytesPerSecond))

	lines := []string{headerLine("NET", rates, inner)}
	lines = append(lines, m.graph(func(s telemetry.Snapshot) float64 {
		return float64(s.Network.DownloadBytesPerSecond + s.Network.UploadBytesPerSecond)
	}, inner, 0, noAlert)...)
	lines = append(lines, detailLines([]string{
		fmt.Sprintf("rx %s  tx %s", formatBytes(s.Network.TotalBytesReceived), formatBytes(s.Network.TotalBytesSent)),
	})...)

	return CardStyle.Width(width).Render(strings.Join(lines, "\n"))
}

// graph renders the history of one value. Before two samples exist a bar of
// the current value is shown instead. scale 0 autoscales.
func (m Model) graph(value func(telemetry.Snapshot) float64, width int, scale, critical float64) []string {
	if len(m.history) < 2 {
		if scale == 0 {
			return []string{MutedStyle.Render(strings.Repeat("▱", width))}
		}
		return []string{ProgressBar(width, value(m.current), critical)}
	}

	data := Series(m.history, value)
	color := ColorGraph
	if scale > 0 {
		color = MetricColor(data[len(data)-1], critical)
	}
	return strings.Split(Sparkline(data, width, cardGraphHeight, scale, color), "\n")
}

// headerLine puts label on the left and value right-aligned.
func headerLine(label, value string, width int) string {
	left := CardTitleStyle.Render(label)
	pad := width - lipgloss.Width(left) - lipgloss.Width(value)
	if pad < 1 {
		pad = 1
	}
	return left + strings.Repeat(" ", pad) + value
}

func detailLines(details []string) []string {
	out := make([]string, len(details))
	for i, d := range details {
		out[i] = LabelStyle.Render(d)
	}
	return out
}

// truncateWithEllipsis truncates a string to maxLen runes, adding ellipsis if
// needed.
func truncateWithEllipsis(s string, maxLen int) string {
	r := []rune(s)
	if maxLen <= 3 || len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

// formatBytes formats a byte count using binary units.
func formatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

// FormatRate formats a bytes-per-second rate.
func FormatRate(bytesPerSecond int64) string {
	return formatBytes(bytesPerSecond) + "/s"
}
