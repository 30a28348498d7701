package monitor

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rileyhilliard/statwatch/internal/telemetry"
)

// Braille cells are a 2x4 dot matrix. brailleBits[row][col] is the bit for
// the dot at that position, rows counted from the top.
//
//	⠁ ⠈
//	⠂ ⠐
//	⠄ ⠠
//	⡀ ⢀
var brailleBits = [4][2]rune{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

const brailleBlank = '⠀'

// Series extracts one value per snapshot, oldest first.
func Series(history []telemetry.Snapshot, value func(telemetry.Snapshot) float64) []float64 {
	out := make([]float64, len(history))
	for i, s := range history {
		out[i] = value(s)
	}
	return out
}

// Sparkline renders data as a braille graph width cells wide and height rows
// tall. Each cell holds two samples. When scale is zero the graph is scaled to
// the largest sample, otherwise values are plotted against [0, scale]. Short
// series are right-aligned so the newest sample is always at the edge.
func Sparkline(data []float64, width, height int, scale float64, color lipgloss.Color) string {
	if len(data) == 0 || width <= 0 || height <= 0 {
		return ""
	}

	points := width * 2
	if len(data) > points {
		data = downsample(data, points)
	}
	if scale <= 0 {
		scale = maxOf(data)
	}

	grid := make([][]rune, height)
	for r := range grid {
		grid[r] = []rune(strings.Repeat(string(brailleBlank), width))
	}

	levels := height * 4
	offset := points - len(data)
	for i, v := range data {
		dots := 0
		if scale > 0 {
			dots = int(clampUnit(v/scale)*float64(levels) + 0.5)
		}
		if v > 0 && dots == 0 {
			dots = 1
		}
		x := offset + i
		cell, col := x/2, x%2
		for d := 0; d < dots; d++ {
			row := height - 1 - d/4
			grid[row][cell] |= brailleBits[3-d%4][col]
		}
	}

	style := lipgloss.NewStyle().Foreground(color)
	lines := make([]string, height)
	for r, row := range grid {
		lines[r] = style.Render(string(row))
	}
	return strings.Join(lines, "\n")
}

// downsample reduces data to n points keeping the peak of each bucket, so
// short spikes survive.
func downsample(data []float64, n int) []float64 {
	out := make([]float64, n)
	bucket := float64(len(data)) / float64(n)
	for i := range out {
		start := int(float64(i) * bucket)
		end := int(float64(i+1) * bucket)
		if end <= start {
			end = start + 1
		}
		if end > len(data) {
			end = len(data)
		}
		out[i] = maxOf(data[start:end])
	}
	return out
}

func maxOf(data []float64) float64 {
	var m float64
	for _, v := range data {
		if v > m {
			m = v
		}
	}
	return m
}

func clampUnit(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
