package telemetry

import (
	"fmt"
	"strings"
)

// DeviceLabels returns a display label for every device, in order.
//
// A label is the trimmed device name cut to maxLen runes (maxLen <= 0 keeps
// the whole name). When two or more devices share a trimmed name, each of
// them gets a " (n)" suffix where n is its 1-based position in the full list,
// which keeps labels unique without a per-name counter. Unnamed devices are
// labelled "GPU n".
func DeviceLabels(devices []Device, maxLen int) []string {
	names := make([]string, len(devices))
	seen := make(map[string]int, len(devices))
	for i, d := range devices {
		names[i] = strings.TrimSpace(d.Name)
		seen[names[i]]++
	}

	labels := make([]string, len(devices))
	for i, name := range names {
		switch {
		case name == "":
			labels[i] = fmt.Sprintf("GPU %d", i+1)
		case seen[name] > 1:
			labels[i] = fmt.Sprintf("%s (%d)", truncate(name, maxLen), i+1)
		default:
			labels[i] = truncate(name, maxLen)
		}
	}
	return labels
}

// DeviceLabel returns the label for the device at index i.
func DeviceLabel(devices []Device, i, maxLen int) string {
	if i < 0 || i >= len(devices) {
		return fmt.Sprintf("GPU %d", i+1)
	}
	return DeviceLabels(devices, maxLen)[i]
}

func truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}
