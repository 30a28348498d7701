package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func devicesNamed(names ...string) []Device {
	devices := make([]Device, len(names))
	for i, n := range names {
		devices[i] = Device{Name: n}
	}
	return devices
}

func TestDeviceLabels(t *testing.T) {
	tests := []struct {
		name   string
		names  []string
		maxLen int
		want   []string
	}{
		{
			name:  "duplicates get positional suffix",
			names: []string{"A", "A", "B"},
			want:  []string{"A (1)", "A (2)", "B"},
		},
		{
			name:  "suffix uses position in full list",
			names: []string{"B", "A", "C", "A"},
			want:  []string{"B", "A (2)", "C", "A (4)"},
		},
		{
			name:  "names are trimmed before comparing",
			names: []string{" AMD Radeon(TM) Graphics", "AMD Radeon(TM) Graphics  "},
			want:  []string{"AMD Radeon(TM) Graphics (1)", "AMD Radeon(TM) Graphics (2)"},
		},
		{
			name:  "unnamed devices",
			names: []string{"", "   ", "RTX"},
			want:  []string{"GPU 1", "GPU 2", "RTX"},
		},
		{
			name:   "truncated to max length",
			names:  []string{"NVIDIA GeForce RTX 4090 Laptop GPU"},
			maxLen: 18,
			want:   []string{"NVIDIA GeForce RTX"},
		},
		{
			name:   "truncation keeps suffix",
			names:  []string{"NVIDIA GeForce RTX 4090", "NVIDIA GeForce RTX 4090"},
			maxLen: 6,
			want:   []string{"NVIDIA (1)", "NVIDIA (2)"},
		},
		{
			name:   "truncation counts runes",
			names:  []string{"Ärger GPU"},
			maxLen: 3,
			want:   []string{"Ärg"},
		},
		{
			name:  "empty list",
			names: nil,
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeviceLabels(devicesNamed(tt.names...), tt.maxLen))
		})
	}
}

func TestDeviceLabel(t *testing.T) {
	devices := devicesNamed("A", "A", "B")

	assert.Equal(t, "A (1)", DeviceLabel(devices, 0, 0))
	assert.Equal(t, "A (2)", DeviceLabel(devices, 1, 0))
	assert.Equal(t, "B", DeviceLabel(devices, 2, 0))
	assert.Equal(t, "GPU 4", DeviceLabel(devices, 3, 0))
}
