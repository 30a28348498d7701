// Package alert evaluates a snapshot against fixed resource thresholds.
package alert

import (
	"fmt"

	"github.com/rileyhilliard/statwatch/internal/telemetry"
)

// Thresholds in percent. A reading must be strictly greater to fire.
const (
	CPUThreshold = 90.0
	RAMThreshold = 80.0
	GPUThreshold = 85.0
)

// Resource identifies what an alert is about.
type Resource string

const (
	ResourceCPU Resource = "cpu"
	ResourceRAM Resource = "ram"
	ResourceGPU Resource = "gpu"
)

// Alert is a single threshold breach.
type Alert struct {
	Resource  Resource
	Title     string
	Value     float64
	Threshold float64
}

// String renders the banner text, e.g.
// "CPU usage critical: 95.0% (threshold 90%)".
func (a Alert) String() string {
	return fmt.Sprintf("%s: %.1f%% (threshold %g%%)", a.Title, a.Value, a.Threshold)
}

// Evaluate returns the alerts for s in CPU, RAM, GPU order. Only the primary
// device is checked. The result is empty when nothing breaches.
func Evaluate(s telemetry.Snapshot) []Alert {
	var alerts []Alert

	if s.CPU.UsagePercent > CPUThreshold {
		alerts = append(alerts, Alert{
			Resource:  ResourceCPU,
			Title:     "CPU usage critical",
			Value:     s.CPU.UsagePercent,
			Threshold: CPUThreshold,
		})
	}
	if s.Memory.UsagePercent > RAMThreshold {
		alerts = append(alerts, Alert{
			Resource:  ResourceRAM,
			Title:     "RAM usage high",
			Value:     s.Memory.UsagePercent,
			Threshold: RAMThreshold,
		})
	}
	if d, ok := s.PrimaryDevice(); ok && d.UsagePercent > GPUThreshold {
		alerts = append(alerts, Alert{
			Resource:  ResourceGPU,
			Title:     "GPU usage critical",
			Value:     d.UsagePercent,
			Threshold: GPUThreshold,
		})
	}

	return alerts
}

// Messages returns the banner strings for s.
func Messages(s telemetry.Snapshot) []string {
	alerts := Evaluate(s)
	out := make([]string, len(alerts))
	for i, a := range alerts {
		out[i] = a.String()
	}
	return out
}
