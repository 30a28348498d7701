package telemetry

import (
	"math"

	"github.com/spf13/cast"
)

// Normalize reshapes a decoded frame into a Snapshot. It never fails: missing
// or structurally wrong fields degrade to zero values, percents are clamped to
// [0,100] and byte counters to >= 0.
//
// Device list resolution: a non-empty "gpus" list wins; otherwise a legacy
// "gpu" object becomes the sole element; otherwise the list is empty.
func Normalize(frame map[string]any) Snapshot {
	cpu := object(frame["cpu"])
	memory := object(frame["memory"])
	disk := object(frame["disk"])
	network := object(frame["network"])

	s := Snapshot{
		Timestamp: count(frame["timestamp"]),
		CPU: CPU{
			Name:                  text(cpu["name"]),
			UsagePercent:          percent(cpu["usagePercent"]),
			LogicalProcessorCount: int(count(cpu["logicalProcessorCount"])),
			TemperatureCelsius:    temperature(cpu["temperatureCelsius"]),
		},
		Memory: Memory{
			TotalBytes:     count(memory["totalBytes"]),
			UsedBytes:      count(memory["usedBytes"]),
			AvailableBytes: count(memory["availableBytes"]),
			UsagePercent:   percent(memory["usagePercent"]),
		},
		Devices: resolveDevices(frame["gpus"], frame["gpu"]),
		Disk: Disk{
			ReadBytesPerSecond:  count(disk["readBytesPerSecond"]),
			WriteBytesPerSecond: count(disk["writeBytesPerSecond"]),
			TotalBytes:          count(disk["totalBytes"]),
			UsedBytes:           count(disk["usedBytes"]),
			UsagePercent:        percent(disk["usagePercent"]),
		},
		Network: Network{
			DownloadBytesPerSecond: count(network["downloadBytesPerSecond"]),
			UploadBytesPerSecond:   count(network["uploadBytesPerSecond"]),
			TotalBytesReceived:     count(network["totalBytesReceived"]),
			TotalBytesSent:         count(network["totalBytesSent"]),
		},
	}

	s.Memory.UsedBytes = capAt(s.Memory.UsedBytes, s.Memory.TotalBytes)
	s.Disk.UsedBytes = capAt(s.Disk.UsedBytes, s.Disk.TotalBytes)

	return s
}

func resolveDevices(list, legacy any) []Device {
	var devices []Device
	if items, ok := list.([]any); ok {
		for _, item := range items {
			if obj, ok := item.(map[string]any); ok {
				devices = append(devices, device(obj))
			}
		}
	}
	if len(devices) > 0 {
		return devices
	}
	if obj, ok := legacy.(map[string]any); ok {
		return []Device{device(obj)}
	}
	return nil
}

func device(obj map[string]any) Device {
	d := Device{
		Name:               text(obj["name"]),
		UsagePercent:       percent(obj["usagePercent"]),
		VRAMUsedBytes:      count(obj["vramUsedBytes"]),
		VRAMTotalBytes:     count(obj["vramTotalBytes"]),
		TemperatureCelsius: temperature(obj["temperatureCelsius"]),
	}
	d.VRAMUsedBytes = capAt(d.VRAMUsedBytes, d.VRAMTotalBytes)
	return d
}

// object returns v as a JSON object, or nil. Indexing a nil map yields nil,
// so callers can read fields without checking.
func object(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// number coerces scalars (numbers and numeric strings) to a finite float64.
// Anything else, including booleans and nested values, is 0.
func number(v any) float64 {
	switch v.(type) {
	case nil, bool, map[string]any, []any:
		return 0
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func percent(v any) float64 {
	f := number(v)
	switch {
	case f < 0:
		return 0
	case f > 100:
		return 100
	}
	return f
}

func count(v any) int64 {
	f := number(v)
	if f <= 0 {
		return 0
	}
	if f >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(f)
}

func temperature(v any) float64 {
	f := number(v)
	if f <= 0 {
		return 0
	}
	return f
}

func text(v any) string {
	s, _ := v.(string)
	return s
}

func capAt(v, limit int64) int64 {
	if limit > 0 && v > limit {
		return limit
	}
	return v
}
