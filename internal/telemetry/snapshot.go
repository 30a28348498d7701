// Package telemetry defines the canonical host snapshot and the lenient
// normalization of raw stream frames into it.
package telemetry

// Snapshot is one normalized telemetry measurement. The zero value is the
// "no data yet" snapshot (Timestamp 0).
//
// JSON tags follow the wire shape published on the stats topic, so a Snapshot
// marshals to a frame that Normalize accepts.
type Snapshot struct {
	Timestamp int64    `json:"timestamp"` // epoch milliseconds
	CPU       CPU      `json:"cpu"`
	Memory    Memory   `json:"memory"`
	Devices   []Device `json:"gpus"`
	Disk      Disk     `json:"disk"`
	Network   Network  `json:"network"`
}

// CPU contains processor usage information.
type CPU struct {
	Name                  string  `json:"name,omitempty"`
	UsagePercent          float64 `json:"usagePercent"`
	LogicalProcessorCount int     `json:"logicalProcessorCount"`
	// TemperatureCelsius <= 0 means unknown.
	TemperatureCelsius float64 `json:"temperatureCelsius,omitempty"`
}

// HasTemperature reports whether the producer supplied a usable reading.
func (c CPU) HasTemperature() bool { return c.TemperatureCelsius > 0 }

// Memory contains RAM usage information.
type Memory struct {
	TotalBytes     int64   `json:"totalBytes"`
	UsedBytes      int64   `json:"usedBytes"`
	AvailableBytes int64   `json:"availableBytes"`
	UsagePercent   float64 `json:"usagePercent"`
}

// Device is a single GPU-like entry.
type Device struct {
	Name           string  `json:"name"`
	UsagePercent   float64 `json:"usagePercent"`
	VRAMUsedBytes  int64   `json:"vramUsedBytes"`
	VRAMTotalBytes int64   `json:"vramTotalBytes"`
	// TemperatureCelsius <= 0 means unknown.
	TemperatureCelsius float64 `json:"temperatureCelsius,omitempty"`
}

// HasTemperature reports whether the producer supplied a usable reading.
func (d Device) HasTemperature() bool { return d.TemperatureCelsius > 0 }

// Disk contains disk throughput and capacity.
type Disk struct {
	ReadBytesPerSecond  int64   `json:"readBytesPerSecond"`
	WriteBytesPerSecond int64   `json:"writeBytesPerSecond"`
	TotalBytes          int64   `json:"totalBytes"`
	UsedBytes           int64   `json:"usedBytes"`
	UsagePercent        float64 `json:"usagePercent"`
}

// Network contains throughput and session counters. The totals are
// non-decreasing across snapshots from the same producer session.
type Network struct {
	DownloadBytesPerSecond int64 `json:"downloadBytesPerSecond"`
	UploadBytesPerSecond   int64 `json:"uploadBytesPerSecond"`
	TotalBytesReceived     int64 `json:"totalBytesReceived"`
	TotalBytesSent         int64 `json:"totalBytesSent"`
}

// IsZero reports whether this is the "no data yet" snapshot.
func (s Snapshot) IsZero() bool {
	return s.Timestamp == 0
}

// PrimaryDevice returns the first device in the list. Single-value displays,
// alerting and export all read the primary device rather than aggregating
// across devices.
func (s Snapshot) PrimaryDevice() (Device, bool) {
	if len(s.Devices) == 0 {
		return Device{}, false
	}
	return s.Devices[0], true
}

// Clone returns a deep copy so the device slice is never shared.
func (s Snapshot) Clone() Snapshot {
	if s.Devices != nil {
		devices := make([]Device, len(s.Devices))
		copy(devices, s.Devices)
		s.Devices = devices
	}
	return s
}
