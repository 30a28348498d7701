// Package sampler produces telemetry frames from the local host, so the full
// stream pipeline can run without a backend.
package sampler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/net"

	"github.com/rileyhilliard/statwatch/internal/telemetry"
)

// Source produces one snapshot per call.
type Source interface {
	Sample(ctx context.Context) (telemetry.Snapshot, error)
}

// counters are cumulative byte totals used to derive per-second rates.
type counters struct {
	diskRead, diskWrite uint64
	netRecv, netSent    uint64
	at                  time.Time
}

// HostSource samples the local machine with gopsutil. The first sample
// reports zero rates because there is no previous reading to compare with.
type HostSource struct {
	DiskPath string

	mu      sync.Mutex
	prev    *counters
	cpuName string
	now     func() time.Time
}

// NewHostSource returns a source reading disk usage for path ("/" if empty).
func NewHostSource(path string) *HostSource {
	if path == "" {
		path = "/"
	}
	return &HostSource{DiskPath: path, now: time.Now}
}

// Sample reads CPU, memory, disk and network figures. GPU devices are not
// sampled locally. Individual probe failures leave their section zeroed;
// an error is returned only when memory cannot be read at all.
func (h *HostSource) Sample(ctx context.Context) (telemetry.Snapshot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	snap := telemetry.Snapshot{Timestamp: now.UnixMilli()}

	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		snap.CPU.UsagePercent = clampPercent(pct[0])
	}
	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		snap.CPU.LogicalProcessorCount = n
	}
	if h.cpuName == "" {
		if info, err := cpu.InfoWithContext(ctx); err == nil && len(info) > 0 {
			h.cpuName = info[0].ModelName
		}
	}
	snap.CPU.Name = h.cpuName

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return telemetry.Snapshot{}, fmt.Errorf("read memory: %w", err)
	}
	snap.Memory = telemetry.Memory{
		TotalBytes:     toInt64(vm.Total),
		UsedBytes:      toInt64(vm.Used),
		AvailableBytes: toInt64(vm.Available),
		UsagePercent:   clampPercent(vm.UsedPercent),
	}

	if du, err := disk.UsageWithContext(ctx, h.DiskPath); err == nil {
		snap.Disk.TotalBytes = toInt64(du.Total)
		snap.Disk.UsedBytes = toInt64(du.Used)
		snap.Disk.UsagePercent = clampPercent(du.UsedPercent)
	}

	cur := counters{at: now}
	if dio, err := disk.IOCountersWithContext(ctx); err == nil {
		for _, c := range dio {
			cur.diskRead += c.ReadBytes
			cur.diskWrite += c.WriteBytes
		}
	}
	if nio, err := net.IOCountersWithContext(ctx, false); err == nil && len(nio) > 0 {
		cur.netRecv = nio[0].BytesRecv
		cur.netSent = nio[0].BytesSent
	}
	snap.Network.TotalBytesReceived = toInt64(cur.netRecv)
	snap.Network.TotalBytesSent = toInt64(cur.netSent)

	if h.prev != nil {
		elapsed := cur.at.Sub(h.prev.at)
		snap.Disk.ReadBytesPerSecond = rate(h.prev.diskRead, cur.diskRead, elapsed)
		snap.Disk.WriteBytesPerSecond = rate(h.prev.diskWrite, cur.diskWrite, elapsed)
		snap.Network.DownloadBytesPerSecond = rate(h.prev.netRecv, cur.netRecv, elapsed)
		snap.Network.UploadBytesPerSecond = rate(h.prev.netSent, cur.netSent, elapsed)
	}
	h.prev = &cur

	return snap, nil
}

// rate returns bytes per second between two cumulative readings. A counter
// that went backwards (reset or wrap) yields 0.
func rate(prev, cur uint64, elapsed time.Duration) int64 {
	if cur < prev || elapsed <= 0 {
		return 0
	}
	return toInt64(uint64(float64(cur-prev) / elapsed.Seconds()))
}

func toInt64(v uint64) int64 {
	const maxInt64 = 1<<63 - 1
	if v > maxInt64 {
		return maxInt64
	}
	return int64(v)
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
