// Package export renders the history window as a CSV document.
package export

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/rileyhilliard/statwatch/internal/telemetry"
)

// Header is the fixed column order of the document.
var Header = []string{
	"timestamp",
	"cpu_usage_percent",
	"memory_usage_percent",
	"memory_used_bytes",
	"memory_total_bytes",
	"gpu_usage_percent",
	"gpu_name",
	"disk_usage_percent",
	"disk_read_bps",
	"disk_write_bps",
	"network_download_bps",
	"network_upload_bps",
}

// CSV renders history oldest-first. Rows are joined with "\n" and the document
// has no trailing newline. An empty history yields nil.
//
// GPU columns come from the primary device. The device name is always
// quoted, so encoding/csv (which quotes only when needed) is not used here.
func CSV(history []telemetry.Snapshot) []byte {
	if len(history) == 0 {
		return nil
	}

	var buf bytes.Buffer
	buf.WriteString(strings.Join(Header, ","))
	for _, s := range history {
		buf.WriteByte('\n')
		buf.WriteString(strings.Join(row(s), ","))
	}
	return buf.Bytes()
}

func row(s telemetry.Snapshot) []string {
	gpuUsage, gpuName := "", ""
	if d, ok := s.PrimaryDevice(); ok {
		gpuUsage = formatFloat(d.UsagePercent)
		gpuName = d.Name
	}

	return []string{
		strconv.FormatInt(s.Timestamp, 10),
		formatFloat(s.CPU.UsagePercent),
		formatFloat(s.Memory.UsagePercent),
		strconv.FormatInt(s.Memory.UsedBytes, 10),
		strconv.FormatInt(s.Memory.TotalBytes, 10),
		gpuUsage,
		quote(gpuName),
		formatFloat(s.Disk.UsagePercent),
		strconv.FormatInt(s.Disk.ReadBytesPerSecond, 10),
		strconv.FormatInt(s.Disk.WriteBytesPerSecond, 10),
		strconv.FormatInt(s.Network.DownloadBytesPerSecond, 10),
		strconv.FormatInt(s.Network.UploadBytesPerSecond, 10),
	}
}

// formatFloat uses the shortest representation that round-trips (55.2, 100).
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
