// Package status collects a process and host snapshot for the status
// endpoint.
package status

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Snapshot is the payload served by GET /status.
type Snapshot struct {
	StartedAt     time.Time `json:"started_at"`
	UptimeSeconds int64     `json:"uptime_seconds"`
	Goroutines    int       `json:"goroutines"`
	GoVersion     string    `json:"go_version"`

	ProcessRSSBytes   uint64  `json:"process_rss_bytes,omitempty"`
	ProcessCPUPercent float64 `json:"process_cpu_percent,omitempty"`
	HostMemoryPercent float64 `json:"host_memory_percent,omitempty"`
}

// Collect gathers the snapshot. Host probes that fail are simply omitted.
func Collect(ctx context.Context) Snapshot {
	snapshot := Snapshot{
		Goroutines: runtime.NumGoroutine(),
		GoVersion:  runtime.Version(),
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		snapshot.HostMemoryPercent = vm.UsedPercent
	}

	if proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid())); err == nil {
		if info, err := proc.MemoryInfoWithContext(ctx); err == nil && info != nil {
			snapshot.ProcessRSSBytes = info.RSS
		}
		if cpu, err := proc.CPUPercentWithContext(ctx); err == nil {
			snapshot.ProcessCPUPercent = cpu
		}
	}

	return snapshot
}
