package server

import (
	"context"
	"os"
	"time"

	"github.com/jingkaihe/skillcat/pkg/logger"
	"github.com/shirou/gopsutil/v4/process"
)

// ProcessInfo describes the serving process in GET /api/status.
type ProcessInfo struct {
	PID       int32     `json:"pid"`
	RSSBytes  uint64    `json:"rss_bytes"`
	Threads   int32     `json:"threads"`
	StartedAt time.Time `json:"started_at"`
}

// currentProcess returns nil when the platform does not expose process
// statistics.
func currentProcess(ctx context.Context) *ProcessInfo {
	p, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		logger.G(ctx).WithError(err).Debug("process statistics unavailable")
		return nil
	}

	info := &ProcessInfo{PID: p.Pid}
	if mem, err := p.MemoryInfoWithContext(ctx); err == nil {
		info.RSSBytes = mem.RSS
	}
	if threads, err := p.NumThreadsWithContext(ctx); err == nil {
		info.Threads = threads
	}
	if created, err := p.CreateTimeWithContext(ctx); err == nil {
		info.StartedAt = time.UnixMilli(created).UTC()
	}
	return info
}
