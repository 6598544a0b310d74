// Package autotune picks exporter concurrency settings from host resource
// signals (spec.md §4.6 "Auto-tuning"), the Go analog of
// original_source/kl3m_data/cli/parquet_to_jsonl.py's
// detect_system_resources.
package autotune

import (
	"runtime"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// Settings is the concurrency profile picked for the current host.
type Settings struct {
	Fetchers          int
	QueueDepth        int
	ParallelDownloads int
	CPUCount          int
	MemoryGB          float64
	FreeDiskGB        float64
}

// Caps bounds the values Detect may return, set from configuration.
type Caps struct {
	MaxFetchers   int
	MaxQueueDepth int
}

// Detect inspects CPU count, total memory, and free disk space and
// returns a deterministic concurrency profile for this host, clamped to
// caps. Detection failures fall back to small, safe defaults rather than
// failing the caller.
func Detect(caps Caps) Settings {
	cpuCount := runtime.NumCPU()

	memoryGB := 0.0
	if vm, err := mem.VirtualMemory(); err == nil {
		memoryGB = float64(vm.Total) / (1024 * 1024 * 1024)
	}

	freeDiskGB := 0.0
	if du, err := disk.Usage("/"); err == nil {
		freeDiskGB = float64(du.Free) / (1024 * 1024 * 1024)
	}

	isLarge := cpuCount >= 16 && memoryGB >= 32
	isVeryLarge := cpuCount >= 32 && memoryGB >= 64

	var settings Settings
	switch {
	case isVeryLarge:
		settings = Settings{Fetchers: min(64, cpuCount), QueueDepth: 15000, ParallelDownloads: 100}
	case isLarge:
		settings = Settings{Fetchers: min(32, cpuCount), QueueDepth: 10000, ParallelDownloads: 50}
	default:
		settings = Settings{Fetchers: min(16, max(4, cpuCount-2)), QueueDepth: 5000, ParallelDownloads: 20}
	}

	settings.CPUCount = cpuCount
	settings.MemoryGB = memoryGB
	settings.FreeDiskGB = freeDiskGB

	if caps.MaxFetchers > 0 && settings.Fetchers > caps.MaxFetchers {
		settings.Fetchers = caps.MaxFetchers
	}
	if caps.MaxQueueDepth > 0 && settings.QueueDepth > caps.MaxQueueDepth {
		settings.QueueDepth = caps.MaxQueueDepth
	}

	return settings
}
