//go:build darwin
// +build darwin

package performance

import (
	"runtime"
	"time"
)

// GetSystemMemory approximates system memory on macOS from Go runtime stats.
// Darwin has no syscall.Sysinfo; development builds only need something in
// the right order of magnitude for the device-tier probe.
func GetSystemMemory() MemorySnapshot {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	sysMB := m.Sys / (1024 * 1024)
	totalMB := uint64(8192) // development machine assumption
	usedMB := sysMB
	freeMB := totalMB - usedMB
	availableMB := freeMB
	if availableMB > totalMB {
		availableMB = totalMB / 2
	}

	return MemorySnapshot{
		Timestamp:   time.Now(),
		TotalMB:     totalMB,
		AvailableMB: availableMB,
		UsedMB:      usedMB,
		FreeMB:      freeMB,
	}
}
