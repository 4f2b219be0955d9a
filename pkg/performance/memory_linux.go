//go:build linux
// +build linux

package performance

import (
	"log"
	"syscall"
	"time"
)

// GetSystemMemory retrieves current system memory information on Linux via
// syscall.Sysinfo. Available memory counts free plus buffer pages since the
// kernel reclaims buffers under pressure.
func GetSystemMemory() MemorySnapshot {
	var info syscall.Sysinfo_t
	if err := syscall.Sysinfo(&info); err != nil {
		log.Printf("GetSystemMemory: sysinfo failed: %v", err)
		return MemorySnapshot{Timestamp: time.Now()}
	}

	unit := uint64(info.Unit)
	totalMB := (info.Totalram * unit) / (1024 * 1024)
	freeMB := (info.Freeram * unit) / (1024 * 1024)
	bufferMB := (info.Bufferram * unit) / (1024 * 1024)

	availableMB := freeMB + bufferMB
	usedMB := totalMB - availableMB

	return MemorySnapshot{
		Timestamp:   time.Now(),
		TotalMB:     totalMB,
		AvailableMB: availableMB,
		UsedMB:      usedMB,
		FreeMB:      freeMB,
	}
}
