package performance

import (
	"log"
	"time"
)

// MemorySnapshot represents system memory state at a point in time.
type MemorySnapshot struct {
	Timestamp   time.Time
	TotalMB     uint64
	AvailableMB uint64
	UsedMB      uint64
	FreeMB      uint64
}

// MemoryPressureLevel classifies how much headroom is left for live players.
type MemoryPressureLevel int

const (
	MemoryPressureNone     MemoryPressureLevel = iota // >800MB available
	MemoryPressureLow                                 // 400-800MB available
	MemoryPressureMedium                              // 200-400MB available
	MemoryPressureHigh                                // 100-200MB available
	MemoryPressureCritical                            // <100MB available
)

// GetMemoryPressure returns the current memory pressure level.
func GetMemoryPressure() MemoryPressureLevel {
	available := GetSystemMemory().AvailableMB

	switch {
	case available < 100:
		return MemoryPressureCritical
	case available < 200:
		return MemoryPressureHigh
	case available < 400:
		return MemoryPressureMedium
	case available < 800:
		return MemoryPressureLow
	default:
		return MemoryPressureNone
	}
}

// String returns a human-readable description of memory pressure.
func (m MemoryPressureLevel) String() string {
	switch m {
	case MemoryPressureNone:
		return "None"
	case MemoryPressureLow:
		return "Low"
	case MemoryPressureMedium:
		return "Medium"
	case MemoryPressureHigh:
		return "High"
	case MemoryPressureCritical:
		return "Critical"
	default:
		return "Unknown"
	}
}

// LogMemorySnapshot logs the system memory state and current pressure.
func LogMemorySnapshot() {
	sys := GetSystemMemory()
	pressure := GetMemoryPressure()
	log.Printf("Memory: Total=%dMB Avail=%dMB Used=%dMB Free=%dMB Pressure=%s",
		sys.TotalMB, sys.AvailableMB, sys.UsedMB, sys.FreeMB, pressure.String())
}
