package preload

import (
	"log"

	"hushfeed/pkg/netquality"
	"hushfeed/pkg/performance"
)

// DeviceTier is the coarse capability classification computed once at
// startup from total device memory.
type DeviceTier int

const (
	DeviceLow DeviceTier = iota
	DeviceMid
	DeviceHigh
)

func (d DeviceTier) String() string {
	switch d {
	case DeviceLow:
		return "Low"
	case DeviceMid:
		return "Mid"
	case DeviceHigh:
		return "High"
	default:
		return "Unknown"
	}
}

// DeviceProfile fixes the preload budget for the life of the process.
// PreloadWindowSize is the widest look-ahead the device can afford;
// MaxLiveUnits bounds how many players may exist at once.
type DeviceProfile struct {
	Tier              DeviceTier
	PreloadWindowSize int
	MaxLiveUnits      int
}

// DetectProfile probes total system memory once and derives the profile.
func DetectProfile() DeviceProfile {
	totalMB := performance.GetSystemMemory().TotalMB
	profile := ProfileForMemory(totalMB)
	log.Printf("DetectProfile: totalMB=%d tier=%s window=%d maxLive=%d",
		totalMB, profile.Tier, profile.PreloadWindowSize, profile.MaxLiveUnits)
	return profile
}

// ProfileForMemory maps total memory to a device profile. Each live player
// holds a decoder plus a frame texture, roughly 100-200MB per unit on the
// target hardware, which is what these thresholds budget for.
func ProfileForMemory(totalMB uint64) DeviceProfile {
	switch {
	case totalMB < 2048:
		return DeviceProfile{Tier: DeviceLow, PreloadWindowSize: 1, MaxLiveUnits: 3}
	case totalMB < 4096:
		return DeviceProfile{Tier: DeviceMid, PreloadWindowSize: 2, MaxLiveUnits: 5}
	default:
		return DeviceProfile{Tier: DeviceHigh, PreloadWindowSize: 3, MaxLiveUnits: 7}
	}
}

// WindowSize computes how many neighbors on each side of the active index
// keep a live playback unit. Pure: recomputed on network-quality change
// events, never per scroll frame. Always at least 1 so the active item
// itself is live.
func WindowSize(device DeviceProfile, network netquality.Tier) int {
	w := device.PreloadWindowSize

	switch network {
	case netquality.TierOffline, netquality.TierLow:
		// No point warming neighbors we cannot fill.
		w = 1
	case netquality.TierMid:
		// Device budget as-is.
	case netquality.TierHigh:
		w++
	}

	if max := device.MaxLiveUnits / 2; w > max {
		w = max
	}
	if w < 1 {
		w = 1
	}
	return w
}
