package playback

import (
	"log"
	"sync"
	"time"

	"hushfeed/pkg/performance"
)

// DecodeRate is the active decode cadence relative to the render loop.
type DecodeRate int

const (
	RateFull DecodeRate = iota // decode every frame
	RateHalf                   // decode every 2nd frame
	RateThird                  // decode every 3rd frame
)

func (r DecodeRate) String() string {
	switch r {
	case RateFull:
		return "full"
	case RateHalf:
		return "half"
	case RateThird:
		return "third"
	default:
		return "unknown"
	}
}

// FrameSkipper throttles decode work when the active unit's decoder cannot
// keep up with the render loop. It watches observed decode times and, with
// hysteresis to avoid thrashing, drops to half- or third-rate decoding
// until performance recovers. Rendering stays at full rate throughout; only
// the decode step is skipped.
type FrameSkipper struct {
	rate      DecodeRate
	frame     uint64
	slowRun   int
	goodRun   int
	avg       *performance.RollingAverage
	slowOver  time.Duration
	goodUnder time.Duration

	mu sync.Mutex
}

// Hysteresis: runs of slow frames drop the rate, long runs of good frames
// restore it one step at a time.
const (
	skipEnterHalf  = 3
	skipEnterThird = 5
	skipExitFull   = 60
	skipExitHalf   = 30
)

// NewFrameSkipper creates a skipper tuned for a 60fps loop: decode times
// past ~30ms blow the frame budget, under 20ms leaves headroom.
func NewFrameSkipper() *FrameSkipper {
	return &FrameSkipper{
		rate:      RateFull,
		avg:       performance.NewRollingAverage(30),
		slowOver:  30 * time.Millisecond,
		goodUnder: 20 * time.Millisecond,
	}
}

// Observe records how long the last decode took.
func (f *FrameSkipper) Observe(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.avg.Add(d)
	avg := f.avg.Average()

	switch {
	case avg > f.slowOver:
		f.slowRun++
		f.goodRun = 0
	case avg < f.goodUnder:
		f.goodRun++
		f.slowRun = 0
	default:
		f.slowRun = 0
		f.goodRun = 0
	}

	switch f.rate {
	case RateFull:
		if f.slowRun >= skipEnterHalf {
			f.setRateLocked(RateHalf)
		}
	case RateHalf:
		if f.slowRun >= skipEnterThird {
			f.setRateLocked(RateThird)
		} else if f.goodRun >= skipExitFull {
			f.setRateLocked(RateFull)
		}
	case RateThird:
		if f.goodRun >= skipExitHalf {
			f.setRateLocked(RateHalf)
		}
	}
}

func (f *FrameSkipper) setRateLocked(rate DecodeRate) {
	log.Printf("FrameSkipper: decode rate %s -> %s (avg %.1fms)",
		f.rate, rate, float64(f.avg.Average().Microseconds())/1000.0)
	f.rate = rate
	f.slowRun = 0
	f.goodRun = 0
}

// Advance counts one render frame and reports whether this frame should
// decode. Call it once per frame, before the decode step.
func (f *FrameSkipper) Advance() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.frame++
	switch f.rate {
	case RateHalf:
		return f.frame%2 == 0
	case RateThird:
		return f.frame%3 == 0
	default:
		return true
	}
}

// Rate returns the current decode cadence.
func (f *FrameSkipper) Rate() DecodeRate {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rate
}

// Reset restores full-rate decoding. Call it when the active unit changes
// so one slow decoder does not penalize the next video.
func (f *FrameSkipper) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.rate != RateFull {
		log.Printf("FrameSkipper: reset to full rate")
	}
	f.rate = RateFull
	f.frame = 0
	f.slowRun = 0
	f.goodRun = 0
	f.avg.Reset()
}
