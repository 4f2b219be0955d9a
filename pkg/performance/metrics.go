package performance

import (
	"sync"
	"time"
)

// RollingAverage maintains a rolling average of durations over a fixed window.
type RollingAverage struct {
	samples    []time.Duration
	maxSamples int
	sum        time.Duration
	index      int
	filled     bool
	mu         sync.RWMutex
}

// NewRollingAverage creates a rolling average tracker with the given window.
func NewRollingAverage(windowSize int) *RollingAverage {
	return &RollingAverage{
		samples:    make([]time.Duration, windowSize),
		maxSamples: windowSize,
	}
}

// Add records a new sample.
func (r *RollingAverage) Add(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.filled {
		r.sum -= r.samples[r.index]
	}
	r.samples[r.index] = d
	r.sum += d

	r.index++
	if r.index >= r.maxSamples {
		r.index = 0
		r.filled = true
	}
}

// Average returns the current rolling average.
func (r *RollingAverage) Average() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := r.index
	if r.filled {
		count = r.maxSamples
	}
	if count == 0 {
		return 0
	}
	return r.sum / time.Duration(count)
}

// Reset clears all samples.
func (r *RollingAverage) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sum = 0
	r.index = 0
	r.filled = false
	r.samples = make([]time.Duration, r.maxSamples)
}

// FeedMetrics tracks playback-lifecycle health for the feed screen's
// periodic log line: how long media takes to arrive, how long binding a
// player takes, and how often playback stalls or is retried.
type FeedMetrics struct {
	mediaLoadTimes *RollingAverage
	bindTimes      *RollingAverage
	stalls         int
	retries        int
	itemsPlayed    int
	startTime      time.Time
	mu             sync.RWMutex
}

// FeedReport is a snapshot of FeedMetrics.
type FeedReport struct {
	AvgMediaLoadMs float64
	AvgBindMs      float64
	Stalls         int
	Retries        int
	ItemsPlayed    int
	UptimeSeconds  int64
	IsHealthy      bool
}

// NewFeedMetrics creates a metrics tracker averaging the last windowSize
// load/bind events.
func NewFeedMetrics(windowSize int) *FeedMetrics {
	return &FeedMetrics{
		mediaLoadTimes: NewRollingAverage(windowSize),
		bindTimes:      NewRollingAverage(windowSize),
		startTime:      time.Now(),
	}
}

// RecordMediaLoad records the time to fetch one media file into the cache.
func (f *FeedMetrics) RecordMediaLoad(d time.Duration) {
	f.mediaLoadTimes.Add(d)
}

// RecordBind records the time from local media to a ready player.
func (f *FeedMetrics) RecordBind(d time.Duration) {
	f.bindTimes.Add(d)
}

// RecordStall counts one visible playback stall.
func (f *FeedMetrics) RecordStall() {
	f.mu.Lock()
	f.stalls++
	f.mu.Unlock()
}

// RecordRetry counts one automatic recovery attempt.
func (f *FeedMetrics) RecordRetry() {
	f.mu.Lock()
	f.retries++
	f.mu.Unlock()
}

// RecordItemPlayed counts one confession reaching Playing.
func (f *FeedMetrics) RecordItemPlayed() {
	f.mu.Lock()
	f.itemsPlayed++
	f.mu.Unlock()
}

// GetReport returns a snapshot of current metrics. Healthy means stalls and
// retries are rare relative to items played.
func (f *FeedMetrics) GetReport() FeedReport {
	f.mu.RLock()
	defer f.mu.RUnlock()

	played := f.itemsPlayed
	healthy := true
	if played > 0 {
		healthy = float64(f.stalls+f.retries)/float64(played) < 0.2
	}

	return FeedReport{
		AvgMediaLoadMs: float64(f.mediaLoadTimes.Average().Microseconds()) / 1000.0,
		AvgBindMs:      float64(f.bindTimes.Average().Microseconds()) / 1000.0,
		Stalls:         f.stalls,
		Retries:        f.retries,
		ItemsPlayed:    played,
		UptimeSeconds:  int64(time.Since(f.startTime).Seconds()),
		IsHealthy:      healthy,
	}
}

// Reset clears all metrics.
func (f *FeedMetrics) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.mediaLoadTimes.Reset()
	f.bindTimes.Reset()
	f.stalls = 0
	f.retries = 0
	f.itemsPlayed = 0
	f.startTime = time.Now()
}
