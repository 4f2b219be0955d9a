package recovery

import (
	"log"
	"sync"
	"time"
)

// BreakerState is a snapshot of the circuit breaker.
type BreakerState struct {
	FailureCount  int
	IsOpen        bool
	LastFailureAt time.Time
}

// Breaker stops load attempts against a failing backend: closed until N
// consecutive failures, then open for a cooldown, then half-open allowing a
// single probe. A half-open success closes it fully; a half-open failure
// reopens it with the failure count halved rather than reset, so a flapping
// backend reopens the breaker quickly.
//
// Construct one per feed screen and inject it; never share a package-level
// instance, so tests get fresh state per case.
type Breaker struct {
	mu sync.Mutex

	failureThreshold int
	cooldown         time.Duration

	failures    int
	open        bool
	openedAt    time.Time
	probing     bool // half-open probe outstanding
	lastFailure time.Time

	now func() time.Time
}

// NewBreaker creates a closed breaker opening after failureThreshold
// consecutive failures and cooling down for cooldown before half-open.
func NewBreaker(failureThreshold int, cooldown time.Duration) *Breaker {
	return &Breaker{
		failureThreshold: failureThreshold,
		cooldown:         cooldown,
		now:              time.Now,
	}
}

// CanAttempt reports whether a new load attempt may be issued. While open it
// returns false until the cooldown elapses, after which it admits exactly
// one probe (half-open) until that probe resolves.
func (b *Breaker) CanAttempt() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return true
	}
	if b.now().Sub(b.openedAt) < b.cooldown {
		return false
	}
	// Half-open: one probe at a time.
	if b.probing {
		return false
	}
	b.probing = true
	log.Printf("CanAttempt: breaker half-open, admitting probe")
	return true
}

// RecordSuccess credits a successful attempt: a half-open probe closes the
// breaker and zeroes the failure count; while closed it decrements the
// count so sustained success fully resets it.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.open {
		b.open = false
		b.probing = false
		b.failures = 0
		log.Printf("RecordSuccess: breaker closed after successful probe")
		return
	}
	if b.failures > 0 {
		b.failures--
	}
}

// RecordFailure registers a failed attempt, opening the breaker at the
// threshold. A failed half-open probe reopens immediately with the failure
// count halved.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastFailure = b.now()

	if b.open {
		if b.probing {
			b.probing = false
			b.failures = b.failures / 2
			if b.failures < 1 {
				b.failures = 1
			}
			b.openedAt = b.now()
			log.Printf("RecordFailure: probe failed, breaker re-opened (failures=%d)", b.failures)
		}
		return
	}

	b.failures++
	if b.failures >= b.failureThreshold {
		b.open = true
		b.probing = false
		b.openedAt = b.now()
		log.Printf("RecordFailure: breaker opened after %d consecutive failures", b.failures)
	}
}

// Reset closes the breaker and zeroes all counts. Wired to manual refresh.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.open = false
	b.probing = false
}

// State returns a snapshot for diagnostics.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()

	return BreakerState{
		FailureCount:  b.failures,
		IsOpen:        b.open,
		LastFailureAt: b.lastFailure,
	}
}
