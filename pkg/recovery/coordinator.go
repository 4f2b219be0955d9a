package recovery

import (
	"log"
	"sync"
	"time"
)

// Outcome says what the coordinator decided to do with a reported error.
type Outcome int

const (
	OutcomeScheduledRetry Outcome = iota
	OutcomeScheduledFallback
	OutcomeCoalesced
	OutcomeRejected
	OutcomeGaveUp
)

func (o Outcome) String() string {
	switch o {
	case OutcomeScheduledRetry:
		return "ScheduledRetry"
	case OutcomeScheduledFallback:
		return "ScheduledFallback"
	case OutcomeCoalesced:
		return "Coalesced"
	case OutcomeRejected:
		return "Rejected"
	case OutcomeGaveUp:
		return "GaveUp"
	default:
		return "Unknown"
	}
}

// Decision is the full result of ReportError, exposed so the feed
// controller can log it and tests can assert the chosen delay.
type Decision struct {
	Outcome Outcome
	Class   Class
	Delay   time.Duration
	Attempt int
}

// Callbacks are the coordinator's levers on the feed controller. They fire
// on timer goroutines; receivers must route back onto their own loop.
type Callbacks struct {
	// Retry reloads the same source for the item.
	Retry func(contentId string)
	// Fallback swaps the item to its fallback source and reloads.
	Fallback func(contentId string)
	// GiveUp surfaces a user-facing error for the item.
	GiveUp func(contentId string, class Class)
}

const (
	defaultMaxAttempts = 3
	defaultBackoffBase = 500 * time.Millisecond
	defaultBackoffCap  = 8 * time.Second
)

type retryState struct {
	attempt      int
	usedFallback bool
	scheduled    bool
	cancelled    bool
	timer        *time.Timer
}

// Coordinator decides, per failed content item, between retrying the same
// source, swapping to a fallback source, and giving up — gated by the
// circuit breaker. Retries for one id are strictly sequential: an error
// reported while a retry is pending coalesces into it. Owned by the feed
// controller and injected where needed; never a global.
type Coordinator struct {
	mu sync.Mutex

	breaker *Breaker
	cb      Callbacks

	maxAttempts int
	backoffBase time.Duration
	backoffCap  time.Duration

	pending    map[string]*retryState
	rejections int
}

// NewCoordinator creates a coordinator around the given breaker and
// callbacks with the default retry policy.
func NewCoordinator(breaker *Breaker, cb Callbacks) *Coordinator {
	return &Coordinator{
		breaker:     breaker,
		cb:          cb,
		maxAttempts: defaultMaxAttempts,
		backoffBase: defaultBackoffBase,
		backoffCap:  defaultBackoffCap,
		pending:     make(map[string]*retryState),
	}
}

// SetBackoff overrides the retry timing. Tests use millisecond delays.
func (c *Coordinator) SetBackoff(base, cap time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.backoffBase = base
	c.backoffCap = cap
}

// ReportError classifies err for the given item and schedules the next
// recovery step.
func (c *Coordinator) ReportError(contentId string, err error) Decision {
	class := Classify(err)

	if !class.Transient() {
		// PermissionDenied and unrecoverable Unknown surface immediately,
		// no silent retry.
		c.mu.Lock()
		c.clearLocked(contentId)
		c.mu.Unlock()
		c.cb.GiveUp(contentId, class)
		return Decision{Outcome: OutcomeGaveUp, Class: class}
	}

	c.breaker.RecordFailure()

	c.mu.Lock()

	st, ok := c.pending[contentId]
	if !ok {
		st = &retryState{}
		c.pending[contentId] = st
	}

	if st.scheduled {
		// A retry is already in flight for this id; the new error folds
		// into its backoff window.
		c.mu.Unlock()
		return Decision{Outcome: OutcomeCoalesced, Class: class, Attempt: st.attempt}
	}

	if !c.breaker.CanAttempt() {
		c.rejections++
		c.clearLocked(contentId)
		c.mu.Unlock()
		log.Printf("ReportError: breaker open, rejecting retry for %s (%s)", contentId, class)
		c.cb.GiveUp(contentId, class)
		return Decision{Outcome: OutcomeRejected, Class: class}
	}

	// Decode failures swap sources immediately rather than re-chewing the
	// same bitstream.
	if class == ClassDecode && !st.usedFallback {
		st.usedFallback = true
		st.attempt = 0
		d := Decision{Outcome: OutcomeScheduledFallback, Class: class}
		c.scheduleLocked(contentId, st, 0, c.cb.Fallback)
		c.mu.Unlock()
		return d
	}

	if st.attempt >= c.maxAttempts {
		if !st.usedFallback {
			// One more round against the fallback source, counter reset.
			st.usedFallback = true
			st.attempt = 0
			d := Decision{Outcome: OutcomeScheduledFallback, Class: class, Delay: c.backoffBase}
			c.scheduleLocked(contentId, st, c.backoffBase, c.cb.Fallback)
			c.mu.Unlock()
			return d
		}
		c.clearLocked(contentId)
		c.mu.Unlock()
		log.Printf("ReportError: giving up on %s after fallback exhausted (%s)", contentId, class)
		c.cb.GiveUp(contentId, class)
		return Decision{Outcome: OutcomeGaveUp, Class: class}
	}

	delay := c.backoffBase << uint(st.attempt)
	if delay > c.backoffCap {
		delay = c.backoffCap
	}
	if class == ClassRateLimited {
		// Longest delay tier regardless of attempt count.
		delay = c.backoffCap
	}

	st.attempt++
	d := Decision{Outcome: OutcomeScheduledRetry, Class: class, Delay: delay, Attempt: st.attempt}

	retry := c.cb.Retry
	if st.usedFallback {
		retry = c.cb.Fallback
	}
	c.scheduleLocked(contentId, st, delay, retry)
	c.mu.Unlock()

	log.Printf("ReportError: %s attempt %d/%d in %s (%s)",
		contentId, st.attempt, c.maxAttempts, delay, class)
	return d
}

// ReportSuccess clears the item's retry state and credits the breaker.
func (c *Coordinator) ReportSuccess(contentId string) {
	c.mu.Lock()
	c.clearLocked(contentId)
	c.mu.Unlock()
	c.breaker.RecordSuccess()
}

// Cancel drops any pending retry for an item. Called when the item leaves
// the preload window; a cancelled retry never fires, so no state for the
// item mutates afterward.
func (c *Coordinator) Cancel(contentId string) {
	c.mu.Lock()
	c.clearLocked(contentId)
	c.mu.Unlock()
}

// CancelAll drops every pending retry. Called on screen unmount.
func (c *Coordinator) CancelAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id := range c.pending {
		c.clearLocked(id)
	}
}

// PendingRetry reports whether a retry is scheduled for the item.
func (c *Coordinator) PendingRetry(contentId string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.pending[contentId]
	return ok && st.scheduled
}

// Attempts returns the item's current retry attempt count.
func (c *Coordinator) Attempts(contentId string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.pending[contentId]; ok {
		return st.attempt
	}
	return 0
}

// UsingFallback reports whether the item has been swapped to its fallback
// source.
func (c *Coordinator) UsingFallback(contentId string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.pending[contentId]
	return ok && st.usedFallback
}

// Rejections returns how many retries the open breaker has refused.
func (c *Coordinator) Rejections() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rejections
}

// scheduleLocked arms the retry timer. c.mu must be held.
func (c *Coordinator) scheduleLocked(contentId string, st *retryState, delay time.Duration, fire func(string)) {
	st.scheduled = true
	st.timer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		cur, ok := c.pending[contentId]
		if !ok || cur != st || st.cancelled {
			c.mu.Unlock()
			return
		}
		st.scheduled = false
		c.mu.Unlock()
		fire(contentId)
	})
}

// clearLocked cancels and forgets an item's retry state. c.mu must be held.
func (c *Coordinator) clearLocked(contentId string) {
	if st, ok := c.pending[contentId]; ok {
		st.cancelled = true
		if st.timer != nil {
			st.timer.Stop()
		}
		delete(c.pending, contentId)
	}
}
