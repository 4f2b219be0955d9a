package recovery

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"hushfeed/pkg/feedapi"

	"github.com/stretchr/testify/require"
)

type recorderEvent struct {
	kind      string
	contentId string
	class     Class
}

// newTestCoordinator wires a coordinator to a channel so tests can wait
// for timer callbacks without sleeping blind.
func newTestCoordinator(breaker *Breaker) (*Coordinator, chan recorderEvent) {
	events := make(chan recorderEvent, 32)
	c := NewCoordinator(breaker, Callbacks{
		Retry: func(id string) {
			events <- recorderEvent{kind: "retry", contentId: id}
		},
		Fallback: func(id string) {
			events <- recorderEvent{kind: "fallback", contentId: id}
		},
		GiveUp: func(id string, class Class) {
			events <- recorderEvent{kind: "giveup", contentId: id, class: class}
		},
	})
	c.SetBackoff(5*time.Millisecond, 40*time.Millisecond)
	return c, events
}

func waitEvent(t *testing.T, events chan recorderEvent) recorderEvent {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for recovery callback")
		return recorderEvent{}
	}
}

func requireNoEvent(t *testing.T, events chan recorderEvent, window time.Duration) {
	t.Helper()
	select {
	case ev := <-events:
		t.Fatalf("unexpected %s callback for %s", ev.kind, ev.contentId)
	case <-time.After(window):
	}
}

func netErr() error { return fmt.Errorf("fetch: %w", feedapi.ErrNetwork) }

func TestBackoffDoublesPerAttempt(t *testing.T) {
	c, events := newTestCoordinator(NewBreaker(100, time.Minute))

	d := c.ReportError("c1", netErr())
	require.Equal(t, OutcomeScheduledRetry, d.Outcome)
	require.Equal(t, 1, d.Attempt)
	require.Equal(t, 5*time.Millisecond, d.Delay)
	waitEvent(t, events)

	d = c.ReportError("c1", netErr())
	require.Equal(t, 2, d.Attempt)
	require.Equal(t, 10*time.Millisecond, d.Delay)
	waitEvent(t, events)

	d = c.ReportError("c1", netErr())
	require.Equal(t, 3, d.Attempt)
	require.Equal(t, 20*time.Millisecond, d.Delay)
	waitEvent(t, events)
}

func TestBackoffIsCapped(t *testing.T) {
	c, events := newTestCoordinator(NewBreaker(100, time.Minute))
	c.SetBackoff(30*time.Millisecond, 40*time.Millisecond)

	c.ReportError("c1", netErr())
	waitEvent(t, events)

	// 30ms << 1 = 60ms, capped at 40ms
	d := c.ReportError("c1", netErr())
	require.Equal(t, 40*time.Millisecond, d.Delay)
}

func TestRateLimitedAlwaysMaxDelay(t *testing.T) {
	c, _ := newTestCoordinator(NewBreaker(100, time.Minute))

	err := fmt.Errorf("fetch: %w", feedapi.ErrRateLimited)
	d := c.ReportError("c1", err)
	require.Equal(t, OutcomeScheduledRetry, d.Outcome)
	require.Equal(t, ClassRateLimited, d.Class)
	require.Equal(t, 1, d.Attempt)
	require.Equal(t, 40*time.Millisecond, d.Delay)
}

func TestExhaustionSwapsToFallbackThenGivesUp(t *testing.T) {
	c, events := newTestCoordinator(NewBreaker(100, time.Minute))

	// Three attempts against the primary source
	for i := 1; i <= 3; i++ {
		d := c.ReportError("c1", netErr())
		require.Equal(t, OutcomeScheduledRetry, d.Outcome)
		require.Equal(t, i, d.Attempt)
		require.Equal(t, "retry", waitEvent(t, events).kind)
	}

	// Fourth failure: swap to the fallback source with the counter reset
	d := c.ReportError("c1", netErr())
	require.Equal(t, OutcomeScheduledFallback, d.Outcome)
	require.True(t, c.UsingFallback("c1"))
	require.Equal(t, "fallback", waitEvent(t, events).kind)
	require.Equal(t, 0, c.Attempts("c1"))

	// Three attempts against the fallback, routed to the fallback callback
	for i := 1; i <= 3; i++ {
		d = c.ReportError("c1", netErr())
		require.Equal(t, OutcomeScheduledRetry, d.Outcome)
		require.Equal(t, "fallback", waitEvent(t, events).kind)
	}

	// Fallback exhausted too
	d = c.ReportError("c1", netErr())
	require.Equal(t, OutcomeGaveUp, d.Outcome)
	ev := waitEvent(t, events)
	require.Equal(t, "giveup", ev.kind)
	require.Equal(t, ClassNetwork, ev.class)
}

func TestDecodeErrorSwapsImmediately(t *testing.T) {
	c, events := newTestCoordinator(NewBreaker(100, time.Minute))

	start := time.Now()
	d := c.ReportError("c1", errors.New("decode error: corrupt bitstream"))
	require.Equal(t, OutcomeScheduledFallback, d.Outcome)
	require.Equal(t, ClassDecode, d.Class)
	require.Equal(t, time.Duration(0), d.Delay)

	ev := waitEvent(t, events)
	require.Equal(t, "fallback", ev.kind)
	require.Less(t, time.Since(start), 500*time.Millisecond)

	// A second decode failure on the fallback behaves like a normal retry
	d = c.ReportError("c1", errors.New("decode error: corrupt bitstream"))
	require.Equal(t, OutcomeScheduledRetry, d.Outcome)
}

func TestErrorsCoalesceWhileRetryPending(t *testing.T) {
	c, events := newTestCoordinator(NewBreaker(100, time.Minute))
	c.SetBackoff(100*time.Millisecond, time.Second)

	d := c.ReportError("c1", netErr())
	require.Equal(t, OutcomeScheduledRetry, d.Outcome)

	d = c.ReportError("c1", netErr())
	require.Equal(t, OutcomeCoalesced, d.Outcome)
	require.Equal(t, 1, c.Attempts("c1"))

	// Exactly one retry fires
	require.Equal(t, "retry", waitEvent(t, events).kind)
	requireNoEvent(t, events, 150*time.Millisecond)
}

func TestOpenBreakerRejectsRetries(t *testing.T) {
	breaker := NewBreaker(1, time.Minute)
	c, events := newTestCoordinator(breaker)

	d := c.ReportError("c1", netErr())
	require.Equal(t, OutcomeRejected, d.Outcome)
	require.Equal(t, 1, c.Rejections())

	ev := waitEvent(t, events)
	require.Equal(t, "giveup", ev.kind)
	require.False(t, c.PendingRetry("c1"))
}

func TestNonTransientGivesUpImmediately(t *testing.T) {
	c, events := newTestCoordinator(NewBreaker(100, time.Minute))

	err := fmt.Errorf("fetch: %w", feedapi.ErrPermissionDenied)
	d := c.ReportError("c1", err)
	require.Equal(t, OutcomeGaveUp, d.Outcome)
	require.Equal(t, ClassPermissionDenied, d.Class)

	ev := waitEvent(t, events)
	require.Equal(t, "giveup", ev.kind)
	require.Equal(t, ClassPermissionDenied, ev.class)
}

func TestCancelStopsPendingRetry(t *testing.T) {
	c, events := newTestCoordinator(NewBreaker(100, time.Minute))
	c.SetBackoff(50*time.Millisecond, time.Second)

	c.ReportError("c1", netErr())
	require.True(t, c.PendingRetry("c1"))

	c.Cancel("c1")
	require.False(t, c.PendingRetry("c1"))
	requireNoEvent(t, events, 120*time.Millisecond)
}

func TestReportSuccessResetsItemState(t *testing.T) {
	c, events := newTestCoordinator(NewBreaker(100, time.Minute))

	c.ReportError("c1", netErr())
	waitEvent(t, events)

	c.ReportSuccess("c1")
	require.Equal(t, 0, c.Attempts("c1"))
	require.False(t, c.UsingFallback("c1"))

	// The next failure starts a fresh cycle
	d := c.ReportError("c1", netErr())
	require.Equal(t, OutcomeScheduledRetry, d.Outcome)
	require.Equal(t, 1, d.Attempt)
	require.Equal(t, 5*time.Millisecond, d.Delay)
}

func TestItemsRecoverIndependently(t *testing.T) {
	c, events := newTestCoordinator(NewBreaker(100, time.Minute))

	c.ReportError("c1", netErr())
	c.ReportError("c2", netErr())

	got := map[string]bool{}
	got[waitEvent(t, events).contentId] = true
	got[waitEvent(t, events).contentId] = true
	require.True(t, got["c1"])
	require.True(t, got["c2"])

	require.Equal(t, 1, c.Attempts("c1"))
	require.Equal(t, 1, c.Attempts("c2"))
}
