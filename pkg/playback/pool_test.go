package playback

import (
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeHandle records the calls the pool makes on it.
type fakeHandle struct {
	playing  bool
	muted    bool
	released bool
	notifier *statusNotifier
}

func newFakeHandle() *fakeHandle {
	return &fakeHandle{muted: true, notifier: newStatusNotifier()}
}

func (f *fakeHandle) Play()              { f.playing = true }
func (f *fakeHandle) Pause()             { f.playing = false }
func (f *fakeHandle) SetMuted(m bool)    { f.muted = m }
func (f *fakeHandle) SeekToStart() error { return nil }
func (f *fakeHandle) Status() Status {
	if f.playing {
		return StatusPlaying
	}
	return StatusPaused
}
func (f *fakeHandle) AddStatusListener(fn func(Status)) *Subscription {
	return f.notifier.add(fn)
}
func (f *fakeHandle) Release() {
	f.released = true
	f.playing = false
}

func ids(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = string(rune('a' + i))
	}
	return out
}

func sorted(s []string) []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}

func TestReconcileTracksExactWindow(t *testing.T) {
	p := NewPool()
	feed := ids(10)

	added, removed := p.Reconcile(0, feed, 2)
	require.Equal(t, []string{"a", "b", "c"}, sorted(added))
	require.Empty(t, removed)

	// Every unit starts bare and idle
	for _, id := range added {
		st, ok := p.State(id)
		require.True(t, ok)
		require.Equal(t, StatusIdle, st.Status)
		require.False(t, st.HasHandle)
	}

	// Idempotent
	added, removed = p.Reconcile(0, feed, 2)
	require.Empty(t, added)
	require.Empty(t, removed)

	// Moving the window drops what fell out and creates what came in
	added, removed = p.Reconcile(5, feed, 2)
	require.Equal(t, []string{"d", "e", "f", "g", "h"}, sorted(added))
	require.Equal(t, []string{"a", "b", "c"}, sorted(removed))
	require.Equal(t, []string{"d", "e", "f", "g", "h"}, sorted(p.Tracked()))
}

func TestReconcileReleasesEvictedHandles(t *testing.T) {
	p := NewPool()
	feed := ids(10)
	p.Reconcile(0, feed, 1)

	h := newFakeHandle()
	require.NoError(t, p.Bind("a", h))

	_, removed := p.Reconcile(8, feed, 1)
	require.Contains(t, removed, "a")
	require.True(t, h.released)
	_, ok := p.State("a")
	require.False(t, ok)
}

func TestBindActiveUnitPlaysUnmuted(t *testing.T) {
	p := NewPool()
	feed := ids(5)
	p.Reconcile(0, feed, 1)
	p.SetActive("a")

	active := newFakeHandle()
	require.NoError(t, p.Bind("a", active))
	require.True(t, active.playing)
	require.False(t, active.muted)

	neighbor := newFakeHandle()
	require.NoError(t, p.Bind("b", neighbor))
	require.False(t, neighbor.playing)
	require.True(t, neighbor.muted)

	st, _ := p.State("a")
	require.Equal(t, StatusPlaying, st.Status)
	st, _ = p.State("b")
	require.Equal(t, StatusReady, st.Status)
}

func TestBindUntrackedReleasesOrphan(t *testing.T) {
	p := NewPool()
	p.Reconcile(0, ids(3), 1)

	orphan := newFakeHandle()
	err := p.Bind("zz", orphan)
	require.Error(t, err)
	require.True(t, orphan.released)
}

func TestBindReplacesPreviousHandle(t *testing.T) {
	p := NewPool()
	p.Reconcile(0, ids(3), 1)

	old := newFakeHandle()
	require.NoError(t, p.Bind("a", old))

	replacement := newFakeHandle()
	require.NoError(t, p.Bind("a", replacement))
	require.True(t, old.released)
	require.False(t, replacement.released)
}

func TestExactlyOneUnitPlaysUnmuted(t *testing.T) {
	p := NewPool()
	feed := ids(5)
	p.Reconcile(2, feed, 2)

	handles := map[string]*fakeHandle{}
	for _, id := range feed {
		h := newFakeHandle()
		handles[id] = h
		require.NoError(t, p.Bind(id, h))
	}

	p.SetActive("c")

	playing := 0
	unmuted := 0
	for id, h := range handles {
		if h.playing {
			playing++
			require.Equal(t, "c", id)
		}
		if !h.muted {
			unmuted++
			require.Equal(t, "c", id)
		}
	}
	require.Equal(t, 1, playing)
	require.Equal(t, 1, unmuted)

	// Switching re-enforces the invariant unconditionally
	p.SetActive("e")
	require.False(t, handles["c"].playing)
	require.True(t, handles["c"].muted)
	require.True(t, handles["e"].playing)
	require.False(t, handles["e"].muted)
}

func TestScrollJumpEndsWithSinglePlayer(t *testing.T) {
	p := NewPool()
	feed := ids(10)

	p.Reconcile(0, feed, 2)
	p.SetActive("a")
	require.NoError(t, p.Bind("a", newFakeHandle()))

	// Jump 0 -> 5
	added, _ := p.Reconcile(5, feed, 2)
	handles := map[string]*fakeHandle{}
	for _, id := range added {
		h := newFakeHandle()
		handles[id] = h
		require.NoError(t, p.Bind(id, h))
	}
	p.SetActive("f")

	require.Equal(t, []string{"d", "e", "f", "g", "h"}, sorted(p.Tracked()))
	for id, h := range handles {
		if id == "f" {
			require.True(t, h.playing)
			require.False(t, h.muted)
		} else {
			require.False(t, h.playing)
			require.True(t, h.muted)
		}
	}
}

func TestMutePreferenceSticksAcrossActiveChanges(t *testing.T) {
	p := NewPool()
	p.Reconcile(0, ids(3), 2)
	a, b := newFakeHandle(), newFakeHandle()
	require.NoError(t, p.Bind("a", a))
	require.NoError(t, p.Bind("b", b))

	p.SetMuted(true)
	p.SetActive("a")
	require.True(t, a.muted)

	p.SetActive("b")
	require.True(t, b.muted)

	p.SetMuted(false)
	require.False(t, b.muted)
	require.True(t, a.muted)
}

func TestPauseAllAndResumeActive(t *testing.T) {
	p := NewPool()
	p.Reconcile(0, ids(3), 2)
	a, b := newFakeHandle(), newFakeHandle()
	require.NoError(t, p.Bind("a", a))
	require.NoError(t, p.Bind("b", b))
	p.SetActive("a")

	p.PauseAll()
	require.False(t, a.playing)
	require.False(t, b.playing)
	st, _ := p.State("a")
	require.Equal(t, StatusPaused, st.Status)

	p.ResumeActive()
	require.True(t, a.playing)
	require.False(t, b.playing)
}

func TestMarkErrorAndResetRetry(t *testing.T) {
	p := NewPool()
	p.Reconcile(0, ids(3), 1)

	p.MarkError("a", errors.New("load failed"))
	p.MarkError("a", errors.New("load failed"))
	st, _ := p.State("a")
	require.Equal(t, StatusError, st.Status)
	require.Equal(t, 2, st.RetryCount)
	require.False(t, st.LastErrorAt.IsZero())

	p.ResetRetry("a")
	st, _ = p.State("a")
	require.Equal(t, 0, st.RetryCount)
	require.NoError(t, st.Err)
}

func TestReleaseAll(t *testing.T) {
	p := NewPool()
	p.Reconcile(0, ids(5), 2)
	a, b := newFakeHandle(), newFakeHandle()
	require.NoError(t, p.Bind("a", a))
	require.NoError(t, p.Bind("b", b))
	p.SetActive("a")

	p.ReleaseAll()
	require.True(t, a.released)
	require.True(t, b.released)
	require.Empty(t, p.Tracked())
	require.Equal(t, "", p.ActiveId())
}

func TestBackgroundUnitCannotReportPlaying(t *testing.T) {
	p := NewPool()
	p.Reconcile(0, ids(3), 2)
	a, b := newFakeHandle(), newFakeHandle()
	require.NoError(t, p.Bind("a", a))
	require.NoError(t, p.Bind("b", b))
	p.SetActive("a")

	// A stray native Playing signal from a background unit is ignored
	b.notifier.notify(StatusPlaying)
	st, _ := p.State("b")
	require.NotEqual(t, StatusPlaying, st.Status)

	// Error signals always land
	b.notifier.notify(StatusError)
	st, _ = p.State("b")
	require.Equal(t, StatusError, st.Status)
}
