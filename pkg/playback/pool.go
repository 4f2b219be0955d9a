package playback

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// UnitState is a snapshot of one tracked playback unit.
type UnitState struct {
	ContentId   string
	Status      Status
	RetryCount  int
	LastErrorAt time.Time
	Err         error
	HasHandle   bool
}

type unit struct {
	contentId   string
	handle      Handle
	sub         *Subscription
	status      Status
	retryCount  int
	lastErrorAt time.Time
	err         error
}

// Pool owns the bounded set of playback units around the active feed index.
// Units are created bare (StatusIdle) when an item enters the preload window
// and get a Handle bound once its media is local; exactly one unit across
// the pool is playing and unmuted at any time.
type Pool struct {
	mu     sync.Mutex
	units  map[string]*unit
	active string
	muted  bool // global mute toggle applied to the active unit
}

// NewPool creates an empty pool.
func NewPool() *Pool {
	return &Pool{units: make(map[string]*unit)}
}

// Reconcile makes the tracked set equal exactly the ids within windowSize of
// activeIndex: missing units are created Idle, units that fell outside the
// window are released and dropped. Idempotent: a second call with the same
// arguments changes nothing. Returns the ids added and removed so the
// caller can start media loads and cancel pending retries.
func (p *Pool) Reconcile(activeIndex int, ids []string, windowSize int) (added, removed []string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	want := make(map[string]bool, 2*windowSize+1)
	for i, id := range ids {
		if abs(i-activeIndex) <= windowSize {
			want[id] = true
		}
	}

	for id, u := range p.units {
		if !want[id] {
			p.releaseUnitLocked(u)
			delete(p.units, id)
			removed = append(removed, id)
		}
	}

	for id := range want {
		if _, ok := p.units[id]; !ok {
			p.units[id] = &unit{contentId: id, status: StatusIdle}
			added = append(added, id)
		}
	}

	if len(added) > 0 || len(removed) > 0 {
		log.Printf("Reconcile: active=%d window=%d tracked=%d (+%d/-%d)",
			activeIndex, windowSize, len(p.units), len(added), len(removed))
	}
	return added, removed
}

// Bind attaches a ready handle to a tracked unit. The previous handle, if
// any, is released first. If the unit is the active one it starts playing
// immediately; otherwise it is paused and muted.
func (p *Pool) Bind(contentId string, h Handle) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	u, ok := p.units[contentId]
	if !ok {
		// Item left the window while its media was loading; the handle has
		// no home and must not leak.
		h.Release()
		return fmt.Errorf("Bind: %s is not tracked", contentId)
	}

	if u.handle != nil {
		p.releaseHandleLocked(u)
	}

	u.handle = h
	u.err = nil
	u.sub = h.AddStatusListener(func(s Status) {
		p.onHandleStatus(contentId, s)
	})

	if contentId == p.active {
		h.SetMuted(p.muted)
		h.Play()
		u.status = StatusPlaying
	} else {
		h.SetMuted(true)
		h.Pause()
		u.status = StatusReady
	}
	return nil
}

// SetActive pauses and mutes every other unit and unpauses/unmutes the unit
// for contentId. Enforced unconditionally: even units that should already
// be paused are paused again. Last writer wins.
func (p *Pool) SetActive(contentId string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.active = contentId
	for id, u := range p.units {
		if u.handle == nil {
			continue
		}
		if id == contentId {
			u.handle.SetMuted(p.muted)
			u.handle.Play()
			u.status = StatusPlaying
		} else {
			u.handle.Pause()
			u.handle.SetMuted(true)
			if u.status == StatusPlaying {
				u.status = StatusPaused
			}
		}
	}
}

// SetMuted toggles audio on the active unit. The preference sticks across
// SetActive calls.
func (p *Pool) SetMuted(muted bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.muted = muted
	if u, ok := p.units[p.active]; ok && u.handle != nil {
		u.handle.SetMuted(muted)
	}
}

// Muted reports the global mute preference.
func (p *Pool) Muted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.muted
}

// PauseAll pauses every bound unit without changing the active id. Used on
// app backgrounding.
func (p *Pool) PauseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, u := range p.units {
		if u.handle == nil {
			continue
		}
		u.handle.Pause()
		if u.status == StatusPlaying {
			u.status = StatusPaused
		}
	}
}

// ResumeActive restarts playback of the active unit. Used on app
// foregrounding.
func (p *Pool) ResumeActive() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if u, ok := p.units[p.active]; ok && u.handle != nil {
		u.handle.SetMuted(p.muted)
		u.handle.Play()
		u.status = StatusPlaying
	}
}

// MarkLoading flags a unit as waiting for media.
func (p *Pool) MarkLoading(contentId string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if u, ok := p.units[contentId]; ok && u.handle == nil {
		u.status = StatusLoading
	}
}

// MarkError records a failure against a unit and bumps its retry count.
// Resource creation failures land here instead of being thrown.
func (p *Pool) MarkError(contentId string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	u, ok := p.units[contentId]
	if !ok {
		return
	}
	u.status = StatusError
	u.err = err
	u.retryCount++
	u.lastErrorAt = time.Now()
	log.Printf("MarkError: %s retry=%d err=%v", contentId, u.retryCount, err)
}

// ResetRetry clears a unit's retry counter after a successful recovery.
func (p *Pool) ResetRetry(contentId string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if u, ok := p.units[contentId]; ok {
		u.retryCount = 0
		u.err = nil
	}
}

// ReleaseAll tears down every unit synchronously. Used on unmount.
func (p *Pool) ReleaseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id, u := range p.units {
		p.releaseUnitLocked(u)
		delete(p.units, id)
	}
	p.active = ""
}

// ActiveId returns the id of the unit currently designated active.
func (p *Pool) ActiveId() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Tracked returns the ids of all tracked units.
func (p *Pool) Tracked() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := make([]string, 0, len(p.units))
	for id := range p.units {
		ids = append(ids, id)
	}
	return ids
}

// State returns a snapshot of one unit.
func (p *Pool) State(contentId string) (UnitState, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	u, ok := p.units[contentId]
	if !ok {
		return UnitState{}, false
	}
	return UnitState{
		ContentId:   u.contentId,
		Status:      u.status,
		RetryCount:  u.retryCount,
		LastErrorAt: u.lastErrorAt,
		Err:         u.err,
		HasHandle:   u.handle != nil,
	}, true
}

// Handle returns the bound handle for a unit, or nil. The feed screen uses
// this to drive per-frame decode/draw of the active unit.
func (p *Pool) Handle(contentId string) Handle {
	p.mu.Lock()
	defer p.mu.Unlock()

	if u, ok := p.units[contentId]; ok {
		return u.handle
	}
	return nil
}

// onHandleStatus mirrors native status transitions into the unit record.
func (p *Pool) onHandleStatus(contentId string, s Status) {
	p.mu.Lock()
	defer p.mu.Unlock()

	u, ok := p.units[contentId]
	if !ok || u.handle == nil {
		return
	}
	if s == StatusError {
		u.status = StatusError
		u.lastErrorAt = time.Now()
		return
	}
	// Never let a background unit report Playing; SetActive owns that.
	if s == StatusPlaying && contentId != p.active {
		return
	}
	u.status = s
}

func (p *Pool) releaseUnitLocked(u *unit) {
	p.releaseHandleLocked(u)
	u.status = StatusIdle
}

func (p *Pool) releaseHandleLocked(u *unit) {
	if u.sub != nil {
		u.sub.Unsubscribe()
		u.sub = nil
	}
	if u.handle != nil {
		u.handle.Release()
		u.handle = nil
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
