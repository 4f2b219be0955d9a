package playback

import "sync"

// Status is the closed set of playback unit states. Every consumer switches
// exhaustively over these; there is no catch-all "any" state.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusReady
	StatusPlaying
	StatusPaused
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "Idle"
	case StatusLoading:
		return "Loading"
	case StatusReady:
		return "Ready"
	case StatusPlaying:
		return "Playing"
	case StatusPaused:
		return "Paused"
	case StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Handle is the narrow interface to one native media player bound to one
// media resource. Implementations are a black box to the pool; the AVHandle
// in this package is the SDL/FFmpeg one, tests use fakes.
type Handle interface {
	Play()
	Pause()
	SetMuted(muted bool)
	SeekToStart() error
	Status() Status
	AddStatusListener(fn func(Status)) *Subscription
	Release()
}

// Subscription detaches a status listener. Unsubscribe is idempotent; only
// the first call removes the listener, so teardown paths can call it
// unconditionally without double-release concerns.
type Subscription struct {
	once   sync.Once
	remove func()
}

// NewSubscription builds a subscription around a removal function. Handle
// implementations outside this package use it from AddStatusListener.
func NewSubscription(remove func()) *Subscription {
	return &Subscription{remove: remove}
}

// Unsubscribe removes the listener.
func (s *Subscription) Unsubscribe() {
	if s.remove == nil {
		return
	}
	s.once.Do(s.remove)
}

// statusNotifier is the listener registry shared by Handle implementations.
type statusNotifier struct {
	mu      sync.Mutex
	subs    map[int]func(Status)
	nextSub int
}

func newStatusNotifier() *statusNotifier {
	return &statusNotifier{subs: make(map[int]func(Status))}
}

func (n *statusNotifier) add(fn func(Status)) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextSub
	n.nextSub++
	n.subs[id] = fn

	return &Subscription{remove: func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
	}}
}

func (n *statusNotifier) notify(s Status) {
	n.mu.Lock()
	listeners := make([]func(Status), 0, len(n.subs))
	for _, fn := range n.subs {
		listeners = append(listeners, fn)
	}
	n.mu.Unlock()

	for _, fn := range listeners {
		fn(s)
	}
}

func (n *statusNotifier) clear() {
	n.mu.Lock()
	n.subs = make(map[int]func(Status))
	n.mu.Unlock()
}
