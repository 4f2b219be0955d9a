package netquality

import (
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// LinkType is the coarse transport classification reported by the platform.
type LinkType int

const (
	LinkUnknown LinkType = iota
	LinkWifi
	LinkCellular
)

func (l LinkType) String() string {
	switch l {
	case LinkWifi:
		return "wifi"
	case LinkCellular:
		return "cellular"
	default:
		return "unknown"
	}
}

// Tier is the bandwidth classification derived from the link state. It
// drives preload window sizing and media variant selection.
type Tier int

const (
	TierOffline Tier = iota
	TierLow
	TierMid
	TierHigh
)

func (t Tier) String() string {
	switch t {
	case TierOffline:
		return "Offline"
	case TierLow:
		return "Low"
	case TierMid:
		return "Mid"
	case TierHigh:
		return "High"
	default:
		return "Unknown"
	}
}

// State is one observation of the network.
type State struct {
	Connected  bool
	Type       LinkType
	Generation string // "2g".."5g" for cellular links, empty otherwise
}

// Tier maps a link observation to a bandwidth tier.
func (s State) Tier() Tier {
	if !s.Connected {
		return TierOffline
	}
	switch s.Type {
	case LinkWifi:
		return TierHigh
	case LinkCellular:
		switch strings.ToLower(s.Generation) {
		case "2g", "3g":
			return TierLow
		case "5g":
			return TierHigh
		default:
			return TierMid
		}
	default:
		return TierMid
	}
}

// Subscription detaches a listener when unsubscribed. Unsubscribe is safe to
// call more than once; only the first call has effect.
type Subscription struct {
	once   sync.Once
	remove func()
}

// Unsubscribe removes the listener.
func (s *Subscription) Unsubscribe() {
	s.once.Do(s.remove)
}

// Monitor polls a probe for network state and notifies subscribers when the
// derived tier changes. State changes within the same tier are recorded but
// not fanned out, so consumers recompute on quality changes rather than on
// every poll.
type Monitor struct {
	mu      sync.Mutex
	probe   func() State
	state   State
	subs    map[int]func(State)
	nextSub int
	stopCh  chan struct{}
	started bool
}

// NewMonitor creates a monitor using the given probe. A nil probe uses the
// sysfs default.
func NewMonitor(probe func() State) *Monitor {
	if probe == nil {
		probe = ProbeSysfs
	}
	return &Monitor{
		probe: probe,
		state: probe(),
		subs:  make(map[int]func(State)),
	}
}

// Current returns the last observed state.
func (m *Monitor) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe registers a listener invoked whenever the derived tier changes.
func (m *Monitor) Subscribe(fn func(State)) *Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn

	return &Subscription{remove: func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}}
}

// Start begins polling at the given interval. Stop ends polling.
func (m *Monitor) Start(interval time.Duration) {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.stopCh = make(chan struct{})
	stop := m.stopCh
	m.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				m.Observe(m.probe())
			}
		}
	}()
}

// Stop ends polling. Subscriptions stay registered.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return
	}
	m.started = false
	close(m.stopCh)
}

// Observe records a state observation, notifying subscribers if the tier
// changed. Exposed so tests and platform callbacks can inject events.
func (m *Monitor) Observe(s State) {
	m.mu.Lock()
	prevTier := m.state.Tier()
	m.state = s
	newTier := s.Tier()

	var listeners []func(State)
	if newTier != prevTier {
		log.Printf("Observe: network tier %s -> %s (link=%s connected=%v)",
			prevTier, newTier, s.Type, s.Connected)
		listeners = make([]func(State), 0, len(m.subs))
		for _, fn := range m.subs {
			listeners = append(listeners, fn)
		}
	}
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(s)
	}
}

// ProbeSysfs inspects /sys/class/net for an up, non-loopback interface and
// classifies it by name. Good enough for the devices this runs on; platform
// builds replace it with the OS connectivity callback.
func ProbeSysfs() State {
	entries, err := os.ReadDir("/sys/class/net")
	if err != nil {
		return State{Connected: false, Type: LinkUnknown}
	}

	for _, entry := range entries {
		name := entry.Name()
		if name == "lo" {
			continue
		}
		operstate, err := os.ReadFile("/sys/class/net/" + name + "/operstate")
		if err != nil || strings.TrimSpace(string(operstate)) != "up" {
			continue
		}

		switch {
		case strings.HasPrefix(name, "wl"):
			return State{Connected: true, Type: LinkWifi}
		case strings.HasPrefix(name, "ww"), strings.HasPrefix(name, "usb"):
			return State{Connected: true, Type: LinkCellular}
		default:
			return State{Connected: true, Type: LinkUnknown}
		}
	}
	return State{Connected: false, Type: LinkUnknown}
}
