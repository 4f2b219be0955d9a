package netquality

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStateTier(t *testing.T) {
	cases := []struct {
		name  string
		state State
		want  Tier
	}{
		{"disconnected", State{Connected: false}, TierOffline},
		{"wifi", State{Connected: true, Type: LinkWifi}, TierHigh},
		{"cellular 2g", State{Connected: true, Type: LinkCellular, Generation: "2g"}, TierLow},
		{"cellular 3g", State{Connected: true, Type: LinkCellular, Generation: "3g"}, TierLow},
		{"cellular 4g", State{Connected: true, Type: LinkCellular, Generation: "4g"}, TierMid},
		{"cellular 5g", State{Connected: true, Type: LinkCellular, Generation: "5g"}, TierHigh},
		{"cellular unknown gen", State{Connected: true, Type: LinkCellular}, TierMid},
		{"unknown link", State{Connected: true, Type: LinkUnknown}, TierMid},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.state.Tier())
		})
	}
}

func TestMonitorNotifiesOnlyOnTierChange(t *testing.T) {
	m := NewMonitor(func() State {
		return State{Connected: true, Type: LinkWifi}
	})

	var got []Tier
	m.Subscribe(func(s State) {
		got = append(got, s.Tier())
	})

	// Same tier as the initial probe: no notification
	m.Observe(State{Connected: true, Type: LinkWifi})
	require.Empty(t, got)

	// Wifi -> cellular mid
	m.Observe(State{Connected: true, Type: LinkCellular, Generation: "4g"})
	require.Equal(t, []Tier{TierMid}, got)

	// Generation change within the same tier: no notification
	m.Observe(State{Connected: true, Type: LinkCellular})
	require.Len(t, got, 1)

	// Drop offline
	m.Observe(State{Connected: false})
	require.Equal(t, []Tier{TierMid, TierOffline}, got)
}

func TestMonitorUnsubscribe(t *testing.T) {
	m := NewMonitor(func() State {
		return State{Connected: true, Type: LinkWifi}
	})

	calls := 0
	sub := m.Subscribe(func(State) { calls++ })

	m.Observe(State{Connected: false})
	require.Equal(t, 1, calls)

	sub.Unsubscribe()
	sub.Unsubscribe() // second call is a no-op

	m.Observe(State{Connected: true, Type: LinkWifi})
	require.Equal(t, 1, calls)
}

func TestMonitorCurrentTracksObservations(t *testing.T) {
	m := NewMonitor(func() State {
		return State{Connected: false}
	})
	require.Equal(t, TierOffline, m.Current().Tier())

	m.Observe(State{Connected: true, Type: LinkWifi})
	require.Equal(t, TierHigh, m.Current().Tier())
}
