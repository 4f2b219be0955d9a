package playback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func observeN(f *FrameSkipper, d time.Duration, n int) {
	for i := 0; i < n; i++ {
		f.Observe(d)
	}
}

func TestFrameSkipperStaysFullWhenFast(t *testing.T) {
	f := NewFrameSkipper()

	observeN(f, 5*time.Millisecond, 100)

	require.Equal(t, RateFull, f.Rate())
	for i := 0; i < 10; i++ {
		require.True(t, f.Advance())
	}
}

func TestFrameSkipperDropsToHalfWhenSlow(t *testing.T) {
	f := NewFrameSkipper()

	observeN(f, 50*time.Millisecond, skipEnterHalf)

	require.Equal(t, RateHalf, f.Rate())

	decoded := 0
	for i := 0; i < 60; i++ {
		if f.Advance() {
			decoded++
		}
	}
	require.Equal(t, 30, decoded)
}

func TestFrameSkipperDropsToThirdWhenStillSlow(t *testing.T) {
	f := NewFrameSkipper()

	observeN(f, 50*time.Millisecond, skipEnterHalf+skipEnterThird)

	require.Equal(t, RateThird, f.Rate())

	decoded := 0
	for i := 0; i < 60; i++ {
		if f.Advance() {
			decoded++
		}
	}
	require.Equal(t, 20, decoded)
}

func TestFrameSkipperRecoversStepwise(t *testing.T) {
	f := NewFrameSkipper()

	observeN(f, 50*time.Millisecond, skipEnterHalf+skipEnterThird)
	require.Equal(t, RateThird, f.Rate())

	// The rolling average has to drain the slow samples before the good
	// run starts counting, so feed plenty of fast ones.
	observeN(f, 1*time.Millisecond, 40+skipExitHalf)
	require.Equal(t, RateHalf, f.Rate())

	observeN(f, 1*time.Millisecond, skipExitFull)
	require.Equal(t, RateFull, f.Rate())
}

func TestFrameSkipperMiddleZoneHoldsRate(t *testing.T) {
	f := NewFrameSkipper()

	observeN(f, 50*time.Millisecond, skipEnterHalf)
	require.Equal(t, RateHalf, f.Rate())

	// Pull the average out of the slow zone, then hold it between the
	// thresholds; the rate should stay put rather than oscillate.
	observeN(f, 1*time.Millisecond, 3)
	observeN(f, 25*time.Millisecond, 200)
	require.Equal(t, RateHalf, f.Rate())
}

func TestFrameSkipperResetRestoresFullRate(t *testing.T) {
	f := NewFrameSkipper()

	observeN(f, 50*time.Millisecond, skipEnterHalf)
	require.Equal(t, RateHalf, f.Rate())

	f.Reset()
	require.Equal(t, RateFull, f.Rate())
	require.True(t, f.Advance())
}
