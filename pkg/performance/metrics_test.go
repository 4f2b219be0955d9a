package performance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRollingAverageWindow(t *testing.T) {
	r := NewRollingAverage(3)

	require.Equal(t, time.Duration(0), r.Average())

	r.Add(10 * time.Millisecond)
	r.Add(20 * time.Millisecond)
	require.Equal(t, 15*time.Millisecond, r.Average())

	// Fourth sample evicts the first.
	r.Add(30 * time.Millisecond)
	r.Add(60 * time.Millisecond)
	require.Equal(t, 110*time.Millisecond/3, r.Average())

	r.Reset()
	require.Equal(t, time.Duration(0), r.Average())
}

func TestFeedMetricsReport(t *testing.T) {
	m := NewFeedMetrics(8)

	m.RecordMediaLoad(200 * time.Millisecond)
	m.RecordMediaLoad(400 * time.Millisecond)
	m.RecordBind(10 * time.Millisecond)
	m.RecordItemPlayed()
	m.RecordItemPlayed()

	report := m.GetReport()
	require.InDelta(t, 300.0, report.AvgMediaLoadMs, 0.01)
	require.InDelta(t, 10.0, report.AvgBindMs, 0.01)
	require.Equal(t, 2, report.ItemsPlayed)
	require.Zero(t, report.Stalls)
	require.Zero(t, report.Retries)
}

func TestFeedMetricsHealth(t *testing.T) {
	m := NewFeedMetrics(8)

	// No playback yet counts as healthy.
	require.True(t, m.GetReport().IsHealthy)

	for i := 0; i < 10; i++ {
		m.RecordItemPlayed()
	}
	m.RecordStall()
	require.True(t, m.GetReport().IsHealthy)

	m.RecordStall()
	m.RecordRetry()
	// 3 incidents over 10 items crosses the 20% line.
	require.False(t, m.GetReport().IsHealthy)
}

func TestFeedMetricsReset(t *testing.T) {
	m := NewFeedMetrics(4)

	m.RecordMediaLoad(100 * time.Millisecond)
	m.RecordStall()
	m.RecordRetry()
	m.RecordItemPlayed()

	m.Reset()

	report := m.GetReport()
	require.Zero(t, report.Stalls)
	require.Zero(t, report.Retries)
	require.Zero(t, report.ItemsPlayed)
	require.InDelta(t, 0.0, report.AvgMediaLoadMs, 0.001)
	require.True(t, report.IsHealthy)
}
