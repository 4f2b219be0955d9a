package settings

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// chTempDir runs the test from a scratch directory so the settings file
// never touches the repo.
func chTempDir(t *testing.T) {
	t.Helper()
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(orig) })
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	chTempDir(t)

	s := Load()
	require.True(t, s.CaptionsEnabled())
	require.False(t, s.DataSaverEnabled())
	require.True(t, s.StartMuted())
	require.Equal(t, 1.0, s.Volume)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	chTempDir(t)

	in := Settings{
		Captions:  "off",
		DataSaver: "on",
		StartMode: "sound",
		Volume:    0.4,
	}
	require.NoError(t, Save(in))

	out := Load()
	require.Equal(t, in, out)
	require.False(t, out.CaptionsEnabled())
	require.True(t, out.DataSaverEnabled())
	require.False(t, out.StartMuted())
}

func TestLoadBackfillsMissingFields(t *testing.T) {
	chTempDir(t)

	require.NoError(t, os.WriteFile(filename, []byte(`{"dataSaver":"on"}`), 0o644))

	s := Load()
	require.Equal(t, "on", s.DataSaver)
	require.Equal(t, "on", s.Captions)
	require.Equal(t, "muted", s.StartMode)
	require.Equal(t, 1.0, s.Volume)
}

func TestLoadMalformedFileReturnsDefaults(t *testing.T) {
	chTempDir(t)

	require.NoError(t, os.WriteFile(filename, []byte(`{not json`), 0o644))

	s := Load()
	require.Equal(t, defaultSettings, s)
}
