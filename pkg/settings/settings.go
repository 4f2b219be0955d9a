package settings

import (
	"encoding/json"
	"os"
)

// Settings represents user-tunable configuration that persists across
// application restarts. Booleans are stored as "on"/"off" strings so
// missing fields fall back to defaults instead of zero values.
type Settings struct {
	Captions  string  `json:"captions"`  // "on" | "off"
	DataSaver string  `json:"dataSaver"` // "on" | "off"
	StartMode string  `json:"startMode"` // "muted" | "sound"
	Volume    float64 `json:"volume"`    // 0.0 - 1.0
}

var defaultSettings = Settings{
	Captions:  "on",
	DataSaver: "off",
	StartMode: "muted",
	Volume:    1.0,
}

const filename = "settings.json"

// CaptionsEnabled reports whether captions are on.
func (s Settings) CaptionsEnabled() bool { return s.Captions != "off" }

// DataSaverEnabled reports whether data saver is on.
func (s Settings) DataSaverEnabled() bool { return s.DataSaver == "on" }

// StartMuted reports whether the feed starts muted.
func (s Settings) StartMuted() bool { return s.StartMode != "sound" }

// Load reads the settings file from disk. When the file is missing or
// cannot be parsed, sane defaults are returned so the application can
// continue running.
func Load() Settings {
	f, err := os.Open(filename)
	if err != nil {
		// No existing file - return defaults.
		return defaultSettings
	}
	defer f.Close()

	var s Settings
	if err := json.NewDecoder(f).Decode(&s); err != nil {
		// Malformed file - fall back to defaults.
		return defaultSettings
	}

	// Backfill zero values so partially written configuration files do not
	// break behaviour when new fields are added.
	if s.Captions == "" {
		s.Captions = defaultSettings.Captions
	}
	if s.DataSaver == "" {
		s.DataSaver = defaultSettings.DataSaver
	}
	if s.StartMode == "" {
		s.StartMode = defaultSettings.StartMode
	}
	if s.Volume == 0 {
		s.Volume = defaultSettings.Volume
	}

	return s
}

// Save writes the provided settings to disk, creating the file when
// necessary. Any error is returned to the caller so it can be logged.
func Save(s Settings) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
