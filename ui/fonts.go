package ui

import (
	"fmt"

	"github.com/veandco/go-sdl2/ttf"
)

// Fonts manages the TrueType fonts used by the feed HUD and overlays.
type Fonts struct {
	Large  *ttf.Font // 30px for overlay titles and error banners
	Medium *ttf.Font // 22px for captions and hashtags
	Small  *ttf.Font // 16px for counters and toasts
}

// LoadFonts loads system fonts with fallbacks for different platforms.
func LoadFonts() (*Fonts, error) {
	if err := ttf.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize TTF: %v", err)
	}

	fontPaths := []string{
		"/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf",
		"/usr/share/fonts/TTF/DejaVuSans-Bold.ttf",
		"/System/Library/Fonts/Helvetica.ttc",
		"/usr/share/fonts/truetype/liberation/LiberationSans-Bold.ttf",
	}

	fonts := &Fonts{}
	var err error
	for _, path := range fontPaths {
		fonts.Large, err = ttf.OpenFont(path, 30)
		if err == nil {
			break
		}
	}
	for _, path := range fontPaths {
		fonts.Medium, err = ttf.OpenFont(path, 22)
		if err == nil {
			break
		}
	}
	for _, path := range fontPaths {
		fonts.Small, err = ttf.OpenFont(path, 16)
		if err == nil {
			break
		}
	}

	return fonts, nil
}

// Close releases all loaded fonts.
func (f *Fonts) Close() {
	if f == nil {
		return
	}
	if f.Large != nil {
		f.Large.Close()
	}
	if f.Medium != nil {
		f.Medium.Close()
	}
	if f.Small != nil {
		f.Small.Close()
	}
}
