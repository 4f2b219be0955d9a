package trending

import (
	"fmt"

	"hushfeed/pkg/sharedTypes"
	"hushfeed/ui"

	"github.com/veandco/go-sdl2/sdl"
	"github.com/veandco/go-sdl2/ttf"
)

// Widget manages the trending hashtags overlay.
type Widget struct {
	hashtags []sharedTypes.TrendingHashtag
	selected int
	loading  bool
}

// NewWidget creates an empty trending widget in the loading state.
func NewWidget() *Widget {
	return &Widget{loading: true}
}

// SetHashtags replaces the displayed hashtags.
func (w *Widget) SetHashtags(tags []sharedTypes.TrendingHashtag) {
	w.hashtags = tags
	w.loading = false
	if w.selected >= len(tags) {
		w.selected = 0
	}
}

// Hashtags returns the current hashtags.
func (w *Widget) Hashtags() []sharedTypes.TrendingHashtag {
	return w.hashtags
}

// Selected returns the selected row index.
func (w *Widget) Selected() int {
	return w.selected
}

// SelectedTag returns the tag under the cursor, if any.
func (w *Widget) SelectedTag() (sharedTypes.TrendingHashtag, bool) {
	if w.selected < 0 || w.selected >= len(w.hashtags) {
		return sharedTypes.TrendingHashtag{}, false
	}
	return w.hashtags[w.selected], true
}

// MoveSelection moves the cursor up or down with wrapping.
func (w *Widget) MoveSelection(delta int) {
	if len(w.hashtags) == 0 {
		return
	}

	w.selected += delta
	if w.selected < 0 {
		w.selected = len(w.hashtags) - 1
	} else if w.selected >= len(w.hashtags) {
		w.selected = 0
	}
}

// Draw renders the trending overlay panel.
func (w *Widget) Draw(renderer *sdl.Renderer, x, y, width, height int32, largeFont, mediumFont *ttf.Font) error {
	// Panel background
	renderer.SetDrawColor(15, 15, 24, 235)
	renderer.FillRect(&sdl.Rect{X: x, Y: y, W: width, H: height})

	titleColor := sdl.Color{R: 255, G: 255, B: 255, A: 255}
	if largeFont != nil {
		ui.RenderText(renderer, "Trending", x+30, y+20, titleColor, largeFont)
	}

	if w.loading {
		if mediumFont != nil {
			dimColor := sdl.Color{R: 148, G: 163, B: 184, A: 255}
			ui.RenderText(renderer, "Loading...", x+30, y+80, dimColor, mediumFont)
		}
		return nil
	}

	rowHeight := int32(44)
	for i, tag := range w.hashtags {
		rowY := y + 80 + int32(i)*rowHeight
		if rowY+rowHeight > y+height {
			break
		}

		if i == w.selected {
			renderer.SetDrawColor(55, 48, 107, 255)
			renderer.FillRect(&sdl.Rect{X: x + 14, Y: rowY - 6, W: width - 28, H: rowHeight - 4})
		}

		if mediumFont != nil {
			ui.RenderText(renderer, "#"+tag.Tag, x+30, rowY, titleColor, mediumFont)
			countColor := sdl.Color{R: 148, G: 163, B: 184, A: 255}
			label := fmt.Sprintf("%d", tag.Count)
			ui.RenderText(renderer, label, x+width-110, rowY, countColor, mediumFont)
		}
	}
	return nil
}
