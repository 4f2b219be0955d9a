package banner

import (
	"time"

	"hushfeed/ui"

	"github.com/veandco/go-sdl2/sdl"
)

// Widget draws transient overlay chrome: error banners, toasts,
// the offline pill and loading skeletons.
type Widget struct {
	errorText string
	toastText string
	toastDue  time.Time
	offline   bool
}

// NewWidget creates a new banner widget
func NewWidget() *Widget {
	return &Widget{}
}

// ShowError displays a persistent error banner until cleared
func (w *Widget) ShowError(text string) {
	w.errorText = text
}

// ClearError hides the error banner
func (w *Widget) ClearError() {
	w.errorText = ""
}

// HasError reports whether the error banner is visible
func (w *Widget) HasError() bool {
	return w.errorText != ""
}

// ShowToast displays a short-lived message
func (w *Widget) ShowToast(text string, duration time.Duration) {
	w.toastText = text
	w.toastDue = time.Now().Add(duration)
}

// SetOffline toggles the offline pill
func (w *Widget) SetOffline(offline bool) {
	w.offline = offline
}

// Draw renders whatever banners are currently active
func (w *Widget) Draw(renderer *sdl.Renderer, screenWidth, screenHeight int32, fonts *ui.Fonts) {
	if w.errorText != "" {
		w.drawError(renderer, screenWidth, fonts)
	}

	if w.toastText != "" {
		if time.Now().After(w.toastDue) {
			w.toastText = ""
		} else {
			w.drawToast(renderer, screenWidth, screenHeight, fonts)
		}
	}

	if w.offline {
		w.drawOfflinePill(renderer, screenWidth, fonts)
	}
}

func (w *Widget) drawError(renderer *sdl.Renderer, screenWidth int32, fonts *ui.Fonts) {
	bannerHeight := int32(88)

	renderer.SetDrawBlendMode(sdl.BLENDMODE_BLEND)
	renderer.SetDrawColor(127, 29, 29, 235)
	renderer.FillRect(&sdl.Rect{X: 0, Y: 0, W: screenWidth, H: bannerHeight})
	renderer.SetDrawColor(239, 68, 68, 255)
	renderer.FillRect(&sdl.Rect{X: 0, Y: bannerHeight - 3, W: screenWidth, H: 3})

	if fonts != nil && fonts.Medium != nil {
		white := sdl.Color{R: 255, G: 255, B: 255, A: 255}
		ui.RenderText(renderer, w.errorText, 24, 16, white, fonts.Medium)
	}
	if fonts != nil && fonts.Small != nil {
		hint := sdl.Color{R: 252, G: 165, B: 165, A: 255}
		ui.RenderText(renderer, "Press ENTER to retry", 24, 54, hint, fonts.Small)
	}
}

func (w *Widget) drawToast(renderer *sdl.Renderer, screenWidth, screenHeight int32, fonts *ui.Fonts) {
	toastWidth := int32(len(w.toastText))*12 + 48
	if toastWidth > screenWidth-40 {
		toastWidth = screenWidth - 40
	}
	toastX := (screenWidth - toastWidth) / 2
	toastY := screenHeight - 140

	renderer.SetDrawBlendMode(sdl.BLENDMODE_BLEND)
	renderer.SetDrawColor(15, 23, 42, 230)
	renderer.FillRect(&sdl.Rect{X: toastX, Y: toastY, W: toastWidth, H: 52})

	if fonts != nil && fonts.Small != nil {
		white := sdl.Color{R: 255, G: 255, B: 255, A: 255}
		ui.RenderText(renderer, w.toastText, toastX+24, toastY+15, white, fonts.Small)
	}
}

func (w *Widget) drawOfflinePill(renderer *sdl.Renderer, screenWidth int32, fonts *ui.Fonts) {
	pillWidth := int32(150)
	pillX := screenWidth - pillWidth - 24
	pillY := int32(24)

	renderer.SetDrawBlendMode(sdl.BLENDMODE_BLEND)
	renderer.SetDrawColor(51, 65, 85, 230)
	renderer.FillRect(&sdl.Rect{X: pillX, Y: pillY, W: pillWidth, H: 40})
	renderer.SetDrawColor(234, 179, 8, 255)
	renderer.FillRect(&sdl.Rect{X: pillX + 14, Y: pillY + 14, W: 12, H: 12})

	if fonts != nil && fonts.Small != nil {
		text := sdl.Color{R: 226, G: 232, B: 240, A: 255}
		ui.RenderText(renderer, "Offline", pillX+38, pillY+9, text, fonts.Small)
	}
}

// DrawSkeleton renders a pulsing placeholder while feed content loads.
// The shimmer phase is derived from the wall clock so callers don't
// have to thread animation state through.
func DrawSkeleton(renderer *sdl.Renderer, screenWidth, screenHeight int32) {
	phase := time.Now().UnixMilli() % 1600
	pulse := phase
	if pulse > 800 {
		pulse = 1600 - pulse
	}
	shade := uint8(30 + pulse/40)

	renderer.SetDrawColor(shade, shade+5, shade+12, 255)
	renderer.FillRect(&sdl.Rect{X: 0, Y: 0, W: screenWidth, H: screenHeight})

	// Caption-shaped bars near the bottom, like a loaded item
	barColor := shade + 18
	renderer.SetDrawColor(barColor, barColor+5, barColor+12, 255)
	renderer.FillRect(&sdl.Rect{X: 32, Y: screenHeight - 180, W: screenWidth * 3 / 4, H: 22})
	renderer.FillRect(&sdl.Rect{X: 32, Y: screenHeight - 144, W: screenWidth / 2, H: 22})
	renderer.FillRect(&sdl.Rect{X: 32, Y: screenHeight - 96, W: screenWidth / 3, H: 18})
}
