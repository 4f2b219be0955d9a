package feed

import (
	"fmt"
	"log"
	"strings"
	"time"

	"hushfeed/pkg/input"
	"hushfeed/pkg/netquality"
	"hushfeed/pkg/playback"
	"hushfeed/ui"
	"hushfeed/widgets/banner"
	"hushfeed/widgets/share"
	"hushfeed/widgets/trending"

	"github.com/veandco/go-sdl2/sdl"
)

// NewFeedScreen wraps the controller in SDL input handling and drawing.
func NewFeedScreen(controller *Controller, shareBaseURL string, captionsOn bool) *FeedScreen {
	return &FeedScreen{
		controller:    controller,
		trendingPanel: trending.NewWidget(),
		sharePanel:    share.NewWidget(),
		banners:       banner.NewWidget(),
		shareBaseURL:  shareBaseURL,
		captionsOn:    captionsOn,
		keys:          input.NewKeyPressTracker(),
		skipper:       playback.NewFrameSkipper(),
	}
}

// SetRenderer stores the renderer and hooks it into freshly opened
// playback handles so their textures land on this window.
func (s *FeedScreen) SetRenderer(renderer *sdl.Renderer) {
	s.renderer = renderer

	if renderer != nil {
		info, err := renderer.GetInfo()
		if err == nil {
			accelStatus := "software"
			if info.Flags&sdl.RENDERER_ACCELERATED != 0 {
				accelStatus = "hardware"
			}
			log.Printf("Renderer: %s (accelerated=%s, maxTexture=%dx%d)",
				info.Name, accelStatus, info.MaxTextureWidth, info.MaxTextureHeight)
		}
	}

	s.controller.SetPrepareHandle(func(h playback.Handle) error {
		if av, ok := h.(*playback.AVHandle); ok && s.renderer != nil {
			return av.SetRenderer(s.renderer)
		}
		return nil
	})
}

// Update processes input, advances the controller and decodes the
// active video frame. Called once per rendered frame.
func (s *FeedScreen) Update(keyState []uint8) error {
	s.handleInput(keyState)
	s.controller.Update()
	s.updateActiveFrame()
	s.syncOverlays()
	s.syncBanners()
	return nil
}

// handleInput maps edge-triggered key presses onto feed intents.
func (s *FeedScreen) handleInput(keyState []uint8) {
	if keyState == nil {
		s.keys.Reset()
		return
	}

	// Overlays capture navigation keys while open
	if s.overlay != OverlayNone {
		s.handleOverlayInput(keyState)
		return
	}

	if s.keys.IsPressed(keyState, sdl.SCANCODE_DOWN) {
		s.controller.Step(1)
	}
	if s.keys.IsPressed(keyState, sdl.SCANCODE_UP) {
		s.controller.Step(-1)
	}
	if s.keys.IsPressed(keyState, sdl.SCANCODE_L) {
		s.controller.ToggleLike()
	}
	if s.keys.IsPressed(keyState, sdl.SCANCODE_M) {
		s.controller.ToggleMute()
		if s.controller.Muted() {
			s.banners.ShowToast("Muted", 1500*time.Millisecond)
		} else {
			s.banners.ShowToast("Sound on", 1500*time.Millisecond)
		}
	}
	if s.keys.IsPressed(keyState, sdl.SCANCODE_T) {
		s.openOverlay(OverlayTrending)
	}
	if s.keys.IsPressed(keyState, sdl.SCANCODE_S) {
		s.openOverlay(OverlayShare)
	}
	if s.keys.IsPressed(keyState, sdl.SCANCODE_R) {
		s.controller.Report("inappropriate")
		s.banners.ShowToast("Reported, thanks", 2*time.Second)
	}
	if s.keys.IsPressed(keyState, sdl.SCANCODE_RETURN) {
		s.controller.Retry()
	}
	if s.keys.IsPressed(keyState, sdl.SCANCODE_F5) {
		s.controller.Refresh()
		s.banners.ShowToast("Refreshing", 1500*time.Millisecond)
	}
	if s.keys.IsPressed(keyState, sdl.SCANCODE_C) {
		s.captionsOn = !s.captionsOn
	}
}

func (s *FeedScreen) handleOverlayInput(keyState []uint8) {
	if s.keys.IsPressed(keyState, sdl.SCANCODE_ESCAPE) {
		s.overlay = OverlayNone
		return
	}

	switch s.overlay {
	case OverlayTrending:
		if s.keys.IsPressed(keyState, sdl.SCANCODE_T) {
			s.overlay = OverlayNone
		}
		if s.keys.IsPressed(keyState, sdl.SCANCODE_DOWN) {
			s.trendingPanel.MoveSelection(1)
		}
		if s.keys.IsPressed(keyState, sdl.SCANCODE_UP) {
			s.trendingPanel.MoveSelection(-1)
		}
	case OverlayShare:
		if s.keys.IsPressed(keyState, sdl.SCANCODE_S) {
			s.overlay = OverlayNone
		}
	}
}

func (s *FeedScreen) openOverlay(o Overlay) {
	s.overlay = o
	switch o {
	case OverlayTrending:
		s.trendingPanel.SetHashtags(s.controller.Trending())
	case OverlayShare:
		if item, ok := s.controller.ActiveItem(); ok {
			s.sharePanel.SetLink(s.shareBaseURL + "/c/" + item.Id)
		}
	}
}

// updateActiveFrame decodes the next frame of the active unit and feeds
// decode failures into recovery. Decode cadence follows the frame skipper
// so a struggling decoder degrades to 30/20fps instead of stalling the UI.
func (s *FeedScreen) updateActiveFrame() {
	activeId := s.controller.Pool().ActiveId()
	if activeId == "" {
		return
	}
	if activeId != s.lastActiveId {
		s.skipper.Reset()
		s.lastActiveId = activeId
	}
	av, ok := s.controller.Pool().Handle(activeId).(*playback.AVHandle)
	if !ok || av == nil {
		return
	}
	if !s.skipper.Advance() {
		return
	}

	start := time.Now()
	err := av.UpdateFrame()
	s.skipper.Observe(time.Since(start))
	if err != nil {
		log.Printf("updateActiveFrame: decode failed for %s: %v", activeId, err)
		s.controller.ReportPlaybackError(activeId, err)
	}
}

func (s *FeedScreen) syncOverlays() {
	if s.overlay == OverlayTrending {
		s.trendingPanel.SetHashtags(s.controller.Trending())
	}
}

func (s *FeedScreen) syncBanners() {
	if text := s.controller.ErrorText(); text != "" {
		s.banners.ShowError(text)
	} else {
		s.banners.ClearError()
	}
	s.banners.SetOffline(s.controller.NetworkTier() == netquality.TierOffline)
}

// Draw renders the feed: active video, caption scrim, engagement HUD
// and whatever overlay or banner is active.
func (s *FeedScreen) Draw(renderer *sdl.Renderer, screenWidth, screenHeight int32, fonts *ui.Fonts) error {
	switch s.controller.Phase() {
	case PhaseLoading:
		banner.DrawSkeleton(renderer, screenWidth, screenHeight)
		s.banners.Draw(renderer, screenWidth, screenHeight, fonts)
		return nil
	case PhaseError:
		renderer.SetDrawColor(2, 6, 23, 255)
		renderer.FillRect(&sdl.Rect{X: 0, Y: 0, W: screenWidth, H: screenHeight})
		s.banners.Draw(renderer, screenWidth, screenHeight, fonts)
		return nil
	}

	s.drawActiveVideo(renderer, screenWidth, screenHeight)
	s.drawItemHud(renderer, screenWidth, screenHeight, fonts)

	switch s.overlay {
	case OverlayTrending:
		s.trendingPanel.Draw(renderer, screenWidth/2-260, 120, 520, screenHeight-240, fonts.Large, fonts.Medium)
	case OverlayShare:
		s.sharePanel.Draw(renderer, screenWidth, screenHeight, fonts.Medium, fonts.Small)
	}

	s.banners.Draw(renderer, screenWidth, screenHeight, fonts)
	return nil
}

func (s *FeedScreen) drawActiveVideo(renderer *sdl.Renderer, screenWidth, screenHeight int32) {
	activeId := s.controller.Pool().ActiveId()
	av, _ := s.controller.Pool().Handle(activeId).(*playback.AVHandle)

	if av == nil {
		// Active unit still downloading or failed
		if _, failed := s.controller.ItemError(activeId); failed {
			renderer.SetDrawColor(2, 6, 23, 255)
			renderer.FillRect(&sdl.Rect{X: 0, Y: 0, W: screenWidth, H: screenHeight})
		} else {
			banner.DrawSkeleton(renderer, screenWidth, screenHeight)
		}
		return
	}

	if err := av.Draw(renderer, screenWidth, screenHeight); err != nil {
		log.Printf("drawActiveVideo: %v", err)
	}
}

func (s *FeedScreen) drawItemHud(renderer *sdl.Renderer, screenWidth, screenHeight int32, fonts *ui.Fonts) {
	item, ok := s.controller.ActiveItem()
	if !ok || fonts == nil {
		return
	}

	ui.DrawScrim(renderer, 0, screenHeight-260, screenWidth, 260, 190)

	white := sdl.Color{R: 255, G: 255, B: 255, A: 255}
	dim := sdl.Color{R: 203, G: 213, B: 225, A: 255}
	accent := sdl.Color{R: 129, G: 140, B: 248, A: 255}

	y := screenHeight - 230
	if s.captionsOn && item.Transcription != "" && fonts.Medium != nil {
		lines, err := ui.RenderWrappedText(renderer, item.Transcription, 32, y, screenWidth-220, white, fonts.Medium)
		if err == nil {
			y += int32(lines) * 30
		}
	}

	if len(item.Hashtags) > 0 && fonts.Small != nil {
		ui.RenderText(renderer, "#"+strings.Join(item.Hashtags, " #"), 32, y+8, accent, fonts.Small)
	}

	if fonts.Small != nil {
		heart := "♡"
		if item.IsLiked {
			heart = "♥"
		}
		hud := fmt.Sprintf("%s %d   ▶ %d   %d/%d", heart, item.Likes, item.Views,
			s.controller.ActiveIndex()+1, len(s.controller.Items()))
		ui.RenderText(renderer, hud, 32, screenHeight-44, dim, fonts.Small)
	}

	if s.controller.Phase() == PhaseRefreshing && fonts.Small != nil {
		ui.RenderText(renderer, "Refreshing…", screenWidth-160, screenHeight-44, dim, fonts.Small)
	}
}

// EnterBackground pauses playback when the window loses focus.
func (s *FeedScreen) EnterBackground() {
	s.controller.EnterBackground()
}

// EnterForeground resumes the active unit when focus returns.
func (s *FeedScreen) EnterForeground() {
	s.controller.EnterForeground()
}
