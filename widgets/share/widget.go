package share

import (
	"log"

	"hushfeed/ui"

	"github.com/skip2/go-qrcode"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/veandco/go-sdl2/ttf"
)

// Widget renders a share overlay: a QR code pointing at the confession's
// public link so a second device can open it without any account linkage.
type Widget struct {
	url    string
	qr     *qrcode.QRCode
	qrSize int32
}

// NewWidget creates an empty share widget.
func NewWidget() *Widget {
	return &Widget{qrSize: 280}
}

// SetLink regenerates the QR code for a confession link.
func (w *Widget) SetLink(url string) {
	if url == w.url && w.qr != nil {
		return
	}
	qr, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		log.Printf("SetLink: failed to encode QR for %s: %v", url, err)
		w.qr = nil
		return
	}
	w.url = url
	w.qr = qr
}

// Link returns the current share link.
func (w *Widget) Link() string {
	return w.url
}

// Draw renders the share card centered in the given viewport.
func (w *Widget) Draw(renderer *sdl.Renderer, screenWidth, screenHeight int32, mediumFont, smallFont *ttf.Font) error {
	if w.qr == nil {
		return nil
	}

	cardW := w.qrSize + 80
	cardH := w.qrSize + 140
	cardX := (screenWidth - cardW) / 2
	cardY := (screenHeight - cardH) / 2

	// Card background
	renderer.SetDrawColor(248, 250, 252, 255)
	renderer.FillRect(&sdl.Rect{X: cardX, Y: cardY, W: cardW, H: cardH})

	// QR modules drawn as filled rects straight from the bitmap; no image
	// decoding round trip needed.
	bitmap := w.qr.Bitmap()
	modules := int32(len(bitmap))
	if modules == 0 {
		return nil
	}
	cell := w.qrSize / modules
	qrX := cardX + (cardW-cell*modules)/2
	qrY := cardY + 40

	renderer.SetDrawColor(15, 15, 24, 255)
	for row := int32(0); row < modules; row++ {
		for col := int32(0); col < modules; col++ {
			if bitmap[row][col] {
				renderer.FillRect(&sdl.Rect{
					X: qrX + col*cell,
					Y: qrY + row*cell,
					W: cell,
					H: cell,
				})
			}
		}
	}

	textColor := sdl.Color{R: 15, G: 15, B: 24, A: 255}
	if mediumFont != nil {
		ui.RenderText(renderer, "Share this confession", cardX+40, qrY+cell*modules+16, textColor, mediumFont)
	}
	if smallFont != nil {
		dim := sdl.Color{R: 100, G: 116, B: 139, A: 255}
		ui.RenderText(renderer, "Scan to open. No account needed.", cardX+40, cardY+cardH-36, dim, smallFont)
	}
	return nil
}
