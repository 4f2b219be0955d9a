package ui

import (
	"fmt"
	"strings"

	"github.com/veandco/go-sdl2/sdl"
	"github.com/veandco/go-sdl2/ttf"
)

// RenderText renders text at the specified position with the given font and
// color.
func RenderText(renderer *sdl.Renderer, text string, x, y int32, color sdl.Color, font *ttf.Font) error {
	if font == nil {
		return fmt.Errorf("font not available")
	}

	surface, err := font.RenderUTF8Blended(text, color)
	if err != nil {
		return err
	}
	defer surface.Free()

	texture, err := renderer.CreateTextureFromSurface(surface)
	if err != nil {
		return err
	}
	defer texture.Destroy()

	_, _, w, h, err := texture.Query()
	if err != nil {
		return err
	}

	dstRect := sdl.Rect{X: x, Y: y, W: w, H: h}
	return renderer.Copy(texture, nil, &dstRect)
}

// RenderWrappedText renders caption text word-wrapped to maxWidth, bottom
// aligned upward from y. Returns the number of lines drawn.
func RenderWrappedText(renderer *sdl.Renderer, text string, x, y, maxWidth int32, color sdl.Color, font *ttf.Font) (int, error) {
	if font == nil {
		return 0, fmt.Errorf("font not available")
	}

	lines := wrapText(text, maxWidth, font)
	lineHeight := int32(font.Height() + 4)
	startY := y - int32(len(lines))*lineHeight

	for i, line := range lines {
		if err := RenderText(renderer, line, x, startY+int32(i)*lineHeight, color, font); err != nil {
			return i, err
		}
	}
	return len(lines), nil
}

// wrapText splits text into lines fitting maxWidth pixels.
func wrapText(text string, maxWidth int32, font *ttf.Font) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		w, _, err := font.SizeUTF8(candidate)
		if err == nil && int32(w) > maxWidth {
			lines = append(lines, current)
			current = word
			continue
		}
		current = candidate
	}
	return append(lines, current)
}
