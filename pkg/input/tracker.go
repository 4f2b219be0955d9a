package input

import "github.com/veandco/go-sdl2/sdl"

// KeyPressTracker turns held keys into single edge-triggered presses so one
// swipe gesture does not step the feed several items.
type KeyPressTracker struct {
	pressed map[sdl.Scancode]bool
}

// NewKeyPressTracker creates a new KeyPressTracker.
func NewKeyPressTracker() KeyPressTracker {
	return KeyPressTracker{
		pressed: make(map[sdl.Scancode]bool),
	}
}

// IsPressed reports a key press exactly once per physical press.
func (kpt *KeyPressTracker) IsPressed(keyState []uint8, scancode sdl.Scancode) bool {
	isCurrentlyPressed := keyState[scancode] != 0
	wasPressed := kpt.pressed[scancode]

	kpt.pressed[scancode] = isCurrentlyPressed

	return isCurrentlyPressed && !wasPressed
}

// Reset forgets all held state, e.g. when an overlay takes over input.
func (kpt *KeyPressTracker) Reset() {
	kpt.pressed = make(map[sdl.Scancode]bool)
}

// MousePressTracker does the same for mouse buttons, keyed by SDL button
// mask (e.g. sdl.ButtonLMask()).
type MousePressTracker struct {
	pressed map[uint32]bool
}

// NewMousePressTracker creates a new MousePressTracker.
func NewMousePressTracker() MousePressTracker {
	return MousePressTracker{
		pressed: make(map[uint32]bool),
	}
}

// IsPressed reports a button press exactly once per physical press.
func (mpt *MousePressTracker) IsPressed(buttons uint32, mask uint32) bool {
	isCurrentlyPressed := buttons&mask != 0
	wasPressed := mpt.pressed[mask]

	mpt.pressed[mask] = isCurrentlyPressed

	return isCurrentlyPressed && !wasPressed
}
