package window

import (
	"github.com/veandco/go-sdl2/sdl"

	"github.com/Faultbox/meshview/internal/engine/input"
)

var namedScancodes = map[sdl.Scancode]input.Key{
	sdl.SCANCODE_ESCAPE:    input.KeyEscape,
	sdl.SCANCODE_TAB:       input.KeyTab,
	sdl.SCANCODE_SPACE:     input.KeySpace,
	sdl.SCANCODE_RETURN:    input.KeyEnter,
	sdl.SCANCODE_BACKSPACE: input.KeyBackspace,
	sdl.SCANCODE_LSHIFT:    input.KeyLeftShift,
	sdl.SCANCODE_RSHIFT:    input.KeyRightShift,
	sdl.SCANCODE_LCTRL:     input.KeyLeftCtrl,
	sdl.SCANCODE_RCTRL:     input.KeyRightCtrl,
	sdl.SCANCODE_LALT:      input.KeyLeftAlt,
	sdl.SCANCODE_RALT:      input.KeyRightAlt,
	sdl.SCANCODE_UP:        input.KeyUp,
	sdl.SCANCODE_DOWN:      input.KeyDown,
	sdl.SCANCODE_LEFT:      input.KeyLeft,
	sdl.SCANCODE_RIGHT:     input.KeyRight,
	sdl.SCANCODE_PAGEUP:    input.KeyPageUp,
	sdl.SCANCODE_PAGEDOWN:  input.KeyPageDown,
	sdl.SCANCODE_HOME:      input.KeyHome,
	sdl.SCANCODE_END:       input.KeyEnd,
}

// translateScancode maps a physical SDL key to an input key. Scancodes are
// layout independent, so WASD stays in place on AZERTY keyboards.
func translateScancode(sc sdl.Scancode) input.Key {
	switch {
	case sc >= sdl.SCANCODE_A && sc <= sdl.SCANCODE_Z:
		return input.KeyA + input.Key(sc-sdl.SCANCODE_A)
	case sc >= sdl.SCANCODE_1 && sc <= sdl.SCANCODE_9:
		return input.Key1 + input.Key(sc-sdl.SCANCODE_1)
	case sc == sdl.SCANCODE_0:
		return input.Key0
	case sc >= sdl.SCANCODE_F1 && sc <= sdl.SCANCODE_F12:
		return input.KeyF1 + input.Key(sc-sdl.SCANCODE_F1)
	}
	return namedScancodes[sc]
}
