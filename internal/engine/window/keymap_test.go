package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/Faultbox/meshview/internal/engine/input"
)

func TestTranslateScancode(t *testing.T) {
	tests := []struct {
		sc   sdl.Scancode
		want input.Key
	}{
		{sdl.SCANCODE_A, input.KeyA},
		{sdl.SCANCODE_W, input.KeyW},
		{sdl.SCANCODE_Z, input.KeyZ},
		{sdl.SCANCODE_1, input.Key1},
		{sdl.SCANCODE_9, input.Key9},
		{sdl.SCANCODE_0, input.Key0},
		{sdl.SCANCODE_F1, input.KeyF1},
		{sdl.SCANCODE_F12, input.KeyF12},
		{sdl.SCANCODE_TAB, input.KeyTab},
		{sdl.SCANCODE_ESCAPE, input.KeyEscape},
		{sdl.SCANCODE_CAPSLOCK, input.KeyUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, translateScancode(tt.sc))
		})
	}
}

func TestTranslateEvents(t *testing.T) {
	w := &Window{}

	e, ok := w.translate(&sdl.KeyboardEvent{Type: sdl.KEYDOWN, Repeat: 1, Keysym: sdl.Keysym{Scancode: sdl.SCANCODE_F}})
	assert.True(t, ok)
	assert.Equal(t, input.Event{Type: input.EventKeyDown, Key: input.KeyF, Repeat: true}, e)

	e, ok = w.translate(&sdl.KeyboardEvent{Type: sdl.KEYUP, Keysym: sdl.Keysym{Scancode: sdl.SCANCODE_F}})
	assert.True(t, ok)
	assert.Equal(t, input.EventKeyUp, e.Type)

	_, ok = w.translate(&sdl.KeyboardEvent{Type: sdl.KEYDOWN, Keysym: sdl.Keysym{Scancode: sdl.SCANCODE_CAPSLOCK}})
	assert.False(t, ok, "unmapped keys are dropped")

	e, _ = w.translate(&sdl.MouseButtonEvent{Type: sdl.MOUSEBUTTONDOWN, Button: sdl.BUTTON_RIGHT})
	assert.Equal(t, input.Event{Type: input.EventMouseDown, Button: input.ButtonRight}, e)

	e, _ = w.translate(&sdl.MouseButtonEvent{Type: sdl.MOUSEBUTTONUP, Button: sdl.BUTTON_MIDDLE})
	assert.Equal(t, input.Event{Type: input.EventMouseUp, Button: input.ButtonMiddle}, e)

	e, _ = w.translate(&sdl.MouseMotionEvent{XRel: 4, YRel: -3})
	assert.Equal(t, input.Event{Type: input.EventMouseMove, DX: 4, DY: -3}, e)

	e, _ = w.translate(&sdl.MouseWheelEvent{Y: 1, Direction: sdl.MOUSEWHEEL_FLIPPED})
	assert.Equal(t, float32(-1), e.Wheel)

	e, ok = w.translate(&sdl.DropEvent{Type: sdl.DROPFILE, File: "/tmp/model.obj"})
	assert.True(t, ok)
	assert.Equal(t, input.Event{Type: input.EventFileDrop, Path: "/tmp/model.obj"}, e)

	e, _ = w.translate(&sdl.QuitEvent{})
	assert.Equal(t, input.EventQuit, e.Type)
}
