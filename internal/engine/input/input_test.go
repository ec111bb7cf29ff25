package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newState() *State {
	b := DefaultBindings()
	return New(b.Look, b.Orbit)
}

func TestPressedAndHeld(t *testing.T) {
	s := newState()

	s.NewFrame()
	s.Handle(Event{Type: EventKeyDown, Key: KeyW})
	assert.True(t, s.Pressed(KeyW))
	assert.True(t, s.Held(KeyW))

	// Still held next frame, but no longer a fresh press.
	s.NewFrame()
	s.Handle(Event{Type: EventKeyDown, Key: KeyW, Repeat: true})
	assert.False(t, s.Pressed(KeyW))
	assert.True(t, s.Held(KeyW))

	s.NewFrame()
	s.Handle(Event{Type: EventKeyUp, Key: KeyW})
	assert.False(t, s.Held(KeyW))
	assert.False(t, s.Pressed(KeyW))
}

func TestTapWithinOneFrameCountsAsPress(t *testing.T) {
	s := newState()
	s.NewFrame()
	s.Handle(Event{Type: EventKeyDown, Key: KeyTab})
	s.Handle(Event{Type: EventKeyUp, Key: KeyTab})
	assert.True(t, s.Pressed(KeyTab))
	assert.False(t, s.Held(KeyTab))

	s.NewFrame()
	assert.False(t, s.Pressed(KeyTab))
}

func TestInvalidKeysAreIgnored(t *testing.T) {
	s := newState()
	s.NewFrame()
	s.Handle(Event{Type: EventKeyDown, Key: KeyUnknown})
	s.Handle(Event{Type: EventKeyDown, Key: keyCount + 5})
	assert.False(t, s.Pressed(KeyUnknown))
	assert.False(t, s.Held(keyCount+5))
	assert.False(t, s.ButtonHeld(Button(42)))
}

func TestFreeLookGate(t *testing.T) {
	s := newState()
	s.NewFrame()

	s.Handle(Event{Type: EventMouseMove, DX: 10, DY: 5})
	dx, dy := s.Look()
	assert.Zero(t, dx, "motion without free-look is dropped")
	assert.Zero(t, dy)

	s.Handle(Event{Type: EventMouseDown, Button: ButtonRight})
	require.True(t, s.FreeLook())
	s.Handle(Event{Type: EventMouseMove, DX: 3, DY: -2})
	s.Handle(Event{Type: EventMouseMove, DX: 1, DY: 1})
	dx, dy = s.Look()
	assert.Equal(t, float32(4), dx)
	assert.Equal(t, float32(-1), dy)

	// Leaving free-look flushes pending deltas.
	s.Handle(Event{Type: EventMouseUp, Button: ButtonRight})
	assert.False(t, s.FreeLook())
	dx, dy = s.Look()
	assert.Zero(t, dx)
	assert.Zero(t, dy)

	// Entering flushes too.
	s.NewFrame()
	s.Handle(Event{Type: EventMouseDown, Button: ButtonRight})
	s.Handle(Event{Type: EventMouseMove, DX: 7})
	s.NewFrame()
	dx, _ = s.Look()
	assert.Zero(t, dx, "deltas last one frame")
	assert.True(t, s.FreeLook(), "gate survives frames")
}

func TestOrbitDrag(t *testing.T) {
	s := newState()
	s.NewFrame()
	s.Handle(Event{Type: EventMouseDown, Button: ButtonMiddle})
	s.Handle(Event{Type: EventMouseMove, DX: 2, DY: 3})
	dx, dy := s.Orbit()
	assert.Equal(t, float32(2), dx)
	assert.Equal(t, float32(3), dy)
	assert.False(t, s.FreeLook())
	assert.True(t, s.ButtonHeld(ButtonMiddle))

	s.Handle(Event{Type: EventMouseUp, Button: ButtonMiddle})
	s.Handle(Event{Type: EventMouseMove, DX: 2})
	dx, _ = s.Orbit()
	assert.Zero(t, dx)
}

func TestWheel(t *testing.T) {
	s := newState()
	s.NewFrame()
	s.Handle(Event{Type: EventMouseWheel, Wheel: 1})
	s.Handle(Event{Type: EventMouseWheel, Wheel: 2})
	assert.Equal(t, float32(3), s.Wheel())
	s.NewFrame()
	assert.Zero(t, s.Wheel())
}

func TestParseKey(t *testing.T) {
	tests := []struct {
		name string
		want Key
	}{
		{"W", KeyW},
		{"w", KeyW},
		{"Tab", KeyTab},
		{"F12", KeyF12},
		{"f1", KeyF1},
		{"Escape", KeyEscape},
		{"esc", KeyEscape},
		{"Shift", KeyLeftShift},
		{" 7 ", Key7},
		{"PageDown", KeyPageDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseKey(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "F13", "Hyper", "Key(3)"} {
		_, err := ParseKey(bad)
		assert.Error(t, err, bad)
	}
}

func TestKeyNamesRoundTrip(t *testing.T) {
	for k := KeyA; k < keyCount; k++ {
		got, err := ParseKey(k.String())
		require.NoError(t, err, k.String())
		assert.Equal(t, k, got)
	}
}

func TestParseButton(t *testing.T) {
	b, err := ParseButton("Middle")
	require.NoError(t, err)
	assert.Equal(t, ButtonMiddle, b)
	assert.Equal(t, "middle", b.String())

	_, err = ParseButton("x1")
	assert.Error(t, err)
}
