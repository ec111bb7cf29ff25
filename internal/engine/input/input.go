// Package input tracks keyboard and mouse state between frames.
package input

// EventType identifies a window or input event.
type EventType int

const (
	EventNone EventType = iota
	EventQuit
	EventWindowResize
	EventKeyDown
	EventKeyUp
	EventMouseMove
	EventMouseDown
	EventMouseUp
	EventMouseWheel
	EventFileDrop
)

// Event is a platform-independent input event produced by the window.
type Event struct {
	Type   EventType
	Key    Key
	Repeat bool
	Button Button

	// Relative pointer motion for EventMouseMove.
	DX, DY float32
	// Vertical wheel notches for EventMouseWheel; positive is away from
	// the user.
	Wheel float32

	Width  int
	Height int

	// Path is the dropped file for EventFileDrop.
	Path string
}

// State accumulates events of the current frame on top of the held state
// of previous frames.
type State struct {
	held [keyCount]bool
	prev [keyCount]bool
	hit  [keyCount]bool

	buttons [buttonCount]bool

	lookButton  Button
	orbitButton Button
	freeLook    bool

	lookDX, lookDY   float32
	orbitDX, orbitDY float32
	wheel            float32
}

// New creates an input state. Holding lookButton enables free-look,
// holding orbitButton drags an orbit.
func New(lookButton, orbitButton Button) *State {
	return &State{lookButton: lookButton, orbitButton: orbitButton}
}

// NewFrame must be called once per frame before the frame's events are
// handled. It snapshots held keys and clears per-frame hits and deltas.
func (s *State) NewFrame() {
	s.prev = s.held
	s.hit = [keyCount]bool{}
	s.flush()
	s.wheel = 0
}

func (s *State) flush() {
	s.lookDX, s.lookDY = 0, 0
	s.orbitDX, s.orbitDY = 0, 0
}

// Handle applies one event.
func (s *State) Handle(e Event) {
	switch e.Type {
	case EventKeyDown:
		if !e.Key.valid() {
			return
		}
		if !e.Repeat {
			s.hit[e.Key] = true
		}
		s.held[e.Key] = true

	case EventKeyUp:
		if e.Key.valid() {
			s.held[e.Key] = false
		}

	case EventMouseDown, EventMouseUp:
		if !e.Button.valid() {
			return
		}
		down := e.Type == EventMouseDown
		s.buttons[e.Button] = down
		if e.Button == s.lookButton && s.freeLook != down {
			s.freeLook = down
			s.flush()
		}
		if e.Button == s.orbitButton {
			s.orbitDX, s.orbitDY = 0, 0
		}

	case EventMouseMove:
		if s.freeLook {
			s.lookDX += e.DX
			s.lookDY += e.DY
		}
		if s.buttons[s.orbitButton] {
			s.orbitDX += e.DX
			s.orbitDY += e.DY
		}

	case EventMouseWheel:
		s.wheel += e.Wheel
	}
}

// Held reports whether k is down.
func (s *State) Held(k Key) bool {
	return k.valid() && s.held[k]
}

// Pressed reports whether k went down this frame.
func (s *State) Pressed(k Key) bool {
	if !k.valid() {
		return false
	}
	return s.hit[k] || (s.held[k] && !s.prev[k])
}

// ButtonHeld reports whether mouse button b is down.
func (s *State) ButtonHeld(b Button) bool {
	return b.valid() && s.buttons[b]
}

// FreeLook reports whether pointer motion currently rotates the camera.
func (s *State) FreeLook() bool { return s.freeLook }

// Look returns the pointer motion accumulated this frame while free-look
// was active.
func (s *State) Look() (dx, dy float32) { return s.lookDX, s.lookDY }

// Orbit returns the pointer motion accumulated this frame while the orbit
// button was held.
func (s *State) Orbit() (dx, dy float32) { return s.orbitDX, s.orbitDY }

// Wheel returns the wheel notches of this frame.
func (s *State) Wheel() float32 { return s.wheel }
