package input

import (
	"fmt"
	"strings"
)

// Key is a physical key. Values are independent of the window backend.
type Key int

const (
	KeyUnknown Key = iota

	KeyA
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
	KeyG
	KeyH
	KeyI
	KeyJ
	KeyK
	KeyL
	KeyM
	KeyN
	KeyO
	KeyP
	KeyQ
	KeyR
	KeyS
	KeyT
	KeyU
	KeyV
	KeyW
	KeyX
	KeyY
	KeyZ

	Key0
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9

	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12

	KeyEscape
	KeyTab
	KeySpace
	KeyEnter
	KeyBackspace
	KeyLeftShift
	KeyRightShift
	KeyLeftCtrl
	KeyRightCtrl
	KeyLeftAlt
	KeyRightAlt
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyPageUp
	KeyPageDown
	KeyHome
	KeyEnd

	keyCount
)

var keyNames = map[Key]string{
	KeyEscape:     "Escape",
	KeyTab:        "Tab",
	KeySpace:      "Space",
	KeyEnter:      "Enter",
	KeyBackspace:  "Backspace",
	KeyLeftShift:  "LeftShift",
	KeyRightShift: "RightShift",
	KeyLeftCtrl:   "LeftCtrl",
	KeyRightCtrl:  "RightCtrl",
	KeyLeftAlt:    "LeftAlt",
	KeyRightAlt:   "RightAlt",
	KeyUp:         "Up",
	KeyDown:       "Down",
	KeyLeft:       "Left",
	KeyRight:      "Right",
	KeyPageUp:     "PageUp",
	KeyPageDown:   "PageDown",
	KeyHome:       "Home",
	KeyEnd:        "End",
}

var keyAliases = map[string]Key{
	"esc":       KeyEscape,
	"return":    KeyEnter,
	"shift":     KeyLeftShift,
	"ctrl":      KeyLeftCtrl,
	"control":   KeyLeftCtrl,
	"alt":       KeyLeftAlt,
	"space bar": KeySpace,
}

var keysByName = func() map[string]Key {
	m := make(map[string]Key, int(keyCount)+len(keyAliases))
	for k := KeyA; k < keyCount; k++ {
		m[strings.ToLower(k.String())] = k
	}
	for name, k := range keyAliases {
		m[name] = k
	}
	return m
}()

func (k Key) valid() bool { return k > KeyUnknown && k < keyCount }

func (k Key) String() string {
	switch {
	case k >= KeyA && k <= KeyZ:
		return string(rune('A' + int(k-KeyA)))
	case k >= Key0 && k <= Key9:
		return string(rune('0' + int(k-Key0)))
	case k >= KeyF1 && k <= KeyF12:
		return fmt.Sprintf("F%d", int(k-KeyF1)+1)
	}
	if name, ok := keyNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Key(%d)", int(k))
}

// ParseKey returns the key named by s, as written in configuration files.
// Names are case-insensitive: "W", "tab", "F12", "Escape", "Esc".
func ParseKey(s string) (Key, error) {
	if k, ok := keysByName[strings.ToLower(strings.TrimSpace(s))]; ok {
		return k, nil
	}
	return KeyUnknown, fmt.Errorf("unknown key %q", s)
}

// Button is a mouse button. Values match the SDL button numbers.
type Button int

const (
	ButtonNone Button = iota
	ButtonLeft
	ButtonMiddle
	ButtonRight

	buttonCount
)

func (b Button) valid() bool { return b > ButtonNone && b < buttonCount }

func (b Button) String() string {
	switch b {
	case ButtonLeft:
		return "left"
	case ButtonMiddle:
		return "middle"
	case ButtonRight:
		return "right"
	}
	return "none"
}

// ParseButton returns the button named "left", "middle" or "right".
func ParseButton(s string) (Button, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left":
		return ButtonLeft, nil
	case "middle":
		return ButtonMiddle, nil
	case "right":
		return ButtonRight, nil
	}
	return ButtonNone, fmt.Errorf("unknown mouse button %q", s)
}

// Bindings maps viewer actions to keys and buttons.
type Bindings struct {
	Forward    Key
	Back       Key
	Left       Key
	Right      Key
	Up         Key
	Down       Key
	Focus      Key
	Wireframe  Key
	Bounds     Key
	Open       Key
	Screenshot Key
	Exit       Key

	Look  Button
	Orbit Button
}

// DefaultBindings returns the built-in key layout.
func DefaultBindings() Bindings {
	return Bindings{
		Forward:    KeyW,
		Back:       KeyS,
		Left:       KeyA,
		Right:      KeyD,
		Up:         KeyE,
		Down:       KeyQ,
		Focus:      KeyF,
		Wireframe:  KeyTab,
		Bounds:     KeyB,
		Open:       KeyO,
		Screenshot: KeyF12,
		Exit:       KeyEscape,
		Look:       ButtonRight,
		Orbit:      ButtonMiddle,
	}
}
