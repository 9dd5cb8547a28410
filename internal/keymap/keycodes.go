package keymap

import "fmt"

// Usage is a USB HID keyboard usage ID (Usage Page 0x07).
type Usage uint8

// Keyboard usages referenced by the keymap (USB HID Usage Tables, section 10).
const (
	KeyA Usage = 0x04
	KeyB Usage = 0x05
	KeyC Usage = 0x06
	KeyD Usage = 0x07
	KeyE Usage = 0x08
	KeyF Usage = 0x09
	KeyG Usage = 0x0A
	KeyH Usage = 0x0B
	KeyI Usage = 0x0C
	KeyJ Usage = 0x0D
	KeyK Usage = 0x0E
	KeyL Usage = 0x0F
	KeyM Usage = 0x10
	KeyN Usage = 0x11
	KeyO Usage = 0x12
	KeyP Usage = 0x13
	KeyQ Usage = 0x14
	KeyR Usage = 0x15
	KeyS Usage = 0x16
	KeyT Usage = 0x17
	KeyU Usage = 0x18
	KeyV Usage = 0x19
	KeyW Usage = 0x1A
	KeyX Usage = 0x1B
	KeyY Usage = 0x1C
	KeyZ Usage = 0x1D

	Key1 Usage = 0x1E
	Key2 Usage = 0x1F
	Key3 Usage = 0x20
	Key4 Usage = 0x21
	Key5 Usage = 0x22
	Key6 Usage = 0x23
	Key7 Usage = 0x24
	Key8 Usage = 0x25
	Key9 Usage = 0x26
	Key0 Usage = 0x27

	KeyEnter      Usage = 0x28
	KeyEsc        Usage = 0x29
	KeyBackspace  Usage = 0x2A
	KeyTab        Usage = 0x2B
	KeySpace      Usage = 0x2C
	KeyMinus      Usage = 0x2D
	KeyEqual      Usage = 0x2E
	KeyLeftBrace  Usage = 0x2F
	KeyRightBrace Usage = 0x30
	KeyBackslash  Usage = 0x31
	KeySemicolon  Usage = 0x33
	KeyQuote      Usage = 0x34
	KeyGrave      Usage = 0x35 // "~" on the legend
	KeyComma      Usage = 0x36
	KeyPeriod     Usage = 0x37
	KeySlash      Usage = 0x38
	KeyCapsLock   Usage = 0x39

	KeyF1  Usage = 0x3A
	KeyF2  Usage = 0x3B
	KeyF3  Usage = 0x3C
	KeyF4  Usage = 0x3D
	KeyF5  Usage = 0x3E
	KeyF6  Usage = 0x3F
	KeyF7  Usage = 0x40
	KeyF8  Usage = 0x41
	KeyF9  Usage = 0x42
	KeyF10 Usage = 0x43
	KeyF11 Usage = 0x44
	KeyF12 Usage = 0x45

	KeyDelete Usage = 0x4C
	KeyRight  Usage = 0x4F
	KeyLeft   Usage = 0x50
	KeyDown   Usage = 0x51
	KeyUp     Usage = 0x52

	// Modifier usages. Boot-protocol reports carry these as bits of byte 0.
	KeyLeftCtrl   Usage = 0xE0
	KeyLeftShift  Usage = 0xE1
	KeyLeftAlt    Usage = 0xE2
	KeyLeftGUI    Usage = 0xE3
	KeyRightCtrl  Usage = 0xE4
	KeyRightShift Usage = 0xE5
	KeyRightAlt   Usage = 0xE6
	KeyRightGUI   Usage = 0xE7
)

// IsModifier reports whether u is one of the eight modifier usages.
func (u Usage) IsModifier() bool {
	return u >= KeyLeftCtrl && u <= KeyRightGUI
}

// ModifierBit returns the boot-protocol modifier bit for u, or 0 if u is not a modifier.
func (u Usage) ModifierBit() uint8 {
	if !u.IsModifier() {
		return 0
	}
	return 1 << (u - KeyLeftCtrl)
}

var usageNames = map[Usage]string{
	KeyEnter:      "ENTER",
	KeyEsc:        "ESC",
	KeyBackspace:  "BACKSPACE",
	KeyTab:        "TAB",
	KeySpace:      "SPACE",
	KeyMinus:      "-",
	KeyEqual:      "=",
	KeyLeftBrace:  "[",
	KeyRightBrace: "]",
	KeyBackslash:  "\\",
	KeySemicolon:  ";",
	KeyQuote:      "'",
	KeyGrave:      "~",
	KeyComma:      ",",
	KeyPeriod:     ".",
	KeySlash:      "/",
	KeyCapsLock:   "CAPS",
	KeyDelete:     "DELETE",
	KeyRight:      "RIGHT",
	KeyLeft:       "LEFT",
	KeyDown:       "DOWN",
	KeyUp:         "UP",
	KeyLeftCtrl:   "LCTRL",
	KeyLeftShift:  "LSHIFT",
	KeyLeftAlt:    "LALT",
	KeyLeftGUI:    "LWIN",
	KeyRightCtrl:  "RCTRL",
	KeyRightShift: "RSHIFT",
	KeyRightAlt:   "RALT",
	KeyRightGUI:   "RWIN",
}

// String returns the legend printed on the key, e.g. "A", "7", "[", "F5" or "LSHIFT".
func (u Usage) String() string {
	switch {
	case u >= KeyA && u <= KeyZ:
		return string(rune('A' + (u - KeyA)))
	case u >= Key1 && u <= Key9:
		return string(rune('1' + (u - Key1)))
	case u == Key0:
		return "0"
	case u >= KeyF1 && u <= KeyF12:
		return fmt.Sprintf("F%d", u-KeyF1+1)
	}
	if name, ok := usageNames[u]; ok {
		return name
	}
	return fmt.Sprintf("0x%02X", uint8(u))
}
