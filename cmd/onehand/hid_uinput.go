package main

import (
	"fmt"
	"io"

	"github.com/bendahl/uinput"
	evdev "github.com/gvalkov/golang-evdev"

	"onehand/internal/keymap"
)

// uinput backend: the board is its own host. Virtual devices are created
// through /dev/uinput and HID usages are translated to Linux key codes.

var usageToKeyCode = map[keymap.Usage]int{
	keymap.KeyA: evdev.KEY_A, keymap.KeyB: evdev.KEY_B, keymap.KeyC: evdev.KEY_C, keymap.KeyD: evdev.KEY_D,
	keymap.KeyE: evdev.KEY_E, keymap.KeyF: evdev.KEY_F, keymap.KeyG: evdev.KEY_G, keymap.KeyH: evdev.KEY_H,
	keymap.KeyI: evdev.KEY_I, keymap.KeyJ: evdev.KEY_J, keymap.KeyK: evdev.KEY_K, keymap.KeyL: evdev.KEY_L,
	keymap.KeyM: evdev.KEY_M, keymap.KeyN: evdev.KEY_N, keymap.KeyO: evdev.KEY_O, keymap.KeyP: evdev.KEY_P,
	keymap.KeyQ: evdev.KEY_Q, keymap.KeyR: evdev.KEY_R, keymap.KeyS: evdev.KEY_S, keymap.KeyT: evdev.KEY_T,
	keymap.KeyU: evdev.KEY_U, keymap.KeyV: evdev.KEY_V, keymap.KeyW: evdev.KEY_W, keymap.KeyX: evdev.KEY_X,
	keymap.KeyY: evdev.KEY_Y, keymap.KeyZ: evdev.KEY_Z,

	keymap.Key1: evdev.KEY_1, keymap.Key2: evdev.KEY_2, keymap.Key3: evdev.KEY_3, keymap.Key4: evdev.KEY_4,
	keymap.Key5: evdev.KEY_5, keymap.Key6: evdev.KEY_6, keymap.Key7: evdev.KEY_7, keymap.Key8: evdev.KEY_8,
	keymap.Key9: evdev.KEY_9, keymap.Key0: evdev.KEY_0,

	keymap.KeyEnter:      evdev.KEY_ENTER,
	keymap.KeyEsc:        evdev.KEY_ESC,
	keymap.KeyBackspace:  evdev.KEY_BACKSPACE,
	keymap.KeyTab:        evdev.KEY_TAB,
	keymap.KeySpace:      evdev.KEY_SPACE,
	keymap.KeyMinus:      evdev.KEY_MINUS,
	keymap.KeyEqual:      evdev.KEY_EQUAL,
	keymap.KeyLeftBrace:  evdev.KEY_LEFTBRACE,
	keymap.KeyRightBrace: evdev.KEY_RIGHTBRACE,
	keymap.KeyBackslash:  evdev.KEY_BACKSLASH,
	keymap.KeySemicolon:  evdev.KEY_SEMICOLON,
	keymap.KeyQuote:      evdev.KEY_APOSTROPHE,
	keymap.KeyGrave:      evdev.KEY_GRAVE,
	keymap.KeyComma:      evdev.KEY_COMMA,
	keymap.KeyPeriod:     evdev.KEY_DOT,
	keymap.KeySlash:      evdev.KEY_SLASH,
	keymap.KeyCapsLock:   evdev.KEY_CAPSLOCK,

	keymap.KeyF1: evdev.KEY_F1, keymap.KeyF2: evdev.KEY_F2, keymap.KeyF3: evdev.KEY_F3, keymap.KeyF4: evdev.KEY_F4,
	keymap.KeyF5: evdev.KEY_F5, keymap.KeyF6: evdev.KEY_F6, keymap.KeyF7: evdev.KEY_F7, keymap.KeyF8: evdev.KEY_F8,
	keymap.KeyF9: evdev.KEY_F9, keymap.KeyF10: evdev.KEY_F10, keymap.KeyF11: evdev.KEY_F11, keymap.KeyF12: evdev.KEY_F12,

	keymap.KeyDelete: evdev.KEY_DELETE,
	keymap.KeyRight:  evdev.KEY_RIGHT,
	keymap.KeyLeft:   evdev.KEY_LEFT,
	keymap.KeyDown:   evdev.KEY_DOWN,
	keymap.KeyUp:     evdev.KEY_UP,

	keymap.KeyLeftCtrl:   evdev.KEY_LEFTCTRL,
	keymap.KeyLeftShift:  evdev.KEY_LEFTSHIFT,
	keymap.KeyLeftAlt:    evdev.KEY_LEFTALT,
	keymap.KeyLeftGUI:    evdev.KEY_LEFTMETA,
	keymap.KeyRightCtrl:  evdev.KEY_RIGHTCTRL,
	keymap.KeyRightShift: evdev.KEY_RIGHTSHIFT,
	keymap.KeyRightAlt:   evdev.KEY_RIGHTALT,
	keymap.KeyRightGUI:   evdev.KEY_RIGHTMETA,
}

func linuxKeyCode(u keymap.Usage) (int, error) {
	code, ok := usageToKeyCode[u]
	if !ok {
		return 0, fmt.Errorf("no linux key code for usage %s", u)
	}
	return code, nil
}

// keyPresser is the subset of uinput.Keyboard used here.
type keyPresser interface {
	KeyDown(key int) error
	KeyUp(key int) error
}

// uinputKeyboard remembers held codes; uinput has no "release all" primitive.
type uinputKeyboard struct {
	dev  keyPresser
	held map[int]struct{}
}

func newUinputKeyboard(dev keyPresser) *uinputKeyboard {
	return &uinputKeyboard{dev: dev, held: make(map[int]struct{})}
}

func (k *uinputKeyboard) KeyDown(u keymap.Usage) error {
	code, err := linuxKeyCode(u)
	if err != nil {
		return err
	}
	if err := k.dev.KeyDown(code); err != nil {
		return fmt.Errorf("uinput key down %s: %w", u, err)
	}
	k.held[code] = struct{}{}
	return nil
}

func (k *uinputKeyboard) KeyUp(u keymap.Usage) error {
	code, err := linuxKeyCode(u)
	if err != nil {
		return err
	}
	delete(k.held, code)
	if err := k.dev.KeyUp(code); err != nil {
		return fmt.Errorf("uinput key up %s: %w", u, err)
	}
	return nil
}

func (k *uinputKeyboard) ReleaseAll() error {
	var firstErr error
	for code := range k.held {
		if err := k.dev.KeyUp(code); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("uinput release code %d: %w", code, err)
		}
		delete(k.held, code)
	}
	return firstErr
}

type uinputMouse struct {
	dev uinput.Mouse
}

func (m *uinputMouse) ButtonDown(b MouseButton) error {
	switch b {
	case MouseLeft:
		return m.dev.LeftPress()
	case MouseRight:
		return m.dev.RightPress()
	case MouseMiddle:
		return m.dev.MiddlePress()
	}
	return fmt.Errorf("unknown mouse button %s", b)
}

func (m *uinputMouse) ButtonUp(b MouseButton) error {
	switch b {
	case MouseLeft:
		return m.dev.LeftRelease()
	case MouseRight:
		return m.dev.RightRelease()
	case MouseMiddle:
		return m.dev.MiddleRelease()
	}
	return fmt.Errorf("unknown mouse button %s", b)
}

func (m *uinputMouse) Click(b MouseButton) error {
	switch b {
	case MouseLeft:
		return m.dev.LeftClick()
	case MouseRight:
		return m.dev.RightClick()
	case MouseMiddle:
		return m.dev.MiddleClick()
	}
	return fmt.Errorf("unknown mouse button %s", b)
}

func (m *uinputMouse) Move(dx, dy, wheel int) error {
	if dx != 0 || dy != 0 {
		if err := m.dev.Move(int32(dx), int32(dy)); err != nil {
			return fmt.Errorf("uinput move: %w", err)
		}
	}
	if wheel != 0 {
		if err := m.dev.Wheel(false, int32(wheel)); err != nil {
			return fmt.Errorf("uinput wheel: %w", err)
		}
	}
	return nil
}

func openUinputOutput(cfg UinputOutputConfig) (*HIDOutput, error) {
	kbd, err := uinput.CreateKeyboard(cfg.Path, []byte(cfg.KeyboardName))
	if err != nil {
		return nil, fmt.Errorf("create uinput keyboard: %w", err)
	}
	mouse, err := uinput.CreateMouse(cfg.Path, []byte(cfg.MouseName))
	if err != nil {
		_ = kbd.Close()
		return nil, fmt.Errorf("create uinput mouse: %w", err)
	}
	return &HIDOutput{
		Keyboard: newUinputKeyboard(kbd),
		Pointer:  &uinputMouse{dev: mouse},
		closers:  []io.Closer{kbd, mouse},
	}, nil
}
