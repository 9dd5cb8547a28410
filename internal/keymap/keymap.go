// Package keymap holds the compiled-in keyboard layout: the four logical layers,
// the 56 physical key positions, the per-layer output table and the combo registry
// that overrides it.
//
// Everything in this package is immutable for the lifetime of the process.
package keymap

import "fmt"

// Matrix geometry. Positions are numbered row-major: position = row*Cols + col.
const (
	Rows          = 7
	Cols          = 8
	PositionCount = Rows * Cols
)

// KeyPosition identifies one physical switch of the matrix.
type KeyPosition int

// Valid reports whether p can be used as a table index.
func (p KeyPosition) Valid() bool {
	return p >= 0 && p < PositionCount
}

// Row returns the matrix row of p.
func (p KeyPosition) Row() int { return int(p) / Cols }

// Col returns the matrix column of p.
func (p KeyPosition) Col() int { return int(p) % Cols }

// Positions with fixed meaning.
const (
	PosLBracket   KeyPosition = 2
	PosRBracket   KeyPosition = 3
	PosHashtag    KeyPosition = 9
	PosAmpersand  KeyPosition = 10
	PosAsterisk   KeyPosition = 11
	PosPlus       KeyPosition = 13
	PosCaret      KeyPosition = 22
	PosSemicolon  KeyPosition = 25
	PosQuote      KeyPosition = 26
	PosComma      KeyPosition = 27
	PosPeriod     KeyPosition = 28
	PosFn         KeyPosition = 40
	PosCtrl       KeyPosition = 46
	PosLayer      KeyPosition = 47
	PosMouseLeft  KeyPosition = 48
	PosMouseRight KeyPosition = 49
)

// IsMouseButton reports whether p is one of the two pointer-button positions.
func (p KeyPosition) IsMouseButton() bool {
	return p == PosMouseLeft || p == PosMouseRight
}

// Layer is one of the four logical keymaps.
type Layer uint8

const (
	Base Layer = iota
	BaseFn
	Phonetic
	PhoneticFn

	LayerCount = 4
)

// Valid reports whether l names one of the four layers.
func (l Layer) Valid() bool { return l < LayerCount }

// IsFn reports whether l is the momentary Fn overlay of its group.
func (l Layer) IsFn() bool { return l == BaseFn || l == PhoneticFn }

// Group returns the non-Fn layer of l's group (Base or Phonetic).
func (l Layer) Group() Layer {
	if l >= Phonetic {
		return Phonetic
	}
	return Base
}

// Fn returns the Fn overlay of l's group.
func (l Layer) Fn() Layer { return l.Group() + 1 }

func (l Layer) String() string {
	switch l {
	case Base:
		return "base"
	case BaseFn:
		return "base-fn"
	case Phonetic:
		return "phonetic"
	case PhoneticFn:
		return "phonetic-fn"
	default:
		return fmt.Sprintf("layer(%d)", uint8(l))
	}
}

// OutputKind tags an OutputCode.
type OutputKind uint8

const (
	// KindNone means the slot is unassigned and produces no HID effect.
	KindNone OutputKind = iota
	// KindReserved marks a placeholder slot. It is inert: no HID effect.
	KindReserved
	// KindCode carries a concrete HID keyboard usage.
	KindCode
)

// OutputCode is the content of one table slot: None, Reserved or Code(usage).
type OutputCode struct {
	kind  OutputKind
	usage Usage
}

var (
	None     = OutputCode{kind: KindNone}
	Reserved = OutputCode{kind: KindReserved}
)

// CodeOf wraps a concrete usage.
func CodeOf(u Usage) OutputCode {
	return OutputCode{kind: KindCode, usage: u}
}

// Kind returns the tag of c.
func (c OutputCode) Kind() OutputKind { return c.kind }

// Usage returns the HID usage of c and whether c carries one.
func (c OutputCode) Usage() (Usage, bool) {
	return c.usage, c.kind == KindCode
}

func (c OutputCode) String() string {
	switch c.kind {
	case KindNone:
		return "none"
	case KindReserved:
		return "reserved"
	default:
		return c.usage.String()
	}
}

// Lookup returns the table slot for (l, p). Out-of-range input yields None.
func Lookup(l Layer, p KeyPosition) OutputCode {
	if !l.Valid() || !p.Valid() {
		return None
	}
	return table[l][p]
}

// Shorthands for the table literal below.
var (
	__ = None
	rs = Reserved
)

func k(u Usage) OutputCode { return CodeOf(u) }

var table = [LayerCount][PositionCount]OutputCode{
	Base: {
		__, k(KeyGrave), k(KeyLeftBrace), k(KeyRightBrace), k(KeyMinus), k(KeyEqual), k(KeySemicolon), k(KeyBackslash),
		k(KeyEsc), k(Key6), k(Key7), k(Key8), k(Key9), k(Key0), k(KeyComma), k(KeyPeriod),
		k(KeyCapsLock), k(Key1), k(Key2), k(Key3), k(Key4), k(Key5), k(KeySlash), k(KeyQuote),
		k(KeyTab), k(KeyY), k(KeyQ), k(KeyW), k(KeyE), k(KeyR), k(KeyT), k(KeyBackspace),
		k(KeyLeftShift), k(KeyH), k(KeyA), k(KeyS), k(KeyD), k(KeyF), k(KeyG), k(KeyEnter),
		__, k(KeyZ), k(KeyX), k(KeyC), k(KeyV), k(KeyLeftAlt), k(KeyLeftCtrl), rs,
		k(KeyLeft), k(KeyRight), k(KeySpace), __, __, __, __, __,
	},
	BaseFn: {
		__, __, __, __, __, __, __, __,
		k(KeyLeftGUI), k(KeyF7), k(KeyF8), k(KeyF9), k(KeyF10), k(KeyF11), k(KeyF12), __,
		k(KeyCapsLock), k(KeyF1), k(KeyF2), k(KeyF3), k(KeyF4), k(KeyF5), k(KeyF6), __,
		k(KeyTab), __, k(KeyUp), k(KeyU), k(KeyI), k(KeyO), k(KeyP), k(KeyDelete),
		k(KeyLeftShift), k(KeyLeft), k(KeyDown), k(KeyRight), k(KeyJ), k(KeyK), k(KeyL), k(KeyEnter),
		__, __, k(KeyB), k(KeyN), k(KeyM), __, rs, rs,
		__, __, __, __, __, __, __, __,
	},
	Phonetic: {
		__, k(Key1), k(KeyS), k(KeyF), k(KeyY), k(Key8), k(KeyL), k(KeySlash),
		k(KeyEsc), k(KeyQ), k(KeyX), k(KeyV), k(KeyH), k(KeyI), k(KeyPeriod), k(KeyMinus),
		k(KeyCapsLock), k(KeyA), k(KeyE), k(Key5), k(KeyN), k(KeyK), k(Key0), k(KeyGrave),
		k(KeyTab), k(KeyZ), k(KeyD), k(KeyT), k(KeyU), k(KeyComma), k(KeyP), k(KeyBackspace),
		k(KeyLeftShift), k(Key2), k(KeyC), k(KeyG), k(KeyJ), k(Key9), k(KeySemicolon), k(KeyEnter),
		__, k(KeyW), k(KeyR), k(KeyB), k(KeyM), k(KeyO), k(KeyLeftCtrl), rs,
		k(KeyLeft), k(KeyRight), k(KeySpace), __, __, __, __, __,
	},
	PhoneticFn: {
		__, __, rs, rs, __, __, __, __,
		k(KeyLeftGUI), rs, rs, rs, k(KeyEqual), rs, __, __,
		k(KeyCapsLock), k(KeySpace), k(Key6), k(Key3), k(Key4), k(Key7), rs, __,
		k(KeyTab), rs, rs, rs, rs, __, __, k(KeyDelete),
		k(KeyLeftShift), __, __, __, __, __, __, __,
		__, __, __, __, __, __, rs, rs,
		k(KeyLeft), k(KeyRight), k(KeySpace), __, __, __, __, __,
	},
}
