package main

import "onehand/internal/keymap"

// Edge is the direction of a key transition.
type Edge uint8

const (
	Pressed Edge = iota + 1
	Released
)

func (e Edge) String() string {
	if e == Pressed {
		return "pressed"
	}
	return "released"
}

// KeyTransition is one debounced state change of a matrix position.
type KeyTransition struct {
	Position keymap.KeyPosition
	Edge     Edge
}

// KeyboardState is the context owned by the poll loop and threaded through
// Dispatch and the pointer adapter.
type KeyboardState struct {
	Layer     LayerState
	Telemetry Telemetry
}

// Dispatch resolves one key transition into HID primitives.
//
// Resolution order, first match wins: position guard, mouse buttons, LAYER,
// FN, combo registry, plain table lookup. Dispatch performs no I/O and never
// fails; unknown input yields no commands.
func Dispatch(st *KeyboardState, tr KeyTransition) []Command {
	pos := tr.Position
	if !pos.Valid() || (tr.Edge != Pressed && tr.Edge != Released) {
		return nil
	}
	pressed := tr.Edge == Pressed

	if pos.IsMouseButton() {
		btn := MouseLeft
		if pos == keymap.PosMouseRight {
			btn = MouseRight
		}
		if pressed {
			st.Telemetry.recordMouseClick()
			return []Command{CmdMouseDown{Button: btn}}
		}
		return []Command{CmdMouseUp{Button: btn}}
	}

	if pressed {
		st.Telemetry.recordKeyPress(pos, st.Layer.Current())
	}

	switch pos {
	case keymap.PosLayer:
		if pressed && st.Layer.ToggleGroup() {
			st.Telemetry.markDirty()
		}
		return []Command{CmdReleaseAll{}}

	case keymap.PosFn:
		var changed bool
		if pressed {
			st.Telemetry.recordFnPress()
			changed = st.Layer.FnPress()
		} else {
			changed = st.Layer.FnRelease()
		}
		if changed {
			st.Telemetry.markDirty()
		}
		return []Command{CmdReleaseAll{}}
	}

	layer := st.Layer.Current()

	if combo, ok := keymap.LookupCombo(layer, pos); ok {
		if pressed {
			return []Command{CmdKeyDown{Usage: combo.Modifier}, CmdKeyDown{Usage: combo.Key}}
		}
		return []Command{CmdKeyUp{Usage: combo.Modifier}, CmdKeyUp{Usage: combo.Key}}
	}

	// None and Reserved slots are inert.
	usage, ok := keymap.Lookup(layer, pos).Usage()
	if !ok {
		return nil
	}
	if pressed {
		return []Command{CmdKeyDown{Usage: usage}}
	}
	return []Command{CmdKeyUp{Usage: usage}}
}
