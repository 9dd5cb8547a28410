package main

import (
	"reflect"
	"testing"

	"onehand/internal/keymap"
)

func press(p keymap.KeyPosition) KeyTransition   { return KeyTransition{Position: p, Edge: Pressed} }
func release(p keymap.KeyPosition) KeyTransition { return KeyTransition{Position: p, Edge: Released} }

func expectCommands(t *testing.T, got []Command, want ...Command) {
	t.Helper()
	if len(got) == 0 && len(want) == 0 {
		return
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected commands %v, got %v", want, got)
	}
}

func TestDispatch_PhoneticComboScenario(t *testing.T) {
	st := &KeyboardState{}

	expectCommands(t, Dispatch(st, press(keymap.PosLayer)), CmdReleaseAll{})
	if st.Layer.Current() != keymap.Phonetic {
		t.Fatalf("expected Phonetic after LAYER press, got %s", st.Layer.Current())
	}
	expectCommands(t, Dispatch(st, release(keymap.PosLayer)), CmdReleaseAll{})

	expectCommands(t, Dispatch(st, press(keymap.PosFn)), CmdReleaseAll{})
	if st.Layer.Current() != keymap.PhoneticFn {
		t.Fatalf("expected PhoneticFn after FN press, got %s", st.Layer.Current())
	}

	expectCommands(t, Dispatch(st, press(keymap.PosLBracket)),
		CmdKeyDown{Usage: keymap.KeyLeftCtrl}, CmdKeyDown{Usage: keymap.KeyLeftBrace})
	expectCommands(t, Dispatch(st, release(keymap.PosLBracket)),
		CmdKeyUp{Usage: keymap.KeyLeftCtrl}, CmdKeyUp{Usage: keymap.KeyLeftBrace})

	expectCommands(t, Dispatch(st, release(keymap.PosFn)), CmdReleaseAll{})
	if st.Layer.Current() != keymap.Phonetic {
		t.Fatalf("expected Phonetic after FN release, got %s", st.Layer.Current())
	}
}

func TestDispatch_NoneSlotEmitsNothing(t *testing.T) {
	st := &KeyboardState{}
	if got := Dispatch(st, press(0)); len(got) != 0 {
		t.Fatalf("expected no commands for NONE slot press, got %v", got)
	}
	if got := Dispatch(st, release(0)); len(got) != 0 {
		t.Fatalf("expected no commands for NONE slot release, got %v", got)
	}
}

func TestDispatch_UnassignedFnSlotIsInert(t *testing.T) {
	st := &KeyboardState{}
	st.Layer.FnPress()
	if got := Dispatch(st, press(51)); len(got) != 0 {
		t.Fatalf("expected no commands on an unassigned BaseFn slot, got %v", got)
	}
}

func TestDispatch_InvalidPositionDropped(t *testing.T) {
	st := &KeyboardState{}
	for _, p := range []keymap.KeyPosition{-1, 56, 1000} {
		if got := Dispatch(st, press(p)); len(got) != 0 {
			t.Fatalf("expected no commands for position %d, got %v", p, got)
		}
	}
	if st.Telemetry.KeyPresses != 0 {
		t.Fatalf("expected dropped positions not to be counted, got %d", st.Telemetry.KeyPresses)
	}
}

func TestDispatch_PlainKeysArePaired(t *testing.T) {
	for l := keymap.Layer(0); l < keymap.LayerCount; l++ {
		for p := keymap.KeyPosition(0); p < keymap.PositionCount; p++ {
			if p == keymap.PosFn || p == keymap.PosLayer || p.IsMouseButton() {
				continue
			}
			if _, ok := keymap.LookupCombo(l, p); ok {
				continue
			}
			usage, ok := keymap.Lookup(l, p).Usage()
			if !ok {
				continue
			}

			st := &KeyboardState{Layer: LayerState{current: l}}
			expectCommands(t, Dispatch(st, press(p)), CmdKeyDown{Usage: usage})
			expectCommands(t, Dispatch(st, release(p)), CmdKeyUp{Usage: usage})
			if st.Layer.Current() != l {
				t.Fatalf("layer %s pos %d: plain key changed layer to %s", l, p, st.Layer.Current())
			}
		}
	}
}

func TestDispatch_CombosOverrideTable(t *testing.T) {
	for _, e := range keymap.Combos() {
		st := &KeyboardState{Layer: LayerState{current: e.Layer}}
		expectCommands(t, Dispatch(st, press(e.Position)),
			CmdKeyDown{Usage: e.Combo.Modifier}, CmdKeyDown{Usage: e.Combo.Key})
		expectCommands(t, Dispatch(st, release(e.Position)),
			CmdKeyUp{Usage: e.Combo.Modifier}, CmdKeyUp{Usage: e.Combo.Key})
	}
}

func TestDispatch_CtrlOnBaseFnSendsWinSpace(t *testing.T) {
	st := &KeyboardState{}
	Dispatch(st, press(keymap.PosFn))
	expectCommands(t, Dispatch(st, press(keymap.PosCtrl)),
		CmdKeyDown{Usage: keymap.KeyLeftGUI}, CmdKeyDown{Usage: keymap.KeySpace})
}

func TestDispatch_MouseButtonsIgnoreLayer(t *testing.T) {
	for l := keymap.Layer(0); l < keymap.LayerCount; l++ {
		st := &KeyboardState{Layer: LayerState{current: l}}
		expectCommands(t, Dispatch(st, press(keymap.PosMouseLeft)), CmdMouseDown{Button: MouseLeft})
		expectCommands(t, Dispatch(st, release(keymap.PosMouseLeft)), CmdMouseUp{Button: MouseLeft})
		expectCommands(t, Dispatch(st, press(keymap.PosMouseRight)), CmdMouseDown{Button: MouseRight})
		expectCommands(t, Dispatch(st, release(keymap.PosMouseRight)), CmdMouseUp{Button: MouseRight})

		if st.Telemetry.KeyPresses != 0 {
			t.Fatalf("expected mouse buttons to be excluded from key presses, got %d", st.Telemetry.KeyPresses)
		}
		if st.Telemetry.MouseClicks != 2 {
			t.Fatalf("expected 2 mouse clicks, got %d", st.Telemetry.MouseClicks)
		}
	}
}

func TestDispatch_LayerKeyInsideFnOverlayOnlyReleases(t *testing.T) {
	st := &KeyboardState{}
	Dispatch(st, press(keymap.PosFn))
	expectCommands(t, Dispatch(st, press(keymap.PosLayer)), CmdReleaseAll{})
	if st.Layer.Current() != keymap.BaseFn {
		t.Fatalf("expected LAYER to be ignored in BaseFn, got %s", st.Layer.Current())
	}
	Dispatch(st, release(keymap.PosFn))
	if st.Layer.Current() != keymap.Base {
		t.Fatalf("expected Base after FN release, got %s", st.Layer.Current())
	}
}

func TestDispatch_MidCycleLayerChangeVisible(t *testing.T) {
	// Same frame: FN pressed, then position 2 pressed. Position 2 resolves on BaseFn.
	st := &KeyboardState{}
	Dispatch(st, press(keymap.PosFn))
	if got := Dispatch(st, press(2)); len(got) != 0 {
		t.Fatalf("expected BaseFn slot 2 (none) to emit nothing, got %v", got)
	}
	Dispatch(st, release(keymap.PosFn))
	expectCommands(t, Dispatch(st, press(2)), CmdKeyDown{Usage: keymap.KeyLeftBrace})
}

func TestDispatch_TelemetryCounting(t *testing.T) {
	st := &KeyboardState{}
	Dispatch(st, press(keymap.PosLayer))
	Dispatch(st, release(keymap.PosLayer))
	Dispatch(st, press(keymap.PosFn))
	Dispatch(st, press(keymap.PosLBracket))
	Dispatch(st, release(keymap.PosLBracket))
	Dispatch(st, release(keymap.PosFn))

	tm := st.Telemetry
	if tm.KeyPresses != 3 {
		t.Fatalf("expected 3 key presses (LAYER, FN, [), got %d", tm.KeyPresses)
	}
	if tm.FnPresses != 1 {
		t.Fatalf("expected 1 fn press, got %d", tm.FnPresses)
	}
	if tm.LastKey != keymap.PosLBracket || tm.LastKeyLayer != keymap.PhoneticFn {
		t.Fatalf("expected last key 2 on PhoneticFn, got %d on %s", tm.LastKey, tm.LastKeyLayer)
	}
}

func TestPointer_EncoderScrollScenario(t *testing.T) {
	st := &KeyboardState{}
	prev := EncoderSample{Position: 10, Direction: DirClockwise}
	curr := EncoderSample{Position: 13, Direction: DirClockwise}

	expectCommands(t, st.OnEncoderSample(prev, curr), CmdMouseMove{Wheel: -1})
	if st.Telemetry.EncoderSteps != 3 {
		t.Fatalf("expected 3 encoder steps, got %d", st.Telemetry.EncoderSteps)
	}

	expectCommands(t, st.OnEncoderSample(curr, EncoderSample{Position: 11, Direction: DirCounterClockwise}),
		CmdMouseMove{Wheel: 1})
	if st.Telemetry.EncoderSteps != 5 {
		t.Fatalf("expected encoder steps to count magnitude, got %d", st.Telemetry.EncoderSteps)
	}

	if got := st.OnEncoderSample(curr, curr); len(got) != 0 {
		t.Fatalf("expected no scroll without movement, got %v", got)
	}
}

func TestPointer_ButtonEdge(t *testing.T) {
	st := &KeyboardState{}
	if got := st.OnButtonEdge(false); len(got) != 0 {
		t.Fatalf("expected no click without a falling edge, got %v", got)
	}
	expectCommands(t, st.OnButtonEdge(true), CmdMouseClick{Button: MouseMiddle})
	if st.Telemetry.MouseClicks != 1 {
		t.Fatalf("expected 1 mouse click, got %d", st.Telemetry.MouseClicks)
	}
}
