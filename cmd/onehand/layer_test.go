package main

import (
	"testing"

	"onehand/internal/keymap"
)

func TestLayerState_ToggleGroup(t *testing.T) {
	var s LayerState
	if s.Current() != keymap.Base {
		t.Fatalf("expected zero value to be Base, got %s", s.Current())
	}

	if !s.ToggleGroup() || s.Current() != keymap.Phonetic {
		t.Fatalf("expected Base -> Phonetic, got %s", s.Current())
	}
	if !s.ToggleGroup() || s.Current() != keymap.Base {
		t.Fatalf("expected Phonetic -> Base, got %s", s.Current())
	}
}

func TestLayerState_ToggleGroupIgnoredInFnOverlay(t *testing.T) {
	var s LayerState
	s.FnPress()
	if s.ToggleGroup() {
		t.Fatalf("expected toggle to be ignored while Fn is held")
	}
	if s.Current() != keymap.BaseFn {
		t.Fatalf("expected BaseFn, got %s", s.Current())
	}
}

func TestLayerState_FnMomentary(t *testing.T) {
	var s LayerState

	if !s.FnPress() || s.Current() != keymap.BaseFn {
		t.Fatalf("expected Base -> BaseFn, got %s", s.Current())
	}
	if s.FnPress() {
		t.Fatalf("expected second FnPress to be a no-op")
	}
	if !s.FnRelease() || s.Current() != keymap.Base {
		t.Fatalf("expected BaseFn -> Base, got %s", s.Current())
	}
	if s.FnRelease() {
		t.Fatalf("expected FnRelease on Base to be a no-op")
	}

	s.ToggleGroup()
	if !s.FnPress() || s.Current() != keymap.PhoneticFn {
		t.Fatalf("expected Phonetic -> PhoneticFn, got %s", s.Current())
	}
	if !s.FnRelease() || s.Current() != keymap.Phonetic {
		t.Fatalf("expected PhoneticFn -> Phonetic, got %s", s.Current())
	}
}

func TestLayerState_AlwaysExactlyOneLayer(t *testing.T) {
	var s LayerState
	ops := []func() bool{s.FnPress, s.ToggleGroup, s.FnRelease, s.ToggleGroup, s.FnPress, s.FnPress, s.ToggleGroup, s.FnRelease}
	for i, op := range ops {
		op()
		if !s.Current().Valid() {
			t.Fatalf("step %d: invalid layer %d", i, s.Current())
		}
	}
}
