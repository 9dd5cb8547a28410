package main

import "onehand/internal/keymap"

// LayerState is the active-layer state machine. The zero value is Base.
//
// Exactly one layer is active at any time. Only the LAYER and FN key edges move
// it, and those reach it exclusively through Dispatch.
type LayerState struct {
	current keymap.Layer
}

// Current returns the active layer.
func (s LayerState) Current() keymap.Layer { return s.current }

// ToggleGroup flips Base <-> Phonetic. It has no effect while an Fn overlay is held.
func (s *LayerState) ToggleGroup() bool {
	switch s.current {
	case keymap.Base:
		s.current = keymap.Phonetic
	case keymap.Phonetic:
		s.current = keymap.Base
	default:
		return false
	}
	return true
}

// FnPress enters the Fn overlay of the current group.
func (s *LayerState) FnPress() bool {
	next := s.current.Fn()
	if next == s.current {
		return false
	}
	s.current = next
	return true
}

// FnRelease leaves the Fn overlay and returns to the group's base layer.
func (s *LayerState) FnRelease() bool {
	next := s.current.Group()
	if next == s.current {
		return false
	}
	s.current = next
	return true
}
