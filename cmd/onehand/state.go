package main

import (
	"time"

	"onehand/internal/auxreport"
	"onehand/internal/keymap"
)

// DaemonState is the top-level, daemon-owned state container.
//
// Only the daemon goroutine touches it. Input readers feed it through Events;
// the poll cycle drains what they left behind.
type DaemonState struct {
	Keyboard KeyboardState

	// Pending holds transitions reported since the last poll, in scan order.
	Pending []KeyTransition

	Encoder EncoderState
	Button  ButtonState

	Polls uint64
}

// EncoderState accumulates relative encoder motion between polls.
type EncoderState struct {
	Position  int
	Direction Direction

	// Sampled is what the previous poll observed.
	Sampled EncoderSample
}

func (e *EncoderState) apply(delta int) {
	if delta == 0 {
		return
	}
	e.Position += delta
	if delta > 0 {
		e.Direction = DirClockwise
	} else {
		e.Direction = DirCounterClockwise
	}
}

func (e *EncoderState) sample() EncoderSample {
	return EncoderSample{Position: e.Position, Direction: e.Direction}
}

// ButtonState tracks the push switch. Fell latches a press until the next poll
// so a tap shorter than one poll period is not lost.
type ButtonState struct {
	Pressed bool
	Fell    bool
}

// StateSnapshot is a copy of daemon state safe to hand to other goroutines.
type StateSnapshot struct {
	Layer     keymap.Layer
	Telemetry auxreport.Report
	Pending   int
	Encoder   int
	Polls     uint64
	At        time.Time
}

// Snapshot copies the observable parts of s.
func (s *DaemonState) Snapshot(now time.Time) StateSnapshot {
	current := s.Keyboard.Layer.Current()
	return StateSnapshot{
		Layer:     current,
		Telemetry: s.Keyboard.Telemetry.Snapshot(current),
		Pending:   len(s.Pending),
		Encoder:   s.Encoder.Position,
		Polls:     s.Polls,
		At:        now,
	}
}

// ==============================
// Broadcasts
// ==============================

// StateBroadcast is a reducer-emitted notification for websocket clients.
type StateBroadcast interface {
	broadcastMarker()
}

// BroadcastLayerChanged is emitted when a poll cycle ends on a different layer.
type BroadcastLayerChanged struct {
	From keymap.Layer
	To   keymap.Layer
	At   time.Time
}

func (BroadcastLayerChanged) broadcastMarker() {}

// BroadcastTelemetry carries one telemetry snapshot.
type BroadcastTelemetry struct {
	Report auxreport.Report
	At     time.Time
}

func (BroadcastTelemetry) broadcastMarker() {}
