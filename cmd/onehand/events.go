package main

import (
	"encoding/json"
	"fmt"
	"time"

	"onehand/internal/keymap"
)

// Event is the input to the reducer.
type Event interface {
	eventMarker()
}

// ============================================================================
// Input events (produced by the evdev readers)
// ============================================================================

// ScanFrame carries the key transitions the matrix reported between two
// SYN_REPORT markers.
type ScanFrame struct {
	Transitions []KeyTransition
	At          time.Time
}

func (ScanFrame) eventMarker() {}

// EncoderMotion is a relative step count reported by the rotary encoder.
// Positive is clockwise.
type EncoderMotion struct {
	Delta int
}

func (EncoderMotion) eventMarker() {}

// ButtonLevel reports the debounced level of the encoder push switch.
type ButtonLevel struct {
	Pressed bool
}

func (ButtonLevel) eventMarker() {}

// PollTick starts one poll cycle.
type PollTick struct {
	Now time.Time
}

func (PollTick) eventMarker() {}

// InputLost is emitted when an input device goes away or fails to read.
type InputLost struct {
	Device string
	Err    error
}

func (InputLost) eventMarker() {}

// HIDCommandFailed is emitted when executing a Command fails.
type HIDCommandFailed struct {
	Command Command
	Err     error
	At      time.Time
}

func (HIDCommandFailed) eventMarker() {}

// ============================================================================
// Control events (IPC / websocket)
// ============================================================================

// InjectTransition queues a synthetic key transition for the next poll.
type InjectTransition struct {
	Position int  `json:"position"`
	Pressed  bool `json:"pressed"`
}

func (InjectTransition) eventMarker() {}

// InjectEncoder turns the encoder by Steps detents.
type InjectEncoder struct {
	Steps int `json:"steps"`
}

func (InjectEncoder) eventMarker() {}

// InjectMiddleClick latches a push-switch falling edge.
type InjectMiddleClick struct{}

func (InjectMiddleClick) eventMarker() {}

// ForceReleaseAll releases every held key and pointer button.
type ForceReleaseAll struct{}

func (ForceReleaseAll) eventMarker() {}

// RequestStateSnapshot asks the loop for a copy of the current state.
type RequestStateSnapshot struct {
	Reply chan StateSnapshot
}

func (RequestStateSnapshot) eventMarker() {}

// ============================================================================
// JSON Encoding/Decoding Support
// ============================================================================

// EventEnvelope wraps an event with a type discriminator for JSON marshaling
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// UnmarshalEvent deserializes a JSON event envelope into a concrete Event.
// Only control events are accepted from the wire.
func UnmarshalEvent(data []byte) (Event, error) {
	var env EventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case "key_transition":
		var a InjectTransition
		if err := json.Unmarshal(env.Data, &a); err != nil {
			return nil, fmt.Errorf("unmarshal InjectTransition: %w", err)
		}
		if !keymap.KeyPosition(a.Position).Valid() {
			return nil, fmt.Errorf("key position %d out of range [0,%d)", a.Position, keymap.PositionCount)
		}
		return a, nil

	case "encoder_turn":
		var a InjectEncoder
		if err := json.Unmarshal(env.Data, &a); err != nil {
			return nil, fmt.Errorf("unmarshal InjectEncoder: %w", err)
		}
		return a, nil

	case "middle_click":
		return InjectMiddleClick{}, nil

	case "release_all":
		return ForceReleaseAll{}, nil

	default:
		return nil, fmt.Errorf("unknown event type: %q", env.Type)
	}
}

// MarshalEvent serializes an Event into a JSON envelope with type discriminator
func MarshalEvent(e Event) ([]byte, error) {
	var env EventEnvelope

	switch e := e.(type) {
	case InjectTransition:
		env.Type = "key_transition"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal InjectTransition: %w", err)
		}
		env.Data = data

	case InjectEncoder:
		env.Type = "encoder_turn"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal InjectEncoder: %w", err)
		}
		env.Data = data

	case InjectMiddleClick:
		env.Type = "middle_click"

	case ForceReleaseAll:
		env.Type = "release_all"

	default:
		return nil, fmt.Errorf("unsupported event type: %T", e)
	}

	return json.Marshal(env)
}
