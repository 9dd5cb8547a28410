package main

import (
	"slices"
	"time"

	"onehand/internal/keymap"
)

// The reducer turns Events into the next DaemonState plus Commands (HID output)
// and Broadcasts (websocket notifications). It performs no I/O; the daemon loop
// executes what it returns and feeds failures back as Events.

// ReducerConfig carries the policy knobs Reduce needs.
type ReducerConfig struct {
	// AuxReport enables CmdAuxReport emission.
	AuxReport bool
	// TelemetryInterval is the minimum spacing between two snapshots.
	TelemetryInterval time.Duration
}

// ReduceResult is the output of Reduce(): next state, Commands to execute in
// order, and Broadcasts for websocket clients.
type ReduceResult struct {
	State      *DaemonState
	Commands   []Command
	Broadcasts []StateBroadcast
}

// Reduce is the pure reducer.
//
// Rules:
// - Must not perform I/O
// - Must not block
// - Must not mutate anything outside the returned state
func Reduce(s *DaemonState, e Event, cfg ReducerConfig) ReduceResult {
	if s == nil {
		s = &DaemonState{}
	}

	var cmds []Command
	var bcasts []StateBroadcast

	switch ev := e.(type) {
	case ScanFrame:
		s.queueFrame(ev.Transitions)

	case InjectTransition:
		edge := Released
		if ev.Pressed {
			edge = Pressed
		}
		s.Pending = append(s.Pending, KeyTransition{Position: keymap.KeyPosition(ev.Position), Edge: edge})

	case EncoderMotion:
		s.Encoder.apply(ev.Delta)

	case InjectEncoder:
		s.Encoder.apply(ev.Steps)

	case ButtonLevel:
		if ev.Pressed && !s.Button.Pressed {
			s.Button.Fell = true
		}
		s.Button.Pressed = ev.Pressed

	case InjectMiddleClick:
		s.Button.Fell = true

	case PollTick:
		cmds, bcasts = s.poll(ev.Now, cfg)

	case ForceReleaseAll:
		cmds = releaseEverything()

	case InputLost:
		// Nothing queued from a dead device is trustworthy.
		s.Pending = nil
		s.Button = ButtonState{}
		s.Encoder.Sampled = s.Encoder.sample()
		cmds = releaseEverything()

		from := s.Keyboard.Layer.Current()
		if s.Keyboard.Layer.FnRelease() {
			s.Keyboard.Telemetry.markDirty()
			bcasts = append(bcasts, BroadcastLayerChanged{From: from, To: s.Keyboard.Layer.Current(), At: time.Now()})
		}

	case RequestStateSnapshot:
		cmds = append(cmds, CmdPublishStateSnapshot{
			Reply:    ev.Reply,
			Snapshot: s.Snapshot(time.Now()),
		})

	case HIDCommandFailed:
		// A lost aux report is retried on the next poll.
		if _, ok := ev.Command.(CmdAuxReport); ok {
			s.Keyboard.Telemetry.markDirty()
		}

	default:
		// Unknown event type: no-op.
	}

	return ReduceResult{
		State:      s,
		Commands:   cmds,
		Broadcasts: bcasts,
	}
}

// queueFrame appends one scan frame to the pending queue in row-major order.
// The kernel scans the matrix column by column, so a frame is re-sorted before
// it is queued. Frames keep their arrival order.
func (s *DaemonState) queueFrame(trs []KeyTransition) {
	if len(trs) == 0 {
		return
	}
	frame := slices.Clone(trs)
	slices.SortStableFunc(frame, func(a, b KeyTransition) int {
		return int(a.Position) - int(b.Position)
	})
	s.Pending = append(s.Pending, frame...)
}

// poll runs one cycle: pending key transitions in order, one encoder sample,
// one button sample, then telemetry.
func (s *DaemonState) poll(now time.Time, cfg ReducerConfig) ([]Command, []StateBroadcast) {
	s.Polls++

	var cmds []Command
	var bcasts []StateBroadcast

	before := s.Keyboard.Layer.Current()

	pending := s.Pending
	s.Pending = nil
	for _, tr := range pending {
		cmds = append(cmds, Dispatch(&s.Keyboard, tr)...)
	}

	curr := s.Encoder.sample()
	cmds = append(cmds, s.Keyboard.OnEncoderSample(s.Encoder.Sampled, curr)...)
	s.Encoder.Sampled = curr

	fell := s.Button.Fell
	s.Button.Fell = false
	cmds = append(cmds, s.Keyboard.OnButtonEdge(fell)...)

	if after := s.Keyboard.Layer.Current(); after != before {
		bcasts = append(bcasts, BroadcastLayerChanged{From: before, To: after, At: now})
	}

	if s.Keyboard.Telemetry.Due(now, cfg.TelemetryInterval) {
		report := s.Keyboard.Telemetry.Snapshot(s.Keyboard.Layer.Current())
		s.Keyboard.Telemetry.markEmitted(now)
		if cfg.AuxReport {
			cmds = append(cmds, CmdAuxReport{Report: report})
		}
		bcasts = append(bcasts, BroadcastTelemetry{Report: report, At: now})
	}

	return cmds, bcasts
}

// releaseEverything leaves no key or pointer button held on the host.
func releaseEverything() []Command {
	return []Command{
		CmdReleaseAll{},
		CmdMouseUp{Button: MouseLeft},
		CmdMouseUp{Button: MouseRight},
	}
}
