package main

import (
	"log/slog"
	"time"
)

// runEffect executes a single reducer-emitted Command against the HID output and
// reports failures via onEvent.
//
// It must never call Reduce() directly; the daemon loop sequences
// Reduce -> Commands -> runEffect -> Events -> Reduce.
func runEffect(
	out *HIDOutput,
	cmd Command,
	logger *slog.Logger,
	onEvent func(Event),
) {
	if onEvent == nil {
		return
	}

	now := time.Now()

	// Snapshots go to a requester, not to the host.
	if c, ok := cmd.(CmdPublishStateSnapshot); ok {
		if c.Reply == nil {
			logger.Warn("state snapshot requested with nil reply channel")
			return
		}
		select {
		case c.Reply <- c.Snapshot:
		default:
			logger.Warn("state snapshot reply channel not ready; dropping snapshot")
		}
		return
	}

	if out == nil {
		onEvent(HIDCommandFailed{Command: cmd, Err: errNoSink{what: "hid output"}, At: now})
		return
	}

	var err error
	switch c := cmd.(type) {
	case CmdKeyDown:
		err = withKeyboard(out, func(k KeyboardSink) error { return k.KeyDown(c.Usage) })
	case CmdKeyUp:
		err = withKeyboard(out, func(k KeyboardSink) error { return k.KeyUp(c.Usage) })
	case CmdReleaseAll:
		err = withKeyboard(out, func(k KeyboardSink) error { return k.ReleaseAll() })

	case CmdMouseDown:
		err = withPointer(out, func(p PointerSink) error { return p.ButtonDown(c.Button) })
	case CmdMouseUp:
		err = withPointer(out, func(p PointerSink) error { return p.ButtonUp(c.Button) })
	case CmdMouseClick:
		err = withPointer(out, func(p PointerSink) error { return p.Click(c.Button) })
	case CmdMouseMove:
		err = withPointer(out, func(p PointerSink) error { return p.Move(c.DX, c.DY, c.Wheel) })

	case CmdAuxReport:
		if out.Aux == nil {
			// Backend without a telemetry interface.
			return
		}
		err = out.Aux.WriteAux(c.Report)

	default:
		logger.Warn("unknown command type", "command", cmd.String())
		err = errUnknownCommand{cmd: cmd}
	}

	if err != nil {
		logger.Error("hid command failed", "command", cmd.String(), "error", err)
		onEvent(HIDCommandFailed{Command: cmd, Err: err, At: now})
		return
	}
	logger.Debug("hid command", "command", cmd.String())
}

func withKeyboard(out *HIDOutput, fn func(KeyboardSink) error) error {
	if out.Keyboard == nil {
		return errNoSink{what: "keyboard"}
	}
	return fn(out.Keyboard)
}

func withPointer(out *HIDOutput, fn func(PointerSink) error) error {
	if out.Pointer == nil {
		return errNoSink{what: "pointer"}
	}
	return fn(out.Pointer)
}

// errNoSink indicates a command arrived for an interface the backend lacks.
type errNoSink struct {
	what string
}

func (e errNoSink) Error() string { return "no " + e.what + " sink" }

type errUnknownCommand struct {
	cmd Command
}

func (e errUnknownCommand) Error() string { return "unknown command: " + e.cmd.String() }
