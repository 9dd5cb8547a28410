package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"onehand/internal/auxreport"
	"onehand/internal/keymap"
)

// KeyboardSink accepts keyboard primitives.
type KeyboardSink interface {
	KeyDown(u keymap.Usage) error
	KeyUp(u keymap.Usage) error
	ReleaseAll() error
}

// PointerSink accepts mouse primitives.
type PointerSink interface {
	ButtonDown(b MouseButton) error
	ButtonUp(b MouseButton) error
	Click(b MouseButton) error
	Move(dx, dy, wheel int) error
}

// AuxSink accepts telemetry reports.
type AuxSink interface {
	WriteAux(r auxreport.Report) error
}

// HIDOutput bundles the sinks of one backend. Aux may be nil.
type HIDOutput struct {
	Keyboard KeyboardSink
	Pointer  PointerSink
	Aux      AuxSink

	closers []io.Closer
}

// Close releases every held key and button, then closes the backend.
func (o *HIDOutput) Close() error {
	if o == nil {
		return nil
	}
	var errs []error
	if o.Keyboard != nil {
		if err := o.Keyboard.ReleaseAll(); err != nil {
			errs = append(errs, fmt.Errorf("release keyboard: %w", err))
		}
	}
	if o.Pointer != nil {
		for _, b := range []MouseButton{MouseLeft, MouseRight, MouseMiddle} {
			if err := o.Pointer.ButtonUp(b); err != nil {
				errs = append(errs, fmt.Errorf("release %s button: %w", b, err))
			}
		}
	}
	for _, c := range o.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// openHIDOutput builds the configured backend.
func openHIDOutput(cfg OutputConfig, auxEnabled bool, logger *slog.Logger) (*HIDOutput, error) {
	switch cfg.Backend {
	case backendGadget:
		out, err := openGadgetOutput(cfg.Gadget, auxEnabled)
		if err != nil {
			return nil, err
		}
		logger.Info("hid output ready", "backend", cfg.Backend, "keyboard", cfg.Gadget.Keyboard, "mouse", cfg.Gadget.Mouse, "aux", out.Aux != nil)
		return out, nil

	case backendUinput:
		out, err := openUinputOutput(cfg.Uinput)
		if err != nil {
			return nil, err
		}
		logger.Info("hid output ready", "backend", cfg.Backend, "keyboard", cfg.Uinput.KeyboardName, "mouse", cfg.Uinput.MouseName)
		return out, nil

	default:
		return nil, fmt.Errorf("unknown hid backend %q", cfg.Backend)
	}
}
