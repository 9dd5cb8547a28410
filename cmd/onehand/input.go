package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	evdev "github.com/gvalkov/golang-evdev"

	"onehand/internal/keymap"
)

// inputRoles says which kinds of events a device node carries.
type inputRoles struct {
	matrix  bool
	encoder bool
	button  bool
}

// inputDecoder turns raw evdev events from one device into reducer Events.
// Events are buffered until SYN_REPORT so one scan frame becomes one ScanFrame.
type inputDecoder struct {
	roles       inputRoles
	encoderCode uint16
	buttonCode  uint16

	scan     int
	haveScan bool
	frame    []KeyTransition
	relDelta int
	button   *bool
}

func newInputDecoder(roles inputRoles, cfg InputConfig) *inputDecoder {
	return &inputDecoder{
		roles:       roles,
		encoderCode: uint16(cfg.EncoderCode),
		buttonCode:  uint16(cfg.ButtonCode),
	}
}

// Decode consumes one event and returns the Events completed by it.
func (d *inputDecoder) Decode(ev evdev.InputEvent) []Event {
	switch ev.Type {
	case evdev.EV_MSC:
		if d.roles.matrix && ev.Code == evdev.MSC_SCAN {
			d.scan = int(ev.Value)
			d.haveScan = true
		}

	case evdev.EV_KEY:
		if ev.Value == evValueRepeat {
			return nil
		}
		pressed := ev.Value == evValuePress
		if d.roles.button && ev.Code == d.buttonCode {
			d.button = &pressed
			return nil
		}
		if d.roles.matrix && d.haveScan {
			edge := Released
			if pressed {
				edge = Pressed
			}
			// matrix-keypad scan codes are row<<3 | col for an 8-column matrix.
			d.frame = append(d.frame, KeyTransition{Position: keymap.KeyPosition(d.scan), Edge: edge})
			d.haveScan = false
		}

	case evdev.EV_REL:
		if d.roles.encoder && ev.Code == d.encoderCode {
			d.relDelta += int(ev.Value)
		}

	case evdev.EV_SYN:
		if ev.Code == evdev.SYN_REPORT {
			return d.flush()
		}
	}
	return nil
}

func (d *inputDecoder) flush() []Event {
	var out []Event
	if len(d.frame) > 0 {
		out = append(out, ScanFrame{Transitions: d.frame, At: time.Now()})
		d.frame = nil
	}
	if d.relDelta != 0 {
		out = append(out, EncoderMotion{Delta: d.relDelta})
		d.relDelta = 0
	}
	if d.button != nil {
		out = append(out, ButtonLevel{Pressed: *d.button})
		d.button = nil
	}
	d.haveScan = false
	return out
}

// inputDevice is one opened evdev node plus its decoder.
type inputDevice struct {
	path    string
	dev     *evdev.InputDevice
	decoder *inputDecoder
}

func (d *inputDevice) Close() error {
	if d.dev == nil || d.dev.File == nil {
		return nil
	}
	_ = d.dev.Release() // fails harmlessly when not grabbed
	return d.dev.File.Close()
}

// inputPaths lists the configured device nodes with their roles. Devices
// named twice (encoder and button on one gpio node) are merged.
func inputPaths(cfg InputConfig) ([]string, map[string]inputRoles) {
	roles := make(map[string]inputRoles)
	var order []string
	add := func(p string, set func(*inputRoles)) {
		if p == "" {
			return
		}
		p = ExpandPath(p)
		r, seen := roles[p]
		if !seen {
			order = append(order, p)
		}
		set(&r)
		roles[p] = r
	}
	add(cfg.MatrixDevice, func(r *inputRoles) { r.matrix = true })
	add(cfg.EncoderDevice, func(r *inputRoles) { r.encoder = true })
	add(cfg.ButtonDevice, func(r *inputRoles) { r.button = true })
	return order, roles
}

// openInputDevices opens (and optionally grabs) every configured device.
func openInputDevices(cfg InputConfig, logger *slog.Logger) ([]*inputDevice, error) {
	paths, roles := inputPaths(cfg)

	var devices []*inputDevice
	closeAll := func() {
		for _, d := range devices {
			_ = d.Close()
		}
	}

	for _, p := range paths {
		dev, err := evdev.Open(p)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("open input device %s: %w", p, err)
		}
		if cfg.Grab {
			if err := dev.Grab(); err != nil {
				_ = dev.File.Close()
				closeAll()
				return nil, fmt.Errorf("grab input device %s: %w", p, err)
			}
		}

		r := roles[p]
		logger.Info("input device opened",
			"path", p,
			"name", dev.Name,
			"matrix", r.matrix,
			"encoder", r.encoder,
			"button", r.button,
			"grab", cfg.Grab,
		)
		devices = append(devices, &inputDevice{
			path:    p,
			dev:     dev,
			decoder: newInputDecoder(r, cfg),
		})
	}

	if len(devices) == 0 {
		return nil, errors.New("no input devices configured")
	}
	return devices, nil
}

// runInputs keeps the input devices open for the lifetime of ctx. When a device
// fails, InputLost is delivered to the poll loop, the set is closed, and the
// devices are waited for and reopened.
func runInputs(ctx context.Context, cfg InputConfig, timeout time.Duration, events chan<- Event, logger *slog.Logger) error {
	paths, _ := inputPaths(cfg)

	for {
		if err := waitForDevices(ctx, paths, timeout, logger); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		devices, err := openInputDevices(cfg, logger)
		if err != nil {
			return err
		}

		readErr := make(chan error, 1)
		readerCtx, cancelReader := context.WithCancel(ctx)
		readerDone := make(chan struct{})
		go func() {
			defer close(readerDone)
			readInputEventsEpoll(readerCtx, devices, events, readErr)
		}()

		var lost error
		select {
		case <-ctx.Done():
		case lost = <-readErr:
		}

		cancelReader()
		<-readerDone
		for _, d := range devices {
			_ = d.Close()
		}

		if ctx.Err() != nil {
			return nil
		}

		device := ""
		var de *deviceError
		if errors.As(lost, &de) {
			device = de.path
		}
		logger.Warn("input reader stopped", "device", device, "error", lost)

		select {
		case events <- InputLost{Device: device, Err: lost}:
		case <-ctx.Done():
			return nil
		}

		select {
		case <-time.After(inputRetryDelay):
		case <-ctx.Done():
			return nil
		}
	}
}
