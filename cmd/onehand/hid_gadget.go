package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"

	"onehand/internal/auxreport"
	"onehand/internal/keymap"
)

// USB gadget backend: the board is plugged into a host and each HID function
// of the composite gadget is exposed as a /dev/hidgN character device. One
// write is one input report.

var errKeyRollover = errors.New("keyboard report full (6-key rollover)")

// keyboardReport is the 8-byte boot protocol keyboard report:
// modifiers, reserved, six key slots.
type keyboardReport struct {
	modifiers uint8
	keys      [6]keymap.Usage
}

func (r *keyboardReport) press(u keymap.Usage) error {
	if u.IsModifier() {
		r.modifiers |= u.ModifierBit()
		return nil
	}
	free := -1
	for i, k := range r.keys {
		if k == u {
			return nil
		}
		if k == 0 && free < 0 {
			free = i
		}
	}
	if free < 0 {
		return errKeyRollover
	}
	r.keys[free] = u
	return nil
}

func (r *keyboardReport) release(u keymap.Usage) {
	if u.IsModifier() {
		r.modifiers &^= u.ModifierBit()
		return
	}
	for i, k := range r.keys {
		if k != u {
			continue
		}
		// Keep occupied slots contiguous.
		copy(r.keys[i:], r.keys[i+1:])
		r.keys[len(r.keys)-1] = 0
		return
	}
}

func (r *keyboardReport) bytes() []byte {
	b := make([]byte, 8)
	b[0] = r.modifiers
	for i, k := range r.keys {
		b[2+i] = uint8(k)
	}
	return b
}

type gadgetKeyboard struct {
	w      io.Writer
	report keyboardReport
}

func (g *gadgetKeyboard) send() error {
	if _, err := g.w.Write(g.report.bytes()); err != nil {
		return fmt.Errorf("write keyboard report: %w", err)
	}
	return nil
}

func (g *gadgetKeyboard) KeyDown(u keymap.Usage) error {
	if err := g.report.press(u); err != nil {
		return err
	}
	return g.send()
}

func (g *gadgetKeyboard) KeyUp(u keymap.Usage) error {
	g.report.release(u)
	return g.send()
}

func (g *gadgetKeyboard) ReleaseAll() error {
	g.report = keyboardReport{}
	return g.send()
}

// gadgetMouse writes the 4-byte boot mouse report: buttons, x, y, wheel.
type gadgetMouse struct {
	w       io.Writer
	buttons uint8
}

func mouseButtonBit(b MouseButton) (uint8, error) {
	switch b {
	case MouseLeft:
		return 0x01, nil
	case MouseRight:
		return 0x02, nil
	case MouseMiddle:
		return 0x04, nil
	default:
		return 0, fmt.Errorf("unknown mouse button %s", b)
	}
}

func clampInt8(v int) int8 {
	if v > 127 {
		return 127
	}
	if v < -127 {
		return -127
	}
	return int8(v)
}

func (g *gadgetMouse) send(dx, dy, wheel int) error {
	b := []byte{g.buttons, byte(clampInt8(dx)), byte(clampInt8(dy)), byte(clampInt8(wheel))}
	if _, err := g.w.Write(b); err != nil {
		return fmt.Errorf("write mouse report: %w", err)
	}
	return nil
}

func (g *gadgetMouse) ButtonDown(b MouseButton) error {
	bit, err := mouseButtonBit(b)
	if err != nil {
		return err
	}
	g.buttons |= bit
	return g.send(0, 0, 0)
}

func (g *gadgetMouse) ButtonUp(b MouseButton) error {
	bit, err := mouseButtonBit(b)
	if err != nil {
		return err
	}
	g.buttons &^= bit
	return g.send(0, 0, 0)
}

func (g *gadgetMouse) Click(b MouseButton) error {
	if err := g.ButtonDown(b); err != nil {
		return err
	}
	return g.ButtonUp(b)
}

func (g *gadgetMouse) Move(dx, dy, wheel int) error {
	return g.send(dx, dy, wheel)
}

type gadgetAux struct {
	w io.Writer
}

func (g *gadgetAux) WriteAux(r auxreport.Report) error {
	b := r.Encode()
	if _, err := g.w.Write(b[:]); err != nil {
		return fmt.Errorf("write aux report: %w", err)
	}
	return nil
}

var errReportDropped = errors.New("host not reading, report dropped")

// gadgetNode is a hidg character device written through the raw fd. The os
// package would hand a non-blocking char device to the runtime poller and park
// the writer on EAGAIN; here EAGAIN comes back as errReportDropped.
type gadgetNode struct {
	path string
	fd   int
}

func (n *gadgetNode) Write(p []byte) (int, error) {
	w, err := unix.Write(n.fd, p)
	switch {
	case errors.Is(err, unix.EAGAIN):
		return 0, errReportDropped
	case err != nil:
		return 0, &os.PathError{Op: "write", Path: n.path, Err: err}
	case w != len(p):
		return w, io.ErrShortWrite
	}
	return w, nil
}

func (n *gadgetNode) Close() error {
	if n.fd < 0 {
		return nil
	}
	err := unix.Close(n.fd)
	n.fd = -1
	return err
}

// openGadgetDevice opens a hidg node for writing. A report the host does not
// collect fails with errReportDropped instead of stalling the poll loop.
func openGadgetDevice(path string) (*gadgetNode, error) {
	p := ExpandPath(path)
	fd, err := unix.Open(p, unix.O_WRONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &gadgetNode{path: p, fd: fd}, nil
}

func openGadgetOutput(cfg GadgetOutputConfig, auxEnabled bool) (*HIDOutput, error) {
	kbd, err := openGadgetDevice(cfg.Keyboard)
	if err != nil {
		return nil, err
	}
	mouse, err := openGadgetDevice(cfg.Mouse)
	if err != nil {
		_ = kbd.Close()
		return nil, err
	}

	out := &HIDOutput{
		Keyboard: &gadgetKeyboard{w: kbd},
		Pointer:  &gadgetMouse{w: mouse},
		closers:  []io.Closer{kbd, mouse},
	}

	if auxEnabled && cfg.Aux != "" {
		aux, err := openGadgetDevice(cfg.Aux)
		if err != nil {
			_ = out.Close()
			return nil, err
		}
		out.Aux = &gadgetAux{w: aux}
		out.closers = append(out.closers, aux)
	}
	return out, nil
}
