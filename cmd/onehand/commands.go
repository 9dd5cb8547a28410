package main

import (
	"fmt"

	"onehand/internal/auxreport"
	"onehand/internal/keymap"
)

// Command is a side effect requested by the reducer and executed by runEffect.
// Most commands are HID primitives.
type Command interface {
	commandMarker()
	String() string
}

// MouseButton identifies a pointer button.
type MouseButton uint8

const (
	MouseLeft MouseButton = iota + 1
	MouseRight
	MouseMiddle
)

func (b MouseButton) String() string {
	switch b {
	case MouseLeft:
		return "left"
	case MouseRight:
		return "right"
	case MouseMiddle:
		return "middle"
	default:
		return fmt.Sprintf("button(%d)", uint8(b))
	}
}

// CmdKeyDown presses a keyboard usage.
type CmdKeyDown struct {
	Usage keymap.Usage
}

func (CmdKeyDown) commandMarker()   {}
func (c CmdKeyDown) String() string { return "CmdKeyDown(" + c.Usage.String() + ")" }

// CmdKeyUp releases a keyboard usage.
type CmdKeyUp struct {
	Usage keymap.Usage
}

func (CmdKeyUp) commandMarker()   {}
func (c CmdKeyUp) String() string { return "CmdKeyUp(" + c.Usage.String() + ")" }

// CmdReleaseAll releases every held keyboard usage.
type CmdReleaseAll struct{}

func (CmdReleaseAll) commandMarker() {}
func (CmdReleaseAll) String() string { return "CmdReleaseAll()" }

// CmdMouseDown presses a pointer button.
type CmdMouseDown struct {
	Button MouseButton
}

func (CmdMouseDown) commandMarker()   {}
func (c CmdMouseDown) String() string { return "CmdMouseDown(" + c.Button.String() + ")" }

// CmdMouseUp releases a pointer button.
type CmdMouseUp struct {
	Button MouseButton
}

func (CmdMouseUp) commandMarker()   {}
func (c CmdMouseUp) String() string { return "CmdMouseUp(" + c.Button.String() + ")" }

// CmdMouseClick presses and releases a pointer button as one action.
type CmdMouseClick struct {
	Button MouseButton
}

func (CmdMouseClick) commandMarker()   {}
func (c CmdMouseClick) String() string { return "CmdMouseClick(" + c.Button.String() + ")" }

// CmdMouseMove moves the pointer and/or the vertical wheel.
type CmdMouseMove struct {
	DX, DY int
	Wheel  int
}

func (CmdMouseMove) commandMarker() {}
func (c CmdMouseMove) String() string {
	return fmt.Sprintf("CmdMouseMove(dx=%d, dy=%d, wheel=%d)", c.DX, c.DY, c.Wheel)
}

// CmdAuxReport writes one telemetry snapshot to the auxiliary HID interface.
type CmdAuxReport struct {
	Report auxreport.Report
}

func (CmdAuxReport) commandMarker() {}
func (c CmdAuxReport) String() string {
	return fmt.Sprintf("CmdAuxReport(layer=%d, keys=%d)", c.Report.CurrentLayer, c.Report.KeyPresses)
}

// CmdPublishStateSnapshot delivers a snapshot to a waiting requester.
type CmdPublishStateSnapshot struct {
	Reply    chan<- StateSnapshot
	Snapshot StateSnapshot
}

func (CmdPublishStateSnapshot) commandMarker() {}
func (CmdPublishStateSnapshot) String() string { return "CmdPublishStateSnapshot()" }
