package main

import (
	"time"

	evdev "github.com/gvalkov/golang-evdev"
)

// Input event values for EV_KEY (from <linux/input.h>).
const (
	evValueRelease = 0
	evValuePress   = 1
	evValueRepeat  = 2
)

// Codes used when none are configured.
const (
	defaultEncoderCode = evdev.REL_WHEEL
	defaultButtonCode  = evdev.BTN_MIDDLE
)

// Poll loop and telemetry defaults.
const (
	defaultPollHz = 250

	// Spacing between two telemetry reports; the default is also the floor.
	defaultTelemetryInterval = 100 * time.Millisecond
	minTelemetryInterval     = 100 * time.Millisecond

	// How long to wait for a missing input device before giving up.
	defaultDeviceWaitTimeout = 30 * time.Second

	// Pause before re-opening inputs after a device disappeared.
	inputRetryDelay = 500 * time.Millisecond
)

// Default USB gadget endpoints (configfs functions hid.usb0..hid.usb2).
const (
	defaultGadgetKeyboard = "/dev/hidg0"
	defaultGadgetMouse    = "/dev/hidg1"
	defaultGadgetAux      = "/dev/hidg2"
)
