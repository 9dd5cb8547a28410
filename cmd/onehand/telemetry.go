package main

import (
	"time"

	"golang.org/x/exp/constraints"

	"onehand/internal/auxreport"
	"onehand/internal/keymap"
)

// Telemetry aggregates usage counters for the auxiliary report.
//
// Counters only grow and stop at auxreport.MaxCounter. Nothing here can fail
// or block dispatch; a lost report is recovered by the next dirty poll.
type Telemetry struct {
	KeyPresses   int
	FnPresses    int
	EncoderSteps int
	MouseClicks  int

	LastKey      keymap.KeyPosition
	LastKeyLayer keymap.Layer

	dirty    bool
	emitted  bool
	lastEmit time.Time
}

func saturatingAdd[T constraints.Integer](v, delta, ceiling T) T {
	if delta <= 0 {
		return v
	}
	if v >= ceiling || delta > ceiling-v {
		return ceiling
	}
	return v + delta
}

func (t *Telemetry) recordKeyPress(pos keymap.KeyPosition, layer keymap.Layer) {
	t.KeyPresses = saturatingAdd(t.KeyPresses, 1, auxreport.MaxCounter)
	t.LastKey = pos
	t.LastKeyLayer = layer
	t.dirty = true
}

func (t *Telemetry) recordFnPress() {
	t.FnPresses = saturatingAdd(t.FnPresses, 1, auxreport.MaxCounter)
	t.dirty = true
}

func (t *Telemetry) recordEncoderSteps(n int) {
	if n < 0 {
		n = -n
	}
	if n == 0 {
		return
	}
	t.EncoderSteps = saturatingAdd(t.EncoderSteps, n, auxreport.MaxCounter)
	t.dirty = true
}

func (t *Telemetry) recordMouseClick() {
	t.MouseClicks = saturatingAdd(t.MouseClicks, 1, auxreport.MaxCounter)
	t.dirty = true
}

func (t *Telemetry) markDirty() { t.dirty = true }

// Due reports whether a snapshot should be emitted now. Intervals below
// minTelemetryInterval are raised to it.
func (t *Telemetry) Due(now time.Time, interval time.Duration) bool {
	if !t.dirty {
		return false
	}
	return !t.emitted || now.Sub(t.lastEmit) >= max(interval, minTelemetryInterval)
}

func (t *Telemetry) markEmitted(now time.Time) {
	t.dirty = false
	t.emitted = true
	t.lastEmit = now
}

// Snapshot encodes the counters for the current layer.
func (t *Telemetry) Snapshot(current keymap.Layer) auxreport.Report {
	return auxreport.Report{
		Buttons:      1 << uint(current),
		KeyPresses:   int16(t.KeyPresses),
		FnPresses:    int16(t.FnPresses),
		EncoderSteps: int16(t.EncoderSteps),
		MouseClicks:  int16(t.MouseClicks),
		CurrentLayer: int8(current),
		LastKey:      int8(t.LastKey),
		LastKeyLayer: uint8(t.LastKeyLayer),
	}
}
