package main

import (
	"testing"
	"time"

	"onehand/internal/auxreport"
	"onehand/internal/keymap"
)

func TestSaturatingAdd(t *testing.T) {
	if got := saturatingAdd(10, 5, 100); got != 15 {
		t.Fatalf("expected 15, got %d", got)
	}
	if got := saturatingAdd(98, 5, 100); got != 100 {
		t.Fatalf("expected clamp at 100, got %d", got)
	}
	if got := saturatingAdd(100, 1, 100); got != 100 {
		t.Fatalf("expected to stay at ceiling, got %d", got)
	}
	if got := saturatingAdd(7, -3, 100); got != 7 {
		t.Fatalf("expected negative delta to be ignored, got %d", got)
	}
	if got := saturatingAdd(int16(32760), int16(100), int16(32767)); got != 32767 {
		t.Fatalf("expected int16 clamp without wraparound, got %d", got)
	}
}

func TestTelemetry_CountersNeverExceedCeiling(t *testing.T) {
	var tm Telemetry
	tm.EncoderSteps = auxreport.MaxCounter - 2

	tm.recordEncoderSteps(10)
	if tm.EncoderSteps != auxreport.MaxCounter {
		t.Fatalf("expected encoder steps clamped to %d, got %d", auxreport.MaxCounter, tm.EncoderSteps)
	}
	tm.recordEncoderSteps(-4)
	if tm.EncoderSteps != auxreport.MaxCounter {
		t.Fatalf("expected encoder steps to stay at ceiling, got %d", tm.EncoderSteps)
	}

	tm.KeyPresses = auxreport.MaxCounter
	tm.recordKeyPress(5, keymap.Base)
	if tm.KeyPresses != auxreport.MaxCounter {
		t.Fatalf("expected key presses to stay at ceiling, got %d", tm.KeyPresses)
	}
	if tm.LastKey != 5 {
		t.Fatalf("expected last key to update even at ceiling, got %d", tm.LastKey)
	}
}

func TestTelemetry_EmissionPolicy(t *testing.T) {
	var tm Telemetry
	t0 := time.Unix(1000, 0)
	interval := 100 * time.Millisecond

	if tm.Due(t0, interval) {
		t.Fatalf("expected clean telemetry not to be due")
	}

	tm.recordFnPress()
	if !tm.Due(t0, interval) {
		t.Fatalf("expected first dirty snapshot to be due immediately")
	}
	tm.markEmitted(t0)

	tm.recordFnPress()
	if tm.Due(t0.Add(50*time.Millisecond), interval) {
		t.Fatalf("expected snapshot within 100ms of the last one to be held back")
	}
	if !tm.Due(t0.Add(100*time.Millisecond), interval) {
		t.Fatalf("expected snapshot to be due after 100ms")
	}
	tm.markEmitted(t0.Add(100 * time.Millisecond))

	if tm.Due(t0.Add(time.Second), interval) {
		t.Fatalf("expected clean telemetry not to be due even after the interval")
	}
}

func TestTelemetry_Snapshot(t *testing.T) {
	var tm Telemetry
	tm.recordKeyPress(keymap.PosLBracket, keymap.PhoneticFn)
	tm.recordKeyPress(keymap.PosLayer, keymap.Base)
	tm.recordFnPress()
	tm.recordEncoderSteps(3)
	tm.recordMouseClick()

	r := tm.Snapshot(keymap.Phonetic)
	if r.Buttons != 1<<2 {
		t.Fatalf("expected buttons bit for layer 2, got %#x", r.Buttons)
	}
	if r.KeyPresses != 2 || r.FnPresses != 1 || r.EncoderSteps != 3 || r.MouseClicks != 1 {
		t.Fatalf("unexpected counters: %+v", r)
	}
	if r.CurrentLayer != 2 || r.LastKey != 47 || r.LastKeyLayer != 0 {
		t.Fatalf("unexpected layer fields: %+v", r)
	}
}
