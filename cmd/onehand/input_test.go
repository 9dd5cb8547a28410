package main

import (
	"reflect"
	"testing"

	evdev "github.com/gvalkov/golang-evdev"
)

func inputEv(typ, code uint16, value int32) evdev.InputEvent {
	return evdev.InputEvent{Type: typ, Code: code, Value: value}
}

func synReport() evdev.InputEvent { return inputEv(evdev.EV_SYN, evdev.SYN_REPORT, 0) }

func decodeAll(d *inputDecoder, evs ...evdev.InputEvent) []Event {
	var out []Event
	for _, ev := range evs {
		out = append(out, d.Decode(ev)...)
	}
	return out
}

func TestInputDecoder_MatrixScanFrame(t *testing.T) {
	d := newInputDecoder(inputRoles{matrix: true}, DefaultConfig().Input)

	got := decodeAll(d,
		inputEv(evdev.EV_MSC, evdev.MSC_SCAN, 36),
		inputEv(evdev.EV_KEY, evdev.KEY_D, evValuePress),
		inputEv(evdev.EV_MSC, evdev.MSC_SCAN, 34),
		inputEv(evdev.EV_KEY, evdev.KEY_A, evValuePress),
	)
	if len(got) != 0 {
		t.Fatalf("expected nothing before SYN_REPORT, got %v", got)
	}

	got = d.Decode(synReport())
	if len(got) != 1 {
		t.Fatalf("expected 1 event on SYN_REPORT, got %d", len(got))
	}
	frame, ok := got[0].(ScanFrame)
	if !ok {
		t.Fatalf("expected ScanFrame, got %T", got[0])
	}
	want := []KeyTransition{press(36), press(34)}
	if !reflect.DeepEqual(frame.Transitions, want) {
		t.Fatalf("expected transitions %v, got %v", want, frame.Transitions)
	}

	// The frame buffer is reset.
	if got := d.Decode(synReport()); len(got) != 0 {
		t.Fatalf("expected empty flush, got %v", got)
	}
}

func TestInputDecoder_RepeatIgnored(t *testing.T) {
	d := newInputDecoder(inputRoles{matrix: true}, DefaultConfig().Input)

	got := decodeAll(d,
		inputEv(evdev.EV_MSC, evdev.MSC_SCAN, 9),
		inputEv(evdev.EV_KEY, evdev.KEY_6, evValueRepeat),
		synReport(),
	)
	if len(got) != 0 {
		t.Fatalf("expected autorepeat to be dropped, got %v", got)
	}

	got = decodeAll(d,
		inputEv(evdev.EV_MSC, evdev.MSC_SCAN, 9),
		inputEv(evdev.EV_KEY, evdev.KEY_6, evValueRelease),
		synReport(),
	)
	if len(got) != 1 {
		t.Fatalf("expected release frame, got %v", got)
	}
	if frame := got[0].(ScanFrame); !reflect.DeepEqual(frame.Transitions, []KeyTransition{release(9)}) {
		t.Fatalf("unexpected transitions %v", frame.Transitions)
	}
}

func TestInputDecoder_KeyWithoutScanIgnored(t *testing.T) {
	d := newInputDecoder(inputRoles{matrix: true}, DefaultConfig().Input)
	got := decodeAll(d, inputEv(evdev.EV_KEY, evdev.KEY_A, evValuePress), synReport())
	if len(got) != 0 {
		t.Fatalf("expected EV_KEY without MSC_SCAN to be ignored, got %v", got)
	}
}

func TestInputDecoder_EncoderAccumulates(t *testing.T) {
	d := newInputDecoder(inputRoles{encoder: true}, DefaultConfig().Input)

	got := decodeAll(d,
		inputEv(evdev.EV_REL, evdev.REL_WHEEL, 1),
		inputEv(evdev.EV_REL, evdev.REL_WHEEL, 1),
		inputEv(evdev.EV_REL, evdev.REL_X, 5),
		synReport(),
	)
	want := []Event{EncoderMotion{Delta: 2}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	got = decodeAll(d, inputEv(evdev.EV_REL, evdev.REL_WHEEL, -1), synReport())
	want = []Event{EncoderMotion{Delta: -1}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestInputDecoder_SharedEncoderButtonNode(t *testing.T) {
	d := newInputDecoder(inputRoles{encoder: true, button: true}, DefaultConfig().Input)

	got := decodeAll(d,
		inputEv(evdev.EV_KEY, evdev.BTN_MIDDLE, evValuePress),
		inputEv(evdev.EV_REL, evdev.REL_WHEEL, 1),
		synReport(),
	)
	want := []Event{EncoderMotion{Delta: 1}, ButtonLevel{Pressed: true}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	got = decodeAll(d, inputEv(evdev.EV_KEY, evdev.BTN_MIDDLE, evValueRelease), synReport())
	want = []Event{ButtonLevel{Pressed: false}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestInputPaths_MergesSharedNodes(t *testing.T) {
	cfg := InputConfig{
		MatrixDevice:  "/dev/input/event0",
		EncoderDevice: "/dev/input/event1",
		ButtonDevice:  "/dev/input/event1",
	}
	paths, roles := inputPaths(cfg)
	if !reflect.DeepEqual(paths, []string{"/dev/input/event0", "/dev/input/event1"}) {
		t.Fatalf("unexpected paths %v", paths)
	}
	if r := roles["/dev/input/event1"]; !r.encoder || !r.button || r.matrix {
		t.Fatalf("unexpected roles for shared node %+v", r)
	}

	cfg.EncoderDevice = ""
	cfg.ButtonDevice = ""
	paths, _ = inputPaths(cfg)
	if len(paths) != 1 {
		t.Fatalf("expected only the matrix node, got %v", paths)
	}
}
