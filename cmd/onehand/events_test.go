package main

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"strings"
	"testing"
	"time"

	"onehand/internal/keymap"
)

func TestUnmarshalEvent_ControlEvents(t *testing.T) {
	tests := []struct {
		in   string
		want Event
	}{
		{`{"type":"key_transition","data":{"position":2,"pressed":true}}`, InjectTransition{Position: 2, Pressed: true}},
		{`{"type":"key_transition","data":{"position":55}}`, InjectTransition{Position: 55}},
		{`{"type":"encoder_turn","data":{"steps":-3}}`, InjectEncoder{Steps: -3}},
		{`{"type":"middle_click"}`, InjectMiddleClick{}},
		{`{"type":"release_all"}`, ForceReleaseAll{}},
	}
	for _, tt := range tests {
		got, err := UnmarshalEvent([]byte(tt.in))
		if err != nil {
			t.Fatalf("UnmarshalEvent(%s): %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("UnmarshalEvent(%s) = %#v, want %#v", tt.in, got, tt.want)
		}

		// And back.
		b, err := MarshalEvent(got)
		if err != nil {
			t.Fatalf("MarshalEvent(%#v): %v", got, err)
		}
		again, err := UnmarshalEvent(b)
		if err != nil || again != tt.want {
			t.Fatalf("round trip of %s gave %#v, %v", tt.in, again, err)
		}
	}
}

func TestUnmarshalEvent_Errors(t *testing.T) {
	for _, in := range []string{
		`not json`,
		`{"type":"volume_step"}`,
		`{"type":"key_transition","data":{"position":56,"pressed":true}}`,
		`{"type":"key_transition","data":{"position":-1}}`,
		`{"type":"key_transition","data":"nope"}`,
		`{"type":"encoder_turn","data":{"steps":"x"}}`,
	} {
		if _, err := UnmarshalEvent([]byte(in)); err == nil {
			t.Fatalf("expected error for %s", in)
		}
	}

	// Input-side events are not accepted from the wire.
	if _, err := MarshalEvent(PollTick{}); err == nil {
		t.Fatalf("expected MarshalEvent to reject PollTick")
	}
}

func TestHandleIPCConnection(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan Event, 4)
	server, client := net.Pipe()
	defer client.Close()

	go handleIPCConnection(ctx, server, events, quietLogger())

	// Answer snapshot requests like the poll loop would.
	go func() {
		for ev := range events {
			if req, ok := ev.(RequestStateSnapshot); ok {
				req.Reply <- StateSnapshot{Layer: keymap.PhoneticFn, At: time.Unix(1000, 0)}
			}
		}
	}()

	r := bufio.NewReader(client)
	roundTrip := func(line string) IPCResponse {
		t.Helper()
		if _, err := client.Write([]byte(line + "\n")); err != nil {
			t.Fatalf("write: %v", err)
		}
		resp, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var out IPCResponse
		if err := json.Unmarshal([]byte(resp), &out); err != nil {
			t.Fatalf("decode %q: %v", resp, err)
		}
		return out
	}

	if resp := roundTrip(`{"type":"middle_click"}`); resp.Status != "ok" {
		t.Fatalf("expected ok, got %+v", resp)
	}

	resp := roundTrip(`{"type":"key_transition","data":{"position":99,"pressed":true}}`)
	if resp.Status != "error" || !strings.Contains(resp.Error, "out of range") {
		t.Fatalf("expected range error, got %+v", resp)
	}

	resp = roundTrip(`{"type":"get_state"}`)
	if resp.Status != "ok" || resp.State == nil {
		t.Fatalf("expected state, got %+v", resp)
	}
	if resp.State.Layer != int(keymap.PhoneticFn) || resp.State.LayerName != "phonetic-fn" {
		t.Fatalf("unexpected state %+v", resp.State)
	}
}
