package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"onehand/internal/auxreport"
	"onehand/internal/keymap"
)

// These tests drive the hub without a websocket server. Clients carry a nil
// conn; the hub skips Close on nil conns.

func newTestHub(t *testing.T, sendBuf int, broadcastBuf int) *Hub {
	t.Helper()
	return NewHub(slog.Default(), HubConfig{
		SendBuf:      sendBuf,
		BroadcastBuf: broadcastBuf,
	})
}

func newTestClient(hub *Hub, name string, buf int) *Client {
	return &Client{
		hub:        hub,
		send:       make(chan []byte, buf),
		remoteAddr: name,
		logger:     slog.Default(),
	}
}

func registerAndWait(t *testing.T, hub *Hub, c *Client) {
	t.Helper()
	hub.register <- c
	waitUntil(t, 500*time.Millisecond, func() bool {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		_, ok := hub.clients[c]
		return ok
	}, c.remoteAddr+" not registered in time")
}

func TestHub_BroadcastDeliveredToAllClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := newTestHub(t, 4, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.Run(ctx)
	}()

	c1 := newTestClient(hub, "c1", 4)
	c2 := newTestClient(hub, "c2", 4)
	registerAndWait(t, hub, c1)
	registerAndWait(t, hub, c2)

	msg := []byte(`{"type":"layer_changed","data":{"from":0,"to":2}}`)
	hub.broadcast <- msg

	for _, c := range []*Client{c1, c2} {
		select {
		case got := <-c.send:
			if string(got) != string(msg) {
				t.Fatalf("%s got %q, want %q", c.remoteAddr, got, msg)
			}
		case <-time.After(500 * time.Millisecond):
			t.Fatalf("timeout waiting for %s to receive broadcast", c.remoteAddr)
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for hub to stop")
	}

	// Shutdown closes every client queue.
	for _, c := range []*Client{c1, c2} {
		if _, ok := <-c.send; ok {
			t.Fatalf("expected %s send channel closed", c.remoteAddr)
		}
	}
}

func TestHub_SlowClientDisconnectedOnFullSendBuffer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := newTestHub(t, 1, 8)
	go hub.Run(ctx)

	slow := newTestClient(hub, "slow", 1)
	fast := newTestClient(hub, "fast", 8)
	registerAndWait(t, hub, slow)
	registerAndWait(t, hub, fast)

	slow.send <- []byte(`"already queued"`)

	msg := []byte(`{"type":"telemetry","data":{"key_presses":1}}`)
	hub.broadcast <- msg

	select {
	case got := <-fast.send:
		if string(got) != string(msg) {
			t.Fatalf("fast client got %q, want %q", got, msg)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timeout waiting for fast client to receive broadcast")
	}

	select {
	case <-slow.send:
	default:
	}

	waitUntil(t, 750*time.Millisecond, func() bool {
		select {
		case _, ok := <-slow.send:
			return !ok
		default:
			return false
		}
	}, "expected slow send channel to be closed")
}

func TestBroadcaster_CoalescesTelemetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := newTestHub(t, 16, 16)
	go hub.Run(ctx)
	c := newTestClient(hub, "watcher", 16)
	registerAndWait(t, hub, c)

	src := make(chan StateBroadcast, 8)
	go RunBroadcaster(ctx, hub, src, slog.Default())

	at := time.Unix(1000, 0)
	src <- BroadcastTelemetry{Report: auxreport.Report{KeyPresses: 1}, At: at}
	src <- BroadcastTelemetry{Report: auxreport.Report{KeyPresses: 2}, At: at}
	src <- BroadcastTelemetry{Report: auxreport.Report{KeyPresses: 3}, At: at}

	got := readEnvelope(t, c)
	if got.Type != "telemetry" {
		t.Fatalf("expected telemetry, got %q", got.Type)
	}
	var data wsTelemetryData
	if err := json.Unmarshal(got.Data, &data); err != nil {
		t.Fatalf("decode telemetry: %v", err)
	}
	if data.KeyPresses != 3 {
		t.Fatalf("expected latest telemetry (3), got %d", data.KeyPresses)
	}

	select {
	case extra := <-c.send:
		t.Fatalf("expected one coalesced frame, got extra %s", extra)
	case <-time.After(2 * wsTelemetryCoalesceWindow):
	}
}

func TestBroadcaster_LayerChangeFlushesPendingTelemetryFirst(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := newTestHub(t, 16, 16)
	go hub.Run(ctx)
	c := newTestClient(hub, "watcher", 16)
	registerAndWait(t, hub, c)

	src := make(chan StateBroadcast, 8)
	go RunBroadcaster(ctx, hub, src, slog.Default())

	at := time.Unix(1000, 0)
	src <- BroadcastTelemetry{Report: auxreport.Report{KeyPresses: 5}, At: at}
	src <- BroadcastLayerChanged{From: keymap.Phonetic, To: keymap.PhoneticFn, At: at}

	first := readEnvelope(t, c)
	second := readEnvelope(t, c)
	if first.Type != "telemetry" || second.Type != "layer_changed" {
		t.Fatalf("expected telemetry then layer_changed, got %q then %q", first.Type, second.Type)
	}

	var lc wsLayerChangedData
	if err := json.Unmarshal(second.Data, &lc); err != nil {
		t.Fatalf("decode layer_changed: %v", err)
	}
	if lc.From != int(keymap.Phonetic) || lc.To != int(keymap.PhoneticFn) || lc.ToName != "phonetic-fn" {
		t.Fatalf("unexpected layer_changed payload %+v", lc)
	}
	if second.Ts == nil || !second.Ts.Equal(at) {
		t.Fatalf("expected ts %v, got %v", at, second.Ts)
	}
}

func TestNewTelemetryPayload_Label(t *testing.T) {
	p := newTelemetryPayload(auxreport.Report{
		KeyPresses:   4,
		CurrentLayer: int8(keymap.PhoneticFn),
		LastKey:      int8(keymap.PosLBracket),
		LastKeyLayer: uint8(keymap.PhoneticFn),
	})
	if p.LastKeyLabel != keymap.Label(keymap.PhoneticFn, keymap.PosLBracket) {
		t.Fatalf("unexpected label %q", p.LastKeyLabel)
	}
	if p.KeyPresses != 4 || p.CurrentLayer != int(keymap.PhoneticFn) {
		t.Fatalf("unexpected payload %+v", p)
	}
}

type testEnvelope struct {
	Type string          `json:"type"`
	Ts   *time.Time      `json:"ts"`
	Data json.RawMessage `json:"data"`
}

func readEnvelope(t *testing.T, c *Client) testEnvelope {
	t.Helper()
	select {
	case msg := <-c.send:
		var env testEnvelope
		if err := json.Unmarshal(msg, &env); err != nil {
			t.Fatalf("decode envelope %s: %v", msg, err)
		}
		return env
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for ws frame")
	}
	return testEnvelope{}
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timeout: %s", msg)
}
