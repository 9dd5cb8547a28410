package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"onehand/internal/auxreport"
)

const (
	wsHandshakeTimeout = 5 * time.Second
	wsPongWait         = 60 * time.Second
	wsPingPeriod       = 30 * time.Second
	wsRetryDelay       = 2 * time.Second
)

// wsEnvelope is the daemon's state websocket frame.
type wsEnvelope struct {
	Type string          `json:"type"`
	Ts   time.Time       `json:"ts"`
	Data json.RawMessage `json:"data"`
}

type wsTelemetry struct {
	KeyPresses   int `json:"key_presses"`
	FnPresses    int `json:"fn_presses"`
	EncoderSteps int `json:"encoder_steps"`
	MouseClicks  int `json:"mouse_clicks"`
	CurrentLayer int `json:"current_layer"`
	LastKey      int `json:"last_key"`
	LastKeyLayer int `json:"last_key_layer"`
}

func (t wsTelemetry) report() auxreport.Report {
	return auxreport.Report{
		Buttons:      1 << uint(t.CurrentLayer),
		KeyPresses:   int16(t.KeyPresses),
		FnPresses:    int16(t.FnPresses),
		EncoderSteps: int16(t.EncoderSteps),
		MouseClicks:  int16(t.MouseClicks),
		CurrentLayer: int8(t.CurrentLayer),
		LastKey:      int8(t.LastKey),
		LastKeyLayer: uint8(t.LastKeyLayer),
	}
}

// decodeFrame extracts telemetry from "telemetry" and "state_init" frames.
// Other frame types yield ok=false.
func decodeFrame(msg []byte) (Sample, bool, error) {
	var env wsEnvelope
	if err := json.Unmarshal(msg, &env); err != nil {
		return Sample{}, false, fmt.Errorf("decode envelope: %w", err)
	}

	var t wsTelemetry
	switch env.Type {
	case "telemetry":
		if err := json.Unmarshal(env.Data, &t); err != nil {
			return Sample{}, false, fmt.Errorf("decode telemetry: %w", err)
		}
	case "state_init":
		var snap struct {
			Telemetry wsTelemetry `json:"telemetry"`
		}
		if err := json.Unmarshal(env.Data, &snap); err != nil {
			return Sample{}, false, fmt.Errorf("decode state_init: %w", err)
		}
		t = snap.Telemetry
	default:
		return Sample{}, false, nil
	}

	at := env.Ts
	if at.IsZero() {
		at = time.Now()
	}
	return Sample{Report: t.report(), At: at}, true, nil
}

// wsSource follows the daemon's state websocket.
type wsSource struct {
	url    string
	logger *slog.Logger
}

func (s *wsSource) String() string { return "ws " + s.url }

func (s *wsSource) Run(ctx context.Context, out chan<- Sample) error {
	for {
		err := s.session(ctx, out)
		if ctx.Err() != nil {
			return nil
		}
		s.logger.Warn("websocket session ended", "url", s.url, "error", err, "retry_in", wsRetryDelay)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wsRetryDelay):
		}
	}
}

func (s *wsSource) session(ctx context.Context, out chan<- Sample) error {
	d := websocket.Dialer{HandshakeTimeout: wsHandshakeTimeout}
	conn, _, err := d.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	s.logger.Info("websocket connected", "url", s.url)

	var writeMu sync.Mutex

	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				writeMu.Lock()
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				writeMu.Unlock()
				_ = conn.Close()
				return
			case <-ticker.C:
				writeMu.Lock()
				err := conn.WriteMessage(websocket.PingMessage, nil)
				writeMu.Unlock()
				if err != nil {
					s.logger.Debug("ping failed", "error", err)
					return
				}
			}
		}
	}()

	for {
		messageType, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		if messageType != websocket.TextMessage {
			continue
		}

		sample, ok, err := decodeFrame(msg)
		if err != nil {
			s.logger.Debug("ignoring frame", "error", err)
			continue
		}
		if !ok {
			continue
		}

		select {
		case out <- sample:
		case <-ctx.Done():
			return nil
		}
	}
}
