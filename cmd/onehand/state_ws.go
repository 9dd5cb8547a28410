package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"onehand/internal/auxreport"
	"onehand/internal/keymap"
)

// ============================================================================
// State WebSocket: hub + per-client pumps + broadcaster
// ============================================================================
//
// Messages are JSON text frames with an envelope: {type, ts, data}.
//   - "state_init" on connect, with the current snapshot
//   - "layer_changed" immediately on every layer transition
//   - "telemetry" coalesced (latest wins) to one per wsTelemetryCoalesceWindow
//
// DaemonState stays owned by the poll loop; the initial snapshot is requested
// through the event channel like any other client request.
// ============================================================================

// wsTelemetryData is the JSON payload of "telemetry" and part of "state_init".
type wsTelemetryData struct {
	KeyPresses   int    `json:"key_presses"`
	FnPresses    int    `json:"fn_presses"`
	EncoderSteps int    `json:"encoder_steps"`
	MouseClicks  int    `json:"mouse_clicks"`
	CurrentLayer int    `json:"current_layer"`
	LastKey      int    `json:"last_key"`
	LastKeyLayer int    `json:"last_key_layer"`
	LastKeyLabel string `json:"last_key_label"`
}

func newTelemetryPayload(r auxreport.Report) wsTelemetryData {
	return wsTelemetryData{
		KeyPresses:   int(r.KeyPresses),
		FnPresses:    int(r.FnPresses),
		EncoderSteps: int(r.EncoderSteps),
		MouseClicks:  int(r.MouseClicks),
		CurrentLayer: int(r.CurrentLayer),
		LastKey:      int(r.LastKey),
		LastKeyLayer: int(r.LastKeyLayer),
		LastKeyLabel: keymap.Label(keymap.Layer(r.LastKeyLayer), keymap.KeyPosition(r.LastKey)),
	}
}

// wsMessageSnapshot is the JSON payload of "state_init" and of IPC get_state.
type wsMessageSnapshot struct {
	Layer      int             `json:"layer"`
	LayerName  string          `json:"layer_name"`
	Telemetry  wsTelemetryData `json:"telemetry"`
	Pending    int             `json:"pending"`
	EncoderPos int             `json:"encoder_position"`
	Polls      uint64          `json:"polls"`
	SnapshotAt time.Time       `json:"snapshot_at"`
}

func newSnapshotPayload(s StateSnapshot) wsMessageSnapshot {
	return wsMessageSnapshot{
		Layer:      int(s.Layer),
		LayerName:  s.Layer.String(),
		Telemetry:  newTelemetryPayload(s.Telemetry),
		Pending:    s.Pending,
		EncoderPos: s.Encoder,
		Polls:      s.Polls,
		SnapshotAt: s.At,
	}
}

// wsLayerChangedData is the JSON payload of "layer_changed".
type wsLayerChangedData struct {
	From     int    `json:"from"`
	To       int    `json:"to"`
	FromName string `json:"from_name"`
	ToName   string `json:"to_name"`
}

// wsOutboundEvent is a pre-typed, externally-consumable state event.
type wsOutboundEvent struct {
	Type string
	Data any
	At   time.Time
}

// envelope is the wire format envelope for WS messages.
type envelope struct {
	Type string     `json:"type"`
	Ts   *time.Time `json:"ts,omitempty"`
	Data any        `json:"data,omitempty"`
}

func marshalEnvelope(ev wsOutboundEvent) ([]byte, error) {
	ts := ev.At
	if ts.IsZero() {
		ts = time.Now()
	}
	ts = ts.UTC()
	return json.Marshal(envelope{Type: ev.Type, Ts: &ts, Data: ev.Data})
}

// ============================================================================
// Hub
// ============================================================================

type Hub struct {
	logger *slog.Logger

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu      sync.Mutex
	clients map[*Client]struct{}

	sendBuf int
}

type HubConfig struct {
	// SendBuf is the per-client outbound queue size.
	SendBuf int
	// BroadcastBuf is the hub inbound broadcast queue size.
	BroadcastBuf int
}

// NewHub constructs a hub. Call Run(ctx) to start it.
func NewHub(logger *slog.Logger, cfg HubConfig) *Hub {
	sendBuf := cfg.SendBuf
	if sendBuf <= 0 {
		sendBuf = 32
	}
	bcastBuf := cfg.BroadcastBuf
	if bcastBuf <= 0 {
		bcastBuf = 128
	}
	return &Hub{
		logger:     logger,
		broadcast:  make(chan []byte, bcastBuf),
		register:   make(chan *Client, 16),
		unregister: make(chan *Client, 16),
		clients:    make(map[*Client]struct{}),
		sendBuf:    sendBuf,
	}
}

// Run processes hub events until ctx is canceled, then disconnects everyone.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("ws hub starting")

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("ws hub stopping (context canceled)")
			h.closeAllClients()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("ws client registered", "remote_addr", c.remoteAddr, "clients", n)

		case c := <-h.unregister:
			h.removeClient(c, "unregister")

		case msg := <-h.broadcast:
			var slow []*Client

			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					slow = append(slow, c)
				}
			}
			h.mu.Unlock()

			for _, c := range slow {
				h.removeClient(c, "slow_client")
			}
		}
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.conn != nil {
			_ = c.conn.Close()
		}
		c.closeSend()
		delete(h.clients, c)
	}
}

func (h *Hub) removeClient(c *Client, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.closeSend()
	h.logger.Info("ws client disconnected", "remote_addr", c.remoteAddr, "reason", reason, "clients", n)
}

// BroadcastBytes enqueues a pre-serialized frame. It never blocks; if the hub
// queue is full the message is dropped.
func (h *Hub) BroadcastBytes(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("ws hub broadcast queue full, dropping message", "bytes", len(msg))
	}
}

// ============================================================================
// Client
// ============================================================================

type Client struct {
	hub *Hub

	conn *websocket.Conn
	send chan []byte

	closeOnce sync.Once

	remoteAddr string
	logger     *slog.Logger
}

// NewClient creates a client with a buffered send channel.
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string, logger *slog.Logger) *Client {
	sendBuf := 32
	if hub != nil && hub.sendBuf > 0 {
		sendBuf = hub.sendBuf
	}
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBuf),
		remoteAddr: remoteAddr,
		logger:     logger,
	}
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

const (
	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 20 * time.Second
)

// wsTelemetryCoalesceWindow is the maximum rate of "telemetry" frames.
const wsTelemetryCoalesceWindow = 100 * time.Millisecond

func closeStatus(err error) (code int, text string, ok bool) {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code, ce.Text, true
	}
	return 0, "", false
}

func (c *Client) logExit(pump string, err error) {
	if errors.Is(err, websocket.ErrCloseSent) {
		return
	}
	if code, text, ok := closeStatus(err); ok {
		c.logger.Info("ws "+pump+" exiting (close)", "remote_addr", c.remoteAddr, "code", code, "reason", text)
		return
	}
	c.logger.Info("ws "+pump+" exiting", "remote_addr", c.remoteAddr, "error", err)
}

// writePump writes queued messages and keepalive pings. It exits on write
// error or when send is closed.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logExit("writePump", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logExit("writePump", err)
				return
			}
		}
	}
}

// readPump discards incoming messages; it only exists to process control
// frames and to notice disconnects.
func (c *Client) readPump() {
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			c.logExit("readPump", err)
			if c.hub != nil {
				c.hub.unregister <- c
			}
			return
		}
	}
}

// ============================================================================
// HTTP Handler
// ============================================================================

type Server struct {
	logger *slog.Logger
	hub    *Hub

	// Needed for the state_init snapshot (through the poll loop).
	events chan<- Event
}

type ServerConfig struct {
	Hub HubConfig
}

// NewServer constructs the WS state server. Register it on a mux, then start
// Hub().Run and RunBroadcaster.
func NewServer(logger *slog.Logger, events chan<- Event, cfg ServerConfig) *Server {
	return &Server{
		logger: logger,
		hub:    NewHub(logger, cfg.Hub),
		events: events,
	}
}

func (s *Server) Hub() *Hub { return s.hub }

// Register registers the WS handler on the provided mux.
func (s *Server) Register(mux *http.ServeMux, path string) {
	if mux == nil {
		return
	}
	mux.HandleFunc(path, s.handleStateWS)
}

var upgrader = websocket.Upgrader{
	// The socket is read-only state; any origin may watch it.
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (s *Server) handleStateWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", "error", err)
		return
	}

	client := NewClient(s.hub, conn, r.RemoteAddr, s.logger)
	s.hub.register <- client

	// Pump lifetime is the connection's, not the request's.
	go client.writePump()
	go client.readPump()

	if s.events == nil {
		return
	}

	snap, err := requestSnapshot(r.Context(), s.events, time.Second)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.Warn("ws snapshot request failed", "error", err)
		}
		return
	}

	msg, err := marshalEnvelope(wsOutboundEvent{
		Type: "state_init",
		Data: newSnapshotPayload(snap),
		At:   snap.At,
	})
	if err != nil {
		s.logger.Warn("ws state_init marshal failed", "error", err)
		return
	}

	select {
	case client.send <- msg:
	default:
		s.hub.unregister <- client
	}
}

// ============================================================================
// Broadcaster
// ============================================================================

// RunBroadcaster reads reducer-emitted StateBroadcasts, marshals them and fans
// them out. Telemetry is rate-limited latest-wins; everything else is sent
// immediately after flushing any pending telemetry.
func RunBroadcaster(ctx context.Context, hub *Hub, src <-chan StateBroadcast, logger *slog.Logger) {
	if hub == nil || src == nil {
		return
	}

	var pending *wsOutboundEvent
	var timer *time.Timer
	var timerCh <-chan time.Time

	send := func(ev wsOutboundEvent) {
		msg, err := marshalEnvelope(ev)
		if err != nil {
			logger.Warn("ws broadcaster marshal failed", "error", err, "type", ev.Type)
			return
		}
		hub.BroadcastBytes(msg)
	}

	flushPending := func() {
		if pending == nil {
			return
		}
		send(*pending)
		pending = nil
	}

	stopTimer := func() {
		if timer != nil && !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer = nil
		timerCh = nil
	}

	for {
		select {
		case <-ctx.Done():
			flushPending()
			stopTimer()
			return

		case <-timerCh:
			flushPending()
			stopTimer()

		case b, ok := <-src:
			if !ok {
				flushPending()
				stopTimer()
				logger.Info("ws broadcaster stopping (source ended)")
				return
			}

			ev, ok := convertBroadcast(b)
			if !ok {
				continue
			}

			if ev.Type == "telemetry" {
				copyEv := ev
				pending = &copyEv
				if timer == nil {
					timer = time.NewTimer(wsTelemetryCoalesceWindow)
					timerCh = timer.C
				}
				continue
			}

			flushPending()
			stopTimer()
			send(ev)
		}
	}
}

func convertBroadcast(b StateBroadcast) (wsOutboundEvent, bool) {
	switch ev := b.(type) {
	case BroadcastLayerChanged:
		return wsOutboundEvent{
			Type: "layer_changed",
			Data: wsLayerChangedData{
				From:     int(ev.From),
				To:       int(ev.To),
				FromName: ev.From.String(),
				ToName:   ev.To.String(),
			},
			At: ev.At,
		}, true

	case BroadcastTelemetry:
		return wsOutboundEvent{
			Type: "telemetry",
			Data: newTelemetryPayload(ev.Report),
			At:   ev.At,
		}, true

	default:
		return wsOutboundEvent{}, false
	}
}
