package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"onehand/internal/keymap"
)

// ============================================================================
// onehand-ctl - Command-line IPC Client
// ============================================================================
// Sends control events to the onehand daemon over its unix socket.
//
// Usage:
//   onehand-ctl tap 2
//   onehand-ctl press 40
//   onehand-ctl release 40
//   onehand-ctl scroll -3
//   onehand-ctl middle
//   onehand-ctl release-all
//   onehand-ctl status
//
// Options:
//   -socket PATH    Unix domain socket path (default: /tmp/onehand.sock)
// ============================================================================

// Wire types (the daemon's are unexported in package main).
type keyTransition struct {
	Position int  `json:"position"`
	Pressed  bool `json:"pressed"`
}

type encoderTurn struct {
	Steps int `json:"steps"`
}

// EventEnvelope wraps events for JSON
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type telemetryState struct {
	KeyPresses   int    `json:"key_presses"`
	FnPresses    int    `json:"fn_presses"`
	EncoderSteps int    `json:"encoder_steps"`
	MouseClicks  int    `json:"mouse_clicks"`
	LastKey      int    `json:"last_key"`
	LastKeyLayer int    `json:"last_key_layer"`
	LastKeyLabel string `json:"last_key_label"`
}

type daemonState struct {
	Layer      int            `json:"layer"`
	LayerName  string         `json:"layer_name"`
	Telemetry  telemetryState `json:"telemetry"`
	Pending    int            `json:"pending"`
	EncoderPos int            `json:"encoder_position"`
	Polls      uint64         `json:"polls"`
	SnapshotAt time.Time      `json:"snapshot_at"`
}

// IPCResponse represents the daemon's response
type IPCResponse struct {
	Status string       `json:"status"`
	Error  string       `json:"error,omitempty"`
	State  *daemonState `json:"state,omitempty"`
}

func main() {
	socketPath := "/tmp/onehand.sock"

	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	if args[0] == "-socket" || args[0] == "--socket" {
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "error: -socket requires an argument\n")
			os.Exit(1)
		}
		socketPath = args[1]
		args = args[2:]
	}

	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	var envs []EventEnvelope
	var err error

	switch args[0] {
	case "press", "release", "tap":
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "error: %s requires a key position\n", args[0])
			os.Exit(1)
		}
		var pos int
		pos, err = parsePosition(args[1])
		if err != nil {
			break
		}
		switch args[0] {
		case "press":
			envs, err = keyEnvelopes(pos, true)
		case "release":
			envs, err = keyEnvelopes(pos, false)
		case "tap":
			envs, err = keyEnvelopes(pos, true, false)
		}

	case "scroll":
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "error: scroll requires a step count\n")
			os.Exit(1)
		}
		var steps int
		steps, err = strconv.Atoi(args[1])
		if err != nil {
			err = fmt.Errorf("invalid step count: %w", err)
			break
		}
		var env EventEnvelope
		env, err = newEnvelope("encoder_turn", encoderTurn{Steps: steps})
		envs = []EventEnvelope{env}

	case "middle", "middle-click":
		envs = []EventEnvelope{{Type: "middle_click"}}

	case "release-all", "panic":
		envs = []EventEnvelope{{Type: "release_all"}}

	case "status", "state":
		envs = []EventEnvelope{{Type: "get_state"}}

	case "help", "-h", "--help":
		printUsage()
		os.Exit(0)

	default:
		fmt.Fprintf(os.Stderr, "error: unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	responses, err := send(socketPath, envs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	for _, r := range responses {
		if r.State != nil {
			printState(r.State)
			return
		}
	}
	fmt.Println("ok")
}

func parsePosition(s string) (int, error) {
	pos, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid key position %q: %w", s, err)
	}
	if !keymap.KeyPosition(pos).Valid() {
		return 0, fmt.Errorf("key position %d out of range [0,%d)", pos, keymap.PositionCount)
	}
	return pos, nil
}

func keyEnvelopes(pos int, edges ...bool) ([]EventEnvelope, error) {
	var out []EventEnvelope
	for _, pressed := range edges {
		env, err := newEnvelope("key_transition", keyTransition{Position: pos, Pressed: pressed})
		if err != nil {
			return nil, err
		}
		out = append(out, env)
	}
	return out, nil
}

func newEnvelope(typ string, data any) (EventEnvelope, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return EventEnvelope{}, fmt.Errorf("marshal %s: %w", typ, err)
	}
	return EventEnvelope{Type: typ, Data: b}, nil
}

// send writes every envelope on one connection and collects the responses.
func send(socketPath string, envs []EventEnvelope) ([]IPCResponse, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	decoder := json.NewDecoder(bufio.NewReader(conn))
	var out []IPCResponse
	for _, env := range envs {
		data, err := json.Marshal(env)
		if err != nil {
			return nil, fmt.Errorf("marshal event: %w", err)
		}
		if _, err := fmt.Fprintf(conn, "%s\n", data); err != nil {
			return nil, fmt.Errorf("send event: %w", err)
		}

		var response IPCResponse
		if err := decoder.Decode(&response); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		if response.Status == "error" {
			return nil, fmt.Errorf("daemon error: %s", response.Error)
		}
		out = append(out, response)
	}
	return out, nil
}

func printState(s *daemonState) {
	layer := keymap.Layer(s.Layer)
	fmt.Printf("layer:          %s (%d) %s\n", s.LayerName, s.Layer, layer.DisplayName())
	fmt.Printf("key presses:    %d\n", s.Telemetry.KeyPresses)
	fmt.Printf("fn presses:     %d\n", s.Telemetry.FnPresses)
	fmt.Printf("encoder steps:  %d\n", s.Telemetry.EncoderSteps)
	fmt.Printf("mouse clicks:   %d\n", s.Telemetry.MouseClicks)
	fmt.Printf("last key:       %d %s (layer %d)\n", s.Telemetry.LastKey, s.Telemetry.LastKeyLabel, s.Telemetry.LastKeyLayer)
	fmt.Printf("pending:        %d\n", s.Pending)
	fmt.Printf("encoder:        %d\n", s.EncoderPos)
	fmt.Printf("polls:          %d\n", s.Polls)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `onehand-ctl - Control the onehand daemon via IPC

Usage:
  onehand-ctl [options] <command> [args]

Options:
  -socket PATH    Unix domain socket path (default: /tmp/onehand.sock)

Commands:
  press <pos>             Press the key at matrix position pos (0-55)
  release <pos>           Release the key at position pos
  tap <pos>               Press and release the key at position pos
  scroll <steps>          Turn the encoder (positive is clockwise)
  middle, middle-click    Click the encoder push switch
  release-all, panic      Release every key and mouse button
  status, state           Print layer and telemetry
  help, -h, --help        Show this help message

Examples:
  onehand-ctl tap 47
  onehand-ctl scroll -2
  onehand-ctl -socket /run/onehand.sock status
`)
}
