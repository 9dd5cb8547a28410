package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration for the onehand daemon.
//
// The keymap itself is compiled in and deliberately absent here. Everything in
// this file describes where input comes from, where HID output goes and which
// side channels are exposed.
type Config struct {
	Input     InputConfig     `yaml:"input"`
	Output    OutputConfig    `yaml:"output"`
	Poll      PollConfig      `yaml:"poll"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	IPC       IPCConfig       `yaml:"ipc"`
	StateWS   StateWSConfig   `yaml:"state_ws"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type InputConfig struct {
	// MatrixDevice is the matrix-keypad evdev node (required).
	MatrixDevice string `yaml:"matrix_device"`
	// EncoderDevice is the rotary-encoder evdev node. Empty disables scrolling.
	EncoderDevice string `yaml:"encoder_device,omitempty"`
	// ButtonDevice is the gpio-keys node carrying the encoder push switch.
	// It may be the same node as EncoderDevice.
	ButtonDevice string `yaml:"button_device,omitempty"`

	EncoderCode int `yaml:"encoder_code"` // EV_REL code, REL_WHEEL by default
	ButtonCode  int `yaml:"button_code"`  // EV_KEY code, BTN_MIDDLE by default

	// Grab takes exclusive access so the console does not see raw matrix codes.
	Grab bool `yaml:"grab"`

	WaitTimeoutMS int `yaml:"wait_timeout_ms"`
}

type OutputConfig struct {
	Backend string             `yaml:"backend"` // "gadget" or "uinput"
	Gadget  GadgetOutputConfig `yaml:"gadget"`
	Uinput  UinputOutputConfig `yaml:"uinput"`
}

type GadgetOutputConfig struct {
	Keyboard string `yaml:"keyboard"`
	Mouse    string `yaml:"mouse"`
	// Aux is the gamepad-shaped telemetry function. Empty disables it.
	Aux string `yaml:"aux,omitempty"`
}

type UinputOutputConfig struct {
	Path         string `yaml:"path"`
	KeyboardName string `yaml:"keyboard_name"`
	MouseName    string `yaml:"mouse_name"`
}

type PollConfig struct {
	Hz int `yaml:"hz"`
}

type TelemetryConfig struct {
	// Enabled controls the auxiliary HID report. The state websocket always
	// carries telemetry.
	Enabled    bool `yaml:"enabled"`
	IntervalMS int  `yaml:"interval_ms"`
}

type IPCConfig struct {
	SocketPath string `yaml:"socket_path"`
}

type StateWSConfig struct {
	// Listen is the HTTP listen address. Empty disables the state websocket.
	Listen string `yaml:"listen"`
	Path   string `yaml:"path"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

const (
	backendGadget = "gadget"
	backendUinput = "uinput"
)

// DefaultConfig returns a fully-populated Config with defaults.
func DefaultConfig() Config {
	return Config{
		Input: InputConfig{
			MatrixDevice:  "/dev/input/by-path/platform-matrix-keypad-event",
			EncoderDevice: "/dev/input/by-path/platform-rotary-encoder-event",
			ButtonDevice:  "/dev/input/by-path/platform-gpio-keys-event",
			EncoderCode:   defaultEncoderCode,
			ButtonCode:    defaultButtonCode,
			Grab:          true,
			WaitTimeoutMS: int(defaultDeviceWaitTimeout / time.Millisecond),
		},
		Output: OutputConfig{
			Backend: backendGadget,
			Gadget: GadgetOutputConfig{
				Keyboard: defaultGadgetKeyboard,
				Mouse:    defaultGadgetMouse,
				Aux:      defaultGadgetAux,
			},
			Uinput: UinputOutputConfig{
				Path:         "/dev/uinput",
				KeyboardName: "onehand keyboard",
				MouseName:    "onehand pointer",
			},
		},
		Poll: PollConfig{
			Hz: defaultPollHz,
		},
		Telemetry: TelemetryConfig{
			Enabled:    true,
			IntervalMS: int(defaultTelemetryInterval / time.Millisecond),
		},
		IPC: IPCConfig{
			SocketPath: "/tmp/onehand.sock",
		},
		StateWS: StateWSConfig{
			Listen: "127.0.0.1:3011",
			Path:   "/ws/state",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfigFile reads and parses a YAML config file on top of DefaultConfig.
// Unknown fields are rejected to catch typos.
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return parseConfig(b)
}

func parseConfig(b []byte) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Only whitespace/comments are allowed after the document.
	if err := dec.Decode(&struct{}{}); err == nil {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides carries command-line overrides. A nil pointer means "not set";
// a non-nil pointer is applied even when it holds a zero value.
type FlagOverrides struct {
	MatrixDevice  *string
	EncoderDevice *string
	ButtonDevice  *string
	Grab          *bool

	Backend *string

	PollHz *int

	TelemetryEnabled *bool

	IPCSocketPath *string
	StateWSListen *string

	LogLevel *string
}

// Apply merges the overrides into cfg.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.MatrixDevice != nil {
		cfg.Input.MatrixDevice = *o.MatrixDevice
	}
	if o.EncoderDevice != nil {
		cfg.Input.EncoderDevice = *o.EncoderDevice
	}
	if o.ButtonDevice != nil {
		cfg.Input.ButtonDevice = *o.ButtonDevice
	}
	if o.Grab != nil {
		cfg.Input.Grab = *o.Grab
	}
	if o.Backend != nil {
		cfg.Output.Backend = *o.Backend
	}
	if o.PollHz != nil {
		cfg.Poll.Hz = *o.PollHz
	}
	if o.TelemetryEnabled != nil {
		cfg.Telemetry.Enabled = *o.TelemetryEnabled
	}
	if o.IPCSocketPath != nil {
		cfg.IPC.SocketPath = *o.IPCSocketPath
	}
	if o.StateWSListen != nil {
		cfg.StateWS.Listen = *o.StateWSListen
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
}

// Validate checks config invariants after defaults, file and overrides are applied.
func (c *Config) Validate() error {
	if c.Input.MatrixDevice == "" {
		return errors.New("input.matrix_device must not be empty")
	}
	if c.Input.EncoderCode < 0 || c.Input.ButtonCode < 0 {
		return errors.New("input.encoder_code and input.button_code must be >= 0")
	}
	if c.Input.WaitTimeoutMS < 0 {
		return errors.New("input.wait_timeout_ms must be >= 0")
	}

	switch c.Output.Backend {
	case backendGadget:
		if c.Output.Gadget.Keyboard == "" || c.Output.Gadget.Mouse == "" {
			return errors.New("output.gadget.keyboard and output.gadget.mouse must not be empty")
		}
	case backendUinput:
		if c.Output.Uinput.Path == "" {
			return errors.New("output.uinput.path must not be empty")
		}
	default:
		return fmt.Errorf("output.backend must be %q or %q", backendGadget, backendUinput)
	}

	if c.Poll.Hz <= 0 || c.Poll.Hz > 2000 {
		return errors.New("poll.hz must be between 1 and 2000")
	}
	if time.Duration(c.Telemetry.IntervalMS)*time.Millisecond < minTelemetryInterval {
		return fmt.Errorf("telemetry.interval_ms must be >= %d", minTelemetryInterval.Milliseconds())
	}

	if c.IPC.SocketPath == "" {
		return errors.New("ipc.socket_path must not be empty")
	}
	if c.StateWS.Listen != "" && (c.StateWS.Path == "" || c.StateWS.Path[0] != '/') {
		return errors.New("state_ws.path must start with '/'")
	}

	if _, err := parseLogLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	return nil
}

// PollInterval is the cadence of the poll loop.
func (c *Config) PollInterval() time.Duration {
	return time.Second / time.Duration(c.Poll.Hz)
}

// TelemetryInterval is the minimum spacing between auxiliary reports.
func (c *Config) TelemetryInterval() time.Duration {
	return max(time.Duration(c.Telemetry.IntervalMS)*time.Millisecond, minTelemetryInterval)
}

// WaitTimeout bounds how long startup waits for input devices to appear.
// Zero means wait forever.
func (c *Config) WaitTimeout() time.Duration {
	return time.Duration(c.Input.WaitTimeoutMS) * time.Millisecond
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" || p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
