package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const (
	sourceHID = "hid"
	sourceWS  = "ws"
)

// Settings is the monitor's persisted TOML file. The last connected HID
// device is written back so the next start can find it again.
type Settings struct {
	Source string `toml:"source"`

	// HID source. An explicit DevicePath wins over the remembered identity.
	DevicePath  string `toml:"device_path"`
	VendorID    uint16 `toml:"vendor_id"`
	ProductID   uint16 `toml:"product_id"`
	ProductName string `toml:"product_name"`
	AutoConnect bool   `toml:"auto_connect"`

	// Websocket source.
	WSURL string `toml:"ws_url"`

	// Session log.
	LogDir  string `toml:"log_dir"`
	Logging bool   `toml:"logging"`
}

func DefaultSettings() Settings {
	return Settings{
		Source:      sourceHID,
		AutoConnect: true,
		WSURL:       "ws://127.0.0.1:3011/ws/state",
		LogDir:      "~/.local/share/onehand-monitor",
		Logging:     true,
	}
}

// DefaultSettingsPath is $XDG_CONFIG_HOME/onehand/monitor.toml.
func DefaultSettingsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "monitor.toml"
	}
	return filepath.Join(dir, "onehand", "monitor.toml")
}

// LoadSettings reads path on top of DefaultSettings. A missing file is not an
// error.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	md, err := toml.DecodeFile(expandPath(path), &s)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultSettings(), nil
		}
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Settings{}, fmt.Errorf("unknown settings keys: %v", undecoded)
	}
	return s, s.Validate()
}

// SaveSettings writes s atomically.
func SaveSettings(path string, s Settings) error {
	path = expandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".monitor-*.toml")
	if err != nil {
		return fmt.Errorf("create temp settings: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := toml.NewEncoder(tmp).Encode(s); err != nil {
		tmp.Close()
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

func (s Settings) Validate() error {
	switch s.Source {
	case sourceHID:
	case sourceWS:
		if s.WSURL == "" {
			return errors.New("ws_url must not be empty for the ws source")
		}
	default:
		return fmt.Errorf("source must be %q or %q", sourceHID, sourceWS)
	}
	if s.Logging && s.LogDir == "" {
		return errors.New("log_dir must not be empty when logging is enabled")
	}
	return nil
}

func expandPath(p string) string {
	if len(p) < 2 || p[0] != '~' || p[1] != '/' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}
