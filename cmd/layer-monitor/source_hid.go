package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sstallion/go-hid"

	"onehand/internal/auxreport"
)

const (
	hidReadTimeout  = 200 * time.Millisecond
	hidRetryDelay   = time.Second
	hidReportBuffer = 64
)

// Sample is one decoded telemetry report.
type Sample struct {
	Report auxreport.Report
	At     time.Time
}

// Source delivers telemetry samples until ctx is canceled.
type Source interface {
	Run(ctx context.Context, out chan<- Sample) error
	String() string
}

// gamepadInfo is the subset of hid.DeviceInfo the monitor cares about.
type gamepadInfo struct {
	Path        string
	VendorID    uint16
	ProductID   uint16
	ProductName string
}

func (g gamepadInfo) String() string {
	return fmt.Sprintf("%04x:%04x %s (%s)", g.VendorID, g.ProductID, g.ProductName, g.Path)
}

// isTelemetryInterface matches the generic-desktop joystick collection the
// keyboard exposes its telemetry on.
func isTelemetryInterface(info *hid.DeviceInfo) bool {
	return info.UsagePage == auxreport.UsagePage && info.Usage == auxreport.Usage
}

// enumerateGamepads lists every telemetry-capable HID interface.
func enumerateGamepads() ([]gamepadInfo, error) {
	var out []gamepadInfo
	err := hid.Enumerate(hid.VendorIDAny, hid.ProductIDAny, func(info *hid.DeviceInfo) error {
		if !isTelemetryInterface(info) {
			return nil
		}
		out = append(out, gamepadInfo{
			Path:        info.Path,
			VendorID:    info.VendorID,
			ProductID:   info.ProductID,
			ProductName: info.ProductStr,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("enumerate hid devices: %w", err)
	}
	return out, nil
}

// pickGamepad chooses the interface to open: an explicit path, then the
// remembered vendor/product, then the first one found.
func pickGamepad(candidates []gamepadInfo, s Settings) (gamepadInfo, error) {
	if len(candidates) == 0 {
		return gamepadInfo{}, errors.New("no telemetry interface found")
	}
	if s.DevicePath != "" {
		for _, c := range candidates {
			if c.Path == s.DevicePath {
				return c, nil
			}
		}
		return gamepadInfo{}, fmt.Errorf("device %s not present", s.DevicePath)
	}
	if s.AutoConnect && s.VendorID != 0 {
		for _, c := range candidates {
			if c.VendorID == s.VendorID && c.ProductID == s.ProductID {
				return c, nil
			}
		}
	}
	return candidates[0], nil
}

// hidSource reads the auxiliary report through hidapi.
type hidSource struct {
	settings Settings
	logger   *slog.Logger

	// onConnect is told which device was opened, to remember it.
	onConnect func(gamepadInfo)
}

func (s *hidSource) String() string { return "hid" }

func (s *hidSource) Run(ctx context.Context, out chan<- Sample) error {
	if err := hid.Init(); err != nil {
		return fmt.Errorf("hidapi init: %w", err)
	}
	defer hid.Exit()

	for {
		err := s.session(ctx, out)
		if ctx.Err() != nil {
			return nil
		}
		s.logger.Warn("hid session ended", "error", err, "retry_in", hidRetryDelay)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(hidRetryDelay):
		}
	}
}

func (s *hidSource) session(ctx context.Context, out chan<- Sample) error {
	candidates, err := enumerateGamepads()
	if err != nil {
		return err
	}
	info, err := pickGamepad(candidates, s.settings)
	if err != nil {
		return err
	}

	dev, err := hid.OpenPath(info.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", info.Path, err)
	}
	defer dev.Close()

	s.logger.Info("hid connected", "device", info.String())
	if s.onConnect != nil {
		s.onConnect(info)
	}

	buf := make([]byte, hidReportBuffer)
	for {
		if ctx.Err() != nil {
			return nil
		}
		n, err := dev.ReadWithTimeout(buf, hidReadTimeout)
		if errors.Is(err, hid.ErrTimeout) {
			continue
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", info.Path, err)
		}

		r, err := auxreport.Decode(buf[:n])
		if err != nil {
			s.logger.Debug("ignoring report", "bytes", n, "error", err)
			continue
		}

		select {
		case out <- Sample{Report: r, At: time.Now()}:
		case <-ctx.Done():
			return nil
		}
	}
}
