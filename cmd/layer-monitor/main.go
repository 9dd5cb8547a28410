package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/sstallion/go-hid"

	"onehand/internal/keymap"
)

func printUsage() {
	fmt.Println("layer-monitor - watch layer changes and key usage of a onehand keyboard")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  layer-monitor [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Reads the keyboard's telemetry either from its auxiliary HID interface")
	fmt.Println("  (generic desktop / joystick) or from the daemon's state websocket, prints")
	fmt.Println("  layer changes and key presses, and logs every press to a CSV file and a")
	fmt.Println("  SQLite history database.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  layer-monitor -list")
	fmt.Println("  layer-monitor -source ws -ws ws://raspberrypi.local:3011/ws/state")
	fmt.Println("  layer-monitor -stats")
	fmt.Println()
}

func main() {
	var (
		settingsPath = flag.String("settings", DefaultSettingsPath(), "Path to TOML settings file")
		source       = flag.String("source", "", "Telemetry source: hid|ws")
		wsURL        = flag.String("ws", "", "State websocket URL")
		devicePath   = flag.String("device", "", "hidapi path of the telemetry interface")
		logDir       = flag.String("log-dir", "", "Directory for session logs")
		noLog        = flag.Bool("no-log", false, "Do not write session logs")
		list         = flag.Bool("list", false, "List telemetry interfaces and exit")
		stats        = flag.Bool("stats", false, "Print all-time key heatmaps from the history database and exit")
		save         = flag.Bool("save", false, "Write the effective settings back to the settings file")
		logLevel     = flag.String("log-level", "info", "Log level: error, warn, info, debug")
	)
	flag.Usage = printUsage
	flag.Parse()

	logger := newLogger(os.Stderr, *logLevel)

	settings, err := LoadSettings(*settingsPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "source":
			settings.Source = *source
		case "ws":
			settings.WSURL = *wsURL
		case "device":
			settings.DevicePath = *devicePath
		case "log-dir":
			settings.LogDir = *logDir
		case "no-log":
			settings.Logging = !*noLog
		}
	})
	if err := settings.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error: invalid settings:", err)
		os.Exit(1)
	}
	if *save {
		if err := SaveSettings(*settingsPath, settings); err != nil {
			logger.Warn("failed to save settings", "path", *settingsPath, "error", err)
		}
	}

	switch {
	case *list:
		if err := listGamepads(os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		return
	case *stats:
		if err := printHistory(os.Stdout, settings.LogDir); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var src Source
	switch settings.Source {
	case sourceWS:
		src = &wsSource{url: settings.WSURL, logger: logger}
	default:
		src = &hidSource{
			settings: settings,
			logger:   logger,
			onConnect: func(info gamepadInfo) {
				if !settings.AutoConnect {
					return
				}
				remembered := settings
				remembered.VendorID = info.VendorID
				remembered.ProductID = info.ProductID
				remembered.ProductName = info.ProductName
				if err := SaveSettings(*settingsPath, remembered); err != nil {
					logger.Warn("failed to remember device", "error", err)
				}
			},
		}
	}

	var sessionLog *SessionLog
	if settings.Logging {
		var csvPath string
		sessionLog, csvPath, err = OpenSessionLog(settings.LogDir, src.String(), time.Now())
		if err != nil {
			logger.Error("failed to open session log", "error", err)
			os.Exit(1)
		}
		defer sessionLog.Close()
		logger.Info("logging session", "csv", csvPath)
	}

	samples := make(chan Sample, 64)
	srcDone := make(chan error, 1)
	go func() {
		srcDone <- src.Run(ctx, samples)
	}()

	tracker := NewTracker()
	logger.Info("monitoring", "source", src.String())

	for {
		select {
		case <-ctx.Done():
			<-srcDone
			printSummary(os.Stdout, tracker)
			return

		case err := <-srcDone:
			if err != nil {
				logger.Error("source failed", "error", err)
				os.Exit(1)
			}
			printSummary(os.Stdout, tracker)
			return

		case s := <-samples:
			u := tracker.Observe(s)
			if u.LayerChanged {
				fmt.Printf("%s  layer  %s (%d)\n", s.At.Format("15:04:05"), u.Layer.DisplayName(), u.Layer)
			}
			if u.Key == nil {
				continue
			}
			k := u.Key
			fmt.Printf("%s  key    %-10s R%dC%d  L%d  total=%d  rate=%.2f/s\n",
				k.At.Format("15:04:05"), k.KeyLabel,
				keymap.KeyPosition(k.KeyID).Row(), keymap.KeyPosition(k.KeyID).Col(),
				k.KeyLayer, k.KeyPresses, u.Rate)
			if sessionLog != nil {
				if err := sessionLog.Append(*k); err != nil {
					logger.Warn("session log write failed", "error", err)
				}
			}
		}
	}
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func listGamepads(w io.Writer) error {
	if err := hid.Init(); err != nil {
		return fmt.Errorf("hidapi init: %w", err)
	}
	defer hid.Exit()

	pads, err := enumerateGamepads()
	if err != nil {
		return err
	}
	if len(pads) == 0 {
		fmt.Fprintln(w, "no telemetry interfaces found")
		return nil
	}
	for _, p := range pads {
		fmt.Fprintln(w, p.String())
	}
	return nil
}

func printHistory(w io.Writer, logDir string) error {
	store, err := OpenStore(filepath.Join(expandPath(logDir), "history.db"))
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.SessionCount()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "sessions: %d\n", n)

	for l := keymap.Layer(0); l < keymap.LayerCount; l++ {
		counts, err := store.LayerCounts(l)
		if err != nil {
			return err
		}
		fmt.Fprintln(w)
		if err := printHeatmap(w, l, counts); err != nil {
			return err
		}
	}
	return nil
}

func printSummary(w io.Writer, t *Tracker) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "recent:", strings.Join(t.Recent(), ", "))
	for l := keymap.Layer(0); l < keymap.LayerCount; l++ {
		fmt.Fprintln(w)
		_ = printHeatmap(w, l, t.Counts(l))
	}
}

// printHeatmap prints a layer grid of "count/intensity" cells.
func printHeatmap(w io.Writer, l keymap.Layer, counts [keymap.PositionCount]int) error {
	heat := Heat(counts)
	fmt.Fprintf(w, "%s %s\n", l, l.DisplayName())

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	for row := 0; row < keymap.Rows; row++ {
		for col := 0; col < keymap.Cols; col++ {
			i := row*keymap.Cols + col
			fmt.Fprintf(tw, "%d/%d\t", counts[i], heat[i])
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}
