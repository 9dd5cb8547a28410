package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

const version = "0.3.0"

func printVersion() {
	fmt.Printf("onehand v%s\n", version)
	fmt.Println("Layer-aware one-hand keyboard daemon")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  onehand [OPTIONS]")
	fmt.Println("  onehand keymap [-layer N]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Reads the key matrix, rotary encoder and push switch through evdev,")
	fmt.Println("  resolves every key transition against the compiled-in four-layer keymap")
	fmt.Println("  and drives a USB HID gadget (or uinput) keyboard and mouse. Usage")
	fmt.Println("  telemetry is published on an auxiliary HID report and a state websocket.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("SUBCOMMANDS:")
	fmt.Println("  keymap")
	fmt.Println("        Print the keymap grid of every layer (or one with -layer)")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Start with a config file")
	fmt.Println("  onehand -config /etc/onehand.yaml")
	fmt.Println()
	fmt.Println("  # Bench test on the board itself, without a USB host")
	fmt.Println("  onehand -backend uinput -log-level debug")
	fmt.Println()
	fmt.Println("NOTES:")
	fmt.Println("  - Requires read access to the input devices and write access to /dev/hidgN or /dev/uinput")
	fmt.Println("  - The keymap is not configurable at runtime")
	fmt.Println()
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "keymap" {
		if err := runKeymapSubcommand(os.Args[2:], os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		return
	}

	var (
		configPath = flag.String("config", "", "Path to YAML config file")

		matrixDevice  = flag.String("matrix-device", "", "evdev node of the key matrix")
		encoderDevice = flag.String("encoder-device", "", "evdev node of the rotary encoder")
		buttonDevice  = flag.String("button-device", "", "evdev node of the encoder push switch")
		grab          = flag.Bool("grab", true, "Grab input devices exclusively")

		backend = flag.String("backend", "", "HID backend: gadget|uinput")
		pollHz  = flag.Int("poll-hz", defaultPollHz, "Poll loop frequency in Hz")

		telemetry = flag.Bool("telemetry", true, "Emit the auxiliary telemetry HID report")

		ipcSocketPath = flag.String("ipc-socket", "", "Unix domain socket path for IPC")
		stateWSListen = flag.String("state-ws-listen", "", "Listen address of the state websocket (empty string in config disables)")

		logLevelStr = flag.String("log-level", "", "Log level: error, warn, info, debug")
		showVersion = flag.Bool("version", false, "Print version and exit")
		showHelp    = flag.Bool("help", false, "Print help message")
	)

	flag.Usage = printUsage
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}
	if *showVersion {
		printVersion()
		return
	}

	cfg := DefaultConfig()
	if *configPath != "" {
		loaded, err := LoadConfigFile(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	// Only flags given on the command line override the file.
	var overrides FlagOverrides
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "matrix-device":
			overrides.MatrixDevice = matrixDevice
		case "encoder-device":
			overrides.EncoderDevice = encoderDevice
		case "button-device":
			overrides.ButtonDevice = buttonDevice
		case "grab":
			overrides.Grab = grab
		case "backend":
			overrides.Backend = backend
		case "poll-hz":
			overrides.PollHz = pollHz
		case "telemetry":
			overrides.TelemetryEnabled = telemetry
		case "ipc-socket":
			overrides.IPCSocketPath = ipcSocketPath
		case "state-ws-listen":
			overrides.StateWSListen = stateWSListen
		case "log-level":
			overrides.LogLevel = logLevelStr
		}
	})
	overrides.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error: invalid config:", err)
		os.Exit(1)
	}

	logLevel, _ := parseLogLevel(cfg.Logging.Level)
	logger := setupLogger(os.Stderr, logLevel)

	logger.Debug("configuration",
		"config", *configPath,
		"matrix_device", cfg.Input.MatrixDevice,
		"encoder_device", cfg.Input.EncoderDevice,
		"button_device", cfg.Input.ButtonDevice,
		"grab", cfg.Input.Grab,
		"backend", cfg.Output.Backend,
		"poll_hz", cfg.Poll.Hz,
		"telemetry", cfg.Telemetry.Enabled,
		"telemetry_interval_ms", cfg.Telemetry.IntervalMS,
		"ipc_socket", cfg.IPC.SocketPath,
		"state_ws_listen", cfg.StateWS.Listen,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out, err := openHIDOutput(cfg.Output, cfg.Telemetry.Enabled, logger)
	if err != nil {
		logger.Error("failed to open hid output", "backend", cfg.Output.Backend, "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := out.Close(); err != nil {
			logger.Warn("hid output close failed", "error", err)
		}
	}()

	events := make(chan Event, 256)

	var broadcasts chan StateBroadcast
	var wg sync.WaitGroup

	if cfg.StateWS.Listen != "" {
		broadcasts = make(chan StateBroadcast, 64)

		wsServer := NewServer(logger, events, ServerConfig{})
		mux := http.NewServeMux()
		wsServer.Register(mux, cfg.StateWS.Path)
		mux.Handle("/api/state", stateHandler(events, logger))

		wg.Add(3)
		go func() {
			defer wg.Done()
			wsServer.Hub().Run(ctx)
		}()
		go func() {
			defer wg.Done()
			RunBroadcaster(ctx, wsServer.Hub(), broadcasts, logger)
		}()
		go func() {
			defer wg.Done()
			if err := runHTTPServer(ctx, cfg.StateWS.Listen, mux, logger); err != nil {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	daemonDone := make(chan struct{})
	go func() {
		defer close(daemonDone)
		runDaemon(ctx, events, out, ReducerConfig{
			AuxReport:         cfg.Telemetry.Enabled,
			TelemetryInterval: cfg.TelemetryInterval(),
		}, &DaemonState{}, cfg.PollInterval(), broadcasts, logger)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := runIPCServer(ctx, ExpandPath(cfg.IPC.SocketPath), events, logger); err != nil {
			logger.Error("IPC server error", "error", err)
			stop()
		}
	}()

	logger.Info("onehand started",
		"version", version,
		"matrix_device", cfg.Input.MatrixDevice,
		"backend", cfg.Output.Backend,
		"poll_hz", cfg.Poll.Hz,
	)

	exitCode := 0
	if err := runInputs(ctx, cfg.Input, cfg.WaitTimeout(), events, logger); err != nil {
		logger.Error("input failed", "error", err, "tip", "check device paths and permissions (input group)")
		exitCode = 1
	}

	stop()
	// The poll loop releases everything on its way out; wait for it before
	// closing the HID output.
	<-daemonDone
	wg.Wait()
	logger.Info("shutting down")

	if exitCode != 0 {
		_ = out.Close()
		os.Exit(exitCode)
	}
}
