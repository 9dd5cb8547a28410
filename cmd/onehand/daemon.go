package main

import (
	"context"
	"log/slog"
	"time"
)

// runDaemon is the poll loop. It:
//   - Receives Events from the input readers, IPC and the websocket server
//   - Emits a PollTick on a fixed cadence
//   - Reduces events into (state, commands, broadcasts)
//   - Executes commands against the HID output and feeds failures back
//
// The loop is the sole owner of state. Before returning it releases every
// key and button so nothing stays stuck on the host.
func runDaemon(
	ctx context.Context,
	events <-chan Event,
	out *HIDOutput,
	cfg ReducerConfig,
	state *DaemonState,
	pollInterval time.Duration,
	broadcasts chan<- StateBroadcast,
	logger *slog.Logger,
) {
	if state == nil {
		logger.Error("daemon state is nil")
		return
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var eventQueue []Event
	var cmdQueue []Command

	enqueueEvent := func(ev Event) {
		eventQueue = append(eventQueue, ev)
	}

	publish := func(bs []StateBroadcast) {
		for _, b := range bs {
			if lc, ok := b.(BroadcastLayerChanged); ok {
				logger.Info("layer changed", "from", lc.From.String(), "to", lc.To.String())
			}
			if broadcasts == nil {
				continue
			}
			select {
			case broadcasts <- b:
			default:
				logger.Warn("broadcast queue full, dropping state broadcast")
			}
		}
	}

	flushEvents := func() {
		for len(eventQueue) > 0 {
			ev := eventQueue[0]
			eventQueue = eventQueue[1:]

			rr := Reduce(state, ev, cfg)
			if rr.State != nil {
				state = rr.State
			}
			cmdQueue = append(cmdQueue, rr.Commands...)
			publish(rr.Broadcasts)
		}
	}

	flushCommands := func() {
		for len(cmdQueue) > 0 {
			cmd := cmdQueue[0]
			cmdQueue = cmdQueue[1:]

			runEffect(out, cmd, logger, enqueueEvent)
			flushEvents()
		}
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("daemon stopping (context canceled)")
			enqueueEvent(ForceReleaseAll{})
			flushEvents()
			flushCommands()
			return

		case ev, ok := <-events:
			if !ok {
				logger.Info("daemon stopping (events channel closed)")
				enqueueEvent(ForceReleaseAll{})
				flushEvents()
				flushCommands()
				return
			}
			if lost, isLost := ev.(InputLost); isLost {
				logger.Warn("input lost, releasing all", "device", lost.Device, "error", lost.Err)
			}
			enqueueEvent(ev)
			flushEvents()
			flushCommands()

		case now := <-ticker.C:
			enqueueEvent(PollTick{Now: now})
			flushEvents()
			flushCommands()
		}
	}
}
