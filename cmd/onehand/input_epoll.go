//go:build linux

package main

import (
	"context"
	"errors"
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// epollWaitMS bounds each epoll_wait so cancellation is noticed promptly.
const epollWaitMS = 200

// errDeviceHangup is returned when the kernel reports EPOLLERR/EPOLLHUP.
var errDeviceHangup = errors.New("device error/hangup")

// readInputEventsEpoll multiplexes all input devices on one goroutine.
//
// The kernel wakes us only when a device has data; each ready device is read
// once and its events are decoded into reducer Events. Any device error ends
// the reader: the caller reopens the whole set.
func readInputEventsEpoll(ctx context.Context, devices []*inputDevice, events chan<- Event, readErr chan<- error) {
	if len(devices) == 0 {
		readErr <- fmt.Errorf("no input devices provided")
		return
	}

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		readErr <- fmt.Errorf("epoll_create1: %w", err)
		return
	}
	defer unix.Close(epfd)

	fdToDevice := make(map[int]*inputDevice)

	for _, d := range devices {
		fd := int(d.dev.File.Fd())
		fdToDevice[fd] = d

		event := unix.EpollEvent{
			Events: unix.EPOLLIN,
			Fd:     int32(fd),
		}
		if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &event); err != nil {
			readErr <- fmt.Errorf("epoll_ctl_add %s: %w", d.path, err)
			return
		}
	}

	const maxEvents = 8
	epollEvents := make([]unix.EpollEvent, maxEvents)

	for {
		if ctx.Err() != nil {
			return
		}

		n, err := unix.EpollWait(epfd, epollEvents, epollWaitMS)
		if err != nil {
			if err == syscall.EINTR {
				continue
			}
			readErr <- fmt.Errorf("epoll_wait: %w", err)
			return
		}

		for i := 0; i < n; i++ {
			fd := int(epollEvents[i].Fd)
			d := fdToDevice[fd]
			if d == nil {
				continue
			}

			if epollEvents[i].Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
				readErr <- &deviceError{path: d.path, err: errDeviceHangup}
				return
			}

			raw, err := d.dev.Read()
			if err != nil {
				readErr <- &deviceError{path: d.path, err: err}
				return
			}

			for _, ev := range raw {
				for _, out := range d.decoder.Decode(ev) {
					select {
					case events <- out:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}
}

// deviceError ties a read failure to the device it came from.
type deviceError struct {
	path string
	err  error
}

func (e *deviceError) Error() string { return e.path + ": " + e.err.Error() }
func (e *deviceError) Unwrap() error { return e.err }
