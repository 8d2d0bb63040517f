package engine

import "errors"

var (
	// ErrRunning is returned by Start while workers from a previous Start
	// are still alive.
	ErrRunning = errors.New("engine: workers already running")

	// ErrNoDevice is returned by Start when an I/O load is requested but no
	// block device is configured.
	ErrNoDevice = errors.New("engine: no block device for I/O load")
)
