package control

import "errors"

var (
	// ErrNoLoad rejects RUN while nothing is pending.
	ErrNoLoad = errors.New("no system load specified")

	// ErrAlreadyLoaded rejects RUN while a load is applied.
	ErrAlreadyLoaded = errors.New("system is already loaded; you need to send STOP first")

	// ErrInvalidType rejects response-only packet types sent as requests.
	ErrInvalidType = errors.New("invalid packet type")

	// ErrUnknownType rejects packet types this daemon does not know.
	ErrUnknownType = errors.New("unknown packet type")
)
