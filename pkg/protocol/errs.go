package protocol

import "errors"

var (
	// ErrFrameSize indicates a datagram that is not exactly one frame.
	ErrFrameSize = errors.New("protocol: invalid frame size")

	// ErrUnexpected indicates a response that is neither OK nor ERR.
	ErrUnexpected = errors.New("protocol: unexpected response")
)

// RemoteError is the message of an ERR response.
type RemoteError struct {
	Msg string
}

func (e *RemoteError) Error() string { return "loadgend: " + e.Msg }
