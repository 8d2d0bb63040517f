// Package protocol implements the fixed-size frames exchanged with the
// daemon over its local socket.
//
// A frame is 68 bytes in host byte order:
//
//	0..3    percent (float32)  | errmsg[64], NUL terminated
//	4..7    cpu     (int32)    |
//	64..67  type    (int32)
//
// Requests and responses share the layout; a response is either OK or ERR.
package protocol

import (
	"bytes"
	"fmt"
	"math"

	"github.com/josharian/native"
)

const (
	// FrameSize is the size of every frame on the wire.
	FrameSize = 68

	// ErrMsgLen is the size of the error message field, terminator included.
	ErrMsgLen = 64

	typeOffset = ErrMsgLen
)

// Type tags a frame.
type Type int32

const (
	TypeInit Type = iota
	TypeCPUUser
	TypeCPUKernel
	TypeMem
	TypeIO
	TypeRun
	TypeStop
	TypeErr
	TypeOK
)

var typeNames = [...]string{"INIT", "CPU_USER", "CPU_KERNEL", "MEM", "IO", "RUN", "STOP", "ERR", "OK"}

func (t Type) String() string {
	if t >= 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", int32(t))
}

// Message is one decoded frame.
type Message interface {
	Type() Type
}

type (
	// Init starts a new pending configuration.
	Init struct{}

	// CPUUser sets the user-space load of a CPU.
	CPUUser struct {
		Percent float32
		CPU     int32
	}

	// CPUKernel sets the kernel-attributed load of a CPU.
	CPUKernel struct {
		Percent float32
		CPU     int32
	}

	// Mem sets the memory footprint as a share of physical memory.
	Mem struct{ Percent float32 }

	// IO sets the block device read duty cycle.
	IO struct{ Percent float32 }

	// Run applies the pending configuration.
	Run struct{}

	// Stop releases the applied configuration.
	Stop struct{}

	// OK acknowledges a request.
	OK struct{}

	// Error rejects a request.
	Error struct{ Msg string }

	// Unknown is a frame with a type this package does not know.
	Unknown struct{ Code int32 }
)

func (Init) Type() Type      { return TypeInit }
func (CPUUser) Type() Type   { return TypeCPUUser }
func (CPUKernel) Type() Type { return TypeCPUKernel }
func (Mem) Type() Type       { return TypeMem }
func (IO) Type() Type        { return TypeIO }
func (Run) Type() Type       { return TypeRun }
func (Stop) Type() Type      { return TypeStop }
func (OK) Type() Type        { return TypeOK }
func (Error) Type() Type     { return TypeErr }
func (u Unknown) Type() Type { return Type(u.Code) }

// Marshal encodes m into a frame. Error messages longer than 63 bytes are
// cut so the terminator always fits.
func Marshal(m Message) []byte {
	b := make([]byte, FrameSize)

	switch m := m.(type) {
	case CPUUser:
		putLoad(b, m.Percent, m.CPU)
	case CPUKernel:
		putLoad(b, m.Percent, m.CPU)
	case Mem:
		putLoad(b, m.Percent, 0)
	case IO:
		putLoad(b, m.Percent, 0)
	case Error:
		copy(b[:ErrMsgLen-1], m.Msg)
	}
	native.Endian.PutUint32(b[typeOffset:], uint32(m.Type()))
	return b
}

func putLoad(b []byte, percent float32, cpu int32) {
	native.Endian.PutUint32(b[0:4], math.Float32bits(percent))
	native.Endian.PutUint32(b[4:8], uint32(cpu))
}

// Unmarshal decodes a frame.
func Unmarshal(b []byte) (Message, error) {
	if len(b) != FrameSize {
		return nil, fmt.Errorf("%w: %d/%d bytes", ErrFrameSize, len(b), FrameSize)
	}

	percent := math.Float32frombits(native.Endian.Uint32(b[0:4]))
	cpu := int32(native.Endian.Uint32(b[4:8]))
	t := Type(native.Endian.Uint32(b[typeOffset:]))

	switch t {
	case TypeInit:
		return Init{}, nil
	case TypeCPUUser:
		return CPUUser{Percent: percent, CPU: cpu}, nil
	case TypeCPUKernel:
		return CPUKernel{Percent: percent, CPU: cpu}, nil
	case TypeMem:
		return Mem{Percent: percent}, nil
	case TypeIO:
		return IO{Percent: percent}, nil
	case TypeRun:
		return Run{}, nil
	case TypeStop:
		return Stop{}, nil
	case TypeOK:
		return OK{}, nil
	case TypeErr:
		msg := b[:ErrMsgLen]
		if i := bytes.IndexByte(msg, 0); i >= 0 {
			msg = msg[:i]
		}
		return Error{Msg: string(msg)}, nil
	default:
		return Unknown{Code: int32(t)}, nil
	}
}
