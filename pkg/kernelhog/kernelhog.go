// Package kernelhog talks to the kernel module that runs busy loops in kernel
// threads. Every request is a netlink message that the module acknowledges
// with an error code; anything but a zero code carrying the request's
// sequence number fails the request.
package kernelhog

import (
	"errors"
	"fmt"
)

// DefaultFamily is the netlink protocol number the module registers.
const DefaultFamily = 31

// DefaultModule is the name the module is listed under in /proc/modules.
const DefaultModule = "kloadgend"

var (
	// ErrSequence indicates an acknowledgement for another request.
	ErrSequence = errors.New("kernelhog: sequence number mismatch")

	// ErrAck indicates a reply that is not a single acknowledgement.
	ErrAck = errors.New("kernelhog: unexpected acknowledgement")

	// ErrInvalidCPU indicates a negative CPU index or load.
	ErrInvalidCPU = errors.New("kernelhog: invalid CPU load")
)

// AckError is a non-zero code acknowledged by the module.
type AckError struct {
	Op   Op
	Code int32
}

func (e *AckError) Error() string {
	return fmt.Sprintf("kernelhog: %s acknowledged with error %d", e.Op, e.Code)
}

// Op is the request type understood by the module.
type Op int32

const (
	OpInit Op = iota
	OpCPULoad
	OpRun
	OpStop
)

func (o Op) String() string {
	switch o {
	case OpInit:
		return "init"
	case OpCPULoad:
		return "cpu_load"
	case OpRun:
		return "run"
	case OpStop:
		return "stop"
	default:
		return fmt.Sprintf("Op(%d)", int32(o))
	}
}

// Hogger drives kernel-side CPU load. A session is Init, one CPULoad per
// loaded CPU, then Run; Stop releases the kernel threads.
type Hogger interface {
	Init() error
	CPULoad(cpu, msec int) error
	Run() error
	Stop() error
	Close() error
}

// Nop is the Hogger used when no kernel module is available.
type Nop struct{}

func (Nop) Init() error            { return nil }
func (Nop) CPULoad(int, int) error { return nil }
func (Nop) Run() error             { return nil }
func (Nop) Stop() error            { return nil }
func (Nop) Close() error           { return nil }
