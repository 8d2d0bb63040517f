package sysload

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPercent indicates a percentage outside [0,100).
	ErrInvalidPercent = errors.New("sysload: invalid percent value")

	// ErrInvalidCPU indicates a CPU index outside [0,N).
	ErrInvalidCPU = errors.New("sysload: invalid CPU num")

	// ErrLoadExceeds indicates that user and kernel load of one CPU would
	// reach 100%. Returned wrapped in a *LoadExceedsError.
	ErrLoadExceeds = errors.New("sysload: load exceeds 100%")
)

// LoadExceedsError carries the combined user and kernel work of the CPU that
// was rejected, in milliseconds per second.
type LoadExceedsError struct {
	CPU    int
	User   int
	Kernel int
}

func (e *LoadExceedsError) Error() string {
	return fmt.Sprintf("sysload: user(%d) + kernel(%d) load exceeds 100%%", e.User, e.Kernel)
}

func (e *LoadExceedsError) Is(target error) bool { return target == ErrLoadExceeds }
