package measure

import (
	"errors"

	"github.com/ja7ad/loadgen/pkg/types"
)

var (
	// ErrExited indicates the sampled process is gone.
	ErrExited = errors.New("measure: process exited")

	// ErrBadInterval indicates a non-positive sampling interval.
	ErrBadInterval = errors.New("measure: interval must be > 0")
)

// Config tunes the samplers.
//   - Alpha: EMA factor for per-CPU shares [0..1], 1 disables smoothing
//   - CPUs: restrict the report to these CPUs, empty means all
type Config struct {
	Alpha float64
	CPUs  []int
}

func _defaultConfig() *Config {
	return &Config{Alpha: 0.5}
}

// CPUUsage is the split of one CPU's time over a sampling interval, in
// percent. User includes nice time; System includes hard and soft IRQ time,
// which is where the kernel share of a load shows up.
type CPUUsage struct {
	CPU    int
	User   float64
	System float64
	Idle   float64
}

// ProcUsage is what one process consumed over a sampling interval. User and
// System are percentages of a single CPU; ReadBytes is the block I/O read in
// the interval; RSS is the resident size at the end of it.
type ProcUsage struct {
	PID       int
	User      float64
	System    float64
	ReadBytes types.Bytes
	RSS       types.Bytes
}
