// Package sysload models the requested system load: per-CPU user and kernel
// duty cycles, a memory footprint and an I/O duty cycle, and the double
// buffer that separates the applied load from the one being edited.
package sysload

import (
	"fmt"
	"math"
)

const (
	// MsecPerSec is the duty-cycle period in work units.
	MsecPerSec = 1000

	// Unset marks a CPULoad that carries no configuration.
	Unset = -1
)

// CPULoad is the busy share of one CPU, in milliseconds per second.
type CPULoad struct {
	CPU  int
	Msec int
}

// IsSet reports whether the entry carries a load.
func (c CPULoad) IsSet() bool { return c.CPU != Unset }

// SystemLoad is one complete load configuration for an N-CPU machine.
//
// For every CPU i, User[i].Msec + Kernel[i].Msec < MsecPerSec.
type SystemLoad struct {
	User     []CPULoad
	Kernel   []CPULoad
	MemPages int
	IOMsec   int
}

// New returns an empty load for cpus CPUs.
func New(cpus int) *SystemLoad {
	s := &SystemLoad{
		User:   make([]CPULoad, cpus),
		Kernel: make([]CPULoad, cpus),
	}
	s.Reset()
	return s
}

// CPUs is the number of CPUs the load was sized for.
func (s *SystemLoad) CPUs() int { return len(s.User) }

// Reset returns s to the empty state.
func (s *SystemLoad) Reset() {
	for i := range s.User {
		s.User[i] = CPULoad{CPU: Unset}
		s.Kernel[i] = CPULoad{CPU: Unset}
	}
	s.MemPages = 0
	s.IOMsec = 0
}

// UserEmpty reports whether no user CPU load is set.
func (s *SystemLoad) UserEmpty() bool { return cpuEmpty(s.User) }

// KernelEmpty reports whether no kernel CPU load is set.
func (s *SystemLoad) KernelEmpty() bool { return cpuEmpty(s.Kernel) }

// Empty reports whether s configures nothing at all.
func (s *SystemLoad) Empty() bool {
	return s.MemPages == 0 && s.IOMsec == 0 && s.UserEmpty() && s.KernelEmpty()
}

func cpuEmpty(loads []CPULoad) bool {
	for _, l := range loads {
		if l.IsSet() {
			return false
		}
	}
	return true
}

// Work returns the user and kernel milliseconds configured for cpu. Unset
// entries count as zero.
func (s *SystemLoad) Work(cpu int) (user, kernel int) {
	return s.User[cpu].Msec, s.Kernel[cpu].Msec
}

// SetUser sets the user-space share of cpu.
func (s *SystemLoad) SetUser(cpu int, percent float32) error {
	msec, err := s.checkCPU(cpu, percent)
	if err != nil {
		return err
	}
	if kernel := s.Kernel[cpu].Msec; msec+kernel >= MsecPerSec {
		return &LoadExceedsError{CPU: cpu, User: msec, Kernel: kernel}
	}
	s.User[cpu] = CPULoad{CPU: cpu, Msec: msec}
	return nil
}

// SetKernel sets the kernel-attributed share of cpu.
func (s *SystemLoad) SetKernel(cpu int, percent float32) error {
	msec, err := s.checkCPU(cpu, percent)
	if err != nil {
		return err
	}
	if user := s.User[cpu].Msec; user+msec >= MsecPerSec {
		return &LoadExceedsError{CPU: cpu, User: user, Kernel: msec}
	}
	s.Kernel[cpu] = CPULoad{CPU: cpu, Msec: msec}
	return nil
}

// SetMem sets the memory footprint as a share of physPages.
func (s *SystemLoad) SetMem(percent float32, physPages int) error {
	if err := ValidatePercent(percent); err != nil {
		return err
	}
	s.MemPages = PercentToPages(percent, physPages)
	return nil
}

// SetIO sets the I/O duty cycle.
func (s *SystemLoad) SetIO(percent float32) error {
	if err := ValidatePercent(percent); err != nil {
		return err
	}
	s.IOMsec = PercentToMsec(percent)
	return nil
}

func (s *SystemLoad) checkCPU(cpu int, percent float32) (int, error) {
	if err := ValidatePercent(percent); err != nil {
		return 0, err
	}
	if err := ValidateCPU(cpu, s.CPUs()); err != nil {
		return 0, err
	}
	return PercentToMsec(percent), nil
}

// ValidatePercent accepts percentages in [0,100) that stay below 100% once
// rounded to work units. NaN is rejected.
func ValidatePercent(percent float32) error {
	if !(percent >= 0 && percent < 100) || PercentToMsec(percent) >= MsecPerSec {
		return fmt.Errorf("%w: %f", ErrInvalidPercent, percent)
	}
	return nil
}

// ValidateCPU accepts indexes in [0,cpus).
func ValidateCPU(cpu, cpus int) error {
	if cpu < 0 || cpu >= cpus {
		return fmt.Errorf("%w: %d", ErrInvalidCPU, cpu)
	}
	return nil
}

// PercentToMsec converts a percentage to milliseconds per second, rounding
// half away from zero.
func PercentToMsec(percent float32) int {
	return int(math.Round(float64(percent) * 10))
}

// PercentToPages converts a percentage of physPages to a page count.
func PercentToPages(percent float32, physPages int) int {
	return int(math.Round(float64(physPages) * (float64(percent) / 100)))
}
