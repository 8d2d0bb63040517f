//go:build linux

package measure

import (
	"slices"

	"github.com/ja7ad/loadgen/pkg/system/proc"
	"github.com/ja7ad/loadgen/pkg/system/util"
)

// Sampler reports per-CPU usage from /proc/stat deltas.
type Sampler struct {
	cfg  *Config
	read func() ([]proc.CPUTimes, error)
	prev map[int]proc.CPUTimes
	ema  map[int]*[3]*util.EMA
}

// NewSampler primes a sampler with the current counters.
// Fields of cfg override defaults when valid:
//   - Alpha in [0..1] is accepted verbatim; anything else keeps the default.
//   - CPUs is used as given.
func NewSampler(cfg *Config) (*Sampler, error) {
	return newSampler(cfg, proc.ReadCPUTimes)
}

func newSampler(cfg *Config, read func() ([]proc.CPUTimes, error)) (*Sampler, error) {
	merged := *_defaultConfig()
	if cfg != nil {
		if cfg.Alpha >= 0 && cfg.Alpha <= 1 {
			merged.Alpha = cfg.Alpha
		}
		merged.CPUs = cfg.CPUs
	}

	s := &Sampler{
		cfg:  &merged,
		read: read,
		prev: make(map[int]proc.CPUTimes),
		ema:  make(map[int]*[3]*util.EMA),
	}
	if err := s.prime(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Sampler) prime() error {
	times, err := s.read()
	if err != nil {
		return err
	}
	for _, t := range times {
		s.prev[t.CPU] = t
	}
	return nil
}

// Sample returns the usage of every selected CPU since the previous call,
// in CPU order.
func (s *Sampler) Sample() ([]CPUUsage, error) {
	times, err := s.read()
	if err != nil {
		return nil, err
	}

	out := make([]CPUUsage, 0, len(times))
	for _, now := range times {
		prev, seen := s.prev[now.CPU]
		s.prev[now.CPU] = now
		if !seen || !s.selected(now.CPU) {
			continue
		}

		total := float64(util.DeltaU64(now.Total(), prev.Total()))
		user := float64(util.DeltaU64(now.User+now.Nice, prev.User+prev.Nice))
		sys := float64(util.DeltaU64(now.System+now.IRQ+now.SoftIRQ, prev.System+prev.IRQ+prev.SoftIRQ))
		idle := float64(util.DeltaU64(now.Idle+now.IOWait, prev.Idle+prev.IOWait))

		e := s.emaFor(now.CPU)
		out = append(out, CPUUsage{
			CPU:    now.CPU,
			User:   e[0].Next(util.Percent(user, total)),
			System: e[1].Next(util.Percent(sys, total)),
			Idle:   e[2].Next(util.Percent(idle, total)),
		})
	}

	slices.SortFunc(out, func(a, b CPUUsage) int { return a.CPU - b.CPU })
	return out, nil
}

func (s *Sampler) selected(cpu int) bool {
	return len(s.cfg.CPUs) == 0 || slices.Contains(s.cfg.CPUs, cpu)
}

func (s *Sampler) emaFor(cpu int) *[3]*util.EMA {
	e, ok := s.ema[cpu]
	if !ok {
		e = &[3]*util.EMA{util.NewEMA(s.cfg.Alpha), util.NewEMA(s.cfg.Alpha), util.NewEMA(s.cfg.Alpha)}
		s.ema[cpu] = e
	}
	return e
}
