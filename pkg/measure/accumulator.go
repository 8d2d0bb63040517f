package measure

import (
	"slices"

	"github.com/ja7ad/loadgen/pkg/types"
)

// Accumulator keeps running averages over applied samples.
type Accumulator struct {
	cpus map[int]*cpuSum

	procN     int
	sumUser   float64
	sumSystem float64
	sumRead   uint64
	sumRSS    float64
	pid       int
}

type cpuSum struct {
	n                  int
	user, system, idle float64
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{cpus: make(map[int]*cpuSum)}
}

// AddCPU adds one per-CPU sample.
func (a *Accumulator) AddCPU(us []CPUUsage) {
	for _, u := range us {
		s, ok := a.cpus[u.CPU]
		if !ok {
			s = &cpuSum{}
			a.cpus[u.CPU] = s
		}
		s.n++
		s.user += u.User
		s.system += u.System
		s.idle += u.Idle
	}
}

// AddProc adds one process sample.
func (a *Accumulator) AddProc(u ProcUsage) {
	a.pid = u.PID
	a.procN++
	a.sumUser += u.User
	a.sumSystem += u.System
	a.sumRead += uint64(u.ReadBytes)
	a.sumRSS += float64(u.RSS)
}

// CPUAverages returns the mean usage of every CPU seen, in CPU order.
func (a *Accumulator) CPUAverages() []CPUUsage {
	out := make([]CPUUsage, 0, len(a.cpus))
	for cpu, s := range a.cpus {
		n := float64(s.n)
		out = append(out, CPUUsage{CPU: cpu, User: s.user / n, System: s.system / n, Idle: s.idle / n})
	}
	slices.SortFunc(out, func(x, y CPUUsage) int { return x.CPU - y.CPU })
	return out
}

// ProcAverage returns the mean process usage. ReadBytes is the total read
// over all samples rather than a mean.
func (a *Accumulator) ProcAverage() ProcUsage {
	if a.procN == 0 {
		return ProcUsage{}
	}
	n := float64(a.procN)
	return ProcUsage{
		PID:       a.pid,
		User:      a.sumUser / n,
		System:    a.sumSystem / n,
		ReadBytes: types.Bytes(a.sumRead),
		RSS:       types.Bytes(a.sumRSS / n),
	}
}

// Samples is the number of process samples applied.
func (a *Accumulator) Samples() int { return a.procN }
