//go:build linux

package measure

import (
	"fmt"
	"time"

	"github.com/ja7ad/loadgen/pkg/system/proc"
	"github.com/ja7ad/loadgen/pkg/system/util"
	"github.com/ja7ad/loadgen/pkg/types"
)

// ProcSampler reports what a single process consumed between calls.
type ProcSampler struct {
	pid    int
	clkTck int

	utPrev   uint64
	stPrev   uint64
	readPrev uint64
}

// NewProcSampler primes a sampler for pid.
func NewProcSampler(pid int) (*ProcSampler, error) {
	if !proc.Exists(pid) {
		return nil, fmt.Errorf("%w: pid %d", ErrExited, pid)
	}
	p := &ProcSampler{pid: pid, clkTck: proc.ClockTicks()}

	ut, st, _, _, err := proc.ReadProcStat(pid)
	if err != nil {
		return nil, err
	}
	p.utPrev, p.stPrev = ut, st
	// read_bytes needs ptrace access to the process; without it only CPU
	// and RSS are reported.
	if rb, _, err := proc.ReadProcIO(pid); err == nil {
		p.readPrev = rb
	}
	return p, nil
}

// PID is the sampled process.
func (p *ProcSampler) PID() int { return p.pid }

// Sample returns the usage over dt, the time since the previous call.
func (p *ProcSampler) Sample(dt time.Duration) (ProcUsage, error) {
	if dt <= 0 {
		return ProcUsage{}, ErrBadInterval
	}
	if !proc.Exists(p.pid) {
		return ProcUsage{}, fmt.Errorf("%w: pid %d", ErrExited, p.pid)
	}

	ut, st, _, _, err := proc.ReadProcStat(p.pid)
	if err != nil {
		return ProcUsage{}, err
	}
	ticks := float64(p.clkTck) * dt.Seconds()
	u := ProcUsage{
		PID:    p.pid,
		User:   100 * util.SafeDiv(float64(util.DeltaU64(ut, p.utPrev)), ticks),
		System: 100 * util.SafeDiv(float64(util.DeltaU64(st, p.stPrev)), ticks),
	}
	p.utPrev, p.stPrev = ut, st

	if rb, _, err := proc.ReadProcIO(p.pid); err == nil {
		u.ReadBytes = types.Bytes(util.DeltaU64(rb, p.readPrev))
		p.readPrev = rb
	}
	if rss, err := proc.ReadProcRSS(p.pid); err == nil {
		u.RSS = types.Bytes(rss)
	}
	return u, nil
}
