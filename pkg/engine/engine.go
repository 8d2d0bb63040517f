//go:build linux

package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/ja7ad/loadgen/pkg/sysload"
)

const (
	// DefaultPeriod is the duty-cycle period.
	DefaultPeriod = time.Second

	// DefaultReadBufBytes is the I/O worker read size.
	DefaultReadBufBytes = 64 << 10
)

// Config tunes the engine. Zero values select the defaults.
type Config struct {
	// Period is the length of one busy+sleep cycle. Load units stay in
	// milliseconds per second and are scaled to it.
	Period time.Duration

	// Stagger spreads the first busy phase of worker i of n by Period*i/n.
	Stagger bool

	// Device is the block device read by the I/O worker.
	Device string

	// ReadBufBytes is the size of each I/O read; rounded up to a page.
	ReadBufBytes int

	// InProcessKernel makes the CPU workers realize the kernel share
	// themselves, as a system-call busy phase after the user phase.
	// When false the kernel share belongs to an external hogging service.
	InProcessKernel bool
}

func (c Config) withDefaults() Config {
	if c.Period <= 0 {
		c.Period = DefaultPeriod
	}
	if c.ReadBufBytes <= 0 {
		c.ReadBufBytes = DefaultReadBufBytes
	}
	return c
}

// Engine starts and stops the workers of one applied load.
type Engine struct {
	cfg Config
	log *slog.Logger

	mu      sync.Mutex
	workers []*worker
	wg      *conc.WaitGroup
}

// New returns an idle engine. A nil logger means slog.Default().
func New(cfg Config, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{cfg: cfg.withDefaults(), log: log.With("component", "engine")}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// Start spawns the workers for load. The caller must not modify load until
// Stop returns; workers copy what they need before Start returns anyway.
// mem may be nil.
func (e *Engine) Start(load *sysload.SystemLoad, mem Memory) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.workers) > 0 {
		return ErrRunning
	}
	if load.IOMsec > 0 && e.cfg.Device == "" {
		return ErrNoDevice
	}

	workers, err := e.plan(load, mem)
	if err != nil {
		return err
	}

	wg := conc.NewWaitGroup()
	for _, w := range workers {
		wg.Go(w.loop)
	}
	e.workers, e.wg = workers, wg

	e.log.Info("workers started", "count", len(workers), "period", e.cfg.Period)
	return nil
}

// plan builds one worker per loaded CPU plus the I/O worker.
func (e *Engine) plan(load *sysload.SystemLoad, mem Memory) ([]*worker, error) {
	var workers []*worker

	for cpu := 0; cpu < load.CPUs(); cpu++ {
		user, kernel := load.Work(cpu)
		hasUser := load.User[cpu].IsSet()
		hasKernel := e.cfg.InProcessKernel && load.Kernel[cpu].IsSet()
		if !hasUser && !hasKernel {
			continue
		}
		if !e.cfg.InProcessKernel {
			kernel = 0
		}

		w := e.newWorker(KindCPU, cpu, user, kernel)
		if mem != nil {
			part, err := mem.Partition(cpu)
			if err != nil {
				return nil, fmt.Errorf("engine: cpu %d: %w", cpu, err)
			}
			w.mem, w.pageSize = part, mem.PageSize()
		}
		workers = append(workers, w)
	}

	if load.IOMsec > 0 {
		w := e.newWorker(KindIO, -1, load.IOMsec, 0)
		w.device, w.readBuf = e.cfg.Device, e.cfg.ReadBufBytes
		workers = append(workers, w)
	}

	if e.cfg.Stagger {
		n := time.Duration(len(workers))
		for i, w := range workers {
			w.delay = e.cfg.Period * time.Duration(i) / n
		}
	}
	return workers, nil
}

func (e *Engine) newWorker(kind Kind, cpu, user, kernel int) *worker {
	ctx, cancel := context.WithCancel(context.Background())
	w := &worker{
		kind:       kind,
		cpu:        cpu,
		workMsec:   user,
		kernelMsec: kernel,
		sleepMsec:  sysload.MsecPerSec - user - kernel,
		period:     e.cfg.Period,
		ctx:        ctx,
		cancel:     cancel,
	}
	w.log = e.log.With("worker", w.name())
	return w
}

// Stop cancels every worker one by one and waits until all of them have
// exited. After Stop returns no worker touches the memory passed to Start.
// Stopping an idle engine does nothing.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.workers) == 0 {
		return
	}
	for _, w := range e.workers {
		w.cancel()
	}
	if r := e.wg.WaitAndRecover(); r != nil {
		e.log.Error("worker panicked", "err", r.AsError())
	}

	e.log.Info("workers stopped", "count", len(e.workers))
	e.workers, e.wg = nil, nil
}

// Running reports whether workers are alive.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.workers) > 0
}

// Status describes one worker.
type Status struct {
	Kind   Kind
	CPU    int
	Work   int
	Kernel int
	Sleep  int
	State  State
}

// Workers reports the workers of the current run, CPU workers first in CPU
// order, then the I/O worker.
func (e *Engine) Workers() []Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Status, 0, len(e.workers))
	for _, w := range e.workers {
		out = append(out, Status{
			Kind:   w.kind,
			CPU:    w.cpu,
			Work:   w.workMsec,
			Kernel: w.kernelMsec,
			Sleep:  w.sleepMsec,
			State:  State(w.state.Load()),
		})
	}
	return out
}
