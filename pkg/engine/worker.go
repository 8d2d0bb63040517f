//go:build linux

package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

// pollEvery is how many busy iterations pass between cancellation checks.
const pollEvery = 1024

// Kind is the resource a worker loads.
type Kind int

const (
	KindCPU Kind = iota
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindCPU:
		return "cpu"
	case KindIO:
		return "io"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// State is the phase a worker is in.
type State int32

const (
	StateIdle State = iota
	StateArmed
	StateBusy
	StateSleeping
	StateTerminating
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateBusy:
		return "busy"
	case StateSleeping:
		return "sleeping"
	case StateTerminating:
		return "terminating"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

type worker struct {
	kind Kind
	cpu  int

	workMsec   int
	kernelMsec int
	sleepMsec  int
	period     time.Duration
	delay      time.Duration

	// CPU workers
	mem      []byte
	pageSize int

	// I/O worker
	device  string
	readBuf int

	// running is set by the worker when a busy phase starts and cleared
	// only by that phase's timer.
	running atomic.Bool
	state   atomic.Int32

	ctx    context.Context
	cancel context.CancelFunc
	log    *slog.Logger
}

func (w *worker) name() string {
	if w.kind == KindIO {
		return "io"
	}
	return fmt.Sprintf("cpu%d", w.cpu)
}

func (w *worker) msec(n int) time.Duration {
	return w.period * time.Duration(n) / 1000
}

func (w *worker) setState(s State) { w.state.Store(int32(s)) }

func (w *worker) loop() {
	defer w.setState(StateTerminating)

	switch w.kind {
	case KindCPU:
		w.cpuLoop()
	case KindIO:
		w.ioLoop()
	}
}

func (w *worker) cpuLoop() {
	// The thread is never unlocked: it dies with the goroutine and takes
	// its affinity mask with it.
	runtime.LockOSThread()
	if err := pin(w.cpu); err != nil {
		w.log.Error("set affinity", "cpu", w.cpu, "err", err)
		return
	}

	var sys *syscaller
	if w.kernelMsec > 0 {
		var err error
		if sys, err = newSyscaller(); err != nil {
			w.log.Error("kernel load setup", "cpu", w.cpu, "err", err)
			return
		}
		defer sys.Close()
	}

	t := newToucher(w.mem, w.pageSize)

	w.setState(StateArmed)
	if !w.sleep(w.delay) {
		return
	}
	for {
		w.setState(StateBusy)
		if !w.spin(w.msec(w.workMsec), pollEvery, t.step) {
			return
		}
		if sys != nil && !w.spin(w.msec(w.kernelMsec), pollEvery, sys.step) {
			return
		}
		w.setState(StateSleeping)
		if !w.sleep(w.msec(w.sleepMsec)) {
			return
		}
	}
}

func (w *worker) ioLoop() {
	r, err := openReader(w.device, w.readBuf)
	if err != nil {
		w.log.Error("open device", "device", w.device, "err", err)
		return
	}
	defer r.Close()
	if r.buffered {
		w.log.Warn("O_DIRECT not supported, reading through page cache", "device", w.device)
	}

	w.setState(StateArmed)
	if !w.sleep(w.delay) {
		return
	}
	for {
		w.setState(StateBusy)
		// Each read may block on the device, check for cancellation after
		// every one of them.
		if !w.spin(w.msec(w.workMsec), 1, r.step) {
			return
		}
		w.setState(StateSleeping)
		if !w.sleep(w.msec(w.sleepMsec)) {
			return
		}
	}
}

// spin runs step until the phase timer fires. It returns false when the
// worker was cancelled.
func (w *worker) spin(d time.Duration, every int, step func()) bool {
	if d <= 0 {
		return w.ctx.Err() == nil
	}
	done := w.ctx.Done()

	w.running.Store(true)
	t := time.AfterFunc(d, func() { w.running.Store(false) })
	defer t.Stop()

	for i := 1; w.running.Load(); i++ {
		step()
		if i%every == 0 {
			select {
			case <-done:
				return false
			default:
			}
		}
	}
	return true
}

// sleep blocks for d. It returns false when the worker was cancelled.
func (w *worker) sleep(d time.Duration) bool {
	if d <= 0 {
		return w.ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-w.ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// pin binds the calling thread to cpu.
func pin(cpu int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	return unix.SchedSetaffinity(0, &set)
}
