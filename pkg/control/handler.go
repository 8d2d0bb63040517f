// Package control applies control-protocol requests to the load model and
// serves them over the daemon's local socket.
package control

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/ja7ad/loadgen/pkg/engine"
	"github.com/ja7ad/loadgen/pkg/kernelhog"
	"github.com/ja7ad/loadgen/pkg/protocol"
	"github.com/ja7ad/loadgen/pkg/sysload"
)

// Engine runs the workers of the applied load.
type Engine interface {
	Start(load *sysload.SystemLoad, mem engine.Memory) error
	Stop()
}

// Memory is the arena that backs a memory load.
type Memory interface {
	engine.Memory
	Allocate(pages int) error
	Deallocate() error
}

// Config wires a Handler to the rest of the daemon.
type Config struct {
	CPUs      int
	PhysPages int
	Engine    Engine
	Memory    Memory

	// Hogger receives the kernel share of every CPU. When nil the engine
	// is expected to realize that share itself.
	Hogger kernelhog.Hogger

	Logger *slog.Logger
}

// Handler owns the double-buffered load and turns requests into responses.
// Requests are applied one at a time.
type Handler struct {
	mu sync.Mutex

	buf       *sysload.Buffer
	physPages int
	engine    Engine
	mem       Memory
	hog       kernelhog.Hogger
	external  bool

	// kernelRunning is set once the hogger accepted RUN.
	kernelRunning bool

	log *slog.Logger
}

// NewHandler returns a handler with empty active and pending loads.
func NewHandler(cfg Config) *Handler {
	h := &Handler{
		buf:       sysload.NewBuffer(cfg.CPUs),
		physPages: cfg.PhysPages,
		engine:    cfg.Engine,
		mem:       cfg.Memory,
		hog:       cfg.Hogger,
		external:  cfg.Hogger != nil,
		log:       cfg.Logger,
	}
	if h.hog == nil {
		h.hog = kernelhog.Nop{}
	}
	if h.log == nil {
		h.log = slog.Default()
	}
	h.log = h.log.With("component", "control")
	return h
}

// Buffer exposes the load buffer for inspection.
func (h *Handler) Buffer() *sysload.Buffer { return h.buf }

// Handle applies one request and returns OK or an Error carrying the reason.
func (h *Handler) Handle(m protocol.Message) protocol.Message {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.apply(m); err != nil {
		h.log.Warn("request rejected", "type", m.Type(), "err", err)
		return protocol.Error{Msg: err.Error()}
	}
	h.log.Debug("request applied", "type", m.Type())
	return protocol.OK{}
}

func (h *Handler) apply(m protocol.Message) error {
	pending := h.buf.Pending()

	switch m := m.(type) {
	case protocol.Init:
		pending.Reset()
		return nil
	case protocol.CPUUser:
		return pending.SetUser(int(m.CPU), m.Percent)
	case protocol.CPUKernel:
		return pending.SetKernel(int(m.CPU), m.Percent)
	case protocol.Mem:
		return pending.SetMem(m.Percent, h.physPages)
	case protocol.IO:
		return pending.SetIO(m.Percent)
	case protocol.Run:
		return h.run()
	case protocol.Stop:
		return h.stop()
	case protocol.OK:
		h.log.Info("got packet of type OK")
		return nil
	case protocol.Error:
		return fmt.Errorf("%w: %s", ErrInvalidType, m.Type())
	default:
		return fmt.Errorf("%w: %d", ErrUnknownType, int32(m.Type()))
	}
}

func (h *Handler) run() error {
	pending, active := h.buf.Pending(), h.buf.Active()
	if pending.Empty() {
		return ErrNoLoad
	}
	if !active.Empty() {
		return ErrAlreadyLoaded
	}

	if h.external && !pending.KernelEmpty() {
		if err := h.runKernel(pending); err != nil {
			return err
		}
	}

	h.buf.Swap()
	h.buf.Pending().Reset()
	active = h.buf.Active()

	if err := h.mem.Allocate(active.MemPages); err != nil {
		h.rollback()
		return err
	}
	if err := h.engine.Start(active, h.mem); err != nil {
		h.rollback()
		return err
	}

	h.log.Info("load applied",
		"mem_pages", active.MemPages, "io_msec", active.IOMsec, "kernel_external", h.kernelRunning)
	return nil
}

func (h *Handler) runKernel(load *sysload.SystemLoad) error {
	if err := h.hog.Init(); err != nil {
		return fmt.Errorf("kernel init: %w", err)
	}
	if err := h.configureKernel(load); err != nil {
		// best effort: drop the half-configured session
		if serr := h.hog.Stop(); serr != nil {
			h.log.Warn("kernel stop after failed setup", "err", serr)
		}
		return err
	}
	h.kernelRunning = true
	return nil
}

func (h *Handler) configureKernel(load *sysload.SystemLoad) error {
	for _, l := range load.Kernel {
		if !l.IsSet() {
			continue
		}
		if err := h.hog.CPULoad(l.CPU, l.Msec); err != nil {
			return fmt.Errorf("kernel cpu %d: %w", l.CPU, err)
		}
	}
	if err := h.hog.Run(); err != nil {
		return fmt.Errorf("kernel run: %w", err)
	}
	return nil
}

// rollback undoes a RUN that failed after the swap. The applied load goes
// back to pending untouched so the operator can re-issue RUN.
func (h *Handler) rollback() {
	if err := h.release(); err != nil {
		h.log.Error("rollback", "err", err)
	}
	h.buf.Swap()
}

func (h *Handler) stop() error {
	if err := h.teardown(); err != nil {
		return err
	}
	h.log.Info("load released")
	return nil
}

// teardown releases the applied load and empties active. Every step runs
// even when an earlier one fails; workers are joined before the arena goes
// away.
func (h *Handler) teardown() error {
	err := h.release()
	h.buf.Active().Reset()
	return err
}

// release stops the hogger and the workers and frees the arena, leaving the
// load buffers alone.
func (h *Handler) release() error {
	var hogErr error
	if h.kernelRunning {
		hogErr = h.hog.Stop()
		h.kernelRunning = false
	}

	h.engine.Stop()
	memErr := h.mem.Deallocate()

	if hogErr != nil {
		return fmt.Errorf("kernel stop: %w", hogErr)
	}
	return memErr
}

// Shutdown releases the applied load as STOP does.
func (h *Handler) Shutdown() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.teardown()
}
