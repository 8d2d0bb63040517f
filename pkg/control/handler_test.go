package control

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ja7ad/loadgen/pkg/engine"
	"github.com/ja7ad/loadgen/pkg/protocol"
	"github.com/ja7ad/loadgen/pkg/sysload"
)

type fakeEngine struct {
	started  []sysload.SystemLoad
	running  bool
	stops    int
	startErr error
}

func (e *fakeEngine) Start(load *sysload.SystemLoad, _ engine.Memory) error {
	if e.startErr != nil {
		return e.startErr
	}
	e.started = append(e.started, clone(load))
	e.running = true
	return nil
}

func (e *fakeEngine) Stop() {
	e.stops++
	e.running = false
}

type fakeMemory struct {
	pages    int
	allocErr error
}

func (m *fakeMemory) Allocate(pages int) error {
	if m.allocErr != nil {
		return m.allocErr
	}
	if m.pages == 0 {
		m.pages = pages
	}
	return nil
}
func (m *fakeMemory) Deallocate() error             { m.pages = 0; return nil }
func (m *fakeMemory) Partition(int) ([]byte, error) { return nil, nil }
func (m *fakeMemory) PageSize() int                 { return 4096 }

type fakeHogger struct {
	calls []string
	fail  string
}

func (h *fakeHogger) call(name string) error {
	h.calls = append(h.calls, name)
	if name == h.fail {
		return errors.New("ack error -16")
	}
	return nil
}
func (h *fakeHogger) Init() error { return h.call("init") }
func (h *fakeHogger) CPULoad(cpu, msec int) error {
	return h.call(fmt.Sprintf("cpu_load %d %d", cpu, msec))
}
func (h *fakeHogger) Run() error   { return h.call("run") }
func (h *fakeHogger) Stop() error  { return h.call("stop") }
func (h *fakeHogger) Close() error { return nil }

func clone(s *sysload.SystemLoad) sysload.SystemLoad {
	c := *s
	c.User = append([]sysload.CPULoad(nil), s.User...)
	c.Kernel = append([]sysload.CPULoad(nil), s.Kernel...)
	return c
}

type fixture struct {
	h   *Handler
	eng *fakeEngine
	mem *fakeMemory
	hog *fakeHogger
}

func newFixture(t *testing.T, cpus int, external bool) *fixture {
	t.Helper()
	f := &fixture{eng: &fakeEngine{}, mem: &fakeMemory{}, hog: &fakeHogger{}}
	cfg := Config{CPUs: cpus, PhysPages: 1000000, Engine: f.eng, Memory: f.mem}
	if external {
		cfg.Hogger = f.hog
	}
	f.h = NewHandler(cfg)
	return f
}

func (f *fixture) ok(t *testing.T, m protocol.Message) {
	t.Helper()
	resp := f.h.Handle(m)
	require.Equal(t, protocol.OK{}, resp, "%s", m.Type())
}

func (f *fixture) fail(t *testing.T, m protocol.Message) string {
	t.Helper()
	resp := f.h.Handle(m)
	e, ok := resp.(protocol.Error)
	require.True(t, ok, "%s: want ERR, got %v", m.Type(), resp)
	return e.Msg
}

func TestHandler_RunAppliesPending(t *testing.T) {
	f := newFixture(t, 2, false)

	f.ok(t, protocol.Init{})
	f.ok(t, protocol.CPUUser{Percent: 50, CPU: 0})
	f.ok(t, protocol.CPUKernel{Percent: 40, CPU: 0})
	f.ok(t, protocol.Mem{Percent: 25})
	f.ok(t, protocol.IO{Percent: 10})
	f.ok(t, protocol.Run{})

	require.Len(t, f.eng.started, 1)
	got := f.eng.started[0]
	user, kernel := got.Work(0)
	assert.Equal(t, 500, user)
	assert.Equal(t, 400, kernel)
	assert.Equal(t, 250000, got.MemPages)
	assert.Equal(t, 100, got.IOMsec)
	assert.Equal(t, 250000, f.mem.pages)

	assert.True(t, f.h.Buffer().Pending().Empty(), "pending is reset by RUN")
	assert.False(t, f.h.Buffer().Active().Empty())
	assert.Empty(t, f.hog.calls, "no hogger configured")
}

func TestHandler_LoadExceeds(t *testing.T) {
	f := newFixture(t, 1, false)

	f.ok(t, protocol.CPUUser{Percent: 60, CPU: 0})
	msg := f.fail(t, protocol.CPUKernel{Percent: 50, CPU: 0})
	assert.Contains(t, msg, "user(600) + kernel(500) load exceeds 100%")

	user, kernel := f.h.Buffer().Pending().Work(0)
	assert.Equal(t, 600, user)
	assert.Zero(t, kernel, "rejected request leaves the model unchanged")
}

func TestHandler_Validation(t *testing.T) {
	f := newFixture(t, 2, false)

	assert.Contains(t, f.fail(t, protocol.CPUUser{Percent: 100, CPU: 0}), "invalid percent")
	assert.Contains(t, f.fail(t, protocol.CPUUser{Percent: -1, CPU: 0}), "invalid percent")
	assert.Contains(t, f.fail(t, protocol.CPUKernel{Percent: 10, CPU: 2}), "invalid CPU")
	assert.Contains(t, f.fail(t, protocol.Mem{Percent: 150}), "invalid percent")
	assert.Contains(t, f.fail(t, protocol.IO{Percent: 100}), "invalid percent")
	assert.True(t, f.h.Buffer().Pending().Empty())
}

func TestHandler_RunEmptyPending(t *testing.T) {
	f := newFixture(t, 1, false)

	assert.Equal(t, ErrNoLoad.Error(), f.fail(t, protocol.Run{}))
	assert.Empty(t, f.eng.started)
}

func TestHandler_RunWhileActive(t *testing.T) {
	f := newFixture(t, 2, false)

	f.ok(t, protocol.CPUUser{Percent: 30, CPU: 1})
	f.ok(t, protocol.Run{})
	before := clone(f.h.Buffer().Active())

	f.ok(t, protocol.CPUUser{Percent: 70, CPU: 0})
	assert.Equal(t, ErrAlreadyLoaded.Error(), f.fail(t, protocol.Run{}))
	assert.Equal(t, ErrAlreadyLoaded.Error(), f.fail(t, protocol.Run{}))

	assert.Equal(t, before, clone(f.h.Buffer().Active()))
	assert.Len(t, f.eng.started, 1)
}

func TestHandler_StopIsIdempotent(t *testing.T) {
	f := newFixture(t, 2, false)

	f.ok(t, protocol.Stop{})
	assert.True(t, f.h.Buffer().Active().Empty())
	assert.Zero(t, f.mem.pages)

	f.ok(t, protocol.CPUUser{Percent: 30, CPU: 1})
	f.ok(t, protocol.Mem{Percent: 1})
	f.ok(t, protocol.Run{})
	assert.NotZero(t, f.mem.pages)

	f.ok(t, protocol.Stop{})
	f.ok(t, protocol.Stop{})
	assert.True(t, f.h.Buffer().Active().Empty())
	assert.Zero(t, f.mem.pages)
	assert.False(t, f.eng.running)

	// a new cycle works after STOP
	f.ok(t, protocol.CPUUser{Percent: 10, CPU: 0})
	f.ok(t, protocol.Run{})
	assert.Len(t, f.eng.started, 2)
}

func TestHandler_StopThenInitMatchesStartup(t *testing.T) {
	f := newFixture(t, 3, false)

	f.ok(t, protocol.CPUUser{Percent: 30, CPU: 1})
	f.ok(t, protocol.Run{})
	f.ok(t, protocol.CPUKernel{Percent: 20, CPU: 2})
	f.ok(t, protocol.IO{Percent: 5})
	f.ok(t, protocol.Stop{})
	f.ok(t, protocol.Init{})

	fresh := sysload.New(3)
	assert.Equal(t, clone(fresh), clone(f.h.Buffer().Pending()))
	assert.Equal(t, clone(fresh), clone(f.h.Buffer().Active()))
}

func TestHandler_ExternalKernel(t *testing.T) {
	f := newFixture(t, 4, true)

	f.ok(t, protocol.CPUUser{Percent: 20, CPU: 1})
	f.ok(t, protocol.CPUKernel{Percent: 35, CPU: 1})
	f.ok(t, protocol.CPUKernel{Percent: 10, CPU: 3})
	assert.Empty(t, f.hog.calls, "kernel loads are sent on RUN")

	f.ok(t, protocol.Run{})
	assert.Equal(t, []string{"init", "cpu_load 1 350", "cpu_load 3 100", "run"}, f.hog.calls)

	f.ok(t, protocol.Stop{})
	assert.Equal(t, "stop", f.hog.calls[len(f.hog.calls)-1])

	f.ok(t, protocol.Stop{})
	assert.Len(t, f.hog.calls, 5, "hogger is stopped once")
}

func TestHandler_ExternalKernelFailureAbortsRun(t *testing.T) {
	f := newFixture(t, 2, true)
	f.hog.fail = "run"

	f.ok(t, protocol.CPUKernel{Percent: 35, CPU: 0})
	msg := f.fail(t, protocol.Run{})
	assert.Contains(t, msg, "kernel run")

	assert.True(t, f.h.Buffer().Active().Empty())
	assert.False(t, f.h.Buffer().Pending().Empty(), "pending survives a failed RUN")
	assert.Empty(t, f.eng.started)
	assert.Equal(t, []string{"init", "cpu_load 0 350", "run", "stop"}, f.hog.calls)

	// a clean STOP afterwards does not stop the hogger again
	f.ok(t, protocol.Stop{})
	assert.Len(t, f.hog.calls, 4)
}

func TestHandler_ExternalKernelCPULoadFailureStopsSession(t *testing.T) {
	f := newFixture(t, 2, true)
	f.hog.fail = "cpu_load 1 200"

	f.ok(t, protocol.CPUKernel{Percent: 10, CPU: 0})
	f.ok(t, protocol.CPUKernel{Percent: 20, CPU: 1})
	assert.Contains(t, f.fail(t, protocol.Run{}), "kernel cpu 1")
	assert.Equal(t, []string{"init", "cpu_load 0 100", "cpu_load 1 200", "stop"}, f.hog.calls)
	assert.True(t, f.h.Buffer().Active().Empty())
}

func TestHandler_ExternalKernelStopFailure(t *testing.T) {
	f := newFixture(t, 1, true)
	f.hog.fail = "stop"

	f.ok(t, protocol.CPUKernel{Percent: 35, CPU: 0})
	f.ok(t, protocol.Run{})

	assert.Contains(t, f.fail(t, protocol.Stop{}), "kernel stop")
	assert.True(t, f.h.Buffer().Active().Empty(), "local teardown still happens")
	assert.Equal(t, 1, f.eng.stops)
}

func TestHandler_RunRollback(t *testing.T) {
	f := newFixture(t, 1, false)
	f.eng.startErr = errors.New("boom")

	f.ok(t, protocol.CPUUser{Percent: 35, CPU: 0})
	f.ok(t, protocol.Mem{Percent: 1})
	assert.Equal(t, "boom", f.fail(t, protocol.Run{}))

	assert.True(t, f.h.Buffer().Active().Empty())
	assert.Zero(t, f.mem.pages)
	pending := f.h.Buffer().Pending()
	require.False(t, pending.Empty(), "configuration survives a failed RUN")
	assert.Equal(t, sysload.CPULoad{CPU: 0, Msec: 350}, pending.User[0])
	assert.Equal(t, 10000, pending.MemPages)

	// re-issued RUN applies the same configuration
	f.eng.startErr = nil
	f.ok(t, protocol.Run{})
	require.Len(t, f.eng.started, 1)
	assert.Equal(t, 350, f.eng.started[0].User[0].Msec)
	assert.Equal(t, 10000, f.mem.pages)
	assert.False(t, f.h.Buffer().Active().Empty())
	assert.True(t, f.h.Buffer().Pending().Empty())
	f.ok(t, protocol.Stop{})

	f.mem.allocErr = errors.New("arena: mmap: cannot allocate memory")
	f.ok(t, protocol.Mem{Percent: 90})
	assert.Contains(t, f.fail(t, protocol.Run{}), "mmap")
	assert.True(t, f.h.Buffer().Active().Empty())
	assert.Equal(t, 900000, f.h.Buffer().Pending().MemPages)

	f.mem.allocErr = nil
	f.ok(t, protocol.Run{})
	assert.Equal(t, 900000, f.mem.pages)
}

func TestHandler_PacketTypes(t *testing.T) {
	f := newFixture(t, 1, false)

	f.ok(t, protocol.OK{})
	assert.Equal(t, "invalid packet type: ERR", f.fail(t, protocol.Error{Msg: "x"}))
	assert.Equal(t, "unknown packet type: 42", f.fail(t, protocol.Unknown{Code: 42}))
}

func TestHandler_Shutdown(t *testing.T) {
	f := newFixture(t, 1, true)

	f.ok(t, protocol.CPUUser{Percent: 10, CPU: 0})
	f.ok(t, protocol.CPUKernel{Percent: 10, CPU: 0})
	f.ok(t, protocol.Run{})

	require.NoError(t, f.h.Shutdown())
	assert.True(t, f.h.Buffer().Active().Empty())
	assert.False(t, f.eng.running)
	assert.Equal(t, "stop", f.hog.calls[len(f.hog.calls)-1])
}
