package sysload

import "sync/atomic"

// Buffer holds the active and pending loads. The two never alias; Swap
// exchanges their roles without copying.
//
// Pending is owned by the request handler. Active changes only through Swap
// and Reset, and readers must go through Active() each time rather than keep
// the pointer across a swap.
type Buffer struct {
	loads  [2]*SystemLoad
	active atomic.Uint32
}

// NewBuffer returns a buffer whose two loads are empty.
func NewBuffer(cpus int) *Buffer {
	return &Buffer{loads: [2]*SystemLoad{New(cpus), New(cpus)}}
}

// Active is the load currently applied.
func (b *Buffer) Active() *SystemLoad { return b.loads[b.active.Load()] }

// Pending is the load being edited.
func (b *Buffer) Pending() *SystemLoad { return b.loads[b.active.Load()^1] }

// Swap makes pending active and active pending.
func (b *Buffer) Swap() {
	for {
		cur := b.active.Load()
		if b.active.CompareAndSwap(cur, cur^1) {
			return
		}
	}
}
