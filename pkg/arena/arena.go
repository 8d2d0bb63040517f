//go:build linux

// Package arena owns the anonymous memory region that realizes a memory load
// and splits it between the CPU workers.
package arena

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/ja7ad/loadgen/pkg/types"
)

// ErrPartition indicates a partition index outside [0,parts).
var ErrPartition = errors.New("arena: invalid partition")

// Arena is a single private anonymous mapping of a whole number of pages.
// Allocate and Deallocate are idempotent. Callers must make sure nothing
// still touches a partition before calling Deallocate.
type Arena struct {
	mu       sync.Mutex
	pageSize int
	parts    int
	populate bool

	mem   []byte
	pages int
}

// Option configures an Arena.
type Option func(*Arena)

// WithPopulate prefaults the mapping so the footprint is resident right
// after Allocate instead of growing as workers first touch it.
func WithPopulate(on bool) Option {
	return func(a *Arena) { a.populate = on }
}

// New returns an unallocated arena split into parts partitions.
func New(pageSize, parts int, opts ...Option) *Arena {
	if parts < 1 {
		parts = 1
	}
	a := &Arena{pageSize: pageSize, parts: parts}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Allocate maps pages pages. It does nothing when pages is zero or the arena
// is already allocated.
func (a *Arena) Allocate(pages int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.mem != nil || pages <= 0 {
		return nil
	}

	flags := unix.MAP_ANONYMOUS | unix.MAP_PRIVATE
	if a.populate {
		flags |= unix.MAP_POPULATE
	}
	mem, err := unix.Mmap(-1, 0, pages*a.pageSize, unix.PROT_READ|unix.PROT_WRITE, flags)
	if err != nil {
		return fmt.Errorf("arena: mmap %d pages: %w", pages, err)
	}
	a.mem, a.pages = mem, pages
	return nil
}

// Deallocate unmaps the arena. It does nothing when nothing is mapped.
func (a *Arena) Deallocate() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.mem == nil {
		return nil
	}
	if err := unix.Munmap(a.mem); err != nil {
		return fmt.Errorf("arena: munmap: %w", err)
	}
	a.mem, a.pages = nil, 0
	return nil
}

// Allocated reports whether memory is mapped.
func (a *Arena) Allocated() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mem != nil
}

// Pages is the mapped size in pages.
func (a *Arena) Pages() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pages
}

// Size is the mapped size in bytes.
func (a *Arena) Size() types.Bytes {
	a.mu.Lock()
	defer a.mu.Unlock()
	return types.PagesToBytes(a.pages, a.pageSize)
}

// PageSize is the page size the arena was built with.
func (a *Arena) PageSize() int { return a.pageSize }

// Partition returns the sub-range owned by worker i. It returns nil when the
// arena is not allocated. Partitions are contiguous and never overlap.
func (a *Arena) Partition(i int) ([]byte, error) {
	if i < 0 || i >= a.parts {
		return nil, fmt.Errorf("%w: %d", ErrPartition, i)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.mem == nil {
		return nil, nil
	}
	begin, end := Bounds(a.pages, a.parts, i)
	return a.mem[begin*a.pageSize : end*a.pageSize : end*a.pageSize], nil
}

// Bounds returns the page range [begin,end) of partition i when pages are
// split into parts. The page count is rounded up to a multiple of parts and
// the shortfall is taken from the front, so the first partition may be
// shorter than the rest.
func Bounds(pages, parts, i int) (begin, end int) {
	rounded := pages
	if r := pages % parts; r != 0 {
		rounded += parts - r
	}
	per := rounded / parts
	offset := pages - rounded

	begin = offset + i*per
	if begin < 0 {
		begin = 0
	}
	end = offset + (i+1)*per
	if end < 0 {
		end = 0
	}
	return begin, end
}
