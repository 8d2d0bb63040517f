//go:build linux

package engine

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// reader reads a block device round and round into a page-aligned buffer,
// bypassing the page cache when the device allows it.
type reader struct {
	fd       int
	buf      []byte
	buffered bool
}

func openReader(path string, size int) (*reader, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_DIRECT|unix.O_CLOEXEC, 0)
	buffered := false
	if errors.Is(err, unix.EINVAL) {
		fd, err = unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
		buffered = true
	}
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}

	page := os.Getpagesize()
	size = (size + page - 1) / page * page
	// mmap hands out page-aligned memory, which O_DIRECT needs.
	buf, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANONYMOUS|unix.MAP_PRIVATE)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("read buffer: %w", err)
	}
	return &reader{fd: fd, buf: buf, buffered: buffered}, nil
}

// step reads one buffer and rewinds on a short read, end of device or error.
func (r *reader) step() {
	n, err := unix.Read(r.fd, r.buf)
	if err != nil || n < len(r.buf) {
		_, _ = unix.Seek(r.fd, 0, 0)
	}
}

func (r *reader) Close() error {
	err := unix.Munmap(r.buf)
	if err2 := unix.Close(r.fd); err == nil {
		err = err2
	}
	return err
}
