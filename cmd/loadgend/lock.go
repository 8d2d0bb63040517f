//go:build linux

package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"golang.org/x/sys/unix"
)

var errLocked = errors.New("another loadgend instance is running")

// pidLock is an advisory lock that keeps a second daemon from starting.
type pidLock struct {
	f *os.File
}

func acquireLock(path string) (*pidLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("lock: %w", err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%w (lock %s)", errLocked, path)
		}
		return nil, fmt.Errorf("lock: %w", err)
	}

	if err := f.Truncate(0); err == nil {
		_, _ = f.WriteString(strconv.Itoa(os.Getpid()) + "\n")
	}
	return &pidLock{f: f}, nil
}

// Release removes the lock file and drops the lock.
func (l *pidLock) Release() {
	_ = os.Remove(l.f.Name())
	_ = unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	_ = l.f.Close()
}
