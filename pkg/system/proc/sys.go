//go:build linux

package proc

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

var (
	cpuOnlinePath = "/sys/devices/system/cpu/online"
	sysBlockDir   = "/sys/block"
	sysDevBlock   = "/sys/dev/block"
	modulesPath   = "/proc/modules"
)

// PageSize returns the system memory page size in bytes.
// The env override PAGE_SIZE is checked first to ease testing.
func PageSize() int {
	if v := envInt("PAGE_SIZE"); v > 0 {
		return v
	}
	return os.Getpagesize()
}

// OnlineCPUs returns the number of online CPUs, the equivalent of
// sysconf(_SC_NPROCESSORS_ONLN). NPROCESSORS_ONLN overrides it. Callers treat
// the count N as the index range [0,N), which assumes no gaps in the online set.
func OnlineCPUs() int {
	if v := envInt("NPROCESSORS_ONLN"); v > 0 {
		return v
	}
	if b, err := os.ReadFile(cpuOnlinePath); err == nil {
		if cpus, err := ParseCPUList(strings.TrimSpace(string(b))); err == nil && len(cpus) > 0 {
			return len(cpus)
		}
	}
	return runtime.NumCPU()
}

// PhysPages returns the amount of physical memory in pages, the equivalent
// of sysconf(_SC_PHYS_PAGES). PHYS_PAGES overrides it.
func PhysPages() (int, error) {
	if v := envInt("PHYS_PAGES"); v > 0 {
		return v, nil
	}
	var si unix.Sysinfo_t
	if err := unix.Sysinfo(&si); err != nil {
		return 0, fmt.Errorf("sysinfo: %w", err)
	}
	total := uint64(si.Totalram) * uint64(si.Unit)
	return int(total / uint64(PageSize())), nil
}

// ParseCPUList parses the kernel cpulist format ("0-3,6,8-9") into
// ascending CPU indexes. An empty list yields nil.
func ParseCPUList(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var out []int
	for _, part := range strings.Split(s, ",") {
		lo, hi, isRange := strings.Cut(strings.TrimSpace(part), "-")
		first, err := strconv.Atoi(lo)
		if err != nil || first < 0 {
			return nil, fmt.Errorf("%w: %q", ErrCPUList, s)
		}
		last := first
		if isRange {
			if last, err = strconv.Atoi(hi); err != nil || last < first {
				return nil, fmt.Errorf("%w: %q", ErrCPUList, s)
			}
		}
		for c := first; c <= last; c++ {
			out = append(out, c)
		}
	}
	return out, nil
}

// ModuleLoaded reports whether a kernel module with the given name is listed
// in /proc/modules.
func ModuleLoaded(name string) (bool, error) {
	f, err := os.Open(modulesPath)
	if err != nil {
		return false, err
	}
	defer f.Close()
	return moduleListed(f, name)
}

func moduleListed(r io.Reader, name string) (bool, error) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fs := strings.Fields(sc.Text())
		if len(fs) > 0 && fs[0] == name {
			return true, nil
		}
	}
	return false, sc.Err()
}

// BlockDevice returns the /dev path of a representative block device: the
// disk holding the root file system when it can be resolved, otherwise the
// first physical disk in /sys/block.
func BlockDevice() (string, error) {
	var st unix.Stat_t
	if err := unix.Stat("/", &st); err == nil {
		if name, ok := diskFor(unix.Major(st.Dev), unix.Minor(st.Dev)); ok {
			return "/dev/" + name, nil
		}
	}
	name, err := firstDisk(sysBlockDir)
	if err != nil {
		return "", err
	}
	return "/dev/" + name, nil
}

// diskFor maps a device number to its whole-disk name, walking up from a
// partition to its parent.
func diskFor(major, minor uint32) (string, bool) {
	target, err := filepath.EvalSymlinks(filepath.Join(sysDevBlock, fmt.Sprintf("%d:%d", major, minor)))
	if err != nil {
		return "", false
	}
	if _, err := os.Stat(filepath.Join(target, "partition")); err == nil {
		target = filepath.Dir(target)
	}
	name := filepath.Base(target)
	if virtualDisk(name) {
		return "", false
	}
	return name, true
}

func firstDisk(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoBlockDevice, err)
	}
	for _, e := range entries {
		if !virtualDisk(e.Name()) {
			return e.Name(), nil
		}
	}
	return "", ErrNoBlockDevice
}

func virtualDisk(name string) bool {
	for _, p := range []string{"loop", "ram", "zram", "nbd", "dm-", "md", "sr", "fd"} {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

func envInt(key string) int {
	v, _ := strconv.Atoi(os.Getenv(key))
	return v
}
