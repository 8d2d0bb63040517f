//go:build linux

package proc

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ClockTicks returns the number of jiffies (clock ticks) per second.
// It first checks the env var CLK_TCK (useful for testing), otherwise
// falls back to 100 (common default).
//
// Note: On real systems, the authoritative way is `sysconf(_SC_CLK_TCK)`,
// but calling that requires cgo.
func ClockTicks() int {
	v, _ := strconv.Atoi(os.Getenv("CLK_TCK"))
	if v > 0 {
		return v
	}
	return 100
}

// Exists reports whether a given PID currently exists in /proc.
func Exists(pid int) bool {
	_, err := os.Stat(fmt.Sprintf("/proc/%d", pid))
	return err == nil
}

// CPUTimes holds the jiffy counters of one /proc/stat cpu line.
// CPU is -1 for the aggregate line.
type CPUTimes struct {
	CPU     int
	User    uint64
	Nice    uint64
	System  uint64
	Idle    uint64
	IOWait  uint64
	IRQ     uint64
	SoftIRQ uint64
	Steal   uint64
}

// Busy is every non-idle jiffy.
func (c CPUTimes) Busy() uint64 {
	return c.User + c.Nice + c.System + c.IRQ + c.SoftIRQ + c.Steal
}

// Total is busy plus idle and iowait.
func (c CPUTimes) Total() uint64 {
	return c.Busy() + c.Idle + c.IOWait
}

// ReadCPUTimes parses /proc/stat and returns one entry per "cpuN" line,
// ordered as the kernel lists them. The aggregate "cpu" line is skipped.
func ReadCPUTimes() ([]CPUTimes, error) {
	f, err := os.Open("/proc/stat")
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseCPUTimes(f)
}

// ParseCPUTimes is ReadCPUTimes over arbitrary /proc/stat content.
func ParseCPUTimes(r io.Reader) ([]CPUTimes, error) {
	var out []CPUTimes

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fs := strings.Fields(sc.Text())
		if len(fs) == 0 || !strings.HasPrefix(fs[0], "cpu") || fs[0] == "cpu" {
			continue
		}
		cpu, err := strconv.Atoi(strings.TrimPrefix(fs[0], "cpu"))
		if err != nil {
			continue
		}
		if len(fs) < 9 {
			return nil, ErrNoCPU
		}
		var v [8]uint64
		for i := range v {
			v[i], _ = strconv.ParseUint(fs[i+1], 10, 64)
		}
		out = append(out, CPUTimes{
			CPU: cpu, User: v[0], Nice: v[1], System: v[2], Idle: v[3],
			IOWait: v[4], IRQ: v[5], SoftIRQ: v[6], Steal: v[7],
		})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNoCPU
	}
	return out, nil
}

// ReadProcStat parses /proc/<pid>/stat and extracts four fields:
// - utime: user CPU jiffies
// - stime: system CPU jiffies
// - minflt: minor page faults (no I/O required)
// - majflt: major page faults (required I/O)
//
// comm (2nd field) is in parens and may contain spaces, so parsing starts
// after the last ") ".
func ReadProcStat(pid int) (utime, stime, minflt, majflt uint64, err error) {
	b, e := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if e != nil {
		return 0, 0, 0, 0, e
	}
	line := strings.TrimSpace(string(b))
	if line == "" {
		return 0, 0, 0, 0, ErrNoStat
	}

	i := strings.LastIndex(line, ") ")
	if i < 0 {
		return 0, 0, 0, 0, ErrNoStat
	}
	fields := strings.Fields(line[i+2:])
	if len(fields) < 13 {
		return 0, 0, 0, 0, ErrShortStat
	}

	get := func(idx int) uint64 {
		v, _ := strconv.ParseUint(fields[idx], 10, 64)
		return v
	}

	// Indexes relative to fields slice:
	// minflt (10th overall) => fields[7]
	// majflt (12th overall) => fields[9]
	// utime (14th overall)  => fields[11]
	// stime (15th overall)  => fields[12]
	return get(11), get(12), get(7), get(9), nil
}

// ReadProcIO reads /proc/<pid>/io and returns read_bytes and write_bytes.
// Reading another user's process needs CAP_SYS_PTRACE.
func ReadProcIO(pid int) (readBytes, writeBytes uint64, err error) {
	f, e := os.Open(fmt.Sprintf("/proc/%d/io", pid))
	if e != nil {
		return 0, 0, e
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		key, val, ok := strings.Cut(sc.Text(), ":")
		if !ok {
			continue
		}
		switch key {
		case "read_bytes":
			readBytes, _ = strconv.ParseUint(strings.TrimSpace(val), 10, 64)
		case "write_bytes":
			writeBytes, _ = strconv.ParseUint(strings.TrimSpace(val), 10, 64)
		}
	}
	return readBytes, writeBytes, sc.Err()
}

// ReadProcRSS returns the Resident Set Size (RSS) in bytes for a PID.
// It prefers smaps_rollup and falls back to statm's resident page count.
func ReadProcRSS(pid int) (uint64, error) {
	if f, err := os.Open(fmt.Sprintf("/proc/%d/smaps_rollup", pid)); err == nil {
		defer f.Close()
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			if strings.HasPrefix(sc.Text(), "Rss:") {
				fs := strings.Fields(sc.Text())
				if len(fs) >= 2 {
					kb, _ := strconv.ParseUint(fs[1], 10, 64)
					return kb * 1024, nil
				}
			}
		}
	}
	if b, err := os.ReadFile(fmt.Sprintf("/proc/%d/statm", pid)); err == nil {
		fs := strings.Fields(string(b))
		if len(fs) >= 2 {
			pages, _ := strconv.ParseUint(fs[1], 10, 64)
			return pages * uint64(PageSize()), nil
		}
	}
	return 0, ErrNoRSS
}
