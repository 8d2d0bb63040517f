//go:build linux

// Package cgroup reports which cgroup hierarchy the host runs. The daemon logs
// it at startup because per-CPU load inside a restricted cpuset or CPU quota
// will not reach the requested percentage.
package cgroup

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

type Version int

const (
	Unsupported Version = iota // non-Linux or no cgroup mounts
	V1                         // legacy multi-hierarchy cgroup v1
	V2                         // unified cgroup v2
	Hybrid                     // both v1 and v2 present
)

func (v Version) String() string {
	switch v {
	case V1:
		return "cgroup v1"
	case V2:
		return "cgroup v2"
	case Hybrid:
		return "cgroup hybrid"
	default:
		return "unsupported"
	}
}

// Mounts lists the mount points found for each hierarchy.
type Mounts struct {
	V1 []string
	V2 []string
}

// Version derives the host mode from the mounts.
func (m Mounts) Version() Version {
	switch {
	case len(m.V1) > 0 && len(m.V2) > 0:
		return Hybrid
	case len(m.V2) > 0:
		return V2
	case len(m.V1) > 0:
		return V1
	default:
		return Unsupported
	}
}

func (m Mounts) String() string {
	switch m.Version() {
	case Hybrid:
		return fmt.Sprintf("cgroup2 on %s; cgroup v1 on %s",
			strings.Join(m.V2, ","), strings.Join(m.V1, ","))
	case V2:
		return "cgroup2 on " + strings.Join(m.V2, ",")
	case V1:
		return "cgroup v1 on " + strings.Join(m.V1, ",")
	default:
		return "no cgroup mounts found"
	}
}

// Detect returns the detected cgroup version and a human-readable detail string.
func Detect() (Version, string, error) {
	f, err := os.Open("/proc/self/mountinfo")
	if err != nil {
		return Unsupported, "", fmt.Errorf("open mountinfo: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	m, err := ParseMountinfo(f)
	if err != nil {
		return Unsupported, "", err
	}
	return m.Version(), m.String(), nil
}

// ParseMountinfo collects cgroup mount points from mountinfo content.
//
// Each line has the shape "<fields> - <fstype> <source> <superopts>" and the
// mount point is the fifth field before the separator (man 5 proc).
func ParseMountinfo(r io.Reader) (Mounts, error) {
	const sep = " - "

	var (
		m  Mounts
		sc = bufio.NewScanner(r)
	)
	for sc.Scan() {
		line := sc.Text()
		i := strings.LastIndex(line, sep)
		if i < 0 {
			continue
		}
		fields := strings.Fields(line[i+len(sep):])
		if len(fields) < 1 {
			continue
		}
		pre := strings.Fields(line[:i])
		if len(pre) < 5 {
			continue
		}

		switch fields[0] {
		case "cgroup2":
			m.V2 = append(m.V2, pre[4])
		case "cgroup":
			m.V1 = append(m.V1, pre[4])
		}
	}
	if err := sc.Err(); err != nil {
		return Mounts{}, fmt.Errorf("scan mountinfo: %w", err)
	}
	return m, nil
}
