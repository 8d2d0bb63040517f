package proc

import "errors"

var (
	// ErrNoStat indicates that /proc/<pid>/stat was empty or malformed.
	ErrNoStat = errors.New("proc: malformed or empty stat")

	// ErrShortStat indicates that /proc/<pid>/stat had fewer fields than expected.
	ErrShortStat = errors.New("proc: short stat")

	// ErrNoRSS indicates that resident set size could not be determined
	// (neither smaps_rollup nor statm succeeded).
	ErrNoRSS = errors.New("proc: no rss")

	// ErrNoCPU indicates that /proc/stat had no per-CPU lines.
	ErrNoCPU = errors.New("proc: no cpu line")

	// ErrCPUList indicates a malformed CPU list such as "3-1" or "a".
	ErrCPUList = errors.New("proc: malformed cpu list")

	// ErrNoBlockDevice indicates that no physical block device was found.
	ErrNoBlockDevice = errors.New("proc: no block device")
)
