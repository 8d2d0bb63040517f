// Package proc reads the host facts and counters the load generator needs
// from /proc and /sys. It has no dependencies beyond golang.org/x/sys.
//
// # Host facts
//
// These are read once by the inventory at daemon startup:
//
//   - PageSize:   page frame size in bytes (env PAGE_SIZE overrides).
//   - OnlineCPUs: number of online CPUs from /sys/devices/system/cpu/online
//     (env NPROCESSORS_ONLN overrides).
//   - PhysPages:  physical memory in pages from sysinfo(2)
//     (env PHYS_PAGES overrides).
//   - BlockDevice: the disk backing "/" resolved through /sys/dev/block,
//     falling back to the first non-virtual entry of /sys/block.
//   - ModuleLoaded: whether a kernel module is listed in /proc/modules.
//
// The env overrides exist for tests and for running the daemon against a
// pretend machine size; they are not meant for production.
//
// # Counters
//
// The measurement tool samples these in a loop and takes deltas:
//
//   - ReadCPUTimes:  per-CPU jiffies from /proc/stat (user, nice, system,
//     idle, iowait, irq, softirq, steal).
//   - ReadProcStat:  utime/stime and fault counters of one PID.
//   - ReadProcIO:    read_bytes/write_bytes of one PID.
//   - ReadProcRSS:   resident set size of one PID.
//
// All counters are monotonic; callers handle wrap with util.DeltaU64.
package proc
