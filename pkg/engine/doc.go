// Package engine turns a load configuration into duty-cycle workers.
//
// Every CPU that carries a load gets one worker goroutine locked to an OS
// thread pinned to that CPU. Each period the worker spins for its work share
// and then sleeps for the rest. The end of the busy phase is signalled by a
// one-shot timer owned by the worker, which clears the worker's running flag;
// the spin loop notices on its next iteration. Stopping cancels each worker
// separately and unblocks it whether it is spinning or sleeping.
//
// While busy, a CPU worker walks its partition of the memory arena so a
// memory load rides along with the CPU load. One extra unpinned worker reads
// the block device when an I/O load is configured.
package engine
