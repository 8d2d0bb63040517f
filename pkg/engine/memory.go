package engine

// Memory is the region CPU workers touch while busy. Partition returns the
// part owned by the worker of a CPU, or nil when no memory load is set.
type Memory interface {
	Partition(cpu int) ([]byte, error)
	PageSize() int
}
