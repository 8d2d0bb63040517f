package types

import "fmt"

// Bytes is a uint64 wrapper representing a size in bytes.
type Bytes uint64

// PagesToBytes converts a page count into a size for the given page size.
// Negative inputs yield zero.
func PagesToBytes(pages, pageSize int) Bytes {
	if pages <= 0 || pageSize <= 0 {
		return 0
	}
	return Bytes(uint64(pages) * uint64(pageSize))
}

// Pages returns how many whole pages of pageSize fit in b.
func (b Bytes) Pages(pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return int(uint64(b) / uint64(pageSize))
}

// Humanized returns a human-readable string with automatic unit (B, KB, MB, GB, TB).
func (b Bytes) Humanized() string {
	v := float64(b)
	switch {
	case b >= 1<<40:
		return fmt.Sprintf("%.2f TB", v/(1<<40))
	case b >= 1<<30:
		return fmt.Sprintf("%.2f GB", v/(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.2f MB", v/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.2f KB", v/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// String implements fmt.Stringer so sizes log in humanized form.
func (b Bytes) String() string { return b.Humanized() }

// MB returns the number of megabytes (1024 base).
func (b Bytes) MB() float64 { return float64(b) / (1024 * 1024) }

// GB returns the number of gigabytes (1024 base).
func (b Bytes) GB() float64 { return float64(b) / (1024 * 1024 * 1024) }
