//go:build linux

// Package inventory collects the immutable machine facts the daemon sizes
// every load against.
package inventory

import (
	"fmt"
	"log/slog"

	"github.com/ja7ad/loadgen/pkg/system/cgroup"
	"github.com/ja7ad/loadgen/pkg/system/proc"
	"github.com/ja7ad/loadgen/pkg/types"
)

// Inventory is read once at startup and never changes afterwards.
type Inventory struct {
	CPUs        int
	PageSize    int
	PhysPages   int
	BlockDevice string
	Cgroup      cgroup.Version
}

// Option adjusts discovery.
type Option func(*options)

type options struct {
	device string
	log    *slog.Logger
}

// WithDevice pins the block device instead of discovering it.
func WithDevice(path string) Option {
	return func(o *options) { o.device = path }
}

// WithLogger sets the logger used for non-fatal discovery problems.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// Discover reads the host facts. A missing block device is not fatal: the
// inventory is returned with an empty BlockDevice and IO loads will fail at
// RUN time instead.
func Discover(opts ...Option) (Inventory, error) {
	o := options{log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	inv := Inventory{
		CPUs:     proc.OnlineCPUs(),
		PageSize: proc.PageSize(),
	}

	pages, err := proc.PhysPages()
	if err != nil {
		return Inventory{}, fmt.Errorf("inventory: %w", err)
	}
	inv.PhysPages = pages

	inv.BlockDevice = o.device
	if inv.BlockDevice == "" {
		dev, err := proc.BlockDevice()
		if err != nil {
			o.log.Warn("no block device found, io load disabled", "err", err)
		}
		inv.BlockDevice = dev
	}

	ver, detail, err := cgroup.Detect()
	if err != nil {
		o.log.Warn("cgroup detection failed", "err", err)
	}
	inv.Cgroup = ver
	o.log.Debug("cgroup mode", "detail", detail)

	return inv, nil
}

// Memory is the physical memory size.
func (i Inventory) Memory() types.Bytes {
	return types.PagesToBytes(i.PhysPages, i.PageSize)
}

func (i Inventory) String() string {
	dev := i.BlockDevice
	if dev == "" {
		dev = "none"
	}
	return fmt.Sprintf("cpus=%d page=%d phys_pages=%d (%s) dev=%s %s",
		i.CPUs, i.PageSize, i.PhysPages, i.Memory(), dev, i.Cgroup)
}

// LogValue implements slog.LogValuer.
func (i Inventory) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("cpus", i.CPUs),
		slog.Int("page_size", i.PageSize),
		slog.Int("phys_pages", i.PhysPages),
		slog.String("memory", i.Memory().Humanized()),
		slog.String("device", i.BlockDevice),
		slog.String("cgroup", i.Cgroup.String()),
	)
}
