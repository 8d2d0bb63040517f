//go:build linux

package inventory

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscover_Overrides(t *testing.T) {
	t.Setenv("NPROCESSORS_ONLN", "4")
	t.Setenv("PAGE_SIZE", "4096")
	t.Setenv("PHYS_PAGES", "1000000")

	inv, err := Discover(WithDevice("/dev/fake0"))
	require.NoError(t, err)

	assert.Equal(t, 4, inv.CPUs)
	assert.Equal(t, 4096, inv.PageSize)
	assert.Equal(t, 1000000, inv.PhysPages)
	assert.Equal(t, "/dev/fake0", inv.BlockDevice)
	assert.Equal(t, uint64(4096000000), uint64(inv.Memory()))
	assert.Contains(t, inv.String(), "cpus=4")
	assert.Contains(t, inv.String(), "dev=/dev/fake0")
}

func TestDiscover_Host(t *testing.T) {
	inv, err := Discover(WithLogger(slog.Default()))
	require.NoError(t, err)

	assert.Greater(t, inv.CPUs, 0)
	assert.Greater(t, inv.PageSize, 0)
	assert.Greater(t, inv.PhysPages, 0)
	t.Logf("inventory: %s", inv)
}

func TestString_NoDevice(t *testing.T) {
	inv := Inventory{CPUs: 1, PageSize: 4096, PhysPages: 10}
	assert.Contains(t, inv.String(), "dev=none")
	assert.Equal(t, slog.KindGroup, inv.LogValue().Kind())
}
