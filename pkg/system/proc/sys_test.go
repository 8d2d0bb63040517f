//go:build linux

package proc

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageSize(t *testing.T) {
	t.Setenv("PAGE_SIZE", "")
	assert.Equal(t, os.Getpagesize(), PageSize())

	t.Setenv("PAGE_SIZE", "16384")
	assert.Equal(t, 16384, PageSize())
}

func TestOnlineCPUs(t *testing.T) {
	t.Setenv("NPROCESSORS_ONLN", "")
	assert.Greater(t, OnlineCPUs(), 0)

	t.Setenv("NPROCESSORS_ONLN", "12")
	assert.Equal(t, 12, OnlineCPUs())
}

func TestOnlineCPUs_FromSysfs(t *testing.T) {
	t.Setenv("NPROCESSORS_ONLN", "")
	path := filepath.Join(t.TempDir(), "online")
	require.NoError(t, os.WriteFile(path, []byte("0-2,5\n"), 0o644))

	old := cpuOnlinePath
	cpuOnlinePath = path
	t.Cleanup(func() { cpuOnlinePath = old })

	// a gapped set reports its count, not the highest index plus one
	assert.Equal(t, 4, OnlineCPUs())
}

func TestPhysPages(t *testing.T) {
	t.Setenv("PHYS_PAGES", "")
	n, err := PhysPages()
	require.NoError(t, err)
	assert.Greater(t, n, 0)

	t.Setenv("PHYS_PAGES", "1000000")
	n, err = PhysPages()
	require.NoError(t, err)
	assert.Equal(t, 1000000, n)
}

func TestParseCPUList(t *testing.T) {
	cases := []struct {
		in   string
		want []int
	}{
		{"", nil},
		{"0", []int{0}},
		{"0-3", []int{0, 1, 2, 3}},
		{"0-1,4,6-7", []int{0, 1, 4, 6, 7}},
		{" 2 , 3 ", []int{2, 3}},
	}
	for _, tc := range cases {
		got, err := ParseCPUList(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	for _, bad := range []string{"a", "3-1", "-1", "1-", "1,,2"} {
		_, err := ParseCPUList(bad)
		assert.ErrorIs(t, err, ErrCPUList, bad)
	}
}

func TestModuleListed(t *testing.T) {
	mods := "kloadgend 16384 0 - Live 0x0000000000000000\nxfs 1990656 1 - Live 0x0\n"

	ok, err := moduleListed(strings.NewReader(mods), "kloadgend")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = moduleListed(strings.NewReader(mods), "kcpuhog")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFirstDisk(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"loop0", "ram0", "dm-0", "nvme0n1"} {
		require.NoError(t, os.Mkdir(filepath.Join(dir, n), 0o755))
	}
	name, err := firstDisk(dir)
	require.NoError(t, err)
	assert.Equal(t, "nvme0n1", name)

	empty := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(empty, "loop1"), 0o755))
	_, err = firstDisk(empty)
	assert.ErrorIs(t, err, ErrNoBlockDevice)
}

func TestBlockDevice_Host(t *testing.T) {
	dev, err := BlockDevice()
	if err != nil {
		t.Skipf("skipping: no block device on this host: %v", err)
	}
	assert.True(t, strings.HasPrefix(dev, "/dev/"), dev)
}
