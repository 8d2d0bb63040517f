package types

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBytes_Humanized_Boundaries(t *testing.T) {
	cases := []struct {
		in   Bytes
		want string
	}{
		{Bytes(0), "0 B"},
		{Bytes(1023), "1023 B"},
		{Bytes(1024), "1.00 KB"},
		{Bytes(1024 * 1024), "1.00 MB"},
		{Bytes(1024*1024*1024 - 1), "1024.00 MB"},
		{Bytes(1024 * 1024 * 1024), "1.00 GB"},
		{Bytes(1 << 40), "1.00 TB"},
	}
	for i, tc := range cases {
		t.Run(fmt.Sprintf("case_%d_%d", i, uint64(tc.in)), func(t *testing.T) {
			require.Equal(t, tc.want, tc.in.Humanized())
			require.Equal(t, tc.want, tc.in.String())
		})
	}
}

func TestPagesToBytes(t *testing.T) {
	// 25% of 1,000,000 pages of 4 KiB
	b := PagesToBytes(250000, 4096)
	assert.Equal(t, Bytes(1024000000), b)
	assert.Equal(t, 250000, b.Pages(4096))

	assert.Equal(t, Bytes(0), PagesToBytes(-1, 4096))
	assert.Equal(t, Bytes(0), PagesToBytes(10, 0))
	assert.Equal(t, 0, Bytes(4096).Pages(0))
}

func TestBytes_UnitAccessors(t *testing.T) {
	assert.InDelta(t, 1.0, Bytes(1<<20).MB(), 1e-12)
	assert.InDelta(t, 1.0, Bytes(1<<30).GB(), 1e-12)

	b := Bytes(uint64(math.Round(2.75 * float64(1<<30))))
	assert.Equal(t, "2.75 GB", b.Humanized())
	assert.InDelta(t, 2.75, b.GB(), 1e-9)
}
