package sysload

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_NeverAliased(t *testing.T) {
	b := NewBuffer(2)
	assert.NotSame(t, b.Active(), b.Pending())
	assert.True(t, b.Active().Empty())
	assert.True(t, b.Pending().Empty())
}

func TestBuffer_SwapExchangesHandles(t *testing.T) {
	b := NewBuffer(2)
	active, pending := b.Active(), b.Pending()

	require.NoError(t, pending.SetUser(1, 30))
	b.Swap()

	assert.Same(t, pending, b.Active(), "swap moves pending into active without copying")
	assert.Same(t, active, b.Pending())
	assert.Equal(t, 300, b.Active().User[1].Msec)

	b.Swap()
	assert.Same(t, active, b.Active())
}

func TestBuffer_ConcurrentReadersSeeWholeLoads(t *testing.T) {
	b := NewBuffer(1)
	b.Pending().MemPages = 7

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				a := b.Active()
				assert.Contains(t, []int{0, 7}, a.MemPages)
			}
		}()
	}
	for i := 0; i < 100; i++ {
		b.Swap()
	}
	wg.Wait()
}
