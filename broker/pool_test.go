package broker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolAllocReleaseRoundTrip(t *testing.T) {
	p := NewPool[int](4)
	h, err := p.Alloc()
	require.NoError(t, err)
	v, ok := p.Get(h)
	require.True(t, ok)
	*v = 42

	got, ok := p.Get(h)
	require.True(t, ok)
	assert.Equal(t, 42, *got)

	assert.True(t, p.Release(h))
	_, ok = p.Get(h)
	assert.False(t, ok)
}

func TestPoolExhaustion(t *testing.T) {
	p := NewPool[int](2)
	_, err := p.Alloc()
	require.NoError(t, err)
	_, err = p.Alloc()
	require.NoError(t, err)
	_, err = p.Alloc()
	assert.ErrorIs(t, err, ErrPoolExhausted)
}

func TestPoolReleaseFreesSlotForReuse(t *testing.T) {
	p := NewPool[int](1)
	h1, err := p.Alloc()
	require.NoError(t, err)
	require.True(t, p.Release(h1))

	h2, err := p.Alloc()
	require.NoError(t, err)
	assert.Equal(t, h1.index, h2.index)
	assert.NotEqual(t, h1.generation, h2.generation)
}

func TestPoolStaleHandleRejectedAfterReuse(t *testing.T) {
	p := NewPool[int](1)
	h1, err := p.Alloc()
	require.NoError(t, err)
	require.True(t, p.Release(h1))
	_, err = p.Alloc()
	require.NoError(t, err)

	_, ok := p.Get(h1)
	assert.False(t, ok)
	assert.False(t, p.Release(h1))
}

func TestPoolDoubleReleaseIsNoop(t *testing.T) {
	p := NewPool[int](1)
	h, err := p.Alloc()
	require.NoError(t, err)
	assert.True(t, p.Release(h))
	assert.False(t, p.Release(h))
}

func TestPoolForEachVisitsInsertionOrder(t *testing.T) {
	p := NewPool[int](3)
	h1, _ := p.Alloc()
	h2, _ := p.Alloc()
	h3, _ := p.Alloc()
	*mustGet(t, p, h1) = 1
	*mustGet(t, p, h2) = 2
	*mustGet(t, p, h3) = 3

	var seen []int
	p.ForEach(func(h Handle, v *int) bool {
		seen = append(seen, *v)
		return true
	})
	assert.Equal(t, []int{1, 2, 3}, seen)
}

func TestPoolForEachStopsEarly(t *testing.T) {
	p := NewPool[int](3)
	p.Alloc()
	p.Alloc()
	p.Alloc()

	count := 0
	p.ForEach(func(h Handle, v *int) bool {
		count++
		return count < 2
	})
	assert.Equal(t, 2, count)
}

func TestPoolForEachAllowsReleasingCurrentHandle(t *testing.T) {
	p := NewPool[int](3)
	h1, _ := p.Alloc()
	h2, _ := p.Alloc()
	h3, _ := p.Alloc()
	_ = h2
	_ = h3

	var seen []int32
	p.ForEach(func(h Handle, v *int) bool {
		seen = append(seen, h.index)
		if h == h1 {
			p.Release(h)
		}
		return true
	})
	assert.Len(t, seen, 3)
	assert.Equal(t, 2, p.Len())
}

func TestPoolLenAndCap(t *testing.T) {
	p := NewPool[int](5)
	assert.Equal(t, 5, p.Cap())
	assert.Equal(t, 0, p.Len())
	h, _ := p.Alloc()
	assert.Equal(t, 1, p.Len())
	p.Release(h)
	assert.Equal(t, 0, p.Len())
}

func TestZeroHandleIsInvalid(t *testing.T) {
	var h Handle
	assert.False(t, h.Valid())
}

func mustGet(t *testing.T, p *Pool[int], h Handle) *int {
	t.Helper()
	v, ok := p.Get(h)
	require.True(t, ok)
	return v
}
