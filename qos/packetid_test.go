package qos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocatorNeverEmitsZero(t *testing.T) {
	a := NewAllocator()
	none := func(uint16) bool { return false }
	for i := 0; i < 5; i++ {
		id, err := a.Next(none)
		require.NoError(t, err)
		assert.NotZero(t, id)
	}
}

func TestAllocatorSkipsInUseIDs(t *testing.T) {
	a := NewAllocator()
	inUse := map[uint16]bool{1: true, 2: true}
	id, err := a.Next(func(id uint16) bool { return inUse[id] })
	require.NoError(t, err)
	assert.Equal(t, uint16(3), id)
}

func TestAllocatorWrapsPast65535(t *testing.T) {
	a := &Allocator{next: 65535}
	none := func(uint16) bool { return false }

	id, err := a.Next(none)
	require.NoError(t, err)
	assert.Equal(t, uint16(65535), id)

	id, err = a.Next(none)
	require.NoError(t, err)
	assert.Equal(t, uint16(1), id)
}

func TestAllocatorExhaustion(t *testing.T) {
	a := NewAllocator()
	all := func(uint16) bool { return true }
	_, err := a.Next(all)
	assert.ErrorIs(t, err, ErrPacketIDsExhausted)
}

func TestAllocatorFindsOnlyFreeSlotAfterFullCycle(t *testing.T) {
	a := NewAllocator()
	freeID := uint16(42)
	inUse := func(id uint16) bool { return id != freeID }

	id, err := a.Next(inUse)
	require.NoError(t, err)
	assert.Equal(t, freeID, id)
}
