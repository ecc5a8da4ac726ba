package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncControllerInit(t *testing.T) {
	g := newFakeGPU()
	c := NewSyncController(g)
	require.NoError(t, c.Init(2))

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, 2, g.live["fence"])
	assert.Equal(t, 4, g.live["semaphore"])
	for i := 0; i < 2; i++ {
		s := c.Slot(i)
		require.NotNil(t, s)
		assert.True(t, s.Fence.(*fakeFence).signaled, "fences start signaled")
		assert.NotNil(t, s.Commands)
	}
	assert.Error(t, c.Init(2), "second init")

	c.Teardown()
	assert.Equal(t, 0, g.live["fence"])
	assert.Equal(t, 0, g.live["semaphore"])
	assert.Equal(t, 0, c.Len())
}

func TestSyncControllerInitFailureReleasesEverything(t *testing.T) {
	g := newFakeGPU()
	g.failFence = 2
	c := NewSyncController(g)

	err := c.Init(2)
	require.ErrorIs(t, err, ErrResourceCreation)
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 0, g.live["fence"])
	assert.Equal(t, 0, g.live["semaphore"])
}

func TestSyncControllerRejectsZeroSlots(t *testing.T) {
	err := NewSyncController(newFakeGPU()).Init(0)
	assert.ErrorIs(t, err, ErrResourceCreation)
}

func TestSyncControllerResetNeedsWait(t *testing.T) {
	c := NewSyncController(newFakeGPU())
	require.NoError(t, c.Init(2))

	require.ErrorIs(t, c.ResetSlot(0), ErrSlotNotArmed)
	assert.True(t, c.Slot(0).Fence.(*fakeFence).signaled, "failed reset must leave the fence alone")

	require.NoError(t, c.WaitForSlot(0))
	require.NoError(t, c.ResetSlot(0))
	assert.False(t, c.Slot(0).Fence.(*fakeFence).signaled)

	// a second reset without a new wait is refused
	assert.ErrorIs(t, c.ResetSlot(0), ErrSlotNotArmed)
}

func TestSyncControllerAdvance(t *testing.T) {
	c := NewSyncController(newFakeGPU())
	require.NoError(t, c.Init(3))
	assert.Equal(t, 1, c.Advance(0))
	assert.Equal(t, 2, c.Advance(1))
	assert.Equal(t, 0, c.Advance(2))
}

func TestSyncControllerSlotBounds(t *testing.T) {
	c := NewSyncController(newFakeGPU())
	require.NoError(t, c.Init(2))
	assert.Nil(t, c.Slot(2))
	assert.Error(t, c.WaitForSlot(-1))
	assert.Error(t, c.ResetSlot(5))
}
