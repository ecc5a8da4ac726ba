package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testChain(n int) ImageChain {
	chain := make(ImageChain, n)
	for i := range chain {
		chain[i] = ChainImage{Image: i, View: i}
	}
	return chain
}

func TestTargetsRebuildMultisampled(t *testing.T) {
	g := newFakeGPU()
	tg := NewTargets(g)
	cfg := SurfaceConfiguration{Format: FormatB8G8R8A8SRGB, Extent: Extent{800, 600}, ImageCount: 3}

	require.NoError(t, tg.Rebuild(cfg, testChain(3), 4))
	assert.Equal(t, 3, tg.Len())
	assert.Equal(t, Extent{800, 600}, tg.Extent())
	assert.Equal(t, 4, tg.Samples())
	assert.Equal(t, 1, g.live["color"])
	assert.Equal(t, 1, g.live["depth"])

	for i := 0; i < 3; i++ {
		fb := tg.Framebuffer(i).(*fakeFramebuffer)
		assert.Equal(t, cfg.Extent, fb.ext)
		require.Len(t, fb.views, 3)
		color := fb.views[0].(*fakeAttachment)
		depth := fb.views[1].(*fakeAttachment)
		assert.Equal(t, "color", color.kind)
		assert.Equal(t, 4, color.samples)
		assert.Equal(t, "depth", depth.kind)
		assert.Equal(t, cfg.Extent, depth.ext)
		assert.Equal(t, i, fb.views[2], "resolve target is the chain view")
	}
	assert.Nil(t, tg.Framebuffer(3))
}

func TestTargetsRebuildSingleSample(t *testing.T) {
	g := newFakeGPU()
	tg := NewTargets(g)
	cfg := SurfaceConfiguration{Extent: Extent{320, 200}, ImageCount: 2}

	require.NoError(t, tg.Rebuild(cfg, testChain(2), 1))
	assert.Equal(t, 0, g.live["color"])
	fb := tg.Framebuffer(1).(*fakeFramebuffer)
	require.Len(t, fb.views, 2)
	assert.Equal(t, 1, fb.views[0])
}

func TestTargetsRebuildReplacesPrevious(t *testing.T) {
	g := newFakeGPU()
	tg := NewTargets(g)

	require.NoError(t, tg.Rebuild(SurfaceConfiguration{Extent: Extent{800, 600}}, testChain(3), 2))
	require.NoError(t, tg.Rebuild(SurfaceConfiguration{Extent: Extent{1024, 768}}, testChain(2), 2))

	assert.Equal(t, 2, g.live["framebuffer"])
	assert.Equal(t, 1, g.live["color"])
	assert.Equal(t, 1, g.live["depth"])
	assert.Equal(t, Extent{1024, 768}, tg.Extent())
}

func TestTargetsRebuildIsAllOrNothing(t *testing.T) {
	g := newFakeGPU()
	g.failFB = 2
	tg := NewTargets(g)

	err := tg.Rebuild(SurfaceConfiguration{Extent: Extent{800, 600}}, testChain(3), 4)
	require.ErrorIs(t, err, ErrResourceCreation)
	assert.Equal(t, 0, tg.Len())
	assert.Equal(t, 0, g.live["framebuffer"])
	assert.Equal(t, 0, g.live["color"])
	assert.Equal(t, 0, g.live["depth"])
	assert.Equal(t, Extent{}, tg.Extent())

	g = newFakeGPU()
	g.failDepth = true
	tg = NewTargets(g)
	err = tg.Rebuild(SurfaceConfiguration{Extent: Extent{800, 600}}, testChain(3), 4)
	require.ErrorIs(t, err, ErrResourceCreation)
	assert.Equal(t, 0, g.live["color"])
}

func TestTargetsRejectZeroExtent(t *testing.T) {
	g := newFakeGPU()
	tg := NewTargets(g)
	assert.Error(t, tg.Rebuild(SurfaceConfiguration{Extent: Extent{0, 600}}, testChain(2), 1))
	assert.Equal(t, 0, g.framebuffers)
}

func TestTargetsTeardownIdempotent(t *testing.T) {
	g := newFakeGPU()
	tg := NewTargets(g)
	require.NoError(t, tg.Rebuild(SurfaceConfiguration{Extent: Extent{8, 8}}, testChain(2), 2))
	tg.Teardown()
	tg.Teardown()
	assert.Equal(t, 0, g.live["framebuffer"])
	assert.Equal(t, 0, g.live["depth"])
}
