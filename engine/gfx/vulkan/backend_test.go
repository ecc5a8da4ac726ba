package vkbackend

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"
	"time"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hubastard/vkdemo/engine/core"
	"github.com/hubastard/vkdemo/engine/gfx/frame"
)

func TestPresentStatus(t *testing.T) {
	for _, tc := range []struct {
		ret  vk.Result
		want frame.Status
	}{
		{vk.Success, frame.StatusOK},
		{vk.Suboptimal, frame.StatusSuboptimal},
		{vk.ErrorOutOfDate, frame.StatusStale},
	} {
		st, err := presentStatus(tc.ret, "present")
		require.NoError(t, err)
		assert.Equal(t, tc.want, st)
	}

	_, err := presentStatus(vk.ErrorDeviceLost, "present")
	assert.ErrorIs(t, err, frame.ErrDeviceLost)

	_, err = presentStatus(vk.ErrorSurfaceLost, "present")
	require.Error(t, err)
	assert.False(t, errors.Is(err, frame.ErrDeviceLost))
}

func TestCheck(t *testing.T) {
	assert.NoError(t, check(vk.Success, "x"))
	err := check(vk.ErrorOutOfDeviceMemory, "allocate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "allocate")
}

func TestDeviceScorePrefersDiscrete(t *testing.T) {
	assert.Greater(t, deviceScore(vk.PhysicalDeviceTypeDiscreteGpu), deviceScore(vk.PhysicalDeviceTypeIntegratedGpu))
	assert.Greater(t, deviceScore(vk.PhysicalDeviceTypeIntegratedGpu), deviceScore(vk.PhysicalDeviceTypeVirtualGpu))
	assert.Greater(t, deviceScore(vk.PhysicalDeviceTypeVirtualGpu), deviceScore(vk.PhysicalDeviceTypeCpu))
	assert.Greater(t, deviceScore(vk.PhysicalDeviceTypeCpu), deviceScore(vk.PhysicalDeviceTypeOther))
}

func TestMaxSamples(t *testing.T) {
	all := vk.SampleCountFlags(vk.SampleCount1Bit | vk.SampleCount2Bit | vk.SampleCount4Bit | vk.SampleCount8Bit)
	assert.Equal(t, 8, maxSamples(all, all, 8))
	assert.Equal(t, 4, maxSamples(all, all, 4))
	assert.Equal(t, 4, maxSamples(all, all, 6), "not a power of two rounds down")
	assert.Equal(t, 1, maxSamples(all, all, 1))
	assert.Equal(t, 8, maxSamples(all, all, 0), "zero means device max")
	assert.Equal(t, 8, maxSamples(all, all, -1))

	depth := vk.SampleCountFlags(vk.SampleCount1Bit | vk.SampleCount2Bit)
	assert.Equal(t, 2, maxSamples(all, depth, 8), "limited by depth support")
}

func TestFindMemoryType(t *testing.T) {
	types := []vk.MemoryPropertyFlags{
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit),
		vk.MemoryPropertyFlags(hostVisible),
	}
	i, ok := findMemoryType(types, 0b111, vk.MemoryPropertyFlags(hostVisible))
	require.True(t, ok)
	assert.Equal(t, uint32(2), i)

	i, ok = findMemoryType(types, 0b111, vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit))
	require.True(t, ok)
	assert.Equal(t, uint32(1), i, "first match wins")

	_, ok = findMemoryType(types, 0b001, vk.MemoryPropertyFlags(hostVisible))
	assert.False(t, ok, "type bits exclude the coherent type")
}

func TestHasStencil(t *testing.T) {
	assert.False(t, hasStencil(vk.FormatD32Sfloat))
	assert.True(t, hasStencil(vk.FormatD32SfloatS8Uint))
	assert.True(t, hasStencil(vk.FormatD24UnormS8Uint))
}

func TestVertexLayout(t *testing.T) {
	b := vertexBinding()
	assert.Equal(t, uint32(44), b.Stride)

	attrs := vertexAttributes()
	require.Len(t, attrs, 4)
	offsets := make([]uint32, len(attrs))
	for i, a := range attrs {
		assert.Equal(t, uint32(i), a.Location)
		offsets[i] = a.Offset
	}
	assert.Equal(t, []uint32{0, 12, 24, 32}, offsets)
	assert.Equal(t, vk.FormatR32g32Sfloat, attrs[2].Format)
}

func TestUniformLayoutMatchesShader(t *testing.T) {
	// three mat4x4<f32> and one vec4<f32>
	assert.Equal(t, 3*64+16, uniformSize)
	u := core.Uniforms{LightPos: [4]float32{1, 2, 3, 4}}
	b := asBytes(&u)
	require.Len(t, b, uniformSize)
	assert.Equal(t, uintptr(192), unsafe.Offsetof(u.LightPos))
}

func TestSliceBytes(t *testing.T) {
	assert.Len(t, sliceBytes([]uint32{1, 2, 3}), 12)
	assert.Nil(t, sliceBytes([]uint32(nil)))
}

func TestBarrierFor(t *testing.T) {
	_, dst, _, _, err := barrierFor(vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal)
	require.NoError(t, err)
	assert.Equal(t, vk.AccessFlags(vk.AccessTransferWriteBit), dst)

	_, _, _, _, err = barrierFor(vk.ImageLayoutPresentSrc, vk.ImageLayoutTransferDstOptimal)
	assert.Error(t, err)
}

func TestExternalDependencyOrdersSharedTargetWrites(t *testing.T) {
	dep := externalDependency()
	writes := vk.AccessFlags(vk.AccessColorAttachmentWriteBit | vk.AccessDepthStencilAttachmentWriteBit)
	assert.Equal(t, uint32(vk.SubpassExternal), dep.SrcSubpass)
	assert.Equal(t, writes, dep.SrcAccessMask&writes, "previous frame's writes are made available")
	assert.Equal(t, writes, dep.DstAccessMask&writes)
	for _, stage := range []vk.PipelineStageFlagBits{
		vk.PipelineStageColorAttachmentOutputBit,
		vk.PipelineStageEarlyFragmentTestsBit,
		vk.PipelineStageLateFragmentTestsBit,
	} {
		assert.NotZero(t, dep.SrcStageMask&vk.PipelineStageFlags(stage), "source stage %d", stage)
	}
}

func TestCompositeAlpha(t *testing.T) {
	assert.Equal(t, vk.CompositeAlphaOpaqueBit,
		compositeAlpha(vk.CompositeAlphaFlags(vk.CompositeAlphaOpaqueBit|vk.CompositeAlphaInheritBit)))
	assert.Equal(t, vk.CompositeAlphaInheritBit, compositeAlpha(vk.CompositeAlphaFlags(vk.CompositeAlphaInheritBit)))
}

func TestTimeoutNS(t *testing.T) {
	assert.Equal(t, uint64(vk.MaxUint64), timeoutNS(frame.Infinite))
	assert.Equal(t, uint64(vk.MaxUint64), timeoutNS(-1))
	assert.Equal(t, uint64(time.Millisecond), timeoutNS(time.Millisecond))
}

func TestCStrings(t *testing.T) {
	assert.Equal(t, "VK_KHR_surface\x00", cstr("VK_KHR_surface"))
	assert.Equal(t, []string{"a\x00", "b\x00"}, cstrs([]string{"a", "b"}))
}

func TestReleaserRunsInReverse(t *testing.T) {
	var r releaser
	var order []int
	for i := 0; i < 3; i++ {
		r.push(func() { order = append(order, i) })
	}
	assert.Equal(t, 3, r.len())
	r.release()
	assert.Equal(t, []int{2, 1, 0}, order)
	assert.Zero(t, r.len())
	r.release()
	assert.Len(t, order, 3)
}

func TestShaderModuleInfoSizeInBytes(t *testing.T) {
	info := shaderModuleInfo([]uint32{0x07230203, 0, 0})
	assert.Equal(t, uint64(12), info.CodeSize)
	assert.Len(t, info.PCode, 3)
}

func TestDebugReportLogsBySeverity(t *testing.T) {
	var out bytes.Buffer
	in := &instance{log: slog.New(slog.NewTextHandler(&out, nil))}
	var cb vk.DebugReportCallbackFunc = in.report

	ret := cb(vk.DebugReportFlags(vk.DebugReportErrorBit), 0, 7, 42, 1, "Validation", "bad layout", nil)
	assert.Equal(t, vk.Bool32(vk.False), ret, "the triggering call is not aborted")
	assert.Contains(t, out.String(), "level=ERROR")
	assert.Contains(t, out.String(), "bad layout")

	out.Reset()
	cb(vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit), 0, 0, 0, 2, "Validation", "slow path", nil)
	assert.Contains(t, out.String(), "level=WARN")
}
