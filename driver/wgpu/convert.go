package wgpu

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/rhi/driver"
)

// convertBufferUsage maps driver bind flags onto HAL buffer usage bits.
// CPU-access flags do not map to usage directly; host transfers go
// through the queue, which needs the copy bits.
func convertBufferUsage(bind driver.BindFlags, access driver.CPUAccessFlags) gputypes.BufferUsage {
	var u gputypes.BufferUsage
	if bind.Contains(driver.BindVertexBuffer) {
		u |= gputypes.BufferUsageVertex
	}
	if bind.Contains(driver.BindIndexBuffer) {
		u |= gputypes.BufferUsageIndex
	}
	if bind.Contains(driver.BindConstantBuffer) {
		u |= gputypes.BufferUsageUniform
	}
	if bind.Contains(driver.BindStorageBuffer) || bind.Contains(driver.BindSampled) || bind.Contains(driver.BindStorage) {
		u |= gputypes.BufferUsageStorage
	}
	if bind.Contains(driver.BindIndirectBuffer) {
		u |= gputypes.BufferUsageIndirect
	}
	if bind.Contains(driver.BindCopySrc) {
		u |= gputypes.BufferUsageCopySrc
	}
	if bind.Contains(driver.BindCopyDst) {
		u |= gputypes.BufferUsageCopyDst
	}
	// Queue-side writes and staged readback both run through copies.
	if access.Contains(driver.CPUAccessWrite) {
		u |= gputypes.BufferUsageCopyDst
	}
	if access.Contains(driver.CPUAccessRead) {
		u |= gputypes.BufferUsageCopySrc
	}
	return u
}

// convertTextureUsage maps driver bind flags onto HAL texture usage bits.
func convertTextureUsage(bind driver.BindFlags) gputypes.TextureUsage {
	var u gputypes.TextureUsage
	if bind.Contains(driver.BindSampled) {
		u |= gputypes.TextureUsageTextureBinding
	}
	if bind.Contains(driver.BindStorage) {
		u |= gputypes.TextureUsageStorageBinding
	}
	if bind.Contains(driver.BindColorAttachment) || bind.Contains(driver.BindDepthStencilAttachment) {
		u |= gputypes.TextureUsageRenderAttachment
	}
	if bind.Contains(driver.BindCopySrc) {
		u |= gputypes.TextureUsageCopySrc
	}
	if bind.Contains(driver.BindCopyDst) {
		u |= gputypes.TextureUsageCopyDst
	}
	return u
}

// convertTextureDimension maps a texture kind onto the HAL dimension.
// Array and cube variants share the base dimension; layering is carried
// by DepthOrArrayLayers.
func convertTextureDimension(kind driver.TextureKind) gputypes.TextureDimension {
	switch kind {
	case driver.Texture1D, driver.Texture1DArray:
		return gputypes.TextureDimension1D
	case driver.Texture3D:
		return gputypes.TextureDimension3D
	default:
		return gputypes.TextureDimension2D
	}
}

// convertAddressMode maps a sampler wrap mode.
func convertAddressMode(m driver.AddressMode) gputypes.AddressMode {
	switch m {
	case driver.AddressMirror:
		return gputypes.AddressModeMirrorRepeat
	case driver.AddressClamp:
		return gputypes.AddressModeClampToEdge
	default:
		return gputypes.AddressModeRepeat
	}
}

// convertFilterMode maps a sampler filter.
func convertFilterMode(m driver.FilterMode) gputypes.FilterMode {
	if m == driver.FilterLinear {
		return gputypes.FilterModeLinear
	}
	return gputypes.FilterModeNearest
}

// convertTopology maps a primitive topology.
func convertTopology(t driver.PrimitiveTopology) gputypes.PrimitiveTopology {
	switch t {
	case driver.TopologyTriangleStrip:
		return gputypes.PrimitiveTopologyTriangleStrip
	case driver.TopologyLineList:
		return gputypes.PrimitiveTopologyLineList
	case driver.TopologyPointList:
		return gputypes.PrimitiveTopologyPointList
	default:
		return gputypes.PrimitiveTopologyTriangleList
	}
}

// convertVertexFormat maps a vertex attribute format.
func convertVertexFormat(f driver.VertexFormat) gputypes.VertexFormat {
	switch f {
	case driver.VertexFormatFloat32:
		return gputypes.VertexFormatFloat32
	case driver.VertexFormatFloat32x2:
		return gputypes.VertexFormatFloat32x2
	case driver.VertexFormatFloat32x3:
		return gputypes.VertexFormatFloat32x3
	case driver.VertexFormatFloat32x4:
		return gputypes.VertexFormatFloat32x4
	case driver.VertexFormatUint32:
		return gputypes.VertexFormatUint32
	default:
		return gputypes.VertexFormatUnorm8x4
	}
}

// convertIndexFormat maps an index buffer format.
func convertIndexFormat(f driver.IndexFormat) gputypes.IndexFormat {
	if f == driver.IndexFormatUint32 {
		return gputypes.IndexFormatUint32
	}
	return gputypes.IndexFormatUint16
}

// convertLoadOp maps an attachment load op.
func convertLoadOp(op driver.AttachmentLoadOp) gputypes.LoadOp {
	switch op {
	case driver.LoadOpClear:
		return gputypes.LoadOpClear
	case driver.LoadOpLoad:
		return gputypes.LoadOpLoad
	default:
		return gputypes.LoadOpClear
	}
}

// convertStoreOp maps an attachment store op.
func convertStoreOp(op driver.AttachmentStoreOp) gputypes.StoreOp {
	if op == driver.StoreOpDontCare {
		return gputypes.StoreOpDiscard
	}
	return gputypes.StoreOpStore
}

// convertStageVisibility maps driver stage flags onto HAL shader stage
// visibility. The legacy geometry and tessellation stages have no WGSL
// equivalent and fold into the vertex stage bit.
func convertStageVisibility(stages driver.StageFlags) gputypes.ShaderStage {
	var v gputypes.ShaderStage
	if stages&(driver.StageVertex|driver.StageGeometry|driver.StageTessControl|driver.StageTessEvaluation) != 0 {
		v |= gputypes.ShaderStageVertex
	}
	if stages&driver.StageFragment != 0 {
		v |= gputypes.ShaderStageFragment
	}
	if stages&driver.StageCompute != 0 {
		v |= gputypes.ShaderStageCompute
	}
	if v == 0 {
		v = gputypes.ShaderStageVertex | gputypes.ShaderStageFragment | gputypes.ShaderStageCompute
	}
	return v
}

// formatTexelSize returns the byte size of one texel for the formats the
// adapter transfers to and from the host.
func formatTexelSize(f driver.Format) uint32 {
	switch f {
	case driver.FormatR8Unorm:
		return 1
	default:
		return 4
	}
}
