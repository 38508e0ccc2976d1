package rhi

import (
	"math/bits"

	"github.com/gogpu/rhi/driver"
)

// validator checks descriptors against structural rules and device
// capabilities before any native creation is attempted. Backends may
// assume validated descriptors and only enforce their own limits.
//
// Every failure is a *driver.CreateError wrapping one of the driver
// sentinel classes, so callers branch on errors.Is regardless of whether
// the front end or the backend rejected the request.
type validator struct {
	caps *driver.Capabilities
}

func (v *validator) validateBuffer(desc *BufferDescriptor) error {
	const kind = KindBuffer
	if desc.Size == 0 {
		return driver.NewCreateError(kind, ErrInvalidCombination, "size must be greater than zero")
	}
	if desc.BindFlags == 0 {
		return driver.NewCreateError(kind, ErrInvalidCombination, "no bind flags")
	}
	if desc.BindFlags.Any(driver.AttachmentBindMask) {
		return driver.NewCreateError(kind, ErrInvalidCombination,
			"attachment flags %v are not legal on buffers", desc.BindFlags&driver.AttachmentBindMask)
	}
	if !driver.BufferBindMask.Contains(desc.BindFlags) {
		return driver.NewCreateError(kind, ErrInvalidCombination,
			"flags %v are not legal on buffers", desc.BindFlags)
	}
	if desc.Size > v.caps.Limits.MaxBufferSize {
		return driver.NewCreateError(kind, ErrExceededCapacity,
			"size %d exceeds device limit %d", desc.Size, v.caps.Limits.MaxBufferSize)
	}
	if desc.BindFlags.Contains(BindConstantBuffer) && desc.Size > v.caps.Limits.MaxConstantBufferSize {
		return driver.NewCreateError(kind, ErrExceededCapacity,
			"constant buffer size %d exceeds device limit %d", desc.Size, v.caps.Limits.MaxConstantBufferSize)
	}
	if desc.BindFlags.Contains(BindIndexBuffer) && desc.IndexFormat == driver.IndexFormatUndefined {
		return driver.NewCreateError(kind, ErrInvalidCombination,
			"index buffers require an index format")
	}
	if !desc.BindFlags.Contains(BindIndexBuffer) && desc.IndexFormat != driver.IndexFormatUndefined {
		return driver.NewCreateError(kind, ErrInvalidCombination,
			"index format %v on a buffer without the IndexBuffer flag", desc.IndexFormat)
	}
	if desc.BindFlags.Contains(BindVertexBuffer) {
		stride := desc.Vertex.ResolvedStride()
		for i, attr := range desc.Vertex.Attributes {
			if attr.Format.ByteSize() == 0 {
				return driver.NewCreateError(kind, ErrInvalidCombination,
					"vertex attribute %d has no format", i)
			}
			if attr.Offset+attr.Format.ByteSize() > stride {
				return driver.NewCreateError(kind, ErrInvalidCombination,
					"vertex attribute %d at offset %d exceeds stride %d", i, attr.Offset, stride)
			}
		}
	}
	if desc.BindFlags.Contains(BindStorageBuffer) {
		if desc.StorageStride == 0 {
			return driver.NewCreateError(kind, ErrInvalidCombination,
				"storage buffers require a non-zero element stride")
		}
		if desc.Size%uint64(desc.StorageStride) != 0 {
			return driver.NewCreateError(kind, ErrInvalidCombination,
				"size %d is not a multiple of element stride %d", desc.Size, desc.StorageStride)
		}
	}
	if desc.BindFlags.Contains(BindStreamOutputBuffer) && !v.caps.Supported(driver.CapStreamOutput) {
		return driver.NewCreateError(kind, ErrUnsupportedFeature, "stream output not supported")
	}
	if desc.BindFlags.Contains(BindIndirectBuffer) && !v.caps.Supported(driver.CapIndirectDraw) {
		return driver.NewCreateError(kind, ErrUnsupportedFeature, "indirect arguments not supported")
	}
	return nil
}

// validateBufferArray requires a non-empty, category-homogeneous group.
// All members must share the same primary bind category so they can be
// bound to consecutive slots of one binding point.
func (v *validator) validateBufferArray(buffers []Buffer) error {
	const kind = KindBufferArray
	if len(buffers) == 0 {
		return driver.NewCreateError(kind, ErrInvalidCombination, "empty buffer array")
	}
	first := buffers[0].BindFlags().PrimaryCategory()
	if first == 0 {
		return driver.NewCreateError(kind, ErrInvalidCombination,
			"buffer 0 has no bindable category")
	}
	for i, b := range buffers[1:] {
		if c := b.BindFlags().PrimaryCategory(); c != first {
			return driver.NewCreateError(kind, ErrInvalidCombination,
				"buffer %d category %v differs from %v", i+1, c, first)
		}
	}
	return nil
}

func (v *validator) validateTexture(desc *TextureDescriptor) error {
	const kind = KindTexture
	e := desc.Extent
	if e.Width == 0 || e.Height == 0 || e.Depth == 0 {
		return driver.NewCreateError(kind, ErrInvalidCombination,
			"extent %dx%dx%d has a zero dimension", e.Width, e.Height, e.Depth)
	}
	if desc.BindFlags == 0 {
		return driver.NewCreateError(kind, ErrInvalidCombination, "no bind flags")
	}
	if !driver.TextureBindMask.Contains(desc.BindFlags) {
		return driver.NewCreateError(kind, ErrInvalidCombination,
			"flags %v are not legal on textures", desc.BindFlags)
	}

	switch desc.Kind {
	case Texture1D, Texture1DArray:
		if e.Height != 1 || e.Depth != 1 {
			return driver.NewCreateError(kind, ErrInvalidCombination,
				"%s requires height and depth of 1", desc.Kind)
		}
	case Texture3D:
		if !v.caps.Supported(driver.Cap3DTextures) {
			return driver.NewCreateError(kind, ErrUnsupportedFeature, "3D textures not supported")
		}
		if e.MaxExtent() > v.caps.Limits.Max3DTextureSize {
			return driver.NewCreateError(kind, ErrExceededCapacity,
				"3D extent %d exceeds device limit %d", e.MaxExtent(), v.caps.Limits.Max3DTextureSize)
		}
	case TextureCube, TextureCubeArray:
		if e.Width != e.Height {
			return driver.NewCreateError(kind, ErrInvalidCombination,
				"cube faces must be square, got %dx%d", e.Width, e.Height)
		}
		if e.Width > v.caps.Limits.MaxCubeTextureSize {
			return driver.NewCreateError(kind, ErrExceededCapacity,
				"cube extent %d exceeds device limit %d", e.Width, v.caps.Limits.MaxCubeTextureSize)
		}
		if desc.Kind == TextureCubeArray && !v.caps.Supported(driver.CapCubeArrayTextures) {
			return driver.NewCreateError(kind, ErrUnsupportedFeature, "cube array textures not supported")
		}
	}
	if desc.Kind != Texture3D && e.Depth != 1 {
		return driver.NewCreateError(kind, ErrInvalidCombination,
			"%s requires depth of 1", desc.Kind)
	}
	if desc.Kind != Texture3D && e.MaxExtent() > v.caps.Limits.MaxTextureSize {
		return driver.NewCreateError(kind, ErrExceededCapacity,
			"extent %d exceeds device limit %d", e.MaxExtent(), v.caps.Limits.MaxTextureSize)
	}

	if desc.Kind.IsMultisample() {
		if !v.caps.Supported(driver.CapMultiSampleTextures) {
			return driver.NewCreateError(kind, ErrUnsupportedFeature, "multisampled textures not supported")
		}
		if desc.SampleCount < 2 {
			return driver.NewCreateError(kind, ErrInvalidCombination,
				"%s requires a sample count of at least 2", desc.Kind)
		}
		if desc.SampleCount > v.caps.Limits.MaxSampleCount {
			return driver.NewCreateError(kind, ErrExceededCapacity,
				"sample count %d exceeds device limit %d", desc.SampleCount, v.caps.Limits.MaxSampleCount)
		}
		if desc.MipLevels > 1 {
			return driver.NewCreateError(kind, ErrInvalidCombination,
				"multisampled textures cannot have mip chains")
		}
	} else if desc.SampleCount > 1 {
		return driver.NewCreateError(kind, ErrInvalidCombination,
			"sample count %d on non-multisampled %s", desc.SampleCount, desc.Kind)
	}

	if !desc.Kind.IsArray() && desc.ArrayLayers > 1 {
		return driver.NewCreateError(kind, ErrInvalidCombination,
			"array layers %d on non-array %s", desc.ArrayLayers, desc.Kind)
	}
	if desc.ArrayLayers > v.caps.Limits.MaxArrayLayers {
		return driver.NewCreateError(kind, ErrExceededCapacity,
			"array layers %d exceed device limit %d", desc.ArrayLayers, v.caps.Limits.MaxArrayLayers)
	}
	if full := driver.NumMipLevels(e); desc.MipLevels > full {
		return driver.NewCreateError(kind, ErrInvalidCombination,
			"mip levels %d exceed full chain of %d", desc.MipLevels, full)
	}
	return nil
}

func (v *validator) validateSampler(desc *SamplerDescriptor) error {
	const kind = KindSampler
	if desc.MinLOD > desc.MaxLOD && desc.MaxLOD != 0 {
		return driver.NewCreateError(kind, ErrInvalidCombination,
			"MinLOD %g greater than MaxLOD %g", desc.MinLOD, desc.MaxLOD)
	}
	return nil
}

func (v *validator) validateShader(desc *ShaderDescriptor) error {
	const kind = KindShader
	if !desc.HasCode() {
		return driver.NewCreateError(kind, ErrInvalidCombination, "no source or SPIR-V code")
	}
	if bits.OnesCount32(uint32(desc.Stage)) != 1 {
		return driver.NewCreateError(kind, ErrInvalidCombination,
			"exactly one stage required, got %v", desc.Stage)
	}
	switch desc.Stage {
	case StageGeometry:
		if !v.caps.Supported(driver.CapGeometryShaders) {
			return driver.NewCreateError(kind, ErrUnsupportedFeature, "geometry shaders not supported")
		}
	case StageTessControl, StageTessEvaluation:
		if !v.caps.Supported(driver.CapTessellationShaders) {
			return driver.NewCreateError(kind, ErrUnsupportedFeature, "tessellation shaders not supported")
		}
	case StageCompute:
		if !v.caps.Supported(driver.CapComputeShaders) {
			return driver.NewCreateError(kind, ErrUnsupportedFeature, "compute shaders not supported")
		}
	}
	return nil
}

// validProgramStages enumerates the legal linked stage combinations.
var validProgramStages = []StageFlags{
	StageCompute,
	StageVertex,
	StageVertex | StageFragment,
	StageVertex | StageGeometry | StageFragment,
	StageVertex | StageTessControl | StageTessEvaluation | StageFragment,
	StageVertex | StageTessControl | StageTessEvaluation | StageGeometry | StageFragment,
}

func (v *validator) validateProgram(shaders []Shader) error {
	const kind = KindShaderProgram
	if len(shaders) == 0 {
		return driver.NewCreateError(kind, ErrInvalidCombination, "no shaders to link")
	}
	var stages StageFlags
	for _, s := range shaders {
		st := s.Stage()
		if stages&st != 0 {
			return driver.NewCreateError(kind, ErrInvalidCombination,
				"duplicate %v stage", st)
		}
		stages |= st
	}
	for _, valid := range validProgramStages {
		if stages == valid {
			return nil
		}
	}
	return driver.NewCreateError(kind, ErrInvalidCombination,
		"stage combination %v cannot be linked", stages)
}

func (v *validator) validateGraphicsPipeline(desc *GraphicsPipelineDescriptor) error {
	const kind = KindPipeline
	if desc.Program == nil {
		return driver.NewCreateError(kind, ErrInvalidCombination, "no shader program")
	}
	stages := desc.Program.Stages()
	if stages&StageVertex == 0 {
		return driver.NewCreateError(kind, ErrInvalidCombination,
			"graphics pipelines require a vertex stage, got %v", stages)
	}
	if stages&StageCompute != 0 {
		return driver.NewCreateError(kind, ErrInvalidCombination,
			"compute stage in a graphics pipeline")
	}
	for slot, layout := range desc.VertexLayouts {
		stride := layout.ResolvedStride()
		for i, attr := range layout.Attributes {
			if attr.Offset+attr.Format.ByteSize() > stride {
				return driver.NewCreateError(kind, ErrInvalidCombination,
					"layout %d attribute %d exceeds stride %d", slot, i, stride)
			}
		}
	}
	return nil
}

func (v *validator) validateComputePipeline(desc *ComputePipelineDescriptor) error {
	const kind = KindPipeline
	if !v.caps.Supported(driver.CapComputeShaders) {
		return driver.NewCreateError(kind, ErrUnsupportedFeature, "compute shaders not supported")
	}
	if desc.Program == nil {
		return driver.NewCreateError(kind, ErrInvalidCombination, "no shader program")
	}
	if desc.Program.Stages() != StageCompute {
		return driver.NewCreateError(kind, ErrInvalidCombination,
			"compute pipelines require exactly the compute stage, got %v", desc.Program.Stages())
	}
	return nil
}

func (v *validator) validateRenderPass(desc *RenderPassDescriptor) error {
	const kind = KindRenderPass
	hasDepth := desc.DepthStencilAttachment.Format != driver.FormatUndefined
	if len(desc.ColorAttachments) == 0 && !hasDepth {
		return driver.NewCreateError(kind, ErrInvalidCombination, "no attachments")
	}
	if uint32(len(desc.ColorAttachments)) > v.caps.Limits.MaxColorAttachments {
		return driver.NewCreateError(kind, ErrExceededCapacity,
			"%d color attachments exceed device limit %d",
			len(desc.ColorAttachments), v.caps.Limits.MaxColorAttachments)
	}
	if desc.Samples > 1 && desc.Samples > v.caps.Limits.MaxSampleCount {
		return driver.NewCreateError(kind, ErrExceededCapacity,
			"sample count %d exceeds device limit %d", desc.Samples, v.caps.Limits.MaxSampleCount)
	}
	return nil
}

func (v *validator) validateRenderTarget(desc *RenderTargetDescriptor) error {
	const kind = KindRenderTarget
	if desc.Resolution.Width == 0 || desc.Resolution.Height == 0 {
		return driver.NewCreateError(kind, ErrInvalidCombination,
			"resolution %dx%d has a zero dimension", desc.Resolution.Width, desc.Resolution.Height)
	}
	if len(desc.ColorAttachments) == 0 && desc.DepthStencilAttachment == nil {
		return driver.NewCreateError(kind, ErrInvalidCombination, "no attachments")
	}
	if uint32(len(desc.ColorAttachments)) > v.caps.Limits.MaxColorAttachments {
		return driver.NewCreateError(kind, ErrExceededCapacity,
			"%d color attachments exceed device limit %d",
			len(desc.ColorAttachments), v.caps.Limits.MaxColorAttachments)
	}
	for i, att := range desc.ColorAttachments {
		if att.Texture == nil {
			return driver.NewCreateError(kind, ErrInvalidCombination,
				"color attachment %d has no texture", i)
		}
		if !att.Texture.BindFlags().Contains(BindColorAttachment) {
			return driver.NewCreateError(kind, ErrInvalidCombination,
				"color attachment %d texture lacks the ColorAttachment flag", i)
		}
		if att.MipLevel >= att.Texture.MipLevels() {
			return driver.NewCreateError(kind, ErrInvalidCombination,
				"color attachment %d mip %d out of range", i, att.MipLevel)
		}
	}
	if att := desc.DepthStencilAttachment; att != nil {
		if att.Texture == nil {
			return driver.NewCreateError(kind, ErrInvalidCombination,
				"depth attachment has no texture")
		}
		if !att.Texture.BindFlags().Contains(BindDepthStencilAttachment) {
			return driver.NewCreateError(kind, ErrInvalidCombination,
				"depth attachment texture lacks the DepthStencilAttachment flag")
		}
	}
	return nil
}

func (v *validator) validateQueryHeap(desc *QueryHeapDescriptor) error {
	const kind = KindQueryHeap
	if desc.Count == 0 {
		return driver.NewCreateError(kind, ErrInvalidCombination, "query count must be greater than zero")
	}
	if desc.Type == driver.QueryTimestamp && !v.caps.Supported(driver.CapTimestampQueries) {
		return driver.NewCreateError(kind, ErrUnsupportedFeature, "timestamp queries not supported")
	}
	return nil
}
