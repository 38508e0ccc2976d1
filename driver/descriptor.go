package driver

// ResourceKind partitions resources into the registry sets maintained by
// the front end. Shutdown releases kinds in reverse dependency order, so
// the declaration order here matters: dependents come after the resources
// they reference.
type ResourceKind int

const (
	// KindBuffer is a device buffer.
	KindBuffer ResourceKind = iota

	// KindBufferArray is a homogeneous group of buffers bound together.
	KindBufferArray

	// KindTexture is a device texture of any dimensionality.
	KindTexture

	// KindSampler is a texture sampler state.
	KindSampler

	// KindShader is one compiled shader stage.
	KindShader

	// KindShaderProgram is a linked set of shader stages.
	KindShaderProgram

	// KindRenderPass describes attachment formats and load/store behavior.
	KindRenderPass

	// KindRenderTarget is a set of attachment textures renderable as one.
	KindRenderTarget

	// KindPipeline is a compiled graphics or compute pipeline state.
	KindPipeline

	// KindQueryHeap is a group of GPU queries resolved together.
	KindQueryHeap

	// KindFence is a host-visible synchronization point.
	KindFence

	// NumResourceKinds is the number of distinct resource kinds.
	NumResourceKinds
)

// resourceKindNames maps ResourceKind values to their string representation.
var resourceKindNames = [...]string{
	KindBuffer:        "Buffer",
	KindBufferArray:   "BufferArray",
	KindTexture:       "Texture",
	KindSampler:       "Sampler",
	KindShader:        "Shader",
	KindShaderProgram: "ShaderProgram",
	KindRenderPass:    "RenderPass",
	KindRenderTarget:  "RenderTarget",
	KindPipeline:      "Pipeline",
	KindQueryHeap:     "QueryHeap",
	KindFence:         "Fence",
}

// String returns the string representation of the resource kind.
func (k ResourceKind) String() string {
	if k >= 0 && int(k) < len(resourceKindNames) {
		return resourceKindNames[k]
	}
	return "Unknown"
}

// VertexAttribute describes one attribute of a vertex buffer layout.
type VertexAttribute struct {
	// Name is the attribute name as declared in the vertex shader.
	Name string

	// Format is the component layout of the attribute.
	Format VertexFormat

	// Location is the shader input location.
	Location uint32

	// Offset is the byte offset of the attribute within one vertex.
	Offset uint32

	// InstanceDivisor is 0 for per-vertex data, or the number of instances
	// that share one element for per-instance data.
	InstanceDivisor uint32
}

// VertexLayout describes the memory layout of one vertex buffer.
type VertexLayout struct {
	// Stride is the byte distance between consecutive vertices.
	// If 0, the stride is derived from the attribute formats.
	Stride uint32

	// Attributes are the attributes sourced from this buffer.
	Attributes []VertexAttribute
}

// ResolvedStride returns the explicit stride, or the packed size of all
// attributes when Stride is 0.
func (l VertexLayout) ResolvedStride() uint32 {
	if l.Stride != 0 {
		return l.Stride
	}
	var total uint32
	for _, a := range l.Attributes {
		total += a.Format.ByteSize()
	}
	return total
}

// BufferDescriptor describes a buffer to create.
type BufferDescriptor struct {
	// Label is an optional debug name.
	Label string

	// Size is the buffer size in bytes. Must be greater than zero.
	Size uint64

	// BindFlags specifies how the buffer may be bound.
	BindFlags BindFlags

	// CPUAccessFlags grants host access via Map/Unmap. Non-zero access
	// makes the backend allocate a CPU-access shadow buffer owned 1:1 by
	// this buffer.
	CPUAccessFlags CPUAccessFlags

	// MiscFlags carries creation options such as MiscDynamicUsage.
	MiscFlags MiscFlags

	// Vertex is the strongly-typed sub-layout for vertex buffers.
	// Ignored unless BindFlags contains BindVertexBuffer.
	Vertex VertexLayout

	// IndexFormat is the element format for index buffers. Required to be
	// Uint16 or Uint32 when BindFlags contains BindIndexBuffer.
	IndexFormat IndexFormat

	// StorageStride is the element stride for structured storage buffers.
	// Must be non-zero when BindFlags contains BindStorageBuffer or
	// BindSampled on a buffer; Size must then be a multiple of it.
	StorageStride uint32
}

// TextureKind is the dimensionality variant of a texture.
type TextureKind uint8

const (
	// Texture1D is a one-dimensional texture.
	Texture1D TextureKind = iota

	// Texture1DArray is an array of 1D textures.
	Texture1DArray

	// Texture2D is a two-dimensional texture.
	Texture2D

	// Texture2DArray is an array of 2D textures.
	Texture2DArray

	// Texture3D is a volume texture.
	Texture3D

	// TextureCube is a cube map (six 2D faces).
	TextureCube

	// TextureCubeArray is an array of cube maps.
	TextureCubeArray

	// Texture2DMS is a multisampled 2D texture.
	Texture2DMS

	// Texture2DMSArray is an array of multisampled 2D textures.
	Texture2DMSArray
)

// textureKindNames maps TextureKind values to their string representation.
var textureKindNames = [...]string{
	Texture1D:        "Texture1D",
	Texture1DArray:   "Texture1DArray",
	Texture2D:        "Texture2D",
	Texture2DArray:   "Texture2DArray",
	Texture3D:        "Texture3D",
	TextureCube:      "TextureCube",
	TextureCubeArray: "TextureCubeArray",
	Texture2DMS:      "Texture2DMS",
	Texture2DMSArray: "Texture2DMSArray",
}

// String returns the string representation of the texture kind.
func (k TextureKind) String() string {
	if int(k) < len(textureKindNames) {
		return textureKindNames[k]
	}
	return "Unknown"
}

// IsArray reports whether the kind has array layers.
func (k TextureKind) IsArray() bool {
	switch k {
	case Texture1DArray, Texture2DArray, TextureCubeArray, Texture2DMSArray:
		return true
	default:
		return false
	}
}

// IsMultisample reports whether the kind is multisampled.
func (k TextureKind) IsMultisample() bool {
	return k == Texture2DMS || k == Texture2DMSArray
}

// IsCube reports whether the kind is a cube map variant.
func (k TextureKind) IsCube() bool {
	return k == TextureCube || k == TextureCubeArray
}

// TextureDescriptor describes a texture to create.
type TextureDescriptor struct {
	// Label is an optional debug name.
	Label string

	// Kind is the dimensionality variant.
	Kind TextureKind

	// Format is the pixel format.
	Format Format

	// Extent is the texel size. Height must be 1 for 1D kinds, Depth must
	// be 1 for non-3D kinds.
	Extent Extent3D

	// ArrayLayers is the number of array layers. 1 for non-array kinds;
	// for cube kinds this counts whole cubes, not faces.
	ArrayLayers uint32

	// MipLevels is the number of mip levels. 0 selects the full mip chain
	// when initial data is present, otherwise 1. Multisampled kinds must
	// use 1.
	MipLevels uint32

	// SampleCount is the number of samples for multisampled kinds.
	// Must be 1 otherwise.
	SampleCount uint32

	// BindFlags specifies how the texture may be bound.
	BindFlags BindFlags

	// MiscFlags carries creation options such as MiscGenerateMips.
	MiscFlags MiscFlags
}

// NumMipLevels returns the mip level count for an extent covering the full
// chain down to 1x1.
func NumMipLevels(e Extent3D) uint32 {
	n := uint32(1)
	for m := e.MaxExtent(); m > 1; m >>= 1 {
		n++
	}
	return n
}

// AddressMode is the texture coordinate wrap behavior of a sampler.
type AddressMode uint8

const (
	// AddressRepeat tiles the texture.
	AddressRepeat AddressMode = iota

	// AddressMirror tiles the texture with mirroring.
	AddressMirror

	// AddressClamp clamps coordinates to the edge.
	AddressClamp
)

// FilterMode is the sampling filter of a sampler.
type FilterMode uint8

const (
	// FilterNearest selects the nearest texel.
	FilterNearest FilterMode = iota

	// FilterLinear interpolates between texels.
	FilterLinear
)

// SamplerDescriptor describes a sampler state to create.
// Equal descriptors describe equal native states, which lets adapters pool
// sampler objects keyed by the descriptor value.
type SamplerDescriptor struct {
	// Label is an optional debug name.
	Label string

	// AddressU, AddressV, AddressW are the per-axis wrap modes.
	AddressU AddressMode
	AddressV AddressMode
	AddressW AddressMode

	// MinFilter and MagFilter are the minification/magnification filters.
	MinFilter FilterMode
	MagFilter FilterMode

	// MipFilter is the filter between mip levels.
	MipFilter FilterMode

	// MaxAnisotropy is the anisotropic filtering cap. 1 disables it.
	MaxAnisotropy uint32

	// MinLOD and MaxLOD clamp the mip level range.
	MinLOD float32
	MaxLOD float32
}

// ShaderDescriptor describes one shader stage to compile.
type ShaderDescriptor struct {
	// Label is an optional debug name.
	Label string

	// Stage is the pipeline stage this shader occupies. Exactly one stage
	// flag must be set.
	Stage StageFlags

	// Source is WGSL source text. Either Source or SPIRV must be set.
	Source string

	// SPIRV is precompiled SPIR-V code, used when Source is empty.
	SPIRV []uint32

	// EntryPoint is the entry function name. Defaults to "main".
	EntryPoint string
}

// HasCode reports whether the descriptor carries any shader code.
func (d *ShaderDescriptor) HasCode() bool {
	return d.Source != "" || len(d.SPIRV) > 0
}

// PrimitiveTopology is the primitive assembly mode of a graphics pipeline.
type PrimitiveTopology uint8

const (
	// TopologyTriangleList assembles independent triangles.
	TopologyTriangleList PrimitiveTopology = iota

	// TopologyTriangleStrip assembles a triangle strip.
	TopologyTriangleStrip

	// TopologyLineList assembles independent lines.
	TopologyLineList

	// TopologyPointList assembles points.
	TopologyPointList
)

// GraphicsPipelineDescriptor describes a graphics pipeline to create.
type GraphicsPipelineDescriptor struct {
	// Label is an optional debug name.
	Label string

	// Program is the linked shader program. Must contain a vertex stage
	// and must not contain a compute stage.
	Program ShaderProgram

	// RenderPass describes the attachment formats the pipeline renders
	// into. Optional for adapters that derive it from the target.
	RenderPass RenderPass

	// Topology is the primitive assembly mode.
	Topology PrimitiveTopology

	// VertexLayouts describe the vertex buffer slots consumed by the
	// vertex stage.
	VertexLayouts []VertexLayout

	// DepthTest and DepthWrite enable the depth stage.
	DepthTest  bool
	DepthWrite bool

	// BlendEnabled enables standard alpha blending on color attachments.
	BlendEnabled bool
}

// ComputePipelineDescriptor describes a compute pipeline to create.
type ComputePipelineDescriptor struct {
	// Label is an optional debug name.
	Label string

	// Program is the linked shader program. Must contain exactly the
	// compute stage.
	Program ShaderProgram
}

// AttachmentLoadOp selects the action on an attachment at pass begin.
type AttachmentLoadOp uint8

const (
	// LoadOpLoad preserves the previous contents.
	LoadOpLoad AttachmentLoadOp = iota

	// LoadOpClear clears to the clear value.
	LoadOpClear

	// LoadOpDontCare leaves the contents undefined.
	LoadOpDontCare
)

// AttachmentStoreOp selects the action on an attachment at pass end.
type AttachmentStoreOp uint8

const (
	// StoreOpStore persists the attachment contents.
	StoreOpStore AttachmentStoreOp = iota

	// StoreOpDontCare discards the attachment contents.
	StoreOpDontCare
)

// AttachmentDescriptor describes one render pass attachment.
type AttachmentDescriptor struct {
	// Format is the attachment pixel format.
	Format Format

	// LoadOp is the action at pass begin.
	LoadOp AttachmentLoadOp

	// StoreOp is the action at pass end.
	StoreOp AttachmentStoreOp
}

// RenderPassDescriptor describes the attachment layout of a render pass.
type RenderPassDescriptor struct {
	// Label is an optional debug name.
	Label string

	// ColorAttachments are the color attachment descriptions, in slot
	// order.
	ColorAttachments []AttachmentDescriptor

	// DepthStencilAttachment is the optional depth/stencil description.
	// A zero Format means no depth/stencil attachment.
	DepthStencilAttachment AttachmentDescriptor

	// Samples is the multisample count shared by all attachments.
	Samples uint32
}

// RenderTargetAttachment binds one texture (sub-resource) as an attachment.
type RenderTargetAttachment struct {
	// Texture is the attachment texture. Must carry the matching
	// attachment bind flag.
	Texture Texture

	// MipLevel selects the mip level to render into.
	MipLevel uint32

	// Layer selects the array layer (or cube face) to render into.
	Layer uint32
}

// RenderTargetDescriptor describes a render target to create.
type RenderTargetDescriptor struct {
	// Label is an optional debug name.
	Label string

	// Resolution is the pixel size shared by all attachments.
	Resolution Extent3D

	// ColorAttachments are the bound color textures, in slot order.
	ColorAttachments []RenderTargetAttachment

	// DepthStencilAttachment is the optional bound depth/stencil texture.
	DepthStencilAttachment *RenderTargetAttachment

	// Samples is the multisample count. 1 disables multisampling.
	Samples uint32
}

// QueryType is the kind of GPU query a heap contains.
type QueryType uint8

const (
	// QueryOcclusion counts samples that pass depth/stencil tests.
	QueryOcclusion QueryType = iota

	// QueryTimestamp records GPU timestamps.
	QueryTimestamp

	// QueryPipelineStatistics records pipeline stage invocation counters.
	QueryPipelineStatistics
)

// QueryHeapDescriptor describes a query heap to create.
type QueryHeapDescriptor struct {
	// Label is an optional debug name.
	Label string

	// Type is the query kind for all queries in the heap.
	Type QueryType

	// Count is the number of queries in the heap. Must be greater than
	// zero.
	Count uint32
}
