package rhi

import "github.com/gogpu/rhi/driver"

// Resource types are aliases for their driver counterparts, so values
// flow between the facade and adapter packages without conversion.
type (
	// Resource is the common surface of every device object.
	Resource = driver.Resource

	// Buffer is a device buffer.
	Buffer = driver.Buffer

	// BufferArray is a homogeneous group of buffers.
	BufferArray = driver.BufferArray

	// Texture is a device texture.
	Texture = driver.Texture

	// Sampler is a sampler state.
	Sampler = driver.Sampler

	// Shader is one compiled shader stage.
	Shader = driver.Shader

	// ShaderProgram is a linked set of shader stages.
	ShaderProgram = driver.ShaderProgram

	// Pipeline is a compiled graphics or compute pipeline.
	Pipeline = driver.Pipeline

	// RenderPass describes attachment formats and load/store behavior.
	RenderPass = driver.RenderPass

	// RenderTarget is a set of attachment textures renderable as one.
	RenderTarget = driver.RenderTarget

	// QueryHeap is a group of GPU queries resolved together.
	QueryHeap = driver.QueryHeap

	// Fence is a host-visible synchronization point.
	Fence = driver.Fence
)

// Descriptor and value types, aliased from the driver package.
type (
	// ResourceKind partitions resources into registry sets.
	ResourceKind = driver.ResourceKind

	// BufferDescriptor describes a buffer to create.
	BufferDescriptor = driver.BufferDescriptor

	// TextureDescriptor describes a texture to create.
	TextureDescriptor = driver.TextureDescriptor

	// TextureKind is the dimensionality variant of a texture.
	TextureKind = driver.TextureKind

	// TextureRegion addresses a texture sub-region for host transfers.
	TextureRegion = driver.TextureRegion

	// SamplerDescriptor describes a sampler state to create.
	SamplerDescriptor = driver.SamplerDescriptor

	// ShaderDescriptor describes one shader stage to compile.
	ShaderDescriptor = driver.ShaderDescriptor

	// GraphicsPipelineDescriptor describes a graphics pipeline.
	GraphicsPipelineDescriptor = driver.GraphicsPipelineDescriptor

	// ComputePipelineDescriptor describes a compute pipeline.
	ComputePipelineDescriptor = driver.ComputePipelineDescriptor

	// RenderPassDescriptor describes the attachment layout of a pass.
	RenderPassDescriptor = driver.RenderPassDescriptor

	// AttachmentDescriptor describes one render pass attachment.
	AttachmentDescriptor = driver.AttachmentDescriptor

	// RenderTargetDescriptor describes a render target to create.
	RenderTargetDescriptor = driver.RenderTargetDescriptor

	// RenderTargetAttachment binds one texture as an attachment.
	RenderTargetAttachment = driver.RenderTargetAttachment

	// QueryHeapDescriptor describes a query heap to create.
	QueryHeapDescriptor = driver.QueryHeapDescriptor

	// VertexAttribute describes one vertex buffer attribute.
	VertexAttribute = driver.VertexAttribute

	// VertexLayout describes the memory layout of a vertex buffer.
	VertexLayout = driver.VertexLayout

	// BindFlags describes how a resource may be bound.
	BindFlags = driver.BindFlags

	// CPUAccessFlags describes host access granted to a resource.
	CPUAccessFlags = driver.CPUAccessFlags

	// MiscFlags carries miscellaneous creation options.
	MiscFlags = driver.MiscFlags

	// StageFlags identifies shader pipeline stages.
	StageFlags = driver.StageFlags

	// Format is the pixel format of a texture.
	Format = driver.Format

	// IndexFormat is the element format of an index buffer.
	IndexFormat = driver.IndexFormat

	// VertexFormat is the component layout of a vertex attribute.
	VertexFormat = driver.VertexFormat

	// Extent3D is the size of a texture region in texels.
	Extent3D = driver.Extent3D

	// Origin3D is a texel offset into a texture.
	Origin3D = driver.Origin3D

	// Viewport describes the viewport transform of a render pass.
	Viewport = driver.Viewport

	// Scissor describes a scissor rectangle.
	Scissor = driver.Scissor

	// ClearColor is an RGBA clear value.
	ClearColor = driver.ClearColor

	// MapMode selects the host access direction of MapBuffer.
	MapMode = driver.MapMode

	// Capabilities is the feature and limit surface of a device.
	Capabilities = driver.Capabilities

	// Capability identifies an optional device feature.
	Capability = driver.Capability
)

// Re-exported flag and enum values for call-site brevity.
const (
	BindVertexBuffer           = driver.BindVertexBuffer
	BindIndexBuffer            = driver.BindIndexBuffer
	BindConstantBuffer         = driver.BindConstantBuffer
	BindStreamOutputBuffer     = driver.BindStreamOutputBuffer
	BindIndirectBuffer         = driver.BindIndirectBuffer
	BindStorageBuffer          = driver.BindStorageBuffer
	BindSampled                = driver.BindSampled
	BindStorage                = driver.BindStorage
	BindColorAttachment        = driver.BindColorAttachment
	BindDepthStencilAttachment = driver.BindDepthStencilAttachment
	BindCopySrc                = driver.BindCopySrc
	BindCopyDst                = driver.BindCopyDst

	CPUAccessRead      = driver.CPUAccessRead
	CPUAccessWrite     = driver.CPUAccessWrite
	CPUAccessReadWrite = driver.CPUAccessReadWrite

	MiscDynamicUsage  = driver.MiscDynamicUsage
	MiscGenerateMips  = driver.MiscGenerateMips
	MiscNoInitialData = driver.MiscNoInitialData

	StageVertex         = driver.StageVertex
	StageTessControl    = driver.StageTessControl
	StageTessEvaluation = driver.StageTessEvaluation
	StageGeometry       = driver.StageGeometry
	StageFragment       = driver.StageFragment
	StageCompute        = driver.StageCompute

	MapRead  = driver.MapRead
	MapWrite = driver.MapWrite

	Texture1D        = driver.Texture1D
	Texture1DArray   = driver.Texture1DArray
	Texture2D        = driver.Texture2D
	Texture2DArray   = driver.Texture2DArray
	Texture3D        = driver.Texture3D
	TextureCube      = driver.TextureCube
	TextureCubeArray = driver.TextureCubeArray
	Texture2DMS      = driver.Texture2DMS
	Texture2DMSArray = driver.Texture2DMSArray

	FormatRGBA8Unorm          = driver.FormatRGBA8Unorm
	FormatBGRA8Unorm          = driver.FormatBGRA8Unorm
	FormatR8Unorm             = driver.FormatR8Unorm
	FormatDepth24PlusStencil8 = driver.FormatDepth24PlusStencil8

	IndexFormatUint16 = driver.IndexFormatUint16
	IndexFormatUint32 = driver.IndexFormatUint32

	KindBuffer        = driver.KindBuffer
	KindBufferArray   = driver.KindBufferArray
	KindTexture       = driver.KindTexture
	KindSampler       = driver.KindSampler
	KindShader        = driver.KindShader
	KindShaderProgram = driver.KindShaderProgram
	KindRenderPass    = driver.KindRenderPass
	KindRenderTarget  = driver.KindRenderTarget
	KindPipeline      = driver.KindPipeline
	KindQueryHeap     = driver.KindQueryHeap
	KindFence         = driver.KindFence
)
