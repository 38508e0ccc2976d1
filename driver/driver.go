package driver

import "context"

// Resource is the common surface of every native device object.
// Resources are created by an Adapter and released exactly once through
// the adapter that created them.
type Resource interface {
	// Kind returns the resource kind for registry bookkeeping.
	Kind() ResourceKind

	// Label returns the debug name assigned at creation, if any.
	Label() string
}

// Buffer is a native device buffer.
type Buffer interface {
	Resource

	// Size returns the buffer size in bytes.
	Size() uint64

	// BindFlags returns the bind flags fixed at creation.
	BindFlags() BindFlags
}

// BufferArray is a homogeneous group of buffers bound as consecutive slots.
type BufferArray interface {
	Resource

	// Len returns the number of buffers in the array.
	Len() int
}

// Texture is a native device texture.
type Texture interface {
	Resource

	// TextureKind returns the dimensionality variant fixed at creation.
	TextureKind() TextureKind

	// Format returns the pixel format fixed at creation.
	Format() Format

	// Extent returns the texel size of mip level 0.
	Extent() Extent3D

	// MipLevels returns the resolved mip level count.
	MipLevels() uint32

	// BindFlags returns the bind flags fixed at creation.
	BindFlags() BindFlags
}

// Sampler is a native sampler state.
type Sampler interface {
	Resource
}

// Shader is one compiled shader stage.
type Shader interface {
	Resource

	// Stage returns the pipeline stage this shader occupies.
	Stage() StageFlags
}

// ShaderProgram is a linked set of shader stages.
type ShaderProgram interface {
	Resource

	// Stages returns the combined stage flags of all linked shaders.
	Stages() StageFlags

	// LinkReport returns the backend link log. Empty when linking emitted
	// no diagnostics.
	LinkReport() string
}

// Pipeline is a compiled graphics or compute pipeline state.
type Pipeline interface {
	Resource

	// IsCompute reports whether this is a compute pipeline.
	IsCompute() bool
}

// RenderPass describes attachment formats and load/store behavior.
type RenderPass interface {
	Resource

	// Descriptor returns the attachment layout fixed at creation.
	Descriptor() *RenderPassDescriptor
}

// RenderTarget is a set of attachment textures renderable as one unit.
type RenderTarget interface {
	Resource

	// Resolution returns the pixel size shared by all attachments.
	Resolution() Extent3D

	// NumColorAttachments returns the number of bound color attachments.
	NumColorAttachments() int
}

// QueryHeap is a group of GPU queries resolved together.
type QueryHeap interface {
	Resource

	// Type returns the query kind of the heap.
	Type() QueryType

	// Count returns the number of queries in the heap.
	Count() uint32
}

// Fence is a host-visible synchronization point on the queue timeline.
type Fence interface {
	Resource
}

// TextureRegion addresses a sub-region of one texture sub-resource for
// host transfers.
type TextureRegion struct {
	// Origin is the texel offset of the region.
	Origin Origin3D

	// Extent is the texel size of the region.
	Extent Extent3D

	// MipLevel selects the mip level.
	MipLevel uint32

	// Layer selects the array layer (or cube face).
	Layer uint32
}

// Encoder records device commands. Encoders are created by the adapter
// per command buffer and are not safe for concurrent use.
type Encoder interface {
	// BeginRenderPass starts a render pass into the given target.
	// clears holds one clear value per color attachment using LoadOpClear.
	BeginRenderPass(target RenderTarget, pass RenderPass, clears []ClearColor) error

	// EndRenderPass ends the current render pass.
	EndRenderPass()

	// SetPipeline binds a graphics or compute pipeline.
	SetPipeline(p Pipeline)

	// SetVertexBuffer binds a vertex buffer to the given slot.
	SetVertexBuffer(slot uint32, buf Buffer, offset uint64)

	// SetVertexBufferArray binds all members of a vertex buffer array
	// starting at slot 0.
	SetVertexBufferArray(arr BufferArray)

	// SetIndexBuffer binds the index buffer.
	SetIndexBuffer(buf Buffer, format IndexFormat, offset uint64)

	// SetConstantBuffer binds a constant buffer to the given slot of the
	// given stages.
	SetConstantBuffer(slot uint32, buf Buffer, stages StageFlags)

	// SetTexture binds a texture for sampling at the given slot.
	SetTexture(slot uint32, tex Texture, stages StageFlags)

	// SetSampler binds a sampler at the given slot.
	SetSampler(slot uint32, s Sampler, stages StageFlags)

	// SetViewport sets the viewport transform.
	SetViewport(vp Viewport)

	// SetScissor sets the scissor rectangle.
	SetScissor(sc Scissor)

	// Draw issues a non-indexed draw.
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)

	// DrawIndexed issues an indexed draw.
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32)

	// Dispatch issues a compute dispatch. Only legal outside render passes
	// with a compute pipeline bound.
	Dispatch(x, y, z uint32)

	// DrawIndirect issues a draw whose arguments are read from buf at
	// offset as four uint32 values: vertexCount, instanceCount,
	// firstVertex, firstInstance. offset must be 4-byte aligned.
	DrawIndirect(buf Buffer, offset uint64) error

	// DispatchIndirect issues a dispatch whose workgroup counts are read
	// from buf at offset as three uint32 values. offset must be 4-byte
	// aligned.
	DispatchIndirect(buf Buffer, offset uint64) error

	// Barrier orders the effects of prior commands in this encoder before
	// any later command that reads them.
	Barrier()

	// BeginQuery opens the given query slot. Draw work recorded until the
	// matching EndQuery accumulates into the slot.
	BeginQuery(heap QueryHeap, query uint32)

	// EndQuery closes the given query slot and makes its value available
	// to ResolveQueries after submission.
	EndQuery(heap QueryHeap, query uint32)

	// CopyBuffer copies a byte range between buffers.
	CopyBuffer(dst Buffer, dstOffset uint64, src Buffer, srcOffset, size uint64) error

	// CopyTexture copies a region between textures of identical format.
	CopyTexture(dst Texture, dstRegion TextureRegion, src Texture, srcRegion TextureRegion) error

	// UpdateBuffer writes data into a buffer from within the command
	// stream. Limited to small inline updates.
	UpdateBuffer(dst Buffer, offset uint64, data []byte) error

	// ClearAttachments clears the currently bound attachments without a
	// load-op round trip.
	ClearAttachments(color ClearColor, clearDepth bool, depth float32)

	// WriteTimestamp records a timestamp into the given query slot.
	WriteTimestamp(heap QueryHeap, query uint32)

	// Finish ends recording and returns an opaque executable payload for
	// Queue.Submit. The encoder must not be reused after Finish.
	Finish() (CommandPayload, error)

	// Discard abandons recording without producing a payload.
	Discard()
}

// CommandPayload is the adapter-opaque result of finishing an encoder.
// The front end treats it as a token passed to Queue.Submit.
type CommandPayload interface {
	// Discard releases the payload without submitting it.
	Discard()
}

// Queue executes finished command payloads in submission order.
type Queue interface {
	// Submit enqueues a payload for execution. When fence is non-nil it is
	// signaled after the payload completes on the device.
	Submit(payload CommandPayload, fence Fence) error

	// Signal enqueues a fence signal after all prior submissions complete.
	Signal(fence Fence) error

	// WaitFence blocks until the fence is signaled or ctx is done.
	WaitFence(ctx context.Context, fence Fence) error

	// WaitIdle blocks until all submitted work has completed.
	WaitIdle(ctx context.Context) error

	// WriteBuffer schedules a host-to-device buffer write ordered before
	// subsequent submissions.
	WriteBuffer(buf Buffer, offset uint64, data []byte) error

	// ReadBuffer blocks until prior work completes and copies the byte
	// range into out. Requires CPUAccessRead on the buffer.
	ReadBuffer(buf Buffer, offset uint64, out []byte) error
}

// MapMode selects the host access direction of a Map operation.
type MapMode uint8

const (
	// MapRead maps for reading.
	MapRead MapMode = 1 << iota

	// MapWrite maps for writing.
	MapWrite
)

// Adapter is the contract every rendering backend implements. The front
// end calls it only after descriptor validation, so adapters may assume
// structurally valid descriptors and only enforce their own limits.
//
// Adapters must classify every creation failure as a *CreateError wrapping
// one of the sentinel errors in this package.
type Adapter interface {
	// Name returns the adapter identifier (e.g. "wgpu", "null").
	Name() string

	// Init initializes the native device. Must be called before any other
	// operation.
	Init() error

	// Close releases the native device. The adapter must not be used after
	// Close.
	Close()

	// Caps returns the device capabilities. Valid after Init.
	Caps() *Capabilities

	// CreateBuffer creates a buffer, optionally filled with initial data.
	// len(initial) must not exceed desc.Size.
	CreateBuffer(desc *BufferDescriptor, initial []byte) (Buffer, error)

	// CreateBufferArray groups previously created buffers. All members
	// carry the same primary bind category, enforced by the caller.
	CreateBufferArray(buffers []Buffer) (BufferArray, error)

	// ReleaseBuffer destroys a buffer and its CPU-access shadow.
	ReleaseBuffer(b Buffer)

	// ReleaseBufferArray destroys the group, not its members.
	ReleaseBufferArray(a BufferArray)

	// MapBuffer exposes a buffer range to the host. The returned slice is
	// valid until UnmapBuffer.
	MapBuffer(b Buffer, mode MapMode, offset, size uint64) ([]byte, error)

	// UnmapBuffer ends a Map, flushing writes for MapWrite mappings.
	UnmapBuffer(b Buffer)

	// CreateTexture creates a texture. initial, when non-nil, fills mip
	// level 0 of every layer in row-major order; mip generation follows
	// desc.MiscFlags.
	CreateTexture(desc *TextureDescriptor, initial []byte) (Texture, error)

	// ReleaseTexture destroys a texture.
	ReleaseTexture(t Texture)

	// WriteTexture writes host data into a texture region.
	WriteTexture(t Texture, region TextureRegion, data []byte) error

	// ReadTexture blocks until prior work completes and reads a texture
	// region into out.
	ReadTexture(t Texture, region TextureRegion, out []byte) error

	// CreateSampler creates (or pools) a sampler state.
	CreateSampler(desc *SamplerDescriptor) (Sampler, error)

	// ReleaseSampler releases a sampler reference.
	ReleaseSampler(s Sampler)

	// CreateShader compiles one shader stage.
	CreateShader(desc *ShaderDescriptor) (Shader, error)

	// ReleaseShader destroys a shader.
	ReleaseShader(s Shader)

	// CreateShaderProgram links shader stages. A failed link returns an
	// error whose CreateError.Detail carries the link report.
	CreateShaderProgram(label string, shaders []Shader) (ShaderProgram, error)

	// ReleaseShaderProgram destroys a program, not its shaders.
	ReleaseShaderProgram(p ShaderProgram)

	// CreateGraphicsPipeline creates a graphics pipeline.
	CreateGraphicsPipeline(desc *GraphicsPipelineDescriptor) (Pipeline, error)

	// CreateComputePipeline creates a compute pipeline.
	CreateComputePipeline(desc *ComputePipelineDescriptor) (Pipeline, error)

	// ReleasePipeline destroys a pipeline.
	ReleasePipeline(p Pipeline)

	// CreateRenderPass creates a render pass description.
	CreateRenderPass(desc *RenderPassDescriptor) (RenderPass, error)

	// ReleaseRenderPass destroys a render pass.
	ReleaseRenderPass(rp RenderPass)

	// CreateRenderTarget creates a render target over attachment textures.
	CreateRenderTarget(desc *RenderTargetDescriptor) (RenderTarget, error)

	// ReleaseRenderTarget destroys a render target, not its textures.
	ReleaseRenderTarget(rt RenderTarget)

	// CreateQueryHeap creates a query heap.
	CreateQueryHeap(desc *QueryHeapDescriptor) (QueryHeap, error)

	// ReleaseQueryHeap destroys a query heap.
	ReleaseQueryHeap(q QueryHeap)

	// ResolveQueries blocks until results are available and copies query
	// values starting at first into out.
	ResolveQueries(q QueryHeap, first, count uint32, out []uint64) error

	// CreateFence creates an unsignaled fence.
	CreateFence() (Fence, error)

	// ReleaseFence destroys a fence.
	ReleaseFence(f Fence)

	// NewEncoder creates a command encoder.
	NewEncoder() (Encoder, error)

	// Queue returns the device execution queue.
	Queue() Queue
}
