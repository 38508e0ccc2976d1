package rhi

// CommandType identifies the type of a recorded command.
// Each command type corresponds to one encoder operation.
type CommandType uint8

const (
	// Binding commands
	CmdBindPipeline          CommandType = iota // Bind a graphics or compute pipeline
	CmdBindVertexBuffer                         // Bind a vertex buffer slot
	CmdBindVertexBufferArray                    // Bind a whole vertex buffer array
	CmdBindIndexBuffer                          // Bind the index buffer
	CmdBindConstantBuffer                       // Bind a constant buffer slot
	CmdBindTexture                              // Bind a sampled texture slot
	CmdBindSampler                              // Bind a sampler slot

	// Pass and fixed-function commands
	CmdBeginRenderPass // Begin a render pass
	CmdEndRenderPass   // End the current render pass
	CmdSetViewport     // Set the viewport transform
	CmdSetScissor      // Set the scissor rectangle

	// Work commands
	CmdDraw             // Non-indexed draw
	CmdDrawIndexed      // Indexed draw
	CmdDrawIndirect     // Draw with buffer-sourced arguments
	CmdDispatch         // Compute dispatch
	CmdDispatchIndirect // Dispatch with buffer-sourced arguments

	// Transfer commands
	CmdCopyBuffer   // Buffer-to-buffer copy
	CmdCopyTexture  // Texture-to-texture copy
	CmdUpdateBuffer // Inline buffer update
	CmdBarrier      // Order prior effects before later reads

	// Misc commands
	CmdClearAttachments // Clear bound attachments mid-pass
	CmdWriteTimestamp   // Record a timestamp query
	CmdBeginQuery       // Open a query slot
	CmdEndQuery         // Close a query slot
)

// commandTypeNames maps CommandType values to their string representation.
var commandTypeNames = [...]string{
	CmdBindPipeline:          "BindPipeline",
	CmdBindVertexBuffer:      "BindVertexBuffer",
	CmdBindVertexBufferArray: "BindVertexBufferArray",
	CmdBindIndexBuffer:       "BindIndexBuffer",
	CmdBindConstantBuffer:    "BindConstantBuffer",
	CmdBindTexture:           "BindTexture",
	CmdBindSampler:           "BindSampler",
	CmdBeginRenderPass:       "BeginRenderPass",
	CmdEndRenderPass:         "EndRenderPass",
	CmdSetViewport:           "SetViewport",
	CmdSetScissor:            "SetScissor",
	CmdDraw:                  "Draw",
	CmdDrawIndexed:           "DrawIndexed",
	CmdDrawIndirect:          "DrawIndirect",
	CmdDispatch:              "Dispatch",
	CmdDispatchIndirect:      "DispatchIndirect",
	CmdCopyBuffer:            "CopyBuffer",
	CmdCopyTexture:           "CopyTexture",
	CmdUpdateBuffer:          "UpdateBuffer",
	CmdBarrier:               "Barrier",
	CmdClearAttachments:      "ClearAttachments",
	CmdWriteTimestamp:        "WriteTimestamp",
	CmdBeginQuery:            "BeginQuery",
	CmdEndQuery:              "EndQuery",
}

// String returns the string representation of a CommandType.
func (c CommandType) String() string {
	if int(c) < len(commandTypeNames) {
		return commandTypeNames[c]
	}
	return "Unknown"
}

// Command is the interface implemented by all recorded command types.
// Deferred command buffers store commands and replay them into a fresh
// encoder on every submission.
type Command interface {
	// Type returns the CommandType for this command.
	Type() CommandType
}

// BindPipelineCommand binds a pipeline.
type BindPipelineCommand struct {
	Pipeline Pipeline
}

// Type implements Command.
func (BindPipelineCommand) Type() CommandType { return CmdBindPipeline }

// BindVertexBufferCommand binds a vertex buffer to one slot.
type BindVertexBufferCommand struct {
	Slot   uint32
	Buffer Buffer
	Offset uint64
}

// Type implements Command.
func (BindVertexBufferCommand) Type() CommandType { return CmdBindVertexBuffer }

// BindVertexBufferArrayCommand binds all members of a buffer array
// starting at slot 0.
type BindVertexBufferArrayCommand struct {
	Array BufferArray
}

// Type implements Command.
func (BindVertexBufferArrayCommand) Type() CommandType { return CmdBindVertexBufferArray }

// BindIndexBufferCommand binds the index buffer.
type BindIndexBufferCommand struct {
	Buffer Buffer
	Format IndexFormat
	Offset uint64
}

// Type implements Command.
func (BindIndexBufferCommand) Type() CommandType { return CmdBindIndexBuffer }

// BindConstantBufferCommand binds a constant buffer to one slot.
type BindConstantBufferCommand struct {
	Slot   uint32
	Buffer Buffer
	Stages StageFlags
}

// Type implements Command.
func (BindConstantBufferCommand) Type() CommandType { return CmdBindConstantBuffer }

// BindTextureCommand binds a texture for sampling.
type BindTextureCommand struct {
	Slot    uint32
	Texture Texture
	Stages  StageFlags
}

// Type implements Command.
func (BindTextureCommand) Type() CommandType { return CmdBindTexture }

// BindSamplerCommand binds a sampler.
type BindSamplerCommand struct {
	Slot    uint32
	Sampler Sampler
	Stages  StageFlags
}

// Type implements Command.
func (BindSamplerCommand) Type() CommandType { return CmdBindSampler }

// BeginRenderPassCommand begins a render pass into a target.
type BeginRenderPassCommand struct {
	Target RenderTarget
	Pass   RenderPass
	Clears []ClearColor
}

// Type implements Command.
func (BeginRenderPassCommand) Type() CommandType { return CmdBeginRenderPass }

// EndRenderPassCommand ends the current render pass.
type EndRenderPassCommand struct{}

// Type implements Command.
func (EndRenderPassCommand) Type() CommandType { return CmdEndRenderPass }

// SetViewportCommand sets the viewport transform.
type SetViewportCommand struct {
	Viewport Viewport
}

// Type implements Command.
func (SetViewportCommand) Type() CommandType { return CmdSetViewport }

// SetScissorCommand sets the scissor rectangle.
type SetScissorCommand struct {
	Scissor Scissor
}

// Type implements Command.
func (SetScissorCommand) Type() CommandType { return CmdSetScissor }

// DrawCommand issues a non-indexed draw.
type DrawCommand struct {
	VertexCount   uint32
	InstanceCount uint32
	FirstVertex   uint32
	FirstInstance uint32
}

// Type implements Command.
func (DrawCommand) Type() CommandType { return CmdDraw }

// DrawIndexedCommand issues an indexed draw.
type DrawIndexedCommand struct {
	IndexCount    uint32
	InstanceCount uint32
	FirstIndex    uint32
	BaseVertex    int32
	FirstInstance uint32
}

// Type implements Command.
func (DrawIndexedCommand) Type() CommandType { return CmdDrawIndexed }

// DrawIndirectCommand issues a draw whose arguments live in a buffer.
type DrawIndirectCommand struct {
	Buffer Buffer
	Offset uint64
}

// Type implements Command.
func (DrawIndirectCommand) Type() CommandType { return CmdDrawIndirect }

// DispatchCommand issues a compute dispatch.
type DispatchCommand struct {
	GroupsX uint32
	GroupsY uint32
	GroupsZ uint32
}

// Type implements Command.
func (DispatchCommand) Type() CommandType { return CmdDispatch }

// DispatchIndirectCommand issues a dispatch whose workgroup counts live
// in a buffer.
type DispatchIndirectCommand struct {
	Buffer Buffer
	Offset uint64
}

// Type implements Command.
func (DispatchIndirectCommand) Type() CommandType { return CmdDispatchIndirect }

// CopyBufferCommand copies a byte range between buffers.
type CopyBufferCommand struct {
	Dst       Buffer
	DstOffset uint64
	Src       Buffer
	SrcOffset uint64
	Size      uint64
}

// Type implements Command.
func (CopyBufferCommand) Type() CommandType { return CmdCopyBuffer }

// CopyTextureCommand copies a region between textures.
type CopyTextureCommand struct {
	Dst       Texture
	DstRegion TextureRegion
	Src       Texture
	SrcRegion TextureRegion
}

// Type implements Command.
func (CopyTextureCommand) Type() CommandType { return CmdCopyTexture }

// UpdateBufferCommand writes inline data into a buffer.
type UpdateBufferCommand struct {
	Dst    Buffer
	Offset uint64
	Data   []byte
}

// Type implements Command.
func (UpdateBufferCommand) Type() CommandType { return CmdUpdateBuffer }

// BarrierCommand orders the effects of prior commands before later reads.
type BarrierCommand struct{}

// Type implements Command.
func (BarrierCommand) Type() CommandType { return CmdBarrier }

// ClearAttachmentsCommand clears bound attachments mid-pass.
type ClearAttachmentsCommand struct {
	Color      ClearColor
	ClearDepth bool
	Depth      float32
}

// Type implements Command.
func (ClearAttachmentsCommand) Type() CommandType { return CmdClearAttachments }

// WriteTimestampCommand records a timestamp into a query slot.
type WriteTimestampCommand struct {
	Heap  QueryHeap
	Query uint32
}

// Type implements Command.
func (WriteTimestampCommand) Type() CommandType { return CmdWriteTimestamp }

// BeginQueryCommand opens a query slot.
type BeginQueryCommand struct {
	Heap  QueryHeap
	Query uint32
}

// Type implements Command.
func (BeginQueryCommand) Type() CommandType { return CmdBeginQuery }

// EndQueryCommand closes a query slot.
type EndQueryCommand struct {
	Heap  QueryHeap
	Query uint32
}

// Type implements Command.
func (EndQueryCommand) Type() CommandType { return CmdEndQuery }
