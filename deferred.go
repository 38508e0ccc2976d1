package rhi

import (
	"fmt"

	"github.com/gogpu/rhi/driver"
)

// deferredCommandBuffer stores typed command records and replays them
// into a fresh encoder when submitted. Every replay is identical because
// the records are immutable once End succeeds. A recording is consumed
// by its first submission unless the buffer was created with
// CmdBufferMultiSubmit, in which case it cycles back to Closed and can
// be submitted any number of times.
type deferredCommandBuffer struct {
	label       string
	multiSubmit bool
	state       CommandBufferState
	rs          recordState
	cmds        []Command
}

func newDeferredCommandBuffer(label string, flags CommandBufferFlags) *deferredCommandBuffer {
	cb := &deferredCommandBuffer{
		label:       label,
		multiSubmit: flags.Contains(CmdBufferMultiSubmit),
		state:       StateCompleted,
	}
	cb.rs.deferDiagnostics = true
	return cb
}

// Label returns the debug name.
func (cb *deferredCommandBuffer) Label() string { return cb.label }

// State returns the current lifecycle state.
func (cb *deferredCommandBuffer) State() CommandBufferState { return cb.state }

// Commands returns the recorded commands. Valid after End; the slice
// must not be modified.
func (cb *deferredCommandBuffer) Commands() []Command { return cb.cmds }

// Begin starts recording, discarding any previous recording.
// Begin while submitted work is in flight is an error latched for End.
func (cb *deferredCommandBuffer) Begin() {
	if cb.state == StateSubmitted || cb.state == StateExecuting {
		cb.rs.latchf(ErrInvalidState, "Begin in state %s", cb.state)
		return
	}
	cb.state = StateRecording
	cb.rs.reset()
	cb.cmds = cb.cmds[:0]
}

// End finishes recording.
func (cb *deferredCommandBuffer) End() error {
	if cb.rs.err != nil {
		err := cb.rs.err
		cb.cmds = cb.cmds[:0]
		cb.state = StateCompleted
		cb.rs.reset()
		return err
	}
	if cb.state != StateRecording {
		return errStatef("End", cb.state)
	}
	if cb.rs.insidePass {
		cb.cmds = cb.cmds[:0]
		cb.state = StateCompleted
		return errUnbalancedPass()
	}
	cb.state = StateClosed
	return nil
}

func (cb *deferredCommandBuffer) record(c Command) {
	if cb.state != StateRecording {
		cb.rs.latchf(ErrInvalidState, "%s in state %s", c.Type(), cb.state)
		return
	}
	if cb.rs.err != nil {
		return
	}
	cb.cmds = append(cb.cmds, c)
}

// BindPipeline binds a pipeline.
func (cb *deferredCommandBuffer) BindPipeline(p Pipeline) {
	if p == nil {
		cb.rs.latchf(ErrInvalidState, "BindPipeline with nil pipeline")
		return
	}
	cb.rs.pipeline = p
	cb.record(BindPipelineCommand{Pipeline: p})
}

// BindVertexBuffer binds a vertex buffer slot.
func (cb *deferredCommandBuffer) BindVertexBuffer(slot uint32, buf Buffer, offset uint64) {
	cb.record(BindVertexBufferCommand{Slot: slot, Buffer: buf, Offset: offset})
}

// BindVertexBufferArray binds a whole vertex buffer array.
func (cb *deferredCommandBuffer) BindVertexBufferArray(arr BufferArray) {
	cb.record(BindVertexBufferArrayCommand{Array: arr})
}

// BindIndexBuffer binds the index buffer.
func (cb *deferredCommandBuffer) BindIndexBuffer(buf Buffer, format IndexFormat, offset uint64) {
	cb.rs.indexFormat = format
	cb.record(BindIndexBufferCommand{Buffer: buf, Format: format, Offset: offset})
}

// BindConstantBuffer binds a constant buffer slot.
func (cb *deferredCommandBuffer) BindConstantBuffer(slot uint32, buf Buffer, stages StageFlags) {
	cb.record(BindConstantBufferCommand{Slot: slot, Buffer: buf, Stages: stages})
}

// BindTexture binds a sampled texture slot.
func (cb *deferredCommandBuffer) BindTexture(slot uint32, tex Texture, stages StageFlags) {
	cb.record(BindTextureCommand{Slot: slot, Texture: tex, Stages: stages})
}

// BindSampler binds a sampler slot.
func (cb *deferredCommandBuffer) BindSampler(slot uint32, s Sampler, stages StageFlags) {
	cb.record(BindSamplerCommand{Slot: slot, Sampler: s, Stages: stages})
}

// BeginRenderPass begins a render pass.
func (cb *deferredCommandBuffer) BeginRenderPass(target RenderTarget, pass RenderPass, clears []ClearColor) {
	if cb.rs.err != nil {
		return
	}
	if cb.rs.insidePass {
		cb.rs.latchf(ErrInvalidState, "BeginRenderPass inside a render pass")
		return
	}
	cb.rs.insidePass = true
	cb.record(BeginRenderPassCommand{
		Target: target,
		Pass:   pass,
		Clears: append([]ClearColor(nil), clears...),
	})
}

// EndRenderPass ends the current render pass.
func (cb *deferredCommandBuffer) EndRenderPass() {
	if !cb.rs.checkInPass(CmdEndRenderPass) {
		return
	}
	cb.rs.insidePass = false
	cb.record(EndRenderPassCommand{})
}

// SetViewport sets the viewport transform.
func (cb *deferredCommandBuffer) SetViewport(vp Viewport) {
	if !cb.rs.checkInPass(CmdSetViewport) {
		return
	}
	cb.record(SetViewportCommand{Viewport: vp})
}

// SetScissor sets the scissor rectangle.
func (cb *deferredCommandBuffer) SetScissor(sc Scissor) {
	if !cb.rs.checkInPass(CmdSetScissor) {
		return
	}
	cb.record(SetScissorCommand{Scissor: sc})
}

// Draw issues a non-indexed draw.
func (cb *deferredCommandBuffer) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	if !cb.rs.checkDraw(CmdDraw) {
		return
	}
	cb.record(DrawCommand{
		VertexCount:   vertexCount,
		InstanceCount: instanceCount,
		FirstVertex:   firstVertex,
		FirstInstance: firstInstance,
	})
}

// DrawIndexed issues an indexed draw.
func (cb *deferredCommandBuffer) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	if !cb.rs.checkDrawIndexed() {
		return
	}
	cb.record(DrawIndexedCommand{
		IndexCount:    indexCount,
		InstanceCount: instanceCount,
		FirstIndex:    firstIndex,
		BaseVertex:    baseVertex,
		FirstInstance: firstInstance,
	})
}

// Dispatch issues a compute dispatch.
func (cb *deferredCommandBuffer) Dispatch(x, y, z uint32) {
	if !cb.rs.checkDispatch() {
		return
	}
	cb.record(DispatchCommand{GroupsX: x, GroupsY: y, GroupsZ: z})
}

// DrawIndirect issues a draw with buffer-sourced arguments.
func (cb *deferredCommandBuffer) DrawIndirect(buf Buffer, offset uint64) {
	if !cb.rs.checkDraw(CmdDrawIndirect) || !cb.rs.checkIndirect(CmdDrawIndirect, buf, offset) {
		return
	}
	cb.record(DrawIndirectCommand{Buffer: buf, Offset: offset})
}

// DispatchIndirect issues a dispatch with buffer-sourced counts.
func (cb *deferredCommandBuffer) DispatchIndirect(buf Buffer, offset uint64) {
	if !cb.rs.checkDispatch() || !cb.rs.checkIndirect(CmdDispatchIndirect, buf, offset) {
		return
	}
	cb.record(DispatchIndirectCommand{Buffer: buf, Offset: offset})
}

// Barrier orders prior effects before later reads.
func (cb *deferredCommandBuffer) Barrier() {
	if !cb.rs.checkTransfer(CmdBarrier) {
		return
	}
	cb.record(BarrierCommand{})
}

// BeginQuery opens a query slot.
func (cb *deferredCommandBuffer) BeginQuery(heap QueryHeap, query uint32) {
	if !cb.rs.checkBeginQuery(heap, query) {
		return
	}
	cb.record(BeginQueryCommand{Heap: heap, Query: query})
}

// EndQuery closes the open query slot.
func (cb *deferredCommandBuffer) EndQuery(heap QueryHeap, query uint32) {
	if !cb.rs.checkEndQuery() {
		return
	}
	cb.record(EndQueryCommand{Heap: heap, Query: query})
}

// CopyBuffer copies a byte range between buffers.
func (cb *deferredCommandBuffer) CopyBuffer(dst Buffer, dstOffset uint64, src Buffer, srcOffset, size uint64) {
	if !cb.rs.checkTransfer(CmdCopyBuffer) {
		return
	}
	cb.record(CopyBufferCommand{Dst: dst, DstOffset: dstOffset, Src: src, SrcOffset: srcOffset, Size: size})
}

// CopyTexture copies a region between textures.
func (cb *deferredCommandBuffer) CopyTexture(dst Texture, dstRegion TextureRegion, src Texture, srcRegion TextureRegion) {
	if !cb.rs.checkTransfer(CmdCopyTexture) {
		return
	}
	cb.record(CopyTextureCommand{Dst: dst, DstRegion: dstRegion, Src: src, SrcRegion: srcRegion})
}

// UpdateBuffer writes inline data into a buffer. The data is copied so
// the caller may reuse its slice after the call.
func (cb *deferredCommandBuffer) UpdateBuffer(dst Buffer, offset uint64, data []byte) {
	if !cb.rs.checkTransfer(CmdUpdateBuffer) {
		return
	}
	cb.record(UpdateBufferCommand{Dst: dst, Offset: offset, Data: append([]byte(nil), data...)})
}

// ClearAttachments clears the bound attachments mid-pass.
func (cb *deferredCommandBuffer) ClearAttachments(color ClearColor, clearDepth bool, depth float32) {
	if !cb.rs.checkInPass(CmdClearAttachments) {
		return
	}
	cb.record(ClearAttachmentsCommand{Color: color, ClearDepth: clearDepth, Depth: depth})
}

// WriteTimestamp records a timestamp into a query slot.
func (cb *deferredCommandBuffer) WriteTimestamp(heap QueryHeap, query uint32) {
	if cb.rs.err != nil {
		return
	}
	cb.record(WriteTimestampCommand{Heap: heap, Query: query})
}

// validateComplete checks that every recorded draw and dispatch has the
// state it depends on bound earlier in the recording. The queue runs it
// before replay; a violation fails the submission.
func (cb *deferredCommandBuffer) validateComplete() error {
	var pipeline Pipeline
	indexBound := false
	for _, c := range cb.cmds {
		switch cmd := c.(type) {
		case BindPipelineCommand:
			pipeline = cmd.Pipeline
		case BindIndexBufferCommand:
			indexBound = true
		case DrawCommand, DrawIndirectCommand, DispatchCommand, DispatchIndirectCommand:
			if pipeline == nil {
				return fmt.Errorf("%w: %s with no pipeline bound", ErrIncompleteState, c.Type())
			}
		case DrawIndexedCommand:
			if pipeline == nil {
				return fmt.Errorf("%w: DrawIndexed with no pipeline bound", ErrIncompleteState)
			}
			if !indexBound {
				return fmt.Errorf("%w: DrawIndexed with no index buffer bound", ErrIncompleteState)
			}
		}
	}
	return nil
}

// replay plays the recorded commands into a fresh encoder. Called by the
// queue once per submission.
func (cb *deferredCommandBuffer) replay(enc driver.Encoder) error {
	for _, c := range cb.cmds {
		switch cmd := c.(type) {
		case BindPipelineCommand:
			enc.SetPipeline(cmd.Pipeline)
		case BindVertexBufferCommand:
			enc.SetVertexBuffer(cmd.Slot, cmd.Buffer, cmd.Offset)
		case BindVertexBufferArrayCommand:
			enc.SetVertexBufferArray(cmd.Array)
		case BindIndexBufferCommand:
			enc.SetIndexBuffer(cmd.Buffer, cmd.Format, cmd.Offset)
		case BindConstantBufferCommand:
			enc.SetConstantBuffer(cmd.Slot, cmd.Buffer, cmd.Stages)
		case BindTextureCommand:
			enc.SetTexture(cmd.Slot, cmd.Texture, cmd.Stages)
		case BindSamplerCommand:
			enc.SetSampler(cmd.Slot, cmd.Sampler, cmd.Stages)
		case BeginRenderPassCommand:
			if err := enc.BeginRenderPass(cmd.Target, cmd.Pass, cmd.Clears); err != nil {
				return err
			}
		case EndRenderPassCommand:
			enc.EndRenderPass()
		case SetViewportCommand:
			enc.SetViewport(cmd.Viewport)
		case SetScissorCommand:
			enc.SetScissor(cmd.Scissor)
		case DrawCommand:
			enc.Draw(cmd.VertexCount, cmd.InstanceCount, cmd.FirstVertex, cmd.FirstInstance)
		case DrawIndexedCommand:
			enc.DrawIndexed(cmd.IndexCount, cmd.InstanceCount, cmd.FirstIndex, cmd.BaseVertex, cmd.FirstInstance)
		case DrawIndirectCommand:
			if err := enc.DrawIndirect(cmd.Buffer, cmd.Offset); err != nil {
				return err
			}
		case DispatchCommand:
			enc.Dispatch(cmd.GroupsX, cmd.GroupsY, cmd.GroupsZ)
		case DispatchIndirectCommand:
			if err := enc.DispatchIndirect(cmd.Buffer, cmd.Offset); err != nil {
				return err
			}
		case BarrierCommand:
			enc.Barrier()
		case CopyBufferCommand:
			if err := enc.CopyBuffer(cmd.Dst, cmd.DstOffset, cmd.Src, cmd.SrcOffset, cmd.Size); err != nil {
				return err
			}
		case CopyTextureCommand:
			if err := enc.CopyTexture(cmd.Dst, cmd.DstRegion, cmd.Src, cmd.SrcRegion); err != nil {
				return err
			}
		case UpdateBufferCommand:
			if err := enc.UpdateBuffer(cmd.Dst, cmd.Offset, cmd.Data); err != nil {
				return err
			}
		case ClearAttachmentsCommand:
			enc.ClearAttachments(cmd.Color, cmd.ClearDepth, cmd.Depth)
		case WriteTimestampCommand:
			enc.WriteTimestamp(cmd.Heap, cmd.Query)
		case BeginQueryCommand:
			enc.BeginQuery(cmd.Heap, cmd.Query)
		case EndQueryCommand:
			enc.EndQuery(cmd.Heap, cmd.Query)
		}
	}
	return nil
}
