package rhi

import (
	"github.com/gogpu/rhi/driver"
)

// immediateCommandBuffer forwards every call to a live encoder as it is
// recorded and executes the work against the device when End is called.
// It never enters the Closed state and is not submitted to the queue;
// nothing is retained across recordings. Violations latch just like in
// the deferred implementation; a latched recording discards the encoder.
type immediateCommandBuffer struct {
	label   string
	adapter driver.Adapter
	state   CommandBufferState
	rs      recordState
	enc     driver.Encoder
}

func newImmediateCommandBuffer(label string, adapter driver.Adapter) *immediateCommandBuffer {
	return &immediateCommandBuffer{label: label, adapter: adapter, state: StateCompleted}
}

// Label returns the debug name.
func (cb *immediateCommandBuffer) Label() string { return cb.label }

// State returns the current lifecycle state.
func (cb *immediateCommandBuffer) State() CommandBufferState { return cb.state }

// Begin starts recording against a fresh encoder.
func (cb *immediateCommandBuffer) Begin() {
	if cb.state == StateSubmitted || cb.state == StateExecuting {
		cb.rs.latchf(ErrInvalidState, "Begin in state %s", cb.state)
		return
	}
	cb.discardPending()
	cb.rs.reset()

	enc, err := cb.adapter.NewEncoder()
	if err != nil {
		cb.rs.latch(err)
		cb.state = StateRecording
		return
	}
	cb.enc = enc
	cb.state = StateRecording
}

// End finishes recording and executes the recorded work against the
// device before returning. The buffer passes through Executing to
// Completed; there is no Closed state and no queue submission.
func (cb *immediateCommandBuffer) End() error {
	if cb.rs.err != nil {
		err := cb.rs.err
		cb.discardPending()
		cb.state = StateCompleted
		cb.rs.reset()
		return err
	}
	if cb.state != StateRecording {
		return errStatef("End", cb.state)
	}
	if cb.rs.insidePass {
		cb.discardPending()
		cb.state = StateCompleted
		return errUnbalancedPass()
	}
	payload, err := cb.enc.Finish()
	cb.enc = nil
	if err != nil {
		cb.state = StateCompleted
		return err
	}
	cb.state = StateExecuting
	err = cb.adapter.Queue().Submit(payload, nil)
	cb.state = StateCompleted
	return err
}

func (cb *immediateCommandBuffer) discardPending() {
	if cb.enc != nil {
		cb.enc.Discard()
		cb.enc = nil
	}
}

// live reports whether forwarding to the encoder is currently possible.
func (cb *immediateCommandBuffer) live() bool {
	if cb.rs.err != nil || cb.enc == nil {
		return false
	}
	if cb.state != StateRecording {
		cb.rs.latchf(ErrInvalidState, "recording in state %s", cb.state)
		return false
	}
	return true
}

// BindPipeline binds a pipeline.
func (cb *immediateCommandBuffer) BindPipeline(p Pipeline) {
	if p == nil {
		cb.rs.latchf(ErrInvalidState, "BindPipeline with nil pipeline")
		return
	}
	if !cb.live() {
		return
	}
	cb.rs.pipeline = p
	cb.enc.SetPipeline(p)
}

// BindVertexBuffer binds a vertex buffer slot.
func (cb *immediateCommandBuffer) BindVertexBuffer(slot uint32, buf Buffer, offset uint64) {
	if !cb.live() {
		return
	}
	cb.enc.SetVertexBuffer(slot, buf, offset)
}

// BindVertexBufferArray binds a whole vertex buffer array.
func (cb *immediateCommandBuffer) BindVertexBufferArray(arr BufferArray) {
	if !cb.live() {
		return
	}
	cb.enc.SetVertexBufferArray(arr)
}

// BindIndexBuffer binds the index buffer.
func (cb *immediateCommandBuffer) BindIndexBuffer(buf Buffer, format IndexFormat, offset uint64) {
	if !cb.live() {
		return
	}
	cb.rs.indexFormat = format
	cb.enc.SetIndexBuffer(buf, format, offset)
}

// BindConstantBuffer binds a constant buffer slot.
func (cb *immediateCommandBuffer) BindConstantBuffer(slot uint32, buf Buffer, stages StageFlags) {
	if !cb.live() {
		return
	}
	cb.enc.SetConstantBuffer(slot, buf, stages)
}

// BindTexture binds a sampled texture slot.
func (cb *immediateCommandBuffer) BindTexture(slot uint32, tex Texture, stages StageFlags) {
	if !cb.live() {
		return
	}
	cb.enc.SetTexture(slot, tex, stages)
}

// BindSampler binds a sampler slot.
func (cb *immediateCommandBuffer) BindSampler(slot uint32, s Sampler, stages StageFlags) {
	if !cb.live() {
		return
	}
	cb.enc.SetSampler(slot, s, stages)
}

// BeginRenderPass begins a render pass.
func (cb *immediateCommandBuffer) BeginRenderPass(target RenderTarget, pass RenderPass, clears []ClearColor) {
	if !cb.live() {
		return
	}
	if cb.rs.insidePass {
		cb.rs.latchf(ErrInvalidState, "BeginRenderPass inside a render pass")
		return
	}
	if err := cb.enc.BeginRenderPass(target, pass, clears); err != nil {
		cb.rs.latch(err)
		return
	}
	cb.rs.insidePass = true
}

// EndRenderPass ends the current render pass.
func (cb *immediateCommandBuffer) EndRenderPass() {
	if !cb.live() || !cb.rs.checkInPass(CmdEndRenderPass) {
		return
	}
	cb.rs.insidePass = false
	cb.enc.EndRenderPass()
}

// SetViewport sets the viewport transform.
func (cb *immediateCommandBuffer) SetViewport(vp Viewport) {
	if !cb.live() || !cb.rs.checkInPass(CmdSetViewport) {
		return
	}
	cb.enc.SetViewport(vp)
}

// SetScissor sets the scissor rectangle.
func (cb *immediateCommandBuffer) SetScissor(sc Scissor) {
	if !cb.live() || !cb.rs.checkInPass(CmdSetScissor) {
		return
	}
	cb.enc.SetScissor(sc)
}

// Draw issues a non-indexed draw.
func (cb *immediateCommandBuffer) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	if !cb.live() || !cb.rs.checkDraw(CmdDraw) {
		return
	}
	cb.enc.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

// DrawIndexed issues an indexed draw.
func (cb *immediateCommandBuffer) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	if !cb.live() || !cb.rs.checkDrawIndexed() {
		return
	}
	cb.enc.DrawIndexed(indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
}

// Dispatch issues a compute dispatch.
func (cb *immediateCommandBuffer) Dispatch(x, y, z uint32) {
	if !cb.live() || !cb.rs.checkDispatch() {
		return
	}
	cb.enc.Dispatch(x, y, z)
}

// DrawIndirect issues a draw with buffer-sourced arguments.
func (cb *immediateCommandBuffer) DrawIndirect(buf Buffer, offset uint64) {
	if !cb.live() || !cb.rs.checkDraw(CmdDrawIndirect) || !cb.rs.checkIndirect(CmdDrawIndirect, buf, offset) {
		return
	}
	if err := cb.enc.DrawIndirect(buf, offset); err != nil {
		cb.rs.latch(err)
	}
}

// DispatchIndirect issues a dispatch with buffer-sourced counts.
func (cb *immediateCommandBuffer) DispatchIndirect(buf Buffer, offset uint64) {
	if !cb.live() || !cb.rs.checkDispatch() || !cb.rs.checkIndirect(CmdDispatchIndirect, buf, offset) {
		return
	}
	if err := cb.enc.DispatchIndirect(buf, offset); err != nil {
		cb.rs.latch(err)
	}
}

// Barrier orders prior effects before later reads.
func (cb *immediateCommandBuffer) Barrier() {
	if !cb.live() || !cb.rs.checkTransfer(CmdBarrier) {
		return
	}
	cb.enc.Barrier()
}

// BeginQuery opens a query slot.
func (cb *immediateCommandBuffer) BeginQuery(heap QueryHeap, query uint32) {
	if !cb.live() || !cb.rs.checkBeginQuery(heap, query) {
		return
	}
	cb.enc.BeginQuery(heap, query)
}

// EndQuery closes the open query slot.
func (cb *immediateCommandBuffer) EndQuery(heap QueryHeap, query uint32) {
	if !cb.live() || !cb.rs.checkEndQuery() {
		return
	}
	cb.enc.EndQuery(heap, query)
}

// CopyBuffer copies a byte range between buffers.
func (cb *immediateCommandBuffer) CopyBuffer(dst Buffer, dstOffset uint64, src Buffer, srcOffset, size uint64) {
	if !cb.live() || !cb.rs.checkTransfer(CmdCopyBuffer) {
		return
	}
	if err := cb.enc.CopyBuffer(dst, dstOffset, src, srcOffset, size); err != nil {
		cb.rs.latch(err)
	}
}

// CopyTexture copies a region between textures.
func (cb *immediateCommandBuffer) CopyTexture(dst Texture, dstRegion TextureRegion, src Texture, srcRegion TextureRegion) {
	if !cb.live() || !cb.rs.checkTransfer(CmdCopyTexture) {
		return
	}
	if err := cb.enc.CopyTexture(dst, dstRegion, src, srcRegion); err != nil {
		cb.rs.latch(err)
	}
}

// UpdateBuffer writes inline data into a buffer.
func (cb *immediateCommandBuffer) UpdateBuffer(dst Buffer, offset uint64, data []byte) {
	if !cb.live() || !cb.rs.checkTransfer(CmdUpdateBuffer) {
		return
	}
	if err := cb.enc.UpdateBuffer(dst, offset, data); err != nil {
		cb.rs.latch(err)
	}
}

// ClearAttachments clears the bound attachments mid-pass.
func (cb *immediateCommandBuffer) ClearAttachments(color ClearColor, clearDepth bool, depth float32) {
	if !cb.live() || !cb.rs.checkInPass(CmdClearAttachments) {
		return
	}
	cb.enc.ClearAttachments(color, clearDepth, depth)
}

// WriteTimestamp records a timestamp into a query slot.
func (cb *immediateCommandBuffer) WriteTimestamp(heap QueryHeap, query uint32) {
	if !cb.live() {
		return
	}
	cb.enc.WriteTimestamp(heap, query)
}
