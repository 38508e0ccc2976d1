package rhi

import "fmt"

// CommandBufferState tracks a command buffer through its lifecycle.
//
// The legal transitions for deferred buffers are:
//
//	Recording -> Closed      (End)
//	Closed    -> Submitted   (Queue.Submit)
//	Submitted -> Executing   (queue starts the work)
//	Executing -> Completed   (work finished on the device)
//	Completed -> Recording   (Begin, re-record)
//	Closed    -> Recording   (Begin, discard and re-record)
//
// Multi-submit deferred buffers return to Closed instead of Completed
// when a submission finishes, so the recording stays submittable.
// Immediate buffers have no Closed state: End executes the recording
// against the device, passing through Executing to Completed before it
// returns.
type CommandBufferState uint8

const (
	// StateRecording accepts command recording.
	StateRecording CommandBufferState = iota

	// StateClosed holds a finished recording awaiting submission.
	StateClosed

	// StateSubmitted is enqueued but not yet running.
	StateSubmitted

	// StateExecuting is running on the device.
	StateExecuting

	// StateCompleted has finished executing.
	StateCompleted
)

// commandBufferStateNames maps states to their string representation.
var commandBufferStateNames = [...]string{
	StateRecording: "Recording",
	StateClosed:    "Closed",
	StateSubmitted: "Submitted",
	StateExecuting: "Executing",
	StateCompleted: "Completed",
}

// String returns the string representation of the state.
func (s CommandBufferState) String() string {
	if int(s) < len(commandBufferStateNames) {
		return commandBufferStateNames[s]
	}
	return "Unknown"
}

// CommandBufferFlags control command buffer creation.
type CommandBufferFlags uint32

const (
	// CmdBufferMultiSubmit lets a deferred recording be submitted
	// repeatedly; the buffer cycles back to Closed after each submission
	// completes. Without it a recording is consumed by its first submit.
	CmdBufferMultiSubmit CommandBufferFlags = 1 << iota
)

// Contains reports whether all flags in o are set.
func (f CommandBufferFlags) Contains(o CommandBufferFlags) bool { return f&o == o }

// CommandBuffer records device commands.
//
// Two implementations exist. Deferred buffers store typed command
// records and replay them into a fresh encoder when submitted to the
// queue; with CmdBufferMultiSubmit one recording can be submitted many
// times. Immediate buffers forward each call to a live encoder and
// execute against the device when End is called, without a queue
// submission.
//
// Recording errors are sticky: the first violation latches and every
// later call is ignored until End returns the error. A command buffer
// is not safe for concurrent use.
type CommandBuffer interface {
	// Label returns the debug name assigned at creation.
	Label() string

	// State returns the current lifecycle state.
	State() CommandBufferState

	// Begin starts (or restarts) recording, discarding any previous
	// recording and clearing a latched error.
	Begin()

	// End finishes recording and returns the first error latched while
	// recording, if any. Immediate buffers also execute the recorded
	// work against the device before End returns.
	End() error

	// BindPipeline binds a graphics or compute pipeline.
	BindPipeline(p Pipeline)

	// BindVertexBuffer binds a vertex buffer to the given slot.
	BindVertexBuffer(slot uint32, buf Buffer, offset uint64)

	// BindVertexBufferArray binds all members of a vertex buffer array
	// starting at slot 0.
	BindVertexBufferArray(arr BufferArray)

	// BindIndexBuffer binds the index buffer.
	BindIndexBuffer(buf Buffer, format IndexFormat, offset uint64)

	// BindConstantBuffer binds a constant buffer to the given stages.
	BindConstantBuffer(slot uint32, buf Buffer, stages StageFlags)

	// BindTexture binds a texture for sampling.
	BindTexture(slot uint32, tex Texture, stages StageFlags)

	// BindSampler binds a sampler.
	BindSampler(slot uint32, s Sampler, stages StageFlags)

	// BeginRenderPass begins a render pass into the target. clears holds
	// one value per color attachment cleared at pass begin.
	BeginRenderPass(target RenderTarget, pass RenderPass, clears []ClearColor)

	// EndRenderPass ends the current render pass.
	EndRenderPass()

	// SetViewport sets the viewport transform. Only legal inside a pass.
	SetViewport(vp Viewport)

	// SetScissor sets the scissor rectangle. Only legal inside a pass.
	SetScissor(sc Scissor)

	// Draw issues a non-indexed draw. Requires a bound graphics pipeline
	// inside a render pass.
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)

	// DrawIndexed issues an indexed draw. Requires a bound graphics
	// pipeline inside a render pass.
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32)

	// Dispatch issues a compute dispatch. Requires a bound compute
	// pipeline outside any render pass.
	Dispatch(x, y, z uint32)

	// DrawIndirect issues a draw whose arguments are read from buf at
	// offset (4-byte aligned). Requires a bound graphics pipeline inside
	// a render pass.
	DrawIndirect(buf Buffer, offset uint64)

	// DispatchIndirect issues a dispatch whose workgroup counts are read
	// from buf at offset (4-byte aligned). Requires a bound compute
	// pipeline outside any render pass.
	DispatchIndirect(buf Buffer, offset uint64)

	// Barrier orders the effects of prior commands before later reads.
	// Only legal outside render passes.
	Barrier()

	// BeginQuery opens a query slot; draws recorded until the matching
	// EndQuery accumulate into it. One slot may be open at a time.
	BeginQuery(heap QueryHeap, query uint32)

	// EndQuery closes the open query slot.
	EndQuery(heap QueryHeap, query uint32)

	// CopyBuffer copies a byte range between buffers. Only legal outside
	// render passes.
	CopyBuffer(dst Buffer, dstOffset uint64, src Buffer, srcOffset, size uint64)

	// CopyTexture copies a region between textures of identical format.
	// Only legal outside render passes.
	CopyTexture(dst Texture, dstRegion TextureRegion, src Texture, srcRegion TextureRegion)

	// UpdateBuffer writes small inline data into a buffer. Only legal
	// outside render passes.
	UpdateBuffer(dst Buffer, offset uint64, data []byte)

	// ClearAttachments clears the bound attachments mid-pass.
	ClearAttachments(color ClearColor, clearDepth bool, depth float32)

	// WriteTimestamp records a timestamp into a query slot.
	WriteTimestamp(heap QueryHeap, query uint32)
}

func errStatef(op string, s CommandBufferState) error {
	return fmt.Errorf("%w: %s in state %s", ErrInvalidState, op, s)
}

func errUnbalancedPass() error {
	return fmt.Errorf("%w: End with an open render pass", ErrInvalidState)
}

// recordState carries the validation state shared by both command buffer
// implementations while recording.
//
// deferDiagnostics selects the deferred reporting mode: unbound-state
// violations (draw with no pipeline, indexed draw with no index buffer)
// are recorded anyway and diagnosed when the buffer is submitted.
// Structural violations (pass nesting, wrong pipeline kind) latch at
// record time in both modes.
type recordState struct {
	insidePass       bool
	insideQuery      bool
	pipeline         Pipeline
	indexFormat      IndexFormat
	err              error
	deferDiagnostics bool
}

func (rs *recordState) reset() {
	rs.insidePass = false
	rs.insideQuery = false
	rs.pipeline = nil
	rs.indexFormat = 0
	rs.err = nil
}

// latch records the first error. Later errors are dropped so End reports
// the root cause, not follow-on failures.
func (rs *recordState) latch(err error) {
	if rs.err == nil {
		rs.err = err
	}
}

func (rs *recordState) latchf(sentinel error, format string, args ...any) {
	rs.latch(fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...)))
}

// checkDraw validates a draw call: inside a pass with a graphics
// pipeline bound.
func (rs *recordState) checkDraw(cmd CommandType) bool {
	if rs.err != nil {
		return false
	}
	if !rs.insidePass {
		rs.latchf(ErrInvalidState, "%s outside a render pass", cmd)
		return false
	}
	if rs.pipeline == nil {
		if rs.deferDiagnostics {
			return true
		}
		rs.latchf(ErrNoPipelineBound, "%s with no pipeline bound", cmd)
		return false
	}
	if rs.pipeline.IsCompute() {
		rs.latchf(ErrInvalidState, "%s with a compute pipeline bound", cmd)
		return false
	}
	return true
}

// checkDispatch validates a dispatch: outside passes with a compute
// pipeline bound.
func (rs *recordState) checkDispatch() bool {
	if rs.err != nil {
		return false
	}
	if rs.insidePass {
		rs.latchf(ErrInvalidState, "Dispatch inside a render pass")
		return false
	}
	if rs.pipeline == nil {
		if rs.deferDiagnostics {
			return true
		}
		rs.latchf(ErrNoPipelineBound, "Dispatch with no pipeline bound")
		return false
	}
	if !rs.pipeline.IsCompute() {
		rs.latchf(ErrInvalidState, "Dispatch with a graphics pipeline bound")
		return false
	}
	return true
}

// checkTransfer validates a transfer command, which is only legal
// outside render passes.
func (rs *recordState) checkTransfer(cmd CommandType) bool {
	if rs.err != nil {
		return false
	}
	if rs.insidePass {
		rs.latchf(ErrInvalidState, "%s inside a render pass", cmd)
		return false
	}
	return true
}

// checkInPass validates a command that is only legal inside a pass.
func (rs *recordState) checkInPass(cmd CommandType) bool {
	if rs.err != nil {
		return false
	}
	if !rs.insidePass {
		rs.latchf(ErrInvalidState, "%s outside a render pass", cmd)
		return false
	}
	return true
}

// checkIndirect validates the indirect argument buffer and offset.
func (rs *recordState) checkIndirect(cmd CommandType, buf Buffer, offset uint64) bool {
	if rs.err != nil {
		return false
	}
	if buf == nil {
		rs.latchf(ErrInvalidState, "%s with nil argument buffer", cmd)
		return false
	}
	if offset%4 != 0 {
		rs.latchf(ErrInvalidState, "%s offset %d is not 4-byte aligned", cmd, offset)
		return false
	}
	return true
}

// checkBeginQuery validates opening a query slot.
func (rs *recordState) checkBeginQuery(heap QueryHeap, query uint32) bool {
	if rs.err != nil {
		return false
	}
	if heap == nil {
		rs.latchf(ErrInvalidState, "BeginQuery with nil heap")
		return false
	}
	if rs.insideQuery {
		rs.latchf(ErrInvalidState, "BeginQuery with a query already open")
		return false
	}
	if query >= heap.Count() {
		rs.latchf(ErrInvalidState, "BeginQuery slot %d out of range", query)
		return false
	}
	rs.insideQuery = true
	return true
}

// checkEndQuery validates closing the open query slot.
func (rs *recordState) checkEndQuery() bool {
	if rs.err != nil {
		return false
	}
	if !rs.insideQuery {
		rs.latchf(ErrInvalidState, "EndQuery with no query open")
		return false
	}
	rs.insideQuery = false
	return true
}

// checkDrawIndexed extends checkDraw with the index buffer requirement.
func (rs *recordState) checkDrawIndexed() bool {
	if !rs.checkDraw(CmdDrawIndexed) {
		return false
	}
	if rs.indexFormat == 0 {
		if rs.deferDiagnostics {
			return true
		}
		rs.latchf(ErrInvalidState, "DrawIndexed with no index buffer bound")
		return false
	}
	return true
}
