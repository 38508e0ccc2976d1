package wgpu

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rhi/driver"
)

// wgpuEncoder records commands into a HAL command encoder. Bindings are
// tracked host-side and flushed into a bind group right before each
// draw or dispatch, because the HAL wants the full group at once while
// the front end binds slot by slot.
//
// The front end validates command order, so the encoder only deals with
// HAL mechanics. HAL errors latch into err and surface from Finish.
type wgpuEncoder struct {
	adapter *Adapter
	enc     hal.CommandEncoder

	bindings *bindingState
	pipeline *wgpuPipeline

	target     *wgpuRenderTarget
	pass       *wgpuRenderPass
	clears     []driver.ClearColor
	renderPass hal.RenderPassEncoder

	// Vertex and index bindings applied lazily at draw time.
	vertexBuffers map[uint32]*wgpuBuffer
	vertexOffsets map[uint32]uint64
	indexBuffer   *wgpuBuffer
	indexFormat   driver.IndexFormat
	indexOffset   uint64

	viewport    *driver.Viewport
	scissor     *driver.Scissor
	passStarted bool // at least one hal pass was begun on this target

	// Pending depth clear for a forced pass restart.
	forceDepthClear bool
	forceDepthValue float32

	// Draw accounting for occlusion-style queries.
	drawCount   uint64
	queryStarts map[*wgpuQueryHeap]map[uint32]uint64

	payload *wgpuPayload
	err     error
}

// NewEncoder creates a command encoder.
func (a *Adapter) NewEncoder() (driver.Encoder, error) {
	if !a.initialized {
		return nil, driver.ErrNotInitialized
	}
	enc, err := a.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "rhi_encoder",
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create command encoder: %v", driver.ErrDeviceFailure, err)
	}
	if err := enc.BeginEncoding("rhi"); err != nil {
		return nil, fmt.Errorf("%w: begin encoding: %v", driver.ErrDeviceFailure, err)
	}
	return &wgpuEncoder{
		adapter:       a,
		enc:           enc,
		bindings:      newBindingState(),
		vertexBuffers: make(map[uint32]*wgpuBuffer),
		vertexOffsets: make(map[uint32]uint64),
		payload:       &wgpuPayload{device: a.device},
	}, nil
}

// latchf records the first HAL failure. Later commands become no-ops.
func (e *wgpuEncoder) latchf(format string, args ...any) {
	if e.err == nil {
		e.err = fmt.Errorf(format, args...)
	}
}

// BeginRenderPass starts a HAL render pass into the target.
func (e *wgpuEncoder) BeginRenderPass(target driver.RenderTarget, pass driver.RenderPass, clears []driver.ClearColor) error {
	wt, ok := target.(*wgpuRenderTarget)
	if !ok {
		return fmt.Errorf("%w: render target was not created by this adapter", driver.ErrInvalidCombination)
	}
	wp, ok := pass.(*wgpuRenderPass)
	if !ok {
		return fmt.Errorf("%w: render pass was not created by this adapter", driver.ErrInvalidCombination)
	}
	e.target = wt
	e.pass = wp
	e.clears = clears
	e.passStarted = false
	e.beginHALPass(false)
	return e.err
}

// beginHALPass opens the HAL pass. With forceClear the attachments load
// cleared regardless of the pass descriptor, which implements mid-pass
// ClearAttachments as a pass restart.
func (e *wgpuEncoder) beginHALPass(forceClear bool) {
	if e.err != nil {
		return
	}
	desc := &hal.RenderPassDescriptor{Label: e.pass.label}

	for i, att := range e.target.colors {
		loadOp := gputypes.LoadOpLoad
		storeOp := gputypes.StoreOpStore
		if i < len(e.pass.desc.ColorAttachments) {
			loadOp = convertLoadOp(e.pass.desc.ColorAttachments[i].LoadOp)
			storeOp = convertStoreOp(e.pass.desc.ColorAttachments[i].StoreOp)
		}
		if e.passStarted && !forceClear {
			// A restarted pass must not re-clear what the first leg drew.
			loadOp = gputypes.LoadOpLoad
		}
		if forceClear {
			loadOp = gputypes.LoadOpClear
		}
		var clearValue gputypes.Color
		if i < len(e.clears) {
			c := e.clears[i]
			clearValue = gputypes.Color{R: c.R, G: c.G, B: c.B, A: c.A}
		}
		desc.ColorAttachments = append(desc.ColorAttachments, hal.RenderPassColorAttachment{
			View:       att.view,
			LoadOp:     loadOp,
			StoreOp:    storeOp,
			ClearValue: clearValue,
		})
	}

	if e.target.depth != nil {
		depthLoad := convertLoadOp(e.pass.desc.DepthStencilAttachment.LoadOp)
		depthClear := float32(1.0)
		if e.passStarted {
			depthLoad = gputypes.LoadOpLoad
		}
		if forceClear && e.forceDepthClear {
			depthLoad = gputypes.LoadOpClear
			depthClear = e.forceDepthValue
		}
		desc.DepthStencilAttachment = &hal.RenderPassDepthStencilAttachment{
			View:              e.target.depth.view,
			DepthLoadOp:       depthLoad,
			DepthStoreOp:      gputypes.StoreOpStore,
			DepthClearValue:   depthClear,
			StencilLoadOp:     depthLoad,
			StencilStoreOp:    gputypes.StoreOpStore,
			StencilClearValue: 0,
		}
	}

	e.renderPass = e.enc.BeginRenderPass(desc)
	e.passStarted = true
	e.applyViewportScissor()
}

func (e *wgpuEncoder) applyViewportScissor() {
	if e.renderPass == nil {
		return
	}
	if vp := e.viewport; vp != nil {
		e.renderPass.SetViewport(vp.X, vp.Y, vp.Width, vp.Height, vp.MinDepth, vp.MaxDepth)
	}
	if sc := e.scissor; sc != nil {
		e.renderPass.SetScissorRect(uint32(sc.X), uint32(sc.Y), sc.Width, sc.Height)
	}
}

// EndRenderPass ends the current render pass.
func (e *wgpuEncoder) EndRenderPass() {
	if e.renderPass != nil {
		e.renderPass.End()
		e.renderPass = nil
	}
	e.target = nil
	e.pass = nil
	e.clears = nil
	e.bindings.reset()
}

// SetPipeline binds a graphics or compute pipeline.
func (e *wgpuEncoder) SetPipeline(p driver.Pipeline) {
	wp, ok := p.(*wgpuPipeline)
	if !ok {
		e.latchf("%w: pipeline was not created by this adapter", driver.ErrInvalidCombination)
		return
	}
	e.pipeline = wp
}

// SetVertexBuffer binds a vertex buffer to the given slot.
func (e *wgpuEncoder) SetVertexBuffer(slot uint32, buf driver.Buffer, offset uint64) {
	if wb, ok := buf.(*wgpuBuffer); ok {
		e.vertexBuffers[slot] = wb
		e.vertexOffsets[slot] = offset
	}
}

// SetVertexBufferArray binds all members starting at slot 0.
func (e *wgpuEncoder) SetVertexBufferArray(arr driver.BufferArray) {
	wa, ok := arr.(*wgpuBufferArray)
	if !ok {
		return
	}
	for i, member := range wa.members {
		e.vertexBuffers[uint32(i)] = member
		e.vertexOffsets[uint32(i)] = 0
	}
}

// SetIndexBuffer binds the index buffer.
func (e *wgpuEncoder) SetIndexBuffer(buf driver.Buffer, format driver.IndexFormat, offset uint64) {
	if wb, ok := buf.(*wgpuBuffer); ok {
		e.indexBuffer = wb
		e.indexFormat = format
		e.indexOffset = offset
	}
}

// SetConstantBuffer binds a buffer at the given slot. Buffers without
// the constant-buffer bind flag bind as storage.
func (e *wgpuEncoder) SetConstantBuffer(slot uint32, buf driver.Buffer, stages driver.StageFlags) {
	wb, ok := buf.(*wgpuBuffer)
	if !ok {
		return
	}
	e.bindings.buffers[slot] = boundBuffer{
		slot:    slot,
		buffer:  wb,
		uniform: wb.bindFlags.Contains(driver.BindConstantBuffer),
		stages:  stages,
	}
}

// SetTexture binds a texture for sampling at the given slot.
func (e *wgpuEncoder) SetTexture(slot uint32, tex driver.Texture, stages driver.StageFlags) {
	if wt, ok := tex.(*wgpuTexture); ok {
		e.bindings.textures[slot] = boundTexture{slot: slot, texture: wt, stages: stages}
	}
}

// SetSampler binds a sampler at the given slot.
func (e *wgpuEncoder) SetSampler(slot uint32, s driver.Sampler, stages driver.StageFlags) {
	if ws, ok := s.(*wgpuSampler); ok {
		e.bindings.samplers[slot] = boundSampler{slot: slot, sampler: ws, stages: stages}
	}
}

// SetViewport sets the viewport transform.
func (e *wgpuEncoder) SetViewport(vp driver.Viewport) {
	e.viewport = &vp
	if e.renderPass != nil {
		e.renderPass.SetViewport(vp.X, vp.Y, vp.Width, vp.Height, vp.MinDepth, vp.MaxDepth)
	}
}

// SetScissor sets the scissor rectangle.
func (e *wgpuEncoder) SetScissor(sc driver.Scissor) {
	e.scissor = &sc
	if e.renderPass != nil {
		e.renderPass.SetScissorRect(uint32(sc.X), uint32(sc.Y), sc.Width, sc.Height)
	}
}

// flushDrawState resolves the pipeline variant, builds the bind group,
// and applies vertex bindings. Returns false when a prior error latched.
func (e *wgpuEncoder) flushDrawState() bool {
	if e.err != nil || e.renderPass == nil || e.pipeline == nil {
		return false
	}

	built, err := e.adapter.pipelines.get(e.pipeline, e.bindings, e.target)
	if err != nil {
		e.latchf("pipeline variant: %w", err)
		return false
	}
	e.renderPass.SetPipeline(built.render)

	if bg, ok := e.makeBindGroup(built); ok {
		e.renderPass.SetBindGroup(0, bg, nil)
	} else if e.err != nil {
		return false
	}

	for slot, buf := range e.vertexBuffers {
		e.renderPass.SetVertexBuffer(slot, buf.buffer, e.vertexOffsets[slot])
	}
	if e.indexBuffer != nil {
		e.renderPass.SetIndexBuffer(e.indexBuffer.buffer, convertIndexFormat(e.indexFormat), e.indexOffset)
	}
	return true
}

// makeBindGroup creates a transient bind group for the current
// bindings. Returns ok=false with no error when nothing is bound.
func (e *wgpuEncoder) makeBindGroup(built *builtPipeline) (hal.BindGroup, bool) {
	entries := e.bindings.groupEntries()
	if len(entries) == 0 {
		return nil, false
	}
	bg, err := e.adapter.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   e.pipeline.label,
		Layout:  built.bgLayout,
		Entries: entries,
	})
	if err != nil {
		e.latchf("%w: bind group: %v", driver.ErrDeviceFailure, err)
		return nil, false
	}
	e.payload.bindGroups = append(e.payload.bindGroups, bg)
	return bg, true
}

// Draw issues a non-indexed draw.
func (e *wgpuEncoder) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	if e.flushDrawState() {
		e.renderPass.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
		e.drawCount++
	}
}

// DrawIndexed issues an indexed draw.
func (e *wgpuEncoder) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	if e.flushDrawState() {
		e.renderPass.DrawIndexed(indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
		e.drawCount++
	}
}

// Dispatch issues a compute dispatch in its own HAL compute pass.
func (e *wgpuEncoder) Dispatch(x, y, z uint32) {
	if e.err != nil || e.pipeline == nil {
		return
	}
	built, err := e.adapter.pipelines.get(e.pipeline, e.bindings, nil)
	if err != nil {
		e.latchf("pipeline variant: %w", err)
		return
	}

	pass := e.enc.BeginComputePass(&hal.ComputePassDescriptor{Label: e.pipeline.label})
	pass.SetPipeline(built.compute)
	if bg, ok := e.makeBindGroup(built); ok {
		pass.SetBindGroup(0, bg, nil)
	} else if e.err != nil {
		pass.End()
		return
	}
	pass.Dispatch(x, y, z)
	pass.End()
}

// DrawIndirect samples the draw arguments from the buffer at record time
// and issues them as a direct draw. The HAL pass encoders expose no
// indirect entry point, so GPU-written arguments from the same command
// buffer are not observed.
func (e *wgpuEncoder) DrawIndirect(buf driver.Buffer, offset uint64) error {
	wb, ok := buf.(*wgpuBuffer)
	if !ok {
		return fmt.Errorf("%w: buffer was not created by this adapter", driver.ErrInvalidCombination)
	}
	if offset+16 > wb.size {
		return fmt.Errorf("%w: indirect arguments exceed buffer size", driver.ErrExceededCapacity)
	}
	var raw [16]byte
	if err := e.adapter.queue.readDeviceBuffer(wb.buffer, offset, raw[:]); err != nil {
		return err
	}
	e.Draw(
		binary.LittleEndian.Uint32(raw[0:]),
		binary.LittleEndian.Uint32(raw[4:]),
		binary.LittleEndian.Uint32(raw[8:]),
		binary.LittleEndian.Uint32(raw[12:]),
	)
	return nil
}

// DispatchIndirect samples the workgroup counts from the buffer at
// record time and issues them as a direct dispatch.
func (e *wgpuEncoder) DispatchIndirect(buf driver.Buffer, offset uint64) error {
	wb, ok := buf.(*wgpuBuffer)
	if !ok {
		return fmt.Errorf("%w: buffer was not created by this adapter", driver.ErrInvalidCombination)
	}
	if offset+12 > wb.size {
		return fmt.Errorf("%w: indirect arguments exceed buffer size", driver.ErrExceededCapacity)
	}
	var raw [12]byte
	if err := e.adapter.queue.readDeviceBuffer(wb.buffer, offset, raw[:]); err != nil {
		return err
	}
	e.Dispatch(
		binary.LittleEndian.Uint32(raw[0:]),
		binary.LittleEndian.Uint32(raw[4:]),
		binary.LittleEndian.Uint32(raw[8:]),
	)
	return nil
}

// Barrier is a no-op: submissions execute synchronously and the HAL
// tracks resource transitions internally, so prior effects are ordered
// before later reads already.
func (e *wgpuEncoder) Barrier() {}

// BeginQuery snapshots the recorded draw count for the slot.
func (e *wgpuEncoder) BeginQuery(heap driver.QueryHeap, query uint32) {
	h, ok := heap.(*wgpuQueryHeap)
	if !ok || query >= uint32(len(h.values)) {
		return
	}
	if e.queryStarts == nil {
		e.queryStarts = make(map[*wgpuQueryHeap]map[uint32]uint64)
	}
	if e.queryStarts[h] == nil {
		e.queryStarts[h] = make(map[uint32]uint64)
	}
	e.queryStarts[h][query] = e.drawCount
}

// EndQuery resolves the slot to the number of draws recorded since the
// matching BeginQuery, available after the submission completes.
func (e *wgpuEncoder) EndQuery(heap driver.QueryHeap, query uint32) {
	h, ok := heap.(*wgpuQueryHeap)
	if !ok || query >= uint32(len(h.values)) {
		return
	}
	starts, ok := e.queryStarts[h]
	if !ok {
		return
	}
	start, ok := starts[query]
	if !ok {
		return
	}
	count := e.drawCount - start
	e.payload.postOps = append(e.payload.postOps, func() error {
		h.values[query] = count
		return nil
	})
}

// CopyBuffer copies a byte range between buffers.
func (e *wgpuEncoder) CopyBuffer(dst driver.Buffer, dstOffset uint64, src driver.Buffer, srcOffset, size uint64) error {
	wd, dok := dst.(*wgpuBuffer)
	ws, sok := src.(*wgpuBuffer)
	if !dok || !sok {
		return fmt.Errorf("%w: buffer was not created by this adapter", driver.ErrInvalidCombination)
	}
	if srcOffset+size > ws.size || dstOffset+size > wd.size {
		return fmt.Errorf("%w: copy range out of bounds", driver.ErrExceededCapacity)
	}
	e.enc.CopyBufferToBuffer(ws.buffer, wd.buffer, []hal.BufferCopy{{
		SrcOffset: srcOffset,
		DstOffset: dstOffset,
		Size:      size,
	}})
	return nil
}

// CopyTexture copies a region between textures of identical format.
// The HAL exposes texture-to-buffer copies only, so the copy routes
// through a staging buffer recorded into this command stream, and the
// staging contents land in dst right after the submission completes.
func (e *wgpuEncoder) CopyTexture(dst driver.Texture, dstRegion driver.TextureRegion, src driver.Texture, srcRegion driver.TextureRegion) error {
	wd, dok := dst.(*wgpuTexture)
	ws, sok := src.(*wgpuTexture)
	if !dok || !sok {
		return fmt.Errorf("%w: texture was not created by this adapter", driver.ErrInvalidCombination)
	}
	if wd.format != ws.format {
		return fmt.Errorf("%w: copy between %v and %v", driver.ErrInvalidCombination, ws.format, wd.format)
	}

	texel := formatTexelSize(ws.format)
	extent := srcRegion.Extent
	bytesPerRow := alignUp(extent.Width*texel, copyPitchAlignment)
	stagingSize := uint64(bytesPerRow) * uint64(extent.Height) * uint64(extent.Depth)

	staging, err := e.adapter.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "rhi_copy_staging",
		Size:  stagingSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("%w: staging buffer: %v", driver.ErrDeviceFailure, err)
	}

	e.enc.CopyTextureToBuffer(ws.texture, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  bytesPerRow,
			RowsPerImage: extent.Height,
		},
		TextureBase: hal.ImageCopyTexture{
			Texture:  ws.texture,
			MipLevel: srcRegion.MipLevel,
			Origin:   hal.Origin3D{X: srcRegion.Origin.X, Y: srcRegion.Origin.Y, Z: srcRegion.Layer + srcRegion.Origin.Z},
		},
		Size: hal.Extent3D{
			Width:              extent.Width,
			Height:             extent.Height,
			DepthOrArrayLayers: extent.Depth,
		},
	}})

	adapter := e.adapter
	e.payload.postOps = append(e.payload.postOps, func() error {
		defer adapter.device.DestroyBuffer(staging)
		data := make([]byte, stagingSize)
		if err := adapter.queue.readHALBuffer(staging, 0, data); err != nil {
			return err
		}
		tight := stripRowPadding(data, extent, texel, bytesPerRow)
		return adapter.WriteTexture(wd, driver.TextureRegion{
			Origin:   dstRegion.Origin,
			Extent:   extent,
			MipLevel: dstRegion.MipLevel,
			Layer:    dstRegion.Layer,
		}, tight)
	})
	return nil
}

// UpdateBuffer schedules a small inline buffer write, ordered before
// the submission on the queue timeline.
func (e *wgpuEncoder) UpdateBuffer(dst driver.Buffer, offset uint64, data []byte) error {
	wb, ok := dst.(*wgpuBuffer)
	if !ok {
		return fmt.Errorf("%w: buffer was not created by this adapter", driver.ErrInvalidCombination)
	}
	if offset+uint64(len(data)) > wb.size {
		return fmt.Errorf("%w: update range out of bounds", driver.ErrExceededCapacity)
	}
	staged := append([]byte(nil), data...)
	queue := e.adapter.halQueue
	e.payload.preOps = append(e.payload.preOps, func() error {
		queue.WriteBuffer(wb.buffer, offset, staged)
		return nil
	})
	return nil
}

// ClearAttachments restarts the HAL pass with clearing load ops, which
// clears the bound attachments without a descriptor round trip.
func (e *wgpuEncoder) ClearAttachments(color driver.ClearColor, clearDepth bool, depth float32) {
	if e.renderPass == nil || e.err != nil {
		return
	}
	e.renderPass.End()
	e.renderPass = nil

	clears := make([]driver.ClearColor, len(e.target.colors))
	for i := range clears {
		clears[i] = color
	}
	saved := e.clears
	e.clears = clears
	e.forceDepthClear = clearDepth
	e.forceDepthValue = depth
	e.beginHALPass(true)
	e.clears = saved
	e.forceDepthClear = false
}

// WriteTimestamp records a host timestamp taken when the submission
// carrying this command completes.
func (e *wgpuEncoder) WriteTimestamp(heap driver.QueryHeap, query uint32) {
	wq, ok := heap.(*wgpuQueryHeap)
	if !ok || uint64(query) >= uint64(len(wq.values)) {
		return
	}
	e.payload.postOps = append(e.payload.postOps, func() error {
		wq.values[query] = uint64(time.Now().UnixNano())
		return nil
	})
}

// Finish ends recording and returns the submittable payload.
func (e *wgpuEncoder) Finish() (driver.CommandPayload, error) {
	if e.renderPass != nil {
		e.renderPass.End()
		e.renderPass = nil
	}
	if e.err != nil {
		e.enc.DiscardEncoding()
		e.payload.release()
		return nil, e.err
	}
	cmd, err := e.enc.EndEncoding()
	if err != nil {
		e.payload.release()
		return nil, fmt.Errorf("%w: end encoding: %v", driver.ErrDeviceFailure, err)
	}
	e.payload.cmd = cmd
	return e.payload, nil
}

// Discard abandons recording without producing a payload.
func (e *wgpuEncoder) Discard() {
	if e.renderPass != nil {
		e.renderPass.End()
		e.renderPass = nil
	}
	e.enc.DiscardEncoding()
	e.payload.release()
}

// alignUp rounds v up to the next multiple of align (a power of two).
func alignUp(v, align uint32) uint32 {
	return (v + align - 1) &^ (align - 1)
}

// stripRowPadding removes the per-row copy pitch padding from readback
// data, returning tightly packed texels.
func stripRowPadding(data []byte, extent driver.Extent3D, texel, bytesPerRow uint32) []byte {
	tightRow := extent.Width * texel
	if bytesPerRow == tightRow {
		return data[:uint64(tightRow)*uint64(extent.Height)*uint64(extent.Depth)]
	}
	tight := make([]byte, uint64(tightRow)*uint64(extent.Height)*uint64(extent.Depth))
	rows := extent.Height * extent.Depth
	for row := uint32(0); row < rows; row++ {
		src := uint64(row) * uint64(bytesPerRow)
		dst := uint64(row) * uint64(tightRow)
		copy(tight[dst:dst+uint64(tightRow)], data[src:src+uint64(tightRow)])
	}
	return tight
}
