package null

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/rhi/driver"
)

// nullEncoder records commands as closures over the software device
// state. Nothing executes until the payload is submitted, matching the
// deferred execution model of real devices.
type nullEncoder struct {
	adapter *Adapter
	ops     []func() error

	// recording state, used to resolve pass-relative commands like
	// ClearAttachments at record time.
	target   *nullRenderTarget
	pipeline *nullPipeline
	finished bool

	// draws counts executed draw calls; open query slots snapshot it at
	// execution time so EndQuery can store the delta.
	draws       *uint64
	queryStarts map[*nullQueryHeap]map[uint32]*uint64
}

// NewEncoder creates a command encoder.
func (a *Adapter) NewEncoder() (driver.Encoder, error) {
	if !a.initialized {
		return nil, driver.ErrNotInitialized
	}
	return &nullEncoder{adapter: a, draws: new(uint64)}, nil
}

func (e *nullEncoder) record(op func() error) {
	e.ops = append(e.ops, op)
}

// BeginRenderPass starts a render pass into the given target, applying
// LoadOpClear attachments immediately at execution time.
func (e *nullEncoder) BeginRenderPass(target driver.RenderTarget, pass driver.RenderPass, clears []driver.ClearColor) error {
	rt, ok := target.(*nullRenderTarget)
	if !ok {
		return fmt.Errorf("%w: target is not a null adapter render target", driver.ErrInvalidCombination)
	}
	var desc *driver.RenderPassDescriptor
	if rp, ok := pass.(*nullRenderPass); ok {
		desc = &rp.desc
	}
	e.target = rt
	e.record(func() error {
		for i, att := range rt.colors {
			if desc != nil && i < len(desc.ColorAttachments) &&
				desc.ColorAttachments[i].LoadOp != driver.LoadOpClear {
				continue
			}
			var c driver.ClearColor
			if i < len(clears) {
				c = clears[i]
			}
			clearColorAttachment(att, c)
		}
		return nil
	})
	return nil
}

// EndRenderPass ends the current render pass.
func (e *nullEncoder) EndRenderPass() {
	e.target = nil
}

// SetPipeline binds a pipeline.
func (e *nullEncoder) SetPipeline(p driver.Pipeline) {
	if np, ok := p.(*nullPipeline); ok {
		e.pipeline = np
	}
}

// SetVertexBuffer binds a vertex buffer. The software device keeps no
// slot table; binding is a no-op beyond validation done by the caller.
func (e *nullEncoder) SetVertexBuffer(slot uint32, buf driver.Buffer, offset uint64) {}

// SetVertexBufferArray binds all members of a vertex buffer array.
func (e *nullEncoder) SetVertexBufferArray(arr driver.BufferArray) {}

// SetIndexBuffer binds the index buffer.
func (e *nullEncoder) SetIndexBuffer(buf driver.Buffer, format driver.IndexFormat, offset uint64) {}

// SetConstantBuffer binds a constant buffer.
func (e *nullEncoder) SetConstantBuffer(slot uint32, buf driver.Buffer, stages driver.StageFlags) {}

// SetTexture binds a texture for sampling.
func (e *nullEncoder) SetTexture(slot uint32, tex driver.Texture, stages driver.StageFlags) {}

// SetSampler binds a sampler.
func (e *nullEncoder) SetSampler(slot uint32, s driver.Sampler, stages driver.StageFlags) {}

// SetViewport sets the viewport transform.
func (e *nullEncoder) SetViewport(vp driver.Viewport) {}

// SetScissor sets the scissor rectangle.
func (e *nullEncoder) SetScissor(sc driver.Scissor) {}

// Draw counts the draw without rasterizing.
func (e *nullEncoder) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	draws := e.draws
	e.record(func() error { *draws++; return nil })
}

// DrawIndexed counts the draw without rasterizing.
func (e *nullEncoder) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	draws := e.draws
	e.record(func() error { *draws++; return nil })
}

// Dispatch counts the dispatch without executing shader code.
func (e *nullEncoder) Dispatch(x, y, z uint32) {
	e.record(func() error { return nil })
}

// DrawIndirect reads the draw arguments from the buffer at execution
// time and counts the draw.
func (e *nullEncoder) DrawIndirect(buf driver.Buffer, offset uint64) error {
	b, ok := buf.(*nullBuffer)
	if !ok {
		return driver.ErrInvalidCombination
	}
	if offset+16 > b.size {
		return fmt.Errorf("%w: indirect arguments exceed buffer size", driver.ErrExceededCapacity)
	}
	draws := e.draws
	e.record(func() error {
		args := binary.LittleEndian.Uint32(b.data[offset:])
		if args > 0 {
			*draws++
		}
		return nil
	})
	return nil
}

// DispatchIndirect reads the workgroup counts from the buffer at
// execution time.
func (e *nullEncoder) DispatchIndirect(buf driver.Buffer, offset uint64) error {
	b, ok := buf.(*nullBuffer)
	if !ok {
		return driver.ErrInvalidCombination
	}
	if offset+12 > b.size {
		return fmt.Errorf("%w: indirect arguments exceed buffer size", driver.ErrExceededCapacity)
	}
	e.record(func() error { return nil })
	return nil
}

// Barrier is a no-op: the software device executes ops in order, so
// prior effects are always visible to later commands.
func (e *nullEncoder) Barrier() {}

// BeginQuery snapshots the draw counter for the slot at execution time.
func (e *nullEncoder) BeginQuery(heap driver.QueryHeap, query uint32) {
	h, ok := heap.(*nullQueryHeap)
	if !ok || query >= uint32(len(h.values)) {
		return
	}
	if e.queryStarts == nil {
		e.queryStarts = make(map[*nullQueryHeap]map[uint32]*uint64)
	}
	if e.queryStarts[h] == nil {
		e.queryStarts[h] = make(map[uint32]*uint64)
	}
	start := new(uint64)
	e.queryStarts[h][query] = start
	draws := e.draws
	e.record(func() error { *start = *draws; return nil })
}

// EndQuery stores the number of draws since the matching BeginQuery.
func (e *nullEncoder) EndQuery(heap driver.QueryHeap, query uint32) {
	h, ok := heap.(*nullQueryHeap)
	if !ok || query >= uint32(len(h.values)) {
		return
	}
	start := e.queryStarts[h][query]
	if start == nil {
		return
	}
	draws := e.draws
	e.record(func() error {
		h.values[query] = *draws - *start
		return nil
	})
}

// CopyBuffer copies a byte range between buffers at execution time.
func (e *nullEncoder) CopyBuffer(dst driver.Buffer, dstOffset uint64, src driver.Buffer, srcOffset, size uint64) error {
	d, ok := dst.(*nullBuffer)
	if !ok {
		return driver.ErrInvalidCombination
	}
	s, ok := src.(*nullBuffer)
	if !ok {
		return driver.ErrInvalidCombination
	}
	if srcOffset+size > s.size || dstOffset+size > d.size {
		return fmt.Errorf("%w: copy range exceeds buffer size", driver.ErrExceededCapacity)
	}
	e.record(func() error {
		copy(d.data[dstOffset:dstOffset+size], s.data[srcOffset:srcOffset+size])
		return nil
	})
	return nil
}

// CopyTexture copies a region between textures at execution time.
func (e *nullEncoder) CopyTexture(dst driver.Texture, dstRegion driver.TextureRegion, src driver.Texture, srcRegion driver.TextureRegion) error {
	d, ok := dst.(*nullTexture)
	if !ok {
		return driver.ErrInvalidCombination
	}
	s, ok := src.(*nullTexture)
	if !ok {
		return driver.ErrInvalidCombination
	}
	if d.format != s.format {
		return fmt.Errorf("%w: copy between formats %v and %v", driver.ErrInvalidCombination, s.format, d.format)
	}
	e.record(func() error {
		tmp := make([]byte, uint64(srcRegion.Extent.Width)*uint64(srcRegion.Extent.Height)*
			uint64(srcRegion.Extent.Depth)*uint64(bytesPerTexel(s.format)))
		if err := s.transfer(srcRegion, tmp, false); err != nil {
			return err
		}
		return d.transfer(dstRegion, tmp, true)
	})
	return nil
}

// UpdateBuffer writes data into a buffer from within the command stream.
func (e *nullEncoder) UpdateBuffer(dst driver.Buffer, offset uint64, data []byte) error {
	d, ok := dst.(*nullBuffer)
	if !ok {
		return driver.ErrInvalidCombination
	}
	if offset+uint64(len(data)) > d.size {
		return fmt.Errorf("%w: update range exceeds buffer size", driver.ErrExceededCapacity)
	}
	staged := append([]byte(nil), data...)
	e.record(func() error {
		copy(d.data[offset:], staged)
		return nil
	})
	return nil
}

// ClearAttachments clears the attachments of the pass being recorded.
func (e *nullEncoder) ClearAttachments(color driver.ClearColor, clearDepth bool, depth float32) {
	rt := e.target
	if rt == nil {
		return
	}
	e.record(func() error {
		for _, att := range rt.colors {
			clearColorAttachment(att, color)
		}
		return nil
	})
}

// WriteTimestamp records a monotonically increasing tick into the query
// slot at execution time.
func (e *nullEncoder) WriteTimestamp(heap driver.QueryHeap, query uint32) {
	h, ok := heap.(*nullQueryHeap)
	if !ok || query >= uint32(len(h.values)) {
		return
	}
	e.record(func() error {
		h.values[query] = nextTick()
		return nil
	})
}

// Finish ends recording and returns the executable payload.
func (e *nullEncoder) Finish() (driver.CommandPayload, error) {
	if e.finished {
		return nil, fmt.Errorf("%w: encoder already finished", driver.ErrInvalidCombination)
	}
	e.finished = true
	p := &nullPayload{ops: e.ops}
	e.ops = nil
	return p, nil
}

// Discard abandons recording.
func (e *nullEncoder) Discard() {
	e.finished = true
	e.ops = nil
}

// clearColorAttachment fills one attachment sub-resource with the clear
// color, converted to the attachment format.
func clearColorAttachment(att driver.RenderTargetAttachment, c driver.ClearColor) {
	t, ok := att.Texture.(*nullTexture)
	if !ok || att.MipLevel >= t.mips {
		return
	}
	e := t.levelExtent(att.MipLevel)
	bpp := bytesPerTexel(t.format)
	texel := make([]byte, bpp)
	switch t.format {
	case driver.FormatRGBA8Unorm:
		texel[0], texel[1], texel[2], texel[3] = toByte(c.R), toByte(c.G), toByte(c.B), toByte(c.A)
	case driver.FormatBGRA8Unorm:
		texel[0], texel[1], texel[2], texel[3] = toByte(c.B), toByte(c.G), toByte(c.R), toByte(c.A)
	case driver.FormatR8Unorm:
		texel[0] = toByte(c.R)
	}
	level := t.levels[att.MipLevel]
	base := t.texelOffset(att.MipLevel, att.Layer, driver.Origin3D{})
	n := uint64(e.Width) * uint64(e.Height) * uint64(max32(e.Depth, 1))
	for i := uint64(0); i < n; i++ {
		copy(level[base+i*uint64(bpp):], texel)
	}
}

func toByte(v float64) byte {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return byte(v*255 + 0.5)
}
