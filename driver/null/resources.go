package null

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gogpu/rhi/driver"
	"github.com/gogpu/rhi/internal/statecache"
)

// bytesPerTexel returns the byte size of one texel, or 0 for unknown
// formats.
func bytesPerTexel(f driver.Format) uint32 {
	switch f {
	case driver.FormatRGBA8Unorm, driver.FormatBGRA8Unorm, driver.FormatDepth24PlusStencil8:
		return 4
	case driver.FormatR8Unorm:
		return 1
	default:
		return 0
	}
}

// nullBuffer is a buffer backed by a host byte slice. CPU access uses a
// separate shadow slice so Map never exposes live storage.
type nullBuffer struct {
	label     string
	size      uint64
	bindFlags driver.BindFlags
	cpuAccess driver.CPUAccessFlags
	misc      driver.MiscFlags
	data      []byte

	shadow    []byte
	mapMode   driver.MapMode
	mapOffset uint64
	mapSize   uint64
}

func (b *nullBuffer) Kind() driver.ResourceKind   { return driver.KindBuffer }
func (b *nullBuffer) Label() string               { return b.label }
func (b *nullBuffer) Size() uint64                { return b.size }
func (b *nullBuffer) BindFlags() driver.BindFlags { return b.bindFlags }

// CreateBuffer creates a host-memory buffer.
func (a *Adapter) CreateBuffer(desc *driver.BufferDescriptor, initial []byte) (driver.Buffer, error) {
	if !a.initialized {
		return nil, driver.ErrNotInitialized
	}
	if desc.Size > a.caps.Limits.MaxBufferSize {
		return nil, driver.NewCreateError(driver.KindBuffer, driver.ErrExceededCapacity,
			"size %d exceeds limit %d", desc.Size, a.caps.Limits.MaxBufferSize)
	}
	b := &nullBuffer{
		label:     desc.Label,
		size:      desc.Size,
		bindFlags: desc.BindFlags,
		cpuAccess: desc.CPUAccessFlags,
		misc:      desc.MiscFlags,
		data:      make([]byte, desc.Size),
	}
	copy(b.data, initial)
	if desc.CPUAccessFlags != 0 {
		b.shadow = make([]byte, desc.Size)
	}
	a.trackBuffer(b)
	return b, nil
}

// ReleaseBuffer destroys a buffer and its shadow.
func (a *Adapter) ReleaseBuffer(buf driver.Buffer) {
	b, ok := buf.(*nullBuffer)
	if !ok {
		return
	}
	a.untrackBuffer(b)
	b.data = nil
	b.shadow = nil
}

// MapBuffer exposes a buffer range through its shadow allocation.
func (a *Adapter) MapBuffer(buf driver.Buffer, mode driver.MapMode, offset, size uint64) ([]byte, error) {
	b, ok := buf.(*nullBuffer)
	if !ok || b.shadow == nil {
		return nil, fmt.Errorf("%w: buffer has no CPU access", driver.ErrInvalidCombination)
	}
	if offset+size > b.size {
		return nil, fmt.Errorf("%w: map range [%d,%d) exceeds size %d",
			driver.ErrExceededCapacity, offset, offset+size, b.size)
	}
	if mode&driver.MapRead != 0 {
		copy(b.shadow[offset:offset+size], b.data[offset:offset+size])
	}
	b.mapMode = mode
	b.mapOffset = offset
	b.mapSize = size
	return b.shadow[offset : offset+size], nil
}

// UnmapBuffer flushes a write mapping back into buffer storage.
func (a *Adapter) UnmapBuffer(buf driver.Buffer) {
	b, ok := buf.(*nullBuffer)
	if !ok || b.mapMode == 0 {
		return
	}
	if b.mapMode&driver.MapWrite != 0 {
		copy(b.data[b.mapOffset:b.mapOffset+b.mapSize], b.shadow[b.mapOffset:b.mapOffset+b.mapSize])
	}
	b.mapMode = 0
	b.mapOffset = 0
	b.mapSize = 0
}

// nullBufferArray groups buffers without copying them.
type nullBufferArray struct {
	label   string
	buffers []*nullBuffer
}

func (ba *nullBufferArray) Kind() driver.ResourceKind { return driver.KindBufferArray }
func (ba *nullBufferArray) Label() string             { return ba.label }
func (ba *nullBufferArray) Len() int                  { return len(ba.buffers) }

// CreateBufferArray groups previously created buffers.
func (a *Adapter) CreateBufferArray(buffers []driver.Buffer) (driver.BufferArray, error) {
	if !a.initialized {
		return nil, driver.ErrNotInitialized
	}
	arr := &nullBufferArray{buffers: make([]*nullBuffer, len(buffers))}
	for i, buf := range buffers {
		b, ok := buf.(*nullBuffer)
		if !ok {
			return nil, driver.NewCreateError(driver.KindBufferArray, driver.ErrInvalidCombination,
				"buffer %d is not a null adapter buffer", i)
		}
		arr.buffers[i] = b
	}
	return arr, nil
}

// ReleaseBufferArray destroys the group, not its members.
func (a *Adapter) ReleaseBufferArray(arr driver.BufferArray) {
	if ba, ok := arr.(*nullBufferArray); ok {
		ba.buffers = nil
	}
}

// nullTexture stores every mip level as one byte slice laid out
// layer-major, then depth, row-major within a slice.
type nullTexture struct {
	label     string
	kind      driver.TextureKind
	format    driver.Format
	extent    driver.Extent3D
	layers    uint32
	mips      uint32
	samples   uint32
	bindFlags driver.BindFlags

	levels [][]byte
}

func (t *nullTexture) Kind() driver.ResourceKind       { return driver.KindTexture }
func (t *nullTexture) Label() string                   { return t.label }
func (t *nullTexture) TextureKind() driver.TextureKind { return t.kind }
func (t *nullTexture) Format() driver.Format           { return t.format }
func (t *nullTexture) Extent() driver.Extent3D         { return t.extent }
func (t *nullTexture) MipLevels() uint32               { return t.mips }
func (t *nullTexture) BindFlags() driver.BindFlags     { return t.bindFlags }

// levelExtent returns the texel size of a mip level.
func (t *nullTexture) levelExtent(mip uint32) driver.Extent3D {
	e := t.extent
	for i := uint32(0); i < mip; i++ {
		if e.Width > 1 {
			e.Width >>= 1
		}
		if e.Height > 1 {
			e.Height >>= 1
		}
		if e.Depth > 1 {
			e.Depth >>= 1
		}
	}
	return e
}

// texelOffset returns the byte offset of a texel within a level slice.
func (t *nullTexture) texelOffset(mip, layer uint32, o driver.Origin3D) uint64 {
	e := t.levelExtent(mip)
	bpp := uint64(bytesPerTexel(t.format))
	idx := ((uint64(layer)*uint64(e.Depth)+uint64(o.Z))*uint64(e.Height)+uint64(o.Y))*uint64(e.Width) + uint64(o.X)
	return idx * bpp
}

// CreateTexture creates a host-memory texture, optionally filled with
// initial data for mip level 0.
func (a *Adapter) CreateTexture(desc *driver.TextureDescriptor, initial []byte) (driver.Texture, error) {
	if !a.initialized {
		return nil, driver.ErrNotInitialized
	}
	if desc.Kind.IsMultisample() {
		return nil, driver.NewCreateError(driver.KindTexture, driver.ErrUnsupportedFeature,
			"%s not supported by the software device", desc.Kind)
	}
	if desc.Extent.MaxExtent() > a.caps.Limits.MaxTextureSize {
		return nil, driver.NewCreateError(driver.KindTexture, driver.ErrExceededCapacity,
			"extent %d exceeds limit %d", desc.Extent.MaxExtent(), a.caps.Limits.MaxTextureSize)
	}
	bpp := bytesPerTexel(desc.Format)
	if bpp == 0 {
		return nil, driver.NewCreateError(driver.KindTexture, driver.ErrUnsupportedFeature,
			"format %v not supported by the software device", desc.Format)
	}

	layers := desc.ArrayLayers
	if layers == 0 {
		layers = 1
	}
	if desc.Kind.IsCube() {
		layers *= 6
	}
	mips := desc.MipLevels
	if mips == 0 {
		if initial != nil {
			mips = driver.NumMipLevels(desc.Extent)
		} else {
			mips = 1
		}
	}

	t := &nullTexture{
		label:     desc.Label,
		kind:      desc.Kind,
		format:    desc.Format,
		extent:    desc.Extent,
		layers:    layers,
		mips:      mips,
		samples:   1,
		bindFlags: desc.BindFlags,
	}
	t.levels = make([][]byte, mips)
	for m := uint32(0); m < mips; m++ {
		e := t.levelExtent(m)
		t.levels[m] = make([]byte, uint64(e.Width)*uint64(e.Height)*uint64(e.Depth)*uint64(layers)*uint64(bpp))
	}
	if initial != nil {
		copy(t.levels[0], initial)
		if desc.MiscFlags.Contains(driver.MiscGenerateMips) {
			t.generateMips()
		}
	}
	a.trackTexture(t)
	return t, nil
}

// generateMips box-filters each level from the one above it.
// Works per byte channel, which is correct for the unorm formats the
// software device supports.
func (t *nullTexture) generateMips() {
	bpp := bytesPerTexel(t.format)
	for m := uint32(1); m < t.mips; m++ {
		src, dst := t.levels[m-1], t.levels[m]
		se, de := t.levelExtent(m-1), t.levelExtent(m)
		for layer := uint32(0); layer < t.layers; layer++ {
			for z := uint32(0); z < de.Depth; z++ {
				for y := uint32(0); y < de.Height; y++ {
					for x := uint32(0); x < de.Width; x++ {
						sx, sy := x*2, y*2
						sx2, sy2 := sx+1, sy+1
						if sx2 >= se.Width {
							sx2 = se.Width - 1
						}
						if sy2 >= se.Height {
							sy2 = se.Height - 1
						}
						o00 := t.texelOffsetIn(se, layer, sx, sy, z*2%max32(se.Depth, 1), bpp)
						o10 := t.texelOffsetIn(se, layer, sx2, sy, z*2%max32(se.Depth, 1), bpp)
						o01 := t.texelOffsetIn(se, layer, sx, sy2, z*2%max32(se.Depth, 1), bpp)
						o11 := t.texelOffsetIn(se, layer, sx2, sy2, z*2%max32(se.Depth, 1), bpp)
						d := t.texelOffsetIn(de, layer, x, y, z, bpp)
						for c := uint32(0); c < bpp; c++ {
							sum := uint32(src[o00+uint64(c)]) + uint32(src[o10+uint64(c)]) +
								uint32(src[o01+uint64(c)]) + uint32(src[o11+uint64(c)])
							dst[d+uint64(c)] = byte(sum / 4)
						}
					}
				}
			}
		}
	}
}

func max32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

func (t *nullTexture) texelOffsetIn(e driver.Extent3D, layer, x, y, z, bpp uint32) uint64 {
	idx := ((uint64(layer)*uint64(e.Depth)+uint64(z))*uint64(e.Height)+uint64(y))*uint64(e.Width) + uint64(x)
	return idx * uint64(bpp)
}

// ReleaseTexture destroys a texture.
func (a *Adapter) ReleaseTexture(tex driver.Texture) {
	t, ok := tex.(*nullTexture)
	if !ok {
		return
	}
	a.untrackTexture(t)
	t.levels = nil
}

// WriteTexture writes host data into a texture region.
func (a *Adapter) WriteTexture(tex driver.Texture, region driver.TextureRegion, data []byte) error {
	t, ok := tex.(*nullTexture)
	if !ok {
		return driver.ErrInvalidCombination
	}
	return t.transfer(region, data, true)
}

// ReadTexture reads a texture region into out.
func (a *Adapter) ReadTexture(tex driver.Texture, region driver.TextureRegion, out []byte) error {
	t, ok := tex.(*nullTexture)
	if !ok {
		return driver.ErrInvalidCombination
	}
	return t.transfer(region, out, false)
}

// transfer copies a region row by row between host memory and the
// addressed level slice. write selects the direction.
func (t *nullTexture) transfer(region driver.TextureRegion, host []byte, write bool) error {
	if region.MipLevel >= t.mips || region.Layer >= t.layers {
		return fmt.Errorf("%w: mip %d layer %d out of range", driver.ErrExceededCapacity,
			region.MipLevel, region.Layer)
	}
	e := t.levelExtent(region.MipLevel)
	if region.Origin.X+region.Extent.Width > e.Width ||
		region.Origin.Y+region.Extent.Height > e.Height ||
		region.Origin.Z+region.Extent.Depth > max32(e.Depth, 1) {
		return fmt.Errorf("%w: region exceeds level extent", driver.ErrExceededCapacity)
	}
	bpp := uint64(bytesPerTexel(t.format))
	rowBytes := uint64(region.Extent.Width) * bpp
	need := rowBytes * uint64(region.Extent.Height) * uint64(region.Extent.Depth)
	if uint64(len(host)) < need {
		return fmt.Errorf("%w: host slice %d bytes, need %d", driver.ErrExceededCapacity, len(host), need)
	}

	level := t.levels[region.MipLevel]
	hostOff := uint64(0)
	for z := uint32(0); z < region.Extent.Depth; z++ {
		for y := uint32(0); y < region.Extent.Height; y++ {
			o := driver.Origin3D{X: region.Origin.X, Y: region.Origin.Y + y, Z: region.Origin.Z + z}
			devOff := t.texelOffset(region.MipLevel, region.Layer, o)
			if write {
				copy(level[devOff:devOff+rowBytes], host[hostOff:hostOff+rowBytes])
			} else {
				copy(host[hostOff:hostOff+rowBytes], level[devOff:devOff+rowBytes])
			}
			hostOff += rowBytes
		}
	}
	return nil
}

// nullSampler is a pooled sampler state.
type nullSampler struct {
	desc driver.SamplerDescriptor
	refs int
}

func (s *nullSampler) Kind() driver.ResourceKind { return driver.KindSampler }
func (s *nullSampler) Label() string             { return s.desc.Label }

// samplerPool deduplicates samplers by descriptor value.
type samplerPool struct {
	mu    sync.Mutex
	cache *statecache.Cache[driver.SamplerDescriptor, *nullSampler]
}

func newSamplerPool() *samplerPool {
	p := &samplerPool{}
	p.cache = statecache.New[driver.SamplerDescriptor, *nullSampler](0, nil)
	return p
}

func (p *samplerPool) get(desc *driver.SamplerDescriptor) (*nullSampler, error) {
	key := *desc
	key.Label = ""
	p.mu.Lock()
	defer p.mu.Unlock()
	s, err := p.cache.GetOrCreate(key, func() (*nullSampler, error) {
		return &nullSampler{desc: *desc}, nil
	})
	if err != nil {
		return nil, err
	}
	s.refs++
	return s, nil
}

func (p *samplerPool) put(s *nullSampler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s.refs--
	if s.refs <= 0 {
		key := s.desc
		key.Label = ""
		p.cache.Delete(key)
	}
}

func (p *samplerPool) clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache.Clear()
}

// CreateSampler returns a pooled sampler for the descriptor.
func (a *Adapter) CreateSampler(desc *driver.SamplerDescriptor) (driver.Sampler, error) {
	if !a.initialized {
		return nil, driver.ErrNotInitialized
	}
	return a.samplers.get(desc)
}

// ReleaseSampler drops one reference from a pooled sampler.
func (a *Adapter) ReleaseSampler(s driver.Sampler) {
	if ns, ok := s.(*nullSampler); ok {
		a.samplers.put(ns)
	}
}

// nullShader holds validated source without compiling it.
type nullShader struct {
	label string
	stage driver.StageFlags
}

func (s *nullShader) Kind() driver.ResourceKind { return driver.KindShader }
func (s *nullShader) Label() string             { return s.label }
func (s *nullShader) Stage() driver.StageFlags  { return s.stage }

// CreateShader accepts any shader with code attached. The software
// device does not execute shaders, so no compilation happens here.
func (a *Adapter) CreateShader(desc *driver.ShaderDescriptor) (driver.Shader, error) {
	if !a.initialized {
		return nil, driver.ErrNotInitialized
	}
	if !desc.HasCode() {
		return nil, driver.NewCreateError(driver.KindShader, driver.ErrInvalidCombination,
			"shader has no source or SPIR-V code")
	}
	return &nullShader{label: desc.Label, stage: desc.Stage}, nil
}

// ReleaseShader destroys a shader.
func (a *Adapter) ReleaseShader(s driver.Shader) {}

// nullShaderProgram is a linked stage set.
type nullShaderProgram struct {
	label  string
	stages driver.StageFlags
	report string
}

func (p *nullShaderProgram) Kind() driver.ResourceKind { return driver.KindShaderProgram }
func (p *nullShaderProgram) Label() string             { return p.label }
func (p *nullShaderProgram) Stages() driver.StageFlags { return p.stages }
func (p *nullShaderProgram) LinkReport() string        { return p.report }

// CreateShaderProgram links shader stages. Stage combination legality is
// checked by the caller; this only rejects duplicate stages.
func (a *Adapter) CreateShaderProgram(label string, shaders []driver.Shader) (driver.ShaderProgram, error) {
	if !a.initialized {
		return nil, driver.ErrNotInitialized
	}
	var stages driver.StageFlags
	var report strings.Builder
	for _, s := range shaders {
		if stages&s.Stage() != 0 {
			fmt.Fprintf(&report, "duplicate %s stage\n", s.Stage())
		}
		stages |= s.Stage()
	}
	if report.Len() > 0 {
		return nil, driver.NewCreateError(driver.KindShaderProgram, driver.ErrInvalidCombination,
			"%s", strings.TrimSpace(report.String()))
	}
	return &nullShaderProgram{label: label, stages: stages}, nil
}

// ReleaseShaderProgram destroys a program.
func (a *Adapter) ReleaseShaderProgram(p driver.ShaderProgram) {}

// nullPipeline is a pipeline state snapshot.
type nullPipeline struct {
	label   string
	compute bool
}

func (p *nullPipeline) Kind() driver.ResourceKind { return driver.KindPipeline }
func (p *nullPipeline) Label() string             { return p.label }
func (p *nullPipeline) IsCompute() bool           { return p.compute }

// CreateGraphicsPipeline creates a graphics pipeline snapshot.
func (a *Adapter) CreateGraphicsPipeline(desc *driver.GraphicsPipelineDescriptor) (driver.Pipeline, error) {
	if !a.initialized {
		return nil, driver.ErrNotInitialized
	}
	return &nullPipeline{label: desc.Label}, nil
}

// CreateComputePipeline creates a compute pipeline snapshot.
func (a *Adapter) CreateComputePipeline(desc *driver.ComputePipelineDescriptor) (driver.Pipeline, error) {
	if !a.initialized {
		return nil, driver.ErrNotInitialized
	}
	return &nullPipeline{label: desc.Label, compute: true}, nil
}

// ReleasePipeline destroys a pipeline.
func (a *Adapter) ReleasePipeline(p driver.Pipeline) {}

// nullRenderPass keeps the attachment layout.
type nullRenderPass struct {
	desc driver.RenderPassDescriptor
}

func (rp *nullRenderPass) Kind() driver.ResourceKind                { return driver.KindRenderPass }
func (rp *nullRenderPass) Label() string                            { return rp.desc.Label }
func (rp *nullRenderPass) Descriptor() *driver.RenderPassDescriptor { return &rp.desc }

// CreateRenderPass creates a render pass description.
func (a *Adapter) CreateRenderPass(desc *driver.RenderPassDescriptor) (driver.RenderPass, error) {
	if !a.initialized {
		return nil, driver.ErrNotInitialized
	}
	rp := &nullRenderPass{desc: *desc}
	rp.desc.ColorAttachments = append([]driver.AttachmentDescriptor(nil), desc.ColorAttachments...)
	return rp, nil
}

// ReleaseRenderPass destroys a render pass.
func (a *Adapter) ReleaseRenderPass(rp driver.RenderPass) {}

// nullRenderTarget binds attachment textures.
type nullRenderTarget struct {
	label      string
	resolution driver.Extent3D
	colors     []driver.RenderTargetAttachment
	depth      *driver.RenderTargetAttachment
}

func (rt *nullRenderTarget) Kind() driver.ResourceKind   { return driver.KindRenderTarget }
func (rt *nullRenderTarget) Label() string               { return rt.label }
func (rt *nullRenderTarget) Resolution() driver.Extent3D { return rt.resolution }
func (rt *nullRenderTarget) NumColorAttachments() int    { return len(rt.colors) }

// CreateRenderTarget creates a render target over attachment textures.
func (a *Adapter) CreateRenderTarget(desc *driver.RenderTargetDescriptor) (driver.RenderTarget, error) {
	if !a.initialized {
		return nil, driver.ErrNotInitialized
	}
	for i, att := range desc.ColorAttachments {
		if _, ok := att.Texture.(*nullTexture); !ok {
			return nil, driver.NewCreateError(driver.KindRenderTarget, driver.ErrInvalidCombination,
				"color attachment %d is not a null adapter texture", i)
		}
	}
	rt := &nullRenderTarget{
		label:      desc.Label,
		resolution: desc.Resolution,
		colors:     append([]driver.RenderTargetAttachment(nil), desc.ColorAttachments...),
		depth:      desc.DepthStencilAttachment,
	}
	return rt, nil
}

// ReleaseRenderTarget destroys a render target, not its textures.
func (a *Adapter) ReleaseRenderTarget(rt driver.RenderTarget) {}

// nullQueryHeap stores query results in host memory.
type nullQueryHeap struct {
	label  string
	qtype  driver.QueryType
	values []uint64
}

func (q *nullQueryHeap) Kind() driver.ResourceKind { return driver.KindQueryHeap }
func (q *nullQueryHeap) Label() string             { return q.label }
func (q *nullQueryHeap) Type() driver.QueryType    { return q.qtype }
func (q *nullQueryHeap) Count() uint32             { return uint32(len(q.values)) }

// CreateQueryHeap creates a query heap.
func (a *Adapter) CreateQueryHeap(desc *driver.QueryHeapDescriptor) (driver.QueryHeap, error) {
	if !a.initialized {
		return nil, driver.ErrNotInitialized
	}
	return &nullQueryHeap{
		label:  desc.Label,
		qtype:  desc.Type,
		values: make([]uint64, desc.Count),
	}, nil
}

// ReleaseQueryHeap destroys a query heap.
func (a *Adapter) ReleaseQueryHeap(q driver.QueryHeap) {}

// ResolveQueries copies recorded query values into out.
func (a *Adapter) ResolveQueries(q driver.QueryHeap, first, count uint32, out []uint64) error {
	h, ok := q.(*nullQueryHeap)
	if !ok {
		return driver.ErrInvalidCombination
	}
	if first+count > uint32(len(h.values)) {
		return fmt.Errorf("%w: query range [%d,%d) exceeds heap of %d",
			driver.ErrExceededCapacity, first, first+count, len(h.values))
	}
	if uint32(len(out)) < count {
		return fmt.Errorf("%w: out has %d slots, need %d", driver.ErrExceededCapacity, len(out), count)
	}
	copy(out, h.values[first:first+count])
	return nil
}

// nullFence signals once via channel close.
type nullFence struct {
	ch   chan struct{}
	once sync.Once
}

func (f *nullFence) Kind() driver.ResourceKind { return driver.KindFence }
func (f *nullFence) Label() string             { return "" }

func (f *nullFence) signal() {
	f.once.Do(func() { close(f.ch) })
}

// CreateFence creates an unsignaled fence.
func (a *Adapter) CreateFence() (driver.Fence, error) {
	if !a.initialized {
		return nil, driver.ErrNotInitialized
	}
	return &nullFence{ch: make(chan struct{})}, nil
}

// ReleaseFence destroys a fence. A released fence counts as signaled so
// no waiter blocks forever.
func (a *Adapter) ReleaseFence(f driver.Fence) {
	if nf, ok := f.(*nullFence); ok {
		nf.signal()
	}
}
