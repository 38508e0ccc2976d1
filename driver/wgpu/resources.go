package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rhi/driver"
)

// wgpuBuffer wraps a HAL buffer. Buffers with CPU access carry a shadow
// slice exposed through Map; the shadow moves through the queue on map
// boundaries.
type wgpuBuffer struct {
	label     string
	size      uint64
	bindFlags driver.BindFlags
	cpuAccess driver.CPUAccessFlags
	misc      driver.MiscFlags

	buffer hal.Buffer

	shadow    []byte
	mapMode   driver.MapMode
	mapOffset uint64
	mapSize   uint64
}

func (b *wgpuBuffer) Kind() driver.ResourceKind   { return driver.KindBuffer }
func (b *wgpuBuffer) Label() string               { return b.label }
func (b *wgpuBuffer) Size() uint64                { return b.size }
func (b *wgpuBuffer) BindFlags() driver.BindFlags { return b.bindFlags }

// CreateBuffer creates a HAL buffer and uploads the initial data.
func (a *Adapter) CreateBuffer(desc *driver.BufferDescriptor, initial []byte) (driver.Buffer, error) {
	if !a.initialized {
		return nil, driver.ErrNotInitialized
	}
	if desc.Size > a.caps.Limits.MaxBufferSize {
		return nil, driver.NewCreateError(driver.KindBuffer, driver.ErrExceededCapacity,
			"size %d exceeds limit %d", desc.Size, a.caps.Limits.MaxBufferSize)
	}

	usage := convertBufferUsage(desc.BindFlags, desc.CPUAccessFlags)
	if len(initial) > 0 {
		usage |= gputypes.BufferUsageCopyDst
	}
	halBuf, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: desc.Label,
		Size:  desc.Size,
		Usage: usage,
	})
	if err != nil {
		return nil, driver.NewCreateError(driver.KindBuffer, driver.ErrDeviceFailure, "hal: %v", err)
	}

	if len(initial) > 0 {
		a.halQueue.WriteBuffer(halBuf, 0, initial)
	}

	b := &wgpuBuffer{
		label:     desc.Label,
		size:      desc.Size,
		bindFlags: desc.BindFlags,
		cpuAccess: desc.CPUAccessFlags,
		misc:      desc.MiscFlags,
		buffer:    halBuf,
	}
	if desc.CPUAccessFlags != 0 {
		b.shadow = make([]byte, desc.Size)
	}
	return b, nil
}

// ReleaseBuffer destroys the HAL buffer.
func (a *Adapter) ReleaseBuffer(b driver.Buffer) {
	wb, ok := b.(*wgpuBuffer)
	if !ok {
		return
	}
	a.device.DestroyBuffer(wb.buffer)
	wb.shadow = nil
}

// MapBuffer exposes the buffer shadow to the host. Read mappings pull
// current device contents through the queue before returning.
func (a *Adapter) MapBuffer(b driver.Buffer, mode driver.MapMode, offset, size uint64) ([]byte, error) {
	wb, ok := b.(*wgpuBuffer)
	if !ok || wb.shadow == nil {
		return nil, fmt.Errorf("%w: buffer has no CPU access", driver.ErrInvalidCombination)
	}
	if offset+size > wb.size {
		return nil, fmt.Errorf("%w: map range %d+%d exceeds size %d",
			driver.ErrExceededCapacity, offset, size, wb.size)
	}

	if mode&driver.MapRead != 0 {
		if err := a.queue.ReadBuffer(wb, offset, wb.shadow[offset:offset+size]); err != nil {
			return nil, err
		}
	}
	wb.mapMode = mode
	wb.mapOffset = offset
	wb.mapSize = size
	return wb.shadow[offset : offset+size], nil
}

// UnmapBuffer ends a Map, pushing write mappings back to the device.
func (a *Adapter) UnmapBuffer(b driver.Buffer) {
	wb, ok := b.(*wgpuBuffer)
	if !ok || wb.mapMode == 0 {
		return
	}
	if wb.mapMode&driver.MapWrite != 0 {
		data := wb.shadow[wb.mapOffset : wb.mapOffset+wb.mapSize]
		a.halQueue.WriteBuffer(wb.buffer, wb.mapOffset, data)
	}
	wb.mapMode = 0
	wb.mapOffset = 0
	wb.mapSize = 0
}

// wgpuBufferArray groups buffers bound as consecutive vertex slots.
type wgpuBufferArray struct {
	label   string
	members []*wgpuBuffer
}

func (g *wgpuBufferArray) Kind() driver.ResourceKind { return driver.KindBufferArray }
func (g *wgpuBufferArray) Label() string             { return g.label }
func (g *wgpuBufferArray) Len() int                  { return len(g.members) }

// CreateBufferArray groups previously created buffers.
func (a *Adapter) CreateBufferArray(buffers []driver.Buffer) (driver.BufferArray, error) {
	if !a.initialized {
		return nil, driver.ErrNotInitialized
	}
	members := make([]*wgpuBuffer, len(buffers))
	for i, b := range buffers {
		wb, ok := b.(*wgpuBuffer)
		if !ok {
			return nil, driver.NewCreateError(driver.KindBufferArray, driver.ErrInvalidCombination,
				"member %d was not created by this adapter", i)
		}
		members[i] = wb
	}
	return &wgpuBufferArray{members: members}, nil
}

// ReleaseBufferArray destroys the group, not its members.
func (a *Adapter) ReleaseBufferArray(g driver.BufferArray) {
	if wa, ok := g.(*wgpuBufferArray); ok {
		wa.members = nil
	}
}

// wgpuTexture wraps a HAL texture plus its default whole-resource view.
// Attachment views for individual mip levels and layers are created on
// demand by render targets.
type wgpuTexture struct {
	label     string
	kind      driver.TextureKind
	format    driver.Format
	extent    driver.Extent3D
	layers    uint32
	mipLevels uint32
	samples   uint32
	bindFlags driver.BindFlags

	texture hal.Texture
	view    hal.TextureView
}

func (t *wgpuTexture) Kind() driver.ResourceKind       { return driver.KindTexture }
func (t *wgpuTexture) Label() string                   { return t.label }
func (t *wgpuTexture) TextureKind() driver.TextureKind { return t.kind }
func (t *wgpuTexture) Format() driver.Format           { return t.format }
func (t *wgpuTexture) Extent() driver.Extent3D         { return t.extent }
func (t *wgpuTexture) MipLevels() uint32               { return t.mipLevels }
func (t *wgpuTexture) BindFlags() driver.BindFlags     { return t.bindFlags }

// levelExtent returns the texel size of the given mip level.
func (t *wgpuTexture) levelExtent(level uint32) driver.Extent3D {
	e := t.extent
	for i := uint32(0); i < level; i++ {
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

// CreateTexture creates a HAL texture, uploads initial data, and
// generates the requested mip chain from it.
func (a *Adapter) CreateTexture(desc *driver.TextureDescriptor, initial []byte) (driver.Texture, error) {
	if !a.initialized {
		return nil, driver.ErrNotInitialized
	}

	layers := desc.ArrayLayers
	if layers == 0 {
		layers = 1
	}
	if desc.Kind.IsCube() {
		layers *= 6
	}
	samples := desc.SampleCount
	if samples == 0 {
		samples = 1
	}
	mips := desc.MipLevels
	if mips == 0 {
		if len(initial) > 0 || desc.MiscFlags.Contains(driver.MiscGenerateMips) {
			mips = driver.NumMipLevels(desc.Extent)
		} else {
			mips = 1
		}
	}

	depthOrLayers := desc.Extent.Depth
	if desc.Kind != driver.Texture3D {
		depthOrLayers = layers
	}

	usage := convertTextureUsage(desc.BindFlags)
	if len(initial) > 0 || desc.MiscFlags.Contains(driver.MiscGenerateMips) {
		usage |= gputypes.TextureUsageCopyDst
	}

	halTex, err := a.device.CreateTexture(&hal.TextureDescriptor{
		Label: desc.Label,
		Size: hal.Extent3D{
			Width:              desc.Extent.Width,
			Height:             desc.Extent.Height,
			DepthOrArrayLayers: depthOrLayers,
		},
		MipLevelCount: mips,
		SampleCount:   samples,
		Dimension:     convertTextureDimension(desc.Kind),
		Format:        desc.Format,
		Usage:         usage,
	})
	if err != nil {
		return nil, driver.NewCreateError(driver.KindTexture, driver.ErrDeviceFailure, "hal: %v", err)
	}

	view, err := a.device.CreateTextureView(halTex, &hal.TextureViewDescriptor{
		Label: desc.Label,
	})
	if err != nil {
		a.device.DestroyTexture(halTex)
		return nil, driver.NewCreateError(driver.KindTexture, driver.ErrDeviceFailure, "hal view: %v", err)
	}

	t := &wgpuTexture{
		label:     desc.Label,
		kind:      desc.Kind,
		format:    desc.Format,
		extent:    desc.Extent,
		layers:    layers,
		mipLevels: mips,
		samples:   samples,
		bindFlags: desc.BindFlags,
		texture:   halTex,
		view:      view,
	}

	if len(initial) > 0 {
		if err := a.uploadInitialData(t, initial, desc.MiscFlags.Contains(driver.MiscGenerateMips)); err != nil {
			a.device.DestroyTextureView(view)
			a.device.DestroyTexture(halTex)
			return nil, err
		}
	}
	return t, nil
}

// uploadInitialData writes level 0 of every layer and, when requested,
// downsamples the host data level by level to fill the mip chain.
// The device cannot blit between mips of a fresh texture before any
// pass has run, so the chain is produced on the host and uploaded per
// level, one WriteTexture per mip.
func (a *Adapter) uploadInitialData(t *wgpuTexture, initial []byte, genMips bool) error {
	texel := formatTexelSize(t.format)
	e := t.extent
	layerSize := uint64(e.Width) * uint64(e.Height) * uint64(e.Depth) * uint64(texel)
	if uint64(len(initial)) < layerSize*uint64(t.layers) {
		return driver.NewCreateError(driver.KindTexture, driver.ErrInvalidCombination,
			"initial data %d bytes, need %d", len(initial), layerSize*uint64(t.layers))
	}

	for layer := uint32(0); layer < t.layers; layer++ {
		data := initial[uint64(layer)*layerSize : uint64(layer+1)*layerSize]
		level := data
		le := e
		maxLevel := uint32(1)
		if genMips {
			maxLevel = t.mipLevels
		}
		for mip := uint32(0); mip < maxLevel; mip++ {
			a.halQueue.WriteTexture(
				&hal.ImageCopyTexture{
					Texture:  t.texture,
					MipLevel: mip,
					Origin:   hal.Origin3D{Z: layer},
					Aspect:   gputypes.TextureAspectAll,
				},
				level,
				&hal.ImageDataLayout{
					Offset:       0,
					BytesPerRow:  le.Width * texel,
					RowsPerImage: le.Height,
				},
				&hal.Extent3D{
					Width:              le.Width,
					Height:             le.Height,
					DepthOrArrayLayers: 1,
				},
			)
			if mip+1 < maxLevel {
				level, le = downsample(level, le, texel)
			}
		}
	}
	return nil
}

// downsample box-filters one mip level into the next smaller one.
// Each byte channel is averaged independently, which is correct for the
// unorm formats the adapter uploads.
func downsample(src []byte, e driver.Extent3D, texel uint32) ([]byte, driver.Extent3D) {
	ne := driver.Extent3D{Width: e.Width, Height: e.Height, Depth: e.Depth}
	if ne.Width > 1 {
		ne.Width >>= 1
	}
	if ne.Height > 1 {
		ne.Height >>= 1
	}
	dst := make([]byte, uint64(ne.Width)*uint64(ne.Height)*uint64(texel))

	for y := uint32(0); y < ne.Height; y++ {
		for x := uint32(0); x < ne.Width; x++ {
			sx, sy := x*2, y*2
			sx2, sy2 := sx+1, sy+1
			if sx2 >= e.Width {
				sx2 = e.Width - 1
			}
			if sy2 >= e.Height {
				sy2 = e.Height - 1
			}
			for c := uint32(0); c < texel; c++ {
				sum := uint32(src[(sy*e.Width+sx)*texel+c]) +
					uint32(src[(sy*e.Width+sx2)*texel+c]) +
					uint32(src[(sy2*e.Width+sx)*texel+c]) +
					uint32(src[(sy2*e.Width+sx2)*texel+c])
				dst[(y*ne.Width+x)*texel+c] = byte(sum / 4)
			}
		}
	}
	return dst, ne
}

// ReleaseTexture destroys the HAL texture and its views.
func (a *Adapter) ReleaseTexture(t driver.Texture) {
	wt, ok := t.(*wgpuTexture)
	if !ok {
		return
	}
	if wt.view != nil {
		a.device.DestroyTextureView(wt.view)
		wt.view = nil
	}
	a.device.DestroyTexture(wt.texture)
}

// WriteTexture writes host data into a texture region through the queue.
func (a *Adapter) WriteTexture(t driver.Texture, region driver.TextureRegion, data []byte) error {
	wt, ok := t.(*wgpuTexture)
	if !ok {
		return fmt.Errorf("%w: unknown texture", driver.ErrInvalidCombination)
	}
	texel := formatTexelSize(wt.format)
	a.halQueue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  wt.texture,
			MipLevel: region.MipLevel,
			Origin:   hal.Origin3D{X: region.Origin.X, Y: region.Origin.Y, Z: region.Layer + region.Origin.Z},
			Aspect:   gputypes.TextureAspectAll,
		},
		data,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  region.Extent.Width * texel,
			RowsPerImage: region.Extent.Height,
		},
		&hal.Extent3D{
			Width:              region.Extent.Width,
			Height:             region.Extent.Height,
			DepthOrArrayLayers: region.Extent.Depth,
		},
	)
	return nil
}

// wgpuShader holds one compiled shader module. WGSL source is run
// through naga to SPIR-V before module creation, matching the Vulkan
// path of the HAL.
type wgpuShader struct {
	label      string
	stage      driver.StageFlags
	entryPoint string
	module     hal.ShaderModule
}

func (s *wgpuShader) Kind() driver.ResourceKind { return driver.KindShader }
func (s *wgpuShader) Label() string             { return s.label }
func (s *wgpuShader) Stage() driver.StageFlags  { return s.stage }

// CreateShader compiles one shader stage into a HAL module.
func (a *Adapter) CreateShader(desc *driver.ShaderDescriptor) (driver.Shader, error) {
	if !a.initialized {
		return nil, driver.ErrNotInitialized
	}

	spirv := desc.SPIRV
	if desc.Source != "" {
		compiled, err := compileWGSL(desc.Source)
		if err != nil {
			return nil, driver.NewCreateError(driver.KindShader, driver.ErrDeviceFailure,
				"compile: %v", err)
		}
		spirv = compiled
	}

	module, err := a.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  desc.Label,
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return nil, driver.NewCreateError(driver.KindShader, driver.ErrDeviceFailure, "hal: %v", err)
	}

	entry := desc.EntryPoint
	if entry == "" {
		entry = "main"
	}
	return &wgpuShader{
		label:      desc.Label,
		stage:      desc.Stage,
		entryPoint: entry,
		module:     module,
	}, nil
}

// compileWGSL compiles WGSL source to SPIR-V words.
func compileWGSL(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, err
	}
	// SPIR-V is little-endian 32-bit words.
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}

// ReleaseShader destroys the HAL module.
func (a *Adapter) ReleaseShader(s driver.Shader) {
	if ws, ok := s.(*wgpuShader); ok {
		a.device.DestroyShaderModule(ws.module)
	}
}

// wgpuShaderProgram groups one module per stage.
type wgpuShaderProgram struct {
	label   string
	stages  driver.StageFlags
	shaders map[driver.StageFlags]*wgpuShader
}

func (p *wgpuShaderProgram) Kind() driver.ResourceKind { return driver.KindShaderProgram }
func (p *wgpuShaderProgram) Label() string             { return p.label }
func (p *wgpuShaderProgram) Stages() driver.StageFlags { return p.stages }
func (p *wgpuShaderProgram) LinkReport() string        { return "" }

// stageShader returns the shader occupying the given stage, or nil.
func (p *wgpuShaderProgram) stageShader(stage driver.StageFlags) *wgpuShader {
	return p.shaders[stage]
}

// CreateShaderProgram links shader stages. Linking on this backend is a
// grouping operation; cross-stage interface checks happen when the HAL
// builds the pipeline.
func (a *Adapter) CreateShaderProgram(label string, shaders []driver.Shader) (driver.ShaderProgram, error) {
	if !a.initialized {
		return nil, driver.ErrNotInitialized
	}
	p := &wgpuShaderProgram{
		label:   label,
		shaders: make(map[driver.StageFlags]*wgpuShader, len(shaders)),
	}
	for _, s := range shaders {
		ws, ok := s.(*wgpuShader)
		if !ok {
			return nil, driver.NewCreateError(driver.KindShaderProgram, driver.ErrInvalidCombination,
				"shader was not created by this adapter")
		}
		if _, dup := p.shaders[ws.stage]; dup {
			return nil, driver.NewCreateError(driver.KindShaderProgram, driver.ErrInvalidCombination,
				"duplicate %s stage", ws.stage)
		}
		p.shaders[ws.stage] = ws
		p.stages |= ws.stage
	}
	return p, nil
}

// ReleaseShaderProgram destroys the group, not its shaders.
func (a *Adapter) ReleaseShaderProgram(p driver.ShaderProgram) {
	if wp, ok := p.(*wgpuShaderProgram); ok {
		wp.shaders = nil
	}
}

// wgpuSampler is a pooled HAL sampler.
type wgpuSampler struct {
	desc    driver.SamplerDescriptor
	sampler hal.Sampler
	refs    int
}

func (s *wgpuSampler) Kind() driver.ResourceKind { return driver.KindSampler }
func (s *wgpuSampler) Label() string             { return s.desc.Label }

// CreateSampler returns a pooled sampler for the descriptor.
func (a *Adapter) CreateSampler(desc *driver.SamplerDescriptor) (driver.Sampler, error) {
	if !a.initialized {
		return nil, driver.ErrNotInitialized
	}
	return a.samplers.get(desc)
}

// ReleaseSampler drops one reference from a pooled sampler.
func (a *Adapter) ReleaseSampler(s driver.Sampler) {
	if ws, ok := s.(*wgpuSampler); ok {
		a.samplers.put(ws)
	}
}

// wgpuRenderPass captures the attachment layout. The HAL takes load and
// store ops per pass begin, so this is pure description.
type wgpuRenderPass struct {
	label string
	desc  driver.RenderPassDescriptor
}

func (rp *wgpuRenderPass) Kind() driver.ResourceKind { return driver.KindRenderPass }
func (rp *wgpuRenderPass) Label() string             { return rp.label }
func (rp *wgpuRenderPass) Descriptor() *driver.RenderPassDescriptor {
	return &rp.desc
}

// CreateRenderPass captures the attachment layout.
func (a *Adapter) CreateRenderPass(desc *driver.RenderPassDescriptor) (driver.RenderPass, error) {
	if !a.initialized {
		return nil, driver.ErrNotInitialized
	}
	rp := &wgpuRenderPass{label: desc.Label, desc: *desc}
	rp.desc.ColorAttachments = append([]driver.AttachmentDescriptor(nil), desc.ColorAttachments...)
	return rp, nil
}

// ReleaseRenderPass destroys a render pass description.
func (a *Adapter) ReleaseRenderPass(rp driver.RenderPass) {}

// rtAttachment is one render target attachment with its sub-resource view.
type rtAttachment struct {
	texture *wgpuTexture
	view    hal.TextureView
}

// wgpuRenderTarget owns one attachment view per bound sub-resource.
type wgpuRenderTarget struct {
	label      string
	resolution driver.Extent3D
	colors     []rtAttachment
	depth      *rtAttachment
	samples    uint32
}

func (rt *wgpuRenderTarget) Kind() driver.ResourceKind   { return driver.KindRenderTarget }
func (rt *wgpuRenderTarget) Label() string               { return rt.label }
func (rt *wgpuRenderTarget) Resolution() driver.Extent3D { return rt.resolution }
func (rt *wgpuRenderTarget) NumColorAttachments() int    { return len(rt.colors) }

// CreateRenderTarget creates one view per attachment sub-resource.
func (a *Adapter) CreateRenderTarget(desc *driver.RenderTargetDescriptor) (driver.RenderTarget, error) {
	if !a.initialized {
		return nil, driver.ErrNotInitialized
	}

	rt := &wgpuRenderTarget{
		label:      desc.Label,
		resolution: desc.Resolution,
		samples:    desc.Samples,
	}
	if rt.samples == 0 {
		rt.samples = 1
	}

	fail := func(err error) (driver.RenderTarget, error) {
		a.releaseTargetViews(rt)
		return nil, err
	}

	for i, att := range desc.ColorAttachments {
		wt, ok := att.Texture.(*wgpuTexture)
		if !ok {
			return fail(driver.NewCreateError(driver.KindRenderTarget, driver.ErrInvalidCombination,
				"color attachment %d was not created by this adapter", i))
		}
		view, err := a.attachmentView(wt, att.MipLevel, att.Layer)
		if err != nil {
			return fail(err)
		}
		rt.colors = append(rt.colors, rtAttachment{texture: wt, view: view})
	}
	if desc.DepthStencilAttachment != nil {
		wt, ok := desc.DepthStencilAttachment.Texture.(*wgpuTexture)
		if !ok {
			return fail(driver.NewCreateError(driver.KindRenderTarget, driver.ErrInvalidCombination,
				"depth attachment was not created by this adapter"))
		}
		view, err := a.attachmentView(wt, desc.DepthStencilAttachment.MipLevel, desc.DepthStencilAttachment.Layer)
		if err != nil {
			return fail(err)
		}
		rt.depth = &rtAttachment{texture: wt, view: view}
	}
	return rt, nil
}

// attachmentView creates a single-subresource view for rendering.
func (a *Adapter) attachmentView(t *wgpuTexture, mip, layer uint32) (hal.TextureView, error) {
	view, err := a.device.CreateTextureView(t.texture, &hal.TextureViewDescriptor{
		Label:           t.label,
		Format:          t.format,
		Dimension:       gputypes.TextureViewDimension2D,
		BaseMipLevel:    mip,
		MipLevelCount:   1,
		BaseArrayLayer:  layer,
		ArrayLayerCount: 1,
	})
	if err != nil {
		return nil, driver.NewCreateError(driver.KindRenderTarget, driver.ErrDeviceFailure, "hal view: %v", err)
	}
	return view, nil
}

func (a *Adapter) releaseTargetViews(rt *wgpuRenderTarget) {
	for _, att := range rt.colors {
		if att.view != nil {
			a.device.DestroyTextureView(att.view)
		}
	}
	if rt.depth != nil && rt.depth.view != nil {
		a.device.DestroyTextureView(rt.depth.view)
	}
	rt.colors = nil
	rt.depth = nil
}

// ReleaseRenderTarget destroys the attachment views, not the textures.
func (a *Adapter) ReleaseRenderTarget(rt driver.RenderTarget) {
	if wrt, ok := rt.(*wgpuRenderTarget); ok {
		a.releaseTargetViews(wrt)
	}
}

// wgpuQueryHeap stores resolved query values host-side. The HAL exposes
// no query sets, so timestamps are taken on the host at encode time.
type wgpuQueryHeap struct {
	label  string
	qtype  driver.QueryType
	values []uint64
}

func (q *wgpuQueryHeap) Kind() driver.ResourceKind { return driver.KindQueryHeap }
func (q *wgpuQueryHeap) Label() string             { return q.label }
func (q *wgpuQueryHeap) Type() driver.QueryType    { return q.qtype }
func (q *wgpuQueryHeap) Count() uint32             { return uint32(len(q.values)) }

// CreateQueryHeap creates a host-side query heap. Timestamp heaps
// resolve host time around submissions; occlusion and pipeline
// statistics heaps resolve draw call counts.
func (a *Adapter) CreateQueryHeap(desc *driver.QueryHeapDescriptor) (driver.QueryHeap, error) {
	if !a.initialized {
		return nil, driver.ErrNotInitialized
	}
	return &wgpuQueryHeap{
		label:  desc.Label,
		qtype:  desc.Type,
		values: make([]uint64, desc.Count),
	}, nil
}

// ReleaseQueryHeap destroys a query heap.
func (a *Adapter) ReleaseQueryHeap(q driver.QueryHeap) {}

// ResolveQueries copies query values starting at first into out.
func (a *Adapter) ResolveQueries(q driver.QueryHeap, first, count uint32, out []uint64) error {
	wq, ok := q.(*wgpuQueryHeap)
	if !ok {
		return fmt.Errorf("%w: unknown query heap", driver.ErrInvalidCombination)
	}
	if uint64(first)+uint64(count) > uint64(len(wq.values)) {
		return fmt.Errorf("%w: query range %d+%d exceeds count %d",
			driver.ErrExceededCapacity, first, count, len(wq.values))
	}
	copy(out, wq.values[first:first+count])
	return nil
}
