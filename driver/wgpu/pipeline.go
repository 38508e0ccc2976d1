package wgpu

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rhi/driver"
	"github.com/gogpu/rhi/internal/statecache"
)

// Binding slot bases. The encoder exposes flat slot numbers per resource
// class; the HAL sees one bind group with the classes offset into
// disjoint binding ranges.
const (
	bufferBindingBase  = 0
	textureBindingBase = 16
	samplerBindingBase = 32
)

// wgpuPipeline is the front-end pipeline object. The HAL pipeline is
// built lazily at first draw, once the attachment formats and the bound
// resource classes are known, and pooled in the adapter pipeline cache.
type wgpuPipeline struct {
	label   string
	compute bool

	program  *wgpuShaderProgram
	graphics driver.GraphicsPipelineDescriptor
}

func (p *wgpuPipeline) Kind() driver.ResourceKind { return driver.KindPipeline }
func (p *wgpuPipeline) Label() string             { return p.label }
func (p *wgpuPipeline) IsCompute() bool           { return p.compute }

// CreateGraphicsPipeline captures the descriptor for lazy HAL creation.
func (a *Adapter) CreateGraphicsPipeline(desc *driver.GraphicsPipelineDescriptor) (driver.Pipeline, error) {
	if !a.initialized {
		return nil, driver.ErrNotInitialized
	}
	program, ok := desc.Program.(*wgpuShaderProgram)
	if !ok {
		return nil, driver.NewCreateError(driver.KindPipeline, driver.ErrInvalidCombination,
			"program was not created by this adapter")
	}
	if program.stages&(driver.StageGeometry|driver.StageTessControl|driver.StageTessEvaluation) != 0 {
		return nil, driver.NewCreateError(driver.KindPipeline, driver.ErrUnsupportedFeature,
			"stages %s have no WGSL equivalent", program.stages)
	}
	p := &wgpuPipeline{
		label:    desc.Label,
		program:  program,
		graphics: *desc,
	}
	p.graphics.VertexLayouts = append([]driver.VertexLayout(nil), desc.VertexLayouts...)
	return p, nil
}

// CreateComputePipeline captures the descriptor for lazy HAL creation.
func (a *Adapter) CreateComputePipeline(desc *driver.ComputePipelineDescriptor) (driver.Pipeline, error) {
	if !a.initialized {
		return nil, driver.ErrNotInitialized
	}
	program, ok := desc.Program.(*wgpuShaderProgram)
	if !ok {
		return nil, driver.NewCreateError(driver.KindPipeline, driver.ErrInvalidCombination,
			"program was not created by this adapter")
	}
	return &wgpuPipeline{
		label:   desc.Label,
		compute: true,
		program: program,
	}, nil
}

// ReleasePipeline destroys a pipeline and every HAL variant built from it.
func (a *Adapter) ReleasePipeline(p driver.Pipeline) {
	if wp, ok := p.(*wgpuPipeline); ok {
		a.pipelines.dropPipeline(wp)
	}
}

// boundBuffer is one buffer slot visible to the next draw or dispatch.
type boundBuffer struct {
	slot    uint32
	buffer  *wgpuBuffer
	uniform bool
	stages  driver.StageFlags
}

// boundTexture is one texture slot visible to the next draw.
type boundTexture struct {
	slot    uint32
	texture *wgpuTexture
	stages  driver.StageFlags
}

// boundSampler is one sampler slot visible to the next draw.
type boundSampler struct {
	slot    uint32
	sampler *wgpuSampler
	stages  driver.StageFlags
}

// bindingState is the set of resource bindings accumulated by the
// encoder between pipeline bind and draw.
type bindingState struct {
	buffers  map[uint32]boundBuffer
	textures map[uint32]boundTexture
	samplers map[uint32]boundSampler
}

func newBindingState() *bindingState {
	return &bindingState{
		buffers:  make(map[uint32]boundBuffer),
		textures: make(map[uint32]boundTexture),
		samplers: make(map[uint32]boundSampler),
	}
}

func (bs *bindingState) reset() {
	clear(bs.buffers)
	clear(bs.textures)
	clear(bs.samplers)
}

// signature returns a stable description of the binding layout classes.
// Two draws with the same signature share one bind group layout and one
// HAL pipeline.
func (bs *bindingState) signature() string {
	parts := make([]string, 0, len(bs.buffers)+len(bs.textures)+len(bs.samplers))
	for slot, b := range bs.buffers {
		kind := "s"
		if b.uniform {
			kind = "u"
		}
		parts = append(parts, fmt.Sprintf("b%d:%s:%x", slot, kind, convertStageVisibility(b.stages)))
	}
	for slot, t := range bs.textures {
		parts = append(parts, fmt.Sprintf("t%d:%x", slot, convertStageVisibility(t.stages)))
	}
	for slot, s := range bs.samplers {
		parts = append(parts, fmt.Sprintf("p%d:%x", slot, convertStageVisibility(s.stages)))
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

// layoutEntries builds the HAL bind group layout entries for the
// current bindings.
func (bs *bindingState) layoutEntries() []gputypes.BindGroupLayoutEntry {
	entries := make([]gputypes.BindGroupLayoutEntry, 0, len(bs.buffers)+len(bs.textures)+len(bs.samplers))
	for slot, b := range bs.buffers {
		bindingType := gputypes.BufferBindingTypeStorage
		if b.uniform {
			bindingType = gputypes.BufferBindingTypeUniform
		}
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    bufferBindingBase + slot,
			Visibility: convertStageVisibility(b.stages),
			Buffer:     &gputypes.BufferBindingLayout{Type: bindingType},
		})
	}
	for slot, t := range bs.textures {
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    textureBindingBase + slot,
			Visibility: convertStageVisibility(t.stages),
			Texture: &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			},
		})
	}
	for slot, s := range bs.samplers {
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    samplerBindingBase + slot,
			Visibility: convertStageVisibility(s.stages),
			Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Binding < entries[j].Binding })
	return entries
}

// groupEntries builds the HAL bind group entries matching layoutEntries.
func (bs *bindingState) groupEntries() []gputypes.BindGroupEntry {
	entries := make([]gputypes.BindGroupEntry, 0, len(bs.buffers)+len(bs.textures)+len(bs.samplers))
	for slot, b := range bs.buffers {
		entries = append(entries, gputypes.BindGroupEntry{
			Binding: bufferBindingBase + slot,
			Resource: gputypes.BufferBinding{
				Buffer: b.buffer.buffer.NativeHandle(),
				Offset: 0,
				Size:   0, // 0 = entire buffer
			},
		})
	}
	for slot, t := range bs.textures {
		entries = append(entries, gputypes.BindGroupEntry{
			Binding: textureBindingBase + slot,
			Resource: gputypes.TextureViewBinding{
				TextureView: t.texture.view.NativeHandle(),
			},
		})
	}
	for slot, s := range bs.samplers {
		entries = append(entries, gputypes.BindGroupEntry{
			Binding: samplerBindingBase + slot,
			Resource: gputypes.SamplerBinding{
				Sampler: s.sampler.sampler.NativeHandle(),
			},
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Binding < entries[j].Binding })
	return entries
}

// pipelineKey identifies one HAL pipeline variant: the front-end
// pipeline plus the binding signature and attachment formats it was
// built against.
type pipelineKey struct {
	pipeline  *wgpuPipeline
	signature string
	targetKey string
}

// builtPipeline is a fully constructed HAL pipeline variant.
type builtPipeline struct {
	device   hal.Device
	bgLayout hal.BindGroupLayout
	layout   hal.PipelineLayout
	render   hal.RenderPipeline
	compute  hal.ComputePipeline
}

func (bp *builtPipeline) destroy() {
	if bp.render != nil {
		bp.device.DestroyRenderPipeline(bp.render)
	}
	if bp.compute != nil {
		bp.device.DestroyComputePipeline(bp.compute)
	}
	if bp.layout != nil {
		bp.device.DestroyPipelineLayout(bp.layout)
	}
	if bp.bgLayout != nil {
		bp.device.DestroyBindGroupLayout(bp.bgLayout)
	}
}

// pipelineCache pools HAL pipeline variants.
type pipelineCache struct {
	device hal.Device
	cache  *statecache.Cache[pipelineKey, *builtPipeline]
}

func newPipelineCache(device hal.Device) *pipelineCache {
	c := &pipelineCache{device: device}
	c.cache = statecache.New[pipelineKey, *builtPipeline](0, func(bp *builtPipeline) {
		bp.destroy()
	})
	return c
}

func (c *pipelineCache) clear() {
	c.cache.Clear()
}

// dropPipeline evicts every variant built from the given pipeline.
// Variants are few, so a full key scan through Delete is fine; the
// cache has no prefix index.
func (c *pipelineCache) dropPipeline(p *wgpuPipeline) {
	// Eviction of stale variants also happens through LRU pressure;
	// dropping eagerly here keeps destroyed pipelines from pinning HAL
	// objects until then.
	for _, key := range c.keysFor(p) {
		c.cache.Delete(key)
	}
}

func (c *pipelineCache) keysFor(p *wgpuPipeline) []pipelineKey {
	var keys []pipelineKey
	c.cache.Range(func(key pipelineKey) {
		if key.pipeline == p {
			keys = append(keys, key)
		}
	})
	return keys
}

// get returns the HAL pipeline variant for the given binding state and
// target formats, building it on first use.
func (c *pipelineCache) get(p *wgpuPipeline, bs *bindingState, target *wgpuRenderTarget) (*builtPipeline, error) {
	key := pipelineKey{
		pipeline:  p,
		signature: bs.signature(),
		targetKey: targetFormatsKey(target),
	}
	return c.cache.GetOrCreate(key, func() (*builtPipeline, error) {
		return c.build(p, bs, target)
	})
}

// targetFormatsKey describes the attachment formats a render pipeline
// is specialized against. Compute pipelines use the empty key.
func targetFormatsKey(target *wgpuRenderTarget) string {
	if target == nil {
		return ""
	}
	var sb strings.Builder
	for _, att := range target.colors {
		fmt.Fprintf(&sb, "c%d,", att.texture.format)
	}
	if target.depth != nil {
		fmt.Fprintf(&sb, "d%d,", target.depth.texture.format)
	}
	fmt.Fprintf(&sb, "s%d", target.samples)
	return sb.String()
}

// build constructs the bind group layout, pipeline layout, and HAL
// pipeline for one variant.
func (c *pipelineCache) build(p *wgpuPipeline, bs *bindingState, target *wgpuRenderTarget) (*builtPipeline, error) {
	bp := &builtPipeline{device: c.device}

	bgLayout, err := c.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   p.label,
		Entries: bs.layoutEntries(),
	})
	if err != nil {
		return nil, driver.NewCreateError(driver.KindPipeline, driver.ErrDeviceFailure,
			"bind group layout: %v", err)
	}
	bp.bgLayout = bgLayout

	layout, err := c.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            p.label,
		BindGroupLayouts: []hal.BindGroupLayout{bgLayout},
	})
	if err != nil {
		bp.destroy()
		return nil, driver.NewCreateError(driver.KindPipeline, driver.ErrDeviceFailure,
			"pipeline layout: %v", err)
	}
	bp.layout = layout

	if p.compute {
		shader := p.program.stageShader(driver.StageCompute)
		pipeline, err := c.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
			Label:  p.label,
			Layout: layout,
			Compute: hal.ComputeState{
				Module:     shader.module,
				EntryPoint: shader.entryPoint,
			},
		})
		if err != nil {
			bp.destroy()
			return nil, driver.NewCreateError(driver.KindPipeline, driver.ErrDeviceFailure,
				"compute pipeline: %v", err)
		}
		bp.compute = pipeline
		return bp, nil
	}

	pipeline, err := c.buildRender(p, layout, target)
	if err != nil {
		bp.destroy()
		return nil, err
	}
	bp.render = pipeline
	return bp, nil
}

// buildRender constructs the HAL render pipeline variant.
func (c *pipelineCache) buildRender(p *wgpuPipeline, layout hal.PipelineLayout, target *wgpuRenderTarget) (hal.RenderPipeline, error) {
	if target == nil {
		return nil, driver.NewCreateError(driver.KindPipeline, driver.ErrInvalidCombination,
			"graphics pipeline used outside a render pass")
	}
	vs := p.program.stageShader(driver.StageVertex)
	fs := p.program.stageShader(driver.StageFragment)

	vertexBuffers := make([]gputypes.VertexBufferLayout, len(p.graphics.VertexLayouts))
	for i, vl := range p.graphics.VertexLayouts {
		attrs := make([]gputypes.VertexAttribute, len(vl.Attributes))
		stepMode := gputypes.VertexStepModeVertex
		for j, attr := range vl.Attributes {
			attrs[j] = gputypes.VertexAttribute{
				Format:         convertVertexFormat(attr.Format),
				Offset:         uint64(attr.Offset),
				ShaderLocation: attr.Location,
			}
			if attr.InstanceDivisor > 0 {
				stepMode = gputypes.VertexStepModeInstance
			}
		}
		vertexBuffers[i] = gputypes.VertexBufferLayout{
			ArrayStride: uint64(vl.ResolvedStride()),
			StepMode:    stepMode,
			Attributes:  attrs,
		}
	}

	desc := &hal.RenderPipelineDescriptor{
		Label:  p.label,
		Layout: layout,
		Vertex: hal.VertexState{
			Module:     vs.module,
			EntryPoint: vs.entryPoint,
			Buffers:    vertexBuffers,
		},
		Multisample: gputypes.MultisampleState{
			Count: target.samples,
			Mask:  0xFFFFFFFF,
		},
		Primitive: gputypes.PrimitiveState{
			Topology: convertTopology(p.graphics.Topology),
			CullMode: gputypes.CullModeNone,
		},
	}

	if fs != nil {
		targets := make([]gputypes.ColorTargetState, len(target.colors))
		for i, att := range target.colors {
			state := gputypes.ColorTargetState{
				Format:    att.texture.format,
				WriteMask: gputypes.ColorWriteMaskAll,
			}
			if p.graphics.BlendEnabled {
				blend := gputypes.BlendStatePremultiplied()
				state.Blend = &blend
			}
			targets[i] = state
		}
		desc.Fragment = &hal.FragmentState{
			Module:     fs.module,
			EntryPoint: fs.entryPoint,
			Targets:    targets,
		}
	}

	if target.depth != nil {
		compare := gputypes.CompareFunctionAlways
		if p.graphics.DepthTest {
			compare = gputypes.CompareFunctionLessEqual
		}
		desc.DepthStencil = &hal.DepthStencilState{
			Format:            target.depth.texture.format,
			DepthWriteEnabled: p.graphics.DepthWrite,
			DepthCompare:      compare,
			StencilFront:      keepStencilFace(),
			StencilBack:       keepStencilFace(),
			StencilReadMask:   0xFF,
			StencilWriteMask:  0xFF,
		}
	}

	pipeline, err := c.device.CreateRenderPipeline(desc)
	if err != nil {
		return nil, driver.NewCreateError(driver.KindPipeline, driver.ErrDeviceFailure,
			"render pipeline: %v", err)
	}
	return pipeline, nil
}

// keepStencilFace returns a pass-through stencil face state.
func keepStencilFace() hal.StencilFaceState {
	return hal.StencilFaceState{
		Compare:     gputypes.CompareFunctionAlways,
		FailOp:      hal.StencilOperationKeep,
		DepthFailOp: hal.StencilOperationKeep,
		PassOp:      hal.StencilOperationKeep,
	}
}
