package rhi

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/rhi/driver"
)

// Config controls render system creation.
type Config struct {
	// Adapter selects a backend by name ("wgpu", "null"). Empty selects
	// the best available adapter by priority.
	Adapter string

	// Logger, when non-nil, is installed via SetLogger before the
	// adapter initializes.
	Logger *slog.Logger
}

// DefaultConfig returns a Config that auto-selects the adapter.
func DefaultConfig() Config {
	return Config{}
}

// System is the render system facade. It owns the adapter, tracks every
// resource it creates in a unique registry, validates descriptors before
// they reach the backend, and exposes the submission queue.
//
// Resource creation and release are serialized internally, so System is
// safe for concurrent use. Command buffers are not; each one must be
// recorded from a single goroutine at a time.
type System struct {
	mu        sync.Mutex
	adapter   driver.Adapter
	registry  *resourceRegistry
	validator validator
	queue     *Queue
	closed    bool

	// bufferMeta keeps per-buffer creation facts the update rules need
	// (dynamic flag, CPU access) that the resource interface hides.
	bufferMeta map[Buffer]bufferInfo

	debugCB atomic.Pointer[DebugCallback]
}

type bufferInfo struct {
	size      uint64
	bindFlags BindFlags
	cpuAccess CPUAccessFlags
	dynamic   bool
}

// New creates a render system on the configured adapter.
func New(cfg Config) (*System, error) {
	if cfg.Logger != nil {
		SetLogger(cfg.Logger)
	}

	var adapter driver.Adapter
	if cfg.Adapter != "" {
		adapter = driver.Get(cfg.Adapter)
		if adapter == nil {
			return nil, fmt.Errorf("%w: %q", driver.ErrNotAvailable, cfg.Adapter)
		}
		if err := adapter.Init(); err != nil {
			return nil, err
		}
	} else {
		a, err := driver.InitDefault()
		if err != nil {
			return nil, err
		}
		adapter = a
	}

	s := &System{
		adapter:    adapter,
		registry:   newResourceRegistry(),
		validator:  validator{caps: adapter.Caps()},
		bufferMeta: make(map[Buffer]bufferInfo),
	}
	s.queue = newQueue(adapter, s)

	caps := adapter.Caps()
	Logger().Info("render system initialized",
		slog.String("adapter", adapter.Name()),
		slog.String("device", caps.DeviceName))
	return s, nil
}

// AdapterName returns the name of the selected adapter.
func (s *System) AdapterName() string { return s.adapter.Name() }

// Caps returns the device capabilities.
func (s *System) Caps() *Capabilities { return s.adapter.Caps() }

// Queue returns the submission queue.
func (s *System) Queue() *Queue { return s.queue }

// checkOwned guards direct device paths that bypass creation: the
// system must be open and the resource registered.
func (s *System) checkOwned(res Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if !s.registry.owns(res) {
		return ErrNotRegistered
	}
	return nil
}

// ResourceCount returns the number of live resources of one kind.
func (s *System) ResourceCount(kind ResourceKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.count(kind)
}

// CreateBuffer validates the descriptor and creates a buffer, optionally
// filled with initial data.
func (s *System) CreateBuffer(desc *BufferDescriptor, initial []byte) (Buffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if err := s.validator.validateBuffer(desc); err != nil {
		s.emitDebug(SeverityError, "CreateBuffer", err.Error())
		return nil, err
	}
	if uint64(len(initial)) > desc.Size {
		err := driver.NewCreateError(KindBuffer, ErrInvalidCombination,
			"initial data %d bytes exceeds size %d", len(initial), desc.Size)
		s.emitDebug(SeverityError, "CreateBuffer", err.Error())
		return nil, err
	}
	b, err := s.adapter.CreateBuffer(desc, initial)
	if err != nil {
		s.emitDebug(SeverityError, "CreateBuffer", err.Error())
		return nil, err
	}
	s.registry.take(b)
	s.bufferMeta[b] = bufferInfo{
		size:      desc.Size,
		bindFlags: desc.BindFlags,
		cpuAccess: desc.CPUAccessFlags,
		dynamic:   desc.MiscFlags.Contains(MiscDynamicUsage),
	}
	Logger().Debug("buffer created",
		slog.String("label", desc.Label), slog.Uint64("size", desc.Size))
	return b, nil
}

// ReleaseBuffer destroys a buffer. Releasing a buffer the system does
// not own, including a second release, returns ErrNotRegistered.
func (s *System) ReleaseBuffer(b Buffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.registry.remove(b) {
		return ErrNotRegistered
	}
	delete(s.bufferMeta, b)
	s.adapter.ReleaseBuffer(b)
	return nil
}

// CreateBufferArray groups buffers owned by this system into an array.
// All members must share the same primary bind category.
func (s *System) CreateBufferArray(buffers []Buffer) (BufferArray, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	for i, b := range buffers {
		if !s.registry.owns(b) {
			return nil, fmt.Errorf("%w: buffer %d", ErrNotRegistered, i)
		}
	}
	if err := s.validator.validateBufferArray(buffers); err != nil {
		s.emitDebug(SeverityError, "CreateBufferArray", err.Error())
		return nil, err
	}
	arr, err := s.adapter.CreateBufferArray(buffers)
	if err != nil {
		s.emitDebug(SeverityError, "CreateBufferArray", err.Error())
		return nil, err
	}
	s.registry.take(arr)
	return arr, nil
}

// ReleaseBufferArray destroys an array, not its member buffers.
func (s *System) ReleaseBufferArray(arr BufferArray) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.registry.remove(arr) {
		return ErrNotRegistered
	}
	s.adapter.ReleaseBufferArray(arr)
	return nil
}

// WriteBuffer writes host data into a buffer through the queue.
//
// Buffers created without MiscDynamicUsage that carry the ConstantBuffer
// flag are static: they only accept whole-resource updates, so partial
// writes fail with ErrValidation.
func (s *System) WriteBuffer(b Buffer, offset uint64, data []byte) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	info, ok := s.bufferMeta[b]
	s.mu.Unlock()
	if !ok {
		return ErrNotRegistered
	}
	if offset+uint64(len(data)) > info.size {
		return fmt.Errorf("%w: write range [%d,%d) exceeds size %d",
			ErrValidation, offset, offset+uint64(len(data)), info.size)
	}
	if info.bindFlags.Contains(BindConstantBuffer) && !info.dynamic {
		if offset != 0 || uint64(len(data)) != info.size {
			return fmt.Errorf("%w: static constant buffers accept whole-resource updates only",
				ErrValidation)
		}
	}
	return s.adapter.Queue().WriteBuffer(b, offset, data)
}

// ReadBuffer blocks until prior work completes and reads a byte range.
// Requires CPUAccessRead on the buffer.
func (s *System) ReadBuffer(b Buffer, offset uint64, out []byte) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	info, ok := s.bufferMeta[b]
	s.mu.Unlock()
	if !ok {
		return ErrNotRegistered
	}
	if !info.cpuAccess.Contains(CPUAccessRead) {
		return fmt.Errorf("%w: buffer lacks CPU read access", ErrValidation)
	}
	return s.adapter.Queue().ReadBuffer(b, offset, out)
}

// MapBuffer exposes a buffer range to the host. The mapping direction
// must be covered by the CPU access flags the buffer was created with.
func (s *System) MapBuffer(b Buffer, mode MapMode, offset, size uint64) ([]byte, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	info, ok := s.bufferMeta[b]
	s.mu.Unlock()
	if !ok {
		return nil, ErrNotRegistered
	}
	if mode&MapRead != 0 && !info.cpuAccess.Contains(CPUAccessRead) {
		return nil, fmt.Errorf("%w: buffer lacks CPU read access", ErrValidation)
	}
	if mode&MapWrite != 0 && !info.cpuAccess.Contains(CPUAccessWrite) {
		return nil, fmt.Errorf("%w: buffer lacks CPU write access", ErrValidation)
	}
	return s.adapter.MapBuffer(b, mode, offset, size)
}

// UnmapBuffer ends a mapping, flushing writes for write mappings.
// Unmapping a buffer the system does not own is reported through the
// debug channel and otherwise ignored.
func (s *System) UnmapBuffer(b Buffer) {
	s.mu.Lock()
	_, ok := s.bufferMeta[b]
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}
	if !ok {
		s.emitDebug(SeverityWarning, "UnmapBuffer", ErrNotRegistered.Error())
		return
	}
	s.adapter.UnmapBuffer(b)
}

// CreateTexture validates the descriptor and creates a texture. initial,
// when non-nil, fills mip level 0; with MiscGenerateMips the remaining
// chain is derived from it.
func (s *System) CreateTexture(desc *TextureDescriptor, initial []byte) (Texture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if err := s.validator.validateTexture(desc); err != nil {
		s.emitDebug(SeverityError, "CreateTexture", err.Error())
		return nil, err
	}
	t, err := s.adapter.CreateTexture(desc, initial)
	if err != nil {
		s.emitDebug(SeverityError, "CreateTexture", err.Error())
		return nil, err
	}
	s.registry.take(t)
	Logger().Debug("texture created",
		slog.String("label", desc.Label),
		slog.String("kind", desc.Kind.String()))
	return t, nil
}

// ReleaseTexture destroys a texture.
func (s *System) ReleaseTexture(t Texture) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.registry.remove(t) {
		return ErrNotRegistered
	}
	s.adapter.ReleaseTexture(t)
	return nil
}

// WriteTexture writes host data into a texture region.
func (s *System) WriteTexture(t Texture, region TextureRegion, data []byte) error {
	if err := s.checkOwned(t); err != nil {
		return err
	}
	if !t.BindFlags().Contains(BindCopyDst) {
		return fmt.Errorf("%w: texture lacks the CopyDst flag", ErrValidation)
	}
	return s.adapter.WriteTexture(t, region, data)
}

// ReadTexture blocks until prior work completes and reads a texture
// region into out.
func (s *System) ReadTexture(t Texture, region TextureRegion, out []byte) error {
	if err := s.checkOwned(t); err != nil {
		return err
	}
	if !t.BindFlags().Contains(BindCopySrc) {
		return fmt.Errorf("%w: texture lacks the CopySrc flag", ErrValidation)
	}
	return s.adapter.ReadTexture(t, region, out)
}

// CreateSampler creates (or pools) a sampler state.
func (s *System) CreateSampler(desc *SamplerDescriptor) (Sampler, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if err := s.validator.validateSampler(desc); err != nil {
		s.emitDebug(SeverityError, "CreateSampler", err.Error())
		return nil, err
	}
	sm, err := s.adapter.CreateSampler(desc)
	if err != nil {
		s.emitDebug(SeverityError, "CreateSampler", err.Error())
		return nil, err
	}
	s.registry.take(sm)
	return sm, nil
}

// ReleaseSampler releases a sampler.
func (s *System) ReleaseSampler(sm Sampler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.registry.remove(sm) {
		return ErrNotRegistered
	}
	s.adapter.ReleaseSampler(sm)
	return nil
}

// CreateShader compiles one shader stage.
func (s *System) CreateShader(desc *ShaderDescriptor) (Shader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if err := s.validator.validateShader(desc); err != nil {
		s.emitDebug(SeverityError, "CreateShader", err.Error())
		return nil, err
	}
	sh, err := s.adapter.CreateShader(desc)
	if err != nil {
		s.emitDebug(SeverityError, "CreateShader", err.Error())
		return nil, err
	}
	s.registry.take(sh)
	return sh, nil
}

// ReleaseShader destroys a shader. Programs linked from it remain valid.
func (s *System) ReleaseShader(sh Shader) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.registry.remove(sh) {
		return ErrNotRegistered
	}
	s.adapter.ReleaseShader(sh)
	return nil
}

// CreateShaderProgram links shader stages into a program. The stage
// combination must be one of the legal graphics or compute sets. A
// failed link surfaces the backend link report in the error detail.
func (s *System) CreateShaderProgram(label string, shaders []Shader) (ShaderProgram, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if err := s.validator.validateProgram(shaders); err != nil {
		s.emitDebug(SeverityError, "CreateShaderProgram", err.Error())
		return nil, err
	}
	p, err := s.adapter.CreateShaderProgram(label, shaders)
	if err != nil {
		s.emitDebug(SeverityError, "CreateShaderProgram", err.Error())
		return nil, err
	}
	if report := p.LinkReport(); report != "" {
		s.emitDebug(SeverityWarning, "CreateShaderProgram", report)
	}
	s.registry.take(p)
	return p, nil
}

// ReleaseShaderProgram destroys a program, not its shaders.
func (s *System) ReleaseShaderProgram(p ShaderProgram) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.registry.remove(p) {
		return ErrNotRegistered
	}
	s.adapter.ReleaseShaderProgram(p)
	return nil
}

// CreateGraphicsPipeline creates a graphics pipeline.
func (s *System) CreateGraphicsPipeline(desc *GraphicsPipelineDescriptor) (Pipeline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if err := s.validator.validateGraphicsPipeline(desc); err != nil {
		s.emitDebug(SeverityError, "CreateGraphicsPipeline", err.Error())
		return nil, err
	}
	p, err := s.adapter.CreateGraphicsPipeline(desc)
	if err != nil {
		s.emitDebug(SeverityError, "CreateGraphicsPipeline", err.Error())
		return nil, err
	}
	s.registry.take(p)
	return p, nil
}

// CreateComputePipeline creates a compute pipeline.
func (s *System) CreateComputePipeline(desc *ComputePipelineDescriptor) (Pipeline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if err := s.validator.validateComputePipeline(desc); err != nil {
		s.emitDebug(SeverityError, "CreateComputePipeline", err.Error())
		return nil, err
	}
	p, err := s.adapter.CreateComputePipeline(desc)
	if err != nil {
		s.emitDebug(SeverityError, "CreateComputePipeline", err.Error())
		return nil, err
	}
	s.registry.take(p)
	return p, nil
}

// ReleasePipeline destroys a pipeline.
func (s *System) ReleasePipeline(p Pipeline) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.registry.remove(p) {
		return ErrNotRegistered
	}
	s.adapter.ReleasePipeline(p)
	return nil
}

// CreateRenderPass creates a render pass description.
func (s *System) CreateRenderPass(desc *RenderPassDescriptor) (RenderPass, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if err := s.validator.validateRenderPass(desc); err != nil {
		s.emitDebug(SeverityError, "CreateRenderPass", err.Error())
		return nil, err
	}
	rp, err := s.adapter.CreateRenderPass(desc)
	if err != nil {
		s.emitDebug(SeverityError, "CreateRenderPass", err.Error())
		return nil, err
	}
	s.registry.take(rp)
	return rp, nil
}

// ReleaseRenderPass destroys a render pass.
func (s *System) ReleaseRenderPass(rp RenderPass) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.registry.remove(rp) {
		return ErrNotRegistered
	}
	s.adapter.ReleaseRenderPass(rp)
	return nil
}

// CreateRenderTarget creates a render target over attachment textures.
// The attachment textures must be owned by this system.
func (s *System) CreateRenderTarget(desc *RenderTargetDescriptor) (RenderTarget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	for i, att := range desc.ColorAttachments {
		if att.Texture != nil && !s.registry.owns(att.Texture) {
			return nil, fmt.Errorf("%w: color attachment %d texture", ErrNotRegistered, i)
		}
	}
	if err := s.validator.validateRenderTarget(desc); err != nil {
		s.emitDebug(SeverityError, "CreateRenderTarget", err.Error())
		return nil, err
	}
	rt, err := s.adapter.CreateRenderTarget(desc)
	if err != nil {
		s.emitDebug(SeverityError, "CreateRenderTarget", err.Error())
		return nil, err
	}
	s.registry.take(rt)
	return rt, nil
}

// ReleaseRenderTarget destroys a render target, not its textures.
func (s *System) ReleaseRenderTarget(rt RenderTarget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.registry.remove(rt) {
		return ErrNotRegistered
	}
	s.adapter.ReleaseRenderTarget(rt)
	return nil
}

// CreateQueryHeap creates a query heap.
func (s *System) CreateQueryHeap(desc *QueryHeapDescriptor) (QueryHeap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if err := s.validator.validateQueryHeap(desc); err != nil {
		s.emitDebug(SeverityError, "CreateQueryHeap", err.Error())
		return nil, err
	}
	q, err := s.adapter.CreateQueryHeap(desc)
	if err != nil {
		s.emitDebug(SeverityError, "CreateQueryHeap", err.Error())
		return nil, err
	}
	s.registry.take(q)
	return q, nil
}

// ReleaseQueryHeap destroys a query heap.
func (s *System) ReleaseQueryHeap(q QueryHeap) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.registry.remove(q) {
		return ErrNotRegistered
	}
	s.adapter.ReleaseQueryHeap(q)
	return nil
}

// ResolveQueries blocks until results are available and copies query
// values starting at first into out.
func (s *System) ResolveQueries(q QueryHeap, first, count uint32, out []uint64) error {
	if err := s.checkOwned(q); err != nil {
		return err
	}
	return s.adapter.ResolveQueries(q, first, count, out)
}

// CreateFence creates an unsignaled fence.
func (s *System) CreateFence() (Fence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	f, err := s.adapter.CreateFence()
	if err != nil {
		return nil, err
	}
	s.registry.take(f)
	return f, nil
}

// ReleaseFence destroys a fence.
func (s *System) ReleaseFence(f Fence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.registry.remove(f) {
		return ErrNotRegistered
	}
	s.adapter.ReleaseFence(f)
	return nil
}

// CreateDeferredCommandBuffer creates a command buffer that stores
// commands and replays them when submitted to the queue. Pass
// CmdBufferMultiSubmit to keep the recording submittable after each
// submission completes.
func (s *System) CreateDeferredCommandBuffer(label string, flags CommandBufferFlags) CommandBuffer {
	return newDeferredCommandBuffer(label, flags)
}

// CreateImmediateCommandBuffer creates a command buffer that forwards
// commands to a live encoder as they are recorded and executes them
// against the device when End is called.
func (s *System) CreateImmediateCommandBuffer(label string) CommandBuffer {
	return newImmediateCommandBuffer(label, s.adapter)
}

// Close waits for the device to drain, releases every resource still
// registered (logging each leak), and shuts the adapter down. Close is
// idempotent; any use of the system afterwards returns ErrClosed.
func (s *System) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true

	_ = s.adapter.Queue().WaitIdle(context.Background())

	leaked := s.registry.total()
	if leaked > 0 {
		s.emitDebug(SeverityWarning, "Close",
			fmt.Sprintf("%d resources still alive at shutdown", leaked))
	}
	s.registry.drainAll(func(res Resource) {
		Logger().Warn("releasing leaked resource",
			slog.String("kind", res.Kind().String()),
			slog.String("label", res.Label()))
		s.releaseNative(res)
	})
	s.bufferMeta = make(map[Buffer]bufferInfo)

	s.adapter.Close()
	Logger().Info("render system closed")
}

// releaseNative dispatches a release to the adapter by resource kind.
// Used by the shutdown sweep where only the interface value is known.
// Kind, not a type switch, drives the dispatch: several resource
// interfaces share the same method set and would shadow each other.
func (s *System) releaseNative(res Resource) {
	switch res.Kind() {
	case KindBuffer:
		s.adapter.ReleaseBuffer(res.(Buffer))
	case KindBufferArray:
		s.adapter.ReleaseBufferArray(res.(BufferArray))
	case KindTexture:
		s.adapter.ReleaseTexture(res.(Texture))
	case KindSampler:
		s.adapter.ReleaseSampler(res.(Sampler))
	case KindShader:
		s.adapter.ReleaseShader(res.(Shader))
	case KindShaderProgram:
		s.adapter.ReleaseShaderProgram(res.(ShaderProgram))
	case KindPipeline:
		s.adapter.ReleasePipeline(res.(Pipeline))
	case KindRenderPass:
		s.adapter.ReleaseRenderPass(res.(RenderPass))
	case KindRenderTarget:
		s.adapter.ReleaseRenderTarget(res.(RenderTarget))
	case KindQueryHeap:
		s.adapter.ReleaseQueryHeap(res.(QueryHeap))
	case KindFence:
		s.adapter.ReleaseFence(res.(Fence))
	}
}
