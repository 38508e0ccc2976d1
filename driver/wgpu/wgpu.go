// Package wgpu implements the GPU adapter on top of the gogpu wgpu HAL.
//
// The adapter opens a Vulkan device through the HAL, or attaches to a
// shared device exposed by a gpucontext.DeviceProvider when one has been
// installed with SetDeviceProvider. Resources map one-to-one onto HAL
// objects; pipelines and bind group layouts are built lazily at first
// draw and pooled in a state cache.
//
// Importing the package registers the adapter under the name "wgpu".
package wgpu

import (
	"fmt"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rhi/driver"
	"github.com/gogpu/rhi/internal/statecache"
)

func init() {
	driver.Register(driver.AdapterWGPU, func() driver.Adapter {
		return New()
	})
}

// sharedProvider, when set, supplies the HAL device and queue instead of
// opening a standalone device. Guarded by sharedMu.
var (
	sharedMu       sync.Mutex
	sharedProvider gpucontext.DeviceProvider
)

// SetDeviceProvider installs a shared device provider consulted by the
// next Init. The provider must expose the underlying HAL objects through
// HalDevice() and HalQueue(); providers that do not are ignored and the
// adapter opens its own device. Passing nil reverts to standalone mode.
func SetDeviceProvider(p gpucontext.DeviceProvider) {
	sharedMu.Lock()
	sharedProvider = p
	sharedMu.Unlock()
}

// halProvider is the shape a device provider must have for the adapter
// to borrow its HAL device instead of creating one.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// Adapter is the wgpu HAL adapter.
type Adapter struct {
	mu          sync.Mutex
	initialized bool

	instance hal.Instance
	device   hal.Device
	halQueue hal.Queue

	// externalDevice marks a device borrowed from a provider; borrowed
	// devices are not destroyed on Close.
	externalDevice bool

	caps  driver.Capabilities
	queue *wgpuQueue

	samplers  *samplerPool
	pipelines *pipelineCache
}

// New creates an uninitialized wgpu adapter.
func New() *Adapter {
	a := &Adapter{}
	a.queue = &wgpuQueue{adapter: a}
	return a
}

// Name returns the adapter identifier.
func (a *Adapter) Name() string { return driver.AdapterWGPU }

// Init opens the HAL device. A shared device installed with
// SetDeviceProvider takes precedence over opening a standalone one.
func (a *Adapter) Init() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.initialized {
		return nil
	}

	name, err := a.attachDevice()
	if err != nil {
		return fmt.Errorf("%w: %v", driver.ErrNotAvailable, err)
	}

	a.caps = halCaps(name)
	a.samplers = newSamplerPool(a.device)
	a.pipelines = newPipelineCache(a.device)
	a.initialized = true
	return nil
}

// attachDevice borrows a shared device when a provider is installed,
// otherwise opens a standalone Vulkan device. Returns the adapter name
// for the capability report.
func (a *Adapter) attachDevice() (string, error) {
	sharedMu.Lock()
	provider := sharedProvider
	sharedMu.Unlock()

	if provider != nil {
		if hp, ok := provider.(halProvider); ok {
			device, dok := hp.HalDevice().(hal.Device)
			queue, qok := hp.HalQueue().(hal.Queue)
			if dok && qok && device != nil && queue != nil {
				a.device = device
				a.halQueue = queue
				a.externalDevice = true
				return "shared device", nil
			}
		}
	}

	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return "", fmt.Errorf("vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return "", fmt.Errorf("create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return "", fmt.Errorf("no GPU adapters found")
	}

	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return "", fmt.Errorf("open device: %w", err)
	}

	a.instance = instance
	a.device = openDev.Device
	a.halQueue = openDev.Queue
	a.externalDevice = false
	return selected.Info.Name, nil
}

// Close destroys pooled states and, for standalone devices, the device
// and instance.
func (a *Adapter) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.initialized {
		return
	}

	a.pipelines.clear()
	a.samplers.clear()

	if !a.externalDevice && a.device != nil {
		a.device.Destroy()
	}
	if a.instance != nil {
		a.instance.Destroy()
		a.instance = nil
	}
	a.device = nil
	a.halQueue = nil
	a.initialized = false
}

// Caps returns the device capabilities.
func (a *Adapter) Caps() *driver.Capabilities {
	return &a.caps
}

// Queue returns the device execution queue.
func (a *Adapter) Queue() driver.Queue {
	return a.queue
}

// halCaps builds the capability report for a HAL Vulkan device.
// Geometry and tessellation stages are not expressible in WGSL, so they
// are reported unsupported regardless of what the physical device offers.
func halCaps(deviceName string) driver.Capabilities {
	var c driver.Capabilities
	lim := gputypes.DefaultLimits()

	c.VendorName = "gogpu"
	c.DeviceName = deviceName
	c.Set(driver.CapMultiSampleTextures, true)
	c.Set(driver.Cap3DTextures, true)
	c.Set(driver.CapCubeArrayTextures, true)
	c.Set(driver.CapComputeShaders, true)
	c.Set(driver.CapIndirectDraw, true)
	c.Set(driver.CapTimestampQueries, true)
	c.Limits = driver.Limits{
		MaxBufferSize:         lim.MaxBufferSize,
		MaxTextureSize:        lim.MaxTextureDimension2D,
		Max3DTextureSize:      2048,
		MaxCubeTextureSize:    lim.MaxTextureDimension2D,
		MaxArrayLayers:        256,
		MaxSampleCount:        4,
		MaxColorAttachments:   8,
		MaxViewports:          16,
		MaxConstantBufferSize: 1 << 16,
	}
	return c
}

// samplerPool deduplicates HAL samplers by descriptor value. Equal
// descriptors share one native sampler with a reference count.
type samplerPool struct {
	mu     sync.Mutex
	device hal.Device
	cache  *statecache.Cache[driver.SamplerDescriptor, *wgpuSampler]
}

func newSamplerPool(device hal.Device) *samplerPool {
	p := &samplerPool{device: device}
	p.cache = statecache.New[driver.SamplerDescriptor, *wgpuSampler](0, func(s *wgpuSampler) {
		device.DestroySampler(s.sampler)
	})
	return p
}

func (p *samplerPool) get(desc *driver.SamplerDescriptor) (*wgpuSampler, error) {
	key := *desc
	key.Label = ""
	p.mu.Lock()
	defer p.mu.Unlock()
	s, err := p.cache.GetOrCreate(key, func() (*wgpuSampler, error) {
		halSampler, err := p.device.CreateSampler(&hal.SamplerDescriptor{
			Label:        desc.Label,
			AddressModeU: convertAddressMode(desc.AddressU),
			AddressModeV: convertAddressMode(desc.AddressV),
			AddressModeW: convertAddressMode(desc.AddressW),
			MagFilter:    convertFilterMode(desc.MagFilter),
			MinFilter:    convertFilterMode(desc.MinFilter),
			MipmapFilter: convertFilterMode(desc.MipFilter),
		})
		if err != nil {
			return nil, driver.NewCreateError(driver.KindSampler, driver.ErrDeviceFailure, "hal: %v", err)
		}
		return &wgpuSampler{desc: key, sampler: halSampler}, nil
	})
	if err != nil {
		return nil, err
	}
	s.refs++
	return s, nil
}

func (p *samplerPool) put(s *wgpuSampler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s.refs--
	if s.refs <= 0 {
		p.cache.Delete(s.desc)
	}
}

func (p *samplerPool) clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache.Clear()
}
