// Package null implements an in-memory software adapter.
//
// Every resource is backed by host memory and every submitted command
// executes synchronously on the calling goroutine, which makes the
// adapter fully deterministic. It backs unit tests and headless use on
// machines without a GPU.
//
// Importing the package registers the adapter under the name "null".
package null

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"sync"

	"github.com/gogpu/rhi/driver"
)

func init() {
	driver.Register(driver.AdapterNull, func() driver.Adapter {
		return New()
	})
}

// Adapter is the in-memory software adapter.
// Exported so tests can reach the snapshot helpers; production code
// should go through driver.Get / driver.Default.
type Adapter struct {
	mu          sync.Mutex
	initialized bool
	caps        driver.Capabilities
	queue       *nullQueue

	samplers *samplerPool

	// live resources keyed by identity, used for leak checks and
	// snapshots.
	buffers  map[*nullBuffer]struct{}
	textures map[*nullTexture]struct{}
}

// New creates an uninitialized null adapter.
func New() *Adapter {
	a := &Adapter{
		buffers:  make(map[*nullBuffer]struct{}),
		textures: make(map[*nullTexture]struct{}),
	}
	a.queue = &nullQueue{adapter: a}
	a.samplers = newSamplerPool()
	return a
}

// Name returns the adapter identifier.
func (a *Adapter) Name() string { return driver.AdapterNull }

// Init initializes the adapter.
func (a *Adapter) Init() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.initialized {
		return nil
	}
	a.caps = softwareCaps()
	a.initialized = true
	return nil
}

// Close releases all adapter state.
func (a *Adapter) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.initialized {
		return
	}
	a.samplers.clear()
	a.buffers = make(map[*nullBuffer]struct{})
	a.textures = make(map[*nullTexture]struct{})
	a.initialized = false
}

// Caps returns the software device capabilities.
func (a *Adapter) Caps() *driver.Capabilities {
	return &a.caps
}

// Queue returns the synchronous execution queue.
func (a *Adapter) Queue() driver.Queue {
	return a.queue
}

// softwareCaps describes what the software device can do. Multisampling
// and the legacy pipeline stages are not rasterized in software.
func softwareCaps() driver.Capabilities {
	var c driver.Capabilities
	c.VendorName = "rhi"
	c.DeviceName = "null software device"
	c.Set(driver.Cap3DTextures, true)
	c.Set(driver.CapCubeArrayTextures, true)
	c.Set(driver.CapComputeShaders, true)
	c.Set(driver.CapIndirectDraw, true)
	c.Set(driver.CapTimestampQueries, true)
	c.Limits = driver.Limits{
		MaxBufferSize:         1 << 30,
		MaxTextureSize:        16384,
		Max3DTextureSize:      2048,
		MaxCubeTextureSize:    16384,
		MaxArrayLayers:        2048,
		MaxSampleCount:        1,
		MaxColorAttachments:   8,
		MaxViewports:          16,
		MaxConstantBufferSize: 1 << 16,
	}
	return c
}

// LiveBuffers returns the number of live buffers. Test helper.
func (a *Adapter) LiveBuffers() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.buffers)
}

// LiveTextures returns the number of live textures. Test helper.
func (a *Adapter) LiveTextures() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.textures)
}

// Snapshot hashes all live buffer and texture contents. Two device
// states with identical contents produce identical snapshots, which is
// how replay determinism is asserted in tests.
func (a *Adapter) Snapshot() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	lines := make([]string, 0, len(a.buffers)+len(a.textures))
	for b := range a.buffers {
		h := fnv.New64a()
		_, _ = h.Write(b.data)
		lines = append(lines, fmt.Sprintf("buffer %s %d %x", b.label, b.size, h.Sum64()))
	}
	for t := range a.textures {
		h := fnv.New64a()
		for _, level := range t.levels {
			_, _ = h.Write(level)
		}
		lines = append(lines, fmt.Sprintf("texture %s %dx%d %x", t.label, t.extent.Width, t.extent.Height, h.Sum64()))
	}
	sort.Strings(lines)

	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.Join(lines, "\n")))
	return h.Sum64()
}

func (a *Adapter) trackBuffer(b *nullBuffer) {
	a.mu.Lock()
	a.buffers[b] = struct{}{}
	a.mu.Unlock()
}

func (a *Adapter) untrackBuffer(b *nullBuffer) {
	a.mu.Lock()
	delete(a.buffers, b)
	a.mu.Unlock()
}

func (a *Adapter) trackTexture(t *nullTexture) {
	a.mu.Lock()
	a.textures[t] = struct{}{}
	a.mu.Unlock()
}

func (a *Adapter) untrackTexture(t *nullTexture) {
	a.mu.Lock()
	delete(a.textures, t)
	a.mu.Unlock()
}
