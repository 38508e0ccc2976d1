package wgpu

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rhi/driver"
)

// copyPitchAlignment is the row pitch alignment required for
// texture-to-buffer copies.
const copyPitchAlignment = 256

// submitTimeout bounds how long a synchronous submission waits for the
// device before giving up.
const submitTimeout = 5 * time.Second

// wgpuPayload is a finished HAL command buffer plus the host-side work
// bracketing it. preOps run on the queue timeline before the HAL
// submission, postOps after it completes. Transient bind groups live
// until the submission is done.
type wgpuPayload struct {
	device hal.Device
	cmd    hal.CommandBuffer

	preOps  []func() error
	postOps []func() error

	bindGroups []hal.BindGroup
	discarded  bool
}

// Discard releases the payload without submitting it.
func (p *wgpuPayload) Discard() {
	p.discarded = true
	p.release()
}

// release frees the HAL command buffer and transient bind groups.
func (p *wgpuPayload) release() {
	for _, bg := range p.bindGroups {
		p.device.DestroyBindGroup(bg)
	}
	p.bindGroups = nil
	if p.cmd != nil {
		p.device.FreeCommandBuffer(p.cmd)
		p.cmd = nil
	}
	p.preOps = nil
	p.postOps = nil
}

// wgpuFence signals once via channel close. Fences are host-side;
// submission is synchronous, so a fence is signaled the moment its
// submission returns.
type wgpuFence struct {
	ch   chan struct{}
	once sync.Once
}

func (f *wgpuFence) Kind() driver.ResourceKind { return driver.KindFence }
func (f *wgpuFence) Label() string             { return "" }

func (f *wgpuFence) signal() {
	f.once.Do(func() { close(f.ch) })
}

// CreateFence creates an unsignaled fence.
func (a *Adapter) CreateFence() (driver.Fence, error) {
	return &wgpuFence{ch: make(chan struct{})}, nil
}

// ReleaseFence destroys a fence. A released fence counts as signaled so
// pending waiters unblock.
func (a *Adapter) ReleaseFence(f driver.Fence) {
	if wf, ok := f.(*wgpuFence); ok {
		wf.signal()
	}
}

// wgpuQueue submits command payloads to the HAL queue. Submissions
// complete before Submit returns; the device wait doubles as the fence
// boundary, so driver fences signal on the submitting goroutine.
type wgpuQueue struct {
	adapter *Adapter
	mu      sync.Mutex
}

// Submit executes the payload on the device and signals the fence.
func (q *wgpuQueue) Submit(payload driver.CommandPayload, fence driver.Fence) error {
	p, ok := payload.(*wgpuPayload)
	if !ok {
		return driver.ErrInvalidCombination
	}
	if p.discarded {
		return fmt.Errorf("%w: payload was discarded", driver.ErrInvalidCombination)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	defer p.release()

	var firstErr error
	for _, op := range p.preOps {
		if err := op(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if err := q.submitAndWait(p.cmd); err != nil && firstErr == nil {
		firstErr = err
	}
	p.cmd = nil // freed by submitAndWait

	for _, op := range p.postOps {
		if err := op(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if fence != nil {
		if wf, ok := fence.(*wgpuFence); ok {
			wf.signal()
		}
	}
	return firstErr
}

// submitAndWait runs one HAL command buffer to completion and frees it.
func (q *wgpuQueue) submitAndWait(cmd hal.CommandBuffer) error {
	a := q.adapter
	defer a.device.FreeCommandBuffer(cmd)

	idx, err := a.halQueue.Submit([]hal.CommandBuffer{cmd})
	if err != nil {
		return fmt.Errorf("%w: submit: %v", driver.ErrDeviceFailure, err)
	}
	return q.waitSubmission(idx)
}

// waitSubmission blocks until the submission index is reported complete.
// WaitIdle drains the device so PollCompleted observes the final index.
func (q *wgpuQueue) waitSubmission(idx uint64) error {
	a := q.adapter
	deadline := time.Now().Add(submitTimeout)
	for a.halQueue.PollCompleted() < idx {
		if err := a.device.WaitIdle(); err != nil {
			return fmt.Errorf("%w: wait idle: %v", driver.ErrDeviceFailure, err)
		}
		if a.halQueue.PollCompleted() >= idx {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: submission %d timed out after %v",
				driver.ErrDeviceFailure, idx, submitTimeout)
		}
		time.Sleep(time.Millisecond)
	}
	return nil
}

// Signal signals the fence after prior submissions, which have already
// completed.
func (q *wgpuQueue) Signal(fence driver.Fence) error {
	wf, ok := fence.(*wgpuFence)
	if !ok {
		return driver.ErrInvalidCombination
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	wf.signal()
	return nil
}

// WaitFence blocks until the fence is signaled or ctx is done.
func (q *wgpuQueue) WaitFence(ctx context.Context, fence driver.Fence) error {
	wf, ok := fence.(*wgpuFence)
	if !ok {
		return driver.ErrInvalidCombination
	}
	select {
	case <-wf.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitIdle blocks until all submitted work has completed. Submission is
// synchronous, so taking the queue lock is the wait.
func (q *wgpuQueue) WaitIdle(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return nil
}

// WriteBuffer schedules a host-to-device buffer write ordered before
// subsequent submissions.
func (q *wgpuQueue) WriteBuffer(buf driver.Buffer, offset uint64, data []byte) error {
	wb, ok := buf.(*wgpuBuffer)
	if !ok {
		return driver.ErrInvalidCombination
	}
	if offset+uint64(len(data)) > wb.size {
		return fmt.Errorf("%w: write range exceeds buffer size %d", driver.ErrExceededCapacity, wb.size)
	}
	q.adapter.halQueue.WriteBuffer(wb.buffer, offset, data)
	if wb.shadow != nil {
		copy(wb.shadow[offset:], data)
	}
	return nil
}

// ReadBuffer copies a device buffer range into out through a mappable
// staging buffer, blocking until prior work completes.
func (q *wgpuQueue) ReadBuffer(buf driver.Buffer, offset uint64, out []byte) error {
	wb, ok := buf.(*wgpuBuffer)
	if !ok {
		return driver.ErrInvalidCombination
	}
	if offset+uint64(len(out)) > wb.size {
		return fmt.Errorf("%w: read range exceeds buffer size %d", driver.ErrExceededCapacity, wb.size)
	}
	if len(out) == 0 {
		return nil
	}
	return q.readDeviceBuffer(wb.buffer, offset, out)
}

// readDeviceBuffer copies a range of a device buffer into out through a
// mappable staging buffer, blocking until the copy completes.
func (q *wgpuQueue) readDeviceBuffer(src hal.Buffer, offset uint64, out []byte) error {
	a := q.adapter

	staging, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "rhi_read_staging",
		Size:  uint64(len(out)),
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("%w: staging buffer: %v", driver.ErrDeviceFailure, err)
	}
	defer a.device.DestroyBuffer(staging)

	enc, err := a.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "rhi_readback"})
	if err != nil {
		return fmt.Errorf("%w: readback encoder: %v", driver.ErrDeviceFailure, err)
	}
	if err := enc.BeginEncoding("rhi_readback"); err != nil {
		return fmt.Errorf("%w: begin readback: %v", driver.ErrDeviceFailure, err)
	}
	enc.CopyBufferToBuffer(src, staging, []hal.BufferCopy{{
		SrcOffset: offset,
		DstOffset: 0,
		Size:      uint64(len(out)),
	}})
	cmd, err := enc.EndEncoding()
	if err != nil {
		return fmt.Errorf("%w: end readback: %v", driver.ErrDeviceFailure, err)
	}

	q.mu.Lock()
	err = q.submitAndWait(cmd)
	q.mu.Unlock()
	if err != nil {
		return err
	}
	return q.readHALBuffer(staging, 0, out)
}

// readHALBuffer maps a host-visible HAL buffer and copies bytes out.
// The caller must ensure the GPU is done writing the range.
func (q *wgpuQueue) readHALBuffer(buf hal.Buffer, offset uint64, out []byte) error {
	mapping, err := q.adapter.device.MapBuffer(buf, offset, uint64(len(out)))
	if err != nil {
		return fmt.Errorf("%w: map buffer: %v", driver.ErrDeviceFailure, err)
	}
	copy(out, unsafe.Slice((*byte)(mapping.Ptr), len(out)))
	if err := q.adapter.device.UnmapBuffer(buf); err != nil {
		return fmt.Errorf("%w: unmap buffer: %v", driver.ErrDeviceFailure, err)
	}
	return nil
}

// ReadTexture blocks until prior work completes and reads a texture
// region into out, tightly packed.
func (a *Adapter) ReadTexture(t driver.Texture, region driver.TextureRegion, out []byte) error {
	wt, ok := t.(*wgpuTexture)
	if !ok {
		return fmt.Errorf("%w: texture was not created by this adapter", driver.ErrInvalidCombination)
	}
	texel := formatTexelSize(wt.format)
	extent := region.Extent
	tightRow := extent.Width * texel
	need := uint64(tightRow) * uint64(extent.Height) * uint64(extent.Depth)
	if uint64(len(out)) < need {
		return fmt.Errorf("%w: output holds %d bytes, region needs %d", driver.ErrExceededCapacity, len(out), need)
	}

	bytesPerRow := alignUp(tightRow, copyPitchAlignment)
	stagingSize := uint64(bytesPerRow) * uint64(extent.Height) * uint64(extent.Depth)

	staging, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "rhi_read_staging",
		Size:  stagingSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("%w: staging buffer: %v", driver.ErrDeviceFailure, err)
	}
	defer a.device.DestroyBuffer(staging)

	enc, err := a.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "rhi_readback"})
	if err != nil {
		return fmt.Errorf("%w: readback encoder: %v", driver.ErrDeviceFailure, err)
	}
	if err := enc.BeginEncoding("rhi_readback"); err != nil {
		return fmt.Errorf("%w: begin readback: %v", driver.ErrDeviceFailure, err)
	}
	enc.CopyTextureToBuffer(wt.texture, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  bytesPerRow,
			RowsPerImage: extent.Height,
		},
		TextureBase: hal.ImageCopyTexture{
			Texture:  wt.texture,
			MipLevel: region.MipLevel,
			Origin:   hal.Origin3D{X: region.Origin.X, Y: region.Origin.Y, Z: region.Layer + region.Origin.Z},
		},
		Size: hal.Extent3D{
			Width:              extent.Width,
			Height:             extent.Height,
			DepthOrArrayLayers: extent.Depth,
		},
	}})
	cmd, err := enc.EndEncoding()
	if err != nil {
		return fmt.Errorf("%w: end readback: %v", driver.ErrDeviceFailure, err)
	}

	a.queue.mu.Lock()
	err = a.queue.submitAndWait(cmd)
	a.queue.mu.Unlock()
	if err != nil {
		return err
	}

	padded := make([]byte, stagingSize)
	if err := a.queue.readHALBuffer(staging, 0, padded); err != nil {
		return err
	}
	copy(out, stripRowPadding(padded, extent, texel, bytesPerRow))
	return nil
}
