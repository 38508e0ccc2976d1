package null

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/gogpu/rhi/driver"
)

// tick is the global timestamp counter for WriteTimestamp.
var tick atomic.Uint64

func nextTick() uint64 {
	return tick.Add(1)
}

// nullPayload is a finished command list.
type nullPayload struct {
	ops       []func() error
	discarded bool
}

// Discard releases the payload without submitting it.
func (p *nullPayload) Discard() {
	p.discarded = true
	p.ops = nil
}

// nullQueue executes payloads synchronously on the submitting goroutine.
// The software device has no asynchrony to hide, so submission order and
// completion order are trivially identical.
type nullQueue struct {
	adapter *Adapter
}

// Submit executes the payload and signals the fence.
func (q *nullQueue) Submit(payload driver.CommandPayload, fence driver.Fence) error {
	p, ok := payload.(*nullPayload)
	if !ok {
		return driver.ErrInvalidCombination
	}
	if p.discarded {
		return fmt.Errorf("%w: payload was discarded", driver.ErrInvalidCombination)
	}
	var firstErr error
	for _, op := range p.ops {
		if err := op(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if fence != nil {
		if nf, ok := fence.(*nullFence); ok {
			nf.signal()
		}
	}
	return firstErr
}

// Signal signals the fence immediately; all prior work has completed.
func (q *nullQueue) Signal(fence driver.Fence) error {
	nf, ok := fence.(*nullFence)
	if !ok {
		return driver.ErrInvalidCombination
	}
	nf.signal()
	return nil
}

// WaitFence blocks until the fence is signaled or ctx is done.
func (q *nullQueue) WaitFence(ctx context.Context, fence driver.Fence) error {
	nf, ok := fence.(*nullFence)
	if !ok {
		return driver.ErrInvalidCombination
	}
	select {
	case <-nf.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitIdle returns immediately; execution is synchronous.
func (q *nullQueue) WaitIdle(ctx context.Context) error {
	return ctx.Err()
}

// WriteBuffer copies host data into buffer storage.
func (q *nullQueue) WriteBuffer(buf driver.Buffer, offset uint64, data []byte) error {
	b, ok := buf.(*nullBuffer)
	if !ok {
		return driver.ErrInvalidCombination
	}
	if offset+uint64(len(data)) > b.size {
		return fmt.Errorf("%w: write range exceeds buffer size %d", driver.ErrExceededCapacity, b.size)
	}
	copy(b.data[offset:], data)
	return nil
}

// ReadBuffer copies buffer storage into out.
func (q *nullQueue) ReadBuffer(buf driver.Buffer, offset uint64, out []byte) error {
	b, ok := buf.(*nullBuffer)
	if !ok {
		return driver.ErrInvalidCombination
	}
	if offset+uint64(len(out)) > b.size {
		return fmt.Errorf("%w: read range exceeds buffer size %d", driver.ErrExceededCapacity, b.size)
	}
	copy(out, b.data[offset:])
	return nil
}
