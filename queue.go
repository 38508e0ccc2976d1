package rhi

import (
	"context"
	"fmt"
	"sync"

	"github.com/gogpu/rhi/driver"
)

// Queue submits finished command buffers to the device in FIFO order.
// A mutex serializes submissions, so buffers submitted from multiple
// goroutines execute in the order the lock was acquired.
type Queue struct {
	mu      sync.Mutex
	adapter driver.Adapter
	sys     *System
}

func newQueue(adapter driver.Adapter, sys *System) *Queue {
	return &Queue{adapter: adapter, sys: sys}
}

// Submit enqueues a Closed deferred command buffer for execution.
// fence, when non-nil, is signaled after the work completes on the
// device.
//
// Buffers created with CmdBufferMultiSubmit return to Closed when the
// submission completes and may be submitted again; others are consumed
// and must be re-recorded. Immediate buffers execute at End and are
// never submitted.
func (q *Queue) Submit(cb CommandBuffer, fence Fence) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	switch b := cb.(type) {
	case *deferredCommandBuffer:
		return q.submitDeferred(b, fence)
	case *immediateCommandBuffer:
		return fmt.Errorf("%w: immediate buffers execute at End and are not submitted", ErrInvalidState)
	default:
		return fmt.Errorf("%w: unknown command buffer implementation %T", ErrInvalidState, cb)
	}
}

func (q *Queue) submitDeferred(cb *deferredCommandBuffer, fence Fence) error {
	if cb.state != StateClosed {
		return errStatef("Submit", cb.state)
	}
	if err := cb.validateComplete(); err != nil {
		q.sys.emitDebug(SeverityError, "Submit", err.Error())
		return err
	}
	cb.state = StateSubmitted

	enc, err := q.adapter.NewEncoder()
	if err != nil {
		cb.state = StateCompleted
		return err
	}
	if err := cb.replay(enc); err != nil {
		enc.Discard()
		cb.state = StateCompleted
		return err
	}
	payload, err := enc.Finish()
	if err != nil {
		cb.state = StateCompleted
		return err
	}

	cb.state = StateExecuting
	err = q.adapter.Queue().Submit(payload, fence)
	if cb.multiSubmit {
		cb.state = StateClosed
	} else {
		cb.state = StateCompleted
	}
	return err
}

// Signal enqueues a fence signal after all prior submissions complete.
func (q *Queue) Signal(fence Fence) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.adapter.Queue().Signal(fence)
}

// WaitFence blocks until the fence is signaled or ctx is done.
// Safe to call concurrently with submissions from other goroutines.
func (q *Queue) WaitFence(ctx context.Context, fence Fence) error {
	return q.adapter.Queue().WaitFence(ctx, fence)
}

// WaitIdle blocks until all submitted work has completed.
func (q *Queue) WaitIdle(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.adapter.Queue().WaitIdle(ctx)
}
