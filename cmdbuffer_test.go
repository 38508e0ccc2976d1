package rhi

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/gogpu/rhi/driver"
)

// renderSetup bundles the resources a draw needs.
type renderSetup struct {
	target   RenderTarget
	pass     RenderPass
	graphics Pipeline
	compute  Pipeline
	vbo      Buffer
	ibo      Buffer
}

func newRenderSetup(t *testing.T, s *System) *renderSetup {
	t.Helper()

	color, err := s.CreateTexture(&TextureDescriptor{
		Label:     "color",
		Kind:      Texture2D,
		Format:    FormatRGBA8Unorm,
		Extent:    Extent3D{Width: 16, Height: 16, Depth: 1},
		MipLevels: 1,
		BindFlags: BindColorAttachment | BindSampled,
	}, nil)
	if err != nil {
		t.Fatalf("CreateTexture(color) = %v", err)
	}
	pass, err := s.CreateRenderPass(&RenderPassDescriptor{
		Label: "pass",
		ColorAttachments: []driver.AttachmentDescriptor{
			{Format: FormatRGBA8Unorm, LoadOp: driver.LoadOpClear, StoreOp: driver.StoreOpStore},
		},
	})
	if err != nil {
		t.Fatalf("CreateRenderPass() = %v", err)
	}
	target, err := s.CreateRenderTarget(&RenderTargetDescriptor{
		Label:      "target",
		Resolution: Extent3D{Width: 16, Height: 16, Depth: 1},
		ColorAttachments: []RenderTargetAttachment{
			{Texture: color},
		},
	})
	if err != nil {
		t.Fatalf("CreateRenderTarget() = %v", err)
	}

	vs, err := s.CreateShader(&ShaderDescriptor{Stage: StageVertex, Source: "@vertex fn main() {}"})
	if err != nil {
		t.Fatalf("CreateShader(vs) = %v", err)
	}
	fs, err := s.CreateShader(&ShaderDescriptor{Stage: StageFragment, Source: "@fragment fn main() {}"})
	if err != nil {
		t.Fatalf("CreateShader(fs) = %v", err)
	}
	cs, err := s.CreateShader(&ShaderDescriptor{Stage: StageCompute, Source: "@compute fn main() {}"})
	if err != nil {
		t.Fatalf("CreateShader(cs) = %v", err)
	}
	gfxProg, err := s.CreateShaderProgram("gfx", []Shader{vs, fs})
	if err != nil {
		t.Fatalf("CreateShaderProgram(gfx) = %v", err)
	}
	compProg, err := s.CreateShaderProgram("comp", []Shader{cs})
	if err != nil {
		t.Fatalf("CreateShaderProgram(comp) = %v", err)
	}
	graphics, err := s.CreateGraphicsPipeline(&GraphicsPipelineDescriptor{
		Label:      "gfx",
		Program:    gfxProg,
		RenderPass: pass,
		Topology:   driver.TopologyTriangleList,
	})
	if err != nil {
		t.Fatalf("CreateGraphicsPipeline() = %v", err)
	}
	compute, err := s.CreateComputePipeline(&ComputePipelineDescriptor{
		Label:   "comp",
		Program: compProg,
	})
	if err != nil {
		t.Fatalf("CreateComputePipeline() = %v", err)
	}

	vbo, err := s.CreateBuffer(&BufferDescriptor{
		Label:     "vbo",
		Size:      64,
		BindFlags: BindVertexBuffer,
	}, nil)
	if err != nil {
		t.Fatalf("CreateBuffer(vbo) = %v", err)
	}
	ibo, err := s.CreateBuffer(&BufferDescriptor{
		Label:       "ibo",
		Size:        64,
		BindFlags:   BindIndexBuffer,
		IndexFormat: IndexFormatUint16,
	}, nil)
	if err != nil {
		t.Fatalf("CreateBuffer(ibo) = %v", err)
	}

	return &renderSetup{
		target:   target,
		pass:     pass,
		graphics: graphics,
		compute:  compute,
		vbo:      vbo,
		ibo:      ibo,
	}
}

func TestDeferredLifecycle(t *testing.T) {
	s := newTestSystem(t)

	cb := s.CreateDeferredCommandBuffer("lifecycle", 0)
	if got := cb.State(); got != StateCompleted {
		t.Fatalf("fresh buffer state = %v, want Completed", got)
	}
	cb.Begin()
	if got := cb.State(); got != StateRecording {
		t.Fatalf("state after Begin = %v, want Recording", got)
	}
	if err := cb.End(); err != nil {
		t.Fatalf("End() = %v", err)
	}
	if got := cb.State(); got != StateClosed {
		t.Fatalf("state after End = %v, want Closed", got)
	}
	if err := s.Queue().Submit(cb, nil); err != nil {
		t.Fatalf("Submit() = %v", err)
	}
	if got := cb.State(); got != StateCompleted {
		t.Fatalf("state after Submit = %v, want Completed", got)
	}
}

func TestDeferredResubmit(t *testing.T) {
	s := newTestSystem(t)

	src, err := s.CreateBuffer(&BufferDescriptor{
		Size:           8,
		BindFlags:      BindCopySrc,
		CPUAccessFlags: CPUAccessWrite,
	}, []byte{1, 2, 3, 4, 5, 6, 7, 8})
	if err != nil {
		t.Fatalf("CreateBuffer(src) = %v", err)
	}
	dst, err := s.CreateBuffer(&BufferDescriptor{
		Size:           8,
		BindFlags:      BindCopyDst,
		CPUAccessFlags: CPUAccessRead,
	}, nil)
	if err != nil {
		t.Fatalf("CreateBuffer(dst) = %v", err)
	}

	cb := s.CreateDeferredCommandBuffer("copy", CmdBufferMultiSubmit)
	cb.Begin()
	cb.CopyBuffer(dst, 0, src, 0, 8)
	if err := cb.End(); err != nil {
		t.Fatalf("End() = %v", err)
	}

	for i := range 3 {
		if err := s.Queue().Submit(cb, nil); err != nil {
			t.Fatalf("Submit #%d = %v", i+1, err)
		}
		got := make([]byte, 8)
		if err := s.ReadBuffer(dst, 0, got); err != nil {
			t.Fatalf("ReadBuffer() = %v", err)
		}
		if !bytes.Equal(got, []byte{1, 2, 3, 4, 5, 6, 7, 8}) {
			t.Fatalf("submit #%d: dst = %v", i+1, got)
		}
	}
}

func TestDeferredReplayDeterministic(t *testing.T) {
	s := newTestSystem(t)
	adapter := nullAdapter(t, s)

	src, err := s.CreateBuffer(&BufferDescriptor{
		Size:      16,
		BindFlags: BindCopySrc,
	}, []byte{9, 8, 7, 6, 5, 4, 3, 2, 1, 0, 1, 2, 3, 4, 5, 6})
	if err != nil {
		t.Fatalf("CreateBuffer(src) = %v", err)
	}
	dst, err := s.CreateBuffer(&BufferDescriptor{
		Size:      16,
		BindFlags: BindCopyDst,
	}, nil)
	if err != nil {
		t.Fatalf("CreateBuffer(dst) = %v", err)
	}

	cb := s.CreateDeferredCommandBuffer("replay", CmdBufferMultiSubmit)
	cb.Begin()
	cb.UpdateBuffer(dst, 0, []byte{42, 42, 42, 42})
	cb.CopyBuffer(dst, 8, src, 0, 8)
	if err := cb.End(); err != nil {
		t.Fatalf("End() = %v", err)
	}

	if err := s.Queue().Submit(cb, nil); err != nil {
		t.Fatalf("first Submit = %v", err)
	}
	snap1 := adapter.Snapshot()
	if err := s.Queue().Submit(cb, nil); err != nil {
		t.Fatalf("second Submit = %v", err)
	}
	snap2 := adapter.Snapshot()
	if snap1 != snap2 {
		t.Errorf("replay is not deterministic: snapshots %#x and %#x differ", snap1, snap2)
	}
}

func TestDeferredCommandsRecorded(t *testing.T) {
	s := newTestSystem(t)
	rs := newRenderSetup(t, s)

	cb := s.CreateDeferredCommandBuffer("record", 0)
	cb.Begin()
	cb.BindPipeline(rs.graphics)
	cb.BindVertexBuffer(0, rs.vbo, 0)
	cb.BeginRenderPass(rs.target, rs.pass, []ClearColor{{R: 1}})
	cb.Draw(3, 1, 0, 0)
	cb.EndRenderPass()
	if err := cb.End(); err != nil {
		t.Fatalf("End() = %v", err)
	}

	want := []CommandType{
		CmdBindPipeline,
		CmdBindVertexBuffer,
		CmdBeginRenderPass,
		CmdDraw,
		CmdEndRenderPass,
	}
	cmds := cb.(*deferredCommandBuffer).Commands()
	if len(cmds) != len(want) {
		t.Fatalf("recorded %d commands, want %d", len(cmds), len(want))
	}
	for i, c := range cmds {
		if c.Type() != want[i] {
			t.Errorf("command %d = %v, want %v", i, c.Type(), want[i])
		}
	}
}

func TestDeferredDrawSubmits(t *testing.T) {
	s := newTestSystem(t)
	rs := newRenderSetup(t, s)

	cb := s.CreateDeferredCommandBuffer("draw", 0)
	cb.Begin()
	cb.BindPipeline(rs.graphics)
	cb.BindVertexBuffer(0, rs.vbo, 0)
	cb.BeginRenderPass(rs.target, rs.pass, []ClearColor{{R: 0.5, A: 1}})
	cb.SetViewport(Viewport{Width: 16, Height: 16, MaxDepth: 1})
	cb.SetScissor(Scissor{Width: 16, Height: 16})
	cb.Draw(3, 1, 0, 0)
	cb.EndRenderPass()
	if err := cb.End(); err != nil {
		t.Fatalf("End() = %v", err)
	}
	if err := s.Queue().Submit(cb, nil); err != nil {
		t.Fatalf("Submit() = %v", err)
	}
}

func TestDeferredDispatchSubmits(t *testing.T) {
	s := newTestSystem(t)
	rs := newRenderSetup(t, s)

	cb := s.CreateDeferredCommandBuffer("dispatch", 0)
	cb.Begin()
	cb.BindPipeline(rs.compute)
	cb.Dispatch(4, 4, 1)
	if err := cb.End(); err != nil {
		t.Fatalf("End() = %v", err)
	}
	if err := s.Queue().Submit(cb, nil); err != nil {
		t.Fatalf("Submit() = %v", err)
	}
}

func TestRecordingErrorsLatch(t *testing.T) {
	// Unbound-state violations latch only in immediate mode; deferred
	// buffers record them and fail at submission instead.
	tests := []struct {
		name          string
		record        func(cb CommandBuffer, rs *renderSetup)
		want          error
		immediateOnly bool
	}{
		{
			name: "draw outside pass",
			record: func(cb CommandBuffer, rs *renderSetup) {
				cb.BindPipeline(rs.graphics)
				cb.Draw(3, 1, 0, 0)
			},
			want: ErrInvalidState,
		},
		{
			name: "draw with no pipeline",
			record: func(cb CommandBuffer, rs *renderSetup) {
				cb.BeginRenderPass(rs.target, rs.pass, nil)
				cb.Draw(3, 1, 0, 0)
				cb.EndRenderPass()
			},
			want:          ErrNoPipelineBound,
			immediateOnly: true,
		},
		{
			name: "draw with compute pipeline",
			record: func(cb CommandBuffer, rs *renderSetup) {
				cb.BindPipeline(rs.compute)
				cb.BeginRenderPass(rs.target, rs.pass, nil)
				cb.Draw(3, 1, 0, 0)
				cb.EndRenderPass()
			},
			want: ErrInvalidState,
		},
		{
			name: "indexed draw without index buffer",
			record: func(cb CommandBuffer, rs *renderSetup) {
				cb.BindPipeline(rs.graphics)
				cb.BeginRenderPass(rs.target, rs.pass, nil)
				cb.DrawIndexed(3, 1, 0, 0, 0)
				cb.EndRenderPass()
			},
			want:          ErrInvalidState,
			immediateOnly: true,
		},
		{
			name: "dispatch inside pass",
			record: func(cb CommandBuffer, rs *renderSetup) {
				cb.BindPipeline(rs.compute)
				cb.BeginRenderPass(rs.target, rs.pass, nil)
				cb.Dispatch(1, 1, 1)
				cb.EndRenderPass()
			},
			want: ErrInvalidState,
		},
		{
			name: "dispatch with graphics pipeline",
			record: func(cb CommandBuffer, rs *renderSetup) {
				cb.BindPipeline(rs.graphics)
				cb.Dispatch(1, 1, 1)
			},
			want: ErrInvalidState,
		},
		{
			name: "dispatch with no pipeline",
			record: func(cb CommandBuffer, rs *renderSetup) {
				cb.Dispatch(1, 1, 1)
			},
			want:          ErrNoPipelineBound,
			immediateOnly: true,
		},
		{
			name: "copy inside pass",
			record: func(cb CommandBuffer, rs *renderSetup) {
				cb.BeginRenderPass(rs.target, rs.pass, nil)
				cb.CopyBuffer(rs.vbo, 0, rs.ibo, 0, 8)
				cb.EndRenderPass()
			},
			want: ErrInvalidState,
		},
		{
			name: "viewport outside pass",
			record: func(cb CommandBuffer, rs *renderSetup) {
				cb.SetViewport(Viewport{Width: 1, Height: 1})
			},
			want: ErrInvalidState,
		},
		{
			name: "nested pass",
			record: func(cb CommandBuffer, rs *renderSetup) {
				cb.BeginRenderPass(rs.target, rs.pass, nil)
				cb.BeginRenderPass(rs.target, rs.pass, nil)
			},
			want: ErrInvalidState,
		},
		{
			name: "end pass without begin",
			record: func(cb CommandBuffer, rs *renderSetup) {
				cb.EndRenderPass()
			},
			want: ErrInvalidState,
		},
		{
			name: "nil pipeline",
			record: func(cb CommandBuffer, rs *renderSetup) {
				cb.BindPipeline(nil)
			},
			want: ErrInvalidState,
		},
	}

	for _, mode := range []string{"deferred", "immediate"} {
		s := newTestSystem(t)
		rs := newRenderSetup(t, s)
		for _, tt := range tests {
			if tt.immediateOnly && mode == "deferred" {
				continue
			}
			t.Run(mode+"/"+tt.name, func(t *testing.T) {
				var cb CommandBuffer
				if mode == "deferred" {
					cb = s.CreateDeferredCommandBuffer(tt.name, 0)
				} else {
					cb = s.CreateImmediateCommandBuffer(tt.name)
				}
				cb.Begin()
				tt.record(cb, rs)
				err := cb.End()
				if !errors.Is(err, tt.want) {
					t.Errorf("End() = %v, want %v", err, tt.want)
				}
				if got := cb.State(); got != StateCompleted {
					t.Errorf("state after failed End = %v, want Completed", got)
				}
			})
		}
	}
}

func TestFirstErrorWins(t *testing.T) {
	s := newTestSystem(t)

	cb := s.CreateDeferredCommandBuffer("first-error", 0)
	cb.Begin()
	cb.Draw(3, 1, 0, 0)  // outside a pass, latches ErrInvalidState
	cb.Dispatch(1, 1, 1) // dropped, an error is already latched
	cb.BindPipeline(nil) // dropped
	err := cb.End()
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("End() = %v, want the first latched error (ErrInvalidState)", err)
	}
}

func TestBeginClearsLatchedError(t *testing.T) {
	s := newTestSystem(t)

	cb := s.CreateDeferredCommandBuffer("recover", 0)
	cb.Begin()
	cb.Draw(3, 1, 0, 0)
	if err := cb.End(); err == nil {
		t.Fatal("End() = nil, want a latched error")
	}

	cb.Begin()
	if err := cb.End(); err != nil {
		t.Errorf("End() after clean re-record = %v, want nil", err)
	}
}

func TestEndWithUnbalancedPass(t *testing.T) {
	s := newTestSystem(t)
	rs := newRenderSetup(t, s)

	cb := s.CreateDeferredCommandBuffer("unbalanced", 0)
	cb.Begin()
	cb.BeginRenderPass(rs.target, rs.pass, nil)
	err := cb.End()
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("End() with open pass = %v, want ErrInvalidState", err)
	}
}

func TestEndInWrongState(t *testing.T) {
	s := newTestSystem(t)

	cb := s.CreateDeferredCommandBuffer("wrong-state", 0)
	if err := cb.End(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("End() without Begin = %v, want ErrInvalidState", err)
	}
}

func TestSubmitInWrongState(t *testing.T) {
	s := newTestSystem(t)

	cb := s.CreateDeferredCommandBuffer("unsubmittable", 0)
	cb.Begin()
	if err := s.Queue().Submit(cb, nil); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Submit while recording = %v, want ErrInvalidState", err)
	}
}

func TestDeferredIncompleteRecordingFailsAtSubmit(t *testing.T) {
	tests := []struct {
		name   string
		record func(cb CommandBuffer, rs *renderSetup)
	}{
		{
			name: "draw with no pipeline",
			record: func(cb CommandBuffer, rs *renderSetup) {
				cb.BeginRenderPass(rs.target, rs.pass, nil)
				cb.Draw(3, 1, 0, 0)
				cb.EndRenderPass()
			},
		},
		{
			name: "dispatch with no pipeline",
			record: func(cb CommandBuffer, rs *renderSetup) {
				cb.Dispatch(1, 1, 1)
			},
		},
		{
			name: "indexed draw without index buffer",
			record: func(cb CommandBuffer, rs *renderSetup) {
				cb.BindPipeline(rs.graphics)
				cb.BeginRenderPass(rs.target, rs.pass, nil)
				cb.DrawIndexed(3, 1, 0, 0, 0)
				cb.EndRenderPass()
			},
		},
	}

	s := newTestSystem(t)
	rs := newRenderSetup(t, s)
	var msgs []DebugMessage
	s.SetDebugCallback(func(m DebugMessage) { msgs = append(msgs, m) })

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs = msgs[:0]
			cb := s.CreateDeferredCommandBuffer(tt.name, 0)
			cb.Begin()
			tt.record(cb, rs)
			if err := cb.End(); err != nil {
				t.Fatalf("End() = %v, incomplete recordings close cleanly", err)
			}
			if err := s.Queue().Submit(cb, nil); !errors.Is(err, ErrIncompleteState) {
				t.Fatalf("Submit() = %v, want ErrIncompleteState", err)
			}
			if got := cb.State(); got != StateClosed {
				t.Errorf("state after failed Submit = %v, want Closed", got)
			}
			found := false
			for _, m := range msgs {
				if m.Source == "Submit" && m.Severity == SeverityError {
					found = true
				}
			}
			if !found {
				t.Error("no debug message delivered for the failed submission")
			}
		})
	}

	// A corrected re-record submits cleanly.
	cb := s.CreateDeferredCommandBuffer("fixed", 0)
	cb.Begin()
	cb.BindPipeline(rs.graphics)
	cb.BeginRenderPass(rs.target, rs.pass, nil)
	cb.Draw(3, 1, 0, 0)
	cb.EndRenderPass()
	if err := cb.End(); err != nil {
		t.Fatalf("End() = %v", err)
	}
	if err := s.Queue().Submit(cb, nil); err != nil {
		t.Errorf("Submit() after binding the pipeline = %v", err)
	}
}

func TestDeferredSingleSubmitConsumesRecording(t *testing.T) {
	s := newTestSystem(t)

	cb := s.CreateDeferredCommandBuffer("single", 0)
	cb.Begin()
	if err := cb.End(); err != nil {
		t.Fatalf("End() = %v", err)
	}
	if err := s.Queue().Submit(cb, nil); err != nil {
		t.Fatalf("Submit() = %v", err)
	}
	if got := cb.State(); got != StateCompleted {
		t.Fatalf("state after Submit = %v, want Completed", got)
	}
	if err := s.Queue().Submit(cb, nil); !errors.Is(err, ErrInvalidState) {
		t.Errorf("resubmit of a single-submit buffer = %v, want ErrInvalidState", err)
	}
}

func TestDeferredMultiSubmitCyclesToClosed(t *testing.T) {
	s := newTestSystem(t)

	cb := s.CreateDeferredCommandBuffer("multi", CmdBufferMultiSubmit)
	cb.Begin()
	if err := cb.End(); err != nil {
		t.Fatalf("End() = %v", err)
	}
	for i := range 3 {
		if err := s.Queue().Submit(cb, nil); err != nil {
			t.Fatalf("Submit #%d = %v", i+1, err)
		}
		if got := cb.State(); got != StateClosed {
			t.Fatalf("state after Submit #%d = %v, want Closed", i+1, got)
		}
	}
}

func TestImmediateExecutesAtEnd(t *testing.T) {
	s := newTestSystem(t)

	src, err := s.CreateBuffer(&BufferDescriptor{
		Size:      8,
		BindFlags: BindCopySrc,
	}, []byte{1, 2, 3, 4, 5, 6, 7, 8})
	if err != nil {
		t.Fatalf("CreateBuffer(src) = %v", err)
	}
	dst, err := s.CreateBuffer(&BufferDescriptor{
		Size:           8,
		BindFlags:      BindCopyDst,
		CPUAccessFlags: CPUAccessRead,
	}, nil)
	if err != nil {
		t.Fatalf("CreateBuffer(dst) = %v", err)
	}

	cb := s.CreateImmediateCommandBuffer("once")
	cb.Begin()
	cb.CopyBuffer(dst, 0, src, 0, 8)
	if err := cb.End(); err != nil {
		t.Fatalf("End() = %v", err)
	}
	if got := cb.State(); got != StateCompleted {
		t.Fatalf("state after End = %v, want Completed (immediate buffers skip Closed)", got)
	}

	// The copy executed at End, with no queue submission.
	got := make([]byte, 8)
	if err := s.ReadBuffer(dst, 0, got); err != nil {
		t.Fatalf("ReadBuffer() = %v", err)
	}
	if !bytes.Equal(got, []byte{1, 2, 3, 4, 5, 6, 7, 8}) {
		t.Fatalf("dst = %v after immediate copy", got)
	}

	if err := s.Queue().Submit(cb, nil); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Submit of an immediate buffer = %v, want ErrInvalidState", err)
	}

	cb.Begin()
	cb.CopyBuffer(dst, 0, src, 4, 4)
	if err := cb.End(); err != nil {
		t.Fatalf("End() after re-record = %v", err)
	}
	if err := s.ReadBuffer(dst, 0, got); err != nil {
		t.Fatalf("ReadBuffer() = %v", err)
	}
	if !bytes.Equal(got[:4], []byte{5, 6, 7, 8}) {
		t.Errorf("dst = %v after second immediate copy", got)
	}
}

func TestImmediateDraw(t *testing.T) {
	s := newTestSystem(t)
	rs := newRenderSetup(t, s)
	adapter := nullAdapter(t, s)

	cb := s.CreateImmediateCommandBuffer("imm-draw")
	cb.Begin()
	cb.BindPipeline(rs.graphics)
	cb.BindVertexBuffer(0, rs.vbo, 0)
	cb.BindIndexBuffer(rs.ibo, IndexFormatUint16, 0)
	cb.BeginRenderPass(rs.target, rs.pass, []ClearColor{{B: 1, A: 1}})
	cb.DrawIndexed(3, 1, 0, 0, 0)
	cb.EndRenderPass()
	before := adapter.Snapshot()
	if err := cb.End(); err != nil {
		t.Fatalf("End() = %v", err)
	}
	if after := adapter.Snapshot(); after == before {
		t.Error("device state unchanged after End of an immediate draw")
	}
}

func TestSubmitSignalsFence(t *testing.T) {
	s := newTestSystem(t)

	fence, err := s.CreateFence()
	if err != nil {
		t.Fatalf("CreateFence() = %v", err)
	}
	cb := s.CreateDeferredCommandBuffer("fenced", 0)
	cb.Begin()
	if err := cb.End(); err != nil {
		t.Fatalf("End() = %v", err)
	}
	if err := s.Queue().Submit(cb, fence); err != nil {
		t.Fatalf("Submit() = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Queue().WaitFence(ctx, fence); err != nil {
		t.Errorf("WaitFence() = %v", err)
	}
	if err := s.Queue().WaitIdle(ctx); err != nil {
		t.Errorf("WaitIdle() = %v", err)
	}
}

func TestDrawIndirectCountsAsDraw(t *testing.T) {
	s := newTestSystem(t)
	rs := newRenderSetup(t, s)

	args := make([]byte, 16)
	binary.LittleEndian.PutUint32(args[0:], 3) // vertexCount
	binary.LittleEndian.PutUint32(args[4:], 1) // instanceCount
	indirect, err := s.CreateBuffer(&BufferDescriptor{
		Label:     "indirect",
		Size:      16,
		BindFlags: BindIndirectBuffer,
	}, args)
	if err != nil {
		t.Fatalf("CreateBuffer(indirect) = %v", err)
	}
	heap, err := s.CreateQueryHeap(&QueryHeapDescriptor{
		Type:  driver.QueryOcclusion,
		Count: 1,
	})
	if err != nil {
		t.Fatalf("CreateQueryHeap() = %v", err)
	}

	cb := s.CreateDeferredCommandBuffer("indirect-draw", 0)
	cb.Begin()
	cb.BindPipeline(rs.graphics)
	cb.BindVertexBuffer(0, rs.vbo, 0)
	cb.BeginRenderPass(rs.target, rs.pass, nil)
	cb.BeginQuery(heap, 0)
	cb.DrawIndirect(indirect, 0)
	cb.EndQuery(heap, 0)
	cb.EndRenderPass()
	if err := cb.End(); err != nil {
		t.Fatalf("End() = %v", err)
	}
	if err := s.Queue().Submit(cb, nil); err != nil {
		t.Fatalf("Submit() = %v", err)
	}

	out := make([]uint64, 1)
	if err := s.ResolveQueries(heap, 0, 1, out); err != nil {
		t.Fatalf("ResolveQueries() = %v", err)
	}
	if out[0] != 1 {
		t.Errorf("occlusion query = %d, want 1 draw", out[0])
	}
}

func TestOcclusionQueryCountsDraws(t *testing.T) {
	s := newTestSystem(t)
	rs := newRenderSetup(t, s)

	heap, err := s.CreateQueryHeap(&QueryHeapDescriptor{
		Type:  driver.QueryOcclusion,
		Count: 2,
	})
	if err != nil {
		t.Fatalf("CreateQueryHeap() = %v", err)
	}

	cb := s.CreateDeferredCommandBuffer("occlusion", 0)
	cb.Begin()
	cb.BindPipeline(rs.graphics)
	cb.BeginRenderPass(rs.target, rs.pass, nil)
	cb.BeginQuery(heap, 0)
	cb.Draw(3, 1, 0, 0)
	cb.Draw(6, 1, 0, 0)
	cb.EndQuery(heap, 0)
	cb.BeginQuery(heap, 1)
	cb.EndQuery(heap, 1)
	cb.EndRenderPass()
	if err := cb.End(); err != nil {
		t.Fatalf("End() = %v", err)
	}
	if err := s.Queue().Submit(cb, nil); err != nil {
		t.Fatalf("Submit() = %v", err)
	}

	out := make([]uint64, 2)
	if err := s.ResolveQueries(heap, 0, 2, out); err != nil {
		t.Fatalf("ResolveQueries() = %v", err)
	}
	if out[0] != 2 {
		t.Errorf("query 0 = %d, want 2 draws", out[0])
	}
	if out[1] != 0 {
		t.Errorf("query 1 = %d, want 0 draws", out[1])
	}
}

func TestIndirectAndQueryValidation(t *testing.T) {
	s := newTestSystem(t)
	rs := newRenderSetup(t, s)
	heap, err := s.CreateQueryHeap(&QueryHeapDescriptor{
		Type:  driver.QueryOcclusion,
		Count: 1,
	})
	if err != nil {
		t.Fatalf("CreateQueryHeap() = %v", err)
	}

	tests := []struct {
		name   string
		record func(cb CommandBuffer)
		want   error
	}{
		{
			name: "indirect draw nil buffer",
			record: func(cb CommandBuffer) {
				cb.BindPipeline(rs.graphics)
				cb.BeginRenderPass(rs.target, rs.pass, nil)
				cb.DrawIndirect(nil, 0)
				cb.EndRenderPass()
			},
			want: ErrInvalidState,
		},
		{
			name: "indirect draw misaligned offset",
			record: func(cb CommandBuffer) {
				cb.BindPipeline(rs.graphics)
				cb.BeginRenderPass(rs.target, rs.pass, nil)
				cb.DrawIndirect(rs.vbo, 2)
				cb.EndRenderPass()
			},
			want: ErrInvalidState,
		},
		{
			name: "indirect dispatch inside pass",
			record: func(cb CommandBuffer) {
				cb.BindPipeline(rs.compute)
				cb.BeginRenderPass(rs.target, rs.pass, nil)
				cb.DispatchIndirect(rs.vbo, 0)
				cb.EndRenderPass()
			},
			want: ErrInvalidState,
		},
		{
			name: "barrier inside pass",
			record: func(cb CommandBuffer) {
				cb.BeginRenderPass(rs.target, rs.pass, nil)
				cb.Barrier()
				cb.EndRenderPass()
			},
			want: ErrInvalidState,
		},
		{
			name: "nested query",
			record: func(cb CommandBuffer) {
				cb.BeginQuery(heap, 0)
				cb.BeginQuery(heap, 0)
				cb.EndQuery(heap, 0)
			},
			want: ErrInvalidState,
		},
		{
			name: "end query without begin",
			record: func(cb CommandBuffer) {
				cb.EndQuery(heap, 0)
			},
			want: ErrInvalidState,
		},
		{
			name: "query slot out of range",
			record: func(cb CommandBuffer) {
				cb.BeginQuery(heap, 5)
			},
			want: ErrInvalidState,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb := s.CreateDeferredCommandBuffer(tt.name, 0)
			cb.Begin()
			tt.record(cb)
			if err := cb.End(); !errors.Is(err, tt.want) {
				t.Errorf("End() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestBarrierBetweenTransfers(t *testing.T) {
	s := newTestSystem(t)

	a, err := s.CreateBuffer(&BufferDescriptor{
		Size:      8,
		BindFlags: BindCopySrc | BindCopyDst,
	}, nil)
	if err != nil {
		t.Fatalf("CreateBuffer(a) = %v", err)
	}
	b, err := s.CreateBuffer(&BufferDescriptor{
		Size:           8,
		BindFlags:      BindCopyDst,
		CPUAccessFlags: CPUAccessRead,
	}, nil)
	if err != nil {
		t.Fatalf("CreateBuffer(b) = %v", err)
	}

	cb := s.CreateDeferredCommandBuffer("barrier", 0)
	cb.Begin()
	cb.UpdateBuffer(a, 0, []byte{7, 7, 7, 7, 7, 7, 7, 7})
	cb.Barrier()
	cb.CopyBuffer(b, 0, a, 0, 8)
	if err := cb.End(); err != nil {
		t.Fatalf("End() = %v", err)
	}
	if err := s.Queue().Submit(cb, nil); err != nil {
		t.Fatalf("Submit() = %v", err)
	}

	got := make([]byte, 8)
	if err := s.ReadBuffer(b, 0, got); err != nil {
		t.Fatalf("ReadBuffer() = %v", err)
	}
	for i, v := range got {
		if v != 7 {
			t.Fatalf("b[%d] = %d after barriered copy, want 7", i, v)
		}
	}
}

func TestWriteTimestampResolves(t *testing.T) {
	s := newTestSystem(t)

	heap, err := s.CreateQueryHeap(&QueryHeapDescriptor{
		Type:  driver.QueryTimestamp,
		Count: 2,
	})
	if err != nil {
		t.Fatalf("CreateQueryHeap() = %v", err)
	}

	cb := s.CreateDeferredCommandBuffer("timing", 0)
	cb.Begin()
	cb.WriteTimestamp(heap, 0)
	cb.WriteTimestamp(heap, 1)
	if err := cb.End(); err != nil {
		t.Fatalf("End() = %v", err)
	}
	if err := s.Queue().Submit(cb, nil); err != nil {
		t.Fatalf("Submit() = %v", err)
	}

	out := make([]uint64, 2)
	if err := s.ResolveQueries(heap, 0, 2, out); err != nil {
		t.Fatalf("ResolveQueries() = %v", err)
	}
	if out[0] == 0 || out[1] == 0 {
		t.Errorf("timestamps not written: %v", out)
	}
	if out[1] < out[0] {
		t.Errorf("timestamps not monotone: %v", out)
	}
}
