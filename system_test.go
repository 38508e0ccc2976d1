package rhi

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gogpu/rhi/driver"
	"github.com/gogpu/rhi/driver/null"
)

func newTestSystem(t *testing.T) *System {
	t.Helper()
	s, err := New(Config{Adapter: driver.AdapterNull})
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

// nullAdapter reaches the software adapter behind a test system for
// snapshot assertions.
func nullAdapter(t *testing.T, s *System) *null.Adapter {
	t.Helper()
	a, ok := s.adapter.(*null.Adapter)
	if !ok {
		t.Fatalf("adapter is %T, want *null.Adapter", s.adapter)
	}
	return a
}

func TestNewSelectsRequestedAdapter(t *testing.T) {
	s := newTestSystem(t)
	if got := s.AdapterName(); got != driver.AdapterNull {
		t.Errorf("AdapterName() = %q, want %q", got, driver.AdapterNull)
	}
	if s.Caps() == nil {
		t.Error("Caps() = nil")
	}
}

func TestNewUnknownAdapter(t *testing.T) {
	_, err := New(Config{Adapter: "no-such-adapter"})
	if !errors.Is(err, ErrNotAvailable) {
		t.Errorf("New(unknown adapter) = %v, want ErrNotAvailable", err)
	}
}

func TestCreateReleaseBuffer(t *testing.T) {
	s := newTestSystem(t)

	buf, err := s.CreateBuffer(&BufferDescriptor{
		Label:     "vbo",
		Size:      64,
		BindFlags: BindVertexBuffer,
	}, nil)
	if err != nil {
		t.Fatalf("CreateBuffer() = %v", err)
	}
	if got := s.ResourceCount(KindBuffer); got != 1 {
		t.Errorf("ResourceCount(KindBuffer) = %d, want 1", got)
	}

	if err := s.ReleaseBuffer(buf); err != nil {
		t.Fatalf("ReleaseBuffer() = %v", err)
	}
	if got := s.ResourceCount(KindBuffer); got != 0 {
		t.Errorf("ResourceCount(KindBuffer) = %d after release, want 0", got)
	}
}

func TestDoubleReleaseDetected(t *testing.T) {
	s := newTestSystem(t)

	buf, err := s.CreateBuffer(&BufferDescriptor{
		Size:      16,
		BindFlags: BindVertexBuffer,
	}, nil)
	if err != nil {
		t.Fatalf("CreateBuffer() = %v", err)
	}
	if err := s.ReleaseBuffer(buf); err != nil {
		t.Fatalf("first ReleaseBuffer() = %v", err)
	}
	if err := s.ReleaseBuffer(buf); !errors.Is(err, ErrNotRegistered) {
		t.Errorf("second ReleaseBuffer() = %v, want ErrNotRegistered", err)
	}
}

func TestCreateBufferValidation(t *testing.T) {
	s := newTestSystem(t)

	tests := []struct {
		name string
		desc BufferDescriptor
		want error
	}{
		{
			name: "zero size",
			desc: BufferDescriptor{BindFlags: BindVertexBuffer},
			want: ErrInvalidCombination,
		},
		{
			name: "no bind flags",
			desc: BufferDescriptor{Size: 16},
			want: ErrInvalidCombination,
		},
		{
			name: "attachment flag on buffer",
			desc: BufferDescriptor{Size: 16, BindFlags: BindColorAttachment},
			want: ErrInvalidCombination,
		},
		{
			name: "exceeds device limit",
			desc: BufferDescriptor{Size: 1 << 40, BindFlags: BindVertexBuffer},
			want: ErrExceededCapacity,
		},
		{
			name: "constant buffer over limit",
			desc: BufferDescriptor{Size: 1 << 20, BindFlags: BindConstantBuffer},
			want: ErrExceededCapacity,
		},
		{
			name: "index buffer without format",
			desc: BufferDescriptor{Size: 16, BindFlags: BindIndexBuffer},
			want: ErrInvalidCombination,
		},
		{
			name: "index format without index flag",
			desc: BufferDescriptor{Size: 16, BindFlags: BindVertexBuffer, IndexFormat: IndexFormatUint16},
			want: ErrInvalidCombination,
		},
		{
			name: "storage buffer without stride",
			desc: BufferDescriptor{Size: 16, BindFlags: BindStorageBuffer},
			want: ErrInvalidCombination,
		},
		{
			name: "storage size not multiple of stride",
			desc: BufferDescriptor{Size: 20, BindFlags: BindStorageBuffer, StorageStride: 16},
			want: ErrInvalidCombination,
		},
		{
			name: "stream output unsupported",
			desc: BufferDescriptor{Size: 16, BindFlags: BindStreamOutputBuffer},
			want: ErrUnsupportedFeature,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateBuffer(&tt.desc, nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("CreateBuffer() = %v, want %v", err, tt.want)
			}
			var ce *driver.CreateError
			if !errors.As(err, &ce) {
				t.Errorf("CreateBuffer() error %T does not wrap *driver.CreateError", err)
			}
		})
	}
}

func TestCreateBufferInitialTooLarge(t *testing.T) {
	s := newTestSystem(t)

	_, err := s.CreateBuffer(&BufferDescriptor{
		Size:      8,
		BindFlags: BindVertexBuffer,
	}, make([]byte, 16))
	if !errors.Is(err, ErrInvalidCombination) {
		t.Errorf("CreateBuffer(oversized initial) = %v, want ErrInvalidCombination", err)
	}
}

func TestCreateTextureValidation(t *testing.T) {
	s := newTestSystem(t)

	tests := []struct {
		name string
		desc TextureDescriptor
		want error
	}{
		{
			name: "zero extent",
			desc: TextureDescriptor{
				Kind: Texture2D, Format: FormatRGBA8Unorm,
				BindFlags: BindSampled,
			},
			want: ErrInvalidCombination,
		},
		{
			name: "1D with height",
			desc: TextureDescriptor{
				Kind: Texture1D, Format: FormatRGBA8Unorm,
				Extent:    Extent3D{Width: 8, Height: 2, Depth: 1},
				BindFlags: BindSampled,
			},
			want: ErrInvalidCombination,
		},
		{
			name: "non-square cube",
			desc: TextureDescriptor{
				Kind: TextureCube, Format: FormatRGBA8Unorm,
				Extent:    Extent3D{Width: 8, Height: 4, Depth: 1},
				BindFlags: BindSampled,
			},
			want: ErrInvalidCombination,
		},
		{
			name: "multisample unsupported",
			desc: TextureDescriptor{
				Kind: Texture2DMS, Format: FormatRGBA8Unorm,
				Extent:      Extent3D{Width: 8, Height: 8, Depth: 1},
				SampleCount: 4,
				BindFlags:   BindColorAttachment,
			},
			want: ErrUnsupportedFeature,
		},
		{
			name: "sample count on plain 2D",
			desc: TextureDescriptor{
				Kind: Texture2D, Format: FormatRGBA8Unorm,
				Extent:      Extent3D{Width: 8, Height: 8, Depth: 1},
				SampleCount: 4,
				BindFlags:   BindSampled,
			},
			want: ErrInvalidCombination,
		},
		{
			name: "layers on non-array",
			desc: TextureDescriptor{
				Kind: Texture2D, Format: FormatRGBA8Unorm,
				Extent:      Extent3D{Width: 8, Height: 8, Depth: 1},
				ArrayLayers: 4,
				BindFlags:   BindSampled,
			},
			want: ErrInvalidCombination,
		},
		{
			name: "mips beyond full chain",
			desc: TextureDescriptor{
				Kind: Texture2D, Format: FormatRGBA8Unorm,
				Extent:    Extent3D{Width: 8, Height: 8, Depth: 1},
				MipLevels: 10,
				BindFlags: BindSampled,
			},
			want: ErrInvalidCombination,
		},
		{
			name: "buffer flags on texture",
			desc: TextureDescriptor{
				Kind: Texture2D, Format: FormatRGBA8Unorm,
				Extent:    Extent3D{Width: 8, Height: 8, Depth: 1},
				BindFlags: BindVertexBuffer,
			},
			want: ErrInvalidCombination,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateTexture(&tt.desc, nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("CreateTexture() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestBufferArrayCategoryMismatch(t *testing.T) {
	s := newTestSystem(t)

	vbo, err := s.CreateBuffer(&BufferDescriptor{Size: 16, BindFlags: BindVertexBuffer}, nil)
	if err != nil {
		t.Fatalf("CreateBuffer(vbo) = %v", err)
	}
	cbo, err := s.CreateBuffer(&BufferDescriptor{Size: 16, BindFlags: BindConstantBuffer}, nil)
	if err != nil {
		t.Fatalf("CreateBuffer(cbo) = %v", err)
	}

	if _, err := s.CreateBufferArray([]Buffer{vbo, cbo}); !errors.Is(err, ErrInvalidCombination) {
		t.Errorf("mixed-category array = %v, want ErrInvalidCombination", err)
	}

	arr, err := s.CreateBufferArray([]Buffer{vbo})
	if err != nil {
		t.Fatalf("homogeneous array = %v", err)
	}
	if arr.Len() != 1 {
		t.Errorf("Len() = %d, want 1", arr.Len())
	}
	if err := s.ReleaseBufferArray(arr); err != nil {
		t.Errorf("ReleaseBufferArray() = %v", err)
	}
	// Members stay alive after the group is released.
	if err := s.ReleaseBuffer(vbo); err != nil {
		t.Errorf("ReleaseBuffer(vbo) = %v", err)
	}
	if err := s.ReleaseBuffer(cbo); err != nil {
		t.Errorf("ReleaseBuffer(cbo) = %v", err)
	}
}

func TestBufferArrayForeignBuffer(t *testing.T) {
	s := newTestSystem(t)
	other := newTestSystem(t)

	foreign, err := other.CreateBuffer(&BufferDescriptor{Size: 16, BindFlags: BindVertexBuffer}, nil)
	if err != nil {
		t.Fatalf("CreateBuffer() = %v", err)
	}
	if _, err := s.CreateBufferArray([]Buffer{foreign}); !errors.Is(err, ErrNotRegistered) {
		t.Errorf("foreign buffer array = %v, want ErrNotRegistered", err)
	}
}

func TestStaticConstantBufferPartialWrite(t *testing.T) {
	s := newTestSystem(t)

	buf, err := s.CreateBuffer(&BufferDescriptor{
		Label:     "static-cbo",
		Size:      64,
		BindFlags: BindConstantBuffer,
	}, nil)
	if err != nil {
		t.Fatalf("CreateBuffer() = %v", err)
	}

	if err := s.WriteBuffer(buf, 16, make([]byte, 16)); !errors.Is(err, ErrValidation) {
		t.Errorf("partial write to static constant buffer = %v, want ErrValidation", err)
	}
	if err := s.WriteBuffer(buf, 0, make([]byte, 64)); err != nil {
		t.Errorf("whole-resource write = %v, want nil", err)
	}
}

func TestDynamicConstantBufferPartialWrite(t *testing.T) {
	s := newTestSystem(t)

	buf, err := s.CreateBuffer(&BufferDescriptor{
		Label:     "dynamic-cbo",
		Size:      64,
		BindFlags: BindConstantBuffer,
		MiscFlags: MiscDynamicUsage,
	}, nil)
	if err != nil {
		t.Fatalf("CreateBuffer() = %v", err)
	}
	if err := s.WriteBuffer(buf, 16, make([]byte, 16)); err != nil {
		t.Errorf("partial write to dynamic constant buffer = %v, want nil", err)
	}
}

func TestReadBufferRequiresCPURead(t *testing.T) {
	s := newTestSystem(t)

	buf, err := s.CreateBuffer(&BufferDescriptor{
		Size:      16,
		BindFlags: BindVertexBuffer,
	}, nil)
	if err != nil {
		t.Fatalf("CreateBuffer() = %v", err)
	}
	if err := s.ReadBuffer(buf, 0, make([]byte, 4)); !errors.Is(err, ErrValidation) {
		t.Errorf("ReadBuffer without CPU read = %v, want ErrValidation", err)
	}
}

func TestMapBufferAccessValidation(t *testing.T) {
	s := newTestSystem(t)

	writeOnly, err := s.CreateBuffer(&BufferDescriptor{
		Size:           16,
		BindFlags:      BindVertexBuffer,
		CPUAccessFlags: CPUAccessWrite,
	}, nil)
	if err != nil {
		t.Fatalf("CreateBuffer() = %v", err)
	}

	if _, err := s.MapBuffer(writeOnly, MapRead, 0, 16); !errors.Is(err, ErrValidation) {
		t.Errorf("MapRead on write-only buffer = %v, want ErrValidation", err)
	}
	mem, err := s.MapBuffer(writeOnly, MapWrite, 0, 16)
	if err != nil {
		t.Fatalf("MapWrite = %v", err)
	}
	copy(mem, []byte{1, 2, 3})
	s.UnmapBuffer(writeOnly)
}

func TestMapWriteFlushesToDevice(t *testing.T) {
	s := newTestSystem(t)

	buf, err := s.CreateBuffer(&BufferDescriptor{
		Size:           8,
		BindFlags:      BindVertexBuffer,
		CPUAccessFlags: CPUAccessReadWrite,
	}, nil)
	if err != nil {
		t.Fatalf("CreateBuffer() = %v", err)
	}

	mem, err := s.MapBuffer(buf, MapWrite, 0, 8)
	if err != nil {
		t.Fatalf("MapBuffer() = %v", err)
	}
	copy(mem, []byte{1, 2, 3, 4, 5, 6, 7, 8})
	s.UnmapBuffer(buf)

	got := make([]byte, 8)
	if err := s.ReadBuffer(buf, 0, got); err != nil {
		t.Fatalf("ReadBuffer() = %v", err)
	}
	if !bytes.Equal(got, []byte{1, 2, 3, 4, 5, 6, 7, 8}) {
		t.Errorf("read back %v after mapped write", got)
	}
}

func TestWriteTextureRequiresCopyDst(t *testing.T) {
	s := newTestSystem(t)

	tex, err := s.CreateTexture(&TextureDescriptor{
		Kind:      Texture2D,
		Format:    FormatRGBA8Unorm,
		Extent:    Extent3D{Width: 4, Height: 4, Depth: 1},
		MipLevels: 1,
		BindFlags: BindSampled,
	}, nil)
	if err != nil {
		t.Fatalf("CreateTexture() = %v", err)
	}
	err = s.WriteTexture(tex, TextureRegion{
		Extent: Extent3D{Width: 1, Height: 1, Depth: 1},
	}, make([]byte, 4))
	if !errors.Is(err, ErrValidation) {
		t.Errorf("WriteTexture without CopyDst = %v, want ErrValidation", err)
	}
}

func TestShaderProgramStageValidation(t *testing.T) {
	s := newTestSystem(t)

	vs, err := s.CreateShader(&ShaderDescriptor{
		Stage:  StageVertex,
		Source: "@vertex fn main() {}",
	})
	if err != nil {
		t.Fatalf("CreateShader(vertex) = %v", err)
	}
	fs, err := s.CreateShader(&ShaderDescriptor{
		Stage:  StageFragment,
		Source: "@fragment fn main() {}",
	})
	if err != nil {
		t.Fatalf("CreateShader(fragment) = %v", err)
	}
	cs, err := s.CreateShader(&ShaderDescriptor{
		Stage:  StageCompute,
		Source: "@compute fn main() {}",
	})
	if err != nil {
		t.Fatalf("CreateShader(compute) = %v", err)
	}

	if _, err := s.CreateShaderProgram("mixed", []Shader{vs, cs}); !errors.Is(err, ErrInvalidCombination) {
		t.Errorf("vertex+compute link = %v, want ErrInvalidCombination", err)
	}
	if _, err := s.CreateShaderProgram("dup", []Shader{vs, vs}); !errors.Is(err, ErrInvalidCombination) {
		t.Errorf("duplicate stage link = %v, want ErrInvalidCombination", err)
	}
	prog, err := s.CreateShaderProgram("gfx", []Shader{vs, fs})
	if err != nil {
		t.Fatalf("vertex+fragment link = %v", err)
	}
	if got := prog.Stages(); got != StageVertex|StageFragment {
		t.Errorf("Stages() = %v, want vertex|fragment", got)
	}
}

func TestShaderRequiresCode(t *testing.T) {
	s := newTestSystem(t)

	_, err := s.CreateShader(&ShaderDescriptor{Stage: StageVertex})
	if !errors.Is(err, ErrInvalidCombination) {
		t.Errorf("CreateShader(no code) = %v, want ErrInvalidCombination", err)
	}
}

func TestGraphicsPipelineRequiresVertexStage(t *testing.T) {
	s := newTestSystem(t)

	cs, err := s.CreateShader(&ShaderDescriptor{Stage: StageCompute, Source: "@compute fn main() {}"})
	if err != nil {
		t.Fatalf("CreateShader() = %v", err)
	}
	prog, err := s.CreateShaderProgram("compute", []Shader{cs})
	if err != nil {
		t.Fatalf("CreateShaderProgram() = %v", err)
	}

	if _, err := s.CreateGraphicsPipeline(&GraphicsPipelineDescriptor{
		Program: prog,
	}); !errors.Is(err, ErrInvalidCombination) {
		t.Errorf("graphics pipeline on compute program = %v, want ErrInvalidCombination", err)
	}
	if _, err := s.CreateComputePipeline(&ComputePipelineDescriptor{
		Program: prog,
	}); err != nil {
		t.Errorf("compute pipeline = %v, want nil", err)
	}
}

func TestRenderTargetValidation(t *testing.T) {
	s := newTestSystem(t)

	plain, err := s.CreateTexture(&TextureDescriptor{
		Kind:      Texture2D,
		Format:    FormatRGBA8Unorm,
		Extent:    Extent3D{Width: 8, Height: 8, Depth: 1},
		MipLevels: 1,
		BindFlags: BindSampled,
	}, nil)
	if err != nil {
		t.Fatalf("CreateTexture() = %v", err)
	}

	_, err = s.CreateRenderTarget(&RenderTargetDescriptor{
		Label:      "bad",
		Resolution: Extent3D{Width: 8, Height: 8, Depth: 1},
		ColorAttachments: []RenderTargetAttachment{
			{Texture: plain},
		},
	})
	if !errors.Is(err, ErrInvalidCombination) {
		t.Errorf("target over non-attachment texture = %v, want ErrInvalidCombination", err)
	}
}

func TestCloseSweepsLeaks(t *testing.T) {
	s, err := New(Config{Adapter: driver.AdapterNull})
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	adapter := nullAdapter(t, s)

	if _, err := s.CreateBuffer(&BufferDescriptor{
		Label:     "leaked",
		Size:      16,
		BindFlags: BindVertexBuffer,
	}, nil); err != nil {
		t.Fatalf("CreateBuffer() = %v", err)
	}

	var warned bool
	s.SetDebugCallback(func(m DebugMessage) {
		if m.Severity == SeverityWarning && m.Source == "Close" {
			warned = true
		}
	})

	s.Close()
	if !warned {
		t.Error("Close with a live resource did not emit a leak warning")
	}
	if got := adapter.LiveBuffers(); got != 0 {
		t.Errorf("LiveBuffers() = %d after Close, want 0 (sweep releases leaks)", got)
	}

	// The system refuses work after Close.
	if _, err := s.CreateBuffer(&BufferDescriptor{
		Size:      16,
		BindFlags: BindVertexBuffer,
	}, nil); !errors.Is(err, ErrClosed) {
		t.Errorf("CreateBuffer after Close = %v, want ErrClosed", err)
	}
	// Close is idempotent.
	s.Close()
}

func TestSetDebugCallbackReceivesErrors(t *testing.T) {
	s := newTestSystem(t)

	var got []DebugMessage
	s.SetDebugCallback(func(m DebugMessage) { got = append(got, m) })

	_, err := s.CreateBuffer(&BufferDescriptor{}, nil)
	if err == nil {
		t.Fatal("invalid descriptor unexpectedly accepted")
	}
	if len(got) != 1 {
		t.Fatalf("callback received %d messages, want 1", len(got))
	}
	if got[0].Severity != SeverityError || got[0].Source != "CreateBuffer" {
		t.Errorf("message = %+v, want CreateBuffer error", got[0])
	}

	// Removing the callback stops delivery.
	s.SetDebugCallback(nil)
	_, _ = s.CreateBuffer(&BufferDescriptor{}, nil)
	if len(got) != 1 {
		t.Errorf("callback received %d messages after removal, want 1", len(got))
	}
}

func TestQueryHeapValidation(t *testing.T) {
	s := newTestSystem(t)

	if _, err := s.CreateQueryHeap(&QueryHeapDescriptor{
		Type: driver.QueryTimestamp,
	}); !errors.Is(err, ErrInvalidCombination) {
		t.Errorf("zero-count heap = %v, want ErrInvalidCombination", err)
	}

	heap, err := s.CreateQueryHeap(&QueryHeapDescriptor{
		Type:  driver.QueryTimestamp,
		Count: 4,
	})
	if err != nil {
		t.Fatalf("CreateQueryHeap() = %v", err)
	}
	if heap.Count() != 4 {
		t.Errorf("Count() = %d, want 4", heap.Count())
	}
}

func TestDirectPathsRequireRegistration(t *testing.T) {
	s := newTestSystem(t)

	tex, err := s.CreateTexture(&TextureDescriptor{
		Kind:      Texture2D,
		Format:    FormatRGBA8Unorm,
		Extent:    Extent3D{Width: 4, Height: 4, Depth: 1},
		MipLevels: 1,
		BindFlags: BindCopySrc | BindCopyDst,
	}, nil)
	if err != nil {
		t.Fatalf("CreateTexture() = %v", err)
	}
	heap, err := s.CreateQueryHeap(&QueryHeapDescriptor{
		Type:  driver.QueryTimestamp,
		Count: 1,
	})
	if err != nil {
		t.Fatalf("CreateQueryHeap() = %v", err)
	}
	if err := s.ReleaseTexture(tex); err != nil {
		t.Fatalf("ReleaseTexture() = %v", err)
	}
	if err := s.ReleaseQueryHeap(heap); err != nil {
		t.Fatalf("ReleaseQueryHeap() = %v", err)
	}

	region := TextureRegion{Extent: Extent3D{Width: 1, Height: 1, Depth: 1}}
	if err := s.WriteTexture(tex, region, make([]byte, 4)); !errors.Is(err, ErrNotRegistered) {
		t.Errorf("WriteTexture on a released texture = %v, want ErrNotRegistered", err)
	}
	if err := s.ReadTexture(tex, region, make([]byte, 4)); !errors.Is(err, ErrNotRegistered) {
		t.Errorf("ReadTexture on a released texture = %v, want ErrNotRegistered", err)
	}
	if err := s.ResolveQueries(heap, 0, 1, make([]uint64, 1)); !errors.Is(err, ErrNotRegistered) {
		t.Errorf("ResolveQueries on a released heap = %v, want ErrNotRegistered", err)
	}
}

func TestUnmapForeignBufferReported(t *testing.T) {
	s := newTestSystem(t)

	var msgs []DebugMessage
	s.SetDebugCallback(func(m DebugMessage) { msgs = append(msgs, m) })

	buf, err := s.CreateBuffer(&BufferDescriptor{
		Size:           8,
		BindFlags:      BindVertexBuffer,
		CPUAccessFlags: CPUAccessWrite,
	}, nil)
	if err != nil {
		t.Fatalf("CreateBuffer() = %v", err)
	}
	if err := s.ReleaseBuffer(buf); err != nil {
		t.Fatalf("ReleaseBuffer() = %v", err)
	}

	s.UnmapBuffer(buf)
	found := false
	for _, m := range msgs {
		if m.Source == "UnmapBuffer" && m.Severity == SeverityWarning {
			found = true
		}
	}
	if !found {
		t.Error("unmap of a released buffer was not reported")
	}
}

func TestDirectPathsAfterClose(t *testing.T) {
	s, err := New(Config{Adapter: driver.AdapterNull})
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	tex, err := s.CreateTexture(&TextureDescriptor{
		Kind:      Texture2D,
		Format:    FormatRGBA8Unorm,
		Extent:    Extent3D{Width: 4, Height: 4, Depth: 1},
		MipLevels: 1,
		BindFlags: BindCopySrc | BindCopyDst,
	}, nil)
	if err != nil {
		t.Fatalf("CreateTexture() = %v", err)
	}
	heap, err := s.CreateQueryHeap(&QueryHeapDescriptor{
		Type:  driver.QueryTimestamp,
		Count: 1,
	})
	if err != nil {
		t.Fatalf("CreateQueryHeap() = %v", err)
	}
	s.Close()

	region := TextureRegion{Extent: Extent3D{Width: 1, Height: 1, Depth: 1}}
	if err := s.WriteTexture(tex, region, make([]byte, 4)); !errors.Is(err, ErrClosed) {
		t.Errorf("WriteTexture after Close = %v, want ErrClosed", err)
	}
	if err := s.ReadTexture(tex, region, make([]byte, 4)); !errors.Is(err, ErrClosed) {
		t.Errorf("ReadTexture after Close = %v, want ErrClosed", err)
	}
	if err := s.ResolveQueries(heap, 0, 1, make([]uint64, 1)); !errors.Is(err, ErrClosed) {
		t.Errorf("ResolveQueries after Close = %v, want ErrClosed", err)
	}
	if err := s.ReadBuffer(nil, 0, nil); !errors.Is(err, ErrClosed) {
		t.Errorf("ReadBuffer after Close = %v, want ErrClosed", err)
	}
}
