package driver

import "strings"

// BindFlags describes how a resource may be bound to the pipeline.
// Flags can be combined with bitwise OR, subject to the legality rules
// enforced by the rhi validator.
type BindFlags uint32

const (
	// BindVertexBuffer allows binding as a vertex buffer.
	BindVertexBuffer BindFlags = 1 << iota

	// BindIndexBuffer allows binding as an index buffer.
	BindIndexBuffer

	// BindConstantBuffer allows binding as a constant (uniform) buffer.
	BindConstantBuffer

	// BindStreamOutputBuffer allows binding as a stream-output target.
	BindStreamOutputBuffer

	// BindIndirectBuffer allows the buffer to source indirect draw or
	// dispatch arguments.
	BindIndirectBuffer

	// BindStorageBuffer allows binding as a read/write storage buffer.
	BindStorageBuffer

	// BindSampled allows a texture to be sampled in a shader.
	BindSampled

	// BindStorage allows a texture to be used as a storage image.
	BindStorage

	// BindColorAttachment allows a texture to be used as a color render
	// target.
	BindColorAttachment

	// BindDepthStencilAttachment allows a texture to be used as a
	// depth/stencil render target.
	BindDepthStencilAttachment

	// BindCopySrc allows the resource to be the source of a copy.
	BindCopySrc

	// BindCopyDst allows the resource to be the destination of a copy.
	BindCopyDst
)

// BufferBindMask covers all bind flags that are meaningful for buffers.
const BufferBindMask = BindVertexBuffer | BindIndexBuffer | BindConstantBuffer |
	BindStreamOutputBuffer | BindIndirectBuffer | BindStorageBuffer |
	BindSampled | BindStorage | BindCopySrc | BindCopyDst

// TextureBindMask covers all bind flags that are meaningful for textures.
const TextureBindMask = BindSampled | BindStorage | BindColorAttachment |
	BindDepthStencilAttachment | BindCopySrc | BindCopyDst

// AttachmentBindMask covers the render-target attachment flags, which are
// never legal on buffers.
const AttachmentBindMask = BindColorAttachment | BindDepthStencilAttachment

// Contains reports whether all bits of sub are set in f.
func (f BindFlags) Contains(sub BindFlags) bool {
	return f&sub == sub
}

// Any reports whether any bit of sub is set in f.
func (f BindFlags) Any(sub BindFlags) bool {
	return f&sub != 0
}

// bindFlagNames maps single bind flags to their string representation.
var bindFlagNames = []struct {
	flag BindFlags
	name string
}{
	{BindVertexBuffer, "VertexBuffer"},
	{BindIndexBuffer, "IndexBuffer"},
	{BindConstantBuffer, "ConstantBuffer"},
	{BindStreamOutputBuffer, "StreamOutputBuffer"},
	{BindIndirectBuffer, "IndirectBuffer"},
	{BindStorageBuffer, "StorageBuffer"},
	{BindSampled, "Sampled"},
	{BindStorage, "Storage"},
	{BindColorAttachment, "ColorAttachment"},
	{BindDepthStencilAttachment, "DepthStencilAttachment"},
	{BindCopySrc, "CopySrc"},
	{BindCopyDst, "CopyDst"},
}

// String returns a pipe-separated list of flag names, or "None".
func (f BindFlags) String() string {
	if f == 0 {
		return "None"
	}
	var parts []string
	for _, e := range bindFlagNames {
		if f.Contains(e.flag) {
			parts = append(parts, e.name)
		}
	}
	if len(parts) == 0 {
		return "Unknown"
	}
	return strings.Join(parts, "|")
}

// PrimaryCategory returns the dominant buffer bind category of f.
// Buffer arrays require every member to share the same primary category.
// The categories are checked in binding-slot order: vertex, index,
// constant, stream-output, indirect, storage.
func (f BindFlags) PrimaryCategory() BindFlags {
	for _, c := range []BindFlags{
		BindVertexBuffer,
		BindIndexBuffer,
		BindConstantBuffer,
		BindStreamOutputBuffer,
		BindIndirectBuffer,
		BindStorageBuffer,
	} {
		if f.Contains(c) {
			return c
		}
	}
	return 0
}

// CPUAccessFlags describes the host access granted to a resource.
// Requesting CPU access makes the backend allocate a CPU-access shadow
// allocation whose lifetime is tied to the parent resource.
type CPUAccessFlags uint32

const (
	// CPUAccessRead allows the host to read the resource via Map.
	CPUAccessRead CPUAccessFlags = 1 << iota

	// CPUAccessWrite allows the host to write the resource via Map.
	CPUAccessWrite
)

// CPUAccessReadWrite grants both read and write host access.
const CPUAccessReadWrite = CPUAccessRead | CPUAccessWrite

// Contains reports whether all bits of sub are set in f.
func (f CPUAccessFlags) Contains(sub CPUAccessFlags) bool {
	return f&sub == sub
}

// String returns the string representation of the access flags.
func (f CPUAccessFlags) String() string {
	switch f {
	case 0:
		return "None"
	case CPUAccessRead:
		return "Read"
	case CPUAccessWrite:
		return "Write"
	case CPUAccessReadWrite:
		return "ReadWrite"
	default:
		return "Unknown"
	}
}

// MiscFlags carries miscellaneous resource creation options.
type MiscFlags uint32

const (
	// MiscDynamicUsage marks a resource as frequently updated from the
	// host. Static resources (without this flag) restrict partial updates
	// for constant buffers.
	MiscDynamicUsage MiscFlags = 1 << iota

	// MiscGenerateMips requests automatic mipmap generation at creation
	// when initial data is present.
	MiscGenerateMips

	// MiscNoInitialData skips default-initialization of the resource.
	MiscNoInitialData

	// MiscFixedSamples enables fixed sample positions for multisampled
	// textures.
	MiscFixedSamples
)

// Contains reports whether all bits of sub are set in f.
func (f MiscFlags) Contains(sub MiscFlags) bool {
	return f&sub == sub
}

// StageFlags identifies a shader pipeline stage or a set of stages.
type StageFlags uint32

const (
	// StageVertex is the vertex shader stage.
	StageVertex StageFlags = 1 << iota

	// StageTessControl is the tessellation-control (hull) stage.
	StageTessControl

	// StageTessEvaluation is the tessellation-evaluation (domain) stage.
	StageTessEvaluation

	// StageGeometry is the geometry shader stage.
	StageGeometry

	// StageFragment is the fragment (pixel) shader stage.
	StageFragment

	// StageCompute is the compute shader stage.
	StageCompute
)

// NumStages is the number of distinct shader stages.
const NumStages = 6

// stageNames maps single stage flags to their string representation.
var stageNames = map[StageFlags]string{
	StageVertex:         "Vertex",
	StageTessControl:    "TessControl",
	StageTessEvaluation: "TessEvaluation",
	StageGeometry:       "Geometry",
	StageFragment:       "Fragment",
	StageCompute:        "Compute",
}

// String returns a pipe-separated list of stage names, or "None".
func (f StageFlags) String() string {
	if f == 0 {
		return "None"
	}
	var parts []string
	for i := 0; i < NumStages; i++ {
		s := StageFlags(1 << i)
		if f&s != 0 {
			parts = append(parts, stageNames[s])
		}
	}
	return strings.Join(parts, "|")
}
