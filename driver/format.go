package driver

import "github.com/gogpu/gputypes"

// Format is the pixel format of a texture or typed buffer view.
//
// Format is an alias for gputypes.TextureFormat so adapters built on the
// gogpu stack can pass formats through without conversion, while the rest
// of the ecosystem keeps a driver-local name for it.
type Format = gputypes.TextureFormat

// Commonly used formats, re-exported for brevity at call sites.
const (
	// FormatUndefined is the zero format.
	FormatUndefined = gputypes.TextureFormatUndefined

	// FormatRGBA8Unorm is 8-bit-per-channel RGBA, unsigned normalized.
	FormatRGBA8Unorm = gputypes.TextureFormatRGBA8Unorm

	// FormatBGRA8Unorm is 8-bit-per-channel BGRA, unsigned normalized.
	FormatBGRA8Unorm = gputypes.TextureFormatBGRA8Unorm

	// FormatDepth24PlusStencil8 is a combined depth/stencil format.
	FormatDepth24PlusStencil8 = gputypes.TextureFormatDepth24PlusStencil8

	// FormatR8Unorm is single-channel 8-bit, unsigned normalized.
	FormatR8Unorm = gputypes.TextureFormatR8Unorm
)

// IndexFormat is the element format of an index buffer.
type IndexFormat uint8

const (
	// IndexFormatUndefined leaves the index format unspecified. Only valid
	// for buffers without the BindIndexBuffer flag.
	IndexFormatUndefined IndexFormat = iota

	// IndexFormatUint16 uses 16-bit unsigned indices.
	IndexFormatUint16

	// IndexFormatUint32 uses 32-bit unsigned indices.
	IndexFormatUint32
)

// ByteSize returns the size of one index element in bytes, or 0 for the
// undefined format.
func (f IndexFormat) ByteSize() uint32 {
	switch f {
	case IndexFormatUint16:
		return 2
	case IndexFormatUint32:
		return 4
	default:
		return 0
	}
}

// String returns the string representation of the index format.
func (f IndexFormat) String() string {
	switch f {
	case IndexFormatUndefined:
		return "Undefined"
	case IndexFormatUint16:
		return "Uint16"
	case IndexFormatUint32:
		return "Uint32"
	default:
		return "Unknown"
	}
}

// VertexFormat is the component layout of one vertex attribute.
type VertexFormat uint8

const (
	// VertexFormatFloat32 is one 32-bit float.
	VertexFormatFloat32 VertexFormat = iota + 1

	// VertexFormatFloat32x2 is a 2-component 32-bit float vector.
	VertexFormatFloat32x2

	// VertexFormatFloat32x3 is a 3-component 32-bit float vector.
	VertexFormatFloat32x3

	// VertexFormatFloat32x4 is a 4-component 32-bit float vector.
	VertexFormatFloat32x4

	// VertexFormatUint32 is one 32-bit unsigned integer.
	VertexFormatUint32

	// VertexFormatUint8x4Norm is a 4-component normalized byte vector,
	// commonly used for packed colors.
	VertexFormatUint8x4Norm
)

// ByteSize returns the size of one attribute element in bytes.
func (f VertexFormat) ByteSize() uint32 {
	switch f {
	case VertexFormatFloat32, VertexFormatUint32, VertexFormatUint8x4Norm:
		return 4
	case VertexFormatFloat32x2:
		return 8
	case VertexFormatFloat32x3:
		return 12
	case VertexFormatFloat32x4:
		return 16
	default:
		return 0
	}
}

// Extent3D is the size of a texture region in texels.
// Mirrors gputypes.Extent3D field-for-field but keeps array layers
// separate from depth at the descriptor level.
type Extent3D struct {
	// Width is the extent along X.
	Width uint32

	// Height is the extent along Y. 1 for 1D textures.
	Height uint32

	// Depth is the extent along Z. 1 for non-3D textures.
	Depth uint32
}

// MaxExtent returns the largest of the three extents.
func (e Extent3D) MaxExtent() uint32 {
	m := e.Width
	if e.Height > m {
		m = e.Height
	}
	if e.Depth > m {
		m = e.Depth
	}
	return m
}

// Origin3D is a texel offset into a texture.
type Origin3D struct {
	X uint32
	Y uint32
	Z uint32
}

// Viewport describes the viewport transform of a render pass.
type Viewport struct {
	X        float32
	Y        float32
	Width    float32
	Height   float32
	MinDepth float32
	MaxDepth float32
}

// Scissor describes a scissor rectangle in framebuffer pixels.
type Scissor struct {
	X      int32
	Y      int32
	Width  uint32
	Height uint32
}

// ClearColor is an RGBA clear value.
type ClearColor struct {
	R float64
	G float64
	B float64
	A float64
}
