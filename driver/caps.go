package driver

// Capability identifies an optional device feature callers and the
// validator can branch on before attempting creation.
type Capability int

const (
	// CapMultiSampleTextures indicates multisampled texture support.
	CapMultiSampleTextures Capability = iota

	// CapCubeArrayTextures indicates cube-array texture support.
	CapCubeArrayTextures

	// Cap3DTextures indicates 3D (volume) texture support.
	Cap3DTextures

	// CapGeometryShaders indicates geometry shader support.
	CapGeometryShaders

	// CapTessellationShaders indicates tessellation shader support.
	CapTessellationShaders

	// CapComputeShaders indicates compute shader support.
	CapComputeShaders

	// CapStreamOutput indicates stream-output (transform feedback) support.
	CapStreamOutput

	// CapIndirectDraw indicates indirect draw/dispatch argument support.
	CapIndirectDraw

	// CapTimestampQueries indicates timestamp query support.
	CapTimestampQueries

	numCapabilities
)

// capabilityNames maps Capability values to their string representation.
var capabilityNames = [...]string{
	CapMultiSampleTextures: "MultiSampleTextures",
	CapCubeArrayTextures:   "CubeArrayTextures",
	Cap3DTextures:          "3DTextures",
	CapGeometryShaders:     "GeometryShaders",
	CapTessellationShaders: "TessellationShaders",
	CapComputeShaders:      "ComputeShaders",
	CapStreamOutput:        "StreamOutput",
	CapIndirectDraw:        "IndirectDraw",
	CapTimestampQueries:    "TimestampQueries",
}

// String returns the string representation of the capability.
func (c Capability) String() string {
	if int(c) < len(capabilityNames) {
		return capabilityNames[c]
	}
	return "Unknown"
}

// Limits describes the numeric capacity bounds of a device.
// A zero value for a limit means "not supported" rather than "unbounded".
type Limits struct {
	// MaxBufferSize is the maximum buffer size in bytes.
	MaxBufferSize uint64

	// MaxTextureSize is the maximum 1D/2D texture extent in texels.
	MaxTextureSize uint32

	// Max3DTextureSize is the maximum 3D texture extent in texels.
	Max3DTextureSize uint32

	// MaxCubeTextureSize is the maximum cube face extent in texels.
	MaxCubeTextureSize uint32

	// MaxArrayLayers is the maximum number of texture array layers.
	MaxArrayLayers uint32

	// MaxSampleCount is the maximum multisample count.
	MaxSampleCount uint32

	// MaxColorAttachments is the maximum number of simultaneous color
	// attachments in a render pass.
	MaxColorAttachments uint32

	// MaxViewports is the maximum number of simultaneous viewports.
	MaxViewports uint32

	// MaxConstantBufferSize is the maximum constant buffer size in bytes.
	MaxConstantBufferSize uint64
}

// Capabilities is the read-only feature and limit surface of a device.
// The rhi validator consults it to fail unsupported creation requests
// before any native allocation is attempted.
type Capabilities struct {
	// Features holds the supported optional capabilities.
	Features [numCapabilities]bool

	// Limits holds the numeric capacity bounds.
	Limits Limits

	// VendorName is the device vendor, when known.
	VendorName string

	// DeviceName is the device name, when known.
	DeviceName string
}

// Supported reports whether the device supports the given capability.
func (c *Capabilities) Supported(cap Capability) bool {
	if cap < 0 || cap >= numCapabilities {
		return false
	}
	return c.Features[cap]
}

// Set marks a capability as supported or unsupported.
// Intended for adapter initialization and tests.
func (c *Capabilities) Set(cap Capability, supported bool) {
	if cap >= 0 && cap < numCapabilities {
		c.Features[cap] = supported
	}
}
