// Package driver defines the contract between the rhi front end and the
// native graphics backends.
//
// A backend implements the Adapter interface: it accepts the same abstract
// descriptors the rhi validator operates on and translates them into native
// objects (buffers, textures, pipelines, encoders). Backends register
// themselves via Register(), typically from an init() function in their own
// package, and are selected by name or by priority via Get() and Default().
//
// The package also defines the structured error taxonomy adapters must use
// to report creation failures. Adapters never surface raw native error
// codes; every failure is classified as exceeded capacity, unsupported
// feature, invalid combination, or device failure.
//
// Two adapters ship with the module:
//   - driver/wgpu: GPU execution via github.com/gogpu/wgpu
//   - driver/null: an in-memory software device used as the reference
//     implementation and test vehicle
package driver
