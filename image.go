package rhi

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

// TextureDataFromImage converts any image.Image into tightly packed
// RGBA8 texel data suitable as initial data for an RGBA8Unorm texture.
// Returns the data and the matching 2D extent.
func TextureDataFromImage(img image.Image) ([]byte, Extent3D) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.Draw(rgba, rgba.Bounds(), img, bounds.Min, xdraw.Src)
	return rgba.Pix, Extent3D{Width: uint32(w), Height: uint32(h), Depth: 1}
}

// CreateTextureFromImage creates a sampled 2D RGBA8Unorm texture from an
// image. With mips set, the full mip chain is allocated and generated
// from the converted image data.
func (s *System) CreateTextureFromImage(label string, img image.Image, mips bool) (Texture, error) {
	data, extent := TextureDataFromImage(img)
	desc := &TextureDescriptor{
		Label:     label,
		Kind:      Texture2D,
		Format:    FormatRGBA8Unorm,
		Extent:    extent,
		BindFlags: BindSampled | BindCopySrc | BindCopyDst,
	}
	if mips {
		desc.MiscFlags |= MiscGenerateMips
	} else {
		desc.MipLevels = 1
	}
	return s.CreateTexture(desc, data)
}
