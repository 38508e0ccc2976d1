package rhi

import (
	"image"
	"image/color"
	"testing"
)

func testImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 16), G: uint8(y * 16), B: 128, A: 255})
		}
	}
	return img
}

func TestTextureDataFromImage(t *testing.T) {
	img := testImage(4, 2)

	data, extent := TextureDataFromImage(img)
	if extent.Width != 4 || extent.Height != 2 || extent.Depth != 1 {
		t.Fatalf("extent = %+v, want 4x2x1", extent)
	}
	if len(data) != 4*2*4 {
		t.Fatalf("len(data) = %d, want %d", len(data), 4*2*4)
	}
	// Texel (1,1) is R=16 G=16 B=128 A=255 at row-major offset.
	off := (1*4 + 1) * 4
	if data[off] != 16 || data[off+1] != 16 || data[off+2] != 128 || data[off+3] != 255 {
		t.Errorf("texel (1,1) = %v", data[off:off+4])
	}
}

func TestTextureDataFromImageOffsetBounds(t *testing.T) {
	// Images whose bounds do not start at the origin must still convert
	// to a zero-based texel grid.
	img := image.NewNRGBA(image.Rect(10, 20, 14, 22))
	img.Set(10, 20, color.NRGBA{R: 200, A: 255})

	data, extent := TextureDataFromImage(img)
	if extent.Width != 4 || extent.Height != 2 {
		t.Fatalf("extent = %+v, want 4x2", extent)
	}
	if data[0] != 200 || data[3] != 255 {
		t.Errorf("texel (0,0) = %v, want [200 0 0 255]", data[0:4])
	}
}

func TestCreateTextureFromImage(t *testing.T) {
	s := newTestSystem(t)

	tex, err := s.CreateTextureFromImage("plain", testImage(8, 8), false)
	if err != nil {
		t.Fatalf("CreateTextureFromImage() = %v", err)
	}
	if got := tex.MipLevels(); got != 1 {
		t.Errorf("MipLevels() = %d without mips, want 1", got)
	}

	out := make([]byte, 8*8*4)
	if err := s.ReadTexture(tex, TextureRegion{
		Extent: Extent3D{Width: 8, Height: 8, Depth: 1},
	}, out); err != nil {
		t.Fatalf("ReadTexture() = %v", err)
	}
	want, _ := TextureDataFromImage(testImage(8, 8))
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("texture data differs from image at byte %d: %d != %d", i, out[i], want[i])
		}
	}
}

func TestCreateTextureFromImageWithMips(t *testing.T) {
	s := newTestSystem(t)

	tex, err := s.CreateTextureFromImage("mipped", testImage(8, 8), true)
	if err != nil {
		t.Fatalf("CreateTextureFromImage() = %v", err)
	}
	if got := tex.MipLevels(); got != 4 {
		t.Errorf("MipLevels() = %d for an 8x8 texture, want 4", got)
	}
}
