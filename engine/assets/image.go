package assets

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"math/bits"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// LoadImage decodes a PNG, JPEG, BMP, TIFF or WebP file into tightly packed
// RGBA8 (stride == 4*width, top-left origin).
func LoadImage(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image %q: %w", path, err)
	}
	rgba := ToRGBA(img)
	if rgba.Bounds().Empty() {
		return nil, fmt.Errorf("decode %s %q: empty image", format, path)
	}
	return rgba, nil
}

// ToRGBA returns img as a packed *image.RGBA anchored at (0,0), converting
// only when needed.
func ToRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	if m, ok := img.(*image.RGBA); ok && m.Stride == b.Dx()*4 && b.Min == (image.Point{}) {
		return m
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// Checker generates a size×size checkerboard with cell-sized squares, used
// when no texture is configured.
func Checker(size, cell int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	light := color.RGBA{0xe0, 0xe0, 0xe0, 0xff}
	dark := color.RGBA{0x40, 0x40, 0x40, 0xff}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := dark
			if (x/cell+y/cell)%2 == 0 {
				c = light
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// MipLevels is floor(log2(max(w, h))) + 1.
func MipLevels(w, h int) uint32 {
	m := max(w, h)
	if m < 1 {
		return 1
	}
	return uint32(bits.Len(uint(m)))
}

// Mipmaps downsamples base into the full chain, base level first. Each level
// halves both sides (never below 1).
func Mipmaps(base *image.RGBA) []*image.RGBA {
	w, h := base.Bounds().Dx(), base.Bounds().Dy()
	levels := MipLevels(w, h)
	out := make([]*image.RGBA, 0, levels)
	out = append(out, base)
	prev := base
	for i := uint32(1); i < levels; i++ {
		w, h = max(w/2, 1), max(h/2, 1)
		next := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.BiLinear.Scale(next, next.Bounds(), prev, prev.Bounds(), draw.Src, nil)
		out = append(out, next)
		prev = next
	}
	return out
}
