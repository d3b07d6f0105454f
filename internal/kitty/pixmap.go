// Package kitty encodes images into kitty graphics protocol escape
// sequences: chunked transmissions, placements, deletions and capability
// queries.
package kitty

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
)

// Format identifies the pixel data layout of a transmission, using the
// protocol's f= values.
type Format int

const (
	FormatRGB  Format = 24  // 8-bit RGB triplets
	FormatRGBA Format = 32  // 8-bit RGBA quads, straight alpha
	FormatPNG  Format = 100 // PNG stream
)

// Pixmap is an immutable payload ready for transmission. Pix holds raw
// pixels for FormatRGB/FormatRGBA (width*height*channels bytes) or an
// encoded stream for FormatPNG. Width and Height are always the real
// dimensions of the encoded data.
type Pixmap struct {
	Width  int
	Height int
	Format Format
	Pix    []byte
}

// FromImage converts an image into a transmission payload in the given
// format.
func FromImage(img image.Image, f Format) (*Pixmap, error) {
	b := img.Bounds()
	p := &Pixmap{Width: b.Dx(), Height: b.Dy(), Format: f}

	switch f {
	case FormatPNG:
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode png: %w", err)
		}
		p.Pix = buf.Bytes()
		return p, nil

	case FormatRGBA:
		p.Pix = flatten(img)
		return p, nil

	case FormatRGB:
		rgba := flatten(img)
		rgb := make([]byte, 0, p.Width*p.Height*3)
		for i := 0; i < len(rgba); i += 4 {
			rgb = append(rgb, rgba[i], rgba[i+1], rgba[i+2])
		}
		p.Pix = rgb
		return p, nil
	}

	return nil, fmt.Errorf("unknown pixel format %d", f)
}

// FromPNG wraps an already encoded PNG stream. Width and height must be the
// stream's real dimensions.
func FromPNG(data []byte, width, height int) *Pixmap {
	return &Pixmap{Width: width, Height: height, Format: FormatPNG, Pix: data}
}

// Opaque reports whether the image has no transparency, in which case
// FormatRGB saves a byte per pixel.
func Opaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	return false
}

// flatten draws the image into a straight-alpha RGBA buffer. The protocol
// wants non-premultiplied values, which NRGBA stores directly.
func flatten(img image.Image) []byte {
	b := img.Bounds()
	if n, ok := img.(*image.NRGBA); ok && b.Min == image.Pt(0, 0) && n.Stride == 4*b.Dx() {
		return n.Pix
	}
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst.Pix
}
