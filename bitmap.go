package libwebp

import (
	"fmt"
	"image"
	"image/color"
)

// ToBitmap copies p into a newly allocated image. 3 byte formats produce an *RGB,
// 4 byte formats an *image.NRGBA.
//
// Samples are copied as they are. BGR24 and BGRA32 pixels therefore show up with red and
// blue exchanged, callers that want BGR order in memory read Pix directly.
func ToBitmap(p *Pixels) (image.Image, error) {
	if p == nil {
		return nil, fmt.Errorf("libwebp: nil pixels")
	}

	if err := p.Header.Validate(); err != nil {
		return nil, err
	}

	rowLen := p.Format.Stride(p.Width)
	if rowLen == 0 {
		return nil, fmt.Errorf("%w: %v", ErrPixelFormat, p.Format)
	}

	if p.Stride < rowLen || len(p.Pix) < (p.Height-1)*p.Stride+rowLen {
		return nil, fmt.Errorf("libwebp: pixel buffer too short: %d bytes, stride %d, %dx%d %v",
			len(p.Pix), p.Stride, p.Width, p.Height, p.Format)
	}

	rect := image.Rect(0, 0, p.Width, p.Height)

	var pix []uint8
	var stride int
	var img image.Image

	switch p.Format.BytesPerPixel() {
	case 3:
		rgb := NewRGB(rect)
		pix, stride, img = rgb.Pix, rgb.Stride, rgb
	default:
		nrgba := image.NewNRGBA(rect)
		pix, stride, img = nrgba.Pix, nrgba.Stride, nrgba
	}

	for y := 0; y < p.Height; y++ {
		copy(pix[y*stride:y*stride+rowLen], p.Pix[y*p.Stride:y*p.Stride+rowLen])
	}

	return img, nil
}

// RGB is an in-memory image of opaque 8-bit R, G, B samples.
type RGB struct {
	// Pix holds the image's pixels in R, G, B order. The pixel at (x, y) starts at
	// Pix[(y-Rect.Min.Y)*Stride + (x-Rect.Min.X)*3].
	Pix    []uint8
	Stride int
	Rect   image.Rectangle
}

// NewRGB returns a new RGB image with the given bounds.
func NewRGB(r image.Rectangle) *RGB {
	w, h := r.Dx(), r.Dy()

	return &RGB{
		Pix:    make([]uint8, 3*w*h),
		Stride: 3 * w,
		Rect:   r,
	}
}

func (p *RGB) ColorModel() color.Model { return color.RGBAModel }

func (p *RGB) Bounds() image.Rectangle { return p.Rect }

func (p *RGB) At(x, y int) color.Color {
	return p.RGBAAt(x, y)
}

func (p *RGB) RGBAAt(x, y int) color.RGBA {
	if !(image.Point{X: x, Y: y}.In(p.Rect)) {
		return color.RGBA{}
	}

	i := p.PixOffset(x, y)
	s := p.Pix[i : i+3 : i+3]

	return color.RGBA{R: s[0], G: s[1], B: s[2], A: 0xff}
}

// PixOffset returns the index of the first element of Pix that corresponds to the pixel at (x, y).
func (p *RGB) PixOffset(x, y int) int {
	return (y-p.Rect.Min.Y)*p.Stride + (x-p.Rect.Min.X)*3
}

func (p *RGB) Set(x, y int, c color.Color) {
	if !(image.Point{X: x, Y: y}.In(p.Rect)) {
		return
	}

	c1 := color.RGBAModel.Convert(c).(color.RGBA)
	i := p.PixOffset(x, y)
	s := p.Pix[i : i+3 : i+3]
	s[0] = c1.R
	s[1] = c1.G
	s[2] = c1.B
}

// SubImage returns an image representing the portion of p visible through r.
// The returned value shares pixels with p.
func (p *RGB) SubImage(r image.Rectangle) image.Image {
	r = r.Intersect(p.Rect)
	if r.Empty() {
		return &RGB{}
	}

	i := p.PixOffset(r.Min.X, r.Min.Y)

	return &RGB{
		Pix:    p.Pix[i:],
		Stride: p.Stride,
		Rect:   r,
	}
}

// Opaque reports true, RGB has no alpha channel.
func (p *RGB) Opaque() bool {
	return true
}
