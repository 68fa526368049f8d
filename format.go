package libwebp

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxDimension is the largest width or height libwebp accepts.
const MaxDimension = 16383

// PixelFormat is the sample layout requested from the decoder.
type PixelFormat int

const (
	RGB24 PixelFormat = iota
	RGBA32
	BGR24
	BGRA32
)

var pixelFormatNames = [...]string{
	RGB24:  "rgb",
	RGBA32: "rgba",
	BGR24:  "bgr",
	BGRA32: "bgra",
}

// ParsePixelFormat returns the format named s (rgb, rgba, bgr or bgra).
func ParsePixelFormat(s string) (PixelFormat, error) {
	for f, name := range pixelFormatNames {
		if strings.EqualFold(s, name) {
			return PixelFormat(f), nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrPixelFormat, s)
}

func (f PixelFormat) valid() bool {
	return f >= RGB24 && f <= BGRA32
}

func (f PixelFormat) String() string {
	if !f.valid() {
		return "PixelFormat(" + strconv.Itoa(int(f)) + ")"
	}

	return pixelFormatNames[f]
}

// BytesPerPixel returns 3 for the 24-bit formats and 4 for the 32-bit ones.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case RGB24, BGR24:
		return 3
	case RGBA32, BGRA32:
		return 4
	}

	return 0
}

// Stride returns the length of one unpadded scanline.
func (f PixelFormat) Stride(width int) int {
	return width * f.BytesPerPixel()
}

// Size returns the length of a whole decoded image.
func (f PixelFormat) Size(width, height int) int {
	return f.Stride(width) * height
}

// Header holds the dimensions reported by the bitstream header.
type Header struct {
	Width  int
	Height int
}

// Validate reports ErrDimensionOutOfRange unless both dimensions are in [1, MaxDimension].
func (h Header) Validate() error {
	if h.Width < 1 || h.Width > MaxDimension || h.Height < 1 || h.Height > MaxDimension {
		return fmt.Errorf("%w: %w: %dx%d", ErrInvalidFormat, ErrDimensionOutOfRange, h.Width, h.Height)
	}

	return nil
}

// Pixels is a decoded image. Pix is scanline-major with no row padding.
type Pixels struct {
	Header

	Pix    []byte
	Stride int
	Format PixelFormat
}

// Version is a libwebp version triple.
type Version struct {
	Major    int
	Minor    int
	Revision int
}

// unpackVersion splits the (major<<16)|(minor<<8)|revision value libwebp reports.
func unpackVersion(v int) Version {
	return Version{
		Major:    (v >> 16) & 0xff,
		Minor:    (v >> 8) & 0xff,
		Revision: v & 0xff,
	}
}

// ParseVersion parses a major.minor.revision string.
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("invalid version %q", s)
	}

	var n [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 || v > 0xff {
			return Version{}, fmt.Errorf("invalid version %q", s)
		}
		n[i] = v
	}

	return Version{Major: n[0], Minor: n[1], Revision: n[2]}, nil
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Revision)
}
