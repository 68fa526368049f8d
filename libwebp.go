// Package libwebp implements a WebP image decoder on top of the native libwebp library.
//
// The system libwebp is loaded at runtime with purego, no cgo is required. When it is not
// installed, libwebp compiled to WASM can be used instead, see WithWASM and LIBWEBP_WASM.
package libwebp

import (
	"image"
	"image/color"
	"io"
	"sync"
)

func init() {
	image.RegisterFormat("webp", "RIFF????WEBPVP8", Decode, DecodeConfig)
}

var (
	defaultOnce    sync.Once
	defaultDecoder *Decoder
	defaultErr     error
)

// Default returns the package decoder, loading it on first use.
func Default() (*Decoder, error) {
	defaultOnce.Do(func() {
		defaultDecoder, defaultErr = NewDecoder()
	})

	return defaultDecoder, defaultErr
}

// Dynamic reports whether the package decoder uses the system shared library.
func Dynamic() bool {
	d, err := Default()

	return err == nil && d.Backend() == BackendDynamic
}

// Decode reads a WebP image from r and returns it as an *image.NRGBA.
func Decode(r io.Reader) (image.Image, error) {
	d, err := Default()
	if err != nil {
		return nil, err
	}

	p, err := d.DecodeReader(r, RGBA32)
	if err != nil {
		return nil, err
	}

	return ToBitmap(p)
}

// DecodeConfig returns the color model and dimensions of a WebP image without decoding it.
func DecodeConfig(r io.Reader) (image.Config, error) {
	d, err := Default()
	if err != nil {
		return image.Config{}, err
	}

	h, err := d.GetInfoReader(r)
	if err != nil {
		return image.Config{}, err
	}

	return image.Config{
		ColorModel: color.NRGBAModel,
		Width:      h.Width,
		Height:     h.Height,
	}, nil
}

// DecoderVersion returns the libwebp decoder version.
func DecoderVersion() (Version, error) {
	d, err := Default()
	if err != nil {
		return Version{}, err
	}

	return d.DecoderVersion()
}

// EncoderVersion returns the libwebp encoder version.
func EncoderVersion() (Version, error) {
	d, err := Default()
	if err != nil {
		return Version{}, err
	}

	return d.EncoderVersion()
}

// GetInfo validates the header of the file at path and returns its dimensions.
func GetInfo(path string) (Header, error) {
	d, err := Default()
	if err != nil {
		return Header{}, err
	}

	return d.GetInfo(path)
}

// DecodeFile decodes the file at path into raw pixels of the given format.
func DecodeFile(path string, format PixelFormat) (*Pixels, error) {
	d, err := Default()
	if err != nil {
		return nil, err
	}

	return d.DecodeFile(path, format)
}

// DecodeBytes decodes data into raw pixels of the given format.
func DecodeBytes(data []byte, format PixelFormat) (*Pixels, error) {
	d, err := Default()
	if err != nil {
		return nil, err
	}

	return d.DecodeBytes(data, format)
}

func decodeImage(path string, format PixelFormat) (image.Image, error) {
	d, err := Default()
	if err != nil {
		return nil, err
	}

	return d.DecodeImage(path, format)
}

// DecodeRGB decodes the file at path into an *RGB bitmap.
func DecodeRGB(path string) (image.Image, error) {
	return decodeImage(path, RGB24)
}

// DecodeRGBA decodes the file at path into an *image.NRGBA bitmap.
func DecodeRGBA(path string) (image.Image, error) {
	return decodeImage(path, RGBA32)
}

// DecodeBGR decodes the file at path as BGR samples into an *RGB bitmap.
// Channels are not swapped, so red and blue are exchanged in the returned image.
func DecodeBGR(path string) (image.Image, error) {
	return decodeImage(path, BGR24)
}

// DecodeBGRA decodes the file at path as BGRA samples into an *image.NRGBA bitmap.
// Channels are not swapped, so red and blue are exchanged in the returned image.
func DecodeBGRA(path string) (image.Image, error) {
	return decodeImage(path, BGRA32)
}
