package libwebp

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
)

// Backend selects how libwebp is reached.
type Backend int

const (
	// BackendAuto uses the shared library when it loads, the WASM module otherwise.
	BackendAuto Backend = iota
	// BackendDynamic calls a system libwebp through purego.
	BackendDynamic
	// BackendWASM runs libwebp compiled to WASM with wazero.
	BackendWASM
)

func (b Backend) String() string {
	switch b {
	case BackendAuto:
		return "auto"
	case BackendDynamic:
		return "dynamic"
	case BackendWASM:
		return "wasm"
	}

	return fmt.Sprintf("Backend(%d)", int(b))
}

// Environment variables read by the default decoder and by NewDecoder when the
// corresponding option is not given.
const (
	EnvLibrary = "LIBWEBP_PATH"
	EnvWASM    = "LIBWEBP_WASM"
)

type options struct {
	backend Backend
	library string
	wasm    string
}

// Option configures NewDecoder.
type Option func(*options)

// WithBackend forces a backend.
func WithBackend(b Backend) Option {
	return func(o *options) {
		o.backend = b
	}
}

// WithLibrary loads the shared library from path instead of the platform default names.
func WithLibrary(path string) Option {
	return func(o *options) {
		o.library = path
	}
}

// WithWASM loads the WASM module from path. Paths ending in .gz or .zst are decompressed.
func WithWASM(path string) Option {
	return func(o *options) {
		o.wasm = path
	}
}

// Decoder decodes WebP images with one libwebp backend.
// It keeps no per-image state and is safe for concurrent use.
type Decoder struct {
	codec   codec
	backend Backend
}

// NewDecoder loads a backend.
func NewDecoder(opts ...Option) (*Decoder, error) {
	o := options{
		library: os.Getenv(EnvLibrary),
		wasm:    os.Getenv(EnvWASM),
	}
	for _, opt := range opts {
		opt(&o)
	}

	switch o.backend {
	case BackendDynamic:
		c, err := newDynamicCodec(o.library)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}

		return &Decoder{codec: c, backend: BackendDynamic}, nil
	case BackendWASM:
		c, err := newWasmCodec(o.wasm)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}

		return &Decoder{codec: c, backend: BackendWASM}, nil
	case BackendAuto:
		c, derr := newDynamicCodec(o.library)
		if derr == nil {
			return &Decoder{codec: c, backend: BackendDynamic}, nil
		}

		if o.wasm == "" {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, derr)
		}

		w, werr := newWasmCodec(o.wasm)
		if werr != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, errors.Join(derr, werr))
		}

		return &Decoder{codec: w, backend: BackendWASM}, nil
	}

	return nil, fmt.Errorf("%w: %v", ErrUnavailable, o.backend)
}

// Backend reports the backend in use.
func (d *Decoder) Backend() Backend {
	return d.backend
}

// Close releases the WASM runtime. The shared library stays loaded.
func (d *Decoder) Close() error {
	if c, ok := d.codec.(io.Closer); ok {
		return c.Close()
	}

	return nil
}

// DecoderVersion returns the libwebp decoder version.
func (d *Decoder) DecoderVersion() (Version, error) {
	v, err := d.codec.decoderVersion()
	if err != nil {
		return Version{}, fmt.Errorf("decoder version: %w", err)
	}

	return unpackVersion(v), nil
}

// EncoderVersion returns the libwebp encoder version.
func (d *Decoder) EncoderVersion() (Version, error) {
	v, err := d.codec.encoderVersion()
	if err != nil {
		return Version{}, fmt.Errorf("encoder version: %w", err)
	}

	return unpackVersion(v), nil
}

// GetInfo validates the header of the file at path and returns its dimensions.
func (d *Decoder) GetInfo(path string) (Header, error) {
	data, err := readFile("info", path)
	if err != nil {
		return Header{}, err
	}

	return d.info("info", path, data)
}

// GetInfoBytes validates the header in data and returns its dimensions.
func (d *Decoder) GetInfoBytes(data []byte) (Header, error) {
	return d.info("info", "", data)
}

// GetInfoReader reads r to EOF and returns the header dimensions.
func (d *Decoder) GetInfoReader(r io.Reader) (Header, error) {
	data, err := readAll("info", r)
	if err != nil {
		return Header{}, err
	}

	return d.info("info", "", data)
}

// DecodeFile decodes the file at path into format.
func (d *Decoder) DecodeFile(path string, format PixelFormat) (*Pixels, error) {
	if !format.valid() {
		return nil, fmt.Errorf("%w: %v", ErrPixelFormat, format)
	}

	data, err := readFile("decode", path)
	if err != nil {
		return nil, err
	}

	return d.decode("decode", path, data, format)
}

// DecodeBytes decodes data into format.
func (d *Decoder) DecodeBytes(data []byte, format PixelFormat) (*Pixels, error) {
	if !format.valid() {
		return nil, fmt.Errorf("%w: %v", ErrPixelFormat, format)
	}

	return d.decode("decode", "", data, format)
}

// DecodeReader reads r to EOF and decodes it into format.
func (d *Decoder) DecodeReader(r io.Reader, format PixelFormat) (*Pixels, error) {
	if !format.valid() {
		return nil, fmt.Errorf("%w: %v", ErrPixelFormat, format)
	}

	data, err := readAll("decode", r)
	if err != nil {
		return nil, err
	}

	return d.decode("decode", "", data, format)
}

// DecodeImage decodes the file at path and wraps the pixels in a bitmap, see ToBitmap.
func (d *Decoder) DecodeImage(path string, format PixelFormat) (image.Image, error) {
	p, err := d.DecodeFile(path, format)
	if err != nil {
		return nil, err
	}

	return ToBitmap(p)
}

func readFile(op, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &StageError{Op: op, Stage: StageLoad, Path: path, Err: fmt.Errorf("%w: %w", ErrSourceRead, err)}
	}

	return data, nil
}

func readAll(op string, r io.Reader) ([]byte, error) {
	var buf bytes.Buffer

	_, err := buf.ReadFrom(r)
	if err != nil {
		return nil, &StageError{Op: op, Stage: StageLoad, Err: fmt.Errorf("%w: %w", ErrSourceRead, err)}
	}

	return buf.Bytes(), nil
}

// header copies data into codec memory and reads the bitstream header.
// The input block stays tracked by s.
func (d *Decoder) header(s *scope, op, path string, data []byte) (Header, *foreignBlock, error) {
	fail := func(err error) (Header, *foreignBlock, error) {
		return Header{}, nil, &StageError{Op: op, Stage: StageHeader, Path: path, Err: err}
	}

	if len(data) == 0 {
		return fail(fmt.Errorf("%w: empty input", ErrInvalidFormat))
	}

	in, err := s.toForeign(data)
	if err != nil {
		return fail(err)
	}

	dims, err := s.alloc(dimsSize)
	if err != nil {
		return fail(err)
	}

	width, height, ok, err := d.codec.getInfo(in.ptr, in.size, dims.ptr)
	if err != nil {
		return fail(err)
	}
	if !ok {
		return fail(ErrInvalidFormat)
	}

	h := Header{Width: width, Height: height}
	if err := h.Validate(); err != nil {
		return fail(err)
	}

	return h, in, nil
}

func (d *Decoder) info(op, path string, data []byte) (Header, error) {
	s := newScope(d.codec)
	defer s.close()

	h, _, err := d.header(s, op, path, data)

	return h, err
}

func (d *Decoder) decode(op, path string, data []byte, format PixelFormat) (*Pixels, error) {
	s := newScope(d.codec)
	defer s.close()

	h, in, err := d.header(s, op, path, data)
	if err != nil {
		return nil, err
	}

	size := format.Size(h.Width, h.Height)
	stride := format.Stride(h.Width)

	out, err := s.alloc(size)
	if err != nil {
		return nil, &StageError{Op: op, Stage: StageAlloc, Path: path, Err: err}
	}

	ok, err := d.codec.decodeInto(format, in.ptr, in.size, out.ptr, out.size, stride)
	if err != nil {
		return nil, &StageError{Op: op, Stage: StageDecode, Path: path, Err: fmt.Errorf("%w: %w", ErrDecode, err)}
	}
	if !ok {
		return nil, &StageError{Op: op, Stage: StageDecode, Path: path, Err: ErrDecode}
	}

	pix, err := s.fromForeign(out)
	if err != nil {
		return nil, &StageError{Op: op, Stage: StageCopy, Path: path, Err: err}
	}

	if len(pix) != size {
		panic(fmt.Sprintf("libwebp: copied %d bytes, want %d", len(pix), size))
	}

	return &Pixels{
		Header: h,
		Pix:    pix,
		Stride: stride,
		Format: format,
	}, nil
}
