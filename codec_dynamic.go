//go:build (darwin || freebsd || linux || windows) && !nodynamic

package libwebp

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

// dynamicCodec calls a shared libwebp. Memory comes from WebPMalloc and WebPFree,
// live blocks are kept as typed pointers keyed by their address.
type dynamicCodec struct {
	lib uintptr

	mu     sync.Mutex
	blocks map[uint64]unsafe.Pointer

	_webpMalloc            func(uint64) unsafe.Pointer
	_webpFree              func(unsafe.Pointer)
	_webpGetDecoderVersion func() int32
	_webpGetEncoderVersion func() int32
	_webpGetInfo           func(unsafe.Pointer, uint64, *int32, *int32) int32
	_webpDecodeRGBInto     func(unsafe.Pointer, uint64, unsafe.Pointer, uint64, int32) *uint8
	_webpDecodeRGBAInto    func(unsafe.Pointer, uint64, unsafe.Pointer, uint64, int32) *uint8
	_webpDecodeBGRInto     func(unsafe.Pointer, uint64, unsafe.Pointer, uint64, int32) *uint8
	_webpDecodeBGRAInto    func(unsafe.Pointer, uint64, unsafe.Pointer, uint64, int32) *uint8
}

func newDynamicCodec(path string) (_ codec, err error) {
	lib, err := loadLibrary(path)
	if err != nil {
		return nil, err
	}

	c := &dynamicCodec{lib: lib, blocks: make(map[uint64]unsafe.Pointer)}

	// RegisterLibFunc panics on a missing symbol, libwebp before 1.1 lacks WebPMalloc.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cannot register libwebp functions: %v", r)
		}
	}()

	purego.RegisterLibFunc(&c._webpMalloc, lib, "WebPMalloc")
	purego.RegisterLibFunc(&c._webpFree, lib, "WebPFree")
	purego.RegisterLibFunc(&c._webpGetDecoderVersion, lib, "WebPGetDecoderVersion")
	purego.RegisterLibFunc(&c._webpGetEncoderVersion, lib, "WebPGetEncoderVersion")
	purego.RegisterLibFunc(&c._webpGetInfo, lib, "WebPGetInfo")
	purego.RegisterLibFunc(&c._webpDecodeRGBInto, lib, "WebPDecodeRGBInto")
	purego.RegisterLibFunc(&c._webpDecodeRGBAInto, lib, "WebPDecodeRGBAInto")
	purego.RegisterLibFunc(&c._webpDecodeBGRInto, lib, "WebPDecodeBGRInto")
	purego.RegisterLibFunc(&c._webpDecodeBGRAInto, lib, "WebPDecodeBGRAInto")

	return c, nil
}

func (c *dynamicCodec) block(ptr uint64) (unsafe.Pointer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.blocks[ptr]
	if !ok {
		return nil, fmt.Errorf("unknown block %#x", ptr)
	}

	return p, nil
}

func (c *dynamicCodec) malloc(size int) (uint64, error) {
	p := c._webpMalloc(uint64(size))
	if p == nil {
		return 0, nil
	}

	ptr := uint64(uintptr(p))

	c.mu.Lock()
	c.blocks[ptr] = p
	c.mu.Unlock()

	return ptr, nil
}

func (c *dynamicCodec) free(ptr uint64) {
	c.mu.Lock()
	p, ok := c.blocks[ptr]
	delete(c.blocks, ptr)
	c.mu.Unlock()

	if ok {
		c._webpFree(p)
	}
}

func (c *dynamicCodec) write(ptr uint64, data []byte) bool {
	p, err := c.block(ptr)
	if err != nil {
		return false
	}

	copy(unsafe.Slice((*byte)(p), len(data)), data)

	return true
}

func (c *dynamicCodec) read(ptr uint64, size int) ([]byte, bool) {
	p, err := c.block(ptr)
	if err != nil {
		return nil, false
	}

	out := make([]byte, size)
	copy(out, unsafe.Slice((*byte)(p), size))

	return out, true
}

func (c *dynamicCodec) decoderVersion() (int, error) {
	return int(c._webpGetDecoderVersion()), nil
}

func (c *dynamicCodec) encoderVersion() (int, error) {
	return int(c._webpGetEncoderVersion()), nil
}

func (c *dynamicCodec) getInfo(data uint64, size int, dims uint64) (int, int, bool, error) {
	in, err := c.block(data)
	if err != nil {
		return 0, 0, false, err
	}

	d, err := c.block(dims)
	if err != nil {
		return 0, 0, false, err
	}

	width := (*int32)(d)
	height := (*int32)(unsafe.Add(d, 4))

	ret := c._webpGetInfo(in, uint64(size), width, height)
	if ret == 0 {
		return 0, 0, false, nil
	}

	return int(*width), int(*height), true, nil
}

func (c *dynamicCodec) decodeInto(format PixelFormat, data uint64, size int, out uint64, outSize, stride int) (bool, error) {
	var fn func(unsafe.Pointer, uint64, unsafe.Pointer, uint64, int32) *uint8

	switch format {
	case RGB24:
		fn = c._webpDecodeRGBInto
	case RGBA32:
		fn = c._webpDecodeRGBAInto
	case BGR24:
		fn = c._webpDecodeBGRInto
	case BGRA32:
		fn = c._webpDecodeBGRAInto
	default:
		return false, fmt.Errorf("%w: %v", ErrPixelFormat, format)
	}

	in, err := c.block(data)
	if err != nil {
		return false, err
	}

	o, err := c.block(out)
	if err != nil {
		return false, err
	}

	ret := fn(in, uint64(size), o, uint64(outSize), int32(stride))

	return ret != nil, nil
}
