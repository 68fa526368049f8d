package libwebp

import (
	"fmt"
)

// codec is the libwebp entry point surface together with the allocator that owns its memory.
// Pointers are addresses in codec memory: process addresses for the shared library,
// linear memory offsets for the WASM module. A non-nil error means the call itself
// failed, ok reports the libwebp result.
type codec interface {
	malloc(size int) (uint64, error)
	free(ptr uint64)
	write(ptr uint64, data []byte) bool
	read(ptr uint64, size int) ([]byte, bool)

	decoderVersion() (int, error)
	encoderVersion() (int, error)
	// getInfo has libwebp store width and height as two int32 in dims, a block of dimsSize bytes.
	getInfo(data uint64, size int, dims uint64) (width, height int, ok bool, err error)
	decodeInto(format PixelFormat, data uint64, size int, out uint64, outSize, stride int) (bool, error)
}

const dimsSize = 8

// foreignBlock is a block of codec memory. Its size is always the size it was allocated with.
type foreignBlock struct {
	ptr  uint64
	size int
}

// marshaller copies bytes in and out of codec memory.
type marshaller struct {
	c codec
}

func (m marshaller) alloc(size int) (*foreignBlock, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: invalid size %d", ErrAllocation, size)
	}

	ptr, err := m.c.malloc(size)
	if err != nil {
		return nil, fmt.Errorf("%w: %d bytes: %w", ErrAllocation, size, err)
	}
	if ptr == 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrAllocation, size)
	}

	return &foreignBlock{ptr: ptr, size: size}, nil
}

func (m marshaller) toForeign(data []byte) (*foreignBlock, error) {
	b, err := m.alloc(len(data))
	if err != nil {
		return nil, err
	}

	if !m.c.write(b.ptr, data) {
		m.release(b)
		return nil, ErrMemWrite
	}

	return b, nil
}

func (m marshaller) fromForeign(b *foreignBlock) ([]byte, error) {
	if b == nil || b.ptr == 0 {
		return nil, ErrMemRead
	}

	out, ok := m.c.read(b.ptr, b.size)
	if !ok || len(out) != b.size {
		return nil, ErrMemRead
	}

	return out, nil
}

// release frees b. Nil and already released blocks are ignored.
func (m marshaller) release(b *foreignBlock) {
	if b == nil || b.ptr == 0 {
		return
	}

	m.c.free(b.ptr)
	b.ptr = 0
}

// scope tracks the blocks acquired by one operation; close releases them in reverse order.
type scope struct {
	m      marshaller
	blocks []*foreignBlock
}

func newScope(c codec) *scope {
	return &scope{m: marshaller{c: c}}
}

func (s *scope) alloc(size int) (*foreignBlock, error) {
	b, err := s.m.alloc(size)
	if err != nil {
		return nil, err
	}
	s.blocks = append(s.blocks, b)

	return b, nil
}

func (s *scope) toForeign(data []byte) (*foreignBlock, error) {
	b, err := s.m.toForeign(data)
	if err != nil {
		return nil, err
	}
	s.blocks = append(s.blocks, b)

	return b, nil
}

func (s *scope) fromForeign(b *foreignBlock) ([]byte, error) {
	return s.m.fromForeign(b)
}

func (s *scope) close() {
	for i := len(s.blocks) - 1; i >= 0; i-- {
		s.m.release(s.blocks[i])
	}
	s.blocks = nil
}
