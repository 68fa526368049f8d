package libwebp

import (
	"errors"
	"sync"
)

// mockCodec is an instrumented codec. Memory is a map of blocks keyed by address,
// every malloc and free is counted and bad frees are recorded.
type mockCodec struct {
	mu sync.Mutex

	next   uint64
	blocks map[uint64][]byte

	mallocCalls int
	mallocs     int
	frees       int
	badFrees    int
	failMalloc  int // fail the n-th malloc, 1-based, 0 never
	mallocErr   error
	failWrite   bool
	failRead    bool
	shortRead   bool
	infoCalls   int
	decodeCalls int

	infoOK    bool
	infoErr   error
	width     int
	height    int
	decodeOK  bool
	decodeErr error

	decFormat PixelFormat
	decSize   int
	decOut    int
	decStride int

	decVersion int
	encVersion int
	versionErr error
}

func newMockCodec(width, height int) *mockCodec {
	return &mockCodec{
		next:       0x1000,
		blocks:     make(map[uint64][]byte),
		infoOK:     true,
		width:      width,
		height:     height,
		decodeOK:   true,
		decVersion: 1<<16 | 4<<8 | 0,
		encVersion: 1<<16 | 3<<8 | 2,
	}
}

var (
	errMockExhausted = errors.New("mock: out of memory")
	errMockTrap      = errors.New("mock: unreachable executed")
)

func (m *mockCodec) malloc(size int) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.mallocCalls++
	if m.failMalloc == m.mallocCalls {
		if m.mallocErr != nil {
			return 0, m.mallocErr
		}
		return 0, nil
	}
	m.mallocs++

	ptr := m.next
	m.next += uint64(size) + 0x100
	m.blocks[ptr] = make([]byte, size)

	return ptr, nil
}

func (m *mockCodec) free(ptr uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.blocks[ptr]; !ok {
		m.badFrees++
		return
	}
	delete(m.blocks, ptr)
	m.frees++
}

func (m *mockCodec) write(ptr uint64, data []byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.blocks[ptr]
	if m.failWrite || !ok || len(data) > len(b) {
		return false
	}
	copy(b, data)

	return true
}

func (m *mockCodec) read(ptr uint64, size int) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.blocks[ptr]
	if m.failRead || !ok || size > len(b) {
		return nil, false
	}
	if m.shortRead {
		size--
	}

	out := make([]byte, size)
	copy(out, b)

	return out, true
}

func (m *mockCodec) decoderVersion() (int, error) {
	if m.versionErr != nil {
		return 0, m.versionErr
	}

	return m.decVersion, nil
}

func (m *mockCodec) encoderVersion() (int, error) {
	if m.versionErr != nil {
		return 0, m.versionErr
	}

	return m.encVersion, nil
}

func (m *mockCodec) getInfo(data uint64, size int, dims uint64) (int, int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.infoCalls++
	if m.infoErr != nil {
		return 0, 0, false, m.infoErr
	}

	if b, ok := m.blocks[data]; !ok || len(b) != size {
		return 0, 0, false, nil
	}

	d, ok := m.blocks[dims]
	if !ok || len(d) != dimsSize {
		return 0, 0, false, errors.New("mock: bad dims block")
	}

	return m.width, m.height, m.infoOK, nil
}

// decodeInto fills the output with the byte index of each sample modulo 251.
func (m *mockCodec) decodeInto(format PixelFormat, data uint64, size int, out uint64, outSize, stride int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.decodeCalls++
	m.decFormat, m.decSize, m.decOut, m.decStride = format, size, outSize, stride

	if m.decodeErr != nil {
		return false, m.decodeErr
	}

	in, ok := m.blocks[data]
	if !ok || len(in) != size {
		return false, nil
	}

	b, ok := m.blocks[out]
	if !ok || len(b) != outSize || stride*m.height != outSize {
		return false, nil
	}

	if !m.decodeOK {
		b[0] = 0xff
		return false, nil
	}

	for i := range b {
		b[i] = byte(i % 251)
	}

	return true, nil
}

func (m *mockCodec) live() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.blocks)
}
