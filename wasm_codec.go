package libwebp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// wasmCodec runs libwebp compiled for WASI. The module must export malloc, free and
// the libwebp decode API. One instance is not re-entrant, calls are serialised.
type wasmCodec struct {
	mu  sync.Mutex
	ctx context.Context
	rt  wazero.Runtime
	mod api.Module

	_malloc                api.Function
	_free                  api.Function
	_webpGetDecoderVersion api.Function
	_webpGetEncoderVersion api.Function
	_webpGetInfo           api.Function
	_webpDecodeInto        [4]api.Function
}

var wasmDecodeExports = [...]string{
	RGB24:  "WebPDecodeRGBInto",
	RGBA32: "WebPDecodeRGBAInto",
	BGR24:  "WebPDecodeBGRInto",
	BGRA32: "WebPDecodeBGRAInto",
}

func newWasmCodec(path string) (*wasmCodec, error) {
	if path == "" {
		return nil, fmt.Errorf("wasm: no module path, set %s", EnvWASM)
	}

	data, err := readModule(path)
	if err != nil {
		return nil, fmt.Errorf("wasm: %w", err)
	}

	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)

	c, err := instantiate(ctx, rt, data)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("wasm: %s: %w", path, err)
	}

	return c, nil
}

// readModule reads a module file, decompressing .gz and .zst files.
func readModule(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f

	switch filepath.Ext(path) {
	case ".gz":
		gr, err := gzip.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer gr.Close()
		r = gr
	case ".zst":
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		r = zr
	}

	var data bytes.Buffer
	_, err = data.ReadFrom(r)
	if err != nil {
		return nil, err
	}

	return data.Bytes(), nil
}

func instantiate(ctx context.Context, rt wazero.Runtime, data []byte) (*wasmCodec, error) {
	compiled, err := rt.CompileModule(ctx, data)
	if err != nil {
		return nil, err
	}

	_, err = wasi_snapshot_preview1.Instantiate(ctx, rt)
	if err != nil {
		return nil, err
	}

	cfg := wazero.NewModuleConfig().
		WithStderr(os.Stderr).
		WithStdout(os.Stdout).
		WithStartFunctions("_initialize")

	mod, err := rt.InstantiateModule(ctx, compiled, cfg)
	if err != nil {
		return nil, err
	}

	c := &wasmCodec{ctx: ctx, rt: rt, mod: mod}

	exports := map[string]*api.Function{
		"malloc":                &c._malloc,
		"free":                  &c._free,
		"WebPGetDecoderVersion": &c._webpGetDecoderVersion,
		"WebPGetEncoderVersion": &c._webpGetEncoderVersion,
		"WebPGetInfo":           &c._webpGetInfo,
	}
	for i, name := range wasmDecodeExports {
		exports[name] = &c._webpDecodeInto[i]
	}

	for name, fn := range exports {
		*fn = mod.ExportedFunction(name)
		if *fn == nil {
			return nil, fmt.Errorf("missing export %s", name)
		}
	}

	return c, nil
}

func (c *wasmCodec) Close() error {
	return c.rt.Close(c.ctx)
}

func (c *wasmCodec) malloc(size int) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	res, err := c._malloc.Call(c.ctx, uint64(size))
	if err != nil {
		return 0, fmt.Errorf("malloc: %w", err)
	}

	return uint64(uint32(res[0])), nil
}

func (c *wasmCodec) free(ptr uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, _ = c._free.Call(c.ctx, ptr)
}

func (c *wasmCodec) write(ptr uint64, data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.mod.Memory().Write(uint32(ptr), data)
}

func (c *wasmCodec) read(ptr uint64, size int) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	view, ok := c.mod.Memory().Read(uint32(ptr), uint32(size))
	if !ok {
		return nil, false
	}

	// view aliases linear memory, which is reused after free.
	return bytes.Clone(view), true
}

func (c *wasmCodec) version(fn api.Function, name string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	res, err := fn.Call(c.ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}

	return int(int32(uint32(res[0]))), nil
}

func (c *wasmCodec) decoderVersion() (int, error) {
	return c.version(c._webpGetDecoderVersion, "WebPGetDecoderVersion")
}

func (c *wasmCodec) encoderVersion() (int, error) {
	return c.version(c._webpGetEncoderVersion, "WebPGetEncoderVersion")
}

func (c *wasmCodec) getInfo(data uint64, size int, dims uint64) (int, int, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	widthPtr := dims
	heightPtr := dims + 4

	res, err := c._webpGetInfo.Call(c.ctx, data, uint64(size), widthPtr, heightPtr)
	if err != nil {
		return 0, 0, false, fmt.Errorf("WebPGetInfo: %w", err)
	}

	if uint32(res[0]) == 0 {
		return 0, 0, false, nil
	}

	width, ok := c.mod.Memory().ReadUint32Le(uint32(widthPtr))
	if !ok {
		return 0, 0, false, ErrMemRead
	}

	height, ok := c.mod.Memory().ReadUint32Le(uint32(heightPtr))
	if !ok {
		return 0, 0, false, ErrMemRead
	}

	return int(int32(width)), int(int32(height)), true, nil
}

func (c *wasmCodec) decodeInto(format PixelFormat, data uint64, size int, out uint64, outSize, stride int) (bool, error) {
	if !format.valid() {
		return false, fmt.Errorf("%w: %v", ErrPixelFormat, format)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	res, err := c._webpDecodeInto[format].Call(c.ctx, data, uint64(size), out, uint64(outSize), uint64(uint32(int32(stride))))
	if err != nil {
		return false, fmt.Errorf("%s: %w", wasmDecodeExports[format], err)
	}

	return uint32(res[0]) != 0, nil
}
