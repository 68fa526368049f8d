//go:build darwin && !nodynamic

package libwebp

import (
	"github.com/ebitengine/purego"
)

const (
	libname = "libwebp.dylib"
)

func loadLibrary(path string) (handle uintptr, err error) {
	paths := []string{
		libname,
		"/opt/homebrew/lib/libwebp.dylib",
		"/usr/local/lib/libwebp.dylib",
	}
	if path != "" {
		paths = []string{path}
	}

	for _, p := range paths {
		handle, err = purego.Dlopen(p, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err == nil {
			return handle, nil
		}
	}
	return 0, err
}
