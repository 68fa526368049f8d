//go:build (freebsd || linux) && !nodynamic

package libwebp

import (
	"fmt"

	"github.com/ebitengine/purego"
)

var libnames = []string{
	"libwebp.so",
	"libwebp.so.7",
}

func loadLibrary(path string) (uintptr, error) {
	names := libnames
	if path != "" {
		names = []string{path}
	}

	var err error
	for _, name := range names {
		var handle uintptr
		handle, err = purego.Dlopen(name, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err == nil {
			return handle, nil
		}
	}

	return 0, fmt.Errorf("cannot load library: %w", err)
}
