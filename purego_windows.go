//go:build windows && !nodynamic

package libwebp

import (
	"fmt"

	"golang.org/x/sys/windows"
)

const (
	libname = "libwebp.dll"
)

func loadLibrary(path string) (uintptr, error) {
	if path == "" {
		path = libname
	}

	handle, err := windows.LoadLibrary(path)
	if err != nil {
		return 0, fmt.Errorf("cannot load library %s: %w", path, err)
	}

	return uintptr(handle), nil
}
