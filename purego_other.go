//go:build !(darwin || freebsd || linux || windows) || nodynamic

package libwebp

import (
	"fmt"
	"runtime"
)

var dynamicErr = fmt.Errorf("dynamic library unsupported: %s", runtime.GOOS)

func newDynamicCodec(path string) (codec, error) {
	return nil, dynamicErr
}
