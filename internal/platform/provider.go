package platform

import (
	"fmt"
	"runtime"
)

// ErrUnsupported is returned on unsupported platforms.
var ErrUnsupported = fmt.Errorf("replay-cli is not supported on %s/%s; supported: darwin/amd64, darwin/arm64", runtime.GOOS, runtime.GOARCH)
