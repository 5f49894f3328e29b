//go:build !windows

package inject

import (
	"Typist/internal/service/typing"
	"fmt"
	"runtime"

	"go.uber.org/zap"
)

func newNative(_ *zap.SugaredLogger) (typing.KeyInjector, error) {
	return nil, fmt.Errorf("%w: native injector needs windows, running on %s", ErrUnsupportedPlatform, runtime.GOOS)
}
