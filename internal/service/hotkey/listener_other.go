//go:build !windows

package hotkey

import "go.uber.org/zap"

func newPlatformListener(*zap.SugaredLogger) (listener, error) {
	return nil, ErrUnsupportedPlatform
}
