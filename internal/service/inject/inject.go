// Package inject: платформенные реализации typing.KeyInjector.
package inject

import (
	"Typist/internal/service/typing"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"go.uber.org/zap"
)

// Kind: механизм доставки нажатий.
type Kind string

const (
	KindAuto   Kind = "auto"
	KindNative Kind = "native" // SendInput (Windows)
	KindShell  Kind = "shell"  // powershell / xdotool / osascript
	KindPaste  Kind = "paste"  // буфер обмена + Ctrl+V
	KindLog    Kind = "log"    // ничего не нажимает, только пишет в лог
)

var (
	ErrUnsupportedPlatform = errors.New("inject: unsupported platform")
	ErrUnknownKind         = errors.New("inject: unknown injector kind")
)

// New создаёт инжектор по имени. auto: native на Windows, shell в остальных ОС.
func New(kind string, logger *zap.SugaredLogger) (typing.KeyInjector, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	k := Kind(strings.ToLower(strings.TrimSpace(kind)))
	if k == "" || k == KindAuto {
		k = KindShell
		if runtime.GOOS == "windows" {
			k = KindNative
		}
	}
	switch k {
	case KindNative:
		return newNative(logger)
	case KindShell:
		return NewShell(logger), nil
	case KindPaste:
		return NewPaste(logger)
	case KindLog:
		return NewLog(logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}
