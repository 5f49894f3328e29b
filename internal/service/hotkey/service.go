// Package hotkey: глобальные горячие клавиши, управляющие набором.
package hotkey

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Action: команда, привязанная к сочетанию клавиш.
type Action string

const (
	ActionTypeClipboard Action = "type-clipboard"
	ActionTogglePause   Action = "toggle-pause"
	ActionStop          Action = "stop"
	ActionAssist        Action = "assist"
)

// ErrUnsupportedPlatform: глобальные хоткеи есть только под Windows.
var ErrUnsupportedPlatform = errors.New("hotkey: global hotkeys unavailable on this platform")

// Event: сработавшее сочетание.
type Event struct {
	Action Action
	At     time.Time
}

// Service слушает хоткеи до отмены контекста и публикует события в Events.
type Service interface {
	Run(ctx context.Context) error
	Events() <-chan Event
}

type Config struct {
	Bindings []Binding
	// Повтор того же действия внутри окна отбрасывается (дребезг, автоповтор).
	Debounce time.Duration
}

func New(cfg Config, logger *zap.SugaredLogger) Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &coordinator{
		cfg:         cfg,
		logger:      logger,
		in:          make(chan Event, 16),
		out:         make(chan Event, 16),
		last:        make(map[Action]time.Time),
		newListener: newPlatformListener,
	}
}
