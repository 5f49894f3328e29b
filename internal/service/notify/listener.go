package notify

import (
	"Typist/internal/service/typing"
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Sounds: звуковые сигналы завершения.
type Sounds interface {
	PlayDone(ctx context.Context) error
	PlayIdle(ctx context.Context) error
}

// Toaster: всплывающие уведомления.
type Toaster interface {
	Notify(message string)
}

// Listener превращает события движка в звуки и уведомления. Подписчики
// вызываются синхронно из раннера, поэтому всё медленное уходит в горутины.
// Любой из sounds и toaster может быть nil.
func Listener(ctx context.Context, sounds Sounds, toaster Toaster, logger *zap.SugaredLogger) typing.Listener {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	play := func(fn func(context.Context) error) {
		go func() {
			if err := fn(ctx); err != nil && !errors.Is(err, ErrBusy) && ctx.Err() == nil {
				logger.Debugw("Notification sound skipped", "error", err)
			}
		}()
	}
	return func(ev typing.Event) {
		switch ev.Type {
		case typing.EventJobDone:
			if sounds != nil {
				play(sounds.PlayDone)
			}
		case typing.EventIdle:
			if sounds != nil {
				play(sounds.PlayIdle)
			}
		case typing.EventJobError:
			if toaster != nil {
				msg := fmt.Sprintf("Набор прерван: %v", ev.Err)
				go toaster.Notify(msg)
			}
		}
	}
}
