package typing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultDispatchTimeout: потолок одного вызова инжектора.
const DefaultDispatchTimeout = 5 * time.Second

// ErrDispatchTimeout: инжектор не ответил вовремя.
var ErrDispatchTimeout = errors.New("typing: injection timeout")

// KeyInjector: платформенный примитив ввода в приложение с фокусом.
// Экранирование символов, значимых для конкретного механизма, остаётся заботой реализации.
type KeyInjector interface {
	TypeText(ctx context.Context, text string) error
	PressKey(ctx context.Context, key Control) error
}

// Adapter доставляет инструкции инжектору по принципу best effort:
// ошибки и паники логируются и не доходят до раннера, повторов нет.
type Adapter struct {
	injector KeyInjector
	timeout  time.Duration
	logger   *zap.SugaredLogger
}

func NewAdapter(injector KeyInjector, timeout time.Duration, logger *zap.SugaredLogger) *Adapter {
	if timeout <= 0 {
		timeout = DefaultDispatchTimeout
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Adapter{injector: injector, timeout: timeout, logger: logger}
}

// Dispatch отправляет одну инструкцию и сообщает, удалась ли доставка.
// Зависший инжектор не держит очередь дольше timeout: ожидание прекращается,
// сам вызов дорабатывает в фоне.
func (a *Adapter) Dispatch(ctx context.Context, ins Instruction) bool {
	dctx, cancel := context.WithTimeoutCause(ctx, a.timeout, ErrDispatchTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("injector panic: %v", r)
			}
		}()
		if ins.IsControl() {
			done <- a.injector.PressKey(dctx, ins.Control)
			return
		}
		done <- a.injector.TypeText(dctx, ins.Text)
	}()

	var err error
	select {
	case err = <-done:
	case <-dctx.Done():
		err = context.Cause(dctx)
	}
	if err != nil {
		a.logger.Warnw("Injection failed", "payload", preview(ins.Payload(), 40), "control", ins.IsControl(), "error", err)
		return false
	}
	return true
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
