// Package router связывает горячие клавиши с операциями набора и ассистента.
package router

import (
	"Typist/internal/app/assistant"
	"Typist/internal/service/hotkey"
	"Typist/internal/service/typing"
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Engine: операции набора, доступные с клавиатуры.
type Engine interface {
	TypeClipboard(ctx context.Context, delay time.Duration) (bool, error)
	State() typing.State
	Pause() bool
	Resume() bool
	Stop()
}

// Solver: ассистент; может отсутствовать.
type Solver interface {
	Solve(ctx context.Context) (*typing.Job, error)
}

type Router struct {
	engine Engine
	solver Solver
	logger *zap.SugaredLogger

	wg sync.WaitGroup
}

func New(engine Engine, solver Solver, logger *zap.SugaredLogger) *Router {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Router{engine: engine, solver: solver, logger: logger}
}

// Run обрабатывает события до отмены ctx или закрытия канала.
// Перед выходом дожидается запущенных запросов ассистента.
func (r *Router) Run(ctx context.Context, events <-chan hotkey.Event) error {
	defer r.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return context.Cause(ctx)
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			r.Handle(ctx, ev.Action)
		}
	}
}

// Handle выполняет одно действие. Запрос к ассистенту уходит в фон.
func (r *Router) Handle(ctx context.Context, action hotkey.Action) {
	switch action {
	case hotkey.ActionTypeClipboard:
		queued, err := r.engine.TypeClipboard(ctx, 0)
		if err != nil {
			r.logger.Warnw("Type clipboard failed", "error", err)
			return
		}
		r.logger.Debugw("Type clipboard", "queued", queued)
	case hotkey.ActionTogglePause:
		if r.engine.State() == typing.Paused {
			r.logger.Infow("Resume by hotkey", "changed", r.engine.Resume())
			return
		}
		r.logger.Infow("Pause by hotkey", "changed", r.engine.Pause())
	case hotkey.ActionStop:
		r.engine.Stop()
		r.logger.Infow("Stop by hotkey")
	case hotkey.ActionAssist:
		if r.solver == nil {
			r.logger.Infow("Assistant is disabled")
			return
		}
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			if _, err := r.solver.Solve(ctx); err != nil {
				if errors.Is(err, assistant.ErrBusy) {
					return
				}
				r.logger.Errorw("Assistant request failed", "error", err)
			}
		}()
	default:
		r.logger.Warnw("Unknown hotkey action", "action", action)
	}
}
