package hotkey

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// listener: платформенный источник нажатий. run блокирует до отмены ctx.
type listener interface {
	run(ctx context.Context, bindings []Binding, out chan<- Event) error
}

type coordinator struct {
	cfg    Config
	logger *zap.SugaredLogger

	// входящие от платформенного слушателя
	in chan Event
	// исходящие для потребителей
	out chan Event

	last        map[Action]time.Time
	newListener func(*zap.SugaredLogger) (listener, error)
}

func (c *coordinator) Events() <-chan Event { return c.out }

func (c *coordinator) Run(ctx context.Context) error {
	defer close(c.out)
	if len(c.cfg.Bindings) == 0 {
		c.logger.Infow("No hotkeys configured")
		<-ctx.Done()
		return context.Cause(ctx)
	}

	l, err := c.newListener(c.logger)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	errCh := make(chan error, 1)
	go func() { errCh <- l.run(ctx, c.cfg.Bindings, c.in) }()

	for _, b := range c.cfg.Bindings {
		c.logger.Infow("Hotkey bound", "action", b.Action, "keys", b.Spec)
	}

	for {
		select {
		case <-ctx.Done():
			return context.Cause(ctx)
		case err := <-errCh:
			if err != nil {
				return err
			}
			return context.Cause(ctx)
		case ev := <-c.in:
			if c.bounced(ev) {
				continue
			}
			c.safeSend(ev)
		}
	}
}

// bounced отбрасывает повтор того же действия внутри окна Debounce.
func (c *coordinator) bounced(ev Event) bool {
	prev, ok := c.last[ev.Action]
	c.last[ev.Action] = ev.At
	return ok && c.cfg.Debounce > 0 && ev.At.Sub(prev) < c.cfg.Debounce
}

func (c *coordinator) safeSend(ev Event) {
	select {
	case c.out <- ev:
	default:
		// потребитель не успевает: дроп, чтобы не блокировать цикл сообщений
		c.logger.Warnw("Hotkey event dropped", "action", ev.Action)
	}
}
