package inject

import (
	"Typist/internal/service/typing"
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/micmonay/keybd_event"
	"go.uber.org/zap"
)

const (
	pasteSettle  = 80 * time.Millisecond  // буфер обмена успевает обновиться
	pasteRestore = 120 * time.Millisecond // приложение успевает забрать вставку
	uinputWarmup = 2 * time.Second        // linux: устройство uinput появляется не сразу
)

// Paste вставляет пакеты через буфер обмена и Ctrl+V, затем возвращает
// прежнее содержимое буфера. Подходит для раскладок, где посимвольный ввод врёт.
type Paste struct {
	mu     sync.Mutex
	kb     keybd_event.KeyBonding
	logger *zap.SugaredLogger
}

var _ typing.KeyInjector = (*Paste)(nil)

func NewPaste(logger *zap.SugaredLogger) (*Paste, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if clipboard.Unsupported {
		return nil, fmt.Errorf("%w: no clipboard utility found", ErrUnsupportedPlatform)
	}
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return nil, fmt.Errorf("init key bonding: %w", err)
	}
	if runtime.GOOS == "linux" {
		time.Sleep(uinputWarmup)
	}
	return &Paste{kb: kb, logger: logger}, nil
}

func (p *Paste) TypeText(ctx context.Context, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	orig, readErr := clipboard.ReadAll()
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	if err := sleepCtx(ctx, pasteSettle); err != nil {
		return err
	}
	p.kb.Clear()
	p.kb.HasCTRL(true)
	p.kb.SetKeys(keybd_event.VK_V)
	err := p.kb.Launching()
	p.kb.HasCTRL(false)
	if err != nil {
		return fmt.Errorf("press ctrl+v: %w", err)
	}

	_ = sleepCtx(ctx, pasteRestore)
	if readErr == nil {
		if err := clipboard.WriteAll(orig); err != nil {
			p.logger.Warnw("Failed to restore clipboard", "error", err)
		}
	}
	return nil
}

func (p *Paste) PressKey(ctx context.Context, key typing.Control) error {
	if err := context.Cause(ctx); err != nil {
		return err
	}
	var vk int
	switch key {
	case typing.ControlEnter:
		vk = keybd_event.VK_ENTER
	case typing.ControlTab:
		vk = keybd_event.VK_TAB
	default:
		return fmt.Errorf("inject: unknown control key %d", int(key))
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.kb.Clear()
	p.kb.SetKeys(vk)
	if err := p.kb.Launching(); err != nil {
		return fmt.Errorf("press %s: %w", key, err)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return context.Cause(ctx)
	case <-t.C:
		return nil
	}
}
