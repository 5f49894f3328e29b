// Package window прячет окна собственного процесса, чтобы фокус вернулся
// в приложение, куда будет набираться текст.
package window

import (
	"sync"

	"go.uber.org/zap"
)

// Hider реализует typing.WindowHider. Спрятанные окна запоминаются для ShowAll.
type Hider struct {
	mu     sync.Mutex
	hidden []uintptr
	logger *zap.SugaredLogger
}

func New(logger *zap.SugaredLogger) *Hider {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Hider{logger: logger}
}

// HideAll прячет все видимые окна верхнего уровня текущего процесса.
func (h *Hider) HideAll() error {
	handles, err := visibleOwnWindows()
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, hwnd := range handles {
		hideWindow(hwnd)
		h.hidden = append(h.hidden, hwnd)
	}
	if len(handles) > 0 {
		h.logger.Debugw("Windows hidden", "count", len(handles))
	}
	return nil
}

// ShowAll возвращает на экран окна, спрятанные HideAll.
func (h *Hider) ShowAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, hwnd := range h.hidden {
		showWindow(hwnd)
	}
	h.hidden = nil
}

// Hidden: сколько окон сейчас спрятано.
func (h *Hider) Hidden() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.hidden)
}
