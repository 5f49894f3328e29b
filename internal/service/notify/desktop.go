package notify

import (
	"github.com/gen2brain/beeep"
	"go.uber.org/zap"
)

// DesktopNotifier показывает системные всплывающие уведомления.
type DesktopNotifier struct {
	title  string
	icon   string
	notify func(title, message, icon string) error
	logger *zap.SugaredLogger
}

func NewDesktopNotifier(title, icon string, logger *zap.SugaredLogger) *DesktopNotifier {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if title == "" {
		title = "Typist"
	}
	return &DesktopNotifier{
		title:  title,
		icon:   icon,
		notify: func(t, m, i string) error { return beeep.Notify(t, m, i) },
		logger: logger,
	}
}

// Notify показывает уведомление; ошибка только логируется.
func (d *DesktopNotifier) Notify(message string) {
	if err := d.notify(d.title, message, d.icon); err != nil {
		d.logger.Warnw("Desktop notification failed", "error", err)
	}
}
