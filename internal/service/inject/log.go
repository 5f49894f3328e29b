package inject

import (
	"Typist/internal/service/typing"
	"context"

	"go.uber.org/zap"
)

// Log делает сухой прогон: ничего не нажимает, пишет каждую инструкцию в лог.
type Log struct {
	logger *zap.SugaredLogger
}

var _ typing.KeyInjector = (*Log)(nil)

func NewLog(logger *zap.SugaredLogger) *Log {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Log{logger: logger}
}

func (l *Log) TypeText(ctx context.Context, text string) error {
	if err := context.Cause(ctx); err != nil {
		return err
	}
	l.logger.Infow("Type", "text", text)
	return nil
}

func (l *Log) PressKey(ctx context.Context, key typing.Control) error {
	if err := context.Cause(ctx); err != nil {
		return err
	}
	l.logger.Infow("Press", "key", key.String())
	return nil
}
