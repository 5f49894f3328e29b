package notify

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// ErrBusy: предыдущий звук ещё играет, новый пропущен.
var ErrBusy = errors.New("notify: sound already playing")

// SoundNotifier проигрывает короткие звуки по событиям набора.
type SoundNotifier struct {
	logger   *zap.SugaredLogger
	pathDone string
	pathIdle string
	ply      Player
	// одновременно звучит не больше одного уведомления
	playing sync.Mutex
}

// NewSoundNotifier создаёт нотификатор. Пустые пути заменяются дефолтами:
// sound/done.mp3 и sound/idle.mp3 (сначала ищем рядом с бинарём).
func NewSoundNotifier(logger *zap.SugaredLogger, ply Player, pathDone, pathIdle string) *SoundNotifier {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if strings.TrimSpace(pathDone) == "" {
		pathDone = resolve(filepath.Join("sound", "done.mp3"))
	}
	if strings.TrimSpace(pathIdle) == "" {
		pathIdle = resolve(filepath.Join("sound", "idle.mp3"))
	}
	return &SoundNotifier{logger: logger, pathDone: pathDone, pathIdle: pathIdle, ply: ply}
}

func resolve(def string) string {
	// Путь по умолчанию: рядом с бинарём
	if exe, err := os.Executable(); err == nil {
		cand := filepath.Join(filepath.Dir(exe), def)
		if _, statErr := os.Stat(cand); statErr == nil {
			return cand
		}
	}
	// fallback: от текущей рабочей директории
	return filepath.FromSlash(def)
}

func (n *SoundNotifier) play(ctx context.Context, path string) error {
	if err := context.Cause(ctx); err != nil {
		return err
	}
	if !n.playing.TryLock() {
		return ErrBusy
	}
	defer n.playing.Unlock()

	f, err := os.Open(path)
	if err != nil {
		n.logger.Warnw("Не удалось открыть звуковой файл уведомления", "path", path, "error", err)
		return err
	}
	defer f.Close()

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == "" {
		ext = "mp3"
	}
	if err := n.ply.Play(ext, f); err != nil {
		n.logger.Warnw("Не удалось воспроизвести звуковое уведомление", "path", path, "error", err)
		return err
	}
	return nil
}

// PlayDone: звук завершённого задания.
func (n *SoundNotifier) PlayDone(ctx context.Context) error { return n.play(ctx, n.pathDone) }

// PlayIdle: звук опустевшей очереди.
func (n *SoundNotifier) PlayIdle(ctx context.Context) error { return n.play(ctx, n.pathIdle) }
