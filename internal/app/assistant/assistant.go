// Package assistant: снимок экрана, ответ модели и постановка ответа в очередь набора.
package assistant

import (
	"Typist/internal/service/typing"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ErrBusy: предыдущий запрос ещё не завершён.
var ErrBusy = errors.New("assistant is busy")

type Capturer interface {
	Capture(ctx context.Context) (string, error)
}

type Answerer interface {
	Answer(ctx context.Context, imageURL string) (string, error)
}

// Enqueuer: очередь набора; *typing.Engine подходит напрямую.
type Enqueuer interface {
	EnqueueText(text string, delay time.Duration, metadata map[string]string) *typing.Job
}

type Options struct {
	Timeout        time.Duration
	WordsPerMinute int // 0: общая скорость
}

type Assistant struct {
	capturer Capturer
	answerer Answerer
	queue    Enqueuer
	opts     Options
	logger   *zap.SugaredLogger

	running atomic.Bool
}

func New(capturer Capturer, answerer Answerer, queue Enqueuer, opts Options, logger *zap.SugaredLogger) *Assistant {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return &Assistant{capturer: capturer, answerer: answerer, queue: queue, opts: opts, logger: logger}
}

// Solve снимает экран, спрашивает модель и ставит ответ в очередь.
// Пока идёт предыдущий запрос, новый не запускается (ErrBusy).
// Пустой ответ не ставится в очередь: вернётся nil без ошибки.
func (a *Assistant) Solve(parent context.Context) (*typing.Job, error) {
	if !a.running.CompareAndSwap(false, true) {
		a.logger.Infow("Skipping assistant request due to overlap")
		return nil, ErrBusy
	}
	defer a.running.Store(false)

	ctx, cancel := context.WithTimeoutCause(parent, a.opts.Timeout, errors.New("assistant timeout"))
	defer cancel()

	start := time.Now()
	imageURL, err := a.capturer.Capture(ctx)
	if err != nil {
		return nil, fmt.Errorf("capture screen: %w", err)
	}

	answer, err := a.answerer.Answer(ctx, imageURL)
	if err != nil {
		if cause := context.Cause(ctx); cause != nil {
			err = fmt.Errorf("%w: %w", err, cause)
		}
		return nil, fmt.Errorf("ask model: %w", err)
	}

	text := cleanAnswer(answer)
	if text == "" {
		a.logger.Warnw("Assistant returned empty answer", "duration", time.Since(start).String())
		return nil, nil
	}

	md := map[string]string{typing.MetaSource: typing.SourceAssistant}
	if a.opts.WordsPerMinute > 0 {
		md[typing.MetaWPM] = strconv.Itoa(a.opts.WordsPerMinute)
	}
	job := a.queue.EnqueueText(text, 0, md)
	a.logger.Infow("Assistant answer queued", "jobId", job.ID, "chars", len([]rune(text)), "duration", time.Since(start).String())
	return job, nil
}

// cleanAnswer убирает пробелы по краям и обрамляющий блок ``` если модель всё же его добавила.
func cleanAnswer(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n"))
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	body := strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	// В первой строке язык блока
	if i := strings.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	} else {
		return strings.TrimSpace(body)
	}
	return strings.Trim(body, "\n")
}
