package typing

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State: состояние раннера.
type State int

const (
	Idle State = iota
	Running
	Paused
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// clipboardSettle: время, за которое фокус возвращается в предыдущее приложение.
const clipboardSettle = 250 * time.Millisecond

var (
	// ErrStopped: причина отмены задания вызовом Stop.
	ErrStopped = errors.New("typing: stopped")
	// ErrNoClipboard: движок создан без источника буфера обмена.
	ErrNoClipboard = errors.New("typing: clipboard reader not configured")
)

// ClipboardReader читает текущий текст буфера обмена (пусто, если текста нет).
type ClipboardReader interface {
	ReadText() (string, error)
}

// WindowHider прячет окна самого приложения перед набором.
type WindowHider interface {
	HideAll() error
}

// SleepFunc ждёт d или отмены ctx.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Options: зависимости и параметры движка. Пустые поля получают значения по умолчанию.
type Options struct {
	Settings        *Settings
	Rand            Rand
	Clipboard       ClipboardReader
	Windows         WindowHider
	DispatchTimeout time.Duration
	Sleep           SleepFunc
	Logger          *zap.SugaredLogger
}

// Engine: очередь заданий и единственный раннер, набирающий их по очереди.
type Engine struct {
	adapter   *Adapter
	settings  *Settings
	rnd       Rand
	clipboard ClipboardReader
	windows   WindowHider
	sleep     SleepFunc
	logger    *zap.SugaredLogger
	events    bus

	mu        sync.Mutex
	queue     jobQueue
	state     State
	current   *Job
	cancelJob context.CancelCauseFunc
	wake      chan struct{}
	// outbox: события в порядке смены состояния; рассылает их одна горутина за раз
	outbox   []Event
	flushing bool
}

func New(injector KeyInjector, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	settings := opts.Settings
	if settings == nil {
		settings = NewSettings(DefaultEngineConfig())
	}
	rnd := opts.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	return &Engine{
		adapter:   NewAdapter(injector, opts.DispatchTimeout, logger),
		settings:  settings,
		rnd:       rnd,
		clipboard: opts.Clipboard,
		windows:   opts.Windows,
		sleep:     sleep,
		logger:    logger,
		events:    bus{logger: logger},
		state:     Idle,
		wake:      make(chan struct{}, 1),
	}
}

// Subscribe регистрирует слушателя событий; возвращает функцию отписки.
func (e *Engine) Subscribe(fn Listener) func() { return e.events.subscribe(fn) }

func (e *Engine) Settings() *Settings { return e.settings }

// SetWordsPerMinute задаёт скорость, не ниже 5 WPM.
func (e *Engine) SetWordsPerMinute(n int) int { return e.settings.SetWordsPerMinute(n) }

func (e *Engine) SetBatchMode(enabled bool) { e.settings.SetBatchMode(enabled) }

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Pending: число заданий, ещё не переданных раннеру.
func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.len()
}

// Current: задание, которое набирается прямо сейчас, или nil.
func (e *Engine) Current() *Job {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// EnqueueText ставит текст в очередь. Пустой текст не ошибка: возвращается nil
// без побочных эффектов. Безопасно вызывать из любых горутин.
func (e *Engine) EnqueueText(text string, delay time.Duration, metadata map[string]string) *Job {
	if text == "" {
		return nil
	}
	job := newJob(text, delay, metadata)

	e.mu.Lock()
	e.queue.push(job)
	e.post(Event{Type: EventQueued, Job: job})
	start := e.state == Idle || e.state == Stopped
	if start {
		e.state = Running
		e.post(Event{Type: EventStarted})
	}
	e.mu.Unlock()

	e.flush()
	if start {
		e.signal()
	}
	return job
}

// Clear очищает очередь; текущее задание не трогает.
func (e *Engine) Clear() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.clear()
}

// Pause выставляет флаг паузы. Раннер проверяет его перед каждой инструкцией:
// текущее задание обрывается и всё равно считается выполненным (job-done).
// Уже отправленный в инжектор вызов не прерывается.
func (e *Engine) Pause() bool {
	e.mu.Lock()
	if e.state == Paused {
		e.mu.Unlock()
		return false
	}
	e.state = Paused
	e.post(Event{Type: EventPaused})
	e.mu.Unlock()

	e.flush()
	return true
}

// Resume снимает паузу и продолжает со следующего задания в очереди;
// оборванный остаток прерванного задания не восстанавливается.
func (e *Engine) Resume() bool {
	e.mu.Lock()
	if e.state != Paused {
		e.mu.Unlock()
		return false
	}
	start := false
	switch {
	case e.current != nil:
		// раннер ещё не дошёл до границы инструкции и продолжит то же задание
		e.state = Running
	case e.queue.len() > 0:
		e.state = Running
		start = true
	default:
		e.state = Idle
	}
	e.post(Event{Type: EventResumed})
	if start {
		e.post(Event{Type: EventStarted})
	}
	e.mu.Unlock()

	e.flush()
	if start {
		e.signal()
	}
	return true
}

// Stop очищает очередь, сбрасывает текущее задание и паузу. Текущее задание
// бросается на ближайшей границе инструкции, пауза набора прерывается сразу.
func (e *Engine) Stop() {
	e.mu.Lock()
	dropped := e.queue.clear()
	e.current = nil
	e.state = Stopped
	cancel := e.cancelJob
	e.cancelJob = nil
	e.post(Event{Type: EventStopped})
	e.mu.Unlock()

	if cancel != nil {
		cancel(ErrStopped)
	}
	e.logger.Debugw("Typing queue cleared", "dropped", dropped)
	e.flush()
}

// TypeClipboard прячет окна приложения, ждёт возврата фокуса и ставит
// содержимое буфера обмена в очередь. false означает, что буфер пуст.
func (e *Engine) TypeClipboard(ctx context.Context, delay time.Duration) (bool, error) {
	if e.windows != nil {
		if err := e.windows.HideAll(); err != nil {
			e.logger.Warnw("Failed to hide application windows", "error", err)
		}
	}
	if err := e.sleep(ctx, clipboardSettle); err != nil {
		return false, err
	}
	if e.clipboard == nil {
		return false, ErrNoClipboard
	}
	text, err := e.clipboard.ReadText()
	if err != nil {
		return false, fmt.Errorf("read clipboard: %w", err)
	}
	job := e.EnqueueText(text, delay, map[string]string{MetaSource: SourceClipboard})
	return job != nil, nil
}

// Run: цикл единственного потребителя очереди. Блокирует до отмены ctx.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Infow("Typing engine started", "config", e.settings.Snapshot())
	for {
		select {
		case <-ctx.Done():
			e.logger.Infow("Typing engine stopped", "reason", context.Cause(ctx))
			return context.Cause(ctx)
		case <-e.wake:
		}
		e.drain(ctx)
	}
}

func (e *Engine) signal() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// post ставит событие в outbox. Вызывается под e.mu в той же критической
// секции, что и смена состояния, поэтому порядок событий совпадает с порядком переходов.
func (e *Engine) post(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	e.outbox = append(e.outbox, ev)
}

// publish: событие без смены состояния (progress, job-done, job-error).
func (e *Engine) publish(ev Event) {
	e.mu.Lock()
	e.post(ev)
	e.mu.Unlock()
	e.flush()
}

// flush рассылает outbox подписчикам вне e.mu. Если рассылку уже ведёт другая
// горутина или слушатель вызвал движок изнутри emit, события дошлёт она.
func (e *Engine) flush() {
	e.mu.Lock()
	if e.flushing {
		e.mu.Unlock()
		return
	}
	e.flushing = true
	for len(e.outbox) > 0 {
		batch := e.outbox
		e.outbox = nil
		e.mu.Unlock()
		for _, ev := range batch {
			e.events.emit(ev)
		}
		e.mu.Lock()
	}
	e.flushing = false
	e.mu.Unlock()
}

func (e *Engine) drain(ctx context.Context) {
	for ctx.Err() == nil {
		job, jobCtx, cancel, ok := e.next(ctx)
		if !ok {
			return
		}
		e.process(ctx, jobCtx, job)
		cancel(nil)

		e.mu.Lock()
		if e.current == job {
			e.current = nil
			e.cancelJob = nil
		}
		e.mu.Unlock()
	}
}

// next выдаёт следующее задание, если раннер в Running.
// Пустая очередь переводит движок в Idle.
func (e *Engine) next(ctx context.Context) (*Job, context.Context, context.CancelCauseFunc, bool) {
	e.mu.Lock()
	if e.state != Running {
		e.mu.Unlock()
		return nil, nil, nil, false
	}
	job, ok := e.queue.pop()
	if !ok {
		e.state = Idle
		e.post(Event{Type: EventIdle})
		e.mu.Unlock()
		e.flush()
		return nil, nil, nil, false
	}
	jobCtx, cancel := context.WithCancelCause(ctx)
	e.current = job
	e.cancelJob = cancel
	e.mu.Unlock()
	return job, jobCtx, cancel, true
}

func (e *Engine) paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state == Paused
}

// process набирает одно задание. Паника внутри превращается в job-error,
// очередь продолжает работу.
func (e *Engine) process(ctx, jobCtx context.Context, job *Job) {
	defer func() {
		if r := recover(); r != nil {
			e.fail(job, fmt.Errorf("typing job %s: panic: %v", job.ID, r))
		}
	}()

	cfg := e.settings.Snapshot().forJob(job)
	for ins := range Pace(job.Text, cfg, e.rnd) {
		if e.interrupted(ctx, jobCtx, job) {
			return
		}
		if e.paused() {
			e.logger.Infow("Typing job truncated by pause", "job", job.ID)
			break
		}
		e.adapter.Dispatch(ctx, ins)
		e.publish(Event{Type: EventProgress, Job: job, Payload: ins.Payload(), Control: ins.Control})
		// прерванный сон разбирается на следующей итерации или после цикла
		_ = e.sleep(jobCtx, ins.Delay)
	}
	if e.interrupted(ctx, jobCtx, job) {
		return
	}
	e.publish(Event{Type: EventJobDone, Job: job})
}

// interrupted сообщает, что задание надо бросить: Stop или завершение Run.
func (e *Engine) interrupted(ctx, jobCtx context.Context, job *Job) bool {
	if jobCtx.Err() == nil {
		return false
	}
	if ctx.Err() != nil {
		e.fail(job, fmt.Errorf("typing job %s: %w", job.ID, context.Cause(ctx)))
		return true
	}
	e.logger.Infow("Typing job abandoned", "job", job.ID, "reason", context.Cause(jobCtx))
	return true
}

func (e *Engine) fail(job *Job, err error) {
	e.logger.Errorw("Typing job error", "job", job.ID, "error", err)
	e.publish(Event{Type: EventJobError, Job: job, Err: err})
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return context.Cause(ctx)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return context.Cause(ctx)
	case <-t.C:
		return nil
	}
}
