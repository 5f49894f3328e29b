package typing

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// EventType: тип события жизненного цикла движка.
type EventType string

const (
	EventQueued   EventType = "queued"
	EventStarted  EventType = "started"
	EventProgress EventType = "progress"
	EventJobDone  EventType = "job-done"
	EventJobError EventType = "job-error"
	EventPaused   EventType = "paused"
	EventResumed  EventType = "resumed"
	EventStopped  EventType = "stopped"
	EventIdle     EventType = "idle"
)

// Event: уведомление для подписчиков.
// Job заполнен для queued, progress, job-done и job-error;
// Payload и Control для progress; Err для job-error.
// У нажатия клавиши Control не ControlNone, а Payload хранит её имя,
// поэтому литеральный текст "ENTER" отличается от Enter только по Control.
type Event struct {
	Type    EventType
	Job     *Job
	Payload string
	Control Control
	Err     error
	At      time.Time
}

// Listener получает события синхронно, в порядке смены состояния движка.
// Событие, порождённое во время чужой рассылки, доставит та же рассылка,
// поэтому вызов из другой горутины может вернуться раньше доставки.
// Долгую работу слушатель должен уносить в свою горутину.
type Listener func(Event)

type subscription struct {
	id int
	fn Listener
}

// bus: типизированный pub/sub без обратного давления.
type bus struct {
	mu     sync.RWMutex
	nextID int
	subs   []subscription
	logger *zap.SugaredLogger
}

func (b *bus) subscribe(fn Listener) func() {
	if fn == nil {
		return func() {}
	}
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.subs {
				if s.id == id {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// emit рассылает событие копии списка подписчиков, поэтому слушатель
// может безопасно вызывать методы движка (Pause, Stop, Subscribe).
func (b *bus) emit(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	b.mu.RLock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		b.deliver(s.fn, ev)
	}
}

func (b *bus) deliver(fn Listener, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Errorw("Event listener panicked", "event", ev.Type, "panic", r)
		}
	}()
	fn(ev)
}

// LogListener пишет все события движка в лог.
func LogListener(logger *zap.SugaredLogger) Listener {
	return func(ev Event) {
		switch ev.Type {
		case EventProgress:
			logger.Debugw("Typing progress", "job", ev.Job.ID, "payload", ev.Payload, "control", ev.Control != ControlNone)
		case EventQueued, EventJobDone:
			logger.Infow("Typing "+string(ev.Type), "job", ev.Job.ID, "source", ev.Job.Source(), "chars", len([]rune(ev.Job.Text)))
		case EventJobError:
			logger.Errorw("Typing job failed", "job", ev.Job.ID, "source", ev.Job.Source(), "error", ev.Err)
		default:
			logger.Infow("Typing " + string(ev.Type))
		}
	}
}
