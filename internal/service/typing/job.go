package typing

import (
	"maps"
	"time"

	"github.com/google/uuid"
)

// Ключи метаданных задания.
const (
	MetaSource = "source" // откуда пришёл текст
	MetaWPM    = "wpm"    // переопределение скорости для одного задания
	MetaBatch  = "batch"  // переопределение пакетного режима: true|false
)

// Известные источники заданий.
const (
	SourceClipboard = "clipboard"
	SourceTest      = "test"
	SourceAssistant = "assistant"
	SourceTwitch    = "twitch"
	SourceControl   = "control"
	SourceHotkey    = "hotkey"
)

// Job: одна единица текста в очереди на набор. После создания не меняется.
type Job struct {
	ID         string
	Text       string
	Delay      time.Duration // принимается для совместимости, на темп набора не влияет
	Metadata   map[string]string
	EnqueuedAt time.Time
}

func newJob(text string, delay time.Duration, metadata map[string]string) *Job {
	md := maps.Clone(metadata)
	if md == nil {
		md = map[string]string{}
	}
	return &Job{
		ID:         uuid.NewString(),
		Text:       text,
		Delay:      delay,
		Metadata:   md,
		EnqueuedAt: time.Now(),
	}
}

// Source возвращает источник задания из метаданных.
func (j *Job) Source() string {
	if j == nil {
		return ""
	}
	return j.Metadata[MetaSource]
}

// jobQueue: FIFO без собственной блокировки, защищается мьютексом Engine.
type jobQueue struct {
	jobs []*Job
}

func (q *jobQueue) push(j *Job) { q.jobs = append(q.jobs, j) }

func (q *jobQueue) pop() (*Job, bool) {
	if len(q.jobs) == 0 {
		return nil, false
	}
	j := q.jobs[0]
	q.jobs[0] = nil
	q.jobs = q.jobs[1:]
	return j, true
}

func (q *jobQueue) clear() int {
	n := len(q.jobs)
	clear(q.jobs)
	q.jobs = q.jobs[:0]
	return n
}

func (q *jobQueue) len() int { return len(q.jobs) }
