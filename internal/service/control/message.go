package control

import (
	"Typist/internal/service/typing"
	"time"
)

// EventMessage: событие движка в виде JSON для клиентов /events.
type EventMessage struct {
	Type    string    `json:"type"`
	JobID   string    `json:"jobId,omitempty"`
	Source  string    `json:"source,omitempty"`
	Payload string    `json:"payload,omitempty"`
	Control string    `json:"control,omitempty"` // ENTER или TAB, если progress нажал клавишу
	Error   string    `json:"error,omitempty"`
	At      time.Time `json:"at"`
}

func newEventMessage(ev typing.Event) EventMessage {
	m := EventMessage{Type: string(ev.Type), Payload: ev.Payload, At: ev.At}
	if ev.Control != typing.ControlNone {
		m.Control = ev.Control.String()
	}
	if ev.Job != nil {
		m.JobID = ev.Job.ID
		m.Source = ev.Job.Source()
	}
	if ev.Err != nil {
		m.Error = ev.Err.Error()
	}
	return m
}

// Command приходит в WebSocket-кадре: {"cmd":"type","text":"..."}.
type Command struct {
	Cmd      string            `json:"cmd"`
	Text     string            `json:"text,omitempty"`
	DelayMs  int64             `json:"delayMs,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// TypeRequest: тело POST /type.
type TypeRequest struct {
	Text     string            `json:"text"`
	DelayMs  int64             `json:"delayMs,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// SettingsRequest: тело POST /settings; отсутствующие поля не меняются.
type SettingsRequest struct {
	WordsPerMinute *int  `json:"wpm,omitempty"`
	BatchMode      *bool `json:"batchMode,omitempty"`
	MinBatchSize   *int  `json:"minBatch,omitempty"`
	MaxBatchSize   *int  `json:"maxBatch,omitempty"`
}

type SettingsResponse struct {
	WordsPerMinute int  `json:"wpm"`
	BatchMode      bool `json:"batchMode"`
	MinBatchSize   int  `json:"minBatch"`
	MaxBatchSize   int  `json:"maxBatch"`
}

func newSettingsResponse(c typing.EngineConfig) SettingsResponse {
	return SettingsResponse{
		WordsPerMinute: c.WordsPerMinute,
		BatchMode:      c.BatchMode,
		MinBatchSize:   c.MinBatchSize,
		MaxBatchSize:   c.MaxBatchSize,
	}
}

type JobInfo struct {
	ID         string    `json:"id"`
	Source     string    `json:"source,omitempty"`
	Chars      int       `json:"chars"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

func newJobInfo(j *typing.Job) *JobInfo {
	if j == nil {
		return nil
	}
	return &JobInfo{ID: j.ID, Source: j.Source(), Chars: len([]rune(j.Text)), EnqueuedAt: j.EnqueuedAt}
}

type StatusResponse struct {
	State    string           `json:"state"`
	Pending  int              `json:"pending"`
	Current  *JobInfo         `json:"current,omitempty"`
	Settings SettingsResponse `json:"settings"`
	Clients  int              `json:"clients"`
}

type QueuedResponse struct {
	Queued bool   `json:"queued"`
	JobID  string `json:"jobId,omitempty"`
}

type StateResponse struct {
	Changed bool   `json:"changed"`
	State   string `json:"state"`
}
