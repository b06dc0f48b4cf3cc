package model

import "time"

// EventType is the fixed set of broadcast discriminators (spec.md §3).
type EventType string

const (
	EventRunCreated     EventType = "run:created"
	EventRunUpdated     EventType = "run:updated"
	EventRunCompleted   EventType = "run:completed"
	EventRunFailed      EventType = "run:failed"
	EventTaskUpdated    EventType = "task:updated"
	EventWorkerCreated  EventType = "worker:created"
	EventWorkerUpdated  EventType = "worker:updated"
	EventWorkerLog      EventType = "worker:log"
	EventJudgementAdded EventType = "judgement:created"
	EventLog            EventType = "log"
)

// Event is one broadcast record carried on the Event Bus.
type Event struct {
	Type      EventType   `json:"type" yaml:"type"`
	Payload   interface{} `json:"payload" yaml:"payload"`
	Timestamp time.Time   `json:"timestamp" yaml:"timestamp"`
}
