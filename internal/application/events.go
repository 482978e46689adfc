package application

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// EventKind labels the lifecycle events emitted by the services.
type EventKind string

const (
	EventSubmitted EventKind = "submitted"
	EventOptimized EventKind = "optimized"
	EventAssigned  EventKind = "assigned"
	EventRevealed  EventKind = "revealed"
)

// Event is a notification consumed by dashboard and notification
// collaborators. Payloads carry identifiers only, never plaintext preference
// or schedule values.
type Event struct {
	Kind     EventKind
	RecordID uint64
	Employee string
	Team     string
	At       time.Time
}

// EventPublisher receives lifecycle events. Publishing must not fail the
// emitting operation; implementations swallow their own delivery errors.
type EventPublisher interface {
	Publish(ctx context.Context, event Event)
}

// LogPublisher emits events as structured log records.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher constructs a publisher writing to the supplied logger.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: defaultLogger(logger)}
}

// Publish writes the event as a log record.
func (p *LogPublisher) Publish(ctx context.Context, event Event) {
	if p == nil {
		return
	}
	attrs := []any{"kind", string(event.Kind)}
	if event.RecordID != 0 {
		attrs = append(attrs, "record_id", event.RecordID)
	}
	if event.Employee != "" {
		attrs = append(attrs, "employee_id", event.Employee)
	}
	if event.Team != "" {
		attrs = append(attrs, "team_id", event.Team)
	}
	p.logger.InfoContext(ctx, "schedule event", attrs...)
}

// EventRecorder captures published events in memory. Intended for tests and
// in-process subscribers.
type EventRecorder struct {
	mu     sync.Mutex
	events []Event
}

// Publish appends the event to the recorder.
func (r *EventRecorder) Publish(_ context.Context, event Event) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

// Events returns a copy of the captured events in publication order.
func (r *EventRecorder) Events() []Event {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func publish(ctx context.Context, publisher EventPublisher, event Event) {
	if publisher == nil {
		return
	}
	publisher.Publish(ctx, event)
}
