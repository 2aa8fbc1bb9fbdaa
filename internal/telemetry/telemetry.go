// Package telemetry persists sampled readings and fired alerts to a local
// SQLite database. Writes are buffered and flushed in batches so the
// consumer tick never waits on disk.
package telemetry

import (
	"context"
	"time"

	"codeberg.org/mutker/hwmond/internal/alert"
	"codeberg.org/mutker/hwmond/internal/sensor"
)

// Recorder accepts snapshots and alert events for persistence.
type Recorder interface {
	RecordSnapshot(snap sensor.Snapshot, at time.Time) error
	RecordEvent(event alert.Event) error
	Close() error
}

// NewNoop returns a recorder that discards everything. Used when telemetry
// is disabled so callers need no enabled checks.
func NewNoop() Recorder {
	return noopRecorder{}
}

type noopRecorder struct{}

func (noopRecorder) RecordSnapshot(sensor.Snapshot, time.Time) error { return nil }
func (noopRecorder) RecordEvent(alert.Event) error                   { return nil }
func (noopRecorder) Close() error                                    { return nil }

// EventSink adapts a recorder to the notification dispatcher, so fired
// alerts are persisted on the same best-effort path as the other sinks.
type EventSink struct {
	rec Recorder
}

func NewEventSink(rec Recorder) *EventSink {
	return &EventSink{rec: rec}
}

func (s *EventSink) Name() string {
	return "telemetry"
}

func (s *EventSink) Send(_ context.Context, event alert.Event) error {
	return s.rec.RecordEvent(event)
}
