// Package store holds the latest sanitized snapshot for consumers that
// sample on their own cadence. The feed side overwrites as fast as it
// produces; readers always get the most recent complete cycle.
package store

import (
	"sync/atomic"
	"time"

	"codeberg.org/mutker/hwmond/internal/sensor"
)

// Store exposes the most recently published snapshot. Publish swaps the
// whole snapshot pointer, so readers never observe a torn cycle and
// Current never blocks.
type Store struct {
	snap      atomic.Pointer[sensor.Snapshot]
	published atomic.Int64
}

func New() *Store {
	return &Store{}
}

// Publish replaces the current snapshot. The caller hands over ownership;
// a published snapshot is never mutated afterwards.
func (s *Store) Publish(snap sensor.Snapshot) {
	s.snap.Store(&snap)
	s.published.Store(time.Now().UnixNano())
}

// Current returns the latest published snapshot, empty before the first
// publish.
func (s *Store) Current() sensor.Snapshot {
	if p := s.snap.Load(); p != nil {
		return *p
	}

	return sensor.Snapshot{}
}

// LastPublished returns when the current snapshot was published, zero
// before the first publish.
func (s *Store) LastPublished() time.Time {
	ns := s.published.Load()
	if ns == 0 {
		return time.Time{}
	}

	return time.Unix(0, ns)
}
