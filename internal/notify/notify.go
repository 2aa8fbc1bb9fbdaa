// Package notify fans triggered alerts out to their side effects: log
// lines, subscriber callbacks, a Telegram chat. Delivery is best effort
// through a bounded queue; a full queue drops the event rather than stall
// the evaluation tick.
package notify

import (
	"context"
	"sync"

	"codeberg.org/mutker/hwmond/internal/alert"
	"codeberg.org/mutker/hwmond/internal/logger"
	"codeberg.org/mutker/hwmond/internal/metrics"
)

// Sink delivers one event to one destination.
type Sink interface {
	Name() string
	Send(ctx context.Context, event alert.Event) error
}

// Dispatcher queues events and delivers them to every sink from a small
// worker pool. Implements alert.Dispatcher.
type Dispatcher struct {
	sinks   []Sink
	events  chan alert.Event
	workers int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewDispatcher(queueSize, workers int, sinks ...Sink) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())

	return &Dispatcher{
		sinks:   sinks,
		events:  make(chan alert.Event, queueSize),
		workers: workers,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// AddSink registers another destination. Not safe once Start has run.
func (d *Dispatcher) AddSink(sink Sink) {
	d.sinks = append(d.sinks, sink)
}

// Start launches the worker pool.
func (d *Dispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
}

// Dispatch enqueues an event and returns immediately. When the queue is
// full the event is dropped and counted; the caller never blocks.
func (d *Dispatcher) Dispatch(event alert.Event) {
	select {
	case d.events <- event:
	default:
		metrics.NotificationDropped()
		logger.Warn().Msgf("Notification queue full, dropping alert for %s", event.Sensor)
	}
}

// Stop cancels the workers and waits for them to return. Events still
// queued are abandoned; delivery was never guaranteed.
func (d *Dispatcher) Stop() {
	d.cancel()
	d.wg.Wait()
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			logger.Debug().Msgf("Notification worker %d stopped", id)

			return
		case event := <-d.events:
			d.deliver(event)
		}
	}
}

func (d *Dispatcher) deliver(event alert.Event) {
	for _, sink := range d.sinks {
		if err := sink.Send(d.ctx, event); err != nil {
			logger.Error().Msgf("Notification sink %s failed: %v", sink.Name(), err)
		}
	}
}
