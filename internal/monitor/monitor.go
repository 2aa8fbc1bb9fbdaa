// Package monitor runs the sensor pipeline: one goroutine drains the
// bridge feed into the store, another samples the store on a fixed tick
// and drives alert evaluation, telemetry and the display layer. The tick
// is decoupled from the feed's own emission rate; the store always holds
// the latest complete cycle.
package monitor

import (
	"io"
	"strings"
	"sync"
	"time"

	"codeberg.org/mutker/hwmond/internal/errors"
	"codeberg.org/mutker/hwmond/internal/logger"
	"codeberg.org/mutker/hwmond/internal/metrics"
	"codeberg.org/mutker/hwmond/internal/sanitize"
	"codeberg.org/mutker/hwmond/internal/sensor"
	"codeberg.org/mutker/hwmond/internal/store"
	"codeberg.org/mutker/hwmond/internal/telemetry"
)

const defaultInterval = 2 * time.Second

// LineSource is the feed side of the bridge.
type LineSource interface {
	Available() bool
	ReadLine() (string, error)
	Close() error
}

// Evaluator consumes each sampled snapshot.
type Evaluator interface {
	Evaluate(snap sensor.Snapshot)
}

type Config struct {
	Source    LineSource
	Sanitizer *sanitize.Sanitizer
	Store     *store.Store
	Evaluator Evaluator
	Recorder  telemetry.Recorder

	// Interval between consumer ticks, default 2s.
	Interval time.Duration

	// OnTick receives every sampled snapshot, empty included. Used by the
	// display layer.
	OnTick func(snap sensor.Snapshot)
}

type Monitor struct {
	cfg Config

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func New(cfg Config) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}

	return &Monitor{
		cfg:  cfg,
		stop: make(chan struct{}),
	}
}

// Start launches the feed reader and the consumer tick.
func (m *Monitor) Start() {
	m.wg.Add(2)
	go m.readLoop()
	go m.tickLoop()
}

// Stop requests the loops to exit, closes the feed source (terminating the
// bridge process) and waits for both loops to finish. After Stop returns
// no reads occur and no more ticks fire.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
		if err := m.cfg.Source.Close(); err != nil {
			logger.Error().Msgf("Failed to close sensor feed: %v", err)
		}
		m.wg.Wait()
	})
}

func (m *Monitor) readLoop() {
	defer m.wg.Done()

	if !m.cfg.Source.Available() {
		logger.Warn().Msg("Sensor feed unavailable, serving empty snapshots")

		return
	}

	for {
		select {
		case <-m.stop:
			return
		default:
		}

		line, err := m.cfg.Source.ReadLine()
		if err != nil {
			// EOF or a dead pipe ends the read path. No automatic
			// respawn; the store keeps serving the last snapshot.
			if errors.Is(err, io.EOF) {
				logger.Info().Msg("Sensor feed ended")
			} else if !m.stopping() {
				logger.Error().Msgf("Sensor feed read failed: %v", err)
			}

			return
		}

		m.ingest(line)
	}
}

func (m *Monitor) ingest(line string) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return
	}

	snap, err := sensor.DecodeSnapshot([]byte(trimmed))
	if err != nil {
		// Expected transient noise: providers print banners and errors
		// onto the same stream.
		metrics.FeedDecodeFailed()
		logger.Warn().Msgf("Skipping unparseable feed line: %.120s", trimmed)

		return
	}

	m.cfg.Store.Publish(m.cfg.Sanitizer.Apply(snap))
	metrics.SnapshotPublished()
}

func (m *Monitor) tickLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.consume()
		}
	}
}

// consume samples the store once. A panic out of a consumer must not kill
// the tick loop, so it is caught and logged here.
func (m *Monitor) consume() {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Msgf("Recovered panic in consumer tick: %v", r)
		}
	}()

	snap := m.cfg.Store.Current()

	metrics.ObserveSnapshot(snap)
	metrics.SetBridgeUp(m.cfg.Source.Available())

	if m.cfg.Evaluator != nil {
		m.cfg.Evaluator.Evaluate(snap)
	}
	if m.cfg.Recorder != nil {
		if err := m.cfg.Recorder.RecordSnapshot(snap, time.Now()); err != nil {
			logger.Error().Msgf("Failed to record snapshot: %v", err)
		}
	}
	if m.cfg.OnTick != nil {
		m.cfg.OnTick(snap)
	}
}

func (m *Monitor) stopping() bool {
	select {
	case <-m.stop:
		return true
	default:
		return false
	}
}
