package telemetry

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"codeberg.org/mutker/hwmond/internal/alert"
	"codeberg.org/mutker/hwmond/internal/errors"
	"codeberg.org/mutker/hwmond/internal/logger"
	"codeberg.org/mutker/hwmond/internal/sensor"

	_ "github.com/mattn/go-sqlite3"
)

const (
	defaultDirPerm      = 0o755
	defaultBatchRows    = 256
	defaultFlushSeconds = 15
)

type Config struct {
	DBPath string

	// Rows buffered before an early flush. The timer flushes whatever is
	// pending regardless.
	BatchSize    int
	FlushSeconds int
}

type readingRow struct {
	at     time.Time
	node   string
	sensor string
	typ    string
	value  *float64
	min    *float64
	max    *float64
}

type sqliteRecorder struct {
	db  *sql.DB
	cfg Config

	mu       sync.Mutex
	readings []readingRow
	events   []alert.Event

	flushTicker   *time.Ticker
	shutdownChan  chan struct{}
	flushDoneChan chan struct{}
}

// NewRecorder opens (or creates) the telemetry database and starts the
// background flusher.
func NewRecorder(cfg Config) (Recorder, error) {
	if cfg.DBPath == "" {
		return nil, errors.New(errors.ErrInvalidDBPath)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchRows
	}
	if cfg.FlushSeconds <= 0 {
		cfg.FlushSeconds = defaultFlushSeconds
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, defaultDirPerm); err != nil {
			return nil, errors.Wrap(errors.ErrStorageInit, err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal=WAL&_auto_vacuum=2")
	if err != nil {
		return nil, errors.Wrap(errors.ErrStorageInit, err)
	}

	if err := initSchema(db); err != nil {
		db.Close()

		return nil, err
	}

	r := &sqliteRecorder{
		db:            db,
		cfg:           cfg,
		readings:      make([]readingRow, 0, cfg.BatchSize),
		shutdownChan:  make(chan struct{}),
		flushDoneChan: make(chan struct{}),
	}

	r.flushTicker = time.NewTicker(time.Duration(cfg.FlushSeconds) * time.Second)
	go r.flusher()

	logger.Info().Msgf("Telemetry recorder initialized at %s (batch %d, flush %ds)",
		cfg.DBPath, cfg.BatchSize, cfg.FlushSeconds)

	return r, nil
}

// RecordSnapshot buffers one row per present reading. A full buffer
// flushes inline; otherwise the timer picks it up.
func (r *sqliteRecorder) RecordSnapshot(snap sensor.Snapshot, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, node := range snap {
		for _, s := range node.Sensors {
			r.readings = append(r.readings, readingRow{
				at:     at,
				node:   node.Name,
				sensor: s.Name,
				typ:    string(s.Type),
				value:  s.Value,
				min:    s.Min,
				max:    s.Max,
			})
		}
	}

	if len(r.readings) >= r.cfg.BatchSize {
		return r.flush()
	}

	return nil
}

// RecordEvent buffers one fired alert.
func (r *sqliteRecorder) RecordEvent(event alert.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)

	return nil
}

// Close flushes whatever is pending, checkpoints the WAL and closes the
// database.
func (r *sqliteRecorder) Close() error {
	close(r.shutdownChan)
	r.flushTicker.Stop()
	<-r.flushDoneChan

	if _, err := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return errors.Wrap(errors.ErrStorageClose, err)
	}

	if err := r.db.Close(); err != nil {
		return errors.Wrap(errors.ErrStorageClose, err)
	}

	logger.Info().Msg("Telemetry recorder closed")

	return nil
}

func (r *sqliteRecorder) flusher() {
	defer close(r.flushDoneChan)

	for {
		select {
		case <-r.flushTicker.C:
			r.mu.Lock()
			if err := r.flush(); err != nil {
				logger.Error().Msgf("Telemetry flush failed: %v", err)
			}
			r.mu.Unlock()
		case <-r.shutdownChan:
			r.mu.Lock()
			if err := r.flush(); err != nil {
				logger.Error().Msgf("Final telemetry flush failed: %v", err)
			}
			r.mu.Unlock()

			return
		}
	}
}

// flush writes both buffers in one transaction. Caller holds the mutex.
func (r *sqliteRecorder) flush() error {
	if len(r.readings) == 0 && len(r.events) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrStorageAccess, err)
	}

	if err := insertReadings(tx, r.readings); err != nil {
		rollback(tx)

		return err
	}
	if err := insertEvents(tx, r.events); err != nil {
		rollback(tx)

		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrStorageAccess, err)
	}

	logger.Debug().Msgf("Flushed %d readings, %d alert events", len(r.readings), len(r.events))
	r.readings = r.readings[:0]
	r.events = r.events[:0]

	return nil
}

func insertReadings(tx *sql.Tx, rows []readingRow) error {
	if len(rows) == 0 {
		return nil
	}

	stmt, err := tx.Prepare(`
        INSERT INTO readings (recorded_at, node, sensor, type, value, min, max)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `)
	if err != nil {
		return errors.Wrap(errors.ErrStorageAccess, err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.Exec(
			row.at.Unix(),
			row.node,
			row.sensor,
			row.typ,
			nullable(row.value),
			nullable(row.min),
			nullable(row.max),
		); err != nil {
			return errors.Wrap(errors.ErrStorageAccess, err)
		}
	}

	return nil
}

func insertEvents(tx *sql.Tx, events []alert.Event) error {
	if len(events) == 0 {
		return nil
	}

	stmt, err := tx.Prepare(`
        INSERT OR IGNORE INTO alert_events (id, fired_at, sensor, level, value, message)
        VALUES (?, ?, ?, ?, ?, ?)
    `)
	if err != nil {
		return errors.Wrap(errors.ErrStorageAccess, err)
	}
	defer stmt.Close()

	for _, event := range events {
		if _, err := stmt.Exec(
			event.ID.String(),
			event.At.Unix(),
			event.Sensor,
			string(event.Level),
			event.Value,
			event.Message,
		); err != nil {
			return errors.Wrap(errors.ErrStorageAccess, err)
		}
	}

	return nil
}

func nullable(v *float64) any {
	if v == nil {
		return nil
	}

	return *v
}

func rollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil {
		logger.Error().Msgf("Failed to roll back telemetry transaction: %v", err)
	}
}
