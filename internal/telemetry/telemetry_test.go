package telemetry_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/hwmond/internal/alert"
	"codeberg.org/mutker/hwmond/internal/errors"
	"codeberg.org/mutker/hwmond/internal/sensor"
	"codeberg.org/mutker/hwmond/internal/telemetry"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/mattn/go-sqlite3"
)

func testSnapshot() sensor.Snapshot {
	return sensor.Snapshot{
		{
			Name: "AMD Ryzen 5 9600X",
			Kind: sensor.Cpu,
			Sensors: []sensor.Sensor{
				{Name: "Core (Tctl/Tdie)", Type: sensor.Temperature, Value: sensor.Float(54.5), Min: sensor.Float(38), Max: sensor.Float(79.1)},
				{Name: "Core Voltage", Type: sensor.Voltage},
			},
		},
	}
}

func testEvent() alert.Event {
	return alert.Event{
		ID:      uuid.New(),
		Sensor:  "CPU Temperature",
		Level:   alert.High,
		Value:   90,
		Message: "CPU Temperature is High: 90",
		At:      time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
	}
}

func countRows(t *testing.T, dbPath, table string) int {
	t.Helper()

	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))

	return n
}

func TestNewRecorderRequiresPath(t *testing.T) {
	_, err := telemetry.NewRecorder(telemetry.Config{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrInvalidDBPath, errors.CodeOf(err))
}

func TestRecordSnapshotPersistsOnClose(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "telemetry.db")
	rec, err := telemetry.NewRecorder(telemetry.Config{DBPath: dbPath, BatchSize: 1000, FlushSeconds: 60})
	require.NoError(t, err)

	at := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	require.NoError(t, rec.RecordSnapshot(testSnapshot(), at))
	require.NoError(t, rec.Close())

	assert.Equal(t, 2, countRows(t, dbPath, "readings"))

	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer db.Close()

	var node, name string
	var value sql.NullFloat64
	require.NoError(t, db.QueryRow(
		"SELECT node, sensor, value FROM readings WHERE sensor = ?", "Core (Tctl/Tdie)",
	).Scan(&node, &name, &value))
	assert.Equal(t, "AMD Ryzen 5 9600X", node)
	require.True(t, value.Valid)
	assert.InDelta(t, 54.5, value.Float64, 1e-9)

	// The voltage reading has no value; NULL, not zero.
	require.NoError(t, db.QueryRow(
		"SELECT node, sensor, value FROM readings WHERE sensor = ?", "Core Voltage",
	).Scan(&node, &name, &value))
	assert.False(t, value.Valid)
}

func TestBatchSizeTriggersEarlyFlush(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "telemetry.db")
	rec, err := telemetry.NewRecorder(telemetry.Config{DBPath: dbPath, BatchSize: 2, FlushSeconds: 600})
	require.NoError(t, err)
	defer rec.Close()

	// Two rows per snapshot hits the batch size exactly.
	require.NoError(t, rec.RecordSnapshot(testSnapshot(), time.Now()))

	assert.Equal(t, 2, countRows(t, dbPath, "readings"), "reaching the batch size must flush without waiting for the timer")
}

func TestRecordEventPersists(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "telemetry.db")
	rec, err := telemetry.NewRecorder(telemetry.Config{DBPath: dbPath, BatchSize: 1000, FlushSeconds: 60})
	require.NoError(t, err)

	event := testEvent()
	require.NoError(t, rec.RecordEvent(event))
	require.NoError(t, rec.Close())

	assert.Equal(t, 1, countRows(t, dbPath, "alert_events"))

	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer db.Close()

	var level, message string
	require.NoError(t, db.QueryRow(
		"SELECT level, message FROM alert_events WHERE id = ?", event.ID.String(),
	).Scan(&level, &message))
	assert.Equal(t, "High", level)
	assert.Equal(t, "CPU Temperature is High: 90", message)
}

func TestEventSink(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "telemetry.db")
	rec, err := telemetry.NewRecorder(telemetry.Config{DBPath: dbPath, BatchSize: 1000, FlushSeconds: 60})
	require.NoError(t, err)

	sink := telemetry.NewEventSink(rec)
	assert.Equal(t, "telemetry", sink.Name())
	require.NoError(t, sink.Send(context.Background(), testEvent()))
	require.NoError(t, rec.Close())

	assert.Equal(t, 1, countRows(t, dbPath, "alert_events"))
}

func TestReopenExistingDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "telemetry.db")

	rec, err := telemetry.NewRecorder(telemetry.Config{DBPath: dbPath})
	require.NoError(t, err)
	require.NoError(t, rec.RecordSnapshot(testSnapshot(), time.Now()))
	require.NoError(t, rec.Close())

	rec, err = telemetry.NewRecorder(telemetry.Config{DBPath: dbPath})
	require.NoError(t, err)
	require.NoError(t, rec.RecordSnapshot(testSnapshot(), time.Now()))
	require.NoError(t, rec.Close())

	assert.Equal(t, 4, countRows(t, dbPath, "readings"))
}

func TestNoopRecorder(t *testing.T) {
	rec := telemetry.NewNoop()
	assert.NoError(t, rec.RecordSnapshot(testSnapshot(), time.Now()))
	assert.NoError(t, rec.RecordEvent(testEvent()))
	assert.NoError(t, rec.Close())
}
