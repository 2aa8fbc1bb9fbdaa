package telemetry

import (
	"database/sql"

	"codeberg.org/mutker/hwmond/internal/errors"
)

// Bump when the DDL below changes shape. Databases written by a newer
// schema are rejected rather than silently misread.
const schemaVersion = 1

const schemaDDL = `
CREATE TABLE IF NOT EXISTS readings (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    recorded_at INTEGER NOT NULL,
    node        TEXT    NOT NULL,
    sensor      TEXT    NOT NULL,
    type        TEXT    NOT NULL,
    value       REAL,
    min         REAL,
    max         REAL
);
CREATE INDEX IF NOT EXISTS idx_readings_recorded_at ON readings(recorded_at);
CREATE INDEX IF NOT EXISTS idx_readings_sensor ON readings(node, sensor);

CREATE TABLE IF NOT EXISTS alert_events (
    id       TEXT PRIMARY KEY,
    fired_at INTEGER NOT NULL,
    sensor   TEXT    NOT NULL,
    level    TEXT    NOT NULL,
    value    REAL    NOT NULL,
    message  TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_alert_events_fired_at ON alert_events(fired_at);
`

func initSchema(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return errors.Wrap(errors.ErrStorageInit, err)
	}

	if version > schemaVersion {
		return errors.WithData(errors.ErrStorageInit, version)
	}

	if _, err := db.Exec(schemaDDL); err != nil {
		return errors.Wrap(errors.ErrStorageInit, err)
	}

	if version < schemaVersion {
		if _, err := db.Exec("PRAGMA user_version = 1"); err != nil {
			return errors.Wrap(errors.ErrStorageInit, err)
		}
	}

	return nil
}
