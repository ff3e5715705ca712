package sensorlog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
)

// MemoryPath is the sentinel path for an ephemeral in-memory store. It has
// no on-disk artifacts and no checkpointing; file-size statistics report 0.
const MemoryPath = ":memory:"

// sideArtifactSuffixes are the side-log files SQLite may leave next to the
// main file. They are removed together with it on a non-preserving open.
var sideArtifactSuffixes = []string{"-journal", "-wal", "-shm"}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS sensor_readings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp TEXT NOT NULL,
	sensor_id TEXT NOT NULL,
	temperature REAL,
	humidity REAL,
	pressure REAL,
	vibration REAL,
	voltage REAL,
	status_code INTEGER,
	anomaly_flag INTEGER DEFAULT 0,
	anomaly_type TEXT,
	firmware_version TEXT,
	model TEXT,
	manufacturer TEXT,
	location TEXT,
	latitude REAL,
	longitude REAL,
	original_timezone TEXT,
	serial_number TEXT,
	manufacture_date TEXT,
	deployment_type TEXT,
	installation_date TEXT,
	height_meters REAL,
	orientation_degrees REAL,
	instance_id TEXT,
	sensor_type TEXT
);

CREATE INDEX IF NOT EXISTS idx_timestamp ON sensor_readings(timestamp);
CREATE INDEX IF NOT EXISTS idx_sensor_id ON sensor_readings(sensor_id);
`

// removeExisting deletes a prior database and its side-log artifacts so the
// run starts from a clean file. No-op for the in-memory sentinel.
func removeExisting(path string) error {
	if path == MemoryPath {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing store: %w", err)
	}
	for _, suffix := range sideArtifactSuffixes {
		if err := os.Remove(path + suffix); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove store artifact: %w", err)
		}
	}
	return nil
}

// ensureParentDir creates the directory that will hold the store file.
func ensureParentDir(path string) error {
	if path == MemoryPath {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	return nil
}

// applyPragmas applies the durability/performance configuration. The
// journal_mode pragma returns the effective mode (an in-memory store stays
// on its own journal regardless of the request).
func applyPragmas(db *sql.DB, p PragmaConfig) error {
	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout=%d", p.BusyTimeout.Milliseconds()),
		fmt.Sprintf("PRAGMA journal_mode=%s", p.JournalMode),
		fmt.Sprintf("PRAGMA synchronous=%s", p.Synchronous),
		fmt.Sprintf("PRAGMA cache_size=-%d", p.CacheSizeKB),
		fmt.Sprintf("PRAGMA temp_store=%s", p.TempStore),
		fmt.Sprintf("PRAGMA mmap_size=%d", p.MmapSize),
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("apply %q: %w", stmt, err)
		}
	}
	return nil
}

// initSchema creates the reading table and indices. Idempotent: safe
// against a pre-existing compatible file. A corrupted or foreign file
// surfaces as a SchemaError.
func initSchema(db *sql.DB, path string) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return classifySQLiteErr("schema init", path, err)
	}
	return nil
}
