package sensorlog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func fastReaderConfig() ReaderConfig {
	return ReaderConfig{
		BusyTimeout:  100 * time.Millisecond,
		MaxAttempts:  2,
		RetryBackoff: time.Millisecond,
	}
}

func TestReaderRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sensors.db")

	store, err := Open(path, testConfig())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	full := Reading{
		Timestamp:   "2026-08-01T12:00:00Z",
		SensorID:    "sensor_001",
		Temperature: Float(21.5),
		Voltage:     Float(3.31),
		StatusCode:  Int(200),
		AnomalyFlag: true,
		AnomalyType: Str("spike"),
		Location:    Str("warehouse-1"),
		Latitude:    Float(51.92),
	}
	sparse := Reading{
		Timestamp: "2026-08-01T12:00:01Z",
		SensorID:  "sensor_002",
	}
	for _, r := range []Reading{full, sparse} {
		if err := store.Append(r); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}
	if _, err := store.Flush(); err != nil {
		t.Fatalf("flush failed: %v", err)
	}

	reader, err := OpenReader(path, fastReaderConfig())
	if err != nil {
		t.Fatalf("failed to open reader: %v", err)
	}
	defer reader.Close()

	got, err := reader.Readings(t.Context(), 10, 0)
	if err != nil {
		t.Fatalf("readings failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 readings, got %d", len(got))
	}

	// Newest first: the sparse reading was inserted last.
	gotSparse, gotFull := got[0], got[1]
	if gotSparse.SensorID != "sensor_002" || gotFull.SensorID != "sensor_001" {
		t.Fatalf("unexpected order: %s, %s", got[0].SensorID, got[1].SensorID)
	}

	// Absent fields come back as nil, not zero values.
	if gotSparse.Temperature != nil || gotSparse.StatusCode != nil || gotSparse.AnomalyType != nil {
		t.Errorf("sparse reading grew values: %+v", gotSparse.Reading)
	}
	if gotSparse.AnomalyFlag {
		t.Error("sparse reading should not be flagged")
	}

	// Present fields survive with full fidelity.
	if gotFull.Temperature == nil || *gotFull.Temperature != 21.5 {
		t.Errorf("temperature mismatch: %v", gotFull.Temperature)
	}
	if gotFull.StatusCode == nil || *gotFull.StatusCode != 200 {
		t.Errorf("status code mismatch: %v", gotFull.StatusCode)
	}
	if !gotFull.AnomalyFlag || gotFull.AnomalyType == nil || *gotFull.AnomalyType != "spike" {
		t.Errorf("anomaly fields mismatch: %v %v", gotFull.AnomalyFlag, gotFull.AnomalyType)
	}
	if gotFull.Latitude == nil || *gotFull.Latitude != 51.92 {
		t.Errorf("latitude mismatch: %v", gotFull.Latitude)
	}
	if gotFull.ID == 0 {
		t.Error("stored reading should carry its row id")
	}
}

func TestReaderCounts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sensors.db")

	store, err := Open(path, testConfig())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	for i := 0; i < 6; i++ {
		r := testReading("sensor_001")
		if i < 2 {
			r.AnomalyFlag = true
		}
		if err := store.Append(r); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}
	if _, err := store.Flush(); err != nil {
		t.Fatalf("flush failed: %v", err)
	}

	reader, err := OpenReader(path, fastReaderConfig())
	if err != nil {
		t.Fatalf("failed to open reader: %v", err)
	}
	defer reader.Close()

	total, err := reader.TotalReadings(t.Context())
	if err != nil {
		t.Fatalf("total failed: %v", err)
	}
	if total != 6 {
		t.Errorf("expected 6 readings, got %d", total)
	}
	anomalies, err := reader.AnomalyCount(t.Context())
	if err != nil {
		t.Fatalf("anomaly count failed: %v", err)
	}
	if anomalies != 2 {
		t.Errorf("expected 2 anomalies, got %d", anomalies)
	}

	bySensor, err := reader.ReadingsBySensor(t.Context(), "sensor_001", 3)
	if err != nil {
		t.Fatalf("by-sensor failed: %v", err)
	}
	if len(bySensor) != 3 {
		t.Errorf("expected limit of 3, got %d", len(bySensor))
	}
}

func TestReaderSeesOnlyFlushedData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sensors.db")

	store, err := Open(path, testConfig())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	if err := store.Append(testReading("sensor_001")); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	reader, err := OpenReader(path, fastReaderConfig())
	if err != nil {
		t.Fatalf("failed to open reader: %v", err)
	}
	defer reader.Close()

	total, err := reader.TotalReadings(t.Context())
	if err != nil {
		t.Fatalf("total failed: %v", err)
	}
	if total != 0 {
		t.Errorf("buffered readings must be invisible to readers, saw %d", total)
	}

	if _, err := store.Flush(); err != nil {
		t.Fatalf("flush failed: %v", err)
	}
	total, err = reader.TotalReadings(t.Context())
	if err != nil {
		t.Fatalf("total after flush failed: %v", err)
	}
	if total != 1 {
		t.Errorf("flushed reading should be visible, saw %d", total)
	}
}

// A polling reader racing a flushing writer must see a monotonically
// non-decreasing count, with transient busy conditions as the only
// acceptable failure mode.
func TestReaderConcurrentWithWriter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sensors.db")

	cfg := testConfig()
	cfg.Batch.Size = 50
	store, err := Open(path, cfg)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	reader, err := OpenReader(path, DefaultReaderConfig())
	if err != nil {
		t.Fatalf("failed to open reader: %v", err)
	}
	defer reader.Close()

	writerDone := make(chan error, 1)
	go func() {
		for i := 0; i < 500; i++ {
			if err := store.Append(testReading("sensor_001")); err != nil {
				writerDone <- err
				return
			}
		}
		writerDone <- nil
	}()

	var last int64
	for done := false; !done; {
		select {
		case err := <-writerDone:
			if err != nil {
				t.Fatalf("writer failed: %v", err)
			}
			done = true
		default:
			total, err := reader.TotalReadings(t.Context())
			if err != nil {
				if errors.Is(err, ErrNotAStore) {
					t.Fatalf("reader must never see a schema error mid-write: %v", err)
				}
				// Busy beyond the retry budget stays transient.
				if !errors.Is(err, ErrStoreBusy) {
					t.Fatalf("unexpected reader error: %v", err)
				}
				continue
			}
			if total < last {
				t.Fatalf("count went backwards: %d after %d", total, last)
			}
			last = total
		}
	}

	total, err := reader.TotalReadings(t.Context())
	if err != nil {
		t.Fatalf("final count failed: %v", err)
	}
	if total != 500 {
		t.Errorf("expected 500 flushed readings, got %d", total)
	}
}

func TestOpenReaderRejectsBadTargets(t *testing.T) {
	if _, err := OpenReader("", fastReaderConfig()); err == nil {
		t.Error("empty path should be rejected")
	}
	if _, err := OpenReader(MemoryPath, fastReaderConfig()); err == nil {
		t.Error("in-memory sentinel should be rejected")
	}
}

func TestOpenReaderNotAStore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fake.db")
	if err := os.WriteFile(path, []byte("this is a text file, not a store"), 0o644); err != nil {
		t.Fatalf("failed to seed file: %v", err)
	}

	_, err := OpenReader(path, fastReaderConfig())
	if err == nil {
		t.Fatal("opening a non-database file should fail")
	}
	if !errors.Is(err, ErrNotAStore) {
		t.Errorf("expected ErrNotAStore, got %v", err)
	}
	if errors.Is(err, ErrStoreBusy) {
		t.Error("a corrupt file is not a contention condition")
	}
}

func TestReaderCannotWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sensors.db")

	store, err := Open(path, testConfig())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	store.Close()

	reader, err := OpenReader(path, fastReaderConfig())
	if err != nil {
		t.Fatalf("failed to open reader: %v", err)
	}
	defer reader.Close()

	_, err = reader.DB().Exec("INSERT INTO sensor_readings (timestamp, sensor_id) VALUES ('2026-08-01T12:00:00Z', 'rogue')")
	if err == nil {
		t.Fatal("a write through the read-only handle should fail")
	}
	if got := classifySQLiteErr("write", path, err); !errors.Is(got, ErrReadOnlyStore) {
		t.Errorf("expected ErrReadOnlyStore, got %v", got)
	}
}
