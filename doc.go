// Package sensorlog provides an embedded, append-mostly store for simulated
// sensor readings, backed by a single SQLite file in WAL mode.
//
// One process holds the writer handle (Store) at a time. Readings accumulate
// in an in-memory batch buffer and are flushed as bulk-insert transactions,
// either when the buffer reaches its size threshold or when it has aged past
// the batch timeout. Periodically, and always on Close, the write-ahead log
// is checkpointed back into the main file so that any number of external
// processes observe complete data by opening the main file alone — including
// across container or volume boundaries.
//
// # Basic Usage
//
// Open a store with default configuration:
//
//	store, err := sensorlog.Open("sensor_data.db", sensorlog.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
// Append readings (flushed automatically by size or age):
//
//	err := store.Append(sensorlog.Reading{
//	    Timestamp:   time.Now().UTC().Format(time.RFC3339Nano),
//	    SensorID:    "sensor-001",
//	    Temperature: sensorlog.Float(21.5),
//	})
//
// External observers open the same file read-only:
//
//	r, err := sensorlog.OpenReader("sensor_data.db", sensorlog.DefaultReaderConfig())
//	total, err := r.TotalReadings(ctx)
//
// The store never coordinates with readers directly; the on-disk WAL
// protocol and each reader's retry discipline are the only contract.
// Opening two concurrent writer handles against the same file is a caller
// error and is not supported.
package sensorlog
