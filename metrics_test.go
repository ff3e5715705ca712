package sensorlog

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsTrackWriterActivity(t *testing.T) {
	store, err := Open(MemoryPath, testConfig())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	metrics := NewMetrics(prometheus.NewRegistry())
	store.AttachMetrics(metrics)

	for i := 0; i < 5; i++ {
		if err := store.Append(testReading("sensor_001")); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}
	if _, err := store.Flush(); err != nil {
		t.Fatalf("flush failed: %v", err)
	}

	if got := promtestutil.ToFloat64(metrics.ReadingsInserted); got != 5 {
		t.Errorf("expected 5 inserted, got %v", got)
	}
	if got := promtestutil.ToFloat64(metrics.BatchesFlushed); got != 1 {
		t.Errorf("expected 1 batch, got %v", got)
	}
	if got := promtestutil.ToFloat64(metrics.FlushErrors); got != 0 {
		t.Errorf("expected 0 flush errors, got %v", got)
	}
}

func TestMetricsCountFlushErrors(t *testing.T) {
	store, err := Open(MemoryPath, testConfig())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	metrics := NewMetrics(prometheus.NewRegistry())
	store.AttachMetrics(metrics)

	if err := store.Append(testReading("sensor_001")); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if _, err := store.DB().Exec("ALTER TABLE sensor_readings RENAME TO sensor_readings_hidden"); err != nil {
		t.Fatalf("failed to hide table: %v", err)
	}
	if _, err := store.Flush(); err == nil {
		t.Fatal("flush should fail against a missing table")
	}

	if got := promtestutil.ToFloat64(metrics.FlushErrors); got != 1 {
		t.Errorf("expected 1 flush error, got %v", got)
	}
	if got := promtestutil.ToFloat64(metrics.ReadingsInserted); got != 0 {
		t.Errorf("failed flush must not count inserts, got %v", got)
	}
}
