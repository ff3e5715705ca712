package sensorlog

import "os"

// DatabaseStats is a read-derived snapshot of the store. Aggregates are
// recomputed on demand; the writer-side counters accumulate for the life of
// the handle.
type DatabaseStats struct {
	// TotalReadings is the persisted row count.
	TotalReadings int64 `json:"total_readings"`
	// AnomalyCount is the number of persisted readings flagged anomalous.
	AnomalyCount int64 `json:"anomaly_count"`
	// AnomalyPercent is AnomalyCount over TotalReadings, 0 when empty.
	AnomalyPercent float64 `json:"anomaly_percent"`
	// FileSizeBytes is the main file size; 0 for the in-memory sentinel.
	FileSizeBytes int64 `json:"file_size_bytes"`

	// Writer-side performance counters.
	TotalBatches  uint64  `json:"total_batches"`
	TotalInserted uint64  `json:"total_inserts"`
	AvgBatchSize  float64 `json:"avg_batch_size"`
	Buffered      int     `json:"buffered"`
}

// IsHealthy reports whether the handle is open and a trivial round-trip
// query succeeds. It never returns an error; any failure, including a
// closed handle, reads as unhealthy.
func (s *Store) IsHealthy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	var one int
	if err := s.db.QueryRow("SELECT 1").Scan(&one); err != nil {
		return false
	}
	return one == 1
}

// Stats computes aggregate statistics. Observability, not correctness:
// aggregate queries that fail degrade to zeroed values rather than
// propagating an error, while the writer counters are always reported.
func (s *Store) Stats() DatabaseStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := DatabaseStats{
		TotalBatches:  s.totalBatches,
		TotalInserted: s.totalInserted,
		Buffered:      s.buf.len(),
	}
	if s.totalBatches > 0 {
		stats.AvgBatchSize = float64(s.totalInserted) / float64(s.totalBatches)
	}
	if s.closed {
		return stats
	}

	row := s.db.QueryRow(
		"SELECT COUNT(*), COALESCE(SUM(anomaly_flag), 0) FROM sensor_readings")
	if err := row.Scan(&stats.TotalReadings, &stats.AnomalyCount); err != nil {
		s.logger.Warn("stats query degraded", "error", err)
		return stats
	}
	if stats.TotalReadings > 0 {
		stats.AnomalyPercent = 100 * float64(stats.AnomalyCount) / float64(stats.TotalReadings)
	}

	if s.path != MemoryPath {
		if fi, err := os.Stat(s.path); err == nil {
			stats.FileSizeBytes = fi.Size()
		}
	}
	return stats
}
