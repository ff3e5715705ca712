package sensorlog

import (
	"context"
	"database/sql"
	"fmt"
)

// querier abstracts *sql.DB for the shared scan loop.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Readings returns persisted readings newest-first. It reads through the
// writer handle; unflushed buffered readings are not visible.
func (s *Store) Readings(ctx context.Context, limit, offset int) ([]StoredReading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	return queryReadings(ctx, s.db, s.path,
		fmt.Sprintf("SELECT %s FROM sensor_readings ORDER BY id DESC LIMIT ? OFFSET ?", selectColumns()),
		limit, offset)
}

// ReadingsBySensor returns persisted readings for one sensor, newest-first.
func (s *Store) ReadingsBySensor(ctx context.Context, sensorID string, limit int) ([]StoredReading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	return queryReadings(ctx, s.db, s.path,
		fmt.Sprintf("SELECT %s FROM sensor_readings WHERE sensor_id = ? ORDER BY id DESC LIMIT ?", selectColumns()),
		sensorID, limit)
}

// queryReadings is the shared scan loop for reading rows, used by both the
// writer handle and the read-only accessor.
func queryReadings(ctx context.Context, q querier, path, query string, args ...any) ([]StoredReading, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classifySQLiteErr("query", path, err)
	}
	defer rows.Close()

	var out []StoredReading
	for rows.Next() {
		r, err := scanStoredReading(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		out = append(out, r)
	}
	return out, classifySQLiteErr("query", path, rows.Err())
}
