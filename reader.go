package sensorlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ReaderConfig configures a read-only accessor.
type ReaderConfig struct {
	// BusyTimeout is the engine-level wait on a locked store before a busy
	// error surfaces to the retry loop. Default: 2s.
	BusyTimeout time.Duration

	// MaxAttempts bounds retries for transient conditions. Busy errors and
	// open-time "not a database" races both count against it; real
	// corruption is not retried indefinitely. Default: 5.
	MaxAttempts int

	// RetryBackoff is the initial sleep between attempts, doubled each
	// retry. Default: 100ms.
	RetryBackoff time.Duration

	// Logger receives structured diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultReaderConfig returns the retry discipline expected of external
// observers.
func DefaultReaderConfig() ReaderConfig {
	return ReaderConfig{
		BusyTimeout:  2 * time.Second,
		MaxAttempts:  5,
		RetryBackoff: 100 * time.Millisecond,
	}
}

func (c *ReaderConfig) normalize() {
	if c.BusyTimeout <= 0 {
		c.BusyTimeout = 2 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 100 * time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Reader is a read-only accessor over a sensor store file. It is the
// in-module implementation of the contract every external observer must
// follow: open read-only with the query-only pragma, retry on busy, treat
// "not a valid store" as distinct from contention, and never write or
// checkpoint. The content it sees may lag the writer's in-memory state by
// up to one unflushed batch interval.
type Reader struct {
	path   string
	cfg    ReaderConfig
	db     *sql.DB
	logger *slog.Logger
}

// OpenReader opens path in explicit read-only, query-only mode. The opener
// probes the store and retries short "not a database" windows, which occur
// when racing the writer's initialization or a checkpoint.
func OpenReader(path string, cfg ReaderConfig) (*Reader, error) {
	if path == "" {
		return nil, errors.New("path is required")
	}
	if path == MemoryPath {
		return nil, errors.New("an in-memory store has no external read surface")
	}
	cfg.normalize()

	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=query_only(1)&_pragma=busy_timeout(%d)",
		path, cfg.BusyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open reader: %w", err)
	}

	r := &Reader{path: path, cfg: cfg, db: db, logger: cfg.Logger}

	// Probe for a readable schema before handing the reader out.
	err = r.withRetry(context.Background(), "open probe", func() error {
		var n int
		return r.db.QueryRow(
			"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'sensor_readings'").
			Scan(&n)
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

// Close releases the reader's connection.
func (r *Reader) Close() error { return r.db.Close() }

// Path returns the store file path.
func (r *Reader) Path() string { return r.path }

// DB returns the underlying read-only connection for direct queries. Any
// write through it surfaces as ErrReadOnlyStore when classified with the
// package taxonomy.
func (r *Reader) DB() *sql.DB { return r.db }

// TotalReadings returns the persisted row count.
func (r *Reader) TotalReadings(ctx context.Context) (int64, error) {
	var total int64
	err := r.withRetry(ctx, "count", func() error {
		return r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sensor_readings").Scan(&total)
	})
	return total, err
}

// AnomalyCount returns the number of persisted readings flagged anomalous.
func (r *Reader) AnomalyCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.withRetry(ctx, "anomaly count", func() error {
		return r.db.QueryRowContext(ctx,
			"SELECT COALESCE(SUM(anomaly_flag), 0) FROM sensor_readings").Scan(&count)
	})
	return count, err
}

// Readings returns persisted readings newest-first.
func (r *Reader) Readings(ctx context.Context, limit, offset int) ([]StoredReading, error) {
	var out []StoredReading
	err := r.withRetry(ctx, "readings", func() error {
		var qerr error
		out, qerr = queryReadings(ctx, r.db, r.path,
			fmt.Sprintf("SELECT %s FROM sensor_readings ORDER BY id DESC LIMIT ? OFFSET ?", selectColumns()),
			limit, offset)
		return qerr
	})
	return out, err
}

// ReadingsBySensor returns persisted readings for one sensor, newest-first.
func (r *Reader) ReadingsBySensor(ctx context.Context, sensorID string, limit int) ([]StoredReading, error) {
	var out []StoredReading
	err := r.withRetry(ctx, "readings by sensor", func() error {
		var qerr error
		out, qerr = queryReadings(ctx, r.db, r.path,
			fmt.Sprintf("SELECT %s FROM sensor_readings WHERE sensor_id = ? ORDER BY id DESC LIMIT ?", selectColumns()),
			sensorID, limit)
		return qerr
	})
	return out, err
}

// withRetry runs fn, retrying transient busy conditions and short
// initialization races with exponential backoff. Corruption and every
// other error return immediately; exhausting the attempt budget returns
// the last classified error.
func (r *Reader) withRetry(ctx context.Context, op string, fn func() error) error {
	backoff := r.cfg.RetryBackoff
	var err error
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		err = classifySQLiteErr(op, r.path, fn())
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrStoreBusy) && !errors.Is(err, ErrNotAStore) {
			return err
		}
		if attempt == r.cfg.MaxAttempts {
			break
		}
		r.logger.Debug("retrying read", "op", op, "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}
