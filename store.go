package sensorlog

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Store is the single live writer handle for a sensor store. Exactly one
// Store may hold write access to a given file at a time; creating a second
// concurrently is a caller error, not a supported mode.
//
// Lifecycle: Open → append/flush loop → Close (final flush, then final
// checkpoint, then release). There is no transition back from closed.
type Store struct {
	path   string
	cfg    Config
	db     *sql.DB
	logger *slog.Logger

	mu     sync.Mutex
	buf    batchBuffer
	closed bool

	// commitSeq counts successful flush transactions since open and drives
	// the passive checkpoint cadence. Incremented only by the flush path.
	commitSeq     uint64
	totalInserted uint64
	totalBatches  uint64

	hub     *LiveHub
	metrics *Metrics
}

// Open opens or creates a sensor store at path. When cfg.PreserveExisting
// is false any prior database and its side-log artifacts are deleted first.
// Open either fully succeeds or fails atomically; a handle that fails to
// open never reaches a half-usable state.
func Open(path string, cfg Config) (*Store, error) {
	if path == "" {
		return nil, errors.New("path is required")
	}
	cfg.normalize()

	if !cfg.PreserveExisting {
		if err := removeExisting(path); err != nil {
			return nil, err
		}
	}
	if err := ensureParentDir(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	// Single connection: SQLite supports one writer, and the batch buffer
	// already serializes the write path.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(db, cfg.Pragmas); err != nil {
		_ = db.Close()
		return nil, classifySQLiteErr("open", path, err)
	}
	if err := initSchema(db, path); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{
		path:   path,
		cfg:    cfg,
		db:     db,
		logger: cfg.Logger,
		buf:    newBatchBuffer(cfg.Batch.Size, time.Now()),
	}
	s.logger.Info("sensor store opened",
		"path", path,
		"batch_size", cfg.Batch.Size,
		"batch_timeout", cfg.Batch.Timeout,
		"preserve_existing", cfg.PreserveExisting)
	return s, nil
}

// Path returns the store file path.
func (s *Store) Path() string { return s.path }

// DB returns the underlying connection for direct queries. Use with
// caution: the store owns the write path.
func (s *Store) DB() *sql.DB { return s.db }

// AttachHub streams every successfully flushed batch to h.
func (s *Store) AttachHub(h *LiveHub) {
	s.mu.Lock()
	s.hub = h
	s.mu.Unlock()
}

// AttachMetrics exports writer counters through m.
func (s *Store) AttachMetrics(m *Metrics) {
	s.mu.Lock()
	s.metrics = m
	s.mu.Unlock()
}

// Append validates a reading, queues it, and flushes the buffer when it has
// reached the size threshold or aged past the batch timeout. The reading is
// owned by the buffer until flushed; after that it lives only in the file.
func (s *Store) Append(r Reading) error {
	if err := r.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	s.buf.append(r)
	if s.buf.shouldFlush(time.Now(), s.cfg.Batch.Size, s.cfg.Batch.Timeout) {
		_, err := s.flushLocked()
		return err
	}
	return nil
}

// Flush writes all buffered readings in one transaction and returns the
// number persisted. A no-op returning 0 on an empty buffer. On failure the
// buffer is preserved so a retry loses nothing.
func (s *Store) Flush() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	return s.flushLocked()
}

// Buffered returns the number of readings queued but not yet persisted.
func (s *Store) Buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.len()
}

func (s *Store) flushLocked() (int, error) {
	batch := s.buf.take()
	if len(batch) == 0 {
		return 0, nil
	}

	if err := s.insertBatch(batch); err != nil {
		err = classifySQLiteErr("flush", s.path, err)
		if s.metrics != nil {
			s.metrics.FlushErrors.Inc()
		}
		return 0, &FlushError{Pending: len(batch), Cause: err}
	}

	count := len(batch)
	s.commitSeq++
	s.totalInserted += uint64(count)
	s.totalBatches++
	if s.metrics != nil {
		s.metrics.ReadingsInserted.Add(float64(count))
		s.metrics.BatchesFlushed.Inc()
	}
	if s.hub != nil {
		published := make([]Reading, count)
		copy(published, batch)
		s.hub.Publish(published)
	}
	s.buf.clear(time.Now())

	// Amortize checkpoint cost against write volume. Best-effort: the
	// writer keeps making progress even when a reader momentarily blocks
	// the checkpoint.
	if s.commitSeq%uint64(s.cfg.Checkpoint.EveryNFlushes) == 0 {
		if err := s.checkpointLocked(CheckpointPassive); err != nil {
			s.logger.Warn("passive checkpoint skipped", "error", err)
			if s.metrics != nil {
				s.metrics.CheckpointErrors.Inc()
			}
		}
	}
	return count, nil
}

// insertBatch executes the bulk insert atomically: all readings persist or
// none do.
func (s *Store) insertBatch(batch []Reading) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(insertSQL())
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range batch {
		if _, err := stmt.Exec(batch[i].insertArgs()...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Close flushes any buffered readings, folds the write-ahead log into the
// main file with a truncating checkpoint, and releases the handle. The
// handle always ends closed; a final-flush failure is still returned so
// data loss is never silent, while a final-checkpoint failure is only
// logged (an accepted durability gap, never a silent success).
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var flushErr error
	if _, err := s.flushLocked(); err != nil {
		flushErr = err
		s.logger.Error("final flush failed", "error", err, "buffered", s.buf.len())
	}

	if s.path != MemoryPath {
		if err := s.checkpointLocked(CheckpointTruncate); err != nil {
			s.logger.Error("final checkpoint failed", "error", err)
			if s.metrics != nil {
				s.metrics.CheckpointErrors.Inc()
			}
		}
	}

	closeErr := s.db.Close()
	s.logger.Info("sensor store closed",
		"path", s.path,
		"total_inserted", s.totalInserted,
		"total_batches", s.totalBatches)

	if flushErr != nil {
		return flushErr
	}
	return closeErr
}
