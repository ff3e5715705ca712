package sensorlog

import "fmt"

// CheckpointMode selects how aggressively the write-ahead log is folded
// back into the main file.
type CheckpointMode int

const (
	// CheckpointPassive folds in as much of the log as it can without
	// blocking on concurrent readers. Best-effort by design.
	CheckpointPassive CheckpointMode = iota

	// CheckpointTruncate blocks until the whole log is folded in, then
	// shrinks the log to empty. Used on Close so a process that opens the
	// main file alone sees complete data.
	CheckpointTruncate
)

func (m CheckpointMode) String() string {
	switch m {
	case CheckpointPassive:
		return "passive"
	case CheckpointTruncate:
		return "truncate"
	}
	return "unknown"
}

func (m CheckpointMode) pragma() string {
	switch m {
	case CheckpointTruncate:
		return "PRAGMA wal_checkpoint(TRUNCATE)"
	default:
		return "PRAGMA wal_checkpoint(PASSIVE)"
	}
}

// Checkpoint folds the write-ahead log into the main file so processes
// that only ever open the main file see complete, durable data. Callers
// normally rely on the store's own cadence; this is for tooling that needs
// an explicit fold-in point.
func (s *Store) Checkpoint(mode CheckpointMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.checkpointLocked(mode)
}

// checkpointLocked runs the checkpoint pragma on the writer connection.
// SQLite reports (busy, logFrames, checkpointed); busy=1 with a passive
// mode means a reader held the log and the attempt should simply be
// retried on the next cycle.
func (s *Store) checkpointLocked(mode CheckpointMode) error {
	if s.path == MemoryPath {
		return nil // no log to fold for the in-memory sentinel
	}

	var busy, logFrames, checkpointed int
	err := s.db.QueryRow(mode.pragma()).Scan(&busy, &logFrames, &checkpointed)
	if err != nil {
		return &CheckpointError{Mode: mode, Cause: classifySQLiteErr("checkpoint", s.path, err)}
	}
	if busy != 0 && mode == CheckpointTruncate {
		return &CheckpointError{Mode: mode, Cause: fmt.Errorf("log held by a concurrent reader (%d of %d frames checkpointed)", checkpointed, logFrames)}
	}

	s.logger.Debug("wal checkpoint",
		"mode", mode.String(),
		"busy", busy != 0,
		"log_frames", logFrames,
		"checkpointed", checkpointed)
	return nil
}
