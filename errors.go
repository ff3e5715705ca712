package sensorlog

import (
	"errors"
	"fmt"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Common sentinel errors for the sensorlog package.
var (
	// ErrClosed is returned when operations are attempted on a closed store.
	ErrClosed = errors.New("store is closed")

	// ErrInvalidReading is returned when a reading fails validation.
	ErrInvalidReading = errors.New("invalid reading")

	// ErrStoreBusy marks a transient contention condition: the store is
	// locked by an in-progress transaction and the operation should be
	// retried with backoff.
	ErrStoreBusy = errors.New("store busy")

	// ErrNotAStore marks a fatal open-time condition: the target file
	// exists but is not a valid SQLite store. Never retried automatically.
	ErrNotAStore = errors.New("file is not a valid sensor store")

	// ErrReadOnlyStore is returned when a write is issued against a handle
	// opened read-only. Distinct from ErrStoreBusy: this handle can never
	// write.
	ErrReadOnlyStore = errors.New("write attempted on read-only store")
)

// SchemaError indicates the target path exists but is not a valid or
// compatible store. Fatal at open time.
type SchemaError struct {
	Path  string
	Cause error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("not a valid store [%s]: %v", e.Path, e.Cause)
}

func (e *SchemaError) Unwrap() error { return e.Cause }

// Is implements error matching for SchemaError.
func (e *SchemaError) Is(target error) bool { return target == ErrNotAStore }

// BusyError indicates transient lock contention. Expected under concurrent
// read load; callers should retry rather than treat it as fatal.
type BusyError struct {
	Op    string
	Cause error
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("store busy during %s: %v", e.Op, e.Cause)
}

func (e *BusyError) Unwrap() error { return e.Cause }

// Is implements error matching for BusyError.
func (e *BusyError) Is(target error) bool { return target == ErrStoreBusy }

// FlushError indicates a batch insert transaction failed. The buffer is
// preserved, so the caller may retry without data loss.
type FlushError struct {
	// Pending is the number of readings still buffered.
	Pending int
	Cause   error
}

func (e *FlushError) Error() string {
	return fmt.Sprintf("flush of %d readings failed (buffer preserved): %v", e.Pending, e.Cause)
}

func (e *FlushError) Unwrap() error { return e.Cause }

// CheckpointError indicates a WAL checkpoint attempt failed. Passive
// checkpoint failures are logged and swallowed by the store; the close-time
// checkpoint failure is logged but does not block shutdown.
type CheckpointError struct {
	Mode  CheckpointMode
	Cause error
}

func (e *CheckpointError) Error() string {
	return fmt.Sprintf("%s checkpoint failed: %v", e.Mode, e.Cause)
}

func (e *CheckpointError) Unwrap() error { return e.Cause }

// classifySQLiteErr maps driver errors onto the package taxonomy. Errors
// that fit no category are returned unchanged.
func classifySQLiteErr(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return err
	}
	switch se.Code() & 0xff { // primary result code
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return &BusyError{Op: op, Cause: err}
	case sqlite3.SQLITE_NOTADB, sqlite3.SQLITE_CORRUPT:
		return &SchemaError{Path: path, Cause: err}
	case sqlite3.SQLITE_READONLY:
		return fmt.Errorf("%w: %v", ErrReadOnlyStore, err)
	}
	return err
}
