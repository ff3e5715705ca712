package sensorlog

import (
	"log/slog"
	"time"
)

// Config defines writer-handle configuration.
type Config struct {
	// PreserveExisting keeps a pre-existing database at the target path.
	// When false (the default), any prior main file and its side-log
	// artifacts are deleted at open so every run starts clean.
	PreserveExisting bool

	// Batch holds batching thresholds for the write path.
	Batch BatchConfig

	// Checkpoint holds WAL checkpoint cadence settings.
	Checkpoint CheckpointConfig

	// Pragmas holds SQLite durability/performance configuration. These are
	// throughput trade-offs, not correctness requirements.
	Pragmas PragmaConfig

	// Logger receives structured diagnostics. Defaults to slog.Default().
	// Logging never influences control flow.
	Logger *slog.Logger
}

// BatchConfig groups batch buffer thresholds.
type BatchConfig struct {
	// Size is the buffered-reading count that triggers a flush.
	// Default: 50.
	Size int

	// Timeout is the maximum buffer age before a flush is triggered, so a
	// slow sensor never waits indefinitely for a full batch.
	// Default: 10s.
	Timeout time.Duration
}

// CheckpointConfig groups WAL checkpoint settings.
type CheckpointConfig struct {
	// EveryNFlushes triggers a passive checkpoint after every Nth
	// successful flush, amortizing checkpoint cost against write volume.
	// Default: 10.
	EveryNFlushes int
}

// PragmaConfig groups SQLite connection pragmas applied at open.
type PragmaConfig struct {
	// JournalMode sets the journal mode. Default: WAL.
	JournalMode string

	// Synchronous sets the synchronous flush level. Default: NORMAL.
	Synchronous string

	// CacheSizeKB is the page cache budget in kibibytes. Default: 64000.
	CacheSizeKB int

	// TempStore places temporary tables and indices. Default: MEMORY.
	TempStore string

	// MmapSize is the memory-mapped I/O ceiling in bytes. Default: 128MB.
	MmapSize int64

	// BusyTimeout is how long the engine waits on a locked store before
	// surfacing a busy error. Default: 5s.
	BusyTimeout time.Duration
}

// DefaultConfig returns a configuration tuned for write throughput over
// maximal crash-safety, matching the defaults external tooling expects.
func DefaultConfig() Config {
	return Config{
		Batch: BatchConfig{
			Size:    50,
			Timeout: 10 * time.Second,
		},
		Checkpoint: CheckpointConfig{
			EveryNFlushes: 10,
		},
		Pragmas: PragmaConfig{
			JournalMode: "WAL",
			Synchronous: "NORMAL",
			CacheSizeKB: 64000,
			TempStore:   "MEMORY",
			MmapSize:    128 * 1024 * 1024,
			BusyTimeout: 5 * time.Second,
		},
	}
}

// normalize fills zero values with defaults.
func (c *Config) normalize() {
	if c.Batch.Size <= 0 {
		c.Batch.Size = 50
	}
	if c.Batch.Timeout <= 0 {
		c.Batch.Timeout = 10 * time.Second
	}
	if c.Checkpoint.EveryNFlushes <= 0 {
		c.Checkpoint.EveryNFlushes = 10
	}
	if c.Pragmas.JournalMode == "" {
		c.Pragmas.JournalMode = "WAL"
	}
	if c.Pragmas.Synchronous == "" {
		c.Pragmas.Synchronous = "NORMAL"
	}
	if c.Pragmas.CacheSizeKB <= 0 {
		c.Pragmas.CacheSizeKB = 64000
	}
	if c.Pragmas.TempStore == "" {
		c.Pragmas.TempStore = "MEMORY"
	}
	if c.Pragmas.MmapSize <= 0 {
		c.Pragmas.MmapSize = 128 * 1024 * 1024
	}
	if c.Pragmas.BusyTimeout <= 0 {
		c.Pragmas.BusyTimeout = 5 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
