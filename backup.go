package sensorlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/golang/snappy"
)

// BackupConfig configures snapshot backups of the store file.
type BackupConfig struct {
	// DestinationPath is the local directory for backup files and the
	// manifest.
	DestinationPath string

	// Compression enables snappy framing for backup files.
	Compression bool

	// RetentionCount is the number of local backups to retain.
	// Default: 10.
	RetentionCount int

	// Uploader, when set, also copies each backup to remote storage.
	Uploader Uploader

	// Logger receives structured diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// Uploader copies backup files to remote storage. Upload returns the
// remote key the file was stored under.
type Uploader interface {
	Upload(ctx context.Context, name string, body io.Reader) (string, error)
}

// BackupRecord describes one completed backup.
type BackupRecord struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Size       int64     `json:"size"`
	Compressed bool      `json:"compressed"`
	FilePath   string    `json:"file_path"`
	RemoteKey  string    `json:"remote_key,omitempty"`
}

// BackupManifest tracks backup history.
type BackupManifest struct {
	LastBackup time.Time      `json:"last_backup"`
	Backups    []BackupRecord `json:"backups"`
}

// BackupManager produces consistent snapshots of a live store. Snapshots
// are taken with VACUUM INTO, which runs as an ordinary read transaction on
// the writer connection — the write-ahead log is folded into the snapshot,
// so the copy is complete even when the main file lags.
type BackupManager struct {
	store  *Store
	cfg    BackupConfig
	logger *slog.Logger

	mu       sync.Mutex
	manifest BackupManifest
}

const manifestName = "manifest.json"

// NewBackupManager creates a backup manager, loading any existing manifest
// from the destination directory.
func NewBackupManager(store *Store, cfg BackupConfig) (*BackupManager, error) {
	if cfg.DestinationPath == "" {
		return nil, errors.New("backup destination is required")
	}
	if store.Path() == MemoryPath {
		return nil, errors.New("an in-memory store cannot be backed up")
	}
	if cfg.RetentionCount <= 0 {
		cfg.RetentionCount = 10
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if err := os.MkdirAll(cfg.DestinationPath, 0o755); err != nil {
		return nil, fmt.Errorf("create backup directory: %w", err)
	}

	bm := &BackupManager{store: store, cfg: cfg, logger: cfg.Logger}
	if err := bm.loadManifest(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load backup manifest: %w", err)
	}
	return bm, nil
}

// Backup snapshots the store into the destination directory, optionally
// uploads it, records it in the manifest, and prunes past retention.
func (bm *BackupManager) Backup(ctx context.Context) (*BackupRecord, error) {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	start := time.Now()
	id := fmt.Sprintf("backup_%d", start.UnixNano())

	tmpPath := filepath.Join(bm.cfg.DestinationPath, id+".snapshot")
	if err := bm.store.Snapshot(tmpPath); err != nil {
		return nil, err
	}
	defer os.Remove(tmpPath)

	filename := id + ".db"
	if bm.cfg.Compression {
		filename += ".sz"
	}
	destPath := filepath.Join(bm.cfg.DestinationPath, filename)
	size, err := bm.writeBackupFile(tmpPath, destPath)
	if err != nil {
		_ = os.Remove(destPath)
		return nil, err
	}

	record := BackupRecord{
		ID:         id,
		Timestamp:  start,
		Size:       size,
		Compressed: bm.cfg.Compression,
		FilePath:   destPath,
	}

	if bm.cfg.Uploader != nil {
		f, err := os.Open(destPath)
		if err != nil {
			_ = os.Remove(destPath)
			return nil, err
		}
		key, err := bm.cfg.Uploader.Upload(ctx, filename, f)
		_ = f.Close()
		if err != nil {
			// A failed backup leaves nothing behind: the local file is
			// not in the manifest, so retention could never prune it.
			_ = os.Remove(destPath)
			return nil, fmt.Errorf("upload backup: %w", err)
		}
		record.RemoteKey = key
	}

	bm.manifest.LastBackup = start
	bm.manifest.Backups = append(bm.manifest.Backups, record)
	bm.pruneLocked()
	if err := bm.saveManifest(); err != nil {
		return nil, err
	}

	bm.logger.Info("backup complete",
		"id", id,
		"size", size,
		"compressed", record.Compressed,
		"remote_key", record.RemoteKey,
		"duration", time.Since(start))
	return &record, nil
}

// Restore writes the backup identified by id to targetPath, decompressing
// if needed. The target must not be an open store.
func (bm *BackupManager) Restore(id, targetPath string) error {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	var record *BackupRecord
	for i := range bm.manifest.Backups {
		if bm.manifest.Backups[i].ID == id {
			record = &bm.manifest.Backups[i]
			break
		}
	}
	if record == nil {
		return fmt.Errorf("backup %q not found in manifest", id)
	}

	src, err := os.Open(record.FilePath)
	if err != nil {
		return fmt.Errorf("open backup: %w", err)
	}
	defer src.Close()

	var reader io.Reader = src
	if record.Compressed {
		reader = snappy.NewReader(src)
	}

	dst, err := os.OpenFile(targetPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create restore target: %w", err)
	}
	if _, err := io.Copy(dst, reader); err != nil {
		_ = dst.Close()
		return fmt.Errorf("restore backup: %w", err)
	}
	return dst.Close()
}

// Manifest returns a copy of the current manifest.
func (bm *BackupManager) Manifest() BackupManifest {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	out := bm.manifest
	out.Backups = append([]BackupRecord(nil), bm.manifest.Backups...)
	return out
}

func (bm *BackupManager) writeBackupFile(srcPath, destPath string) (int64, error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return 0, fmt.Errorf("open snapshot: %w", err)
	}
	defer src.Close()

	dst, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create backup file: %w", err)
	}

	var w io.Writer = dst
	var sw *snappy.Writer
	if bm.cfg.Compression {
		sw = snappy.NewBufferedWriter(dst)
		w = sw
	}
	if _, err := io.Copy(w, src); err != nil {
		_ = dst.Close()
		return 0, fmt.Errorf("write backup: %w", err)
	}
	if sw != nil {
		if err := sw.Close(); err != nil {
			_ = dst.Close()
			return 0, fmt.Errorf("finish compression: %w", err)
		}
	}
	if err := dst.Close(); err != nil {
		return 0, err
	}

	fi, err := os.Stat(destPath)
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// pruneLocked removes the oldest backups past the retention count.
func (bm *BackupManager) pruneLocked() {
	sort.Slice(bm.manifest.Backups, func(i, j int) bool {
		return bm.manifest.Backups[i].Timestamp.Before(bm.manifest.Backups[j].Timestamp)
	})
	for len(bm.manifest.Backups) > bm.cfg.RetentionCount {
		oldest := bm.manifest.Backups[0]
		if err := os.Remove(oldest.FilePath); err != nil && !os.IsNotExist(err) {
			bm.logger.Warn("prune backup failed", "id", oldest.ID, "error", err)
		}
		bm.manifest.Backups = bm.manifest.Backups[1:]
	}
}

func (bm *BackupManager) manifestPath() string {
	return filepath.Join(bm.cfg.DestinationPath, manifestName)
}

func (bm *BackupManager) loadManifest() error {
	data, err := os.ReadFile(bm.manifestPath())
	if err != nil {
		return err
	}
	return json.Unmarshal(data, &bm.manifest)
}

func (bm *BackupManager) saveManifest() error {
	data, err := json.MarshalIndent(bm.manifest, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(bm.manifestPath(), data, 0o644)
}

// Snapshot writes a consistent copy of the store to destPath using VACUUM
// INTO. Safe while the writer is active; buffered-but-unflushed readings
// are not included.
func (s *Store) Snapshot(destPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, err := s.db.Exec("VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("snapshot store: %w", classifySQLiteErr("snapshot", s.path, err))
	}
	return nil
}
