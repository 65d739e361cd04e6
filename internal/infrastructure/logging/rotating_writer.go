package logging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap/zapcore"
)

const defaultMaxSizeMB = 100

var _ zapcore.WriteSyncer = (*RotatingWriter)(nil)

// RotatingWriter is a size-capped log file. On overflow the current file
// moves to path.1 and older backups shift up, dropping any past maxBackups.
type RotatingWriter struct {
	mu         sync.Mutex
	path       string
	limit      int64
	maxBackups int
	file       *os.File
	written    int64
}

func NewRotatingWriter(path string, maxSizeMB, maxBackups int) (*RotatingWriter, error) {
	if path == "" {
		return nil, errors.New("log file path is required")
	}
	if maxSizeMB <= 0 {
		maxSizeMB = defaultMaxSizeMB
	}
	return newRotatingWriter(path, int64(maxSizeMB)<<20, maxBackups)
}

func newRotatingWriter(path string, limit int64, maxBackups int) (*RotatingWriter, error) {
	w := &RotatingWriter{path: path, limit: limit, maxBackups: max(maxBackups, 0)}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	if err := w.open(os.O_APPEND); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		if err := w.open(os.O_APPEND); err != nil {
			return 0, err
		}
	}
	if w.limit > 0 && w.written+int64(len(p)) > w.limit {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := w.file.Write(p)
	w.written += int64(n)
	return n, err
}

// Sync flushes the open file.
func (w *RotatingWriter) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	return w.file.Sync()
}

func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeFile()
}

func (w *RotatingWriter) open(mode int) error {
	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|mode, 0o644)
	if err != nil {
		return err
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return err
	}
	w.file = file
	w.written = info.Size()
	return nil
}

func (w *RotatingWriter) closeFile() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	w.written = 0
	return err
}

func (w *RotatingWriter) rotate() error {
	_ = w.closeFile()
	w.shiftBackups()
	return w.open(os.O_TRUNC)
}

// shiftBackups makes room for the current file as backup 1. Missing backups
// are skipped.
func (w *RotatingWriter) shiftBackups() {
	if w.maxBackups == 0 {
		_ = os.Remove(w.path)
		return
	}
	_ = os.Remove(w.backupPath(w.maxBackups))
	for n := w.maxBackups - 1; n > 0; n-- {
		_ = os.Rename(w.backupPath(n), w.backupPath(n+1))
	}
	_ = os.Rename(w.path, w.backupPath(1))
}

func (w *RotatingWriter) backupPath(n int) string {
	return fmt.Sprintf("%s.%d", w.path, n)
}
