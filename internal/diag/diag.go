// Package diag keeps one diagnostic log file per structuring process and
// serves it back for inspection.
package diag

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/leofalp/textstruct/providers/observability"
	"github.com/leofalp/textstruct/providers/observability/slogobs"
)

var (
	// ErrNotFound is returned by Read when no log exists for the process.
	ErrNotFound = errors.New("debug info not found")
	// ErrInvalidID is returned for process IDs that are not UUIDs.
	ErrInvalidID = errors.New("invalid process id")
)

// Store keeps diagnostic logs as <Dir>/<processID>.log.
type Store struct {
	Dir string
}

// NewStore returns a Store rooted at dir, creating the directory if needed.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("diag: empty log directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("diag: creating log directory: %w", err)
	}
	return &Store{Dir: dir}, nil
}

// Entry is the stored log of one process.
type Entry struct {
	Content      string
	LastModified time.Time
}

// Log is an open diagnostic log. Its Logger is safe for concurrent use.
type Log struct {
	*slog.Logger
	file *os.File
}

// Close closes the underlying file.
func (l *Log) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Open creates (or appends to) the log of processID and records the start of
// the process in it.
func (s *Store) Open(processID string) (*Log, error) {
	path, err := s.path(processID)
	if err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("diag: opening log: %w", err)
	}

	handler := slogobs.NewHandler(&slogobs.HandlerOptions{
		Format: slogobs.FormatCompact,
		Level:  slog.LevelDebug,
		Output: file,
	})
	log := &Log{Logger: slog.New(handler), file: file}
	log.Info("Process started", observability.AttrProcessID, processID)
	return log, nil
}

// Read returns the full log of processID.
func (s *Store) Read(processID string) (Entry, error) {
	path, err := s.path(processID)
	if err != nil {
		return Entry{}, err
	}

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("diag: stat log: %w", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return Entry{}, fmt.Errorf("diag: reading log: %w", err)
	}
	return Entry{Content: string(content), LastModified: info.ModTime()}, nil
}

// path maps processID to its file. Only canonical UUIDs are accepted, so the
// result always stays inside Dir.
func (s *Store) path(processID string) (string, error) {
	id, err := uuid.Parse(processID)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, processID)
	}
	return filepath.Join(s.Dir, id.String()+".log"), nil
}

type logKey struct{}

var discard = slog.New(slog.DiscardHandler)

// WithLog returns a copy of ctx carrying log.
func WithLog(ctx context.Context, log *Log) context.Context {
	if log == nil {
		return ctx
	}
	return context.WithValue(ctx, logKey{}, log.Logger)
}

// FromContext returns the diagnostic logger carried by ctx, or a logger that
// discards everything.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(logKey{}).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return discard
}
