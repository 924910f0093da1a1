package oplog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/yndnr/syncmesh-go/internal/telemetry/logger"
	"github.com/yndnr/syncmesh-go/internal/telemetry/metric"
)

// Default configuration values.
const (
	DefaultMaxFileSize int64 = 16 << 20
	DefaultMaxRecords        = 8192
)

// Config configures the journal.
type Config struct {
	// Dir is the journal directory. Required.
	Dir string

	// MaxFileSize rotates the active segment when it would exceed this
	// many bytes. Zero means DefaultMaxFileSize.
	MaxFileSize int64

	// MaxRecords rotates the active segment at this record count. Zero
	// means DefaultMaxRecords.
	MaxRecords int

	// Logger receives journal diagnostics. Nil means the process default.
	Logger logger.Logger

	// Metrics receives journal instrumentation. Nil disables it.
	Metrics *metric.Registry
}

// Writer appends records to segment files. Every append is synced to
// disk before it returns.
type Writer struct {
	dir         string
	maxFileSize int64
	maxRecords  int

	mu        sync.Mutex
	file      *os.File
	segmentID uint64
	fileSize  int64
	records   int
	nextSeq   uint64
	closed    bool
}

// NewWriter opens the journal directory for appending. It resumes the
// newest segment when it has room, truncating any torn tail a crash left
// behind, and otherwise starts a fresh segment.
func NewWriter(cfg Config) (*Writer, error) {
	if cfg.Dir == "" {
		return nil, errors.New("oplog: dir is required")
	}
	if err := os.MkdirAll(cfg.Dir, DefaultDirPerm); err != nil {
		return nil, fmt.Errorf("oplog: create dir: %w", err)
	}

	w := &Writer{
		dir:         cfg.Dir,
		maxFileSize: cfg.MaxFileSize,
		maxRecords:  cfg.MaxRecords,
	}
	if w.maxFileSize <= 0 {
		w.maxFileSize = DefaultMaxFileSize
	}
	if w.maxRecords <= 0 {
		w.maxRecords = DefaultMaxRecords
	}

	segs, err := listSegments(cfg.Dir)
	if err != nil {
		return nil, err
	}

	// The sequence must continue past every record on disk, including
	// ones in older segments.
	for _, seg := range segs {
		info, err := scanSegment(seg.path)
		if err != nil {
			continue
		}
		if info.lastSeq > w.nextSeq {
			w.nextSeq = info.lastSeq
		}
	}

	if len(segs) == 0 {
		w.segmentID = 1
		return w, w.openNewSegment()
	}

	last := segs[len(segs)-1]
	info, err := scanSegment(last.path)
	if err != nil {
		// The newest segment is unreadable; leave it for the reader to
		// skip and start a fresh one.
		w.segmentID = last.id + 1
		return w, w.openNewSegment()
	}
	if info.validLen >= w.maxFileSize || info.records >= w.maxRecords {
		w.segmentID = last.id + 1
		return w, w.openNewSegment()
	}

	w.segmentID = last.id
	return w, w.openExistingSegment(last.path, info)
}

// Append assigns the next sequence number, writes the record, and syncs
// it to disk. It returns the assigned sequence.
func (w *Writer) Append(rec Record) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, ErrWriterClosed
	}

	rec.Seq = w.nextSeq + 1
	if rec.Timestamp == 0 {
		rec.Timestamp = time.Now().UnixMilli()
	}

	frame, err := encodeFrame(&rec)
	if err != nil {
		return 0, err
	}

	if w.fileSize+int64(len(frame)) > w.maxFileSize || w.records+1 > w.maxRecords {
		if err := w.rotateLocked(); err != nil {
			return 0, err
		}
	}

	if _, err := w.file.Write(frame); err != nil {
		return 0, fmt.Errorf("oplog: write record: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return 0, fmt.Errorf("oplog: sync: %w", err)
	}

	w.fileSize += int64(len(frame))
	w.records++
	w.nextSeq = rec.Seq
	return rec.Seq, nil
}

// Close syncs and closes the active segment. Further appends fail with
// ErrWriterClosed.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if w.file == nil {
		return nil
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("oplog: close segment: %w", err)
	}
	w.file = nil
	return nil
}

func (w *Writer) rotateLocked() error {
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("oplog: close segment: %w", err)
	}
	w.segmentID++
	return w.openNewSegment()
}

func (w *Writer) openNewSegment() error {
	path := filepath.Join(w.dir, segmentFilename(w.segmentID))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, DefaultFilePerm)
	if err != nil {
		return fmt.Errorf("oplog: create segment: %w", err)
	}
	if _, err := f.Write([]byte(MagicBytes)); err != nil {
		f.Close()
		return fmt.Errorf("oplog: write header: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("oplog: sync header: %w", err)
	}

	w.file = f
	w.fileSize = int64(len(MagicBytes))
	w.records = 0
	return nil
}

func (w *Writer) openExistingSegment(path string, info segmentScan) error {
	f, err := os.OpenFile(path, os.O_RDWR, DefaultFilePerm)
	if err != nil {
		return fmt.Errorf("oplog: open segment: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("oplog: stat segment: %w", err)
	}

	// Drop a torn tail so new frames start on a clean boundary.
	if stat.Size() > info.validLen {
		if err := f.Truncate(info.validLen); err != nil {
			f.Close()
			return fmt.Errorf("oplog: truncate torn tail: %w", err)
		}
	}
	if _, err := f.Seek(info.validLen, io.SeekStart); err != nil {
		f.Close()
		return fmt.Errorf("oplog: seek: %w", err)
	}

	w.file = f
	w.fileSize = info.validLen
	w.records = info.records
	return nil
}
