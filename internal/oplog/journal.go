package oplog

import (
	"context"
	"io"
	"sync"

	"github.com/yndnr/syncmesh-go/internal/telemetry/logger"
	"github.com/yndnr/syncmesh-go/internal/telemetry/metric"
)

// Journal combines the writer, the replay cursor, and the compactor
// behind one handle. Operations that cannot reach any endpoint are
// appended here and replayed once connectivity returns.
type Journal struct {
	dir     string
	w       *Writer
	comp    *Compactor
	metrics *metric.Registry
	log     logger.Logger

	mu      sync.Mutex
	cursor  uint64
	pending int
}

// Open opens or creates the journal in cfg.Dir.
func Open(cfg Config) (*Journal, error) {
	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}

	w, err := NewWriter(cfg)
	if err != nil {
		return nil, err
	}

	cursor, err := loadCursor(cfg.Dir)
	if err != nil {
		// An unreadable cursor is not fatal; replay starts from the
		// beginning and delivery becomes at-least-once.
		log.Warn("journal cursor unreadable, replaying from the start", "error", err)
		cursor = 0
	}

	j := &Journal{
		dir:     cfg.Dir,
		w:       w,
		comp:    NewCompactor(cfg.Dir),
		metrics: cfg.Metrics,
		log:     log,
		cursor:  cursor,
	}

	pending, err := j.countPending()
	if err != nil {
		w.Close()
		return nil, err
	}
	j.pending = pending
	j.metrics.SetJournalPending(pending)

	log.Info("operation journal opened", "dir", cfg.Dir, "pending", pending)
	return j, nil
}

// Append journals one record and returns its sequence number.
func (j *Journal) Append(rec Record) (uint64, error) {
	seq, err := j.w.Append(rec)
	if err != nil {
		return 0, err
	}
	j.metrics.IncJournalAppended()

	j.mu.Lock()
	j.pending++
	pending := j.pending
	j.mu.Unlock()
	j.metrics.SetJournalPending(pending)

	j.log.Debug("operation journaled",
		"seq", seq,
		"bucket", rec.Bucket,
		"key", rec.Key,
	)
	return seq, nil
}

// Pending returns the number of journaled records not yet replayed.
func (j *Journal) Pending() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.pending
}

// Replay delivers journaled records past the cursor to send, in append
// order. The cursor advances after each successful delivery, so a replay
// interrupted by an error or a crash resumes where it stopped. Records
// appended while a replay runs are picked up by the next one.
func (j *Journal) Replay(ctx context.Context, send func(context.Context, *Record) error) (int, error) {
	j.mu.Lock()
	cursor := j.cursor
	j.mu.Unlock()

	r, err := NewReader(j.dir)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	delivered := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			j.finishReplay(cursor, delivered)
			return delivered, err
		}
		if rec.Seq <= cursor {
			continue
		}
		if err := ctx.Err(); err != nil {
			j.finishReplay(cursor, delivered)
			return delivered, err
		}

		if err := send(ctx, rec); err != nil {
			j.finishReplay(cursor, delivered)
			return delivered, err
		}

		cursor = rec.Seq
		delivered++
		if err := storeCursor(j.dir, cursor); err != nil {
			j.log.Warn("persisting journal cursor failed", "error", err)
		}
		j.metrics.AddJournalReplayed(1)
	}

	j.finishReplay(cursor, delivered)
	return delivered, nil
}

// Close closes the journal writer.
func (j *Journal) Close() error {
	return j.w.Close()
}

func (j *Journal) finishReplay(cursor uint64, delivered int) {
	if delivered == 0 {
		return
	}

	if _, err := j.comp.Compact(cursor); err != nil {
		j.log.Warn("journal compaction failed", "error", err)
	}

	j.mu.Lock()
	j.cursor = cursor
	j.pending -= delivered
	if j.pending < 0 {
		j.pending = 0
	}
	pending := j.pending
	j.mu.Unlock()
	j.metrics.SetJournalPending(pending)

	j.log.Info("journal replay delivered", "count", delivered, "cursor", cursor)
}

func (j *Journal) countPending() (int, error) {
	r, err := NewReader(j.dir)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	count := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return count, nil
		}
		if err != nil {
			return count, err
		}
		if rec.Seq > j.cursor {
			count++
		}
	}
}
