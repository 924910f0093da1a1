package oplog

import (
	"errors"
	"os"
)

// Compactor deletes segments whose records have all been replayed. The
// newest segment is always retained; the writer appends to it.
type Compactor struct {
	dir string
}

// NewCompactor returns a compactor for the given journal directory.
func NewCompactor(dir string) *Compactor {
	return &Compactor{dir: dir}
}

// Compact removes every non-newest segment whose last sequence is at or
// below replayedSeq. It returns the number of segments deleted.
func (c *Compactor) Compact(replayedSeq uint64) (int, error) {
	segs, err := listSegments(c.dir)
	if err != nil {
		return 0, err
	}
	if len(segs) <= 1 {
		return 0, nil
	}

	var (
		deleted int
		errs    []error
	)
	for _, seg := range segs[:len(segs)-1] {
		info, err := scanSegment(seg.path)
		// A segment with no readable records replays nothing, so it is
		// safe to delete.
		if err == nil && info.lastSeq > replayedSeq {
			continue
		}
		if err := os.Remove(seg.path); err != nil {
			errs = append(errs, err)
			continue
		}
		deleted++
	}
	return deleted, errors.Join(errs...)
}

// TotalSize returns the combined size in bytes of all segments.
func (c *Compactor) TotalSize() (int64, error) {
	segs, err := listSegments(c.dir)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, seg := range segs {
		stat, err := os.Stat(seg.path)
		if err != nil {
			return 0, err
		}
		total += stat.Size()
	}
	return total, nil
}

// FileCount returns the number of segment files.
func (c *Compactor) FileCount() (int, error) {
	segs, err := listSegments(c.dir)
	if err != nil {
		return 0, err
	}
	return len(segs), nil
}
