package oplog

import (
	"bufio"
	"io"
	"os"
)

// Reader iterates all readable records in a journal directory, oldest
// segment first. Segments with a damaged header and frames past a torn
// tail are skipped.
type Reader struct {
	segments []segmentInfo
	segIndex int

	file     *os.File
	br       *bufio.Reader
	headerOK bool
}

// NewReader opens the journal directory for reading. The segment list is
// fixed at this point; records appended afterwards are not returned.
func NewReader(dir string) (*Reader, error) {
	segs, err := listSegments(dir)
	if err != nil {
		return nil, err
	}
	return &Reader{segments: segs}, nil
}

// Read returns the next record, or io.EOF when the journal is exhausted.
func (r *Reader) Read() (*Record, error) {
	for {
		if r.br == nil {
			if r.segIndex >= len(r.segments) {
				return nil, io.EOF
			}
			if err := r.openNextSegment(); err != nil {
				// An unopenable segment contributes no records.
				r.closeCurrent()
				continue
			}
		}

		if !r.headerOK {
			if err := r.readHeader(); err != nil {
				r.closeCurrent()
				continue
			}
			r.headerOK = true
		}

		rec, _, err := readFrame(r.br)
		if err != nil {
			// A torn or corrupt frame ends this segment; later frames
			// cannot be trusted to start on a boundary.
			r.closeCurrent()
			continue
		}
		return rec, nil
	}
}

// ReadAll drains the journal and returns every readable record.
func (r *Reader) ReadAll() ([]*Record, error) {
	var recs []*Record
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return recs, nil
		}
		if err != nil {
			return recs, err
		}
		recs = append(recs, rec)
	}
}

// Close releases the currently open segment file.
func (r *Reader) Close() error {
	r.closeCurrent()
	return nil
}

func (r *Reader) openNextSegment() error {
	f, err := os.Open(r.segments[r.segIndex].path)
	if err != nil {
		return err
	}
	r.file = f
	r.br = bufio.NewReader(f)
	r.headerOK = false
	return nil
}

func (r *Reader) readHeader() error {
	magic := make([]byte, len(MagicBytes))
	if _, err := io.ReadFull(r.br, magic); err != nil {
		return err
	}
	if string(magic) != MagicBytes {
		return errInvalidMagic
	}
	return nil
}

func (r *Reader) closeCurrent() {
	if r.file != nil {
		r.file.Close()
		r.file = nil
	}
	r.br = nil
	r.headerOK = false
	r.segIndex++
}
