package oplog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

type segmentInfo struct {
	id   uint64
	path string
}

func segmentFilename(id uint64) string {
	return fmt.Sprintf("%s%08d%s", FilePrefix, id, FileExtension)
}

func parseSegmentFilename(name string) (uint64, bool) {
	if len(name) <= len(FilePrefix)+len(FileExtension) {
		return 0, false
	}
	if name[:len(FilePrefix)] != FilePrefix || name[len(name)-len(FileExtension):] != FileExtension {
		return 0, false
	}
	var id uint64
	_, err := fmt.Sscanf(name, FilePrefix+"%d"+FileExtension, &id)
	return id, err == nil
}

// listSegments returns the directory's segment files in id order. A
// missing directory is an empty journal.
func listSegments(dir string) ([]segmentInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("oplog: read dir: %w", err)
	}

	var segs []segmentInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		id, ok := parseSegmentFilename(e.Name())
		if !ok {
			continue
		}
		segs = append(segs, segmentInfo{id: id, path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(segs, func(i, j int) bool { return segs[i].id < segs[j].id })
	return segs, nil
}

// segmentScan summarizes the readable portion of one segment.
type segmentScan struct {
	records  int
	firstSeq uint64
	lastSeq  uint64

	// validLen is the byte offset just past the last clean frame.
	validLen int64
}

// scanSegment walks a segment's frames, stopping at the first corrupt or
// torn frame. An unreadable header is an error; a bad frame only ends
// the scan.
func scanSegment(path string) (segmentScan, error) {
	f, err := os.Open(path)
	if err != nil {
		return segmentScan{}, fmt.Errorf("oplog: open segment: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	magic := make([]byte, len(MagicBytes))
	if _, err := io.ReadFull(br, magic); err != nil {
		return segmentScan{}, fmt.Errorf("oplog: read magic: %w", err)
	}
	if string(magic) != MagicBytes {
		return segmentScan{}, errInvalidMagic
	}

	info := segmentScan{validLen: int64(len(MagicBytes))}
	for {
		rec, n, err := readFrame(br)
		if err != nil {
			return info, nil
		}
		info.records++
		if info.firstSeq == 0 {
			info.firstSeq = rec.Seq
		}
		info.lastSeq = rec.Seq
		info.validLen += int64(n)
	}
}
