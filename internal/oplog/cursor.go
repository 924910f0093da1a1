package oplog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// cursorFile records the highest replayed sequence so a restart does not
// deliver the same records twice.
const cursorFile = "oplog.cursor"

func loadCursor(dir string) (uint64, error) {
	data, err := os.ReadFile(filepath.Join(dir, cursorFile))
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("oplog: read cursor: %w", err)
	}
	seq, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("oplog: parse cursor: %w", err)
	}
	return seq, nil
}

func storeCursor(dir string, seq uint64) error {
	f, err := os.CreateTemp(dir, cursorFile+".tmp-")
	if err != nil {
		return fmt.Errorf("oplog: create cursor temp: %w", err)
	}
	if _, err := f.WriteString(strconv.FormatUint(seq, 10) + "\n"); err != nil {
		f.Close()
		os.Remove(f.Name())
		return fmt.Errorf("oplog: write cursor: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(f.Name())
		return fmt.Errorf("oplog: sync cursor: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return fmt.Errorf("oplog: close cursor: %w", err)
	}
	if err := os.Rename(f.Name(), filepath.Join(dir, cursorFile)); err != nil {
		os.Remove(f.Name())
		return fmt.Errorf("oplog: replace cursor: %w", err)
	}
	return nil
}
