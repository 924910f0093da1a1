package repl

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// defaultMaxHistory bounds the entries kept in memory and on disk.
const defaultMaxHistory = 1000

// History keeps the commands entered in interactive mode and persists
// them to ~/.syncmesh/history across sessions.
type History struct {
	entries []string
	maxSize int
	file    string
}

// NewHistory creates a history bound to the default file.
func NewHistory() *History {
	homeDir, _ := os.UserHomeDir()
	return &History{
		maxSize: defaultMaxHistory,
		file:    filepath.Join(homeDir, ".syncmesh", "history"),
	}
}

// Add appends a command. Consecutive repeats collapse into one entry,
// and the oldest entries fall off past the size limit.
func (h *History) Add(cmd string) {
	if cmd == "" {
		return
	}
	if len(h.entries) > 0 && h.entries[len(h.entries)-1] == cmd {
		return
	}
	h.entries = append(h.entries, cmd)
	if len(h.entries) > h.maxSize {
		h.entries = h.entries[len(h.entries)-h.maxSize:]
	}
}

// Len returns the number of entries.
func (h *History) Len() int {
	return len(h.entries)
}

// Get returns the entry at index, 0 being the most recent. Out of range
// returns "".
func (h *History) Get(index int) string {
	if index < 0 || index >= len(h.entries) {
		return ""
	}
	return h.entries[len(h.entries)-1-index]
}

// Load reads history from the file. A missing file is an empty history.
func (h *History) Load() error {
	file, err := os.Open(h.file)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			h.Add(line)
		}
	}
	return scanner.Err()
}

// Save writes history to the file, creating the directory when needed.
func (h *History) Save() error {
	if err := os.MkdirAll(filepath.Dir(h.file), 0o700); err != nil {
		return err
	}

	var sb strings.Builder
	for _, entry := range h.entries {
		sb.WriteString(entry)
		sb.WriteByte('\n')
	}
	return os.WriteFile(h.file, []byte(sb.String()), 0o600)
}
