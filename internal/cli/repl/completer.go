package repl

import (
	"sort"
	"strings"
)

// Completer suggests command paths for a typed prefix.
type Completer struct {
	commands []string
}

// NewCompleter creates a completer over the given command paths
// ("set add", "counter incr", ...).
func NewCompleter(commands []string) *Completer {
	sorted := make([]string, len(commands))
	copy(sorted, commands)
	sort.Strings(sorted)
	return &Completer{commands: sorted}
}

// Complete returns the commands starting with prefix, in sorted order.
// An empty prefix matches everything.
func (c *Completer) Complete(prefix string) []string {
	var suggestions []string
	for _, cmd := range c.commands {
		if strings.HasPrefix(cmd, prefix) {
			suggestions = append(suggestions, cmd)
		}
	}
	return suggestions
}
