package repl

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Prompt is printed before every input line.
const Prompt = "syncmesh> "

// ExecuteFunc runs one tokenized command line.
type ExecuteFunc func(args []string) error

// REPL is the interactive command loop. Lines are tokenized and handed
// to the execute function; exit, quit, and EOF end the loop. A line
// ending in "?" lists the commands matching the part before it.
type REPL struct {
	input     io.Reader
	output    io.Writer
	execute   ExecuteFunc
	completer *Completer
	history   *History
}

// New creates a REPL on stdin/stdout that dispatches through execute.
func New(execute ExecuteFunc) *REPL {
	return &REPL{
		input:     os.Stdin,
		output:    os.Stdout,
		execute:   execute,
		completer: NewCompleter(nil),
		history:   NewHistory(),
	}
}

// SetCompleter replaces the command completer.
func (r *REPL) SetCompleter(c *Completer) {
	r.completer = c
}

// History returns the command history so callers can load and persist it.
func (r *REPL) History() *History {
	return r.history
}

// Run reads and dispatches lines until exit, quit, or EOF.
func (r *REPL) Run() error {
	reader := bufio.NewReader(r.input)

	for {
		fmt.Fprint(r.output, Prompt)

		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return err
		}

		atEOF := err == io.EOF
		line = strings.TrimSpace(line)

		if line != "" && !r.dispatch(line) {
			return nil
		}
		if atEOF {
			fmt.Fprintln(r.output)
			return nil
		}
	}
}

// dispatch handles one non-empty line. It returns false when the loop
// should end.
func (r *REPL) dispatch(line string) bool {
	if line == "exit" || line == "quit" {
		return false
	}

	if prefix, ok := strings.CutSuffix(line, "?"); ok {
		r.suggest(strings.TrimSpace(prefix))
		return true
	}

	r.history.Add(line)

	args, err := tokenize(line)
	if err != nil {
		fmt.Fprintf(r.output, "Error: %v\n", err)
		return true
	}

	if args[0] == "repl" {
		fmt.Fprintln(r.output, "already in interactive mode")
		return true
	}

	if err := r.execute(args); err != nil {
		fmt.Fprintf(r.output, "Error: %v\n", err)
	}
	return true
}

// suggest prints the commands matching prefix, one per line.
func (r *REPL) suggest(prefix string) {
	for _, cmd := range r.completer.Complete(prefix) {
		fmt.Fprintln(r.output, cmd)
	}
}

// tokenize splits a command line into arguments. Double and single
// quotes group words, so set elements may contain spaces. There is no
// escape processing inside quotes.
func tokenize(line string) ([]string, error) {
	var args []string
	var current strings.Builder
	var quote rune
	inToken := false

	for _, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inToken = true
		case r == ' ' || r == '\t':
			if inToken {
				args = append(args, current.String())
				current.Reset()
				inToken = false
			}
		default:
			current.WriteRune(r)
			inToken = true
		}
	}

	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if inToken {
		args = append(args, current.String())
	}
	return args, nil
}
