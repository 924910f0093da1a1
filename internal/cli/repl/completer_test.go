package repl

import (
	"reflect"
	"testing"
)

func TestCompleter_Complete(t *testing.T) {
	c := NewCompleter([]string{
		"system ping",
		"set add",
		"set",
		"set get",
		"counter incr",
	})

	tests := []struct {
		prefix string
		want   []string
	}{
		{"set", []string{"set", "set add", "set get"}},
		{"set ", []string{"set add", "set get"}},
		{"counter incr", []string{"counter incr"}},
		{"sys", []string{"system ping"}},
		{"map", nil},
		{"", []string{"counter incr", "set", "set add", "set get", "system ping"}},
	}

	for _, tt := range tests {
		got := c.Complete(tt.prefix)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Complete(%q) = %v, want %v", tt.prefix, got, tt.want)
		}
	}
}

func TestCompleter_DoesNotMutateInput(t *testing.T) {
	commands := []string{"zeta", "alpha"}
	c := NewCompleter(commands)

	if commands[0] != "zeta" {
		t.Error("NewCompleter should copy before sorting")
	}
	if got := c.Complete(""); got[0] != "alpha" {
		t.Errorf("Complete order = %v, want sorted", got)
	}
}

func TestCompleter_Empty(t *testing.T) {
	c := NewCompleter(nil)
	if got := c.Complete("anything"); got != nil {
		t.Errorf("Complete on empty completer = %v, want nil", got)
	}
}
