package command

import (
	"bytes"
	"io"
	"os"
	"sort"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"
)

func TestApp_Structure(t *testing.T) {
	app := App()

	if app.Name != "syncmesh-cli" {
		t.Fatalf("Name = %q, want syncmesh-cli", app.Name)
	}
	if app.Before == nil || app.After == nil {
		t.Fatal("app must install Before and After hooks")
	}

	want := []string{"connect", "counter", "map", "repl", "set", "system"}
	var got []string
	for _, cmd := range app.Commands {
		got = append(got, cmd.Name)
	}
	sort.Strings(got)
	if len(got) != len(want) {
		t.Fatalf("commands = %v, want %v", got, want)
	}
	for i, name := range want {
		if got[i] != name {
			t.Fatalf("commands = %v, want %v", got, want)
		}
	}
}

func TestApp_GlobalFlags(t *testing.T) {
	app := App()

	envs := map[string]string{
		"profile":  "SYNCMESH_PROFILE",
		"endpoint": "SYNCMESH_ENDPOINT",
		"api-key":  "SYNCMESH_API_KEY",
		"config":   "SYNCMESH_CLI_CONFIG",
	}
	found := make(map[string]bool)
	for _, f := range app.Flags {
		sf, ok := f.(*cli.StringFlag)
		if !ok {
			continue
		}
		found[sf.Name] = true
		if env, ok := envs[sf.Name]; ok {
			if len(sf.EnvVars) == 0 || sf.EnvVars[0] != env {
				t.Errorf("flag %q env vars = %v, want %q", sf.Name, sf.EnvVars, env)
			}
		}
	}
	for _, name := range []string{"profile", "endpoint", "api-key", "output", "config"} {
		if !found[name] {
			t.Errorf("missing global flag %q", name)
		}
	}
}

func TestParseGlobalFlags(t *testing.T) {
	var got *GlobalFlags
	app := &cli.App{
		Flags: globalFlags(),
		Action: func(c *cli.Context) error {
			got = ParseGlobalFlags(c)
			return nil
		},
	}
	args := []string{
		"test",
		"--profile", "staging",
		"--endpoint", "http://localhost:9999",
		"--api-key", "smak_deadbeef",
		"--output", "json",
		"--config", "/tmp/cli.yaml",
	}
	if err := app.Run(args); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got == nil {
		t.Fatal("action did not run")
	}
	if got.Profile != "staging" {
		t.Errorf("Profile = %q", got.Profile)
	}
	if got.Endpoint != "http://localhost:9999" {
		t.Errorf("Endpoint = %q", got.Endpoint)
	}
	if got.APIKey != "smak_deadbeef" {
		t.Errorf("APIKey = %q", got.APIKey)
	}
	if got.Output != "json" {
		t.Errorf("Output = %q", got.Output)
	}
	if got.Config != "/tmp/cli.yaml" {
		t.Errorf("Config = %q", got.Config)
	}
}

func TestCommandPaths(t *testing.T) {
	paths := CommandPaths(App())

	set := make(map[string]bool, len(paths))
	for _, p := range paths {
		set[p] = true
	}
	for _, want := range []string{
		"connect", "connect add", "connect list", "connect use",
		"set", "set add", "set get", "set discard",
		"counter incr", "map assign", "map remove",
		"system ping", "system version",
		"repl", "help", "exit", "quit",
	} {
		if !set[want] {
			t.Errorf("CommandPaths missing %q", want)
		}
	}
}

func TestFormatterFor_BadOutput(t *testing.T) {
	e := newTestEnv(t)

	_, err := e.run(t, "--output", "xml", "system", "version")
	if err == nil {
		t.Fatal("want error for unknown output format")
	}
	if !strings.Contains(err.Error(), "xml") {
		t.Fatalf("error = %v, want mention of xml", err)
	}
}

func TestPrintError(t *testing.T) {
	old := os.Stderr
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stderr = w

	PrintError("read failed: %v", io.EOF)

	w.Close()
	os.Stderr = old

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		t.Fatalf("read captured stderr: %v", err)
	}
	r.Close()

	out := buf.String()
	if !strings.Contains(out, "error: read failed: EOF") {
		t.Fatalf("stderr = %q", out)
	}
}
